// Command picgaz deduplicates images from source directories into
// hash-named destination stores guarded by a self-verifying manifest.
//
//	picgaz run [--plan NAME] [--confirm PHRASE]
//	picgaz verify [--plan NAME]
//	picgaz status
//	picgaz history [--limit N]
//	picgaz config init|validate
package main
