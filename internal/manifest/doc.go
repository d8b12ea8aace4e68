// Package manifest owns the self-certifying index of a destination store.
//
// A Manifest maps content hash to Entry and is an explicitly owned object:
// callers load it through Store.Verify, mutate it on one goroutine, and hand
// it back to Store.Persist, which is the only code that writes manifest files.
//
// The persisted file is named after the digest of its own bytes, so Verify can
// detect edits, truncation, and staleness without a side checksum. Verify
// also requires the entry count to match the content files present (the
// manifest, picgaz's temporary artifacts, and subdirectories such as the
// quarantine are not content). More than one candidate manifest, or any
// failed check, is reported as a terminal state carrying enough detail for an
// operator to resolve it by hand.
package manifest
