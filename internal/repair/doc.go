// Package repair rebuilds the manifest of a destination that has none.
//
// Rebuild is gated by an operator confirmation phrase and never destroys
// data: files that fail evaluation, and redundant copies of content already
// recorded, are moved into the quarantine directory. Accepted files are
// renamed to their canonical "<hash>.<ext>" form. The caller persists the
// returned manifest.
package repair
