// Package ingest copies new, acceptable images from a source directory into
// a verified destination store.
//
// The source is scanned without recursion. Files are evaluated on a worker
// pool; copies, renames, and manifest updates happen on the calling
// goroutine. Each new file is copied to a reserved temporary name, verified,
// and renamed to "<hash>.<ext>". The manifest is persisted once at the end if
// anything was added.
package ingest
