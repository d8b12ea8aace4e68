// Package runner drives plans through the manifest state machine.
//
// For each plan the runner checks directory access, takes the destination
// lock, verifies the destination manifest, rebuilds it when missing, aborts
// when it is corrupt or ambiguous, and then ingests the source. Every run is
// journaled to the history store under a fresh run id that also tags each
// log line the run emits.
package runner
