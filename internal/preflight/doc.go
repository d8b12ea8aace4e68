// Package preflight provides filesystem readiness checks for a plan.
//
// The runner calls ForPlan before touching a destination; any failed check
// aborts the plan before a lock is taken or a file is moved. The CLI "status"
// command renders the same results.
package preflight
