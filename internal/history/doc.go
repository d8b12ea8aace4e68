// Package history journals plan runs in a SQLite database under the state
// directory. Schema changes ship as numbered files in migrations/ and are
// applied in order inside one transaction when the store opens.
package history
