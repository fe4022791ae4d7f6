// Package history persists a ledger of published audiobooks in SQLite.
//
// Each successful publish records the run id, the source fingerprint, the book
// label and the final destination. The ledger backs the history command and
// lets an import warn when a source with the same fingerprint was already
// published by an earlier run.
package history
