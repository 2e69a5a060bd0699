// Package history persists a ledger of conversion runs in SQLite.
//
// Every invocation of the converter opens a run, records the outcome of each
// chapter it processed (selected takes, compiled frames, verse files, and the
// completeness decision), and closes the run with its final status. The CLI
// reads the ledger back to list past conversions and explain why a chapter was
// discarded.
//
// The database is diagnostic storage rather than a source of truth for the
// produced archives. Schema changes bump the version in schema.go; users delete
// the database to adopt the new schema.
package history
