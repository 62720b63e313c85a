// Package export copies a time index into read-only secondary formats.
//
// Two targets are supported:
//
//   - SQLite: each export becomes a run in the runs table, and its entries are
//     stored in the entries table keyed by (run_id, seq). Run ids are UUIDv7,
//     so runs sort by creation time.
//   - Archive: the log's lines, re-encoded, in a zstd-compressed JSONL stream
//     that any zstd tool can inflate back into a valid log file.
//
// Exports read a snapshot of the store; the source log is never modified.
package export
