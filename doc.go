// Package timeindex provides a time-indexed, append-only store for
// schema-validated values.
//
// A Store persists (timestamp, value) entries as JSON lines in a single file
// and keeps a fully materialized, timestamp-ordered copy in memory, so point
// and range queries never touch the disk.
//
// # File Format
//
// One record per line, timestamps in seconds since the Unix epoch:
//
//	{"t":1734307200.25,"v":{"temperature":22.5}}
//
// Timestamps never decrease from one line to the next. The file is never
// rewritten; it only grows.
//
// # Invariants
//
//   - Append rejects a timestamp earlier than the latest entry with
//     ErrNonMonotonicWrite before any I/O. Equal timestamps are allowed and
//     keep insertion order.
//   - Append returns only after the record is fsynced, and updates memory only
//     after the disk write succeeded.
//   - Open fails with ErrMalformedRecord on any undecodable line and with
//     ErrCorruptIndex on a timestamp regression; nothing is skipped or
//     re-sorted.
//
// # Lookup Policies
//
//   - NearestPrev: latest entry at or before the query time
//   - NearestNext: earliest entry at or after the query time
//   - Nearest: the closer of those two, the earlier one on a tie
//
// Point queries on an empty store fail with ErrEmpty; queries a policy cannot
// satisfy fail with ErrOutOfBounds. Latest, Earliest and Range never fail on
// an empty store.
//
// # Usage
//
//	type Reading struct {
//	    Temperature float64 `json:"temperature"`
//	}
//
//	s, err := timeindex.Open("data/sensor.jsonl", timeindex.JSON[Reading]())
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	if _, err := s.Append(Reading{Temperature: 22.5}); err != nil {
//	    return err
//	}
//	r, err := s.Get(timeindex.Seconds(time.Now()))
package timeindex
