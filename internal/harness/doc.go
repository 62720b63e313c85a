// Package harness runs YAML scenarios against a fresh time index.
//
// # Scenario Format
//
//	name: nearest_tie
//	description: "Nearest resolves equal distances to the earlier entry"
//	policy: nearest          # default lookup policy, nearest_prev if omitted
//	schema: |                # optional CUE source; any JSON value if omitted
//	  #Value: number
//	log: |                   # optional file content before the store opens
//	  {"t":1,"v":1}
//	steps:
//	  - append: {t: 100, v: 1}
//	  - append: {v: 2}       # t from the deterministic clock
//	  - get: {t: 150}
//	    expect: 1
//	    expect_t: 100
//	  - get: {t: 50, policy: nearest_prev}
//	    expect_error: out_of_bounds
//	  - range: {from: 100, to: 200}
//	    expect_ts: [100, 200]
//	  - latest: true
//	    expect_t: 200
//	  - len: 2
//	  - corrupt: {line: 1, text: "not json"}
//	  - reopen: true
//	    expect_error: malformed_record
//
// Error names are those returned by timeindex.KindName.
//
// # Deterministic Testing
//
// Every scenario runs in its own temporary directory. Appends without t are
// timestamped by testutil.Clock starting at 2024-12-16T00:00:00Z and
// advancing one second per append, so traces are identical across runs and
// can be compared with golden files (see RunWithGolden).
package harness
