// Package harness runs YAML scenarios against the entry codec and query
// engine and compares the resulting traces with golden files.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	initial: "theme=dark"      # starting flat string (optional)
//	unravel: all               # mode used by all/first/find/has steps
//	quota: 0                   # byte quota, 0 = unlimited
//	steps:
//	  - op: store
//	    record: { id: lang, value: go }
//	    expect: { ok: true }
//	  - op: store_all
//	    records:
//	      - { id: a, value: "1" }
//	      - { id: b }
//	    expect: { error: MISSING_VALUE, stored: 0 }
//	  - op: first
//	    query: "#-1"
//	    expect: { found: true, ids: [lang] }
//	assertions:
//	  - type: flat_equals
//	    flat: "theme=dark;lang=go"
//	  - type: trace_count
//	    op: store
//	    count: 1
//
// # Step Operations
//
//   - store, store_json, store_container: one record
//   - store_all, store_all_json: a list of records
//   - all: decode and unravel the whole flat string
//   - first, find, has: resolve a query (see query.Parse)
//   - enable, disable: toggle the in-memory medium
//
// # Assertion Types
//
//   - flat_equals: the final flat string, reported with a character diff
//   - entry_count: number of entries after decoding the final flat string
//   - has: query.Has over the final entries equals want
//   - kind: the kind of the first entry a query selects
//   - trace_count: an op appears exactly N times in the trace
//   - trace_order: ops appear in the given order
//
// # Deterministic Testing
//
// Every scenario runs against a fresh store.Memory and numbers trace events
// with a step counter, so identical scenarios produce byte-identical
// canonical JSON traces for golden comparison.
package harness
