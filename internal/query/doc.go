// Package query resolves lookups against a sequence of decoded entries.
//
// A Query is exactly one of:
//   - Index: a signed position, negative counting back from the end
//   - Exact: an id compared with ==
//   - Pattern: a regular expression tested against the id
//
// Query is a sealed interface using the marker method pattern, so resolvers
// can switch over it exhaustively:
//
//	switch q := q.(type) {
//	case Index:
//	case Exact:
//	case Pattern:
//	}
//
// Resolution never fails. An out-of-range index, a miss, a nil query or a
// nil pattern all resolve to absent (First) or an empty slice (Find).
//
// Entries may come from the codec or from an external sequence checked by
// FromRecords. The engine depends on ir.Entry only, never on flat storage.
package query
