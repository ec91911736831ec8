package query

import "github.com/roach88/flatkv/internal/ir"

// First returns the first entry q selects.
// The bool is false when nothing matches.
func First(entries []ir.Entry, q Query) (ir.Entry, bool) {
	switch q := q.(type) {
	case Index:
		i, ok := position(len(entries), int(q))
		if !ok {
			return ir.Entry{}, false
		}
		return entries[i], true
	case Exact, Pattern:
		for _, e := range entries {
			if matches(q, e.ID) {
				return e, true
			}
		}
	}
	return ir.Entry{}, false
}

// Find returns every entry q selects, in encounter order.
// An Index selects at most one entry. Never returns nil.
func Find(entries []ir.Entry, q Query) []ir.Entry {
	found := []ir.Entry{}
	switch q := q.(type) {
	case Index:
		if i, ok := position(len(entries), int(q)); ok {
			found = append(found, entries[i])
		}
	case Exact, Pattern:
		for _, e := range entries {
			if matches(q, e.ID) {
				found = append(found, e)
			}
		}
	}
	return found
}

// Has reports whether First finds an entry and that entry's value is truthy.
// A present entry holding "", null, false or zero reports false.
func Has(entries []ir.Entry, q Query) bool {
	e, ok := First(entries, q)
	return ok && e.Truthy()
}

// position maps a signed index onto [0, n).
func position(n, i int) (int, bool) {
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, false
	}
	return i, true
}

func matches(q Query, id string) bool {
	switch q := q.(type) {
	case Exact:
		return id == string(q)
	case Pattern:
		return q.Re != nil && q.Re.MatchString(id)
	}
	return false
}
