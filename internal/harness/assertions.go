package harness

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/roach88/flatkv/internal/codec"
	"github.com/roach88/flatkv/internal/ir"
	"github.com/roach88/flatkv/internal/query"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Diff     string       // Character diff, for flat string mismatches
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.Diff != "" {
		fmt.Fprintf(&buf, "  Diff: %s\n", e.Diff)
	}

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %v\n", event.Seq, event.Op, event.Input)
		}
	}

	return buf.String()
}

// assertFlatEquals compares the final flat string.
func assertFlatEquals(result *Result, assertion Assertion) error {
	if result.Flat == assertion.Flat {
		return nil
	}
	return &AssertionError{
		Type:     AssertFlatEquals,
		Expected: fmt.Sprintf("%q", assertion.Flat),
		Actual:   fmt.Sprintf("%q", result.Flat),
		Diff:     flatDiff(assertion.Flat, result.Flat),
		Trace:    result.Trace,
	}
}

// flatDiff renders a character diff as text with [-deleted-] and
// {+inserted+} markers.
func flatDiff(expected, actual string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(expected, actual, false))

	var buf strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			fmt.Fprintf(&buf, "[-%s-]", d.Text)
		case diffmatchpatch.DiffInsert:
			fmt.Fprintf(&buf, "{+%s+}", d.Text)
		default:
			buf.WriteString(d.Text)
		}
	}
	return buf.String()
}

// assertEntryCount checks the number of entries in the final flat string.
func assertEntryCount(entries []ir.Entry, assertion Assertion) error {
	if len(entries) == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertEntryCount,
		Expected: fmt.Sprintf("%d entries", assertion.Count),
		Actual:   fmt.Sprintf("%d entries", len(entries)),
	}
}

// assertHas checks query.Has over the final entries.
func assertHas(entries []ir.Entry, assertion Assertion) error {
	q, err := query.Parse(assertion.Query)
	if err != nil {
		return err
	}
	if got := query.Has(entries, q); got != *assertion.Want {
		return &AssertionError{
			Type:     AssertHas,
			Expected: fmt.Sprintf("has(%s) = %v", q, *assertion.Want),
			Actual:   fmt.Sprintf("has(%s) = %v", q, got),
		}
	}
	return nil
}

// assertKind checks the kind of the first entry a query selects.
func assertKind(entries []ir.Entry, assertion Assertion) error {
	q, err := query.Parse(assertion.Query)
	if err != nil {
		return err
	}
	e, ok := query.First(entries, q)
	if !ok {
		return &AssertionError{
			Type:     AssertKind,
			Expected: fmt.Sprintf("entry %s of kind %s", q, assertion.Kind),
			Actual:   "no entry matched",
		}
	}
	if string(e.Kind()) != assertion.Kind {
		return &AssertionError{
			Type:     AssertKind,
			Expected: fmt.Sprintf("entry %s of kind %s", q, assertion.Kind),
			Actual:   fmt.Sprintf("kind %s (%s)", e.Kind(), e),
		}
	}
	return nil
}

// assertTraceCount checks if the op appears exactly the given number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Op == assertion.Op {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Op),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertTraceOrder checks if ops appear in the given order.
// Ops don't need to be consecutive (intervening steps are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	// Step 1: Find first position of each expected op
	positions := make(map[string]int)
	for i, event := range trace {
		for _, expected := range assertion.Ops {
			if event.Op == expected && positions[expected] == 0 {
				positions[expected] = i + 1 // 1-indexed for readability
			}
		}
	}

	// Step 2: Verify all ops found
	for _, op := range assertion.Ops {
		if positions[op] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all ops present: %v", assertion.Ops),
				Actual:   fmt.Sprintf("missing op: %s", op),
				Trace:    trace,
			}
		}
	}

	// Step 3: Verify order
	for i := 1; i < len(assertion.Ops); i++ {
		prev := assertion.Ops[i-1]
		curr := assertion.Ops[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("ops in order: %v", assertion.Ops),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// Entry-based assertions decode result.Flat and unravel it with mode.
func EvaluateAssertions(result *Result, assertions []Assertion, mode codec.Mode) []string {
	var errors []string
	entries := codec.Unravel(codec.Decode(result.Flat), mode)

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFlatEquals:
			err = assertFlatEquals(result, assertion)
		case AssertEntryCount:
			err = assertEntryCount(entries, assertion)
		case AssertHas:
			err = assertHas(entries, assertion)
		case AssertKind:
			err = assertKind(entries, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
