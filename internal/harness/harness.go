package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/flatkv/internal/codec"
	"github.com/roach88/flatkv/internal/ir"
	"github.com/roach88/flatkv/internal/query"
	"github.com/roach88/flatkv/internal/store"
)

// Harness is the test execution engine.
// It runs scenario steps against an in-memory flat medium.
type Harness struct {
	codec  *codec.Codec
	flat   *store.Memory
	mode   codec.Mode
	logger *slog.Logger
	seq    int64
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh store.Memory for isolation.
//
// Execution flow:
// 1. Seed the medium with scenario.Initial and the quota
// 2. Execute steps in order, tracing each outcome
// 3. Check each step's expect clause
// 4. Evaluate assertions against the trace and final flat string
func Run(scenario *Scenario) (*Result, error) {
	mode, err := codec.ParseMode(scenario.Unravel)
	if err != nil {
		return nil, err
	}

	mem := store.NewMemory(scenario.Initial)
	mem.SetQuota(scenario.Quota)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	h := &Harness{
		codec:  codec.New(mem, codec.WithLogger(logger)),
		flat:   mem,
		mode:   mode,
		logger: logger,
	}

	ctx := context.Background()
	result := NewResult()
	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	result.Flat, err = mem.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read final flat string: %w", err)
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions, mode) {
		result.AddError(msg)
	}

	return result, nil
}

// next returns the next trace sequence number, starting at 1.
func (h *Harness) next() int64 {
	h.seq++
	return h.seq
}

// executeSteps runs all steps, tracing each one and checking expectations.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		out, err := h.execute(ctx, step)
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}

		flat, err := h.flat.Read(ctx)
		if err != nil {
			return fmt.Errorf("step %d (%s): read flat: %w", i, step.Op, err)
		}

		result.AddTrace(TraceEvent{
			Seq:     h.next(),
			Op:      step.Op,
			Input:   stepInput(step),
			Outcome: out.toMap(),
			Flat:    flat,
		})

		if step.Expect != nil {
			for _, msg := range checkExpect(i, step, out) {
				result.AddError(msg)
			}
		}

		h.logger.Info("step completed", "step", i, "op", step.Op, "flat", flat)
	}
	return nil
}

// execute runs one step. Codec failures are part of the outcome; only a
// step that cannot be run at all returns an error.
func (h *Harness) execute(ctx context.Context, step Step) (stepOutcome, error) {
	var out stepOutcome

	switch step.Op {
	case OpStore:
		ok, err := h.codec.Store(ctx, ir.Record(step.Record))
		out.ok, out.err = &ok, err
	case OpStoreJSON:
		ok, err := h.codec.StoreAsJSON(ctx, ir.Record(step.Record))
		out.ok, out.err = &ok, err
	case OpStoreContainer:
		ok, err := h.codec.StoreContainer(ctx, ir.Record(step.Record))
		out.ok, out.err = &ok, err
	case OpStoreAll:
		res, err := h.codec.StoreAll(ctx, toRecords(step.Records))
		out.batch, out.err = &res, err
	case OpStoreAllJSON:
		res, err := h.codec.StoreAllAsJSON(ctx, toRecords(step.Records))
		out.batch, out.err = &res, err
	case OpAll, OpFirst, OpFind, OpHas:
		entries, err := h.codec.Unraveled(ctx, h.mode)
		if err != nil {
			out.err = err
			break
		}
		if step.Op == OpAll {
			out.entries, out.listed = entries, true
			break
		}
		q, err := query.Parse(step.Query)
		if err != nil {
			return out, err
		}
		switch step.Op {
		case OpFirst:
			e, found := query.First(entries, q)
			out.found, out.listed = &found, true
			out.entries = []ir.Entry{}
			if found {
				out.entries = []ir.Entry{e}
			}
		case OpFind:
			out.entries, out.listed = query.Find(entries, q), true
		case OpHas:
			ok := query.Has(entries, q)
			out.ok = &ok
		}
	case OpEnable:
		h.flat.SetEnabled(true)
	case OpDisable:
		h.flat.SetEnabled(false)
	default:
		return out, fmt.Errorf("unknown op %q", step.Op)
	}

	return out, nil
}

// stepOutcome is the typed result of one step.
type stepOutcome struct {
	ok      *bool
	batch   *codec.BatchResult
	found   *bool
	entries []ir.Entry
	listed  bool
	err     error
}

// toMap converts the outcome to plain data for the trace.
func (o stepOutcome) toMap() map[string]any {
	m := map[string]any{}
	if o.ok != nil {
		m["ok"] = *o.ok
	}
	if o.batch != nil {
		m["total"] = o.batch.Total
		m["stored"] = o.batch.Stored
		m["failed"] = o.batch.Failed
	}
	if o.found != nil {
		m["found"] = *o.found
	}
	if o.listed {
		list := make([]any, len(o.entries))
		for i, e := range o.entries {
			list[i] = map[string]any{
				"id":    e.ID,
				"kind":  string(e.Kind()),
				"value": e.Interface(),
			}
		}
		m["entries"] = list
	}
	if o.err != nil {
		m["error"] = errorLabel(o.err)
	}
	return m
}

// ids returns the ids of the listed entries.
func (o stepOutcome) ids() []string {
	ids := make([]string, len(o.entries))
	for i, e := range o.entries {
		ids[i] = e.ID
	}
	return ids
}

// errorLabel renders an error as its validation code when it has one.
func errorLabel(err error) string {
	if code := ir.CodeOf(err); code != "" {
		return string(code)
	}
	return err.Error()
}

// checkExpect compares a step outcome with its expect clause.
func checkExpect(index int, step Step, out stepOutcome) []string {
	exp := step.Expect
	prefix := fmt.Sprintf("steps[%d] %s", index, step.Op)
	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, prefix+": "+fmt.Sprintf(format, args...))
	}

	if exp.OK != nil {
		switch {
		case out.ok == nil:
			fail("expected ok=%v, but %s reports no ok", *exp.OK, step.Op)
		case *out.ok != *exp.OK:
			fail("expected ok=%v, got %v", *exp.OK, *out.ok)
		}
	}

	if exp.Stored != nil || exp.Failed != nil {
		if out.batch == nil {
			fail("expected a batch result, but %s is not a batch op", step.Op)
		} else {
			if exp.Stored != nil && out.batch.Stored != *exp.Stored {
				fail("expected stored=%d, got %d", *exp.Stored, out.batch.Stored)
			}
			if exp.Failed != nil && out.batch.Failed != *exp.Failed {
				fail("expected failed=%d, got %d", *exp.Failed, out.batch.Failed)
			}
		}
	}

	switch exp.Error {
	case "":
	case "none":
		if out.err != nil {
			fail("expected no error, got %v", out.err)
		}
	case "any":
		if out.err == nil {
			fail("expected an error, got none")
		}
	default:
		if got := ir.CodeOf(out.err); string(got) != exp.Error {
			fail("expected error %s, got %v", exp.Error, out.err)
		}
	}

	if exp.Found != nil {
		switch {
		case out.found == nil:
			fail("expected found=%v, but %s reports no found", *exp.Found, step.Op)
		case *out.found != *exp.Found:
			fail("expected found=%v, got %v", *exp.Found, *out.found)
		}
	}

	if exp.IDs != nil {
		if !out.listed {
			fail("expected ids %v, but %s lists no entries", exp.IDs, step.Op)
		} else if got := out.ids(); !slices.Equal(got, exp.IDs) {
			fail("expected ids %v, got %v", exp.IDs, got)
		}
	}

	return errs
}

// stepInput returns the trace input of a step, or nil when it has none.
func stepInput(step Step) any {
	switch {
	case step.Record != nil:
		return step.Record
	case step.Records != nil:
		list := make([]any, len(step.Records))
		for i, r := range step.Records {
			list[i] = r
		}
		return list
	case step.Query != "":
		return step.Query
	}
	return nil
}

func toRecords(maps []map[string]any) []ir.Record {
	recs := make([]ir.Record, len(maps))
	for i, m := range maps {
		recs[i] = ir.Record(m)
	}
	return recs
}
