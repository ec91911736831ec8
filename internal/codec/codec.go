package codec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/flatkv/internal/ir"
)

// Codec binds the entry codec to an injected FlatStore.
//
// Codec holds no state between calls: every read decodes the store afresh
// and every store call rewrites it.
type Codec struct {
	store  FlatStore
	logger *slog.Logger
}

// Option configures a Codec.
type Option func(*Codec)

// WithLogger sets the logger used for diagnostics. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Codec) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Codec over store.
func New(store FlatStore, opts ...Option) *Codec {
	c := &Codec{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BatchResult reports the outcome of a batch store.
type BatchResult struct {
	Total  int `json:"total"`
	Stored int `json:"stored"`
	Failed int `json:"failed"`
}

// OK reports whether every item in the batch was stored.
func (r BatchResult) OK() bool {
	return r.Stored == r.Total && r.Failed == 0
}

// All reads the flat store once and decodes it into scalar entries.
//
// A disabled store yields an empty slice and a logged warning, not an error.
func (c *Codec) All(ctx context.Context) ([]ir.Entry, error) {
	if !c.store.Enabled() {
		c.logger.WarnContext(ctx, "flat store disabled, returning no entries")
		return []ir.Entry{}, nil
	}
	flat, err := c.store.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read flat store: %w", err)
	}
	entries := Decode(flat)
	c.logger.DebugContext(ctx, "decoded flat store", "entries", len(entries), "bytes", len(flat))
	return entries, nil
}

// Unraveled is All followed by Unravel.
func (c *Codec) Unraveled(ctx context.Context, mode Mode) ([]ir.Entry, error) {
	entries, err := c.All(ctx)
	if err != nil {
		return nil, err
	}
	return Unravel(entries, mode), nil
}

// Store appends one scalar-shaped record to the flat store.
//
// Returns true when the record validated and a write was attempted. A
// shape failure returns false and the *ir.ValidationError; nothing is written.
func (c *Codec) Store(ctx context.Context, rec ir.Record) (bool, error) {
	e, err := ir.ScalarFromRecord(rec)
	if err != nil {
		c.logger.WarnContext(ctx, "store rejected record", "error", err)
		return false, err
	}
	if !c.writable(ctx) {
		return false, nil
	}
	v, _ := e.Scalar()
	if err := c.appendSegments(ctx, c.segment(ctx, e.ID, v)); err != nil {
		return true, fmt.Errorf("store %q: %w", e.ID, err)
	}
	return true, nil
}

// StoreAll validates every record and appends them all in one rewrite.
//
// If any record fails validation the whole batch is rejected, nothing is
// written, and the first *ir.ValidationError is returned.
func (c *Codec) StoreAll(ctx context.Context, recs []ir.Record) (BatchResult, error) {
	result := BatchResult{Total: len(recs)}

	segments := make([]string, 0, len(recs))
	for i, rec := range recs {
		e, err := ir.ScalarFromRecord(rec)
		if err != nil {
			result.Failed = len(recs)
			c.logger.WarnContext(ctx, "store all rejected batch: count mismatch",
				"requested", len(recs), "valid", i, "error", err)
			return result, withIndex(err, i)
		}
		v, _ := e.Scalar()
		segments = append(segments, c.segment(ctx, e.ID, v))
	}

	if len(segments) == 0 {
		return result, nil
	}
	if !c.writable(ctx) {
		result.Failed = len(recs)
		return result, nil
	}
	if err := c.appendSegments(ctx, segments...); err != nil {
		result.Failed = len(recs)
		return result, fmt.Errorf("store all: %w", err)
	}
	result.Stored = len(recs)
	return result, nil
}

// StoreAsJSON serializes the record's value to JSON and stores it.
//
// A serialization failure aborts the write and is returned; the id must
// still be a string.
func (c *Codec) StoreAsJSON(ctx context.Context, rec ir.Record) (bool, error) {
	serialized, err := serializeRecord(rec)
	if err != nil {
		c.logger.WarnContext(ctx, "store as json: serialization failed", "error", err)
		return false, err
	}
	return c.Store(ctx, serialized)
}

// StoreContainer packs a sequence of scalar sub-records as k=v&k=v and
// stores it under the record's id.
func (c *Codec) StoreContainer(ctx context.Context, rec ir.Record) (bool, error) {
	e, err := ir.ContainerFromRecord(rec)
	if err != nil {
		c.logger.WarnContext(ctx, "store container rejected record", "error", err)
		return false, err
	}
	children, _ := e.Children()
	packed := packContainer(children)
	segments := strings.Split(packed, ContainerSep)
	if got := len(segments); got != len(children) {
		// A sub-entry carrying '&' would split into extra segments on decode.
		err := fmt.Errorf("store container %q: packed %d sub-entries, want %d", e.ID, got, len(children))
		c.logger.WarnContext(ctx, "store container count mismatch", "error", err)
		return false, err
	}
	for i, seg := range segments {
		// Decode splits each segment on its only '='.
		if strings.Count(seg, KeyValueSep) != 1 {
			err := fmt.Errorf("store container %q: sub-entry %d packs as %q, want one %q", e.ID, i, seg, KeyValueSep)
			c.logger.WarnContext(ctx, "store container shape mismatch", "error", err)
			return false, err
		}
	}
	return c.Store(ctx, ir.R(e.ID, packed))
}

// StoreAllAsJSON serializes and stores each record with its own Store call.
//
// A record whose value cannot be serialized is skipped and counted as
// failed; the rest of the batch continues. The batch is OK only when every
// record was stored.
func (c *Codec) StoreAllAsJSON(ctx context.Context, recs []ir.Record) (BatchResult, error) {
	result := BatchResult{Total: len(recs)}
	for i, rec := range recs {
		serialized, err := serializeRecord(rec)
		if err != nil {
			result.Failed++
			c.logger.WarnContext(ctx, "store all as json: serialization failed", "index", i, "error", err)
			continue
		}
		ok, err := c.Store(ctx, serialized)
		if err != nil && !ir.IsValidationError(err) {
			result.Failed += len(recs) - i
			return result, fmt.Errorf("store all as json: index %d: %w", i, err)
		}
		if !ok {
			result.Failed++
			continue
		}
		result.Stored++
	}
	if !result.OK() {
		c.logger.WarnContext(ctx, "store all as json: count mismatch",
			"requested", result.Total, "stored", result.Stored)
	}
	return result, nil
}

// writable reports whether the store accepts writes, logging when it does not.
func (c *Codec) writable(ctx context.Context) bool {
	if c.store.Enabled() {
		return true
	}
	c.logger.WarnContext(ctx, "flat store disabled, write skipped")
	return false
}

// appendSegments performs the whole read, append, whole write cycle.
func (c *Codec) appendSegments(ctx context.Context, segments ...string) error {
	current, err := c.store.Read(ctx)
	if err != nil {
		return fmt.Errorf("read flat store: %w", err)
	}
	addition := strings.Join(segments, EntrySep)
	next := addition
	if strings.TrimSpace(current) != "" {
		next = current + EntrySep + addition
	}
	if err := c.store.Write(ctx, next); err != nil {
		return fmt.Errorf("write flat store: %w", err)
	}
	c.logger.DebugContext(ctx, "flat store rewritten", "appended", len(segments), "bytes", len(next))
	return nil
}

// segment renders id=value and warns when the pair will not round-trip.
func (c *Codec) segment(ctx context.Context, id, value string) string {
	if fields := lossy(id, value); len(fields) > 0 {
		c.logger.WarnContext(ctx, "unescaped delimiter, round-trip is lossy", "id", id, "fields", fields)
	}
	return id + KeyValueSep + value
}

// serializeRecord returns a copy of rec whose value is its JSON text.
func serializeRecord(rec ir.Record) (ir.Record, error) {
	raw, ok := rec["value"]
	if !ok {
		// Let Store report the shape failure.
		return rec, nil
	}
	data, err := marshalJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("serialize value of %v: %w", rec["id"], err)
	}
	out := make(ir.Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	out["value"] = data
	return out, nil
}

// marshalJSON renders v as compact JSON. ir.Values use canonical JSON; any
// other Go value uses encoding/json with HTML escaping disabled.
func marshalJSON(v any) (string, error) {
	if val, ok := v.(ir.Value); ok {
		data, err := ir.MarshalCanonical(val)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// withIndex positions a validation error within a batch.
func withIndex(err error, i int) error {
	var ve *ir.ValidationError
	if errors.As(err, &ve) {
		return ve.AtIndex(i)
	}
	return err
}
