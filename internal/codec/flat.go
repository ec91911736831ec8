package codec

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/flatkv/internal/ir"
)

// Wire format delimiters.
const (
	EntrySep     = ";"
	KeyValueSep  = "="
	ContainerSep = "&"
)

// FlatStore is the whole-document string medium the codec reads and writes.
//
// Read and Write always move the complete flat string; there are no
// partial updates. Enabled reports whether the medium is usable at all.
type FlatStore interface {
	Enabled() bool
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, flat string) error
}

// Decode parses a flat string into scalar entries, preserving order.
//
// Each ';' segment is split on its first '='; id and value are trimmed.
// Blank segments (for example from a trailing ';') are skipped. A segment
// with no '=' yields an entry with an empty value.
func Decode(flat string) []ir.Entry {
	if strings.TrimSpace(flat) == "" {
		return []ir.Entry{}
	}

	segments := strings.Split(flat, EntrySep)
	entries := make([]ir.Entry, 0, len(segments))
	for _, seg := range segments {
		if strings.TrimSpace(seg) == "" {
			continue
		}
		id, value, _ := strings.Cut(seg, KeyValueSep)
		entries = append(entries, ir.NewScalar(strings.TrimSpace(id), strings.TrimSpace(value)))
	}
	return entries
}

// Format is the pure inverse of Unravel(Decode(...)): it packs entries
// into a flat string. Scalars are written as-is, json entries as compact
// canonical JSON and containers as '&'-joined sub-entries.
func Format(entries []ir.Entry) (string, error) {
	segments := make([]string, 0, len(entries))
	for i, e := range entries {
		value, err := formatValue(e)
		if err != nil {
			return "", fmt.Errorf("format entry %d (%q): %w", i, e.ID, err)
		}
		segments = append(segments, e.ID+KeyValueSep+value)
	}
	return strings.Join(segments, EntrySep), nil
}

// formatValue renders one entry's value in wire form.
func formatValue(e ir.Entry) (string, error) {
	switch e.Kind() {
	case ir.KindJSON:
		v, _ := e.JSON()
		data, err := ir.MarshalCanonical(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case ir.KindContainer:
		children, _ := e.Children()
		return packContainer(children), nil
	default:
		s, _ := e.Scalar()
		return s, nil
	}
}

// packContainer joins scalar sub-entries as k=v&k=v.
func packContainer(children []ir.Entry) string {
	parts := make([]string, 0, len(children))
	for _, c := range children {
		v, _ := c.Scalar()
		parts = append(parts, c.ID+KeyValueSep+v)
	}
	return strings.Join(parts, ContainerSep)
}

// lossy reports which delimiters in an id/value pair break round-tripping.
func lossy(id, value string) []string {
	var found []string
	if strings.Contains(id, EntrySep) || strings.Contains(id, KeyValueSep) {
		found = append(found, "id")
	}
	if strings.Contains(value, EntrySep) {
		found = append(found, "value")
	}
	return found
}
