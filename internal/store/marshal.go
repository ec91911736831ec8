package store

import (
	"fmt"

	"github.com/roach88/flatkv/internal/ir"
)

// marshalBody converts a record body to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalBody(body ir.Value) (string, error) {
	data, err := ir.MarshalCanonical(body)
	if err != nil {
		return "", fmt.Errorf("marshal body: %w", err)
	}
	return string(data), nil
}

// unmarshalBody parses stored JSON TEXT back into a Value.
// Uses ir.UnmarshalValue which keeps large integers exact via json.Number.
func unmarshalBody(data string) (ir.Value, error) {
	v, err := ir.UnmarshalValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal body: %w", err)
	}
	return v, nil
}
