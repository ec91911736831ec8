package ir

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Kind tags how an Entry's value must be interpreted.
type Kind string

const (
	// KindScalar entries hold a plain string.
	KindScalar Kind = "scalar"

	// KindJSON entries hold a decoded structured Value.
	KindJSON Kind = "json"

	// KindContainer entries hold an ordered sequence of scalar sub-entries.
	KindContainer Kind = "container"
)

// Entry is one decoded logical record: an identifier plus a typed value.
//
// The value fields are unexported so that kind and value shape can never
// disagree; build entries with NewScalar, NewJSON, NewContainer or one of
// the Record constructors. Entries are immutable once built.
type Entry struct {
	ID string

	kind     Kind
	scalar   string
	json     Value
	children []Entry
}

// NewScalar creates a scalar entry.
func NewScalar(id, value string) Entry {
	return Entry{ID: id, kind: KindScalar, scalar: value}
}

// NewJSON creates a json entry. A nil Value is stored as Null.
func NewJSON(id string, v Value) Entry {
	if v == nil {
		v = Null{}
	}
	return Entry{ID: id, kind: KindJSON, json: v}
}

// NewContainer creates a container entry.
// Every child must be scalar and there must be at least one.
func NewContainer(id string, children []Entry) (Entry, error) {
	if len(children) == 0 {
		return Entry{}, newValidationError(CodeEmptyContainer, "value", "container %q has no sub-entries", id)
	}
	for i, c := range children {
		if c.kind != KindScalar {
			return Entry{}, newValidationError(CodeInvalidSubEntry, "value",
				"sub-entry %q has kind %s, want %s", c.ID, c.kind, KindScalar).AtIndex(i)
		}
	}
	return Entry{ID: id, kind: KindContainer, children: slices.Clone(children)}, nil
}

// Kind returns the entry's kind. The zero Entry reports KindScalar.
func (e Entry) Kind() Kind {
	if e.kind == "" {
		return KindScalar
	}
	return e.kind
}

// Scalar returns the string value of a scalar entry.
func (e Entry) Scalar() (string, bool) {
	return e.scalar, e.Kind() == KindScalar
}

// JSON returns the structured value of a json entry.
func (e Entry) JSON() (Value, bool) {
	return e.json, e.kind == KindJSON
}

// Children returns a copy of a container entry's sub-entries.
func (e Entry) Children() ([]Entry, bool) {
	if e.kind != KindContainer {
		return nil, false
	}
	return slices.Clone(e.children), true
}

// Truthy reports whether the entry's value is truthy: a non-empty scalar,
// a truthy JSON value, or any container.
func (e Entry) Truthy() bool {
	switch e.Kind() {
	case KindJSON:
		return Truthy(e.json)
	case KindContainer:
		return true
	default:
		return e.scalar != ""
	}
}

// Interface returns the value as plain Go data: string, []Entry as
// []map[string]any, or the result of ToAny for json entries.
func (e Entry) Interface() any {
	switch e.Kind() {
	case KindJSON:
		return ToAny(e.json)
	case KindContainer:
		out := make([]any, len(e.children))
		for i, c := range e.children {
			out[i] = map[string]any{"id": c.ID, "value": c.scalar}
		}
		return out
	default:
		return e.scalar
	}
}

// Record converts the entry back into boundary form.
func (e Entry) Record() Record {
	return Record{"id": e.ID, "value": e.Interface()}
}

// String implements fmt.Stringer for debugging output.
func (e Entry) String() string {
	return fmt.Sprintf("%s(%s=%v)", e.Kind(), e.ID, e.Interface())
}

// entryJSON is the wire shape used by MarshalJSON.
type entryJSON struct {
	ID    string `json:"id"`
	Kind  Kind   `json:"kind"`
	Value any    `json:"value"`
}

// MarshalJSON implements json.Marshaler so CLI and harness output can
// show entries directly.
func (e Entry) MarshalJSON() ([]byte, error) {
	out := entryJSON{ID: e.ID, Kind: e.Kind()}
	switch e.Kind() {
	case KindJSON:
		out.Value = e.json
	case KindContainer:
		out.Value = e.children
	default:
		out.Value = e.scalar
	}
	return json.Marshal(out)
}

// Record is the loosely-shaped boundary form of an entry: a map with an
// "id" and a "value" key. Records come from callers, files and external
// sequences; they become Entries only through the constructors below.
type Record map[string]any

// R builds a Record from an id and a value.
func R(id, value any) Record {
	return Record{"id": id, "value": value}
}

// id extracts and checks the "id" field.
func (r Record) id() (string, error) {
	raw, ok := r["id"]
	if !ok {
		return "", newValidationError(CodeMissingID, "id", "record has no id")
	}
	id, ok := raw.(string)
	if !ok {
		return "", newValidationError(CodeIDNotString, "id", "id is %T, want string", raw)
	}
	return id, nil
}

// value extracts the "value" field.
func (r Record) value() (any, error) {
	raw, ok := r["value"]
	if !ok {
		return nil, newValidationError(CodeMissingValue, "value", "record has no value")
	}
	return raw, nil
}

// ScalarFromRecord validates that rec has a string id and a string value
// and returns the scalar entry.
func ScalarFromRecord(rec Record) (Entry, error) {
	id, err := rec.id()
	if err != nil {
		return Entry{}, err
	}
	raw, err := rec.value()
	if err != nil {
		return Entry{}, err
	}
	switch v := raw.(type) {
	case string:
		return NewScalar(id, v), nil
	case String:
		return NewScalar(id, string(v)), nil
	default:
		return Entry{}, newValidationError(CodeValueNotString, "value", "value of %q is %T, want string", id, raw)
	}
}

// EntryFromRecord accepts any record with a string id and a value that is
// either a string (scalar) or structured data (json).
func EntryFromRecord(rec Record) (Entry, error) {
	if e, err := ScalarFromRecord(rec); err == nil || CodeOf(err) != CodeValueNotString {
		return e, err
	}
	id, _ := rec.id()
	raw, _ := rec.value()
	v, err := ToValue(raw)
	if err != nil {
		ve := newValidationError(CodeValueNotStructured, "value", "value of %q is not structured data", id)
		ve.Err = err
		return Entry{}, ve
	}
	return NewJSON(id, v), nil
}

// ContainerFromRecord validates a container-shaped record: a string id and
// a non-empty sequence of scalar-shaped sub-records. Accepted sequences are
// []Record, []map[string]any, []any holding either of those, and []Entry.
func ContainerFromRecord(rec Record) (Entry, error) {
	id, err := rec.id()
	if err != nil {
		return Entry{}, err
	}
	raw, err := rec.value()
	if err != nil {
		return Entry{}, err
	}

	var subs []Record
	switch v := raw.(type) {
	case []Record:
		subs = v
	case []map[string]any:
		for _, m := range v {
			subs = append(subs, Record(m))
		}
	case []any:
		for i, item := range v {
			switch m := item.(type) {
			case Record:
				subs = append(subs, m)
			case map[string]any:
				subs = append(subs, Record(m))
			default:
				return Entry{}, newValidationError(CodeInvalidSubEntry, "value",
					"sub-entry of %q is %T, want record", id, item).AtIndex(i)
			}
		}
	case []Entry:
		return NewContainer(id, v)
	default:
		return Entry{}, newValidationError(CodeInvalidSubEntry, "value",
			"value of %q is %T, want sequence of records", id, raw)
	}

	children := make([]Entry, 0, len(subs))
	for i, sub := range subs {
		child, err := ScalarFromRecord(sub)
		if err != nil {
			ve := newValidationError(CodeInvalidSubEntry, "value", "sub-entry of %q is not scalar-shaped", id).AtIndex(i)
			ve.Err = err
			return Entry{}, ve
		}
		children = append(children, child)
	}
	return NewContainer(id, children)
}
