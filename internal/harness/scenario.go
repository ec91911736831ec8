package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/flatkv/internal/codec"
	"github.com/roach88/flatkv/internal/query"
)

// Scenario defines a codec scenario: a starting flat string, a sequence
// of operations with optional expectations, and assertions on the result.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Initial is the flat string the in-memory medium starts with.
	Initial string `yaml:"initial,omitempty"`

	// Unravel is the mode used by all/first/find/has steps and by
	// assertions that read entries. Empty means "all".
	Unravel string `yaml:"unravel,omitempty"`

	// Quota is the medium's byte quota. 0 means unlimited.
	Quota int `yaml:"quota,omitempty"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and flat string.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation against the codec or query engine.
type Step struct {
	// Op is the operation name (see the Op constants).
	Op string `yaml:"op"`

	// Record is the input of single-record store operations.
	Record map[string]any `yaml:"record,omitempty"`

	// Records is the input of batch store operations.
	Records []map[string]any `yaml:"records,omitempty"`

	// Query is the text form of a query for first/find/has.
	Query string `yaml:"query,omitempty"`

	// Expect optionally checks the step outcome.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect checks a step outcome. Only the fields that are set are compared.
type Expect struct {
	// OK is the bool returned by single store operations and has.
	OK *bool `yaml:"ok,omitempty"`

	// Stored and Failed check a BatchResult.
	Stored *int `yaml:"stored,omitempty"`
	Failed *int `yaml:"failed,omitempty"`

	// Error is a validation code (e.g. MISSING_VALUE), "any" for any
	// error, or "none" for no error.
	Error string `yaml:"error,omitempty"`

	// Found checks whether first resolved an entry.
	Found *bool `yaml:"found,omitempty"`

	// IDs lists the ids returned by all/first/find, in order.
	IDs []string `yaml:"ids,omitempty"`
}

// Assertion validates the trace or final flat string.
type Assertion struct {
	// Type specifies the assertion type (see the Assert constants).
	Type string `yaml:"type"`

	// Flat is the expected flat string (flat_equals).
	Flat string `yaml:"flat,omitempty"`

	// Count is the expected count (entry_count, trace_count).
	Count int `yaml:"count,omitempty"`

	// Query is the text form of a query (has, kind).
	Query string `yaml:"query,omitempty"`

	// Want is the expected has result (has).
	Want *bool `yaml:"want,omitempty"`

	// Kind is the expected entry kind (kind).
	Kind string `yaml:"kind,omitempty"`

	// Op is the operation name (trace_count).
	Op string `yaml:"op,omitempty"`

	// Ops is the expected operation order (trace_order).
	Ops []string `yaml:"ops,omitempty"`
}

// Step operation names.
const (
	OpStore          = "store"
	OpStoreAll       = "store_all"
	OpStoreJSON      = "store_json"
	OpStoreContainer = "store_container"
	OpStoreAllJSON   = "store_all_json"
	OpAll            = "all"
	OpFirst          = "first"
	OpFind           = "find"
	OpHas            = "has"
	OpEnable         = "enable"
	OpDisable        = "disable"
)

// Assertion type constants.
const (
	AssertFlatEquals = "flat_equals"
	AssertEntryCount = "entry_count"
	AssertHas        = "has"
	AssertKind       = "kind"
	AssertTraceCount = "trace_count"
	AssertTraceOrder = "trace_order"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML from memory.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if _, err := codec.ParseMode(s.Unravel); err != nil {
		return err
	}

	if s.Quota < 0 {
		return fmt.Errorf("quota must be non-negative")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep validates a single step based on its op.
func validateStep(index int, s *Step) error {
	switch s.Op {
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	case OpStore, OpStoreJSON, OpStoreContainer:
		if s.Record == nil {
			return fmt.Errorf("steps[%d]: record is required for %s", index, s.Op)
		}
	case OpStoreAll, OpStoreAllJSON:
		if s.Records == nil {
			return fmt.Errorf("steps[%d]: records is required for %s", index, s.Op)
		}
	case OpFirst, OpFind, OpHas:
		if _, err := query.Parse(s.Query); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	case OpAll, OpEnable, OpDisable:
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, s.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFlatEquals:
	case AssertEntryCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for entry_count", index)
		}
	case AssertHas:
		if a.Want == nil {
			return fmt.Errorf("assertions[%d]: want is required for has", index)
		}
		if _, err := query.Parse(a.Query); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertKind:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for kind", index)
		}
		if _, err := query.Parse(a.Query); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
