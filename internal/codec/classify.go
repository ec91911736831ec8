package codec

import (
	"fmt"
	"strings"

	"github.com/roach88/flatkv/internal/ir"
)

// Mode selects which classifiers Unravel runs.
type Mode string

const (
	ModeAll           Mode = "all"
	ModeJSONOnly      Mode = "json-only"
	ModeContainerOnly Mode = "container-only"
	ModeNone          Mode = "none"
)

// ValidModes lists the accepted unravel modes.
var ValidModes = []Mode{ModeAll, ModeJSONOnly, ModeContainerOnly, ModeNone}

// ParseMode converts a mode name into a Mode. The empty string selects ModeAll.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return ModeAll, nil
	}
	for _, m := range ValidModes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("invalid unravel mode %q: must be one of %v", s, ValidModes)
}

// Outcome is the tagged result of a classifier.
type Outcome int

const (
	// NotApplicable leaves the entry unchanged for the next classifier.
	NotApplicable Outcome = iota
	// Matched means the classifier produced the reclassified entry.
	Matched
)

// Classifier reclassifies a scalar entry.
//
// Classify is only offered scalar entries. It must return the input
// unchanged together with NotApplicable when the value does not fit.
type Classifier interface {
	Name() string
	Classify(e ir.Entry) (ir.Entry, Outcome)
}

// Classifiers returns the ordered classifier list for mode.
// JSON always runs before container.
func Classifiers(mode Mode) []Classifier {
	switch mode {
	case ModeJSONOnly:
		return []Classifier{JSONClassifier{}}
	case ModeContainerOnly:
		return []Classifier{ContainerClassifier{}}
	case ModeNone:
		return nil
	default:
		return []Classifier{JSONClassifier{}, ContainerClassifier{}}
	}
}

// Unravel reclassifies decoded entries according to mode.
//
// The mapping is 1:1 and order-preserving. Only scalar entries are offered
// to classifiers, so running Unravel again over its own output is a no-op
// for entries that already matched.
func Unravel(entries []ir.Entry, mode Mode) []ir.Entry {
	return UnravelWith(entries, Classifiers(mode))
}

// UnravelWith runs an explicit classifier list; the first Matched wins.
func UnravelWith(entries []ir.Entry, classifiers []Classifier) []ir.Entry {
	out := make([]ir.Entry, len(entries))
	for i, e := range entries {
		out[i] = classify(e, classifiers)
	}
	return out
}

func classify(e ir.Entry, classifiers []Classifier) ir.Entry {
	if e.Kind() != ir.KindScalar {
		return e
	}
	for _, c := range classifiers {
		if next, outcome := c.Classify(e); outcome == Matched {
			return next
		}
	}
	return e
}

// JSONClassifier upgrades scalars whose value is exactly one JSON document.
type JSONClassifier struct{}

// Name implements Classifier.
func (JSONClassifier) Name() string { return "json" }

// Classify implements Classifier.
func (JSONClassifier) Classify(e ir.Entry) (ir.Entry, Outcome) {
	s, ok := e.Scalar()
	if !ok {
		return e, NotApplicable
	}
	v, err := ir.UnmarshalValue([]byte(s))
	if err != nil {
		return e, NotApplicable
	}
	return ir.NewJSON(e.ID, v), Matched
}

// ContainerClassifier upgrades scalars shaped like k=v&k=v.
//
// A value qualifies when it contains at least one '&' and every
// '&'-segment contains exactly one '='. Sub-entries are split on that '='
// and are not trimmed.
type ContainerClassifier struct{}

// Name implements Classifier.
func (ContainerClassifier) Name() string { return "container" }

// Classify implements Classifier.
func (ContainerClassifier) Classify(e ir.Entry) (ir.Entry, Outcome) {
	s, ok := e.Scalar()
	if !ok || !strings.Contains(s, ContainerSep) {
		return e, NotApplicable
	}

	segments := strings.Split(s, ContainerSep)
	children := make([]ir.Entry, 0, len(segments))
	for _, seg := range segments {
		if strings.Count(seg, KeyValueSep) != 1 {
			return e, NotApplicable
		}
		id, value, _ := strings.Cut(seg, KeyValueSep)
		children = append(children, ir.NewScalar(id, value))
	}

	container, err := ir.NewContainer(e.ID, children)
	if err != nil {
		return e, NotApplicable
	}
	return container, Matched
}
