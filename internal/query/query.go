package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Query is a lookup against entry ids or positions.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode() // Marker method - seals interface to this package
	String() string
}

// Index selects one entry by position. Non-negative values count from the
// start; negative values count from the end, so -1 is the last entry.
type Index int

func (Index) queryNode() {}

func (i Index) String() string {
	return "#" + strconv.Itoa(int(i))
}

// Exact selects entries whose id equals the string.
type Exact string

func (Exact) queryNode() {}

func (e Exact) String() string {
	return string(e)
}

// Pattern selects entries whose id matches Re.
// A nil Re matches nothing.
type Pattern struct {
	Re *regexp.Regexp
}

func (Pattern) queryNode() {}

func (p Pattern) String() string {
	if p.Re == nil {
		return "//"
	}
	return "/" + p.Re.String() + "/"
}

// MustPattern compiles expr into a Pattern and panics on a bad expression.
func MustPattern(expr string) Pattern {
	return Pattern{Re: regexp.MustCompile(expr)}
}

// Parse reads the text form of a query:
//
//	#N, #-N   Index
//	/re/      Pattern
//	anything  Exact
//
// A "#" prefix that is not followed by an integer is an Exact id.
// Only a Pattern with an invalid expression is an error.
func Parse(s string) (Query, error) {
	if rest, ok := strings.CutPrefix(s, "#"); ok {
		if n, err := strconv.Atoi(rest); err == nil {
			return Index(n), nil
		}
		return Exact(s), nil
	}

	if len(s) >= 2 && strings.HasPrefix(s, "/") && strings.HasSuffix(s, "/") {
		re, err := regexp.Compile(s[1 : len(s)-1])
		if err != nil {
			return nil, fmt.Errorf("parse query %q: %w", s, err)
		}
		return Pattern{Re: re}, nil
	}

	return Exact(s), nil
}
