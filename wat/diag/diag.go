// Package diag defines the diagnostics reported by the parser and validator.
package diag

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/wippyai/wat-engine/wat/syntax"
	"github.com/wippyai/wat-engine/wat/token"
)

type Severity uint8

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "error":
		*s = Error
	case "warning":
		*s = Warning
	default:
		return fmt.Errorf("unknown severity %q", b)
	}
	return nil
}

type Category uint8

const (
	Syntax Category = iota
	UnresolvedReference
	DuplicateDefinition
	ArityMismatch
)

// Categories lists every category in reporting order.
var Categories = []Category{Syntax, UnresolvedReference, DuplicateDefinition, ArityMismatch}

func (c Category) String() string {
	switch c {
	case Syntax:
		return "syntax"
	case UnresolvedReference:
		return "unresolved-reference"
	case DuplicateDefinition:
		return "duplicate-definition"
	case ArityMismatch:
		return "arity-mismatch"
	}
	return "unknown"
}

func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Category) UnmarshalText(b []byte) error {
	v, ok := ParseCategory(string(b))
	if !ok {
		return fmt.Errorf("unknown category %q", b)
	}
	*c = v
	return nil
}

// ParseCategory maps a category name back to its value.
func ParseCategory(name string) (Category, bool) {
	for _, c := range Categories {
		if c.String() == name {
			return c, true
		}
	}
	return 0, false
}

// Diagnostic is a problem found in a document, located by byte span.
type Diagnostic struct {
	Message  string     `json:"message"`
	Span     token.Span `json:"span"`
	Severity Severity   `json:"severity"`
	Category Category   `json:"category"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%v %s (%s): %s", d.Span, d.Severity, d.Category, d.Message)
}

// FromProblems turns syntax errors into diagnostics.
func FromProblems(problems []syntax.Problem) []Diagnostic {
	out := make([]Diagnostic, 0, len(problems))
	for _, p := range problems {
		out = append(out, Diagnostic{Message: p.Message, Span: p.Span, Severity: Error, Category: Syntax})
	}
	return out
}

// Sort orders diagnostics by position, then category, then message.
func Sort(ds []Diagnostic) {
	slices.SortStableFunc(ds, func(a, b Diagnostic) int {
		return cmp.Or(
			cmp.Compare(a.Span.Start, b.Span.Start),
			cmp.Compare(a.Span.End, b.Span.End),
			cmp.Compare(a.Category, b.Category),
			cmp.Compare(a.Message, b.Message),
		)
	})
}

// Count returns how many diagnostics have the given severity.
func Count(ds []Diagnostic, sev Severity) int {
	n := 0
	for _, d := range ds {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// Filter returns the diagnostics of the given category.
func Filter(ds []Diagnostic, c Category) []Diagnostic {
	var out []Diagnostic
	for _, d := range ds {
		if d.Category == c {
			out = append(out, d)
		}
	}
	return out
}
