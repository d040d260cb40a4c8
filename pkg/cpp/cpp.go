// Package cpp is the external preprocessor-directive collaborator named
// in spec.md §6: something outside this module (a C preprocessor lexer)
// walks a source file and reports its conditional-compilation directives
// and macro (un)definitions in source order. This package only defines
// the contract; no lexer is implemented here (out of scope per spec.md
// §1 — the original's Puma-based parser is filtered out of
// original_source's supplemented-feature list for the same reason).
package cpp

import (
	"encoding/json"
	"fmt"
)

// Kind enumerates the directive shapes a Visitor reports, matching
// spec.md §6's "If/Ifdef/Ifndef/Elif/Else/Endif/DefineConstant/Undef".
type Kind int

const (
	If Kind = iota
	Ifdef
	Ifndef
	Elif
	Else
	Endif
	DefineConstant
	Undef
)

func (k Kind) String() string {
	switch k {
	case If:
		return "If"
	case Ifdef:
		return "Ifdef"
	case Ifndef:
		return "Ifndef"
	case Elif:
		return "Elif"
	case Else:
		return "Else"
	case Endif:
		return "Endif"
	case DefineConstant:
		return "DefineConstant"
	case Undef:
		return "Undef"
	default:
		return "Unknown"
	}
}

// kindNames backs both String and the JSON (un)marshaling below, so a
// directive-dump fixture on disk can spell a Kind the same way String
// renders it instead of an opaque integer.
var kindNames = map[Kind]string{
	If:             "If",
	Ifdef:          "Ifdef",
	Ifndef:         "Ifndef",
	Elif:           "Elif",
	Else:           "Else",
	Endif:          "Endif",
	DefineConstant: "DefineConstant",
	Undef:          "Undef",
}

// ParseKind is the inverse of String, for callers decoding a directive
// dump from disk.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("cpp: unknown directive kind %q", s)
}

// MarshalJSON renders k as its String form, so a directive-dump file is
// human-readable rather than a bare integer.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON implements the inverse of MarshalJSON.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Directive is one reported preprocessor node, carrying enough
// information for pkg/block.File to reconstruct the conditional-block
// tree: its kind, the raw expression text (empty for Else/Endif), the
// macro name and replacement text for DefineConstant/Undef, and its
// source extent.
type Directive struct {
	Kind Kind

	// Expression is the raw #if/#elif/#ifdef/#ifndef condition text, or
	// the macro name being (un)defined for DefineConstant/Undef.
	Expression string
	// Replacement is the macro body for DefineConstant; empty for every
	// other Kind.
	Replacement string

	Line, Col       int
	EndLine, EndCol int
}

// Visitor is the contract a caller implements to walk one file's
// directive stream in source order and populate a pkg/block.File.
// A concrete implementation lives outside this module (e.g. wrapping a
// real C preprocessor's diagnostic hooks, the way undertaker's own
// PredatorVisitor wraps Puma); this package supplies only the shape.
type Visitor interface {
	// VisitFile is called once per source file with its normalized path
	// before any directive of that file is visited.
	VisitFile(path string)
	// VisitDirective is called once per directive, in source order.
	VisitDirective(d Directive)
	// Done is called once the file's directive stream is exhausted.
	Done()
}

// Walk drives a Visitor over a pre-collected, already source-ordered
// slice of directives for one file. Real collaborators will typically
// stream directives as they lex rather than collect them first; Walk
// exists for callers (and tests) that already have the full slice, e.g.
// a fixture loaded from a directive-dump file.
func Walk(v Visitor, path string, directives []Directive) {
	v.VisitFile(path)
	for _, d := range directives {
		v.VisitDirective(d)
	}
	v.Done()
}
