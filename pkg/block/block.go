// Package block implements the conditional-block tree (spec component D):
// per-source-file trees of #if/#elif/#else regions with parent/previous
// back-references, plus the per-file macro-define table. Grounded on
// ConditionalBlock.h/CppFile in the original undertaker implementation.
package block

import (
	"fmt"
	"regexp"

	"github.com/undertaker-go/blockdefect/internal/symbol"
)

// Kind distinguishes the four block shapes named in spec.md §3.
type Kind int

const (
	// KindIf covers #if, #ifdef and #ifndef; the rewritten expression
	// already carries the ifndef negation, so all three share one Kind.
	KindIf Kind = iota
	KindElseIf
	KindElse
	// KindDummy is a synthetic block inserted by DecisionCoverage; it
	// contributes the constant "true".
	KindDummy
)

func (k Kind) String() string {
	switch k {
	case KindIf:
		return "If"
	case KindElseIf:
		return "ElseIf"
	case KindElse:
		return "Else"
	case KindDummy:
		return "Dummy"
	default:
		return "Unknown"
	}
}

// DefectType mirrors ConditionalBlock::defectType in the original
// implementation: a lightweight tag recorded on the block once component
// G (package classify) has reached a verdict. The richer Defect object
// itself lives in package classify to avoid a block->classify import
// cycle; classify.Kind is defined as block.DefectType.
type DefectType int

const (
	DefectNone DefectType = iota
	DefectImplementation
	DefectConfiguration
	DefectReferential
	DefectNoKconfig
	DefectBuildSystem
)

func (d DefectType) String() string {
	switch d {
	case DefectNone:
		return "none"
	case DefectImplementation:
		return "code"
	case DefectConfiguration:
		return "kconfig"
	case DefectReferential:
		return "missing"
	case DefectNoKconfig:
		return "no_kconfig"
	case DefectBuildSystem:
		return "kbuild"
	default:
		return "unknown"
	}
}

// RootName is the synthetic name of every file's always-satisfiable root
// block ("the whole file"), B00 in spec.md §3.
const RootName = "B00"

// Block represents one #if/#elif/#else/#ifdef/#ifndef region, or the
// synthetic Dummy region inserted by DecisionCoverage.
type Block struct {
	Name string
	Kind Kind
	// Negated records that the original directive was #ifndef, so
	// callers rendering diagnostics can say so; the rewritten Expression
	// already encodes the negation.
	Negated bool

	// RawExpression is the untouched preprocessor expression text (empty
	// for Else and Dummy blocks).
	RawExpression string
	// rewrittenExpression is populated by LateConstructor: defined(X) ->
	// X, !defined(X) -> !X, and macro-defined identifiers replaced by
	// their expansion symbol. Cached because LateConstructor need only
	// run once per block.
	rewrittenExpression string
	rewrittenSet         bool

	LineStart, ColStart int
	LineEnd, ColEnd     int

	// Parent is the enclosing block, nil only for the file's root block.
	Parent *Block
	// Previous is the immediately preceding #elif/#else sibling in the
	// same #if chain; nil for If blocks and for the first sibling.
	Previous *Block
	Children []*Block

	File *File

	// Defines holds the macro-define table entries introduced while this
	// block was active (CppDefine::addDefine in the original).
	Defines []*Define

	// DefectType is set by package classify once a verdict is reached.
	DefectType DefectType
}

// IsRoot reports whether b is its file's synthetic B00 block.
func (b *Block) IsRoot() bool {
	return b.Parent == nil
}

// Expression returns the rewritten expression if LateConstructor has run,
// otherwise the raw expression.
func (b *Block) Expression() string {
	if b.rewrittenSet {
		return b.rewrittenExpression
	}
	return b.RawExpression
}

var (
	definedCallRegex   = regexp.MustCompile(`defined\s*\(\s*([A-Za-z_][A-Za-z0-9_]*)\s*\)`)
	definedBareRegex   = regexp.MustCompile(`defined\s+([A-Za-z_][A-Za-z0-9_]*)`)
	identifierRegex    = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
)

// LateConstructor resolves defined(X)/!defined(X) to bare X/!X and
// rewrites macro-defined identifiers to their replacement symbol, then
// caches the result. Must be called once per block after the tree is
// built, per spec.md §4.D.
func (b *Block) LateConstructor() {
	if b.rewrittenSet {
		return
	}
	exp := b.RawExpression

	exp = definedCallRegex.ReplaceAllString(exp, "$1")
	exp = definedBareRegex.ReplaceAllString(exp, "$1")

	if b.File != nil {
		for _, def := range b.File.Defines() {
			if def.DefinedSymbol == "" || def.ReplacementSymbol == "" {
				continue
			}
			exp = replaceIdentifier(exp, def.DefinedSymbol, def.ReplacementSymbol)
		}
	}

	b.rewrittenExpression = exp
	b.rewrittenSet = true
}

// replaceIdentifier substitutes whole-word occurrences of name with
// replacement, leaving substrings that merely contain name untouched.
func replaceIdentifier(exp, name, replacement string) string {
	return identifierRegex.ReplaceAllStringFunc(exp, func(tok string) string {
		if tok == name {
			return replacement
		}
		return tok
	})
}

// Siblings walks Previous back to the first sibling in the current
// #if/#elif/#else chain, in encounter order (earliest first).
func (b *Block) Siblings() []*Block {
	var chain []*Block
	for cur := b.Previous; cur != nil; cur = cur.Previous {
		chain = append(chain, cur)
	}
	// reverse to encounter order
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// String renders a compact debugging form, "B3[If]@12:1".
func (b *Block) String() string {
	return fmt.Sprintf("%s[%s]@%d:%d", b.Name, b.Kind, b.LineStart, b.ColStart)
}

// nextBlockIndex assigns the insertion-order integer used to build
// B<n> names.
func nextBlockIndex(f *File) int {
	n := len(f.flat)
	return n
}

// newBlock allocates and registers a new Block under f, with the given
// parent/previous relationship. The caller is responsible for appending
// it to the parent's Children.
func newBlock(f *File, kind Kind, parent, previous *Block) *Block {
	idx := nextBlockIndex(f)
	name := fmt.Sprintf("%s%d", symbol.BlockPrefix, idx)
	if idx == 0 {
		name = RootName
	}
	b := &Block{
		Name:     name,
		Kind:     kind,
		Parent:   parent,
		Previous: previous,
		File:     f,
	}
	f.flat = append(f.flat, b)
	return b
}
