package block

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Options controls block-tree construction and rendering, spec.md §11
// "supplemented features".
type Options struct {
	// VerboseBlockNames makes block names carry the source filename
	// ("path/to/file.c:B3") instead of the bare "B3", useful when
	// reporting defects across many files at once. Mirrors
	// CppFile::useBlockWithFilename in the original implementation.
	VerboseBlockNames bool
}

// File is the conditional-block tree for one source file, plus its
// macro-define table, grounded on CppFile in the original undertaker
// implementation.
type File struct {
	Path string
	Opts Options
	// Arch is the file's architecture tag ("" or e.g. "x86"), used by the
	// classifier's global-escalation rule: an architecture-specific file
	// is never cross-checked against other archs' models.
	Arch string

	Root *Block
	flat []*Block

	defines []*Define

	// stack tracks the currently open #if/#elif/#else chain during tree
	// construction; stack[len-1] is the innermost open block.
	stack []*Block
}

// NewFile creates an empty tree rooted at a synthetic, always-true block
// named B00, matching spec.md §3's description of the root block.
func NewFile(path string, opts Options) *File {
	f := &File{Path: path, Opts: opts}
	f.Root = newBlock(f, KindIf, nil, nil)
	f.Root.RawExpression = "1"
	f.Root.LateConstructor()
	f.stack = []*Block{f.Root}
	return f
}

// current returns the innermost currently open block.
func (f *File) current() *Block {
	return f.stack[len(f.stack)-1]
}

// OpenIf starts a new #if (or #ifdef/#ifndef, negated pre-rewritten into
// expr by the caller) region nested under the currently open block.
func (f *File) OpenIf(expr string, negated bool, line, col int) *Block {
	parent := f.current()
	b := newBlock(f, KindIf, parent, nil)
	b.RawExpression = expr
	b.Negated = negated
	b.LineStart, b.ColStart = line, col
	parent.Children = append(parent.Children, b)
	f.stack = append(f.stack, b)
	return b
}

// OpenElseIf closes the previous sibling in the current #if chain (it
// keeps its own LineEnd) and opens a new ElseIf block sharing the
// chain's parent, chained via Previous.
func (f *File) OpenElseIf(expr string, line, col int) *Block {
	prev := f.closeCurrent(line, col)
	parent := prev.Parent
	b := newBlock(f, KindElseIf, parent, prev)
	b.RawExpression = expr
	b.LineStart, b.ColStart = line, col
	parent.Children = append(parent.Children, b)
	f.stack[len(f.stack)-1] = b
	return b
}

// OpenElse behaves like OpenElseIf but for a terminal #else with no
// expression of its own.
func (f *File) OpenElse(line, col int) *Block {
	prev := f.closeCurrent(line, col)
	parent := prev.Parent
	b := newBlock(f, KindElse, parent, prev)
	b.LineStart, b.ColStart = line, col
	parent.Children = append(parent.Children, b)
	f.stack[len(f.stack)-1] = b
	return b
}

// CloseIf ends the #endif chain currently open, popping the chain's open
// block (the last sibling, which replaced its predecessors on the stack).
func (f *File) CloseIf(line, col int) {
	f.closeCurrent(line, col)
	if len(f.stack) > 1 {
		f.stack = f.stack[:len(f.stack)-1]
	}
}

func (f *File) closeCurrent(line, col int) *Block {
	b := f.current()
	b.LineEnd, b.ColEnd = line, col
	return b
}

// Blocks returns every block in the tree in insertion order, root
// first.
func (f *File) Blocks() []*Block {
	out := make([]*Block, len(f.flat))
	copy(out, f.flat)
	return out
}

// Defines returns the file's macro-define table in encounter order.
func (f *File) Defines() []*Define {
	out := make([]*Define, len(f.defines))
	copy(out, f.defines)
	return out
}

// LateConstructAll runs LateConstructor over every block in the tree,
// once the file has been fully parsed and every #define is known.
func (f *File) LateConstructAll() {
	for _, b := range f.flat {
		b.LateConstructor()
	}
}

// DisplayName renders b.Name per f.Opts.VerboseBlockNames.
func (f *File) DisplayName(b *Block) string {
	if f.Opts.VerboseBlockNames {
		return fmt.Sprintf("%s:%s", f.Path, b.Name)
	}
	return b.Name
}

// GetDefineChecker returns a predicate reporting whether name is NOT one
// of the file's local #define'd macros, i.e. it is eligible for
// model-symbol lookup. Matches CppFile::defineChecker in the original.
func (f *File) GetDefineChecker() func(name string) bool {
	locals := make(map[string]struct{}, len(f.defines))
	for _, d := range f.defines {
		if !d.Undef {
			locals[d.DefinedSymbol] = struct{}{}
		}
	}
	return func(name string) bool {
		_, isLocal := locals[name]
		return !isLocal
	}
}

// BlockAt returns the innermost block whose source range contains
// (line, col), or the root block if none more specific matches. This is
// the supplemented getBlockAtPosition feature from spec.md §11.
func (f *File) BlockAt(line, col int) *Block {
	best := f.Root
	bestDepth := -1
	for _, b := range f.flat {
		if b.IsRoot() {
			continue
		}
		if !blockContains(b, line, col) {
			continue
		}
		depth := blockDepth(b)
		if depth > bestDepth {
			best = b
			bestDepth = depth
		}
	}
	return best
}

func blockContains(b *Block, line, col int) bool {
	if line < b.LineStart || (b.LineEnd != 0 && line > b.LineEnd) {
		return false
	}
	if line == b.LineStart && col < b.ColStart {
		return false
	}
	if b.LineEnd != 0 && line == b.LineEnd && col > b.ColEnd {
		return false
	}
	return true
}

func blockDepth(b *Block) int {
	depth := 0
	for cur := b.Parent; cur != nil; cur = cur.Parent {
		depth++
	}
	return depth
}

// Dump pretty-prints the block tree, indented by nesting depth, matching
// the shape of printConditionalBlocks in the original implementation.
// This is the supplemented pretty-printing feature from spec.md §11.
func (f *File) Dump(w io.Writer) {
	var walk func(b *Block, depth int)
	walk = func(b *Block, depth int) {
		indent := strings.Repeat("  ", depth)
		expr := b.Expression()
		if expr == "" {
			fmt.Fprintf(w, "%s%s [%s] (%d:%d-%d:%d)\n", indent, f.DisplayName(b), b.Kind, b.LineStart, b.ColStart, b.LineEnd, b.ColEnd)
		} else {
			fmt.Fprintf(w, "%s%s [%s] %q (%d:%d-%d:%d)\n", indent, f.DisplayName(b), b.Kind, expr, b.LineStart, b.ColStart, b.LineEnd, b.ColEnd)
		}
		children := make([]*Block, len(b.Children))
		copy(children, b.Children)
		sort.SliceStable(children, func(i, j int) bool {
			return children[i].LineStart < children[j].LineStart
		})
		for _, c := range children {
			walk(c, depth+1)
		}
	}
	walk(f.Root, 0)
}
