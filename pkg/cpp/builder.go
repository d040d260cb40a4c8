package cpp

import (
	"fmt"

	"github.com/undertaker-go/blockdefect/pkg/block"
)

// Builder implements Visitor by driving a pkg/block.File from a
// directive stream, the concrete wiring spec.md §6 describes as "the
// core consumes the visitor's linear stream and builds the tree".
type Builder struct {
	opts  block.Options
	file  *block.File
	stack []*block.Block
}

// NewBuilder returns a Builder that will construct a fresh block.File
// per VisitFile call, using opts for every file it builds.
func NewBuilder(opts block.Options) *Builder {
	return &Builder{opts: opts}
}

// VisitFile implements Visitor.
func (b *Builder) VisitFile(path string) {
	b.file = block.NewFile(path, b.opts)
	b.stack = []*block.Block{b.file.Root}
}

// VisitDirective implements Visitor, translating one directive into the
// matching block.File builder call. b.stack mirrors block.File's own
// open-block stack (block.File does not expose it directly) so that
// currentBlock can attribute a #define/#undef to the block it actually
// occurs in, matching ConditionalBlock::addDefine in the original
// implementation rather than CppFile's file-wide define table.
func (b *Builder) VisitDirective(d Directive) {
	if b.file == nil {
		return
	}
	switch d.Kind {
	case If:
		b.push(b.file.OpenIf(d.Expression, false, d.Line, d.Col))
	case Ifdef:
		b.push(b.file.OpenIf(fmt.Sprintf("defined(%s)", d.Expression), false, d.Line, d.Col))
	case Ifndef:
		b.push(b.file.OpenIf(fmt.Sprintf("!defined(%s)", d.Expression), true, d.Line, d.Col))
	case Elif:
		b.pop()
		b.push(b.file.OpenElseIf(d.Expression, d.Line, d.Col))
	case Else:
		b.pop()
		b.push(b.file.OpenElse(d.Line, d.Col))
	case Endif:
		b.file.CloseIf(d.Line, d.Col)
		b.pop()
	case DefineConstant:
		b.file.AddDefine(d.Expression, d.Replacement, d.Line, b.currentBlock())
	case Undef:
		b.file.AddUndef(d.Expression, d.Line, b.currentBlock())
	}
}

func (b *Builder) push(blk *block.Block) {
	b.stack = append(b.stack, blk)
}

// pop closes the innermost open block, leaving the root block on the
// stack so currentBlock always has something to return.
func (b *Builder) pop() {
	if len(b.stack) > 1 {
		b.stack = b.stack[:len(b.stack)-1]
	}
}

// currentBlock returns the innermost block open at the point of a
// directive, used to scope a macro define/undef to it.
func (b *Builder) currentBlock() *block.Block {
	if len(b.stack) == 0 {
		if b.file != nil {
			return b.file.Root
		}
		return nil
	}
	return b.stack[len(b.stack)-1]
}

// Done implements Visitor by running LateConstructor and
// DecisionCoverage over the finished tree, per spec.md §4.D.
func (b *Builder) Done() {
	if b.file == nil {
		return
	}
	b.file.LateConstructAll()
	b.file.DecisionCoverage()
}

// File returns the block.File built by the most recent VisitFile/Done
// cycle.
func (b *Builder) File() *block.File {
	return b.file
}
