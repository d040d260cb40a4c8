// Package codeformula builds the pure-code propositional formula for a
// conditional block (spec component E): the conjunction of its own
// If/ElseIf/Else/Dummy constraint, its parent-implication constraint, the
// constraints of every block reachable through macro references in its
// expression, and the file predicate tying the file's root block to a
// FILE_<name> symbol. Grounded on
// ConditionalBlock::getCodeConstraints/getConstraintsHelper in the
// original undertaker implementation.
package codeformula

import (
	"fmt"

	"github.com/undertaker-go/blockdefect/internal/symbol"
	"github.com/undertaker-go/blockdefect/pkg/block"
	"github.com/undertaker-go/blockdefect/pkg/build"
	"github.com/undertaker-go/blockdefect/pkg/formula"
)

// FileSymbol renders the FILE_<name> constant undertaker uses to tie a
// file's root block to a per-file boolean.
func FileSymbol(path string) string {
	return symbol.FileSymbol(path)
}

// CodeConstraints implements spec.md §4.E: it appends every code-derived
// formula fragment for b (and everything reachable from b through macro
// references) into joiner, guarding against re-visiting the same block
// twice via visited.
func CodeConstraints(b *block.Block, joiner *formula.Joiner, visited map[string]struct{}) {
	if visited == nil {
		visited = make(map[string]struct{})
	}
	codeConstraintsHelper(b, joiner, visited)
}

func codeConstraintsHelper(b *block.Block, j *formula.Joiner, visited map[string]struct{}) {
	if _, seen := visited[b.Name]; seen {
		return
	}
	visited[b.Name] = struct{}{}

	j.Append(ownConstraint(b))
	j.Append(parentConstraint(b))

	for _, ref := range symbol.Tokenize(b.Expression()) {
		refBlock := resolveBlockReference(b, ref)
		if refBlock != nil && refBlock != b {
			codeConstraintsHelper(refBlock, j, visited)
		}
	}

	// Step 4's "and from every macro used": a macro reference is already
	// resolved to its replacement symbol by LateConstructor, so the macro
	// name itself only survives in RawExpression. For each one, emit the
	// guard formula from CppDefine's defined_in blocks before recursing
	// into them, per spec.md §3's "multiple definitions across blocks
	// produce a disjunction of their guard conditions".
	for _, ref := range symbol.Tokenize(b.RawExpression) {
		guardBlocks := macroDefineBlocks(b, ref)
		if len(guardBlocks) == 0 {
			continue
		}
		j.Append(macroGuardConstraint(b, guardBlocks))
		for _, gb := range guardBlocks {
			codeConstraintsHelper(gb, j, visited)
		}
	}

	// An ElseIf/Else's own constraint names its previous siblings (the
	// negated-chain term), so their defining constraints must also be
	// gathered or those names remain unconstrained free variables. Same
	// reasoning for the parent constraint just emitted above: matches
	// spec.md §8's invariant that codeConstraints(b) references b's full
	// ancestor chain, not just the immediate parent's bare name. The walk
	// stops one short of the root, exactly where parentConstraint itself
	// stops, so the always-true root's own constraint (and the file
	// predicate step 5 only fires for it) never leaks into a non-root
	// block's formula.
	for _, sib := range b.Siblings() {
		codeConstraintsHelper(sib, j, visited)
	}
	if b.Parent != nil && !b.Parent.IsRoot() {
		codeConstraintsHelper(b.Parent, j, visited)
	}

	// Step 5 of spec.md §4.E only fires when the recursion actually
	// reaches the root: the file predicate ties B00 to the file's
	// reachability symbol, and must stay absent from a non-root block's
	// own formula so that the build-system step (§4.G step 4) is the
	// first place a file-selection precondition can enter the ladder.
	if b.File != nil && b.IsRoot() {
		j.Append(fmt.Sprintf("(%s <-> %s)", b.Name, FileSymbol(b.File.Path)))
	}
}

// ownConstraint renders step 2 of spec.md §4.E.
func ownConstraint(b *block.Block) string {
	switch b.Kind {
	case block.KindIf:
		return fmt.Sprintf("(%s <-> (%s))", b.Name, b.Expression())
	case block.KindElseIf:
		return fmt.Sprintf("(%s <-> ((%s) && %s))", b.Name, b.Expression(), negatedSiblingChain(b))
	case block.KindElse:
		return fmt.Sprintf("(%s <-> (%s))", b.Name, negatedSiblingChain(b))
	case block.KindDummy:
		return fmt.Sprintf("(%s <-> 1)", b.Name)
	default:
		return fmt.Sprintf("(%s <-> 0)", b.Name)
	}
}

// negatedSiblingChain renders "!prev && !prev.prev && ...", oldest first,
// matching the order the original implementation walks the linked list.
func negatedSiblingChain(b *block.Block) string {
	sib := b.Siblings()
	if len(sib) == 0 {
		return "1"
	}
	j := formula.New()
	for _, s := range sib {
		j.Append("!" + s.Name)
	}
	return j.Join(" && ")
}

// parentConstraint renders step 3 of spec.md §4.E: (Bi -> parent), or
// nothing if the parent is the always-true root.
func parentConstraint(b *block.Block) string {
	if b.Parent == nil || b.Parent.IsRoot() {
		return ""
	}
	return fmt.Sprintf("(%s -> %s)", b.Name, b.Parent.Name)
}

// BuildCondition implements §4.E's build-system condition: the predicate
// retrieved from provider for f, AND-ed with the file's own arch tag
// (rendered as a FILE_ARCH_<arch> guard symbol) when one is set. Returns "" if
// the provider has no entry for f and f carries no arch tag, meaning the
// build-system step contributes nothing (vacuously true).
func BuildCondition(f *block.File, provider build.ConditionProvider) string {
	j := formula.New()
	if provider != nil {
		if cond, ok := provider.Condition(f.Path); ok {
			j.Append(cond)
		}
	}
	if f.Arch != "" {
		j.Append(symbol.FileSymbol("ARCH_" + f.Arch))
	}
	if j.Len() == 0 {
		return ""
	}
	return j.Join(" && ")
}

// resolveBlockReference maps a token found in b's expression to the block
// it refers to, if the token is a macro standing in for another block's
// name rather than a plain configuration option. Mirrors the
// define-table walk in ConditionalBlock::getConstraintsHelper: a token
// resolves to a block when it is block-shaped (B<n>) and equals the name
// of some block in b's file.
func resolveBlockReference(b *block.Block, token string) *block.Block {
	if b.File == nil {
		return nil
	}
	if symbol.Classify(token) != symbol.Block {
		return nil
	}
	for _, other := range b.File.Blocks() {
		if other.Name == token {
			return other
		}
	}
	return nil
}

// macroDefineBlocks returns the deduplicated, encounter-order set of
// blocks in which name was #define'd, mirroring CppDefine::defined_in. A
// definition scoped to the file's root block is unconditional, which
// makes the macro's guard vacuously true; macroDefineBlocks then reports
// no blocks at all, since nothing needs to be emitted for an
// always-satisfied guard.
func macroDefineBlocks(b *block.Block, name string) []*block.Block {
	if b.File == nil {
		return nil
	}
	var blocks []*block.Block
	seen := make(map[string]struct{})
	for _, d := range b.File.Defines() {
		if d.Undef || d.DefinedSymbol != name {
			continue
		}
		if d.Block == nil || d.Block.IsRoot() {
			return nil
		}
		if _, ok := seen[d.Block.Name]; ok {
			continue
		}
		seen[d.Block.Name] = struct{}{}
		blocks = append(blocks, d.Block)
	}
	return blocks
}

// macroGuardConstraint renders "using this macro from b requires that one
// of its definitions was reachable", the disjunction spec.md §3 names for
// a macro defined in more than one block.
func macroGuardConstraint(b *block.Block, guardBlocks []*block.Block) string {
	dis := formula.New()
	for _, gb := range guardBlocks {
		dis.Append(gb.Name)
	}
	return fmt.Sprintf("(%s -> (%s))", b.Name, dis.Join(" || "))
}
