package block

// Define is one #define/#undef entry recorded while walking a file,
// grounded on CppDefine in the original undertaker implementation. It
// captures enough to let LateConstructor rewrite "defined(X)" checks and
// bare macro references into the symbol the classifier should reason
// about instead.
type Define struct {
	// DefinedSymbol is the macro name as written in source, e.g. "DEBUG".
	DefinedSymbol string
	// ReplacementSymbol is what occurrences of DefinedSymbol should be
	// rewritten to when building a block's formula. Typically the same
	// name (macros usually stand for themselves in the propositional
	// encoding); a build-system-provided macro may instead point at a
	// CONFIG_ option it mirrors.
	ReplacementSymbol string
	// Undef marks a #undef entry. LateConstructor does not apply #undef
	// entries, so an earlier #define of the same name still rewrites
	// references that occur after the #undef.
	Undef bool

	Line int
	// Block is the block active at the point of definition.
	Block *Block
}

// AddDefine records a new macro definition scoped to b's file, mirroring
// CppFile::addDefine. It also appends d to b's own Defines list, mirroring
// ConditionalBlock::addDefine: b is the block active at the point of
// definition, per the CppDefine::defined_in deque in the original.
func (f *File) AddDefine(symbolName, replacement string, line int, b *Block) *Define {
	d := &Define{
		DefinedSymbol:     symbolName,
		ReplacementSymbol: replacement,
		Line:              line,
		Block:             b,
	}
	f.defines = append(f.defines, d)
	if b != nil {
		b.Defines = append(b.Defines, d)
	}
	return d
}

// AddUndef records a #undef, mirroring CppFile::addDefine(name, "", true).
func (f *File) AddUndef(symbolName string, line int, b *Block) *Define {
	d := &Define{
		DefinedSymbol: symbolName,
		Undef:         true,
		Line:          line,
		Block:         b,
	}
	f.defines = append(f.defines, d)
	if b != nil {
		b.Defines = append(b.Defines, d)
	}
	return d
}
