package format

import (
	"strings"

	"github.com/undertaker-go/blockdefect/pkg/block"
)

// CommentMarker is the marker Commented prefixes onto every source line
// that falls inside a disabled block's body.
const CommentMarker = "// "

// Commented writes back source with every line inside a dead block's
// body prefixed by CommentMarker, per spec.md §4.H. The directive lines
// that open and close the block (its #if/#elif/#else and matching
// #endif/next-sibling line) are not themselves valid free-standing C
// once commented out of context, so they are blanked instead of
// commented; either way the output keeps exactly as many lines as
// source, so downstream line numbers still line up with the original.
func Commented(source string, dead []*block.Block) string {
	lines := strings.Split(source, "\n")
	disabled := make([]bool, len(lines)+1)
	directive := make([]bool, len(lines)+1)

	for _, b := range dead {
		if b == nil || b.IsRoot() {
			continue
		}
		start, end := b.LineStart, b.LineEnd
		if start <= 0 || end < start {
			continue
		}
		for line := start; line <= end && line < len(disabled); line++ {
			if line == start || line == end {
				directive[line] = true
			} else {
				disabled[line] = true
			}
		}
	}

	for i := range lines {
		lineNo := i + 1
		switch {
		case directive[lineNo]:
			lines[i] = ""
		case disabled[lineNo]:
			lines[i] = CommentMarker + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}
