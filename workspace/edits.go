package workspace

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/wippyai/wat-engine/wat/syntax"
)

// Edits returns line-granular edits that turn old into new. They are ordered
// from the end of the text backwards, so applying them one after another
// keeps the offsets of the remaining edits valid.
func Edits(old, new string) []syntax.Edit {
	if old == new {
		return nil
	}
	a, b := splitLines(old), splitLines(new)
	aOff, bOff := offsets(a), offsets(b)

	var edits []syntax.Edit
	for _, op := range difflib.NewMatcher(a, b).GetOpCodes() {
		if op.Tag == 'e' {
			continue
		}
		edits = append(edits, syntax.Edit{
			Start:   aOff[op.I1],
			End:     aOff[op.I2],
			NewText: new[bOff[op.J1]:bOff[op.J2]],
		})
	}
	for i, j := 0, len(edits)-1; i < j; i, j = i+1, j-1 {
		edits[i], edits[j] = edits[j], edits[i]
	}
	return edits
}

// splitLines splits s after each newline. Unlike difflib.SplitLines it does
// not add a newline to the last line, so the pieces join back to s.
func splitLines(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// offsets returns the start offset of every line plus the total length.
func offsets(lines []string) []int {
	out := make([]int, len(lines)+1)
	for i, l := range lines {
		out[i+1] = out[i] + len(l)
	}
	return out
}
