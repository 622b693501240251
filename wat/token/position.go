package token

import (
	"fmt"
	"sort"
)

// Position is a 1-based line and column (in bytes) for a byte offset.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// LineIndex maps byte offsets to positions.
type LineIndex struct {
	starts []int
	size   int
}

// NewLineIndex records the start offset of every line in src.
func NewLineIndex(src string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{starts: starts, size: len(src)}
}

// Position converts offset, clamped to the source, into a line and column.
func (li *LineIndex) Position(offset int) Position {
	offset = max(0, min(offset, li.size))
	line := sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > offset }) - 1
	return Position{
		Offset: offset,
		Line:   line + 1,
		Column: offset - li.starts[line] + 1,
	}
}

// Lines returns the number of lines.
func (li *LineIndex) Lines() int {
	return len(li.starts)
}

// Span is a half-open byte range [Start, End).
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered.
func (s Span) Len() int {
	return s.End - s.Start
}

// Contains reports whether o lies entirely within s.
func (s Span) Contains(o Span) bool {
	return s.Start <= o.Start && o.End <= s.End
}

func (s Span) String() string {
	return fmt.Sprintf("[%d, %d)", s.Start, s.End)
}
