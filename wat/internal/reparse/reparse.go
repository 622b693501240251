// Package reparse updates a syntax tree after a text edit by re-parsing only
// the smallest enclosing form that can be rebuilt in isolation.
package reparse

import (
	"github.com/wippyai/wat-engine/wat/internal/parser"
	"github.com/wippyai/wat-engine/wat/syntax"
	"github.com/wippyai/wat-engine/wat/token"
)

// Stats describes the work a reparse did.
type Stats struct {
	// Reparsed is the range of the new text that was parsed again.
	Reparsed token.Span
	// Attempts counts the forms tried, the successful one included. A full
	// parse counts as one attempt.
	Attempts int
	// Full is set when the whole document had to be parsed.
	Full bool
}

type step struct {
	node  *syntax.Node
	start int
	index int // position in the parent's children; -1 for the root
}

// Reparse applies edit to the source of old and returns the updated tree. The
// result is structurally equal to parsing the new text from scratch; subtrees
// outside the re-parsed form are shared with old.
func Reparse(old *syntax.Tree, edit syntax.Edit) (*syntax.Tree, Stats, error) {
	src, err := edit.Apply(old.Source())
	if err != nil {
		return nil, Stats{}, err
	}

	path := enclosing(old.RootNode(), edit)
	var stats Stats
	delta := edit.Delta()

	for i := len(path) - 1; i >= 1; i-- {
		cand := path[i]
		if !cand.node.IsForm() {
			continue
		}
		stats.Attempts++
		end := cand.start + cand.node.Width() + delta
		ctx := parser.ContextOf(path[i-1].node)
		n, ok := parser.ParseForm(src[cand.start:end], ctx)
		if !ok || n.Kind() != cand.node.Kind() {
			continue
		}
		stats.Reparsed = token.Span{Start: cand.start, End: end}
		return syntax.NewTree(src, splice(path[:i+1], n)), stats, nil
	}

	stats.Attempts++
	stats.Full = true
	stats.Reparsed = token.Span{Start: 0, End: len(src)}
	return syntax.NewTree(src, parser.Parse(src)), stats, nil
}

// enclosing returns the chain of nodes from the root down to the deepest node
// that strictly contains the edited range: the edit starts after the node's
// first byte and ends before its last.
func enclosing(root *syntax.Node, edit syntax.Edit) []step {
	path := []step{{node: root, start: 0, index: -1}}
	n, start := root, 0
	for {
		off := start
		var next *step
		for i, c := range n.Children() {
			if c.Kind() != syntax.KindToken && off < edit.Start && edit.End < off+c.Width() {
				next = &step{node: c, start: off, index: i}
				break
			}
			off += c.Width()
		}
		if next == nil {
			return path
		}
		path = append(path, *next)
		n, start = next.node, next.start
	}
}

// splice replaces the last node of path with n, copying every ancestor.
func splice(path []step, n *syntax.Node) *syntax.Node {
	for i := len(path) - 1; i >= 1; i-- {
		n = path[i-1].node.WithChild(path[i].index, n)
	}
	return n
}
