package syntax

import (
	"sync"

	"github.com/wippyai/wat-engine/wat/token"
)

// Tree pairs a root node with the source text it was parsed from.
type Tree struct {
	root   *Node
	source string

	linesOnce sync.Once
	lines     *token.LineIndex
}

// NewTree returns a tree for root. root must cover source exactly.
func NewTree(source string, root *Node) *Tree {
	return &Tree{root: root, source: source}
}

// Root returns a ref to the SourceFile node at offset 0.
func (t *Tree) Root() Ref { return RefAt(t.root, 0) }

// RootNode returns the root node itself.
func (t *Tree) RootNode() *Node { return t.root }

// Source returns the text the tree was built from.
func (t *Tree) Source() string { return t.source }

// Position converts a byte offset into a line and column.
func (t *Tree) Position(offset int) token.Position {
	t.linesOnce.Do(func() { t.lines = token.NewLineIndex(t.source) })
	return t.lines.Position(offset)
}

// NodeAt returns the deepest node whose span contains offset. A leaf wins over
// the node that encloses it; at a boundary between two leaves the one starting
// at offset is chosen. Offsets at the end of the source return the last leaf.
func (t *Tree) NodeAt(offset int) Ref {
	r := t.Root()
	if offset >= r.End() {
		offset = r.End() - 1
	}
	if offset < 0 {
		return r
	}
	for {
		var next Ref
		for _, c := range r.Children() {
			if c.node.width == 0 {
				continue
			}
			if c.start <= offset && offset < c.End() {
				next = c
				break
			}
		}
		if !next.Valid() {
			return r
		}
		r = next
	}
}
