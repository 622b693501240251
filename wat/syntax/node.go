// Package syntax defines the concrete syntax tree for WebAssembly text.
//
// Nodes are immutable and position-independent: a node stores only its width
// and its children, so an unchanged subtree can be shared between successive
// trees of an edited document. Absolute positions are computed on the way down
// by Ref cursors. Every byte of the source belongs to exactly one leaf, trivia
// included, so concatenating the leaves reproduces the input.
package syntax

import (
	"strings"
	"sync/atomic"

	"github.com/wippyai/wat-engine/wat/token"
)

// Node is one CST node. Leaves (KindToken) hold a token; composite nodes hold
// children. Error nodes may be leaves of zero width when they mark something
// missing.
type Node struct {
	children []*Node
	text     string
	msg      string
	width    int
	kind     Kind
	space    Space
	tok      token.Kind

	byKind atomic.Pointer[[kindCount][]*Node]
}

// NewLeaf wraps a token.
func NewLeaf(t token.Token) *Node {
	return &Node{kind: KindToken, tok: t.Kind, text: t.Text, msg: t.Err, width: len(t.Text)}
}

// NewNode builds a composite node. The width is the sum of the children's.
func NewNode(kind Kind, children ...*Node) *Node {
	n := &Node{kind: kind, children: children}
	for _, c := range children {
		n.width += c.width
	}
	return n
}

// NewSpaced builds a Name or IdxRef node bound to an index space.
func NewSpaced(kind Kind, space Space, children ...*Node) *Node {
	n := NewNode(kind, children...)
	n.space = space
	return n
}

// NewError builds an Error node carrying msg. With no children it marks a
// missing element at a single point.
func NewError(msg string, children ...*Node) *Node {
	n := NewNode(KindError, children...)
	n.msg = msg
	return n
}

func (n *Node) Kind() Kind   { return n.kind }
func (n *Node) Space() Space { return n.space }
func (n *Node) Width() int   { return n.width }

// IsLeaf reports whether n wraps a token.
func (n *Node) IsLeaf() bool { return n.kind == KindToken }

// TokenKind returns the token kind of a leaf, or token.EOF for composite nodes.
func (n *Node) TokenKind() token.Kind {
	if n.kind != KindToken {
		return token.EOF
	}
	return n.tok
}

// IsTrivia reports whether n is a whitespace or comment leaf.
func (n *Node) IsTrivia() bool {
	return n.kind == KindToken && n.tok.IsTrivia()
}

// Message returns the diagnostic carried by an Error node or a malformed leaf.
func (n *Node) Message() string { return n.msg }

// Children returns the child list. Callers must not modify it.
func (n *Node) Children() []*Node { return n.children }

// Len returns the number of children.
func (n *Node) Len() int { return len(n.children) }

// Child returns the i-th child, or nil when out of range.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// Text returns the source text covered by n.
func (n *Node) Text() string {
	if n.kind == KindToken {
		return n.text
	}
	var b strings.Builder
	b.Grow(n.width)
	n.writeText(&b)
	return b.String()
}

func (n *Node) writeText(b *strings.Builder) {
	if n.kind == KindToken {
		b.WriteString(n.text)
		return
	}
	for _, c := range n.children {
		c.writeText(b)
	}
}

// ChildrenOf returns the direct children of the given kind in document order.
// The result is computed once per node and shared; callers must not modify it.
// It is empty, never an error, when there are none.
func (n *Node) ChildrenOf(kind Kind) []*Node {
	if kind >= kindCount {
		return nil
	}
	idx := n.byKind.Load()
	if idx == nil {
		var built [kindCount][]*Node
		for _, c := range n.children {
			built[c.kind] = append(built[c.kind], c)
		}
		// A concurrent reader may publish an identical index first; either
		// copy is valid.
		n.byKind.CompareAndSwap(nil, &built)
		idx = n.byKind.Load()
	}
	return idx[kind]
}

// FirstChildOf returns the first direct child of the given kind, or nil.
func (n *Node) FirstChildOf(kind Kind) *Node {
	if s := n.ChildrenOf(kind); len(s) > 0 {
		return s[0]
	}
	return nil
}

// FirstLeaf returns the first non-trivia leaf under n, or nil.
func (n *Node) FirstLeaf() *Node {
	if n.kind == KindToken {
		if n.tok.IsTrivia() {
			return nil
		}
		return n
	}
	for _, c := range n.children {
		if l := c.FirstLeaf(); l != nil {
			return l
		}
	}
	return nil
}

// LastLeaf returns the last non-trivia leaf under n, or nil.
func (n *Node) LastLeaf() *Node {
	if n.kind == KindToken {
		if n.tok.IsTrivia() {
			return nil
		}
		return n
	}
	for i := len(n.children) - 1; i >= 0; i-- {
		if l := n.children[i].LastLeaf(); l != nil {
			return l
		}
	}
	return nil
}

// Keyword returns the leading keyword of a form or instruction: the first
// keyword leaf among the direct children, or "" if the node has none.
func (n *Node) Keyword() string {
	for _, c := range n.children {
		if c.kind != KindToken {
			continue
		}
		switch c.tok {
		case token.Keyword:
			return c.text
		case token.LParen:
			continue
		}
		if !c.tok.IsTrivia() {
			return ""
		}
	}
	return ""
}

// IsForm reports whether n is a complete parenthesized form: it starts with
// '(', ends with ')' and is not an Error node.
func (n *Node) IsForm() bool {
	if n.kind == KindError || n.kind == KindToken || len(n.children) == 0 {
		return false
	}
	first, last := n.children[0], n.children[len(n.children)-1]
	return first.kind == KindToken && first.tok == token.LParen &&
		last.kind == KindToken && last.tok == token.RParen
}

// Unwrap returns the form inside an Error node that wraps an unterminated
// form, or n itself.
func (n *Node) Unwrap() *Node {
	for n.kind == KindError {
		var inner *Node
		for _, c := range n.children {
			if c.kind != KindToken {
				if inner != nil {
					return n
				}
				inner = c
			}
		}
		if inner == nil {
			return n
		}
		n = inner
	}
	return n
}

// Leaves returns the significant leaves directly under n, skipping trivia.
func (n *Node) Leaves() []*Node {
	var out []*Node
	for _, c := range n.children {
		if c.kind == KindToken && !c.tok.IsTrivia() {
			out = append(out, c)
		}
	}
	return out
}

// WithChild returns a copy of n whose i-th child is replaced by c. n is left
// untouched.
func (n *Node) WithChild(i int, c *Node) *Node {
	children := make([]*Node, len(n.children))
	copy(children, n.children)
	children[i] = c
	m := NewNode(n.kind, children...)
	m.space = n.space
	m.msg = n.msg
	return m
}

// Equal reports whether a and b are structurally identical: same kinds,
// spaces, messages, widths and leaf text throughout.
func Equal(a, b *Node) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.kind != b.kind || a.space != b.space || a.width != b.width || a.msg != b.msg ||
		a.tok != b.tok || a.text != b.text || len(a.children) != len(b.children) {
		return false
	}
	for i := range a.children {
		if !Equal(a.children[i], b.children[i]) {
			return false
		}
	}
	return true
}

// Dump renders the tree shape as an S-expression of kinds, with leaf text
// quoted and trivia omitted. Useful in tests and debugging output.
func Dump(n *Node) string {
	var b strings.Builder
	dump(&b, n)
	return b.String()
}

func dump(b *strings.Builder, n *Node) {
	if n.kind == KindToken {
		b.WriteString(quote(n.text))
		return
	}
	b.WriteString(n.kind.String())
	if n.space != SpaceNone {
		b.WriteString(":" + n.space.String())
	}
	b.WriteByte('[')
	first := true
	for _, c := range n.children {
		if c.IsTrivia() {
			continue
		}
		if !first {
			b.WriteByte(' ')
		}
		first = false
		dump(b, c)
	}
	b.WriteByte(']')
}

func quote(s string) string {
	if strings.ContainsAny(s, " \t\n\"") {
		return "`" + s + "`"
	}
	return s
}
