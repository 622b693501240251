package syntax

import "github.com/wippyai/wat-engine/wat/token"

// Ref is a node seen at a position in a particular tree. The zero Ref is
// invalid; check Valid before use when a lookup may fail.
type Ref struct {
	node   *Node
	parent *Ref
	start  int
}

// RefAt positions n at the given absolute offset with no parent.
func RefAt(n *Node, start int) Ref {
	return Ref{node: n, start: start}
}

func (r Ref) Valid() bool  { return r.node != nil }
func (r Ref) Node() *Node  { return r.node }
func (r Ref) Kind() Kind   { return r.node.kind }
func (r Ref) Space() Space { return r.node.space }
func (r Ref) Start() int   { return r.start }
func (r Ref) End() int     { return r.start + r.node.width }
func (r Ref) Text() string { return r.node.Text() }

// Span returns the absolute byte range of the node.
func (r Ref) Span() token.Span {
	return token.Span{Start: r.start, End: r.start + r.node.width}
}

// Parent returns the enclosing node, if any.
func (r Ref) Parent() (Ref, bool) {
	if r.parent == nil {
		return Ref{}, false
	}
	return *r.parent, true
}

// Children returns positioned refs for every child, trivia included.
func (r Ref) Children() []Ref {
	if len(r.node.children) == 0 {
		return nil
	}
	self := r
	out := make([]Ref, len(r.node.children))
	off := r.start
	for i, c := range r.node.children {
		out[i] = Ref{node: c, parent: &self, start: off}
		off += c.width
	}
	return out
}

// ChildrenOf returns the direct children of the given kind, in document order.
func (r Ref) ChildrenOf(kind Kind) []Ref {
	if len(r.node.ChildrenOf(kind)) == 0 {
		return nil
	}
	var out []Ref
	for _, c := range r.Children() {
		if c.node.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// FirstChildOf returns the first direct child of the given kind.
func (r Ref) FirstChildOf(kind Kind) (Ref, bool) {
	if r.node.FirstChildOf(kind) == nil {
		return Ref{}, false
	}
	off := r.start
	self := r
	for _, c := range r.node.children {
		if c.kind == kind {
			return Ref{node: c, parent: &self, start: off}, true
		}
		off += c.width
	}
	return Ref{}, false
}

// Ancestor returns the nearest enclosing node of the given kind.
func (r Ref) Ancestor(kind Kind) (Ref, bool) {
	for p := r.parent; p != nil; p = p.parent {
		if p.node.kind == kind {
			return *p, true
		}
	}
	return Ref{}, false
}

// Leaves returns the significant leaves directly under r, skipping trivia.
func (r Ref) Leaves() []Ref {
	var out []Ref
	for _, c := range r.Children() {
		if c.node.kind == KindToken && !c.node.tok.IsTrivia() {
			out = append(out, c)
		}
	}
	return out
}

// Significant returns the non-trivia children.
func (r Ref) Significant() []Ref {
	var out []Ref
	for _, c := range r.Children() {
		if !c.node.IsTrivia() {
			out = append(out, c)
		}
	}
	return out
}

// Keyword returns the leading keyword of the node; see Node.Keyword.
func (r Ref) Keyword() string { return r.node.Keyword() }

// Unwrap looks through an Error node wrapping an unterminated form.
func (r Ref) Unwrap() Ref {
	inner := r.node.Unwrap()
	if inner == r.node {
		return r
	}
	for {
		found := false
		for _, c := range r.Children() {
			if c.node.kind != KindToken {
				r = c
				found = true
				break
			}
		}
		if !found || r.node == inner {
			return r
		}
	}
}

// Path returns the chain of refs from the root down to r.
func (r Ref) Path() []Ref {
	var rev []Ref
	for p := &r; p != nil; p = p.parent {
		rev = append(rev, *p)
	}
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}
