package syntax

import "github.com/wippyai/wat-engine/wat/token"

// Problem is a syntax error found in the tree.
type Problem struct {
	Message string
	Span    token.Span
}

// Errors collects the syntax errors under r in document order: one per Error
// node and one per malformed token. They are read off the tree rather than
// recorded by the parser, so a reused subtree brings its errors along.
func Errors(r Ref) []Problem {
	var out []Problem
	Inspect(r, func(n Ref) bool {
		switch {
		case n.node.kind == KindError && n.node.msg != "":
			out = append(out, Problem{Message: n.node.msg, Span: n.Span()})
		case n.node.kind == KindToken && n.node.msg != "":
			out = append(out, Problem{Message: n.node.msg, Span: n.Span()})
		}
		return true
	})
	return out
}

// HasErrors reports whether any Error node or malformed token exists under n.
func HasErrors(n *Node) bool {
	if n.msg != "" || n.kind == KindError {
		return true
	}
	for _, c := range n.children {
		if HasErrors(c) {
			return true
		}
	}
	return false
}
