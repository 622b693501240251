package syntax

// Handlers maps a node kind to the function run when the walk reaches a node of
// that kind. Returning false skips the node's children.
type Handlers map[Kind]func(Ref) bool

// Walk visits r and its descendants in document order, calling the handler
// registered for each node's kind. Nodes without a handler are descended into.
func Walk(r Ref, h Handlers) {
	if fn, ok := h[r.node.kind]; ok && !fn(r) {
		return
	}
	for _, c := range r.Children() {
		if c.node.kind == KindToken && h[KindToken] == nil {
			continue
		}
		Walk(c, h)
	}
}

// Inspect calls fn for r and every descendant in document order. If fn returns
// false the children of that node are skipped.
func Inspect(r Ref, fn func(Ref) bool) {
	if !fn(r) {
		return
	}
	for _, c := range r.Children() {
		Inspect(c, fn)
	}
}

// Find returns every descendant of r (r included) of the given kind.
func Find(r Ref, kind Kind) []Ref {
	var out []Ref
	Inspect(r, func(n Ref) bool {
		if n.node.kind == kind {
			out = append(out, n)
		}
		return n.node.kind != KindToken
	})
	return out
}
