package validate

import (
	"github.com/wippyai/wat-engine/wat/diag"
	"github.com/wippyai/wat-engine/wat/internal/opcode"
	"github.com/wippyai/wat-engine/wat/syntax"
	"github.com/wippyai/wat-engine/wat/token"
)

// scope is what a reference can see: the module, the locals of the enclosing
// function and the labels of the enclosing blocks, innermost last.
type scope struct {
	mod    *Module
	locals *IndexSpace
	labels []string
	// inFunc is set inside function bodies, which act as an implicit
	// outermost block.
	inFunc bool
}

func (s *scope) push(label string) *scope {
	next := *s
	next.labels = append(s.labels[:len(s.labels):len(s.labels)], label)
	return &next
}

// check resolves every reference of m.
func (c *checker) check(m *Module) bool {
	for _, f := range m.Fields {
		if c.cancelled() {
			return false
		}
		c.checkField(m, f)
	}
	return true
}

func (c *checker) checkField(m *Module, f syntax.Ref) {
	sc := &scope{mod: m}
	switch f.Kind() {
	case syntax.KindFuncDecl:
		locals, dups := Locals(m, f)
		for _, d := range dups {
			c.report(d.NameSpan, diag.DuplicateDefinition, "duplicate local %s", d.Name)
		}
		sc.locals = locals
		sc.inFunc = true
		c.checkOrder(f)
		c.checkTypeUse(m, f)
	case syntax.KindImportDecl:
		if desc, ok := firstChild(f, syntax.KindImportDesc); ok && desc.Keyword() == "func" {
			c.checkOrder(desc)
			c.checkTypeUse(m, desc)
		}
	case syntax.KindTypeDecl:
		if ft, ok := firstChild(f, syntax.KindFuncType); ok {
			c.checkOrder(ft)
		}
	case syntax.KindExportDecl:
		descs := childrenOf(f, syntax.KindExportDesc)
		if len(descs) != 1 {
			c.report(f.Span(), diag.ArityMismatch, "export takes exactly one descriptor, found %d", len(descs))
		}
	}
	c.visitChildren(f, sc)
}

func (c *checker) visitChildren(r syntax.Ref, sc *scope) {
	for _, ch := range r.Children() {
		if ch.Kind() != syntax.KindToken {
			c.visit(ch, sc)
		}
	}
}

func (c *checker) visit(r syntax.Ref, sc *scope) {
	switch r.Kind() {
	case syntax.KindName:
		// Bindings were collected in pass 1.
	case syntax.KindIdxRef:
		c.resolve(r, sc)
	case syntax.KindBlock:
		c.plainBlock(r, sc)
	case syntax.KindFoldedInstr:
		c.folded(r, sc)
	case syntax.KindExportDesc:
		if refs := r.ChildrenOf(syntax.KindIdxRef); len(refs) != 1 {
			c.report(r.Span(), diag.ArityMismatch, "export descriptor takes exactly one index, found %d", len(refs))
		}
		c.visitChildren(r, sc)
	default:
		c.visitChildren(r, sc)
	}
}

// plainBlock checks block/loop/if ... end. The label is visible inside the
// block; echoes after else and end must repeat it.
func (c *checker) plainBlock(r syntax.Ref, sc *scope) {
	label := ""
	if sig := r.Significant(); len(sig) > 1 && sig[1].Kind() == syntax.KindName {
		label = sig[1].Text()
	}
	inner := sc.push(label)
	echo := false
	for _, ch := range r.Children() {
		switch ch.Kind() {
		case syntax.KindToken:
			if kw := ch.Text(); kw == "else" || kw == "end" {
				echo = true
			}
		case syntax.KindName:
			if echo {
				c.echo(ch, label)
			}
		default:
			c.visit(ch, inner)
		}
	}
}

// echo checks a label repeated after else or end.
func (c *checker) echo(name syntax.Ref, label string) {
	if name.Text() == label {
		return
	}
	if label == "" {
		c.report(name.Span(), diag.UnresolvedReference, "label %s does not match an unlabelled block", name.Text())
		return
	}
	c.report(name.Span(), diag.UnresolvedReference, "label %s does not match block label %s", name.Text(), label)
}

// folded checks a folded instruction. A folded if evaluates its condition
// operands outside the label it introduces.
func (c *checker) folded(r syntax.Ref, sc *scope) {
	kw := r.Keyword()
	if opcode.IsBlock(kw) {
		label := ""
		if n, ok := r.FirstChildOf(syntax.KindName); ok {
			label = n.Text()
		}
		inner := sc.push(label)
		for _, ch := range r.Children() {
			switch ch.Unwrap().Kind() {
			case syntax.KindToken, syntax.KindName:
			case syntax.KindThen, syntax.KindElse:
				c.visit(ch, inner)
			case syntax.KindFoldedInstr:
				if kw == "if" {
					c.visit(ch, sc)
				} else {
					c.visit(ch, inner)
				}
			default:
				c.visit(ch, inner)
			}
		}
		return
	}

	c.visitChildren(r, sc)
	c.operands(r, kw, sc)
}

// operands compares the number of folded operands with what the instruction
// takes. Folded operands may be mixed with values already on the stack, so
// only a surplus is an error.
func (c *checker) operands(r syntax.Ref, kw string, sc *scope) {
	op, ok := opcode.Find(kw)
	if !ok {
		return
	}
	n := 0
	for _, ch := range r.Children() {
		if ch.Unwrap().Kind() == syntax.KindFoldedInstr {
			n++
		}
	}
	if op.Operands >= 0 {
		if n > op.Operands {
			c.report(r.Span(), diag.ArityMismatch, "'%s' expects %s, found %d", kw, plural(op.Operands, "operand"), n)
		}
		return
	}
	if kw != "call" && kw != "return_call" {
		return
	}
	idx, ok := r.FirstChildOf(syntax.KindIdxRef)
	if !ok {
		return
	}
	callee, ok := sc.mod.Space(syntax.SpaceFunc).Resolve(idx.Text())
	if !ok || !callee.HasSig {
		return
	}
	if want := len(callee.Sig.Params); n > want {
		c.report(r.Span(), diag.ArityMismatch, "call to %s expects %s, found %d", idx.Text(), plural(want, "argument"), n)
	}
}

// Parts of a function declaration, in the order they must be written.
const (
	partHeader = iota
	partTypeUse
	partParam
	partResult
	partLocal
	partBody
)

var partNames = [...]string{"inline export or import", "type use", "param", "result", "local", "instruction"}

func partOf(k syntax.Kind) (int, bool) {
	switch k {
	case syntax.KindInlineExport, syntax.KindInlineImport:
		return partHeader, true
	case syntax.KindTypeUse:
		return partTypeUse, true
	case syntax.KindParam:
		return partParam, true
	case syntax.KindResult:
		return partResult, true
	case syntax.KindLocal:
		return partLocal, true
	case syntax.KindInstr, syntax.KindFoldedInstr, syntax.KindBlock:
		return partBody, true
	}
	return 0, false
}

// checkOrder reports a part of a function or signature written after a part
// that must follow it, such as a param after a local.
func (c *checker) checkOrder(r syntax.Ref) {
	last := partHeader
	for _, ch := range r.Children() {
		part, ok := partOf(ch.Kind())
		if !ok {
			continue
		}
		if part < last {
			c.report(ch.Span(), diag.Syntax, "%s after %s", partNames[part], partNames[last])
			continue
		}
		last = part
	}
}

// checkTypeUse compares inline params and results with an explicit type use.
func (c *checker) checkTypeUse(m *Module, r syntax.Ref) {
	use, ok := firstChild(r, syntax.KindTypeUse)
	if !ok {
		return
	}
	inline, present := InlineSig(r)
	if !present {
		return
	}
	idx, ok := use.FirstChildOf(syntax.KindIdxRef)
	if !ok {
		return
	}
	t, ok := m.Space(syntax.SpaceType).Resolve(idx.Text())
	if !ok || !t.HasSig {
		return
	}
	if len(inline.Params) != len(t.Sig.Params) {
		c.report(use.Span(), diag.ArityMismatch, "type %s has %s, inline signature has %d",
			idx.Text(), plural(len(t.Sig.Params), "param"), len(inline.Params))
	}
	if len(inline.Results) != len(t.Sig.Results) {
		c.report(use.Span(), diag.ArityMismatch, "type %s has %s, inline signature has %d",
			idx.Text(), plural(len(t.Sig.Results), "result"), len(inline.Results))
	}
}

// Locals builds the local index space of function f: params first, from the
// inline declaration or else the referenced type, then locals. Each entry
// records its value type. The second result lists entries whose name was
// already taken.
func Locals(m *Module, f syntax.Ref) (*IndexSpace, []Decl) {
	s := newSpace(syntax.SpaceLocal)
	var dups []Decl
	add := func(r syntax.Ref) {
		types := ValTypes(r.Node())
		if name, span := NameOf(r); name != "" {
			d := Decl{Ref: r, Name: name, NameSpan: span}
			if len(types) > 0 {
				d.ValType = types[0]
			}
			if _, dup := s.add(d); dup {
				dups = append(dups, d)
			}
			return
		}
		for _, t := range types {
			s.add(Decl{Ref: r, NameSpan: r.Span(), ValType: t})
		}
	}

	params := childrenOf(f, syntax.KindParam)
	if len(params) == 0 {
		if sig, ok := useSig(m, f); ok {
			for _, t := range sig.Params {
				s.add(Decl{Ref: f, NameSpan: f.Span(), ValType: t})
			}
		}
	}
	for _, p := range params {
		add(p)
	}
	for _, l := range childrenOf(f, syntax.KindLocal) {
		add(l)
	}
	return s, dups
}

// resolve looks up one reference in the space it names.
func (c *checker) resolve(r syntax.Ref, sc *scope) {
	text := r.Text()
	switch r.Space() {
	case syntax.SpaceLabel:
		c.resolveLabel(r, text, sc)
		return
	case syntax.SpaceLocal:
		if _, ok := sc.locals.Resolve(text); !ok {
			c.unresolved(r, syntax.SpaceLocal, text, sc.locals.Len())
		}
		return
	}
	space := sc.mod.Space(r.Space())
	if space == nil {
		return
	}
	if _, ok := space.Resolve(text); !ok {
		c.unresolved(r, r.Space(), text, space.Len())
	}
}

func (c *checker) resolveLabel(r syntax.Ref, text string, sc *scope) {
	depth := len(sc.labels)
	if sc.inFunc {
		depth++
	}
	if len(text) > 0 && text[0] == '$' {
		for i := len(sc.labels) - 1; i >= 0; i-- {
			if sc.labels[i] == text {
				return
			}
		}
		c.unresolved(r, syntax.SpaceLabel, text, depth)
		return
	}
	n, err := token.ParseU32(text)
	if err != nil || int(n) >= depth {
		c.unresolved(r, syntax.SpaceLabel, text, depth)
	}
}

func (c *checker) unresolved(r syntax.Ref, space syntax.Space, text string, defined int) {
	if len(text) > 0 && text[0] == '$' {
		c.report(r.Span(), diag.UnresolvedReference, "unknown %s %s", space, text)
		return
	}
	c.report(r.Span(), diag.UnresolvedReference, "%s index %s out of range (%d defined)", space, text, defined)
}
