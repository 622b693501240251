package validate

import (
	"fmt"

	"github.com/wippyai/wat-engine/wat/diag"
	"github.com/wippyai/wat-engine/wat/syntax"
	"github.com/wippyai/wat-engine/wat/token"
)

// Export is one exported name.
type Export struct {
	Ref   syntax.Ref // ExportDecl or InlineExport
	Owner syntax.Ref // the exported declaration for inline exports
	Name  string
	Span  token.Span
}

// Module holds the index spaces of one module. Bare module fields outside a
// (module ...) form are gathered into an implicit module rooted at the
// SourceFile node.
type Module struct {
	Ref     syntax.Ref
	Name    string
	Fields  []syntax.Ref
	Exports []Export
	Start   []syntax.Ref

	spaces map[syntax.Space]*IndexSpace
}

func newModule(r syntax.Ref) *Module {
	m := &Module{Ref: r, spaces: make(map[syntax.Space]*IndexSpace)}
	for _, s := range syntax.ModuleSpaces {
		m.spaces[s] = newSpace(s)
	}
	if r.Kind() == syntax.KindModule {
		m.Name, _ = NameOf(r)
	}
	return m
}

// Space returns the index space s of the module, or nil for spaces that are
// not module-wide (locals, labels).
func (m *Module) Space(s syntax.Space) *IndexSpace {
	return m.spaces[s]
}

// Implicit reports whether the module was formed from bare fields.
func (m *Module) Implicit() bool {
	return m.Ref.Kind() == syntax.KindSourceFile
}

// modules finds the modules of a tree: every (module ...) form, plus one
// implicit module for bare fields.
func modules(root syntax.Ref) []*Module {
	var out []*Module
	var bare *Module
	for _, c := range root.Children() {
		u := c.Unwrap()
		switch {
		case u.Kind() == syntax.KindModule:
			m := newModule(u)
			for _, f := range u.Children() {
				if f = f.Unwrap(); f.Kind().IsDecl() {
					m.Fields = append(m.Fields, f)
				}
			}
			out = append(out, m)
		case u.Kind().IsDecl():
			if bare == nil {
				bare = newModule(root)
				out = append(out, bare)
			}
			bare.Fields = append(bare.Fields, u)
		}
	}
	return out
}

// firstChild finds the first child of kind, looking through Error wrappers
// of unterminated forms.
func firstChild(r syntax.Ref, kind syntax.Kind) (syntax.Ref, bool) {
	for _, c := range r.Children() {
		if c.Kind() == kind {
			return c, true
		}
		if c.Kind() == syntax.KindError {
			if u := c.Unwrap(); u.Kind() == kind {
				return u, true
			}
		}
	}
	return syntax.Ref{}, false
}

// childrenOf is ChildrenOf that also looks through Error wrappers.
func childrenOf(r syntax.Ref, kind syntax.Kind) []syntax.Ref {
	var out []syntax.Ref
	for _, c := range r.Children() {
		if c.Kind() == syntax.KindError {
			c = c.Unwrap()
		}
		if c.Kind() == kind {
			out = append(out, c)
		}
	}
	return out
}

func isImported(f syntax.Ref) bool {
	if f.Kind() == syntax.KindImportDecl {
		return true
	}
	_, ok := firstChild(f, syntax.KindInlineImport)
	return ok
}

func declSpace(kind syntax.Kind) syntax.Space {
	switch kind {
	case syntax.KindTypeDecl:
		return syntax.SpaceType
	case syntax.KindFuncDecl:
		return syntax.SpaceFunc
	case syntax.KindTableDecl:
		return syntax.SpaceTable
	case syntax.KindMemoryDecl:
		return syntax.SpaceMemory
	case syntax.KindGlobalDecl:
		return syntax.SpaceGlobal
	case syntax.KindElemDecl:
		return syntax.SpaceElem
	case syntax.KindDataDecl:
		return syntax.SpaceData
	}
	return syntax.SpaceNone
}

// importSpace returns the space an import descriptor binds into.
func importSpace(desc syntax.Ref) syntax.Space {
	switch desc.Keyword() {
	case "func":
		return syntax.SpaceFunc
	case "table":
		return syntax.SpaceTable
	case "memory":
		return syntax.SpaceMemory
	case "global":
		return syntax.SpaceGlobal
	}
	return syntax.SpaceNone
}

// declare adds d to space and reports a duplicate name.
func (c *checker) declare(m *Module, space syntax.Space, d Decl) {
	if _, dup := m.spaces[space].add(d); dup {
		c.report(d.NameSpan, diag.DuplicateDefinition, "duplicate %s %s", space, d.Name)
	}
}

// fieldSpace returns the index space a field adds to, imports included.
func fieldSpace(f syntax.Ref) syntax.Space {
	if f.Kind() == syntax.KindImportDecl {
		desc, ok := firstChild(f, syntax.KindImportDesc)
		if !ok {
			return syntax.SpaceNone
		}
		return importSpace(desc)
	}
	return declSpace(f.Kind())
}

// checkImportOrder reports imports that follow a function, table, memory or
// global definition. Such an import would get an index lower than fields
// written before it.
func (c *checker) checkImportOrder(m *Module) {
	var first syntax.Space
	for _, f := range m.Fields {
		space := fieldSpace(f)
		switch space {
		case syntax.SpaceFunc, syntax.SpaceTable, syntax.SpaceMemory, syntax.SpaceGlobal:
		default:
			continue
		}
		if !isImported(f) {
			if first == syntax.SpaceNone {
				first = space
			}
			continue
		}
		if first != syntax.SpaceNone {
			c.report(f.Span(), diag.Syntax, "import after %s definition", first)
		}
	}
}

// collect builds the module's index spaces. Imports come first in every
// space, as in the binary format; everything else follows in document order.
func (c *checker) collect(m *Module) bool {
	c.checkImportOrder(m)
	for _, imports := range []bool{true, false} {
		for _, f := range m.Fields {
			if c.cancelled() {
				return false
			}
			if isImported(f) != imports {
				continue
			}
			c.collectField(m, f)
		}
	}

	// Signatures need the complete type space.
	for _, space := range []syntax.Space{syntax.SpaceType, syntax.SpaceFunc} {
		decls := m.spaces[space].Decls
		for i := range decls {
			decls[i].Sig, decls[i].HasSig = sigOf(m, decls[i].Ref)
		}
	}

	seen := map[string]Export{}
	for _, e := range m.Exports {
		if _, dup := seen[e.Name]; dup {
			c.report(e.Span, diag.DuplicateDefinition, "duplicate export %q", e.Name)
			continue
		}
		seen[e.Name] = e
	}
	if len(m.Start) > 1 {
		for _, s := range m.Start[1:] {
			c.report(s.Span(), diag.DuplicateDefinition, "multiple start functions")
		}
	}
	return true
}

func (c *checker) collectField(m *Module, f syntax.Ref) {
	switch f.Kind() {
	case syntax.KindImportDecl:
		desc, ok := firstChild(f, syntax.KindImportDesc)
		if !ok {
			return
		}
		space := importSpace(desc)
		if space == syntax.SpaceNone {
			return
		}
		name, span := NameOf(desc)
		c.declare(m, space, Decl{Ref: f, Name: name, NameSpan: span, Imported: true})

	case syntax.KindExportDecl:
		name, span := exportName(f)
		m.Exports = append(m.Exports, Export{Ref: f, Name: name, Span: span})

	case syntax.KindStartDecl:
		m.Start = append(m.Start, f)

	default:
		space := declSpace(f.Kind())
		if space == syntax.SpaceNone {
			return
		}
		name, span := NameOf(f)
		c.declare(m, space, Decl{Ref: f, Name: name, NameSpan: span, Imported: isImported(f)})

		for _, e := range childrenOf(f, syntax.KindInlineExport) {
			name, span := exportName(e)
			m.Exports = append(m.Exports, Export{Ref: e, Owner: f, Name: name, Span: span})
		}
		if ie, ok := firstChild(f, syntax.KindInlineElem); ok {
			c.declare(m, syntax.SpaceElem, Decl{Ref: ie, NameSpan: ie.Span()})
		}
		if id, ok := firstChild(f, syntax.KindInlineData); ok {
			c.declare(m, syntax.SpaceData, Decl{Ref: id, NameSpan: id.Span()})
		}
	}
}

// exportName returns the decoded name of an export and the span of its
// string literal.
func exportName(r syntax.Ref) (string, token.Span) {
	for _, l := range r.Leaves() {
		if l.Node().TokenKind() == token.String {
			b, err := token.Unquote(l.Text())
			if err != nil {
				return l.Text(), l.Span()
			}
			return string(b), l.Span()
		}
	}
	return "", r.Span()
}

// InlineSig collects the types of the Param and Result children of r.
func InlineSig(r syntax.Ref) (Sig, bool) {
	var sig Sig
	found := false
	for _, c := range r.Children() {
		if c.Kind() == syntax.KindError {
			c = c.Unwrap()
		}
		switch c.Kind() {
		case syntax.KindParam:
			sig.Params = append(sig.Params, ValTypes(c.Node())...)
			found = true
		case syntax.KindResult:
			sig.Results = append(sig.Results, ValTypes(c.Node())...)
			found = true
		}
	}
	return sig, found
}

// sigOf computes the signature of a type definition or function.
func sigOf(m *Module, r syntax.Ref) (Sig, bool) {
	switch r.Kind() {
	case syntax.KindTypeDecl:
		ft, ok := firstChild(r, syntax.KindFuncType)
		if !ok {
			return Sig{}, false
		}
		sig, _ := InlineSig(ft)
		return sig, true
	case syntax.KindImportDecl:
		desc, ok := firstChild(r, syntax.KindImportDesc)
		if !ok {
			return Sig{}, false
		}
		return useSig(m, desc)
	case syntax.KindFuncDecl:
		return useSig(m, r)
	}
	return Sig{}, false
}

// useSig resolves a type use: an explicit (type ...) wins over inline params
// and results; without one the inline signature stands.
func useSig(m *Module, r syntax.Ref) (Sig, bool) {
	inline, _ := InlineSig(r)
	use, ok := firstChild(r, syntax.KindTypeUse)
	if !ok {
		return inline, true
	}
	idx, ok := use.FirstChildOf(syntax.KindIdxRef)
	if !ok {
		return inline, false
	}
	d, ok := m.spaces[syntax.SpaceType].Resolve(idx.Text())
	if !ok || !d.HasSig {
		return inline, false
	}
	return d.Sig, true
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
