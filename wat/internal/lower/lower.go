// Package lower translates a validated module of the syntax tree into the
// binary module model of the encoder.
package lower

import (
	"math/bits"
	"strings"

	"github.com/wippyai/wat-engine/errors"
	"github.com/wippyai/wat-engine/wat/internal/encoder"
	"github.com/wippyai/wat-engine/wat/internal/validate"
	"github.com/wippyai/wat-engine/wat/syntax"
	"github.com/wippyai/wat-engine/wat/token"
)

const (
	pageSize = 65536
	refFunc  = 0xD2
)

type lowerer struct {
	mod *validate.Module
	out *encoder.Module
	err error
}

// Lower translates m. The module is expected to be free of error
// diagnostics; anything that still cannot be translated is returned as a
// compile error with the span of the offending node.
func Lower(m *validate.Module) (*encoder.Module, error) {
	l := &lowerer{mod: m, out: &encoder.Module{}}

	// Explicit types keep their indices even when two are equal.
	for _, d := range m.Space(syntax.SpaceType).Decls {
		l.out.Types = append(l.out.Types, l.funcType(d.Ref, d.Sig))
	}

	for _, f := range m.Fields {
		if imported(f) {
			l.importField(f)
		}
	}
	var funcs []syntax.Ref
	for _, f := range m.Fields {
		if imported(f) {
			l.exports(f)
			continue
		}
		switch f.Kind() {
		case syntax.KindFuncDecl:
			l.out.Funcs = append(l.out.Funcs, l.typeUse(f))
			funcs = append(funcs, f)
		case syntax.KindTableDecl:
			l.table(f)
		case syntax.KindMemoryDecl:
			l.memory(f)
		case syntax.KindGlobalDecl:
			l.global(f)
		case syntax.KindExportDecl:
			l.exportDecl(f)
		case syntax.KindStartDecl:
			if idx, ok := f.FirstChildOf(syntax.KindIdxRef); ok {
				start := l.index(idx)
				l.out.Start = &start
			}
		case syntax.KindElemDecl:
			l.elem(f)
		case syntax.KindDataDecl:
			l.data(f)
		}
		l.exports(f)
	}
	for _, f := range funcs {
		l.function(f)
	}

	if l.err != nil {
		return nil, l.err
	}
	return l.out, nil
}

func (l *lowerer) fail(r syntax.Ref, format string, args ...any) {
	if l.err != nil {
		return
	}
	l.err = errors.New(errors.PhaseCompile, errors.KindInvalidInput).
		Span(r.Start(), r.End()).
		Detail(format, args...).
		Build()
}

func imported(f syntax.Ref) bool {
	if f.Kind() == syntax.KindImportDecl {
		return true
	}
	_, ok := f.FirstChildOf(syntax.KindInlineImport)
	return ok
}

// index resolves an IdxRef in its module-wide space.
func (l *lowerer) index(idx syntax.Ref) uint32 {
	d, ok := l.mod.Space(idx.Space()).Resolve(idx.Text())
	if !ok {
		l.fail(idx, "unresolved %s reference %s", idx.Space(), idx.Text())
		return 0
	}
	return d.Index
}

// optIndex resolves the first IdxRef child of r in space, defaulting to 0.
func (l *lowerer) optIndex(r syntax.Ref, space syntax.Space) uint32 {
	for _, idx := range r.ChildrenOf(syntax.KindIdxRef) {
		if idx.Space() == space {
			return l.index(idx)
		}
	}
	return 0
}

// declIndex finds the index the validator assigned to declaration r.
func (l *lowerer) declIndex(space syntax.Space, r syntax.Ref) uint32 {
	for _, d := range l.mod.Space(space).Decls {
		if d.Ref.Node() == r.Node() {
			return d.Index
		}
	}
	l.fail(r, "%s declaration has no index", space)
	return 0
}

func (l *lowerer) valType(r syntax.Ref, name string) byte {
	vt, ok := encoder.ValType(name)
	if !ok {
		l.fail(r, "unknown value type %s", name)
	}
	return vt
}

func (l *lowerer) funcType(r syntax.Ref, sig validate.Sig) encoder.FuncType {
	var ft encoder.FuncType
	for _, p := range sig.Params {
		ft.Params = append(ft.Params, l.valType(r, p))
	}
	for _, res := range sig.Results {
		ft.Results = append(ft.Results, l.valType(r, res))
	}
	return ft
}

// typeUse returns the type index of a function, import descriptor or
// call_indirect: the explicit (type ...) if present, else the inline
// signature, added to the type section when new.
func (l *lowerer) typeUse(r syntax.Ref) uint32 {
	if use, ok := r.FirstChildOf(syntax.KindTypeUse); ok {
		return l.optIndex(use, syntax.SpaceType)
	}
	sig, _ := validate.InlineSig(r)
	return l.out.TypeIndex(l.funcType(r, sig))
}

func (l *lowerer) importField(f syntax.Ref) {
	var module, name string
	desc := f
	kind := f.Kind()
	if f.Kind() == syntax.KindImportDecl {
		module, name = l.names(f)
		d, ok := f.FirstChildOf(syntax.KindImportDesc)
		if !ok {
			l.fail(f, "import without descriptor")
			return
		}
		desc = d
		switch d.Keyword() {
		case "func":
			kind = syntax.KindFuncDecl
		case "table":
			kind = syntax.KindTableDecl
		case "memory":
			kind = syntax.KindMemoryDecl
		case "global":
			kind = syntax.KindGlobalDecl
		}
	} else {
		ii, _ := f.FirstChildOf(syntax.KindInlineImport)
		module, name = l.names(ii)
	}

	imp := encoder.Import{Module: module, Name: name}
	switch kind {
	case syntax.KindFuncDecl:
		imp.Kind = encoder.ExternFunc
		imp.TypeIdx = l.typeUse(desc)
	case syntax.KindTableDecl:
		imp.Kind = encoder.ExternTable
		imp.Table = encoder.Table{Limits: l.limits(desc), ElemType: l.refType(desc)}
	case syntax.KindMemoryDecl:
		imp.Kind = encoder.ExternMemory
		imp.Memory = l.limits(desc)
	case syntax.KindGlobalDecl:
		imp.Kind = encoder.ExternGlobal
		imp.Global = l.globalType(desc)
	default:
		l.fail(f, "cannot import %s", f.Kind())
		return
	}
	l.out.Imports = append(l.out.Imports, imp)
}

// names returns the decoded strings of an import or export, padded to two.
func (l *lowerer) names(r syntax.Ref) (string, string) {
	var s []string
	for _, leaf := range r.Leaves() {
		if leaf.Node().TokenKind() != token.String {
			continue
		}
		b, err := token.Unquote(leaf.Text())
		if err != nil {
			l.fail(leaf, "%v", err)
		}
		s = append(s, string(b))
	}
	for len(s) < 2 {
		s = append(s, "")
	}
	return s[0], s[1]
}

func (l *lowerer) limits(r syntax.Ref) encoder.Limits {
	var lim encoder.Limits
	n, ok := r.FirstChildOf(syntax.KindLimits)
	if !ok {
		return lim
	}
	for i, leaf := range n.Leaves() {
		v, err := token.ParseU32(leaf.Text())
		if err != nil {
			l.fail(leaf, "invalid limit %s", leaf.Text())
			return lim
		}
		if i == 0 {
			lim.Min = v
		} else {
			lim.Max = &v
		}
	}
	return lim
}

func (l *lowerer) refType(r syntax.Ref) byte {
	for _, t := range validate.ValTypes(r.Node()) {
		if t == "externref" {
			return encoder.Externref
		}
	}
	return encoder.Funcref
}

func (l *lowerer) globalType(r syntax.Ref) encoder.GlobalType {
	if gt, ok := r.FirstChildOf(syntax.KindGlobalType); ok {
		if types := validate.ValTypes(gt.Node()); len(types) == 1 {
			return encoder.GlobalType{ValType: l.valType(gt, types[0]), Mutable: true}
		}
		l.fail(gt, "global type needs one value type")
		return encoder.GlobalType{}
	}
	types := validate.ValTypes(r.Node())
	if len(types) != 1 {
		l.fail(r, "global type needs one value type")
		return encoder.GlobalType{}
	}
	return encoder.GlobalType{ValType: l.valType(r, types[0])}
}

func (l *lowerer) table(f syntax.Ref) {
	t := encoder.Table{Limits: l.limits(f), ElemType: l.refType(f)}
	ie, ok := f.FirstChildOf(syntax.KindInlineElem)
	if !ok {
		l.out.Tables = append(l.out.Tables, t)
		return
	}
	// (table funcref (elem ...)) sizes the table to its elements.
	e := l.segment(ie, encoder.Elem{RefType: t.ElemType}, false)
	n := uint32(len(e.Funcs) + len(e.Exprs))
	t.Limits = encoder.Limits{Min: n, Max: &n}
	e.Table = l.declIndex(syntax.SpaceTable, f)
	e.Offset = []byte{0x41, 0x00, encoder.OpEnd}
	l.out.Tables = append(l.out.Tables, t)
	l.out.Elems = append(l.out.Elems, e)
}

func (l *lowerer) memory(f syntax.Ref) {
	id, ok := f.FirstChildOf(syntax.KindInlineData)
	if !ok {
		l.out.Memories = append(l.out.Memories, l.limits(f))
		return
	}
	init := l.strings(id)
	pages := uint32((len(init) + pageSize - 1) / pageSize)
	l.out.Memories = append(l.out.Memories, encoder.Limits{Min: pages, Max: &pages})
	l.out.Data = append(l.out.Data, encoder.Data{
		Memory: l.declIndex(syntax.SpaceMemory, f),
		Offset: []byte{0x41, 0x00, encoder.OpEnd},
		Init:   init,
	})
}

// strings concatenates the decoded string literals directly under r.
func (l *lowerer) strings(r syntax.Ref) []byte {
	var out []byte
	for _, leaf := range r.Leaves() {
		if leaf.Node().TokenKind() != token.String {
			continue
		}
		b, err := token.Unquote(leaf.Text())
		if err != nil {
			l.fail(leaf, "%v", err)
			continue
		}
		out = append(out, b...)
	}
	return out
}

func (l *lowerer) global(f syntax.Ref) {
	l.out.Globals = append(l.out.Globals, encoder.Global{
		Type: l.globalType(f),
		Init: l.constExpr(f),
	})
}

// constExpr encodes the instructions directly under r followed by end.
func (l *lowerer) constExpr(r syntax.Ref) []byte {
	c := &code{l: l, buf: &encoder.Buffer{}}
	c.seq(r)
	c.buf.Byte(encoder.OpEnd)
	return c.buf.Bytes
}

func (l *lowerer) exportDecl(f syntax.Ref) {
	name, _ := l.names(f)
	desc, ok := f.FirstChildOf(syntax.KindExportDesc)
	if !ok {
		l.fail(f, "export without descriptor")
		return
	}
	idx, ok := desc.FirstChildOf(syntax.KindIdxRef)
	if !ok {
		l.fail(desc, "export descriptor without index")
		return
	}
	l.out.Exports = append(l.out.Exports, encoder.Export{
		Name:  name,
		Kind:  externKind(idx.Space()),
		Index: l.index(idx),
	})
}

// exports adds the inline exports of a declaration.
func (l *lowerer) exports(f syntax.Ref) {
	inline := f.ChildrenOf(syntax.KindInlineExport)
	if len(inline) == 0 {
		return
	}
	space := spaceOf(f)
	index := l.declIndex(space, f)
	for _, e := range inline {
		name, _ := l.names(e)
		l.out.Exports = append(l.out.Exports, encoder.Export{Name: name, Kind: externKind(space), Index: index})
	}
}

func spaceOf(f syntax.Ref) syntax.Space {
	switch f.Kind() {
	case syntax.KindFuncDecl:
		return syntax.SpaceFunc
	case syntax.KindTableDecl:
		return syntax.SpaceTable
	case syntax.KindMemoryDecl:
		return syntax.SpaceMemory
	case syntax.KindGlobalDecl:
		return syntax.SpaceGlobal
	}
	return syntax.SpaceNone
}

func externKind(space syntax.Space) byte {
	switch space {
	case syntax.SpaceTable:
		return encoder.ExternTable
	case syntax.SpaceMemory:
		return encoder.ExternMemory
	case syntax.SpaceGlobal:
		return encoder.ExternGlobal
	}
	return encoder.ExternFunc
}

// elem lowers an element segment. A segment with an offset is active; the
// declare keyword makes it declarative; otherwise it is passive.
func (l *lowerer) elem(f syntax.Ref) {
	l.out.Elems = append(l.out.Elems, l.segment(f, encoder.Elem{Mode: encoder.ElemModePassive}, true))
}

// segment collects the table use, offset and items of an element list. With
// bareOffset, a folded instruction before the list starts is the offset.
// Function indices become ref.func expressions when the list mixes them with
// item expressions.
func (l *lowerer) segment(r syntax.Ref, e encoder.Elem, bareOffset bool) encoder.Elem {
	var funcs []uint32
	var exprs [][]byte
	items, listed := false, false
	for _, c := range r.Significant() {
		switch c.Kind() {
		case syntax.KindToken:
			switch c.Text() {
			case "declare":
				e.Mode = encoder.ElemModeDeclarative
				listed = true
			case "func", "funcref":
				listed = true
			case "externref":
				e.RefType = encoder.Externref
				listed = true
			}
		case syntax.KindTableUse:
			e.Table = l.optIndex(c, syntax.SpaceTable)
		case syntax.KindOffset:
			e.Mode = encoder.ElemModeActive
			e.Offset = l.constExpr(c)
		case syntax.KindIdxRef:
			listed = true
			idx := l.index(c)
			funcs = append(funcs, idx)
			b := &encoder.Buffer{}
			b.Byte(refFunc)
			b.U32(idx)
			b.Byte(encoder.OpEnd)
			exprs = append(exprs, b.Bytes)
		case syntax.KindItem:
			listed, items = true, true
			exprs = append(exprs, l.constExpr(c))
		case syntax.KindFoldedInstr:
			if bareOffset && !listed && e.Offset == nil {
				e.Mode = encoder.ElemModeActive
				e.Offset = l.foldedExpr(c)
				listed = true
				continue
			}
			listed, items = true, true
			exprs = append(exprs, l.foldedExpr(c))
		}
	}
	if items {
		e.Exprs = exprs
	} else {
		e.Funcs = funcs
	}
	return e
}

// foldedExpr encodes one folded instruction as a complete expression.
func (l *lowerer) foldedExpr(r syntax.Ref) []byte {
	c := &code{l: l, buf: &encoder.Buffer{}}
	c.node(r)
	c.buf.Byte(encoder.OpEnd)
	return c.buf.Bytes
}

func (l *lowerer) data(f syntax.Ref) {
	d := encoder.Data{Passive: true, Init: l.strings(f)}
	if off, ok := f.FirstChildOf(syntax.KindOffset); ok {
		d.Passive = false
		d.Offset = l.constExpr(off)
	} else if fi, ok := f.FirstChildOf(syntax.KindFoldedInstr); ok {
		d.Passive = false
		d.Offset = l.foldedExpr(fi)
	}
	if mu, ok := f.FirstChildOf(syntax.KindMemoryUse); ok {
		d.Memory = l.optIndex(mu, syntax.SpaceMemory)
	}
	l.out.Data = append(l.out.Data, d)
}

func (l *lowerer) function(f syntax.Ref) {
	locals, _ := validate.Locals(l.mod, f)
	c := &code{l: l, buf: &encoder.Buffer{}, locals: locals, labels: []string{""}}
	var body encoder.Body
	for _, d := range locals.Decls {
		if d.Ref.Kind() == syntax.KindLocal {
			body.Locals = append(body.Locals, l.valType(d.Ref, d.ValType))
		}
	}
	c.seq(f)
	c.buf.Byte(encoder.OpEnd)
	body.Code = c.buf.Bytes
	l.out.Code = append(l.out.Code, body)
}

// alignLog2 converts an align= value to the exponent the binary format uses.
func alignLog2(text string) (uint32, bool) {
	v, err := token.ParseU32(strings.TrimPrefix(text, "align="))
	if err != nil || v == 0 || v&(v-1) != 0 {
		return 0, false
	}
	return uint32(bits.TrailingZeros32(v)), true
}
