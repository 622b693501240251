package parser

import (
	"fmt"

	"github.com/wippyai/wat-engine/wat/syntax"
	"github.com/wippyai/wat-engine/wat/token"
)

// form parses one parenthesized form in ctx. The current token is '('.
func (p *Parser) form(dst *[]*syntax.Node, ctx Context) {
	p.trivia(dst)
	head := p.peekAt(1)
	if head.Kind != token.Keyword {
		p.skipForm(dst, "expected a keyword after '('")
		return
	}
	kw := head.Text

	switch ctx {
	case Top:
		if kw == "module" {
			p.module(dst)
			return
		}
		if p.field(dst, kw) {
			return
		}
		p.skipForm(dst, fmt.Sprintf("unknown module field '%s'", kw))
		return

	case ModuleField:
		if p.field(dst, kw) {
			return
		}
		if kw == "module" {
			p.skipForm(dst, "modules cannot be nested")
			return
		}
		p.skipForm(dst, fmt.Sprintf("unknown module field '%s'", kw))
		return

	case FuncField:
		switch kw {
		case "export":
			p.inlineExport(dst)
			return
		case "import":
			p.inlineImport(dst)
			return
		case "local":
			p.param(dst, syntax.KindLocal)
			return
		}
		p.instrForm(dst, Instr)
		return

	case ImportDesc:
		switch kw {
		case "func", "table", "memory", "global":
			p.importDesc(dst, kw)
			return
		}
		p.skipForm(dst, fmt.Sprintf("unknown import kind '%s'", kw))
		return

	case DescField:
		switch kw {
		case "type":
			p.use(dst, syntax.KindTypeUse, syntax.SpaceType)
			return
		case "param":
			p.param(dst, syntax.KindParam)
			return
		case "result":
			p.param(dst, syntax.KindResult)
			return
		case "mut":
			p.globalType(dst)
			return
		}

	case TypeDef:
		if kw == "func" {
			kids := p.begin()
			p.forms(&kids, Sig)
			p.close(dst, syntax.KindFuncType, kids)
			return
		}

	case Sig:
		switch kw {
		case "param":
			p.param(dst, syntax.KindParam)
			return
		case "result":
			p.param(dst, syntax.KindResult)
			return
		}

	case TableField:
		switch kw {
		case "export":
			p.inlineExport(dst)
			return
		case "import":
			p.inlineImport(dst)
			return
		case "elem":
			kids := p.begin()
			p.elemList(&kids)
			p.close(dst, syntax.KindInlineElem, kids)
			return
		}

	case MemoryField:
		switch kw {
		case "export":
			p.inlineExport(dst)
			return
		case "import":
			p.inlineImport(dst)
			return
		case "data":
			kids := p.begin()
			for p.peek().Kind == token.String {
				p.next(&kids)
			}
			p.close(dst, syntax.KindInlineData, kids)
			return
		}

	case GlobalField:
		switch kw {
		case "export":
			p.inlineExport(dst)
			return
		case "import":
			p.inlineImport(dst)
			return
		case "mut":
			p.globalType(dst)
			return
		}
		p.instrForm(dst, Instr)
		return

	case ExportDesc:
		if space, ok := externSpace(kw); ok {
			kids := p.begin()
			for p.idx(&kids, space, false) {
			}
			p.close(dst, syntax.KindExportDesc, kids)
			return
		}
		p.skipForm(dst, fmt.Sprintf("unknown export kind '%s'", kw))
		return

	case ElemField:
		switch kw {
		case "table":
			p.use(dst, syntax.KindTableUse, syntax.SpaceTable)
			return
		case "offset":
			p.exprForm(dst, syntax.KindOffset)
			return
		case "item":
			p.exprForm(dst, syntax.KindItem)
			return
		}
		p.instrForm(dst, Instr)
		return

	case DataField:
		switch kw {
		case "memory":
			p.use(dst, syntax.KindMemoryUse, syntax.SpaceMemory)
			return
		case "offset":
			p.exprForm(dst, syntax.KindOffset)
			return
		}
		p.instrForm(dst, Instr)
		return

	case Instr, IfBody:
		p.instrForm(dst, ctx)
		return
	}

	p.skipForm(dst, fmt.Sprintf("unexpected '%s' form here", kw))
}

func externSpace(kw string) (syntax.Space, bool) {
	switch kw {
	case "func":
		return syntax.SpaceFunc, true
	case "table":
		return syntax.SpaceTable, true
	case "memory":
		return syntax.SpaceMemory, true
	case "global":
		return syntax.SpaceGlobal, true
	}
	return syntax.SpaceNone, false
}

func (p *Parser) module(dst *[]*syntax.Node) {
	kids := p.begin()
	p.name(&kids, syntax.SpaceModule)
	p.forms(&kids, ModuleField)
	p.close(dst, syntax.KindModule, kids)
}

// field parses a module field if kw names one.
func (p *Parser) field(dst *[]*syntax.Node, kw string) bool {
	switch kw {
	case "type":
		p.typeDecl(dst)
	case "import":
		p.importDecl(dst)
	case "func":
		p.funcDecl(dst)
	case "table":
		p.tableDecl(dst)
	case "memory":
		p.memoryDecl(dst)
	case "global":
		p.globalDecl(dst)
	case "export":
		kids := p.begin()
		p.str(&kids, "export name")
		p.forms(&kids, ExportDesc)
		p.close(dst, syntax.KindExportDecl, kids)
	case "start":
		kids := p.begin()
		p.idx(&kids, syntax.SpaceFunc, true)
		p.close(dst, syntax.KindStartDecl, kids)
	case "elem":
		p.elemDecl(dst)
	case "data":
		p.dataDecl(dst)
	default:
		return false
	}
	return true
}

func (p *Parser) typeDecl(dst *[]*syntax.Node) {
	kids := p.begin()
	p.name(&kids, syntax.SpaceType)
	n := len(kids)
	p.forms(&kids, TypeDef)
	if !hasKind(kids[n:], syntax.KindFuncType) {
		kids = append(kids, syntax.NewError("expected (func ...) in type definition"))
	}
	p.close(dst, syntax.KindTypeDecl, kids)
}

func (p *Parser) importDecl(dst *[]*syntax.Node) {
	kids := p.begin()
	p.str(&kids, "module name")
	p.str(&kids, "import name")
	n := len(kids)
	p.forms(&kids, ImportDesc)
	if !hasKind(kids[n:], syntax.KindImportDesc) {
		kids = append(kids, syntax.NewError("expected import descriptor"))
	}
	p.close(dst, syntax.KindImportDecl, kids)
}

func (p *Parser) importDesc(dst *[]*syntax.Node, kw string) {
	space, _ := externSpace(kw)
	kids := p.begin()
	p.name(&kids, space)
	seenLimits := false
	for {
		t := p.peek()
		switch {
		case t.Kind == token.LParen:
			p.form(&kids, DescField)
		case t.Kind == token.Integer && !seenLimits && (kw == "table" || kw == "memory"):
			p.limits(&kids)
			seenLimits = true
		case t.Kind == token.Keyword && (kw == "table" || kw == "global"):
			p.valtypes(&kids, 1)
		default:
			p.close(dst, syntax.KindImportDesc, kids)
			return
		}
	}
}

func (p *Parser) funcDecl(dst *[]*syntax.Node) {
	kids := p.begin()
	p.name(&kids, syntax.SpaceFunc)
	p.body(&kids, FuncField, false)
	p.close(dst, syntax.KindFuncDecl, kids)
}

func (p *Parser) tableDecl(dst *[]*syntax.Node) {
	kids := p.begin()
	p.name(&kids, syntax.SpaceTable)
	seenLimits := false
	for {
		t := p.peek()
		switch {
		case t.Kind == token.LParen:
			p.form(&kids, TableField)
		case t.Kind == token.Integer && !seenLimits:
			p.limits(&kids)
			seenLimits = true
		case t.Kind == token.Keyword:
			leaf := p.take(&kids)
			if isRefType(t.Text) {
				kids = append(kids, leaf)
			} else {
				kids = append(kids, syntax.NewError(fmt.Sprintf("expected reference type, found '%s'", t.Text), leaf))
			}
		default:
			p.close(dst, syntax.KindTableDecl, kids)
			return
		}
	}
}

func (p *Parser) memoryDecl(dst *[]*syntax.Node) {
	kids := p.begin()
	p.name(&kids, syntax.SpaceMemory)
	seenLimits := false
	for {
		t := p.peek()
		switch {
		case t.Kind == token.LParen:
			p.form(&kids, MemoryField)
		case t.Kind == token.Integer && !seenLimits:
			p.limits(&kids)
			seenLimits = true
		default:
			p.close(dst, syntax.KindMemoryDecl, kids)
			return
		}
	}
}

func (p *Parser) globalDecl(dst *[]*syntax.Node) {
	kids := p.begin()
	p.name(&kids, syntax.SpaceGlobal)
	typed := false
	for !typed {
		t := p.peek()
		if t.Kind == token.LParen {
			p.form(&kids, GlobalField)
			if last := kids[len(kids)-1]; last.Kind() == syntax.KindGlobalType || last.Kind() == syntax.KindFoldedInstr {
				// A folded instruction means the type was omitted; the body
				// loop below takes over either way.
				typed = true
			}
			continue
		}
		if t.Kind == token.Keyword && isValType(t.Text) {
			p.next(&kids)
			typed = true
			continue
		}
		break
	}
	p.body(&kids, GlobalField, false)
	p.close(dst, syntax.KindGlobalDecl, kids)
}

func (p *Parser) elemDecl(dst *[]*syntax.Node) {
	kids := p.begin()
	p.name(&kids, syntax.SpaceElem)
	p.elemList(&kids)
	p.close(dst, syntax.KindElemDecl, kids)
}

// elemList parses the body of an element segment: table use, offset, the
// declare/func/reftype keywords, function indices and item expressions.
func (p *Parser) elemList(kids *[]*syntax.Node) {
	for {
		t := p.peek()
		switch t.Kind {
		case token.LParen:
			p.form(kids, ElemField)
		case token.Keyword:
			switch t.Text {
			case "declare", "func", "funcref", "externref":
				p.next(kids)
			default:
				p.junk(kids, fmt.Sprintf("unexpected keyword '%s' in element segment", t.Text))
			}
		case token.Ident, token.Integer:
			p.idx(kids, syntax.SpaceFunc, false)
		default:
			return
		}
	}
}

func (p *Parser) dataDecl(dst *[]*syntax.Node) {
	kids := p.begin()
	p.name(&kids, syntax.SpaceData)
	for {
		switch p.peek().Kind {
		case token.LParen:
			p.form(&kids, DataField)
			continue
		case token.String:
			p.next(&kids)
			continue
		}
		break
	}
	p.close(dst, syntax.KindDataDecl, kids)
}

func (p *Parser) inlineExport(dst *[]*syntax.Node) {
	kids := p.begin()
	p.str(&kids, "export name")
	p.close(dst, syntax.KindInlineExport, kids)
}

func (p *Parser) inlineImport(dst *[]*syntax.Node) {
	kids := p.begin()
	p.str(&kids, "module name")
	p.str(&kids, "import name")
	p.close(dst, syntax.KindInlineImport, kids)
}

// use parses (type idx), (table idx) and (memory idx).
func (p *Parser) use(dst *[]*syntax.Node, kind syntax.Kind, space syntax.Space) {
	kids := p.begin()
	p.idx(&kids, space, true)
	p.close(dst, kind, kids)
}

// param parses (param ...), (result ...) and (local ...). A name is allowed on
// params and locals and limits the entry to one type.
func (p *Parser) param(dst *[]*syntax.Node, kind syntax.Kind) {
	kids := p.begin()
	limit := -1
	if kind != syntax.KindResult && p.name(&kids, syntax.SpaceLocal) {
		limit = 1
	}
	if n := p.valtypes(&kids, limit); n == 0 && limit == 1 {
		kids = append(kids, syntax.NewError("expected value type"))
	}
	p.close(dst, kind, kids)
}

func (p *Parser) globalType(dst *[]*syntax.Node) {
	kids := p.begin()
	if p.valtypes(&kids, 1) == 0 {
		kids = append(kids, syntax.NewError("expected value type"))
	}
	p.close(dst, syntax.KindGlobalType, kids)
}

// exprForm parses (offset instr*) and (item instr*).
func (p *Parser) exprForm(dst *[]*syntax.Node, kind syntax.Kind) {
	kids := p.begin()
	p.body(&kids, Instr, false)
	p.close(dst, kind, kids)
}

func hasKind(nodes []*syntax.Node, kind syntax.Kind) bool {
	for _, n := range nodes {
		if n.Unwrap().Kind() == kind {
			return true
		}
	}
	return false
}
