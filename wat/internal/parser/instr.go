package parser

import (
	"fmt"
	"strings"

	"github.com/wippyai/wat-engine/wat/internal/opcode"
	"github.com/wippyai/wat-engine/wat/syntax"
	"github.com/wippyai/wat-engine/wat/token"
)

// body parses an instruction sequence: plain instructions and forms in ctx,
// until ')' or the end of input. Inside a plain block it also stops at 'end'
// and 'else', returning the keyword it stopped at.
func (p *Parser) body(kids *[]*syntax.Node, ctx Context, inBlock bool) string {
	for {
		t := p.peek()
		switch t.Kind {
		case token.LParen:
			p.form(kids, ctx)
		case token.RParen, token.EOF:
			return ""
		case token.Keyword:
			if t.Text == "end" || t.Text == "else" {
				if inBlock {
					return t.Text
				}
				p.junk(kids, fmt.Sprintf("'%s' without a matching block", t.Text))
				continue
			}
			p.instr(kids)
		default:
			p.junk(kids, "unexpected "+describe(t)+" in instruction sequence")
		}
	}
}

// instr parses one plain instruction. The current token is a keyword.
func (p *Parser) instr(dst *[]*syntax.Node) {
	t := p.peek()
	op, ok := opcode.Find(t.Text)
	if !ok {
		p.trivia(dst)
		kids := []*syntax.Node{p.leaf()}
		for {
			switch p.peek().Kind {
			case token.Integer, token.Float, token.Ident, token.String:
				p.next(&kids)
				continue
			}
			break
		}
		*dst = append(*dst, syntax.NewError(fmt.Sprintf("unknown instruction '%s'", t.Text), kids...))
		return
	}
	if op.Imm == opcode.ImmBlock {
		p.block(dst, op)
		return
	}
	p.trivia(dst)
	kids := []*syntax.Node{p.leaf()}
	p.immediates(&kids, op)
	*dst = append(*dst, syntax.NewNode(syntax.KindInstr, kids...))
}

// block parses a plain block, loop or if through its 'end'.
func (p *Parser) block(dst *[]*syntax.Node, op opcode.Op) {
	p.trivia(dst)
	kids := []*syntax.Node{p.leaf()}
	p.name(&kids, syntax.SpaceLabel)
	p.blockType(&kids)

	stop := p.body(&kids, Instr, true)
	if stop == "else" && op.Name == "if" {
		p.next(&kids)
		p.labelEcho(&kids)
		stop = p.body(&kids, Instr, true)
	}
	for stop == "else" {
		p.junk(&kids, fmt.Sprintf("'else' is not allowed in '%s'", op.Name))
		stop = p.body(&kids, Instr, true)
	}
	if stop != "end" {
		n := syntax.NewNode(syntax.KindBlock, kids...)
		*dst = append(*dst, syntax.NewError(fmt.Sprintf("missing 'end' for '%s'", op.Name), n))
		return
	}
	p.next(&kids)
	p.labelEcho(&kids)
	*dst = append(*dst, syntax.NewNode(syntax.KindBlock, kids...))
}

// labelEcho parses the optional label repeated after 'else' or 'end'.
func (p *Parser) labelEcho(kids *[]*syntax.Node) {
	p.name(kids, syntax.SpaceLabel)
}

// blockType parses (type ...), (param ...) and (result ...) forms that follow
// a block keyword or call_indirect.
func (p *Parser) blockType(kids *[]*syntax.Node) {
	for p.peek().Kind == token.LParen {
		switch p.peekAt(1).Text {
		case "type", "param", "result":
			p.form(kids, Instr)
		default:
			return
		}
	}
}

// instrForm parses a form in instruction position: a folded instruction, a
// block type, or then/else clauses of a folded if.
func (p *Parser) instrForm(dst *[]*syntax.Node, ctx Context) {
	kw := p.peekAt(1).Text
	switch kw {
	case "then", "else":
		if ctx != IfBody {
			p.skipForm(dst, fmt.Sprintf("'(%s ...)' is only allowed inside a folded 'if'", kw))
			return
		}
		kind := syntax.KindThen
		if kw == "else" {
			kind = syntax.KindElse
		}
		kids := p.begin()
		p.body(&kids, Instr, false)
		p.close(dst, kind, kids)
		return
	case "type":
		p.use(dst, syntax.KindTypeUse, syntax.SpaceType)
		return
	case "param":
		p.param(dst, syntax.KindParam)
		return
	case "result":
		p.param(dst, syntax.KindResult)
		return
	}

	op, ok := opcode.Find(kw)
	if !ok {
		p.skipForm(dst, fmt.Sprintf("unknown instruction '%s'", kw))
		return
	}
	kids := p.begin()
	switch {
	case op.Name == "if":
		p.name(&kids, syntax.SpaceLabel)
		p.forms(&kids, IfBody)
	case op.Imm == opcode.ImmBlock:
		p.name(&kids, syntax.SpaceLabel)
		p.body(&kids, Instr, false)
	default:
		p.immediates(&kids, op)
		p.forms(&kids, Instr)
	}
	p.close(dst, syntax.KindFoldedInstr, kids)
}

// immediates parses the immediates op takes, per the opcode table.
func (p *Parser) immediates(kids *[]*syntax.Node, op opcode.Op) {
	switch op.Imm {
	case opcode.ImmLocal:
		p.idx(kids, syntax.SpaceLocal, true)
	case opcode.ImmGlobal:
		p.idx(kids, syntax.SpaceGlobal, true)
	case opcode.ImmFunc:
		p.idx(kids, syntax.SpaceFunc, true)
	case opcode.ImmLabel:
		p.idx(kids, syntax.SpaceLabel, true)
	case opcode.ImmData:
		p.idx(kids, syntax.SpaceData, true)
	case opcode.ImmElem:
		p.idx(kids, syntax.SpaceElem, true)
	case opcode.ImmLabels:
		if p.idx(kids, syntax.SpaceLabel, true) {
			for p.idx(kids, syntax.SpaceLabel, false) {
			}
		}
	case opcode.ImmI32, opcode.ImmI64, opcode.ImmF32, opcode.ImmF64:
		p.number(kids, op.Imm)
	case opcode.ImmMemarg:
		p.memarg(kids, op)
	case opcode.ImmMemIdx:
		p.idx(kids, syntax.SpaceMemory, false)
	case opcode.ImmTable:
		p.idx(kids, syntax.SpaceTable, false)
	case opcode.ImmCallIndirect:
		p.idx(kids, syntax.SpaceTable, false)
		p.blockType(kids)
	case opcode.ImmSelect:
		p.blockType(kids)
	case opcode.ImmHeapType:
		t := p.peek()
		if t.Kind == token.Keyword && (t.Text == "func" || t.Text == "extern") {
			p.next(kids)
			return
		}
		*kids = append(*kids, syntax.NewError("expected heap type 'func' or 'extern'"))
	case opcode.ImmTableInit:
		p.segmentPair(kids, syntax.SpaceTable, syntax.SpaceElem, true)
	case opcode.ImmMemInit:
		p.segmentPair(kids, syntax.SpaceMemory, syntax.SpaceData, true)
	case opcode.ImmTableCopy:
		p.segmentPair(kids, syntax.SpaceTable, syntax.SpaceTable, false)
	case opcode.ImmMemCopy:
		p.segmentPair(kids, syntax.SpaceMemory, syntax.SpaceMemory, false)
	}
}

// segmentPair parses the two-index immediates of the bulk instructions. With
// single set, one index alone names the second space (table.init $elem);
// otherwise the indices come in pairs or not at all (table.copy).
func (p *Parser) segmentPair(kids *[]*syntax.Node, first, second syntax.Space, single bool) {
	n := 0
	if isIndex(p.peekAt(0)) {
		n++
		if isIndex(p.peekAt(1)) {
			n++
		}
	}
	switch {
	case n == 2:
		p.idx(kids, first, true)
		p.idx(kids, second, true)
	case n == 1 && single:
		p.idx(kids, second, true)
	case n == 1:
		p.idx(kids, first, true)
		*kids = append(*kids, syntax.NewError(fmt.Sprintf("expected a second %s index", second)))
	case single:
		*kids = append(*kids, syntax.NewError(fmt.Sprintf("expected %s index", second)))
	}
}

// number parses the literal of a const instruction.
func (p *Parser) number(kids *[]*syntax.Node, imm opcode.ImmKind) {
	t := p.peek()
	var what string
	var err error
	switch imm {
	case opcode.ImmI32:
		what = "i32"
		if t.Kind == token.Integer {
			_, err = token.ParseI32(t.Text)
		}
	case opcode.ImmI64:
		what = "i64"
		if t.Kind == token.Integer {
			_, err = token.ParseI64(t.Text)
		}
	case opcode.ImmF32:
		what = "f32"
		if t.Kind.IsNumber() {
			_, err = token.ParseF32Bits(t.Text)
		}
	default:
		what = "f64"
		if t.Kind.IsNumber() {
			_, err = token.ParseF64Bits(t.Text)
		}
	}
	integer := imm == opcode.ImmI32 || imm == opcode.ImmI64
	if (integer && t.Kind != token.Integer) || (!integer && !t.Kind.IsNumber()) {
		if t.Kind == token.Float && integer {
			leaf := p.take(kids)
			*kids = append(*kids, syntax.NewError(fmt.Sprintf("expected %s literal, found %s", what, t.Text), leaf))
			return
		}
		*kids = append(*kids, syntax.NewError(fmt.Sprintf("expected %s literal", what)))
		return
	}
	leaf := p.take(kids)
	if err != nil {
		*kids = append(*kids, syntax.NewError(err.Error(), leaf))
		return
	}
	*kids = append(*kids, leaf)
}

// memarg parses the optional memory index and offset=/align= of a load or
// store.
func (p *Parser) memarg(kids *[]*syntax.Node, op opcode.Op) {
	p.idx(kids, syntax.SpaceMemory, false)

	if t := p.peek(); t.Kind == token.Keyword && strings.HasPrefix(t.Text, "offset=") {
		leaf := p.take(kids)
		if _, err := token.ParseU32(strings.TrimPrefix(t.Text, "offset=")); err != nil {
			*kids = append(*kids, syntax.NewError("invalid memory offset: "+t.Text, leaf))
		} else {
			*kids = append(*kids, syntax.NewNode(syntax.KindOffseteq, leaf))
		}
	}

	if t := p.peek(); t.Kind == token.Keyword && strings.HasPrefix(t.Text, "align=") {
		leaf := p.take(kids)
		v, err := token.ParseU32(strings.TrimPrefix(t.Text, "align="))
		switch {
		case err != nil || v == 0 || v&(v-1) != 0:
			*kids = append(*kids, syntax.NewError("alignment must be a power of two: "+t.Text, leaf))
		case v > 1<<op.NaturalAlign:
			*kids = append(*kids, syntax.NewError(fmt.Sprintf("alignment %d exceeds natural alignment %d of '%s'", v, 1<<op.NaturalAlign, op.Name), leaf))
		default:
			*kids = append(*kids, syntax.NewNode(syntax.KindAligneq, leaf))
		}
	}
}
