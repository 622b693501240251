// Package parser builds the concrete syntax tree for WebAssembly text.
//
// The parser is recursive descent over S-expressions and never fails: input it
// cannot make sense of is kept in Error nodes, so the tree always covers the
// whole source. The production chosen for a parenthesized form depends only on
// the form's keyword and on the kind of node that contains it (its Context),
// which is what lets the reparser rebuild one form in isolation.
package parser

import (
	"fmt"
	"unicode/utf8"

	"github.com/wippyai/wat-engine/wat/syntax"
	"github.com/wippyai/wat-engine/wat/token"
)

// Context selects which productions a parenthesized form may start.
type Context uint8

const (
	None        Context = iota // no forms expected
	Top                        // source file: module or bare module fields
	ModuleField                // inside (module ...)
	FuncField                  // inside (func ...)
	ImportDesc                 // inside (import "m" "n" ...)
	DescField                  // inside an import descriptor
	TypeDef                    // inside (type ...)
	Sig                        // inside (func ...) of a type definition
	TableField                 // inside (table ...)
	MemoryField                // inside (memory ...)
	GlobalField                // inside (global ...)
	ExportDesc                 // inside (export "n" ...)
	ElemField                  // inside (elem ...)
	DataField                  // inside (data ...)
	Instr                      // instruction sequences and operands
	IfBody                     // inside a folded (if ...)
)

// ContextOf returns the context in which the children of parent were parsed.
func ContextOf(parent *syntax.Node) Context {
	switch parent.Kind() {
	case syntax.KindSourceFile:
		return Top
	case syntax.KindModule:
		return ModuleField
	case syntax.KindFuncDecl:
		return FuncField
	case syntax.KindImportDecl:
		return ImportDesc
	case syntax.KindImportDesc:
		return DescField
	case syntax.KindTypeDecl:
		return TypeDef
	case syntax.KindFuncType:
		return Sig
	case syntax.KindTableDecl:
		return TableField
	case syntax.KindMemoryDecl:
		return MemoryField
	case syntax.KindGlobalDecl:
		return GlobalField
	case syntax.KindExportDecl:
		return ExportDesc
	case syntax.KindElemDecl, syntax.KindInlineElem:
		return ElemField
	case syntax.KindDataDecl:
		return DataField
	case syntax.KindFoldedInstr:
		if parent.Keyword() == "if" {
			return IfBody
		}
		return Instr
	case syntax.KindBlock, syntax.KindInstr, syntax.KindThen, syntax.KindElse,
		syntax.KindOffset, syntax.KindItem:
		return Instr
	}
	return None
}

// Parser holds the token stream of one parse, trivia included.
type Parser struct {
	tokens []token.Token
	pos    int
}

func New(src string) *Parser {
	return &Parser{tokens: token.Tokenize(src)}
}

// Parse builds the tree for src. The root is a SourceFile node whose width is
// len(src).
func Parse(src string) *syntax.Node {
	p := New(src)
	var kids []*syntax.Node
	for {
		t := p.peek()
		switch t.Kind {
		case token.EOF:
			p.trivia(&kids)
			return syntax.NewNode(syntax.KindSourceFile, kids...)
		case token.LParen:
			p.form(&kids, Top)
		case token.RParen:
			p.junk(&kids, "unexpected ')' with no matching '('")
		default:
			p.junk(&kids, "unexpected "+describe(t)+" outside of a form")
		}
	}
}

// ParseForm parses text as exactly one parenthesized form in ctx. It reports
// false unless the whole text is consumed by a single complete form and no
// token is an unterminated string or comment.
func ParseForm(text string, ctx Context) (*syntax.Node, bool) {
	if ctx == None {
		return nil, false
	}
	p := New(text)
	if len(p.tokens) == 0 || p.tokens[0].Kind != token.LParen {
		return nil, false
	}
	for _, t := range p.tokens {
		if t.Unterminated() {
			return nil, false
		}
	}
	var kids []*syntax.Node
	p.form(&kids, ctx)
	if len(kids) != 1 || p.pos != len(p.tokens) || !kids[0].IsForm() {
		return nil, false
	}
	return kids[0], true
}

// peek returns the next significant token without consuming anything.
func (p *Parser) peek() token.Token {
	return p.peekAt(0)
}

// peekAt returns the n-th significant token ahead.
func (p *Parser) peekAt(n int) token.Token {
	for i := p.pos; i < len(p.tokens); i++ {
		if p.tokens[i].Kind.IsTrivia() {
			continue
		}
		if n == 0 {
			return p.tokens[i]
		}
		n--
	}
	end := 0
	if len(p.tokens) > 0 {
		end = p.tokens[len(p.tokens)-1].End
	}
	return token.Token{Kind: token.EOF, Start: end, End: end}
}

// trivia moves pending whitespace and comments into dst.
func (p *Parser) trivia(dst *[]*syntax.Node) {
	for p.pos < len(p.tokens) && p.tokens[p.pos].Kind.IsTrivia() {
		*dst = append(*dst, syntax.NewLeaf(p.tokens[p.pos]))
		p.pos++
	}
}

// leaf consumes the current token, which must not be trivia.
func (p *Parser) leaf() *syntax.Node {
	n := syntax.NewLeaf(p.tokens[p.pos])
	p.pos++
	return n
}

// next appends pending trivia and the next significant token to dst.
func (p *Parser) next(dst *[]*syntax.Node) {
	p.trivia(dst)
	if p.pos < len(p.tokens) {
		*dst = append(*dst, p.leaf())
	}
}

// take flushes pending trivia into dst and returns the next token as a leaf
// without appending it, so the caller can wrap it.
func (p *Parser) take(dst *[]*syntax.Node) *syntax.Node {
	p.trivia(dst)
	return p.leaf()
}

// junk consumes one unexpected token. Malformed tokens already carry their own
// message and are kept as bare leaves.
func (p *Parser) junk(dst *[]*syntax.Node, msg string) {
	if p.peek().Kind == token.EOF {
		return
	}
	if p.peek().Kind == token.LParen {
		p.skipForm(dst, msg)
		return
	}
	leaf := p.take(dst)
	if leaf.Message() != "" {
		*dst = append(*dst, leaf)
		return
	}
	*dst = append(*dst, syntax.NewError(msg, leaf))
}

// skipForm consumes a whole parenthesized form, up to its matching ')', into
// an Error node.
func (p *Parser) skipForm(dst *[]*syntax.Node, msg string) {
	p.trivia(dst)
	var kids []*syntax.Node
	depth := 0
	for p.pos < len(p.tokens) {
		t := p.tokens[p.pos]
		kids = append(kids, p.leaf())
		switch t.Kind {
		case token.LParen:
			depth++
		case token.RParen:
			depth--
		}
		if depth == 0 {
			break
		}
	}
	*dst = append(*dst, syntax.NewError(msg, kids...))
}

// begin consumes '(' and the keyword that follows it. The caller has already
// flushed trivia before the '('.
func (p *Parser) begin() []*syntax.Node {
	kids := []*syntax.Node{p.leaf()}
	p.next(&kids)
	return kids
}

// close finishes a form started with begin. Anything left before the ')' is
// reported; a form cut off by the end of input is wrapped in an Error node.
func (p *Parser) close(dst *[]*syntax.Node, kind syntax.Kind, kids []*syntax.Node) {
	p.closeSpaced(dst, kind, syntax.SpaceNone, kids)
}

func (p *Parser) closeSpaced(dst *[]*syntax.Node, kind syntax.Kind, space syntax.Space, kids []*syntax.Node) {
	for {
		t := p.peek()
		switch t.Kind {
		case token.RParen:
			p.next(&kids)
			*dst = append(*dst, syntax.NewSpaced(kind, space, kids...))
			return
		case token.EOF:
			n := syntax.NewSpaced(kind, space, kids...)
			*dst = append(*dst, syntax.NewError(fmt.Sprintf("missing ')' to close '%s'", n.Keyword()), n))
			return
		case token.LParen:
			kw := p.peekAt(1)
			msg := "unexpected form"
			if kw.Kind == token.Keyword {
				msg = fmt.Sprintf("unexpected '%s' form here", kw.Text)
			}
			p.skipForm(&kids, msg)
		default:
			p.junk(&kids, "unexpected "+describe(t))
		}
	}
}

// forms parses consecutive parenthesized forms in ctx.
func (p *Parser) forms(kids *[]*syntax.Node, ctx Context) {
	for p.peek().Kind == token.LParen {
		p.form(kids, ctx)
	}
}

// name parses an optional $identifier binding.
func (p *Parser) name(kids *[]*syntax.Node, space syntax.Space) bool {
	if p.peek().Kind != token.Ident {
		return false
	}
	*kids = append(*kids, syntax.NewSpaced(syntax.KindName, space, p.take(kids)))
	return true
}

func isIndex(t token.Token) bool {
	return t.Kind == token.Ident || t.Kind == token.Integer
}

// idx parses an index: a $identifier or an unsigned integer. When required and
// absent, a zero-width Error marks the spot.
func (p *Parser) idx(kids *[]*syntax.Node, space syntax.Space, required bool) bool {
	t := p.peek()
	if !isIndex(t) {
		if required {
			*kids = append(*kids, syntax.NewError(fmt.Sprintf("expected %s index", space)))
		}
		return false
	}
	leaf := p.take(kids)
	if t.Kind == token.Integer {
		if _, err := token.ParseU32(t.Text); err != nil {
			*kids = append(*kids, syntax.NewError(fmt.Sprintf("invalid %s index %s", space, t.Text), leaf))
			return true
		}
	}
	*kids = append(*kids, syntax.NewSpaced(syntax.KindIdxRef, space, leaf))
	return true
}

// str parses a string literal used as a name, which must decode to UTF-8.
func (p *Parser) str(kids *[]*syntax.Node, what string) bool {
	t := p.peek()
	if t.Kind != token.String {
		*kids = append(*kids, syntax.NewError("expected "+what))
		return false
	}
	leaf := p.take(kids)
	if !t.Malformed() {
		if b, err := token.Unquote(t.Text); err == nil && !utf8.Valid(b) {
			*kids = append(*kids, syntax.NewError(what+" is not valid UTF-8", leaf))
			return true
		}
	}
	*kids = append(*kids, leaf)
	return true
}

func isValType(s string) bool {
	switch s {
	case "i32", "i64", "f32", "f64", "v128", "funcref", "externref":
		return true
	}
	return false
}

func isRefType(s string) bool {
	return s == "funcref" || s == "externref"
}

// valtypes parses value type keywords. limit caps how many are accepted; the
// rest are reported. limit < 0 means no cap.
func (p *Parser) valtypes(kids *[]*syntax.Node, limit int) int {
	n := 0
	for {
		t := p.peek()
		if t.Kind != token.Keyword {
			return n
		}
		leaf := p.take(kids)
		switch {
		case !isValType(t.Text):
			*kids = append(*kids, syntax.NewError(fmt.Sprintf("unknown value type '%s'", t.Text), leaf))
		case limit >= 0 && n >= limit:
			*kids = append(*kids, syntax.NewError("a named entry takes exactly one type", leaf))
		default:
			*kids = append(*kids, leaf)
			n++
		}
	}
}

// limits groups one or two integers into a Limits node.
func (p *Parser) limits(kids *[]*syntax.Node) {
	var lk []*syntax.Node
	p.trivia(kids)
	for i := 0; i < 2 && p.peek().Kind == token.Integer; i++ {
		t := p.peek()
		leaf := p.take(&lk)
		if _, err := token.ParseU32(t.Text); err != nil {
			lk = append(lk, syntax.NewError("limit out of range: "+t.Text, leaf))
			continue
		}
		lk = append(lk, leaf)
	}
	*kids = append(*kids, syntax.NewNode(syntax.KindLimits, lk...))
}

func describe(t token.Token) string {
	switch t.Kind {
	case token.Keyword:
		return fmt.Sprintf("keyword '%s'", t.Text)
	case token.Ident:
		return fmt.Sprintf("identifier '%s'", t.Text)
	case token.Integer, token.Float:
		return "number " + t.Text
	case token.String:
		return "string " + t.Text
	}
	return t.Kind.String()
}
