package token

import (
	"iter"
	"unicode/utf8"
)

// Kind classifies a token.
type Kind uint8

const (
	EOF Kind = iota
	LParen
	RParen
	Keyword
	Ident
	Integer
	Float
	String
	Reserved
	Whitespace
	LineComment
	BlockComment
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "end of input"
	case LParen:
		return "'('"
	case RParen:
		return "')'"
	case Keyword:
		return "keyword"
	case Ident:
		return "identifier"
	case Integer:
		return "integer"
	case Float:
		return "float"
	case String:
		return "string"
	case Reserved:
		return "reserved token"
	case Whitespace:
		return "whitespace"
	case LineComment:
		return "line comment"
	case BlockComment:
		return "block comment"
	}
	return "unknown"
}

// IsTrivia reports whether tokens of this kind carry no syntax.
func (k Kind) IsTrivia() bool {
	return k == Whitespace || k == LineComment || k == BlockComment
}

// IsNumber reports whether the kind is a numeric literal.
func (k Kind) IsNumber() bool {
	return k == Integer || k == Float
}

// Token is one lexeme. Start and End are byte offsets into the source the lexer
// was created with; Text is the exact source slice, so concatenating the text of
// all tokens reproduces the input.
type Token struct {
	Text  string
	Err   string
	Start int
	End   int
	Kind  Kind
}

// Malformed reports whether the lexer flagged this token.
func (t Token) Malformed() bool {
	return t.Err != ""
}

// Unterminated reports whether the token is a string or block comment cut off
// by a newline or the end of input.
func (t Token) Unterminated() bool {
	return t.Err == errUnterminatedString || t.Err == errUnterminatedComment
}

const (
	errUnterminatedString  = "unterminated string literal"
	errUnterminatedComment = "unterminated block comment"
	errReserved            = "reserved token"
	errUnexpectedChar      = "unexpected character"
)

// Lexer produces tokens on demand. It never fails: malformed input becomes tokens
// with Err set.
type Lexer struct {
	src string
	pos int
}

// New returns a lexer reading src from offset. offset must be a token boundary
// (0, or the End of a previously produced token) for the result to match a lexer
// started at 0.
func New(src string, offset int) *Lexer {
	if offset < 0 {
		offset = 0
	}
	if offset > len(src) {
		offset = len(src)
	}
	return &Lexer{src: src, pos: offset}
}

// Offset returns the byte offset of the next token.
func (l *Lexer) Offset() int {
	return l.pos
}

// Next returns the next token, or an EOF token once the input is exhausted.
func (l *Lexer) Next() Token {
	start := l.pos
	if start >= len(l.src) {
		return Token{Kind: EOF, Start: start, End: start}
	}

	kind, errMsg := l.scan()
	return Token{
		Kind:  kind,
		Start: start,
		End:   l.pos,
		Text:  l.src[start:l.pos],
		Err:   errMsg,
	}
}

func (l *Lexer) scan() (Kind, string) {
	src := l.src
	c := src[l.pos]

	switch {
	case isSpace(c):
		for l.pos < len(src) && isSpace(src[l.pos]) {
			l.pos++
		}
		return Whitespace, ""

	case c == ';' && l.peekAt(1) == ';':
		for l.pos < len(src) && src[l.pos] != '\n' {
			l.pos++
		}
		return LineComment, ""

	case c == '(' && l.peekAt(1) == ';':
		return l.scanBlockComment()

	case c == '(':
		l.pos++
		return LParen, ""

	case c == ')':
		l.pos++
		return RParen, ""

	case c == '"':
		return l.scanString()

	case isIDChar(c):
		start := l.pos
		for l.pos < len(src) && isIDChar(src[l.pos]) {
			l.pos++
		}
		return classify(src[start:l.pos])
	}

	// Anything else: consume a run of characters that cannot start a token.
	for l.pos < len(src) {
		c := src[l.pos]
		if isSpace(c) || c == '(' || c == ')' || c == '"' || isIDChar(c) ||
			(c == ';' && l.peekAt(1) == ';') {
			break
		}
		_, size := utf8.DecodeRuneInString(src[l.pos:])
		l.pos += size
	}
	return Reserved, errUnexpectedChar
}

func (l *Lexer) peekAt(n int) byte {
	if l.pos+n < len(l.src) {
		return l.src[l.pos+n]
	}
	return 0
}

func (l *Lexer) scanBlockComment() (Kind, string) {
	src := l.src
	depth := 1
	l.pos += 2
	for l.pos < len(src) {
		switch {
		case src[l.pos] == '(' && l.peekAt(1) == ';':
			depth++
			l.pos += 2
		case src[l.pos] == ';' && l.peekAt(1) == ')':
			depth--
			l.pos += 2
			if depth == 0 {
				return BlockComment, ""
			}
		default:
			l.pos++
		}
	}
	return BlockComment, errUnterminatedComment
}

// scanString stops at a raw newline: string literals cannot contain one, and
// ending there keeps a missing quote from swallowing the rest of the file.
func (l *Lexer) scanString() (Kind, string) {
	src := l.src
	start := l.pos
	l.pos++
	for l.pos < len(src) {
		switch src[l.pos] {
		case '"':
			l.pos++
			if _, err := Unquote(src[start:l.pos]); err != nil {
				return String, "invalid string literal: " + err.Error()
			}
			return String, ""
		case '\n':
			return String, errUnterminatedString
		case '\\':
			if l.pos+1 < len(src) && src[l.pos+1] != '\n' {
				l.pos += 2
				continue
			}
			l.pos++
		default:
			l.pos++
		}
	}
	return String, errUnterminatedString
}

func classify(word string) (Kind, string) {
	switch {
	case word[0] == '$':
		if len(word) > 1 {
			return Ident, ""
		}
		return Reserved, errReserved
	case isFloatWord(word):
		return Float, ""
	case word[0] >= 'a' && word[0] <= 'z':
		return Keyword, ""
	case isIntegerWord(word):
		return Integer, ""
	}
	return Reserved, errReserved
}

// All yields the tokens of src lazily, stopping before EOF.
func All(src string) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		l := New(src, 0)
		for {
			t := l.Next()
			if t.Kind == EOF || !yield(t) {
				return
			}
		}
	}
}

// Tokenize returns every token of src, excluding EOF.
func Tokenize(src string) []Token {
	var tokens []Token
	for t := range All(src) {
		tokens = append(tokens, t)
	}
	return tokens
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIDChar(c byte) bool {
	switch {
	case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	}
	switch c {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '/', ':', '<', '=', '>',
		'?', '@', '\\', '^', '_', '`', '|', '~':
		return true
	}
	return false
}

// Span returns the byte range of the token.
func (t Token) Span() Span {
	return Span{Start: t.Start, End: t.End}
}
