package token

import (
	"fmt"
	"unicode/utf8"
)

// Unquote decodes a string literal token (including its quotes) into bytes.
// Supported escapes: \t \n \r \" \' \\, \hh byte escapes and \u{hex} code points.
func Unquote(text string) ([]byte, error) {
	if len(text) < 2 || text[0] != '"' || text[len(text)-1] != '"' {
		return nil, fmt.Errorf("malformed string literal")
	}
	s := text[1 : len(text)-1]
	result := make([]byte, 0, len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			result = append(result, c)
			continue
		}
		if i+1 >= len(s) {
			return nil, fmt.Errorf("dangling escape at end of string")
		}
		i++
		switch e := s[i]; {
		case e == 't':
			result = append(result, '\t')
		case e == 'n':
			result = append(result, '\n')
		case e == 'r':
			result = append(result, '\r')
		case e == '"', e == '\'', e == '\\':
			result = append(result, e)
		case e == 'u':
			if i+1 >= len(s) || s[i+1] != '{' {
				return nil, fmt.Errorf("malformed unicode escape")
			}
			end := i + 2
			for end < len(s) && s[end] != '}' {
				end++
			}
			if end >= len(s) || !digits(s[i+2:end], true) {
				return nil, fmt.Errorf("malformed unicode escape")
			}
			var cp rune
			for _, h := range cleanDigits(s[i+2 : end]) {
				cp = cp*16 + rune(hexValue(byte(h)))
				if cp > utf8.MaxRune {
					return nil, fmt.Errorf("unicode escape out of range")
				}
			}
			if !utf8.ValidRune(cp) {
				return nil, fmt.Errorf("invalid code point U+%X", cp)
			}
			result = utf8.AppendRune(result, cp)
			i = end
		case isDigit(e, true) && i+1 < len(s) && isDigit(s[i+1], true):
			result = append(result, hexValue(e)<<4|hexValue(s[i+1]))
			i++
		default:
			return nil, fmt.Errorf("unknown escape \\%c", e)
		}
	}
	return result, nil
}

func hexValue(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
