package token

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// digits reports whether s is a non-empty digit sequence with single underscores
// between digits.
func digits(s string, hex bool) bool {
	if s == "" {
		return false
	}
	prevDigit := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			if !prevDigit || i == len(s)-1 {
				return false
			}
			prevDigit = false
			continue
		}
		if !isDigit(c, hex) {
			return false
		}
		prevDigit = true
	}
	return true
}

func isDigit(c byte, hex bool) bool {
	if c >= '0' && c <= '9' {
		return true
	}
	return hex && ((c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F'))
}

func trimSign(s string) string {
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		return s[1:]
	}
	return s
}

func isIntegerWord(word string) bool {
	s := trimSign(word)
	if rest, ok := strings.CutPrefix(s, "0x"); ok {
		return digits(rest, true)
	}
	return digits(s, false)
}

func isFloatWord(word string) bool {
	s := trimSign(word)
	switch {
	case s == "inf" || s == "nan":
		return true
	case strings.HasPrefix(s, "nan:0x"):
		return digits(s[len("nan:0x"):], true)
	}

	hex := false
	if rest, ok := strings.CutPrefix(s, "0x"); ok {
		hex = true
		s = rest
	}
	expChars := "eE"
	if hex {
		expChars = "pP"
	}

	mantissa, exp := s, ""
	hasExp := false
	if i := strings.IndexAny(s, expChars); i >= 0 {
		mantissa, exp = s[:i], s[i+1:]
		hasExp = true
	}
	intPart, fracPart, hasDot := strings.Cut(mantissa, ".")
	if !digits(intPart, hex) {
		return false
	}
	if fracPart != "" && !digits(fracPart, hex) {
		return false
	}
	if hasExp && !digits(trimSign(exp), false) {
		return false
	}
	return hasDot || hasExp
}

func cleanDigits(s string) string {
	return strings.ReplaceAll(s, "_", "")
}

// ParseU32 parses an unsigned index or alignment literal.
func ParseU32(text string) (uint32, error) {
	v, err := parseMagnitude(text, 32)
	if err != nil {
		return 0, err
	}
	if len(text) > 0 && (text[0] == '-' || text[0] == '+') {
		return 0, fmt.Errorf("invalid unsigned integer: %s", text)
	}
	return uint32(v), nil
}

// ParseI32 parses an i32 literal. Values in the unsigned range are accepted and
// reinterpreted, as the text format allows.
func ParseI32(text string) (int32, error) {
	neg, mag, err := parseSigned(text, 32)
	if errors.Is(err, errRange) {
		return 0, fmt.Errorf("i32 constant out of range: %s", text)
	}
	if err != nil {
		return 0, err
	}
	if neg {
		if mag > 1<<31 {
			return 0, fmt.Errorf("i32 constant out of range: %s", text)
		}
		return int32(-int64(mag)), nil
	}
	return int32(uint32(mag)), nil
}

// ParseI64 parses an i64 literal with the same reinterpretation rule as ParseI32.
func ParseI64(text string) (int64, error) {
	neg, mag, err := parseSigned(text, 64)
	if errors.Is(err, errRange) {
		return 0, fmt.Errorf("i64 constant out of range: %s", text)
	}
	if err != nil {
		return 0, err
	}
	if neg {
		if mag > 1<<63 {
			return 0, fmt.Errorf("i64 constant out of range: %s", text)
		}
		return int64(-mag), nil
	}
	return int64(mag), nil
}

func parseSigned(text string, bits int) (bool, uint64, error) {
	neg := strings.HasPrefix(text, "-")
	mag, err := parseMagnitude(trimSign(text), bits)
	return neg, mag, err
}

var errRange = errors.New("out of range")

func parseMagnitude(text string, bits int) (uint64, error) {
	s := cleanDigits(trimSign(text))
	base := 10
	if rest, ok := strings.CutPrefix(s, "0x"); ok {
		s = rest
		base = 16
	}
	v, err := strconv.ParseUint(s, base, bits)
	if errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("%w: %s", errRange, text)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", text)
	}
	return v, nil
}

// ParseF32Bits parses a float literal (or an integer literal used as a float)
// and returns its IEEE 754 bit pattern, preserving NaN payloads.
func ParseF32Bits(text string) (uint32, error) {
	neg := strings.HasPrefix(text, "-")
	s := trimSign(text)
	var sign uint32
	if neg {
		sign = 1 << 31
	}
	switch {
	case s == "inf":
		return sign | 0x7F800000, nil
	case s == "nan":
		return sign | 0x7FC00000, nil
	case strings.HasPrefix(s, "nan:0x"):
		payload, err := strconv.ParseUint(cleanDigits(s[len("nan:0x"):]), 16, 32)
		if err != nil || payload == 0 || payload >= 1<<23 {
			return 0, fmt.Errorf("invalid f32 NaN payload: %s", text)
		}
		return sign | 0x7F800000 | uint32(payload), nil
	}
	v, err := strconv.ParseFloat(goFloat(text), 32)
	if err != nil && !isRangeErr(err) {
		return 0, fmt.Errorf("invalid f32: %s", text)
	}
	return math.Float32bits(float32(v)), nil
}

// ParseF64Bits is the f64 counterpart of ParseF32Bits.
func ParseF64Bits(text string) (uint64, error) {
	neg := strings.HasPrefix(text, "-")
	s := trimSign(text)
	var sign uint64
	if neg {
		sign = 1 << 63
	}
	switch {
	case s == "inf":
		return sign | 0x7FF0000000000000, nil
	case s == "nan":
		return sign | 0x7FF8000000000000, nil
	case strings.HasPrefix(s, "nan:0x"):
		payload, err := strconv.ParseUint(cleanDigits(s[len("nan:0x"):]), 16, 64)
		if err != nil || payload == 0 || payload >= 1<<52 {
			return 0, fmt.Errorf("invalid f64 NaN payload: %s", text)
		}
		return sign | 0x7FF0000000000000 | payload, nil
	}
	v, err := strconv.ParseFloat(goFloat(text), 64)
	if err != nil && !isRangeErr(err) {
		return 0, fmt.Errorf("invalid f64: %s", text)
	}
	return math.Float64bits(v), nil
}

// goFloat rewrites a literal into the syntax strconv accepts: no underscores,
// and hex mantissas always carry a binary exponent.
func goFloat(text string) string {
	s := cleanDigits(text)
	body := trimSign(s)
	if strings.HasPrefix(body, "0x") && !strings.ContainsAny(body, "pP") {
		s += "p0"
	}
	return s
}

func isRangeErr(err error) bool {
	if ne, ok := err.(*strconv.NumError); ok {
		return ne.Err == strconv.ErrRange
	}
	return false
}
