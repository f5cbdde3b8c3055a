package scanner

import (
	"strconv"
	"strings"

	"github.com/orus-lang/orus/lang/token"
)

func isDecimal(rn rune) bool { return '0' <= rn && rn <= '9' }

func isHexadecimal(rn rune) bool {
	return isDecimal(rn) || 'a' <= lower(rn) && lower(rn) <= 'f'
}

// number scans an integer or floating-point literal starting at s.cur: an
// optional 0x prefix, digits with `_` separators, an optional fractional
// part and decimal exponent, and a trailing type suffix (i32, i64, u32,
// u64, f64, or u).
func (s *Scanner) number(tokVal *token.Value, pos token.Pos) token.Token {
	start := s.off
	isFloat := false
	base := 10

	if s.cur == '0' && lower(rune(s.peekByte())) == 'x' {
		s.advance() // '0'
		s.advance() // 'x'
		base = 16
		s.digits(isHexadecimal)
	} else {
		s.digits(isDecimal)
		if s.cur == '.' && isDecimal(rune(s.peekByte())) {
			isFloat = true
			s.advance() // '.'
			s.digits(isDecimal)
		}
		if s.cur == 'e' || s.cur == 'E' {
			isFloat = true
			s.advance()
			if s.cur == '+' || s.cur == '-' {
				s.advance()
			}
			s.digits(isDecimal)
		}
	}

	digitsEnd := s.off
	lit := strings.ReplaceAll(string(s.src[start:digitsEnd]), "_", "")
	suffix := s.numberSuffix()

	val := token.Value{Raw: string(s.src[start:s.off]), Pos: pos, Suffix: suffix}
	tok := token.INT
	if isFloat || suffix == token.SUFFIX_F64 {
		tok = token.FLOAT
		if base == 16 {
			s.errorf(start, "hexadecimal floating-point literals are not supported")
		}
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			s.errorf(start, "malformed floating-point literal: %s", err)
		}
		val.Float = f
	} else {
		digits := lit
		if base == 16 {
			digits = lit[2:]
		}
		n, err := strconv.ParseUint(digits, base, 64)
		if err != nil {
			s.errorf(start, "malformed integer literal: %s", err)
		}
		val.Int = int64(n)
	}
	*tokVal = val
	return tok
}

// digits consumes a run of digits (per accept) interspersed with `_`
// separators, erroring on a leading, trailing, or doubled separator.
func (s *Scanner) digits(accept func(rune) bool) {
	sawDigit := false
	for accept(s.cur) || s.cur == '_' {
		if s.cur == '_' {
			if !sawDigit {
				s.errorf(s.off, "'_' must separate successive digits")
			}
			sawDigit = false
		} else {
			sawDigit = true
		}
		s.advance()
	}
}

// numberSuffix recognizes an explicit type suffix directly following a
// numeric literal with no intervening whitespace, consuming it from the
// input if present.
func (s *Scanner) numberSuffix() token.Token {
	if !isLetter(s.cur) {
		return token.ILLEGAL
	}
	start := s.off
	for isLetter(s.cur) || isDigit(s.cur) {
		s.advance()
	}
	lit := string(s.src[start:s.off])
	suf := token.LookupNumberSuffix(lit)
	if suf == token.ILLEGAL {
		s.errorf(start, "invalid numeric literal suffix %q", lit)
	}
	return suf
}
