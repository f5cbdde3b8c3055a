// Some of the scanner package's structure (mutable scanning state, rune
// decoding, in-band error token reporting) is adapted from the Go source
// code: https://cs.opensource.google/go/go/+/refs/tags/go1.22.1:src/go/scanner/scanner.go
//
// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scanner tokenizes Orus source, synthesizing INDENT/DEDENT/NEWLINE
// tokens from leading whitespace the way Python's tokenizer does, for the
// parser to consume.
package scanner

import (
	"bytes"
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/orus-lang/orus/lang/token"
)

// Scanner tokenizes one source file for the parser to consume.
type Scanner struct {
	// immutable state after Init
	file *token.File
	src  []byte
	err  func(pos token.Position, msg string)

	// mutable scanning state
	cur  rune // current character, -1 at EOF
	off  int  // byte offset of cur
	roff int  // reading offset (offset just after cur)

	invalidByte byte

	// indentation stack; indents[0] is always 0. atLineStart is true when the
	// scanner has not yet measured the indentation of the logical line it is
	// positioned at (start of file, or right after a NEWLINE).
	indents        []int
	atLineStart    bool
	pendingDedents int
	parenDepth     int // nesting depth of (), [], {}; indentation is ignored inside
}

// Init initializes the scanner to tokenize a new file.
func (s *Scanner) Init(file *token.File, src []byte, errHandler func(token.Position, string)) {
	if file.Size() != len(src) {
		panic(fmt.Sprintf("file size (%d) does not match src len (%d)", file.Size(), len(src)))
	}
	s.file = file
	s.src = src
	s.err = errHandler
	s.indents = []int{0}
	s.atLineStart = true
	s.pendingDedents = 0
	s.parenDepth = 0
	s.cur = ' '
	s.off = 0
	s.roff = 0
	s.advance()
}

func (s *Scanner) peekByte() byte {
	if s.roff < len(s.src) {
		return s.src[s.roff]
	}
	return 0
}

func (s *Scanner) advance() {
	if s.roff >= len(s.src) {
		s.off = len(s.src)
		if s.cur == '\n' {
			s.file.AddLine(s.off - 1)
		}
		s.cur = -1
		return
	}
	s.off = s.roff
	if s.cur == '\n' {
		s.file.AddLine(s.off - 1)
	}
	s.invalidByte = 0
	r, w := rune(s.src[s.roff]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRune(s.src[s.roff:])
		if r == utf8.RuneError && w == 1 {
			s.error(s.off, "illegal UTF-8 encoding")
			s.invalidByte = s.src[s.roff]
		}
	}
	s.roff += w
	s.cur = r
}

func (s *Scanner) error(off int, msg string) {
	if s.err != nil {
		s.err(s.file.Position(s.file.Pos(off)), msg)
	}
}

func (s *Scanner) errorf(off int, format string, args ...any) {
	s.error(off, fmt.Sprintf(format, args...))
}

func (s *Scanner) advanceIf(matches ...byte) bool {
	if s.cur >= 0 && s.cur < utf8.RuneSelf && bytes.IndexByte(matches, byte(s.cur)) >= 0 {
		s.advance()
		return true
	}
	return false
}

// Scan returns the next token, filling tokVal with its payload.
func (s *Scanner) Scan(tokVal *token.Value) (tok token.Token) {
	if s.atLineStart && s.parenDepth == 0 {
		if t, ok := s.scanIndentation(tokVal); ok {
			return t
		}
	}
	if s.pendingDedents > 0 {
		s.pendingDedents--
		pos := s.file.Pos(s.off)
		*tokVal = token.Value{Pos: pos}
		return token.DEDENT
	}

	s.skipSpaces()

	pos := s.file.Pos(s.off)
	start := s.off

	switch cur := s.cur; {
	case isLetter(cur):
		lit := s.ident()
		tok = token.IDENT
		if len(lit) > 1 {
			tok = token.LookupIdent(lit)
		}
		*tokVal = token.Value{Raw: lit, Pos: pos}
		return tok

	case isDecimal(cur) || (cur == '.' && isDecimal(rune(s.peekByte()))):
		return s.number(tokVal, pos)

	case cur == '"':
		tok = token.STRING
		lit, val := s.shortString()
		*tokVal = token.Value{Raw: lit, Pos: pos, String: val}
		return tok
	}

	cur := s.cur
	s.advance()
	switch cur {
	case '\n':
		*tokVal = token.Value{Raw: "\n", Pos: pos}
		s.atLineStart = true
		return token.NEWLINE

	case '+':
		tok = token.PLUS
		if s.advanceIf('=') {
			tok = token.PLUSEQ
		}
	case '-':
		tok = token.MINUS
		if s.advanceIf('=') {
			tok = token.MINUSEQ
		} else if s.advanceIf('>') {
			tok = token.ARROW
		}
	case '*':
		tok = token.STAR
		if s.advanceIf('=') {
			tok = token.STAREQ
		}
	case '/':
		tok = token.SLASH
		if s.advanceIf('/') {
			lit := s.lineComment(start)
			*tokVal = token.Value{Raw: lit, Pos: pos}
			return token.COMMENT
		} else if s.advanceIf('=') {
			tok = token.SLASHEQ
		}
	case '%':
		tok = token.PERCENT
		if s.advanceIf('=') {
			tok = token.PERCENTEQ
		}
	case '&':
		tok = token.AMPERSAND
	case '|':
		tok = token.PIPE
	case '^':
		tok = token.CIRCUMFLEX
	case '~':
		tok = token.TILDE
	case '.':
		tok = token.DOT
		if s.advanceIf('.') {
			tok = token.DOTDOT
		}
	case ',':
		tok = token.COMMA
	case '=':
		tok = token.EQ
		if s.advanceIf('=') {
			tok = token.EQEQ
		}
	case ':':
		tok = token.COLON
		if s.advanceIf(':') {
			tok = token.COLONCOLON
		}
	case ';':
		tok = token.SEMI
	case '(':
		tok = token.LPAREN
		s.parenDepth++
	case ')':
		tok = token.RPAREN
		if s.parenDepth > 0 {
			s.parenDepth--
		}
	case '[':
		tok = token.LBRACK
		s.parenDepth++
	case ']':
		tok = token.RBRACK
		if s.parenDepth > 0 {
			s.parenDepth--
		}
	case '{':
		tok = token.LBRACE
		s.parenDepth++
	case '}':
		tok = token.RBRACE
		if s.parenDepth > 0 {
			s.parenDepth--
		}
	case '<':
		tok = token.LT
		if s.advanceIf('=') {
			tok = token.LE
		} else if s.advanceIf('<') {
			tok = token.LTLT
		}
	case '>':
		tok = token.GT
		if s.advanceIf('=') {
			tok = token.GE
		} else if s.advanceIf('>') {
			tok = token.GTGT
		}
	case '!':
		tok = token.BANG
		if s.advanceIf('=') {
			tok = token.BANGEQ
		}
	case '?':
		tok = token.QUESTION
	case -1:
		if len(s.indents) > 1 {
			s.pendingDedents = len(s.indents) - 1
			s.indents = s.indents[:1]
			*tokVal = token.Value{Pos: pos}
			return token.DEDENT
		}
		*tokVal = token.Value{Pos: pos}
		return token.EOF
	default:
		if cur == utf8.RuneError && s.invalidByte > 0 {
			cur = rune(s.invalidByte)
			s.invalidByte = 0
		}
		s.errorf(start, "illegal character %#U", cur)
		tok = token.ILLEGAL
	}
	*tokVal = token.Value{Raw: string(s.src[start:s.off]), Pos: pos}
	return tok
}

// scanIndentation measures the whitespace at the start of a logical line and
// emits INDENT/DEDENT tokens as needed. It returns ok==false when the line
// is blank, comment-only, or at EOF, in which case no indentation token is
// produced and normal scanning proceeds.
func (s *Scanner) scanIndentation(tokVal *token.Value) (token.Token, bool) {
	pos := s.file.Pos(s.off)
	width := 0
	sawTab, sawSpace := false, false
	for {
		switch s.cur {
		case ' ':
			sawSpace = true
			width++
			s.advance()
			continue
		case '\t':
			sawTab = true
			width += 8 - (width % 8)
			s.advance()
			continue
		}
		break
	}
	if sawTab && sawSpace {
		s.error(s.off, "inconsistent use of tabs and spaces in indentation")
	}

	if s.cur == '\n' || s.cur == -1 || (s.cur == '/' && s.peekByte() == '/') {
		s.atLineStart = false
		return token.ILLEGAL, false
	}

	s.atLineStart = false
	top := s.indents[len(s.indents)-1]
	switch {
	case width > top:
		s.indents = append(s.indents, width)
		*tokVal = token.Value{Pos: pos}
		return token.INDENT, true
	case width < top:
		n := 0
		for len(s.indents) > 1 && s.indents[len(s.indents)-1] > width {
			s.indents = s.indents[:len(s.indents)-1]
			n++
		}
		if s.indents[len(s.indents)-1] != width {
			s.error(s.off, "inconsistent indentation")
			s.indents = append(s.indents, width)
		}
		s.pendingDedents = n - 1
		*tokVal = token.Value{Pos: pos}
		return token.DEDENT, true
	default:
		return token.ILLEGAL, false
	}
}

func (s *Scanner) skipSpaces() {
	for s.cur == ' ' || s.cur == '\t' || s.cur == '\r' {
		s.advance()
	}
}

func (s *Scanner) lineComment(start int) string {
	for s.cur != '\n' && s.cur != -1 {
		s.advance()
	}
	return string(s.src[start:s.off])
}

func (s *Scanner) ident() string {
	start := s.off
	for isLetter(s.cur) || isDigit(s.cur) {
		s.advance()
	}
	return string(s.src[start:s.off])
}

func isLetter(rn rune) bool {
	return 'a' <= rn && rn <= 'z' || 'A' <= rn && rn <= 'Z' || rn == '_' ||
		rn >= utf8.RuneSelf && unicode.IsLetter(rn)
}

func isDigit(rn rune) bool {
	return '0' <= rn && rn <= '9' || rn >= utf8.RuneSelf && unicode.IsDigit(rn)
}

func lower(ch rune) rune { return ('a' - 'A') | ch }
