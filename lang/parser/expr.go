package parser

import (
	"github.com/orus-lang/orus/lang/ast"
	"github.com/orus-lang/orus/lang/token"
)

// Precedence levels, lowest to highest. parseExpr(minPrec) only consumes an
// infix operator whose precedence is >= minPrec, the usual Pratt-parser
// climbing scheme.
const (
	_ = iota
	PrecAssign
	PrecTernary
	PrecOr
	PrecAnd
	PrecEquality
	PrecComparison
	PrecBitOr
	PrecBitXor
	PrecBitAnd
	PrecShift
	PrecTerm
	PrecFactor
	PrecUnary
	PrecCall
)

func infixPrec(tok token.Token) int {
	switch tok {
	case token.QUESTION:
		return PrecTernary
	case token.AS:
		return PrecUnary
	case token.OR:
		return PrecOr
	case token.AND:
		return PrecAnd
	case token.EQEQ, token.BANGEQ:
		return PrecEquality
	case token.LT, token.GT, token.LE, token.GE:
		return PrecComparison
	case token.PIPE:
		return PrecBitOr
	case token.CIRCUMFLEX:
		return PrecBitXor
	case token.AMPERSAND:
		return PrecBitAnd
	case token.LTLT, token.GTGT:
		return PrecShift
	case token.PLUS, token.MINUS:
		return PrecTerm
	case token.STAR, token.SLASH, token.PERCENT:
		return PrecFactor
	case token.LPAREN, token.LBRACK, token.DOT:
		return PrecCall
	}
	return 0
}

// parseExpr parses an expression, consuming infix/suffix operators while
// their precedence is at least minPrec.
func (p *parser) parseExpr(minPrec int) ast.NodeRef {
	left := p.parsePrefix()
	for {
		prec := infixPrec(p.tok)
		if prec < minPrec {
			return left
		}
		switch p.tok {
		case token.QUESTION:
			left = p.parseTernarySuffix(left)
		case token.AS:
			left = p.parseCastSuffix(left)
		case token.LPAREN:
			left = p.parseCallSuffix(left)
		case token.LBRACK:
			left = p.parseIndexSuffix(left)
		case token.DOT:
			left = p.parseSelectorSuffix(left)
		default:
			left = p.parseBinarySuffix(left, prec)
		}
	}
}

func (p *parser) parseBinarySuffix(left ast.NodeRef, prec int) ast.NodeRef {
	op := p.tok
	p.advance()
	right := p.parseExpr(prec + 1)
	return p.arena.NewBinary(op, left, right)
}

// parseTernarySuffix parses "? then : else". Both branches are parsed at
// PrecTernary so "a ? b : c ? d : e" nests as "a ? b : (c ? d : e)".
func (p *parser) parseTernarySuffix(cond ast.NodeRef) ast.NodeRef {
	p.advance()
	then := p.parseExpr(PrecTernary)
	p.expect(token.COLON)
	els := p.parseExpr(PrecTernary)
	return p.arena.NewTernary(cond, then, els)
}

func (p *parser) parseCastSuffix(operand ast.NodeRef) ast.NodeRef {
	p.advance()
	name := p.val.Raw
	p.expect(token.IDENT)
	end := p.val.Pos
	return p.arena.NewCast(operand, name, end)
}

func (p *parser) parseCallSuffix(callee ast.NodeRef) ast.NodeRef {
	p.expect(token.LPAREN)
	var args []ast.NodeRef
	for p.tok != token.RPAREN {
		args = append(args, p.parseExpr(PrecAssign+1))
		if p.tok != token.COMMA {
			break
		}
		p.advance()
	}
	rparen := p.expect(token.RPAREN)
	return p.arena.NewCall(callee, args, rparen)
}

func (p *parser) parseIndexSuffix(base ast.NodeRef) ast.NodeRef {
	p.expect(token.LBRACK)
	idx := p.parseExpr(PrecAssign + 1)
	rbrack := p.expect(token.RBRACK)
	return p.arena.NewIndex(base, idx, rbrack)
}

func (p *parser) parseSelectorSuffix(base ast.NodeRef) ast.NodeRef {
	p.expect(token.DOT)
	field := p.val.Raw
	p.expect(token.IDENT)
	end := p.val.Pos
	return p.arena.NewSelector(base, field, end)
}

func (p *parser) parsePrefix() ast.NodeRef {
	switch p.tok {
	case token.MINUS, token.BANG, token.NOT, token.TILDE:
		op := p.tok
		pos := p.val.Pos
		p.advance()
		operand := p.parseExpr(PrecUnary)
		return p.arena.NewUnary(op, pos, operand)
	case token.INT:
		return p.parseIntLit()
	case token.FLOAT:
		return p.parseFloatLit()
	case token.STRING:
		return p.parseStringLit()
	case token.TRUE:
		return p.parseBoolLit(true)
	case token.FALSE:
		return p.parseBoolLit(false)
	case token.LPAREN:
		return p.parseParenExpr()
	case token.LBRACK:
		return p.parseArrayLit()
	case token.IDENT:
		return p.parseIdentOrCtor()
	default:
		p.errorExpected(p.val.Pos, "expression")
		panic(errPanicMode)
	}
}

func (p *parser) parseIntLit() ast.NodeRef {
	pos, val, suffix := p.val.Pos, p.val.Int, p.val.Suffix
	p.advance()
	return p.arena.NewIntLit(pos, p.val.Pos, val, suffix)
}

func (p *parser) parseFloatLit() ast.NodeRef {
	pos, val := p.val.Pos, p.val.Float
	p.advance()
	return p.arena.NewFloatLit(pos, p.val.Pos, val)
}

func (p *parser) parseStringLit() ast.NodeRef {
	pos, val := p.val.Pos, p.val.String
	p.advance()
	return p.arena.NewStringLit(pos, p.val.Pos, val)
}

func (p *parser) parseBoolLit(b bool) ast.NodeRef {
	pos := p.val.Pos
	p.advance()
	return p.arena.NewBoolLit(pos, p.val.Pos, b)
}

func (p *parser) parseParenExpr() ast.NodeRef {
	lparen := p.expect(token.LPAREN)
	inner := p.parseExpr(PrecAssign + 1)
	rparen := p.expect(token.RPAREN)
	return p.arena.NewParen(lparen, rparen, inner)
}

func (p *parser) parseArrayLit() ast.NodeRef {
	start := p.expect(token.LBRACK)
	var items []ast.NodeRef
	for p.tok != token.RBRACK {
		items = append(items, p.parseExpr(PrecAssign+1))
		if p.tok != token.COMMA {
			break
		}
		p.advance()
	}
	end := p.expect(token.RBRACK)
	return p.arena.NewArrayLit(start, end, items)
}

// parseIdentOrCtor disambiguates a plain identifier from a struct literal
// ("Type { field: expr, ... }") and an enum constructor ("Enum::Variant(...)");
// the indentation-based block syntax never puts a "{" or "::" where a
// statement could start, so a single token of lookahead is enough.
func (p *parser) parseIdentOrCtor() ast.NodeRef {
	pos := p.val.Pos
	name := p.val.Raw
	p.advance()

	switch p.tok {
	case token.COLONCOLON:
		return p.parseEnumCtor(pos, name)
	case token.LBRACE:
		return p.parseStructLit(pos, name)
	}
	return p.arena.NewIdent(pos, p.val.Pos, name)
}

func (p *parser) parseStructLit(pos token.Pos, typeName string) ast.NodeRef {
	p.expect(token.LBRACE)
	var fields []ast.NodeRef
	for p.tok != token.RBRACE {
		fpos := p.val.Pos
		fname := p.val.Raw
		p.expect(token.IDENT)
		p.expect(token.COLON)
		val := p.parseExpr(PrecAssign + 1)
		_, fend := p.arena.Span(val)
		fields = append(fields, p.arena.NewField(fpos, fend, fname, val))
		if p.tok != token.COMMA {
			break
		}
		p.advance()
	}
	end := p.expect(token.RBRACE)
	return p.arena.NewStructLit(pos, end, typeName, fields)
}

func (p *parser) parseEnumCtor(pos token.Pos, enumName string) ast.NodeRef {
	p.expect(token.COLONCOLON)
	variant := p.val.Raw
	p.expect(token.IDENT)
	path := enumName + "." + variant

	var args []ast.NodeRef
	end := p.val.Pos
	if p.tok == token.LPAREN {
		p.advance()
		for p.tok != token.RPAREN {
			args = append(args, p.parseExpr(PrecAssign+1))
			if p.tok != token.COMMA {
				break
			}
			p.advance()
		}
		end = p.expect(token.RPAREN)
	}
	return p.arena.NewEnumCtor(pos, end, path, args)
}
