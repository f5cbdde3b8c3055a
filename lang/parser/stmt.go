package parser

import (
	"github.com/orus-lang/orus/lang/ast"
	"github.com/orus-lang/orus/lang/token"
)

// parseStmt parses one top-level-or-block statement. On a parse error it
// resynchronizes at the next statement-start token (per
// token.Token.IsStmtSync) and returns an empty block in place of the
// broken statement, so the caller can keep parsing the rest of the file.
func (p *parser) parseStmt() (ref ast.NodeRef) {
	start := p.val.Pos
	defer func() {
		if err := recover(); err != nil {
			if err == errPanicMode {
				end := p.syncAfterError()
				ref = p.arena.NewBlock(start, end, nil)
				return
			}
			panic(err)
		}
	}()

	switch p.tok {
	case token.LET:
		return p.parseLetDecl()
	case token.CONST:
		return p.parseConstDecl()
	case token.STATIC:
		return p.parseStaticDecl()
	case token.FN:
		return p.parseFnDecl(false)
	case token.PUB:
		p.advance()
		p.expect(token.FN)
		return p.parseFnDecl(true)
	case token.STRUCT:
		return p.parseStructDecl()
	case token.IMPL:
		return p.parseImplDecl()
	case token.ENUM:
		return p.parseEnumDecl()
	case token.IF:
		return p.parseIfStmt()
	case token.WHILE:
		return p.parseWhileStmt()
	case token.FOR:
		return p.parseForStmt()
	case token.RETURN:
		return p.parseReturnStmt()
	case token.BREAK:
		pos := p.val.Pos
		p.advance()
		end := p.val.Pos
		p.endOfSimpleStmt()
		return p.arena.NewBreak(pos, end)
	case token.CONTINUE:
		pos := p.val.Pos
		p.advance()
		end := p.val.Pos
		p.endOfSimpleStmt()
		return p.arena.NewContinue(pos, end)
	case token.IMPORT:
		return p.parseImportStmt()
	case token.USE:
		return p.parseUseStmt()
	case token.TRY:
		return p.parseTryCatchStmt()
	case token.PRINT:
		return p.parsePrintStmt()
	default:
		return p.parseExprOrAssignStmt()
	}
}

func (p *parser) parseTypeAnnotation() ast.NodeRef {
	pos := p.val.Pos
	name := p.val.Raw
	p.expect(token.IDENT)
	return p.arena.NewIdent(pos, p.val.Pos, name)
}

func (p *parser) parseLetDecl() ast.NodeRef {
	start := p.expect(token.LET)
	mut := false
	if p.tok == token.MUT {
		mut = true
		p.advance()
	}
	name := p.val.Raw
	p.expect(token.IDENT)

	var typeAnn ast.NodeRef
	if p.tok == token.COLON {
		p.advance()
		typeAnn = p.parseTypeAnnotation()
	}
	p.expect(token.EQ)
	init := p.parseExpr(PrecAssign + 1)
	end := p.val.Pos
	p.endOfSimpleStmt()
	return p.arena.NewLetDecl(start, end, name, mut, typeAnn, init)
}

func (p *parser) parseConstDecl() ast.NodeRef {
	start := p.expect(token.CONST)
	name := p.val.Raw
	p.expect(token.IDENT)

	var typeAnn ast.NodeRef
	if p.tok == token.COLON {
		p.advance()
		typeAnn = p.parseTypeAnnotation()
	}
	p.expect(token.EQ)
	init := p.parseExpr(PrecAssign + 1)
	end := p.val.Pos
	p.endOfSimpleStmt()
	return p.arena.NewConstDecl(start, end, name, typeAnn, init)
}

func (p *parser) parseStaticDecl() ast.NodeRef {
	start := p.expect(token.STATIC)
	mut := false
	if p.tok == token.MUT {
		mut = true
		p.advance()
	}
	name := p.val.Raw
	p.expect(token.IDENT)

	var typeAnn ast.NodeRef
	if p.tok == token.COLON {
		p.advance()
		typeAnn = p.parseTypeAnnotation()
	}
	p.expect(token.EQ)
	init := p.parseExpr(PrecAssign + 1)
	end := p.val.Pos
	p.endOfSimpleStmt()
	return p.arena.NewStaticDecl(start, end, name, mut, typeAnn, init)
}

func (p *parser) parseParamList() []ast.NodeRef {
	p.expect(token.LPAREN)
	var params []ast.NodeRef
	for p.tok != token.RPAREN {
		pos := p.val.Pos
		name := p.val.Raw
		p.expect(token.IDENT)
		p.expect(token.COLON)
		typeAnn := p.parseTypeAnnotation()
		params = append(params, p.arena.NewParam(pos, p.val.Pos, name, typeAnn))
		if p.tok != token.COMMA {
			break
		}
		p.advance()
	}
	p.expect(token.RPAREN)
	return params
}

func (p *parser) parseFnDecl(pub bool) ast.NodeRef {
	start := p.expect(token.FN)
	name := p.val.Raw
	p.expect(token.IDENT)
	params := p.parseParamList()

	var retType ast.NodeRef
	if p.tok == token.ARROW {
		p.advance()
		retType = p.parseTypeAnnotation()
	}
	body := p.parseBlock()
	_, end := p.arena.Span(body)
	return p.arena.NewFnDecl(start, name, pub, params, retType, body, end)
}

func (p *parser) parseStructDecl() ast.NodeRef {
	start := p.expect(token.STRUCT)
	name := p.val.Raw
	p.expect(token.IDENT)
	p.expect(token.COLON)
	p.expect(token.NEWLINE)
	p.expect(token.INDENT)

	var fields []ast.NodeRef
	for p.tok != token.DEDENT && p.tok != token.EOF {
		fpos := p.val.Pos
		fname := p.val.Raw
		p.expect(token.IDENT)
		p.expect(token.COLON)
		typeAnn := p.parseTypeAnnotation()
		fields = append(fields, p.arena.NewField(fpos, p.val.Pos, fname, typeAnn))
		p.skipNewlines()
	}
	end := p.val.Pos
	p.expect(token.DEDENT)
	return p.arena.NewStructDecl(start, end, name, fields)
}

func (p *parser) parseImplDecl() ast.NodeRef {
	start := p.expect(token.IMPL)
	name := p.val.Raw
	p.expect(token.IDENT)
	p.expect(token.COLON)
	p.expect(token.NEWLINE)
	p.expect(token.INDENT)

	var methods []ast.NodeRef
	for p.tok != token.DEDENT && p.tok != token.EOF {
		pub := false
		if p.tok == token.PUB {
			pub = true
			p.advance()
		}
		p.expect(token.FN)
		methods = append(methods, p.parseFnDecl(pub))
		p.skipNewlines()
	}
	end := p.val.Pos
	p.expect(token.DEDENT)
	return p.arena.NewImplDecl(start, end, name, methods)
}

func (p *parser) parseEnumDecl() ast.NodeRef {
	start := p.expect(token.ENUM)
	name := p.val.Raw
	p.expect(token.IDENT)
	p.expect(token.LBRACE)

	var variants []ast.NodeRef
	for p.tok != token.RBRACE {
		vpos := p.val.Pos
		vname := p.val.Raw
		p.expect(token.IDENT)

		var payload []ast.NodeRef
		if p.tok == token.LPAREN {
			p.advance()
			for p.tok != token.RPAREN {
				payload = append(payload, p.parseTypeAnnotation())
				if p.tok != token.COMMA {
					break
				}
				p.advance()
			}
			p.expect(token.RPAREN)
		}
		variants = append(variants, p.arena.NewEnumVariant(vpos, p.val.Pos, vname, payload))
		if p.tok != token.COMMA {
			break
		}
		p.advance()
	}
	end := p.val.Pos
	p.expect(token.RBRACE)
	return p.arena.NewEnumDecl(start, end, name, variants)
}

func (p *parser) parseIfStmt() ast.NodeRef {
	start := p.expect(token.IF)
	cond := p.parseExpr(PrecTernary + 1)
	thenBlock := p.parseBlock()

	var elseRef ast.NodeRef
	switch p.tok {
	case token.ELIF:
		elseRef = p.parseElifStmt()
	case token.ELSE:
		p.advance()
		elseRef = p.parseBlock()
	}
	_, end := p.arena.Span(thenBlock)
	if elseRef != ast.NilRef {
		_, end = p.arena.Span(elseRef)
	}
	return p.arena.NewIf(start, cond, thenBlock, elseRef, end)
}

func (p *parser) parseElifStmt() ast.NodeRef {
	start := p.expect(token.ELIF)
	cond := p.parseExpr(PrecTernary + 1)
	thenBlock := p.parseBlock()

	var elseRef ast.NodeRef
	switch p.tok {
	case token.ELIF:
		elseRef = p.parseElifStmt()
	case token.ELSE:
		p.advance()
		elseRef = p.parseBlock()
	}
	_, end := p.arena.Span(thenBlock)
	if elseRef != ast.NilRef {
		_, end = p.arena.Span(elseRef)
	}
	return p.arena.NewIf(start, cond, thenBlock, elseRef, end)
}

func (p *parser) parseWhileStmt() ast.NodeRef {
	start := p.expect(token.WHILE)
	cond := p.parseExpr(PrecTernary + 1)
	body := p.parseBlock()
	_, end := p.arena.Span(body)
	return p.arena.NewWhile(start, cond, body, end)
}

// parseForStmt parses "for" ident "in" start ".." end [".." step] block. The
// step clause uses a second ".." rather than spec.md's "[:step]" notation,
// since a bare colon there would be ambiguous with the block's own colon.
func (p *parser) parseForStmt() ast.NodeRef {
	start := p.expect(token.FOR)
	loopVar := p.val.Raw
	p.expect(token.IDENT)
	p.expect(token.IN)

	rngStart := p.parseExpr(PrecTerm)
	p.expect(token.DOTDOT)
	rngEnd := p.parseExpr(PrecTerm)
	step := ast.NilRef
	if p.tok == token.DOTDOT {
		p.advance()
		step = p.parseExpr(PrecTerm)
	}
	rng := p.arena.NewRange(rngStart, rngEnd, step)

	body := p.parseBlock()
	_, end := p.arena.Span(body)
	return p.arena.NewForRange(start, loopVar, rng, body, end)
}

func (p *parser) parseReturnStmt() ast.NodeRef {
	start := p.expect(token.RETURN)
	var expr ast.NodeRef
	end := p.val.Pos
	if p.tok != token.NEWLINE && p.tok != token.EOF && p.tok != token.DEDENT {
		expr = p.parseExpr(PrecAssign + 1)
		_, end = p.arena.Span(expr)
	}
	p.endOfSimpleStmt()
	return p.arena.NewReturn(start, expr, end)
}

func (p *parser) parseImportStmt() ast.NodeRef {
	start := p.expect(token.IMPORT)
	path := p.val.String
	p.expect(token.STRING)
	end := p.val.Pos
	p.endOfSimpleStmt()
	return p.arena.NewImport(start, end, path)
}

func (p *parser) parseUseStmt() ast.NodeRef {
	start := p.expect(token.USE)
	path := p.val.Raw
	p.expect(token.IDENT)
	for p.tok == token.COLONCOLON {
		p.advance()
		path += "." + p.val.Raw
		p.expect(token.IDENT)
	}
	end := p.val.Pos
	p.endOfSimpleStmt()
	return p.arena.NewUse(start, end, path)
}

func (p *parser) parseTryCatchStmt() ast.NodeRef {
	start := p.expect(token.TRY)
	tryBlock := p.parseBlock()
	p.expect(token.CATCH)
	catchVar := p.val.Raw
	p.expect(token.IDENT)
	catchBlock := p.parseBlock()
	_, end := p.arena.Span(catchBlock)
	return p.arena.NewTryCatch(start, tryBlock, catchVar, catchBlock, end)
}

func (p *parser) parsePrintStmt() ast.NodeRef {
	start := p.expect(token.PRINT)
	p.expect(token.LPAREN)
	var args []ast.NodeRef
	for p.tok != token.RPAREN {
		args = append(args, p.parseExpr(PrecAssign+1))
		if p.tok != token.COMMA {
			break
		}
		p.advance()
	}
	end := p.expect(token.RPAREN)
	p.endOfSimpleStmt()
	return p.arena.NewPrint(start, end, args)
}

var assignOps = map[token.Token]bool{
	token.EQ: true, token.PLUSEQ: true, token.MINUSEQ: true,
	token.STAREQ: true, token.SLASHEQ: true, token.PERCENTEQ: true,
}

func (p *parser) parseExprOrAssignStmt() ast.NodeRef {
	left := p.parseExpr(PrecTernary + 1)
	if assignOps[p.tok] {
		op := p.tok
		p.advance()
		value := p.parseExpr(PrecAssign + 1)
		ref := p.arena.NewAssign(op, left, value)
		p.endOfSimpleStmt()
		return ref
	}
	ref := p.arena.NewExprStmt(left)
	p.endOfSimpleStmt()
	return ref
}
