package parser

import (
	"github.com/orus-lang/orus/lang/ast"
	"github.com/orus-lang/orus/lang/token"
)

func (p *parser) parseChunk(filename string) ast.NodeRef {
	p.skipNewlines()
	var decls []ast.NodeRef
	for p.tok != token.EOF {
		decls = append(decls, p.parseStmt())
		p.skipNewlines()
	}
	eof := p.val.Pos
	return p.arena.NewChunk(filename, decls, eof)
}

// parseBlock parses ":" NEWLINE INDENT stmt* DEDENT, the indented-block
// shape every compound statement shares.
func (p *parser) parseBlock() ast.NodeRef {
	start := p.expect(token.COLON)
	p.expect(token.NEWLINE)
	p.expect(token.INDENT)

	var stmts []ast.NodeRef
	for p.tok != token.DEDENT && p.tok != token.EOF {
		stmts = append(stmts, p.parseStmt())
		p.skipNewlines()
	}
	end := p.val.Pos
	if p.tok == token.DEDENT {
		p.advance()
	} else {
		p.errorExpected(p.val.Pos, "dedent")
	}
	return p.arena.NewBlock(start, end, stmts)
}
