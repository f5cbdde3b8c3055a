// Package parser implements the Pratt-style recursive-descent parser that
// turns Orus source into an arena-indexed AST (lang/ast).
package parser

import (
	"errors"
	"os"

	"github.com/orus-lang/orus/lang/ast"
	"github.com/orus-lang/orus/lang/diag"
	"github.com/orus-lang/orus/lang/scanner"
	"github.com/orus-lang/orus/lang/token"
)

// ParseFiles parses each file into the caller's Arena, returning the
// FileSet, one root ast.NodeRef (a KindChunk) per file, and any
// diagnostics collected. A non-nil error is always a *diag errList,
// obtainable via diags.Err().
func ParseFiles(arena *ast.Arena, files ...string) (*token.FileSet, []ast.NodeRef, diag.List, error) {
	if len(files) == 0 {
		return nil, nil, diag.List{}, nil
	}
	fset := token.NewFileSet()
	var p parser
	p.arena = arena

	chunks := make([]ast.NodeRef, 0, len(files))
	for _, file := range files {
		b, err := os.ReadFile(file)
		if err != nil {
			p.diags.Add(diag.Diagnostic{Severity: diag.Error, Pos: token.Position{Filename: file}, Message: err.Error()})
			continue
		}
		p.init(fset, file, b)
		chunks = append(chunks, p.parseChunk(file))
	}
	p.diags.Sort()
	return fset, chunks, p.diags, p.diags.Err()
}

// ParseChunk parses a single chunk of source into arena, registering it
// under filename in fset.
func ParseChunk(arena *ast.Arena, fset *token.FileSet, filename string, src []byte) (ast.NodeRef, diag.List, error) {
	var p parser
	p.arena = arena
	p.init(fset, filename, src)
	ref := p.parseChunk(filename)
	p.diags.Sort()
	return ref, p.diags, p.diags.Err()
}

type parser struct {
	arena   *ast.Arena
	scanner scanner.Scanner
	diags   diag.List
	file    *token.File

	tok  token.Token
	val  token.Value
	peekTok token.Token
	peekVal token.Value
}

func (p *parser) init(fset *token.FileSet, filename string, src []byte) {
	p.file = fset.AddFile(filename, -1, len(src))
	p.scanner.Init(p.file, src, func(pos token.Position, msg string) {
		p.diags.Add(diag.Diagnostic{Severity: diag.Error, Pos: pos, Message: msg})
	})
	p.tok = p.scanner.Scan(&p.val)
	for p.tok == token.COMMENT {
		p.tok = p.scanner.Scan(&p.val)
	}
	p.peekTok = p.scanner.Scan(&p.peekVal)
	for p.peekTok == token.COMMENT {
		p.peekTok = p.scanner.Scan(&p.peekVal)
	}
}

func (p *parser) advance() {
	p.tok, p.val = p.peekTok, p.peekVal
	p.peekTok = p.scanner.Scan(&p.peekVal)
	for p.peekTok == token.COMMENT {
		p.peekTok = p.scanner.Scan(&p.peekVal)
	}
}

var errPanicMode = errors.New("panic")

// expect consumes the current token if it matches tok, else records an
// error and unwinds to the nearest parseStmt recovery point.
func (p *parser) expect(tok token.Token) token.Pos {
	pos := p.val.Pos
	if p.tok != tok {
		p.errorExpected(pos, tok.GoString())
		panic(errPanicMode)
	}
	p.advance()
	return pos
}

func (p *parser) error(pos token.Pos, msg string) {
	p.diags.Add(diag.Diagnostic{Severity: diag.Error, Pos: p.file.Position(pos), Message: msg})
}

func (p *parser) errorExpected(pos token.Pos, what string) {
	msg := "expected " + what
	if pos == p.val.Pos {
		if lit := p.val.Raw; lit != "" {
			msg += ", found " + lit
		} else {
			msg += ", found " + p.tok.GoString()
		}
	}
	p.error(pos, msg)
}

// skipNewlines consumes any number of NEWLINE tokens, used after a simple
// statement and at the top of a block.
func (p *parser) skipNewlines() {
	for p.tok == token.NEWLINE {
		p.advance()
	}
}

// endOfSimpleStmt consumes the NEWLINE terminating a simple statement,
// tolerating EOF/DEDENT at end of input.
func (p *parser) endOfSimpleStmt() {
	if p.tok == token.NEWLINE {
		p.advance()
		return
	}
	if p.tok == token.EOF || p.tok == token.DEDENT {
		return
	}
	p.errorExpected(p.val.Pos, "newline")
}

// syncAfterError skips tokens until a statement-start token (IsStmtSync)
// or EOF, where panic-mode recovery resynchronizes, matching the set
// spec.md names for the parser's error recovery.
func (p *parser) syncAfterError() token.Pos {
	for p.tok != token.EOF {
		if p.tok.IsStmtSync() {
			return p.val.Pos
		}
		p.advance()
	}
	return p.val.Pos
}
