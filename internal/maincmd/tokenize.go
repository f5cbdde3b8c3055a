package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/orus-lang/orus/lang/diag"
	"github.com/orus-lang/orus/lang/scanner"
	"github.com/orus-lang/orus/lang/token"
)

func (c *Cmd) Tokenize(_ context.Context, stdio mainer.Stdio, args []string) error {
	return TokenizeFiles(stdio, args...)
}

// TokenizeFiles scans each file and prints one line per token to
// stdio.Stdout: its position, kind, and (for literal-bearing tokens) the
// decoded value. Any scan error is printed to stdio.Stderr.
func TokenizeFiles(stdio mainer.Stdio, files ...string) error {
	fset := token.NewFileSet()
	var diags diag.List

	for _, name := range files {
		src, err := os.ReadFile(name)
		if err != nil {
			diags.Addf(token.Position{Filename: name}, "%s", err)
			continue
		}
		f := fset.AddFile(name, -1, len(src))

		var sc scanner.Scanner
		sc.Init(f, src, func(pos token.Position, msg string) {
			diags.Add(diag.Diagnostic{Severity: diag.Error, Pos: pos, Message: msg})
		})

		for {
			var v token.Value
			tok := sc.Scan(&v)
			pos := fset.Position(v.Pos)
			fmt.Fprintf(stdio.Stdout, "%s: %s", pos, tok)
			if lit := literalOf(tok, v); lit != "" {
				fmt.Fprintf(stdio.Stdout, " %s", lit)
			}
			fmt.Fprintln(stdio.Stdout)
			if tok == token.EOF {
				break
			}
		}
	}

	diags.Sort()
	if err := diags.Err(); err != nil {
		printErr(stdio.Stderr, err)
		return &compileError{err}
	}
	return nil
}

// literalOf renders the decoded payload of a token, or "" for tokens that
// carry none (punctuation, keywords, structural tokens).
func literalOf(tok token.Token, v token.Value) string {
	switch tok {
	case token.IDENT:
		return v.Raw
	case token.INT:
		return fmt.Sprintf("%d", v.Int)
	case token.FLOAT:
		return fmt.Sprintf("%g", v.Float)
	case token.STRING:
		return fmt.Sprintf("%q", v.String)
	default:
		return ""
	}
}
