package maincmd

import (
	"context"

	"github.com/mna/mainer"

	"github.com/orus-lang/orus/lang/ast"
	"github.com/orus-lang/orus/lang/parser"
)

func (c *Cmd) Parse(_ context.Context, stdio mainer.Stdio, args []string) error {
	return ParseFiles(stdio, args...)
}

// ParseFiles parses files into a fresh arena and prints the resulting ASTs
// to stdio.Stdout, one tree per file. Parse errors are printed to
// stdio.Stderr and wrapped so Cmd.Main reports exit code 65.
func ParseFiles(stdio mainer.Stdio, files ...string) error {
	arena := ast.NewArena()
	fset, chunks, _, err := parser.ParseFiles(arena, files...)

	printer := ast.Printer{Output: stdio.Stdout, Fset: fset}
	for _, ch := range chunks {
		if perr := printer.Print(arena, ch); perr != nil {
			return perr
		}
	}
	if err != nil {
		printErr(stdio.Stderr, err)
		return &compileError{err}
	}
	return nil
}
