package maincmd

import (
	"context"

	"github.com/mna/mainer"

	"github.com/orus-lang/orus/lang/ast"
	"github.com/orus-lang/orus/lang/parser"
	"github.com/orus-lang/orus/lang/resolver"
)

func (c *Cmd) Resolve(_ context.Context, stdio mainer.Stdio, args []string) error {
	return ResolveFiles(stdio, args...)
}

// ResolveFiles parses then binds every identifier reference in files,
// printing the resolved AST. A parse failure short-circuits before
// resolution runs, matching spec.md §7's "code-gen does not run if any
// error was recorded" rule one stage earlier.
func ResolveFiles(stdio mainer.Stdio, files ...string) error {
	arena := ast.NewArena()
	fset, chunks, _, perr := parser.ParseFiles(arena, files...)
	if perr != nil {
		printErr(stdio.Stderr, perr)
		return &compileError{perr}
	}

	_, _, rerr := resolver.ResolveFiles(arena, fset, chunks, resolver.NameBlocks, nil, nil)

	printer := ast.Printer{Output: stdio.Stdout, Fset: fset}
	for _, ch := range chunks {
		if perr := printer.Print(arena, ch); perr != nil {
			return perr
		}
	}
	if rerr != nil {
		printErr(stdio.Stderr, rerr)
		return &compileError{rerr}
	}
	return nil
}
