package maincmd

import (
	"context"

	"github.com/mna/mainer"

	"github.com/orus-lang/orus/lang/ast"
	"github.com/orus-lang/orus/lang/compiler"
)

// Build compiles each file through the full front end and prints its
// disassembled bytecode, without executing it -- the spec.md §6 "build"
// collaborator surface paired with "run".
func (c *Cmd) Build(_ context.Context, stdio mainer.Stdio, args []string) error {
	for _, file := range args {
		cp, err := compileFile(file)
		if err != nil {
			printErr(stdio.Stderr, err)
			return err
		}

		if c.ShowAST {
			printer := ast.Printer{Output: stdio.Stdout, Fset: cp.fset}
			if perr := printer.Print(cp.arena, cp.chunk); perr != nil {
				return perr
			}
		}

		out, derr := compiler.Dasm(cp.program)
		if derr != nil {
			printErr(stdio.Stderr, derr)
			return &compileError{derr}
		}
		if _, werr := stdio.Stdout.Write(out); werr != nil {
			return werr
		}
	}
	return nil
}
