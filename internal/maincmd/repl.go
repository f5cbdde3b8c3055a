package maincmd

import (
	"bufio"
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/orus-lang/orus/lang/ast"
	"github.com/orus-lang/orus/lang/compiler"
	"github.com/orus-lang/orus/lang/machine"
	"github.com/orus-lang/orus/lang/optimizer"
	"github.com/orus-lang/orus/lang/parser"
	"github.com/orus-lang/orus/lang/resolver"
	"github.com/orus-lang/orus/lang/token"
)

const replPrompt = "orus> "

// Repl runs the spec.md §6 repl_mode surface: each line the user enters is
// parsed, resolved, optimized, compiled and executed as its own
// self-contained program, printing whatever it prints and reporting any
// error without exiting the loop. Every line gets a fresh Arena/Thread, so
// (unlike a persistent-session REPL) a `let` on one line is not visible on
// the next -- the simplest host embedding spec.md §6 requires of this
// collaborator surface, not a full session model.
func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, _ []string) error {
	fmt.Fprintln(stdio.Stdout, "orus repl -- Ctrl-D to exit")
	in := bufio.NewScanner(stdio.Stdin)
	for {
		fmt.Fprint(stdio.Stdout, replPrompt)
		if !in.Scan() {
			fmt.Fprintln(stdio.Stdout)
			return in.Err()
		}
		line := in.Text()
		if line == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil
		}
		c.evalLine(stdio, line)
	}
}

func (c *Cmd) evalLine(stdio mainer.Stdio, line string) {
	arena := ast.NewArena()
	const replFile = "<repl>"
	fset, chunks, program, err := compileREPLLine(arena, replFile, line)
	if err != nil {
		printErr(stdio.Stderr, err)
		return
	}
	_ = fset
	_ = chunks

	th := machine.NewThread(replFile)
	th.SetIO(stdio.Stdout, stdio.Stderr)
	th.SetTrace(c.Trace)
	th.SetDevMode(c.Debug)
	defer th.Free()

	if _, rerr := th.Interpret(program); rerr != nil {
		printErr(stdio.Stderr, rerr)
	}
}

// compileREPLLine runs the same parse/resolve/type-check/optimize/compile pipeline
// pipeline.go's compileFile runs for a file, but over an in-memory string
// instead of reading from disk.
func compileREPLLine(arena *ast.Arena, name, src string) (*ast.Arena, []ast.NodeRef, *compiler.Program, error) {
	fset := token.NewFileSet()
	chunk, _, perr := parser.ParseChunk(arena, fset, name, []byte(src))
	if perr != nil {
		return nil, nil, nil, &compileError{perr}
	}
	chunks := []ast.NodeRef{chunk}

	info, _, rerr := resolver.ResolveFiles(arena, fset, chunks, 0, nil, nil)
	if rerr != nil {
		return nil, nil, nil, &compileError{rerr}
	}
	if _, terr := resolver.TypeCheck(arena, fset, chunks, info); terr != nil {
		return nil, nil, nil, &compileError{terr}
	}

	optimizer.Optimize(arena, chunk)

	programs, _, cerr := compiler.CompileFiles(arena, fset, chunks, info)
	if cerr != nil {
		return nil, nil, nil, &compileError{cerr}
	}
	return arena, chunks, programs[0], nil
}
