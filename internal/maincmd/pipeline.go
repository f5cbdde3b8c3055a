package maincmd

import (
	"fmt"
	"io"

	"github.com/orus-lang/orus/lang/ast"
	"github.com/orus-lang/orus/lang/compiler"
	"github.com/orus-lang/orus/lang/optimizer"
	"github.com/orus-lang/orus/lang/parser"
	"github.com/orus-lang/orus/lang/resolver"
	"github.com/orus-lang/orus/lang/token"
)

// compileError wraps a lexical/syntactic/semantic failure so Cmd.Main can
// tell it apart from a runtimeFailure and report exit code 65 (spec.md §6).
type compileError struct{ err error }

func (e *compileError) Error() string { return e.err.Error() }
func (e *compileError) Unwrap() error { return e.err }

// runtimeFailure wraps a dispatch-time error (division by zero, uncaught
// throw, stack overflow, ...) so Cmd.Main reports exit code 70.
type runtimeFailure struct{ err error }

func (e *runtimeFailure) Error() string { return e.err.Error() }
func (e *runtimeFailure) Unwrap() error { return e.err }

func printErr(w io.Writer, err error) {
	fmt.Fprintln(w, err)
}

// compiled is the result of running every front-end stage (parse, resolve,
// optimize, code-gen) on one source file, kept together so run/build can
// share the show-ast/show-tokens/show-optimization-stats reporting logic.
type compiled struct {
	arena   *ast.Arena
	fset    *token.FileSet
	chunk   ast.NodeRef
	info    *resolver.Info
	stats   optimizer.Stats
	program *compiler.Program
}

// compileFile runs the full front end (parse -> resolve -> type-check ->
// optimize -> code-gen) on a single file, the pipeline spec.md §2 describes. It does
// not run the result; callers needing execution use (*compiled).program
// with a machine.Thread.
func compileFile(file string) (*compiled, error) {
	arena := ast.NewArena()
	fset, chunks, _, perr := parser.ParseFiles(arena, file)
	if perr != nil {
		return nil, &compileError{perr}
	}
	if len(chunks) == 0 {
		return nil, &compileError{fmt.Errorf("%s: nothing to compile", file)}
	}
	chunk := chunks[0]

	info, _, rerr := resolver.ResolveFiles(arena, fset, chunks, 0, nil, nil)
	if rerr != nil {
		return nil, &compileError{rerr}
	}
	if _, terr := resolver.TypeCheck(arena, fset, chunks, info); terr != nil {
		return nil, &compileError{terr}
	}

	stats := optimizer.Optimize(arena, chunk)

	programs, _, cerr := compiler.CompileFiles(arena, fset, chunks, info)
	if cerr != nil {
		return nil, &compileError{cerr}
	}

	return &compiled{arena: arena, fset: fset, chunk: chunk, info: info, stats: stats, program: programs[0]}, nil
}
