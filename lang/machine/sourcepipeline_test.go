package machine_test

import (
	"bytes"
	"testing"

	"github.com/orus-lang/orus/lang/ast"
	"github.com/orus-lang/orus/lang/compiler"
	"github.com/orus-lang/orus/lang/machine"
	"github.com/orus-lang/orus/lang/optimizer"
	"github.com/orus-lang/orus/lang/parser"
	"github.com/orus-lang/orus/lang/resolver"
	"github.com/orus-lang/orus/lang/token"
	"github.com/stretchr/testify/require"
)

// compileSource runs the same parse/resolve/type-check/optimize/compile pipeline
// internal/maincmd's compileREPLLine runs for a REPL line, over a
// standalone source string, so try/catch and arithmetic behavior is
// exercised through the real front end instead of hand-built bytecode.
func compileSource(t *testing.T, src string) *compiler.Program {
	t.Helper()
	arena := ast.NewArena()
	fset := token.NewFileSet()
	chunk, _, perr := parser.ParseChunk(arena, fset, "test.orus", []byte(src))
	require.NoError(t, perr)
	chunks := []ast.NodeRef{chunk}

	info, _, rerr := resolver.ResolveFiles(arena, fset, chunks, 0, nil, nil)
	require.NoError(t, rerr)
	_, terr := resolver.TypeCheck(arena, fset, chunks, info)
	require.NoError(t, terr)

	optimizer.Optimize(arena, chunk)

	programs, _, cerr := compiler.CompileFiles(arena, fset, chunks, info)
	require.NoError(t, cerr)
	return programs[0]
}

// TestSourceTryCatchCatchesDivisionByZero exercises spec.md §8 scenario 6
// end to end: a division by zero raised inside a try block, compiled from
// real source rather than hand-built bytecode, must land in the catch
// handler instead of halting the program.
func TestSourceTryCatchCatchesDivisionByZero(t *testing.T) {
	src := "try:\n    let x = 1 / 0\ncatch e:\n    print(e)\n"
	prog := compileSource(t, src)

	var out bytes.Buffer
	th := machine.NewThread("test")
	th.SetIO(&out, nil)
	_, err := th.Interpret(prog)
	require.NoError(t, err)
	require.Equal(t, "division by zero\n", out.String())
}

// TestSourceIntegerOverflowIsRuntimeError exercises spec.md §8 scenario 4
// end to end: i32 addition past math.MaxInt32, compiled from real source,
// raises a RuntimeError tagged IntegerOverflow instead of wrapping.
func TestSourceIntegerOverflowIsRuntimeError(t *testing.T) {
	src := "print(2147483647 + 1)\n"
	prog := compileSource(t, src)

	th := machine.NewThread("test")
	th.Stdout = &bytes.Buffer{}
	_, err := th.Interpret(prog)
	require.Error(t, err)
	var rerr *machine.RuntimeError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, machine.ErrIntegerOverflow, rerr.Kind)
}
