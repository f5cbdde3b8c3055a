package optimizer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orus-lang/orus/lang/ast"
	"github.com/orus-lang/orus/lang/optimizer"
	"github.com/orus-lang/orus/lang/parser"
	"github.com/orus-lang/orus/lang/resolver"
	"github.com/orus-lang/orus/lang/token"
)

func compileChunk(t *testing.T, src string) (*ast.Arena, ast.NodeRef) {
	t.Helper()
	arena := ast.NewArena()
	fset := token.NewFileSet()
	ref, diags, err := parser.ParseChunk(arena, fset, "test.orus", []byte(src))
	require.NoError(t, err, "%v", diags.All())

	info, _, err := resolver.ResolveFiles(arena, fset, []ast.NodeRef{ref}, 0, nil, nil)
	require.NoError(t, err)
	_, err = resolver.TypeCheck(arena, fset, []ast.NodeRef{ref}, info)
	require.NoError(t, err)
	return arena, ref
}

func TestFoldConstantArithmetic(t *testing.T) {
	arena, ref := compileChunk(t, "1 + 2 * 3\n")
	optimizer.Optimize(arena, ref)

	chunk := arena.Node(ref)
	exprStmt := arena.Node(chunk.List[0])
	lit := arena.Node(exprStmt.A)
	require.Equal(t, ast.KindIntLit, lit.Kind)
	require.Equal(t, int64(7), lit.Int)
}

func TestFoldRefusesOverflow(t *testing.T) {
	arena := ast.NewArena()
	fset := token.NewFileSet()
	ref, _, err := parser.ParseChunk(arena, fset, "test.orus", []byte("2147483647 + 1\n"))
	require.NoError(t, err)
	info, _, err := resolver.ResolveFiles(arena, fset, []ast.NodeRef{ref}, 0, nil, nil)
	require.NoError(t, err)
	_, err = resolver.TypeCheck(arena, fset, []ast.NodeRef{ref}, info)
	require.NoError(t, err)

	chunk := arena.Node(ref)
	exprStmt := arena.Node(chunk.List[0])
	binRef := exprStmt.A

	optimizer.Optimize(arena, ref)

	bin := arena.Node(binRef)
	require.Equal(t, ast.KindBinary, bin.Kind, "overflow must not fold to a literal")
}

func TestFoldDivisionByZeroRefused(t *testing.T) {
	arena := ast.NewArena()
	fset := token.NewFileSet()
	ref, _, err := parser.ParseChunk(arena, fset, "test.orus", []byte("10 / 0\n"))
	require.NoError(t, err)
	info, _, err := resolver.ResolveFiles(arena, fset, []ast.NodeRef{ref}, 0, nil, nil)
	require.NoError(t, err)
	_, err = resolver.TypeCheck(arena, fset, []ast.NodeRef{ref}, info)
	require.NoError(t, err)

	chunk := arena.Node(ref)
	exprStmt := arena.Node(chunk.List[0])
	binRef := exprStmt.A

	optimizer.Optimize(arena, ref)

	require.Equal(t, ast.KindBinary, arena.Node(binRef).Kind)
}

func TestFoldIntMinDivNegOneOverflows(t *testing.T) {
	arena := ast.NewArena()
	fset := token.NewFileSet()
	ref, _, err := parser.ParseChunk(arena, fset, "test.orus", []byte("(-2147483648) / (-1)\n"))
	require.NoError(t, err)
	info, _, err := resolver.ResolveFiles(arena, fset, []ast.NodeRef{ref}, 0, nil, nil)
	require.NoError(t, err)
	_, err = resolver.TypeCheck(arena, fset, []ast.NodeRef{ref}, info)
	require.NoError(t, err)

	optimizer.Optimize(arena, ref)

	chunk := arena.Node(ref)
	exprStmt := arena.Node(chunk.List[0])
	require.Equal(t, ast.KindBinary, arena.Node(exprStmt.A).Kind)
}

func TestFoldBoolShortCircuit(t *testing.T) {
	arena := ast.NewArena()
	fset := token.NewFileSet()
	ref, _, err := parser.ParseChunk(arena, fset, "test.orus", []byte("true and false\n"))
	require.NoError(t, err)
	info, _, err := resolver.ResolveFiles(arena, fset, []ast.NodeRef{ref}, 0, nil, nil)
	require.NoError(t, err)
	_, err = resolver.TypeCheck(arena, fset, []ast.NodeRef{ref}, info)
	require.NoError(t, err)

	optimizer.Optimize(arena, ref)

	chunk := arena.Node(ref)
	exprStmt := arena.Node(chunk.List[0])
	lit := arena.Node(exprStmt.A)
	require.Equal(t, ast.KindBoolLit, lit.Kind)
	require.False(t, lit.Bool)
}
