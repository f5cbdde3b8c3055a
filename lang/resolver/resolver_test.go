package resolver_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orus-lang/orus/lang/ast"
	"github.com/orus-lang/orus/lang/parser"
	"github.com/orus-lang/orus/lang/resolver"
	"github.com/orus-lang/orus/lang/token"
)

func resolveSrc(t *testing.T, src string, isUniversal func(string) bool) (*ast.Arena, ast.NodeRef, *resolver.Info, error) {
	t.Helper()
	arena := ast.NewArena()
	fset := token.NewFileSet()
	ref, diags, err := parser.ParseChunk(arena, fset, "test.orus", []byte(src))
	require.NoError(t, err, "parse diagnostics: %v", diags.All())

	info, _, err := resolver.ResolveFiles(arena, fset, []ast.NodeRef{ref}, resolver.NameBlocks, nil, isUniversal)
	return arena, ref, info, err
}

func TestResolveLocalAndUse(t *testing.T) {
	arena, ref, info, err := resolveSrc(t, "let x = 1\nlet y = x + 1\n", nil)
	require.NoError(t, err)

	decls := arena.Node(ref).List
	xDecl := decls[0]
	yDecl := arena.Node(decls[1])
	bin := arena.Node(yDecl.B)
	xUse := bin.A

	require.Equal(t, info.Defs[xDecl], info.Uses[xUse])
	require.Equal(t, resolver.Local, info.Defs[xDecl].Scope)
}

func TestResolveUndefined(t *testing.T) {
	_, _, _, err := resolveSrc(t, "let y = x + 1\n", nil)
	require.Error(t, err)
}

func TestResolveUniversal(t *testing.T) {
	arena, ref, info, err := resolveSrc(t, "print(len)\n", func(name string) bool { return name == "len" })
	require.NoError(t, err)

	printStmt := arena.Node(arena.Node(ref).List[0])
	argUse := printStmt.List[0]
	require.Equal(t, resolver.Universal, info.Uses[argUse].Scope)
}

func TestResolveClosureCapturesAsCell(t *testing.T) {
	src := "fn outer():\n" +
		"    let x = 1\n" +
		"    fn inner() -> i32:\n" +
		"        return x\n" +
		"    return inner()\n"
	arena, ref, info, err := resolveSrc(t, src, nil)
	require.NoError(t, err)

	outer := arena.Node(arena.Node(ref).List[0])
	outerBody := arena.Node(outer.B)
	letX := outerBody.List[0]
	xBinding := info.Defs[letX]
	require.Equal(t, resolver.Cell, xBinding.Scope)
}

func TestResolveBreakOutsideLoop(t *testing.T) {
	_, _, _, err := resolveSrc(t, "break\n", nil)
	require.Error(t, err)
}

func TestResolveBreakInsideLoop(t *testing.T) {
	_, _, _, err := resolveSrc(t, "while true:\n    break\n", nil)
	require.NoError(t, err)
}

func TestResolveStructLitNeedsDecl(t *testing.T) {
	src := "struct Point:\n    x: i32\n    y: i32\n" +
		"let p = Point { x: 1, y: 2 }\n"
	_, _, _, err := resolveSrc(t, src, nil)
	require.NoError(t, err)
}

func TestResolveUndeclaredStructLit(t *testing.T) {
	_, _, _, err := resolveSrc(t, "let p = Point { x: 1 }\n", nil)
	require.Error(t, err)
}
