package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orus-lang/orus/lang/ast"
	"github.com/orus-lang/orus/lang/parser"
	"github.com/orus-lang/orus/lang/token"
)

func parseOK(t *testing.T, src string) (*ast.Arena, ast.NodeRef) {
	t.Helper()
	arena := ast.NewArena()
	fset := token.NewFileSet()
	ref, diags, err := parser.ParseChunk(arena, fset, "test.orus", []byte(src))
	require.NoError(t, err, "diagnostics: %v", diags.All())
	return arena, ref
}

func TestParseLetDecl(t *testing.T) {
	arena, ref := parseOK(t, "let x = 1\n")
	chunk := arena.Node(ref)
	require.Equal(t, ast.KindChunk, chunk.Kind)
	require.Len(t, chunk.List, 1)

	decl := arena.Node(chunk.List[0])
	require.Equal(t, ast.KindLetDecl, decl.Kind)
	require.Equal(t, "x", decl.Str)
	require.False(t, decl.Bool)

	init := arena.Node(decl.B)
	require.Equal(t, ast.KindIntLit, init.Kind)
	require.Equal(t, int64(1), init.Int)
}

func TestParseLetMutWithType(t *testing.T) {
	arena, ref := parseOK(t, "let mut count: i32 = 0\n")
	decl := arena.Node(arena.Node(ref).List[0])
	require.Equal(t, ast.KindLetDecl, decl.Kind)
	require.True(t, decl.Bool)

	typeAnn := arena.Node(decl.A)
	require.Equal(t, ast.KindIdent, typeAnn.Kind)
	require.Equal(t, "i32", typeAnn.Str)
}

func TestParseFnDeclAndCall(t *testing.T) {
	src := "fn add(a: i32, b: i32) -> i32:\n    return a + b\n" +
		"let sum = add(1, 2)\n"
	arena, ref := parseOK(t, src)
	decls := arena.Node(ref).List
	require.Len(t, decls, 2)

	fn := arena.Node(decls[0])
	require.Equal(t, ast.KindFnDecl, fn.Kind)
	require.Equal(t, "add", fn.Str)
	require.False(t, fn.Bool)
	require.Len(t, fn.List, 2)

	body := arena.Node(fn.B)
	require.Equal(t, ast.KindBlock, body.Kind)
	require.Len(t, body.List, 1)

	ret := arena.Node(body.List[0])
	require.Equal(t, ast.KindReturn, ret.Kind)
	bin := arena.Node(ret.A)
	require.Equal(t, ast.KindBinary, bin.Kind)
	require.Equal(t, token.PLUS, bin.Tok)

	letDecl := arena.Node(decls[1])
	call := arena.Node(letDecl.B)
	require.Equal(t, ast.KindCall, call.Kind)
	require.Len(t, call.List, 2)
}

func TestParseIfElif(t *testing.T) {
	src := "if x > 0:\n    print(x)\nelif x < 0:\n    print(0)\nelse:\n    print(1)\n"
	arena, ref := parseOK(t, src)
	ifNode := arena.Node(arena.Node(ref).List[0])
	require.Equal(t, ast.KindIf, ifNode.Kind)

	elif := arena.Node(ifNode.C)
	require.Equal(t, ast.KindIf, elif.Kind)

	elseBlock := arena.Node(elif.C)
	require.Equal(t, ast.KindBlock, elseBlock.Kind)
}

func TestParseForRange(t *testing.T) {
	arena, ref := parseOK(t, "for i in 0..10..2:\n    print(i)\n")
	loop := arena.Node(arena.Node(ref).List[0])
	require.Equal(t, ast.KindForRange, loop.Kind)
	require.Equal(t, "i", loop.Str)

	rng := arena.Node(loop.A)
	require.Equal(t, ast.KindRange, rng.Kind)
	require.NotEqual(t, ast.NilRef, rng.C)
}

func TestParseTernary(t *testing.T) {
	arena, ref := parseOK(t, "let x = a > b ? a : b\n")
	decl := arena.Node(arena.Node(ref).List[0])
	tern := arena.Node(decl.B)
	require.Equal(t, ast.KindTernary, tern.Kind)
}

func TestParseStructLitAndEnumCtor(t *testing.T) {
	src := "let p = Point { x: 1, y: 2 }\n" +
		"let r = Result::Ok(1)\n"
	arena, ref := parseOK(t, src)
	decls := arena.Node(ref).List

	pointLit := arena.Node(arena.Node(decls[0]).B)
	require.Equal(t, ast.KindStructLit, pointLit.Kind)
	require.Equal(t, "Point", pointLit.Str)
	require.Len(t, pointLit.List, 2)

	ctor := arena.Node(arena.Node(decls[1]).B)
	require.Equal(t, ast.KindEnumCtor, ctor.Kind)
	require.Equal(t, "Result.Ok", ctor.Str)
	require.Len(t, ctor.List, 1)
}

func TestParseTryCatch(t *testing.T) {
	src := "try:\n    risky()\ncatch e:\n    print(e)\n"
	arena, ref := parseOK(t, src)
	tc := arena.Node(arena.Node(ref).List[0])
	require.Equal(t, ast.KindTryCatch, tc.Kind)
	require.Equal(t, "e", tc.Str)
}

func TestParseStructAndEnumDecl(t *testing.T) {
	src := "struct Point:\n    x: i32\n    y: i32\n" +
		"enum Shape { Circle(f64), Square(f64) }\n"
	arena, ref := parseOK(t, src)
	decls := arena.Node(ref).List

	st := arena.Node(decls[0])
	require.Equal(t, ast.KindStructDecl, st.Kind)
	require.Len(t, st.List, 2)

	en := arena.Node(decls[1])
	require.Equal(t, ast.KindEnumDecl, en.Kind)
	require.Len(t, en.List, 2)
	variant := arena.Node(en.List[0])
	require.Equal(t, "Circle", variant.Str)
	require.Len(t, variant.List, 1)
}

func TestParseErrorRecovers(t *testing.T) {
	arena := ast.NewArena()
	fset := token.NewFileSet()
	_, diags, err := parser.ParseChunk(arena, fset, "bad.orus", []byte("let = 1\nlet y = 2\n"))
	require.Error(t, err)
	require.NotZero(t, diags.Len())
}
