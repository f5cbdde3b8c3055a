package compiler_test

import (
	"strings"
	"testing"

	"github.com/orus-lang/orus/lang/compiler"
	"github.com/stretchr/testify/require"
)

func TestDasmEmptyFunction(t *testing.T) {
	prog := &compiler.Program{
		Filename: "empty.orus",
		Functions: []*compiler.FunctionProto{
			{Name: "<main>"},
		},
	}
	out, err := compiler.Dasm(prog)
	require.NoError(t, err)
	text := string(out)
	require.Contains(t, text, "program: empty.orus")
	require.Contains(t, text, "function: <main> # 000, params=0, frame=0")
}

func TestDasmConstantsAndLoad(t *testing.T) {
	var fn compiler.FunctionProto
	fn.Name = "<main>"
	fn.Code.EmitConst(compiler.OpLoadI32Const, 3, 0, 1, 1)
	fn.Code.Emit3(compiler.OpReturnNil, 0, 0, 0, 1, 1)

	prog := &compiler.Program{
		Filename:  "consts.orus",
		Constants: []compiler.Constant{{Kind: compiler.ConstI32, I: 7}},
		Functions: []*compiler.FunctionProto{&fn},
	}

	out, err := compiler.Dasm(prog)
	require.NoError(t, err)
	text := string(out)
	require.Contains(t, text, "i32\t7\t# 000")
	require.Contains(t, text, "LOAD_I32_CONST R3, #0")
	require.Contains(t, text, "RETURN_NIL")
}

func TestDasmJumpTargetIsAbsoluteAddress(t *testing.T) {
	var fn compiler.FunctionProto
	fn.Name = "<main>"
	lbl := fn.Code.EmitJump(compiler.OpJumpIfNot, 0, 1, 1)
	fn.Code.Emit3(compiler.OpMove, 1, 2, 0, 2, 1)
	fn.Code.PatchTo(lbl)
	fn.Code.Emit3(compiler.OpReturnNil, 0, 0, 0, 3, 1)

	prog := &compiler.Program{Functions: []*compiler.FunctionProto{&fn}}
	out, err := compiler.Dasm(prog)
	require.NoError(t, err)
	text := string(out)

	require.Contains(t, text, "JUMP_IF_NOT R0 -> 008")
	lines := strings.Split(text, "\n")
	var jumpLine, targetLine string
	for _, l := range lines {
		if strings.Contains(l, "JUMP_IF_NOT") {
			jumpLine = l
		}
		if strings.Contains(l, "008:") {
			targetLine = l
		}
	}
	require.NotEmpty(t, jumpLine)
	require.Contains(t, targetLine, "RETURN_NIL")
}

func TestDasmEnumNew(t *testing.T) {
	var fn compiler.FunctionProto
	fn.Name = "<main>"
	fn.Code.EmitEnumNew(1, 2, 5, 0, 1, 9, 1, 1)

	prog := &compiler.Program{
		Constants: []compiler.Constant{
			{Kind: compiler.ConstString, S: "Option"},
			{Kind: compiler.ConstString, S: "Some"},
		},
		Functions: []*compiler.FunctionProto{&fn},
	}
	out, err := compiler.Dasm(prog)
	require.NoError(t, err)
	require.Contains(t, string(out), "variant=1 payload=2 start=R5 type=#0 name=#1 dst=R9")
}
