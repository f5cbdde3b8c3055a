package machine_test

import (
	"bytes"
	"testing"

	"github.com/orus-lang/orus/lang/compiler"
	"github.com/orus-lang/orus/lang/machine"
	"github.com/stretchr/testify/require"
)

func runMain(t *testing.T, fn *compiler.FunctionProto, consts []compiler.Constant) (string, error) {
	t.Helper()
	prog := &compiler.Program{
		Filename:  "test.orus",
		Constants: consts,
		Functions: []*compiler.FunctionProto{fn},
	}
	var out bytes.Buffer
	th := machine.NewThread("test")
	th.SetIO(&out, nil)
	_, err := th.Interpret(prog)
	return out.String(), err
}

func TestInterpretConstantArithmetic(t *testing.T) {
	var fn compiler.FunctionProto
	fn.Name = "<main>"
	fn.Code.EmitConst(compiler.OpLoadI32Const, 0, 0, 1, 1) // R0 = 2
	fn.Code.EmitConst(compiler.OpLoadI32Const, 1, 1, 1, 1) // R1 = 3
	fn.Code.Emit3(compiler.OpMulStd, 1, 0, 1, 1, 1)        // R1 = R0 * R1 = 6
	fn.Code.EmitConst(compiler.OpLoadI32Const, 0, 2, 1, 1) // R0 = 1
	fn.Code.Emit3(compiler.OpAddStd, 0, 0, 1, 1, 1)        // R0 = R0 + R1 = 7
	fn.Code.Emit3(compiler.OpPrint, 0, 1, 0, 1, 1)
	fn.Code.Emit3(compiler.OpReturnNil, 0, 0, 0, 1, 1)

	consts := []compiler.Constant{
		{Kind: compiler.ConstI32, I: 2},
		{Kind: compiler.ConstI32, I: 3},
		{Kind: compiler.ConstI32, I: 1},
	}
	out, err := runMain(t, &fn, consts)
	require.NoError(t, err)
	require.Equal(t, "7\n", out)
}

func TestInterpretMutReassignment(t *testing.T) {
	var fn compiler.FunctionProto
	fn.Name = "<main>"
	fn.Code.EmitConst(compiler.OpLoadI32Const, 0, 0, 1, 1) // R0 = 10
	fn.Code.EmitConst(compiler.OpLoadI32Const, 1, 1, 1, 1) // R1 = 20
	fn.Code.Emit3(compiler.OpMove, 0, 1, 0, 2, 1)          // R0 = R1
	fn.Code.Emit3(compiler.OpPrint, 0, 1, 0, 2, 1)
	fn.Code.Emit3(compiler.OpReturnNil, 0, 0, 0, 2, 1)

	consts := []compiler.Constant{
		{Kind: compiler.ConstI32, I: 10},
		{Kind: compiler.ConstI32, I: 20},
	}
	out, err := runMain(t, &fn, consts)
	require.NoError(t, err)
	require.Equal(t, "20\n", out)
}

// TestInterpretForRangeLoop sums 0..4 (exclusive) via MAKE_RANGE/RANGE_NEXT/
// LOOP, the same three-opcode shape lang/compiler emits for a for-range
// statement, and prints the total.
func TestInterpretForRangeLoop(t *testing.T) {
	var fn compiler.FunctionProto
	fn.Name = "<main>"
	fn.Code.EmitConst(compiler.OpLoadI32Const, 0, 0, 1, 1) // R0 = 0 (start)
	fn.Code.EmitConst(compiler.OpLoadI32Const, 1, 1, 1, 1) // R1 = 5 (stop)
	fn.Code.Emit3(compiler.OpMakeRange, 2, 0, 1, 1, 1)     // R2 = range(R0, R1)
	fn.Code.EmitConst(compiler.OpLoadI32Const, 3, 2, 1, 1) // R3 = 0 (accumulator)

	loopHead := fn.Code.Here()
	exitLbl := fn.Code.EmitJumpN(compiler.OpRangeNext, []byte{4, 2}, 2, 1) // R4 = next(R2) or jump to exit
	fn.Code.Emit3(compiler.OpAddStd, 3, 3, 4, 2, 1)                        // R3 += R4
	fn.Code.EmitLoop(loopHead, 2, 1)
	fn.Code.PatchTo(exitLbl)

	fn.Code.Emit3(compiler.OpPrint, 3, 1, 0, 3, 1)
	fn.Code.Emit3(compiler.OpReturnNil, 0, 0, 0, 3, 1)

	consts := []compiler.Constant{
		{Kind: compiler.ConstI32, I: 0},
		{Kind: compiler.ConstI32, I: 5},
		{Kind: compiler.ConstI32, I: 0},
	}
	out, err := runMain(t, &fn, consts)
	require.NoError(t, err)
	require.Equal(t, "10\n", out)
}

func TestInterpretDivisionByZeroIsRuntimeError(t *testing.T) {
	var fn compiler.FunctionProto
	fn.Name = "<main>"
	fn.Code.EmitConst(compiler.OpLoadI32Const, 0, 0, 1, 1) // R0 = 1
	fn.Code.EmitConst(compiler.OpLoadI32Const, 1, 1, 1, 1) // R1 = 0
	fn.Code.Emit3(compiler.OpDivStd, 0, 0, 1, 1, 1)
	fn.Code.Emit3(compiler.OpReturnNil, 0, 0, 0, 1, 1)

	consts := []compiler.Constant{
		{Kind: compiler.ConstI32, I: 1},
		{Kind: compiler.ConstI32, I: 0},
	}
	_, err := runMain(t, &fn, consts)
	require.Error(t, err)
	var rerr *machine.RuntimeError
	require.ErrorAs(t, err, &rerr)
	require.Contains(t, rerr.Error(), "division by zero")
}

// TestInterpretTryCatchBindsThrownValue builds a TRY_BEGIN/THROW/TRY_END
// block where the thrown value is caught and printed, rather than
// propagating as an uncaught RuntimeError.
func TestInterpretTryCatchBindsThrownValue(t *testing.T) {
	var fn compiler.FunctionProto
	fn.Name = "<main>"
	catchLbl := fn.Code.EmitJump(compiler.OpTryBegin, 1, 1, 1) // catch value lands in R1
	fn.Code.EmitConst(compiler.OpLoadConst, 0, 0, 2, 1)        // R0 = "boom"
	fn.Code.Emit3(compiler.OpThrow, 0, 0, 0, 2, 1)
	fn.Code.Emit3(compiler.OpTryEnd, 0, 0, 0, 3, 1)
	fn.Code.PatchTo(catchLbl)
	fn.Code.Emit3(compiler.OpPrint, 1, 1, 0, 4, 1)
	fn.Code.Emit3(compiler.OpReturnNil, 0, 0, 0, 4, 1)

	consts := []compiler.Constant{
		{Kind: compiler.ConstString, S: "boom"},
	}
	out, err := runMain(t, &fn, consts)
	require.NoError(t, err)
	require.Equal(t, "boom\n", out)
}

func TestInterpretUncaughtThrowPropagates(t *testing.T) {
	var fn compiler.FunctionProto
	fn.Name = "<main>"
	fn.Code.EmitConst(compiler.OpLoadConst, 0, 0, 1, 1)
	fn.Code.Emit3(compiler.OpThrow, 0, 0, 0, 1, 1)
	fn.Code.Emit3(compiler.OpReturnNil, 0, 0, 0, 1, 1)

	consts := []compiler.Constant{
		{Kind: compiler.ConstString, S: "uncaught"},
	}
	_, err := runMain(t, &fn, consts)
	require.Error(t, err)
	require.Contains(t, err.Error(), "uncaught")
}

func TestThreadLastErrorAndClear(t *testing.T) {
	var fn compiler.FunctionProto
	fn.Name = "<main>"
	fn.Code.EmitConst(compiler.OpLoadConst, 0, 0, 1, 1)
	fn.Code.Emit3(compiler.OpThrow, 0, 0, 0, 1, 1)

	prog := &compiler.Program{
		Constants: []compiler.Constant{{Kind: compiler.ConstString, S: "bad"}},
		Functions: []*compiler.FunctionProto{&fn},
	}
	th := machine.NewThread("test")
	th.Stdout = &bytes.Buffer{}
	_, err := th.Interpret(prog)
	require.Error(t, err)
	require.Equal(t, err, th.LastError())
	th.ClearLastError()
	require.Nil(t, th.LastError())
}

// TestInterpretDivisionByZeroCaughtByTry checks that a division-by-zero
// raised deep inside a try block reaches the catch handler like an explicit
// THROW would, instead of halting the program.
func TestInterpretDivisionByZeroCaughtByTry(t *testing.T) {
	var fn compiler.FunctionProto
	fn.Name = "<main>"
	catchLbl := fn.Code.EmitJump(compiler.OpTryBegin, 2, 1, 1) // catch value lands in R2
	fn.Code.EmitConst(compiler.OpLoadI32Const, 0, 0, 2, 1)     // R0 = 1
	fn.Code.EmitConst(compiler.OpLoadI32Const, 1, 1, 2, 1)     // R1 = 0
	fn.Code.Emit3(compiler.OpDivStd, 0, 0, 1, 2, 1)
	fn.Code.Emit3(compiler.OpTryEnd, 0, 0, 0, 3, 1)
	fn.Code.PatchTo(catchLbl)
	fn.Code.Emit3(compiler.OpPrint, 2, 1, 0, 4, 1)
	fn.Code.Emit3(compiler.OpReturnNil, 0, 0, 0, 4, 1)

	consts := []compiler.Constant{
		{Kind: compiler.ConstI32, I: 1},
		{Kind: compiler.ConstI32, I: 0},
	}
	out, err := runMain(t, &fn, consts)
	require.NoError(t, err)
	require.Equal(t, "division by zero\n", out)
}

// TestInterpretIntegerOverflowIsRuntimeError checks that i32 addition past
// math.MaxInt32 raises a RuntimeError tagged IntegerOverflow instead of
// silently wrapping.
func TestInterpretIntegerOverflowIsRuntimeError(t *testing.T) {
	var fn compiler.FunctionProto
	fn.Name = "<main>"
	fn.Code.EmitConst(compiler.OpLoadI32Const, 0, 0, 1, 1) // R0 = 2147483647
	fn.Code.EmitConst(compiler.OpLoadI32Const, 1, 1, 1, 1) // R1 = 1
	fn.Code.Emit3(compiler.OpAddStd, 0, 0, 1, 1, 1)
	fn.Code.Emit3(compiler.OpReturnNil, 0, 0, 0, 1, 1)

	consts := []compiler.Constant{
		{Kind: compiler.ConstI32, I: 2147483647},
		{Kind: compiler.ConstI32, I: 1},
	}
	_, err := runMain(t, &fn, consts)
	require.Error(t, err)
	var rerr *machine.RuntimeError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, machine.ErrIntegerOverflow, rerr.Kind)
}
