package compiler

import "fmt"

// Opcode identifies a VM instruction. Most instructions are a fixed 4-byte
// tuple (opcode, a, b, c); the variable-length exceptions (LOAD_CONST,
// jumps, ENUM_NEW) are called out below and handled specially by
// BytecodeBuffer's emitters and by the machine's dispatch loop.
type Opcode uint8

//nolint:revive
const (
	OpNop Opcode = iota
	OpMove
	// OpBox reconciles a typed register into a standard (boxed) one: Rd
	// (standard), Rs (typed), kind. OpUnbox is the inverse: Rd (typed),
	// Rs (standard), kind.
	OpBox
	OpUnbox

	OpLoadNil
	OpLoadTrue
	OpLoadFalse

	// OpLoadConst loads constant pool entry (hi,lo) into Rd: 4 bytes
	// (op, Rd, hi, lo).
	OpLoadConst
	// OpLoadI32Const is the typed counterpart used when the constant's
	// static type is known to be i32 (the common case for small integer
	// literals): same 4-byte encoding, distinct opcode so the peephole
	// pass and the interpreter's typed dispatch can recognize it without
	// inspecting the constant pool.
	OpLoadI32Const
	// OpLoadHost loads a predeclared or universal (built-in) name into Rd
	// by looking it up in the host environment: op, Rd, nameConstHi,
	// nameConstLo (the name is a ConstString entry).
	OpLoadHost

	// --- typed arithmetic family: both operands are already typed
	// registers of the matching kind (proven at compile time), so the
	// handler is a monomorphic straight-line routine with no runtime tag
	// check. One opcode per (operator, kind) pair. ---
	OpAddI32Typed
	OpSubI32Typed
	OpMulI32Typed
	OpDivI32Typed
	OpModI32Typed
	OpAddI64Typed
	OpSubI64Typed
	OpMulI64Typed
	OpDivI64Typed
	OpModI64Typed
	OpAddU32Typed
	OpSubU32Typed
	OpMulU32Typed
	OpDivU32Typed
	OpModU32Typed
	OpAddU64Typed
	OpSubU64Typed
	OpMulU64Typed
	OpDivU64Typed
	OpModU64Typed
	OpAddF64Typed
	OpSubF64Typed
	OpMulF64Typed
	OpDivF64Typed
	OpModF64Typed

	// --- standard arithmetic family: one generic opcode per operator,
	// operating on two boxed Values whose kind is read from their runtime
	// tag rather than known ahead of time. Used wherever the compiler
	// cannot prove both operands share a numeric kind at compile time
	// (for instance, values coming out of an array or struct field). ---
	OpAddStd
	OpSubStd
	OpMulStd
	OpDivStd
	OpModStd

	OpConcat // string + string

	OpBAnd
	OpBOr
	OpBXor
	OpShl
	OpShr
	OpBNot
	OpNeg
	OpNot

	OpCmpLt
	OpCmpLe
	OpCmpGt
	OpCmpGe
	OpCmpEq
	OpCmpNe

	// OpCast converts Rs to the numeric kind named by operand c (a
	// compiler.NumericKind) into Rd.
	OpCast

	OpNewArray // Rd, Rstart, count: build an array from count consecutive registers
	OpArrayGet
	OpArraySet
	OpArrayLen

	OpNewStruct // Rd, Rstart, count: build a struct from count consecutive field values
	OpFieldGet  // Rd, Rbase, fieldIndex
	OpFieldSet  // Rbase, fieldIndex, Rval

	// OpEnumNew is the 9-byte variable-length instruction: op, variantIndex,
	// payloadCount, startReg, typeNameConstHi, typeNameConstLo,
	// variantNameConstHi, variantNameConstLo, Rd.
	OpEnumNew

	OpGetUpval  // Rd, upvalIndex: read this closure's Nth captured cell
	OpSetUpval  // upvalIndex, Rs: write this closure's Nth captured cell
	OpNewCell   // Rd, Rinit: box Rinit's value into a new heap cell (for a captured local)
	OpCellGet   // Rd, Rcell: read the current value out of a local cell register
	OpCellSet   // Rcell, Rs: write a new value into a local cell register
	OpClosure   // Rd, funcIdxHi, funcIdxLo: build a closure over the enclosing frame's cells
	OpMakeRange // Rd, Rstart, Rend: build a RangeIterator (step fixed at 1)
	OpRangeNext // Rd, Riter, jumpAddr(16-bit): advance Riter, write element to Rd, or jump past the loop when exhausted
	OpCall      // Rd, Rfn, argStart: argCount is implied by Rd-argStart (Rd is the register right after the argument run)
	OpReturn    // Rs
	OpReturnNil //

	// --- control flow: 16-bit big-endian relative offsets, except the
	// _Short variants which use an 8-bit offset. ---
	OpJump
	OpJumpShort
	OpJumpIfNot
	OpJumpIfNotShort
	OpLoop
	OpLoopShort

	OpTryBegin // Rcatch, handlerAddr(16-bit)
	OpTryEnd
	OpThrow // Rs

	OpPrint // Rstart, count: print count consecutive registers space-separated, then a newline
	OpHalt

	maxOpcode
)

// fixedWidth reports the encoded instruction length in bytes, including the
// leading opcode byte.
func (op Opcode) fixedWidth() int {
	switch op {
	case OpEnumNew:
		return 9
	case OpRangeNext:
		return 5
	case OpJumpShort, OpJumpIfNotShort, OpLoopShort:
		return 3
	default:
		return 4
	}
}

// IsJump reports whether op is one of the control-flow opcodes whose last
// operand bytes are a branch offset rather than a register/constant index.
func (op Opcode) IsJump() bool {
	switch op {
	case OpJump, OpJumpShort, OpJumpIfNot, OpJumpIfNotShort, OpLoop, OpLoopShort, OpTryBegin, OpRangeNext:
		return true
	}
	return false
}

var opcodeNames = [maxOpcode]string{
	OpNop: "NOP", OpMove: "MOVE", OpBox: "BOX_R", OpUnbox: "UNBOX_R",
	OpLoadNil: "LOAD_NIL", OpLoadTrue: "LOAD_TRUE", OpLoadFalse: "LOAD_FALSE",
	OpLoadConst: "LOAD_CONST", OpLoadI32Const: "LOAD_I32_CONST", OpLoadHost: "LOAD_HOST_R",

	OpAddI32Typed: "ADD_I32_TYPED", OpSubI32Typed: "SUB_I32_TYPED", OpMulI32Typed: "MUL_I32_TYPED", OpDivI32Typed: "DIV_I32_TYPED", OpModI32Typed: "MOD_I32_TYPED",
	OpAddI64Typed: "ADD_I64_TYPED", OpSubI64Typed: "SUB_I64_TYPED", OpMulI64Typed: "MUL_I64_TYPED", OpDivI64Typed: "DIV_I64_TYPED", OpModI64Typed: "MOD_I64_TYPED",
	OpAddU32Typed: "ADD_U32_TYPED", OpSubU32Typed: "SUB_U32_TYPED", OpMulU32Typed: "MUL_U32_TYPED", OpDivU32Typed: "DIV_U32_TYPED", OpModU32Typed: "MOD_U32_TYPED",
	OpAddU64Typed: "ADD_U64_TYPED", OpSubU64Typed: "SUB_U64_TYPED", OpMulU64Typed: "MUL_U64_TYPED", OpDivU64Typed: "DIV_U64_TYPED", OpModU64Typed: "MOD_U64_TYPED",
	OpAddF64Typed: "ADD_F64_TYPED", OpSubF64Typed: "SUB_F64_TYPED", OpMulF64Typed: "MUL_F64_TYPED", OpDivF64Typed: "DIV_F64_TYPED", OpModF64Typed: "MOD_F64_TYPED",

	OpAddStd: "ADD_R", OpSubStd: "SUB_R", OpMulStd: "MUL_R", OpDivStd: "DIV_R", OpModStd: "MOD_R",

	OpConcat: "CONCAT_R",
	OpBAnd:   "BAND_R", OpBOr: "BOR_R", OpBXor: "BXOR_R", OpShl: "SHL_R", OpShr: "SHR_R", OpBNot: "BNOT_R",
	OpNeg: "NEG_R", OpNot: "NOT_R",

	OpCmpLt: "CMP_LT_R", OpCmpLe: "CMP_LE_R", OpCmpGt: "CMP_GT_R", OpCmpGe: "CMP_GE_R", OpCmpEq: "CMP_EQ_R", OpCmpNe: "CMP_NE_R",

	OpCast: "CAST_R",

	OpNewArray: "NEW_ARRAY_R", OpArrayGet: "ARRAY_GET_R", OpArraySet: "ARRAY_SET_R", OpArrayLen: "ARRAY_LEN_R",
	OpNewStruct: "NEW_STRUCT_R", OpFieldGet: "FIELD_GET_R", OpFieldSet: "FIELD_SET_R",

	OpEnumNew: "ENUM_NEW",

	OpGetUpval: "GET_UPVAL_R", OpSetUpval: "SET_UPVAL_R", OpNewCell: "NEW_CELL_R",
	OpCellGet: "CELL_GET_R", OpCellSet: "CELL_SET_R", OpClosure: "CLOSURE_R",

	OpMakeRange: "MAKE_RANGE_R", OpRangeNext: "RANGE_NEXT_R",

	OpCall: "CALL_R", OpReturn: "RETURN_R", OpReturnNil: "RETURN_NIL",

	OpJump: "JUMP", OpJumpShort: "JUMP_SHORT", OpJumpIfNot: "JUMP_IF_NOT", OpJumpIfNotShort: "JUMP_IF_NOT_SHORT",
	OpLoop: "LOOP", OpLoopShort: "LOOP_SHORT",

	OpTryBegin: "TRY_BEGIN", OpTryEnd: "TRY_END", OpThrow: "THROW",

	OpPrint: "PRINT_R", OpHalt: "HALT",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", op)
}

// NumericKind is the operand-type dimension of the dual-bank register
// allocator and of the typed register window.
type NumericKind uint8

const (
	KindNone NumericKind = iota
	KindI32
	KindI64
	KindU32
	KindU64
	KindF64
	KindBool
)

func (k NumericKind) String() string {
	switch k {
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	case KindF64:
		return "f64"
	case KindBool:
		return "bool"
	default:
		return "none"
	}
}

// arithOp identifies one of the five arithmetic operators independent of
// operand kind, used to look up the concrete typed-family Opcode.
type arithOp uint8

const (
	arithAdd arithOp = iota
	arithSub
	arithMul
	arithDiv
	arithMod
)

var arithTypedTable = map[NumericKind][5]Opcode{
	KindI32: {OpAddI32Typed, OpSubI32Typed, OpMulI32Typed, OpDivI32Typed, OpModI32Typed},
	KindI64: {OpAddI64Typed, OpSubI64Typed, OpMulI64Typed, OpDivI64Typed, OpModI64Typed},
	KindU32: {OpAddU32Typed, OpSubU32Typed, OpMulU32Typed, OpDivU32Typed, OpModU32Typed},
	KindU64: {OpAddU64Typed, OpSubU64Typed, OpMulU64Typed, OpDivU64Typed, OpModU64Typed},
	KindF64: {OpAddF64Typed, OpSubF64Typed, OpMulF64Typed, OpDivF64Typed, OpModF64Typed},
}

var arithStdTable = [5]Opcode{OpAddStd, OpSubStd, OpMulStd, OpDivStd, OpModStd}

// typedArithOpcode picks the typed-family opcode for (kind, op): both
// operands must already be typed registers of that exact kind.
func typedArithOpcode(kind NumericKind, op arithOp) Opcode {
	row, ok := arithTypedTable[kind]
	if !ok {
		panic(fmt.Sprintf("compiler: no typed arithmetic opcode for kind %v", kind))
	}
	return row[op]
}

// stdArithOpcode picks the generic standard-family opcode for op; the kind
// is resolved by the machine at run time from the boxed operands' tags.
func stdArithOpcode(op arithOp) Opcode { return arithStdTable[op] }
