package compiler

import (
	"encoding/binary"
	"fmt"
)

// ConstKind discriminates the possible payloads of a constant pool entry.
type ConstKind uint8

const (
	ConstI32 ConstKind = iota
	ConstI64
	ConstU32
	ConstU64
	ConstF64
	ConstString
	ConstBool
)

// Constant is one entry of a Chunk's constant pool. Integer payloads are
// carried as int64/uint64 and reinterpreted by the machine according to
// Kind.
type Constant struct {
	Kind ConstKind
	I    int64
	U    uint64
	F    float64
	S    string
	B    bool
}

// BytecodeBuffer accumulates the 4-byte (and occasional variable-length)
// instruction tuples for one function, along with parallel per-instruction
// source position tables used for error reporting and stack traces.
type BytecodeBuffer struct {
	Code    []byte
	Lines   []int32
	Columns []int32

	// patches is not read or written anywhere: pending jump operands are
	// tracked by the Label values EmitJump returns and filled in by
	// PatchTo.
	patches []patch
}

type patch struct {
	at   int // byte offset of the first operand byte of the jump's offset field
	wide bool
}

// Label is an opaque handle to a not-yet-placed jump target, returned by
// EmitJump and resolved by PatchTo once the destination address is known.
type Label struct {
	at   int
	wide bool
}

func (bb *BytecodeBuffer) emit1(op Opcode, line, col int32) {
	bb.Code = append(bb.Code, byte(op))
	bb.Lines = append(bb.Lines, line)
	bb.Columns = append(bb.Columns, col)
}

func (bb *BytecodeBuffer) operand(b byte) {
	bb.Code = append(bb.Code, b)
	bb.Lines = append(bb.Lines, bb.Lines[len(bb.Lines)-1])
	bb.Columns = append(bb.Columns, bb.Columns[len(bb.Columns)-1])
}

// Emit3 writes a standard 4-byte instruction: opcode plus three operand
// bytes (unused trailing operands should be passed as 0).
func (bb *BytecodeBuffer) Emit3(op Opcode, a, b, c byte, line, col int32) {
	bb.emit1(op, line, col)
	bb.operand(a)
	bb.operand(b)
	bb.operand(c)
}

// EmitConst writes a LOAD_CONST-family instruction: op, Rd, constIdxHi,
// constIdxLo.
func (bb *BytecodeBuffer) EmitConst(op Opcode, dst uint8, constIdx uint16, line, col int32) {
	bb.Emit3(op, dst, byte(constIdx>>8), byte(constIdx), line, col)
}

// EmitJump writes a long-form jump instruction with a placeholder 16-bit
// offset and returns a Label to patch once the target is known. a carries
// the condition/catch register for conditional jumps and TRY_BEGIN, 0
// otherwise.
func (bb *BytecodeBuffer) EmitJump(op Opcode, a byte, line, col int32) Label {
	return bb.EmitJumpN(op, []byte{a}, line, col)
}

// EmitJumpN is EmitJump generalized to an arbitrary number of leading
// operand bytes, for jump-family instructions that carry more than one
// register operand (RANGE_NEXT_R's Rd and Riter, ahead of its offset).
func (bb *BytecodeBuffer) EmitJumpN(op Opcode, operands []byte, line, col int32) Label {
	bb.emit1(op, line, col)
	for _, b := range operands {
		bb.operand(b)
	}
	at := len(bb.Code)
	bb.operand(0)
	bb.operand(0)
	return Label{at: at, wide: true}
}

// PatchTo backpatches lbl's offset field to point at the buffer's current
// end (the instruction about to be emitted next).
func (bb *BytecodeBuffer) PatchTo(lbl Label) {
	target := len(bb.Code)
	bb.patchOffset(lbl, target)
}

// PatchToHere is an alias of PatchTo kept for readability at call sites
// that patch a forward jump to "the next instruction emitted".
func (bb *BytecodeBuffer) PatchToHere(lbl Label) { bb.PatchTo(lbl) }

func (bb *BytecodeBuffer) patchOffset(lbl Label, target int) {
	// The offset is relative to the instruction immediately following the
	// jump's operand bytes (i.e. to bb.Code[lbl.at+2]).
	from := lbl.at + 2
	rel := target - from
	if rel < -(1<<15) || rel > (1<<15-1) {
		panic(fmt.Sprintf("compiler: jump offset %d out of 16-bit range", rel))
	}
	binary.BigEndian.PutUint16(bb.Code[lbl.at:lbl.at+2], uint16(int16(rel)))
}

// EmitLoop writes a backward LOOP jump straight to a known target (loop
// headers are always already-placed, so no Label/patch round trip is
// needed).
func (bb *BytecodeBuffer) EmitLoop(target int, line, col int32) {
	bb.emit1(OpLoop, line, col)
	bb.operand(0)
	from := len(bb.Code) + 2
	rel := target - from
	if rel < -(1 << 15) {
		panic("compiler: loop body too large to encode")
	}
	u := uint16(int16(rel))
	bb.operand(byte(u >> 8))
	bb.operand(byte(u))
}

// Here returns the address (byte offset) of the next instruction to be
// emitted, used both as a loop target and to compute jump distances.
func (bb *BytecodeBuffer) Here() int { return len(bb.Code) }

// EmitEnumNew writes the 9-byte ENUM_NEW instruction.
func (bb *BytecodeBuffer) EmitEnumNew(variantIdx, payloadCount, startReg byte, typeNameIdx, variantNameIdx uint16, dst byte, line, col int32) {
	bb.emit1(OpEnumNew, line, col)
	bb.operand(variantIdx)
	bb.operand(payloadCount)
	bb.operand(startReg)
	bb.operand(byte(typeNameIdx >> 8))
	bb.operand(byte(typeNameIdx))
	bb.operand(byte(variantNameIdx >> 8))
	bb.operand(byte(variantNameIdx))
	bb.operand(dst)
}

// UpvalDesc describes where a closure's Nth captured cell comes from: a
// frame register of the immediately enclosing function (FromParent=true)
// or one of that enclosing function's own upvalues (FromParent=false).
type UpvalDesc struct {
	FromParent bool
	Index      uint8
}

// FunctionProto is one compiled function: its code, constants reachable
// from it, register high-water-mark, and closure-capture descriptors. The
// top-level chunk compiles to FunctionProto 0 of its Program.
type FunctionProto struct {
	Name      string
	Code      BytecodeBuffer
	NumParams int
	FrameSize int // size of the Frame register region (always the full region); shown by Dasm, unused by the machine
	Upvalues  []UpvalDesc
}

// Program is a fully compiled compilation unit: a flat constant pool shared
// by every function it contains, plus the function table. Functions
// reference constants and other functions by index into these slices.
type Program struct {
	Filename  string
	Constants []Constant
	Functions []*FunctionProto
}
