// This file keeps the teacher's split between the in-memory bytecode
// representation and a human-readable textual rendering of it, used by
// tests and the CLI's show_bytecode flag. The original paired a text-format
// parser (Asm) with a disassembler (Dasm) for a variable-length stack
// encoding; this register machine's fixed 4-byte (plus a few
// variable-length) tuples have no hand-written assembly source to parse
// back in, so only the disassembly half survives, rewritten against
// Program/FunctionProto/Opcode instead of Funcode/Binding/OpcodeArgMin.
package compiler

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Dasm renders p as indented, line-oriented text: one constants section
// followed by one block per function, each instruction printed with its
// operands resolved to register numbers, constant indices, or (for jumps)
// the absolute byte address of its target.
func Dasm(p *Program) ([]byte, error) {
	d := &dasm{p: p, buf: new(bytes.Buffer)}
	d.writef("program: %s\n", p.Filename)
	d.constants()
	for i, fn := range p.Functions {
		d.write("\n")
		d.function(i, fn)
	}
	return d.buf.Bytes(), d.err
}

type dasm struct {
	p   *Program
	buf *bytes.Buffer
	err error
}

func (d *dasm) write(s string) {
	if d.err != nil {
		return
	}
	_, d.err = d.buf.WriteString(s)
}

func (d *dasm) writef(format string, args ...any) { d.write(fmt.Sprintf(format, args...)) }

func (d *dasm) constants() {
	if len(d.p.Constants) == 0 {
		return
	}
	d.write("\tconstants:\n")
	for i, c := range d.p.Constants {
		switch c.Kind {
		case ConstI32:
			d.writef("\t\ti32\t%d\t# %03d\n", int32(c.I), i)
		case ConstI64:
			d.writef("\t\ti64\t%d\t# %03d\n", c.I, i)
		case ConstU32:
			d.writef("\t\tu32\t%d\t# %03d\n", uint32(c.U), i)
		case ConstU64:
			d.writef("\t\tu64\t%d\t# %03d\n", c.U, i)
		case ConstF64:
			d.writef("\t\tf64\t%g\t# %03d\n", c.F, i)
		case ConstString:
			d.writef("\t\tstring\t%q\t# %03d\n", c.S, i)
		case ConstBool:
			d.writef("\t\tbool\t%t\t# %03d\n", c.B, i)
		default:
			d.err = fmt.Errorf("unsupported constant kind: %d", c.Kind)
			return
		}
	}
}

// constIdxOpcodes are the instructions whose second and third operand bytes
// form a big-endian constant-pool index rather than two register operands,
// per bytecode.go's EmitConst.
var constIdxOpcodes = map[Opcode]bool{
	OpLoadConst:    true,
	OpLoadI32Const: true,
	OpLoadHost:     true,
}

func (d *dasm) function(idx int, fn *FunctionProto) {
	if d.err != nil {
		return
	}
	d.writef("function: %s # %03d, params=%d, frame=%d\n", fn.Name, idx, fn.NumParams, fn.FrameSize)

	if len(fn.Upvalues) > 0 {
		d.write("\tupvalues:\n")
		for i, uv := range fn.Upvalues {
			src := "parent"
			if !uv.FromParent {
				src = "upval"
			}
			d.writef("\t\t%s[%d]\t# %03d\n", src, uv.Index, i)
		}
	}

	code := fn.Code.Code
	if len(code) == 0 {
		return
	}
	d.write("\tcode:\n")
	for at := 0; at < len(code); {
		op := Opcode(code[at])
		w := op.fixedWidth()
		if at+w > len(code) {
			d.err = fmt.Errorf("function %s: truncated instruction at %03d (%s wants %d bytes, %d remain)", fn.Name, at, op, w, len(code)-at)
			return
		}
		d.writef("\t\t%03d: %s", at, op)
		d.operands(op, code[at:at+w], at, w)
		d.write("\n")
		at += w
	}
}

func (d *dasm) operands(op Opcode, insn []byte, at, w int) {
	switch {
	case op == OpEnumNew:
		// variantIdx, payloadCount, startReg, typeNameIdx(2), variantNameIdx(2), dst
		variantIdx, payloadCount, startReg := insn[1], insn[2], insn[3]
		typeIdx := binary.BigEndian.Uint16(insn[4:6])
		varIdx := binary.BigEndian.Uint16(insn[6:8])
		dst := insn[8]
		d.writef(" variant=%d payload=%d start=R%d type=#%d name=#%d dst=R%d", variantIdx, payloadCount, startReg, typeIdx, varIdx, dst)
	case op.IsJump():
		rel := int(int16(binary.BigEndian.Uint16(insn[w-2 : w])))
		target := at + w + rel
		for _, b := range insn[1 : w-2] {
			d.writef(" R%d", b)
		}
		d.writef(" -> %03d", target)
	case constIdxOpcodes[op]:
		dst := insn[1]
		idx := binary.BigEndian.Uint16(insn[2:4])
		d.writef(" R%d, #%d", dst, idx)
	default:
		for _, b := range insn[1:w] {
			d.writef(" %d", b)
		}
	}
}
