// Much of this package's dispatch loop -- a flat switch over the current
// opcode, decoding operands straight out of the byte slice and writing
// results back into the active frame -- is adapted from the Starlark-go
// interpreter's run function:
// https://github.com/google/starlark-go/tree/ee8ed142361c69d52fe8e9fb5e311d2a0a7c02de
//
// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package machine

import (
	"encoding/binary"
	"fmt"

	"github.com/orus-lang/orus/lang/compiler"
)

// dispatch executes fr's bytecode against prog's constant pool and
// function table until a RETURN/RETURN_NIL, HALT, or an error ends it.
func (th *Thread) dispatch(prog *compiler.Program, fr *Frame) error {
	code := fr.proto.Code.Code
	pc := fr.pc

	for {
		if err := th.checkBudget(); err != nil {
			return err
		}
		th.heap.maybeCollect(th.frames)

		if pc >= len(code) {
			return nil
		}
		op := compiler.Opcode(code[pc])
		if th.trace {
			fmt.Fprintf(th.stderr, "%04d %s\n", pc, op)
		}

		switch op {
		case compiler.OpNop:
			pc += 4

		case compiler.OpMove:
			fr.regs[code[pc+1]] = fr.regs[code[pc+2]]
			pc += 4

		case compiler.OpLoadNil:
			fr.regs[code[pc+1]] = Nil{}
			pc += 4
		case compiler.OpLoadTrue:
			fr.regs[code[pc+1]] = Bool(true)
			pc += 4
		case compiler.OpLoadFalse:
			fr.regs[code[pc+1]] = Bool(false)
			pc += 4

		case compiler.OpLoadConst:
			dst := code[pc+1]
			idx := binary.BigEndian.Uint16(code[pc+2 : pc+4])
			fr.regs[dst] = constValue(prog.Constants[idx])
			pc += 4
		case compiler.OpLoadI32Const:
			dst := code[pc+1]
			idx := binary.BigEndian.Uint16(code[pc+2 : pc+4])
			fr.regs[dst] = constValue(prog.Constants[idx])
			pc += 4
		case compiler.OpLoadHost:
			dst := code[pc+1]
			idx := binary.BigEndian.Uint16(code[pc+2 : pc+4])
			name := prog.Constants[idx].S
			if slot, ok := th.Builtins.Lookup(name); ok {
				fr.regs[dst] = th.Builtins.At(slot)
			} else {
				fr.regs[dst] = Nil{}
			}
			pc += 4

		case compiler.OpBox:
			dst, src, kind := code[pc+1], code[pc+2], compiler.NumericKind(code[pc+3])
			fr.regs[dst] = boxTyped(&fr.typed, src, kind)
			pc += 4
		case compiler.OpUnbox:
			dst, src, kind := code[pc+1], code[pc+2], compiler.NumericKind(code[pc+3])
			unboxTyped(&fr.typed, dst, fr.regs[src], kind)
			pc += 4

		case compiler.OpAddI32Typed, compiler.OpSubI32Typed, compiler.OpMulI32Typed, compiler.OpDivI32Typed, compiler.OpModI32Typed,
			compiler.OpAddI64Typed, compiler.OpSubI64Typed, compiler.OpMulI64Typed, compiler.OpDivI64Typed, compiler.OpModI64Typed,
			compiler.OpAddU32Typed, compiler.OpSubU32Typed, compiler.OpMulU32Typed, compiler.OpDivU32Typed, compiler.OpModU32Typed,
			compiler.OpAddU64Typed, compiler.OpSubU64Typed, compiler.OpMulU64Typed, compiler.OpDivU64Typed, compiler.OpModU64Typed,
			compiler.OpAddF64Typed, compiler.OpSubF64Typed, compiler.OpMulF64Typed, compiler.OpDivF64Typed, compiler.OpModF64Typed:
			if err := typedArith(fr, op, code[pc+1], code[pc+2], code[pc+3]); err != nil {
				err = withLine(err, fr.proto.Code.Lines[pc])
				if next, ok := th.raise(fr, err); ok {
					pc = next
					continue
				}
				return err
			}
			pc += 4

		case compiler.OpAddStd, compiler.OpSubStd, compiler.OpMulStd, compiler.OpDivStd, compiler.OpModStd:
			v, err := stdArith(op, fr.regs[code[pc+2]], fr.regs[code[pc+3]])
			if err != nil {
				err = withLine(err, fr.proto.Code.Lines[pc])
				if next, ok := th.raise(fr, err); ok {
					pc = next
					continue
				}
				return err
			}
			fr.regs[code[pc+1]] = v
			pc += 4

		case compiler.OpConcat:
			a, _ := fr.regs[code[pc+2]].(Str)
			b, _ := fr.regs[code[pc+3]].(Str)
			fr.regs[code[pc+1]] = a + b
			pc += 4

		case compiler.OpBAnd, compiler.OpBOr, compiler.OpBXor, compiler.OpShl, compiler.OpShr:
			v, err := bitwise(op, fr.regs[code[pc+2]], fr.regs[code[pc+3]])
			if err != nil {
				err = withLine(err, fr.proto.Code.Lines[pc])
				if next, ok := th.raise(fr, err); ok {
					pc = next
					continue
				}
				return err
			}
			fr.regs[code[pc+1]] = v
			pc += 4
		case compiler.OpBNot:
			v, err := bitwiseNot(fr.regs[code[pc+2]])
			if err != nil {
				err = withLine(err, fr.proto.Code.Lines[pc])
				if next, ok := th.raise(fr, err); ok {
					pc = next
					continue
				}
				return err
			}
			fr.regs[code[pc+1]] = v
			pc += 4
		case compiler.OpNeg:
			v, err := negate(fr.regs[code[pc+2]])
			if err != nil {
				err = withLine(err, fr.proto.Code.Lines[pc])
				if next, ok := th.raise(fr, err); ok {
					pc = next
					continue
				}
				return err
			}
			fr.regs[code[pc+1]] = v
			pc += 4
		case compiler.OpNot:
			fr.regs[code[pc+1]] = Bool(!truthy(fr.regs[code[pc+2]]))
			pc += 4

		case compiler.OpCmpLt, compiler.OpCmpLe, compiler.OpCmpGt, compiler.OpCmpGe, compiler.OpCmpEq, compiler.OpCmpNe:
			v, err := compare(op, fr.regs[code[pc+2]], fr.regs[code[pc+3]])
			if err != nil {
				err = withLine(err, fr.proto.Code.Lines[pc])
				if next, ok := th.raise(fr, err); ok {
					pc = next
					continue
				}
				return err
			}
			fr.regs[code[pc+1]] = Bool(v)
			pc += 4

		case compiler.OpCast:
			v, err := castValue(fr.regs[code[pc+2]], compiler.NumericKind(code[pc+3]))
			if err != nil {
				err = withLine(err, fr.proto.Code.Lines[pc])
				if next, ok := th.raise(fr, err); ok {
					pc = next
					continue
				}
				return err
			}
			fr.regs[code[pc+1]] = v
			pc += 4

		case compiler.OpNewArray:
			dst, start, count := code[pc+1], code[pc+2], code[pc+3]
			elems := make([]Value, count)
			copy(elems, fr.regs[start:int(start)+int(count)])
			fr.regs[dst] = track(th.heap, &Array{Elems: elems})
			pc += 4
		case compiler.OpArrayGet:
			dst, base, idxReg := code[pc+1], code[pc+2], code[pc+3]
			arr, ok := fr.regs[base].(*Array)
			if !ok {
				if next, ok := th.raise(fr, &RuntimeError{Kind: ErrTypeGuard, Message: "index of non-array value", Line: fr.proto.Code.Lines[pc]}); ok {
					pc = next
					continue
				}
				return &RuntimeError{Kind: ErrTypeGuard, Message: "index of non-array value", Line: fr.proto.Code.Lines[pc]}
			}
			i, err := asInt(fr.regs[idxReg])
			if err != nil || i < 0 || i >= int64(len(arr.Elems)) {
				if next, ok := th.raise(fr, &RuntimeError{Kind: ErrIndexOutOfRange, Message: "array index out of range", Line: fr.proto.Code.Lines[pc]}); ok {
					pc = next
					continue
				}
				return &RuntimeError{Kind: ErrIndexOutOfRange, Message: "array index out of range", Line: fr.proto.Code.Lines[pc]}
			}
			fr.regs[dst] = arr.Elems[i]
			pc += 4
		case compiler.OpArraySet:
			base, idxReg, valReg := code[pc+1], code[pc+2], code[pc+3]
			arr, ok := fr.regs[base].(*Array)
			if !ok {
				if next, ok := th.raise(fr, &RuntimeError{Kind: ErrTypeGuard, Message: "index of non-array value", Line: fr.proto.Code.Lines[pc]}); ok {
					pc = next
					continue
				}
				return &RuntimeError{Kind: ErrTypeGuard, Message: "index of non-array value", Line: fr.proto.Code.Lines[pc]}
			}
			i, err := asInt(fr.regs[idxReg])
			if err != nil || i < 0 || i >= int64(len(arr.Elems)) {
				if next, ok := th.raise(fr, &RuntimeError{Kind: ErrIndexOutOfRange, Message: "array index out of range", Line: fr.proto.Code.Lines[pc]}); ok {
					pc = next
					continue
				}
				return &RuntimeError{Kind: ErrIndexOutOfRange, Message: "array index out of range", Line: fr.proto.Code.Lines[pc]}
			}
			arr.Elems[i] = fr.regs[valReg]
			pc += 4
		case compiler.OpArrayLen:
			dst, base := code[pc+1], code[pc+2]
			arr, ok := fr.regs[base].(*Array)
			if !ok {
				if next, ok := th.raise(fr, &RuntimeError{Kind: ErrTypeGuard, Message: "len of non-array value", Line: fr.proto.Code.Lines[pc]}); ok {
					pc = next
					continue
				}
				return &RuntimeError{Kind: ErrTypeGuard, Message: "len of non-array value", Line: fr.proto.Code.Lines[pc]}
			}
			fr.regs[dst] = I64(len(arr.Elems))
			pc += 4

		case compiler.OpNewStruct:
			dst, start, count := code[pc+1], code[pc+2], code[pc+3]
			fields := make([]Value, count)
			copy(fields, fr.regs[start:int(start)+int(count)])
			fr.regs[dst] = track(th.heap, &Struct{Fields: fields})
			pc += 4
		case compiler.OpFieldGet:
			dst, base, idx := code[pc+1], code[pc+2], code[pc+3]
			st, ok := fr.regs[base].(*Struct)
			if !ok || int(idx) >= len(st.Fields) {
				if next, ok := th.raise(fr, &RuntimeError{Kind: ErrTypeGuard, Message: "invalid field access", Line: fr.proto.Code.Lines[pc]}); ok {
					pc = next
					continue
				}
				return &RuntimeError{Kind: ErrTypeGuard, Message: "invalid field access", Line: fr.proto.Code.Lines[pc]}
			}
			fr.regs[dst] = st.Fields[idx]
			pc += 4
		case compiler.OpFieldSet:
			base, idx, valReg := code[pc+1], code[pc+2], code[pc+3]
			st, ok := fr.regs[base].(*Struct)
			if !ok || int(idx) >= len(st.Fields) {
				if next, ok := th.raise(fr, &RuntimeError{Kind: ErrTypeGuard, Message: "invalid field access", Line: fr.proto.Code.Lines[pc]}); ok {
					pc = next
					continue
				}
				return &RuntimeError{Kind: ErrTypeGuard, Message: "invalid field access", Line: fr.proto.Code.Lines[pc]}
			}
			st.Fields[idx] = fr.regs[valReg]
			pc += 4

		case compiler.OpEnumNew:
			variantIdx, payloadCount, start := code[pc+1], code[pc+2], code[pc+3]
			typeIdx := binary.BigEndian.Uint16(code[pc+4 : pc+6])
			varIdx := binary.BigEndian.Uint16(code[pc+6 : pc+8])
			dst := code[pc+8]
			payload := make([]Value, payloadCount)
			copy(payload, fr.regs[start:int(start)+int(payloadCount)])
			_ = variantIdx
			fr.regs[dst] = track(th.heap, &Enum{
				TypeName:    prog.Constants[typeIdx].S,
				VariantName: prog.Constants[varIdx].S,
				Payload:     payload,
			})
			pc += 9

		case compiler.OpGetUpval:
			dst, idx := code[pc+1], code[pc+2]
			fr.regs[dst] = fr.upvalues[idx].V
			pc += 4
		case compiler.OpSetUpval:
			idx, src := code[pc+1], code[pc+2]
			fr.upvalues[idx].V = fr.regs[src]
			pc += 4
		case compiler.OpNewCell:
			dst, initReg := code[pc+1], code[pc+2]
			fr.regs[dst] = track(th.heap, &Cell{V: fr.regs[initReg]})
			pc += 4
		case compiler.OpCellGet:
			dst, cellReg := code[pc+1], code[pc+2]
			c, ok := fr.regs[cellReg].(*Cell)
			if !ok {
				if next, ok := th.raise(fr, &RuntimeError{Kind: ErrTypeGuard, Message: "read of uninitialized cell", Line: fr.proto.Code.Lines[pc]}); ok {
					pc = next
					continue
				}
				return &RuntimeError{Kind: ErrTypeGuard, Message: "read of uninitialized cell", Line: fr.proto.Code.Lines[pc]}
			}
			fr.regs[dst] = c.V
			pc += 4
		case compiler.OpCellSet:
			cellReg, src := code[pc+1], code[pc+2]
			c, ok := fr.regs[cellReg].(*Cell)
			if !ok {
				c = &Cell{}
				fr.regs[cellReg] = track(th.heap, c)
			}
			c.V = fr.regs[src]
			pc += 4
		case compiler.OpClosure:
			dst := code[pc+1]
			idx := int(binary.BigEndian.Uint16(code[pc+2 : pc+4]))
			fr.regs[dst] = track(th.heap, makeClosure(fr, prog.Functions[idx], idx))
			pc += 4

		case compiler.OpMakeRange:
			dst, startReg, endReg := code[pc+1], code[pc+2], code[pc+3]
			start, err1 := asInt(fr.regs[startReg])
			stop, err2 := asInt(fr.regs[endReg])
			if err1 != nil || err2 != nil {
				if next, ok := th.raise(fr, &RuntimeError{Kind: ErrTypeGuard, Message: "range bounds must be integers", Line: fr.proto.Code.Lines[pc]}); ok {
					pc = next
					continue
				}
				return &RuntimeError{Kind: ErrTypeGuard, Message: "range bounds must be integers", Line: fr.proto.Code.Lines[pc]}
			}
			kind := RangeI64
			switch fr.regs[startReg].(type) {
			case I32:
				kind = RangeI32
			case U32:
				kind = RangeU32
			case U64:
				kind = RangeU64
			}
			fr.regs[dst] = track(th.heap, &RangeIter{Cur: start, Stop: stop, Step: 1, Kind: kind})
			pc += 4
		case compiler.OpRangeNext:
			dst, iterReg := code[pc+1], code[pc+2]
			offBase := pc + 3
			rel := int(int16(binary.BigEndian.Uint16(code[offBase : offBase+2])))
			it, ok := fr.regs[iterReg].(*RangeIter)
			if !ok {
				if next, ok := th.raise(fr, &RuntimeError{Kind: ErrTypeGuard, Message: "RANGE_NEXT on non-iterator", Line: fr.proto.Code.Lines[pc]}); ok {
					pc = next
					continue
				}
				return &RuntimeError{Kind: ErrTypeGuard, Message: "RANGE_NEXT on non-iterator", Line: fr.proto.Code.Lines[pc]}
			}
			if it.Cur >= it.Stop {
				pc = offBase + 2 + rel
			} else {
				switch it.Kind {
				case RangeI32:
					fr.regs[dst] = I32(it.Cur)
				case RangeU32:
					fr.regs[dst] = U32(it.Cur)
				case RangeU64:
					fr.regs[dst] = U64(it.Cur)
				default:
					fr.regs[dst] = I64(it.Cur)
				}
				it.Cur += it.Step
				pc += 5
			}

		case compiler.OpCall:
			dst, fnReg, argStart := code[pc+1], code[pc+2], code[pc+3]
			argCount := int(dst) - int(argStart)
			if argCount < 0 {
				argCount = 0
			}
			args := make([]Value, argCount)
			copy(args, fr.regs[argStart:int(argStart)+argCount])
			clo, ok := fr.regs[fnReg].(*Closure)
			if !ok {
				if next, ok := th.raise(fr, &RuntimeError{Kind: ErrTypeGuard, Message: "call of non-function value", Line: fr.proto.Code.Lines[pc]}); ok {
					pc = next
					continue
				}
				return &RuntimeError{Kind: ErrTypeGuard, Message: "call of non-function value", Line: fr.proto.Code.Lines[pc]}
			}
			result, err := th.call(prog, clo.ProtoIndex, args, clo.Upvalues)
			if err != nil {
				if next, ok := th.raise(fr, err); ok {
					pc = next
					continue
				}
				return err
			}
			fr.regs[dst] = result
			pc += 4

		case compiler.OpReturn:
			fr.returnVal = fr.regs[code[pc+1]]
			fr.returned = true
			fr.pc = pc
			return nil
		case compiler.OpReturnNil:
			fr.returnVal = Nil{}
			fr.returned = true
			fr.pc = pc
			return nil

		case compiler.OpJump, compiler.OpLoop:
			rel := int(int16(binary.BigEndian.Uint16(code[pc+2 : pc+4])))
			pc = pc + 4 + rel
		case compiler.OpJumpShort, compiler.OpLoopShort:
			rel := int(int8(code[pc+2]))
			pc = pc + 3 + rel
		case compiler.OpJumpIfNot:
			cond := code[pc+1]
			rel := int(int16(binary.BigEndian.Uint16(code[pc+2 : pc+4])))
			if !truthy(fr.regs[cond]) {
				pc = pc + 4 + rel
			} else {
				pc += 4
			}
		case compiler.OpJumpIfNotShort:
			cond := code[pc+1]
			rel := int(int8(code[pc+2]))
			if !truthy(fr.regs[cond]) {
				pc = pc + 3 + rel
			} else {
				pc += 3
			}

		case compiler.OpTryBegin:
			catchReg := code[pc+1]
			rel := int(int16(binary.BigEndian.Uint16(code[pc+2 : pc+4])))
			handlerAddr := pc + 4 + rel
			fr.tryStack = append(fr.tryStack, tryHandler{catchPC: handlerAddr, catchReg: catchReg})
			pc += 4
		case compiler.OpTryEnd:
			if n := len(fr.tryStack); n > 0 {
				fr.tryStack = fr.tryStack[:n-1]
			}
			pc += 4
		case compiler.OpThrow:
			msg := fr.regs[code[pc+1]].String()
			if next, ok := th.raise(fr, &RuntimeError{Kind: ErrUnhandledThrow, Message: msg, Line: fr.proto.Code.Lines[pc]}); ok {
				pc = next
				continue
			}
			return &RuntimeError{Kind: ErrUnhandledThrow, Message: msg, Line: fr.proto.Code.Lines[pc]}

		case compiler.OpPrint:
			start, count := code[pc+1], code[pc+2]
			for i := 0; i < int(count); i++ {
				if i > 0 {
					fmt.Fprint(th.stdout, " ")
				}
				fmt.Fprint(th.stdout, fr.regs[int(start)+i].String())
			}
			fmt.Fprintln(th.stdout)
			pc += 4

		case compiler.OpHalt:
			return nil

		default:
			if next, ok := th.raise(fr, &RuntimeError{Message: fmt.Sprintf("unimplemented opcode %s", op), Line: fr.proto.Code.Lines[pc]}); ok {
				pc = next
				continue
			}
			return &RuntimeError{Message: fmt.Sprintf("unimplemented opcode %s", op), Line: fr.proto.Code.Lines[pc]}
		}
	}
}

func withLine(err error, line int32) error {
	if re, ok := err.(*RuntimeError); ok && re.Line == 0 {
		re.Line = line
	}
	return err
}

// raise routes a runtime error to fr's nearest active try handler, per
// spec.md §7: every RuntimeError the dispatch loop produces is catchable,
// not just an explicit THROW. It binds the handler's catch register to an
// ErrorValue carrying the same Kind and Message the error would have
// reported had it propagated uncaught, and returns the PC to resume
// execution at. If no handler is active it reports ok=false and the caller
// propagates err up the call stack unchanged.
func (th *Thread) raise(fr *Frame, err error) (int, bool) {
	re, ok := err.(*RuntimeError)
	if !ok {
		return 0, false
	}
	n := len(fr.tryStack)
	if n == 0 {
		return 0, false
	}
	h := fr.tryStack[n-1]
	fr.tryStack = fr.tryStack[:n-1]
	fr.regs[h.catchReg] = track(th.heap, &ErrorValue{Kind: re.Kind, Message: re.Message})
	return h.catchPC, true
}

func constValue(c compiler.Constant) Value {
	switch c.Kind {
	case compiler.ConstI32:
		return I32(c.I)
	case compiler.ConstI64:
		return I64(c.I)
	case compiler.ConstU32:
		return U32(c.U)
	case compiler.ConstU64:
		return U64(c.U)
	case compiler.ConstF64:
		return F64(c.F)
	case compiler.ConstString:
		return Str(c.S)
	case compiler.ConstBool:
		return Bool(c.B)
	default:
		return Nil{}
	}
}

func truthy(v Value) bool {
	switch v := v.(type) {
	case Bool:
		return bool(v)
	case Nil:
		return false
	case I32:
		return v != 0
	case I64:
		return v != 0
	case U32:
		return v != 0
	case U64:
		return v != 0
	case F64:
		return v != 0
	case Str:
		return v != ""
	default:
		return true
	}
}

func asInt(v Value) (int64, error) {
	switch v := v.(type) {
	case I32:
		return int64(v), nil
	case I64:
		return int64(v), nil
	case U32:
		return int64(v), nil
	case U64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("value is not an integer")
	}
}
