package machine

import "github.com/orus-lang/orus/lang/compiler"

// call runs one function activation to completion: it allocates (or
// reuses, via th.allocFrame) a Frame for proto, seeds its parameter
// registers from args, and dispatches its bytecode, returning whatever
// OP_RETURN/OP_RETURN_NIL produced.
//
// args are placed starting at frameBase, in parameter order, matching how
// lang/compiler/regalloc.go allocates a function's parameters as its first
// frame registers.
func (th *Thread) call(prog *compiler.Program, protoIdx int, args []Value, upvalues []*Cell) (Value, error) {
	if th.callDepth >= th.maxCallDepth {
		return nil, &RuntimeError{Kind: ErrStackOverflow, Message: "stack overflow"}
	}
	proto := prog.Functions[protoIdx]

	fr := th.allocFrame(proto, upvalues)
	defer th.releaseFrame(fr)

	for i, a := range args {
		fr.regs[frameBase+i] = a
	}

	th.callDepth++
	th.frames = append(th.frames, fr)
	err := th.dispatch(prog, fr)
	th.frames = th.frames[:len(th.frames)-1]
	th.callDepth--
	if err != nil {
		return nil, err
	}
	if fr.returnVal == nil {
		return Nil{}, nil
	}
	return fr.returnVal, nil
}

// frameBase mirrors lang/compiler/regalloc.go's frame region start: a
// function's parameters and locals begin at register 64, leaving 0-63 for
// the chunk's globals (a called function never addresses the caller's
// globals through its own register window; closures are the only way
// values cross frames).
const frameBase = 64

// makeClosure builds the runtime Closure for a KindFnDecl compiled to
// prog.Functions[protoIdx], resolving each UpvalDesc against the enclosing
// frame: FromParent pulls a Cell directly out of the parent's registers
// (which must already hold one, since the compiler only marks a binding
// Cell-scoped when some nested function captures it), otherwise it is
// forwarded from the parent's own upvalue list.
func makeClosure(parent *Frame, proto *compiler.FunctionProto, protoIdx int) *Closure {
	ups := make([]*Cell, len(proto.Upvalues))
	for i, desc := range proto.Upvalues {
		if desc.FromParent {
			// desc.Index is the absolute register number in the parent's own
			// frame (global 0-63 for a top-level binding, frame 64-191
			// otherwise), set verbatim from localSlot.reg by
			// compiler/closures.go's ensureUpval -- never frame-relative.
			if c, ok := parent.regs[desc.Index].(*Cell); ok {
				ups[i] = c
			} else {
				ups[i] = &Cell{V: Nil{}}
			}
		} else {
			ups[i] = parent.upvalues[desc.Index]
		}
	}
	return &Closure{ProtoIndex: protoIdx, Upvalues: ups}
}
