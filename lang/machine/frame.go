package machine

import "github.com/orus-lang/orus/lang/compiler"

// registerCount is the size of the standard register file: the 256
// addressable slots compiler/regalloc.go carves into Global/Frame/Temp/
// Module regions, plus room to spill beyond 256 for pathologically deep
// expressions (spilled registers are addressed the same way, just past the
// module region, and never produced by the current register allocator, but
// the frame tolerates them so a future allocator change doesn't need a
// frame layout change too).
const registerCount = 320

// typedWindow holds the shadow register banks, 256 unboxed slots per
// numeric kind and bool. Slots carry no live or dirty flag; OpBox/OpUnbox
// copy a slot here to or from its boxed Value counterpart in the
// standard bank when the code asks for it.
type typedWindow struct {
	i32 [256]int32
	i64 [256]int64
	u32 [256]uint32
	u64 [256]uint64
	f64 [256]float64
	b   [256]bool
}

// tryHandler is one entry of the try-frame stack OP_TRY_BEGIN pushes and
// OP_TRY_END pops: the catch block's address, where execution resumes when
// an error unwinds to this handler, and the register the thrown
// ErrorValue lands in.
type tryHandler struct {
	catchPC  int
	catchReg uint8
}

// Frame is one activation record: the standard register window, the
// parallel typed windows, this call's upvalue cells, and its try-handler
// stack. Frames are pooled (see Thread.allocFrame) rather than allocated
// fresh per call, since the standard register slice is fixed-size and
// reusable.
type Frame struct {
	proto    *compiler.FunctionProto
	pc       int
	regs     [registerCount]Value
	typed    typedWindow
	upvalues []*Cell
	tryStack []tryHandler
	// returned is set once OP_RETURN/OP_RETURN_NIL fires; the dispatch
	// loop in machine.go returns from that instruction directly and does
	// not read this flag.
	returned  bool
	returnVal Value
}

func newFrame(proto *compiler.FunctionProto, upvalues []*Cell) *Frame {
	fr := &Frame{proto: proto, upvalues: upvalues}
	for i := range fr.regs {
		fr.regs[i] = Nil{}
	}
	return fr
}

func (fr *Frame) reset() {
	fr.pc = 0
	fr.returned = false
	fr.returnVal = nil
	fr.tryStack = fr.tryStack[:0]
	fr.upvalues = nil
	for i := range fr.regs {
		fr.regs[i] = Nil{}
	}
}

// markRoots visits every Value this frame can currently reach: its
// standard registers (the typed windows hold only scalars, nothing
// heap-allocated, so they need no marking) and its captured upvalue cells.
func (fr *Frame) markRoots(mark func(Value)) {
	for _, v := range fr.regs {
		mark(v)
	}
	for _, uv := range fr.upvalues {
		mark(uv)
	}
	if fr.returnVal != nil {
		mark(fr.returnVal)
	}
}
