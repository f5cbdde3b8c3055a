package machine

import (
	"fmt"

	"github.com/orus-lang/orus/lang/compiler"
)

// ErrorKind classifies a RuntimeError/ErrorValue by the taxonomy spec.md §7
// lists for the runtime category (division-by-zero, integer overflow,
// array-index OOB, type-guard failure, stack overflow, unhandled throw), so
// a host or a catch handler can branch on the failure kind instead of
// string-matching Message.
type ErrorKind uint8

const (
	ErrUnknown ErrorKind = iota
	ErrDivisionByZero
	ErrIntegerOverflow
	ErrIntegerUnderflow
	ErrIndexOutOfRange
	ErrTypeGuard
	ErrStackOverflow
	ErrUnhandledThrow
)

func (k ErrorKind) String() string {
	switch k {
	case ErrDivisionByZero:
		return "DivisionByZero"
	case ErrIntegerOverflow:
		return "IntegerOverflow"
	case ErrIntegerUnderflow:
		return "IntegerUnderflow"
	case ErrIndexOutOfRange:
		return "IndexOutOfRange"
	case ErrTypeGuard:
		return "TypeGuard"
	case ErrStackOverflow:
		return "StackOverflow"
	case ErrUnhandledThrow:
		return "UnhandledThrow"
	default:
		return "Unknown"
	}
}

// RuntimeError is the error type every failure the dispatch loop detects
// produces: a division by zero, an integer overflow, an out-of-bounds array
// index, a stack overflow, or an uncaught throw. Host callers distinguish
// it from a host/IO error with a type assertion, and distinguish its kind
// with Kind rather than matching Message text.
type RuntimeError struct {
	Kind    ErrorKind
	Message string
	Line    int32
}

func (e *RuntimeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// FRAMES_MAX bounds both the free-list pool size and the deepest call
// chain a thread will execute before reporting a stack overflow instead of
// growing further, per spec.md's no-growth frame pooling design.
const framesMax = 256

// allocFrame returns a Frame for proto, reusing one from the thread's free
// list when available instead of allocating, since every Frame's register
// array is a fixed-size value embedded in the struct (not a slice), so a
// pooled Frame needs only its bookkeeping fields reset before reuse.
func (th *Thread) allocFrame(proto *compiler.FunctionProto, upvalues []*Cell) *Frame {
	var fr *Frame
	if n := len(th.framePool); n > 0 {
		fr = th.framePool[n-1]
		th.framePool = th.framePool[:n-1]
		fr.reset()
	} else {
		fr = &Frame{}
		for i := range fr.regs {
			fr.regs[i] = Nil{}
		}
	}
	fr.proto = proto
	fr.upvalues = upvalues
	return fr
}

func (th *Thread) releaseFrame(fr *Frame) {
	if len(th.framePool) < framesMax {
		th.framePool = append(th.framePool, fr)
	}
}
