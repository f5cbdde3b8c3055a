package machine

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/orus-lang/orus/lang/compiler"
)

// Thread is one independent execution of a compiled Program. spec.md's
// Non-goals rule out VM concurrency between threads sharing state, but
// nothing stops an embedder from running several unrelated Threads, each
// with its own Registry and Builtins, in separate goroutines.
type Thread struct {
	// Name optionally identifies the thread for diagnostics.
	Name string

	Stdout io.Writer
	Stderr io.Writer

	// MaxSteps caps the number of bytecode instructions dispatched before
	// the thread cancels itself with a RuntimeError. Zero means no limit.
	MaxSteps int

	// MaxCallDepth caps frame nesting; exceeding it reports a stack
	// overflow RuntimeError rather than growing the Go stack unbounded.
	MaxCallDepth int

	Builtins *Builtins
	Registry *Registry

	heap *Heap

	ctx       context.Context
	ctxCancel func()
	cancelled atomic.Bool

	steps        uint64
	maxSteps     uint64
	callDepth    int
	maxCallDepth int

	frames    []*Frame
	framePool []*Frame

	trace    bool
	devMode  bool
	lastErr  error

	stdout io.Writer
	stderr io.Writer
}

// NewThread builds a Thread ready to Interpret programs, with its own
// Registry and an empty Builtins table.
func NewThread(name string) *Thread {
	th := &Thread{Name: name, Builtins: newBuiltins(), Registry: newRegistry(), heap: newHeap()}
	th.init()
	return th
}

func (th *Thread) init() {
	if th.MaxSteps <= 0 {
		th.maxSteps--
	} else {
		th.maxSteps = uint64(th.MaxSteps)
	}
	if th.MaxCallDepth <= 0 {
		th.maxCallDepth = framesMax
	} else {
		th.maxCallDepth = th.MaxCallDepth
	}
	if th.Stdout != nil {
		th.stdout = th.Stdout
	} else {
		th.stdout = os.Stdout
	}
	if th.Stderr != nil {
		th.stderr = th.Stderr
	} else {
		th.stderr = os.Stderr
	}
	th.ctx, th.ctxCancel = context.WithCancel(context.Background())
}

// SetIO redirects where PRINT writes and where trace lines go, overriding
// the os.Stdout/os.Stderr defaults NewThread's init chose. Callers (the CLI,
// tests) must call this before Interpret if they want output captured
// rather than going to the process's real stdio.
func (th *Thread) SetIO(stdout, stderr io.Writer) {
	if stdout != nil {
		th.Stdout, th.stdout = stdout, stdout
	}
	if stderr != nil {
		th.Stderr, th.stderr = stderr, stderr
	}
}

// SetTrace toggles per-instruction tracing to Stderr, the surface the CLI's
// --trace flag drives.
func (th *Thread) SetTrace(on bool) { th.trace = on }

// SetDevMode records the flag the CLI's --debug option sets. Nothing in
// this package reads it: it adds no runtime checks and does not change
// how any opcode executes.
func (th *Thread) SetDevMode(on bool) { th.devMode = on }

// LastError returns the error the most recent Interpret/InterpretModule
// call ended with, or nil if it succeeded.
func (th *Thread) LastError() error { return th.lastErr }

// ClearLastError resets LastError to nil.
func (th *Thread) ClearLastError() { th.lastErr = nil }

// Cancel asynchronously stops the thread; the next step check in dispatch
// will observe it and unwind with a RuntimeError.
func (th *Thread) Cancel() { th.cancelled.Store(true) }

// Interpret compiles nothing: it runs an already-compiled Program's
// top-level function (index 0) to completion and returns its result.
func (th *Thread) Interpret(p *compiler.Program) (Value, error) {
	v, err := th.call(p, 0, nil, nil)
	th.lastErr = err
	return v, err
}

// InterpretModule interprets p as a named module, recording it in the
// thread's Registry so a later InterpretModule call with the same name
// does not run it again and returns Nil{} with a nil error.
func (th *Thread) InterpretModule(name string, p *compiler.Program) (Value, error) {
	if _, ok := th.Registry.module(name); ok {
		return Nil{}, nil
	}
	th.Registry.setModule(name, p)
	return th.Interpret(p)
}

// Free releases the thread's pooled frames and cancels its context. A
// Thread is not reusable after Free.
func (th *Thread) Free() {
	th.framePool = nil
	th.frames = nil
	th.ctxCancel()
}

func (th *Thread) checkBudget() error {
	th.steps++
	if th.steps >= th.maxSteps {
		return &RuntimeError{Message: "step budget exceeded"}
	}
	if th.cancelled.Load() {
		return &RuntimeError{Message: fmt.Sprintf("thread cancelled: %v", context.Cause(th.ctx))}
	}
	return nil
}
