// Much of this package's shape -- a Program holding a flat constant pool
// and a function table, each function compiled independently against its
// own register allocator -- is adapted from the code-generation structure
// of the Starlark-go compiler:
// https://github.com/google/starlark-go/tree/ee8ed142361c69d52fe8e9fb5e311d2a0a7c02de
//
// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package compiler takes a parsed, resolved and type-checked AST and emits
// register-based bytecode for the virtual machine in lang/machine. Every
// arithmetic operator is compiled to one of two opcode families: a typed
// form used when both operands already live in a typed register of the
// same numeric kind, and a standard form that reads and retags boxed
// Values, so tight numeric loops stay on the fast path while code that
// mixes variables still works.
package compiler

import (
	"fmt"

	"github.com/dolthub/swiss"

	"github.com/orus-lang/orus/lang/ast"
	"github.com/orus-lang/orus/lang/diag"
	"github.com/orus-lang/orus/lang/resolver"
	"github.com/orus-lang/orus/lang/token"
)

// localSlot records where one binding's value lives: always a standard
// register, and additionally a typed register when the binding's static
// type is numeric, so hot arithmetic on that variable can stay in the
// typed family without reboxing on every access.
type localSlot struct {
	reg      uint8
	kind     NumericKind
	typedReg uint8
	hasTyped bool
	isGlobal bool

	// isCell is true for a binding the resolver classified as Cell: reg
	// holds a heap Cell object instead of the value directly, read and
	// written through OpCellGet/OpCellSet so an inner closure's OpClosure
	// can capture the same Cell by reference.
	isCell bool
}

// structInfo records a struct's field order (for NEW_STRUCT_R/FIELD_GET_R)
// and an enum's variant order (for ENUM_NEW), collected in a pre-pass so
// forward references within a chunk resolve correctly.
type structInfo struct {
	fieldIndex map[string]int
	fieldOrder []string
}

type enumInfo struct {
	variantIndex map[string]int
}

// loopCtx tracks the patch points a break/continue inside the innermost
// loop must reach. continue jumps forward to the loop's increment/condition
// step (resolved once the loop finishes emitting its body), exactly like
// break jumps forward to the loop's exit.
type loopCtx struct {
	breaks    []Label
	continues []Label
}

// funcCtx holds everything being built for one function (or the top-level
// chunk, treated as the implicit main function).
type funcCtx struct {
	proto   *FunctionProto
	regs    *RegAlloc
	isTop   bool
	declRef ast.NodeRef // chunk or KindFnDecl ref this function was pushed for, for diagnostics
	locals  map[*resolver.Binding]*localSlot
	loops   []*loopCtx
	fnIndex map[ast.NodeRef]int         // KindFnDecl ref -> index into Program.Functions, for CLOSURE_R
	upvals  map[*resolver.Binding]uint8 // Free binding -> index into this function's Upvalues table
	parent  *funcCtx
}

// Compiler is the code generator's top-level state, shared by every
// function it compiles for one chunk.
type Compiler struct {
	arena *ast.Arena
	fset  *token.FileSet
	info  *resolver.Info
	diags diag.List

	prog     *Program
	constIdx *swiss.Map[Constant, uint16]

	structs map[string]*structInfo
	enums   map[string]*enumInfo

	fn []*funcCtx // compile-time call stack, outermost (chunk) first
}

// CompileFiles compiles every chunk (each already resolved and
// type-checked by the resolver package) into its own Program. An AST that
// carried resolve or type errors must never reach this function; behavior
// is undefined otherwise, the same contract the resolver documents for its
// own inputs.
func CompileFiles(arena *ast.Arena, fset *token.FileSet, chunks []ast.NodeRef, info *resolver.Info) ([]*Program, diag.List, error) {
	var progs []*Program
	var diags diag.List
	for _, ch := range chunks {
		c := newCompiler(arena, fset, info)
		prog := c.compileChunk(ch)
		progs = append(progs, prog)
		for _, d := range c.diags.All() {
			diags.Add(d)
		}
	}
	diags.Sort()
	return progs, diags, diags.Err()
}

func newCompiler(arena *ast.Arena, fset *token.FileSet, info *resolver.Info) *Compiler {
	return &Compiler{
		arena:    arena,
		fset:     fset,
		info:     info,
		constIdx: swiss.NewMap[Constant, uint16](16),
		structs:  make(map[string]*structInfo),
		enums:    make(map[string]*enumInfo),
	}
}

func (c *Compiler) errorf(ref ast.NodeRef, format string, args ...any) {
	pos, _ := c.arena.Span(ref)
	c.diags.Add(diag.Diagnostic{
		Severity: diag.Error,
		Pos:      c.fset.Position(pos),
		Message:  fmt.Sprintf(format, args...),
	})
}

func (c *Compiler) cur() *funcCtx { return c.fn[len(c.fn)-1] }

func (c *Compiler) code() *BytecodeBuffer { return &c.cur().proto.Code }

func (c *Compiler) compileChunk(ch ast.NodeRef) *Program {
	n := c.arena.Node(ch)
	c.prog = &Program{Filename: n.Str}

	c.collectTypeDecls(n.List)

	top := c.pushFunc("<main>", true, ch)
	c.prog.Functions = append(c.prog.Functions, top.proto)

	c.collectLocals(n.List, top)
	for _, d := range n.List {
		c.stmt(d)
	}
	c.finishFunc(top)
	c.popFunc()
	return c.prog
}

func (c *Compiler) pushFunc(name string, isTop bool, declRef ast.NodeRef) *funcCtx {
	var parent *funcCtx
	if len(c.fn) > 0 {
		parent = c.cur()
	}
	ctx := &funcCtx{
		proto:   &FunctionProto{Name: name},
		regs:    NewRegAlloc(),
		isTop:   isTop,
		declRef: declRef,
		locals:  make(map[*resolver.Binding]*localSlot),
		fnIndex: make(map[ast.NodeRef]int),
		upvals:  make(map[*resolver.Binding]uint8),
		parent:  parent,
	}
	c.fn = append(c.fn, ctx)
	return ctx
}

func (c *Compiler) popFunc() { c.fn = c.fn[:len(c.fn)-1] }

// finishFunc closes out code generation for ctx: it pads a missing trailing
// return, runs the peephole pass, fixes the frame size, and -- since
// RegAlloc never panics on exhaustion (see regalloc.go) -- turns any
// register-exhaustion failure the function's allocator accumulated into a
// normal compile diagnostic instead of letting the truncated bytecode it
// produced pass silently.
func (c *Compiler) finishFunc(ctx *funcCtx) {
	if n := ctx.proto.Code.Here(); n == 0 || ctx.proto.Code.Code[len(ctx.proto.Code.Code)-4] != byte(OpReturn) {
		ctx.proto.Code.Emit3(OpReturnNil, 0, 0, 0, 0, 0)
	}
	RunPeephole(&ctx.proto.Code)
	ctx.proto.FrameSize = frameLimit - frameBase
	if err := ctx.regs.Err(); err != nil {
		c.errorf(ctx.declRef, "%s", err)
	}
}

// --- constant pool -----------------------------------------------------

func (c *Compiler) constI32(v int32) uint16  { return c.constant(Constant{Kind: ConstI32, I: int64(v)}) }
func (c *Compiler) constI64(v int64) uint16  { return c.constant(Constant{Kind: ConstI64, I: v}) }
func (c *Compiler) constU32(v uint32) uint16 { return c.constant(Constant{Kind: ConstU32, U: uint64(v)}) }
func (c *Compiler) constU64(v uint64) uint16 { return c.constant(Constant{Kind: ConstU64, U: v}) }
func (c *Compiler) constF64(v float64) uint16 { return c.constant(Constant{Kind: ConstF64, F: v}) }
func (c *Compiler) constStr(s string) uint16 { return c.constant(Constant{Kind: ConstString, S: s}) }

func (c *Compiler) constant(k Constant) uint16 {
	if idx, ok := c.constIdx.Get(k); ok {
		return idx
	}
	idx := uint16(len(c.prog.Constants))
	c.prog.Constants = append(c.prog.Constants, k)
	c.constIdx.Put(k, idx)
	return idx
}

// --- struct/enum declaration collection --------------------------------

func (c *Compiler) collectTypeDecls(decls []ast.NodeRef) {
	for _, ref := range decls {
		n := c.arena.Node(ref)
		switch n.Kind {
		case ast.KindStructDecl:
			si := &structInfo{fieldIndex: make(map[string]int)}
			for i, f := range n.List {
				fn := c.arena.Node(f)
				si.fieldIndex[fn.Str] = i
				si.fieldOrder = append(si.fieldOrder, fn.Str)
			}
			c.structs[n.Str] = si
		case ast.KindEnumDecl:
			ei := &enumInfo{variantIndex: make(map[string]int)}
			for i, v := range n.List {
				vn := c.arena.Node(v)
				ei.variantIndex[vn.Str] = i
			}
			c.enums[n.Str] = ei
		}
	}
}

// --- local/register assignment -----------------------------------------

// collectLocals walks every statement reachable in the current function's
// scope (stopping at nested KindFnDecl boundaries, which get their own
// register space when compiled) and assigns a register to each
// declaration, mirroring the resolver's own scope walk.
func (c *Compiler) collectLocals(stmts []ast.NodeRef, ctx *funcCtx) {
	for _, s := range stmts {
		c.collectLocalsStmt(s, ctx)
	}
}

func (c *Compiler) collectLocalsStmt(ref ast.NodeRef, ctx *funcCtx) {
	if ref == ast.NilRef {
		return
	}
	n := c.arena.Node(ref)
	switch n.Kind {
	case ast.KindLetDecl, ast.KindConstDecl, ast.KindStaticDecl, ast.KindParam:
		c.declareLocal(ref, ctx)
	case ast.KindForRange:
		c.declareLocal(ref, ctx)
		c.collectLocalsStmt(n.B, ctx)
	case ast.KindTryCatch:
		c.collectLocalsStmt(n.A, ctx)
		c.declareLocal(ref, ctx)
		c.collectLocalsStmt(n.B, ctx)
	case ast.KindBlock:
		c.collectLocals(n.List, ctx)
	case ast.KindIf:
		c.collectLocalsStmt(n.B, ctx)
		if n.C != ast.NilRef {
			c.collectLocalsStmt(n.C, ctx)
		}
	case ast.KindWhile:
		c.collectLocalsStmt(n.B, ctx)
	case ast.KindFnDecl:
		c.declareLocal(ref, ctx)
	case ast.KindImplDecl:
		for _, m := range n.List {
			c.collectLocalsStmt(m, ctx)
		}
	}
}

func (c *Compiler) declareLocal(ref ast.NodeRef, ctx *funcCtx) {
	bdg := c.info.Defs[ref]
	if bdg == nil {
		return
	}
	slot := &localSlot{isGlobal: ctx.isTop, isCell: bdg.Scope == resolver.Cell}
	if ctx.isTop {
		slot.reg = ctx.regs.AllocGlobal()
	} else {
		slot.reg = ctx.regs.AllocFrame()
	}
	// Cell-backed locals always go through the boxed Cell indirection, so
	// there is no point also giving them a typed shadow register: every
	// access already pays for a CELL_GET_R/CELL_SET_R round trip.
	if !slot.isCell {
		if kind, ok := numericKind(bdg.Type); ok {
			slot.kind = kind
			slot.typedReg = ctx.regs.AllocTyped(kind)
			slot.hasTyped = true
		}
	}
	ctx.locals[bdg] = slot
}

// numericKind maps a binding's declared ast.TypeID to the register
// allocator's NumericKind, or reports false for non-numeric types (which
// only ever live in the standard bank).
func numericKind(t ast.TypeID) (NumericKind, bool) {
	switch t {
	case ast.TypeI32:
		return KindI32, true
	case ast.TypeI64:
		return KindI64, true
	case ast.TypeU32:
		return KindU32, true
	case ast.TypeU64:
		return KindU64, true
	case ast.TypeF64:
		return KindF64, true
	default:
		return KindNone, false
	}
}

// slotFor resolves a Binding to its localSlot, searching the active
// function first, then enclosing ones (a Free binding's Decl resolves to
// the Binding registered in whichever enclosing funcCtx owns it).
func (c *Compiler) slotFor(bdg *resolver.Binding) (*localSlot, *funcCtx, bool) {
	for ctx := c.cur(); ctx != nil; ctx = ctx.parent {
		if s, ok := ctx.locals[bdg]; ok {
			return s, ctx, true
		}
	}
	return nil, nil, false
}

func line(c *Compiler, ref ast.NodeRef) (int32, int32) {
	pos, _ := c.arena.Span(ref)
	p := c.fset.Position(pos)
	return int32(p.Line), int32(p.Column)
}
