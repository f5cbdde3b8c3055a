package compiler

import (
	"github.com/orus-lang/orus/lang/ast"
	"github.com/orus-lang/orus/lang/resolver"
	"github.com/orus-lang/orus/lang/token"
)

// stmt compiles one statement. An AST that reached this function already
// passed resolve and typecheck, so every Ident/Assign target here has a
// Binding and every loop-control statement sits inside a live loopCtx.
func (c *Compiler) stmt(ref ast.NodeRef) {
	if ref == ast.NilRef {
		return
	}
	n := c.arena.Node(ref)
	ln, col := line(c, ref)
	switch n.Kind {
	case ast.KindLetDecl, ast.KindConstDecl, ast.KindStaticDecl:
		c.declStmt(ref, n, ln, col)
	case ast.KindAssign:
		c.assign(n, ln, col)
	case ast.KindExprStmt:
		c.release(c.exprStd(n.A))
	case ast.KindBlock:
		c.block(n)
	case ast.KindIf:
		c.ifStmt(n, ln, col)
	case ast.KindWhile:
		c.whileStmt(n, ln, col)
	case ast.KindForRange:
		c.forRangeStmt(ref, n, ln, col)
	case ast.KindReturn:
		c.returnStmt(n, ln, col)
	case ast.KindBreak:
		c.breakStmt(ref, ln, col)
	case ast.KindContinue:
		c.continueStmt(ref, ln, col)
	case ast.KindImport, ast.KindUse:
		// Module loading is resolved by the host at interpret_module time;
		// there is nothing to emit for either form here.
	case ast.KindTryCatch:
		c.tryCatch(ref, n, ln, col)
	case ast.KindPrint:
		c.printStmt(n, ln, col)
	case ast.KindFnDecl:
		c.fnDeclStmt(ref, n, ln, col)
	case ast.KindStructDecl, ast.KindEnumDecl:
		// Consumed by collectTypeDecls before codegen starts.
	case ast.KindImplDecl:
		for _, m := range n.List {
			c.stmt(m)
		}
	default:
		c.errorf(ref, "compiler: unsupported statement kind %v", n.Kind)
	}
}

func (c *Compiler) block(n *ast.Node) {
	c.cur().regs.EnterScope()
	for _, s := range n.List {
		c.stmt(s)
	}
	c.cur().regs.ExitScope()
}

// declStmt compiles a let/const/static declaration's initializer (if any)
// into the register collectLocalsStmt already reserved for it.
func (c *Compiler) declStmt(ref ast.NodeRef, n *ast.Node, ln, col int32) {
	bdg := c.info.Defs[ref]
	if bdg == nil {
		if n.B != ast.NilRef {
			c.release(c.exprStd(n.B))
		}
		return
	}
	slot, _, ok := c.slotFor(bdg)
	if !ok {
		return
	}
	if n.B == ast.NilRef {
		switch {
		case slot.isCell:
			tmp := c.allocStdTemp()
			c.cur().proto.Code.Emit3(OpLoadNil, tmp.reg, 0, 0, ln, col)
			c.cur().proto.Code.Emit3(OpNewCell, slot.reg, tmp.reg, 0, ln, col)
			c.release(tmp)
		case !slot.hasTyped:
			c.cur().proto.Code.Emit3(OpLoadNil, slot.reg, 0, 0, ln, col)
		}
		return
	}
	if slot.isCell {
		val := c.exprStd(n.B)
		c.cur().proto.Code.Emit3(OpNewCell, slot.reg, val.reg, 0, ln, col)
		c.release(val)
		return
	}
	if slot.hasTyped {
		val := c.reconcileToTyped(c.expr(n.B), slot.kind, ln, col)
		c.cur().proto.Code.Emit3(OpMove, slot.typedReg, val.reg, 0, ln, col)
		c.release(val)
		return
	}
	val := c.exprStd(n.B)
	c.cur().proto.Code.Emit3(OpMove, slot.reg, val.reg, 0, ln, col)
	c.release(val)
}

// tokCompoundOp maps a compound-assignment token to its underlying
// arithmetic operator; ok is false for plain '='.
func tokCompoundOp(tok token.Token) (arithOp, bool) {
	switch tok {
	case token.PLUSEQ:
		return arithAdd, true
	case token.MINUSEQ:
		return arithSub, true
	case token.STAREQ:
		return arithMul, true
	case token.SLASHEQ:
		return arithDiv, true
	case token.PERCENTEQ:
		return arithMod, true
	}
	return 0, false
}

// compoundStd folds cur (the target's current boxed value) and val (the
// right-hand side) through tok's operator; both inputs are released. For
// plain '=' it just returns val unchanged.
func (c *Compiler) compoundStd(tok token.Token, cur, val value, ln, col int32) value {
	op, ok := tokCompoundOp(tok)
	if !ok {
		return val
	}
	dst := c.allocStdTemp()
	c.cur().proto.Code.Emit3(stdArithOpcode(op), dst.reg, cur.reg, val.reg, ln, col)
	c.release(cur)
	c.release(val)
	return dst
}

// compoundTyped is compoundStd's typed-register counterpart: cur is the
// slot's own typed register (not released, since it is not a temp), val is
// a typed value of the same kind already reconciled by the caller.
func (c *Compiler) compoundTyped(tok token.Token, slot *localSlot, val value, ln, col int32) value {
	op, ok := tokCompoundOp(tok)
	if !ok {
		return val
	}
	dst := c.allocTypedTemp(slot.kind)
	c.cur().proto.Code.Emit3(typedArithOpcode(slot.kind, op), dst.reg, slot.typedReg, val.reg, ln, col)
	c.release(val)
	return dst
}

func (c *Compiler) assign(n *ast.Node, ln, col int32) {
	target := c.arena.Node(n.A)
	switch target.Kind {
	case ast.KindIdent:
		c.assignIdent(n, target, ln, col)
	case ast.KindIndex:
		base := c.exprStd(target.A)
		idx := c.exprStd(target.B)
		val := c.exprStd(n.B)
		if n.Tok != token.EQ {
			cur := c.allocStdTemp()
			c.cur().proto.Code.Emit3(OpArrayGet, cur.reg, base.reg, idx.reg, ln, col)
			val = c.compoundStd(n.Tok, cur, val, ln, col)
		}
		c.cur().proto.Code.Emit3(OpArraySet, base.reg, idx.reg, val.reg, ln, col)
		c.release(base)
		c.release(idx)
		c.release(val)
	case ast.KindSelector:
		base := c.exprStd(target.A)
		fidx := byte(c.fieldIndexOf(target.A, target.Str))
		val := c.exprStd(n.B)
		if n.Tok != token.EQ {
			cur := c.allocStdTemp()
			c.cur().proto.Code.Emit3(OpFieldGet, cur.reg, base.reg, fidx, ln, col)
			val = c.compoundStd(n.Tok, cur, val, ln, col)
		}
		c.cur().proto.Code.Emit3(OpFieldSet, base.reg, fidx, val.reg, ln, col)
		c.release(base)
		c.release(val)
	default:
		c.errorf(n.A, "compiler: unsupported assignment target kind %v", target.Kind)
	}
}

func (c *Compiler) assignIdent(n *ast.Node, target *ast.Node, ln, col int32) {
	bdg := c.info.Uses[n.A]
	if bdg == nil {
		_ = target
		c.release(c.exprStd(n.B))
		return
	}
	switch bdg.Scope {
	case resolver.Free:
		orig := c.info.Defs[bdg.Decl]
		idx := c.ensureUpval(c.cur(), orig)
		val := c.exprStd(n.B)
		if n.Tok != token.EQ {
			cur := c.allocStdTemp()
			c.cur().proto.Code.Emit3(OpGetUpval, cur.reg, idx, 0, ln, col)
			val = c.compoundStd(n.Tok, cur, val, ln, col)
		}
		c.cur().proto.Code.Emit3(OpSetUpval, idx, val.reg, 0, ln, col)
		c.release(val)
	default:
		slot, _, ok := c.slotFor(bdg)
		if !ok {
			c.release(c.exprStd(n.B))
			return
		}
		switch {
		case slot.isCell:
			val := c.exprStd(n.B)
			if n.Tok != token.EQ {
				cur := c.allocStdTemp()
				c.cur().proto.Code.Emit3(OpCellGet, cur.reg, slot.reg, 0, ln, col)
				val = c.compoundStd(n.Tok, cur, val, ln, col)
			}
			c.cur().proto.Code.Emit3(OpCellSet, slot.reg, val.reg, 0, ln, col)
			c.release(val)
		case slot.hasTyped:
			val := c.reconcileToTyped(c.expr(n.B), slot.kind, ln, col)
			if n.Tok != token.EQ {
				val = c.compoundTyped(n.Tok, slot, val, ln, col)
			}
			c.cur().proto.Code.Emit3(OpMove, slot.typedReg, val.reg, 0, ln, col)
			c.release(val)
		default:
			val := c.exprStd(n.B)
			if n.Tok != token.EQ {
				val = c.compoundStd(n.Tok, value{reg: slot.reg}, val, ln, col)
			}
			c.cur().proto.Code.Emit3(OpMove, slot.reg, val.reg, 0, ln, col)
			c.release(val)
		}
	}
}

func (c *Compiler) ifStmt(n *ast.Node, ln, col int32) {
	cond := c.exprStd(n.A)
	toElse := c.cur().proto.Code.EmitJump(OpJumpIfNot, cond.reg, ln, col)
	c.release(cond)
	c.stmt(n.B)
	if n.C != ast.NilRef {
		toEnd := c.cur().proto.Code.EmitJump(OpJump, 0, ln, col)
		c.cur().proto.Code.PatchTo(toElse)
		c.stmt(n.C)
		c.cur().proto.Code.PatchTo(toEnd)
	} else {
		c.cur().proto.Code.PatchTo(toElse)
	}
}

func (c *Compiler) whileStmt(n *ast.Node, ln, col int32) {
	start := c.cur().proto.Code.Here()
	cond := c.exprStd(n.A)
	exit := c.cur().proto.Code.EmitJump(OpJumpIfNot, cond.reg, ln, col)
	c.release(cond)

	lc := &loopCtx{}
	c.cur().loops = append(c.cur().loops, lc)
	c.stmt(n.B)
	for _, l := range lc.continues {
		c.cur().proto.Code.PatchTo(l)
	}
	c.cur().proto.Code.EmitLoop(start, ln, col)
	c.cur().proto.Code.PatchTo(exit)
	for _, l := range lc.breaks {
		c.cur().proto.Code.PatchTo(l)
	}
	c.cur().loops = c.cur().loops[:len(c.cur().loops)-1]
}

// forRangeStmt compiles a for-loop over a range. The common case (no
// explicit step) lowers straight to MAKE_RANGE_R/RANGE_NEXT_R, the same
// pair the machine's RangeIterator object exists for. An explicit step
// falls back to a hand-desugared counting loop, since RANGE_NEXT_R's
// encoding has no third operand to carry one.
func (c *Compiler) forRangeStmt(ref ast.NodeRef, n *ast.Node, ln, col int32) {
	bdg := c.info.Defs[ref]
	if bdg == nil {
		c.errorf(ref, "compiler: for loop variable has no binding")
		return
	}
	slot, _, ok := c.slotFor(bdg)
	if !ok {
		c.errorf(ref, "compiler: for loop variable has no register")
		return
	}
	rng := c.arena.Node(n.A)
	if rng.C == ast.NilRef {
		c.forRangeFast(rng, n.B, slot, ln, col)
		return
	}
	c.forRangeStepped(rng, n.B, slot, ln, col)
}

func (c *Compiler) forRangeFast(rng *ast.Node, body ast.NodeRef, slot *localSlot, ln, col int32) {
	startV := c.exprStd(rng.A)
	endV := c.exprStd(rng.B)
	iter := c.allocStdTemp()
	c.cur().proto.Code.Emit3(OpMakeRange, iter.reg, startV.reg, endV.reg, ln, col)
	c.release(startV)
	c.release(endV)

	loopStart := c.cur().proto.Code.Here()
	exit := c.cur().proto.Code.EmitJumpN(OpRangeNext, []byte{slot.reg, iter.reg}, ln, col)
	if slot.hasTyped {
		c.cur().proto.Code.Emit3(OpUnbox, slot.typedReg, slot.reg, byte(slot.kind), ln, col)
	}

	lc := &loopCtx{}
	c.cur().loops = append(c.cur().loops, lc)
	c.stmt(body)
	for _, l := range lc.continues {
		c.cur().proto.Code.PatchTo(l)
	}
	c.cur().proto.Code.EmitLoop(loopStart, ln, col)
	c.cur().proto.Code.PatchTo(exit)
	for _, l := range lc.breaks {
		c.cur().proto.Code.PatchTo(l)
	}
	c.cur().loops = c.cur().loops[:len(c.cur().loops)-1]
	c.release(iter)
}

func (c *Compiler) forRangeStepped(rng *ast.Node, body ast.NodeRef, slot *localSlot, ln, col int32) {
	start := c.exprStd(rng.A)
	c.cur().proto.Code.Emit3(OpMove, slot.reg, start.reg, 0, ln, col)
	c.release(start)
	if slot.hasTyped {
		c.cur().proto.Code.Emit3(OpUnbox, slot.typedReg, slot.reg, byte(slot.kind), ln, col)
	}

	end := c.allocStdTemp()
	endV := c.exprStd(rng.B)
	c.cur().proto.Code.Emit3(OpMove, end.reg, endV.reg, 0, ln, col)
	c.release(endV)

	step := c.allocStdTemp()
	stepV := c.exprStd(rng.C)
	c.cur().proto.Code.Emit3(OpMove, step.reg, stepV.reg, 0, ln, col)
	c.release(stepV)

	zeroIdx := c.constI32(0)
	zero := c.allocStdTemp()
	c.cur().proto.Code.EmitConst(OpLoadConst, zero.reg, zeroIdx, ln, col)
	signNonNeg := c.allocStdTemp()
	c.cur().proto.Code.Emit3(OpCmpGe, signNonNeg.reg, step.reg, zero.reg, ln, col)
	c.release(zero)

	loopStart := c.cur().proto.Code.Here()
	toNeg := c.cur().proto.Code.EmitJump(OpJumpIfNot, signNonNeg.reg, ln, col)

	posCond := c.allocStdTemp()
	c.cur().proto.Code.Emit3(OpCmpLt, posCond.reg, slot.reg, end.reg, ln, col)
	exitPos := c.cur().proto.Code.EmitJump(OpJumpIfNot, posCond.reg, ln, col)
	c.release(posCond)
	toBody := c.cur().proto.Code.EmitJump(OpJump, 0, ln, col)

	c.cur().proto.Code.PatchTo(toNeg)
	negCond := c.allocStdTemp()
	c.cur().proto.Code.Emit3(OpCmpGt, negCond.reg, slot.reg, end.reg, ln, col)
	exitNeg := c.cur().proto.Code.EmitJump(OpJumpIfNot, negCond.reg, ln, col)
	c.release(negCond)

	c.cur().proto.Code.PatchTo(toBody)
	lc := &loopCtx{}
	c.cur().loops = append(c.cur().loops, lc)
	c.stmt(body)
	for _, l := range lc.continues {
		c.cur().proto.Code.PatchTo(l)
	}

	next := c.allocStdTemp()
	c.cur().proto.Code.Emit3(OpAddStd, next.reg, slot.reg, step.reg, ln, col)
	c.cur().proto.Code.Emit3(OpMove, slot.reg, next.reg, 0, ln, col)
	c.release(next)
	if slot.hasTyped {
		c.cur().proto.Code.Emit3(OpUnbox, slot.typedReg, slot.reg, byte(slot.kind), ln, col)
	}
	c.cur().proto.Code.EmitLoop(loopStart, ln, col)

	c.cur().proto.Code.PatchTo(exitPos)
	c.cur().proto.Code.PatchTo(exitNeg)
	for _, l := range lc.breaks {
		c.cur().proto.Code.PatchTo(l)
	}
	c.cur().loops = c.cur().loops[:len(c.cur().loops)-1]
	c.release(end)
	c.release(step)
	c.release(signNonNeg)
}

func (c *Compiler) returnStmt(n *ast.Node, ln, col int32) {
	if n.A == ast.NilRef {
		c.cur().proto.Code.Emit3(OpReturnNil, 0, 0, 0, ln, col)
		return
	}
	v := c.exprStd(n.A)
	c.cur().proto.Code.Emit3(OpReturn, v.reg, 0, 0, ln, col)
	c.release(v)
}

func (c *Compiler) breakStmt(ref ast.NodeRef, ln, col int32) {
	fc := c.cur()
	if len(fc.loops) == 0 {
		c.errorf(ref, "compiler: break outside a loop")
		return
	}
	lc := fc.loops[len(fc.loops)-1]
	lbl := fc.proto.Code.EmitJump(OpJump, 0, ln, col)
	lc.breaks = append(lc.breaks, lbl)
}

func (c *Compiler) continueStmt(ref ast.NodeRef, ln, col int32) {
	fc := c.cur()
	if len(fc.loops) == 0 {
		c.errorf(ref, "compiler: continue outside a loop")
		return
	}
	lc := fc.loops[len(fc.loops)-1]
	lbl := fc.proto.Code.EmitJump(OpJump, 0, ln, col)
	lc.continues = append(lc.continues, lbl)
}

// tryCatch compiles a try/catch block to TRY_BEGIN/TRY_END, with the catch
// variable's pre-declared slot as the handler's landing register: the
// machine writes the caught error there before jumping to the handler.
func (c *Compiler) tryCatch(ref ast.NodeRef, n *ast.Node, ln, col int32) {
	bdg := c.info.Defs[ref]
	var catchReg byte
	if bdg != nil {
		if slot, _, ok := c.slotFor(bdg); ok {
			catchReg = slot.reg
		}
	}
	handler := c.cur().proto.Code.EmitJump(OpTryBegin, catchReg, ln, col)
	c.stmt(n.A)
	c.cur().proto.Code.Emit3(OpTryEnd, 0, 0, 0, ln, col)
	skipCatch := c.cur().proto.Code.EmitJump(OpJump, 0, ln, col)
	c.cur().proto.Code.PatchTo(handler)
	c.stmt(n.B)
	c.cur().proto.Code.PatchTo(skipCatch)
}

func (c *Compiler) printStmt(n *ast.Node, ln, col int32) {
	start := c.cur().regs.AllocTempRange(len(n.List))
	for i, a := range n.List {
		av := c.exprStd(a)
		c.cur().proto.Code.Emit3(OpMove, start+uint8(i), av.reg, 0, ln, col)
		c.release(av)
	}
	c.cur().proto.Code.Emit3(OpPrint, start, byte(len(n.List)), 0, ln, col)
}

// fnDeclStmt compiles a nested function declaration: its body is compiled
// as its own FunctionProto appended to the program's function table, and a
// CLOSURE_R instruction is emitted into the enclosing scope to build the
// runtime closure value that the declaration's own slot (already reserved
// by collectLocalsStmt) is initialized to.
func (c *Compiler) fnDeclStmt(ref ast.NodeRef, n *ast.Node, ln, col int32) {
	bdg := c.info.Defs[ref]
	var slot *localSlot
	if bdg != nil {
		slot, _, _ = c.slotFor(bdg)
	}

	parent := c.cur()
	child := c.pushFunc(n.Str, false, ref)
	child.proto.NumParams = len(n.List)
	fnIndex := len(c.prog.Functions)
	c.prog.Functions = append(c.prog.Functions, child.proto)
	parent.fnIndex[ref] = fnIndex

	for _, p := range n.List {
		c.declareLocal(p, child)
	}
	body := c.arena.Node(n.B)
	c.collectLocals(body.List, child)
	for _, s := range body.List {
		c.stmt(s)
	}
	c.finishFunc(child)
	c.popFunc()

	if slot != nil {
		c.cur().proto.Code.EmitConst(OpClosure, slot.reg, uint16(fnIndex), ln, col)
	}
}
