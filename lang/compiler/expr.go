package compiler

import (
	"strings"

	"github.com/orus-lang/orus/lang/ast"
	"github.com/orus-lang/orus/lang/resolver"
	"github.com/orus-lang/orus/lang/token"
)

// expr compiles ref and returns where its result lives: a typed register
// when the node's static type is a known numeric kind and the expression
// naturally produces one (identifiers, literals, typed arithmetic), a
// standard register otherwise.
func (c *Compiler) expr(ref ast.NodeRef) value {
	n := c.arena.Node(ref)
	ln, col := line(c, ref)
	switch n.Kind {
	case ast.KindIntLit:
		return c.loadIntLit(n, ln, col)
	case ast.KindFloatLit:
		dst := c.allocTypedTemp(KindF64)
		idx := c.constF64(n.Float)
		c.cur().proto.Code.EmitConst(OpLoadConst, dst.reg, idx, ln, col)
		return dst
	case ast.KindBoolLit:
		dst := c.allocStdTemp()
		op := OpLoadFalse
		if n.Bool {
			op = OpLoadTrue
		}
		c.cur().proto.Code.Emit3(op, dst.reg, 0, 0, ln, col)
		return dst
	case ast.KindStringLit:
		dst := c.allocStdTemp()
		idx := c.constStr(n.Str)
		c.cur().proto.Code.EmitConst(OpLoadConst, dst.reg, idx, ln, col)
		return dst
	case ast.KindIdent:
		return c.identValue(ref)
	case ast.KindBinary:
		return c.binary(ref, n, ln, col)
	case ast.KindUnary:
		return c.unary(ref, n, ln, col)
	case ast.KindTernary:
		return c.ternary(n, ln, col)
	case ast.KindCall:
		return c.call(n, ln, col)
	case ast.KindIndex:
		return c.index(n, ln, col)
	case ast.KindSelector:
		return c.selector(n, ln, col)
	case ast.KindParen:
		return c.expr(n.A)
	case ast.KindCast:
		return c.cast(n, ln, col)
	case ast.KindArrayLit:
		return c.arrayLit(n, ln, col)
	case ast.KindStructLit:
		return c.structLit(n, ln, col)
	case ast.KindEnumCtor:
		return c.enumCtor(n, ln, col)
	default:
		c.errorf(ref, "compiler: unsupported expression kind %v", n.Kind)
		dst := c.allocStdTemp()
		c.cur().proto.Code.Emit3(OpLoadNil, dst.reg, 0, 0, ln, col)
		return dst
	}
}

// exprStd compiles ref and guarantees a standard (boxed) register back,
// for call sites that only understand boxed Values.
func (c *Compiler) exprStd(ref ast.NodeRef) value {
	v := c.expr(ref)
	ln, col := line(c, ref)
	return c.reconcileToStd(v, ln, col)
}

func (c *Compiler) loadIntLit(n *ast.Node, ln, col int32) value {
	kind, ok := numericKind(n.Type)
	if !ok {
		kind = KindI32
	}
	dst := c.allocTypedTemp(kind)
	switch kind {
	case KindI32:
		idx := c.constI32(int32(n.Int))
		c.cur().proto.Code.EmitConst(OpLoadI32Const, dst.reg, idx, ln, col)
	case KindI64:
		idx := c.constI64(n.Int)
		c.cur().proto.Code.EmitConst(OpLoadConst, dst.reg, idx, ln, col)
	case KindU32:
		idx := c.constU32(uint32(n.Int))
		c.cur().proto.Code.EmitConst(OpLoadConst, dst.reg, idx, ln, col)
	case KindU64:
		idx := c.constU64(uint64(n.Int))
		c.cur().proto.Code.EmitConst(OpLoadConst, dst.reg, idx, ln, col)
	default:
		idx := c.constI32(int32(n.Int))
		c.cur().proto.Code.EmitConst(OpLoadI32Const, dst.reg, idx, ln, col)
	}
	return dst
}

// identValue loads an identifier's current value according to its
// resolved binding scope.
func (c *Compiler) identValue(ref ast.NodeRef) value {
	bdg := c.info.Uses[ref]
	ln, col := line(c, ref)
	if bdg == nil {
		dst := c.allocStdTemp()
		c.cur().proto.Code.Emit3(OpLoadNil, dst.reg, 0, 0, ln, col)
		return dst
	}
	switch bdg.Scope {
	case resolver.Local:
		slot, _, ok := c.slotFor(bdg)
		if !ok {
			dst := c.allocStdTemp()
			c.cur().proto.Code.Emit3(OpLoadNil, dst.reg, 0, 0, ln, col)
			return dst
		}
		if slot.hasTyped {
			return value{reg: slot.typedReg, typed: true, kind: slot.kind}
		}
		return value{reg: slot.reg}
	case resolver.Cell:
		slot, _, _ := c.slotFor(bdg)
		dst := c.allocStdTemp()
		c.cur().proto.Code.Emit3(OpCellGet, dst.reg, slot.reg, 0, ln, col)
		return dst
	case resolver.Free:
		orig := c.info.Defs[bdg.Decl]
		idx := c.ensureUpval(c.cur(), orig)
		dst := c.allocStdTemp()
		c.cur().proto.Code.Emit3(OpGetUpval, dst.reg, idx, 0, ln, col)
		return dst
	case resolver.Predeclared, resolver.Universal:
		dst := c.allocStdTemp()
		name := c.arena.Node(ref).Str
		idx := c.constStr(name)
		c.cur().proto.Code.EmitConst(OpLoadHost, dst.reg, idx, ln, col)
		return dst
	default:
		dst := c.allocStdTemp()
		c.cur().proto.Code.Emit3(OpLoadNil, dst.reg, 0, 0, ln, col)
		return dst
	}
}

func arithOpFor(tok token.Token) (arithOp, bool) {
	switch tok {
	case token.PLUS:
		return arithAdd, true
	case token.MINUS:
		return arithSub, true
	case token.STAR:
		return arithMul, true
	case token.SLASH:
		return arithDiv, true
	case token.PERCENT:
		return arithMod, true
	}
	return 0, false
}

func (c *Compiler) binary(ref ast.NodeRef, n *ast.Node, ln, col int32) value {
	switch n.Tok {
	case token.AND:
		return c.logicalAnd(n, ln, col)
	case token.OR:
		return c.logicalOr(n, ln, col)
	}

	// String concatenation is the one non-numeric '+' case.
	if n.Tok == token.PLUS && c.arena.Node(n.A).Type == ast.TypeString {
		l := c.exprStd(n.A)
		r := c.exprStd(n.B)
		dst := c.allocStdTemp()
		c.cur().proto.Code.Emit3(OpConcat, dst.reg, l.reg, r.reg, ln, col)
		c.release(l)
		c.release(r)
		return dst
	}

	switch n.Tok {
	case token.EQEQ, token.BANGEQ, token.LT, token.LE, token.GT, token.GE:
		l := c.exprStd(n.A)
		r := c.exprStd(n.B)
		dst := c.allocStdTemp()
		c.cur().proto.Code.Emit3(cmpOpcode(n.Tok), dst.reg, l.reg, r.reg, ln, col)
		c.release(l)
		c.release(r)
		return dst

	case token.AMPERSAND, token.PIPE, token.CIRCUMFLEX, token.LTLT, token.GTGT:
		l := c.exprStd(n.A)
		r := c.exprStd(n.B)
		dst := c.allocStdTemp()
		c.cur().proto.Code.Emit3(bitwiseOpcode(n.Tok), dst.reg, l.reg, r.reg, ln, col)
		c.release(l)
		c.release(r)
		return dst
	}

	op, ok := arithOpFor(n.Tok)
	if !ok {
		c.errorf(ref, "compiler: unsupported binary operator %v", n.Tok)
		return c.allocStdTemp()
	}

	if kind, ok := numericKindOf(n.Type); ok {
		l := c.reconcileToTyped(c.expr(n.A), kind, ln, col)
		r := c.reconcileToTyped(c.expr(n.B), kind, ln, col)
		dst := c.allocTypedTemp(kind)
		c.cur().proto.Code.Emit3(typedArithOpcode(kind, op), dst.reg, l.reg, r.reg, ln, col)
		c.release(l)
		c.release(r)
		return dst
	}

	// Static type unresolved (an operand came from an array index, struct
	// field, or call result): fall back to the runtime-tagged standard
	// family rather than guessing a kind.
	l := c.exprStd(n.A)
	r := c.exprStd(n.B)
	dst := c.allocStdTemp()
	c.cur().proto.Code.Emit3(stdArithOpcode(op), dst.reg, l.reg, r.reg, ln, col)
	c.release(l)
	c.release(r)
	return dst
}

func cmpOpcode(tok token.Token) Opcode {
	switch tok {
	case token.EQEQ:
		return OpCmpEq
	case token.BANGEQ:
		return OpCmpNe
	case token.LT:
		return OpCmpLt
	case token.LE:
		return OpCmpLe
	case token.GT:
		return OpCmpGt
	default:
		return OpCmpGe
	}
}

func bitwiseOpcode(tok token.Token) Opcode {
	switch tok {
	case token.AMPERSAND:
		return OpBAnd
	case token.PIPE:
		return OpBOr
	case token.CIRCUMFLEX:
		return OpBXor
	case token.LTLT:
		return OpShl
	default:
		return OpShr
	}
}

// logicalAnd short-circuits: the right operand is skipped entirely when the
// left one is already false.
func (c *Compiler) logicalAnd(n *ast.Node, ln, col int32) value {
	dst := c.allocStdTemp()
	left := c.exprStd(n.A)
	c.cur().proto.Code.Emit3(OpMove, dst.reg, left.reg, 0, ln, col)
	c.release(left)
	skip := c.cur().proto.Code.EmitJump(OpJumpIfNot, dst.reg, ln, col)
	right := c.exprStd(n.B)
	c.cur().proto.Code.Emit3(OpMove, dst.reg, right.reg, 0, ln, col)
	c.release(right)
	c.cur().proto.Code.PatchTo(skip)
	return dst
}

// logicalOr short-circuits the other way: the right operand only runs when
// the left one is false.
func (c *Compiler) logicalOr(n *ast.Node, ln, col int32) value {
	dst := c.allocStdTemp()
	left := c.exprStd(n.A)
	c.cur().proto.Code.Emit3(OpMove, dst.reg, left.reg, 0, ln, col)
	c.release(left)
	toRight := c.cur().proto.Code.EmitJump(OpJumpIfNot, dst.reg, ln, col)
	toEnd := c.cur().proto.Code.EmitJump(OpJump, 0, ln, col)
	c.cur().proto.Code.PatchTo(toRight)
	right := c.exprStd(n.B)
	c.cur().proto.Code.Emit3(OpMove, dst.reg, right.reg, 0, ln, col)
	c.release(right)
	c.cur().proto.Code.PatchTo(toEnd)
	return dst
}

func (c *Compiler) unary(ref ast.NodeRef, n *ast.Node, ln, col int32) value {
	operand := c.exprStd(n.A)
	dst := c.allocStdTemp()
	switch n.Tok {
	case token.BANG, token.NOT:
		c.cur().proto.Code.Emit3(OpNot, dst.reg, operand.reg, 0, ln, col)
	case token.TILDE:
		c.cur().proto.Code.Emit3(OpBNot, dst.reg, operand.reg, 0, ln, col)
	case token.MINUS:
		c.cur().proto.Code.Emit3(OpNeg, dst.reg, operand.reg, 0, ln, col)
	default:
		c.errorf(ref, "compiler: unsupported unary operator %v", n.Tok)
	}
	c.release(operand)
	return dst
}

func (c *Compiler) ternary(n *ast.Node, ln, col int32) value {
	cond := c.exprStd(n.A)
	dst := c.allocStdTemp()
	toElse := c.cur().proto.Code.EmitJump(OpJumpIfNot, cond.reg, ln, col)
	c.release(cond)
	thenV := c.exprStd(n.B)
	c.cur().proto.Code.Emit3(OpMove, dst.reg, thenV.reg, 0, ln, col)
	c.release(thenV)
	toEnd := c.cur().proto.Code.EmitJump(OpJump, 0, ln, col)
	c.cur().proto.Code.PatchTo(toElse)
	elseV := c.exprStd(n.C)
	c.cur().proto.Code.Emit3(OpMove, dst.reg, elseV.reg, 0, ln, col)
	c.release(elseV)
	c.cur().proto.Code.PatchTo(toEnd)
	return dst
}

// call lays out the arguments as a contiguous run immediately followed by
// the destination register, so the encoded instruction only needs the
// start of that run: argCount = Rd - argStart, and Rd is free to write the
// result into once the callee returns.
func (c *Compiler) call(n *ast.Node, ln, col int32) value {
	fn := c.exprStd(n.A)
	start := c.cur().regs.AllocTempRange(len(n.List) + 1)
	for i, a := range n.List {
		av := c.exprStd(a)
		c.cur().proto.Code.Emit3(OpMove, start+uint8(i), av.reg, 0, ln, col)
		c.release(av)
	}
	dst := value{reg: start + uint8(len(n.List)), isTemp: true}
	c.cur().proto.Code.Emit3(OpCall, dst.reg, fn.reg, start, ln, col)
	c.release(fn)
	return dst
}

func (c *Compiler) index(n *ast.Node, ln, col int32) value {
	base := c.exprStd(n.A)
	idx := c.exprStd(n.B)
	dst := c.allocStdTemp()
	c.cur().proto.Code.Emit3(OpArrayGet, dst.reg, base.reg, idx.reg, ln, col)
	c.release(base)
	c.release(idx)
	return dst
}

func (c *Compiler) selector(n *ast.Node, ln, col int32) value {
	base := c.exprStd(n.A)
	idx := c.fieldIndexOf(n.A, n.Str)
	dst := c.allocStdTemp()
	c.cur().proto.Code.Emit3(OpFieldGet, dst.reg, base.reg, byte(idx), ln, col)
	c.release(base)
	return dst
}

// fieldIndexOf resolves a selector's field name to its declared index. The
// base expression's static type is TypeUnresolved post-typecheck (struct
// field access isn't tracked precisely), so this falls back to scanning
// every known struct layout for a matching field name. collectTypeDecls
// does not reject a field name declared at different indices in two struct
// types; such a name resolves to the index in whichever layout the map
// iteration reaches first.
func (c *Compiler) fieldIndexOf(_ ast.NodeRef, field string) int {
	for _, si := range c.structs {
		if idx, ok := si.fieldIndex[field]; ok {
			return idx
		}
	}
	return 0
}

func (c *Compiler) cast(n *ast.Node, ln, col int32) value {
	src := c.exprStd(n.A)
	kind, _ := numericKind(n.Type)
	dst := c.allocStdTemp()
	c.cur().proto.Code.Emit3(OpCast, dst.reg, src.reg, byte(kind), ln, col)
	c.release(src)
	return dst
}

func (c *Compiler) arrayLit(n *ast.Node, ln, col int32) value {
	start := c.cur().regs.AllocTempRange(len(n.List))
	for i, e := range n.List {
		ev := c.exprStd(e)
		c.cur().proto.Code.Emit3(OpMove, start+uint8(i), ev.reg, 0, ln, col)
		c.release(ev)
	}
	dst := c.allocStdTemp()
	c.cur().proto.Code.Emit3(OpNewArray, dst.reg, start, byte(len(n.List)), ln, col)
	return dst
}

func (c *Compiler) structLit(n *ast.Node, ln, col int32) value {
	si := c.structs[n.Str]
	start := c.cur().regs.AllocTempRange(len(n.List))
	for _, f := range n.List {
		fn := c.arena.Node(f)
		fv := c.exprStd(fn.A)
		idx := 0
		if si != nil {
			idx = si.fieldIndex[fn.Str]
		}
		c.cur().proto.Code.Emit3(OpMove, start+uint8(idx), fv.reg, 0, ln, col)
		c.release(fv)
	}
	dst := c.allocStdTemp()
	c.cur().proto.Code.Emit3(OpNewStruct, dst.reg, start, byte(len(n.List)), ln, col)
	return dst
}

func (c *Compiler) enumCtor(n *ast.Node, ln, col int32) value {
	typeName, variantName := splitEnumCtorName(n.Str)
	ei := c.enums[typeName]
	variantIdx := 0
	if ei != nil {
		variantIdx = ei.variantIndex[variantName]
	}
	start := c.cur().regs.AllocTempRange(len(n.List))
	for i, a := range n.List {
		av := c.exprStd(a)
		c.cur().proto.Code.Emit3(OpMove, start+uint8(i), av.reg, 0, ln, col)
		c.release(av)
	}
	dst := c.allocStdTemp()
	typeIdx := c.constStr(typeName)
	variantIdx16 := c.constStr(variantName)
	c.cur().proto.Code.EmitEnumNew(byte(variantIdx), byte(len(n.List)), start, typeIdx, variantIdx16, dst.reg, ln, col)
	return dst
}

func splitEnumCtorName(s string) (typeName, variantName string) {
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return "", s
}
