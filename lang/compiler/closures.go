package compiler

import "github.com/orus-lang/orus/lang/resolver"

// ensureUpval returns ctx's upvalue index for orig (the original Local/Cell
// binding that owns the captured storage), registering a new UpvalDesc --
// and, transitively, one in every enclosing function between ctx and orig's
// owning function -- if this is the first reference to it from ctx.
func (c *Compiler) ensureUpval(ctx *funcCtx, orig *resolver.Binding) uint8 {
	if idx, ok := ctx.upvals[orig]; ok {
		return idx
	}
	parent := ctx.parent
	var desc UpvalDesc
	if slot, ok := parent.locals[orig]; ok {
		desc = UpvalDesc{FromParent: true, Index: slot.reg}
	} else {
		desc = UpvalDesc{FromParent: false, Index: c.ensureUpval(parent, orig)}
	}
	idx := uint8(len(ctx.proto.Upvalues))
	ctx.proto.Upvalues = append(ctx.proto.Upvalues, desc)
	ctx.upvals[orig] = idx
	return idx
}
