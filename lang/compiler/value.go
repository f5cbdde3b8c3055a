package compiler

import "github.com/orus-lang/orus/lang/ast"

// value is where one compiled expression's result lives: either a typed
// temp register of the given NumericKind, or a standard register holding
// a boxed Value. Compiling an expression always yields one of these; the
// caller decides whether it needs the typed or the standard form and
// calls reconcile to bridge between them.
type value struct {
	reg    uint8
	typed  bool
	kind   NumericKind
	isTemp bool // true if reg was freshly allocated and should be freed once consumed
}

// allocTypedTemp reserves a scratch typed register of kind.
func (c *Compiler) allocTypedTemp(kind NumericKind) value {
	return value{reg: c.cur().regs.AllocTyped(kind), typed: true, kind: kind, isTemp: true}
}

// allocStdTemp reserves a scratch standard register.
func (c *Compiler) allocStdTemp() value {
	return value{reg: c.cur().regs.AllocTemp(), isTemp: true}
}

func (c *Compiler) release(v value) {
	if !v.isTemp {
		return
	}
	if v.typed {
		c.cur().regs.FreeTyped(v.kind, v.reg)
	} else {
		c.cur().regs.FreeTemp(v.reg)
	}
}

// reconcileToStd returns a standard-bank value equivalent to v, boxing a
// typed register's contents if necessary. This is the "reconcile before a
// boxed read" step: crossing into print, calls, array/struct storage,
// returns or any other boundary that only understands boxed Values.
func (c *Compiler) reconcileToStd(v value, line, col int32) value {
	if !v.typed {
		return v
	}
	dst := c.allocStdTemp()
	c.cur().proto.Code.Emit3(OpBox, dst.reg, v.reg, byte(v.kind), line, col)
	c.release(v)
	return dst
}

// reconcileToTyped returns a typed value of kind equivalent to v, unboxing
// a standard register's contents if necessary. kind must match v's static
// type; callers only ever request this when the type checker already
// proved the expression is of that numeric kind.
func (c *Compiler) reconcileToTyped(v value, kind NumericKind, line, col int32) value {
	if v.typed && v.kind == kind {
		return v
	}
	dst := c.allocTypedTemp(kind)
	c.cur().proto.Code.Emit3(OpUnbox, dst.reg, v.reg, byte(kind), line, col)
	if v.typed {
		c.release(v)
	}
	return dst
}

// numericKindOf is numericKind's sibling for expression node types rather
// than declared binding types; both read the same ast.TypeID space.
func numericKindOf(t ast.TypeID) (NumericKind, bool) { return numericKind(t) }
