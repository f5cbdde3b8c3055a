package machine

import (
	"fmt"
	"math"

	"github.com/orus-lang/orus/lang/compiler"
)

// signedBounds returns the inclusive min/max a signed integer of the given
// bit width (32 or 64) can hold, the same bounds lang/optimizer's
// foldSignedArith checks at compile time -- so a typed or standard
// arithmetic opcode raises exactly the overflow the constant folder would
// have refused to fold, per spec.md §4.3/§8 scenario 4.
func signedBounds(bits int) (int64, int64) {
	if bits == 32 {
		return math.MinInt32, math.MaxInt32
	}
	return math.MinInt64, math.MaxInt64
}

func unsignedMax(bits int) uint64 {
	if bits == 32 {
		return math.MaxUint32
	}
	return math.MaxUint64
}

// addSigned, subSigned, mulSigned, divSigned and modSigned implement
// +,-,*,/,% over a signed integer of the given bit width with the same
// overflow detection -- including the INT_MIN/-1 special cases -- as
// lang/optimizer.foldSignedArith, raising a RuntimeError instead of
// refusing to fold.
func addSigned(bits int, l, r int64) (int64, error) {
	minV, maxV := signedBounds(bits)
	if (r > 0 && l > maxV-r) || (r < 0 && l < minV-r) {
		return 0, &RuntimeError{Kind: ErrIntegerOverflow, Message: "integer overflow"}
	}
	return l + r, nil
}

func subSigned(bits int, l, r int64) (int64, error) {
	minV, maxV := signedBounds(bits)
	if (r < 0 && l > maxV+r) || (r > 0 && l < minV+r) {
		return 0, &RuntimeError{Kind: ErrIntegerOverflow, Message: "integer overflow"}
	}
	return l - r, nil
}

func mulSigned(bits int, l, r int64) (int64, error) {
	if l == 0 || r == 0 {
		return 0, nil
	}
	minV, maxV := signedBounds(bits)
	prod := l * r
	if prod/r != l || prod < minV || prod > maxV {
		return 0, &RuntimeError{Kind: ErrIntegerOverflow, Message: "integer overflow"}
	}
	return prod, nil
}

func divSigned(bits int, l, r int64) (int64, error) {
	if r == 0 {
		return 0, &RuntimeError{Kind: ErrDivisionByZero, Message: "division by zero"}
	}
	minV, _ := signedBounds(bits)
	if l == minV && r == -1 {
		return 0, &RuntimeError{Kind: ErrIntegerOverflow, Message: "integer overflow"}
	}
	return l / r, nil
}

func modSigned(bits int, l, r int64) (int64, error) {
	if r == 0 {
		return 0, &RuntimeError{Kind: ErrDivisionByZero, Message: "division by zero"}
	}
	minV, _ := signedBounds(bits)
	if l == minV && r == -1 {
		return 0, nil // INT_MIN % -1 == 0, not a trap
	}
	return l % r, nil
}

// addUnsigned, subUnsigned, mulUnsigned, divUnsigned and modUnsigned mirror
// lang/optimizer.foldUnsignedArith's overflow/underflow detection for a
// bit width of 32 or 64. Unsigned subtraction wrapping below zero is an
// underflow, not a silent wrap, matching the optimizer's fold-status rule.
func addUnsigned(bits int, l, r uint64) (uint64, error) {
	maxV := unsignedMax(bits)
	sum := l + r
	if sum < l || sum > maxV {
		return 0, &RuntimeError{Kind: ErrIntegerOverflow, Message: "integer overflow"}
	}
	return sum, nil
}

func subUnsigned(_ int, l, r uint64) (uint64, error) {
	if r > l {
		return 0, &RuntimeError{Kind: ErrIntegerUnderflow, Message: "integer underflow"}
	}
	return l - r, nil
}

func mulUnsigned(bits int, l, r uint64) (uint64, error) {
	if l == 0 || r == 0 {
		return 0, nil
	}
	maxV := unsignedMax(bits)
	prod := l * r
	if prod/r != l || prod > maxV {
		return 0, &RuntimeError{Kind: ErrIntegerOverflow, Message: "integer overflow"}
	}
	return prod, nil
}

func divUnsigned(_ int, l, r uint64) (uint64, error) {
	if r == 0 {
		return 0, &RuntimeError{Kind: ErrDivisionByZero, Message: "division by zero"}
	}
	return l / r, nil
}

func modUnsigned(_ int, l, r uint64) (uint64, error) {
	if r == 0 {
		return 0, &RuntimeError{Kind: ErrDivisionByZero, Message: "division by zero"}
	}
	return l % r, nil
}

// typedArith executes one of the typed arithmetic family opcodes directly
// against fr's typed register window: both operands are guaranteed by the
// compiler to already be live registers of the opcode's numeric kind, so
// there is no tag check, only the operator, the division-by-zero guard and
// the overflow/underflow guard the boxed path also enforces.
func typedArith(fr *Frame, op compiler.Opcode, dst, a, b byte) error {
	t := &fr.typed
	switch op {
	case compiler.OpAddI32Typed:
		r, err := addSigned(32, int64(t.i32[a]), int64(t.i32[b]))
		if err != nil {
			return err
		}
		t.i32[dst] = int32(r)
	case compiler.OpSubI32Typed:
		r, err := subSigned(32, int64(t.i32[a]), int64(t.i32[b]))
		if err != nil {
			return err
		}
		t.i32[dst] = int32(r)
	case compiler.OpMulI32Typed:
		r, err := mulSigned(32, int64(t.i32[a]), int64(t.i32[b]))
		if err != nil {
			return err
		}
		t.i32[dst] = int32(r)
	case compiler.OpDivI32Typed:
		r, err := divSigned(32, int64(t.i32[a]), int64(t.i32[b]))
		if err != nil {
			return err
		}
		t.i32[dst] = int32(r)
	case compiler.OpModI32Typed:
		r, err := modSigned(32, int64(t.i32[a]), int64(t.i32[b]))
		if err != nil {
			return err
		}
		t.i32[dst] = int32(r)

	case compiler.OpAddI64Typed:
		r, err := addSigned(64, t.i64[a], t.i64[b])
		if err != nil {
			return err
		}
		t.i64[dst] = r
	case compiler.OpSubI64Typed:
		r, err := subSigned(64, t.i64[a], t.i64[b])
		if err != nil {
			return err
		}
		t.i64[dst] = r
	case compiler.OpMulI64Typed:
		r, err := mulSigned(64, t.i64[a], t.i64[b])
		if err != nil {
			return err
		}
		t.i64[dst] = r
	case compiler.OpDivI64Typed:
		r, err := divSigned(64, t.i64[a], t.i64[b])
		if err != nil {
			return err
		}
		t.i64[dst] = r
	case compiler.OpModI64Typed:
		r, err := modSigned(64, t.i64[a], t.i64[b])
		if err != nil {
			return err
		}
		t.i64[dst] = r

	case compiler.OpAddU32Typed:
		r, err := addUnsigned(32, uint64(t.u32[a]), uint64(t.u32[b]))
		if err != nil {
			return err
		}
		t.u32[dst] = uint32(r)
	case compiler.OpSubU32Typed:
		r, err := subUnsigned(32, uint64(t.u32[a]), uint64(t.u32[b]))
		if err != nil {
			return err
		}
		t.u32[dst] = uint32(r)
	case compiler.OpMulU32Typed:
		r, err := mulUnsigned(32, uint64(t.u32[a]), uint64(t.u32[b]))
		if err != nil {
			return err
		}
		t.u32[dst] = uint32(r)
	case compiler.OpDivU32Typed:
		r, err := divUnsigned(32, uint64(t.u32[a]), uint64(t.u32[b]))
		if err != nil {
			return err
		}
		t.u32[dst] = uint32(r)
	case compiler.OpModU32Typed:
		r, err := modUnsigned(32, uint64(t.u32[a]), uint64(t.u32[b]))
		if err != nil {
			return err
		}
		t.u32[dst] = uint32(r)

	case compiler.OpAddU64Typed:
		r, err := addUnsigned(64, t.u64[a], t.u64[b])
		if err != nil {
			return err
		}
		t.u64[dst] = r
	case compiler.OpSubU64Typed:
		r, err := subUnsigned(64, t.u64[a], t.u64[b])
		if err != nil {
			return err
		}
		t.u64[dst] = r
	case compiler.OpMulU64Typed:
		r, err := mulUnsigned(64, t.u64[a], t.u64[b])
		if err != nil {
			return err
		}
		t.u64[dst] = r
	case compiler.OpDivU64Typed:
		r, err := divUnsigned(64, t.u64[a], t.u64[b])
		if err != nil {
			return err
		}
		t.u64[dst] = r
	case compiler.OpModU64Typed:
		r, err := modUnsigned(64, t.u64[a], t.u64[b])
		if err != nil {
			return err
		}
		t.u64[dst] = r

	case compiler.OpAddF64Typed:
		t.f64[dst] = t.f64[a] + t.f64[b]
	case compiler.OpSubF64Typed:
		t.f64[dst] = t.f64[a] - t.f64[b]
	case compiler.OpMulF64Typed:
		t.f64[dst] = t.f64[a] * t.f64[b]
	case compiler.OpDivF64Typed:
		t.f64[dst] = t.f64[a] / t.f64[b]
	case compiler.OpModF64Typed:
		t.f64[dst] = float64(int64(t.f64[a]) % int64(t.f64[b]))
	}
	return nil
}

// boxTyped reads the typed register src of the given kind and returns its
// boxed Value counterpart, for OP_BOX.
func boxTyped(t *typedWindow, src byte, kind compiler.NumericKind) Value {
	switch kind {
	case compiler.KindI32:
		return I32(t.i32[src])
	case compiler.KindI64:
		return I64(t.i64[src])
	case compiler.KindU32:
		return U32(t.u32[src])
	case compiler.KindU64:
		return U64(t.u64[src])
	case compiler.KindF64:
		return F64(t.f64[src])
	case compiler.KindBool:
		return Bool(t.b[src])
	default:
		return Nil{}
	}
}

// unboxTyped writes v's numeric payload into the typed register dst of the
// given kind, for OP_UNBOX.
func unboxTyped(t *typedWindow, dst byte, v Value, kind compiler.NumericKind) {
	switch kind {
	case compiler.KindI32:
		t.i32[dst] = int32(toI64(v))
	case compiler.KindI64:
		t.i64[dst] = toI64(v)
	case compiler.KindU32:
		t.u32[dst] = uint32(toU64(v))
	case compiler.KindU64:
		t.u64[dst] = toU64(v)
	case compiler.KindF64:
		t.f64[dst] = toF64(v)
	case compiler.KindBool:
		t.b[dst] = truthy(v)
	}
}

func toI64(v Value) int64 {
	switch v := v.(type) {
	case I32:
		return int64(v)
	case I64:
		return int64(v)
	case U32:
		return int64(v)
	case U64:
		return int64(v)
	case F64:
		return int64(v)
	default:
		return 0
	}
}

func toU64(v Value) uint64 {
	switch v := v.(type) {
	case I32:
		return uint64(v)
	case I64:
		return uint64(v)
	case U32:
		return uint64(v)
	case U64:
		return uint64(v)
	case F64:
		return uint64(v)
	default:
		return 0
	}
}

func toF64(v Value) float64 {
	switch v := v.(type) {
	case I32:
		return float64(v)
	case I64:
		return float64(v)
	case U32:
		return float64(v)
	case U64:
		return float64(v)
	case F64:
		return float64(v)
	default:
		return 0
	}
}

// stdArith executes the boxed-operand arithmetic family: the two values'
// runtime tags are inspected to find their shared numeric kind (the
// resolver/type checker guarantees the static types agree, so at most one
// side needs widening, e.g. an i32 literal against an f64 variable never
// happens -- both operands always share one kind by the time code reaches
// here).
func stdArith(op compiler.Opcode, a, b Value) (Value, error) {
	switch x := a.(type) {
	case I32:
		y, _ := b.(I32)
		return arithInt(op, 32, int64(x), int64(y), func(r int64) Value { return I32(r) })
	case I64:
		y, _ := b.(I64)
		return arithInt(op, 64, int64(x), int64(y), func(r int64) Value { return I64(r) })
	case U32:
		y, _ := b.(U32)
		return arithUint(op, 32, uint64(x), uint64(y), func(r uint64) Value { return U32(r) })
	case U64:
		y, _ := b.(U64)
		return arithUint(op, 64, uint64(x), uint64(y), func(r uint64) Value { return U64(r) })
	case F64:
		y, _ := b.(F64)
		return arithFloat(op, float64(x), float64(y))
	default:
		return nil, fmt.Errorf("arithmetic on non-numeric value %s", a.Type())
	}
}

func arithInt(op compiler.Opcode, bits int, x, y int64, wrap func(int64) Value) (Value, error) {
	var (
		r   int64
		err error
	)
	switch op {
	case compiler.OpAddStd:
		r, err = addSigned(bits, x, y)
	case compiler.OpSubStd:
		r, err = subSigned(bits, x, y)
	case compiler.OpMulStd:
		r, err = mulSigned(bits, x, y)
	case compiler.OpDivStd:
		r, err = divSigned(bits, x, y)
	case compiler.OpModStd:
		r, err = modSigned(bits, x, y)
	default:
		return nil, fmt.Errorf("unsupported arithmetic opcode %s", op)
	}
	if err != nil {
		return nil, err
	}
	return wrap(r), nil
}

func arithUint(op compiler.Opcode, bits int, x, y uint64, wrap func(uint64) Value) (Value, error) {
	var (
		r   uint64
		err error
	)
	switch op {
	case compiler.OpAddStd:
		r, err = addUnsigned(bits, x, y)
	case compiler.OpSubStd:
		r, err = subUnsigned(bits, x, y)
	case compiler.OpMulStd:
		r, err = mulUnsigned(bits, x, y)
	case compiler.OpDivStd:
		r, err = divUnsigned(bits, x, y)
	case compiler.OpModStd:
		r, err = modUnsigned(bits, x, y)
	default:
		return nil, fmt.Errorf("unsupported arithmetic opcode %s", op)
	}
	if err != nil {
		return nil, err
	}
	return wrap(r), nil
}

func arithFloat(op compiler.Opcode, x, y float64) (Value, error) {
	switch op {
	case compiler.OpAddStd:
		return F64(x + y), nil
	case compiler.OpSubStd:
		return F64(x - y), nil
	case compiler.OpMulStd:
		return F64(x * y), nil
	case compiler.OpDivStd:
		return F64(x / y), nil
	case compiler.OpModStd:
		return F64(float64(int64(x) % int64(y))), nil
	}
	return nil, fmt.Errorf("unsupported arithmetic opcode %s", op)
}

func bitwise(op compiler.Opcode, a, b Value) (Value, error) {
	x, y := toU64(a), toU64(b)
	var r uint64
	switch op {
	case compiler.OpBAnd:
		r = x & y
	case compiler.OpBOr:
		r = x | y
	case compiler.OpBXor:
		r = x ^ y
	case compiler.OpShl:
		r = x << (y & 63)
	case compiler.OpShr:
		r = x >> (y & 63)
	}
	return rewrapLike(a, r), nil
}

func bitwiseNot(a Value) (Value, error) {
	return rewrapLike(a, ^toU64(a)), nil
}

func negate(a Value) (Value, error) {
	switch v := a.(type) {
	case I32:
		return -v, nil
	case I64:
		return -v, nil
	case F64:
		return -v, nil
	case U32:
		return U32(-int32(v)), nil
	case U64:
		return U64(-int64(v)), nil
	default:
		return nil, fmt.Errorf("negation of non-numeric value %s", a.Type())
	}
}

// rewrapLike returns r reinterpreted as whatever concrete Value kind like
// was, so bitwise results stay in the same numeric kind as their operand.
func rewrapLike(like Value, r uint64) Value {
	switch like.(type) {
	case I32:
		return I32(int32(r))
	case U32:
		return U32(uint32(r))
	case U64:
		return U64(r)
	default:
		return I64(int64(r))
	}
}

func compare(op compiler.Opcode, a, b Value) (bool, error) {
	if af, ok := numericAsF64(a); ok {
		if bf, ok := numericAsF64(b); ok {
			return compareF64(op, af, bf), nil
		}
	}
	if as, ok := a.(Str); ok {
		if bs, ok := b.(Str); ok {
			return compareStr(op, as, bs), nil
		}
	}
	switch op {
	case compiler.OpCmpEq:
		return valuesEqual(a, b), nil
	case compiler.OpCmpNe:
		return !valuesEqual(a, b), nil
	}
	return false, fmt.Errorf("values of type %s are not ordered", a.Type())
}

func numericAsF64(v Value) (float64, bool) {
	switch v.(type) {
	case I32, I64, U32, U64, F64:
		return toF64(v), true
	default:
		return 0, false
	}
}

func compareF64(op compiler.Opcode, x, y float64) bool {
	switch op {
	case compiler.OpCmpLt:
		return x < y
	case compiler.OpCmpLe:
		return x <= y
	case compiler.OpCmpGt:
		return x > y
	case compiler.OpCmpGe:
		return x >= y
	case compiler.OpCmpEq:
		return x == y
	case compiler.OpCmpNe:
		return x != y
	}
	return false
}

func compareStr(op compiler.Opcode, x, y Str) bool {
	switch op {
	case compiler.OpCmpLt:
		return x < y
	case compiler.OpCmpLe:
		return x <= y
	case compiler.OpCmpGt:
		return x > y
	case compiler.OpCmpGe:
		return x >= y
	case compiler.OpCmpEq:
		return x == y
	case compiler.OpCmpNe:
		return x != y
	}
	return false
}

func valuesEqual(a, b Value) bool {
	if ab, ok := a.(Bool); ok {
		if bb, ok := b.(Bool); ok {
			return ab == bb
		}
		return false
	}
	_, aNil := a.(Nil)
	_, bNil := b.(Nil)
	if aNil || bNil {
		return aNil && bNil
	}
	return a == b
}

func castValue(v Value, kind compiler.NumericKind) (Value, error) {
	switch kind {
	case compiler.KindI32:
		return I32(toI64(v)), nil
	case compiler.KindI64:
		return I64(toI64(v)), nil
	case compiler.KindU32:
		return U32(toU64(v)), nil
	case compiler.KindU64:
		return U64(toU64(v)), nil
	case compiler.KindF64:
		return F64(toF64(v)), nil
	default:
		return nil, fmt.Errorf("invalid cast target kind %v", kind)
	}
}
