// Package optimizer implements the bottom-up constant-folding pass over a
// typed AST that spec.md §4.3 describes: a post-order walk that rewrites
// binary.go KindBinary nodes with two constant literal operands into a
// single literal node, in place, preserving every ast.NodeRef that points
// at the folded node (the same in-place-rewrite trick ast.Arena.Replace
// exists for).
//
// Integer folding uses the {Success, Overflow, Underflow, DivByZero,
// DomainError} status enum per spec.md §4.3: a non-Success status leaves
// the node untouched so the unfolded expression still raises the correct
// runtime error when executed. Floating folding aborts the same way on
// NaN/±Inf results, matching IEEE-754 semantics without ever materializing
// a silently-wrong constant.
package optimizer

import (
	"math"

	"github.com/orus-lang/orus/lang/ast"
	"github.com/orus-lang/orus/lang/token"
)

// FoldStatus is the outcome of attempting a single constant arithmetic
// operation.
type FoldStatus uint8

const (
	Success FoldStatus = iota
	Overflow
	Underflow
	DivByZero
	DomainError
)

// Stats accumulates per-pass constant-folding counters, surfaced by the
// CLI's show_optimization_stats flag.
type Stats struct {
	ConstantsFolded   int
	ExpressionsFolded int
	NodesEliminated   int
}

// Optimize runs one bottom-up constant-folding pass over every node
// reachable from ref (typically a KindChunk), returning fold statistics.
// The arena's nodes must already carry resolver/typecheck output (Type,
// IsConst, ConstValue): Optimize only rewrites nodes the type checker
// already proved constant.
func Optimize(arena *ast.Arena, ref ast.NodeRef) Stats {
	var st Stats
	fold(arena, ref, &st)
	return st
}

// fold walks the tree post-order (children before parent) and attempts to
// fold the current node after its children have been folded, so that
// "1 + 2 * 3" first folds "2 * 3" into "6" and then folds "1 + 6" into "7".
func fold(arena *ast.Arena, ref ast.NodeRef, st *Stats) {
	if ref == ast.NilRef {
		return
	}
	n := arena.Node(ref)
	for _, c := range children(n) {
		fold(arena, c, st)
	}
	// Re-read n after folding children: Replace in an earlier sibling cannot
	// alias this ref, but the node's own A/B/C fields might have changed
	// Kind underneath arena.Node's returned pointer if n.A/B/C == ref, which
	// cannot happen (no node is its own child), so this is just for clarity.
	n = arena.Node(ref)
	foldNode(arena, ref, n, st)
}

func children(n *ast.Node) []ast.NodeRef {
	switch n.Kind {
	case ast.KindChunk, ast.KindBlock, ast.KindArrayLit, ast.KindPrint:
		return n.List
	case ast.KindBinary:
		return []ast.NodeRef{n.A, n.B}
	case ast.KindUnary, ast.KindParen, ast.KindCast, ast.KindExprStmt, ast.KindReturn:
		if n.A == ast.NilRef {
			return nil
		}
		return []ast.NodeRef{n.A}
	case ast.KindTernary:
		return []ast.NodeRef{n.A, n.B, n.C}
	case ast.KindCall:
		return append([]ast.NodeRef{n.A}, n.List...)
	case ast.KindIndex:
		return []ast.NodeRef{n.A, n.B}
	case ast.KindSelector:
		return []ast.NodeRef{n.A}
	case ast.KindRange:
		if n.C == ast.NilRef {
			return []ast.NodeRef{n.A, n.B}
		}
		return []ast.NodeRef{n.A, n.B, n.C}
	case ast.KindLetDecl, ast.KindConstDecl, ast.KindStaticDecl:
		return []ast.NodeRef{n.B}
	case ast.KindAssign:
		return []ast.NodeRef{n.A, n.B}
	case ast.KindIf:
		out := []ast.NodeRef{n.A, n.B}
		if n.C != ast.NilRef {
			out = append(out, n.C)
		}
		return out
	case ast.KindWhile:
		return []ast.NodeRef{n.A, n.B}
	case ast.KindForRange:
		return []ast.NodeRef{n.A, n.B}
	case ast.KindTryCatch:
		return []ast.NodeRef{n.A, n.B}
	case ast.KindFnDecl:
		out := append([]ast.NodeRef{}, n.List...)
		out = append(out, n.B)
		return out
	case ast.KindImplDecl:
		return n.List
	case ast.KindStructLit:
		return n.List
	case ast.KindEnumCtor:
		return n.List
	default:
		return nil
	}
}

// foldNode attempts to fold n in place. Only KindBinary and KindUnary are
// rewritten; everything else is left untouched. A KindParen node copies
// its inner node's IsConst/ConstValue again here, since the type checker
// copied them before the inner node was folded.
func foldNode(arena *ast.Arena, ref ast.NodeRef, n *ast.Node, st *Stats) {
	switch n.Kind {
	case ast.KindUnary:
		foldUnary(arena, ref, n, st)
	case ast.KindBinary:
		foldBinary(arena, ref, n, st)
	case ast.KindParen:
		inner := arena.Node(n.A)
		n.IsConst, n.ConstValue = inner.IsConst, inner.ConstValue
	}
}

func foldUnary(arena *ast.Arena, ref ast.NodeRef, n *ast.Node, st *Stats) {
	operand := arena.Node(n.A)
	if !operand.IsConst {
		return
	}
	cv := operand.ConstValue
	pos, end := n.Pos, n.End

	switch n.Tok {
	case token.NOT, token.BANG:
		if cv.Type != ast.TypeBool {
			return
		}
		arena.Replace(ref, ast.Node{Kind: ast.KindBoolLit, Pos: pos, End: end, Bool: !cv.B,
			Type: ast.TypeBool, IsConst: true, ConstValue: ast.ConstValue{Type: ast.TypeBool, B: !cv.B}})
	case token.MINUS:
		foldUnaryMinus(arena, ref, pos, end, cv)
	case token.TILDE:
		if !cv.Type.IsInteger() {
			return
		}
		u := ^cv.U
		masked := maskUnsigned(cv.Type, u)
		arena.Replace(ref, ast.Node{Kind: ast.KindIntLit, Pos: pos, End: end, Int: int64(masked), Type: cv.Type,
			IsConst: true, ConstValue: ast.ConstValue{Type: cv.Type, I: int64(masked), U: masked}})
	default:
		return
	}
	st.ConstantsFolded++
	st.ExpressionsFolded++
	st.NodesEliminated++
}

func foldUnaryMinus(arena *ast.Arena, ref ast.NodeRef, pos, end token.Pos, cv ast.ConstValue) {
	switch cv.Type {
	case ast.TypeF64:
		f := -cv.F
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return
		}
		arena.Replace(ref, ast.Node{Kind: ast.KindFloatLit, Pos: pos, End: end, Float: f, Type: ast.TypeF64,
			IsConst: true, ConstValue: ast.ConstValue{Type: ast.TypeF64, F: f}})
	case ast.TypeI32:
		if cv.I == math.MinInt32 {
			return // overflow: -(-2^31) doesn't fit
		}
		v := -cv.I
		arena.Replace(ref, ast.Node{Kind: ast.KindIntLit, Pos: pos, End: end, Int: v, Type: ast.TypeI32,
			IsConst: true, ConstValue: ast.ConstValue{Type: ast.TypeI32, I: v}})
	case ast.TypeI64:
		if cv.I == math.MinInt64 {
			return
		}
		v := -cv.I
		arena.Replace(ref, ast.Node{Kind: ast.KindIntLit, Pos: pos, End: end, Int: v, Type: ast.TypeI64,
			IsConst: true, ConstValue: ast.ConstValue{Type: ast.TypeI64, I: v}})
	default:
		// unsigned negation is not a valid Orus operation; the type checker
		// already rejected it upstream, so nothing to fold here.
	}
}

// foldBinary attempts to fold a KindBinary node whose operands were already
// folded/classified as constant by the type checker.
func foldBinary(arena *ast.Arena, ref ast.NodeRef, n *ast.Node, st *Stats) {
	left := arena.Node(n.A)
	right := arena.Node(n.B)
	if !left.IsConst || !right.IsConst {
		return
	}
	lv, rv := left.ConstValue, right.ConstValue
	if lv.Type == ast.TypeUnresolved || rv.Type == ast.TypeUnresolved {
		return // an operand whose own fold was refused carries no value
	}

	switch n.Tok {
	case token.AND:
		if lv.Type == ast.TypeBool && rv.Type == ast.TypeBool {
			replaceBool(arena, ref, n, lv.B && rv.B)
			st.ConstantsFolded++
			st.ExpressionsFolded++
			st.NodesEliminated++
		}
		return
	case token.OR:
		if lv.Type == ast.TypeBool && rv.Type == ast.TypeBool {
			replaceBool(arena, ref, n, lv.B || rv.B)
			st.ConstantsFolded++
			st.ExpressionsFolded++
			st.NodesEliminated++
		}
		return
	}

	if lv.Type != rv.Type {
		return
	}

	switch lv.Type {
	case ast.TypeF64:
		if foldFloatBinary(arena, ref, n, lv.F, rv.F) {
			st.ConstantsFolded++
			st.ExpressionsFolded++
			st.NodesEliminated++
		}
	case ast.TypeBool:
		if foldBoolCompare(arena, ref, n, lv.B, rv.B) {
			st.ConstantsFolded++
			st.ExpressionsFolded++
			st.NodesEliminated++
		}
	case ast.TypeString:
		if foldStringBinary(arena, ref, n, lv.S, rv.S) {
			st.ConstantsFolded++
			st.ExpressionsFolded++
			st.NodesEliminated++
		}
	default: // i32, i64, u32, u64
		if foldIntBinary(arena, ref, n, lv, rv) {
			st.ConstantsFolded++
			st.ExpressionsFolded++
			st.NodesEliminated++
		}
	}
}

func replaceBool(arena *ast.Arena, ref ast.NodeRef, n *ast.Node, v bool) {
	arena.Replace(ref, ast.Node{Kind: ast.KindBoolLit, Pos: n.Pos, End: n.End, Bool: v, Type: ast.TypeBool,
		IsConst: true, ConstValue: ast.ConstValue{Type: ast.TypeBool, B: v}})
}

func replaceInt(arena *ast.Arena, ref ast.NodeRef, n *ast.Node, t ast.TypeID, i int64, u uint64) {
	arena.Replace(ref, ast.Node{Kind: ast.KindIntLit, Pos: n.Pos, End: n.End, Int: i, Type: t,
		IsConst: true, ConstValue: ast.ConstValue{Type: t, I: i, U: u}})
}

func foldBoolCompare(arena *ast.Arena, ref ast.NodeRef, n *ast.Node, l, r bool) bool {
	var result bool
	switch n.Tok {
	case token.EQEQ:
		result = l == r
	case token.BANGEQ:
		result = l != r
	default:
		return false
	}
	replaceBool(arena, ref, n, result)
	return true
}

func foldStringBinary(arena *ast.Arena, ref ast.NodeRef, n *ast.Node, l, r string) bool {
	switch n.Tok {
	case token.PLUS:
		s := l + r
		arena.Replace(ref, ast.Node{Kind: ast.KindStringLit, Pos: n.Pos, End: n.End, Str: s, Type: ast.TypeString,
			IsConst: true, ConstValue: ast.ConstValue{Type: ast.TypeString, S: s}})
		return true
	case token.EQEQ:
		replaceBool(arena, ref, n, l == r)
		return true
	case token.BANGEQ:
		replaceBool(arena, ref, n, l != r)
		return true
	}
	return false
}

func foldFloatBinary(arena *ast.Arena, ref ast.NodeRef, n *ast.Node, l, r float64) bool {
	var result float64
	isBool := false
	var boolResult bool

	switch n.Tok {
	case token.PLUS:
		result = l + r
	case token.MINUS:
		result = l - r
	case token.STAR:
		result = l * r
	case token.SLASH:
		if r == 0 {
			return false // DivByZero: leave the node, runtime raises the error
		}
		result = l / r
	case token.LT:
		isBool, boolResult = true, l < r
	case token.LE:
		isBool, boolResult = true, l <= r
	case token.GT:
		isBool, boolResult = true, l > r
	case token.GE:
		isBool, boolResult = true, l >= r
	case token.EQEQ:
		isBool, boolResult = true, l == r
	case token.BANGEQ:
		isBool, boolResult = true, l != r
	default:
		return false
	}

	if isBool {
		replaceBool(arena, ref, n, boolResult)
		return true
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return false // IEEE-754 NaN/±Inf aborts the fold per spec.md §4.3
	}
	arena.Replace(ref, ast.Node{Kind: ast.KindFloatLit, Pos: n.Pos, End: n.End, Float: result, Type: ast.TypeF64,
		IsConst: true, ConstValue: ast.ConstValue{Type: ast.TypeF64, F: result}})
	return true
}

// foldIntBinary folds a binary arithmetic or comparison operation over two
// same-typed integer constants, applying saturating-status overflow
// detection per spec.md §4.3, including the INT_MIN/-1 special cases.
func foldIntBinary(arena *ast.Arena, ref ast.NodeRef, n *ast.Node, l, r ast.ConstValue) bool {
	t := l.Type
	switch n.Tok {
	case token.LT, token.LE, token.GT, token.GE, token.EQEQ, token.BANGEQ:
		return foldIntCompare(arena, ref, n, t, l, r)
	case token.AMPERSAND, token.PIPE, token.CIRCUMFLEX, token.LTLT, token.GTGT:
		return foldIntBitwise(arena, ref, n, t, l, r)
	}

	var result int64
	var uresult uint64
	var status FoldStatus
	if t.IsUnsigned() {
		uresult, status = foldUnsignedArith(t, n.Tok, l.U, r.U)
		result = int64(uresult)
	} else {
		result, status = foldSignedArith(t, n.Tok, l.I, r.I)
		uresult = uint64(result)
	}
	if status != Success {
		return false
	}
	replaceInt(arena, ref, n, t, result, uresult)
	return true
}

func foldIntCompare(arena *ast.Arena, ref ast.NodeRef, n *ast.Node, t ast.TypeID, l, r ast.ConstValue) bool {
	var result bool
	if t.IsUnsigned() {
		switch n.Tok {
		case token.LT:
			result = l.U < r.U
		case token.LE:
			result = l.U <= r.U
		case token.GT:
			result = l.U > r.U
		case token.GE:
			result = l.U >= r.U
		case token.EQEQ:
			result = l.U == r.U
		case token.BANGEQ:
			result = l.U != r.U
		}
	} else {
		switch n.Tok {
		case token.LT:
			result = l.I < r.I
		case token.LE:
			result = l.I <= r.I
		case token.GT:
			result = l.I > r.I
		case token.GE:
			result = l.I >= r.I
		case token.EQEQ:
			result = l.I == r.I
		case token.BANGEQ:
			result = l.I != r.I
		}
	}
	replaceBool(arena, ref, n, result)
	return true
}

func foldIntBitwise(arena *ast.Arena, ref ast.NodeRef, n *ast.Node, t ast.TypeID, l, r ast.ConstValue) bool {
	var u uint64
	switch n.Tok {
	case token.AMPERSAND:
		u = l.U & r.U
	case token.PIPE:
		u = l.U | r.U
	case token.CIRCUMFLEX:
		u = l.U ^ r.U
	case token.LTLT:
		if r.U >= bitWidth(t) {
			return false
		}
		u = l.U << r.U
	case token.GTGT:
		if r.U >= bitWidth(t) {
			return false
		}
		u = l.U >> r.U
	}
	u = maskUnsigned(t, u)
	replaceInt(arena, ref, n, t, int64(u), u)
	return true
}

func bitWidth(t ast.TypeID) uint64 {
	switch t {
	case ast.TypeI32, ast.TypeU32:
		return 32
	default:
		return 64
	}
}

func maskUnsigned(t ast.TypeID, u uint64) uint64 {
	switch t {
	case ast.TypeI32, ast.TypeU32:
		return u & 0xFFFFFFFF
	default:
		return u
	}
}

// foldSignedArith implements +,-,*,/,% for i32/i64 with overflow detection,
// including the INT_MIN/-1 special cases spec.md §4.3 calls out: INT_MIN/-1
// overflows (the mathematical result does not fit), INT_MIN%-1 is defined
// as 0 rather than a trap.
func foldSignedArith(t ast.TypeID, op token.Token, l, r int64) (int64, FoldStatus) {
	minV, maxV := int64(math.MinInt32), int64(math.MaxInt32)
	if t == ast.TypeI64 {
		minV, maxV = math.MinInt64, math.MaxInt64
	}

	switch op {
	case token.PLUS:
		sum := l + r
		if (r > 0 && l > maxV-r) || (r < 0 && l < minV-r) {
			return 0, Overflow
		}
		return sum, Success
	case token.MINUS:
		diff := l - r
		if (r < 0 && l > maxV+r) || (r > 0 && l < minV+r) {
			return 0, Overflow
		}
		return diff, Success
	case token.STAR:
		if l == 0 || r == 0 {
			return 0, Success
		}
		prod := l * r
		if prod/r != l {
			return 0, Overflow
		}
		if prod < minV || prod > maxV {
			return 0, Overflow
		}
		return prod, Success
	case token.SLASH:
		if r == 0 {
			return 0, DivByZero
		}
		if l == minV && r == -1 {
			return 0, Overflow
		}
		return l / r, Success
	case token.PERCENT:
		if r == 0 {
			return 0, DivByZero
		}
		if l == minV && r == -1 {
			return 0, Success // INT_MIN % -1 == 0, not a trap
		}
		return l % r, Success
	}
	return 0, DomainError
}

// foldUnsignedArith implements +,-,*,/,% for u32/u64 constants. Unsigned
// subtraction wrapping below zero is treated as Underflow per spec.md
// §4.3's status enum.
func foldUnsignedArith(t ast.TypeID, op token.Token, l, r uint64) (uint64, FoldStatus) {
	maxV := uint64(math.MaxUint32)
	if t == ast.TypeU64 {
		maxV = math.MaxUint64
	}
	switch op {
	case token.PLUS:
		sum := l + r
		if sum < l || sum > maxV {
			return 0, Overflow
		}
		return sum, Success
	case token.MINUS:
		if r > l {
			return 0, Underflow
		}
		return l - r, Success
	case token.STAR:
		if l == 0 || r == 0 {
			return 0, Success
		}
		prod := l * r
		if prod/r != l || prod > maxV {
			return 0, Overflow
		}
		return prod, Success
	case token.SLASH:
		if r == 0 {
			return 0, DivByZero
		}
		return l / r, Success
	case token.PERCENT:
		if r == 0 {
			return 0, DivByZero
		}
		return l % r, Success
	}
	return 0, DomainError
}
