package resolver

import (
	"fmt"

	"github.com/orus-lang/orus/lang/ast"
	"github.com/orus-lang/orus/lang/diag"
	"github.com/orus-lang/orus/lang/token"
)

// Type-error taxonomy codes, spec.md §7 E2001..E2008. E2008 (immutable
// assignment) is raised during binding resolution (see resolver.go); the
// rest are raised here during type resolution.
const (
	codeMismatch        = "E2001"
	codeIncompatible    = "E2002"
	codeUndefinedTypeAnn = "E2003"
	codeMixedArithmetic = "E2004"
	codeInvalidCast     = "E2005"
	codeAnnotationReq   = "E2006"
	codeUnsupportedOp   = "E2007"
)

// builtinTypeNames maps a type-annotation identifier to its TypeID. Names
// not in this table (a struct or enum name) resolve to TypeStruct/TypeEnum
// generically: this core does not model user-defined type identity beyond
// what the compiler's field/variant lookups need.
var builtinTypeNames = map[string]ast.TypeID{
	"i32": ast.TypeI32, "i64": ast.TypeI64, "u32": ast.TypeU32, "u64": ast.TypeU64,
	"f64": ast.TypeF64, "bool": ast.TypeBool, "string": ast.TypeString,
}

// TypeCheck decorates every expression node reachable from chunks with its
// resolved ast.TypeID (and, for literals, IsConst/ConstValue), the "type
// resolver" stage of spec.md §2/§4.3. It must run after ResolveFiles: it
// reads the Info produced there to type each identifier use from its
// declaration's Binding.Type.
func TypeCheck(arena *ast.Arena, fset *token.FileSet, chunks []ast.NodeRef, info *Info) (diag.List, error) {
	tc := &typechecker{arena: arena, fset: fset, info: info, structs: map[string][]ast.NodeRef{}}
	for _, ch := range chunks {
		n := arena.Node(ch)
		for _, d := range n.List {
			tc.collectDecl(d)
		}
	}
	for _, ch := range chunks {
		n := arena.Node(ch)
		for _, d := range n.List {
			tc.stmt(d)
		}
	}
	tc.diags.Sort()
	return tc.diags, tc.diags.Err()
}

type typechecker struct {
	arena *ast.Arena
	fset  *token.FileSet
	info  *Info
	diags diag.List

	// structs maps a struct type name to its KindField declaration list, so
	// struct-literal field initializers can be typed against the declared
	// field type.
	structs map[string][]ast.NodeRef
}

func (tc *typechecker) errorf(code string, ref ast.NodeRef, format string, args ...any) {
	pos, _ := tc.arena.Span(ref)
	tc.diags.Add(diag.Diagnostic{
		Code:     code,
		Severity: diag.Error,
		Pos:      tc.fset.Position(pos),
		Message:  fmt.Sprintf(format, args...),
	})
}

// collectDecl performs a shallow first pass recording struct field types so
// struct literals can be checked regardless of declaration order within a
// chunk.
func (tc *typechecker) collectDecl(ref ast.NodeRef) {
	n := tc.arena.Node(ref)
	if n.Kind == ast.KindStructDecl {
		tc.structs[n.Str] = n.List
	}
}

func (tc *typechecker) typeAnnotation(ref ast.NodeRef) ast.TypeID {
	if ref == ast.NilRef {
		return ast.TypeUnresolved
	}
	n := tc.arena.Node(ref)
	if t, ok := builtinTypeNames[n.Str]; ok {
		return t
	}
	if _, ok := tc.structs[n.Str]; ok {
		return ast.TypeStruct
	}
	// An enum type name or a name this pass hasn't seen yet: accept it as an
	// opaque enum/struct annotation rather than failing the whole chunk, since
	// enum declarations may follow their first use in source order.
	if n.Str != "" {
		return ast.TypeEnum
	}
	tc.errorf(codeUndefinedTypeAnn, ref, "undefined type: %s", n.Str)
	return ast.TypeUnresolved
}

func (tc *typechecker) stmt(ref ast.NodeRef) {
	n := tc.arena.Node(ref)
	switch n.Kind {
	case ast.KindLetDecl, ast.KindConstDecl, ast.KindStaticDecl:
		initT := tc.expr(n.B)
		declT := initT
		if n.A != ast.NilRef {
			declT = tc.typeAnnotation(n.A)
			if declT.IsNumeric() && initT.IsNumeric() && declT != initT {
				tc.errorf(codeMismatch, ref, "cannot assign %s value to %s-typed binding %q", initT, declT, n.Str)
			}
		}
		if bdg := tc.info.Defs[ref]; bdg != nil {
			bdg.Type = declT
		}

	case ast.KindAssign:
		valT := tc.expr(n.B)
		targetT := tc.expr(n.A)
		if n.Tok != token.EQ && targetT.IsNumeric() && valT.IsNumeric() && targetT != valT {
			tc.errorf(codeMixedArithmetic, ref, "mixed-type compound assignment: %s %s %s", targetT, n.Tok, valT)
		} else if targetT.IsNumeric() && valT.IsNumeric() && targetT != valT {
			tc.errorf(codeMismatch, ref, "cannot assign %s value to %s-typed target", valT, targetT)
		}

	case ast.KindExprStmt:
		tc.expr(n.A)

	case ast.KindBlock:
		for _, s := range n.List {
			tc.stmt(s)
		}

	case ast.KindIf:
		if t := tc.expr(n.A); t != ast.TypeBool && t != ast.TypeUnresolved {
			tc.errorf(codeMismatch, n.A, "if condition must be bool, got %s", t)
		}
		tc.stmt(n.B)
		if n.C != ast.NilRef {
			tc.stmt(n.C)
		}

	case ast.KindWhile:
		if t := tc.expr(n.A); t != ast.TypeBool && t != ast.TypeUnresolved {
			tc.errorf(codeMismatch, n.A, "while condition must be bool, got %s", t)
		}
		tc.stmt(n.B)

	case ast.KindForRange:
		rng := tc.arena.Node(n.A)
		startT := tc.expr(rng.A)
		endT := tc.expr(rng.B)
		if rng.C != ast.NilRef {
			tc.expr(rng.C)
		}
		loopVarT := ast.TypeI64
		if startT.IsInteger() {
			loopVarT = startT
		}
		if startT.IsNumeric() && endT.IsNumeric() && startT != endT {
			tc.errorf(codeMixedArithmetic, n.A, "for-range bounds must share a type: %s .. %s", startT, endT)
		}
		if bdg := tc.info.Defs[ref]; bdg != nil {
			bdg.Type = loopVarT
		}
		tc.stmt(n.B)

	case ast.KindReturn:
		if n.A != ast.NilRef {
			tc.expr(n.A)
		}

	case ast.KindBreak, ast.KindContinue, ast.KindImport, ast.KindUse:
		// nothing to type

	case ast.KindPrint:
		for _, a := range n.List {
			tc.expr(a)
		}

	case ast.KindTryCatch:
		tc.stmt(n.A)
		if bdg := tc.info.Defs[ref]; bdg != nil {
			bdg.Type = ast.TypeString
		}
		tc.stmt(n.B)

	case ast.KindFnDecl:
		for _, p := range n.List {
			pn := tc.arena.Node(p)
			pt := tc.typeAnnotation(pn.A)
			if bdg := tc.info.Defs[p]; bdg != nil {
				bdg.Type = pt
			}
		}
		tc.stmt(n.B)

	case ast.KindStructDecl, ast.KindEnumDecl:
		// field/variant types are resolved lazily via typeAnnotation.

	case ast.KindImplDecl:
		for _, m := range n.List {
			tc.stmt(m)
		}

	default:
		panic(fmt.Sprintf("typecheck: unexpected stmt kind %v", n.Kind))
	}
}

// expr types ref, writes the result into the node's Type field (and, for
// literals, IsConst/ConstValue so the optimizer can fold without a second
// classification pass), and returns it.
func (tc *typechecker) expr(ref ast.NodeRef) ast.TypeID {
	if ref == ast.NilRef {
		return ast.TypeUnresolved
	}
	n := tc.arena.Node(ref)
	var t ast.TypeID
	switch n.Kind {
	case ast.KindIntLit:
		t = intLitType(n.Tok)
		n.IsConst = true
		n.ConstValue = ast.ConstValue{Type: t, I: n.Int, U: uint64(n.Int)}

	case ast.KindFloatLit:
		t = ast.TypeF64
		n.IsConst = true
		n.ConstValue = ast.ConstValue{Type: t, F: n.Float}

	case ast.KindBoolLit:
		t = ast.TypeBool
		n.IsConst = true
		n.ConstValue = ast.ConstValue{Type: t, B: n.Bool}

	case ast.KindStringLit:
		t = ast.TypeString
		n.IsConst = true
		n.ConstValue = ast.ConstValue{Type: t, S: n.Str}

	case ast.KindIdent:
		bdg := tc.info.Uses[ref]
		if bdg != nil {
			t = bdg.Type
		}

	case ast.KindArrayLit:
		elemT := ast.TypeUnresolved
		for i, e := range n.List {
			et := tc.expr(e)
			if i == 0 {
				elemT = et
			}
		}
		if elemT == ast.TypeUnresolved && len(n.List) == 0 {
			tc.errorf(codeAnnotationReq, ref, "cannot infer element type of empty array literal")
		}
		t = ast.TypeArray

	case ast.KindBinary:
		t = tc.binaryType(ref, n)

	case ast.KindUnary:
		operandT := tc.expr(n.A)
		switch n.Tok {
		case token.BANG, token.NOT:
			t = ast.TypeBool
		case token.TILDE:
			if operandT.IsInteger() {
				t = operandT
			} else if operandT != ast.TypeUnresolved {
				tc.errorf(codeUnsupportedOp, ref, "bitwise complement requires an integer operand, got %s", operandT)
			}
		default: // unary minus
			t = operandT
			if operandT == ast.TypeBool || operandT == ast.TypeString {
				tc.errorf(codeUnsupportedOp, ref, "unary - is not defined for %s", operandT)
				t = ast.TypeUnresolved
			}
		}
		n.IsConst = tc.arena.Node(n.A).IsConst

	case ast.KindTernary:
		if ct := tc.expr(n.A); ct != ast.TypeBool && ct != ast.TypeUnresolved {
			tc.errorf(codeMismatch, n.A, "ternary condition must be bool, got %s", ct)
		}
		thenT := tc.expr(n.B)
		elseT := tc.expr(n.C)
		if thenT.IsNumeric() && elseT.IsNumeric() && thenT != elseT {
			tc.errorf(codeMixedArithmetic, ref, "ternary branches have mismatched types: %s vs %s", thenT, elseT)
		}
		t = thenT

	case ast.KindCall:
		tc.expr(n.A)
		for _, a := range n.List {
			tc.expr(a)
		}
		t = ast.TypeUnresolved

	case ast.KindIndex:
		tc.expr(n.A)
		tc.expr(n.B)
		t = ast.TypeUnresolved

	case ast.KindSelector:
		tc.expr(n.A)
		t = ast.TypeUnresolved

	case ast.KindParen:
		t = tc.expr(n.A)
		n.IsConst = tc.arena.Node(n.A).IsConst
		n.ConstValue = tc.arena.Node(n.A).ConstValue

	case ast.KindCast:
		fromT := tc.expr(n.A)
		toT, ok := builtinTypeNames[n.Str]
		if !ok {
			tc.errorf(codeInvalidCast, ref, "unknown cast target type: %s", n.Str)
			t = ast.TypeUnresolved
			break
		}
		if !ast.CastAllowed(fromT, toT) && fromT != ast.TypeUnresolved {
			tc.errorf(codeInvalidCast, ref, "cannot cast %s as %s", fromT, toT)
		}
		t = toT

	case ast.KindRange:
		tc.expr(n.A)
		tc.expr(n.B)
		if n.C != ast.NilRef {
			tc.expr(n.C)
		}
		t = ast.TypeUnresolved

	case ast.KindStructLit:
		for _, f := range n.List {
			fld := tc.arena.Node(f)
			tc.expr(fld.A)
		}
		t = ast.TypeStruct

	case ast.KindEnumCtor:
		for _, a := range n.List {
			tc.expr(a)
		}
		t = ast.TypeEnum

	default:
		panic(fmt.Sprintf("typecheck: unexpected expr kind %v", n.Kind))
	}
	n.Type = t
	return t
}

// binaryType types a KindBinary node, enforcing spec.md §4.3's "no implicit
// promotion" rule: numeric operands must share exactly one type (E2004
// otherwise). Comparisons and equality always produce bool; and/or require
// bool operands.
func (tc *typechecker) binaryType(ref ast.NodeRef, n *ast.Node) ast.TypeID {
	lt := tc.expr(n.A)
	rt := tc.expr(n.B)
	n.IsConst = tc.arena.Node(n.A).IsConst && tc.arena.Node(n.B).IsConst

	switch n.Tok {
	case token.AND, token.OR:
		if lt != ast.TypeBool && lt != ast.TypeUnresolved {
			tc.errorf(codeMismatch, n.A, "'and'/'or' operand must be bool, got %s", lt)
		}
		if rt != ast.TypeBool && rt != ast.TypeUnresolved {
			tc.errorf(codeMismatch, n.B, "'and'/'or' operand must be bool, got %s", rt)
		}
		return ast.TypeBool

	case token.EQEQ, token.BANGEQ:
		if lt.IsNumeric() && rt.IsNumeric() && lt != rt {
			tc.errorf(codeIncompatible, ref, "cannot compare %s and %s", lt, rt)
		}
		return ast.TypeBool

	case token.LT, token.LE, token.GT, token.GE:
		if lt.IsNumeric() && rt.IsNumeric() && lt != rt {
			tc.errorf(codeMixedArithmetic, ref, "mixed-type comparison: %s %s %s", lt, n.Tok, rt)
		} else if !lt.IsNumeric() && lt != ast.TypeUnresolved {
			tc.errorf(codeUnsupportedOp, ref, "%s is not ordered", lt)
		}
		return ast.TypeBool

	case token.AMPERSAND, token.PIPE, token.CIRCUMFLEX, token.LTLT, token.GTGT:
		if lt.IsInteger() && rt.IsInteger() && lt != rt {
			tc.errorf(codeMixedArithmetic, ref, "mixed-type bitwise op: %s %s %s", lt, n.Tok, rt)
		} else if !lt.IsInteger() && lt != ast.TypeUnresolved {
			tc.errorf(codeUnsupportedOp, ref, "bitwise operator requires an integer operand, got %s", lt)
		}
		return lt

	default: // + - * / %
		if lt == ast.TypeString && rt == ast.TypeString && n.Tok == token.PLUS {
			return ast.TypeString
		}
		if lt.IsNumeric() && rt.IsNumeric() && lt != rt {
			tc.errorf(codeMixedArithmetic, ref, "mixed-type arithmetic: %s %s %s (no implicit promotion)", lt, n.Tok, rt)
			return ast.TypeUnresolved
		}
		if !lt.IsNumeric() && lt != ast.TypeUnresolved {
			tc.errorf(codeUnsupportedOp, ref, "arithmetic operator %s is not defined for %s", n.Tok, lt)
			return ast.TypeUnresolved
		}
		return lt
	}
}

func intLitType(suffix token.Token) ast.TypeID {
	switch suffix {
	case token.SUFFIX_I32:
		return ast.TypeI32
	case token.SUFFIX_I64:
		return ast.TypeI64
	case token.SUFFIX_U32:
		return ast.TypeU32
	case token.SUFFIX_U64, token.SUFFIX_U:
		return ast.TypeU64
	case token.SUFFIX_F64:
		return ast.TypeF64
	default:
		return ast.TypeI32
	}
}
