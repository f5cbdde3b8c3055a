package ast

import "github.com/orus-lang/orus/lang/token"

// Field layout per Kind (A, B, C, D are child NodeRefs unless noted):
//
//	KindChunk       Str=filename                 List=top-level decls
//	KindBlock                                    List=statements
//	KindIdent       Str=name
//	KindIntLit      Int=value  Tok=suffix
//	KindFloatLit    Float=value
//	KindStringLit   Str=decoded value
//	KindBoolLit     Bool=value
//	KindArrayLit                                 List=elements
//	KindBinary      Tok=operator  A=left B=right
//	KindUnary       Tok=operator  A=operand
//	KindTernary     A=cond B=then C=else
//	KindCall        A=callee                     List=args
//	KindIndex       A=base B=index
//	KindSelector    Str=field  A=base
//	KindParen       A=inner
//	KindCast        Str=target type name  A=operand
//	KindRange       A=start B=end C=step(NilRef if absent)
//	KindStructLit   Str=type name                List=KindField inits
//	KindEnumCtor    Str="Enum.Variant"            List=args
//	KindLetDecl     Str=name  Bool=mut  A=type annotation(NilRef)  B=init
//	KindConstDecl   Str=name  A=type annotation(NilRef)  B=init
//	KindStaticDecl  Str=name  Bool=mut  A=type annotation(NilRef)  B=init
//	KindAssign      Tok=op  A=target B=value
//	KindExprStmt    A=expr
//	KindIf          A=cond B=then-block C=else(block or nested KindIf, NilRef)
//	KindWhile       A=cond B=body
//	KindForRange    Str=loop var  A=range expr  B=body
//	KindReturn      A=expr(NilRef if bare)
//	KindBreak
//	KindContinue
//	KindImport      Str=path
//	KindUse         Str=path
//	KindTryCatch    A=try-block  Str=catch var  B=catch-block
//	KindPrint                                    List=args
//	KindFnDecl      Str=name  Bool=pub  A=return type(NilRef=void) B=body  List=KindParam
//	KindParam       Str=name  A=type annotation
//	KindStructDecl  Str=name                      List=KindField
//	KindField       Str=name  A=type annotation
//	KindImplDecl    Str=type name                 List=KindFnDecl methods
//	KindEnumDecl    Str=name                      List=KindEnumVariant
//	KindEnumVariant Str=name                      List=type annotations (payload)

func (a *Arena) newExpr(kind NodeKind, pos, end token.Pos) NodeRef {
	return a.push(Node{Kind: kind, Pos: pos, End: end})
}

func (a *Arena) NewIdent(pos, end token.Pos, name string) NodeRef {
	ref := a.newExpr(KindIdent, pos, end)
	a.Node(ref).Str = name
	return ref
}

func (a *Arena) NewIntLit(pos, end token.Pos, val int64, suffix token.Token) NodeRef {
	ref := a.newExpr(KindIntLit, pos, end)
	n := a.Node(ref)
	n.Int, n.Tok = val, suffix
	return ref
}

func (a *Arena) NewFloatLit(pos, end token.Pos, val float64) NodeRef {
	ref := a.newExpr(KindFloatLit, pos, end)
	a.Node(ref).Float = val
	return ref
}

func (a *Arena) NewStringLit(pos, end token.Pos, val string) NodeRef {
	ref := a.newExpr(KindStringLit, pos, end)
	a.Node(ref).Str = val
	return ref
}

func (a *Arena) NewBoolLit(pos, end token.Pos, val bool) NodeRef {
	ref := a.newExpr(KindBoolLit, pos, end)
	a.Node(ref).Bool = val
	return ref
}

func (a *Arena) NewArrayLit(pos, end token.Pos, items []NodeRef) NodeRef {
	ref := a.newExpr(KindArrayLit, pos, end)
	a.Node(ref).List = items
	return ref
}

func (a *Arena) NewBinary(op token.Token, left, right NodeRef) NodeRef {
	lp, _ := a.Span(left)
	_, re := a.Span(right)
	ref := a.newExpr(KindBinary, lp, re)
	n := a.Node(ref)
	n.Tok, n.A, n.B = op, left, right
	return ref
}

func (a *Arena) NewUnary(pos token.Token, opPos token.Pos, operand NodeRef) NodeRef {
	_, end := a.Span(operand)
	ref := a.newExpr(KindUnary, opPos, end)
	n := a.Node(ref)
	n.Tok, n.A = pos, operand
	return ref
}

func (a *Arena) NewTernary(cond, then, els NodeRef) NodeRef {
	cp, _ := a.Span(cond)
	_, ee := a.Span(els)
	ref := a.newExpr(KindTernary, cp, ee)
	n := a.Node(ref)
	n.A, n.B, n.C = cond, then, els
	return ref
}

func (a *Arena) NewCall(callee NodeRef, args []NodeRef, rparen token.Pos) NodeRef {
	cp, _ := a.Span(callee)
	ref := a.newExpr(KindCall, cp, rparen)
	n := a.Node(ref)
	n.A, n.List = callee, args
	return ref
}

func (a *Arena) NewIndex(base, index NodeRef, rbrack token.Pos) NodeRef {
	bp, _ := a.Span(base)
	ref := a.newExpr(KindIndex, bp, rbrack)
	n := a.Node(ref)
	n.A, n.B = base, index
	return ref
}

func (a *Arena) NewSelector(base NodeRef, field string, end token.Pos) NodeRef {
	bp, _ := a.Span(base)
	ref := a.newExpr(KindSelector, bp, end)
	n := a.Node(ref)
	n.A, n.Str = base, field
	return ref
}

func (a *Arena) NewParen(lparen, rparen token.Pos, inner NodeRef) NodeRef {
	ref := a.newExpr(KindParen, lparen, rparen)
	a.Node(ref).A = inner
	return ref
}

func (a *Arena) NewCast(operand NodeRef, typeName string, end token.Pos) NodeRef {
	op, _ := a.Span(operand)
	ref := a.newExpr(KindCast, op, end)
	n := a.Node(ref)
	n.A, n.Str = operand, typeName
	return ref
}

func (a *Arena) NewRange(start, end, step NodeRef) NodeRef {
	sp, _ := a.Span(start)
	_, ee := a.Span(end)
	ref := a.newExpr(KindRange, sp, ee)
	n := a.Node(ref)
	n.A, n.B, n.C = start, end, step
	return ref
}

func (a *Arena) NewStructLit(pos, end token.Pos, typeName string, fields []NodeRef) NodeRef {
	ref := a.newExpr(KindStructLit, pos, end)
	n := a.Node(ref)
	n.Str, n.List = typeName, fields
	return ref
}

func (a *Arena) NewEnumCtor(pos, end token.Pos, path string, args []NodeRef) NodeRef {
	ref := a.newExpr(KindEnumCtor, pos, end)
	n := a.Node(ref)
	n.Str, n.List = path, args
	return ref
}

// --- statements ---

func (a *Arena) newStmt(kind NodeKind, pos, end token.Pos) NodeRef {
	return a.push(Node{Kind: kind, Pos: pos, End: end})
}

func (a *Arena) NewLetDecl(pos, end token.Pos, name string, mut bool, typeAnn, init NodeRef) NodeRef {
	ref := a.newStmt(KindLetDecl, pos, end)
	n := a.Node(ref)
	n.Str, n.Bool, n.A, n.B = name, mut, typeAnn, init
	return ref
}

func (a *Arena) NewConstDecl(pos, end token.Pos, name string, typeAnn, init NodeRef) NodeRef {
	ref := a.newStmt(KindConstDecl, pos, end)
	n := a.Node(ref)
	n.Str, n.A, n.B = name, typeAnn, init
	return ref
}

func (a *Arena) NewStaticDecl(pos, end token.Pos, name string, mut bool, typeAnn, init NodeRef) NodeRef {
	ref := a.newStmt(KindStaticDecl, pos, end)
	n := a.Node(ref)
	n.Str, n.Bool, n.A, n.B = name, mut, typeAnn, init
	return ref
}

func (a *Arena) NewAssign(op token.Token, target, value NodeRef) NodeRef {
	tp, _ := a.Span(target)
	_, ve := a.Span(value)
	ref := a.newStmt(KindAssign, tp, ve)
	n := a.Node(ref)
	n.Tok, n.A, n.B = op, target, value
	return ref
}

func (a *Arena) NewExprStmt(expr NodeRef) NodeRef {
	sp, ee := a.Span(expr)
	ref := a.newStmt(KindExprStmt, sp, ee)
	a.Node(ref).A = expr
	return ref
}

func (a *Arena) NewIf(pos token.Pos, cond, thenBlock, elseNode NodeRef, end token.Pos) NodeRef {
	ref := a.newStmt(KindIf, pos, end)
	n := a.Node(ref)
	n.A, n.B, n.C = cond, thenBlock, elseNode
	return ref
}

func (a *Arena) NewWhile(pos token.Pos, cond, body NodeRef, end token.Pos) NodeRef {
	ref := a.newStmt(KindWhile, pos, end)
	n := a.Node(ref)
	n.A, n.B = cond, body
	return ref
}

func (a *Arena) NewForRange(pos token.Pos, loopVar string, rng, body NodeRef, end token.Pos) NodeRef {
	ref := a.newStmt(KindForRange, pos, end)
	n := a.Node(ref)
	n.Str, n.A, n.B = loopVar, rng, body
	return ref
}

func (a *Arena) NewReturn(pos token.Pos, expr NodeRef, end token.Pos) NodeRef {
	ref := a.newStmt(KindReturn, pos, end)
	a.Node(ref).A = expr
	return ref
}

func (a *Arena) NewBreak(pos, end token.Pos) NodeRef    { return a.newStmt(KindBreak, pos, end) }
func (a *Arena) NewContinue(pos, end token.Pos) NodeRef { return a.newStmt(KindContinue, pos, end) }

func (a *Arena) NewImport(pos, end token.Pos, path string) NodeRef {
	ref := a.newStmt(KindImport, pos, end)
	a.Node(ref).Str = path
	return ref
}

func (a *Arena) NewUse(pos, end token.Pos, path string) NodeRef {
	ref := a.newStmt(KindUse, pos, end)
	a.Node(ref).Str = path
	return ref
}

func (a *Arena) NewTryCatch(pos token.Pos, tryBlock NodeRef, catchVar string, catchBlock NodeRef, end token.Pos) NodeRef {
	ref := a.newStmt(KindTryCatch, pos, end)
	n := a.Node(ref)
	n.A, n.Str, n.B = tryBlock, catchVar, catchBlock
	return ref
}

func (a *Arena) NewPrint(pos, end token.Pos, args []NodeRef) NodeRef {
	ref := a.newStmt(KindPrint, pos, end)
	a.Node(ref).List = args
	return ref
}

func (a *Arena) NewFnDecl(pos token.Pos, name string, pub bool, params []NodeRef, retType, body NodeRef, end token.Pos) NodeRef {
	ref := a.newStmt(KindFnDecl, pos, end)
	n := a.Node(ref)
	n.Str, n.Bool, n.List, n.A, n.B = name, pub, params, retType, body
	return ref
}

func (a *Arena) NewParam(pos, end token.Pos, name string, typeAnn NodeRef) NodeRef {
	ref := a.newStmt(KindParam, pos, end)
	n := a.Node(ref)
	n.Str, n.A = name, typeAnn
	return ref
}

func (a *Arena) NewStructDecl(pos, end token.Pos, name string, fields []NodeRef) NodeRef {
	ref := a.newStmt(KindStructDecl, pos, end)
	n := a.Node(ref)
	n.Str, n.List = name, fields
	return ref
}

func (a *Arena) NewField(pos, end token.Pos, name string, typeAnn NodeRef) NodeRef {
	ref := a.newStmt(KindField, pos, end)
	n := a.Node(ref)
	n.Str, n.A = name, typeAnn
	return ref
}

func (a *Arena) NewImplDecl(pos, end token.Pos, typeName string, methods []NodeRef) NodeRef {
	ref := a.newStmt(KindImplDecl, pos, end)
	n := a.Node(ref)
	n.Str, n.List = typeName, methods
	return ref
}

func (a *Arena) NewEnumDecl(pos, end token.Pos, name string, variants []NodeRef) NodeRef {
	ref := a.newStmt(KindEnumDecl, pos, end)
	n := a.Node(ref)
	n.Str, n.List = name, variants
	return ref
}

func (a *Arena) NewEnumVariant(pos, end token.Pos, name string, payload []NodeRef) NodeRef {
	ref := a.newStmt(KindEnumVariant, pos, end)
	n := a.Node(ref)
	n.Str, n.List = name, payload
	return ref
}

func (a *Arena) NewBlock(pos, end token.Pos, stmts []NodeRef) NodeRef {
	ref := a.newStmt(KindBlock, pos, end)
	a.Node(ref).List = stmts
	return ref
}

func (a *Arena) NewChunk(filename string, decls []NodeRef, eof token.Pos) NodeRef {
	ref := a.newStmt(KindChunk, 0, eof)
	n := a.Node(ref)
	n.Str, n.List = filename, decls
	return ref
}

// Span returns the start and end position of the node at ref.
func (a *Arena) Span(ref NodeRef) (start, end token.Pos) {
	n := a.Node(ref)
	return n.Pos, n.End
}
