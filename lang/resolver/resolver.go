// Package resolver binds every identifier reference in a parsed chunk to
// the declaration it denotes, classifying each binding as local, a
// closed-over cell, a free variable of an enclosing function, a
// host-predeclared name or a language built-in. There are no global
// variables: the top-level chunk is itself a function scope.
//
// Much of the scope-chain bookkeeping is adapted from the Starlark
// resolver's local/cell/free classification:
// https://github.com/google/starlark-go/tree/ee8ed142361c69d52fe8e9fb5e311d2a0a7c02de
//
// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
package resolver

import (
	"fmt"

	"github.com/orus-lang/orus/lang/ast"
	"github.com/orus-lang/orus/lang/diag"
	"github.com/orus-lang/orus/lang/token"
)

// Mode is a set of bit flags configuring ResolveFiles.
type Mode uint

const (
	// NameBlocks assigns every lexical block a unique, stable name, useful
	// when pretty-printing resolved identifiers. Disabled by default since it
	// costs an extra pass with no effect on resolution itself.
	NameBlocks Mode = 1 << iota
)

// ResolveFiles resolves every identifier reference in chunks, returning the
// binding information gathered in an Info and any diagnostics. isPredeclared
// and isUniversal classify names with no local binding: isPredeclared should
// report names supplied by the host environment for this module,
// isUniversal the language's built-ins. A nil predicate always reports
// false.
//
// chunks must come from a parse that reported no errors; behavior is
// undefined otherwise.
func ResolveFiles(arena *ast.Arena, fset *token.FileSet, chunks []ast.NodeRef, mode Mode,
	isPredeclared, isUniversal func(name string) bool) (*Info, diag.List, error) {
	info := newInfo()
	if len(chunks) == 0 {
		return info, diag.List{}, nil
	}

	var r resolver
	r.arena = arena
	r.fset = fset
	r.info = info
	r.isPredeclared = isPredeclared
	if r.isPredeclared == nil {
		r.isPredeclared = func(string) bool { return false }
	}
	r.isUniversal = isUniversal
	if r.isUniversal == nil {
		r.isUniversal = func(string) bool { return false }
	}

	for _, ch := range chunks {
		r.env, r.root = nil, nil
		r.globals = make(map[string]*Binding)
		r.loopDepth = 0
		r.resolveChunk(ch)
		if mode&NameBlocks != 0 {
			r.nameBlocks()
		}
	}
	r.diags.Sort()
	return r.info, r.diags, r.diags.Err()
}

type resolver struct {
	arena *ast.Arena
	fset  *token.FileSet
	diags diag.List
	info  *Info

	// env is the current innermost block; its parent chain reaches the
	// chunk's root block.
	env  *block
	root *block

	// globals memoizes the Binding created the first time a predeclared or
	// universal name is referenced, so repeated references share one Binding.
	globals map[string]*Binding

	isPredeclared, isUniversal func(name string) bool

	loopDepth int
}

// block is one lexical scope: a function body, the synthetic wrapper around
// a for-loop's loop variable or a catch clause's error variable, or a plain
// nested block (if/while/for body).
type block struct {
	parent   *block
	children []*block
	fn       *Function
	bindings map[string]*Binding
	name     string
}

func (r *resolver) push(b *block) {
	if r.env == nil {
		r.root = b
	} else {
		r.env.children = append(r.env.children, b)
		if b.fn == nil {
			b.fn = r.env.fn
		}
	}
	b.parent = r.env
	b.bindings = make(map[string]*Binding)
	r.env = b
}

func (r *resolver) pop() { r.env = r.env.parent }

func (r *resolver) pushBlock() { r.push(&block{}) }

const (
	codeAlreadyDeclared     = "E1010"
	codeUndefined           = "E1011"
	codeUndefinedType       = "E1012"
	codeBreakOutsideLoop    = "E1013"
	codeContinueOutsideLoop = "E1014"

	// CodeImmutableAssign is the error taxonomy code spec.md §7 assigns to
	// reassigning a binding that was not declared `mut` (a plain `let`,
	// a `const`, or a non-mut `static`).
	CodeImmutableAssign = "E2008"
)

func (r *resolver) errorf(code string, ref ast.NodeRef, format string, args ...any) {
	pos, _ := r.arena.Span(ref)
	r.diags.Add(diag.Diagnostic{
		Code:     code,
		Severity: diag.Error,
		Pos:      r.fset.Position(pos),
		Message:  fmt.Sprintf(format, args...),
	})
}

func (r *resolver) resolveChunk(ch ast.NodeRef) {
	n := r.arena.Node(ch)
	r.push(&block{fn: &Function{Definition: ch}})
	for _, d := range n.List {
		r.stmt(d)
	}
	r.pop()
}

func (r *resolver) resolveFunction(fnRef ast.NodeRef) {
	n := r.arena.Node(fnRef)
	r.push(&block{fn: &Function{Definition: fnRef}})
	for _, p := range n.List {
		pn := r.arena.Node(p)
		r.bindName(p, pn.Str, false, true)
	}
	savedLoop := r.loopDepth
	r.loopDepth = 0
	r.stmt(n.B) // body block
	r.loopDepth = savedLoop
	r.pop()
}

func (r *resolver) stmt(ref ast.NodeRef) {
	n := r.arena.Node(ref)
	switch n.Kind {
	case ast.KindLetDecl:
		r.expr(n.B)
		r.bindName(ref, n.Str, false, n.Bool)

	case ast.KindConstDecl:
		r.expr(n.B)
		r.bindName(ref, n.Str, true, false)

	case ast.KindStaticDecl:
		r.expr(n.B)
		r.bindName(ref, n.Str, true, n.Bool)

	case ast.KindAssign:
		r.expr(n.B)
		r.assignTarget(n.A)

	case ast.KindExprStmt:
		r.expr(n.A)

	case ast.KindBlock:
		r.pushBlock()
		for _, s := range n.List {
			r.stmt(s)
		}
		r.pop()

	case ast.KindIf:
		r.expr(n.A)
		r.stmt(n.B)
		if n.C != ast.NilRef {
			r.stmt(n.C) // nested KindIf (elif) or KindBlock (else)
		}

	case ast.KindWhile:
		r.expr(n.A)
		r.loopDepth++
		r.stmt(n.B)
		r.loopDepth--

	case ast.KindForRange:
		r.expr(n.A) // range expr, resolved in the enclosing scope
		r.push(&block{})
		r.bindName(ref, n.Str, false, false)
		r.loopDepth++
		r.stmt(n.B)
		r.loopDepth--
		r.pop()

	case ast.KindReturn:
		if n.A != ast.NilRef {
			r.expr(n.A)
		}

	case ast.KindBreak:
		if r.loopDepth == 0 {
			r.errorf(codeBreakOutsideLoop, ref, "break outside of a loop")
		}

	case ast.KindContinue:
		if r.loopDepth == 0 {
			r.errorf(codeContinueOutsideLoop, ref, "continue outside of a loop")
		}

	case ast.KindPrint:
		for _, a := range n.List {
			r.expr(a)
		}

	case ast.KindImport, ast.KindUse:
		// nothing to resolve: import/use paths are resolved by the module loader.

	case ast.KindTryCatch:
		r.stmt(n.A) // try block
		r.push(&block{fn: r.env.fn})
		r.bindName(ref, n.Str, false, true)
		r.stmt(n.B) // catch block
		r.pop()

	case ast.KindFnDecl:
		r.bindName(ref, n.Str, true, false)
		r.resolveFunction(ref)

	case ast.KindStructDecl:
		r.bindName(ref, n.Str, true, false)

	case ast.KindEnumDecl:
		r.bindName(ref, n.Str, true, false)

	case ast.KindImplDecl:
		r.useTypeName(ref, n.Str)
		for _, m := range n.List {
			r.stmt(m)
		}

	default:
		panic(fmt.Sprintf("resolver: unexpected stmt kind %v", n.Kind))
	}
}

func (r *resolver) expr(ref ast.NodeRef) {
	if ref == ast.NilRef {
		return
	}
	n := r.arena.Node(ref)
	switch n.Kind {
	case ast.KindIdent:
		r.use(ref, n.Str)

	case ast.KindIntLit, ast.KindFloatLit, ast.KindStringLit, ast.KindBoolLit:
		// leaf, nothing to resolve

	case ast.KindArrayLit:
		for _, e := range n.List {
			r.expr(e)
		}

	case ast.KindBinary:
		r.expr(n.A)
		r.expr(n.B)

	case ast.KindUnary:
		r.expr(n.A)

	case ast.KindTernary:
		r.expr(n.A)
		r.expr(n.B)
		r.expr(n.C)

	case ast.KindCall:
		r.expr(n.A)
		for _, a := range n.List {
			r.expr(a)
		}

	case ast.KindIndex:
		r.expr(n.A)
		r.expr(n.B)

	case ast.KindSelector:
		// n.Str is a field name, not a variable; only the base resolves.
		r.expr(n.A)

	case ast.KindParen:
		r.expr(n.A)

	case ast.KindCast:
		// n.Str is a target type name, resolved by the type resolver.
		r.expr(n.A)

	case ast.KindRange:
		r.expr(n.A)
		r.expr(n.B)
		if n.C != ast.NilRef {
			r.expr(n.C)
		}

	case ast.KindStructLit:
		r.useTypeName(ref, n.Str)
		for _, f := range n.List {
			fld := r.arena.Node(f)
			r.expr(fld.A)
		}

	case ast.KindEnumCtor:
		for _, a := range n.List {
			r.expr(a)
		}

	default:
		panic(fmt.Sprintf("resolver: unexpected expr kind %v", n.Kind))
	}
}

// assignTarget resolves the left-hand side of an assignment. A bare
// identifier target must already be declared; an index or selector target
// resolves its base expression normally.
func (r *resolver) assignTarget(ref ast.NodeRef) {
	n := r.arena.Node(ref)
	switch n.Kind {
	case ast.KindIdent:
		r.use(ref, n.Str)
		if bdg := r.info.Uses[ref]; bdg != nil && bdg.Scope != Undefined && !bdg.Mut {
			r.errorf(CodeImmutableAssign, ref, "cannot assign to immutable binding %q (declare it with 'mut' to allow reassignment)", n.Str)
		}
	default:
		r.expr(ref)
	}
}

func (r *resolver) bindName(declRef ast.NodeRef, name string, isConst, isMut bool) {
	if _, ok := r.env.bindings[name]; ok {
		r.errorf(codeAlreadyDeclared, declRef, "%q is already declared in this scope", name)
		return
	}
	bdg := &Binding{Scope: Local, Const: isConst, Mut: isMut, Decl: declRef}
	bdg.Index = len(r.env.fn.Locals)
	r.env.fn.Locals = append(r.env.fn.Locals, bdg)
	r.env.bindings[name] = bdg
	r.info.Defs[declRef] = bdg
}

func (r *resolver) use(ref ast.NodeRef, name string) {
	startFn := r.env.fn
	for env := r.env; env != nil; env = env.parent {
		bdg, ok := env.bindings[name]
		if !ok {
			continue
		}
		if env.fn != startFn {
			// Found in an enclosing function's block: turn it into a cell there
			// and record a free binding in the referencing function.
			if bdg.Scope == Local {
				bdg.Scope = Cell
			}
			free := &Binding{Scope: Free, Const: bdg.Const, Mut: bdg.Mut, Decl: bdg.Decl}
			free.Index = len(startFn.FreeVars)
			startFn.FreeVars = append(startFn.FreeVars, free)
			r.env.bindings[name] = free
			r.info.Uses[ref] = free
			return
		}
		r.info.Uses[ref] = bdg
		return
	}

	if r.isPredeclared(name) {
		r.info.Uses[ref] = r.globalBinding(name, Predeclared)
		return
	}
	if r.isUniversal(name) {
		r.info.Uses[ref] = r.globalBinding(name, Universal)
		return
	}

	r.errorf(codeUndefined, ref, "undefined: %s", name)
	r.info.Uses[ref] = &Binding{Scope: Undefined}
}

// useTypeName resolves a reference to a struct or enum type name: struct
// literals and impl blocks name their type by string rather than through a
// KindIdent child, so the binding is recorded against the referencing node
// itself.
func (r *resolver) useTypeName(ref ast.NodeRef, name string) {
	for env := r.env; env != nil; env = env.parent {
		if bdg, ok := env.bindings[name]; ok {
			r.info.Uses[ref] = bdg
			return
		}
	}
	r.errorf(codeUndefinedType, ref, "undefined type: %s", name)
}

func (r *resolver) globalBinding(name string, scope Scope) *Binding {
	if bdg, ok := r.globals[name]; ok {
		return bdg
	}
	bdg := &Binding{Scope: scope}
	r.globals[name] = bdg
	return bdg
}
