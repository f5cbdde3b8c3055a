// Much of the machine package's shape -- a Thread driving a call stack of
// Frames, with a host-facing Value interface implemented by every runtime
// type -- is adapted from the Starlark-go virtual machine:
// https://github.com/google/starlark-go/tree/ee8ed142361c69d52fe8e9fb5e311d2a0a7c02de
//
// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package machine implements the register-based virtual machine that
// executes lang/compiler's bytecode, and the runtime representation of
// every value the language manipulates.
package machine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/orus-lang/orus/lang/ast"
)

// Value is implemented by every runtime value the machine's registers,
// arrays, and struct fields can hold. Unlike ast.TypeID, which classifies
// a static expression type, Value is the boxed runtime form every register
// reconciles to when it isn't living in a typed shadow register.
type Value interface {
	Type() ast.TypeID
	String() string
}

// Nil is the single value of type Nil.
type Nil struct{}

func (Nil) Type() ast.TypeID { return ast.TypeNil }
func (Nil) String() string   { return "nil" }

type Bool bool

func (Bool) Type() ast.TypeID { return ast.TypeBool }
func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

type I32 int32

func (I32) Type() ast.TypeID { return ast.TypeI32 }
func (v I32) String() string { return strconv.FormatInt(int64(v), 10) }

type I64 int64

func (I64) Type() ast.TypeID { return ast.TypeI64 }
func (v I64) String() string { return strconv.FormatInt(int64(v), 10) }

type U32 uint32

func (U32) Type() ast.TypeID { return ast.TypeU32 }
func (v U32) String() string { return strconv.FormatUint(uint64(v), 10) }

type U64 uint64

func (U64) Type() ast.TypeID { return ast.TypeU64 }
func (v U64) String() string { return strconv.FormatUint(uint64(v), 10) }

type F64 float64

func (F64) Type() ast.TypeID { return ast.TypeF64 }
func (v F64) String() string { return strconv.FormatFloat(float64(v), 'g', -1, 64) }

type Str string

func (Str) Type() ast.TypeID { return ast.TypeString }
func (v Str) String() string { return string(v) }

// Array is a growable, heap-allocated sequence of Values, backing the
// language's array literals and indexing operations.
type Array struct {
	Elems []Value
	gcHdr
}

func (*Array) Type() ast.TypeID { return ast.TypeArray }
func (a *Array) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, e := range a.Elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

// Struct is one instance of a declared struct type: a flat slice of field
// values indexed the same way lang/compiler's structInfo.fieldIndex
// assigned them, so FIELD_GET_R/FIELD_SET_R never need a name lookup at
// run time.
type Struct struct {
	TypeName string
	Fields   []Value
	gcHdr
}

func (s *Struct) Type() ast.TypeID { return ast.TypeStruct }
func (s *Struct) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s{", s.TypeName)
	for i, f := range s.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.String())
	}
	sb.WriteByte('}')
	return sb.String()
}

// Enum is one constructed enum value: which variant, and its payload
// values in declaration order (empty for a unit variant).
type Enum struct {
	TypeName    string
	VariantName string
	Payload     []Value
	gcHdr
}

func (*Enum) Type() ast.TypeID { return ast.TypeEnum }
func (e *Enum) String() string {
	if len(e.Payload) == 0 {
		return e.TypeName + "." + e.VariantName
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s.%s(", e.TypeName, e.VariantName)
	for i, p := range e.Payload {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// ErrorValue is the payload a THROW opcode raises and a try/catch handler
// binds its catch variable to. Kind mirrors the RuntimeError that would
// have propagated had no try-frame been active to catch it.
type ErrorValue struct {
	Kind    ErrorKind
	Message string
	gcHdr
}

func (*ErrorValue) Type() ast.TypeID { return ast.TypeString }
func (e *ErrorValue) String() string { return e.Message }

// Cell boxes a single value on the heap so a closure can capture it by
// reference: every Cell-scoped local the resolver flags is allocated one
// of these instead of living directly in a register, read and written
// through OP_CELL_GET/OP_CELL_SET.
type Cell struct {
	V Value
	gcHdr
}

func (*Cell) Type() ast.TypeID { return ast.TypeUnresolved }
func (c *Cell) String() string { return "<cell " + c.V.String() + ">" }

// NumericArrayKind distinguishes which integer width a range was built
// over, since Orus's for-range binds a typed loop variable.
type NumericArrayKind uint8

const (
	RangeI32 NumericArrayKind = iota
	RangeI64
	RangeU32
	RangeU64
)

// RangeIter is the iterator state OP_MAKE_RANGE allocates and
// OP_RANGE_NEXT advances. It is GC-rooted like every other heap object
// while a loop holds it live, but never escapes to user code as a Value in
// its own right.
type RangeIter struct {
	Cur, Stop, Step int64
	Kind            NumericArrayKind
	gcHdr
}

func (*RangeIter) Type() ast.TypeID { return ast.TypeUnresolved }
func (r *RangeIter) String() string { return "<range iterator>" }

// Closure is a function value: the compiled proto it executes plus the
// concrete Cells it captured from enclosing scopes, indexed the same way
// as proto.Upvalues.
type Closure struct {
	ProtoIndex int
	Upvalues   []*Cell
	gcHdr
}

func (*Closure) Type() ast.TypeID { return ast.TypeFn }
func (c *Closure) String() string { return "<function>" }
