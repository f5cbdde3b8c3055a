// Package ast defines the arena-indexed abstract syntax tree: every node
// produced by the parser lives in a single growable slice owned by an
// *Arena, and children are referenced by NodeRef (an index into that
// slice) rather than by pointer. A NodeRef survives in-place node
// rewrites (constant folding reclassifies a node's Kind and payload
// fields without touching any ref that points at it), and the whole tree
// is discarded in one shot by resetting the arena's backing slices.
package ast

import "github.com/orus-lang/orus/lang/token"

// NodeRef is an index into an Arena's node slice. The zero value, NilRef,
// never refers to a real node.
type NodeRef uint32

// NilRef is the zero NodeRef, used for optional child slots.
const NilRef NodeRef = 0

// NodeKind discriminates the productions a Node can represent.
type NodeKind uint8

const (
	invalidKind NodeKind = iota

	KindChunk
	KindBlock

	// expressions
	KindIdent
	KindIntLit
	KindFloatLit
	KindStringLit
	KindBoolLit
	KindArrayLit
	KindBinary
	KindUnary
	KindTernary
	KindCall
	KindIndex
	KindSelector
	KindParen
	KindCast
	KindRange
	KindStructLit
	KindEnumCtor

	// statements
	KindLetDecl
	KindConstDecl
	KindStaticDecl
	KindAssign
	KindExprStmt
	KindIf
	KindWhile
	KindForRange
	KindReturn
	KindBreak
	KindContinue
	KindImport
	KindUse
	KindTryCatch
	KindPrint
	KindFnDecl
	KindParam
	KindStructDecl
	KindField
	KindImplDecl
	KindEnumDecl
	KindEnumVariant
)

// Node is the single physical representation for every AST production.
// Only the fields relevant to Kind are meaningful; see the *View
// accessors in nodes.go for the typed projections.
type Node struct {
	Kind NodeKind
	Pos  token.Pos
	End  token.Pos

	A, B, C, D NodeRef
	List       []NodeRef

	Tok   token.Token
	Str   string
	Int   int64
	Float float64
	Bool  bool

	// filled in by the resolver/optimizer passes
	Type       TypeID
	IsConst    bool
	ConstValue ConstValue
}

// Arena owns every Node produced while parsing one compilation unit.
type Arena struct {
	nodes []Node
}

// NewArena allocates an Arena with node 0 reserved as the permanent
// invalid/nil node so that NilRef never aliases a real node.
func NewArena() *Arena {
	a := &Arena{nodes: make([]Node, 1, 256)}
	return a
}

// Reset truncates the arena back to just the sentinel node, so the whole
// backing array can be reused for the next compile without any aliasing
// between compiles.
func (a *Arena) Reset() {
	a.nodes = a.nodes[:1]
}

// Len reports how many real nodes the arena holds.
func (a *Arena) Len() int { return len(a.nodes) - 1 }

// Node returns the node at ref. Calling it with NilRef returns the
// sentinel invalid node.
func (a *Arena) Node(ref NodeRef) *Node { return &a.nodes[ref] }

func (a *Arena) push(n Node) NodeRef {
	ref := NodeRef(len(a.nodes))
	a.nodes = append(a.nodes, n)
	return ref
}

// Replace overwrites the node at ref in place, preserving every existing
// NodeRef that points at it -- this is how constant folding turns a
// KindBinary node into a KindIntLit node without invalidating its parent's
// child slot.
func (a *Arena) Replace(ref NodeRef, n Node) { a.nodes[ref] = n }
