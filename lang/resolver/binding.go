package resolver

import (
	"fmt"

	"github.com/orus-lang/orus/lang/ast"
)

// Scope classifies how a Binding's storage is reached at runtime.
type Scope uint8

const (
	Undefined   Scope = iota // name has no declaration
	Local                    // local to the enclosing function (or top-level chunk)
	Cell                     // local but captured by a nested function
	Free                     // captured cell of an enclosing function
	Predeclared              // supplied by the host environment
	Universal                // a language built-in
)

var scopeNames = [...]string{
	Undefined:   "undefined",
	Local:       "local",
	Cell:        "cell",
	Free:        "free",
	Predeclared: "predeclared",
	Universal:   "universal",
}

func (s Scope) String() string {
	if int(s) >= len(scopeNames) {
		return fmt.Sprintf("<invalid Scope %d>", s)
	}
	return scopeNames[s]
}

// A Binding ties every identifier reference to the declaration it denotes.
// One Binding is shared by every KindIdent use that resolves to the same
// declaration.
type Binding struct {
	Scope Scope
	Const bool // true for const/static bindings, false for let/param/loop vars
	Mut   bool // true if declared with "mut"

	// Index records the slot for this binding within its owning Function:
	// into Locals if Scope==Local or Cell, into FreeVars if Scope==Free. It
	// is zero for Predeclared, Universal and Undefined bindings.
	Index int

	// Decl is the declaring node: KindLetDecl, KindConstDecl, KindStaticDecl,
	// KindParam, KindFnDecl (function name), KindStructDecl, KindEnumDecl, or
	// KindForRange (loop variable).
	Decl ast.NodeRef

	// Type is filled in by TypeCheck: the resolved type of this binding's
	// declared storage (the variable's type, not any one use's type, since
	// Orus has no generics or union-typed locals).
	Type ast.TypeID

	// BlockName is set by NameBlocks mode: the synthetic "_", "_a", "_ab", ...
	// path of the block that first saw this binding, used when pretty-printing
	// resolved identifiers.
	BlockName string
}

// Function groups the local and captured variables of one function body, or
// of the top-level chunk (treated as the outermost function).
type Function struct {
	Definition ast.NodeRef // KindChunk or KindFnDecl
	Locals     []*Binding  // parameters first, then locals in declaration order
	FreeVars   []*Binding  // enclosing cells captured by this function
}

// Info is the resolver's output: the binding each identifier reference and
// each declaring name resolves to, keyed by node rather than stored on the
// Node itself, the way go/types.Info separates object identity from the
// syntax tree it annotates.
type Info struct {
	// Uses maps a KindIdent reference node to the binding it resolves to.
	Uses map[ast.NodeRef]*Binding
	// Defs maps a declaring node (see Binding.Decl) to its own binding.
	Defs map[ast.NodeRef]*Binding
}

func newInfo() *Info {
	return &Info{
		Uses: make(map[ast.NodeRef]*Binding),
		Defs: make(map[ast.NodeRef]*Binding),
	}
}
