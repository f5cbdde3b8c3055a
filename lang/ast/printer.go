package ast

import (
	"fmt"
	"io"
	"strings"

	"github.com/orus-lang/orus/lang/token"
)

// Printer renders an arena tree as indented text, used by the CLI's
// show_ast flag.
type Printer struct {
	Output io.Writer
	Fset   *token.FileSet // if non-nil, each line is prefixed with its position
}

// Print walks the tree rooted at ref and writes one line per node.
func (p *Printer) Print(a *Arena, ref NodeRef) error {
	pp := &printer{w: p.Output, fset: p.Fset}
	Walk(pp, a, ref)
	return pp.err
}

type printer struct {
	w     io.Writer
	fset  *token.FileSet
	depth int
	err   error
}

func (p *printer) Visit(a *Arena, ref NodeRef, dir VisitDirection) Visitor {
	if dir == VisitExit || p.err != nil {
		p.depth--
		return nil
	}
	p.depth++
	p.printNode(a, ref, p.depth-1)
	return p
}

func (p *printer) printNode(a *Arena, ref NodeRef, indent int) {
	if p.err != nil {
		return
	}
	n := a.Node(ref)
	var b strings.Builder
	b.WriteString(strings.Repeat(". ", indent))
	if p.fset != nil {
		b.WriteString(p.fset.Position(n.Pos).String())
		b.WriteString(" ")
	}
	b.WriteString(describe(n))
	b.WriteByte('\n')
	_, p.err = io.WriteString(p.w, b.String())
}

func describe(n *Node) string {
	switch n.Kind {
	case KindChunk:
		return "chunk " + n.Str
	case KindBlock:
		return fmt.Sprintf("block {stmts=%d}", len(n.List))
	case KindIdent:
		return n.Str
	case KindIntLit:
		return fmt.Sprintf("int %d", n.Int)
	case KindFloatLit:
		return fmt.Sprintf("float %g", n.Float)
	case KindStringLit:
		return fmt.Sprintf("string %q", n.Str)
	case KindBoolLit:
		return fmt.Sprintf("bool %v", n.Bool)
	case KindArrayLit:
		return fmt.Sprintf("array {items=%d}", len(n.List))
	case KindBinary:
		return "binary " + n.Tok.GoString()
	case KindUnary:
		return "unary " + n.Tok.GoString()
	case KindTernary:
		return "ternary"
	case KindCall:
		return fmt.Sprintf("call {args=%d}", len(n.List))
	case KindIndex:
		return "index"
	case KindSelector:
		return "expr." + n.Str
	case KindParen:
		return "(expr)"
	case KindCast:
		return "cast as " + n.Str
	case KindRange:
		return "range"
	case KindStructLit:
		return n.Str + "{...}"
	case KindEnumCtor:
		return n.Str
	case KindLetDecl:
		lbl := "let"
		if n.Bool {
			lbl = "let mut"
		}
		return lbl + " " + n.Str
	case KindConstDecl:
		return "const " + n.Str
	case KindStaticDecl:
		lbl := "static"
		if n.Bool {
			lbl = "static mut"
		}
		return lbl + " " + n.Str
	case KindAssign:
		return "assign " + n.Tok.GoString()
	case KindExprStmt:
		return "expr stmt"
	case KindIf:
		return "if"
	case KindWhile:
		return "while"
	case KindForRange:
		return "for " + n.Str + " in"
	case KindReturn:
		return "return"
	case KindBreak:
		return "break"
	case KindContinue:
		return "continue"
	case KindImport:
		return "import " + n.Str
	case KindUse:
		return "use " + n.Str
	case KindTryCatch:
		return "try/catch " + n.Str
	case KindPrint:
		return fmt.Sprintf("print {args=%d}", len(n.List))
	case KindFnDecl:
		lbl := "fn"
		if n.Bool {
			lbl = "pub fn"
		}
		return fmt.Sprintf("%s %s {params=%d}", lbl, n.Str, len(n.List))
	case KindParam:
		return "param " + n.Str
	case KindStructDecl:
		return fmt.Sprintf("struct %s {fields=%d}", n.Str, len(n.List))
	case KindField:
		return "field " + n.Str
	case KindImplDecl:
		return fmt.Sprintf("impl %s {methods=%d}", n.Str, len(n.List))
	case KindEnumDecl:
		return fmt.Sprintf("enum %s {variants=%d}", n.Str, len(n.List))
	case KindEnumVariant:
		return "variant " + n.Str
	default:
		return "!unknown node!"
	}
}
