package ast

import (
	"fmt"
	"io"
	"strings"
)

// Printer pretty-prints an AST for the --show-ast CLI flag.
type Printer struct {
	// Output is the io.Writer to print to.
	Output io.Writer
	// ShowPos includes each node's line:col in the output when true.
	ShowPos bool
}

// Print walks n and writes one indented line per node.
func (p *Printer) Print(n Node) error {
	pp := &printer{w: p.Output, showPos: p.ShowPos}
	Walk(pp, n)
	return pp.err
}

type printer struct {
	w       io.Writer
	showPos bool
	depth   int
	err     error
}

func (p *printer) Visit(n Node, dir VisitDirection) Visitor {
	if dir == VisitExit {
		p.depth--
		return nil
	}
	if p.err != nil {
		return nil
	}
	p.printNode(n)
	p.depth++
	return p
}

func (p *printer) printNode(n Node) {
	indent := strings.Repeat(". ", p.depth)
	desc := describe(n)
	if p.showPos {
		line, col := n.Token().Pos.LineCol()
		_, p.err = fmt.Fprintf(p.w, "%s[%d:%d] %s\n", indent, line, col, desc)
		return
	}
	_, p.err = fmt.Fprintf(p.w, "%s%s\n", indent, desc)
}

func describe(n Node) string {
	switch n := n.(type) {
	case *LiteralExpr:
		return fmt.Sprintf("Literal %#v", n.Value)
	case *VarExpr:
		tag := ""
		if n.IsAssign {
			tag = " assign"
		}
		return fmt.Sprintf("Var %s (%s#%d)%s", n.Name, n.Loc, n.Index, tag)
	case *UnaryExpr:
		return fmt.Sprintf("Unary %s", n.Op)
	case *BinaryExpr:
		return fmt.Sprintf("Binary %s", n.Op)
	case *PostfixExpr:
		return fmt.Sprintf("Postfix (%d stages)", len(n.Chain))
	case *ListExpr:
		return fmt.Sprintf("List (%d elems)", len(n.Elems))
	case *FuncExpr:
		return "FuncExpr"
	case *BadExpr:
		return "BadExpr"
	case *ExprStmt:
		return "ExprStmt"
	case *VarDeclStmt:
		return fmt.Sprintf("VarDecl %s (%s#%d)", n.Name, n.Loc, n.Index)
	case *FuncDeclStmt:
		return fmt.Sprintf("FuncDecl %s(%s) locals=%d upvalues=%d", n.Name, strings.Join(n.Params, ", "), n.NumLocals, len(n.Upvalues))
	case *ClassDeclStmt:
		return fmt.Sprintf("ClassDecl %s fields=%d", n.Name, n.NumInstanceVars)
	case *BlockStmt:
		return fmt.Sprintf("Block (%d stmts)", len(n.Stmts))
	case *IfStmt:
		return "If"
	case *LoopStmt:
		if n.Kind == LoopForIn {
			return fmt.Sprintf("Loop for %s in", n.IterVar)
		}
		return "Loop while"
	case *ReturnStmt:
		return "Return"
	case *BadStmt:
		return "BadStmt"
	default:
		return fmt.Sprintf("%T", n)
	}
}
