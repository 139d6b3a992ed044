package ast

// VisitDirection indicates whether a call to Visit enters or exits a node.
type VisitDirection int

// List of visit directions.
const (
	VisitEnter VisitDirection = iota
	VisitExit
)

// Visitor defines the method to implement for a Visitor, which gets called
// for each participating node in the call to Walk. A node's children can
// be skipped by returning a nil visitor from the call to Visit.
type Visitor interface {
	Visit(n Node, dir VisitDirection) (w Visitor)
}

// VisitorFunc is a function that implements the Visitor interface.
type VisitorFunc func(n Node, dir VisitDirection) Visitor

// Visit implements the Visitor interface for VisitorFunc.
func (f VisitorFunc) Visit(n Node, dir VisitDirection) Visitor {
	return f(n, dir)
}

// Walk visits each node with Visitor v starting with the provided node. It
// first calls Visit with the node in VisitEnter direction, and if that call
// returns a non-nil Visitor, it recursively walks the node's children (in
// source order) and calls Visit again with the node and VisitExit direction
// once all children have been visited. A nil node is a no-op, matching the
// parser's "skip null children" contract (spec 4.2).
func Walk(v Visitor, node Node) {
	if node == nil {
		return
	}
	if v = v.Visit(node, VisitEnter); v == nil {
		return
	}
	walkChildren(v, node)
	v.Visit(node, VisitExit)
}

func walkChildren(v Visitor, node Node) {
	switch n := node.(type) {
	case *LiteralExpr, *VarExpr, *BadExpr, *BadStmt:
		// leaves

	case *UnaryExpr:
		Walk(v, n.Right)

	case *BinaryExpr:
		Walk(v, n.Left)
		Walk(v, n.Right)

	case *PostfixExpr:
		Walk(v, n.Target)
		for _, op := range n.Chain {
			for _, a := range op.Args {
				Walk(v, a)
			}
			if op.Key != nil {
				Walk(v, op.Key)
			}
		}

	case *ListExpr:
		for _, e := range n.Elems {
			Walk(v, e)
		}

	case *FuncExpr:
		Walk(v, n.Fn)

	case *ExprStmt:
		Walk(v, n.X)

	case *VarDeclStmt:
		if n.Init != nil {
			Walk(v, n.Init)
		}

	case *FuncDeclStmt:
		Walk(v, n.Body)

	case *ClassDeclStmt:
		for _, f := range n.Fields {
			Walk(v, f)
		}
		for _, m := range n.Methods {
			Walk(v, m)
		}

	case *BlockStmt:
		for _, s := range n.Stmts {
			Walk(v, s)
		}

	case *IfStmt:
		Walk(v, n.Cond)
		Walk(v, n.Then)
		if n.Else != nil {
			Walk(v, n.Else)
		}

	case *LoopStmt:
		if n.Cond != nil {
			Walk(v, n.Cond)
		}
		if n.Iterable != nil {
			Walk(v, n.Iterable)
		}
		Walk(v, n.Body)

	case *ReturnStmt:
		if n.Value != nil {
			Walk(v, n.Value)
		}

	default:
		panic(unreachableNodeType(n))
	}
}

func unreachableNodeType(n Node) string {
	return "ast: unhandled node type in Walk"
}
