// Package ast defines the types to represent the abstract syntax tree (AST)
// of the sprout language: a tagged union over node kinds {Literal, Var,
// Unary, Binary, Postfix, List, VarDecl, FuncDecl, ClassDecl, Block, If,
// Loop, Return}, each carrying the originating token for diagnostics.
package ast

import "github.com/mna/sprout/lang/token"

// Node is the common interface implemented by every AST node. Every node
// carries the token that introduced it, for diagnostics.
type Node interface {
	// Token returns the originating token of the node.
	Token() token.Token
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Location is the kind of storage a resolved Var or field access refers to.
// It is the zero value (Unresolved) until the resolver decorates the node.
type Location uint8

const (
	Unresolved Location = iota
	Global
	Local
	Upvalue
	Field
)

func (l Location) String() string {
	switch l {
	case Global:
		return "global"
	case Local:
		return "local"
	case Upvalue:
		return "upvalue"
	case Field:
		return "field"
	default:
		return "unresolved"
	}
}

// UpvalueDescriptor records how a FuncDecl captures one free variable from
// an enclosing scope, per spec 4.4: direct captures read the immediately
// enclosing function's locals, indirect ("re-capture") descriptors thread
// the value through one more level of upvalues.
type UpvalueDescriptor struct {
	IsDirect bool
	Index    uint8
	Symbol   string
}
