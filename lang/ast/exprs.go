package ast

import "github.com/mna/sprout/lang/token"

// LiteralExpr is an int, float, string, bool or null literal.
type LiteralExpr struct {
	Tok   token.Token
	Value any // int64, float64, string, bool, or nil for the null literal
}

func (e *LiteralExpr) Token() token.Token { return e.Tok }
func (*LiteralExpr) exprNode()            {}

// VarExpr is a reference to a named variable, decorated by the resolver with
// its Location and Index. IsAssign is set by the parser when the reference
// appears as the target of an assignment.
type VarExpr struct {
	Tok      token.Token
	Name     string
	IsAssign bool

	// set by the resolver
	Loc   Location
	Index uint8
}

func (e *VarExpr) Token() token.Token { return e.Tok }
func (*VarExpr) exprNode()            {}

// UnaryExpr is a prefix unary operator applied to Right ('-' or '!').
type UnaryExpr struct {
	Tok   token.Token
	Op    token.Kind
	Right Expr
}

func (e *UnaryExpr) Token() token.Token { return e.Tok }
func (*UnaryExpr) exprNode()            {}

// BinaryExpr is a binary operator expression.
type BinaryExpr struct {
	Tok   token.Token
	Op    token.Kind
	Left  Expr
	Right Expr
}

func (e *BinaryExpr) Token() token.Token { return e.Tok }
func (*BinaryExpr) exprNode()            {}

// ChainOpKind distinguishes the three stages a Postfix chain can be made of.
type ChainOpKind uint8

const (
	ChainCall ChainOpKind = iota
	ChainAccess
	ChainSubscript
)

// ChainOp is one stage of a Postfix chain: call(args), access(name) or
// subscript(expr).
type ChainOp struct {
	Kind ChainOpKind
	Tok  token.Token

	Args []Expr // ChainCall
	Name string // ChainAccess; resolved to a constant-pool index at codegen
	Key  Expr   // ChainSubscript
}

// PostfixExpr is a target expression followed by an ordered chain of
// operations (spec 3: "a target expression followed by an ordered sequence
// of chain operations"). IsAssign marks the trailing operation as a store
// (access or subscript) rather than a load, set by the parser when this
// node is the LHS of '='.
type PostfixExpr struct {
	Tok      token.Token
	Target   Expr
	Chain    []ChainOp
	IsAssign bool
}

func (e *PostfixExpr) Token() token.Token { return e.Tok }
func (*PostfixExpr) exprNode()            {}

// ListExpr is an array literal.
type ListExpr struct {
	Tok   token.Token
	Elems []Expr
}

func (e *ListExpr) Token() token.Token { return e.Tok }
func (*ListExpr) exprNode()            {}

// FuncExpr is an anonymous function used as an expression ("func as
// expression yields an anonymous function", spec 4.2). It carries its
// decorated body as a *FuncDeclStmt in Fn.
type FuncExpr struct {
	Tok token.Token
	Fn  *FuncDeclStmt
}

func (e *FuncExpr) Token() token.Token { return e.Tok }
func (*FuncExpr) exprNode()            {}

// BadExpr is a placeholder produced by parser error recovery; later passes
// must skip it. Present only so a subtree is never nil where an Expr is
// expected.
type BadExpr struct {
	Tok token.Token
}

func (e *BadExpr) Token() token.Token { return e.Tok }
func (*BadExpr) exprNode()            {}
