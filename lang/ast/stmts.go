package ast

import "github.com/mna/sprout/lang/token"

// BlockStmt is `{ statement* }`, the only place local scope is introduced
// (spec 4.2).
type BlockStmt struct {
	Tok   token.Token
	Stmts []Stmt
}

func (s *BlockStmt) Token() token.Token { return s.Tok }
func (*BlockStmt) stmtNode()            {}

// ExprStmt wraps a bare expression used as a statement.
type ExprStmt struct {
	Tok token.Token
	X   Expr
}

func (s *ExprStmt) Token() token.Token { return s.Tok }
func (*ExprStmt) stmtNode()            {}

// VarDeclStmt is `var NAME (= EXPR)?`. At class scope it declares an
// instance field instead of a local; Loc/Index are filled in by the
// resolver either way.
type VarDeclStmt struct {
	Tok      token.Token
	Name     string
	Init     Expr // nil if no initializer
	IsStatic bool // true for a `static var` declaration in a class body

	// set by the resolver
	Loc   Location
	Index uint8
}

func (s *VarDeclStmt) Token() token.Token { return s.Tok }
func (*VarDeclStmt) stmtNode()            {}

// FuncDeclStmt is `func NAME ( PARAMS ) BLOCK`, also embedded by FuncExpr for
// anonymous functions. Decorations are filled in by the resolver (spec 4.4)
// and consumed by the code generator (spec 4.5).
type FuncDeclStmt struct {
	Tok    token.Token
	Name   string // empty for some anonymous functions written via FuncExpr
	Params []string
	Body   *BlockStmt

	// set by the resolver
	Loc       Location // Global, Local or Field (method) depending on context
	Index     uint8
	NumLocals int // includes params, and +1 implicit self for methods
	Upvalues  []UpvalueDescriptor

	// set by the parser/resolver: true when this FuncDeclStmt is the
	// synthesized or user-declared constructor of its enclosing class
	IsConstructor bool
	// true when this function is a class method (affects implicit self
	// binding at local slot 0)
	IsMethod bool
}

func (s *FuncDeclStmt) Token() token.Token { return s.Tok }
func (*FuncDeclStmt) stmtNode()            {}

// ClassDeclStmt is `class NAME BLOCK`. Its body is pre-parsed into ordered
// field declarations and method declarations (spec 4.5: "Declarations are
// routed to the class table").
type ClassDeclStmt struct {
	Tok     token.Token
	Name    string
	Fields  []*VarDeclStmt // instance and static field declarations, in source order
	Methods []*FuncDeclStmt

	// set by the resolver
	Loc             Location // always Global: the resolver rejects classes declared below the top level
	Index           uint8
	NumInstanceVars int
	NumStaticVars   int
	Constructor     *FuncDeclStmt // user-declared or synthesized $init
}

func (s *ClassDeclStmt) Token() token.Token { return s.Tok }
func (*ClassDeclStmt) stmtNode()            {}

// IfStmt is `if ( EXPR ) BLOCK ( else ( if … | BLOCK ))?`. Else is nil, a
// *BlockStmt, or a nested *IfStmt (the "else if" chain).
type IfStmt struct {
	Tok  token.Token
	Cond Expr
	Then *BlockStmt
	Else Stmt
}

func (s *IfStmt) Token() token.Token { return s.Tok }
func (*IfStmt) stmtNode()            {}

// LoopKind distinguishes the two surface forms that lower to the single
// Loop AST kind (spec 3).
type LoopKind uint8

const (
	LoopWhile LoopKind = iota
	LoopForIn
)

// LoopStmt is `while ( EXPR ) BLOCK` or `for ( NAME in EXPR ) BLOCK`. For a
// for-in loop, IterVar names the per-iteration binding (a local in Body's
// enclosing scope) and Iterable is evaluated once before the first
// iteration.
type LoopStmt struct {
	Tok     token.Token
	Kind    LoopKind
	Cond    Expr // LoopWhile
	IterVar string
	// set by the resolver when Kind == LoopForIn
	IterVarIndex uint8
	Iterable     Expr // LoopForIn
	Body         *BlockStmt
}

func (s *LoopStmt) Token() token.Token { return s.Tok }
func (*LoopStmt) stmtNode()            {}

// ReturnStmt is `return EXPR` or a bare `return`.
type ReturnStmt struct {
	Tok   token.Token
	Value Expr // nil for a bare return
}

func (s *ReturnStmt) Token() token.Token { return s.Tok }
func (*ReturnStmt) stmtNode()            {}

// BadStmt is a placeholder produced by parser error recovery (spec 4.2:
// "the containing AST subtree is returned non-null so later passes can
// still pattern-match"); later passes must skip it.
type BadStmt struct {
	Tok token.Token
}

func (s *BadStmt) Token() token.Token { return s.Tok }
func (*BadStmt) stmtNode()            {}
