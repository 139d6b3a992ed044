package parser

import (
	"github.com/mna/sprout/lang/ast"
	"github.com/mna/sprout/lang/token"
)

// parseStmtsUntil parses statements until the current token is one of the
// stop kinds or EOF.
func (p *parser) parseStmtsUntil(stop ...token.Kind) []ast.Stmt {
	var stmts []ast.Stmt
	for !p.atAny(stop) && p.tok.Kind != token.EOF {
		stmts = append(stmts, p.parseStmt())
	}
	return stmts
}

func (p *parser) atAny(kinds []token.Kind) bool {
	for _, k := range kinds {
		if p.tok.Kind == k {
			return true
		}
	}
	return false
}

// parseStmt parses a single statement, recovering from a panic-mode error
// into a BadStmt positioned at the statement's first token, then skipping
// the token at which the error occurred (spec 4.2).
func (p *parser) parseStmt() (stmt ast.Stmt) {
	badTok := p.tok
	defer func() {
		if r := recover(); r != nil {
			if r != errPanicMode {
				panic(r)
			}
			stmt = &ast.BadStmt{Tok: badTok}
			// make progress past the offending token so the parser cannot loop
			// forever in panic mode
			if p.tok.Kind != token.EOF {
				p.advance()
			}
		}
	}()

	switch p.tok.Kind {
	case token.VAR:
		return p.parseVarDeclStmt()
	case token.FUNC:
		return p.parseFuncDeclStmt(false)
	case token.CLASS:
		return p.parseClassDeclStmt()
	case token.IF:
		return p.parseIfStmt()
	case token.WHILE:
		return p.parseWhileStmt()
	case token.FOR:
		return p.parseForStmt()
	case token.RETURN:
		return p.parseReturnStmt()
	case token.LBRACE:
		return p.parseBlock()
	default:
		return p.parseExprStmt()
	}
}

func (p *parser) parseBlock() *ast.BlockStmt {
	lbrace := p.expect(token.LBRACE)
	stmts := p.parseStmtsUntil(token.RBRACE)
	p.expect(token.RBRACE)
	return &ast.BlockStmt{Tok: lbrace, Stmts: stmts}
}

func (p *parser) parseVarDeclStmt() *ast.VarDeclStmt {
	varTok := p.expect(token.VAR)
	name := p.expect(token.IDENT)
	var init ast.Expr
	if p.accept(token.EQ) {
		init = p.parseExpr()
	}
	p.acceptSemi()
	return &ast.VarDeclStmt{Tok: varTok, Name: name.Lit, Init: init}
}

// parseFuncDeclStmt parses `func NAME ( PARAMS ) BLOCK`. When anonymous is
// true the name is optional, used when parsing a func expression.
func (p *parser) parseFuncDeclStmt(anonymous bool) *ast.FuncDeclStmt {
	funcTok := p.expect(token.FUNC)
	var name string
	if anonymous {
		if p.tok.Kind == token.IDENT {
			name = p.expect(token.IDENT).Lit
		}
	} else {
		name = p.expect(token.IDENT).Lit
	}
	params := p.parseParams()
	body := p.parseBlock()
	return &ast.FuncDeclStmt{Tok: funcTok, Name: name, Params: params, Body: body}
}

func (p *parser) parseParams() []string {
	p.expect(token.LPAREN)
	var params []string
	for p.tok.Kind != token.RPAREN && p.tok.Kind != token.EOF {
		params = append(params, p.expect(token.IDENT).Lit)
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	return params
}

// parseClassDeclStmt parses `class NAME { (static? var NAME (= EXPR)? ;? |
// func NAME(PARAMS) BLOCK)* }`.
func (p *parser) parseClassDeclStmt() *ast.ClassDeclStmt {
	classTok := p.expect(token.CLASS)
	name := p.expect(token.IDENT)
	p.expect(token.LBRACE)

	decl := &ast.ClassDeclStmt{Tok: classTok, Name: name.Lit}
	for p.tok.Kind != token.RBRACE && p.tok.Kind != token.EOF {
		switch p.tok.Kind {
		case token.STATIC:
			p.advance()
			vd := p.parseVarDeclStmt()
			vd.IsStatic = true
			decl.Fields = append(decl.Fields, vd)
		case token.VAR:
			decl.Fields = append(decl.Fields, p.parseVarDeclStmt())
		case token.FUNC:
			m := p.parseFuncDeclStmt(false)
			m.IsMethod = true
			if m.Name == decl.Name {
				m.IsConstructor = true
				decl.Constructor = m
			}
			decl.Methods = append(decl.Methods, m)
		default:
			line, col := p.tok.Pos.LineCol()
			p.error(line, col, "expected a field or method declaration in class body, found "+p.tok.Kind.GoString())
			panic(errPanicMode)
		}
	}
	p.expect(token.RBRACE)
	return decl
}

func (p *parser) parseIfStmt() *ast.IfStmt {
	ifTok := p.expect(token.IF)
	p.expect(token.LPAREN)
	cond := p.parseExpr()
	p.expect(token.RPAREN)
	then := p.parseBlock()

	stmt := &ast.IfStmt{Tok: ifTok, Cond: cond, Then: then}
	if p.accept(token.ELSE) {
		if p.tok.Kind == token.IF {
			stmt.Else = p.parseIfStmt()
		} else {
			stmt.Else = p.parseBlock()
		}
	}
	return stmt
}

func (p *parser) parseWhileStmt() *ast.LoopStmt {
	whileTok := p.expect(token.WHILE)
	p.expect(token.LPAREN)
	cond := p.parseExpr()
	p.expect(token.RPAREN)
	body := p.parseBlock()
	return &ast.LoopStmt{Tok: whileTok, Kind: ast.LoopWhile, Cond: cond, Body: body}
}

func (p *parser) parseForStmt() *ast.LoopStmt {
	forTok := p.expect(token.FOR)
	p.expect(token.LPAREN)
	iterVar := p.expect(token.IDENT)
	p.expect(token.IN)
	iterable := p.parseExpr()
	p.expect(token.RPAREN)
	body := p.parseBlock()
	return &ast.LoopStmt{Tok: forTok, Kind: ast.LoopForIn, IterVar: iterVar.Lit, Iterable: iterable, Body: body}
}

func (p *parser) parseReturnStmt() *ast.ReturnStmt {
	retTok := p.expect(token.RETURN)
	var val ast.Expr
	if p.tok.Kind != token.SEMI && p.tok.Kind != token.RBRACE && p.tok.Kind != token.EOF {
		val = p.parseExpr()
	}
	p.acceptSemi()
	return &ast.ReturnStmt{Tok: retTok, Value: val}
}

func (p *parser) parseExprStmt() *ast.ExprStmt {
	tok := p.tok
	x := p.parseExpr()
	p.acceptSemi()
	return &ast.ExprStmt{Tok: tok, X: x}
}
