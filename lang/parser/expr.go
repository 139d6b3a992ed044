package parser

import (
	"strconv"

	"github.com/mna/sprout/lang/ast"
	"github.com/mna/sprout/lang/token"
)

// parseExpr parses a full expression, including assignment at the lowest
// precedence (spec 4.2 ladder: ASSIGN < OR < AND < COMPARE < TERM < FACTOR <
// UNARY < CALL).
func (p *parser) parseExpr() ast.Expr {
	return p.parseAssignExpr()
}

// compoundOps desugars `a OP= b` to `a = a OP b` at parse time (spec 4.2,
// 4.5); the LHS subtree is reused for the read, per design note 1 in spec 9
// (safe only because Var/Postfix-without-call reads are side-effect-free).
var compoundOps = map[token.Kind]token.Kind{
	token.PLUSEQ:  token.PLUS,
	token.MINUSEQ: token.MINUS,
	token.STAREQ:  token.STAR,
	token.SLASHEQ: token.SLASH,
}

func (p *parser) parseAssignExpr() ast.Expr {
	left := p.parseOrExpr()
	if !p.tok.Kind.IsAssignOp() {
		return left
	}

	eqTok := p.tok
	compound, isCompound := compoundOps[p.tok.Kind]
	p.advance()
	right := p.parseAssignExpr() // right-associative

	if !isAssignable(left) {
		line, col := eqTok.Pos.LineCol()
		p.error(line, col, "invalid assignment target")
		return left
	}

	if isCompound {
		right = &ast.BinaryExpr{Tok: eqTok, Op: compound, Left: readCopy(left), Right: right}
	}
	markAssignable(left)
	return &ast.BinaryExpr{Tok: eqTok, Op: token.EQ, Left: left, Right: right}
}

func isAssignable(e ast.Expr) bool {
	switch e := e.(type) {
	case *ast.VarExpr:
		return true
	case *ast.PostfixExpr:
		if len(e.Chain) == 0 {
			return false
		}
		last := e.Chain[len(e.Chain)-1]
		return last.Kind == ast.ChainAccess || last.Kind == ast.ChainSubscript
	default:
		return false
	}
}

// markAssignable flips IsAssign on the node that codegen must emit as a
// store rather than a load.
func markAssignable(e ast.Expr) {
	switch e := e.(type) {
	case *ast.VarExpr:
		e.IsAssign = true
	case *ast.PostfixExpr:
		e.IsAssign = true
	}
}

// readCopy returns a shallow copy of e suitable for a read occurrence,
// forcing IsAssign false regardless of e's current flag.
func readCopy(e ast.Expr) ast.Expr {
	switch e := e.(type) {
	case *ast.VarExpr:
		cp := *e
		cp.IsAssign = false
		return &cp
	case *ast.PostfixExpr:
		cp := *e
		cp.IsAssign = false
		return &cp
	default:
		return e
	}
}

func (p *parser) parseOrExpr() ast.Expr {
	left := p.parseAndExpr()
	for p.tok.Kind == token.PIPEPIPE {
		opTok := p.tok
		p.advance()
		right := p.parseAndExpr()
		left = &ast.BinaryExpr{Tok: opTok, Op: token.PIPEPIPE, Left: left, Right: right}
	}
	return left
}

func (p *parser) parseAndExpr() ast.Expr {
	left := p.parseCompareExpr()
	for p.tok.Kind == token.AMPAMP {
		opTok := p.tok
		p.advance()
		right := p.parseCompareExpr()
		left = &ast.BinaryExpr{Tok: opTok, Op: token.AMPAMP, Left: left, Right: right}
	}
	return left
}

func (p *parser) parseCompareExpr() ast.Expr {
	left := p.parseTermExpr()
	for isCompareOp(p.tok.Kind) {
		opTok := p.tok
		p.advance()
		right := p.parseTermExpr()
		left = &ast.BinaryExpr{Tok: opTok, Op: opTok.Kind, Left: left, Right: right}
	}
	return left
}

func isCompareOp(k token.Kind) bool {
	switch k {
	case token.LT, token.GT, token.LE, token.GE, token.EQEQ, token.BANGEQ:
		return true
	}
	return false
}

func (p *parser) parseTermExpr() ast.Expr {
	left := p.parseFactorExpr()
	for p.tok.Kind == token.PLUS || p.tok.Kind == token.MINUS {
		opTok := p.tok
		p.advance()
		right := p.parseFactorExpr()
		left = &ast.BinaryExpr{Tok: opTok, Op: opTok.Kind, Left: left, Right: right}
	}
	return left
}

func (p *parser) parseFactorExpr() ast.Expr {
	left := p.parseUnaryExpr()
	for p.tok.Kind == token.STAR || p.tok.Kind == token.SLASH || p.tok.Kind == token.PERCENT {
		opTok := p.tok
		p.advance()
		right := p.parseUnaryExpr()
		left = &ast.BinaryExpr{Tok: opTok, Op: opTok.Kind, Left: left, Right: right}
	}
	return left
}

func (p *parser) parseUnaryExpr() ast.Expr {
	if p.tok.Kind.IsUnop() {
		opTok := p.tok
		p.advance()
		right := p.parseUnaryExpr()
		return &ast.UnaryExpr{Tok: opTok, Op: opTok.Kind, Right: right}
	}
	return p.parseCallExpr()
}

// parseCallExpr parses a primary expression followed by zero or more
// postfix chain stages (spec 3: "an ordered sequence of chain operations
// {call(args), access(name), subscript(expr)}").
func (p *parser) parseCallExpr() ast.Expr {
	primary := p.parsePrimaryExpr()

	var chain []ast.ChainOp
	for {
		switch p.tok.Kind {
		case token.DOT:
			dotTok := p.tok
			p.advance()
			name := p.expect(token.IDENT)
			chain = append(chain, ast.ChainOp{Kind: ast.ChainAccess, Tok: dotTok, Name: name.Lit})
		case token.LBRACK:
			lbrack := p.tok
			p.advance()
			key := p.parseExpr()
			p.expect(token.RBRACK)
			chain = append(chain, ast.ChainOp{Kind: ast.ChainSubscript, Tok: lbrack, Key: key})
		case token.LPAREN:
			lparen := p.tok
			p.advance()
			var args []ast.Expr
			for p.tok.Kind != token.RPAREN && p.tok.Kind != token.EOF {
				args = append(args, p.parseExpr())
				if !p.accept(token.COMMA) {
					break
				}
			}
			p.expect(token.RPAREN)
			chain = append(chain, ast.ChainOp{Kind: ast.ChainCall, Tok: lparen, Args: args})
		default:
			if len(chain) == 0 {
				return primary
			}
			return &ast.PostfixExpr{Tok: primary.Token(), Target: primary, Chain: chain}
		}
	}
}

func (p *parser) parsePrimaryExpr() ast.Expr {
	switch {
	case p.tok.Kind == token.IDENT:
		tok := p.tok
		p.advance()
		return &ast.VarExpr{Tok: tok, Name: tok.Lit}

	case p.tok.Kind.IsAtom():
		return p.parseLiteralExpr()

	case p.tok.Kind == token.LPAREN:
		p.advance()
		e := p.parseExpr()
		p.expect(token.RPAREN)
		return e

	case p.tok.Kind == token.LBRACK:
		return p.parseListExpr()

	case p.tok.Kind == token.FUNC:
		fn := p.parseFuncDeclStmt(true)
		return &ast.FuncExpr{Tok: fn.Tok, Fn: fn}

	default:
		tok := p.tok
		line, col := tok.Pos.LineCol()
		p.error(line, col, "expected an expression, found "+tok.Kind.GoString())
		panic(errPanicMode)
	}
}

func (p *parser) parseLiteralExpr() *ast.LiteralExpr {
	tok := p.tok
	var val any
	switch tok.Kind {
	case token.INT:
		v, _ := strconv.ParseInt(tok.Lit, 10, 64)
		val = v
	case token.FLOAT:
		v, _ := strconv.ParseFloat(tok.Lit, 64)
		val = v
	case token.STRING:
		val = tok.Lit
	case token.TRUE:
		val = true
	case token.FALSE:
		val = false
	case token.NULL:
		val = nil
	}
	p.advance()
	return &ast.LiteralExpr{Tok: tok, Value: val}
}

func (p *parser) parseListExpr() *ast.ListExpr {
	lbrack := p.expect(token.LBRACK)
	var elems []ast.Expr
	for p.tok.Kind != token.RBRACK && p.tok.Kind != token.EOF {
		elems = append(elems, p.parseExpr())
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACK)
	return &ast.ListExpr{Tok: lbrack, Elems: elems}
}
