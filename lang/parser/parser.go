// Package parser implements the parser that transforms sprout source code
// into an abstract syntax tree (AST), via recursive-descent precedence
// climbing with one function per precedence level (see expr.go); there is
// no per-token table of prefix/infix handlers.
package parser

import (
	"errors"
	"strings"

	"github.com/mna/sprout/internal/diag"
	"github.com/mna/sprout/lang/ast"
	"github.com/mna/sprout/lang/scanner"
	"github.com/mna/sprout/lang/token"
)

// Parse parses a complete source buffer into a root *ast.BlockStmt
// representing the program. The returned error, if non-nil, is a
// diag.ErrorList (exposing Unwrap() []error); the returned block is never
// nil even when errors were reported, so later passes can still walk it
// (subtrees affected by a parse error are ast.BadStmt/ast.BadExpr nodes,
// per spec 4.2).
func Parse(src []byte) (*ast.BlockStmt, error) {
	var p parser
	p.init(src)
	prog := p.parseStmtsUntil(token.EOF)
	p.errors.Sort()
	return &ast.BlockStmt{Tok: token.Token{Kind: token.EOF}, Stmts: prog}, p.errors.Err()
}

// parser holds all mutable state for a single parse of one source buffer.
type parser struct {
	scanner scanner.Scanner
	errors  diag.ErrorList

	tok token.Token // current token
}

func (p *parser) init(src []byte) {
	p.scanner.Init(src, func(line, col int, msg string) {
		diag.Add(&p.errors, line, col, msg)
	})
	p.advance()
}

func (p *parser) advance() {
	p.tok = p.scanner.Scan()
}

// errPanicMode is recovered at the nearest statement boundary, turning the
// in-progress subtree into a BadStmt (spec 4.2: "the parser records the
// error, consumes the offending token, and continues").
var errPanicMode = errors.New("parser: panic mode")

// expect consumes the current token if it is one of kinds and returns its
// Token; otherwise it records an error and panics with errPanicMode.
func (p *parser) expect(kinds ...token.Kind) token.Token {
	for _, k := range kinds {
		if p.tok.Kind == k {
			tok := p.tok
			p.advance()
			return tok
		}
	}
	p.errorExpected(kinds)
	panic(errPanicMode)
}

// accept consumes and returns true if the current token is kind.
func (p *parser) accept(kind token.Kind) bool {
	if p.tok.Kind == kind {
		p.advance()
		return true
	}
	return false
}

// acceptSemi consumes an optional trailing ';' (spec 4.2: "Trailing ';' is
// optional").
func (p *parser) acceptSemi() { p.accept(token.SEMI) }

func (p *parser) error(line, col int, msg string) {
	diag.Add(&p.errors, line, col, msg)
}

func (p *parser) errorExpected(kinds []token.Kind) {
	line, col := p.tok.Pos.LineCol()
	var names []string
	for _, k := range kinds {
		names = append(names, k.GoString())
	}
	found := p.tok.Lit
	if found == "" {
		found = p.tok.Kind.GoString()
	}
	msg := "expected " + strings.Join(names, " or ") + ", found " + found
	p.error(line, col, msg)
}
