package scanner_test

import (
	"testing"

	"github.com/mna/sprout/lang/scanner"
	"github.com/mna/sprout/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) ([]token.Token, int) {
	t.Helper()
	var s scanner.Scanner
	var nerr int
	s.Init([]byte(src), func(line, col int, msg string) { nerr++ })
	var toks []token.Token
	for {
		tok := s.Scan()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return toks, nerr
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestScanKeywordsAndIdents(t *testing.T) {
	toks, nerr := scanAll(t, "var x func foo class Bar")
	require.Zero(t, nerr)
	assert.Equal(t, []token.Kind{
		token.VAR, token.IDENT, token.FUNC, token.IDENT, token.CLASS, token.IDENT, token.EOF,
	}, kinds(toks))
	assert.Equal(t, "x", toks[1].Lit)
	assert.Equal(t, "foo", toks[3].Lit)
}

func TestScanNumbers(t *testing.T) {
	toks, nerr := scanAll(t, "123 1.5 0")
	require.Zero(t, nerr)
	require.Len(t, toks, 4)
	assert.Equal(t, token.INT, toks[0].Kind)
	assert.Equal(t, "123", toks[0].Lit)
	assert.Equal(t, token.FLOAT, toks[1].Kind)
	assert.Equal(t, "1.5", toks[1].Lit)
	assert.Equal(t, token.INT, toks[2].Kind)
}

func TestScanStrings(t *testing.T) {
	toks, nerr := scanAll(t, `"hello" 'world' "a\nb"`)
	require.Zero(t, nerr)
	require.Len(t, toks, 4)
	assert.Equal(t, "hello", toks[0].Lit)
	assert.Equal(t, "world", toks[1].Lit)
	assert.Equal(t, "a\nb", toks[2].Lit)
}

func TestScanUnterminatedString(t *testing.T) {
	_, nerr := scanAll(t, `"hello`)
	assert.Equal(t, 1, nerr)
}

func TestScanPunctuationAndOperators(t *testing.T) {
	toks, nerr := scanAll(t, "()[]{}.,;+-*/% == != <= >= && || ! = += -= *= /=")
	require.Zero(t, nerr)
	assert.Equal(t, []token.Kind{
		token.LPAREN, token.RPAREN, token.LBRACK, token.RBRACK, token.LBRACE, token.RBRACE,
		token.DOT, token.COMMA, token.SEMI,
		token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT,
		token.EQEQ, token.BANGEQ, token.LE, token.GE, token.AMPAMP, token.PIPEPIPE, token.BANG,
		token.EQ, token.PLUSEQ, token.MINUSEQ, token.STAREQ, token.SLASHEQ,
		token.EOF,
	}, kinds(toks))
}

func TestScanComment(t *testing.T) {
	toks, nerr := scanAll(t, "var x # this is a comment\nvar y")
	require.Zero(t, nerr)
	assert.Equal(t, []token.Kind{
		token.VAR, token.IDENT, token.VAR, token.IDENT, token.EOF,
	}, kinds(toks))
}

func TestScanIllegalCharacter(t *testing.T) {
	_, nerr := scanAll(t, "@")
	assert.Equal(t, 1, nerr)
}

func TestScanLineCol(t *testing.T) {
	toks, nerr := scanAll(t, "var\nx")
	require.Zero(t, nerr)
	line, col := toks[0].Pos.LineCol()
	assert.Equal(t, 1, line)
	assert.Equal(t, 1, col)
	line, col = toks[1].Pos.LineCol()
	assert.Equal(t, 2, line)
	assert.Equal(t, 1, col)
}
