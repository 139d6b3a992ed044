package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "identifier", IDENT.String())
	assert.Equal(t, "+", PLUS.String())
	assert.Equal(t, "var", VAR.String())
}

func TestKindGoString(t *testing.T) {
	assert.Equal(t, "'+'", PLUS.GoString())
	assert.Equal(t, "identifier", IDENT.GoString())
}

func TestIsUnop(t *testing.T) {
	assert.True(t, MINUS.IsUnop())
	assert.True(t, BANG.IsUnop())
	assert.False(t, PLUS.IsUnop())
}

func TestIsBinop(t *testing.T) {
	assert.True(t, PLUS.IsBinop())
	assert.True(t, AMPAMP.IsBinop())
	assert.False(t, EQ.IsBinop())
}

func TestKeywords(t *testing.T) {
	for word, kind := range Keywords {
		assert.Equal(t, word, kind.String())
	}
}
