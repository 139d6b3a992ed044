package symtable_test

import (
	"testing"

	"github.com/mna/sprout/lang/symtable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddLocalDenseIndices(t *testing.T) {
	tbl := symtable.New()
	tbl.EnterScope()
	a, err := tbl.AddLocal("a")
	require.NoError(t, err)
	b, err := tbl.AddLocal("b")
	require.NoError(t, err)
	assert.Equal(t, uint8(0), a)
	assert.Equal(t, uint8(1), b)
	assert.Equal(t, 2, tbl.ExitScope())
}

func TestAddLocalRedeclaration(t *testing.T) {
	tbl := symtable.New()
	tbl.EnterScope()
	_, err := tbl.AddLocal("x")
	require.NoError(t, err)
	_, err = tbl.AddLocal("x")
	assert.Error(t, err)
}

func TestLookupWalksOutward(t *testing.T) {
	tbl := symtable.New()
	tbl.EnterScope()
	_, err := tbl.AddLocal("outer")
	require.NoError(t, err)
	tbl.EnterScope()
	_, err = tbl.AddLocal("inner")
	require.NoError(t, err)

	b, ok := tbl.Lookup("outer")
	require.True(t, ok)
	assert.Equal(t, uint8(0), b.Index)

	b, ok = tbl.Lookup("inner")
	require.True(t, ok)
	assert.Equal(t, uint8(1), b.Index)

	_, ok = tbl.Lookup("missing")
	assert.False(t, ok)

	assert.Equal(t, 2, tbl.ExitScope())
	assert.Equal(t, 2, tbl.ExitScope())
}

func TestLookupLocalOnly(t *testing.T) {
	tbl := symtable.New()
	tbl.EnterScope()
	_, err := tbl.AddLocal("outer")
	require.NoError(t, err)
	tbl.EnterScope()

	_, ok := tbl.LookupLocal("outer")
	assert.False(t, ok)
	_, ok = tbl.Lookup("outer")
	assert.True(t, ok)
}
