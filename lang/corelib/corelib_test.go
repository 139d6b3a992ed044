package corelib_test

import (
	"bytes"
	"testing"

	"github.com/mna/sprout/lang/corelib"
	"github.com/mna/sprout/lang/resolver"
	"github.com/mna/sprout/lang/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type directCaller struct{}

func (directCaller) Call(callee value.Value, args []value.Value) (value.Value, error) {
	switch c := callee.(type) {
	case *value.Closure:
		return c.Native(directCaller{}, args)
	case *value.BoundMethod:
		return c.Method.Native(directCaller{}, append([]value.Value{c.Receiver}, args...))
	default:
		return nil, nil
	}
}

func TestGlobalsMatchResolverOrder(t *testing.T) {
	r := corelib.New(&bytes.Buffer{})
	globals := r.Globals()
	require.Len(t, globals, len(resolver.BuiltinGlobals))
	assert.Equal(t, "Object", globals[2].(*value.Class).Name)
	assert.Equal(t, "Array", globals[11].(*value.Class).Name)
}

func TestPrintlnWritesStringified(t *testing.T) {
	var buf bytes.Buffer
	r := corelib.New(&buf)
	_, err := r.Println.Native(directCaller{}, []value.Value{value.Int(42)})
	require.NoError(t, err)
	assert.Equal(t, "42\n", buf.String())
}

func TestArraySizeGetAdd(t *testing.T) {
	r := corelib.New(&bytes.Buffer{})
	a := value.NewArray([]value.Value{value.Int(1), value.Int(2)})

	sizeProp, ok := r.Array.Lookup("size")
	require.True(t, ok)
	got, err := sizeProp.Method.Native(directCaller{}, []value.Value{a})
	require.NoError(t, err)
	assert.Equal(t, value.Int(2), got)

	addProp, _ := r.Array.Lookup("add")
	_, err = addProp.Method.Native(directCaller{}, []value.Value{a, value.Int(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, a.Len())
}

func TestStringLength(t *testing.T) {
	r := corelib.New(&bytes.Buffer{})
	p, ok := r.String.Lookup("length")
	require.True(t, ok)
	got, err := p.Method.Native(directCaller{}, []value.Value{value.String("hello")})
	require.NoError(t, err)
	assert.Equal(t, value.Int(5), got)
}

func TestClassOfWalksInstance(t *testing.T) {
	r := corelib.New(&bytes.Buffer{})
	cls := value.NewClass("Point", r.Object, 0, 0)
	inst := value.NewInstance(cls)
	assert.Same(t, cls, r.ClassOf(inst))
	assert.Same(t, r.Int, r.ClassOf(value.Int(1)))
}
