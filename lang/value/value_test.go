package value_test

import (
	"testing"

	"github.com/mna/sprout/lang/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimitiveTruth(t *testing.T) {
	assert.True(t, value.Bool(true).Truth())
	assert.False(t, value.Bool(false).Truth())
	assert.True(t, value.Int(1).Truth())
	assert.False(t, value.Int(0).Truth())
	assert.False(t, value.Null.Truth())
	assert.Equal(t, "null", value.Null.String())
}

func TestArrayIndex(t *testing.T) {
	a := value.NewArray([]value.Value{value.Int(1), value.Int(2), value.Int(3)})
	v, err := a.Index(1)
	require.NoError(t, err)
	assert.Equal(t, value.Int(2), v)

	_, err = a.Index(5)
	assert.Error(t, err)

	require.NoError(t, a.SetIndex(0, value.Int(9)))
	v, _ = a.Index(0)
	assert.Equal(t, value.Int(9), v)
}

func TestClassLookupWalksSuperclass(t *testing.T) {
	object := value.NewClass("Object", nil, 0, 0)
	object.DefineMethod("class", &value.Closure{Name: "class", Native: func(_ value.Caller, args []value.Value) (value.Value, error) {
		return args[0].(*value.Instance).Cls, nil
	}})

	point := value.NewClass("Point", object, 2, 0)
	point.DefineField("x", 0)
	point.DefineField("y", 1)

	_, ok := point.Lookup("class")
	require.True(t, ok, "Point must resolve Object's method through Super")

	p, ok := point.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, value.PropSlot, p.Kind)
	assert.Equal(t, 0, p.Slot)

	_, ok = point.Lookup("nope")
	assert.False(t, ok)
}

func TestClassStaticVars(t *testing.T) {
	c := value.NewClass("Counter", nil, 0, 1)
	c.DefineStatic("count", 0)

	require.NoError(t, c.SetStatic("count", value.Int(5)))
	v, err := c.GetStatic("count")
	require.NoError(t, err)
	assert.Equal(t, value.Int(5), v)

	_, err = c.GetStatic("missing")
	assert.Error(t, err)
}

func TestInstanceFieldsInitializedToNull(t *testing.T) {
	cls := value.NewClass("Point", nil, 2, 0)
	inst := value.NewInstance(cls)
	require.Len(t, inst.Fields, 2)
	assert.Equal(t, value.Null, inst.Fields[0])
}

func TestUpvalueOpenThenClose(t *testing.T) {
	stack := []value.Value{value.Int(1), value.Int(2), value.Int(3)}
	uv := value.NewOpenUpvalue(&stack, 1)
	assert.Equal(t, value.Int(2), uv.Get())

	stack[1] = value.Int(42)
	assert.Equal(t, value.Int(42), uv.Get(), "open upvalue observes mutation through the stack")

	uv.Close()
	stack[1] = value.Int(0)
	assert.Equal(t, value.Int(42), uv.Get(), "closed upvalue keeps its last observed value")
}

func TestClosureIsNative(t *testing.T) {
	native := &value.Closure{Name: "println", Native: func(_ value.Caller, args []value.Value) (value.Value, error) { return value.Null, nil }}
	assert.True(t, native.IsNative())

	compiled := &value.Closure{Name: "f"}
	assert.True(t, compiled.IsNative(), "a Closure with no Fn is considered native regardless of Upvalues")
}
