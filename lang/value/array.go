package value

import "strings"

// Array is a mutable, ordered sequence of values, the value produced by a
// list literal ([1, 2, 3]) and by NEWARR.
type Array struct {
	Elems []Value
}

// NewArray returns an array wrapping elems. Callers should not subsequently
// mutate elems directly.
func NewArray(elems []Value) *Array { return &Array{Elems: elems} }

func (a *Array) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, e := range a.Elems {
		if i > 0 {
			b.WriteString(", ")
		}
		if s, ok := e.(String); ok {
			b.WriteByte('"')
			b.WriteString(string(s))
			b.WriteByte('"')
		} else {
			b.WriteString(e.String())
		}
	}
	b.WriteByte(']')
	return b.String()
}

func (a *Array) Type() string { return "array" }
func (a *Array) Truth() bool  { return len(a.Elems) > 0 }
func (a *Array) Len() int     { return len(a.Elems) }

func (a *Array) Index(i int) (Value, error) {
	if i < 0 || i >= len(a.Elems) {
		return nil, indexError(a, i)
	}
	return a.Elems[i], nil
}

func (a *Array) SetIndex(i int, v Value) error {
	if i < 0 || i >= len(a.Elems) {
		return indexError(a, i)
	}
	a.Elems[i] = v
	return nil
}

var _ Value = (*Array)(nil)
