// Package value defines the runtime representation of every value the
// machine can manipulate: the tagged union described by spec 6 (bool, int,
// float, null, string, closure, class, instance, array).
//
// Unlike the teacher's lang/types package — which models values through a
// rich set of optional capability interfaces (Indexable, HasBinary,
// HasAttrs, ...) so that a Starlark-like language can host many unrelated
// value kinds — this language has a closed, fixed value set, so a single
// Value interface plus one concrete Go type per kind is enough. Dispatch by
// class (walking the superclass chain to find a field slot or a method) is
// implemented here on Class/Instance; the fallback logic that turns a
// dispatch miss into an operator invocation lives in lang/machine, because
// invoking a user-defined method requires the VM's call machinery, which
// this package deliberately does not depend on.
package value

import (
	"fmt"
	"strconv"
)

// Value is implemented by every runtime value.
type Value interface {
	String() string
	Type() string
	Truth() bool
}

// Bool is the boolean value type.
type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (b Bool) Type() string  { return "bool" }
func (b Bool) Truth() bool   { return bool(b) }

// Int is a 64-bit signed integer value.
type Int int64

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }
func (i Int) Type() string   { return "int" }
func (i Int) Truth() bool    { return i != 0 }

// Float is a 64-bit floating point value.
type Float float64

func (f Float) String() string { return strconv.FormatFloat(float64(f), 'f', 6, 64) }
func (f Float) Type() string   { return "float" }
func (f Float) Truth() bool    { return f != 0 }

// String is an immutable text value.
type String string

func (s String) String() string { return string(s) }
func (s String) Type() string   { return "string" }
func (s String) Truth() bool    { return len(s) > 0 }

// nullType is the type of the single Null value. It is represented as a
// distinct numeric type, not struct{}, so that Null can be a constant, per
// the idiom in the teacher's machine.NilType.
type nullType byte

// Null is the language's singleton null value.
const Null = nullType(0)

func (nullType) String() string { return "null" }
func (nullType) Type() string   { return "null" }
func (nullType) Truth() bool    { return false }

var (
	_ Value = Bool(false)
	_ Value = Int(0)
	_ Value = Float(0)
	_ Value = String("")
	_ Value = Null
)

// TypeName returns a human-readable description of v's type, used in error
// messages when an operation is attempted on a mismatched pair of values.
func TypeName(v Value) string {
	if v == nil {
		return "<nil>"
	}
	return v.Type()
}

func typeError(op string, v Value) error {
	return fmt.Errorf("%s: unsupported operand type: %s", op, TypeName(v))
}
