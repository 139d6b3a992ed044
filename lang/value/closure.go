package value

import (
	"fmt"

	"github.com/mna/sprout/lang/compiler"
)

// Caller lets a native function invoke a sprout closure (for example
// Array.map calling back into the user-supplied mapping function) without
// lang/value depending on lang/machine, which implements it. This mirrors
// melon's (args_pointer, nargs, return_slot_index) host-call convention by
// giving native code the same re-entrant call capability the VM has,
// exposed here as a narrow interface rather than a concrete machine type.
type Caller interface {
	Call(callee Value, args []Value) (Value, error)
}

// NativeFunc is the signature of a core-library method or free function
// implemented in Go rather than in sprout. args[0] is the receiver for a
// method call.
type NativeFunc func(call Caller, args []Value) (Value, error)

// Closure is a callable value: either a compiled sprout function paired with
// its captured upvalues, or a native Go function. CALL treats both
// uniformly.
type Closure struct {
	Name     string
	Fn       *compiler.Function // nil for a native closure
	Upvalues []*Upvalue
	Native   NativeFunc
}

var _ Value = (*Closure)(nil)

func (c *Closure) String() string { return fmt.Sprintf("<function %s>", c.Name) }
func (c *Closure) Type() string   { return "closure" }
func (c *Closure) Truth() bool    { return true }

// IsNative reports whether this closure wraps a Go function rather than
// compiled bytecode.
func (c *Closure) IsNative() bool { return c.Fn == nil }
