package value

import "fmt"

// BoundMethod is the transient value LOADF produces when an access is
// immediately followed by a call (spec 4.5's "method call is detected as
// access immediately followed by call", compiler.go's LOADF keep=1): it
// packages the receiver together with the unbound method closure so that
// CALL, which only ever sees a single callee value, can still supply the
// receiver as the method's implicit first argument.
type BoundMethod struct {
	Receiver Value
	Method   *Closure
}

var _ Value = (*BoundMethod)(nil)

func (b *BoundMethod) String() string { return fmt.Sprintf("<bound method %s>", b.Method.Name) }
func (b *BoundMethod) Type() string   { return "closure" }
func (b *BoundMethod) Truth() bool    { return true }
