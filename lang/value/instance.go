package value

import "fmt"

// Instance is an object created by calling a Class: a class pointer plus a
// flat field vector of length Class.NumInstanceVars (spec 6: "instances
// hold a flat field vector"). Field access at the bytecode level (LOADF /
// STOREF) is always by name; the name is resolved against Cls's property
// table at dispatch time, per spec 4.6.
type Instance struct {
	Cls    *Class
	Fields []Value
}

var _ Value = (*Instance)(nil)

// NewInstance allocates an instance of cls with all fields initialized to
// Null.
func NewInstance(cls *Class) *Instance {
	fields := make([]Value, cls.NumInstanceVars)
	for i := range fields {
		fields[i] = Null
	}
	return &Instance{Cls: cls, Fields: fields}
}

func (i *Instance) String() string { return fmt.Sprintf("<instance of %s>", i.Cls.Name) }
func (i *Instance) Type() string   { return "instance" }
func (i *Instance) Truth() bool    { return true }
