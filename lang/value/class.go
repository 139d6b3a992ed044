package value

import (
	"fmt"

	"github.com/dolthub/swiss"
)

// PropertyKind distinguishes a class property that is a plain instance
// field (addressed by slot index) from one that is a method (addressed by
// invoking a closure), per spec 4.6's "accessor can be either an integer
// (direct slot) or a method closure" dispatch rule.
type PropertyKind int

const (
	PropSlot PropertyKind = iota
	PropMethod
	PropStaticSlot
)

// Property is one entry of a Class's name -> accessor table.
type Property struct {
	Kind   PropertyKind
	Slot   int      // valid for PropSlot and PropStaticSlot
	Method *Closure // valid for PropMethod
}

// Class is the runtime description of a class: name, instance-field count,
// static-variable storage, and a name -> Property table used to resolve
// field and method access dynamically (spec 6: "Classes own a method/field
// table").
//
// Lookup first checks the class's own table, then walks Super, mirroring
// spec.md's "the table maps property name to entry ... on miss it walks
// superclass pointers". sprout's grammar has no `extends` syntax for
// user-declared subclassing (see spec.md's grammar section); Super is
// always Object for a user class and nil for Object itself, so the walk in
// practice has depth at most one. It still exists as a real chain, not a
// special case, because every built-in class (Bool, Int, Array, ...) is
// wired into the same Object-rooted hierarchy (spec section 8).
type Class struct {
	Name            string
	Super           *Class
	NumInstanceVars int

	Props      *swiss.Map[string, Property]
	StaticVars []Value

	// Init is the constructor closure: either the user-declared method whose
	// name equals the class name, or a synthesized empty one.
	Init *Closure
}

var _ Value = (*Class)(nil)

// NewClass returns an empty class named name with the given super (nil for
// Object).
func NewClass(name string, super *Class, numInstanceVars, numStaticVars int) *Class {
	return &Class{
		Name:            name,
		Super:           super,
		NumInstanceVars: numInstanceVars,
		Props:           swiss.NewMap[string, Property](8),
		StaticVars:      make([]Value, numStaticVars),
	}
}

func (c *Class) String() string { return fmt.Sprintf("<class %s>", c.Name) }
func (c *Class) Type() string   { return "class" }
func (c *Class) Truth() bool    { return true }

// DefineField registers name as an instance field at the given slot.
func (c *Class) DefineField(name string, slot int) {
	c.Props.Put(name, Property{Kind: PropSlot, Slot: slot})
}

// DefineStatic registers name as a static variable at the given slot.
func (c *Class) DefineStatic(name string, slot int) {
	c.Props.Put(name, Property{Kind: PropStaticSlot, Slot: slot})
}

// DefineMethod registers name as a method, dispatched by invoking m.
func (c *Class) DefineMethod(name string, m *Closure) {
	c.Props.Put(name, Property{Kind: PropMethod, Method: m})
}

// Lookup resolves name against c's own table, then its superclass chain.
func (c *Class) Lookup(name string) (Property, bool) {
	for k := c; k != nil; k = k.Super {
		if p, ok := k.Props.Get(name); ok {
			return p, true
		}
	}
	return Property{}, false
}

// GetStatic reads a static variable by name, resolving through the
// superclass chain like any other property.
func (c *Class) GetStatic(name string) (Value, error) {
	p, ok := c.Lookup(name)
	if !ok || p.Kind != PropStaticSlot {
		return nil, fmt.Errorf("class %s has no static field %q", c.Name, name)
	}
	for k := c; k != nil; k = k.Super {
		if _, ok := k.Props.Get(name); ok {
			return k.StaticVars[p.Slot], nil
		}
	}
	return nil, fmt.Errorf("class %s has no static field %q", c.Name, name)
}

// SetStatic writes a static variable by name.
func (c *Class) SetStatic(name string, v Value) error {
	p, ok := c.Lookup(name)
	if !ok || p.Kind != PropStaticSlot {
		return fmt.Errorf("class %s has no static field %q", c.Name, name)
	}
	for k := c; k != nil; k = k.Super {
		if _, ok := k.Props.Get(name); ok {
			k.StaticVars[p.Slot] = v
			return nil
		}
	}
	return fmt.Errorf("class %s has no static field %q", c.Name, name)
}
