package machine

import (
	"fmt"

	"github.com/mna/sprout/lang/compiler"
	"github.com/mna/sprout/lang/value"
)

// binary implements spec 4.6's two-tier dispatch for a binary opcode: an
// inline fast path for Int/Float/String/Bool pairs (the common case, so
// fib(n) and similar hot loops never leave the switch), falling back to
// the operand's class operator method (spec 4.7: "$add, $sub, $mul, $div,
// $eqeq") for anything else, e.g. a user instance overloading +.
func (m *Machine) binary(op compiler.Opcode, x, y value.Value) (value.Value, error) {
	switch op {
	case compiler.AND:
		return value.Bool(x.Truth() && y.Truth()), nil
	case compiler.OR:
		return value.Bool(x.Truth() || y.Truth()), nil
	}

	if xi, ok := x.(value.Int); ok {
		if yi, ok := y.(value.Int); ok {
			return intBinary(op, xi, yi)
		}
		if yf, ok := y.(value.Float); ok {
			return floatBinary(op, value.Float(xi), yf)
		}
	}
	if xf, ok := x.(value.Float); ok {
		if yf, ok := toFloatFast(y); ok {
			return floatBinary(op, xf, yf)
		}
	}

	// Mixed-type "+" with a string operand concatenates via each value's own
	// stringification (scenario: `1 + " cat"` -> "1 cat"), matching spec
	// 4.7's stringify-on-demand rule rather than erroring on a type
	// mismatch.
	if op == compiler.ADD {
		if _, ok := x.(value.String); ok {
			return value.String(x.String() + m.Registry.Stringify(m, y)), nil
		}
		if _, ok := y.(value.String); ok {
			return value.String(m.Registry.Stringify(m, x) + y.String()), nil
		}
	}

	if op == compiler.EQ || op == compiler.NEQ {
		eq := structurallyEqual(x, y)
		if op == compiler.NEQ {
			eq = !eq
		}
		return value.Bool(eq), nil
	}

	return m.dispatchOperator(op, x, y)
}

func toFloatFast(v value.Value) (value.Float, bool) {
	switch v := v.(type) {
	case value.Float:
		return v, true
	case value.Int:
		return value.Float(v), true
	default:
		return 0, false
	}
}

func intBinary(op compiler.Opcode, x, y value.Int) (value.Value, error) {
	switch op {
	case compiler.ADD:
		return x + y, nil
	case compiler.SUB:
		return x - y, nil
	case compiler.MUL:
		return x * y, nil
	case compiler.DIV:
		if y == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return x / y, nil
	case compiler.MOD:
		if y == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return x % y, nil
	case compiler.LT:
		return value.Bool(x < y), nil
	case compiler.GT:
		return value.Bool(x > y), nil
	case compiler.LTE:
		return value.Bool(x <= y), nil
	case compiler.GTE:
		return value.Bool(x >= y), nil
	case compiler.EQ:
		return value.Bool(x == y), nil
	case compiler.NEQ:
		return value.Bool(x != y), nil
	default:
		return nil, fmt.Errorf("unsupported operator %s on int", op)
	}
}

func floatBinary(op compiler.Opcode, x, y value.Float) (value.Value, error) {
	switch op {
	case compiler.ADD:
		return x + y, nil
	case compiler.SUB:
		return x - y, nil
	case compiler.MUL:
		return x * y, nil
	case compiler.DIV:
		return x / y, nil
	case compiler.LT:
		return value.Bool(x < y), nil
	case compiler.GT:
		return value.Bool(x > y), nil
	case compiler.LTE:
		return value.Bool(x <= y), nil
	case compiler.GTE:
		return value.Bool(x >= y), nil
	case compiler.EQ:
		return value.Bool(x == y), nil
	case compiler.NEQ:
		return value.Bool(x != y), nil
	default:
		return nil, fmt.Errorf("unsupported operator %s on float", op)
	}
}

// structurallyEqual backs == and != for string/bool/null and reference
// types not covered by the numeric fast path: strings and bools compare
// by value, everything else (arrays, instances, closures) compares by
// identity, per spec 6 ("arrays and instances are reference types"). Go's
// == on two Value interface values already does exactly this: value-equal
// for the comparable concrete types (String, Bool, nullType), pointer-
// identity for the rest (*Array, *Instance, *Closure, *BoundMethod,
// *Class).
func structurallyEqual(x, y value.Value) bool {
	switch x := x.(type) {
	case value.String:
		y, ok := y.(value.String)
		return ok && x == y
	case value.Bool:
		y, ok := y.(value.Bool)
		return ok && x == y
	default:
		return x == y
	}
}

// operatorMethod maps a binary opcode to spec 4.7's operator-method naming
// convention used as the fallback when neither operand is a primitive
// number/string pair.
var operatorMethod = map[compiler.Opcode]string{
	compiler.ADD: "$add", compiler.SUB: "$sub", compiler.MUL: "$mul", compiler.DIV: "$div",
	compiler.MOD: "$mod", compiler.LT: "$lt", compiler.GT: "$gt", compiler.LTE: "$lte",
	compiler.GTE: "$gte", compiler.EQ: "$eqeq", compiler.NEQ: "$neq",
}

func (m *Machine) dispatchOperator(op compiler.Opcode, x, y value.Value) (value.Value, error) {
	name, ok := operatorMethod[op]
	if !ok {
		return nil, fmt.Errorf("unsupported operator %s", op)
	}
	cls := m.Registry.ClassOf(x)
	p, ok := cls.Lookup(name)
	if !ok || p.Kind != value.PropMethod {
		return nil, fmt.Errorf("%s has no operator method %s", value.TypeName(x), name)
	}
	return m.call(p.Method, []value.Value{x, y})
}

func negate(v value.Value) (value.Value, error) {
	switch v := v.(type) {
	case value.Int:
		return -v, nil
	case value.Float:
		return -v, nil
	default:
		return nil, fmt.Errorf("unary - unsupported on %s", value.TypeName(v))
	}
}

// loadField implements LOADF: resolve name against obj's class, walking
// superclasses (spec 4.6). A PropSlot access reads the instance's field
// vector directly; a PropMethod access, when keep is set (an immediately
// following CALL), yields a *value.BoundMethod packaging obj together with
// the method closure so CALL's single-callee arithmetic still works, per
// compiler.go's emitMethodCall0/compileChainOp sequencing; otherwise the
// bare method closure is returned unbound.
func (m *Machine) loadField(obj value.Value, name string, keep bool) (value.Value, error) {
	switch obj := obj.(type) {
	case *value.Instance:
		p, ok := obj.Cls.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%s has no field or method %q", obj.Cls.Name, name)
		}
		switch p.Kind {
		case value.PropSlot:
			return obj.Fields[p.Slot], nil
		case value.PropMethod:
			if keep {
				return &value.BoundMethod{Receiver: obj, Method: p.Method}, nil
			}
			return p.Method, nil
		default:
			return nil, fmt.Errorf("%s: unexpected static access on instance", name)
		}
	case *value.Class:
		p, ok := obj.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("class %s has no static field or method %q", obj.Name, name)
		}
		switch p.Kind {
		case value.PropStaticSlot:
			return obj.GetStatic(name)
		case value.PropMethod:
			if keep {
				return &value.BoundMethod{Receiver: obj, Method: p.Method}, nil
			}
			return p.Method, nil
		default:
			return nil, fmt.Errorf("%s: unexpected instance-field access on class", name)
		}
	default:
		cls := m.Registry.ClassOf(obj)
		p, ok := cls.Lookup(name)
		if !ok || p.Kind != value.PropMethod {
			return nil, fmt.Errorf("%s has no method %q", value.TypeName(obj), name)
		}
		if keep {
			return &value.BoundMethod{Receiver: obj, Method: p.Method}, nil
		}
		return p.Method, nil
	}
}

// storeField implements STOREF: only an instance's own slot or a class's
// own static slot can be assigned; assigning an unknown name or a method
// name is an error.
func (m *Machine) storeField(obj value.Value, name string, v value.Value) error {
	switch obj := obj.(type) {
	case *value.Instance:
		p, ok := obj.Cls.Lookup(name)
		if !ok || p.Kind != value.PropSlot {
			return fmt.Errorf("%s has no field %q", obj.Cls.Name, name)
		}
		obj.Fields[p.Slot] = v
		return nil
	case *value.Class:
		return obj.SetStatic(name, v)
	default:
		return fmt.Errorf("cannot set field %q on %s", name, value.TypeName(obj))
	}
}

// loadIndex implements LOADA. Arrays are the only built-in indexable type;
// a user instance defining $loadat (spec 4.7's array accessor protocol)
// can opt into the same subscript syntax.
func (m *Machine) loadIndex(obj, key value.Value) (value.Value, error) {
	switch obj := obj.(type) {
	case *value.Array:
		i, ok := key.(value.Int)
		if !ok {
			return nil, fmt.Errorf("array index must be an int, got %s", value.TypeName(key))
		}
		return obj.Index(int(i))
	case *value.Instance:
		p, ok := obj.Cls.Lookup("$loadat")
		if !ok || p.Kind != value.PropMethod {
			return nil, fmt.Errorf("%s is not indexable", obj.Cls.Name)
		}
		return m.call(p.Method, []value.Value{obj, key})
	default:
		return nil, fmt.Errorf("%s is not indexable", value.TypeName(obj))
	}
}

// storeIndex implements STOREA, the $storeat counterpart of loadIndex.
func (m *Machine) storeIndex(obj, key, v value.Value) error {
	switch obj := obj.(type) {
	case *value.Array:
		i, ok := key.(value.Int)
		if !ok {
			return fmt.Errorf("array index must be an int, got %s", value.TypeName(key))
		}
		return obj.SetIndex(int(i), v)
	case *value.Instance:
		p, ok := obj.Cls.Lookup("$storeat")
		if !ok || p.Kind != value.PropMethod {
			return fmt.Errorf("%s does not support index assignment", obj.Cls.Name)
		}
		_, err := m.call(p.Method, []value.Value{obj, key, v})
		return err
	default:
		return fmt.Errorf("%s does not support index assignment", value.TypeName(obj))
	}
}
