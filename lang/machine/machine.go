// Package machine implements the stack-based virtual machine of spec 4.6:
// it executes the bytecode lang/compiler emits, managing a call stack, a
// growing value stack with relocatable upvalue bindings, and dynamic
// dispatch against the class hierarchy lang/corelib builds.
//
// The fetch-decode-execute loop, the frame shape, the growable value
// stack, and the open-upvalue close-on-return logic are all grounded on
// melon's vm.c (original_source/src/vm.c): callstack_push/callstack_ret,
// capture_upvalue/close_upvalues, and the main switch over every opcode.
// The outer shape — a Machine/Thread-like type owning the stack plus a
// recursive call() that pushes a frame, runs a local dispatch loop until
// the frame returns, and pops it — follows the teacher's
// lang/machine/machine.go (run()) and thread.go (Thread.callStack) more
// closely than melon's single flat loop, because Go's own call stack
// makes nested re-entrant calls (a native calling back into a sprout
// closure, e.g. Array.map) trivial to express this way, exactly as
// impl.go's Call does for the teacher.
package machine

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/slices"

	"github.com/mna/sprout/lang/compiler"
	"github.com/mna/sprout/lang/corelib"
	"github.com/mna/sprout/lang/value"
)

// Machine executes one compiled Program. It owns the value stack, the call
// stack, the global table and the open-upvalue list, per spec 4.7's
// "shared-resource policy: the value stack, call stack, global table, and
// open-upvalue list are owned solely by the VM instance."
type Machine struct {
	Registry *corelib.Registry
	Stdout   io.Writer

	globals []value.Value
	stack   []value.Value
	frames  []frame

	// openUpvalues is kept sorted by Index ascending, mirroring melon's
	// sorted open-upvalue list so closing "from address A" is a simple
	// prefix/suffix scan (original_source/src/vm.c: close_upvalues).
	openUpvalues []*value.Upvalue

	constCache map[*compiler.Function][]value.Value
	classCache map[*compiler.Class]*value.Class
}

// New returns a Machine with a freshly built core-library registry. If out
// is nil, os.Stdout is used for print/println.
func New(out io.Writer) *Machine {
	if out == nil {
		out = os.Stdout
	}
	return &Machine{
		Registry:   corelib.New(out),
		Stdout:     out,
		constCache: make(map[*compiler.Function][]value.Value),
		classCache: make(map[*compiler.Class]*value.Class),
	}
}

// Run executes prog's top-level script to completion and returns Null once
// HALT is reached.
func (m *Machine) Run(prog *compiler.Program) (value.Value, error) {
	m.globals = m.Registry.Globals()
	closure := &value.Closure{Name: prog.Main.Name, Fn: prog.Main}
	return m.call(closure, nil)
}

// Call implements value.Caller, letting native functions (Array.map, ...)
// invoke a sprout closure or bound method.
func (m *Machine) Call(callee value.Value, args []value.Value) (value.Value, error) {
	return m.call(callee, args)
}

func (m *Machine) call(callee value.Value, args []value.Value) (value.Value, error) {
	switch c := callee.(type) {
	case *value.Closure:
		if c.IsNative() {
			return c.Native(m, args)
		}
		return m.runClosure(c, args)
	case *value.BoundMethod:
		full := make([]value.Value, 0, len(args)+1)
		full = append(full, c.Receiver)
		full = append(full, args...)
		return m.call(c.Method, full)
	case *value.Class:
		return m.construct(c, args)
	default:
		return nil, fmt.Errorf("attempt to call a non-callable value of type %s", value.TypeName(callee))
	}
}

// construct implements spec 4.5's constructor protocol: CALL on a class
// allocates an instance, looks up $init, invokes it with the instance as
// the implicit first argument, and returns the instance (the $init return
// value is discarded).
//
// Classes with no $init — every built-in primitive class (spec 4.7:
// "Constructors on metaclasses (Array.$new)") — have nothing to
// initialize an *Instance into, so CALL on one of those dispatches to
// its $new method instead, called directly with args (no receiver
// prepended, since there is no instance yet: $new itself builds and
// returns the value). A class with neither $init nor $new falls back to
// a blank instance.
func (m *Machine) construct(cls *value.Class, args []value.Value) (value.Value, error) {
	if cls.Init == nil {
		if p, ok := cls.Lookup("$new"); ok && p.Kind == value.PropMethod {
			return m.call(p.Method, args)
		}
		return value.NewInstance(cls), nil
	}
	inst := value.NewInstance(cls)
	full := make([]value.Value, 0, len(args)+1)
	full = append(full, inst)
	full = append(full, args...)
	if _, err := m.call(cls.Init, full); err != nil {
		return nil, err
	}
	return inst, nil
}

// runClosure pushes a new frame for c, executes its bytecode to
// completion, pops the frame (closing any upvalues it handed out along
// the way) and returns the RETURN/RET0 result.
func (m *Machine) runClosure(c *value.Closure, args []value.Value) (value.Value, error) {
	fn := c.Fn
	bp := len(m.stack)
	for i := 0; i < fn.NumLocals; i++ {
		if i < len(args) {
			m.stack = append(m.stack, args[i])
		} else {
			m.stack = append(m.stack, value.Null)
		}
	}
	m.frames = append(m.frames, frame{closure: c, bp: bp})

	result, err := m.runLoop()

	m.closeUpvaluesFrom(bp)
	m.stack = m.stack[:bp]
	m.frames = m.frames[:len(m.frames)-1]
	return result, err
}

// runLoop executes the bytecode of the top frame until it returns or
// halts. It is the fetch-decode-execute core described by spec 4.6,
// grounded on melon's vm_run switch.
func (m *Machine) runLoop() (value.Value, error) {
	fr := &m.frames[len(m.frames)-1]
	fn := fr.closure.Fn
	code := fn.Code
	consts := m.constsFor(fn)

	for {
		op := compiler.Opcode(code[fr.ip])
		fr.ip++

		switch op {
		case compiler.LOADL:
			idx := code[fr.ip]
			fr.ip++
			m.push(m.stack[fr.bp+int(idx)])

		case compiler.LOADI:
			n := code[fr.ip]
			fr.ip++
			m.push(value.Int(n))

		case compiler.LOADK:
			idx := code[fr.ip]
			fr.ip++
			m.push(consts[idx])

		case compiler.LOADU:
			idx := code[fr.ip]
			fr.ip++
			m.push(fr.closure.Upvalues[idx].Get())

		case compiler.LOADG:
			idx := code[fr.ip]
			fr.ip++
			m.push(m.globals[idx])

		case compiler.LOADF:
			keep := code[fr.ip]
			fr.ip++
			name := m.pop().(value.String)
			obj := m.pop()
			v, err := m.loadField(obj, string(name), keep != 0)
			if err != nil {
				return nil, err
			}
			m.push(v)

		case compiler.LOADA:
			key := m.pop()
			obj := m.pop()
			v, err := m.loadIndex(obj, key)
			if err != nil {
				return nil, err
			}
			m.push(v)

		case compiler.STOREL:
			idx := code[fr.ip]
			fr.ip++
			m.stack[fr.bp+int(idx)] = m.top()

		case compiler.STOREU:
			idx := code[fr.ip]
			fr.ip++
			fr.closure.Upvalues[idx].Set(m.top())

		case compiler.STOREG:
			idx := code[fr.ip]
			fr.ip++
			m.globals[idx] = m.top()

		case compiler.STOREF:
			name := m.pop().(value.String)
			obj := m.pop()
			if err := m.storeField(obj, string(name), m.top()); err != nil {
				return nil, err
			}

		case compiler.STOREA:
			key := m.pop()
			obj := m.pop()
			if err := m.storeIndex(obj, key, m.top()); err != nil {
				return nil, err
			}

		case compiler.CLOSURE:
			proto := m.pop().(*value.Closure)
			m.push(&value.Closure{Name: proto.Name, Fn: proto.Fn, Upvalues: make([]*value.Upvalue, 0, len(proto.Fn.Upvalues))})

		case compiler.NEWUP:
			isDirect := code[fr.ip]
			idx := code[fr.ip+1]
			fr.ip += 2
			clo := m.top().(*value.Closure)
			var uv *value.Upvalue
			if isDirect != 0 {
				uv = m.captureUpvalue(fr.bp + int(idx))
			} else {
				uv = fr.closure.Upvalues[idx]
			}
			clo.Upvalues = append(clo.Upvalues, uv)

		case compiler.CALL:
			nargs := int(code[fr.ip])
			fr.ip++
			args := append([]value.Value(nil), m.stack[len(m.stack)-nargs:]...)
			m.stack = m.stack[:len(m.stack)-nargs]
			callee := m.pop()
			result, err := m.call(callee, args)
			if err != nil {
				return nil, err
			}
			m.push(result)
			// calling back into runClosure may have grown/shrunk m.stack's
			// backing array or m.frames; refresh our local aliases.
			fr = &m.frames[len(m.frames)-1]
			fn = fr.closure.Fn
			code = fn.Code
			consts = m.constsFor(fn)

		case compiler.JMP:
			// off (patchJump) is measured from the operand byte itself, so the
			// target is simply fr.ip (still pointing at that byte) plus off.
			off := code[fr.ip]
			fr.ip += int(off)

		case compiler.LOOP:
			off := code[fr.ip]
			fr.ip = fr.ip + 1 - int(off)

		case compiler.JIF:
			off := code[fr.ip]
			if !m.pop().Truth() {
				fr.ip += int(off)
			} else {
				fr.ip++
			}

		case compiler.RETURN:
			return m.pop(), nil

		case compiler.RET0:
			return value.Null, nil

		case compiler.NOT:
			m.push(value.Bool(!m.pop().Truth()))

		case compiler.NEG:
			v, err := negate(m.pop())
			if err != nil {
				return nil, err
			}
			m.push(v)

		case compiler.ADD, compiler.SUB, compiler.MUL, compiler.DIV, compiler.MOD,
			compiler.AND, compiler.OR, compiler.LT, compiler.GT, compiler.LTE, compiler.GTE,
			compiler.EQ, compiler.NEQ:
			y := m.pop()
			x := m.pop()
			v, err := m.binary(op, x, y)
			if err != nil {
				return nil, err
			}
			m.push(v)

		case compiler.NEWARR:
			n := int(code[fr.ip])
			fr.ip++
			elems := append([]value.Value(nil), m.stack[len(m.stack)-n:]...)
			m.stack = m.stack[:len(m.stack)-n]
			m.push(value.NewArray(elems))

		case compiler.HALT:
			return value.Null, nil

		default:
			return nil, fmt.Errorf("machine: unimplemented opcode %s", op)
		}
	}
}

func (m *Machine) push(v value.Value) { m.stack = append(m.stack, v) }

func (m *Machine) pop() value.Value {
	n := len(m.stack) - 1
	v := m.stack[n]
	m.stack = m.stack[:n]
	return v
}

func (m *Machine) top() value.Value { return m.stack[len(m.stack)-1] }

// constsFor returns fn's constant pool converted to runtime values,
// building and caching it on first use (spec's constant pool is compiled
// once and reused for the program's whole lifetime).
func (m *Machine) constsFor(fn *compiler.Function) []value.Value {
	if cs, ok := m.constCache[fn]; ok {
		return cs
	}
	cs := make([]value.Value, len(fn.Consts))
	m.constCache[fn] = cs // register before recursing, in case of mutual references
	for i, c := range fn.Consts {
		cs[i] = m.loadConst(c)
	}
	return cs
}

func (m *Machine) loadConst(c any) value.Value {
	switch c := c.(type) {
	case int64:
		return value.Int(c)
	case float64:
		return value.Float(c)
	case string:
		return value.String(c)
	case bool:
		return value.Bool(c)
	case nil:
		return value.Null
	case *compiler.Function:
		// A bare prototype: CLOSURE (not LOADK alone) turns this into a real
		// callable closure with its own Upvalues slice.
		return &value.Closure{Name: c.Name, Fn: c}
	case *compiler.Class:
		return m.loadClass(c)
	default:
		panic(fmt.Sprintf("machine: unexpected constant %T", c))
	}
}

func (m *Machine) loadClass(cc *compiler.Class) *value.Class {
	if c, ok := m.classCache[cc]; ok {
		return c
	}
	c := value.NewClass(cc.Name, m.Registry.Object, cc.NumInstanceVars, cc.NumStaticVars)
	m.classCache[cc] = c
	for _, f := range cc.InstanceFields {
		c.DefineField(f.Name, f.Slot)
	}
	for _, f := range cc.StaticFields {
		c.DefineStatic(f.Name, f.Slot)
	}
	for name, mfn := range cc.Methods {
		clo := &value.Closure{Name: mfn.Name, Fn: mfn}
		c.DefineMethod(name, clo)
		if mfn == cc.Init {
			c.Init = clo
		}
	}
	return c
}

// captureUpvalue returns the open upvalue aliasing stack slot idx,
// reusing an existing one if the same slot was already captured by an
// earlier closure (melon's capture_upvalue: "walk the sorted list by
// pointer, insert or find").
func (m *Machine) captureUpvalue(idx int) *value.Upvalue {
	i, found := slices.BinarySearchFunc(m.openUpvalues, idx, func(u *value.Upvalue, idx int) int { return u.Index() - idx })
	if found {
		return m.openUpvalues[i]
	}
	uv := value.NewOpenUpvalue(&m.stack, idx)
	m.openUpvalues = slices.Insert(m.openUpvalues, i, uv)
	return uv
}

// closeUpvaluesFrom closes every open upvalue at or above slot bp and
// drops it from the open list, mirroring melon's close_upvalues("from
// address A"): called when a frame returns, since every local at or above
// its base is going out of scope.
func (m *Machine) closeUpvaluesFrom(bp int) {
	i, _ := slices.BinarySearchFunc(m.openUpvalues, bp, func(u *value.Upvalue, bp int) int { return u.Index() - bp })
	for _, uv := range m.openUpvalues[i:] {
		uv.Close()
	}
	m.openUpvalues = m.openUpvalues[:i]
}
