package compiler_test

import (
	"strings"
	"testing"

	"github.com/mna/sprout/lang/compiler"
	"github.com/mna/sprout/lang/parser"
	"github.com/mna/sprout/lang/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCompile(t *testing.T, src string) *compiler.Program {
	t.Helper()
	prog, err := parser.Parse([]byte(src))
	require.NoError(t, err)
	rootLocals, err := resolver.Resolve(prog)
	require.NoError(t, err)
	p, err := compiler.Compile(prog, rootLocals)
	require.NoError(t, err)
	return p
}

func TestCompileGlobalVarDecl(t *testing.T) {
	p := mustCompile(t, "var x = 5;")
	// x follows the 12 pre-populated builtins (see resolver.BuiltinGlobals)
	want := []byte{byte(compiler.LOADI), 5, byte(compiler.STOREG), 12, byte(compiler.HALT)}
	assert.Equal(t, want, p.Main.Code)
}

func TestCompileIfElseJumpTargets(t *testing.T) {
	p := mustCompile(t, "if (true) { var a = 1; } else { var b = 2; }")
	want := []byte{
		byte(compiler.LOADK), 0,
		byte(compiler.JIF), 7,
		byte(compiler.LOADI), 1,
		byte(compiler.STOREL), 0,
		byte(compiler.JMP), 5,
		byte(compiler.LOADI), 2,
		byte(compiler.STOREL), 1,
		byte(compiler.HALT),
	}
	assert.Equal(t, want, p.Main.Code)
	require.Len(t, p.Main.Consts, 1)
	assert.Equal(t, true, p.Main.Consts[0])
}

func TestCompileFunctionLocalAndReturn(t *testing.T) {
	p := mustCompile(t, "func f() { var a = 1; return a; }")
	want := []byte{byte(compiler.LOADK), 0, byte(compiler.CLOSURE), byte(compiler.STOREG), 12, byte(compiler.HALT)}
	assert.Equal(t, want, p.Main.Code)

	require.Len(t, p.Main.Consts, 1)
	fn, ok := p.Main.Consts[0].(*compiler.Function)
	require.True(t, ok)
	assert.Equal(t, "f", fn.Name)
	assert.Equal(t, 1, fn.NumLocals)
	assert.Equal(t, 0, fn.NumParams)
	wantBody := []byte{
		byte(compiler.LOADI), 1,
		byte(compiler.STOREL), 0,
		byte(compiler.LOADL), 0,
		byte(compiler.RETURN),
	}
	assert.Equal(t, wantBody, fn.Code)
}

func TestCompileClosureCapturesUpvalue(t *testing.T) {
	p := mustCompile(t, `
		func outer() {
			var a = 1;
			func inner() {
				return a;
			}
			return inner;
		}
	`)
	outerFn := p.Main.Consts[0].(*compiler.Function)
	assert.Equal(t, 2, outerFn.NumLocals) // a, inner

	dis := compiler.Disassemble(outerFn)
	assert.Contains(t, dis, "CLOSURE")
	assert.Contains(t, dis, "NEWUP 1 0") // one direct upvalue capturing outer's local 0

	// find the inner function constant among outer's consts
	var inner *compiler.Function
	for _, c := range outerFn.Consts {
		if fn, ok := c.(*compiler.Function); ok && fn.Name == "inner" {
			inner = fn
		}
	}
	require.NotNil(t, inner)
	require.Len(t, inner.Upvalues, 1)
	assert.True(t, inner.Upvalues[0].IsDirect)
	wantBody := []byte{byte(compiler.LOADU), 0, byte(compiler.RETURN)}
	assert.Equal(t, wantBody, inner.Code)
}

func TestCompileWhileLoopStructure(t *testing.T) {
	p := mustCompile(t, "var x = 0; while (x < 3) { x = x + 1; }")
	dis := compiler.Disassemble(p.Main)
	assert.Contains(t, dis, "JIF")
	assert.Contains(t, dis, "LOOP")
	assert.Contains(t, dis, "LT")
	assert.Contains(t, dis, "ADD")
}

func TestCompileForInReservesHiddenLocals(t *testing.T) {
	p := mustCompile(t, `
		func f(xs) {
			for (x in xs) {
				return x;
			}
		}
	`)
	fn := p.Main.Consts[0].(*compiler.Function)
	// xs (param, slot 0) + x (slot 1, resolver-assigned) + 2 compiler-reserved
	// hidden temps (iterable, index) = 4.
	assert.Equal(t, 4, fn.NumLocals)

	dis := compiler.Disassemble(fn)
	assert.Contains(t, dis, "LOADA")
	assert.Contains(t, dis, `LOADK 0  ; "length"`)
	assert.Contains(t, dis, "LOADF 1")
}

func TestCompileClassFieldsAndConstructor(t *testing.T) {
	p := mustCompile(t, `
		class Point {
			var x;
			var y;
			static var count = 0;
			func Point(px, py) {
				x = px;
				y = py;
			}
			func sum() {
				return x + y;
			}
		}
	`)
	var cls *compiler.Class
	for _, c := range p.Main.Consts {
		if k, ok := c.(*compiler.Class); ok {
			cls = k
		}
	}
	require.NotNil(t, cls)
	assert.Equal(t, "Point", cls.Name)
	assert.Equal(t, 2, cls.NumInstanceVars)
	assert.Equal(t, 1, cls.NumStaticVars)
	require.NotNil(t, cls.Init)
	assert.Same(t, cls.Init, cls.Methods["Point"])
	assert.Contains(t, cls.Methods, "sum")

	// the static initializer for `count` runs once, right after the class
	// is stored into its global slot.
	dis := compiler.Disassemble(p.Main)
	assert.Contains(t, dis, "STOREF")
}

func TestCompileConstantPoolDeduplication(t *testing.T) {
	p := mustCompile(t, `var a = "hi"; var b = "hi";`)
	fn := p.Main
	assert.Len(t, fn.Consts, 1, "equal literals must share one constant-pool slot")
}

func TestCompileArrayLiteral(t *testing.T) {
	p := mustCompile(t, "var xs = [1, 2, 3];")
	dis := compiler.Disassemble(p.Main)
	assert.True(t, strings.Contains(dis, "NEWARR 3"))
}

func TestCompileMethodCallUsesKeep(t *testing.T) {
	p := mustCompile(t, `
		class Greeter {
			func greet() {
				return 1;
			}
		}
		func f(g) {
			return g.greet();
		}
	`)
	var fn *compiler.Function
	for _, c := range p.Main.Consts {
		if f, ok := c.(*compiler.Function); ok && f.Name == "f" {
			fn = f
		}
	}
	require.NotNil(t, fn)
	dis := compiler.Disassemble(fn)
	assert.Contains(t, dis, "LOADF 1")
	assert.Contains(t, dis, "CALL 0")
}
