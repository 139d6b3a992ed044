package machine_test

import (
	"bytes"
	"testing"

	"github.com/mna/sprout/lang/compiler"
	"github.com/mna/sprout/lang/machine"
	"github.com/mna/sprout/lang/parser"
	"github.com/mna/sprout/lang/resolver"
	"github.com/stretchr/testify/require"
)

// run parses, resolves, compiles and executes src, the same pipeline
// cmd/sprout drives, and returns everything written to stdout.
func run(t *testing.T, src string) string {
	t.Helper()
	prog, err := parser.Parse([]byte(src))
	require.NoError(t, err)

	rootLocals, err := resolver.Resolve(prog)
	require.NoError(t, err)

	compiled, err := compiler.Compile(prog, rootLocals)
	require.NoError(t, err)

	var out bytes.Buffer
	m := machine.New(&out)
	_, err = m.Run(compiled)
	require.NoError(t, err)
	return out.String()
}

func TestClosureCapturesMutableLocal(t *testing.T) {
	src := `
func make() {
	var c = 0;
	func inc() {
		c = c + 1;
		return c;
	}
	return inc;
}
var f = make();
println(f());
println(f());
println(f());
`
	require.Equal(t, "1\n2\n3\n", run(t, src))
}

func TestMethodDispatchAcrossClasses(t *testing.T) {
	src := `
class A {
	func greet() {
		return "A";
	}
}
class B {
	func hi() {
		return "B";
	}
}
var a = A();
println(a.greet());
var b = B();
println(b.hi());
`
	require.Equal(t, "A\nB\n", run(t, src))
}

func TestArrayMap(t *testing.T) {
	src := `
var xs = [1, 2, 3];
var ys = xs.map(func sq(x) { return x * x; });
println(ys.size());
println(ys.get(2));
`
	require.Equal(t, "3\n9\n", run(t, src))
}

func TestMixedTypeArithmeticWithString(t *testing.T) {
	src := `
println(1 + " cat");
println(1.5 + 2);
`
	require.Equal(t, "1 cat\n3.500000\n", run(t, src))
}

func TestUpvalueThroughTwoLevels(t *testing.T) {
	src := `
func outer() {
	var x = 7;
	func middle() {
		func inner() {
			return x;
		}
		return inner;
	}
	return middle;
}
println(outer()()());
`
	require.Equal(t, "7\n", run(t, src))
}

func TestArrayConstructorViaNew(t *testing.T) {
	src := `
var xs = Array(1, 2, 3);
println(xs.size());
println(xs.get(1));
`
	require.Equal(t, "3\n2\n", run(t, src))
}

func TestNumericConstructorsViaNew(t *testing.T) {
	src := `
println(Int("42") + 1);
println(Float(2) + 1.5);
println(Bool(0));
println(String(5));
`
	require.Equal(t, "43\n3.500000\nfalse\n5\n", run(t, src))
}

func TestFibonacci(t *testing.T) {
	src := `
func fib(n) {
	if (n < 2) {
		return n;
	}
	return fib(n - 1) + fib(n - 2);
}
println(fib(10));
`
	require.Equal(t, "55\n", run(t, src))
}
