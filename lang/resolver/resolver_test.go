package resolver_test

import (
	"testing"

	"github.com/mna/sprout/lang/ast"
	"github.com/mna/sprout/lang/parser"
	"github.com/mna/sprout/lang/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustResolve(t *testing.T, src string) *ast.BlockStmt {
	t.Helper()
	prog, err := parser.Parse([]byte(src))
	require.NoError(t, err)
	_, err = resolver.Resolve(prog)
	require.NoError(t, err)
	return prog
}

func TestBuiltinGlobalsOrder(t *testing.T) {
	want := []string{
		"println", "print",
		"Object", "Class", "Bool", "Int", "Float", "Null", "String", "Closure", "Instance", "Array",
	}
	assert.Equal(t, want, resolver.BuiltinGlobals)
}

func TestResolveTopLevelGlobals(t *testing.T) {
	prog := mustResolve(t, "var x = 1; func f() { } class C { }")
	vd := prog.Stmts[0].(*ast.VarDeclStmt)
	fd := prog.Stmts[1].(*ast.FuncDeclStmt)
	cd := prog.Stmts[2].(*ast.ClassDeclStmt)

	assert.Equal(t, ast.Global, vd.Loc)
	assert.Equal(t, ast.Global, fd.Loc)
	assert.Equal(t, ast.Global, cd.Loc)

	// indices follow the 12 pre-populated builtins
	assert.Equal(t, uint8(12), vd.Index)
	assert.Equal(t, uint8(13), fd.Index)
	assert.Equal(t, uint8(14), cd.Index)
}

func TestResolveLocalVar(t *testing.T) {
	prog := mustResolve(t, "func f() { var a = 1; var b = 2; return a; }")
	fd := prog.Stmts[0].(*ast.FuncDeclStmt)
	require.Equal(t, 2, fd.NumLocals)

	ret := fd.Body.Stmts[2].(*ast.ReturnStmt)
	ve := ret.Value.(*ast.VarExpr)
	assert.Equal(t, ast.Local, ve.Loc)
	assert.Equal(t, uint8(0), ve.Index)
}

func TestResolveGlobalReferenceFromFunction(t *testing.T) {
	prog := mustResolve(t, "var g = 1; func f() { return g; }")
	gvd := prog.Stmts[0].(*ast.VarDeclStmt)
	fd := prog.Stmts[1].(*ast.FuncDeclStmt)
	ret := fd.Body.Stmts[0].(*ast.ReturnStmt)
	ve := ret.Value.(*ast.VarExpr)
	assert.Equal(t, ast.Global, ve.Loc)
	assert.Equal(t, gvd.Index, ve.Index)
}

func TestResolveUpvalueOneLevel(t *testing.T) {
	prog := mustResolve(t, `
		func outer() {
			var a = 1;
			func inner() {
				return a;
			}
			return inner;
		}
	`)
	outer := prog.Stmts[0].(*ast.FuncDeclStmt)
	innerDecl := outer.Body.Stmts[1].(*ast.FuncDeclStmt)
	require.Len(t, innerDecl.Upvalues, 1)
	up := innerDecl.Upvalues[0]
	assert.True(t, up.IsDirect)
	assert.Equal(t, "a", up.Symbol)
	assert.Equal(t, uint8(0), up.Index) // a is outer's local 0

	ret := innerDecl.Body.Stmts[0].(*ast.ReturnStmt)
	ve := ret.Value.(*ast.VarExpr)
	assert.Equal(t, ast.Upvalue, ve.Loc)
	assert.Equal(t, uint8(0), ve.Index)
}

func TestResolveUpvalueTwoLevels(t *testing.T) {
	prog := mustResolve(t, `
		func a() {
			var x = 1;
			func b() {
				func c() {
					return x;
				}
				return c;
			}
			return b;
		}
	`)
	fnA := prog.Stmts[0].(*ast.FuncDeclStmt)
	fnB := fnA.Body.Stmts[1].(*ast.FuncDeclStmt)
	fnC := fnB.Body.Stmts[0].(*ast.FuncDeclStmt)

	require.Len(t, fnB.Upvalues, 1)
	assert.True(t, fnB.Upvalues[0].IsDirect)
	assert.Equal(t, "x", fnB.Upvalues[0].Symbol)
	assert.Equal(t, uint8(0), fnB.Upvalues[0].Index)

	require.Len(t, fnC.Upvalues, 1)
	assert.False(t, fnC.Upvalues[0].IsDirect)
	assert.Equal(t, "x", fnC.Upvalues[0].Symbol)
	assert.Equal(t, fnB.Upvalues[0].Index, fnC.Upvalues[0].Index)

	ret := fnC.Body.Stmts[0].(*ast.ReturnStmt)
	ve := ret.Value.(*ast.VarExpr)
	assert.Equal(t, ast.Upvalue, ve.Loc)
	assert.Equal(t, uint8(0), ve.Index)
}

func TestResolveClassFieldsAndSelf(t *testing.T) {
	prog := mustResolve(t, `
		class Point {
			var x;
			var y;
			static var count;
			func Point(px, py) {
				x = px;
				y = py;
			}
			func sum() {
				return x + y;
			}
		}
	`)
	cd := prog.Stmts[0].(*ast.ClassDeclStmt)
	assert.Equal(t, 2, cd.NumInstanceVars)
	assert.Equal(t, 1, cd.NumStaticVars)
	assert.Equal(t, ast.Field, cd.Fields[0].Loc)
	assert.Equal(t, uint8(0), cd.Fields[0].Index)
	assert.Equal(t, uint8(1), cd.Fields[1].Index)
	assert.Equal(t, uint8(0), cd.Fields[2].Index) // static counter is separate

	require.NotNil(t, cd.Constructor)
	// self occupies local slot 0, params follow (spec 4.4 point 3)
	assign := cd.Constructor.Body.Stmts[0].(*ast.ExprStmt)
	bin := assign.X.(*ast.BinaryExpr)
	lhs := bin.Left.(*ast.VarExpr)
	assert.Equal(t, ast.Field, lhs.Loc)
	assert.Equal(t, uint8(0), lhs.Index)
	assert.Equal(t, 3, cd.Constructor.NumLocals) // self, px, py

	sum := cd.Methods[1]
	ret := sum.Body.Stmts[0].(*ast.ReturnStmt)
	bin = ret.Value.(*ast.BinaryExpr)
	assert.Equal(t, ast.Field, bin.Left.(*ast.VarExpr).Loc)
	assert.Equal(t, ast.Field, bin.Right.(*ast.VarExpr).Loc)
}

func TestResolveSynthesizesEmptyConstructor(t *testing.T) {
	prog := mustResolve(t, "class Empty { var x; }")
	cd := prog.Stmts[0].(*ast.ClassDeclStmt)
	require.NotNil(t, cd.Constructor)
	assert.Equal(t, "$init", cd.Constructor.Name)
	assert.True(t, cd.Constructor.IsConstructor)
	assert.Empty(t, cd.Constructor.Body.Stmts)
}

func TestResolveForInBindsIterVar(t *testing.T) {
	prog := mustResolve(t, `
		func f(xs) {
			for (x in xs) {
				return x;
			}
		}
	`)
	fd := prog.Stmts[0].(*ast.FuncDeclStmt)
	loop := fd.Body.Stmts[0].(*ast.LoopStmt)
	assert.Equal(t, uint8(1), loop.IterVarIndex) // 0 is param xs

	ret := loop.Body.Stmts[0].(*ast.ReturnStmt)
	ve := ret.Value.(*ast.VarExpr)
	assert.Equal(t, ast.Local, ve.Loc)
	assert.Equal(t, uint8(1), ve.Index)
}

func TestResolveUndefinedNameIsError(t *testing.T) {
	prog, err := parser.Parse([]byte("func f() { return missing; }"))
	require.NoError(t, err)
	_, err = resolver.Resolve(prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined name")
}

func TestResolveDuplicateLocalIsError(t *testing.T) {
	prog, err := parser.Parse([]byte("func f() { var a = 1; var a = 2; }"))
	require.NoError(t, err)
	_, err = resolver.Resolve(prog)
	require.Error(t, err)
}

func TestResolveDuplicateGlobalIsError(t *testing.T) {
	prog, err := parser.Parse([]byte("var a = 1; var a = 2;"))
	require.NoError(t, err)
	_, err = resolver.Resolve(prog)
	require.Error(t, err)
}

func TestResolveNestedClassIsError(t *testing.T) {
	prog, err := parser.Parse([]byte("func f() { class C { } }"))
	require.NoError(t, err)
	_, err = resolver.Resolve(prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "top level")
}

func TestResolveRootLocalsCount(t *testing.T) {
	prog, err := parser.Parse([]byte("var g = 1; if (true) { var a = 1; var b = 2; }"))
	require.NoError(t, err)
	n, err := resolver.Resolve(prog)
	require.NoError(t, err)
	assert.Equal(t, 2, n) // a, b: nested root-block locals, not the top-level global g
}
