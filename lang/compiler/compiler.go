// Package compiler takes a resolved AST (lang/resolver has already
// decorated every Var/VarDecl/FuncDecl/ClassDecl with its storage location)
// and emits the bytecode described by spec 4.5: one compiled Function per
// sprout function (plus an implicit "$main" for the top-level script), each
// owning its own flat byte stream and constant pool.
//
// The emission strategy mirrors melon's codegen.c: no control-flow graph,
// no variable-width operands — every jump is a single backpatched byte
// because the grammar only has structured, single-block control flow
// (if/else, while, for-in).
package compiler

import (
	"fmt"

	"github.com/mna/sprout/internal/diag"
	"github.com/mna/sprout/lang/ast"
	"github.com/mna/sprout/lang/token"
)

const (
	maxConsts = 256
	maxBranch = 255
)

// Function is the compiled form of one sprout function (or the implicit
// top-level script).
type Function struct {
	Name      string
	NumParams int
	NumLocals int // includes params and, for methods, the implicit self
	IsMethod  bool
	Code      []byte
	Consts    []any // int64, float64, string, bool, nil, *Function or *Class
	Upvalues  []ast.UpvalueDescriptor
}

// Class is the compiled, static description of a declared class: its dense
// instance/static field layout and its methods, keyed by name for the VM's
// by-name dispatch (spec 4.6).
type Class struct {
	Name            string
	NumInstanceVars int
	NumStaticVars   int
	Methods         map[string]*Function // keyed by method name
	Init            *Function            // user-declared or synthesized constructor

	// InstanceFields and StaticFields record each declared field's name and
	// slot, in source order, so the machine can register them by name on the
	// runtime Class's property table (LOADF/STOREF dispatch by name, per
	// spec 4.6).
	InstanceFields []FieldDecl
	StaticFields   []FieldDecl
}

// FieldDecl names one instance or static field declaration and the dense
// slot the resolver assigned it.
type FieldDecl struct {
	Name string
	Slot int
}

// Program is a whole compiled script.
type Program struct {
	Main *Function
}

// Compile compiles prog, which must already be free of resolver errors,
// into a Program. rootLocals is the first return value of resolver.Resolve,
// sizing the implicit top-level function's local frame.
func Compile(prog *ast.BlockStmt, rootLocals int) (*Program, error) {
	c := &compiler{}
	main := &Function{Name: "$main", NumLocals: rootLocals}
	fc := &funcCompiler{c: c, fn: main}
	fc.compileStmts(prog.Stmts)
	fc.emit(HALT)

	c.errs.Sort()
	if err := c.errs.Err(); err != nil {
		return nil, err
	}
	return &Program{Main: main}, nil
}

// compiler holds state shared across every function compiled for one
// program: just the accumulated diagnostics.
type compiler struct {
	errs diag.ErrorList
}

func (c *compiler) errorAt(tok token.Token, format string, args ...any) {
	line, col := tok.Pos.LineCol()
	diag.Add(&c.errs, line, col, fmt.Sprintf(format, args...))
}

// compileFunction compiles fd's body into a brand new Function with its own
// constant pool. Used for nested FuncDeclStmt, FuncExpr and (from
// compileClassDecl) class methods that are not the constructor.
func (c *compiler) compileFunction(fd *ast.FuncDeclStmt) *Function {
	fn := &Function{
		Name:      fd.Name,
		NumParams: len(fd.Params),
		NumLocals: fd.NumLocals,
		IsMethod:  fd.IsMethod,
		Upvalues:  fd.Upvalues,
	}
	fc := &funcCompiler{c: c, fn: fn}
	fc.compileStmts(fd.Body.Stmts)
	fc.emitImplicitReturn()
	return fn
}

// compileConstructor is like compileFunction but, per spec 4.5 ("their
// initializers (if any) are compiled into a synthesized $init method that
// the constructor runs on each new instance"), prepends one field-store per
// instance field that has an initializer, before the constructor's own
// body runs.
func (c *compiler) compileConstructor(cd *ast.ClassDeclStmt, ctor *ast.FuncDeclStmt) *Function {
	fn := &Function{
		Name:      ctor.Name,
		NumParams: len(ctor.Params),
		NumLocals: ctor.NumLocals,
		IsMethod:  true,
		Upvalues:  ctor.Upvalues,
	}
	fc := &funcCompiler{c: c, fn: fn}
	for _, f := range cd.Fields {
		if f.IsStatic || f.Init == nil {
			continue
		}
		fc.compileExpr(f.Init)
		fc.emitFieldStore(f.Name, f.Tok)
	}
	fc.compileStmts(ctor.Body.Stmts)
	fc.emitImplicitReturn()
	return fn
}

// compileClassDecl compiles a top-level class declaration: it builds the
// Class descriptor (with every method compiled), stores it as a constant
// of the enclosing function (always $main, since classes are only ever
// declared at the top level — spec 4.4), and emits the static-field
// initializers, which run once, in declaration order, right after the
// class is built.
func (c *compiler) compileClassDecl(main *funcCompiler, cd *ast.ClassDeclStmt) {
	cls := &Class{
		Name:            cd.Name,
		NumInstanceVars: cd.NumInstanceVars,
		NumStaticVars:   cd.NumStaticVars,
		Methods:         make(map[string]*Function, len(cd.Methods)),
	}
	for _, f := range cd.Fields {
		fd := FieldDecl{Name: f.Name, Slot: int(f.Index)}
		if f.IsStatic {
			cls.StaticFields = append(cls.StaticFields, fd)
		} else {
			cls.InstanceFields = append(cls.InstanceFields, fd)
		}
	}
	for _, m := range cd.Methods {
		var fn *Function
		if m.IsConstructor {
			fn = c.compileConstructor(cd, m)
			cls.Init = fn
		} else {
			fn = c.compileFunction(m)
		}
		cls.Methods[m.Name] = fn
	}

	idx := main.addConst(cls, cd.Tok)
	main.emit1(LOADK, idx)
	main.emit1(STOREG, cd.Index)

	for _, f := range cd.Fields {
		if !f.IsStatic || f.Init == nil {
			continue
		}
		main.compileExpr(f.Init)
		main.emit1(LOADG, cd.Index)
		nameIdx := main.addConst(f.Name, f.Tok)
		main.emit1(LOADK, nameIdx)
		main.emit(STOREF)
	}
}

// funcCompiler holds the state needed while emitting the body of a single
// Function: a reference to the shared compiler (for diagnostics and
// nested-function compilation) and the Function being built.
//
// Control-flow statements (for-in) sometimes need stack storage beyond the
// locals the resolver planned for named bindings; reserveTemp grows
// fn.NumLocals to carve out such hidden slots. They never collide with a
// named local because local/global access always goes through a fixed
// bp-relative index (LOADL/STOREL), never a stack-top-relative address, so
// values other statements leave lying around above them (see the
// ExprStmt case of compileStmt) cannot corrupt them.
type funcCompiler struct {
	c  *compiler
	fn *Function
}

func (fc *funcCompiler) emit(op Opcode)             { fc.fn.Code = append(fc.fn.Code, byte(op)) }
func (fc *funcCompiler) emit1(op Opcode, a byte)    { fc.fn.Code = append(fc.fn.Code, byte(op), a) }
func (fc *funcCompiler) emit2(op Opcode, a, b byte) { fc.fn.Code = append(fc.fn.Code, byte(op), a, b) }

func (fc *funcCompiler) reserveTemp(tok token.Token) byte {
	if fc.fn.NumLocals >= 255 {
		fc.c.errorAt(tok, "too many locals: for-in loop exceeds the 255-local limit")
		return 0
	}
	idx := byte(fc.fn.NumLocals)
	fc.fn.NumLocals++
	return idx
}

// addConst returns the index of v in the function's constant pool, adding
// it if not already present. Spec 4.5: "Before appending a literal, scan
// the pool for an equal value (by tag and payload); reuse the existing
// index." Nested *Function/*Class constants are always distinct compiled
// objects, so the linear scan never spuriously merges them.
func (fc *funcCompiler) addConst(v any, tok token.Token) byte {
	for i, existing := range fc.fn.Consts {
		if existing == v {
			return byte(i)
		}
	}
	if len(fc.fn.Consts) >= maxConsts {
		fc.c.errorAt(tok, "too many constants in function %q: exceeds the 256-slot limit", fc.fn.Name)
		return 0
	}
	fc.fn.Consts = append(fc.fn.Consts, v)
	return byte(len(fc.fn.Consts) - 1)
}

// emitJump emits op with a placeholder operand and returns the index of
// that operand byte, to be patched later by patchJump.
func (fc *funcCompiler) emitJump(op Opcode) int {
	fc.emit1(op, 0)
	return len(fc.fn.Code) - 1
}

func (fc *funcCompiler) patchJump(operandIdx int, tok token.Token) {
	offset := len(fc.fn.Code) - operandIdx
	if offset > maxBranch {
		fc.c.errorAt(tok, "branch body exceeds the 255-byte limit")
		offset = maxBranch
	}
	fc.fn.Code[operandIdx] = byte(offset)
}

func (fc *funcCompiler) emitLoop(start int, tok token.Token) {
	idx := fc.emitJump(LOOP)
	offset := len(fc.fn.Code) - start
	if offset > maxBranch {
		fc.c.errorAt(tok, "loop body exceeds the 255-byte limit")
		offset = maxBranch
	}
	fc.fn.Code[idx] = byte(offset)
}

func (fc *funcCompiler) emitImplicitReturn() {
	code := fc.fn.Code
	if len(code) >= 1 && (Opcode(code[len(code)-1]) == RETURN || Opcode(code[len(code)-1]) == RET0) {
		return
	}
	fc.emit(RET0)
}

func (fc *funcCompiler) compileStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		fc.compileStmt(s)
	}
}

func (fc *funcCompiler) compileStmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.VarDeclStmt:
		fc.compileVarDecl(s)
	case *ast.FuncDeclStmt:
		fc.compileClosureDecl(s)
	case *ast.ClassDeclStmt:
		fc.c.compileClassDecl(fc, s)
	case *ast.BlockStmt:
		fc.compileStmts(s.Stmts)
	case *ast.ExprStmt:
		fc.compileExpr(s.X)
	case *ast.IfStmt:
		fc.compileIf(s)
	case *ast.LoopStmt:
		if s.Kind == ast.LoopWhile {
			fc.compileWhile(s)
		} else {
			fc.compileForIn(s)
		}
	case *ast.ReturnStmt:
		fc.compileReturn(s)
	case *ast.BadStmt:
		// parser already recorded an error for this subtree
	default:
		panic(fmt.Sprintf("compiler: unhandled statement type %T", s))
	}
}

func (fc *funcCompiler) compileVarDecl(vd *ast.VarDeclStmt) {
	if vd.Init != nil {
		fc.compileExpr(vd.Init)
	} else {
		fc.emit1(LOADK, fc.addConst(nil, vd.Tok))
	}
	switch vd.Loc {
	case ast.Global:
		fc.emit1(STOREG, vd.Index)
	case ast.Local:
		fc.emit1(STOREL, vd.Index)
	default:
		panic(fmt.Sprintf("compiler: var decl %q has unexpected location %v", vd.Name, vd.Loc))
	}
}

func (fc *funcCompiler) compileClosureDecl(fd *ast.FuncDeclStmt) {
	fc.compileClosureLiteral(fd)
	switch fd.Loc {
	case ast.Global:
		fc.emit1(STOREG, fd.Index)
	case ast.Local:
		fc.emit1(STOREL, fd.Index)
	default:
		panic(fmt.Sprintf("compiler: func decl %q has unexpected location %v", fd.Name, fd.Loc))
	}
}

// compileClosureLiteral emits a nested function constant and, per spec
// 4.5, the CLOSURE opcode followed by one NEWUP per upvalue descriptor.
func (fc *funcCompiler) compileClosureLiteral(fd *ast.FuncDeclStmt) {
	inner := fc.c.compileFunction(fd)
	idx := fc.addConst(inner, fd.Tok)
	fc.emit1(LOADK, idx)
	fc.emit(CLOSURE)
	for _, up := range fd.Upvalues {
		isDirect := byte(0)
		if up.IsDirect {
			isDirect = 1
		}
		fc.emit2(NEWUP, isDirect, up.Index)
	}
}

func (fc *funcCompiler) compileIf(s *ast.IfStmt) {
	fc.compileExpr(s.Cond)
	jif := fc.emitJump(JIF)
	fc.compileStmt(s.Then)
	if s.Else != nil {
		jmp := fc.emitJump(JMP)
		fc.patchJump(jif, s.Tok)
		fc.compileStmt(s.Else)
		fc.patchJump(jmp, s.Tok)
	} else {
		fc.patchJump(jif, s.Tok)
	}
}

func (fc *funcCompiler) compileWhile(s *ast.LoopStmt) {
	start := len(fc.fn.Code)
	fc.compileExpr(s.Cond)
	jif := fc.emitJump(JIF)
	fc.compileStmt(s.Body)
	fc.emitLoop(start, s.Tok)
	fc.patchJump(jif, s.Tok)
}

// compileForIn desugars `for (x in xs) body` using two hidden locals (the
// evaluated iterable and the running index), a call to the iterable's
// "length" method and one LOADA per element, since the opcode set has no
// dedicated iterator instruction. Only values LOADA can index (arrays, and
// instances defining $loadat) can be iterated: a string has a "length"
// method but is not indexable, so a non-empty string cannot be iterated.
// Grounded on melon's gen_node_loop (original_source/src/codegen.c), which
// records the loop's start address before the condition and patches both
// the forward JIF and the backward LOOP the same way a while loop does.
func (fc *funcCompiler) compileForIn(s *ast.LoopStmt) {
	iterSlot := fc.reserveTemp(s.Tok)
	idxSlot := fc.reserveTemp(s.Tok)

	fc.compileExpr(s.Iterable)
	fc.emit1(STOREL, iterSlot)

	fc.compileIntLiteral(0)
	fc.emit1(STOREL, idxSlot)

	start := len(fc.fn.Code)
	fc.emit1(LOADL, idxSlot)
	fc.emitMethodCall0(iterSlot, "length", s.Tok)
	fc.emit(LT)
	jif := fc.emitJump(JIF)

	fc.emit1(LOADL, iterSlot)
	fc.emit1(LOADL, idxSlot)
	fc.emit(LOADA)
	fc.emit1(STOREL, s.IterVarIndex)

	fc.compileStmts(s.Body.Stmts)

	fc.emit1(LOADL, idxSlot)
	fc.compileIntLiteral(1)
	fc.emit(ADD)
	fc.emit1(STOREL, idxSlot)

	fc.emitLoop(start, s.Tok)
	fc.patchJump(jif, s.Tok)
}

func (fc *funcCompiler) compileIntLiteral(n int64) {
	if n >= 0 && n <= 255 {
		fc.emit1(LOADI, byte(n))
		return
	}
	fc.emit1(LOADK, fc.addConst(n, token.Token{}))
}

// emitMethodCall0 emits a zero-argument method call on the value held in
// objSlot: push the object, push the method name, LOADF with keep=1 (which
// leaves a single bound method pairing the receiver with the method, per
// spec 4.5's "method call is detected as access immediately followed by
// call"), then CALL 0.
func (fc *funcCompiler) emitMethodCall0(objSlot byte, name string, tok token.Token) {
	fc.emit1(LOADL, objSlot)
	idx := fc.addConst(name, tok)
	fc.emit1(LOADK, idx)
	fc.emit1(LOADF, 1)
	fc.emit1(CALL, 0)
}

func (fc *funcCompiler) compileReturn(s *ast.ReturnStmt) {
	if s.Value != nil {
		fc.compileExpr(s.Value)
		fc.emit(RETURN)
		return
	}
	fc.emit(RET0)
}

func (fc *funcCompiler) compileExpr(e ast.Expr) {
	switch e := e.(type) {
	case *ast.LiteralExpr:
		fc.compileLiteral(e)
	case *ast.VarExpr:
		fc.compileVarExpr(e)
	case *ast.UnaryExpr:
		fc.compileExpr(e.Right)
		fc.emit(unaryOpcode(e.Op))
	case *ast.BinaryExpr:
		fc.compileBinary(e)
	case *ast.PostfixExpr:
		fc.compilePostfix(e)
	case *ast.ListExpr:
		for _, el := range e.Elems {
			fc.compileExpr(el)
		}
		if len(e.Elems) > 255 {
			fc.c.errorAt(e.Tok, "array literal exceeds the 255-element limit")
		}
		fc.emit1(NEWARR, byte(len(e.Elems)))
	case *ast.FuncExpr:
		fc.compileClosureLiteral(e.Fn)
	case *ast.BadExpr:
		// parser already recorded an error for this subtree
	default:
		panic(fmt.Sprintf("compiler: unhandled expression type %T", e))
	}
}

// compileLiteral uses the LOADI fast path for int literals in 0..255
// (spec 8 boundary: "LOADI of 255 admissible, 256 promoted to constant
// pool"); every other literal kind (bool, float, string, null and
// out-of-range/negative ints) goes through the constant pool.
func (fc *funcCompiler) compileLiteral(lit *ast.LiteralExpr) {
	if n, ok := lit.Value.(int64); ok && n >= 0 && n <= 255 {
		fc.emit1(LOADI, byte(n))
		return
	}
	idx := fc.addConst(lit.Value, lit.Tok)
	fc.emit1(LOADK, idx)
}

func (fc *funcCompiler) compileVarExpr(ve *ast.VarExpr) {
	switch ve.Loc {
	case ast.Local:
		if ve.IsAssign {
			fc.emit1(STOREL, ve.Index)
		} else {
			fc.emit1(LOADL, ve.Index)
		}
	case ast.Upvalue:
		if ve.IsAssign {
			fc.emit1(STOREU, ve.Index)
		} else {
			fc.emit1(LOADU, ve.Index)
		}
	case ast.Global:
		if ve.IsAssign {
			fc.emit1(STOREG, ve.Index)
		} else {
			fc.emit1(LOADG, ve.Index)
		}
	case ast.Field:
		if ve.IsAssign {
			fc.emitFieldStore(ve.Name, ve.Tok)
		} else {
			fc.emitFieldLoad(ve.Name, ve.Tok)
		}
	default:
		panic(fmt.Sprintf("compiler: var %q has unresolved location", ve.Name))
	}
}

// emitFieldLoad/emitFieldStore implement a bare identifier inside a method
// that the resolver classified as ast.Field: rather than reading the
// instance's field vector directly by the resolver-assigned index, they go
// through the same by-name LOADF/STOREF dispatch as an explicit `self.name`
// access (spec 4.6: the VM resolves the accessor name against the value's
// class, which is where the resolver's dense field index ultimately ends
// up being used — see lang/value's Class property table).
func (fc *funcCompiler) emitFieldLoad(name string, tok token.Token) {
	fc.emit1(LOADL, 0)
	idx := fc.addConst(name, tok)
	fc.emit1(LOADK, idx)
	fc.emit1(LOADF, 0)
}

// emitFieldStore assumes the value to store is already on top of the
// stack (pushed by the assignment's RHS, or by a field initializer).
func (fc *funcCompiler) emitFieldStore(name string, tok token.Token) {
	fc.emit1(LOADL, 0)
	idx := fc.addConst(name, tok)
	fc.emit1(LOADK, idx)
	fc.emit(STOREF)
}

func (fc *funcCompiler) compileBinary(e *ast.BinaryExpr) {
	if e.Op == token.EQ {
		fc.compileExpr(e.Right)
		fc.compileAssignTarget(e.Left)
		return
	}
	fc.compileExpr(e.Left)
	fc.compileExpr(e.Right)
	fc.emit(binaryOpcode(e.Op))
}

func (fc *funcCompiler) compileAssignTarget(left ast.Expr) {
	switch left := left.(type) {
	case *ast.VarExpr:
		fc.compileVarExpr(left)
	case *ast.PostfixExpr:
		fc.compilePostfix(left)
	default:
		panic(fmt.Sprintf("compiler: invalid assignment target %T", left))
	}
}

// compilePostfix compiles a target followed by its chain of
// call/access/subscript stages. When e.IsAssign, the trailing stage (which
// the parser guarantees is an access or a subscript) is emitted as a store
// instead of a load; the value being stored was already pushed by the
// caller (compileBinary, for `left = right`).
func (fc *funcCompiler) compilePostfix(e *ast.PostfixExpr) {
	fc.compileExpr(e.Target)
	for i := range e.Chain {
		isLast := i == len(e.Chain)-1
		fc.compileChainOp(e.Chain, i, isLast && e.IsAssign)
	}
}

func (fc *funcCompiler) compileChainOp(chain []ast.ChainOp, i int, isStore bool) {
	op := chain[i]
	switch op.Kind {
	case ast.ChainAccess:
		idx := fc.addConst(op.Name, op.Tok)
		fc.emit1(LOADK, idx)
		if isStore {
			fc.emit(STOREF)
			return
		}
		keep := byte(0)
		if i+1 < len(chain) && chain[i+1].Kind == ast.ChainCall {
			keep = 1
		}
		fc.emit1(LOADF, keep)
	case ast.ChainSubscript:
		fc.compileExpr(op.Key)
		if isStore {
			fc.emit(STOREA)
		} else {
			fc.emit(LOADA)
		}
	case ast.ChainCall:
		for _, a := range op.Args {
			fc.compileExpr(a)
		}
		if len(op.Args) > 255 {
			fc.c.errorAt(op.Tok, "call exceeds the 255-argument limit")
		}
		fc.emit1(CALL, byte(len(op.Args)))
	}
}

func unaryOpcode(op token.Kind) Opcode {
	switch op {
	case token.MINUS:
		return NEG
	case token.BANG:
		return NOT
	default:
		panic(fmt.Sprintf("compiler: unhandled unary operator %v", op))
	}
}

func binaryOpcode(op token.Kind) Opcode {
	switch op {
	case token.PLUS:
		return ADD
	case token.MINUS:
		return SUB
	case token.STAR:
		return MUL
	case token.SLASH:
		return DIV
	case token.PERCENT:
		return MOD
	case token.AMPAMP:
		return AND
	case token.PIPEPIPE:
		return OR
	case token.LT:
		return LT
	case token.GT:
		return GT
	case token.LE:
		return LTE
	case token.GE:
		return GTE
	case token.EQEQ:
		return EQ
	case token.BANGEQ:
		return NEQ
	default:
		panic(fmt.Sprintf("compiler: unhandled binary operator %v", op))
	}
}
