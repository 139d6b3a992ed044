// Package resolver implements the two-pass semantic analysis described in
// spec 4.4: pass 1 assigns dense slots to every top-level declaration (and,
// for classes, to their declared fields); pass 2 walks the whole tree
// classifying every Var reference as Local, Upvalue, Field or Global and
// threading upvalue-descriptor chains through every function that closes
// over an outer local.
package resolver

import (
	"fmt"

	"github.com/mna/sprout/internal/diag"
	"github.com/mna/sprout/lang/ast"
	"github.com/mna/sprout/lang/symtable"
	"github.com/mna/sprout/lang/token"
	"golang.org/x/exp/slices"
)

// BuiltinGlobals lists the names pre-populated into global slot 0.. before
// any user declaration, in melon core.c's exact registration order. The
// corelib package builds its initial global value slice in this same order
// so that a name here and the runtime value at the same index always agree.
var BuiltinGlobals = []string{
	"println", "print",
	"Object", "Class", "Bool", "Int", "Float", "Null", "String", "Closure", "Instance", "Array",
}

// maxGlobals is the 256-slot limit on the global table (spec 7).
const maxGlobals = 256

// ctxKind distinguishes the three kinds of lexical frame a Var reference can
// resolve through: the implicit top-level frame, a function body, or a
// class's field namespace.
type ctxKind uint8

const (
	ctxRoot ctxKind = iota
	ctxFunc
	ctxClass
)

// frame is one entry of the resolver's context stack (spec 4.4: "a
// context-stack of frames"). ctxRoot and ctxFunc frames own a symtable.Table
// for their locals; ctxClass frames own a name-to-field lookup instead.
type frame struct {
	kind ctxKind

	tbl *symtable.Table   // ctxRoot, ctxFunc
	fn  *ast.FuncDeclStmt // ctxFunc only; nil for the implicit root frame

	fields map[string]*ast.VarDeclStmt // ctxClass only
}

type resolver struct {
	errors diag.ErrorList

	globals map[string]uint8
	stack   []*frame
}

// Resolve runs both passes over prog, decorating every declaration and Var
// reference in place. It returns the number of local slots used by the
// implicit top-level frame (for sizing the main chunk's call frame) and a
// diag.ErrorList-backed error, or nil if resolution succeeded.
func Resolve(prog *ast.BlockStmt) (rootLocals int, err error) {
	var r resolver
	r.pass1(prog)

	tbl := symtable.New()
	tbl.EnterScope()
	r.stack = append(r.stack, &frame{kind: ctxRoot, tbl: tbl})
	r.resolveBlockStmts(prog.Stmts, true)
	rootLocals = tbl.ExitScope()
	r.stack = r.stack[:len(r.stack)-1]

	r.errors.Sort()
	return rootLocals, r.errors.Err()
}

// pass1 assigns global slots to every root-level VarDecl/FuncDecl/ClassDecl,
// in source order, after pre-populating the builtins (spec 4.4 pass 1).
func (r *resolver) pass1(prog *ast.BlockStmt) {
	r.globals = make(map[string]uint8, maxGlobals)
	for _, name := range BuiltinGlobals {
		r.declareGlobal(name, token.Token{})
	}

	for _, stmt := range prog.Stmts {
		switch s := stmt.(type) {
		case *ast.VarDeclStmt:
			s.Loc = ast.Global
			s.Index = r.declareGlobal(s.Name, s.Tok)
		case *ast.FuncDeclStmt:
			s.Loc = ast.Global
			s.Index = r.declareGlobal(s.Name, s.Tok)
		case *ast.ClassDeclStmt:
			s.Loc = ast.Global
			s.Index = r.declareGlobal(s.Name, s.Tok)
			r.assignClassFields(s)
		}
	}
}

func (r *resolver) declareGlobal(name string, tok token.Token) uint8 {
	if idx, ok := r.globals[name]; ok {
		r.errorAt(tok, fmt.Sprintf("%q redeclared at the top level", name))
		return idx
	}
	if len(r.globals) >= maxGlobals {
		r.errorAt(tok, "too many globals: program exceeds the 256-slot limit")
		return 0
	}
	idx := uint8(len(r.globals))
	r.globals[name] = idx
	return idx
}

// assignClassFields gives every declared field a dense index in source
// order, instance and static fields counted separately (spec 4.4: "for
// classes also assigns field indices in source order"), and synthesizes an
// empty $init when the class declares no constructor (spec 4.6 design
// note): the compiler and machine can then always assume
// a constructor exists.
func (r *resolver) assignClassFields(cd *ast.ClassDeclStmt) {
	var numInstance, numStatic int
	for _, f := range cd.Fields {
		f.Loc = ast.Field
		if f.IsStatic {
			f.Index = uint8(numStatic)
			numStatic++
		} else {
			f.Index = uint8(numInstance)
			numInstance++
		}
	}
	cd.NumInstanceVars = numInstance
	cd.NumStaticVars = numStatic

	if cd.Constructor == nil {
		ctor := &ast.FuncDeclStmt{
			Tok:           cd.Tok,
			Name:          "$init",
			IsConstructor: true,
			IsMethod:      true,
			Body:          &ast.BlockStmt{Tok: cd.Tok},
		}
		cd.Constructor = ctor
		cd.Methods = append(cd.Methods, ctor)
	}
}

func (r *resolver) currentFrame() *frame { return r.stack[len(r.stack)-1] }

func (r *resolver) error(line, col int, msg string) { diag.Add(&r.errors, line, col, msg) }

func (r *resolver) errorAt(tok token.Token, msg string) {
	line, col := tok.Pos.LineCol()
	r.error(line, col, msg)
}

// resolveBlockStmts resolves every statement of stmts in order. topLevel is
// true only for the direct children of the program's root block: those
// VarDecl/FuncDecl/ClassDecl statements already have a Global slot from pass
// 1, while the same kinds appearing anywhere else (including nested root
// blocks) declare a local instead.
func (r *resolver) resolveBlockStmts(stmts []ast.Stmt, topLevel bool) {
	for _, s := range stmts {
		r.resolveStmt(s, topLevel)
	}
}

func (r *resolver) resolveStmt(s ast.Stmt, topLevel bool) {
	switch s := s.(type) {
	case *ast.VarDeclStmt:
		r.resolveVarDecl(s, topLevel)
	case *ast.FuncDeclStmt:
		r.resolveFuncDecl(s, topLevel)
	case *ast.ClassDeclStmt:
		r.resolveClass(s, topLevel)
	case *ast.BlockStmt:
		cur := r.currentFrame()
		cur.tbl.EnterScope()
		r.resolveBlockStmts(s.Stmts, false)
		cur.tbl.ExitScope()
	case *ast.ExprStmt:
		r.resolveExpr(s.X)
	case *ast.IfStmt:
		r.resolveExpr(s.Cond)
		r.resolveStmt(s.Then, false)
		if s.Else != nil {
			r.resolveStmt(s.Else, false)
		}
	case *ast.LoopStmt:
		r.resolveLoop(s)
	case *ast.ReturnStmt:
		if s.Value != nil {
			r.resolveExpr(s.Value)
		}
	case *ast.BadStmt:
		// nothing to resolve; a parse error already recorded the diagnostic
	default:
		panic(fmt.Sprintf("resolver: unhandled statement type %T", s))
	}
}

func (r *resolver) resolveVarDecl(vd *ast.VarDeclStmt, topLevel bool) {
	if vd.Init != nil {
		r.resolveExpr(vd.Init)
	}
	if topLevel {
		return // Loc/Index already set to Global by pass1
	}
	cur := r.currentFrame()
	idx, err := cur.tbl.AddLocal(vd.Name)
	if err != nil {
		r.errorAt(vd.Tok, err.Error())
	}
	vd.Loc = ast.Local
	vd.Index = idx
}

func (r *resolver) resolveFuncDecl(fn *ast.FuncDeclStmt, topLevel bool) {
	if !topLevel {
		cur := r.currentFrame()
		idx, err := cur.tbl.AddLocal(fn.Name)
		if err != nil {
			r.errorAt(fn.Tok, err.Error())
		}
		fn.Loc = ast.Local
		fn.Index = idx
	}
	r.resolveFuncBody(fn)
}

// resolveClass pushes a ctxClass frame exposing the class's fields, resolves
// every field initializer in that context, then resolves every method body
// with the class frame still on the stack beneath the method's own ctxFunc
// frame — this is what lets a bare identifier inside a method resolve
// statically to a Field rather than only through an explicit `self.name`
// (spec 4.4: "Classes additionally build an inner symbol table listing their
// declared fields in source order"; methods themselves are never looked up
// through this mechanism — they are dispatched dynamically by name through
// a Postfix chain at runtime, per spec 4.6).
//
// Nested (non-root) class declarations are a semantic error: pass 1 only
// ever visits root-level declarations, so a local class would have no
// global slot to dispatch through.
func (r *resolver) resolveClass(cd *ast.ClassDeclStmt, topLevel bool) {
	if !topLevel {
		r.errorAt(cd.Tok, "class declarations are only allowed at the top level")
		return
	}

	fields := make(map[string]*ast.VarDeclStmt, len(cd.Fields))
	for _, f := range cd.Fields {
		fields[f.Name] = f
	}
	r.stack = append(r.stack, &frame{kind: ctxClass, fields: fields})

	for _, f := range cd.Fields {
		if f.Init != nil {
			r.resolveExpr(f.Init)
		}
	}
	for i, m := range cd.Methods {
		m.Loc = ast.Field
		m.Index = uint8(i)
		r.resolveFuncBody(m)
	}

	r.stack = r.stack[:len(r.stack)-1]
}

// resolveFuncBody resolves fn's parameters and body in a fresh ctxFunc
// frame. For a method, self is pre-bound as local slot 0 before any
// parameter is added, so every other local is naturally shifted by +1
// (spec 4.4 point 3) with no special-casing anywhere else.
func (r *resolver) resolveFuncBody(fn *ast.FuncDeclStmt) {
	tbl := symtable.New()
	tbl.EnterScope()
	r.stack = append(r.stack, &frame{kind: ctxFunc, tbl: tbl, fn: fn})

	if fn.IsMethod {
		if _, err := tbl.AddLocal("self"); err != nil {
			r.errorAt(fn.Tok, err.Error())
		}
	}
	for _, p := range fn.Params {
		if _, err := tbl.AddLocal(p); err != nil {
			r.errorAt(fn.Tok, err.Error())
		}
	}

	r.resolveBlockStmts(fn.Body.Stmts, false)
	fn.NumLocals = tbl.ExitScope()
	r.stack = r.stack[:len(r.stack)-1]
}

func (r *resolver) resolveLoop(s *ast.LoopStmt) {
	switch s.Kind {
	case ast.LoopWhile:
		r.resolveExpr(s.Cond)
		r.resolveStmt(s.Body, false)
	case ast.LoopForIn:
		r.resolveExpr(s.Iterable)
		cur := r.currentFrame()
		cur.tbl.EnterScope()
		idx, err := cur.tbl.AddLocal(s.IterVar)
		if err != nil {
			r.errorAt(s.Tok, err.Error())
		}
		s.IterVarIndex = idx
		r.resolveBlockStmts(s.Body.Stmts, false)
		cur.tbl.ExitScope()
	}
}

func (r *resolver) resolveExpr(e ast.Expr) {
	switch e := e.(type) {
	case *ast.LiteralExpr:
		// nothing to resolve
	case *ast.VarExpr:
		r.resolveVarExpr(e)
	case *ast.UnaryExpr:
		r.resolveExpr(e.Right)
	case *ast.BinaryExpr:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)
	case *ast.PostfixExpr:
		r.resolveExpr(e.Target)
		for _, c := range e.Chain {
			switch c.Kind {
			case ast.ChainCall:
				for _, a := range c.Args {
					r.resolveExpr(a)
				}
			case ast.ChainSubscript:
				r.resolveExpr(c.Key)
			case ast.ChainAccess:
				// c.Name is resolved to a constant-pool index at codegen time
			}
		}
	case *ast.ListExpr:
		for _, el := range e.Elems {
			r.resolveExpr(el)
		}
	case *ast.FuncExpr:
		r.resolveFuncBody(e.Fn)
	case *ast.BadExpr:
		// nothing to resolve; a parse error already recorded the diagnostic
	default:
		panic(fmt.Sprintf("resolver: unhandled expression type %T", e))
	}
}

// resolveVarExpr classifies ve by walking the context stack from innermost
// to outermost, counting function frames traversed along the way (spec 4.4
// pass 2): the frame being visited when a binding is found (funcsTraversed
// == 1) yields Local; an ancestor function frame (funcsTraversed > 1) yields
// Upvalue and threads a descriptor chain through every intervening function;
// a class frame yields Field; falling off the stack falls back to the
// global table, and finally to an "undefined name" error.
func (r *resolver) resolveVarExpr(ve *ast.VarExpr) {
	funcsTraversed := 0
	for i := len(r.stack) - 1; i >= 0; i-- {
		fr := r.stack[i]
		switch fr.kind {
		case ctxFunc, ctxRoot:
			funcsTraversed++
			if b, ok := fr.tbl.Lookup(ve.Name); ok {
				if funcsTraversed == 1 {
					ve.Loc = ast.Local
					ve.Index = b.Index
				} else {
					ve.Loc = ast.Upvalue
					ve.Index = r.resolveUpvalueChain(i, ve.Name, b.Index)
				}
				return
			}
		case ctxClass:
			if vd, ok := fr.fields[ve.Name]; ok {
				ve.Loc = ast.Field
				ve.Index = vd.Index
				return
			}
		}
	}

	if idx, ok := r.globals[ve.Name]; ok {
		ve.Loc = ast.Global
		ve.Index = idx
		return
	}
	r.errorAt(ve.Tok, fmt.Sprintf("undefined name %q", ve.Name))
}

// resolveUpvalueChain records an upvalue descriptor on every ctxFunc frame
// above definingIdx (where the local lives), up to and including the top of
// the stack (the use site), per spec 4.4: the first such frame, nested
// directly inside the defining one, gets a direct capture of the local;
// every frame further in gets an indirect "re-capture" threading through
// the previous frame's own upvalue index. It returns the upvalue index assigned in the topmost
// (innermost) frame, which is what the use site itself reads.
func (r *resolver) resolveUpvalueChain(definingIdx int, name string, localIndex uint8) uint8 {
	prevIndex := localIndex
	isDirect := true
	var upIdx uint8
	for i := definingIdx + 1; i < len(r.stack); i++ {
		fr := r.stack[i]
		if fr.kind != ctxFunc {
			continue
		}
		upIdx = addUpvalue(fr.fn, name, isDirect, prevIndex)
		prevIndex = upIdx
		isDirect = false
	}
	return upIdx
}

// addUpvalue returns the index of name in fn.Upvalues, appending a new
// descriptor only if one for name isn't already recorded (spec 4.4:
// descriptors are deduplicated by symbol, since the same outer local may be
// referenced more than once in the same function body).
func addUpvalue(fn *ast.FuncDeclStmt, name string, isDirect bool, index uint8) uint8 {
	if i := slices.IndexFunc(fn.Upvalues, func(u ast.UpvalueDescriptor) bool {
		return u.Symbol == name
	}); i >= 0 {
		return uint8(i)
	}
	fn.Upvalues = append(fn.Upvalues, ast.UpvalueDescriptor{IsDirect: isDirect, Index: index, Symbol: name})
	return uint8(len(fn.Upvalues) - 1)
}
