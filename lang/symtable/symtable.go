// Package symtable implements the scoped symbol table described in spec
// 4.3: a stack of scopes mapping identifier to declaration slot, supporting
// enter/exit-scope and lookup walking outward. It is used by the resolver
// (lang/resolver) while it plans local slots within a single function body;
// global and upvalue indices are tracked directly by the resolver since
// they span scope boundaries differently than locals do.
//
// Local slot indices are dense across the whole function (spec 3: "the N
// locals of a function are numbered 0..N-1"), not reset at each nested
// block: a single running counter is shared by every scope of a Table, and
// entering/exiting a scope only affects which names are visible for
// shadowing and duplicate-declaration checks.
package symtable

import (
	"fmt"

	"github.com/mna/sprout/lang/ast"
)

// Binding is what a scope maps a symbol name to.
type Binding struct {
	Loc   ast.Location
	Index uint8
	Level int // scope depth at which the symbol was bound
}

type scope struct {
	syms map[string]*Binding
}

// Table is a stack of scopes for a single function body, sharing one
// dense local-slot counter.
type Table struct {
	scopes []*scope
	next   uint8 // next dense slot index to assign, shared across all scopes
}

// New returns an empty Table with no open scopes.
func New() *Table {
	return &Table{}
}

// EnterScope pushes a new, empty scope.
func (t *Table) EnterScope() {
	t.scopes = append(t.scopes, &scope{syms: make(map[string]*Binding)})
}

// ExitScope pops the top scope and returns the total number of locals
// declared in the Table so far (spec 4.3: "used to size a function's local
// frame" — sizing the whole function's frame requires the running total,
// not just the exiting scope's own count, since slots are never reused
// across sibling blocks).
func (t *Table) ExitScope() int {
	n := len(t.scopes)
	if n == 0 {
		panic("symtable: ExitScope with no open scope")
	}
	t.scopes = t.scopes[:n-1]
	return int(t.next)
}

// Depth returns the number of currently open scopes.
func (t *Table) Depth() int { return len(t.scopes) }

// AddLocal assigns the next dense index to name, visible from the current
// (innermost) scope outward. Returns an error if name is already bound in
// the current scope — redefinition within the same scope is a
// compile-time error (spec 4.3) — or if the function has exceeded 255
// locals (spec 7: "local-count overflow (> 255)").
func (t *Table) AddLocal(name string) (uint8, error) {
	if len(t.scopes) == 0 {
		panic("symtable: AddLocal with no open scope")
	}
	top := t.scopes[len(t.scopes)-1]
	if _, ok := top.syms[name]; ok {
		return 0, fmt.Errorf("%q redeclared in this scope", name)
	}
	if int(t.next) >= 255 {
		return 0, fmt.Errorf("too many locals: %q exceeds the 255-local limit", name)
	}
	idx := t.next
	t.next++
	top.syms[name] = &Binding{Loc: ast.Local, Index: idx, Level: len(t.scopes)}
	return idx, nil
}

// Lookup walks outward from the top scope and returns the first hit.
func (t *Table) Lookup(name string) (*Binding, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if b, ok := t.scopes[i].syms[name]; ok {
			return b, true
		}
	}
	return nil, false
}

// LookupLocal looks up name only in the current (innermost) scope.
func (t *Table) LookupLocal(name string) (*Binding, bool) {
	if len(t.scopes) == 0 {
		return nil, false
	}
	b, ok := t.scopes[len(t.scopes)-1].syms[name]
	return b, ok
}
