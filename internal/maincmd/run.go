package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/sprout/lang/ast"
	"github.com/mna/sprout/lang/compiler"
	"github.com/mna/sprout/lang/machine"
	"github.com/mna/sprout/lang/parser"
	"github.com/mna/sprout/lang/resolver"
)

// run drives the full parse -> resolve -> compile -> execute pipeline
// against c.args[0], honoring the debug flags: --show-ast and --dump-cpool
// print an intermediate representation before the script runs, while
// --disasm-func and --compile-only stop before executing.
func (c *Cmd) run(ctx context.Context, stdio mainer.Stdio) error {
	src, err := os.ReadFile(c.args[0])
	if err != nil {
		return err
	}

	prog, err := parser.Parse(src)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	rootLocals, err := resolver.Resolve(prog)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	if c.ShowAST {
		p := ast.Printer{Output: stdio.Stdout}
		if err := p.Print(prog); err != nil {
			return fmt.Errorf("print ast: %w", err)
		}
	}

	compiled, err := compiler.Compile(prog, rootLocals)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}

	if c.DumpCpool {
		for i, k := range compiled.Main.Consts {
			fmt.Fprintf(stdio.Stdout, "%4d  %#v\n", i, k)
		}
	}

	if c.DisasmFunc != "" {
		fn := findFunction(compiled.Main, c.DisasmFunc)
		if fn == nil {
			return fmt.Errorf("disasm: no function named %q", c.DisasmFunc)
		}
		fmt.Fprint(stdio.Stdout, compiler.Disassemble(fn))
		return nil
	}

	if c.CompileOnly {
		return nil
	}

	m := machine.New(stdio.Stdout)
	_, err = m.Run(compiled)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

// findFunction looks up name ("main" for the top-level script) among
// main's own constants and, recursively, every nested function and class
// method constant, since the compiler keeps no single registry of every
// *compiler.Function in a program.
func findFunction(main *compiler.Function, name string) *compiler.Function {
	if name == "main" || name == main.Name {
		return main
	}
	return searchConsts(main.Consts, name, map[*compiler.Function]bool{main: true})
}

func searchConsts(consts []any, name string, seen map[*compiler.Function]bool) *compiler.Function {
	for _, k := range consts {
		switch k := k.(type) {
		case *compiler.Function:
			if seen[k] {
				continue
			}
			seen[k] = true
			if k.Name == name {
				return k
			}
			if fn := searchConsts(k.Consts, name, seen); fn != nil {
				return fn
			}
		case *compiler.Class:
			for _, m := range k.Methods {
				if seen[m] {
					continue
				}
				seen[m] = true
				if m.Name == name {
					return m
				}
				if fn := searchConsts(m.Consts, name, seen); fn != nil {
					return fn
				}
			}
		}
	}
	return nil
}
