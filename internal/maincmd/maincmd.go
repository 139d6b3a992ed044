// Package maincmd implements the sprout command-line tool: a single
// action, "run a script", instrumented with debug flags that print an
// intermediate result (--disasm-func and --compile-only also stop before
// executing), grounded on the
// teacher's internal/maincmd (mainer.Cmd, a flat Cmd struct with
// struct-tag-bound flags, SetArgs/SetFlags/Validate/Main).
//
// The teacher routes one CLI subcommand per compiler phase (parse,
// resolve, tokenize) via reflection over Cmd's methods, because
// nenuphar's own CLI purpose is to expose each phase of a library
// meant to be embedded elsewhere. sprout is a standalone interpreter:
// its default action is "execute this script", so the phases become
// flags on that one action instead of separate verbs.
package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mna/mainer"
)

const binName = "sprout"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <path>
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <path>
       %[1]s -h|--help
       %[1]s -v|--version

Interpreter for the %[1]s scripting language: parses, resolves,
compiles and executes <path>, printing anything the script writes via
print/println to stdout.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       -ast --show-ast           Print the resolved AST before running.
       -dasm --disasm-func=NAME  Print the bytecode disassembly of the
                                 named function ("main" for the
                                 top-level script) instead of running.
       -cpool --dump-cpool       Print the top-level function's
                                 constant pool before running.
       -c --compile-only         Stop after compiling; do not execute.

More information on the %[1]s repository:
       https://github.com/mna/sprout
`, binName)
)

// Cmd is the sprout command. Its fields are populated by mainer from
// flags and positional arguments (struct tag -> flag name mapping).
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help        bool   `flag:"h,help"`
	Version     bool   `flag:"v,version"`
	ShowAST     bool   `flag:"ast,show-ast"`
	DisasmFunc  string `flag:"dasm,disasm-func"`
	DumpCpool   bool   `flag:"cpool,dump-cpool"`
	CompileOnly bool   `flag:"c,compile-only"`

	args []string
}

func (c *Cmd) SetArgs(args []string)          { c.args = args }
func (c *Cmd) SetFlags(flags map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) != 1 {
		return errors.New("exactly one script path must be provided")
	}
	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{EnvVars: false, EnvPrefix: binName + "_"}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.run(ctx, stdio); err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
		return mainer.Failure
	}
	return mainer.Success
}
