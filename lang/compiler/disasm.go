package compiler

import (
	"fmt"
	"strings"
)

// Disassemble renders fn's bytecode as one line per instruction, in the
// style of a textual debugger dump: offset, mnemonic, operands and, for
// LOADK/LOADI, the constant or immediate value. Nested *Function and
// *Class constants are rendered by name only — call Disassemble
// recursively to see their own bodies.
func Disassemble(fn *Function) string {
	var b strings.Builder
	fmt.Fprintf(&b, "function %s(%d params, %d locals)\n", fn.Name, fn.NumParams, fn.NumLocals)
	code := fn.Code
	for ip := 0; ip < len(code); {
		op := Opcode(code[ip])
		n := op.numOperands()
		fmt.Fprintf(&b, "%4d  %s", ip, op)
		for k := 0; k < n; k++ {
			fmt.Fprintf(&b, " %d", code[ip+1+k])
		}
		if (op == LOADK) && len(code) > ip+1 {
			idx := int(code[ip+1])
			if idx < len(fn.Consts) {
				fmt.Fprintf(&b, "  ; %s", constString(fn.Consts[idx]))
			}
		}
		b.WriteByte('\n')
		ip += 1 + n
	}
	return b.String()
}

func constString(v any) string {
	switch v := v.(type) {
	case *Function:
		return fmt.Sprintf("<function %s>", v.Name)
	case *Class:
		return fmt.Sprintf("<class %s>", v.Name)
	case string:
		return fmt.Sprintf("%q", v)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", v)
	}
}
