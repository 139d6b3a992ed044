// Package diag formats compiler and runtime diagnostics. Every phase of the
// pipeline (lexer, parser, resolver, code generator) accumulates into the
// same go/scanner.ErrorList — aliased here exactly as
// lang/scanner/scanner.go does upstream — so there is a single formatting
// path for "line <N>: error: <message>" plus a source excerpt and a
// tab-aware caret (spec section 6).
package diag

import (
	"fmt"
	"go/scanner"
	gotoken "go/token"
	"strings"
)

type (
	// Error is a single positioned diagnostic.
	Error = scanner.Error
	// ErrorList accumulates Errors across compilation phases. Its Err method
	// returns nil if the list is empty, and otherwise an error that exposes
	// Unwrap() []error.
	ErrorList = scanner.ErrorList
)

// PrintError is re-exported for callers that just want the stdlib's default
// one-line-per-error format (e.g. quick CLI debugging); Format below is used
// for the spec's richer excerpt-plus-caret format.
var PrintError = scanner.PrintError

// Add appends a diagnostic at the given 1-based line/col to errs.
func Add(errs *ErrorList, line, col int, msg string) {
	errs.Add(gotoken.Position{Line: line, Column: col}, msg)
}

// Format renders every error in errs against src (the original source
// text), one diagnostic per error, in the form:
//
//	line <N>: error: <message>
//	<source line>
//	   ^
//
// The caret column accounts for tab expansion one-for-one, i.e. a tab in
// the source line is rendered as a single space under the caret, matching
// the single character it occupies in col accounting.
func Format(src []byte, errs ErrorList) string {
	if len(errs) == 0 {
		return ""
	}
	lines := strings.Split(string(src), "\n")
	var sb strings.Builder
	for _, e := range errs {
		fmt.Fprintf(&sb, "line %d: error: %s\n", e.Pos.Line, e.Msg)
		if e.Pos.Line >= 1 && e.Pos.Line <= len(lines) {
			srcLine := lines[e.Pos.Line-1]
			sb.WriteString(srcLine)
			sb.WriteByte('\n')
			if e.Pos.Column >= 1 {
				sb.WriteString(strings.Repeat(" ", e.Pos.Column-1))
				sb.WriteString("^\n")
			}
		}
	}
	return sb.String()
}
