// Package builtins provides the prelude source that's parsed and executed ahead of every user program, declaring
// utility functions written in Lox itself (currently just assert).
package builtins

import (
	_ "embed"
	"strings"

	"github.com/loxrun/loxrun/internal/ast"
	"github.com/loxrun/loxrun/internal/parser"
)

//go:embed prelude.lox
var preludeSource string

// Parse parses the prelude into a standalone Program. It panics if the embedded prelude fails to parse, since that
// would mean the prelude itself is broken, not the user's program.
func Parse() ast.Program {
	program, err := parser.Parse(strings.NewReader(preludeSource))
	if err != nil {
		panic("builtins: prelude failed to parse: " + err.Error())
	}
	return program
}

// Prepend returns a new Program consisting of the prelude's declarations followed by program's, so that the prelude
// is resolved and interpreted as though it were written at the top of the user's source.
func Prepend(program ast.Program) ast.Program {
	prelude := Parse()
	stmts := make([]ast.Stmt, 0, len(prelude.Stmts)+len(program.Stmts))
	stmts = append(stmts, prelude.Stmts...)
	stmts = append(stmts, program.Stmts...)
	return ast.Program{Stmts: stmts}
}
