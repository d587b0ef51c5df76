// Package loxerr provides the diagnostic types shared by the lexer, parser, resolver, and interpreter.
package loxerr

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/loxrun/loxrun/internal/token"
)

var (
	bold = color.New(color.Bold)
	red  = color.New(color.Bold, color.FgRed)
)

// Error describes a problem found while scanning, parsing, or resolving a Lox program. It's attributed to a single
// source line and, where relevant, a token.
//
// Its string form matches the classic tree-walking interpreter convention:
//
//	[line 3] Error at 'x': undefined variable
//	[line 7] Error at end: expect ';' after value
type Error struct {
	Line    int
	Where   string // e.g. "at 'x'" or "at end"; empty if the error isn't attributable to a specific token
	Message string
}

// New creates an [*Error] attributed to line with no specific token.
func New(line int, format string, args ...any) *Error {
	return &Error{Line: line, Message: fmt.Sprintf(format, args...)}
}

// NewFromToken creates an [*Error] attributed to tok.
func NewFromToken(tok token.Token, format string, args ...any) *Error {
	where := "at end"
	if tok.Type != token.EOF {
		where = fmt.Sprintf("at '%s'", tok.Lexeme)
	}
	return &Error{Line: tok.Line, Where: where, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[line %d] ", e.Line)
	red.Fprint(&b, "Error")
	if e.Where != "" {
		fmt.Fprintf(&b, " %s", e.Where)
	}
	fmt.Fprintf(&b, ": %s", e.Message)
	return b.String()
}

// Errors is an accumulator of [*Error]s, used by the lexer, parser, and resolver to collect every diagnostic found in
// a single pass rather than stopping at the first one.
type Errors []*Error

// Add appends an [*Error] attributed to line.
func (e *Errors) Add(line int, format string, args ...any) {
	*e = append(*e, New(line, format, args...))
}

// AddFromToken appends an [*Error] attributed to tok.
func (e *Errors) AddFromToken(tok token.Token, format string, args ...any) {
	*e = append(*e, NewFromToken(tok, format, args...))
}

// Err sorts the accumulated errors by source line and joins them into a single error, or returns nil if there are
// none.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	sorted := make(Errors, len(e))
	copy(sorted, e)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Line < sorted[j].Line })
	errs := make([]error, len(sorted))
	for i, err := range sorted {
		errs[i] = err
	}
	return errors.Join(errs...)
}

// RuntimeError describes an error raised while interpreting an already-parsed Lox program: a type mismatch, an
// undefined variable, a call to a non-callable value, and so on.
//
// Its string form is:
//
//	undefined variable 'x'
//	[line 3]
type RuntimeError struct {
	Message string
	Line    int
}

// NewRuntimeError creates a [*RuntimeError] attributed to line.
func NewRuntimeError(line int, format string, args ...any) *RuntimeError {
	return &RuntimeError{Message: fmt.Sprintf(format, args...), Line: line}
}

// NewRuntimeErrorFromToken creates a [*RuntimeError] attributed to tok's line.
func NewRuntimeErrorFromToken(tok token.Token, format string, args ...any) *RuntimeError {
	return NewRuntimeError(tok.Line, format, args...)
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	bold.Fprint(&b, e.Message)
	fmt.Fprintf(&b, "\n[line %d]", e.Line)
	return b.String()
}
