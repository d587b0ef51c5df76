package interpreter

import (
	"github.com/loxrun/loxrun/internal/loxerr"
	"github.com/loxrun/loxrun/internal/token"
)

// environment holds the variable bindings introduced by one lexical scope, linked to its enclosing scope so that
// lookups can walk outward when a name isn't found locally.
type environment struct {
	parent *environment
	values map[string]loxObject
}

func newEnvironment() *environment {
	return &environment{values: make(map[string]loxObject)}
}

// child creates a new environment nested directly inside e.
func (e *environment) child() *environment {
	return &environment{parent: e, values: make(map[string]loxObject)}
}

// define binds name to value in this environment, overwriting any existing binding. It's used for variable and
// function declarations and for binding parameters, where redeclaration is allowed by design (unlike the resolver's
// compile-time duplicate-declaration check for locals).
func (e *environment) define(name string, value loxObject) {
	e.values[name] = value
}

// assign updates an existing binding for tok's lexeme in this environment. It raises a runtime error if the name
// hasn't been defined anywhere in this environment (not its ancestors).
func (e *environment) assign(tok token.Token, value loxObject) {
	if _, ok := e.values[tok.Lexeme]; !ok {
		panic(loxerr.NewRuntimeErrorFromToken(tok, "Undefined variable '%s'.", tok.Lexeme))
	}
	e.values[tok.Lexeme] = value
}

// assignAt updates the binding for tok's lexeme in the environment distance scopes up the parent chain.
func (e *environment) assignAt(distance int, tok token.Token, value loxObject) {
	e.ancestor(distance).assign(tok, value)
}

// get returns the value bound to tok's lexeme in this environment, raising a runtime error if it isn't bound here.
func (e *environment) get(tok token.Token) loxObject {
	if value, ok := e.values[tok.Lexeme]; ok {
		return value
	}
	panic(loxerr.NewRuntimeErrorFromToken(tok, "Undefined variable '%s'.", tok.Lexeme))
}

// getAt returns the value bound to tok's lexeme in the environment distance scopes up the parent chain.
func (e *environment) getAt(distance int, tok token.Token) loxObject {
	return e.ancestor(distance).get(tok)
}

// getByName looks a name up directly, bypassing the resolver's distance map. Used for synthetic bindings (this,
// super) which the interpreter defines itself rather than through user declarations.
func (e *environment) getByName(name string) loxObject {
	return e.values[name]
}

func (e *environment) ancestor(distance int) *environment {
	env := e
	for range distance {
		env = env.parent
	}
	return env
}
