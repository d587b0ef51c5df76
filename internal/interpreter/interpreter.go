// Package interpreter tree-walks a resolved Lox program, evaluating its statements and expressions directly against
// a chain of lexical environments.
package interpreter

import (
	"fmt"
	"io"
	"os"

	"github.com/loxrun/loxrun/internal/ast"
	"github.com/loxrun/loxrun/internal/loxerr"
	"github.com/loxrun/loxrun/internal/resolver"
	"github.com/loxrun/loxrun/internal/token"
)

// Interpreter executes Lox programs, keeping global state (variables, functions, classes) alive between calls so
// that a REPL session can build on what came before.
type Interpreter struct {
	globals   *environment
	distances map[token.Token]int

	stdout io.Writer

	// replMode causes expression statements to print their value, matching the REPL's behaviour of echoing the
	// result of whatever was just typed.
	replMode bool
}

// Option configures an Interpreter constructed with New.
type Option func(*Interpreter)

// REPLMode causes expression statements to print their result, as the interactive REPL does.
func REPLMode() Option {
	return func(i *Interpreter) { i.replMode = true }
}

// WithStdout redirects print statement output away from os.Stdout, for use in tests.
func WithStdout(w io.Writer) Option {
	return func(i *Interpreter) { i.stdout = w }
}

// New constructs an Interpreter with its global environment populated with the native builtins.
func New(opts ...Option) *Interpreter {
	globals := newEnvironment()
	interp := &Interpreter{globals: globals, distances: map[token.Token]int{}, stdout: os.Stdout}
	for name, fn := range builtins() {
		globals.define(name, fn)
	}
	for _, opt := range opts {
		opt(interp)
	}
	return interp
}

// Interpret resolves and executes program, maintaining global state across calls so that a REPL can interpret one
// line at a time. Resolution and runtime errors are both returned as error values; the interpreter never panics past
// this call for a well-formed program.
func (i *Interpreter) Interpret(program ast.Program) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if runtimeErr, ok := r.(*loxerr.RuntimeError); ok {
				err = runtimeErr
				return
			}
			panic(r)
		}
	}()

	distances, err := resolver.Resolve(program)
	if err != nil {
		return err
	}
	for tok, distance := range distances {
		i.distances[tok] = distance
	}

	for _, stmt := range program.Stmts {
		i.execStmt(i.globals, stmt)
	}
	return nil
}

// stmtResult is the control-flow signal produced by executing a statement: either nothing of note or a break out of
// the nearest loop. It's how break unwinds without relying on panic/recover, since (unlike parse errors) it's part of
// normal program flow. Return uses returnSignal instead.
type stmtResult interface{ isStmtResult() }

type stmtResultNone struct{}

func (stmtResultNone) isStmtResult() {}

type stmtResultBreak struct{}

func (stmtResultBreak) isStmtResult() {}

// returnSignal is still delivered via panic/recover rather than stmtResult, because a return can unwind through
// nested block and loop statements in the middle of evaluating an expression (e.g. inside a call argument), at a
// point where propagating a stmtResult return value up through evalExpr's call chain isn't possible.
type returnSignal struct{ value loxObject }

func (i *Interpreter) execStmt(env *environment, stmt ast.Stmt) stmtResult {
	switch stmt := stmt.(type) {
	case ast.VarDecl:
		i.execVarDecl(env, stmt)
	case ast.FunDecl:
		env.define(stmt.Name.Lexeme, &loxFunction{name: stmt.Name.Lexeme, params: stmt.Params, body: stmt.Body, closure: env})
	case ast.ClassDecl:
		i.execClassDecl(env, stmt)
	case ast.ExprStmt:
		value := i.evalExpr(env, stmt.Expr)
		if i.replMode {
			fmt.Fprintln(i.stdout, value.String())
		}
	case ast.PrintStmt:
		fmt.Fprintln(i.stdout, i.evalExpr(env, stmt.Expr).String())
	case ast.BlockStmt:
		return i.execBlock(stmt.Stmts, env.child())
	case ast.IfStmt:
		return i.execIfStmt(env, stmt)
	case ast.WhileStmt:
		return i.execWhileStmt(env, stmt)
	case ast.BreakStmt:
		return stmtResultBreak{}
	case ast.ReturnStmt:
		var value loxObject = loxNil{}
		if stmt.Value != nil {
			value = i.evalExpr(env, stmt.Value)
		}
		panic(returnSignal{value: value})
	case ast.IllegalStmt:
		// A syntax error was already reported while parsing; skip it.
	default:
		panic(fmt.Sprintf("interpreter: unexpected statement type %T", stmt))
	}
	return stmtResultNone{}
}

func (i *Interpreter) execVarDecl(env *environment, stmt ast.VarDecl) {
	var value loxObject = loxNil{}
	if stmt.Initialiser != nil {
		value = i.evalExpr(env, stmt.Initialiser)
	}
	env.define(stmt.Name.Lexeme, value)
}

func (i *Interpreter) execClassDecl(env *environment, stmt ast.ClassDecl) {
	var superclass *loxClass
	if stmt.Superclass != nil {
		superVal := i.evalExpr(env, *stmt.Superclass)
		var ok bool
		superclass, ok = superVal.(*loxClass)
		if !ok {
			panic(loxerr.NewRuntimeErrorFromToken(stmt.Superclass.Name, "Superclass must be a class."))
		}
	}

	methodEnv := env
	if superclass != nil {
		methodEnv = env.child()
		methodEnv.define(token.SuperIdent, superclass)
	}

	methods := make(map[string]*loxFunction, len(stmt.Methods))
	for _, decl := range stmt.Methods {
		methods[decl.Name.Lexeme] = &loxFunction{
			name:          stmt.Name.Lexeme + "." + decl.Name.Lexeme,
			params:        decl.Params,
			body:          decl.Body,
			closure:       methodEnv,
			isInitialiser: decl.Name.Lexeme == "init",
		}
	}

	class := &loxClass{name: stmt.Name.Lexeme, superclass: superclass, methods: methods}
	env.define(stmt.Name.Lexeme, class)
}

// execBlock executes stmts in env, which the caller has already set up as the block's own scope (a fresh child
// environment, or a function call's parameter environment).
func (i *Interpreter) execBlock(stmts []ast.Stmt, env *environment) stmtResult {
	for _, stmt := range stmts {
		if result := i.execStmt(env, stmt); result != (stmtResultNone{}) {
			return result
		}
	}
	return stmtResultNone{}
}

func (i *Interpreter) execIfStmt(env *environment, stmt ast.IfStmt) stmtResult {
	if truthy(i.evalExpr(env, stmt.Condition)) {
		return i.execStmt(env, stmt.Then)
	}
	if stmt.Else != nil {
		return i.execStmt(env, stmt.Else)
	}
	return stmtResultNone{}
}

func (i *Interpreter) execWhileStmt(env *environment, stmt ast.WhileStmt) stmtResult {
	for truthy(i.evalExpr(env, stmt.Condition)) {
		if _, ok := i.execStmt(env, stmt.Body).(stmtResultBreak); ok {
			return stmtResultNone{}
		}
	}
	return stmtResultNone{}
}

func (i *Interpreter) evalExpr(env *environment, expr ast.Expr) loxObject {
	switch expr := expr.(type) {
	case ast.LiteralExpr:
		return i.evalLiteralExpr(expr)
	case ast.GroupExpr:
		return i.evalExpr(env, expr.Expr)
	case ast.VariableExpr:
		return i.lookUpVariable(env, expr.Name)
	case ast.AssignmentExpr:
		return i.evalAssignmentExpr(env, expr)
	case ast.UnaryExpr:
		return i.evalUnaryExpr(env, expr)
	case ast.BinaryExpr:
		return i.evalBinaryExpr(env, expr)
	case ast.LogicalExpr:
		return i.evalLogicalExpr(env, expr)
	case ast.CallExpr:
		return i.evalCallExpr(env, expr)
	case ast.GetExpr:
		return i.evalGetExpr(env, expr)
	case ast.SetExpr:
		return i.evalSetExpr(env, expr)
	case ast.ThisExpr:
		return i.lookUpVariable(env, expr.Keyword)
	case ast.SuperExpr:
		return i.evalSuperExpr(env, expr)
	default:
		panic(fmt.Sprintf("interpreter: unexpected expression type %T", expr))
	}
}

func (i *Interpreter) evalLiteralExpr(expr ast.LiteralExpr) loxObject {
	tok := expr.Value
	switch tok.Type {
	case token.Number:
		return loxNumber(tok.Literal.(float64))
	case token.String:
		return loxString(tok.Literal.(string))
	case token.True, token.False:
		return loxBool(tok.Type == token.True)
	case token.Nil:
		return loxNil{}
	default:
		panic(fmt.Sprintf("interpreter: unexpected literal token type %s", tok.Type))
	}
}

// lookUpVariable resolves tok using the resolver's distance map, falling back to a dynamic global lookup for names
// the resolver couldn't attribute to a local scope.
func (i *Interpreter) lookUpVariable(env *environment, tok token.Token) loxObject {
	if distance, ok := i.distances[tok]; ok {
		return env.getAt(distance, tok)
	}
	return i.globals.get(tok)
}

func (i *Interpreter) evalAssignmentExpr(env *environment, expr ast.AssignmentExpr) loxObject {
	value := i.evalExpr(env, expr.Value)
	if distance, ok := i.distances[expr.Name]; ok {
		env.assignAt(distance, expr.Name, value)
	} else {
		i.globals.assign(expr.Name, value)
	}
	return value
}

func (i *Interpreter) evalUnaryExpr(env *environment, expr ast.UnaryExpr) loxObject {
	right := i.evalExpr(env, expr.Right)
	if expr.Op.Type == token.Bang {
		return loxBool(!truthy(right))
	}
	operand, ok := right.(loxUnaryOperand)
	if !ok {
		panic(loxerr.NewRuntimeErrorFromToken(expr.Op, "Operand must be a number."))
	}
	return operand.UnaryOp(expr.Op)
}

func (i *Interpreter) evalBinaryExpr(env *environment, expr ast.BinaryExpr) loxObject {
	left := i.evalExpr(env, expr.Left)
	right := i.evalExpr(env, expr.Right)

	// Equality is defined for every pair of values, so it's handled uniformly here rather than through
	// loxBinaryOperand, which only the arithmetic/ordering operators require.
	switch expr.Op.Type {
	case token.EqualEqual:
		return loxBool(loxEqual(left, right))
	case token.BangEqual:
		return loxBool(!loxEqual(left, right))
	}

	operand, ok := left.(loxBinaryOperand)
	if !ok {
		panic(loxerr.NewRuntimeErrorFromToken(expr.Op, "Operands must be numbers or strings."))
	}
	return operand.BinaryOp(expr.Op, right)
}

func (i *Interpreter) evalLogicalExpr(env *environment, expr ast.LogicalExpr) loxObject {
	left := i.evalExpr(env, expr.Left)
	if expr.Op.Type == token.Or {
		if truthy(left) {
			return left
		}
		return i.evalExpr(env, expr.Right)
	}
	if !truthy(left) {
		return left
	}
	return i.evalExpr(env, expr.Right)
}

func (i *Interpreter) evalCallExpr(env *environment, expr ast.CallExpr) loxObject {
	callee := i.evalExpr(env, expr.Callee)
	args := make([]loxObject, len(expr.Args))
	for j, arg := range expr.Args {
		args[j] = i.evalExpr(env, arg)
	}

	callable, ok := callee.(loxCallable)
	if !ok {
		panic(loxerr.NewRuntimeErrorFromToken(expr.Paren, "Can only call functions and classes."))
	}
	if len(args) != callable.Arity() {
		panic(loxerr.NewRuntimeErrorFromToken(expr.Paren, "Expected %d arguments but got %d.", callable.Arity(), len(args)))
	}
	return callable.Call(i, args)
}

func (i *Interpreter) evalGetExpr(env *environment, expr ast.GetExpr) loxObject {
	object := i.evalExpr(env, expr.Object)
	instance, ok := object.(*loxInstance)
	if !ok {
		panic(loxerr.NewRuntimeErrorFromToken(expr.Name, "Only instances have properties."))
	}
	return instance.getProperty(expr.Name)
}

func (i *Interpreter) evalSetExpr(env *environment, expr ast.SetExpr) loxObject {
	object := i.evalExpr(env, expr.Object)
	instance, ok := object.(*loxInstance)
	if !ok {
		panic(loxerr.NewRuntimeErrorFromToken(expr.Name, "Only instances have fields."))
	}
	value := i.evalExpr(env, expr.Value)
	instance.setProperty(expr.Name, value)
	return value
}

func (i *Interpreter) evalSuperExpr(env *environment, expr ast.SuperExpr) loxObject {
	distance := i.distances[expr.Keyword]
	superclass := env.getAt(distance, expr.Keyword).(*loxClass)
	// "this" is always defined exactly one scope inside "super": execClassDecl's environment holds "super", and
	// loxFunction.bind defines "this" in a child of it.
	instance := env.getAt(distance-1, token.Token{Lexeme: token.ThisIdent}).(*loxInstance)

	method := superclass.findMethod(expr.Method.Lexeme)
	if method == nil {
		panic(loxerr.NewRuntimeErrorFromToken(expr.Method, "Undefined property '%s'.", expr.Method.Lexeme))
	}
	return method.bind(instance)
}
