package interpreter

import (
	"fmt"
	"strconv"

	"github.com/loxrun/loxrun/internal/ast"
	"github.com/loxrun/loxrun/internal/loxerr"
	"github.com/loxrun/loxrun/internal/token"
)

// loxObject is the value produced by evaluating any Lox expression. Every runtime value implements it; additional
// capabilities (being callable, being truthy, supporting an operator) are expressed as further interfaces that a
// concrete type may or may not implement, following the same capability-interface style as the rest of the
// interpreter rather than a closed visitor hierarchy.
type loxObject interface {
	// String returns the representation of the value as printed by the print statement.
	String() string
	// Type returns the name of the value's type.
	Type() string
}

// loxTruther is implemented by values with a custom truthiness. Only nil and false are falsy in Lox; everything else,
// including loxNumber(0), is truthy.
type loxTruther interface {
	Truthy() bool
}

// loxUnaryOperand is implemented by values that support unary minus. Logical not (!) is handled for every value by
// evalUnaryExpr through truthiness, not through this interface.
type loxUnaryOperand interface {
	UnaryOp(op token.Token) loxObject
}

// loxBinaryOperand is implemented by values that support arithmetic and ordering operators (+, -, *, /, <, <=, >,
// >=). Equality (==, !=) is handled uniformly for every value by loxEqual rather than through this interface:
// equality must be total over every pair of Lox values, including nil and user-defined types, so it can never
// error the way the arithmetic/ordering operators do on a type mismatch.
type loxBinaryOperand interface {
	BinaryOp(op token.Token, right loxObject) loxObject
}

// loxEqual implements Lox's structural equality: nil equals only nil, primitives compare by value (with IEEE-754
// rules for numbers, so NaN != NaN), and every other type compares by reference, matching the interpreter's
// shared-ownership object model.
func loxEqual(a, b loxObject) bool {
	switch a := a.(type) {
	case loxNil:
		_, ok := b.(loxNil)
		return ok
	case loxBool:
		bb, ok := b.(loxBool)
		return ok && a == bb
	case loxNumber:
		bb, ok := b.(loxNumber)
		return ok && a == bb
	case loxString:
		bb, ok := b.(loxString)
		return ok && a == bb
	default:
		return a == b
	}
}

// loxCallable is implemented by values that can appear as the callee of a call expression: functions, methods, and
// classes (whose "call" constructs an instance).
type loxCallable interface {
	Arity() int
	Call(interp *Interpreter, args []loxObject) loxObject
}

// loxNil is the single Lox nil value.
type loxNil struct{}

func (loxNil) String() string { return "nil" }
func (loxNil) Type() string   { return "nil" }
func (loxNil) Truthy() bool   { return false }

// loxBool is a Lox boolean.
type loxBool bool

func (b loxBool) String() string { return strconv.FormatBool(bool(b)) }
func (loxBool) Type() string     { return "boolean" }
func (b loxBool) Truthy() bool   { return bool(b) }

// loxNumber is a Lox number, stored as an IEEE-754 double, matching the float64 semantics required throughout
// arithmetic and comparison.
type loxNumber float64

func (n loxNumber) String() string {
	s := strconv.FormatFloat(float64(n), 'f', -1, 64)
	return s
}

func (loxNumber) Type() string { return "number" }

func (n loxNumber) UnaryOp(op token.Token) loxObject {
	if op.Type == token.Minus {
		return -n
	}
	panic(loxerr.NewRuntimeErrorFromToken(op, "Operand must be a number."))
}

func (n loxNumber) BinaryOp(op token.Token, right loxObject) loxObject {
	r, ok := right.(loxNumber)
	if !ok {
		if op.Type == token.Plus {
			panic(loxerr.NewRuntimeErrorFromToken(op, "Operands must be two numbers or two strings."))
		}
		panic(loxerr.NewRuntimeErrorFromToken(op, "Operands must be numbers."))
	}
	switch op.Type {
	case token.Plus:
		return n + r
	case token.Minus:
		return n - r
	case token.Asterisk:
		return n * r
	case token.Slash:
		return n / r // IEEE-754 division: n/0 yields +Inf, -Inf, or NaN, never a runtime error.
	case token.Less:
		return loxBool(n < r)
	case token.LessEqual:
		return loxBool(n <= r)
	case token.Greater:
		return loxBool(n > r)
	case token.GreaterEqual:
		return loxBool(n >= r)
	default:
		panic(fmt.Sprintf("interpreter: unexpected number operator %s", op.Type))
	}
}

// loxString is a Lox string.
type loxString string

func (s loxString) String() string { return string(s) }
func (loxString) Type() string     { return "string" }

func (s loxString) BinaryOp(op token.Token, right loxObject) loxObject {
	r, ok := right.(loxString)
	if op.Type == token.Plus {
		if !ok {
			panic(loxerr.NewRuntimeErrorFromToken(op, "Operands must be two numbers or two strings."))
		}
		return s + r
	}
	panic(loxerr.NewRuntimeErrorFromToken(op, "Operands must be numbers."))
}

// loxFunction is a user-defined function or method: a closure over the environment it was declared in.
type loxFunction struct {
	name          string
	params        []token.Token
	body          []ast.Stmt
	closure       *environment
	isInitialiser bool
}

func (f *loxFunction) String() string { return fmt.Sprintf("<fn %s>", f.name) }
func (*loxFunction) Type() string     { return "function" }
func (f *loxFunction) Arity() int     { return len(f.params) }

func (f *loxFunction) Call(interp *Interpreter, args []loxObject) (result loxObject) {
	env := f.closure.child()
	for i, param := range f.params {
		env.define(param.Lexeme, args[i])
	}

	defer func() {
		if r := recover(); r != nil {
			if ret, ok := r.(returnSignal); ok {
				if f.isInitialiser {
					result = f.closure.getByName(token.ThisIdent)
					return
				}
				result = ret.value
				return
			}
			panic(r)
		}
	}()

	interp.execBlock(f.body, env)

	if f.isInitialiser {
		return f.closure.getByName(token.ThisIdent)
	}
	return loxNil{}
}

// bind returns a copy of the method bound to instance, by wrapping the method's closure in a new environment that
// defines "this". Each call to a method rebinds it to whichever instance it was looked up on.
func (f *loxFunction) bind(instance *loxInstance) *loxFunction {
	env := f.closure.child()
	env.define(token.ThisIdent, instance)
	return &loxFunction{name: f.name, params: f.params, body: f.body, closure: env, isInitialiser: f.isInitialiser}
}

// loxClass is a Lox class: a named collection of methods, with an optional superclass to fall back to.
type loxClass struct {
	name       string
	superclass *loxClass
	methods    map[string]*loxFunction
}

func (c *loxClass) String() string { return c.name }
func (*loxClass) Type() string     { return "class" }

// findMethod looks up name in c's own methods, then its superclass chain.
func (c *loxClass) findMethod(name string) *loxFunction {
	if m, ok := c.methods[name]; ok {
		return m
	}
	if c.superclass != nil {
		return c.superclass.findMethod(name)
	}
	return nil
}

func (c *loxClass) Arity() int {
	if init := c.findMethod("init"); init != nil {
		return init.Arity()
	}
	return 0
}

// Call constructs a new instance of c, running its init method (if any) with args.
func (c *loxClass) Call(interp *Interpreter, args []loxObject) loxObject {
	instance := &loxInstance{class: c, fields: make(map[string]loxObject)}
	if init := c.findMethod("init"); init != nil {
		init.bind(instance).Call(interp, args)
	}
	return instance
}

// loxInstance is an instance of a loxClass, holding its own field values.
type loxInstance struct {
	class  *loxClass
	fields map[string]loxObject
}

func (i *loxInstance) String() string { return i.class.name + " instance" }
func (i *loxInstance) Type() string   { return i.class.name }

// getProperty looks name up as a field first, then as a method bound to i.
func (i *loxInstance) getProperty(name token.Token) loxObject {
	if v, ok := i.fields[name.Lexeme]; ok {
		return v
	}
	if m := i.class.findMethod(name.Lexeme); m != nil {
		return m.bind(i)
	}
	panic(loxerr.NewRuntimeErrorFromToken(name, "Undefined property '%s'.", name.Lexeme))
}

func (i *loxInstance) setProperty(name token.Token, value loxObject) {
	i.fields[name.Lexeme] = value
}

// builtinFunction wraps a native Go function as a callable Lox value, used for the natives installed by builtins
// (currently just clock).
type builtinFunction struct {
	name  string
	arity int
	fn    func(args []loxObject) loxObject
}

func (b *builtinFunction) String() string { return fmt.Sprintf("<native fn %s>", b.name) }
func (*builtinFunction) Type() string     { return "function" }
func (b *builtinFunction) Arity() int     { return b.arity }

func (b *builtinFunction) Call(_ *Interpreter, args []loxObject) loxObject { return b.fn(args) }

func truthy(v loxObject) bool {
	if t, ok := v.(loxTruther); ok {
		return t.Truthy()
	}
	return true
}

