// Package resolver performs a static analysis pass between parsing and interpretation: it resolves every variable
// reference to the number of scopes between its use and its declaration, and rejects a handful of uses that are only
// detectable with knowledge of lexical scope (invalid break/return/this/super, self-referential initialisers,
// duplicate declarations).
package resolver

import (
	"fmt"

	"github.com/loxrun/loxrun/internal/ast"
	"github.com/loxrun/loxrun/internal/loxerr"
	"github.com/loxrun/loxrun/internal/stack"
	"github.com/loxrun/loxrun/internal/token"
)

// Resolve resolves every identifier token in program to the number of scopes between its occurrence and the scope
// that declares it. A distance of 0 means the identifier was declared in the current scope, 1 means the enclosing
// scope, and so on. If a token isn't present in the returned map, the variable it refers to is either global or
// undeclared.
//
// The map is keyed by token.Token value, including its ID field: two syntactically identical tokens (such as the two
// occurrences of a in "print a + a;") are distinct keys because the lexer assigns each token a unique ID.
func Resolve(program ast.Program) (map[token.Token]int, error) {
	r := &resolver{distances: map[token.Token]int{}}
	r.resolveStmts(program.Stmts)
	if err := r.errs.Err(); err != nil {
		return nil, err
	}
	return r.distances, nil
}

type funKind int

const (
	funKindNone funKind = iota
	funKindFunction
	funKindMethod
	funKindInitialiser
)

type classKind int

const (
	classKindNone classKind = iota
	classKindClass
	classKindSubclass
)

type ident struct {
	tok     token.Token
	defined bool
}

// scope tracks the identifiers declared directly within one lexical block.
type scope map[string]*ident

type resolver struct {
	scopes    stack.Stack[scope]
	distances map[token.Token]int
	errs      loxerr.Errors

	curFun   funKind
	curClass classKind
	inLoop   bool
}

func (r *resolver) beginScope() {
	r.scopes.Push(scope{})
}

func (r *resolver) endScope() {
	r.scopes.Pop()
}

// declare introduces tok's lexeme into the current scope, reporting an error if it's already declared there. It's a
// no-op at global scope: globals may be redeclared and are resolved dynamically at runtime.
func (r *resolver) declare(tok token.Token) {
	if r.scopes.Len() == 0 {
		return
	}
	s := r.scopes.Peek()
	if _, ok := s[tok.Lexeme]; ok {
		r.errs.AddFromToken(tok, "Already a variable with this name in this scope.")
		return
	}
	s[tok.Lexeme] = &ident{tok: tok}
}

// define marks the most recently declared identifier with this lexeme as initialised, so that its own initialiser
// expression can't read it as though it were already bound.
func (r *resolver) define(tok token.Token) {
	if r.scopes.Len() == 0 {
		return
	}
	if id, ok := r.scopes.Peek()[tok.Lexeme]; ok {
		id.defined = true
	}
}

// declareSynthetic declares and defines a compiler-introduced binding (this, super).
func (r *resolver) declareSynthetic(name string) {
	s := r.scopes.Peek()
	s[name] = &ident{defined: true}
}

func (r *resolver) resolveLocal(tok token.Token, name string) {
	for depth, s := range r.scopes.Backward() {
		if _, ok := s[name]; ok {
			r.distances[tok] = r.scopes.Len() - 1 - depth
			return
		}
	}
	// Not found in any local scope: treated as a global, resolved dynamically at runtime.
}

func (r *resolver) resolveStmts(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		r.resolveStmt(stmt)
	}
}

func (r *resolver) resolveStmt(stmt ast.Stmt) {
	switch stmt := stmt.(type) {
	case ast.VarDecl:
		r.resolveVarDecl(stmt)
	case ast.FunDecl:
		r.declare(stmt.Name)
		r.define(stmt.Name)
		r.resolveFun(stmt.Params, stmt.Body, funKindFunction)
	case ast.ClassDecl:
		r.resolveClassDecl(stmt)
	case ast.ExprStmt:
		r.resolveExpr(stmt.Expr)
	case ast.PrintStmt:
		r.resolveExpr(stmt.Expr)
	case ast.BlockStmt:
		r.beginScope()
		r.resolveStmts(stmt.Stmts)
		r.endScope()
	case ast.IfStmt:
		r.resolveExpr(stmt.Condition)
		r.resolveStmt(stmt.Then)
		if stmt.Else != nil {
			r.resolveStmt(stmt.Else)
		}
	case ast.WhileStmt:
		r.resolveExpr(stmt.Condition)
		prevInLoop := r.inLoop
		r.inLoop = true
		r.resolveStmt(stmt.Body)
		r.inLoop = prevInLoop
	case ast.BreakStmt:
		if !r.inLoop {
			r.errs.AddFromToken(stmt.Keyword, "Can't use 'break' outside of a loop.")
		}
	case ast.ReturnStmt:
		r.resolveReturnStmt(stmt)
	case ast.IllegalStmt:
		// A syntax error has already been reported for this statement; nothing to resolve.
	default:
		panic(fmt.Sprintf("resolver: unexpected statement type %T", stmt))
	}
}

func (r *resolver) resolveVarDecl(stmt ast.VarDecl) {
	r.declare(stmt.Name)
	if stmt.Initialiser != nil {
		r.resolveExpr(stmt.Initialiser)
	}
	r.define(stmt.Name)
}

func (r *resolver) resolveFun(params []token.Token, body []ast.Stmt, kind funKind) {
	prevFun := r.curFun
	r.curFun = kind
	prevInLoop := r.inLoop
	r.inLoop = false

	r.beginScope()
	for _, param := range params {
		r.declare(param)
		r.define(param)
	}
	r.resolveStmts(body)
	r.endScope()

	r.curFun = prevFun
	r.inLoop = prevInLoop
}

func (r *resolver) resolveClassDecl(stmt ast.ClassDecl) {
	prevClass := r.curClass
	r.curClass = classKindClass
	defer func() { r.curClass = prevClass }()

	r.declare(stmt.Name)
	r.define(stmt.Name)

	if stmt.Superclass != nil {
		r.curClass = classKindSubclass
		r.resolveExpr(*stmt.Superclass)
		r.beginScope()
		r.declareSynthetic(token.SuperIdent)
		defer r.endScope()
	}

	r.beginScope()
	r.declareSynthetic(token.ThisIdent)
	for _, method := range stmt.Methods {
		kind := funKindMethod
		if method.Name.Lexeme == "init" {
			kind = funKindInitialiser
		}
		r.resolveFun(method.Params, method.Body, kind)
	}
	r.endScope()
}

func (r *resolver) resolveReturnStmt(stmt ast.ReturnStmt) {
	if r.curFun == funKindNone {
		r.errs.AddFromToken(stmt.Keyword, "Can't return from top-level code.")
	}
	if stmt.Value != nil {
		if r.curFun == funKindInitialiser {
			r.errs.AddFromToken(stmt.Keyword, "Can't return a value from an initializer.")
		}
		r.resolveExpr(stmt.Value)
	}
}

func (r *resolver) resolveExpr(expr ast.Expr) {
	switch expr := expr.(type) {
	case ast.LiteralExpr:
		// Nothing to resolve.
	case ast.GroupExpr:
		r.resolveExpr(expr.Expr)
	case ast.VariableExpr:
		if r.scopes.Len() > 0 {
			if id, ok := r.scopes.Peek()[expr.Name.Lexeme]; ok && !id.defined {
				r.errs.AddFromToken(expr.Name, "Can't read local variable in its own initializer.")
			}
		}
		r.resolveLocal(expr.Name, expr.Name.Lexeme)
	case ast.AssignmentExpr:
		r.resolveExpr(expr.Value)
		r.resolveLocal(expr.Name, expr.Name.Lexeme)
	case ast.UnaryExpr:
		r.resolveExpr(expr.Right)
	case ast.BinaryExpr:
		r.resolveExpr(expr.Left)
		r.resolveExpr(expr.Right)
	case ast.LogicalExpr:
		r.resolveExpr(expr.Left)
		r.resolveExpr(expr.Right)
	case ast.CallExpr:
		r.resolveExpr(expr.Callee)
		for _, arg := range expr.Args {
			r.resolveExpr(arg)
		}
	case ast.GetExpr:
		r.resolveExpr(expr.Object)
	case ast.SetExpr:
		r.resolveExpr(expr.Value)
		r.resolveExpr(expr.Object)
	case ast.ThisExpr:
		if r.curClass == classKindNone {
			r.errs.AddFromToken(expr.Keyword, "Can't use 'this' outside of a class.")
			return
		}
		r.resolveLocal(expr.Keyword, token.ThisIdent)
	case ast.SuperExpr:
		switch r.curClass {
		case classKindNone:
			r.errs.AddFromToken(expr.Keyword, "Can't use 'super' outside of a class.")
		case classKindClass:
			r.errs.AddFromToken(expr.Keyword, "Can't use 'super' in a class with no superclass.")
		}
		r.resolveLocal(expr.Keyword, token.SuperIdent)
	default:
		panic(fmt.Sprintf("resolver: unexpected expression type %T", expr))
	}
}
