// Package ast declares the types used to represent the abstract syntax tree of a Lox program.
package ast

import "github.com/loxrun/loxrun/internal/token"

// Node is the interface which all AST nodes implement.
type Node interface {
	// Line returns the source line that the node starts on, for use in diagnostics.
	Line() int
}

// Program is the root node of the AST: a sequence of declarations.
type Program struct {
	Stmts []Stmt
}

// Stmt is the interface which all statement nodes implement.
type Stmt interface {
	Node
	isStmt()
}

type stmt struct{}

func (stmt) isStmt() {}

// Equal always reports true: stmt carries no state of its own, so any two embeddings of it are interchangeable. This
// lets tests compare AST nodes with go-cmp without having to export or ignore this marker field.
func (stmt) Equal(stmt) bool { return true }

// VarDecl is a variable declaration, such as var a = 1; or var b;.
type VarDecl struct {
	Name        token.Token
	Initialiser Expr // nil if absent
	stmt
}

func (d VarDecl) Line() int { return d.Name.Line }

// FunDecl is a function declaration, such as fun f(a, b) { ... }.
type FunDecl struct {
	Name   token.Token
	Params []token.Token
	Body   []Stmt
	stmt
}

func (d FunDecl) Line() int { return d.Name.Line }

// MethodDecl is a method declaration inside a class body.
type MethodDecl struct {
	Name   token.Token
	Params []token.Token
	Body   []Stmt
}

// ClassDecl is a class declaration, such as class A < B { ... }.
type ClassDecl struct {
	Name       token.Token
	Superclass *VariableExpr // nil if the class has no superclass
	Methods    []MethodDecl
	stmt
}

func (d ClassDecl) Line() int { return d.Name.Line }

// ExprStmt is an expression statement, such as a function call followed by a semicolon.
type ExprStmt struct {
	Expr Expr
	stmt
}

func (s ExprStmt) Line() int { return s.Expr.Line() }

// PrintStmt is a print statement, such as print "abc";.
type PrintStmt struct {
	Keyword token.Token
	Expr    Expr
	stmt
}

func (s PrintStmt) Line() int { return s.Keyword.Line }

// BlockStmt is a brace-delimited sequence of statements introducing a new lexical scope.
type BlockStmt struct {
	LeftBrace token.Token
	Stmts     []Stmt
	stmt
}

func (s BlockStmt) Line() int { return s.LeftBrace.Line }

// IfStmt is an if statement, with an optional else branch.
type IfStmt struct {
	Keyword   token.Token
	Condition Expr
	Then      Stmt
	Else      Stmt // nil if absent
	stmt
}

func (s IfStmt) Line() int { return s.Keyword.Line }

// WhileStmt is a while statement. A for loop is desugared to one at parse time (see parser.parseForStmt): a block
// containing the initialiser followed by a WhileStmt whose body runs the update expression after the original body.
type WhileStmt struct {
	Keyword   token.Token
	Condition Expr
	Body      Stmt
	stmt
}

func (s WhileStmt) Line() int { return s.Keyword.Line }

// BreakStmt unwinds to the nearest enclosing loop.
type BreakStmt struct {
	Keyword token.Token
	stmt
}

func (s BreakStmt) Line() int { return s.Keyword.Line }

// ReturnStmt unwinds to the nearest enclosing function call.
type ReturnStmt struct {
	Keyword token.Token
	Value   Expr // nil if absent
	stmt
}

func (s ReturnStmt) Line() int { return s.Keyword.Line }

// IllegalStmt is a placeholder for a statement that couldn't be parsed due to a syntax error. It carries no meaning
// beyond letting the parser keep producing a usable AST around the error so that later declarations can still be
// parsed and resolved.
type IllegalStmt struct {
	From token.Token
	stmt
}

func (s IllegalStmt) Line() int { return s.From.Line }

// Expr is the interface which all expression nodes implement.
type Expr interface {
	Node
	isExpr()
}

type expr struct{}

func (expr) isExpr() {}

// Equal always reports true, for the same reason as stmt.Equal.
func (expr) Equal(expr) bool { return true }

// LiteralExpr is a literal expression, such as 123, "abc", true, false, or nil.
type LiteralExpr struct {
	Value token.Token
	expr
}

func (e LiteralExpr) Line() int { return e.Value.Line }

// GroupExpr is a parenthesised expression, such as (a + b).
type GroupExpr struct {
	LeftParen token.Token
	Expr      Expr
	expr
}

func (e GroupExpr) Line() int { return e.LeftParen.Line }

// VariableExpr is a variable read, such as a.
type VariableExpr struct {
	Name token.Token
	expr
}

func (e VariableExpr) Line() int { return e.Name.Line }

// AssignmentExpr is an assignment expression, such as a = 2.
type AssignmentExpr struct {
	Name  token.Token
	Value Expr
	expr
}

func (e AssignmentExpr) Line() int { return e.Name.Line }

// UnaryExpr is a unary operator expression, such as -a or !a.
type UnaryExpr struct {
	Op    token.Token
	Right Expr
	expr
}

func (e UnaryExpr) Line() int { return e.Op.Line }

// BinaryExpr is a binary operator expression, such as a + b.
type BinaryExpr struct {
	Left  Expr
	Op    token.Token
	Right Expr
	expr
}

func (e BinaryExpr) Line() int { return e.Left.Line() }

// LogicalExpr is a short-circuiting and/or expression.
type LogicalExpr struct {
	Left  Expr
	Op    token.Token
	Right Expr
	expr
}

func (e LogicalExpr) Line() int { return e.Left.Line() }

// CallExpr is a function or method call, such as f(a, b).
type CallExpr struct {
	Callee Expr
	Paren  token.Token // the closing ')', used to report arity errors
	Args   []Expr
	expr
}

func (e CallExpr) Line() int { return e.Callee.Line() }

// GetExpr is a property read, such as a.b.
type GetExpr struct {
	Object Expr
	Name   token.Token
	expr
}

func (e GetExpr) Line() int { return e.Object.Line() }

// SetExpr is a property write, such as a.b = c.
type SetExpr struct {
	Object Expr
	Name   token.Token
	Value  Expr
	expr
}

func (e SetExpr) Line() int { return e.Object.Line() }

// ThisExpr is a reference to the current instance inside a method.
type ThisExpr struct {
	Keyword token.Token
	expr
}

func (e ThisExpr) Line() int { return e.Keyword.Line }

// SuperExpr is a reference to a superclass method, such as super.m.
type SuperExpr struct {
	Keyword token.Token
	Method  token.Token
	expr
}

func (e SuperExpr) Line() int { return e.Keyword.Line }
