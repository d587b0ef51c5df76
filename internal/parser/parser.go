// Package parser implements a recursive-descent parser for Lox source code.
package parser

import (
	"fmt"
	"io"
	"slices"

	"github.com/loxrun/loxrun/internal/ast"
	"github.com/loxrun/loxrun/internal/lexer"
	"github.com/loxrun/loxrun/internal/loxerr"
	"github.com/loxrun/loxrun/internal/token"
)

const maxArgs = 255

// Parse parses the source code read from r into a Program. If err is non-nil, the returned Program may still be
// partially populated with whatever could be recovered around the syntax errors.
func Parse(r io.Reader) (ast.Program, error) {
	lx, err := lexer.New(r)
	if err != nil {
		return ast.Program{}, fmt.Errorf("constructing parser: %s", err)
	}

	p := &parser{lexer: lx}
	lx.SetErrorHandler(func(tok token.Token, msg string) {
		p.errs.AddFromToken(tok, "%s", msg)
	})

	p.next()
	p.next()
	return p.parseProgram(), p.errs.Err()
}

type parser struct {
	lexer   *lexer.Lexer
	tok     token.Token // token currently being considered
	nextTok token.Token

	errs       loxerr.Errors
	lastErrTok token.Token // token that the most recent addErrorf error was reported at
}

func (p *parser) parseProgram() ast.Program {
	return ast.Program{Stmts: p.parseDeclsUntil(token.EOF)}
}

func (p *parser) parseDeclsUntil(types ...token.Type) []ast.Stmt {
	var stmts []ast.Stmt
	for !slices.Contains(types, p.tok.Type) {
		stmts = append(stmts, p.safelyParseDecl())
	}
	return stmts
}

// safelyParseDecl recovers from a parsing error raised via the unwind panic, resynchronising at the next statement
// boundary. The caller's own partial statement is discarded: its malformed tokens have already been reported.
func (p *parser) safelyParseDecl() (stmt ast.Stmt) {
	line := p.tok.Line
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(unwind); ok {
				p.sync()
				stmt = ast.IllegalStmt{From: token.Token{Line: line}}
			} else {
				panic(r)
			}
		}
	}()
	return p.parseDecl()
}

// sync advances the parser to the start of the next statement, so that parsing can continue after an error.
func (p *parser) sync() {
	for {
		switch p.tok.Type {
		case token.Semicolon:
			p.next()
			return
		case token.Print, token.Var, token.If, token.LeftBrace, token.While, token.For, token.Break,
			token.Fun, token.Class, token.Return, token.EOF:
			return
		}
		p.next()
	}
}

func (p *parser) parseDecl() ast.Stmt {
	switch tok := p.tok; {
	case p.match(token.Var):
		return p.parseVarDecl(tok)
	case p.tok.Type == token.Fun && p.nextTok.Type == token.Ident:
		p.next()
		return p.parseFunDecl(tok)
	case p.match(token.Class):
		return p.parseClassDecl(tok)
	default:
		return p.parseStmt()
	}
}

func (p *parser) parseVarDecl(varTok token.Token) ast.VarDecl {
	name := p.expectf(token.Ident, "Expect variable name")
	var init ast.Expr
	if p.match(token.Equal) {
		init = p.parseExpr()
	}
	p.expect(token.Semicolon)
	return ast.VarDecl{Name: name, Initialiser: init}
}

func (p *parser) parseFunDecl(_ token.Token) ast.FunDecl {
	name := p.expectf(token.Ident, "Expect function name")
	params, body := p.parseFunBody("function")
	return ast.FunDecl{Name: name, Params: params, Body: body}
}

func (p *parser) parseClassDecl(classTok token.Token) ast.ClassDecl {
	name := p.expectf(token.Ident, "Expect class name")

	var superclass *ast.VariableExpr
	if p.match(token.Less) {
		superTok := p.expectf(token.Ident, "Expect superclass name")
		if superTok.Lexeme == name.Lexeme {
			p.errs.AddFromToken(superTok, "A class can't inherit from itself")
		}
		superclass = &ast.VariableExpr{Name: superTok}
	}

	p.expect(token.LeftBrace)
	var methods []ast.MethodDecl
	for p.tok.Type != token.RightBrace && p.tok.Type != token.EOF {
		methods = append(methods, p.parseMethodDecl())
	}
	p.expect(token.RightBrace)

	return ast.ClassDecl{Name: name, Superclass: superclass, Methods: methods}
}

func (p *parser) parseMethodDecl() ast.MethodDecl {
	name := p.expectf(token.Ident, "Expect method name")
	params, body := p.parseFunBody("method")
	return ast.MethodDecl{Name: name, Params: params, Body: body}
}

func (p *parser) parseFunBody(kind string) ([]token.Token, []ast.Stmt) {
	p.expectf(token.LeftParen, "Expect '(' after %s name", kind)
	var params []token.Token
	if p.tok.Type != token.RightParen {
		params = p.parseParams()
	}
	p.expect(token.RightParen)
	leftBrace := p.expectf(token.LeftBrace, "Expect '{' before %s body", kind)
	return params, p.parseBlock(leftBrace).Stmts
}

func (p *parser) parseParams() []token.Token {
	var params []token.Token
	for {
		if len(params) >= maxArgs {
			p.errs.AddFromToken(p.tok, "Can't have more than %d parameters", maxArgs)
		}
		params = append(params, p.expectf(token.Ident, "Expect parameter name"))
		if !p.match(token.Comma) {
			break
		}
	}
	return params
}

func (p *parser) parseStmt() ast.Stmt {
	switch tok := p.tok; {
	case p.match(token.Print):
		return p.parsePrintStmt(tok)
	case p.match(token.LeftBrace):
		return p.parseBlock(tok)
	case p.match(token.If):
		return p.parseIfStmt(tok)
	case p.match(token.While):
		return p.parseWhileStmt(tok)
	case p.match(token.For):
		return p.parseForStmt(tok)
	case p.match(token.Break):
		return p.parseBreakStmt(tok)
	case p.match(token.Return):
		return p.parseReturnStmt(tok)
	default:
		return p.parseExprStmt()
	}
}

func (p *parser) parseExprStmt() ast.ExprStmt {
	expr := p.parseExpr()
	p.expect(token.Semicolon)
	return ast.ExprStmt{Expr: expr}
}

func (p *parser) parsePrintStmt(printTok token.Token) ast.PrintStmt {
	expr := p.parseExpr()
	p.expect(token.Semicolon)
	return ast.PrintStmt{Keyword: printTok, Expr: expr}
}

func (p *parser) parseBlock(leftBrace token.Token) ast.BlockStmt {
	stmts := p.parseDeclsUntil(token.RightBrace, token.EOF)
	p.expect(token.RightBrace)
	return ast.BlockStmt{LeftBrace: leftBrace, Stmts: stmts}
}

func (p *parser) parseIfStmt(ifTok token.Token) ast.IfStmt {
	p.expect(token.LeftParen)
	condition := p.parseExpr()
	p.expect(token.RightParen)
	then := p.parseStmt()
	var elseStmt ast.Stmt
	if p.match(token.Else) {
		elseStmt = p.parseStmt()
	}
	return ast.IfStmt{Keyword: ifTok, Condition: condition, Then: then, Else: elseStmt}
}

func (p *parser) parseWhileStmt(whileTok token.Token) ast.WhileStmt {
	p.expect(token.LeftParen)
	condition := p.parseExpr()
	p.expect(token.RightParen)
	body := p.parseStmt()
	return ast.WhileStmt{Keyword: whileTok, Condition: condition, Body: body}
}

// parseForStmt desugars a for loop into a block containing an optional initialiser followed by a while loop whose
// body runs the update expression after the loop body, exactly mirroring the textbook desugaring of for to while.
func (p *parser) parseForStmt(forTok token.Token) ast.Stmt {
	p.expect(token.LeftParen)

	var init ast.Stmt
	switch tok := p.tok; {
	case p.match(token.Semicolon):
	case p.match(token.Var):
		init = p.parseVarDecl(tok)
	default:
		init = p.parseExprStmt()
	}

	var condition ast.Expr
	if p.tok.Type != token.Semicolon {
		condition = p.parseExpr()
	}
	p.expect(token.Semicolon)

	var update ast.Expr
	if p.tok.Type != token.RightParen {
		update = p.parseExpr()
	}
	p.expect(token.RightParen)

	body := p.parseStmt()

	if update != nil {
		body = ast.BlockStmt{LeftBrace: forTok, Stmts: []ast.Stmt{body, ast.ExprStmt{Expr: update}}}
	}
	if condition == nil {
		condition = ast.LiteralExpr{Value: token.Token{Type: token.True, Lexeme: "true", Line: forTok.Line}}
	}
	loop := ast.Stmt(ast.WhileStmt{Keyword: forTok, Condition: condition, Body: body})
	stmts := []ast.Stmt{loop}
	if init != nil {
		stmts = []ast.Stmt{init, loop}
	}
	return ast.BlockStmt{LeftBrace: forTok, Stmts: stmts}
}

func (p *parser) parseBreakStmt(breakTok token.Token) ast.BreakStmt {
	p.expect(token.Semicolon)
	return ast.BreakStmt{Keyword: breakTok}
}

func (p *parser) parseReturnStmt(returnTok token.Token) ast.ReturnStmt {
	var value ast.Expr
	if p.tok.Type != token.Semicolon {
		value = p.parseExpr()
	}
	p.expect(token.Semicolon)
	return ast.ReturnStmt{Keyword: returnTok, Value: value}
}

func (p *parser) parseExpr() ast.Expr {
	return p.parseAssignmentExpr()
}

func (p *parser) parseAssignmentExpr() ast.Expr {
	expr := p.parseLogicalOrExpr()
	if eq, ok := p.match2(token.Equal); ok {
		value := p.parseAssignmentExpr()
		switch left := expr.(type) {
		case ast.VariableExpr:
			return ast.AssignmentExpr{Name: left.Name, Value: value}
		case ast.GetExpr:
			return ast.SetExpr{Object: left.Object, Name: left.Name, Value: value}
		default:
			p.errs.AddFromToken(eq, "Invalid assignment target")
			return expr
		}
	}
	return expr
}

func (p *parser) parseLogicalOrExpr() ast.Expr {
	expr := p.parseLogicalAndExpr()
	for {
		op, ok := p.match2(token.Or)
		if !ok {
			break
		}
		expr = ast.LogicalExpr{Left: expr, Op: op, Right: p.parseLogicalAndExpr()}
	}
	return expr
}

func (p *parser) parseLogicalAndExpr() ast.Expr {
	expr := p.parseEqualityExpr()
	for {
		op, ok := p.match2(token.And)
		if !ok {
			break
		}
		expr = ast.LogicalExpr{Left: expr, Op: op, Right: p.parseEqualityExpr()}
	}
	return expr
}

func (p *parser) parseEqualityExpr() ast.Expr {
	return p.parseBinaryExpr(p.parseRelationalExpr, token.EqualEqual, token.BangEqual)
}

func (p *parser) parseRelationalExpr() ast.Expr {
	return p.parseBinaryExpr(p.parseAdditiveExpr, token.Less, token.LessEqual, token.Greater, token.GreaterEqual)
}

func (p *parser) parseAdditiveExpr() ast.Expr {
	return p.parseBinaryExpr(p.parseMultiplicativeExpr, token.Plus, token.Minus)
}

func (p *parser) parseMultiplicativeExpr() ast.Expr {
	return p.parseBinaryExpr(p.parseUnaryExpr, token.Asterisk, token.Slash)
}

// parseBinaryExpr parses a left-associative binary expression over the given operators, with next parsing an operand
// of next-highest precedence.
func (p *parser) parseBinaryExpr(next func() ast.Expr, operators ...token.Type) ast.Expr {
	expr := next()
	for {
		op, ok := p.match2(operators...)
		if !ok {
			break
		}
		expr = ast.BinaryExpr{Left: expr, Op: op, Right: next()}
	}
	return expr
}

func (p *parser) parseUnaryExpr() ast.Expr {
	if op, ok := p.match2(token.Bang, token.Minus); ok {
		return ast.UnaryExpr{Op: op, Right: p.parseUnaryExpr()}
	}
	return p.parseCallExpr()
}

func (p *parser) parseCallExpr() ast.Expr {
	expr := p.parsePrimaryExpr()
	for {
		switch {
		case p.match(token.LeftParen):
			expr = p.finishCallExpr(expr)
		case p.match(token.Dot):
			name := p.expectf(token.Ident, "Expect property name after '.'")
			expr = ast.GetExpr{Object: expr, Name: name}
		default:
			return expr
		}
	}
}

func (p *parser) finishCallExpr(callee ast.Expr) ast.Expr {
	var args []ast.Expr
	if p.tok.Type != token.RightParen {
		args = p.parseArgs()
	}
	paren := p.expect(token.RightParen)
	return ast.CallExpr{Callee: callee, Paren: paren, Args: args}
}

func (p *parser) parseArgs() []ast.Expr {
	var args []ast.Expr
	for {
		if len(args) >= maxArgs {
			p.errs.AddFromToken(p.tok, "Can't have more than %d arguments", maxArgs)
		}
		args = append(args, p.parseAssignmentExpr())
		if !p.match(token.Comma) {
			break
		}
	}
	return args
}

func (p *parser) parsePrimaryExpr() ast.Expr {
	switch tok := p.tok; {
	case p.match(token.Number, token.String, token.True, token.False, token.Nil):
		return ast.LiteralExpr{Value: tok}
	case p.match(token.This):
		return ast.ThisExpr{Keyword: tok}
	case p.match(token.Super):
		p.expect(token.Dot)
		method := p.expectf(token.Ident, "Expect superclass method name")
		return ast.SuperExpr{Keyword: tok, Method: method}
	case p.match(token.Ident):
		return ast.VariableExpr{Name: tok}
	case p.match(token.LeftParen):
		expr := p.parseExpr()
		p.expect(token.RightParen)
		return ast.GroupExpr{LeftParen: tok, Expr: expr}
	case p.match(token.EqualEqual, token.BangEqual, token.Less, token.LessEqual, token.Greater, token.GreaterEqual,
		token.Plus, token.Asterisk, token.Slash):
		p.errs.AddFromToken(tok, "Missing left-hand operand")
		var right ast.Expr
		switch tok.Type {
		case token.EqualEqual, token.BangEqual:
			right = p.parseEqualityExpr()
		case token.Less, token.LessEqual, token.Greater, token.GreaterEqual:
			right = p.parseRelationalExpr()
		case token.Plus:
			right = p.parseMultiplicativeExpr()
		case token.Asterisk, token.Slash:
			right = p.parseUnaryExpr()
		}
		return ast.BinaryExpr{Left: ast.LiteralExpr{Value: token.Token{Type: token.Nil, Line: tok.Line}}, Op: tok, Right: right}
	default:
		p.errs.AddFromToken(tok, "Expect expression")
		panic(unwind{})
	}
}

// match reports whether the current token is one of the given types and advances the parser if so.
func (p *parser) match(types ...token.Type) bool {
	for _, t := range types {
		if p.tok.Type == t {
			p.next()
			return true
		}
	}
	return false
}

// match2 is like match but also returns the matched token.
func (p *parser) match2(types ...token.Type) (token.Token, bool) {
	tok := p.tok
	return tok, p.match(types...)
}

// expect consumes and returns the current token if it has type t, reporting a default "Expect %s" error otherwise.
func (p *parser) expect(t token.Type) token.Token {
	return p.expectf(t, "Expect '%s'", t)
}

// expectf is like expect but accepts a custom message format.
func (p *parser) expectf(t token.Type, format string, args ...any) token.Token {
	if p.tok.Type == t {
		tok := p.tok
		p.next()
		return tok
	}
	p.addErrorf(format, args...)
	panic(unwind{})
}

func (p *parser) addErrorf(format string, args ...any) {
	if len(p.errs) > 0 && p.tok == p.lastErrTok {
		return
	}
	p.lastErrTok = p.tok
	p.errs.AddFromToken(p.tok, format, args...)
}

func (p *parser) next() {
	p.tok = p.nextTok
	p.nextTok = p.lexer.Next()
}

// unwind is used as a panic value to unwind the call stack back to safelyParseDecl when a syntax error is found,
// avoiding an explicit error check after every parsing call.
type unwind struct{}
