// Package lexer converts Lox source code into a stream of lexical tokens.
package lexer

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/loxrun/loxrun/internal/token"
)

const eof = -1

// nextID hands out the Token.ID values used to key the resolver's distance map. It's a single counter shared by
// every Lexer, not a per-instance field, so that tokens from separately-lexed sources concatenated into one program
// (the prelude and the user's source, or successive lines in a REPL session) never collide on ID.
var nextID atomic.Int64

// ErrorHandler is called when a syntax error is encountered during lexing. It's passed the offending token and a
// message describing the error.
type ErrorHandler func(tok token.Token, msg string)

// Lexer converts Lox source code into lexical tokens, which are read using Next.
type Lexer struct {
	src        []byte
	errHandler ErrorHandler

	ch           rune
	offset       int // offset of character currently being considered
	readOffset   int // offset of next character to be read
	lastReadSize int
	line         int
}

// New constructs a Lexer which lexes the source code read from r. The returned error reports failures to read from r,
// not syntax errors; syntax errors are reported through the error handler set with SetErrorHandler.
func New(r io.Reader) (*Lexer, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("constructing lexer: %s", err)
	}
	l := &Lexer{
		src:        src,
		errHandler: func(token.Token, string) {},
		line:       1,
		offset:     -1,
	}
	l.advance()
	return l, nil
}

// SetErrorHandler sets the function called when a syntax error is encountered.
func (l *Lexer) SetErrorHandler(errHandler ErrorHandler) {
	l.errHandler = errHandler
}

// Next returns the next token. An EOF token is returned once the end of the source code has been reached, and will
// continue to be returned on every subsequent call.
func (l *Lexer) Next() token.Token {
	l.skipWhitespace()

	startOffset := l.offset
	line := l.line

	newTok := func(typ token.Type, literal any) token.Token {
		lexeme := ""
		if startOffset >= 0 && startOffset <= len(l.src) {
			end := l.offset
			if end > len(l.src) {
				end = len(l.src)
			}
			if end < startOffset {
				end = startOffset
			}
			lexeme = string(l.src[startOffset:end])
		}
		id := int(nextID.Add(1) - 1)
		return token.Token{Type: typ, Lexeme: lexeme, Literal: literal, Line: line, ID: id}
	}

	switch {
	case l.ch == eof:
		return newTok(token.EOF, nil)
	case l.ch == ';':
		l.advance()
		return newTok(token.Semicolon, nil)
	case l.ch == ',':
		l.advance()
		return newTok(token.Comma, nil)
	case l.ch == '.':
		l.advance()
		return newTok(token.Dot, nil)
	case l.ch == '=':
		l.advance()
		if l.ch == '=' {
			l.advance()
			return newTok(token.EqualEqual, nil)
		}
		return newTok(token.Equal, nil)
	case l.ch == '+':
		l.advance()
		return newTok(token.Plus, nil)
	case l.ch == '-':
		l.advance()
		return newTok(token.Minus, nil)
	case l.ch == '*':
		l.advance()
		return newTok(token.Asterisk, nil)
	case l.ch == '/':
		if l.peek() == '/' {
			l.advance()
			l.advance()
			l.skipLineComment()
			return l.Next()
		}
		if l.peek() == '*' {
			l.advance()
			l.advance()
			if terminated := l.skipBlockComment(); !terminated {
				tok := newTok(token.Illegal, nil)
				l.errHandler(tok, "unterminated block comment")
				return tok
			}
			return l.Next()
		}
		l.advance()
		return newTok(token.Slash, nil)
	case l.ch == '<':
		l.advance()
		if l.ch == '=' {
			l.advance()
			return newTok(token.LessEqual, nil)
		}
		return newTok(token.Less, nil)
	case l.ch == '>':
		l.advance()
		if l.ch == '=' {
			l.advance()
			return newTok(token.GreaterEqual, nil)
		}
		return newTok(token.Greater, nil)
	case l.ch == '!':
		l.advance()
		if l.ch == '=' {
			l.advance()
			return newTok(token.BangEqual, nil)
		}
		return newTok(token.Bang, nil)
	case l.ch == '(':
		l.advance()
		return newTok(token.LeftParen, nil)
	case l.ch == ')':
		l.advance()
		return newTok(token.RightParen, nil)
	case l.ch == '{':
		l.advance()
		return newTok(token.LeftBrace, nil)
	case l.ch == '}':
		l.advance()
		return newTok(token.RightBrace, nil)
	case l.ch == '"':
		lit, terminated := l.consumeString()
		tok := newTok(token.String, lit)
		if !terminated {
			tok.Type = token.Illegal
			l.errHandler(tok, "unterminated string")
		}
		return tok
	case isDigit(l.ch):
		lit := l.consumeNumber()
		n, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			// Can't happen: consumeNumber only emits digits and at most one '.'.
			n = 0
		}
		return newTok(token.Number, n)
	case isAlpha(l.ch):
		ident := l.consumeIdent()
		typ := token.LookupIdent(ident)
		tok := newTok(typ, nil)
		if typ == token.Ident {
			tok.Literal = ident
		}
		return tok
	default:
		ch := l.ch
		l.advance()
		tok := newTok(token.Illegal, string(ch))
		l.errHandler(tok, fmt.Sprintf("illegal character %#U", ch))
		return tok
	}
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
		l.advance()
	}
}

func (l *Lexer) skipLineComment() {
	for l.ch != '\n' && l.ch != eof {
		l.advance()
	}
}

func (l *Lexer) skipBlockComment() (terminated bool) {
	depth := 1
	for depth > 0 && l.ch != eof {
		if l.ch == '/' && l.peek() == '*' {
			l.advance()
			l.advance()
			depth++
			continue
		}
		if l.ch == '*' && l.peek() == '/' {
			l.advance()
			l.advance()
			depth--
			continue
		}
		l.advance()
	}
	return depth == 0
}

func (l *Lexer) consumeNumber() string {
	var b strings.Builder
	for isDigit(l.ch) {
		b.WriteRune(l.ch)
		l.advance()
	}
	if l.ch == '.' && isDigit(l.peek()) {
		b.WriteRune(l.ch)
		l.advance()
		for isDigit(l.ch) {
			b.WriteRune(l.ch)
			l.advance()
		}
	}
	return b.String()
}

func (l *Lexer) consumeString() (s string, terminated bool) {
	l.advance() // consume opening quote
	var b strings.Builder
	for {
		if l.ch == eof || l.ch == '\n' {
			return b.String(), false
		}
		if l.ch == '"' {
			l.advance()
			return b.String(), true
		}
		b.WriteRune(l.ch)
		l.advance()
	}
}

func (l *Lexer) consumeIdent() string {
	var b strings.Builder
	for isAlphaNumeric(l.ch) {
		b.WriteRune(l.ch)
		l.advance()
	}
	return b.String()
}

func isDigit(r rune) bool { return '0' <= r && r <= '9' }

func isAlpha(r rune) bool {
	return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || r == '_'
}

func isAlphaNumeric(r rune) bool { return isAlpha(r) || isDigit(r) }

// advance reads the next character into l.ch and advances the lexer's position, tracking line numbers.
func (l *Lexer) advance() {
	if l.ch == '\n' {
		l.line++
	}

	l.offset = l.readOffset
	if l.readOffset >= len(l.src) {
		l.ch = eof
		l.offset = len(l.src)
		return
	}

	r, size := utf8.DecodeRune(l.src[l.readOffset:])
	if r == utf8.RuneError && size == 1 {
		l.readOffset++
		l.lastReadSize = 1
		l.ch = utf8.RuneError
		return
	}
	l.lastReadSize = size
	l.readOffset += size
	l.ch = r
}

// peek returns the next character without advancing the lexer. eof is returned at the end of the source code.
func (l *Lexer) peek() rune {
	if l.readOffset >= len(l.src) {
		return eof
	}
	r, _ := utf8.DecodeRune(l.src[l.readOffset:])
	return r
}
