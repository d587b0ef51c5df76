package lexer_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/loxrun/loxrun/internal/lexer"
	"github.com/loxrun/loxrun/internal/token"
)

func lexAll(t *testing.T, src string) []token.Token {
	t.Helper()
	lx, err := lexer.New(strings.NewReader(src))
	if err != nil {
		t.Fatalf("lexer.New: %s", err)
	}
	var errs []string
	lx.SetErrorHandler(func(tok token.Token, msg string) {
		errs = append(errs, msg)
	})
	var toks []token.Token
	for {
		tok := lx.Next()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	if len(errs) > 0 {
		t.Fatalf("unexpected lexer errors: %v", errs)
	}
	return toks
}

func TestNextRecognisesEveryTokenKind(t *testing.T) {
	src := `var x = 12.5;
print "hello";
if (x == true and false) { } else { }
for (;;) while (x < 1) x = x + 1 - 1 * 1 / 1;
fun f() { return; }
class A < B { init() {} }
this super break
!= <= >= . ,`

	got := lexAll(t, src)

	want := []token.Type{
		token.Var, token.Ident, token.Equal, token.Number, token.Semicolon,
		token.Print, token.String, token.Semicolon,
		token.If, token.LeftParen, token.Ident, token.EqualEqual, token.True, token.And, token.False, token.RightParen,
		token.LeftBrace, token.RightBrace, token.Else, token.LeftBrace, token.RightBrace,
		token.For, token.LeftParen, token.Semicolon, token.Semicolon, token.RightParen,
		token.While, token.LeftParen, token.Ident, token.Less, token.Number, token.RightParen,
		token.Ident, token.Equal, token.Ident, token.Plus, token.Number, token.Minus, token.Number, token.Asterisk,
		token.Number, token.Slash, token.Number, token.Semicolon,
		token.Fun, token.Ident, token.LeftParen, token.RightParen, token.LeftBrace, token.Return, token.Semicolon, token.RightBrace,
		token.Class, token.Ident, token.Less, token.Ident, token.LeftBrace, token.Ident, token.LeftParen, token.RightParen,
		token.LeftBrace, token.RightBrace, token.RightBrace,
		token.This, token.Super, token.Break,
		token.BangEqual, token.LessEqual, token.GreaterEqual, token.Dot, token.Comma,
		token.EOF,
	}

	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d\ngot: %v", len(got), len(want), got)
	}
	for i, tok := range got {
		if tok.Type != want[i] {
			t.Errorf("token %d: got %s, want %s", i, tok.Type, want[i])
		}
	}
}

func TestNextAssignsUniqueIDsToEveryToken(t *testing.T) {
	toks := lexAll(t, "a + a;")
	seen := map[int]bool{}
	for _, tok := range toks {
		if seen[tok.ID] {
			t.Fatalf("token ID %d reused across distinct tokens", tok.ID)
		}
		seen[tok.ID] = true
	}
}

func TestNextParsesNumberAndStringLiterals(t *testing.T) {
	toks := lexAll(t, `123 4.5 "a string"`)
	want := []token.Token{
		{Type: token.Number, Lexeme: "123", Literal: 123.0, Line: 1},
		{Type: token.Number, Lexeme: "4.5", Literal: 4.5, Line: 1},
		{Type: token.String, Lexeme: `"a string"`, Literal: "a string", Line: 1},
		{Type: token.EOF, Line: 1},
	}
	diff := cmp.Diff(want, toks, cmpopts.IgnoreFields(token.Token{}, "ID"))
	if diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestNextTracksLineNumbersAcrossNewlines(t *testing.T) {
	toks := lexAll(t, "1\n2\n\n3")
	var lines []int
	for _, tok := range toks {
		if tok.Type == token.Number {
			lines = append(lines, tok.Line)
		}
	}
	want := []int{1, 2, 4}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestNextReportsUnterminatedString(t *testing.T) {
	lx, err := lexer.New(strings.NewReader(`"unterminated`))
	if err != nil {
		t.Fatalf("lexer.New: %s", err)
	}
	var msgs []string
	lx.SetErrorHandler(func(_ token.Token, msg string) { msgs = append(msgs, msg) })
	tok := lx.Next()
	if tok.Type != token.Illegal {
		t.Errorf("got token type %s, want Illegal", tok.Type)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d errors, want 1", len(msgs))
	}
}

func TestNextSkipsComments(t *testing.T) {
	toks := lexAll(t, "1 // a line comment\n/* a block\ncomment */ 2")
	var got []token.Type
	for _, tok := range toks {
		got = append(got, tok.Type)
	}
	want := []token.Type{token.Number, token.Number, token.EOF}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("token types mismatch (-want +got):\n%s", diff)
	}
}
