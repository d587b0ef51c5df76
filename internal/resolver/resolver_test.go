package resolver_test

import (
	"strings"
	"testing"

	"github.com/loxrun/loxrun/internal/ast"
	"github.com/loxrun/loxrun/internal/parser"
	"github.com/loxrun/loxrun/internal/resolver"
)

func mustResolve(t *testing.T, src string) (ast.Program, map[string]int, error) {
	t.Helper()
	program, err := parser.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parser.Parse(%q): unexpected error: %s", src, err)
	}
	distances, err := resolver.Resolve(program)
	byLexeme := map[string]int{}
	for tok, d := range distances {
		byLexeme[tok.Lexeme] = d
	}
	return program, byLexeme, err
}

// TestResolveLocalDistance checks that a variable read inside nested blocks resolves to the number of block scopes
// between the read and its declaration.
func TestResolveLocalDistance(t *testing.T) {
	_, distances, err := mustResolve(t, `
		{
			var a = 1;
			{
				var b = 2;
				{
					print a;
					print b;
				}
			}
		}
	`)
	if err != nil {
		t.Fatalf("resolver.Resolve: unexpected error: %s", err)
	}
	if distances["a"] != 2 {
		t.Errorf("distance of 'a' = %d, want 2 (two block scopes out)", distances["a"])
	}
	if distances["b"] != 1 {
		t.Errorf("distance of 'b' = %d, want 1 (one block scope out)", distances["b"])
	}
}

// TestResolveGlobalLeavesNoMapEntry checks that a reference resolved to the global scope has no entry in the
// distance map at all, leaving it implicitly a global, resolved dynamically at runtime.
func TestResolveGlobalLeavesNoMapEntry(t *testing.T) {
	program, err := parser.Parse(strings.NewReader("var a = 1; print a;"))
	if err != nil {
		t.Fatalf("parser.Parse: unexpected error: %s", err)
	}
	distances, err := resolver.Resolve(program)
	if err != nil {
		t.Fatalf("resolver.Resolve: unexpected error: %s", err)
	}
	if len(distances) != 0 {
		t.Errorf("got %d distance entries for a top-level global reference, want 0", len(distances))
	}
}

// TestResolveIdentityKeyedMap checks that the two occurrences of a in "print a + a;" resolve independently: they
// share a lexeme but must be distinct map keys, since the distance map is keyed by token identity, not lexeme.
func TestResolveIdentityKeyedMap(t *testing.T) {
	program, err := parser.Parse(strings.NewReader("{ var a = 1; print a + a; }"))
	if err != nil {
		t.Fatalf("parser.Parse: unexpected error: %s", err)
	}
	distances, err := resolver.Resolve(program)
	if err != nil {
		t.Fatalf("resolver.Resolve: unexpected error: %s", err)
	}
	count := 0
	for tok, d := range distances {
		if tok.Lexeme == "a" {
			count++
			if d != 0 {
				t.Errorf("distance of occurrence %#v = %d, want 0", tok, d)
			}
		}
	}
	if count != 2 {
		t.Errorf("got %d distinct map entries for 'a', want 2 (one per occurrence)", count)
	}
}

// TestResolveIsIdempotent checks that resolving the same tree twice yields the same distances (keyed by token
// identity, which is stable across runs since token IDs are assigned once, at parse time).
func TestResolveIsIdempotent(t *testing.T) {
	program, err := parser.Parse(strings.NewReader("{ var a = 1; { var b = a; print b; } }"))
	if err != nil {
		t.Fatalf("parser.Parse: unexpected error: %s", err)
	}
	first, err := resolver.Resolve(program)
	if err != nil {
		t.Fatalf("resolver.Resolve (first run): unexpected error: %s", err)
	}
	second, err := resolver.Resolve(program)
	if err != nil {
		t.Fatalf("resolver.Resolve (second run): unexpected error: %s", err)
	}
	if len(first) != len(second) {
		t.Fatalf("got %d entries on the first run, %d on the second", len(first), len(second))
	}
	for tok, d := range first {
		if second[tok] != d {
			t.Errorf("token %#v: first run distance %d, second run distance %d", tok, d, second[tok])
		}
	}
}

func TestResolveSelfInitialisingDeclarationIsAnError(t *testing.T) {
	_, _, err := mustResolve(t, "var a = 1; { var a = a; }")
	if err == nil {
		t.Fatal("got nil error, want an error for a self-referential initialiser")
	}
	if !strings.Contains(err.Error(), "own initializer") {
		t.Errorf("error message %q doesn't mention the self-referential initialiser", err.Error())
	}
}

func TestResolveDuplicateLocalDeclarationIsAnError(t *testing.T) {
	_, _, err := mustResolve(t, "{ var a = 1; var a = 2; }")
	if err == nil {
		t.Fatal("got nil error, want an error for a duplicate local declaration")
	}
	if !strings.Contains(err.Error(), "Already a variable with this name") {
		t.Errorf("error message %q doesn't mention the duplicate declaration", err.Error())
	}
}

func TestResolveDuplicateGlobalDeclarationIsAllowed(t *testing.T) {
	_, _, err := mustResolve(t, "var a = 1; var a = 2; print a;")
	if err != nil {
		t.Errorf("got error %q, want none: redeclaring a global is allowed", err)
	}
}

// TestResolveUnusedLocalsParamsAndNestedDeclsAreAllowed checks that an unused local, an unused function parameter,
// and an unused nested function or class declaration are all accepted: nothing requires every binding to be read.
func TestResolveUnusedLocalsParamsAndNestedDeclsAreAllowed(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unused block-scoped local", `{ var x = 1; print "hi"; }`},
		{"unused function parameter", `fun f(a, b) { return a; } f(1, 2);`},
		{"unused nested function declaration", `{ fun g() {} print "hi"; }`},
		{"unused nested class declaration", `{ class C {} print "hi"; }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := mustResolve(t, tt.src)
			if err != nil {
				t.Errorf("got error %q, want none: an unused binding isn't a resolver error", err)
			}
		})
	}
}

func TestResolveReturnOutsideFunctionIsAnError(t *testing.T) {
	_, _, err := mustResolve(t, "return 1;")
	if err == nil {
		t.Fatal("got nil error, want an error for a top-level return")
	}
	if !strings.Contains(err.Error(), "return from top-level code") {
		t.Errorf("error message %q doesn't mention the top-level return", err.Error())
	}
}

func TestResolveReturnValueFromInitialiserIsAnError(t *testing.T) {
	_, _, err := mustResolve(t, "class A { init() { return 1; } }")
	if err == nil {
		t.Fatal("got nil error, want an error for returning a value from an initializer")
	}
	if !strings.Contains(err.Error(), "return a value from an initializer") {
		t.Errorf("error message %q doesn't mention the initializer restriction", err.Error())
	}
}

func TestResolveBareReturnFromInitialiserIsAllowed(t *testing.T) {
	_, _, err := mustResolve(t, "class A { init() { return; } }")
	if err != nil {
		t.Errorf("got error %q, want none: bare return is allowed in an initializer", err)
	}
}

func TestResolveThisOutsideClassIsAnError(t *testing.T) {
	_, _, err := mustResolve(t, "print this;")
	if err == nil {
		t.Fatal("got nil error, want an error for 'this' outside a class")
	}
	if !strings.Contains(err.Error(), "'this' outside of a class") {
		t.Errorf("error message %q doesn't mention the 'this' restriction", err.Error())
	}
}

func TestResolveSuperOutsideSubclassIsAnError(t *testing.T) {
	_, _, err := mustResolve(t, "class A { hi() { super.hi(); } }")
	if err == nil {
		t.Fatal("got nil error, want an error for 'super' with no superclass")
	}
	if !strings.Contains(err.Error(), "no superclass") {
		t.Errorf("error message %q doesn't mention the missing superclass", err.Error())
	}
}

func TestResolveBreakOutsideLoopIsAnError(t *testing.T) {
	_, _, err := mustResolve(t, "break;")
	if err == nil {
		t.Fatal("got nil error, want an error for a top-level break")
	}
	if !strings.Contains(err.Error(), "'break' outside of a loop") {
		t.Errorf("error message %q doesn't mention the loop restriction", err.Error())
	}
}

func TestResolveBreakInsideFunctionInsideLoopIsAnError(t *testing.T) {
	// A break inside a function nested in a loop body still can't see past the function boundary: it isn't itself
	// inside a loop.
	_, _, err := mustResolve(t, "while (true) { fun f() { break; } f(); }")
	if err == nil {
		t.Fatal("got nil error, want an error: break doesn't reach through a function boundary")
	}
	if !strings.Contains(err.Error(), "'break' outside of a loop") {
		t.Errorf("error message %q doesn't mention the loop restriction", err.Error())
	}
}
