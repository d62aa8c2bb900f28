package eval

import (
	"testing"

	"github.com/duneshell/dune/internal/ast"
	"github.com/duneshell/dune/internal/builtin"
	"github.com/duneshell/dune/internal/env"
	"github.com/duneshell/dune/internal/parser"
)

func newTestEnv(t *testing.T) *env.Environment {
	t.Helper()
	e := env.New()
	var reg builtin.Registry
	builtin.RegisterOperators(&reg)
	builtin.RegisterCore(&reg)
	reg.InstallInto(e)
	e.SetCWD("/tmp")
	return e
}

func run(t *testing.T, src string) ast.Expression {
	t.Helper()
	e := newTestEnv(t)
	expr, err := parser.ParseScript(src, true)
	if err != nil {
		t.Fatalf("parse(%q): %v", src, err)
	}
	result, err := Eval(expr, NewContext(e))
	if err != nil {
		t.Fatalf("eval(%q): %v", src, err)
	}
	return result
}

// TestEndToEndScenarios covers the literal scenarios enumerated in the
// testable-properties section: each is an independent assertion on what a
// full parse+eval of the script produces.
func TestEndToEndScenarios(t *testing.T) {
	t.Run("let and add", func(t *testing.T) {
		got := run(t, "let x = 3; x + 4")
		if got.Kind != ast.KindInteger || got.Int != 7 {
			t.Fatalf("got %+v, want Integer(7)", got)
		}
	})

	t.Run("curried lambda", func(t *testing.T) {
		got := run(t, "let f = x -> y -> x + y; f 2 3")
		if got.Kind != ast.KindInteger || got.Int != 5 {
			t.Fatalf("got %+v, want Integer(5)", got)
		}
	})

	t.Run("for over range squares", func(t *testing.T) {
		got := run(t, "for i in 0 to 3 { i * i }")
		if got.Kind != ast.KindList || len(got.List) != 3 {
			t.Fatalf("got %+v, want a 3-element list", got)
		}
		want := []int64{0, 1, 4}
		for i, w := range want {
			if got.List[i].Int != w {
				t.Fatalf("element %d = %d, want %d", i, got.List[i].Int, w)
			}
		}
	})

	t.Run("map index", func(t *testing.T) {
		got := run(t, "{a = 1, b = 2}@b")
		if got.Kind != ast.KindInteger || got.Int != 2 {
			t.Fatalf("got %+v, want Integer(2)", got)
		}
	})

	t.Run("empty list is falsy", func(t *testing.T) {
		got := run(t, "if [] 1 else 2")
		if got.Kind != ast.KindInteger || got.Int != 2 {
			t.Fatalf("got %+v, want Integer(2)", got)
		}
	})

	t.Run("macro sees caller scope", func(t *testing.T) {
		got := run(t, "let y = 10; let m = x ~> x + y; m 5")
		if got.Kind != ast.KindInteger || got.Int != 15 {
			t.Fatalf("got %+v, want Integer(15)", got)
		}
	})

	t.Run("quote then eval", func(t *testing.T) {
		got := run(t, "let q = '(1 + 2); eval q")
		if got.Kind != ast.KindInteger || got.Int != 3 {
			t.Fatalf("got %+v, want Integer(3)", got)
		}
	})

	t.Run("pipe into lambda", func(t *testing.T) {
		got := run(t, `"Hello" | (x -> x + " world")`)
		if got.Kind != ast.KindString || got.Str != "Hello world" {
			t.Fatalf("got %+v, want String(\"Hello world\")", got)
		}
	})
}

func TestMixedArithmeticPromotesToFloat(t *testing.T) {
	got := run(t, "3 + 4.5")
	if got.Kind != ast.KindFloat || got.Float != 7.5 {
		t.Fatalf("got %+v, want Float(7.5)", got)
	}
}

func TestUnboundSymbolStaysASymbol(t *testing.T) {
	e := newTestEnv(t)
	result, err := Eval(ast.Symbol("totally_unbound_name"), NewContext(e))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Kind != ast.KindSymbol || result.Name != "totally_unbound_name" {
		t.Fatalf("got %+v, want an inert Symbol", result)
	}
}

func TestForNonListIsAnError(t *testing.T) {
	e := newTestEnv(t)
	expr, err := parser.ParseScript("for i in 5 { i }", true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := Eval(expr, NewContext(e)); err == nil {
		t.Fatal("expected a ForNonList error, got nil")
	}
}

// TestRecursionDepthIsBoundedAndNonFatal uses a self-recursive macro (not a
// lambda): a lambda's captured environment is snapshotted at creation time,
// before its own `let` binding exists, so it can never see itself. A macro
// body runs in the live caller environment at call time, after the `let`
// has completed, so `loop` can call `loop` — and with no base case this
// runs away until the recursion bound trips.
func TestRecursionDepthIsBoundedAndNonFatal(t *testing.T) {
	e := newTestEnv(t)
	expr, err := parser.ParseScript("let loop = x ~> loop x; loop 1", true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := Eval(expr, NewContext(e)); err == nil {
		t.Fatal("expected a recursion-depth error")
	}
	// The environment must still be usable after the bound trips.
	expr2, _ := parser.ParseScript("1 + 1", true)
	result, err := Eval(expr2, NewContext(e))
	if err != nil || result.Int != 2 {
		t.Fatalf("environment unusable after recursion bound: %+v, %v", result, err)
	}
}

// TestLambdaCaptureMinimality exercises the minimized-capture invariant:
// only free symbols referenced in the body are snapshotted, nothing else
// that happens to be bound in the defining scope.
func TestLambdaCaptureMinimality(t *testing.T) {
	e := newTestEnv(t)
	expr, err := parser.ParseScript(`let a = 1; let b = 2; let f = x -> x + a`, true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := Eval(expr, NewContext(e)); err != nil {
		t.Fatalf("eval: %v", err)
	}
	f, ok := e.Get("f")
	if !ok || f.Kind != ast.KindLambda {
		t.Fatalf("expected a Lambda bound to f, got %+v", f)
	}
	if _, ok := f.CapturedEnv["a"]; !ok {
		t.Fatal("expected `a` to be captured (it's free in the body)")
	}
	if _, ok := f.CapturedEnv["b"]; ok {
		t.Fatal("`b` should not be captured: it never appears in the body")
	}
	if _, ok := f.CapturedEnv["x"]; ok {
		t.Fatal("the parameter `x` should not be captured alongside itself")
	}
}

func TestMacroDynamicScope(t *testing.T) {
	e := newTestEnv(t)
	expr, err := parser.ParseScript("let m = x ~> y", true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := Eval(expr, NewContext(e)); err != nil {
		t.Fatalf("eval: %v", err)
	}

	applyExpr, _ := parser.ParseScript("m 1", true)

	// y unbound: the macro body evaluates to the inert Symbol("y").
	result, err := Eval(applyExpr, NewContext(e))
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if result.Kind != ast.KindSymbol || result.Name != "y" {
		t.Fatalf("got %+v, want Symbol(y)", result)
	}

	// y bound in the caller's environment: the macro body now resolves it.
	e.Define("y", ast.Integer(42))
	result, err = Eval(applyExpr, NewContext(e))
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if result.Kind != ast.KindInteger || result.Int != 42 {
		t.Fatalf("got %+v, want Integer(42)", result)
	}
}

func TestMapIterationIsDeterministic(t *testing.T) {
	got1 := run(t, `{z = 1, a = 2, m = 3}`)
	got2 := run(t, `{z = 1, a = 2, m = 3}`)
	if got1.Debug() != got2.Debug() {
		t.Fatalf("map rendering not deterministic: %q vs %q", got1.Debug(), got2.Debug())
	}
	want := "{a = 2, m = 3, z = 1}"
	if got1.Debug() != want {
		t.Fatalf("got %q, want %q (key order)", got1.Debug(), want)
	}
}
