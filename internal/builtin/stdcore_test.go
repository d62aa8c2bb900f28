package builtin

import (
	"testing"

	"github.com/duneshell/dune/internal/ast"
	"github.com/duneshell/dune/internal/env"
	"github.com/duneshell/dune/internal/eval"
)

func callCore(t *testing.T, name string, args ...ast.Expression) ast.Expression {
	t.Helper()
	var reg Registry
	RegisterCore(&reg)
	var fn ast.BuiltinFunc
	for _, e := range reg.Entries() {
		if e.Name == name {
			fn = e.Fn
		}
	}
	if fn == nil {
		t.Fatalf("no such core builtin %q", name)
	}
	got, err := fn(args, newTestRuntime())
	if err != nil {
		t.Fatalf("%s%v: %v", name, args, err)
	}
	return got
}

func TestStrRendersValue(t *testing.T) {
	got := callCore(t, "str", ast.Integer(42))
	if got.Kind != ast.KindString || got.Str != "42" {
		t.Fatalf("str(42) = %+v, want String(\"42\")", got)
	}
}

func TestIntParsesAndTruncates(t *testing.T) {
	if got := callCore(t, "int", ast.String("17")); got.Int != 17 {
		t.Fatalf("int(\"17\") = %+v, want 17", got)
	}
	if got := callCore(t, "int", ast.Float(3.9)); got.Int != 3 {
		t.Fatalf("int(3.9) = %+v, want 3 (truncation, not rounding)", got)
	}
}

func TestIntRejectsGarbageString(t *testing.T) {
	var reg Registry
	RegisterCore(&reg)
	var fn ast.BuiltinFunc
	for _, e := range reg.Entries() {
		if e.Name == "int" {
			fn = e.Fn
		}
	}
	if _, err := fn([]ast.Expression{ast.String("not a number")}, newTestRuntime()); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestInsertIntoMapAndList(t *testing.T) {
	m := ast.MapOf(map[string]ast.Expression{"a": ast.Integer(1)})
	got := callCore(t, "insert", m, ast.String("b"), ast.Integer(2))
	if got.Map["b"].Int != 2 || got.Map["a"].Int != 1 {
		t.Fatalf("insert into map = %+v, want both a and b present", got)
	}

	list := ast.ListOf([]ast.Expression{ast.Integer(1), ast.Integer(3)})
	got = callCore(t, "insert", list, ast.Integer(1), ast.Integer(2))
	want := []int64{1, 2, 3}
	if len(got.List) != 3 {
		t.Fatalf("insert into list = %+v, want a 3-element list", got)
	}
	for i, w := range want {
		if got.List[i].Int != w {
			t.Fatalf("element %d = %d, want %d", i, got.List[i].Int, w)
		}
	}
}

func TestLenAcrossKinds(t *testing.T) {
	if got := callCore(t, "len", ast.String("hello")); got.Int != 5 {
		t.Fatalf("len(\"hello\") = %+v, want 5", got)
	}
	if got := callCore(t, "len", ast.ListOf([]ast.Expression{ast.Integer(1), ast.Integer(2)})); got.Int != 2 {
		t.Fatalf("len([1,2]) = %+v, want 2", got)
	}
	if got := callCore(t, "len", ast.MapOf(map[string]ast.Expression{"a": ast.Integer(1)})); got.Int != 1 {
		t.Fatalf("len({a=1}) = %+v, want 1", got)
	}
}

func TestCharsSplitsIntoRunes(t *testing.T) {
	got := callCore(t, "chars", ast.String("ab"))
	if len(got.List) != 2 || got.List[0].Str != "a" || got.List[1].Str != "b" {
		t.Fatalf("chars(\"ab\") = %+v, want [\"a\", \"b\"]", got)
	}
}

func TestHeadAndTail(t *testing.T) {
	list := ast.ListOf([]ast.Expression{ast.Integer(1), ast.Integer(2), ast.Integer(3)})
	if got := callCore(t, "head", list); got.Int != 1 {
		t.Fatalf("head([1,2,3]) = %+v, want 1", got)
	}
	got := callCore(t, "tail", list)
	if len(got.List) != 2 || got.List[0].Int != 2 {
		t.Fatalf("tail([1,2,3]) = %+v, want [2,3]", got)
	}

	if got := callCore(t, "head", ast.ListOf(nil)); got.Kind != ast.KindNone {
		t.Fatalf("head([]) = %+v, want None", got)
	}
}

func TestLinesSplitsOnNewlineAndTrimsTrailing(t *testing.T) {
	got := callCore(t, "lines", ast.String("a\nb\nc\n"))
	if len(got.List) != 3 {
		t.Fatalf("lines(\"a\\nb\\nc\\n\") = %+v, want 3 lines (no trailing empty element)", got)
	}
}

func TestUnbindRemovesFromCurrentFrame(t *testing.T) {
	rt := newTestRuntime()
	rt.Define("x", ast.Integer(1))
	var reg Registry
	RegisterCore(&reg)
	var fn ast.BuiltinFunc
	for _, e := range reg.Entries() {
		if e.Name == "unbind" {
			fn = e.Fn
		}
	}
	if _, err := fn([]ast.Expression{ast.Symbol("x")}, rt); err != nil {
		t.Fatalf("unbind: %v", err)
	}
	if rt.IsDefined("x") {
		t.Fatal("expected x to be undefined after unbind")
	}
}

func TestExitBuiltinInvokesExitFunc(t *testing.T) {
	var gotCode int
	called := false
	old := ExitFunc
	ExitFunc = func(code int) { called = true; gotCode = code }
	defer func() { ExitFunc = old }()

	callCore(t, "exit", ast.Integer(3))
	if !called || gotCode != 3 {
		t.Fatalf("ExitFunc called=%v code=%d, want true, 3", called, gotCode)
	}
}

func TestHelpListsNothingWithoutArgsButDoesNotError(t *testing.T) {
	got := callCore(t, "help")
	if got.Kind != ast.KindString {
		t.Fatalf("help() = %+v, want a String", got)
	}
}

func TestHelpOnKnownBuiltinReturnsItsText(t *testing.T) {
	e := env.New()
	e.SetCWD("/tmp")
	var reg Registry
	RegisterOperators(&reg)
	RegisterCore(&reg)
	reg.InstallInto(e)
	rt := eval.NewContext(e)

	var helpFn ast.BuiltinFunc
	for _, entry := range reg.Entries() {
		if entry.Name == "help" {
			helpFn = entry.Fn
		}
	}
	got, err := helpFn([]ast.Expression{ast.Symbol("len")}, rt)
	if err != nil {
		t.Fatalf("help(len): %v", err)
	}
	if got.Kind != ast.KindString || got.Str == "" {
		t.Fatalf("help(len) = %+v, want non-empty help text", got)
	}
}
