package env

import (
	"testing"

	"github.com/duneshell/dune/internal/ast"
)

func TestChildShadowsParent(t *testing.T) {
	root := New()
	root.Define("x", ast.Integer(1))

	child := root.Child()
	child.Define("x", ast.Integer(2))

	if v, _ := child.Get("x"); v.Int != 2 {
		t.Fatalf("child x = %d, want 2", v.Int)
	}
	if v, _ := root.Get("x"); v.Int != 1 {
		t.Fatalf("root x = %d, want 1 (shadowing must not mutate the parent)", v.Int)
	}
}

func TestGetWalksChain(t *testing.T) {
	root := New()
	root.Define("y", ast.Integer(7))
	child := root.Child()

	v, ok := child.Get("y")
	if !ok || v.Int != 7 {
		t.Fatalf("got %+v, %v; want 7, true", v, ok)
	}

	if _, ok := child.Get("nonexistent"); ok {
		t.Fatal("expected nonexistent name to be undefined")
	}
}

func TestUndefineOnlyAffectsLocalFrame(t *testing.T) {
	root := New()
	root.Define("z", ast.Integer(1))
	child := root.Child()

	child.Undefine("z")
	if !child.IsDefined("z") {
		t.Fatal("undefine in the child frame should not remove the parent's binding")
	}
}

func TestAllBindingsFlattensWithChildPrecedence(t *testing.T) {
	root := New()
	root.Define("a", ast.Integer(1))
	root.Define("b", ast.Integer(2))
	child := root.Child()
	child.Define("b", ast.Integer(20))
	child.Define("c", ast.Integer(3))

	all := child.AllBindings()
	if len(all) != 3 {
		t.Fatalf("got %d bindings, want 3: %+v", len(all), all)
	}
	if all["b"].Int != 20 {
		t.Fatalf("b = %d, want the child's shadowing value 20", all["b"].Int)
	}
	if all["a"].Int != 1 {
		t.Fatalf("a = %d, want 1 (inherited)", all["a"].Int)
	}
}

func TestBindingsIsLocalOnly(t *testing.T) {
	root := New()
	root.Define("a", ast.Integer(1))
	child := root.Child()
	child.Define("b", ast.Integer(2))

	local := child.Bindings()
	if _, ok := local["a"]; ok {
		t.Fatal("Bindings() should not include the parent's bindings")
	}
	if _, ok := local["b"]; !ok {
		t.Fatal("Bindings() should include the local frame's own bindings")
	}
}

func TestCWDDefaultsAndOverrides(t *testing.T) {
	e := New()
	if got := e.GetCWD(); got != "/" {
		t.Fatalf("default CWD = %q, want \"/\"", got)
	}
	e.SetCWD("/home/dune")
	if got := e.GetCWD(); got != "/home/dune" {
		t.Fatalf("GetCWD = %q, want /home/dune", got)
	}
}

func TestFromSnapshotIsParentless(t *testing.T) {
	root := New()
	root.Define("leaked", ast.Integer(99))

	snap := map[string]ast.Expression{"x": ast.Integer(1)}
	e := FromSnapshot(snap)
	e.SetParent(nil)

	if e.IsDefined("leaked") {
		t.Fatal("a snapshot-built environment must not see bindings outside the snapshot")
	}
	if v, ok := e.Get("x"); !ok || v.Int != 1 {
		t.Fatalf("got %+v, %v; want 1, true", v, ok)
	}
}

func TestNamesAreSorted(t *testing.T) {
	e := New()
	e.Define("zebra", ast.Integer(1))
	e.Define("apple", ast.Integer(2))
	e.Define("mango", ast.Integer(3))

	names := e.Names()
	want := []string{"apple", "mango", "zebra"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}
