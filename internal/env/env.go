// Package env implements Dune's chained lexical environment: bindings plus
// an optional parent, with a well-known CWD binding that is authoritative
// for relative-path resolution independent of the OS's actual working
// directory (see the CWD dual-tracking note in the design notes).
package env

import (
	"sort"

	"github.com/duneshell/dune/internal/ast"
)

const cwdVar = "CWD"

// Environment is a singly-linked scope chain. The zero value is a valid,
// parentless root environment.
type Environment struct {
	bindings map[string]ast.Expression
	parent   *Environment
}

// New returns an empty root environment.
func New() *Environment {
	return &Environment{bindings: make(map[string]ast.Expression)}
}

// Child returns a new environment whose parent is e.
func (e *Environment) Child() *Environment {
	return &Environment{bindings: make(map[string]ast.Expression), parent: e}
}

// SetParent rewires e's parent pointer; nil makes e a parentless root.
// Lambda application builds its frame with FromSnapshot and does not call
// this.
func (e *Environment) SetParent(parent *Environment) {
	e.parent = parent
}

// Get walks the chain looking for name.
func (e *Environment) Get(name string) (ast.Expression, bool) {
	if v, ok := e.bindings[name]; ok {
		return v, true
	}
	if e.parent != nil {
		return e.parent.Get(name)
	}
	return ast.None, false
}

// IsDefined reports whether name is bound anywhere in the chain.
func (e *Environment) IsDefined(name string) bool {
	_, ok := e.Get(name)
	return ok
}

// Define installs name in the current frame only.
func (e *Environment) Define(name string, val ast.Expression) {
	if e.bindings == nil {
		e.bindings = make(map[string]ast.Expression)
	}
	e.bindings[name] = val
}

// Undefine removes name from the current frame only (it does not reach
// into a parent frame even if a binding is shadowed there).
func (e *Environment) Undefine(name string) {
	delete(e.bindings, name)
}

// DefineBuiltin installs a host-provided callable with help text. Every
// builtin the core ships with non-empty help so that the `help` builtin
// always has something to show.
func (e *Environment) DefineBuiltin(name string, fn ast.BuiltinFunc, help string) {
	e.Define(name, ast.Builtin(name, fn, help))
}

// GetCWD returns the CWD binding, defaulting to "/" if unset or not a
// string.
func (e *Environment) GetCWD() string {
	if v, ok := e.Get(cwdVar); ok && v.Kind == ast.KindString {
		return v.Str
	}
	return "/"
}

// SetCWD installs the CWD binding in the current frame.
func (e *Environment) SetCWD(path string) {
	e.Define(cwdVar, ast.String(path))
}

// Bindings returns a copy of the *local* frame's bindings (not walking
// parents). The shell bridge uses AllBindings instead, which flattens the
// whole chain.
func (e *Environment) Bindings() map[string]ast.Expression {
	out := make(map[string]ast.Expression, len(e.bindings))
	for k, v := range e.bindings {
		out[k] = v
	}
	return out
}

// AllBindings flattens the whole chain (child bindings shadow parent ones),
// used by the shell bridge to build a full environment-variable overlay for
// spawned processes.
func (e *Environment) AllBindings() map[string]ast.Expression {
	out := map[string]ast.Expression{}
	chain := []*Environment{}
	for cur := e; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i].bindings {
			out[k] = v
		}
	}
	return out
}

// Names returns every name visible from e, sorted, for completion/help use.
func (e *Environment) Names() []string {
	all := e.AllBindings()
	names := make([]string, 0, len(all))
	for k := range all {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// FromSnapshot builds a parentless environment from a flat binding
// snapshot — the representation a Lambda's captured environment uses.
func FromSnapshot(snapshot map[string]ast.Expression) *Environment {
	e := New()
	for k, v := range snapshot {
		e.bindings[k] = v
	}
	return e
}
