// Package builtin implements the builtin registry and the core
// standard-library surface the evaluator itself depends on: the operator
// lowering targets (__add__ … __idx__, __pipe__) plus the builtins every
// session starts with (let, range, eval, exit, quit, help, print,
// println, echo, input, str, int, insert, len, chars, head, tail, lines,
// cd, unbind, report).
package builtin

import (
	"fmt"

	"github.com/duneshell/dune/internal/ast"
	"github.com/duneshell/dune/internal/env"
	"github.com/duneshell/dune/internal/reporterr"
)

// Entry is a single builtin registration: a name, a host function, and its
// help text. A builtin's help text is required to be non-empty so that the
// `help` builtin always has something to show.
type Entry struct {
	Name string
	Fn   ast.BuiltinFunc
	Help string
}

// Registry accumulates Entries before they're installed into an
// environment, so callers can compose builtin sets (operators, core,
// embedder extensions) before a single InstallInto.
type Registry struct {
	entries []Entry
}

// Add registers a builtin. help must be non-empty.
func (r *Registry) Add(name string, fn ast.BuiltinFunc, help string) {
	if help == "" {
		panic(fmt.Sprintf("builtin %q registered without help text", name))
	}
	r.entries = append(r.entries, Entry{Name: name, Fn: fn, Help: help})
}

// InstallInto defines every registered entry as a builtin in e.
func (r *Registry) InstallInto(e *env.Environment) {
	for _, entry := range r.entries {
		e.DefineBuiltin(entry.Name, entry.Fn, entry.Help)
	}
}

// Entries exposes the accumulated registrations. `help` with no argument
// lists builtins from the environment's bindings, not from this list.
func (r *Registry) Entries() []Entry {
	return r.entries
}

// CheckExact raises a CustomError-shaped error unless args has exactly n
// elements.
func CheckExact(name string, args []ast.Expression, n int) error {
	if len(args) != n {
		return reporterr.NewCustom("%s: expected %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

// CheckRange raises an error unless len(args) is within [lo, hi].
func CheckRange(name string, args []ast.Expression, lo, hi int) error {
	if len(args) < lo || len(args) > hi {
		return reporterr.NewCustom("%s: expected %d to %d argument(s), got %d", name, lo, hi, len(args))
	}
	return nil
}
