// Package repl implements the shell's startup sequence and interactive
// loop: constructing the root environment, registering builtins,
// populating the platform-directory bindings, loading the user's prelude
// (or the built-in default), and driving the read-eval-print loop with a
// pluggable line source. LineSource is the seam that keeps the concrete
// line editor swappable.
package repl

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/duneshell/dune/internal/ast"
	"github.com/duneshell/dune/internal/builtin"
	"github.com/duneshell/dune/internal/env"
	"github.com/duneshell/dune/internal/eval"
	"github.com/duneshell/dune/internal/parser"
)

// NewRootEnv builds the process-wide root environment and installs every
// builtin the interpreter ships with: the reserved __op__ family plus the
// core standard builtins.
func NewRootEnv() *env.Environment {
	root := env.New()
	var reg builtin.Registry
	builtin.RegisterOperators(&reg)
	builtin.RegisterCore(&reg)
	reg.InstallInto(root)
	return root
}

// PopulatePlatformDirs installs the OS/HOME/DESK/DOCS/DOWN bindings from
// platform directory APIs and seeds CWD from the process working
// directory.
func PopulatePlatformDirs(e *env.Environment) {
	e.Define("OS", ast.String(runtime.GOOS))
	home, err := os.UserHomeDir()
	if err != nil {
		e.SetCWD(cwdOrHome("/"))
		return
	}
	e.Define("HOME", ast.String(home))
	e.Define("DESK", ast.String(filepath.Join(home, "Desktop")))
	e.Define("DOCS", ast.String(filepath.Join(home, "Documents")))
	e.Define("DOWN", ast.String(filepath.Join(home, "Downloads")))
	e.SetCWD(cwdOrHome(home))
}

func cwdOrHome(home string) string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return home
}

// LoadPrelude evaluates "<home>/.dune-prelude" if present, otherwise the
// built-in DefaultPrelude. Errors are reported to stderr and do not
// prevent the REPL from starting.
func LoadPrelude(e *env.Environment, skip bool) {
	if skip {
		return
	}
	ctx := eval.NewContext(e)
	home, err := os.UserHomeDir()
	if err == nil {
		path := filepath.Join(home, ".dune-prelude")
		if data, readErr := os.ReadFile(path); readErr == nil {
			runPreludeSource(ctx, path, string(data))
			return
		}
	}
	runPreludeSource(ctx, "<default prelude>", DefaultPrelude)
}

func runPreludeSource(ctx *eval.Context, label, src string) {
	expr, err := parser.ParseScript(src, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error while parsing %s: %v\n", label, err)
		return
	}
	if _, err := eval.Eval(expr, ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error while running %s: %v\n", label, err)
	}
}
