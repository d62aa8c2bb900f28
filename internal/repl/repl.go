package repl

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/duneshell/dune/internal/ast"
	"github.com/duneshell/dune/internal/env"
	"github.com/duneshell/dune/internal/eval"
	"github.com/duneshell/dune/internal/parser"
	"github.com/duneshell/dune/internal/reporterr"
	"github.com/duneshell/dune/pkg/lib"
)

// ErrInterrupted is returned by a LineSource when the user pressed Ctrl-C
// mid-line. This restarts the read-eval loop (discarding any partially
// typed multi-line input) without exiting the process; an in-flight child
// process is not interrupted.
var ErrInterrupted = fmt.Errorf("interrupted")

// LineSource is the REPL's only dependency on a concrete line editor;
// tests and embedders can supply their own. Readline returns io.EOF at
// end of input, ErrInterrupted on Ctrl-C, or any other error for a
// genuine I/O failure.
type LineSource interface {
	Readline(prompt string) (string, error)
	Accept(text string) error
	Close() error
}

// REPL drives the read-eval-print loop: compose a prompt from the
// user-defined `prompt`/`incomplete_prompt` symbols, accumulate lines
// until a full statement parses (the "last line was empty" incomplete-
// input heuristic), evaluate, and render the result via the `report`
// builtin.
type REPL struct {
	Env    *env.Environment
	Lines  LineSource
	Stderr io.Writer
}

func New(e *env.Environment, lines LineSource) *REPL {
	return &REPL{Env: e, Lines: lines, Stderr: os.Stderr}
}

// Run executes the loop until the line source signals end of input.
func (r *REPL) Run() {
	var pending []string
	for {
		ctx := eval.NewContext(r.Env)
		prompt := r.computePrompt(ctx, len(pending) > 0)

		line, err := r.Lines.Readline(prompt)
		if err == io.EOF {
			return
		}
		if err == ErrInterrupted {
			pending = nil
			continue
		}
		if err != nil {
			fmt.Fprintln(r.Stderr, "dune:", err)
			return
		}

		pending = append(pending, line)
		text := strings.Join(pending, "\n")

		expr, parseErr := parser.ParseScript(text, true)
		if parseErr != nil {
			// Incomplete-input heuristic: an empty last line means this
			// really was a syntax error, not a statement split across
			// lines — report it and reset. Anything else keeps reading.
			if line == "" {
				r.printError(parseErr)
				pending = nil
			}
			continue
		}

		pending = nil
		if strings.TrimSpace(text) == "" {
			continue
		}
		_ = r.Lines.Accept(text)

		result, evalErr := eval.Eval(expr, ctx)
		if evalErr != nil {
			r.printError(evalErr)
			continue
		}
		r.reportResult(ctx, result)
	}
}

// computePrompt calls the user-defined prompt symbol (prompt or
// incomplete_prompt) with the current CWD, falling back to "cwd$ " if it
// errors or isn't defined.
func (r *REPL) computePrompt(ctx *eval.Context, incomplete bool) string {
	name := "prompt"
	if incomplete {
		name = "incomplete_prompt"
	}
	cwd := ctx.Env.GetCWD()
	result, err := eval.Eval(ast.Apply(ast.Symbol(name), []ast.Expression{ast.String(cwd)}), ctx)
	if err != nil {
		return cwd + "$ "
	}
	return result.String()
}

// reportResult implements the interactive affordances for bare results: a
// Symbol is invoked with no arguments (so a bare `ls` that resolved to an
// alias symbol still runs), a Macro is applied to CWD before being
// reported, everything else goes straight to `report`.
func (r *REPL) reportResult(ctx *eval.Context, result ast.Expression) {
	switch result.Kind {
	case ast.KindNone:
		return

	case ast.KindSymbol:
		if _, err := eval.Eval(ast.Apply(result, nil), ctx); err != nil {
			r.printError(err)
		}

	case ast.KindMacro:
		applied, err := eval.Eval(ast.Apply(result, []ast.Expression{ast.String(ctx.Env.GetCWD())}), ctx)
		if err != nil {
			r.printError(err)
			return
		}
		r.callReport(ctx, applied)

	default:
		r.callReport(ctx, result)
	}
}

// callReport invokes the `report` builtin on an already-evaluated value.
// The value is wrapped in a Quote so that `report`'s internal rt.Eval call
// (needed because builtins always receive raw, unevaluated arguments)
// unwraps to the value unchanged instead of re-evaluating it.
func (r *REPL) callReport(ctx *eval.Context, val ast.Expression) {
	if _, err := eval.Eval(ast.Apply(ast.Symbol("report"), []ast.Expression{ast.Quote(val)}), ctx); err != nil {
		r.printError(err)
	}
}

func (r *REPL) printError(err error) {
	if lib.IsTerminal(os.Stderr) {
		fmt.Fprintln(r.Stderr, reporterr.Render(err))
		return
	}
	fmt.Fprintln(r.Stderr, "error:", err)
}
