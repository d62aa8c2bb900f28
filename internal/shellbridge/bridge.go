// Package shellbridge implements the rule that turns an unresolved symbol
// application into a child-process invocation, and the pipe combinator
// that blends OS processes with in-language function application via an
// accumulator-plus-buffer design: every stage leaves both a value and its
// serialized bytes, whichever the next stage needs.
package shellbridge

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/duneshell/dune/internal/ast"
	"github.com/duneshell/dune/internal/reporterr"
)

// maxEnvValueLen guards against "argument list too long" on Linux by
// dropping any binding whose stringified value exceeds this many bytes from
// a spawned child's environment.
const maxEnvValueLen = 1024

// RunProgram constructs and runs a child process named name. argv is
// evaluated left to right, skipping None results. Stdout is captured when
// capture is true (e.g. inside a Group's stdio-capture frame); stderr and
// stdin are always inherited here (the pipe-stage variant in RunPipe
// overrides stdin/stdout per stage).
func RunProgram(rt ast.Runtime, name string, argv []ast.Expression, capture bool) (ast.Expression, error) {
	args, err := evalArgs(rt, argv)
	if err != nil {
		return ast.None, err
	}

	cmd := exec.Command(name, args...)
	cmd.Dir = rt.GetCWD()
	cmd.Env = childEnv(rt)
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	var out bytes.Buffer
	if capture {
		cmd.Stdout = &out
	} else {
		cmd.Stdout = os.Stdout
	}

	runErr := cmd.Run()
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return ast.None, reporterr.NewCommandFailed(name)
		}
		if errors.Is(runErr, exec.ErrNotFound) || os.IsNotExist(runErr) {
			return ast.None, reporterr.NewCustom("program not found: %s", name)
		}
		if os.IsPermission(runErr) {
			return ast.None, reporterr.NewCustom("permission denied: %s", name)
		}
		return ast.None, reporterr.NewCommandFailed(name)
	}

	if !capture {
		return ast.None, nil
	}
	return bytesOrString(out.Bytes()), nil
}

func evalArgs(rt ast.Runtime, argv []ast.Expression) ([]string, error) {
	args := make([]string, 0, len(argv))
	for _, a := range argv {
		if a.Kind == ast.KindNone {
			continue
		}
		v, err := rt.Eval(a)
		if err != nil {
			return nil, err
		}
		if v.Kind == ast.KindNone {
			continue
		}
		args = append(args, v.String())
	}
	return args, nil
}

// childEnv overlays the current binding chain onto the parent's environment
// as KEY=VALUE pairs, dropping any binding whose stringified form exceeds
// maxEnvValueLen. The parent environment is kept (PATH and friends must
// survive into the child); bindings shadow inherited variables of the same
// name.
func childEnv(rt ast.Runtime) []string {
	merged := map[string]string{}
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			merged[kv[:i]] = kv[i+1:]
		}
	}
	type bindingSource interface {
		AllBindings() map[string]ast.Expression
	}
	if src, ok := rt.(bindingSource); ok {
		for k, v := range src.AllBindings() {
			s := v.String()
			if len(s) > maxEnvValueLen {
				continue
			}
			merged[k] = s
		}
	}
	env := make([]string, 0, len(merged))
	for k, v := range merged {
		env = append(env, k+"="+v)
	}
	return env
}

func bytesOrString(b []byte) ast.Expression {
	if utf8.Valid(b) {
		return ast.String(string(b))
	}
	return ast.BytesVal(b)
}

// isCommandStage classifies a pipe stage as an OS command (as opposed to an
// in-language function application): a bare Symbol, or Apply(Symbol, ...),
// where the symbol is either unbound or aliased to another Symbol.
func isCommandStage(rt ast.Runtime, expr ast.Expression) (name string, argv []ast.Expression, isCommand bool) {
	switch expr.Kind {
	case ast.KindGroup, ast.KindQuote:
		return isCommandStage(rt, *expr.Inner)

	case ast.KindSymbol:
		if v, ok := rt.Get(expr.Name); ok {
			if v.Kind == ast.KindSymbol {
				return v.Name, nil, true
			}
			return "", nil, false
		}
		return expr.Name, nil, true

	case ast.KindApply:
		if expr.Callee.Kind != ast.KindSymbol {
			return "", nil, false
		}
		if v, ok := rt.Get(expr.Callee.Name); ok {
			if v.Kind == ast.KindSymbol {
				return v.Name, expr.Args, true
			}
			return "", nil, false
		}
		return expr.Callee.Name, expr.Args, true

	default:
		return "", nil, false
	}
}

// RunPipe implements the __pipe__ combinator: command stages spawn child
// processes chained stdin/stdout; function stages are ordinary in-language
// application over a running accumulator. The whole prior stage's output
// is buffered before the next stage runs — no streaming.
func RunPipe(rt ast.Runtime, stages []ast.Expression) (ast.Expression, error) {
	if len(stages) <= 1 {
		return ast.None, reporterr.NewCustom("pipe requires at least two arguments")
	}

	var accumulator ast.Expression = ast.None
	var buf []byte

	for i, stageExpr := range stages {
		isFirst := i == 0
		isLast := i == len(stages)-1

		if name, argv, ok := isCommandStage(rt, stageExpr); ok {
			args, err := evalArgs(rt, argv)
			if err != nil {
				return ast.None, err
			}
			cmd := exec.Command(name, args...)
			cmd.Dir = rt.GetCWD()
			cmd.Env = childEnv(rt)
			cmd.Stderr = os.Stderr

			if isFirst {
				cmd.Stdin = os.Stdin
			} else {
				cmd.Stdin = bytes.NewReader(buf)
			}

			var out bytes.Buffer
			if isLast {
				cmd.Stdout = os.Stdout
			} else {
				cmd.Stdout = &out
			}

			if err := cmd.Run(); err != nil {
				return ast.None, reporterr.NewCustom("error running process `%s`: %v", name, err)
			}

			if isLast {
				accumulator = ast.None
			} else {
				buf = out.Bytes()
				accumulator = bytesOrString(buf)
			}
			continue
		}

		// Function stage.
		var toEval ast.Expression
		if isFirst {
			toEval = stageExpr
		} else {
			toEval = ast.Apply(stageExpr, []ast.Expression{accumulator})
		}
		result, err := rt.Eval(toEval)
		if err != nil {
			return ast.None, err
		}
		accumulator = result
		if result.Kind == ast.KindBytes {
			buf = result.Bytes
		} else {
			buf = []byte(result.String())
		}
	}

	return accumulator, nil
}
