// Package eval implements Dune's tree-walking evaluator: one operation,
// Eval, dispatching per the Expression variant. Recursion is bounded by an
// explicit depth counter rather than tail-call optimization.
package eval

import (
	"github.com/duneshell/dune/internal/ast"
	"github.com/duneshell/dune/internal/env"
	"github.com/duneshell/dune/internal/reporterr"
	"github.com/duneshell/dune/internal/shellbridge"
)

// MaxRecursionDepth bounds eval's recursion; exceeding it fails the current
// evaluation without touching the REPL driver.
const MaxRecursionDepth = 800

// Context threads the live environment, recursion depth, and the
// stdio-capture flag through an evaluation. It implements ast.Runtime so
// builtins (which receive a Runtime, not a *Context) can call back into
// Eval and the shell bridge without an import cycle.
type Context struct {
	Env     *env.Environment
	Depth   int
	Capture bool
}

func NewContext(e *env.Environment) *Context {
	return &Context{Env: e}
}

func (c *Context) Get(name string) (ast.Expression, bool) { return c.Env.Get(name) }
func (c *Context) Define(name string, val ast.Expression) { c.Env.Define(name, val) }
func (c *Context) Undefine(name string)                   { c.Env.Undefine(name) }
func (c *Context) IsDefined(name string) bool             { return c.Env.IsDefined(name) }
func (c *Context) GetCWD() string                         { return c.Env.GetCWD() }
func (c *Context) SetCWD(path string)                     { c.Env.SetCWD(path) }
func (c *Context) IsCapturing() bool                      { return c.Capture }
func (c *Context) AllBindings() map[string]ast.Expression { return c.Env.AllBindings() }

func (c *Context) Eval(e ast.Expression) (ast.Expression, error) { return Eval(e, c) }

func (c *Context) RunProgram(name string, argv []ast.Expression, capture bool) (ast.Expression, error) {
	child := &Context{Env: c.Env, Depth: c.Depth, Capture: capture}
	return shellbridge.RunProgram(child, name, argv, capture)
}

func (c *Context) RunPipe(stages []ast.Expression) (ast.Expression, error) {
	return shellbridge.RunPipe(c, stages)
}

func (c *Context) withEnv(e *env.Environment) *Context {
	return &Context{Env: e, Depth: c.Depth + 1, Capture: c.Capture}
}

func (c *Context) nested() *Context {
	return &Context{Env: c.Env, Depth: c.Depth + 1, Capture: c.Capture}
}

func (c *Context) capturing() *Context {
	return &Context{Env: c.Env, Depth: c.Depth + 1, Capture: true}
}

// Eval evaluates expr against ctx. Quote is inert, Group opens a stdio
// capture frame, an unresolved Symbol evaluates to itself, Apply
// dispatches on the callee's evaluated kind, and a Lambda literal
// performs minimized free-symbol capture.
func Eval(expr ast.Expression, ctx *Context) (ast.Expression, error) {
	if ctx.Depth > MaxRecursionDepth {
		return ast.None, reporterr.New(reporterr.RecursionDepth, expr)
	}

	switch expr.Kind {
	case ast.KindNone, ast.KindInteger, ast.KindFloat, ast.KindBoolean,
		ast.KindString, ast.KindBytes, ast.KindMacro, ast.KindBuiltin:
		return expr, nil

	case ast.KindSymbol:
		if v, ok := ctx.Env.Get(expr.Name); ok {
			return v, nil
		}
		return expr, nil

	case ast.KindQuote:
		return *expr.Inner, nil

	case ast.KindGroup:
		return Eval(*expr.Inner, ctx.capturing())

	case ast.KindAssign:
		val, err := Eval(*expr.Inner, ctx.nested())
		if err != nil {
			return ast.None, err
		}
		ctx.Env.Define(expr.Name, val)
		return ast.None, nil

	case ast.KindFor:
		return evalFor(expr, ctx)

	case ast.KindIf:
		cond, err := Eval(*expr.Cond, ctx.nested())
		if err != nil {
			return ast.None, err
		}
		if cond.IsTruthy() {
			return Eval(*expr.Then, ctx.nested())
		}
		return Eval(*expr.Else, ctx.nested())

	case ast.KindApply:
		return evalApply(expr, ctx)

	case ast.KindDo:
		var result ast.Expression = ast.None
		for _, stmt := range expr.Stmts {
			r, err := Eval(stmt, ctx.nested())
			if err != nil {
				return ast.None, err
			}
			result = r
		}
		return result, nil

	case ast.KindList:
		out := make([]ast.Expression, len(expr.List))
		for i, item := range expr.List {
			v, err := Eval(item, ctx.nested())
			if err != nil {
				return ast.None, err
			}
			out[i] = v
		}
		return ast.ListOf(out), nil

	case ast.KindMap:
		out := make(map[string]ast.Expression, len(expr.Map))
		for k, v := range expr.Map {
			ev, err := Eval(v, ctx.nested())
			if err != nil {
				return ast.None, err
			}
			out[k] = ev
		}
		return ast.MapOf(out), nil

	case ast.KindLambda:
		return evalLambdaLiteral(expr, ctx)

	default:
		return expr, nil
	}
}

func evalFor(expr ast.Expression, ctx *Context) (ast.Expression, error) {
	iter, err := Eval(*expr.Iter, ctx.nested())
	if err != nil {
		return ast.None, err
	}
	if iter.Kind != ast.KindList {
		return ast.None, reporterr.New(reporterr.ForNonList, iter)
	}
	out := make([]ast.Expression, 0, len(iter.List))
	for _, elem := range iter.List {
		ctx.Env.Define(expr.Name, elem)
		r, err := Eval(*expr.Body, ctx.nested())
		if err != nil {
			return ast.None, err
		}
		out = append(out, r)
	}
	return ast.ListOf(out), nil
}

func evalApply(expr ast.Expression, ctx *Context) (ast.Expression, error) {
	callee, err := Eval(*expr.Callee, ctx.nested())
	if err != nil {
		return ast.None, err
	}

	switch callee.Kind {
	case ast.KindSymbol:
		return ctx.RunProgram(callee.Name, expr.Args, ctx.Capture)
	case ast.KindString:
		return ctx.RunProgram(callee.Str, expr.Args, ctx.Capture)

	case ast.KindLambda:
		if len(expr.Args) == 0 {
			return callee, nil
		}
		argVal, err := Eval(expr.Args[0], ctx.nested())
		if err != nil {
			return ast.None, err
		}
		frame := env.FromSnapshot(callee.CapturedEnv)
		frame.Define(callee.Param, argVal)
		result, err := Eval(*callee.Body, ctx.withEnv(frame))
		if err != nil {
			return ast.None, err
		}
		if len(expr.Args) > 1 {
			return Eval(ast.Apply(result, expr.Args[1:]), ctx.nested())
		}
		return result, nil

	case ast.KindMacro:
		if len(expr.Args) == 0 {
			return callee, nil
		}
		argVal, err := Eval(expr.Args[0], ctx.nested())
		if err != nil {
			return ast.None, err
		}
		ctx.Env.Define(callee.Param, argVal)
		result, err := Eval(*callee.Body, ctx.nested())
		if err != nil {
			return ast.None, err
		}
		if len(expr.Args) > 1 {
			return Eval(ast.Apply(result, expr.Args[1:]), ctx.nested())
		}
		return result, nil

	case ast.KindBuiltin:
		return callee.BuiltinFn(expr.Args, ctx)

	default:
		return ast.None, reporterr.New(reporterr.CannotApply, expr)
	}
}

// evalLambdaLiteral computes the minimized capture for a freshly-evaluated
// Lambda literal: walk the body for free symbols (excluding the parameter),
// and, starting from the lambda's existing captured environment, snapshot
// those not already captured that are defined in the current environment,
// plus CWD. This is what keeps deeply nested lambda creation from being
// quadratic in the number of ambient bindings, and what lets a curried
// lambda keep the arguments bound by its outer applications.
func evalLambdaLiteral(expr ast.Expression, ctx *Context) (ast.Expression, error) {
	bound := map[string]bool{expr.Param: true}
	free := map[string]bool{}
	collectFreeSymbols(*expr.Body, bound, free)

	captured := make(map[string]ast.Expression, len(expr.CapturedEnv)+len(free)+1)
	for name, v := range expr.CapturedEnv {
		captured[name] = v
	}
	for name := range free {
		if _, ok := captured[name]; ok {
			continue
		}
		if v, ok := ctx.Env.Get(name); ok {
			captured[name] = v
		}
	}
	captured["CWD"] = ast.String(ctx.Env.GetCWD())

	return ast.Lambda(expr.Param, *expr.Body, captured), nil
}

// collectFreeSymbols walks expr, adding every Symbol reference not already
// in bound to out. It threads scope correctly through Lambda/Macro
// parameters, For loop variables, and sequential let-bindings inside a Do.
func collectFreeSymbols(expr ast.Expression, bound map[string]bool, out map[string]bool) {
	switch expr.Kind {
	case ast.KindSymbol:
		if !bound[expr.Name] {
			out[expr.Name] = true
		}

	case ast.KindList:
		for _, item := range expr.List {
			collectFreeSymbols(item, bound, out)
		}

	case ast.KindMap:
		for _, v := range expr.Map {
			collectFreeSymbols(v, bound, out)
		}

	case ast.KindGroup, ast.KindQuote:
		collectFreeSymbols(*expr.Inner, bound, out)

	case ast.KindAssign:
		collectFreeSymbols(*expr.Inner, bound, out)

	case ast.KindFor:
		collectFreeSymbols(*expr.Iter, bound, out)
		inner := copyBound(bound)
		inner[expr.Name] = true
		collectFreeSymbols(*expr.Body, inner, out)

	case ast.KindIf:
		collectFreeSymbols(*expr.Cond, bound, out)
		collectFreeSymbols(*expr.Then, bound, out)
		collectFreeSymbols(*expr.Else, bound, out)

	case ast.KindApply:
		collectFreeSymbols(*expr.Callee, bound, out)
		for _, a := range expr.Args {
			collectFreeSymbols(a, bound, out)
		}

	case ast.KindDo:
		local := copyBound(bound)
		for _, stmt := range expr.Stmts {
			if stmt.Kind == ast.KindAssign {
				collectFreeSymbols(*stmt.Inner, local, out)
				local[stmt.Name] = true
				continue
			}
			collectFreeSymbols(stmt, local, out)
		}

	case ast.KindLambda, ast.KindMacro:
		inner := copyBound(bound)
		inner[expr.Param] = true
		collectFreeSymbols(*expr.Body, inner, out)
	}
}

func copyBound(bound map[string]bool) map[string]bool {
	out := make(map[string]bool, len(bound)+1)
	for k, v := range bound {
		out[k] = v
	}
	return out
}
