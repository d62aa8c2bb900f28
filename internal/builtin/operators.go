package builtin

import (
	"bytes"
	"math"
	"strings"

	"github.com/duneshell/dune/internal/ast"
	"github.com/duneshell/dune/internal/reporterr"
)

// RegisterOperators installs the reserved __op__ builtins the parser lowers
// infix/postfix operators onto, plus __pipe__ and range. These names must
// be bound in the root environment before any script runs.
func RegisterOperators(r *Registry) {
	r.Add("__add__", binaryOp("__add__", addValues), "add or concatenate two values")
	r.Add("__sub__", binaryOp("__sub__", subValues), "subtract, or remove a key/index")
	r.Add("__mul__", binaryOp("__mul__", mulValues), "multiply, or repeat a string/list")
	r.Add("__div__", binaryOp("__div__", divValues), "integer or float division")
	r.Add("__rem__", binaryOp("__rem__", remValues), "remainder")
	r.Add("__and__", shortCircuit(false), "logical and (short-circuiting)")
	r.Add("__or__", shortCircuit(true), "logical or (short-circuiting)")
	r.Add("__not__", notOp, "logical not")
	r.Add("__eq__", comparisonOp("__eq__", cmpEq), "equality")
	r.Add("__neq__", comparisonOp("__neq__", cmpNeq), "inequality")
	r.Add("__lt__", comparisonOp("__lt__", cmpLt), "less than")
	r.Add("__lte__", comparisonOp("__lte__", cmpLte), "less than or equal")
	r.Add("__gt__", comparisonOp("__gt__", cmpGt), "greater than")
	r.Add("__gte__", comparisonOp("__gte__", cmpGte), "greater than or equal")
	r.Add("__idx__", idxOp, "index into a list or map, left-associative")
	r.Add("__pipe__", pipeOp, "pipe the result of each stage into the next")
	r.Add("range", rangeOp, "build a list of integers [lo, hi)")
}

func binaryOp(name string, f func(a, b ast.Expression) (ast.Expression, error)) ast.BuiltinFunc {
	return func(args []ast.Expression, rt ast.Runtime) (ast.Expression, error) {
		if err := CheckExact(name, args, 2); err != nil {
			return ast.None, err
		}
		a, err := rt.Eval(args[0])
		if err != nil {
			return ast.None, err
		}
		b, err := rt.Eval(args[1])
		if err != nil {
			return ast.None, err
		}
		return f(a, b)
	}
}

func addValues(a, b ast.Expression) (ast.Expression, error) {
	switch {
	case a.Kind == ast.KindInteger && b.Kind == ast.KindInteger:
		sum := a.Int + b.Int
		if (b.Int > 0 && sum < a.Int) || (b.Int < 0 && sum > a.Int) {
			return ast.None, reporterr.NewCustom("integer overflow in %d + %d", a.Int, b.Int)
		}
		return ast.Integer(sum), nil
	case a.Kind == ast.KindFloat && b.Kind == ast.KindInteger:
		return ast.Float(a.Float + float64(b.Int)), nil
	case a.Kind == ast.KindInteger && b.Kind == ast.KindFloat:
		return ast.Float(float64(a.Int) + b.Float), nil
	case a.Kind == ast.KindFloat && b.Kind == ast.KindFloat:
		return ast.Float(a.Float + b.Float), nil
	case a.Kind == ast.KindString && b.Kind == ast.KindString:
		return ast.String(a.Str + b.Str), nil
	case a.Kind == ast.KindBytes && b.Kind == ast.KindBytes:
		out := append(append([]byte{}, a.Bytes...), b.Bytes...)
		return ast.BytesVal(out), nil
	case a.Kind == ast.KindList && b.Kind == ast.KindList:
		out := append(append([]ast.Expression{}, a.List...), b.List...)
		return ast.ListOf(out), nil
	default:
		return ast.None, reporterr.NewCustom("cannot add %s and %s", a.Kind.KindName(), b.Kind.KindName())
	}
}

func subValues(a, b ast.Expression) (ast.Expression, error) {
	switch {
	case a.Kind == ast.KindInteger && b.Kind == ast.KindInteger:
		return ast.Integer(a.Int - b.Int), nil
	case a.Kind == ast.KindFloat && b.Kind == ast.KindInteger:
		return ast.Float(a.Float - float64(b.Int)), nil
	case a.Kind == ast.KindInteger && b.Kind == ast.KindFloat:
		return ast.Float(float64(a.Int) - b.Float), nil
	case a.Kind == ast.KindFloat && b.Kind == ast.KindFloat:
		return ast.Float(a.Float - b.Float), nil
	case a.Kind == ast.KindMap && b.Kind == ast.KindString:
		removed, ok := a.Map[b.Str]
		if !ok {
			return ast.None, nil
		}
		return removed, nil
	case a.Kind == ast.KindList && b.Kind == ast.KindInteger:
		idx := int(b.Int)
		if idx < 0 || idx >= len(a.List) {
			return ast.None, nil
		}
		return a.List[idx], nil
	default:
		return ast.None, reporterr.NewCustom("cannot subtract %s from %s", b.Kind.KindName(), a.Kind.KindName())
	}
}

func mulValues(a, b ast.Expression) (ast.Expression, error) {
	switch {
	case a.Kind == ast.KindInteger && b.Kind == ast.KindInteger:
		return ast.Integer(a.Int * b.Int), nil
	case a.Kind == ast.KindFloat && b.Kind == ast.KindInteger:
		return ast.Float(a.Float * float64(b.Int)), nil
	case a.Kind == ast.KindInteger && b.Kind == ast.KindFloat:
		return ast.Float(float64(a.Int) * b.Float), nil
	case a.Kind == ast.KindFloat && b.Kind == ast.KindFloat:
		return ast.Float(a.Float * b.Float), nil
	case a.Kind == ast.KindInteger && b.Kind == ast.KindString:
		return ast.String(repeatString(b.Str, a.Int)), nil
	case a.Kind == ast.KindString && b.Kind == ast.KindInteger:
		return ast.String(repeatString(a.Str, b.Int)), nil
	case a.Kind == ast.KindInteger && b.Kind == ast.KindList:
		return ast.ListOf(repeatList(b.List, a.Int)), nil
	case a.Kind == ast.KindList && b.Kind == ast.KindInteger:
		return ast.ListOf(repeatList(a.List, b.Int)), nil
	default:
		return ast.None, reporterr.NewCustom("cannot multiply %s and %s", a.Kind.KindName(), b.Kind.KindName())
	}
}

func repeatString(s string, n int64) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, 0, len(s)*int(n))
	for i := int64(0); i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}

func repeatList(list []ast.Expression, n int64) []ast.Expression {
	if n <= 0 {
		return nil
	}
	out := make([]ast.Expression, 0, len(list)*int(n))
	for i := int64(0); i < n; i++ {
		out = append(out, list...)
	}
	return out
}

func divValues(a, b ast.Expression) (ast.Expression, error) {
	switch {
	case a.Kind == ast.KindInteger && b.Kind == ast.KindInteger:
		if b.Int == 0 {
			return ast.None, reporterr.NewCustom("division by zero")
		}
		return ast.Integer(a.Int / b.Int), nil
	case a.Kind == ast.KindFloat || b.Kind == ast.KindFloat:
		af, bf := toFloat(a), toFloat(b)
		if bf == 0 {
			return ast.None, reporterr.NewCustom("division by zero")
		}
		return ast.Float(af / bf), nil
	default:
		return ast.None, reporterr.NewCustom("cannot divide %s by %s", a.Kind.KindName(), b.Kind.KindName())
	}
}

func remValues(a, b ast.Expression) (ast.Expression, error) {
	switch {
	case a.Kind == ast.KindInteger && b.Kind == ast.KindInteger:
		if b.Int == 0 {
			return ast.None, reporterr.NewCustom("division by zero")
		}
		return ast.Integer(a.Int % b.Int), nil
	case a.Kind == ast.KindFloat || b.Kind == ast.KindFloat:
		af, bf := toFloat(a), toFloat(b)
		if bf == 0 {
			return ast.None, reporterr.NewCustom("division by zero")
		}
		return ast.Float(math.Mod(af, bf)), nil
	default:
		return ast.None, reporterr.NewCustom("cannot compute remainder of %s and %s", a.Kind.KindName(), b.Kind.KindName())
	}
}

func toFloat(e ast.Expression) float64 {
	if e.Kind == ast.KindInteger {
		return float64(e.Int)
	}
	return e.Float
}

// shortCircuit implements && (shortOnTruthy=false, stop on falsy) and ||
// (shortOnTruthy=true, stop on truthy) without evaluating the second
// argument unless needed.
func shortCircuit(shortOnTruthy bool) ast.BuiltinFunc {
	return func(args []ast.Expression, rt ast.Runtime) (ast.Expression, error) {
		name := "__and__"
		if shortOnTruthy {
			name = "__or__"
		}
		if err := CheckExact(name, args, 2); err != nil {
			return ast.None, err
		}
		a, err := rt.Eval(args[0])
		if err != nil {
			return ast.None, err
		}
		if a.IsTruthy() == shortOnTruthy {
			return ast.Boolean(shortOnTruthy), nil
		}
		b, err := rt.Eval(args[1])
		if err != nil {
			return ast.None, err
		}
		return ast.Boolean(b.IsTruthy()), nil
	}
}

func notOp(args []ast.Expression, rt ast.Runtime) (ast.Expression, error) {
	if err := CheckExact("__not__", args, 1); err != nil {
		return ast.None, err
	}
	v, err := rt.Eval(args[0])
	if err != nil {
		return ast.None, err
	}
	return ast.Boolean(!v.IsTruthy()), nil
}

type cmpFn func(a, b ast.Expression) bool

func comparisonOp(name string, f cmpFn) ast.BuiltinFunc {
	return func(args []ast.Expression, rt ast.Runtime) (ast.Expression, error) {
		if err := CheckExact(name, args, 2); err != nil {
			return ast.None, err
		}
		a, err := rt.Eval(args[0])
		if err != nil {
			return ast.None, err
		}
		b, err := rt.Eval(args[1])
		if err != nil {
			return ast.None, err
		}
		return ast.Boolean(f(a, b)), nil
	}
}

// sameKind is the precondition for every ordered comparison: comparisons
// are only defined between like variants and are false (not an error)
// across variants.
func sameKind(a, b ast.Expression) bool { return a.Kind == b.Kind }

func cmpEq(a, b ast.Expression) bool {
	if !sameKind(a, b) {
		return false
	}
	switch a.Kind {
	case ast.KindInteger:
		return a.Int == b.Int
	case ast.KindFloat:
		return a.Float == b.Float
	case ast.KindBoolean:
		return a.Bool == b.Bool
	case ast.KindString:
		return a.Str == b.Str
	case ast.KindSymbol:
		return a.Name == b.Name
	case ast.KindNone:
		return true
	case ast.KindBytes:
		return string(a.Bytes) == string(b.Bytes)
	case ast.KindList:
		if len(a.List) != len(b.List) {
			return false
		}
		for i := range a.List {
			if !cmpEq(a.List[i], b.List[i]) {
				return false
			}
		}
		return true
	case ast.KindMap:
		if len(a.Map) != len(b.Map) {
			return false
		}
		for k, v := range a.Map {
			bv, ok := b.Map[k]
			if !ok || !cmpEq(v, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func cmpNeq(a, b ast.Expression) bool { return !cmpEq(a, b) }

// orderValues returns -1/0/1 when a and b have a defined ordering, ok=false
// otherwise. Lists order lexicographically element by element, Maps by
// sorted key then value, with length breaking ties only once the shared
// prefix is exhausted.
func orderValues(a, b ast.Expression) (int, bool) {
	if !sameKind(a, b) {
		return 0, false
	}
	switch a.Kind {
	case ast.KindInteger:
		return ord3(a.Int < b.Int, a.Int > b.Int), true
	case ast.KindFloat:
		return ord3(a.Float < b.Float, a.Float > b.Float), true
	case ast.KindString:
		return strings.Compare(a.Str, b.Str), true
	case ast.KindBytes:
		return bytes.Compare(a.Bytes, b.Bytes), true
	case ast.KindList:
		for i := 0; i < len(a.List) && i < len(b.List); i++ {
			o, ok := orderValues(a.List[i], b.List[i])
			if !ok {
				return 0, false
			}
			if o != 0 {
				return o, true
			}
		}
		return ord3(len(a.List) < len(b.List), len(a.List) > len(b.List)), true
	case ast.KindMap:
		ak, bk := ast.SortedMapKeys(a.Map), ast.SortedMapKeys(b.Map)
		for i := 0; i < len(ak) && i < len(bk); i++ {
			if o := strings.Compare(ak[i], bk[i]); o != 0 {
				return o, true
			}
			o, ok := orderValues(a.Map[ak[i]], b.Map[bk[i]])
			if !ok {
				return 0, false
			}
			if o != 0 {
				return o, true
			}
		}
		return ord3(len(ak) < len(bk), len(ak) > len(bk)), true
	default:
		return 0, false
	}
}

func ord3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

func cmpLt(a, b ast.Expression) bool {
	o, ok := orderValues(a, b)
	return ok && o < 0
}

func cmpGt(a, b ast.Expression) bool {
	o, ok := orderValues(a, b)
	return ok && o > 0
}

func cmpLte(a, b ast.Expression) bool { return cmpLt(a, b) || cmpEq(a, b) }
func cmpGte(a, b ast.Expression) bool { return cmpGt(a, b) || cmpEq(a, b) }

// idxOp implements a@b@c as a single left-associative application over all
// operands: the first operand is indexed by the second, the result indexed
// by the third, and so on.
func idxOp(args []ast.Expression, rt ast.Runtime) (ast.Expression, error) {
	if err := CheckRange("__idx__", args, 2, 1<<30); err != nil {
		return ast.None, err
	}
	cur, err := rt.Eval(args[0])
	if err != nil {
		return ast.None, err
	}
	for _, keyExpr := range args[1:] {
		key, err := rt.Eval(keyExpr)
		if err != nil {
			return ast.None, err
		}
		cur, err = indexOnce(cur, key)
		if err != nil {
			return ast.None, err
		}
	}
	return cur, nil
}

func indexOnce(v, key ast.Expression) (ast.Expression, error) {
	switch {
	case v.Kind == ast.KindMap && (key.Kind == ast.KindSymbol || key.Kind == ast.KindString):
		name := key.Str
		if key.Kind == ast.KindSymbol {
			name = key.Name
		}
		if val, ok := v.Map[name]; ok {
			return val, nil
		}
		return ast.None, nil
	case v.Kind == ast.KindList && key.Kind == ast.KindInteger:
		idx := int(key.Int)
		if idx < 0 || idx >= len(v.List) {
			return ast.None, nil
		}
		return v.List[idx], nil
	default:
		return ast.None, reporterr.NewCustom("cannot index %s with %s", v.Kind.KindName(), key.Kind.KindName())
	}
}

func pipeOp(args []ast.Expression, rt ast.Runtime) (ast.Expression, error) {
	return rt.RunPipe(args)
}

// rangeOp builds [lo, hi) as a List of Integers; `for i in 0 to 3` relies
// on this producing exactly [0, 1, 2].
func rangeOp(args []ast.Expression, rt ast.Runtime) (ast.Expression, error) {
	if err := CheckExact("range", args, 2); err != nil {
		return ast.None, err
	}
	lo, err := rt.Eval(args[0])
	if err != nil {
		return ast.None, err
	}
	hi, err := rt.Eval(args[1])
	if err != nil {
		return ast.None, err
	}
	if lo.Kind != ast.KindInteger || hi.Kind != ast.KindInteger {
		return ast.None, reporterr.NewCustom("range: expected two integers")
	}
	var out []ast.Expression
	for i := lo.Int; i < hi.Int; i++ {
		out = append(out, ast.Integer(i))
	}
	return ast.ListOf(out), nil
}
