// Package ast defines the single sum type that is both the abstract syntax
// tree produced by the parser and the runtime value domain consumed by the
// evaluator. There is no separate "value" type: Quote(e) evaluates to e
// unchanged, and builtins receive raw, unevaluated Expressions.
package ast

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind tags which variant an Expression holds.
type Kind int

const (
	KindNone Kind = iota
	KindInteger
	KindFloat
	KindBoolean
	KindString
	KindBytes
	KindSymbol
	KindList
	KindMap
	KindGroup
	KindQuote
	KindAssign
	KindFor
	KindIf
	KindApply
	KindDo
	KindLambda
	KindMacro
	KindBuiltin
)

// BuiltinFunc is a host-provided callable. Arguments are raw, unevaluated
// AST; the function is responsible for evaluating whichever of them it
// needs via rt.Eval.
type BuiltinFunc func(args []Expression, rt Runtime) (Expression, error)

// Env is the subset of the environment the ast package needs to reference
// without importing internal/env (which itself stores Expression values and
// would otherwise create an import cycle).
type Env interface {
	Get(name string) (Expression, bool)
	Define(name string, val Expression)
	Undefine(name string)
	IsDefined(name string) bool
	GetCWD() string
	SetCWD(string)
}

// Runtime is what a Builtin receives: environment access plus the ability
// to call back into the evaluator and the shell bridge. Defined here (not
// in internal/eval) so that internal/builtin and internal/shellbridge can
// depend on it without an import cycle through internal/eval.
type Runtime interface {
	Env
	Eval(Expression) (Expression, error)
	IsCapturing() bool
	RunProgram(name string, argv []Expression, capture bool) (Expression, error)
	RunPipe(stages []Expression) (Expression, error)
}

// Expression is the unified AST-node/runtime-value type. Exactly one of the
// payload fields is meaningful for a given Kind; callers must switch on Kind
// before reading a payload.
type Expression struct {
	Kind Kind

	Int   int64
	Float float64
	Bool  bool
	Str   string
	Bytes []byte

	// Symbol name (KindSymbol), Assign target name, For loop variable name.
	// Lambda/Macro parameters live in Param, builtin names in BuiltinName.
	Name string

	List []Expression
	// Map is a plain Go map and keeps no key order of its own; iteration
	// must always go through SortedMapKeys for determinism.
	Map map[string]Expression

	// Inner is used by Group and Quote (single boxed child).
	Inner *Expression

	// Assign: Inner holds the value expression, Name the target.
	// For: Name is loop var, Iter the iterable, Body the loop body.
	Iter *Expression
	Body *Expression

	// If: Cond/Then/Else.
	Cond *Expression
	Then *Expression
	Else *Expression

	// Apply: Callee + Args.
	Callee *Expression
	Args   []Expression

	// Do: a sequence of statements.
	Stmts []Expression

	// Lambda/Macro: Param is the single parameter name, Body the body.
	// Lambda additionally carries a captured environment snapshot.
	Param       string
	CapturedEnv map[string]Expression

	// Builtin.
	BuiltinName string
	BuiltinFn   BuiltinFunc
	Help        string
}

// None is the canonical unit value.
var None = Expression{Kind: KindNone}

func Integer(i int64) Expression    { return Expression{Kind: KindInteger, Int: i} }
func Float(f float64) Expression    { return Expression{Kind: KindFloat, Float: f} }
func Boolean(b bool) Expression     { return Expression{Kind: KindBoolean, Bool: b} }
func String(s string) Expression    { return Expression{Kind: KindString, Str: s} }
func BytesVal(b []byte) Expression  { return Expression{Kind: KindBytes, Bytes: b} }
func Symbol(name string) Expression { return Expression{Kind: KindSymbol, Name: name} }
func ListOf(xs []Expression) Expression {
	return Expression{Kind: KindList, List: xs}
}
func MapOf(m map[string]Expression) Expression {
	return Expression{Kind: KindMap, Map: m}
}
func Group(inner Expression) Expression {
	return Expression{Kind: KindGroup, Inner: &inner}
}
func Quote(inner Expression) Expression {
	return Expression{Kind: KindQuote, Inner: &inner}
}
func Assign(name string, value Expression) Expression {
	return Expression{Kind: KindAssign, Name: name, Inner: &value}
}
func For(name string, iter, body Expression) Expression {
	return Expression{Kind: KindFor, Name: name, Iter: &iter, Body: &body}
}
func If(cond, then, els Expression) Expression {
	return Expression{Kind: KindIf, Cond: &cond, Then: &then, Else: &els}
}
func Apply(callee Expression, args []Expression) Expression {
	return Expression{Kind: KindApply, Callee: &callee, Args: args}
}
func Do(stmts []Expression) Expression {
	return Expression{Kind: KindDo, Stmts: stmts}
}
func Lambda(param string, body Expression, captured map[string]Expression) Expression {
	return Expression{Kind: KindLambda, Param: param, Body: &body, CapturedEnv: captured}
}
func Macro(param string, body Expression) Expression {
	return Expression{Kind: KindMacro, Param: param, Body: &body}
}
func Builtin(name string, fn BuiltinFunc, help string) Expression {
	return Expression{Kind: KindBuiltin, BuiltinName: name, BuiltinFn: fn, Help: help}
}

// IsTruthy implements the truthiness table from the value model: numbers are
// truthy iff nonzero, strings/bytes/lists/maps iff nonempty, booleans as is,
// callables always truthy, None and bare Symbols are falsy.
func (e Expression) IsTruthy() bool {
	switch e.Kind {
	case KindInteger:
		return e.Int != 0
	case KindFloat:
		return e.Float != 0
	case KindBoolean:
		return e.Bool
	case KindString:
		return len(e.Str) > 0
	case KindBytes:
		return len(e.Bytes) > 0
	case KindList:
		return len(e.List) > 0
	case KindMap:
		return len(e.Map) > 0
	case KindLambda, KindMacro, KindBuiltin:
		return true
	default:
		return false
	}
}

// SortedMapKeys returns a Map's keys in deterministic (string) order.
func SortedMapKeys(m map[string]Expression) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the value the way the language's to_string() does: the
// representation a pipe stage or `str` builtin would produce, not a debug
// dump. Compound forms fall back to Debug.
func (e Expression) String() string {
	switch e.Kind {
	case KindNone:
		return ""
	case KindInteger:
		return strconv.FormatInt(e.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(e.Float, 'g', -1, 64)
	case KindBoolean:
		if e.Bool {
			return "True"
		}
		return "False"
	case KindString:
		return e.Str
	case KindBytes:
		return string(e.Bytes)
	case KindSymbol:
		return e.Name
	default:
		return e.Debug()
	}
}

// Debug renders a developer-facing representation used by `report` for any
// result kind that isn't None, Map, or String.
func (e Expression) Debug() string {
	switch e.Kind {
	case KindNone:
		return "None"
	case KindInteger:
		return strconv.FormatInt(e.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(e.Float, 'g', -1, 64)
	case KindBoolean:
		if e.Bool {
			return "True"
		}
		return "False"
	case KindString:
		return strconv.Quote(e.Str)
	case KindBytes:
		return fmt.Sprintf("<bytes:%d>", len(e.Bytes))
	case KindSymbol:
		return e.Name
	case KindList:
		parts := make([]string, len(e.List))
		for i, x := range e.List {
			parts[i] = x.Debug()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		keys := SortedMapKeys(e.Map)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + " = " + e.Map[k].Debug()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindGroup:
		return "(" + e.Inner.Debug() + ")"
	case KindQuote:
		return "'" + e.Inner.Debug()
	case KindLambda:
		return "<lambda:" + e.Param + ">"
	case KindMacro:
		return "<macro:" + e.Param + ">"
	case KindBuiltin:
		return "<builtin:" + e.BuiltinName + ">"
	case KindAssign:
		return "let " + e.Name + " = " + e.Inner.Debug()
	case KindFor:
		return "for " + e.Name + " in " + e.Iter.Debug() + " " + e.Body.Debug()
	case KindIf:
		return "if " + e.Cond.Debug() + " " + e.Then.Debug() + " else " + e.Else.Debug()
	case KindApply:
		parts := make([]string, len(e.Args))
		for i, a := range e.Args {
			parts[i] = a.Debug()
		}
		return e.Callee.Debug() + " " + strings.Join(parts, " ")
	case KindDo:
		parts := make([]string, len(e.Stmts))
		for i, s := range e.Stmts {
			parts[i] = s.Debug()
		}
		return "{" + strings.Join(parts, "; ") + "}"
	default:
		return "<?>"
	}
}

// KindName returns the capitalized type name used in error messages.
func (k Kind) KindName() string {
	switch k {
	case KindNone:
		return "None"
	case KindInteger:
		return "Integer"
	case KindFloat:
		return "Float"
	case KindBoolean:
		return "Boolean"
	case KindString:
		return "String"
	case KindBytes:
		return "Bytes"
	case KindSymbol:
		return "Symbol"
	case KindList:
		return "List"
	case KindMap:
		return "Map"
	case KindLambda:
		return "Lambda"
	case KindMacro:
		return "Macro"
	case KindBuiltin:
		return "Builtin"
	default:
		return "Expression"
	}
}
