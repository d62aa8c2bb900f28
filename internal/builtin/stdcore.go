package builtin

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/duneshell/dune/internal/ast"
	"github.com/duneshell/dune/internal/reporterr"
	"github.com/duneshell/dune/pkg/lib"
)

// ExitFunc is called by the exit/quit builtins. Overridable for tests so a
// builtin call doesn't actually terminate the process.
var ExitFunc = lib.ExitCode

// RegisterCore installs the builtins every session starts with: let
// (doc-only; `let` is consumed by the parser as a statement and never
// reaches this function body), eval, exit, quit, help, print, println,
// echo, input, str, int, insert, len, chars, head, tail, lines, cd,
// unbind, report. range is registered alongside the operators.
func RegisterCore(r *Registry) {
	r.Add("let", letDocOnly, "let name = expr (handled by the parser; never called directly)")
	r.Add("eval", evalBuiltin, "evaluate a quoted expression")
	r.Add("exit", exitBuiltin, "exit the shell with an optional status code")
	r.Add("quit", exitBuiltin, "alias of exit")
	r.Add("help", helpBuiltin, "show help for a builtin, or list all builtins")
	r.Add("print", printBuiltin, "print the arguments with no trailing newline")
	r.Add("println", printlnBuiltin, "print the arguments followed by a newline")
	r.Add("echo", printlnBuiltin, "alias of println")
	r.Add("input", inputBuiltin, "read a line of input, prompting if given a message")
	r.Add("str", strBuiltin, "convert a value to its string representation")
	r.Add("int", intBuiltin, "parse a string or truncate a float into an integer")
	r.Add("insert", insertBuiltin, "insert a key/value into a map, or a value at a list index")
	r.Add("len", lenBuiltin, "the length of a string, bytes, list, or map")
	r.Add("chars", charsBuiltin, "split a string into a list of single-character strings")
	r.Add("head", headBuiltin, "the first element of a list, or first character of a string")
	r.Add("tail", tailBuiltin, "every element of a list after the first")
	r.Add("lines", linesBuiltin, "split a string into a list of lines")
	r.Add("cd", cdBuiltin, "change the CWD binding")
	r.Add("unbind", unbindBuiltin, "remove a binding from the current environment frame")
	r.Add("report", reportBuiltin, "render a result the way the REPL does")
}

func letDocOnly(args []ast.Expression, rt ast.Runtime) (ast.Expression, error) {
	return ast.None, reporterr.NewCustom("let is a statement form and cannot be applied directly")
}

func evalBuiltin(args []ast.Expression, rt ast.Runtime) (ast.Expression, error) {
	if err := CheckExact("eval", args, 1); err != nil {
		return ast.None, err
	}
	quoted, err := rt.Eval(args[0])
	if err != nil {
		return ast.None, err
	}
	return rt.Eval(quoted)
}

func exitBuiltin(args []ast.Expression, rt ast.Runtime) (ast.Expression, error) {
	if err := CheckRange("exit", args, 0, 1); err != nil {
		return ast.None, err
	}
	code := 0
	if len(args) == 1 {
		v, err := rt.Eval(args[0])
		if err != nil {
			return ast.None, err
		}
		if v.Kind == ast.KindInteger {
			code = int(v.Int)
		}
	}
	ExitFunc(code)
	return ast.None, nil
}

func helpBuiltin(args []ast.Expression, rt ast.Runtime) (ast.Expression, error) {
	if err := CheckRange("help", args, 0, 1); err != nil {
		return ast.None, err
	}
	if len(args) == 0 {
		type bindingSource interface {
			AllBindings() map[string]ast.Expression
		}
		src, ok := rt.(bindingSource)
		if !ok {
			return ast.String("use `help <name>` for details on a specific builtin"), nil
		}
		var names []string
		for name, v := range src.AllBindings() {
			if v.Kind == ast.KindBuiltin {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		return ast.String("builtins: " + strings.Join(names, ", ") +
			"\nuse `help <name>` for details on a specific builtin"), nil
	}
	v, err := rt.Eval(args[0])
	if err != nil {
		return ast.None, err
	}
	name := v.Name
	if v.Kind == ast.KindBuiltin {
		name = v.BuiltinName
	}
	bound, ok := rt.Get(name)
	if !ok || bound.Kind != ast.KindBuiltin {
		return ast.String(fmt.Sprintf("no help available for %q", name)), nil
	}
	return ast.String(bound.Help), nil
}

func printBuiltin(args []ast.Expression, rt ast.Runtime) (ast.Expression, error) {
	parts, err := stringifyAll(args, rt)
	if err != nil {
		return ast.None, err
	}
	fmt.Fprint(os.Stdout, strings.Join(parts, " "))
	return ast.None, nil
}

func printlnBuiltin(args []ast.Expression, rt ast.Runtime) (ast.Expression, error) {
	parts, err := stringifyAll(args, rt)
	if err != nil {
		return ast.None, err
	}
	fmt.Fprintln(os.Stdout, strings.Join(parts, " "))
	return ast.None, nil
}

func stringifyAll(args []ast.Expression, rt ast.Runtime) ([]string, error) {
	out := make([]string, len(args))
	for i, a := range args {
		v, err := rt.Eval(a)
		if err != nil {
			return nil, err
		}
		out[i] = v.String()
	}
	return out, nil
}

// inputBuiltin reads one line of input. When stdin is an interactive
// terminal it uses huh's form-based prompt; otherwise (piped input, a
// pipe-stage function application) it falls back to a plain bufio read.
func inputBuiltin(args []ast.Expression, rt ast.Runtime) (ast.Expression, error) {
	if err := CheckRange("input", args, 0, 1); err != nil {
		return ast.None, err
	}
	prompt := ""
	if len(args) == 1 {
		v, err := rt.Eval(args[0])
		if err != nil {
			return ast.None, err
		}
		prompt = v.String()
	}

	if lib.IsTerminal(os.Stdin) {
		var value string
		field := huh.NewInput().Title(prompt).Value(&value)
		if err := huh.NewForm(huh.NewGroup(field)).Run(); err != nil {
			return ast.None, reporterr.NewCustom("input: %v", err)
		}
		return ast.String(value), nil
	}

	if prompt != "" {
		fmt.Fprint(os.Stderr, prompt)
	}
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return ast.None, reporterr.NewCustom("input: %v", err)
	}
	return ast.String(strings.TrimRight(line, "\r\n")), nil
}

func strBuiltin(args []ast.Expression, rt ast.Runtime) (ast.Expression, error) {
	if err := CheckExact("str", args, 1); err != nil {
		return ast.None, err
	}
	v, err := rt.Eval(args[0])
	if err != nil {
		return ast.None, err
	}
	return ast.String(v.String()), nil
}

func intBuiltin(args []ast.Expression, rt ast.Runtime) (ast.Expression, error) {
	if err := CheckExact("int", args, 1); err != nil {
		return ast.None, err
	}
	v, err := rt.Eval(args[0])
	if err != nil {
		return ast.None, err
	}
	switch v.Kind {
	case ast.KindInteger:
		return v, nil
	case ast.KindFloat:
		return ast.Integer(int64(v.Float)), nil
	case ast.KindString:
		n, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
		if err != nil {
			return ast.None, reporterr.NewCustom("int: cannot parse %q as an integer", v.Str)
		}
		return ast.Integer(n), nil
	default:
		return ast.None, reporterr.NewCustom("int: cannot convert %s to an integer", v.Kind.KindName())
	}
}

func insertBuiltin(args []ast.Expression, rt ast.Runtime) (ast.Expression, error) {
	if err := CheckExact("insert", args, 3); err != nil {
		return ast.None, err
	}
	target, err := rt.Eval(args[0])
	if err != nil {
		return ast.None, err
	}
	key, err := rt.Eval(args[1])
	if err != nil {
		return ast.None, err
	}
	val, err := rt.Eval(args[2])
	if err != nil {
		return ast.None, err
	}
	switch target.Kind {
	case ast.KindMap:
		name := key.Str
		if key.Kind == ast.KindSymbol {
			name = key.Name
		}
		out := make(map[string]ast.Expression, len(target.Map)+1)
		for k, v := range target.Map {
			out[k] = v
		}
		out[name] = val
		return ast.MapOf(out), nil
	case ast.KindList:
		if key.Kind != ast.KindInteger {
			return ast.None, reporterr.NewCustom("insert: list index must be an integer")
		}
		idx := int(key.Int)
		if idx < 0 || idx > len(target.List) {
			return ast.None, reporterr.NewCustom("insert: index %d out of range", idx)
		}
		out := make([]ast.Expression, 0, len(target.List)+1)
		out = append(out, target.List[:idx]...)
		out = append(out, val)
		out = append(out, target.List[idx:]...)
		return ast.ListOf(out), nil
	default:
		return ast.None, reporterr.NewCustom("insert: cannot insert into %s", target.Kind.KindName())
	}
}

func lenBuiltin(args []ast.Expression, rt ast.Runtime) (ast.Expression, error) {
	if err := CheckExact("len", args, 1); err != nil {
		return ast.None, err
	}
	v, err := rt.Eval(args[0])
	if err != nil {
		return ast.None, err
	}
	switch v.Kind {
	case ast.KindString:
		return ast.Integer(int64(len([]rune(v.Str)))), nil
	case ast.KindBytes:
		return ast.Integer(int64(len(v.Bytes))), nil
	case ast.KindList:
		return ast.Integer(int64(len(v.List))), nil
	case ast.KindMap:
		return ast.Integer(int64(len(v.Map))), nil
	default:
		return ast.None, reporterr.NewCustom("len: cannot take the length of a %s", v.Kind.KindName())
	}
}

func charsBuiltin(args []ast.Expression, rt ast.Runtime) (ast.Expression, error) {
	if err := CheckExact("chars", args, 1); err != nil {
		return ast.None, err
	}
	v, err := rt.Eval(args[0])
	if err != nil {
		return ast.None, err
	}
	if v.Kind != ast.KindString {
		return ast.None, reporterr.NewCustom("chars: expected a string")
	}
	runes := []rune(v.Str)
	out := make([]ast.Expression, len(runes))
	for i, r := range runes {
		out[i] = ast.String(string(r))
	}
	return ast.ListOf(out), nil
}

func headBuiltin(args []ast.Expression, rt ast.Runtime) (ast.Expression, error) {
	if err := CheckExact("head", args, 1); err != nil {
		return ast.None, err
	}
	v, err := rt.Eval(args[0])
	if err != nil {
		return ast.None, err
	}
	switch v.Kind {
	case ast.KindList:
		if len(v.List) == 0 {
			return ast.None, nil
		}
		return v.List[0], nil
	case ast.KindString:
		runes := []rune(v.Str)
		if len(runes) == 0 {
			return ast.None, nil
		}
		return ast.String(string(runes[0])), nil
	default:
		return ast.None, reporterr.NewCustom("head: expected a list or string")
	}
}

func tailBuiltin(args []ast.Expression, rt ast.Runtime) (ast.Expression, error) {
	if err := CheckExact("tail", args, 1); err != nil {
		return ast.None, err
	}
	v, err := rt.Eval(args[0])
	if err != nil {
		return ast.None, err
	}
	switch v.Kind {
	case ast.KindList:
		if len(v.List) == 0 {
			return ast.ListOf(nil), nil
		}
		return ast.ListOf(append([]ast.Expression{}, v.List[1:]...)), nil
	case ast.KindString:
		runes := []rune(v.Str)
		if len(runes) == 0 {
			return ast.String(""), nil
		}
		return ast.String(string(runes[1:])), nil
	default:
		return ast.None, reporterr.NewCustom("tail: expected a list or string")
	}
}

func linesBuiltin(args []ast.Expression, rt ast.Runtime) (ast.Expression, error) {
	if err := CheckExact("lines", args, 1); err != nil {
		return ast.None, err
	}
	v, err := rt.Eval(args[0])
	if err != nil {
		return ast.None, err
	}
	if v.Kind != ast.KindString {
		return ast.None, reporterr.NewCustom("lines: expected a string")
	}
	raw := strings.Split(strings.TrimRight(v.Str, "\n"), "\n")
	out := make([]ast.Expression, len(raw))
	for i, l := range raw {
		out[i] = ast.String(strings.TrimRight(l, "\r"))
	}
	return ast.ListOf(out), nil
}

func cdBuiltin(args []ast.Expression, rt ast.Runtime) (ast.Expression, error) {
	if err := CheckRange("cd", args, 0, 1); err != nil {
		return ast.None, err
	}
	dest := ""
	if len(args) == 1 {
		v, err := rt.Eval(args[0])
		if err != nil {
			return ast.None, err
		}
		dest = v.String()
	}
	if dest == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ast.None, reporterr.NewCustom("cd: %v", err)
		}
		dest = home
	}
	if !strings.HasPrefix(dest, "/") && !strings.HasPrefix(dest, "~") {
		dest = rt.GetCWD() + "/" + dest
	}
	// Best-effort OS sync; the CWD binding remains authoritative for
	// relative-path resolution even if this fails.
	_ = os.Chdir(dest)
	rt.SetCWD(dest)
	return ast.None, nil
}

func unbindBuiltin(args []ast.Expression, rt ast.Runtime) (ast.Expression, error) {
	if err := CheckExact("unbind", args, 1); err != nil {
		return ast.None, err
	}
	// A bare symbol names the binding itself; evaluating it would yield the
	// bound value instead of the name.
	name := args[0].Name
	if args[0].Kind != ast.KindSymbol {
		v, err := rt.Eval(args[0])
		if err != nil {
			return ast.None, err
		}
		name = v.Name
		if v.Kind == ast.KindString {
			name = v.Str
		}
	}
	rt.Undefine(name)
	return ast.None, nil
}
