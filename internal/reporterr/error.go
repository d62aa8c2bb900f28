// Package reporterr implements Dune's structured error type and its
// lipgloss-styled display. Errors are a tagged union: CannotApply,
// SymbolNotDefined, CommandFailed, ForNonList, RecursionDepth,
// CustomError, and SyntaxError.
package reporterr

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/duneshell/dune/internal/ast"
)

// Kind tags which variant an Error holds.
type Kind int

const (
	CannotApply Kind = iota
	SymbolNotDefined
	CommandFailed
	ForNonList
	RecursionDepth
	CustomError
	SyntaxErrorKind
)

// Error is Dune's single evaluation-error type. Exactly the fields
// meaningful for Kind are populated.
type Error struct {
	Kind Kind

	Expr *ast.Expression // CannotApply, ForNonList, RecursionDepth
	Args []ast.Expression

	Name string // SymbolNotDefined, CommandFailed (program name)

	Message string // CustomError, and SyntaxError's formatted text
}

func (e *Error) Error() string {
	switch e.Kind {
	case CannotApply:
		return fmt.Sprintf("cannot apply `%s` to arguments", e.Expr.Debug())
	case SymbolNotDefined:
		return fmt.Sprintf("symbol `%s` is not defined", e.Name)
	case CommandFailed:
		return fmt.Sprintf("command `%s` failed", e.Name)
	case ForNonList:
		return fmt.Sprintf("`for` expected a list to iterate, got `%s`", e.Expr.Debug())
	case RecursionDepth:
		return fmt.Sprintf("recursion depth exceeded while evaluating `%s`", e.Expr.Debug())
	case CustomError:
		return e.Message
	case SyntaxErrorKind:
		return e.Message
	default:
		return "unknown error"
	}
}

func New(kind Kind, expr ast.Expression) *Error {
	return &Error{Kind: kind, Expr: &expr}
}

func NewCommandFailed(name string) *Error {
	return &Error{Kind: CommandFailed, Name: name}
}

func NewSymbolNotDefined(name string) *Error {
	return &Error{Kind: SymbolNotDefined, Name: name}
}

func NewCustom(format string, args ...any) *Error {
	return &Error{Kind: CustomError, Message: fmt.Sprintf(format, args...)}
}

func NewSyntax(message string) *Error {
	return &Error{Kind: SyntaxErrorKind, Message: message}
}

// errorStyle is the lipgloss style used to render an error to stderr. Color
// is only ever applied by the caller deciding whether to use this style or
// plain fmt.Fprintln — see internal/repl, which checks terminal-ness.
var errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

// Render returns a styled one-line rendering of err for an interactive
// terminal. Plain callers should just use err.Error().
func Render(err error) string {
	return errorStyle.Render("error: ") + err.Error()
}
