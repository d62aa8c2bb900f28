package builtin

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/duneshell/dune/internal/ast"
	"github.com/duneshell/dune/pkg/lib"
)

// reportKeyStyle/reportValStyle color the key and value columns of a Map
// result. Color is suppressed when stdout isn't a terminal so piping
// `report`'s output never carries escape codes.
var (
	reportKeyStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	reportValStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
)

func reportBuiltin(args []ast.Expression, rt ast.Runtime) (ast.Expression, error) {
	if err := CheckExact("report", args, 1); err != nil {
		return ast.None, err
	}
	v, err := rt.Eval(args[0])
	if err != nil {
		return ast.None, err
	}
	fmt.Fprint(os.Stdout, renderReport(v))
	return ast.None, nil
}

// renderReport formats a value the way the REPL does after every top-level
// evaluation: None prints nothing, Map renders as an aligned key/value
// table, String prints verbatim, everything else falls back to Debug.
func renderReport(v ast.Expression) string {
	switch v.Kind {
	case ast.KindNone:
		return ""
	case ast.KindMap:
		return renderMapTable(v.Map) + "\n"
	case ast.KindString:
		return v.Str + "\n"
	default:
		return v.Debug() + "\n"
	}
}

// renderMapTable builds a lipgloss/table.Table of the map's key/value pairs
// in sorted-key order. Column coloring is applied through StyleFunc rather
// than pre-styling cell strings, which is how the table package expects
// per-cell styling to be done; color is dropped to a plain style when
// stdout isn't a terminal so piped output carries no escape codes.
func renderMapTable(m map[string]ast.Expression) string {
	keys := ast.SortedMapKeys(m)
	if len(keys) == 0 {
		return "{}"
	}

	colorize := lib.IsTerminal(os.Stdout)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(false).
		StyleFunc(func(_, col int) lipgloss.Style {
			if !colorize {
				return lipgloss.NewStyle()
			}
			if col == 0 {
				return reportKeyStyle
			}
			return reportValStyle
		})
	for _, k := range keys {
		t.Row(k, m[k].String())
	}
	return t.String()
}
