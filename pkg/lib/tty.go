package lib

import (
	"os"

	"github.com/mattn/go-isatty"
)

// IsTerminal reports whether f is attached to an interactive terminal.
// Used to decide between the huh-based interactive input path and the
// plain bufio fallback (input builtin), and to skip lipgloss styling of
// `report` tables and REPL errors under redirection.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
