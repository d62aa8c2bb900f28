// Command dune is the Dune language shell: an interactive REPL whose
// command language is evaluated by internal/eval, falling through to
// external process execution for unresolved symbols (internal/shellbridge).
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/duneshell/dune/internal/ast"
	"github.com/duneshell/dune/internal/env"
	"github.com/duneshell/dune/internal/eval"
	"github.com/duneshell/dune/internal/parser"
	"github.com/duneshell/dune/internal/repl"
	"github.com/duneshell/dune/pkg/lib"
)

var (
	flagEval      string
	flagNoPrelude bool
)

// rootCmd has no subcommands, just a root RunE that branches on its
// flags. `dune` with no flags and no positional argument starts the REPL;
// `-c`/`--eval` runs one script and exits; a positional argument names a
// script file to run and exit.
var rootCmd = &cobra.Command{
	Use:   "dune [script-file]",
	Short: "Dune: an interactive shell with a small expression language",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := repl.NewRootEnv()
		repl.PopulatePlatformDirs(root)
		repl.LoadPrelude(root, flagNoPrelude)

		if flagEval != "" {
			return runSource(root, "<-c>", flagEval)
		}
		if len(args) == 1 {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("dune: %w", err)
			}
			return runSource(root, args[0], string(data))
		}

		historyPath := "history.txt"
		if home, err := os.UserHomeDir(); err == nil {
			historyPath = filepath.Join(home, ".dune_history.txt")
		}
		lines, err := repl.NewReadlineSource(historyPath)
		if err != nil {
			return fmt.Errorf("dune: %w", err)
		}
		defer lines.Close()

		repl.New(root, lines).Run()
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVarP(&flagEval, "eval", "c", "", "evaluate a script string non-interactively and exit")
	rootCmd.Flags().BoolVar(&flagNoPrelude, "no-prelude", false, "skip loading the prelude (useful for -c/script-file mode and tests)")
}

// runSource parses and evaluates src against root, reports the result the
// way the REPL would (via the `report` builtin), and exits nonzero on a
// parse or evaluation error.
func runSource(root *env.Environment, label, src string) error {
	expr, err := parser.ParseScript(src, true)
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	ctx := eval.NewContext(root)
	result, err := eval.Eval(expr, ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	if _, err := eval.Eval(ast.Apply(ast.Symbol("report"), []ast.Expression{ast.Quote(result)}), ctx); err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		lib.Fatal(err)
	}
}
