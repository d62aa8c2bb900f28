// Package lib holds small helpers shared across the dune binary's
// packages: process-exit plumbing and terminal detection.
package lib

import (
	"fmt"
	"os"
)

// Fatal prints err to stderr and exits the process with code 1.
// Used by cmd/dune for errors returned from the root command (script-file
// read, readline setup, and parse or evaluation errors in -c/script-file
// mode). Prelude errors are only printed, and once the REPL loop is
// running, evaluation errors are reported and swallowed instead.
func Fatal(err error) {
	fmt.Fprintln(os.Stderr, "dune:", err)
	os.Exit(1)
}

// ExitCode terminates the process with the given code without printing
// anything; used by the `exit`/`quit` builtins.
func ExitCode(code int) {
	os.Exit(code)
}
