package repl

// DefaultPrelude is evaluated at startup when the user has no
// "~/.dune-prelude" file. It defines the two symbols the REPL loop always
// calls (prompt, incomplete_prompt) and prints a short welcome. The
// prompt shape is built from plain string concatenation; a user who wants
// color can supply a ".dune-prelude" built on whatever formatting
// builtins they register.
const DefaultPrelude = `
let prompt = cwd -> "(dune) " + cwd + "$ ";
let incomplete_prompt = cwd -> (((len cwd) + (len "(dune) ")) * " ") + "> ";
println "Welcome to dune!";
println "Type an expression to evaluate it, or a bare word to run it as a program.";
println "Write a .dune-prelude file in your home directory to customize this message.";
`
