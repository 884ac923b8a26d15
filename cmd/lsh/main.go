// Lsh is a POSIX-style shell with job control. It runs scripts, code given
// with -c and interactive sessions, and can serve as a language server for
// its own scripts.
package main

import (
	"os"

	"src.lsh.sh/pkg/buildinfo"
	"src.lsh.sh/pkg/lsp"
	"src.lsh.sh/pkg/prog"
	"src.lsh.sh/pkg/shell"
)

func main() {
	os.Exit(prog.Run(
		[3]*os.File{os.Stdin, os.Stdout, os.Stderr}, os.Args,
		prog.Composite(buildinfo.Program, lsp.Program{}, shell.Program{})))
}
