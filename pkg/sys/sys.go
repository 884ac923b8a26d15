// Package sys provides system utilities used by the shell front-end.
//
// The subpackage eunix provides the terminal and process-group primitives
// needed for job control.
package sys

import (
	"os"

	"github.com/mattn/go-isatty"
)

const sigsChanBufferSize = 256

// NotifySignals returns a channel on which the given signals get delivered.
//
// A shell that must not be stopped by SIGTSTP, SIGTTIN or SIGTTOU should ask
// for them here and discard them rather than ignore them: ignored signals
// stay ignored in the commands the shell starts.
func NotifySignals(sigs ...os.Signal) chan os.Signal { return notifySignals(sigs) }

// WinSize queries the size of the terminal referenced by the given file.
func WinSize(file *os.File) (row, col int) { return winSize(file) }

// IsATTY determines whether the given file is a terminal.
func IsATTY(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
