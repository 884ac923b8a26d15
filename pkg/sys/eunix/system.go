//go:build unix

// Package eunix provides the Unix primitives used for job control: terminal
// process groups, terminal attributes and signals.
package eunix

import (
	"golang.org/x/sys/unix"
)

// System implements job.System with real system calls.
type System struct{}

// Kill sends a signal to a process, or to a process group if pid is
// negative.
func (System) Kill(pid int, sig unix.Signal) error { return unix.Kill(pid, sig) }

// Wait4 waits for a child process to change state.
func (System) Wait4(pid int, status *unix.WaitStatus, options int) (int, error) {
	return unix.Wait4(pid, status, options, nil)
}

// Tcsetpgrp sets the foreground process group of the terminal. The shell
// may be in the background when it takes the terminal back, so SIGTTOU is
// ignored during the call.
func (System) Tcsetpgrp(fd, pgid int) error {
	return withIgnoredSIGTTOU(func() error { return Tcsetpgrp(fd, pgid) })
}

// Tcgetpgrp gets the foreground process group of the terminal.
func (System) Tcgetpgrp(fd int) (int, error) { return Tcgetpgrp(fd) }

// GetAttr gets the terminal attributes.
func (System) GetAttr(fd int) (*unix.Termios, error) { return TermiosGet(fd) }

// SetAttr sets the terminal attributes, ignoring SIGTTOU like Tcsetpgrp.
func (System) SetAttr(fd int, attr *unix.Termios) error {
	return withIgnoredSIGTTOU(func() error { return TermiosSet(fd, attr) })
}

// Getpgrp returns the process group of the shell.
func (System) Getpgrp() int { return unix.Getpgrp() }

// PutSelfInFg puts the current process group in the foreground of the
// terminal. SIGTTOU is ignored during the call, since a background process
// changing the foreground group would otherwise be stopped by it.
func PutSelfInFg(fd int) error {
	return withIgnoredSIGTTOU(func() error {
		return Tcsetpgrp(fd, unix.Getpgrp())
	})
}
