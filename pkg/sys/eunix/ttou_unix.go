//go:build unix

package eunix

import (
	"os/signal"
	"syscall"
)

func withIgnoredSIGTTOU(f func() error) error {
	ignored := signal.Ignored(syscall.SIGTTOU)
	if !ignored {
		signal.Ignore(syscall.SIGTTOU)
		defer signal.Reset(syscall.SIGTTOU)
	}
	return f()
}
