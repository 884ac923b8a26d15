//go:build unix

package shell

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"

	"src.lsh.sh/pkg/eval"
	"src.lsh.sh/pkg/sys"
)

// Cancels the context of the running command when the user interrupts it.
type interrupter struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	// Called on an interrupt when no command is running.
	idle func()
}

func (in *interrupter) setIdle(f func()) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.idle = f
}

// Returns a context for the next command, cancelled by an interrupt. The
// returned function must be called when the command finishes.
func (in *interrupter) context() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	in.mu.Lock()
	in.cancel = cancel
	in.mu.Unlock()
	return ctx, func() {
		in.mu.Lock()
		in.cancel = nil
		in.mu.Unlock()
		cancel()
	}
}

func (in *interrupter) interrupt() {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.cancel != nil {
		in.cancel()
	} else if in.idle != nil {
		in.idle()
	}
}

// Handles signals delivered to the shell until the returned function is
// called.
//
// SIGTSTP and SIGTTIN are received and dropped rather than ignored, since
// ignored signals stay ignored in the commands the shell starts.
func handleSignals(ev *eval.Evaler, in *interrupter, opts options) func() {
	sigs := []os.Signal{unix.SIGCHLD, unix.SIGHUP, unix.SIGUSR1}
	if opts.interactive {
		sigs = append(sigs, unix.SIGINT, unix.SIGQUIT, unix.SIGTERM)
	}
	if opts.monitor {
		sigs = append(sigs, unix.SIGTSTP, unix.SIGTTIN)
	}
	sigCh := sys.NotifySignals(sigs...)
	go func() {
		for sig := range sigCh {
			logger.Println("signal", sig)
			handleSignal(ev, in, sig)
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(sigCh)
	}
}

func handleSignal(ev *eval.Evaler, in *interrupter, sig os.Signal) {
	switch sig {
	case unix.SIGCHLD:
		ev.Jobs.ChildChanged()
		// Jobs with immediate notification report right away; the others
		// are queued for the next prompt.
		ev.Jobs.Reap()
	case unix.SIGINT:
		in.interrupt()
	case unix.SIGHUP:
		ev.Jobs.HangupAll()
		os.Exit(128 + int(unix.SIGHUP))
	case unix.SIGUSR1:
		logger.Print(sys.DumpStack())
	}
}
