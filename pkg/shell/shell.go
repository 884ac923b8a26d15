// Package shell is the entry point for the terminal interface of lsh.
package shell

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"

	"src.lsh.sh/pkg/env"
	"src.lsh.sh/pkg/eval"
	"src.lsh.sh/pkg/job"
	"src.lsh.sh/pkg/logutil"
	"src.lsh.sh/pkg/prog"
	"src.lsh.sh/pkg/sys"
	"src.lsh.sh/pkg/sys/eunix"
)

var logger = logutil.GetLogger("[shell] ")

// Program is the shell subprogram. It runs a script file, code given with
// -c, or commands read from stdin.
type Program struct{}

func (Program) Run(fds [3]*os.File, f *prog.Flags, args []string) error {
	if f.CodeInArg && len(args) == 0 {
		return prog.BadUsage("-c requires an argument")
	}
	paths, err := DefaultPaths()
	if err != nil {
		logger.Println("cannot determine default paths:", err)
	}
	cfg := prog.DefaultConfig()
	if f.Config != "" || paths.Config != "" {
		path := f.Config
		if path == "" {
			path = paths.Config
		}
		cfg, err = prog.LoadConfig(path, f.Config != "")
		if err != nil {
			return fmt.Errorf("cannot load configuration: %w", err)
		}
	}
	opts := resolveOptions(fds, f, cfg, len(args) > 0)
	if f.DB != "" {
		paths.DB = f.DB
	} else if cfg.HistoryDB != "" {
		paths.DB = cfg.HistoryDB
	}

	if f.CodeInArg || len(args) > 0 {
		if f.CompileOnly {
			return prog.Exit(compileOnly(fds, args, f.CodeInArg, f.JSON, opts.posix))
		}
		ev, in, cleanup := initEvaler(fds, opts)
		defer cleanup()
		return prog.Exit(script(ev, in, fds, args, f.CodeInArg))
	}
	if f.CompileOnly {
		return prog.BadUsage("-compileonly requires a script or -c")
	}
	ev, in, cleanup := initEvaler(fds, opts)
	defer cleanup()
	return prog.Exit(interact(ev, in, fds, &interactCfg{Paths: paths, Prompt: cfg.Prompt}))
}

// Options deciding how the shell runs, from the flags and the configuration
// file.
type options struct {
	interactive bool
	monitor     bool
	asyncNotify bool
	posix       bool
	maxJobs     int
}

func resolveOptions(fds [3]*os.File, f *prog.Flags, cfg *prog.Config, hasScript bool) options {
	interactive := f.Interactive ||
		(!f.CodeInArg && !hasScript && sys.IsATTY(fds[0].Fd()) && sys.IsATTY(fds[2].Fd()))
	monitor := interactive
	if cfg.Monitor != nil {
		monitor = *cfg.Monitor
	}
	return options{
		interactive: interactive,
		monitor:     monitor || f.Monitor,
		asyncNotify: cfg.Notify || f.AsyncNotify,
		posix:       cfg.POSIX || f.POSIX,
		maxJobs:     cfg.MaxJobs,
	}
}

// Creates the job manager and the Evaler, takes the terminal when job
// control is on, installs signal handlers and increases SHLVL. It returns
// the Evaler, the interrupter for the commands it runs and a callback that
// undoes the changes to the process.
func initEvaler(fds [3]*os.File, opts options) (*eval.Evaler, *interrupter, func()) {
	tty := -1
	if opts.monitor {
		fd := int(fds[0].Fd())
		if err := takeTerminal(fd); err != nil {
			fmt.Fprintf(fds[2], "lsh: no job control in this shell: %v\n", err)
			opts.monitor = false
		} else {
			tty = fd
		}
	}
	jobs := job.NewManager(eunix.System{}, job.Options{
		Capacity:    opts.maxJobs,
		TTY:         tty,
		JobControl:  opts.monitor,
		AsyncNotify: opts.asyncNotify,
		Out:         fds[2],
	})
	ev := eval.NewEvaler(jobs)
	ev.Options.Interactive = opts.interactive
	ev.Options.POSIX = opts.posix

	restoreSHLVL := incSHLVL()
	in := &interrupter{}
	stopSignals := handleSignals(ev, in, opts)
	return ev, in, func() {
		stopSignals()
		restoreSHLVL()
	}
}

// Waits until the shell is in the foreground of the terminal, then puts it
// in a process group of its own and makes that the foreground group.
func takeTerminal(fd int) error {
	if !sys.IsATTY(uintptr(fd)) {
		return fmt.Errorf("stdin is not a terminal")
	}
	for {
		fg, err := eunix.Tcgetpgrp(fd)
		if err != nil {
			return err
		}
		pgrp := unix.Getpgrp()
		if fg == pgrp {
			break
		}
		// Stop until the parent puts us in the foreground.
		unix.Kill(-pgrp, unix.SIGTTIN)
	}
	if pid := os.Getpid(); unix.Getpgrp() != pid {
		if err := unix.Setpgid(0, 0); err != nil {
			return err
		}
	}
	return eunix.PutSelfInFg(fd)
}

func incSHLVL() func() {
	oldValue, hadValue := os.LookupEnv(env.SHLVL)
	i, err := strconv.Atoi(oldValue)
	if err != nil {
		i = 0
	}
	os.Setenv(env.SHLVL, strconv.Itoa(i+1))

	if hadValue {
		return func() { os.Setenv(env.SHLVL, oldValue) }
	} else {
		return func() { os.Unsetenv(env.SHLVL) }
	}
}
