// Package eval runs parsed lsh code.
//
// An Evaler keeps the state of a shell: variables, functions, positional
// parameters, options and the job manager. Code runs in a Frame, which
// carries the open files and the context used to interrupt blocking
// operations.
//
// Builtins, functions and foreground compound commands run in the shell
// process. External commands run as jobs, one process group per pipeline
// when job control is on. Everything else that needs its own process, such
// as a subshell, a compound command in a pipeline or a command substitution,
// runs in a child lsh started with "-c" and a script recreating the shell
// state.
package eval

import (
	"context"
	"os"
	"strconv"

	"src.lsh.sh/pkg/job"
	"src.lsh.sh/pkg/logutil"
	"src.lsh.sh/pkg/parse"
	"src.lsh.sh/pkg/store/storedefs"
)

var logger = logutil.GetLogger("[eval] ")

// Options keeps the shell options that can change while the shell runs.
type Options struct {
	// Interactive is set when commands are read from a terminal.
	Interactive bool
	// POSIX restricts the grammar to POSIX, as parse.Config.POSIX.
	POSIX bool
	// NoGlob disables pathname expansion ("set -f").
	NoGlob bool
	// Xtrace prints expanded commands before running them ("set -x").
	Xtrace bool
	// Errexit makes the shell exit when a command fails ("set -e").
	Errexit bool
}

// HistoryStore is the part of the history store used by the history
// builtin.
type HistoryStore interface {
	NextCmdSeq() (int, error)
	DelCmd(seq int) error
	CmdsWithSeq(from, upto int) ([]storedefs.Cmd, error)
}

// Evaler keeps the state of a shell.
type Evaler struct {
	Jobs     *job.Manager
	Builtins map[string]Builtin
	Options  Options
	// History backs the history builtin. It may be nil.
	History HistoryStore
	// Self is the command line that starts lsh, used for child shells. The
	// default is the running executable.
	Self []string

	// Non-exported variables. Exported variables live in the process
	// environment.
	vars  map[string]string
	funcs map[string]*parse.Node
	args  []string
	arg0  string

	status int
	// Status of the last command substitution, the status of a command
	// without a command name.
	substStatus int
	// Pending control flow: break, continue, return or exit.
	flow       flow
	flowLevels int
	exitStatus int
	loopDepth  int
	funcDepth  int
	// Greater than 0 while running a command whose status is tested.
	condDepth int
}

type flow int

const (
	flowNone flow = iota
	flowBreak
	flowContinue
	flowReturn
	flowExit
)

// NewEvaler creates an Evaler. Jobs must not be nil.
func NewEvaler(jobs *job.Manager) *Evaler {
	ev := &Evaler{
		Jobs:     jobs,
		Builtins: make(map[string]Builtin),
		vars:     make(map[string]string),
		funcs:    make(map[string]*parse.Node),
		arg0:     "lsh",
	}
	for name, b := range builtins {
		ev.Builtins[name] = b
	}
	if exe, err := os.Executable(); err == nil {
		ev.Self = []string{exe}
	}
	if _, ok := os.LookupEnv("IFS"); !ok {
		ev.vars["IFS"] = " \t\n"
	}
	return ev
}

// SetArgs sets $0 and the positional parameters.
func (ev *Evaler) SetArgs(arg0 string, args []string) {
	ev.arg0 = arg0
	ev.args = append([]string(nil), args...)
}

// Status returns $?.
func (ev *Evaler) Status() int { return ev.status }

// Exited reports whether the exit builtin has run, and with which status.
func (ev *Evaler) Exited() (bool, int) {
	return ev.flow == flowExit, ev.exitStatus
}

// Parse parses src with the grammar options of the Evaler.
func (ev *Evaler) Parse(src parse.Source) (*parse.Node, error) {
	return parse.Parse(src, parse.Config{POSIX: ev.Options.POSIX})
}

// Eval parses and runs src with the standard files of the process, and
// returns the exit status. Parse errors are returned without running
// anything.
func (ev *Evaler) Eval(ctx context.Context, src parse.Source) (int, error) {
	n, err := ev.Parse(src)
	if err != nil {
		return 2, err
	}
	fm := ev.NewFrame(ctx, os.Stdin, os.Stdout, os.Stderr)
	return fm.Exec(n), nil
}

// NewFrame creates a Frame with the given standard files.
func (ev *Evaler) NewFrame(ctx context.Context, in, out, err *os.File) *Frame {
	return &Frame{ev: ev, ctx: ctx, files: []*os.File{in, out, err}}
}

// Exec runs a parsed tree in a new Frame with the standard files of the
// process.
func (ev *Evaler) Exec(ctx context.Context, n *parse.Node) int {
	return ev.NewFrame(ctx, os.Stdin, os.Stdout, os.Stderr).Exec(n)
}

func (ev *Evaler) setStatus(status int) {
	ev.status = status
}

// Returns the option letters of $-.
func (ev *Evaler) optionFlags() string {
	s := ""
	if ev.Jobs.AsyncNotify() {
		s += "b"
	}
	if ev.Options.Errexit {
		s += "e"
	}
	if ev.Options.NoGlob {
		s += "f"
	}
	if ev.Jobs.JobControl() {
		s += "m"
	}
	if ev.Options.Interactive {
		s += "i"
	}
	if ev.Options.Xtrace {
		s += "x"
	}
	return s
}

func itoa(i int) string { return strconv.Itoa(i) }
