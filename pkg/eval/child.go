package eval

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"src.lsh.sh/pkg/parse"
)

// ErrNoChildShell is returned when code must run in a child shell but the
// lsh executable is not known.
var ErrNoChildShell = errors.New("cannot start a child shell")

// Returns a script that recreates the state of the shell in a child shell,
// followed by code. Exported variables reach the child through the
// environment; everything else is recreated here.
func (ev *Evaler) childScript(code string) string {
	var sb strings.Builder
	for _, name := range ev.localVars() {
		fmt.Fprintf(&sb, "%s=%s\n", name, parse.Quote(ev.vars[name]))
	}
	fnNames := make([]string, 0, len(ev.funcs))
	for name := range ev.funcs {
		fnNames = append(fnNames, name)
	}
	sort.Strings(fnNames)
	for _, name := range fnNames {
		sb.WriteString(parse.Format(ev.funcs[name]))
		sb.WriteByte('\n')
	}
	if flags := ev.setFlags(); flags != "" {
		sb.WriteString("set -" + flags + "\n")
	}
	if len(ev.args) > 0 {
		sb.WriteString("set -- " + parse.QuoteAll(ev.args) + "\n")
	}
	sb.WriteString(code)
	return sb.String()
}

// Returns the options that "set" can turn on, as flag letters.
func (ev *Evaler) setFlags() string {
	s := ""
	if ev.Options.Errexit {
		s += "e"
	}
	if ev.Options.NoGlob {
		s += "f"
	}
	if ev.Options.Xtrace {
		s += "x"
	}
	return s
}

// Returns the procSpec of a child shell running code.
func (fm *Frame) childProc(code string, files []*os.File) (procSpec, error) {
	ev := fm.ev
	if len(ev.Self) == 0 {
		return procSpec{}, ErrNoChildShell
	}
	argv := append([]string(nil), ev.Self...)
	if ev.Options.POSIX {
		argv = append(argv, "-posix")
	}
	argv = append(argv, "-c", ev.childScript(code), ev.arg0)
	return procSpec{
		path: ev.Self[0], argv: argv, env: ev.environ(nil), files: files,
		pgid: -1, tty: -1,
	}, nil
}

// Runs code in a child shell and returns its output with trailing newlines
// removed. The exit status becomes the status of a command without a
// command name.
func (fm *Frame) captureOutput(code string) (string, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return "", err
	}
	defer r.Close()
	p, err := fm.childProc(code, []*os.File{fm.In(), w, fm.Err()})
	if err != nil {
		w.Close()
		return "", err
	}
	pid, err := startProcess(p)
	w.Close()
	if err != nil {
		return "", err
	}
	out, readErr := io.ReadAll(r)
	status, err := fm.ev.Jobs.WaitPid(fm.ctx, pid)
	fm.ev.substStatus = status
	if err != nil {
		return "", err
	}
	if readErr != nil {
		return "", readErr
	}
	return strings.TrimRight(string(out), "\n"), nil
}
