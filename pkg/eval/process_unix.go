//go:build unix

package eval

import (
	"os"
	"syscall"
)

// Describes a process to start.
type procSpec struct {
	path  string
	argv  []string
	env   []string
	files []*os.File
	// The process group to join: 0 to lead a new group, -1 to stay in the
	// group of the shell.
	pgid int
	// Whether the new process group takes the terminal before the command
	// runs. Only used for the leader of a group.
	foreground bool
	tty        int
}

// Starts a process without waiting for it. The process is reaped by the job
// manager, never by os.Process.Wait.
func startProcess(p procSpec) (int, error) {
	sys := &syscall.SysProcAttr{}
	if p.pgid >= 0 {
		sys.Setpgid = true
		sys.Pgid = p.pgid
		if p.foreground && p.pgid == 0 && p.tty >= 0 {
			sys.Foreground = true
			sys.Ctty = p.tty
		}
	}
	proc, err := os.StartProcess(p.path, p.argv,
		&os.ProcAttr{Env: p.env, Files: p.files, Sys: sys})
	if err != nil {
		return 0, err
	}
	pid := proc.Pid
	proc.Release()
	return pid, nil
}

// Returns the exit status for a failure to start a command: 127 when the
// command does not exist, 126 otherwise.
func startFailureStatus(err error) int {
	if os.IsNotExist(err) || err == syscall.ENOENT {
		return 127
	}
	return 126
}
