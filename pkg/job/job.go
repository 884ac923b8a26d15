// Package job keeps track of the jobs of the shell and implements job
// control.
//
// A job is the process group of one pipeline. The Table stores jobs in
// numbered slots and resolves job IDs; the Manager applies status changes
// reported by the OS and moves jobs between the foreground and the
// background.
package job

import (
	"errors"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Errors returned by the Table and the Manager.
var (
	ErrTableFull    = errors.New("no more job slots")
	ErrUnknownJob   = errors.New("no such job")
	ErrAmbiguousJob = errors.New("ambiguous job spec")
	ErrInterrupted  = errors.New("interrupted")
	ErrNoJobControl = errors.New("no job control")
	ErrNotChild     = errors.New("not a child of this shell")
)

// Flag is a bit set of job properties.
type Flag uint

// Job flags.
const (
	// The job was started in the foreground or has been moved there.
	Foreground Flag = 1 << iota
	// The last status change of the job has been reported to the user.
	Notified
	// The job stays in the table but does not get SIGHUP when the shell
	// exits.
	Disowned
	// The processes of the job are in their own process group.
	JobControl
	// Status changes of the job are reported as soon as they happen instead
	// of before the next prompt.
	Notify
)

// State is the state of a job, derived from the statuses of its processes.
type State int

// Job states.
const (
	Running State = iota
	Stopped
	Done
)

func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	default:
		return "Done"
	}
}

// Job is one pipeline tracked by the shell.
type Job struct {
	// Num is the job number, starting from 1.
	Num int
	// Pgid is the process group ID, which is the pid of the first process.
	Pgid int
	// Pids lists the processes of the pipeline in order.
	Pids []int
	// Cmd is the command line shown in job listings.
	Cmd   string
	Flags Flag

	// Per-process exit and stop bits, indexed like Pids.
	exits bitset
	stops bitset
	// Last reported status of each process.
	statuses []unix.WaitStatus
	// Terminal attributes captured when the job was stopped in the
	// foreground.
	ttyAttr *unix.Termios
	// Order of becoming current, used to pick a new previous job.
	seq int
	// Set while the wait builtin waits for the job.
	waited bool
}

func newJob(pgid int, pids []int, cmd string) *Job {
	return &Job{
		Pgid:     pgid,
		Pids:     append([]int(nil), pids...),
		Cmd:      strings.TrimSpace(cmd),
		exits:    newBitset(len(pids)),
		stops:    newBitset(len(pids)),
		statuses: make([]unix.WaitStatus, len(pids)),
	}
}

// Has reports whether all of the given flags are set.
func (j *Job) Has(f Flag) bool { return j.Flags&f == f }

// State returns the current state of the job. A job is Done when every
// process has exited, and Stopped when every process that has not exited is
// stopped.
func (j *Job) State() State {
	if j.exits.all(len(j.Pids)) {
		return Done
	}
	for i := range j.Pids {
		if !j.exits.has(i) && !j.stops.has(i) {
			return Running
		}
	}
	return Stopped
}

// Status returns the exit status of the job, which is that of its last
// process: the exit code, or 128 plus the number of the signal that
// terminated or stopped it.
func (j *Job) Status() int {
	if len(j.statuses) == 0 {
		return 0
	}
	return ExitStatus(j.statuses[len(j.statuses)-1])
}

// Description describes the state of the job for job listings, such as
// "Running", "Done", "Done(2)", "Stopped" or "Killed".
func (j *Job) Description() string {
	switch j.State() {
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	}
	if len(j.statuses) == 0 {
		return "Done"
	}
	ws := j.statuses[len(j.statuses)-1]
	switch {
	case ws.Signaled():
		desc := ws.Signal().String()
		if ws.CoreDump() {
			desc += " (core dumped)"
		}
		return strings.ToUpper(desc[:1]) + desc[1:]
	case ws.ExitStatus() != 0:
		return "Done(" + strconv.Itoa(ws.ExitStatus()) + ")"
	}
	return "Done"
}

func (j *Job) index(pid int) int {
	for i, p := range j.Pids {
		if p == pid {
			return i
		}
	}
	return -1
}

// ExitStatus converts a wait status to a shell exit status.
func ExitStatus(ws unix.WaitStatus) int {
	switch {
	case ws.Exited():
		return ws.ExitStatus()
	case ws.Signaled():
		return 128 + int(ws.Signal())
	case ws.Stopped():
		return 128 + int(ws.StopSignal())
	}
	return 0
}

// A bit per process. Pipelines may have any number of stages, so this is
// not limited to one machine word.
type bitset []uint64

func newBitset(n int) bitset { return make(bitset, (n+63)/64) }

func (b bitset) set(i int) { b[i/64] |= 1 << (i % 64) }
func (b bitset) clear(i int) { b[i/64] &^= 1 << (i % 64) }
func (b bitset) has(i int) bool { return b[i/64]&(1<<(i%64)) != 0 }

func (b bitset) all(n int) bool {
	for i := 0; i < n; i++ {
		if !b.has(i) {
			return false
		}
	}
	return true
}

func (b bitset) reset() {
	for i := range b {
		b[i] = 0
	}
}
