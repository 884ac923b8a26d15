package job

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"src.lsh.sh/pkg/logutil"
)

var logger = logutil.GetLogger("[job] ")

// System is the part of the OS the Manager talks to. The real one lives in
// pkg/sys/eunix; tests use a fake.
type System interface {
	Kill(pid int, sig unix.Signal) error
	Wait4(pid int, status *unix.WaitStatus, options int) (int, error)
	Tcsetpgrp(fd, pgid int) error
	Tcgetpgrp(fd int) (int, error)
	GetAttr(fd int) (*unix.Termios, error)
	SetAttr(fd int, attr *unix.Termios) error
	Getpgrp() int
}

// Options configures a Manager.
type Options struct {
	// Capacity is the maximum number of jobs. The default is 64.
	Capacity int
	// TTY is the file descriptor of the controlling terminal, or -1.
	TTY int
	// JobControl puts every job in its own process group and hands the
	// terminal to foreground jobs.
	JobControl bool
	// AsyncNotify reports status changes of background jobs as soon as
	// they are reaped instead of before the next prompt.
	AsyncNotify bool
	// Out receives asynchronous notifications.
	Out io.Writer
}

// DefaultCapacity is the job capacity used when Options.Capacity is 0.
const DefaultCapacity = 64

// How often waiting loops poll for status changes when no SIGCHLD arrives.
var pollInterval = 100 * time.Millisecond

// Manager owns the job table and implements job control. All access to the
// table goes through the Manager and holds its mutex, so status changes
// reaped in the background never interleave with a builtin scanning the
// table.
type Manager struct {
	sys  System
	opts Options

	mu    sync.Mutex
	table *Table
	// Statuses reaped for processes that are not in the table.
	orphans map[int]unix.WaitStatus
	// Notification lines waiting for the next prompt.
	pending []string
	// Terminal attributes of the shell itself.
	shellAttr *unix.Termios
	shellPgid int
	lastBg    int

	childChanged chan struct{}
}

// NewManager creates a Manager.
func NewManager(sys System, opts Options) *Manager {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	m := &Manager{
		sys: sys, opts: opts, table: NewTable(opts.Capacity),
		orphans:      make(map[int]unix.WaitStatus),
		shellPgid:    sys.Getpgrp(),
		childChanged: make(chan struct{}, 1),
	}
	if opts.TTY >= 0 {
		if attr, err := sys.GetAttr(opts.TTY); err == nil {
			m.shellAttr = attr
		}
	}
	return m
}

// ChildChanged should be called when SIGCHLD arrives. It only wakes up
// whoever is waiting for a job; the statuses are collected by Reap.
func (m *Manager) ChildChanged() {
	select {
	case m.childChanged <- struct{}{}:
	default:
	}
}

// JobControl reports whether job control is on.
func (m *Manager) JobControl() bool { return m.opts.JobControl }

// TTY returns the file descriptor of the controlling terminal, or -1.
func (m *Manager) TTY() int { return m.opts.TTY }

// SetAsyncNotify turns immediate notification on or off.
func (m *Manager) SetAsyncNotify(b bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opts.AsyncNotify = b
}

// AsyncNotify reports whether status changes are reported immediately.
func (m *Manager) AsyncNotify() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opts.AsyncNotify
}

// LastBackground returns the process group ID of the last job started or
// resumed in the background, the value of $!.
func (m *Manager) LastBackground() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastBg
}

// SaveShellAttr records the current terminal attributes as those of the
// shell, restored whenever the shell takes the terminal back.
func (m *Manager) SaveShellAttr() {
	if m.opts.TTY < 0 {
		return
	}
	if attr, err := m.sys.GetAttr(m.opts.TTY); err == nil {
		m.mu.Lock()
		m.shellAttr = attr
		m.mu.Unlock()
	}
}

// Launch records a newly started pipeline as a job. The job becomes the
// current job. A background job also sets $!.
func (m *Manager) Launch(pgid int, pids []int, cmd string, fg bool) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, err := m.table.Add(pgid, pids, cmd)
	if err != nil {
		return nil, err
	}
	if m.opts.JobControl {
		j.Flags |= JobControl
	}
	if fg {
		j.Flags |= Foreground
	} else {
		m.lastBg = pgid
	}
	logger.Printf("launched job %d, pgid %d, pids %v: %s", j.Num, pgid, pids, j.Cmd)
	// Processes reaped between their start and the launch of the job.
	for _, pid := range pids {
		if ws, ok := m.orphans[pid]; ok {
			delete(m.orphans, pid)
			m.record(pid, ws)
		}
	}
	return j, nil
}

// Lookup resolves a job ID; see Table.Lookup.
func (m *Manager) Lookup(spec string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.table.Lookup(spec)
}

// ByPid returns the job containing the process, or nil.
func (m *Manager) ByPid(pid int) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.table.ByPid(pid)
}

// Jobs returns the jobs in the table in number order.
func (m *Manager) Jobs() []*Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.table.Jobs()
}

// Marker returns the current-job marker of j: '+', '-' or ' '.
func (m *Manager) Marker(j *Job) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.table.Marker(j)
}

// State returns the state of j.
func (m *Manager) State(j *Job) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return j.State()
}

// Remove removes j from the table.
func (m *Manager) Remove(j *Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.table.Remove(j)
}

// Format formats the listing line of j, like
// "[1]+  Stopped                 vim".
func (m *Manager) Format(j *Job) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return formatStatus(j, m.table.Marker(j))
}

// FormatLong is like Format, but also includes the process group ID.
func (m *Manager) FormatLong(j *Job) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fmt.Sprintf("[%d]%c %d %-24s%s\n", j.Num, m.table.Marker(j), j.Pgid, j.Description(), j.Cmd)
}

func formatStatus(j *Job, marker byte) string {
	return fmt.Sprintf("[%d]%c  %-24s%s\n", j.Num, marker, j.Description(), j.Cmd)
}

// Record applies one wait status reported for pid. It returns false if pid
// does not belong to any job.
func (m *Manager) Record(pid int, ws unix.WaitStatus) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record(pid, ws)
}

func (m *Manager) record(pid int, ws unix.WaitStatus) bool {
	j := m.table.ByPid(pid)
	if j == nil {
		if ws.Exited() || ws.Signaled() {
			m.orphans[pid] = ws
		}
		return false
	}
	i := j.index(pid)
	switch {
	case ws.Exited() || ws.Signaled():
		j.exits.set(i)
		j.stops.clear(i)
		j.statuses[i] = ws
	case ws.Stopped():
		j.stops.set(i)
		j.statuses[i] = ws
		if j.Has(Foreground) && m.opts.TTY >= 0 && j.ttyAttr == nil {
			if attr, err := m.sys.GetAttr(m.opts.TTY); err == nil {
				j.ttyAttr = attr
			}
		}
	case ws.Continued():
		j.stops.clear(i)
		j.Flags &^= Notified
	default:
		return true
	}
	logger.Printf("pid %d of job %d: status %#x, job now %s", pid, j.Num, int(ws), j.State())

	// Foreground jobs and jobs being waited for are reported by whoever
	// waits for them.
	if j.Has(Foreground) || j.waited {
		return true
	}
	switch j.State() {
	case Done, Stopped:
		if !j.Has(Notified) {
			m.notify(j)
		}
	}
	return true
}

// Reports a status change of a background job, immediately or at the next
// prompt. Done jobs leave the table once reported.
func (m *Manager) notify(j *Job) {
	line := formatStatus(j, m.table.Marker(j))
	if j.Has(Notify) || m.opts.AsyncNotify {
		fmt.Fprint(m.opts.Out, line)
		j.Flags |= Notified
		if j.State() == Done {
			m.table.Remove(j)
		}
		return
	}
	m.pending = append(m.pending, line)
	j.Flags |= Notified
	if j.State() == Done {
		m.table.Remove(j)
	}
}

// Clears the waited mark of jobs a wait has returned from, and reports those
// that finished or stopped in the meantime without being collected by the
// wait. Must be called with the mutex held.
func (m *Manager) release(jobs []*Job) {
	for _, j := range jobs {
		j.waited = false
		if m.table.ByNum(j.Num) != j || j.Has(Foreground) || j.Has(Notified) {
			continue
		}
		switch j.State() {
		case Done, Stopped:
			m.notify(j)
		}
	}
}

// Notifications returns the status lines queued since the last call, to be
// printed before the next prompt.
func (m *Manager) Notifications() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := m.pending
	m.pending = nil
	return lines
}

// Reap collects all pending status changes of child processes without
// blocking and applies them. It returns the number of statuses collected.
func (m *Manager) Reap() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reap()
}

func (m *Manager) reap() int {
	n := 0
	for {
		var ws unix.WaitStatus
		pid, err := m.sys.Wait4(-1, &ws, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED)
		if err == unix.EINTR {
			continue
		}
		if err != nil || pid <= 0 {
			return n
		}
		m.record(pid, ws)
		n++
	}
}

// Sends a signal to all processes of a job: to the process group under job
// control, to each live process otherwise.
func (m *Manager) signal(j *Job, sig unix.Signal) error {
	if j.Has(JobControl) {
		return m.sys.Kill(-j.Pgid, sig)
	}
	var firstErr error
	for i, pid := range j.Pids {
		if !j.exits.has(i) {
			if err := m.sys.Kill(pid, sig); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Signal sends a signal to every process of j.
func (m *Manager) Signal(j *Job, sig unix.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signal(j, sig)
}

// Background resumes a stopped job in the background: it sends SIGCONT to
// the job, makes it the current job and sets $!. It returns false without
// doing anything if the job is not stopped.
func (m *Manager) Background(j *Job) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j.State() != Stopped {
		return false, nil
	}
	if err := m.signal(j, unix.SIGCONT); err != nil {
		return false, err
	}
	j.stops.reset()
	j.Flags &^= Foreground | Notified
	m.table.SetCurrent(j)
	m.lastBg = j.Pgid
	return true, nil
}

// Foreground gives the terminal to j, continues it if it is stopped, and
// waits until it finishes or stops. The shell then takes the terminal back.
// It returns the exit status of the job; a stopped job yields 128 plus the
// stop signal and stays in the table. Interrupts from the terminal go to the
// job itself, so the wait cannot be cancelled.
func (m *Manager) Foreground(j *Job) (int, error) {
	m.mu.Lock()
	j.Flags |= Foreground
	j.Flags &^= Notified
	m.table.SetCurrent(j)
	ownsTTY := j.Has(JobControl) && m.opts.TTY >= 0
	if ownsTTY {
		if err := m.sys.Tcsetpgrp(m.opts.TTY, j.Pgid); err != nil {
			logger.Println("give terminal to job:", err)
		}
		if j.ttyAttr != nil {
			m.sys.SetAttr(m.opts.TTY, j.ttyAttr)
			j.ttyAttr = nil
		}
	}
	if j.State() == Stopped {
		if err := m.signal(j, unix.SIGCONT); err != nil {
			m.mu.Unlock()
			return 1, err
		}
		j.stops.reset()
	}
	m.mu.Unlock()

	m.waitUntil(context.Background(), func() bool {
		s := j.State()
		return s == Done || s == Stopped
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if ownsTTY {
		if err := m.sys.Tcsetpgrp(m.opts.TTY, m.shellPgid); err != nil {
			logger.Println("take terminal back:", err)
		}
		if m.shellAttr != nil {
			m.sys.SetAttr(m.opts.TTY, m.shellAttr)
		}
	}
	status := j.Status()
	if j.State() == Done {
		m.table.Remove(j)
	} else {
		j.Flags &^= Foreground
		j.Flags |= Notified
	}
	return status, nil
}

// Disown removes j from the table, or, if keep is true, keeps it but makes
// HangupAll skip it.
func (m *Manager) Disown(j *Job, keep bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if keep {
		j.Flags |= Disowned
	} else {
		m.table.Remove(j)
	}
}

// SetNotify makes status changes of j be reported immediately.
func (m *Manager) SetNotify(j *Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j.Flags |= Notify
}

// HangupAll sends SIGHUP, followed by SIGCONT, to every job that has not
// been disowned. It is called when the shell exits.
func (m *Manager) HangupAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.table.Jobs() {
		if j.Has(Disowned) || j.State() == Done {
			continue
		}
		logger.Printf("sending SIGHUP to job %d", j.Num)
		m.signal(j, unix.SIGHUP)
		m.signal(j, unix.SIGCONT)
	}
}
