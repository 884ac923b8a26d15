package job

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sys/unix"

	"src.lsh.sh/pkg/testutil"
)

const (
	shellPgid = 10
	ttyFd     = 5
)

type waitEvent struct {
	pid int
	ws  unix.WaitStatus
}

// A fake System. Statuses queued with report are handed out by Wait4; every
// other call is recorded.
type fakeSys struct {
	mu       sync.Mutex
	events   []waitEvent
	children map[int]bool
	calls    []string
	attr     *unix.Termios
}

func newFakeSys() *fakeSys {
	return &fakeSys{children: map[int]bool{}, attr: &unix.Termios{Lflag: 1}}
}

func (s *fakeSys) report(pid int, ws unix.WaitStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, waitEvent{pid, ws})
}

func (s *fakeSys) record(format string, args ...any) {
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
}

func (s *fakeSys) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *fakeSys) Kill(pid int, sig unix.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("kill %d %s", pid, unix.SignalName(sig))
	return nil
}

func (s *fakeSys) Wait4(pid int, ws *unix.WaitStatus, options int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.events {
		if pid == -1 || e.pid == pid {
			s.events = append(s.events[:i], s.events[i+1:]...)
			*ws = e.ws
			return e.pid, nil
		}
	}
	if pid == -1 || s.children[pid] {
		return 0, nil
	}
	return -1, unix.ECHILD
}

func (s *fakeSys) Tcsetpgrp(fd, pgid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("tcsetpgrp %d %d", fd, pgid)
	return nil
}

func (s *fakeSys) Tcgetpgrp(fd int) (int, error) { return shellPgid, nil }

func (s *fakeSys) GetAttr(fd int) (*unix.Termios, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attr := *s.attr
	return &attr, nil
}

func (s *fakeSys) SetAttr(fd int, attr *unix.Termios) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attr = attr
	s.record("setattr %d lflag=%d", fd, attr.Lflag)
	return nil
}

func (s *fakeSys) Getpgrp() int { return shellPgid }

func exited(code int) unix.WaitStatus { return unix.WaitStatus(code << 8) }

func signaled(sig unix.Signal) unix.WaitStatus { return unix.WaitStatus(sig) }

func stopped(sig unix.Signal) unix.WaitStatus { return unix.WaitStatus(0x7f | int(sig)<<8) }

const continued = unix.WaitStatus(0xffff)

func setup(t *testing.T, opts Options) (*Manager, *fakeSys) {
	testutil.Set(t, &pollInterval, time.Millisecond)
	sys := newFakeSys()
	return NewManager(sys, opts), sys
}

func launch(t *testing.T, m *Manager, pgid int, n int, cmd string, fg bool) *Job {
	t.Helper()
	pids := make([]int, n)
	for i := range pids {
		pids[i] = pgid + i
	}
	j, err := m.Launch(pgid, pids, cmd, fg)
	if err != nil {
		t.Fatal(err)
	}
	return j
}

func TestRecord_DoneOnlyWhenEveryProcessExited(t *testing.T) {
	m, _ := setup(t, Options{TTY: -1})
	j := launch(t, m, 100, 2, "a | b", false)

	m.Record(100, exited(0))
	if m.State(j) != Running {
		t.Fatalf("job is %v after first process exited", m.State(j))
	}
	m.Record(101, exited(3))
	if j.State() != Done || j.Status() != 3 {
		t.Errorf("job is %v with status %d, want Done with 3", j.State(), j.Status())
	}
	want := []string{"[1]+  Done(3)                 a | b\n"}
	if diff := cmp.Diff(want, m.Notifications()); diff != "" {
		t.Errorf("notifications (-want +got):\n%s", diff)
	}
	if len(m.Jobs()) != 0 {
		t.Errorf("notified done job still in table")
	}
	if len(m.Notifications()) != 0 {
		t.Errorf("notifications were not cleared")
	}
}

func TestRecord_UnknownPid(t *testing.T) {
	m, _ := setup(t, Options{TTY: -1})
	if m.Record(42, exited(0)) {
		t.Errorf("Record of an unknown pid returned true")
	}
}

func TestRecord_ImmediateNotification(t *testing.T) {
	var out bytes.Buffer
	m, _ := setup(t, Options{TTY: -1, Out: &out})
	j := launch(t, m, 100, 1, "sleep 1", false)
	m.SetNotify(j)
	m.Record(100, signaled(unix.SIGKILL))
	if got, want := out.String(), "[1]+  Killed                  sleep 1\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if len(m.Notifications()) != 0 {
		t.Errorf("job was also queued for the prompt")
	}
}

func TestRecord_AsyncNotify(t *testing.T) {
	var out bytes.Buffer
	m, _ := setup(t, Options{TTY: -1, Out: &out})
	m.SetAsyncNotify(true)
	launch(t, m, 100, 1, "true", false)
	m.Record(100, exited(0))
	if got, want := out.String(), "[1]+  Done                    true\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReap(t *testing.T) {
	m, sys := setup(t, Options{TTY: -1})
	j := launch(t, m, 100, 1, "sleep 1", false)
	sys.report(100, stopped(unix.SIGTTIN))
	sys.report(555, exited(1))
	if n := m.Reap(); n != 2 {
		t.Errorf("Reap collected %d statuses, want 2", n)
	}
	if j.State() != Stopped {
		t.Errorf("job is %v, want Stopped", j.State())
	}
	want := []string{"[1]+  Stopped                 sleep 1\n"}
	if diff := cmp.Diff(want, m.Notifications()); diff != "" {
		t.Errorf("notifications (-want +got):\n%s", diff)
	}
	// The status of the unknown process is kept for WaitPid.
	if status, err := m.WaitPid(context.Background(), 555); status != 1 || err != nil {
		t.Errorf("WaitPid(555) = %d, %v; want 1, nil", status, err)
	}
}

func TestBackground_NoopWhenRunning(t *testing.T) {
	m, sys := setup(t, Options{TTY: -1, JobControl: true})
	j := launch(t, m, 100, 1, "sleep 1", false)
	ok, err := m.Background(j)
	if ok || err != nil {
		t.Errorf("Background of a running job = %v, %v; want false, nil", ok, err)
	}
	if calls := sys.Calls(); len(calls) != 0 {
		t.Errorf("Background of a running job made calls %v", calls)
	}
}

func TestBackground_ResumesStoppedJob(t *testing.T) {
	m, sys := setup(t, Options{TTY: -1, JobControl: true})
	a := launch(t, m, 100, 1, "vim", true)
	launch(t, m, 200, 1, "sleep 1", false)
	m.Record(100, stopped(unix.SIGTSTP))

	ok, err := m.Background(a)
	if !ok || err != nil {
		t.Fatalf("Background = %v, %v; want true, nil", ok, err)
	}
	if diff := cmp.Diff([]string{"kill -100 SIGCONT"}, sys.Calls()); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}
	if a.State() != Running || a.Has(Foreground) || a.Has(Notified) {
		t.Errorf("job is %v with flags %b after bg", a.State(), a.Flags)
	}
	if m.Marker(a) != '+' || m.LastBackground() != 100 {
		t.Errorf("marker %c, $! %d; want +, 100", m.Marker(a), m.LastBackground())
	}
}

func TestBackground_WithoutJobControlSignalsEachProcess(t *testing.T) {
	m, sys := setup(t, Options{TTY: -1})
	j := launch(t, m, 100, 2, "a | b", false)
	m.Record(100, stopped(unix.SIGSTOP))
	m.Record(101, stopped(unix.SIGSTOP))
	m.Background(j)
	want := []string{"kill 100 SIGCONT", "kill 101 SIGCONT"}
	if diff := cmp.Diff(want, sys.Calls()); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}
}

func TestForeground(t *testing.T) {
	m, sys := setup(t, Options{TTY: ttyFd, JobControl: true})
	j := launch(t, m, 100, 2, "a | b", true)
	sys.report(100, exited(0))
	sys.report(101, exited(4))

	status, err := m.Foreground(j)
	if status != 4 || err != nil {
		t.Errorf("Foreground = %d, %v; want 4, nil", status, err)
	}
	want := []string{
		"tcsetpgrp 5 100",
		"tcsetpgrp 5 10",
		"setattr 5 lflag=1",
	}
	if diff := cmp.Diff(want, sys.Calls()); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}
	if len(m.Jobs()) != 0 || len(m.Notifications()) != 0 {
		t.Errorf("finished foreground job was kept or notified")
	}
}

func TestForeground_StopAndResume(t *testing.T) {
	m, sys := setup(t, Options{TTY: ttyFd, JobControl: true})
	j := launch(t, m, 100, 1, "vim", true)

	// The job changes the terminal, then gets stopped.
	sys.SetAttr(ttyFd, &unix.Termios{Lflag: 7})
	sys.report(100, stopped(unix.SIGTSTP))
	status, _ := m.Foreground(j)
	if status != 128+int(unix.SIGTSTP) {
		t.Errorf("status %d, want %d", status, 128+int(unix.SIGTSTP))
	}
	if m.State(j) != Stopped || len(m.Jobs()) != 1 {
		t.Fatalf("stopped job is %v, table has %d jobs", m.State(j), len(m.Jobs()))
	}
	if j.ttyAttr == nil || j.ttyAttr.Lflag != 7 {
		t.Errorf("terminal attributes of the job were not saved")
	}

	// Resuming restores the job's attributes and continues it.
	sys.report(100, exited(0))
	status, _ = m.Foreground(j)
	if status != 0 {
		t.Errorf("status %d after resume, want 0", status)
	}
	calls := sys.Calls()
	resume := calls[len(calls)-5:]
	want := []string{
		"tcsetpgrp 5 100",
		"setattr 5 lflag=7",
		"kill -100 SIGCONT",
		"tcsetpgrp 5 10",
		"setattr 5 lflag=1",
	}
	if diff := cmp.Diff(want, resume); diff != "" {
		t.Errorf("calls when resuming (-want +got):\n%s", diff)
	}
}

func TestWait_All(t *testing.T) {
	m, sys := setup(t, Options{TTY: -1})
	launch(t, m, 100, 1, "a", false)
	launch(t, m, 200, 1, "b", false)
	sys.report(200, exited(2))
	sys.report(100, exited(1))
	status, err := m.Wait(context.Background(), nil, WaitOpts{})
	if status != 0 || err != nil {
		t.Errorf("Wait = %d, %v; want 0, nil", status, err)
	}
	if len(m.Jobs()) != 0 || len(m.Notifications()) != 0 {
		t.Errorf("waited jobs were kept or notified")
	}
}

func TestWait_Jobs(t *testing.T) {
	m, sys := setup(t, Options{TTY: -1})
	a := launch(t, m, 100, 1, "a", false)
	b := launch(t, m, 200, 1, "b", false)
	sys.report(100, exited(1))
	sys.report(200, exited(2))
	status, _ := m.Wait(context.Background(), []*Job{b, a}, WaitOpts{})
	if status != 1 {
		t.Errorf("status %d, want the status of the last job, 1", status)
	}
}

func TestWait_Any(t *testing.T) {
	m, sys := setup(t, Options{TTY: -1})
	launch(t, m, 100, 1, "a", false)
	b := launch(t, m, 200, 1, "b", false)
	sys.report(200, exited(5))
	status, err := m.Wait(context.Background(), nil, WaitOpts{Any: true})
	if status != 5 || err != nil {
		t.Errorf("Wait = %d, %v; want 5, nil", status, err)
	}
	if jobs := m.Jobs(); len(jobs) != 1 || jobs[0] == b {
		t.Errorf("jobs left: %v", jobs)
	}
}

func TestWait_Force(t *testing.T) {
	m, sys := setup(t, Options{TTY: -1, JobControl: true})
	j := launch(t, m, 100, 1, "a", false)
	sys.report(100, signaled(unix.SIGKILL))
	status, _ := m.Wait(context.Background(), []*Job{j}, WaitOpts{Force: true})
	if status != 128+int(unix.SIGKILL) {
		t.Errorf("status %d, want %d", status, 128+int(unix.SIGKILL))
	}
	want := []string{"kill -100 SIGCONT", "kill -100 SIGKILL"}
	if diff := cmp.Diff(want, sys.Calls()); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}
}

func TestWait_Interrupted(t *testing.T) {
	m, _ := setup(t, Options{TTY: -1})
	launch(t, m, 100, 1, "sleep 100", false)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(testutil.Scaled(10 * time.Millisecond))
		cancel()
	}()
	status, err := m.Wait(ctx, nil, WaitOpts{})
	if status != 128 || !errors.Is(err, ErrInterrupted) {
		t.Errorf("Wait = %d, %v; want 128, ErrInterrupted", status, err)
	}
	if len(m.Jobs()) != 1 {
		t.Errorf("interrupted wait removed the job")
	}
}

func TestWaitPid(t *testing.T) {
	m, sys := setup(t, Options{TTY: -1})
	launch(t, m, 100, 2, "a | b", false)
	sys.report(101, exited(7))
	status, err := m.WaitPid(context.Background(), 101)
	if status != 7 || err != nil {
		t.Errorf("WaitPid(101) = %d, %v; want 7, nil", status, err)
	}
	if len(m.Jobs()) != 1 {
		t.Errorf("job with a running process was removed")
	}

	sys.children[300] = true
	sys.report(300, exited(3))
	if status, _ := m.WaitPid(context.Background(), 300); status != 3 {
		t.Errorf("WaitPid(300) = %d, want 3", status)
	}

	if _, err := m.WaitPid(context.Background(), 999); !errors.Is(err, ErrNotChild) {
		t.Errorf("WaitPid(999) error %v, want ErrNotChild", err)
	}
}

func TestDisown(t *testing.T) {
	m, _ := setup(t, Options{TTY: -1})
	a := launch(t, m, 100, 1, "a", false)
	b := launch(t, m, 200, 1, "b", false)
	m.Disown(a, false)
	m.Disown(b, true)
	jobs := m.Jobs()
	if len(jobs) != 1 || jobs[0] != b || !b.Has(Disowned) {
		t.Errorf("after disown: %v", jobs)
	}
}

func TestHangupAll(t *testing.T) {
	m, sys := setup(t, Options{TTY: -1, JobControl: true})
	launch(t, m, 100, 1, "a", false)
	b := launch(t, m, 200, 1, "b", false)
	launch(t, m, 300, 1, "c", false)
	m.Disown(b, true)
	m.HangupAll()
	want := []string{
		"kill -100 SIGHUP", "kill -100 SIGCONT",
		"kill -300 SIGHUP", "kill -300 SIGCONT",
	}
	if diff := cmp.Diff(want, sys.Calls()); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}
}

func TestLaunch_TableFull(t *testing.T) {
	m, _ := setup(t, Options{TTY: -1, Capacity: 1})
	launch(t, m, 100, 1, "a", false)
	if _, err := m.Launch(200, []int{200}, "b", false); !errors.Is(err, ErrTableFull) {
		t.Errorf("got %v, want ErrTableFull", err)
	}
}

func TestChildChangedDoesNotBlock(t *testing.T) {
	m, _ := setup(t, Options{TTY: -1})
	for i := 0; i < 3; i++ {
		m.ChildChanged()
	}
}

func TestLaunch_AdoptsProcessReapedEarly(t *testing.T) {
	m, _ := setup(t, Options{TTY: -1})
	m.Record(100, exited(4))
	j := launch(t, m, 100, 1, "a", true)
	if j.State() != Done || j.Status() != 4 {
		t.Errorf("job is %v with status %d, want Done with 4", j.State(), j.Status())
	}
}

func TestWait_Any_ReportsOtherFinishedJobs(t *testing.T) {
	m, sys := setup(t, Options{TTY: -1})
	a := launch(t, m, 100, 1, "a", false)
	b := launch(t, m, 200, 1, "b", false)
	sys.report(100, exited(1))
	sys.report(200, exited(0))
	status, err := m.Wait(context.Background(), []*Job{a, b}, WaitOpts{Any: true})
	if status != 1 || err != nil {
		t.Errorf("Wait = %d, %v; want 1, nil", status, err)
	}
	m.Reap()
	want := []string{"[2]+  Done                    b\n"}
	if diff := cmp.Diff(want, m.Notifications()); diff != "" {
		t.Errorf("notifications (-want +got):\n%s", diff)
	}
	if len(m.Jobs()) != 0 {
		t.Errorf("finished jobs left in the table: %v", m.Jobs())
	}
}

func TestWait_Interrupted_ReportsFinishedJobs(t *testing.T) {
	m, sys := setup(t, Options{TTY: -1})
	a := launch(t, m, 100, 1, "a", false)
	b := launch(t, m, 200, 1, "b", false)
	sys.report(200, exited(0))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(testutil.Scaled(10 * time.Millisecond))
		cancel()
	}()
	status, err := m.Wait(ctx, []*Job{a, b}, WaitOpts{})
	if status != 128 || !errors.Is(err, ErrInterrupted) {
		t.Errorf("Wait = %d, %v; want 128, ErrInterrupted", status, err)
	}
	want := []string{"[2]+  Done                    b\n"}
	if diff := cmp.Diff(want, m.Notifications()); diff != "" {
		t.Errorf("notifications (-want +got):\n%s", diff)
	}
	if jobs := m.Jobs(); len(jobs) != 1 || jobs[0] != a {
		t.Errorf("jobs left: %v, want only a", jobs)
	}
}

func TestWaitPid_Interrupted_ReportsStoppedJob(t *testing.T) {
	m, sys := setup(t, Options{TTY: -1})
	launch(t, m, 100, 1, "vim", false)
	sys.report(100, stopped(unix.SIGTSTP))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(testutil.Scaled(10 * time.Millisecond))
		cancel()
	}()
	if status, err := m.WaitPid(ctx, 100); status != 128 || !errors.Is(err, ErrInterrupted) {
		t.Errorf("WaitPid = %d, %v; want 128, ErrInterrupted", status, err)
	}
	want := []string{"[1]+  Stopped                 vim\n"}
	if diff := cmp.Diff(want, m.Notifications()); diff != "" {
		t.Errorf("notifications (-want +got):\n%s", diff)
	}
}

func TestFormat(t *testing.T) {
	m, _ := setup(t, Options{TTY: -1})
	a := launch(t, m, 100, 1, "sleep 10", false)
	b := launch(t, m, 200, 1, "vim", false)
	m.Record(200, stopped(unix.SIGTSTP))
	if got, want := m.Format(a), "[1]-  Running                 sleep 10\n"; got != want {
		t.Errorf("Format(a) = %q, want %q", got, want)
	}
	if got, want := m.FormatLong(b), "[2]+ 200 Stopped                 vim\n"; got != want {
		t.Errorf("FormatLong(b) = %q, want %q", got, want)
	}
}

// Run with -race: formatting a job reads state that reaping writes.
func TestFormat_WhileReaping(t *testing.T) {
	m, sys := setup(t, Options{TTY: -1, AsyncNotify: true})
	j := launch(t, m, 100, 2, "a | b", false)
	sys.report(100, exited(0))
	sys.report(101, exited(0))
	done := make(chan struct{})
	go func() {
		m.Reap()
		close(done)
	}()
	for i := 0; i < 100; i++ {
		m.Format(j)
	}
	<-done
}

func TestSetAsyncNotify(t *testing.T) {
	var out bytes.Buffer
	m, _ := setup(t, Options{TTY: -1, Out: &out})
	if m.AsyncNotify() {
		t.Errorf("AsyncNotify is on by default")
	}
	m.SetAsyncNotify(true)
	if !m.AsyncNotify() {
		t.Errorf("AsyncNotify is off after SetAsyncNotify(true)")
	}
	launch(t, m, 100, 1, "true", false)
	m.SetAsyncNotify(false)
	m.Record(100, exited(0))
	if out.Len() != 0 || len(m.Notifications()) != 1 {
		t.Errorf("job was reported immediately after SetAsyncNotify(false)")
	}
}
