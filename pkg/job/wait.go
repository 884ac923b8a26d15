package job

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// WaitOpts keeps options for Manager.Wait.
type WaitOpts struct {
	// Any makes Wait return as soon as one of the jobs is done.
	Any bool
	// Force kills the jobs before waiting for them.
	Force bool
}

// Wait waits for the given jobs to finish, or for all running jobs if jobs
// is empty. Terminal attributes saved when a job was stopped are restored
// first. It returns the status of the last job waited for (of the first job
// to finish with opts.Any), or 0 when waiting for all jobs.
//
// If ctx is cancelled, Wait returns 128 and ErrInterrupted.
func (m *Manager) Wait(ctx context.Context, jobs []*Job, opts WaitOpts) (int, error) {
	m.mu.Lock()
	waitAll := len(jobs) == 0
	if waitAll {
		for _, j := range m.table.Jobs() {
			if j.State() == Running {
				jobs = append(jobs, j)
			}
		}
	}
	for _, j := range jobs {
		j.waited = true
		if j.ttyAttr != nil && m.opts.TTY >= 0 {
			m.sys.SetAttr(m.opts.TTY, j.ttyAttr)
		}
		if opts.Force {
			m.signal(j, unix.SIGCONT)
			m.signal(j, unix.SIGKILL)
		}
	}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.release(jobs)
		m.mu.Unlock()
	}()

	if len(jobs) == 0 {
		return 0, nil
	}
	if opts.Any {
		var first *Job
		err := m.waitUntil(ctx, func() bool {
			for _, j := range jobs {
				if j.State() == Done {
					first = j
					return true
				}
			}
			return false
		})
		if err != nil {
			return 128, err
		}
		return m.finish(first), nil
	}
	status := 0
	for _, j := range jobs {
		j := j
		if err := m.waitUntil(ctx, func() bool { return j.State() == Done }); err != nil {
			return 128, err
		}
		status = m.finish(j)
	}
	if waitAll {
		return 0, nil
	}
	return status, nil
}

// Removes a job that has been waited for and returns its status.
func (m *Manager) finish(j *Job) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.table.Remove(j)
	return j.Status()
}

// WaitPid waits for one child process, which may or may not be part of a
// job, and returns its exit status. The error wraps ErrNotChild if pid is
// not a child of the shell, or is ErrInterrupted if ctx is cancelled.
func (m *Manager) WaitPid(ctx context.Context, pid int) (int, error) {
	m.mu.Lock()
	if j := m.table.ByPid(pid); j != nil {
		i := j.index(pid)
		j.waited = true
		m.mu.Unlock()
		err := m.waitUntil(ctx, func() bool { return j.exits.has(i) })
		m.mu.Lock()
		defer m.mu.Unlock()
		if err != nil {
			m.release([]*Job{j})
			return 128, err
		}
		if j.State() == Done {
			m.table.Remove(j)
		}
		m.release([]*Job{j})
		return ExitStatus(j.statuses[i]), nil
	}
	if _, ok := m.orphans[pid]; !ok {
		var ws unix.WaitStatus
		wpid, err := m.sys.Wait4(pid, &ws, unix.WNOHANG)
		switch {
		case err != nil:
			m.mu.Unlock()
			return 127, fmt.Errorf("pid %d: %w", pid, ErrNotChild)
		case wpid == pid && (ws.Exited() || ws.Signaled()):
			m.orphans[pid] = ws
		}
	}
	m.mu.Unlock()

	var ws unix.WaitStatus
	err := m.waitUntil(ctx, func() bool {
		var ok bool
		ws, ok = m.orphans[pid]
		return ok
	})
	if err != nil {
		return 128, err
	}
	m.mu.Lock()
	delete(m.orphans, pid)
	m.mu.Unlock()
	return ExitStatus(ws), nil
}

// Reaps and evaluates cond under the mutex until cond holds. Between
// attempts it sleeps until a SIGCHLD is relayed, ctx is cancelled or the
// poll interval passes.
func (m *Manager) waitUntil(ctx context.Context, cond func() bool) error {
	for {
		m.mu.Lock()
		m.reap()
		done := cond()
		m.mu.Unlock()
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ErrInterrupted
		case <-m.childChanged:
		case <-time.After(pollInterval):
		}
	}
}
