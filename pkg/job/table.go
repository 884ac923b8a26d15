package job

import (
	"fmt"
	"strconv"
	"strings"
)

// Table is a fixed-capacity table of jobs. Job numbers are slot indices plus
// one, so the lowest free number is reused when a job is removed.
//
// A Table is not safe for concurrent use; the Manager serializes access.
type Table struct {
	slots []*Job
	// Numbers of the current and previous jobs, 0 when there is none.
	cur, prev int
	seq       int
}

// NewTable creates a Table that holds at most capacity jobs.
func NewTable(capacity int) *Table {
	return &Table{slots: make([]*Job, capacity)}
}

// Cap returns the capacity of the table.
func (t *Table) Cap() int { return len(t.slots) }

// Len returns the number of jobs in the table.
func (t *Table) Len() int {
	n := 0
	for _, j := range t.slots {
		if j != nil {
			n++
		}
	}
	return n
}

// Add adds a job in the lowest free slot and makes it the current job; the
// old current job becomes the previous job.
func (t *Table) Add(pgid int, pids []int, cmd string) (*Job, error) {
	for i, j := range t.slots {
		if j == nil {
			j = newJob(pgid, pids, cmd)
			j.Num = i + 1
			t.slots[i] = j
			t.SetCurrent(j)
			return j, nil
		}
	}
	return nil, ErrTableFull
}

// SetCurrent makes j the current job, and the old current job the previous
// one. It does nothing if j is already current.
func (t *Table) SetCurrent(j *Job) {
	t.seq++
	j.seq = t.seq
	if t.cur == j.Num {
		return
	}
	t.prev, t.cur = t.cur, j.Num
}

// Current returns the current job, or nil.
func (t *Table) Current() *Job { return t.ByNum(t.cur) }

// Previous returns the previous job, or nil.
func (t *Table) Previous() *Job { return t.ByNum(t.prev) }

// ByNum returns the job with the given number, or nil.
func (t *Table) ByNum(n int) *Job {
	if n < 1 || n > len(t.slots) {
		return nil
	}
	return t.slots[n-1]
}

// ByPid returns the job that has pid as any of its processes, or nil.
func (t *Table) ByPid(pid int) *Job {
	for _, j := range t.slots {
		if j != nil && j.index(pid) >= 0 {
			return j
		}
	}
	return nil
}

// Lookup resolves a job ID:
//
//   - "%%", "%+" and "%" refer to the current job
//   - "%-" refers to the previous job
//   - "%N" refers to job number N
//   - "%?str" refers to the job whose command contains str
//   - "%str" refers to the job whose command starts with str
//   - a bare number is the pid of any process of a job
//
// The error wraps ErrUnknownJob or ErrAmbiguousJob.
func (t *Table) Lookup(spec string) (*Job, error) {
	var j *Job
	switch {
	case spec == "%%" || spec == "%+" || spec == "%":
		j = t.Current()
	case spec == "%-":
		j = t.Previous()
	case strings.HasPrefix(spec, "%?"):
		return t.match(spec, func(j *Job) bool { return strings.Contains(j.Cmd, spec[2:]) })
	case strings.HasPrefix(spec, "%"):
		if n, err := strconv.Atoi(spec[1:]); err == nil {
			j = t.ByNum(n)
		} else {
			return t.match(spec, func(j *Job) bool { return strings.HasPrefix(j.Cmd, spec[1:]) })
		}
	default:
		if pid, err := strconv.Atoi(spec); err == nil && pid > 0 {
			j = t.ByPid(pid)
		}
	}
	if j == nil {
		return nil, fmt.Errorf("%s: %w", spec, ErrUnknownJob)
	}
	return j, nil
}

func (t *Table) match(spec string, f func(*Job) bool) (*Job, error) {
	var found *Job
	for _, j := range t.slots {
		if j != nil && f(j) {
			if found != nil {
				return nil, fmt.Errorf("%s: %w", spec, ErrAmbiguousJob)
			}
			found = j
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%s: %w", spec, ErrUnknownJob)
	}
	return found, nil
}

// Remove removes j from the table. If j was the current job, the previous
// job becomes current; the most recently current of the remaining jobs
// becomes previous.
func (t *Table) Remove(j *Job) {
	if t.ByNum(j.Num) != j {
		return
	}
	t.slots[j.Num-1] = nil
	switch j.Num {
	case t.cur:
		t.cur = t.prev
		t.prev = t.latestExcept(t.cur)
	case t.prev:
		t.prev = t.latestExcept(t.cur)
	}
	if t.cur == 0 {
		t.cur = t.latestExcept(0)
		t.prev = t.latestExcept(t.cur)
	}
}

// Returns the number of the job that became current most recently, other
// than job n, or 0.
func (t *Table) latestExcept(n int) int {
	var latest *Job
	for _, j := range t.slots {
		if j != nil && j.Num != n && (latest == nil || j.seq > latest.seq) {
			latest = j
		}
	}
	if latest == nil {
		return 0
	}
	return latest.Num
}

// Jobs returns the jobs in the table in the order of their numbers.
func (t *Table) Jobs() []*Job {
	var jobs []*Job
	for _, j := range t.slots {
		if j != nil {
			jobs = append(jobs, j)
		}
	}
	return jobs
}

// Marker returns '+' for the current job, '-' for the previous job and ' '
// for other jobs.
func (t *Table) Marker(j *Job) byte {
	switch j.Num {
	case t.cur:
		return '+'
	case t.prev:
		return '-'
	}
	return ' '
}
