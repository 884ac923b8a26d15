package eval

import (
	"errors"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"src.lsh.sh/pkg/getopt"
	"src.lsh.sh/pkg/job"
	"src.lsh.sh/pkg/sys/eunix"
)

// Resolves the job IDs given to a job builtin, or the current job if there
// are none.
func (fm *Frame) lookupJobs(name string, ids []string) ([]*job.Job, bool) {
	if len(ids) == 0 {
		ids = []string{"%%"}
	}
	var js []*job.Job
	for _, id := range ids {
		j, err := fm.ev.Jobs.Lookup(id)
		if err != nil {
			fm.errorf(name, "%v", err)
			return nil, false
		}
		js = append(js, j)
	}
	return js, true
}

func jobs(fm *Frame, args []string) int {
	m := fm.ev.Jobs
	opts, ids, err := getopt.Parse(args[1:], []*getopt.OptionSpec{{Short: 'l'}, {Short: 'p'}})
	if err != nil {
		fm.errorf("jobs", "%v", err)
		return 2
	}
	m.Reap()
	js := m.Jobs()
	if len(ids) > 0 {
		var ok bool
		if js, ok = fm.lookupJobs("jobs", ids); !ok {
			return 1
		}
	}
	return listJobs(fm, js, opts)
}

func listJobs(fm *Frame, js []*job.Job, opts []*getopt.Option) int {
	m := fm.ev.Jobs
	for _, j := range js {
		switch {
		case getopt.Has(opts, 'p'):
			fm.printf("%d\n", j.Pgid)
		case getopt.Has(opts, 'l'):
			fm.printf("%s", m.FormatLong(j))
		default:
			fm.printf("%s", m.Format(j))
		}
		// Finished jobs are forgotten once listed.
		if m.State(j) == job.Done {
			m.Remove(j)
		}
	}
	return 0
}

func fg(fm *Frame, args []string) int {
	m := fm.ev.Jobs
	if !m.JobControl() {
		fm.errorf("fg", "%v", job.ErrNoJobControl)
		return 2
	}
	js, ok := fm.lookupJobs("fg", args[1:])
	if !ok {
		return 1
	}
	j := js[len(js)-1]
	fm.printf("%s\n", j.Cmd)
	return fm.foreground(j)
}

func bg(fm *Frame, args []string) int {
	m := fm.ev.Jobs
	if !m.JobControl() {
		fm.errorf("bg", "%v", job.ErrNoJobControl)
		return 2
	}
	js, ok := fm.lookupJobs("bg", args[1:])
	if !ok {
		return 1
	}
	status := 0
	for _, j := range js {
		resumed, err := m.Background(j)
		switch {
		case err != nil:
			fm.errorf("bg", "%v", err)
			status = 1
		case !resumed:
			fm.errorf("bg", "job %d already in background", j.Num)
		default:
			fm.printf("[%d]%c %s\n", j.Num, m.Marker(j), j.Cmd)
		}
	}
	return status
}

func wait(fm *Frame, args []string) int {
	m := fm.ev.Jobs
	opts, ids, err := getopt.Parse(args[1:], []*getopt.OptionSpec{{Short: 'n'}, {Short: 'f'}})
	if err != nil {
		fm.errorf("wait", "%v", err)
		return 2
	}
	waitOpts := job.WaitOpts{Any: getopt.Has(opts, 'n'), Force: getopt.Has(opts, 'f')}
	if len(ids) == 0 {
		status, err := m.Wait(fm.ctx, nil, waitOpts)
		if err != nil {
			fm.errorf("wait", "%v", err)
		}
		return status
	}
	status := 0
	var js []*job.Job
	var pids []int
	for _, id := range ids {
		if strings.HasPrefix(id, "%") {
			j, err := m.Lookup(id)
			if err != nil {
				fm.errorf("wait", "%v", err)
				status = 127
				continue
			}
			js = append(js, j)
			continue
		}
		pid, err := strconv.Atoi(id)
		if err != nil || pid <= 0 {
			fm.errorf("wait", "%s: not a pid or valid job spec", id)
			status = 127
			continue
		}
		if j := m.ByPid(pid); j != nil && j.Pgid == pid {
			js = append(js, j)
		} else {
			pids = append(pids, pid)
		}
	}
	if len(js) > 0 {
		st, err := m.Wait(fm.ctx, js, waitOpts)
		if err != nil {
			fm.errorf("wait", "%v", err)
			return st
		}
		status = st
		if waitOpts.Any {
			return status
		}
	}
	for _, pid := range pids {
		st, err := m.WaitPid(fm.ctx, pid)
		if err != nil {
			fm.errorf("wait", "%v", err)
			if errors.Is(err, job.ErrInterrupted) {
				return st
			}
		}
		status = st
	}
	return status
}

func disown(fm *Frame, args []string) int {
	m := fm.ev.Jobs
	opts, ids, err := getopt.Parse(args[1:], []*getopt.OptionSpec{
		{Short: 'a'}, {Short: 'h'}, {Short: 'r'}, {Short: 's'}})
	if err != nil {
		fm.errorf("disown", "%v", err)
		return 2
	}
	keep := getopt.Has(opts, 'h')
	running, stopped := getopt.Has(opts, 'r'), getopt.Has(opts, 's')
	var js []*job.Job
	if len(ids) == 0 && (getopt.Has(opts, 'a') || running || stopped) {
		js = m.Jobs()
	} else {
		var ok bool
		if js, ok = fm.lookupJobs("disown", ids); !ok {
			return 1
		}
	}
	for _, j := range js {
		state := m.State(j)
		if (running && state != job.Running) || (stopped && state != job.Stopped) {
			continue
		}
		m.Disown(j, keep)
	}
	return 0
}

func notify(fm *Frame, args []string) int {
	m := fm.ev.Jobs
	if !m.JobControl() {
		fm.errorf("notify", "%v", job.ErrNoJobControl)
		return 2
	}
	js, ok := fm.lookupJobs("notify", args[1:])
	if !ok {
		return 3
	}
	for _, j := range js {
		m.SetNotify(j)
	}
	return 0
}

func kill(fm *Frame, args []string) int {
	m := fm.ev.Jobs
	args = args[1:]
	if len(args) == 0 {
		fm.errorf("kill", "usage: kill [-s sig | -sig] pid|%%job ... or kill -l [status]")
		return 2
	}
	if args[0] == "-l" || args[0] == "-L" {
		return killList(fm, args[1:])
	}
	sig := unix.SIGTERM
	switch {
	case args[0] == "-s" || args[0] == "-n":
		if len(args) < 2 {
			fm.errorf("kill", "%s: option requires an argument", args[0])
			return 2
		}
		s, err := eunix.ParseSignal(args[1])
		if err != nil {
			fm.errorf("kill", "%v", err)
			return 1
		}
		sig, args = s, args[2:]
	case args[0] == "--":
		args = args[1:]
	case len(args[0]) > 1 && args[0][0] == '-':
		s, err := eunix.ParseSignal(args[0][1:])
		if err != nil {
			fm.errorf("kill", "%v", err)
			return 1
		}
		sig, args = s, args[1:]
	}
	status := 0
	for _, target := range args {
		if strings.HasPrefix(target, "%") {
			j, err := m.Lookup(target)
			if err != nil {
				fm.errorf("kill", "%v", err)
				status = 1
				continue
			}
			if err := m.Signal(j, sig); err != nil {
				fm.errorf("kill", "%s: %v", target, err)
				status = 1
				continue
			}
			// A stopped job only sees a terminating signal once continued.
			if m.State(j) == job.Stopped && (sig == unix.SIGTERM || sig == unix.SIGHUP) {
				m.Signal(j, unix.SIGCONT)
			}
			continue
		}
		pid, err := strconv.Atoi(target)
		if err != nil {
			fm.errorf("kill", "%s: arguments must be process or job IDs", target)
			status = 1
			continue
		}
		if err := unix.Kill(pid, sig); err != nil {
			fm.errorf("kill", "(%d) - %v", pid, err)
			status = 1
		}
	}
	return status
}

// Lists signal names, or prints the name of the signal for each exit status
// or signal number.
func killList(fm *Frame, args []string) int {
	if len(args) == 0 {
		fm.printf("%s\n", strings.Join(eunix.SignalNames(), " "))
		return 0
	}
	status := 0
	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil {
			sig, err := eunix.ParseSignal(arg)
			if err != nil {
				fm.errorf("kill", "%v", err)
				status = 1
				continue
			}
			fm.printf("%d\n", int(sig))
			continue
		}
		if n > 128 {
			n -= 128
		}
		name := unix.SignalName(unix.Signal(n))
		if name == "" {
			fm.errorf("kill", "%s: invalid signal specification", arg)
			status = 1
			continue
		}
		fm.printf("%s\n", strings.TrimPrefix(name, "SIG"))
	}
	return status
}
