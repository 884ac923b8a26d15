package eval

import (
	"context"
	"fmt"
	"os"
	"strings"

	"src.lsh.sh/pkg/job"
	"src.lsh.sh/pkg/parse"
)

// Runs a pipeline of one or more stages as a job. A stage that is a simple
// command naming an external command runs that command directly; every other
// stage runs in a child shell.
func (fm *Frame) execPipeline(stages []*parse.Node, bg bool, whole *parse.Node) int {
	var toClose []*os.File
	defer func() {
		for _, f := range toClose {
			f.Close()
		}
	}()
	in := fm.In()
	if bg && !fm.ev.Jobs.JobControl() {
		// Without job control, background jobs must not read the terminal.
		if f, err := os.Open(os.DevNull); err == nil {
			in = f
			toClose = append(toClose, f)
		}
	}
	var procs []procSpec
	status := 0
	lastFailed := false
	for i, stage := range stages {
		stageFm := fm.fork()
		stageFm.setFile(0, in)
		var next *os.File
		if i < len(stages)-1 {
			r, w, err := os.Pipe()
			if err != nil {
				fm.errorf("lsh", "%v", err)
				return 1
			}
			toClose = append(toClose, r, w)
			stageFm.setFile(1, w)
			next = r
		}
		p, cleanup, st, ok := stageFm.stageProc(stage)
		if cleanup != nil {
			defer cleanup()
		}
		if ok {
			procs = append(procs, p)
		} else if i == len(stages)-1 {
			status, lastFailed = st, true
		}
		in = next
	}
	if len(procs) == 0 {
		return status
	}
	// The shell closes its ends of the pipes once every process has
	// started, so that readers see EOF.
	files := toClose
	toClose = nil
	jobStatus := fm.launchWith(procs, bg, whole, files)
	if lastFailed && !bg {
		return status
	}
	return jobStatus
}

// Returns the process for a pipeline stage.
func (fm *Frame) stageProc(stage *parse.Node) (procSpec, func(), int, bool) {
	if stage.Kind == parse.NodeCommand && fm.isExternal(stage) {
		assigns, words, redirs := commandParts(stage)
		argv, pairs, err := fm.expandCommand(assigns, words)
		if err != nil {
			fm.errorf("lsh", "%v", err)
			return procSpec{}, nil, 1, false
		}
		if fm.ev.Options.Xtrace {
			fm.trace(pairs, argv)
		}
		newFm, cleanup := fm, func() {}
		if len(redirs) > 0 {
			newFm, cleanup, err = fm.redirect(redirs)
			if err != nil {
				fm.errorf("lsh", "%v", err)
				return procSpec{}, nil, 1, false
			}
		}
		p, status, ok := newFm.externalProc(argv, pairs)
		return p, cleanup, status, ok
	}
	p, err := fm.childProc(parse.Format(stage), append([]*os.File(nil), fm.files...))
	if err != nil {
		fm.errorf("lsh", "%v", err)
		return procSpec{}, nil, 1, false
	}
	return p, nil, 0, true
}

// Reports whether a simple command can run without a child shell: its name
// comes from a word without expansions that have side effects, and names
// neither a builtin nor a function.
func (fm *Frame) isExternal(cmd *parse.Node) bool {
	for _, ch := range cmd.Children {
		if ch.Kind != parse.NodeWord {
			continue
		}
		if strings.ContainsAny(ch.Str(), "$`") {
			return false
		}
		fields, err := fm.expandWord(ch)
		if err != nil || len(fields) == 0 {
			return false
		}
		name := fields[0]
		_, isBuiltin := fm.ev.Builtins[name]
		_, isFunc := fm.ev.funcs[name]
		return !isBuiltin && !isFunc
	}
	return false
}

// Starts the processes of a job and, unless bg is set, waits for it in the
// foreground.
func (fm *Frame) launch(procs []procSpec, bg bool, whole *parse.Node) int {
	return fm.launchWith(procs, bg, whole, nil)
}

func (fm *Frame) launchWith(procs []procSpec, bg bool, whole *parse.Node, parentFiles []*os.File) int {
	jobs := fm.ev.Jobs
	jc := jobs.JobControl()
	pgid := -1
	if jc {
		pgid = 0
	}
	var pids []int
	status := 0
	for _, p := range procs {
		p.pgid = pgid
		if jc {
			p.foreground = !bg && pgid == 0
			p.tty = jobs.TTY()
		}
		pid, err := startProcess(p)
		if err != nil {
			fm.errorf(p.argv[0], "%v", err)
			status = startFailureStatus(err)
			continue
		}
		pids = append(pids, pid)
		if pgid == 0 {
			pgid = pid
		}
	}
	for _, f := range parentFiles {
		f.Close()
	}
	if len(pids) == 0 {
		return status
	}
	leader := pids[0]
	if jc {
		leader = pgid
	}
	j, err := jobs.Launch(leader, pids, parse.Format(whole), !bg)
	if err != nil {
		fm.errorf("lsh", "%v", err)
		for _, pid := range pids {
			jobs.WaitPid(context.Background(), pid)
		}
		return 1
	}
	if bg {
		if fm.ev.Options.Interactive {
			fmt.Fprintf(fm.Err(), "[%d] %d\n", j.Num, leader)
		}
		return 0
	}
	return fm.foreground(j)
}

// Waits for a job in the foreground and reports it if it stops.
func (fm *Frame) foreground(j *job.Job) int {
	jobs := fm.ev.Jobs
	status, err := jobs.Foreground(j)
	if err != nil {
		fm.errorf("lsh", "%v", err)
	}
	if jobs.State(j) == job.Stopped {
		fmt.Fprint(fm.Err(), "\n"+jobs.Format(j))
	}
	return status
}
