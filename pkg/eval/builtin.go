package eval

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"src.lsh.sh/pkg/env"
	"src.lsh.sh/pkg/fsutil"
	"src.lsh.sh/pkg/getopt"
	"src.lsh.sh/pkg/parse"
)

// Builtin is a command implemented in the shell. It runs in the shell
// process, so it can change the state of the shell.
type Builtin interface {
	Invoke(fm *Frame, args []string) int
}

// BuiltinFunc adapts an ordinary function to a Builtin.
type BuiltinFunc func(fm *Frame, args []string) int

// Invoke calls f.
func (f BuiltinFunc) Invoke(fm *Frame, args []string) int { return f(fm, args) }

var builtins map[string]Builtin

func init() {
	builtins = map[string]Builtin{
		":":        BuiltinFunc(trueCmd),
		"true":     BuiltinFunc(trueCmd),
		"false":    BuiltinFunc(falseCmd),
		"echo":     BuiltinFunc(echo),
		"pwd":      BuiltinFunc(pwd),
		"cd":       BuiltinFunc(cd),
		"exit":     BuiltinFunc(exit),
		"export":   BuiltinFunc(export),
		"unset":    BuiltinFunc(unset),
		"set":      BuiltinFunc(set),
		"source":   BuiltinFunc(source),
		".":        BuiltinFunc(source),
		"break":    BuiltinFunc(breakCmd),
		"continue": BuiltinFunc(breakCmd),
		"return":   BuiltinFunc(returnCmd),
		"history":  BuiltinFunc(history),

		"jobs":   BuiltinFunc(jobs),
		"fg":     BuiltinFunc(fg),
		"bg":     BuiltinFunc(bg),
		"wait":   BuiltinFunc(wait),
		"disown": BuiltinFunc(disown),
		"notify": BuiltinFunc(notify),
		"kill":   BuiltinFunc(kill),
	}
}

// BuiltinNames returns the names of the builtin commands, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func trueCmd(*Frame, []string) int  { return 0 }
func falseCmd(*Frame, []string) int { return 1 }

// Prints the arguments separated by spaces. A first argument of "-n"
// suppresses the newline.
func echo(fm *Frame, args []string) int {
	args = args[1:]
	newline := true
	if len(args) > 0 && args[0] == "-n" {
		newline = false
		args = args[1:]
	}
	s := strings.Join(args, " ")
	if newline {
		s += "\n"
	}
	fm.printf("%s", s)
	return 0
}

func pwd(fm *Frame, args []string) int {
	wd, err := os.Getwd()
	if err != nil {
		fm.errorf("pwd", "%v", err)
		return 1
	}
	fm.printf("%s\n", wd)
	return 0
}

func cd(fm *Frame, args []string) int {
	ev := fm.ev
	var dir string
	printDir := false
	switch len(args) {
	case 1:
		home, err := fsutil.GetHome("")
		if err != nil {
			fm.errorf("cd", "%v", err)
			return 1
		}
		dir = home
	case 2:
		dir = args[1]
		if dir == "-" {
			old, ok := ev.Get(env.OLDPWD)
			if !ok {
				fm.errorf("cd", "OLDPWD not set")
				return 1
			}
			dir, printDir = old, true
		}
	default:
		fm.errorf("cd", "too many arguments")
		return 1
	}
	oldwd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		fm.errorf("cd", "%v", err)
		return 1
	}
	newwd, err := os.Getwd()
	if err != nil {
		newwd = dir
	}
	ev.Set(env.OLDPWD, oldwd)
	ev.Set(env.PWD, newwd)
	if printDir {
		fm.printf("%s\n", newwd)
	}
	return 0
}

func exit(fm *Frame, args []string) int {
	ev := fm.ev
	status := ev.status
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			fm.errorf("exit", "%s: numeric argument required", args[1])
			n = 2
		}
		status = n & 0xff
	}
	ev.flow = flowExit
	ev.exitStatus = status
	return status
}

func export(fm *Frame, args []string) int {
	opts, names, err := getopt.Parse(args[1:], []*getopt.OptionSpec{{Short: 'p'}})
	if err != nil {
		fm.errorf("export", "%v", err)
		return 2
	}
	if len(names) == 0 || getopt.Has(opts, 'p') {
		envs := os.Environ()
		sort.Strings(envs)
		for _, e := range envs {
			if i := strings.IndexByte(e, '='); i > 0 && parse.IsName(e[:i]) {
				fm.printf("export %s=%s\n", e[:i], parse.Quote(e[i+1:]))
			}
		}
		return 0
	}
	status := 0
	for _, arg := range names {
		name := arg
		if i := strings.IndexByte(arg, '='); i >= 0 {
			name = arg[:i]
			if err := fm.ev.Set(name, arg[i+1:]); err != nil {
				fm.errorf("export", "%v", err)
				status = 1
				continue
			}
		}
		if err := fm.ev.Export(name); err != nil {
			fm.errorf("export", "%v", err)
			status = 1
		}
	}
	return status
}

func unset(fm *Frame, args []string) int {
	opts, names, err := getopt.Parse(args[1:], []*getopt.OptionSpec{{Short: 'f'}, {Short: 'v'}})
	if err != nil {
		fm.errorf("unset", "%v", err)
		return 2
	}
	status := 0
	for _, name := range names {
		if getopt.Has(opts, 'f') {
			delete(fm.ev.funcs, name)
			continue
		}
		if err := fm.ev.Unset(name); err != nil {
			fm.errorf("unset", "%v", err)
			status = 1
		}
	}
	return status
}

// Options that "set" can change, by flag letter.
var setOptions = map[byte]func(o *Options) *bool{
	'e': func(o *Options) *bool { return &o.Errexit },
	'f': func(o *Options) *bool { return &o.NoGlob },
	'x': func(o *Options) *bool { return &o.Xtrace },
}

func set(fm *Frame, args []string) int {
	ev := fm.ev
	if len(args) == 1 {
		var sb strings.Builder
		ev.listVars(&sb)
		fm.printf("%s", sb.String())
		return 0
	}
	i := 1
	for ; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			ev.args = append([]string(nil), args[i+1:]...)
			return 0
		}
		if len(arg) < 2 || (arg[0] != '-' && arg[0] != '+') {
			break
		}
		on := arg[0] == '-'
		for j := 1; j < len(arg); j++ {
			c := arg[j]
			switch {
			case setOptions[c] != nil:
				*setOptions[c](&ev.Options) = on
			case c == 'b':
				ev.Jobs.SetAsyncNotify(on)
			case c == 'm':
				if on != ev.Jobs.JobControl() {
					fm.errorf("set", "-m cannot be changed after startup")
				}
			default:
				fm.errorf("set", "%c%c: invalid option", arg[0], c)
				return 2
			}
		}
	}
	if i < len(args) {
		ev.args = append([]string(nil), args[i:]...)
	}
	return 0
}

func source(fm *Frame, args []string) int {
	ev := fm.ev
	if len(args) < 2 {
		fm.errorf(args[0], "filename argument required")
		return 2
	}
	path := findSourceFile(args[1])
	code, err := os.ReadFile(path)
	if err != nil {
		fm.errorf(args[0], "%v", err)
		return 1
	}
	n, err := ev.Parse(parse.Source{Name: path, Code: string(code), IsFile: true})
	if err != nil {
		fm.errorf(args[0], "%v", err)
		return 2
	}
	if len(args) > 2 {
		saved := ev.args
		ev.args = append([]string(nil), args[2:]...)
		defer func() { ev.args = saved }()
	}
	// A sourced file may use return like a function.
	ev.funcDepth++
	defer func() { ev.funcDepth-- }()
	status := fm.exec(n)
	if ev.flow == flowReturn {
		ev.flow = flowNone
		status = ev.exitStatus
	}
	return status
}

// Names without a slash are looked up in $PATH first, like POSIX ".".
func findSourceFile(name string) string {
	if fsutil.DontSearch(name) {
		return name
	}
	for _, dir := range filepath.SplitList(os.Getenv(env.PATH)) {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, name)
		if stat, err := os.Stat(path); err == nil && stat.Mode().IsRegular() {
			return path
		}
	}
	return name
}

func breakCmd(fm *Frame, args []string) int {
	ev := fm.ev
	n := 1
	if len(args) > 1 {
		var err error
		n, err = strconv.Atoi(args[1])
		if err != nil || n < 1 {
			fm.errorf(args[0], "%s: loop count out of range", args[1])
			return 1
		}
	}
	if ev.loopDepth == 0 {
		fm.errorf(args[0], "only meaningful in a loop")
		return 0
	}
	if args[0] == "break" {
		ev.flow = flowBreak
	} else {
		ev.flow = flowContinue
	}
	ev.flowLevels = min(n, ev.loopDepth)
	return 0
}

func returnCmd(fm *Frame, args []string) int {
	ev := fm.ev
	if ev.funcDepth == 0 {
		fm.errorf("return", "can only return from a function or sourced script")
		return 1
	}
	status := ev.status
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			fm.errorf("return", "%s: numeric argument required", args[1])
			n = 2
		}
		status = n & 0xff
	}
	ev.flow = flowReturn
	ev.exitStatus = status
	return status
}

// history [-d seq] [n]
func history(fm *Frame, args []string) int {
	store := fm.ev.History
	if store == nil {
		fm.errorf("history", "no history store")
		return 1
	}
	opts, args, err := getopt.Parse(args[1:], []*getopt.OptionSpec{
		{Short: 'd', Arity: getopt.RequiredArgument}})
	if err != nil {
		fm.errorf("history", "%v", err)
		return 2
	}
	if d := getopt.Get(opts, 'd'); d != nil {
		seq, err := strconv.Atoi(d.Argument)
		if err != nil {
			fm.errorf("history", "%s: numeric argument required", d.Argument)
			return 2
		}
		if err := store.DelCmd(seq); err != nil {
			fm.errorf("history", "%d: %v", seq, err)
			return 1
		}
		return 0
	}
	next, err := store.NextCmdSeq()
	if err != nil {
		fm.errorf("history", "%v", err)
		return 1
	}
	from := 1
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			fm.errorf("history", "%s: numeric argument required", args[0])
			return 2
		}
		from = max(1, next-n)
	}
	cmds, err := store.CmdsWithSeq(from, next)
	if err != nil {
		fm.errorf("history", "%v", err)
		return 1
	}
	for _, cmd := range cmds {
		fm.printf("%5d  %s\n", cmd.Seq, cmd.Text)
	}
	return 0
}
