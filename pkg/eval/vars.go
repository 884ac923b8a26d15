package eval

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"src.lsh.sh/pkg/env"
	"src.lsh.sh/pkg/parse"
)

// ErrBadName is wrapped in errors about invalid variable names.
var ErrBadName = errors.New("not a valid identifier")

// Get returns the value of a shell variable and whether it is set.
// Exported variables are read from the process environment.
func (ev *Evaler) Get(name string) (string, bool) {
	if v, ok := ev.vars[name]; ok {
		return v, true
	}
	return os.LookupEnv(name)
}

// Set sets a shell variable. A variable that is already exported stays
// exported.
func (ev *Evaler) Set(name, value string) error {
	if !parse.IsName(name) {
		return fmt.Errorf("%s: %w", name, ErrBadName)
	}
	if _, ok := ev.vars[name]; !ok {
		if _, exported := os.LookupEnv(name); exported {
			return os.Setenv(name, value)
		}
	}
	ev.vars[name] = value
	return nil
}

// Export marks a variable as exported, moving it into the process
// environment. Exporting an unset variable sets it to the empty string.
func (ev *Evaler) Export(name string) error {
	if !parse.IsName(name) {
		return fmt.Errorf("%s: %w", name, ErrBadName)
	}
	v, ok := ev.vars[name]
	if !ok {
		if _, exported := os.LookupEnv(name); exported {
			return nil
		}
	}
	delete(ev.vars, name)
	return os.Setenv(name, v)
}

// Unset removes a variable.
func (ev *Evaler) Unset(name string) error {
	if !parse.IsName(name) {
		return fmt.Errorf("%s: %w", name, ErrBadName)
	}
	delete(ev.vars, name)
	return os.Unsetenv(name)
}

// Returns $IFS, or the default when it is unset.
func (ev *Evaler) ifs() string {
	if v, ok := ev.Get(env.IFS); ok {
		return v
	}
	return " \t\n"
}

// Returns the environment for an external command, with the given
// assignments added.
func (ev *Evaler) environ(assigns []string) []string {
	envs := os.Environ()
	if len(assigns) == 0 {
		return envs
	}
	override := make(map[string]bool)
	for _, a := range assigns {
		override[a[:strings.IndexByte(a, '=')]] = true
	}
	var result []string
	for _, e := range envs {
		if i := strings.IndexByte(e, '='); i < 0 || !override[e[:i]] {
			result = append(result, e)
		}
	}
	return append(result, assigns...)
}

// Returns the non-exported variables, sorted by name.
func (ev *Evaler) localVars() []string {
	names := make([]string, 0, len(ev.vars))
	for name := range ev.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Writes the "set" listing of all variables.
func (ev *Evaler) listVars(sb *strings.Builder) {
	all := make(map[string]string)
	for _, e := range os.Environ() {
		if i := strings.IndexByte(e, '='); i > 0 {
			all[e[:i]] = e[i+1:]
		}
	}
	for name, v := range ev.vars {
		all[name] = v
	}
	names := make([]string, 0, len(all))
	for name := range all {
		if parse.IsName(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(sb, "%s=%s\n", name, parse.Quote(all[name]))
	}
}

// Returns the value of a parameter, which is either a variable or one of
// the special parameters.
func (fm *Frame) param(name string) (string, bool) {
	ev := fm.ev
	switch name {
	case "?":
		return itoa(ev.status), true
	case "$":
		return itoa(os.Getpid()), true
	case "!":
		if pid := ev.Jobs.LastBackground(); pid > 0 {
			return itoa(pid), true
		}
		return "", false
	case "#":
		return itoa(len(ev.args)), true
	case "0":
		return ev.arg0, true
	case "-":
		return ev.optionFlags(), true
	case "@", "*":
		return strings.Join(ev.args, " "), len(ev.args) > 0
	}
	if name[0] >= '1' && name[0] <= '9' {
		n := 0
		for _, c := range name {
			if c < '0' || c > '9' {
				return "", false
			}
			n = n*10 + int(c-'0')
		}
		if n <= len(ev.args) {
			return ev.args[n-1], true
		}
		return "", false
	}
	return ev.Get(name)
}
