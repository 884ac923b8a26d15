// Package getopt parses the options of builtin commands.
//
// Options are single characters after a dash and may be chained, as in
// "-rs". Parsing stops at "--", which is consumed, at "-" and at the first
// argument that is not an option, following POSIX utility conventions.
package getopt

import (
	"fmt"
	"strings"
)

// OptionSpec is a command-line option.
type OptionSpec struct {
	Short rune
	// Whether the option takes an argument.
	Arity Arity
}

// Arity indicates whether an option takes an argument.
type Arity uint

const (
	// The option takes no argument.
	NoArgument Arity = iota
	// The option requires an argument, which can come either directly after
	// the option (-oarg) or as a separate argument (-o arg).
	RequiredArgument
)

// Option represents a parsed option.
type Option struct {
	Spec     *OptionSpec
	Argument string
}

// Parse parses an argument list. It returns the parsed options and the
// non-option arguments. The error describes the first unknown option or
// missing argument.
func Parse(args []string, specs []*OptionSpec) ([]*Option, []string, error) {
	var opts []*Option
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			return opts, args[i+1:], nil
		case !strings.HasPrefix(arg, "-") || arg == "-":
			return opts, args[i:], nil
		}
		newopts, needArg, err := parseShort(arg[1:], specs)
		if err != nil {
			return nil, nil, err
		}
		if needArg {
			if i+1 == len(args) {
				return nil, nil, fmt.Errorf("-%c: option requires an argument", newopts[len(newopts)-1].Spec.Short)
			}
			i++
			newopts[len(newopts)-1].Argument = args[i]
		}
		opts = append(opts, newopts...)
	}
	return opts, nil, nil
}

// Parses chained short options, without the leading dash. Returns the parsed
// options and whether the last one still needs its argument.
func parseShort(s string, specs []*OptionSpec) ([]*Option, bool, error) {
	var opts []*Option
	for i, r := range s {
		spec := findShort(r, specs)
		if spec == nil {
			return nil, false, fmt.Errorf("-%c: invalid option", r)
		}
		if spec.Arity == NoArgument {
			opts = append(opts, &Option{Spec: spec})
			continue
		}
		parsed := &Option{Spec: spec, Argument: s[i+len(string(r)):]}
		return append(opts, parsed), parsed.Argument == "", nil
	}
	return opts, false, nil
}

func findShort(r rune, specs []*OptionSpec) *OptionSpec {
	for _, opt := range specs {
		if r == opt.Short {
			return opt
		}
	}
	return nil
}

// Has returns whether the short option r appears in opts.
func Has(opts []*Option, r rune) bool {
	return Get(opts, r) != nil
}

// Get returns the last occurrence of the short option r in opts, or nil.
func Get(opts []*Option, r rune) *Option {
	var found *Option
	for _, opt := range opts {
		if opt.Spec.Short == r {
			found = opt
		}
	}
	return found
}
