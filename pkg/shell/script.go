package shell

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"src.lsh.sh/pkg/diag"
	"src.lsh.sh/pkg/eval"
	"src.lsh.sh/pkg/parse"
)

// Reads the code to run in script mode, and returns the source and the
// positional parameters. With -c, args are the code, $0 and the remaining
// parameters; otherwise they are the script path and the parameters.
func scriptSource(args []string, cmd bool) (src parse.Source, arg0 string, rest []string, err error) {
	if cmd {
		arg0 = "lsh"
		if len(args) > 1 {
			arg0, rest = args[1], args[2:]
		}
		return parse.Source{Name: "code from -c", Code: args[0]}, arg0, rest, nil
	}
	code, err := readFileUTF8(args[0])
	if err != nil {
		return parse.Source{}, "", nil, fmt.Errorf("cannot read script %q: %w", args[0], err)
	}
	return parse.Source{Name: args[0], Code: code, IsFile: true}, args[0], args[1:], nil
}

// Executes a shell script or code given with -c, and returns the exit
// status.
func script(ev *eval.Evaler, in *interrupter, fds [3]*os.File, args []string, cmd bool) int {
	src, arg0, rest, err := scriptSource(args, cmd)
	if err != nil {
		fmt.Fprintln(fds[2], err)
		return 2
	}
	ev.SetArgs(arg0, rest)
	n, err := ev.Parse(src)
	if err != nil {
		diag.ShowError(fds[2], err)
		return 2
	}
	ctx, done := in.context()
	defer done()
	status := ev.NewFrame(ctx, fds[0], fds[1], fds[2]).Exec(n)
	if exited, st := ev.Exited(); exited {
		status = st
	}
	return status
}

// Parses the script without running it. With asJSON, the error or the tree is
// printed to stdout as JSON.
func compileOnly(fds [3]*os.File, args []string, cmd, asJSON, posix bool) int {
	src, _, _, err := scriptSource(args, cmd)
	if err != nil {
		fmt.Fprintln(fds[2], err)
		return 2
	}
	n, err := parse.Parse(src, parse.Config{POSIX: posix})
	if asJSON {
		if err != nil {
			fmt.Fprintf(fds[1], "%s\n", errorToJSON(err))
			return 2
		}
		fmt.Fprintf(fds[1], "%s\n", treeToJSON(n))
		return 0
	}
	if err != nil {
		diag.ShowError(fds[2], err)
		return 2
	}
	return 0
}

var errSourceNotUTF8 = errors.New("source is not UTF-8")

func readFileUTF8(fname string) (string, error) {
	bytes, err := os.ReadFile(fname)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(bytes) {
		return "", errSourceNotUTF8
	}
	return string(bytes), nil
}

// An auxiliary struct for converting errors with diagnostics information to JSON.
type errorInJSON struct {
	FileName string `json:"fileName"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Message  string `json:"message"`
}

// An auxiliary struct for converting errors with only a message to JSON.
type simpleErrorInJSON struct {
	Message string `json:"message"`
}

// Converts the error into JSON.
func errorToJSON(err error) []byte {
	var e any
	var parseErr *parse.Error
	if errors.As(err, &parseErr) {
		c := parseErr.Context
		e = []errorInJSON{{c.Name, c.From, c.To, parseErr.Message}}
	} else {
		e = []simpleErrorInJSON{{err.Error()}}
	}
	jsonError, errMarshal := json.Marshal(e)
	if errMarshal != nil {
		return []byte(`[{"message":"Unable to convert the errors to JSON"}]`)
	}
	return jsonError
}

func treeToJSON(n *parse.Node) []byte {
	data, err := json.Marshal(n)
	if err != nil {
		return errorToJSON(err)
	}
	return data
}
