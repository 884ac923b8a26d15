package shell

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"src.lsh.sh/pkg/diag"
	"src.lsh.sh/pkg/env"
	"src.lsh.sh/pkg/eval"
	"src.lsh.sh/pkg/parse"
	"src.lsh.sh/pkg/store"
	"src.lsh.sh/pkg/sys"
)

// InteractiveRescueShell determines whether a panic results in a rescue shell
// being launched. It should be set to false by interactive mode unit tests.
var interactiveRescueShell = true

// Configuration for the interactive mode.
type interactCfg struct {
	Paths Paths
	// Primary prompt when PS1 is not set.
	Prompt string
}

const (
	defaultPS1 = "$ "
	defaultPS2 = "> "
)

// Interactive mode panic handler.
func handlePanic() {
	r := recover()
	if r != nil {
		println()
		print(sys.DumpStack())
		println()
		fmt.Println(r)
		println("\nExecing recovery shell /bin/sh")
		syscall.Exec("/bin/sh", []string{"/bin/sh"}, os.Environ())
	}
}

// Reads and runs commands from stdin until EOF or exit, and returns the exit
// status. Prompts, job notifications, the rc file and the history are only
// used when the shell is interactive.
func interact(ev *eval.Evaler, in *interrupter, fds [3]*os.File, cfg *interactCfg) int {
	interactive := ev.Options.Interactive
	var history store.DBStore
	if interactive {
		if interactiveRescueShell {
			defer handlePanic()
		}
		ev.Jobs.SaveShellAttr()
		if cfg.Paths.DB != "" {
			st, err := openHistory(cfg.Paths.DB)
			if err != nil {
				fmt.Fprintln(fds[2], "lsh: cannot open history:", err)
			} else {
				defer st.Close()
				history = st
				ev.History = st
			}
		}
		if cfg.Paths.RC != "" {
			if err := sourceRC(ev, in, fds, cfg.Paths.RC); err != nil {
				diag.ShowError(fds[2], err)
			}
		}
		defer ev.Jobs.HangupAll()
	}

	ps1 := cfg.Prompt
	if ps1 == "" {
		ps1 = defaultPS1
	}
	prompt := func(name, def string) {
		if !interactive {
			return
		}
		p, ok := ev.Get(name)
		if !ok {
			p = def
		}
		fds[2].WriteString(p)
	}

	r := &lineReader{f: fds[0]}
	for cmdNum := 1; ; cmdNum++ {
		if exited, status := ev.Exited(); exited {
			return status
		}
		if interactive {
			ev.Jobs.Reap()
			for _, line := range ev.Jobs.Notifications() {
				fds[2].WriteString(line)
			}
		}
		in.setIdle(func() {
			fds[2].WriteString("\n")
			prompt(env.PS1, ps1)
		})
		prompt(env.PS1, ps1)

		src := parse.Source{Name: fmt.Sprintf("[tty %v]", cmdNum)}
		n, err := readCommand(ev, r, &src, func() { prompt(env.PS2, defaultPS2) })
		in.setIdle(nil)
		var parseErr *parse.Error
		switch {
		case errors.As(err, &parseErr):
			diag.ShowError(fds[2], err)
			if !interactive {
				return 2
			}
			continue
		case err == io.EOF:
			return finalStatus(ev)
		case err != nil:
			fmt.Fprintln(fds[2], "lsh: cannot read input:", err)
			return finalStatus(ev)
		}
		if history != nil && strings.TrimSpace(src.Code) != "" {
			if _, err := history.AddCmd(strings.TrimRight(src.Code, "\n")); err != nil {
				logger.Println("failed to add command to history:", err)
			}
		}
		ctx, done := in.context()
		ev.NewFrame(ctx, fds[0], fds[1], fds[2]).Exec(n)
		done()
	}
}

func finalStatus(ev *eval.Evaler) int {
	if exited, status := ev.Exited(); exited {
		return status
	}
	return ev.Status()
}

// Reads lines until they form a complete command, and parses it. Code that
// ends in the middle of a construct asks for another line with
// continuePrompt. The code read is stored in src.Code.
func readCommand(ev *eval.Evaler, r *lineReader, src *parse.Source, continuePrompt func()) (*parse.Node, error) {
	for {
		line, err := r.readLine()
		if err != nil && line == "" {
			if src.Code == "" {
				return nil, err
			}
			// Parse what there is to report the incomplete construct.
			_, perr := ev.Parse(*src)
			if perr != nil {
				return nil, perr
			}
			return nil, err
		}
		src.Code += line
		n, perr := ev.Parse(*src)
		var parseErr *parse.Error
		if perr != nil && errors.As(perr, &parseErr) && parseErr.Partial() && err == nil {
			continuePrompt()
			continue
		}
		return n, perr
	}
}

// Reads lines one byte at a time, so that commands started by the shell see
// the input after the current line.
type lineReader struct {
	f *os.File
}

// Returns the next line including the newline. At the end of input, the
// error is io.EOF and the line is what remains, which may be empty.
func (r *lineReader) readLine() (string, error) {
	var sb strings.Builder
	var buf [1]byte
	for {
		n, err := r.f.Read(buf[:])
		if n == 1 {
			sb.WriteByte(buf[0])
			if buf[0] == '\n' {
				return sb.String(), nil
			}
			continue
		}
		if errors.Is(err, syscall.EINTR) {
			continue
		}
		if err == nil {
			err = io.EOF
		}
		return sb.String(), err
	}
}

func openHistory(path string) (store.DBStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	return store.NewStore(path)
}

func sourceRC(ev *eval.Evaler, in *interrupter, fds [3]*os.File, rcPath string) error {
	absPath, err := filepath.Abs(rcPath)
	if err != nil {
		return fmt.Errorf("cannot get full path of rc file: %v", err)
	}
	code, err := readFileUTF8(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	n, err := ev.Parse(parse.Source{Name: absPath, Code: code, IsFile: true})
	if err != nil {
		return err
	}
	ctx, done := in.context()
	defer done()
	ev.NewFrame(ctx, fds[0], fds[1], fds[2]).Exec(n)
	return nil
}
