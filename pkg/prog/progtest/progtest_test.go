package progtest

import (
	"os"
	"testing"

	"src.lsh.sh/pkg/prog"
)

// Verify we don't deadlock if more output is written to stdout than can be
// buffered by a pipe.
func TestOutputCaptureDoesNotDeadlock(t *testing.T) {
	Test(t, noisyProgram{},
		ThatLsh().WritesStdoutContaining("hello"),
	)
}

func TestStdin(t *testing.T) {
	Test(t, catProgram{},
		ThatLsh().WithStdin("some input").WritesStdout("some input"),
	)
}

func TestRun(t *testing.T) {
	exit, stdout, stderr := Run(noisyProgram{exit: 3})
	if exit != 3 || len(stdout) == 0 || stderr != "" {
		t.Errorf("got (%d, %d bytes, %q)", exit, len(stdout), stderr)
	}
}

type noisyProgram struct{ exit int }

func (p noisyProgram) Run(fds [3]*os.File, _ *prog.Flags, args []string) error {
	// We need enough data to verify whether we're likely to deadlock due to
	// filling the pipe before the test completes. Pipes typically buffer 8 to
	// 128 KiB.
	bytes := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	for i := 0; i < 128*1024/len(bytes); i++ {
		fds[1].Write(bytes)
	}
	fds[1].WriteString("hello")
	return prog.Exit(p.exit)
}

type catProgram struct{}

func (catProgram) Run(fds [3]*os.File, _ *prog.Flags, _ []string) error {
	buf := make([]byte, 64)
	for {
		n, err := fds[0].Read(buf)
		fds[1].Write(buf[:n])
		if err != nil {
			return nil
		}
	}
}
