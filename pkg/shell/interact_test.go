package shell

import (
	"os"
	"path/filepath"
	"testing"

	"src.lsh.sh/pkg/testutil"
)

func TestInteract_ReadsStdin(t *testing.T) {
	setup(t)
	Test(t, Program{},
		ThatLsh().WithStdin("echo hello\n").WritesStdout("hello\n"),
		ThatLsh().
			WithStdin("for i in a b\ndo echo $i\ndone\n").
			WritesStdout("a\nb\n"),
		ThatLsh().WithStdin("echo no newline").WritesStdout("no newline\n"),
		ThatLsh().WithStdin("exit 4\necho no\n").ExitsWith(4),
		ThatLsh().WithStdin("false\n").ExitsWith(1),
		ThatLsh().
			WithStdin("echo a\nif\n").
			ExitsWith(2).
			WritesStdout("a\n").
			WritesStderrContaining("Parse error"),
	)
}

func TestInteract_ForcedInteractive(t *testing.T) {
	dir := setup(t)
	Test(t, Program{},
		ThatLsh("-i").
			WithStdin("echo hello\n").
			WritesStdout("hello\n").
			WritesStderr("lsh: no job control in this shell: stdin is not a terminal\n$ $ "),
		ThatLsh("-i").
			WithStdin("PS1='% '\nif true\nthen echo yes\nfi\n").
			WritesStdout("yes\n").
			WritesStderrContaining("$ % > > % "),
	)
	if _, err := os.Stat(filepath.Join(dir, "data", "lsh", "db")); err != nil {
		t.Errorf("history database not created: %v", err)
	}
}

func TestInteract_History(t *testing.T) {
	setup(t)
	Test(t, Program{},
		ThatLsh("-i", "-db", "hist.db").
			WithStdin("echo a\n\nhistory\n").
			WritesStdout("a\n    1  echo a\n    2  history\n").
			WritesStderrContaining("$ "),
	)
	// History persists across sessions.
	Test(t, Program{},
		ThatLsh("-i", "-db", "hist.db").
			WithStdin("history 1\n").
			WritesStdout("    3  history 1\n").
			WritesStderrContaining("$ "),
	)
}

func TestInteract_ConfigAndRC(t *testing.T) {
	dir := setup(t)
	testutil.Must(os.MkdirAll(filepath.Join(dir, "config", "lsh"), 0o755))
	testutil.MustWriteFile(filepath.Join(dir, "config", "lsh", "config.yaml"),
		"prompt: '>> '\nmonitor: false\n")
	testutil.MustWriteFile(filepath.Join(dir, "config", "lsh", "rc.sh"),
		"greet() { echo hello from rc; }")

	Test(t, Program{},
		ThatLsh("-i").
			WithStdin("greet\n").
			WritesStdout("hello from rc\n").
			WritesStderr(">> >> "),
	)
}
