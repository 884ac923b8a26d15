package shell

import (
	"testing"

	"src.lsh.sh/pkg/testutil"
)

func TestScript(t *testing.T) {
	setup(t)
	testutil.MustWriteFile("hello.sh", "echo hello $1 $#")
	testutil.MustWriteFile("invalid-utf8.sh", "\xff")

	Test(t, Program{},
		ThatLsh("hello.sh", "a", "b").WritesStdout("hello a 2\n"),
		ThatLsh("-c", "echo hello").WritesStdout("hello\n"),
		ThatLsh("-c", "echo $0 $1 $#", "name", "x").WritesStdout("name x 1\n"),
		ThatLsh("-c", "exit 3").ExitsWith(3),
		ThatLsh("-c", "false").ExitsWith(1),
		ThatLsh("-c", "(echo in child)").WritesStdout("in child\n"),
		ThatLsh("-c").
			ExitsWith(2).
			WritesStderrContaining("-c requires an argument"),

		ThatLsh("invalid-utf8.sh").
			ExitsWith(2).
			WritesStderrContaining("cannot read script"),
		ThatLsh("non-existent.sh").
			ExitsWith(2).
			WritesStderrContaining("cannot read script"),

		// parse error
		ThatLsh("-c", "if a; then b").
			ExitsWith(2).
			WritesStderrContaining("Parse error"),
		ThatLsh("-posix", "-c", "for ((;;)); do :; done").
			ExitsWith(2).
			WritesStderrContaining("Parse error"),
		// parse error with -compileonly
		ThatLsh("-compileonly", "-c", "if a; then b").
			ExitsWith(2).
			WritesStderrContaining("Parse error"),
		// parse error with -compileonly -json
		ThatLsh("-compileonly", "-json", "-c", "if a; then b").
			ExitsWith(2).
			WritesStdoutContaining(`[{"fileName":"code from -c","start":12,"end":12,"message":"unexpected end of input`),

		// -compileonly does not run anything
		ThatLsh("-compileonly", "-c", "echo hello; exit 3").DoesNothing(),
		ThatLsh("-compileonly", "-json", "-c", "echo hello").
			WritesStdoutContaining(`"kind":`),
		ThatLsh("-compileonly").
			ExitsWith(2).
			WritesStderrContaining("-compileonly requires a script or -c"),
	)
}
