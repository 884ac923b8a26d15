package eval

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"src.lsh.sh/pkg/env"
	"src.lsh.sh/pkg/store"
	"src.lsh.sh/pkg/testutil"
)

func TestBuiltins(t *testing.T) {
	testEval(t, []evalCase{
		{code: ":; true; echo $?", out: "0\n"},
		{code: "false || echo $?", out: "1\n"},
		{code: "exit", status: 0},
		{code: "false; exit", status: 1},
		{code: "exit 258", status: 2},
		{code: "exit x", err: "exit: x: numeric argument required\n", status: 2},
		{code: "set -- a b c; echo $#; set --; echo $#", out: "3\n0\n"},
		{code: "set a b; echo $2", out: "b\n"},
		{code: "set -z", err: "set: -z: invalid option\n", status: 2},
		{code: "set -x; set +x; echo a", out: "a\n", err: "+ set +x\n"},
		{code: "set -b; echo $-; set +b; echo $-", out: "b\n\n"},
		{code: "x=1; unset x; echo ${x-unset}", out: "unset\n"},
		{code: "unset -q", err: "unset: -q: invalid option\n", status: 2},
		{code: "export 1x", err: "export: 1x: not a valid identifier\n", status: 1},
		{code: "history", err: "history: no history store\n", status: 1},
		{code: "kill -l 130 9 HUP", out: "INT\nKILL\n1\n"},
		{code: "kill -l 300", err: "kill: 300: invalid signal specification\n", status: 1},
		{code: "kill -BOGUS 1", err: "kill: invalid signal name: BOGUS\n", status: 1},
		{code: "kill %3", err: "kill: %3: no such job\n", status: 1},
		{code: "fg", err: "fg: no job control\n", status: 2},
		{code: "bg %1", err: "bg: no job control\n", status: 2},
		{code: "notify", err: "notify: no job control\n", status: 2},
		{code: "wait %5", err: "wait: %5: no such job\n", status: 127},
		{code: "wait x", err: "wait: x: not a pid or valid job spec\n", status: 127},
		{code: "wait 1", err: "wait: pid 1: not a child of this shell\n", status: 127},
		{code: "disown", err: "disown: %%: no such job\n", status: 1},
		{code: "jobs", out: ""},
	})
}

func TestExport(t *testing.T) {
	testutil.Unsetenv(t, "LSH_TEST_EXPORT")
	testutil.Unsetenv(t, "LSH_TEST_LOCAL")
	ev := setup(t)
	evalCode(t, ev, "LSH_TEST_LOCAL=local; export LSH_TEST_EXPORT=exported")
	if got := os.Getenv("LSH_TEST_EXPORT"); got != "exported" {
		t.Errorf("exported variable is %q in the environment", got)
	}
	if _, ok := os.LookupEnv("LSH_TEST_LOCAL"); ok {
		t.Errorf("unexported variable is in the environment")
	}
	// Child shells see both.
	out, _, _ := evalCode(t, ev, "(echo $LSH_TEST_LOCAL $LSH_TEST_EXPORT)")
	if out != "local exported\n" {
		t.Errorf("child shell printed %q", out)
	}
	evalCode(t, ev, "LSH_TEST_EXPORT=changed")
	if got := os.Getenv("LSH_TEST_EXPORT"); got != "changed" {
		t.Errorf("assigning to an exported variable left %q in the environment", got)
	}
	evalCode(t, ev, "unset LSH_TEST_EXPORT")
	if _, ok := os.LookupEnv("LSH_TEST_EXPORT"); ok {
		t.Errorf("unset left the variable in the environment")
	}
}

func TestCd(t *testing.T) {
	dir := testutil.InTempDir(t)
	testutil.Must(os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	// Resolve symlinks in the temporary directory, as os.Getwd does.
	dir, _ = filepath.EvalSymlinks(dir)
	testutil.Setenv(t, env.HOME, dir)
	testutil.Setenv(t, env.PWD, os.Getenv(env.PWD))
	testutil.Setenv(t, env.OLDPWD, os.Getenv(env.OLDPWD))
	ev := setup(t)

	out, errOut, status := evalCode(t, ev, "cd sub; pwd; cd -; cd; echo $PWD")
	want := filepath.Join(dir, "sub") + "\n" + dir + "\n" + dir + "\n"
	if out != want || errOut != "" || status != 0 {
		t.Errorf("got %q, %q, %d; want %q", out, errOut, status, want)
	}
	_, errOut, status = evalCode(t, ev, "cd nonexistent")
	if status != 1 || errOut == "" {
		t.Errorf("cd to a missing directory: %q, %d", errOut, status)
	}
}

func TestHistory(t *testing.T) {
	ev := setup(t)
	st := store.MustTempStore(t)
	for _, cmd := range []string{"echo a", "echo b", "echo c"} {
		st.AddCmd(cmd)
	}
	testutil.Set(t, &ev.History, HistoryStore(st))

	out, _, status := evalCode(t, ev, "history 2")
	if want := "    2  echo b\n    3  echo c\n"; out != want || status != 0 {
		t.Errorf("got %q, %d; want %q", out, status, want)
	}
	out, _, _ = evalCode(t, ev, "history -d 2; history")
	if want := "    1  echo a\n    3  echo c\n"; out != want {
		t.Errorf("after deletion got %q, want %q", out, want)
	}
	_, errOut, status := evalCode(t, ev, "history -d 2")
	if want := "history: 2: no matching command line\n"; errOut != want || status != 1 {
		t.Errorf("deleting a missing entry got %q, %d", errOut, status)
	}
}

func TestJobBuiltins(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not found")
	}
	testEval(t, []evalCase{
		{code: "sleep 10 & jobs; kill %1; wait %1; echo $?",
			out: "[1]+  Running                 sleep 10\n143\n"},
		{code: "sleep 10 & p=$!; disown; jobs; kill $p; echo $?", out: "0\n"},
		{code: "sleep 10 & sleep 10 & wait -f; jobs; echo $?", out: "0\n"},
		{code: "sleep 10 & wait -n -f %1; echo $?", out: "137\n"},
	})
}

func TestJobs_Pgid(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not found")
	}
	ev := setup(t)
	evalCode(t, ev, "sleep 10 &")
	pid := itoa(ev.Jobs.LastBackground())
	out, _, _ := evalCode(t, ev, "jobs -p; jobs -l")
	want := pid + "\n[1]+ " + pid + " Running                 sleep 10\n"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
	out, _, _ = evalCode(t, ev, "kill "+pid+"; wait "+pid+"; echo $?")
	if out != "143\n" {
		t.Errorf("got %q after kill", out)
	}
}
