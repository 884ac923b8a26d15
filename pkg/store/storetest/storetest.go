// Package storetest keeps test suites against storedefs.Store.
package storetest

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"src.lsh.sh/pkg/store/storedefs"
)

var cmds = []string{"echo foo", "echo bar", "cd /tmp", "echo foo"}

// TestCmd tests the command history functionality of a store.
func TestCmd(t *testing.T, st storedefs.Store) {
	startSeq, err := st.NextCmdSeq()
	if startSeq != 1 || err != nil {
		t.Errorf("st.NextCmdSeq() -> (%v, %v), want (1, nil)", startSeq, err)
	}

	for i, cmd := range cmds {
		wantSeq := startSeq + i
		seq, err := st.AddCmd(cmd)
		if seq != wantSeq || err != nil {
			t.Errorf("st.AddCmd(%q) -> (%v, %v), want (%v, nil)", cmd, seq, err, wantSeq)
		}
	}

	endSeq, err := st.NextCmdSeq()
	wantEndSeq := startSeq + len(cmds)
	if endSeq != wantEndSeq || err != nil {
		t.Errorf("st.NextCmdSeq() -> (%v, %v), want (%v, nil)", endSeq, err, wantEndSeq)
	}

	for i, want := range cmds {
		seq := i + startSeq
		cmd, err := st.Cmd(seq)
		if cmd != want || err != nil {
			t.Errorf("st.Cmd(%v) -> (%q, %v), want (%q, nil)", seq, cmd, err, want)
		}
	}
	if _, err := st.Cmd(endSeq); !errors.Is(err, storedefs.ErrNoMatchingCmd) {
		t.Errorf("st.Cmd(%v) -> error %v, want ErrNoMatchingCmd", endSeq, err)
	}

	got, err := st.CmdsWithSeq(startSeq+1, endSeq)
	want := []storedefs.Cmd{{Text: "echo bar", Seq: 2}, {Text: "cd /tmp", Seq: 3}, {Text: "echo foo", Seq: 4}}
	if diff := cmp.Diff(want, got); diff != "" || err != nil {
		t.Errorf("st.CmdsWithSeq (-want +got):\n%s\nerror: %v", diff, err)
	}

	if err := st.DelCmd(startSeq + 1); err != nil {
		t.Errorf("st.DelCmd -> %v", err)
	}
	if err := st.DelCmd(startSeq + 1); !errors.Is(err, storedefs.ErrNoMatchingCmd) {
		t.Errorf("deleting twice -> %v, want ErrNoMatchingCmd", err)
	}
	got, _ = st.CmdsWithSeq(startSeq, endSeq)
	want = []storedefs.Cmd{{Text: "echo foo", Seq: 1}, {Text: "cd /tmp", Seq: 3}, {Text: "echo foo", Seq: 4}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("st.CmdsWithSeq after deletion (-want +got):\n%s", diff)
	}
	// Sequence numbers are not reused.
	if seq, _ := st.AddCmd("new"); seq != endSeq {
		t.Errorf("st.AddCmd after deletion -> %v, want %v", seq, endSeq)
	}
}
