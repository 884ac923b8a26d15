package job

import (
	"errors"
	"testing"

	"src.lsh.sh/pkg/tt"
)

func mustAdd(t *testing.T, tab *Table, pgid int, cmd string) *Job {
	t.Helper()
	j, err := tab.Add(pgid, []int{pgid, pgid + 1}, cmd)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	return j
}

func TestTable_AddThenLookupCurrent(t *testing.T) {
	tab := NewTable(4)
	j := mustAdd(t, tab, 100, "sleep 10")
	got, err := tab.Lookup("%%")
	if got != j || err != nil {
		t.Errorf("Lookup(%%%%) = %v, %v; want the added job", got, err)
	}
	tab.Remove(j)
	_, err = tab.Lookup("%%")
	if !errors.Is(err, ErrUnknownJob) {
		t.Errorf("Lookup(%%%%) after Remove: got %v, want ErrUnknownJob", err)
	}
}

func TestTable_ReusesLowestNumber(t *testing.T) {
	tab := NewTable(4)
	a := mustAdd(t, tab, 100, "a")
	b := mustAdd(t, tab, 200, "b")
	c := mustAdd(t, tab, 300, "c")
	if a.Num != 1 || b.Num != 2 || c.Num != 3 {
		t.Fatalf("numbers %d %d %d, want 1 2 3", a.Num, b.Num, c.Num)
	}
	tab.Remove(b)
	if d := mustAdd(t, tab, 400, "d"); d.Num != 2 {
		t.Errorf("new job got number %d, want 2", d.Num)
	}
}

func TestTable_Full(t *testing.T) {
	tab := NewTable(2)
	mustAdd(t, tab, 100, "a")
	mustAdd(t, tab, 200, "b")
	if _, err := tab.Add(300, []int{300}, "c"); !errors.Is(err, ErrTableFull) {
		t.Errorf("got %v, want ErrTableFull", err)
	}
}

func TestTable_Lookup(t *testing.T) {
	tab := NewTable(8)
	mustAdd(t, tab, 100, "sleep 100")
	mustAdd(t, tab, 200, "vim notes")
	mustAdd(t, tab, 300, "sleep 300")

	lookup := func(spec string) (int, error) {
		j, err := tab.Lookup(spec)
		if err != nil {
			return 0, err
		}
		return j.Num, nil
	}
	tt.Test(t, tt.Fn("Lookup", lookup), tt.Table{
		tt.Args("%%").Rets(3, nil),
		tt.Args("%+").Rets(3, nil),
		tt.Args("%").Rets(3, nil),
		tt.Args("%-").Rets(2, nil),
		tt.Args("%1").Rets(1, nil),
		tt.Args("%vim").Rets(2, nil),
		tt.Args("%?notes").Rets(2, nil),
		tt.Args("%?300").Rets(3, nil),
		tt.Args("201").Rets(2, nil),
		tt.Args("100").Rets(1, nil),
		tt.Args("%sleep").Rets(0, tt.ErrorIs(ErrAmbiguousJob)),
		tt.Args("%?ee").Rets(0, tt.ErrorIs(ErrAmbiguousJob)),
		tt.Args("%9").Rets(0, tt.ErrorIs(ErrUnknownJob)),
		tt.Args("%emacs").Rets(0, tt.ErrorIs(ErrUnknownJob)),
		tt.Args("999").Rets(0, tt.ErrorIs(ErrUnknownJob)),
		tt.Args("abc").Rets(0, tt.ErrorIs(ErrUnknownJob)),
	})
}

func TestTable_RemoveRepairsCurrentAndPrevious(t *testing.T) {
	tab := NewTable(8)
	a := mustAdd(t, tab, 100, "a")
	b := mustAdd(t, tab, 200, "b")
	c := mustAdd(t, tab, 300, "c")

	tab.Remove(c)
	if tab.Current() != b || tab.Previous() != a {
		t.Errorf("after removing current: cur %v, prev %v", tab.Current(), tab.Previous())
	}
	tab.Remove(a)
	if tab.Current() != b || tab.Previous() != nil {
		t.Errorf("after removing previous: cur %v, prev %v", tab.Current(), tab.Previous())
	}
	tab.Remove(b)
	if tab.Current() != nil || tab.Len() != 0 {
		t.Errorf("table not empty")
	}
}

func TestTable_Marker(t *testing.T) {
	tab := NewTable(8)
	a := mustAdd(t, tab, 100, "a")
	b := mustAdd(t, tab, 200, "b")
	c := mustAdd(t, tab, 300, "c")
	got := string([]byte{tab.Marker(a), tab.Marker(b), tab.Marker(c)})
	if got != " -+" {
		t.Errorf("markers %q, want \" -+\"", got)
	}
	tab.SetCurrent(a)
	got = string([]byte{tab.Marker(a), tab.Marker(b), tab.Marker(c)})
	if got != "+ -" {
		t.Errorf("markers after SetCurrent %q, want \"+ -\"", got)
	}
}

func TestJob_State(t *testing.T) {
	j := newJob(100, []int{100, 101}, "a | b")
	if j.State() != Running {
		t.Errorf("new job is %v", j.State())
	}
	j.stops.set(0)
	if j.State() != Running {
		t.Errorf("job with one stopped process is %v", j.State())
	}
	j.stops.set(1)
	if j.State() != Stopped {
		t.Errorf("job with all processes stopped is %v", j.State())
	}
	j.stops.clear(0)
	j.exits.set(0)
	if j.State() != Stopped {
		t.Errorf("job with one exited and one stopped process is %v", j.State())
	}
	j.exits.set(1)
	if j.State() != Done {
		t.Errorf("job with all processes exited is %v", j.State())
	}
}

func TestBitset_ManyProcesses(t *testing.T) {
	b := newBitset(130)
	for i := 0; i < 130; i++ {
		b.set(i)
	}
	if !b.all(130) {
		t.Errorf("all bits set but all() is false")
	}
	b.clear(129)
	if b.all(130) || !b.has(128) {
		t.Errorf("bits beyond the first word are wrong")
	}
}

func TestJob_DescriptionWithoutProcesses(t *testing.T) {
	tab := NewTable(1)
	j, err := tab.Add(100, nil, "true")
	if err != nil {
		t.Fatal(err)
	}
	if got := j.Description(); got != "Done" {
		t.Errorf("Description() = %q, want Done", got)
	}
}
