package diag

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func setCulpritMarkers(t *testing.T, begin, end string) {
	saveBegin, saveEnd := culpritLineBegin, culpritLineEnd
	t.Cleanup(func() { culpritLineBegin, culpritLineEnd = saveBegin, saveEnd })
	culpritLineBegin, culpritLineEnd = begin, end
}

var positionTests = []struct {
	name     string
	src      string
	r        Ranging
	line     int
	col      int
	showWant string
}{
	{
		name:     "first line",
		src:      "echo foo",
		r:        Ranging{5, 8},
		line:     1,
		col:      6,
		showWant: "a.sh, line 1:\necho <foo>",
	},
	{
		name:     "later line",
		src:      "true\nfor 1x in a\ndo :; done",
		r:        Ranging{9, 11},
		line:     2,
		col:      5,
		showWant: "a.sh, line 2:\nfor <1x> in a",
	},
	{
		name:     "multi-line culprit",
		src:      "while\ntrue\ndo",
		r:        Ranging{0, 10},
		line:     1,
		col:      1,
		showWant: "a.sh, line 1-2:\n<while>\n<true>",
	},
	{
		name:     "zero-width at end",
		src:      "for i in",
		r:        Ranging{8, 8},
		line:     1,
		col:      9,
		showWant: "a.sh, line 1:\nfor i in<^>",
	},
}

func TestContext(t *testing.T) {
	setCulpritMarkers(t, "<", ">")
	for _, test := range positionTests {
		t.Run(test.name, func(t *testing.T) {
			c := NewContext("a.sh", test.src, test.r)
			line, col := c.Position()
			if line != test.line || col != test.col {
				t.Errorf("Position() -> (%d, %d), want (%d, %d)", line, col, test.line, test.col)
			}
			if got := c.Show(""); got != test.showWant {
				t.Errorf("Show() ->\n%s\nwant\n%s", got, test.showWant)
			}
		})
	}
}

func TestContext_InvalidPosition(t *testing.T) {
	c := NewContext("a.sh", "abc", Ranging{2, 10})
	if got := c.Show(""); !strings.Contains(got, "invalid position") {
		t.Errorf("Show() -> %q, want invalid position", got)
	}
}

type showerError struct{}

func (showerError) Error() string      { return "plain" }
func (showerError) Show(string) string { return "shown" }

func TestShowError(t *testing.T) {
	var buf bytes.Buffer
	ShowError(&buf, showerError{})
	if buf.String() != "shown\n" {
		t.Errorf("ShowError with Shower wrote %q", buf.String())
	}
	buf.Reset()
	ShowError(&buf, errors.New("boom"))
	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("ShowError with plain error wrote %q", buf.String())
	}
}

func TestRangingContains(t *testing.T) {
	if !(Ranging{2, 4}).Contains(3) || (Ranging{2, 4}).Contains(4) {
		t.Errorf("Contains on half-open range wrong")
	}
	if !PointRanging(5).Contains(5) {
		t.Errorf("PointRanging(5) does not contain 5")
	}
}
