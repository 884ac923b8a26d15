package tt

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// testT records errors instead of failing.
type testT []string

func (t *testT) Helper() {}

func (t *testT) Errorf(format string, args ...any) {
	*t = append(*t, fmt.Sprintf(format, args...))
}

func addsub(x, y int) (int, int) { return x + y, x - y }

var errOdd = errors.New("odd")

func half(x int) (int, error) {
	if x%2 != 0 {
		return 0, fmt.Errorf("half %d: %w", x, errOdd)
	}
	return x / 2, nil
}

func TestTest_Pass(t *testing.T) {
	var rec testT
	Test(&rec, Fn("addsub", addsub), Table{
		Args(1, 10).Rets(11, -9),
		Args(2, 2).Rets(4, Any),
	})
	if len(rec) > 0 {
		t.Errorf("unexpected failures: %v", rec)
	}
}

func TestTest_Fail(t *testing.T) {
	var rec testT
	Test(&rec, Fn("addsub", addsub), Table{Args(1, 10).Rets(11, 0)})
	if len(rec) != 1 || !strings.HasPrefix(rec[0], "addsub(1, 10) returns (-Wanted +Actual):\n") {
		t.Errorf("got failures %q", rec)
	}
}

func TestErrorIs(t *testing.T) {
	var rec testT
	Test(&rec, Fn("half", half), Table{
		Args(4).Rets(2, ErrorIs(nil)),
		Args(3).Rets(0, ErrorIs(errOdd)),
	})
	if len(rec) > 0 {
		t.Errorf("unexpected failures: %v", rec)
	}
}
