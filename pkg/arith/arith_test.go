package arith

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"src.lsh.sh/pkg/tt"
)

type mapVars map[string]string

func (m mapVars) Get(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

func (m mapVars) Set(name, value string) error {
	m[name] = value
	return nil
}

func evalNoVars(expr string) (int64, error) { return Eval(expr, mapVars{}) }

func TestEval(t *testing.T) {
	tt.Test(t, tt.Fn("Eval", evalNoVars), tt.Table{
		tt.Args("").Rets(int64(0), nil),
		tt.Args("  ").Rets(int64(0), nil),
		tt.Args("42").Rets(int64(42), nil),
		tt.Args("0x1F").Rets(int64(31), nil),
		tt.Args("017").Rets(int64(15), nil),
		tt.Args("1 + 2 * 3").Rets(int64(7), nil),
		tt.Args("(1 + 2) * 3").Rets(int64(9), nil),
		tt.Args("10 - 4 - 3").Rets(int64(3), nil),
		tt.Args("7 / 2").Rets(int64(3), nil),
		tt.Args("-7 % 3").Rets(int64(-1), nil),
		tt.Args("2 ** 10").Rets(int64(1024), nil),
		tt.Args("2 ** 3 ** 2").Rets(int64(512), nil),
		tt.Args("1 << 4 | 1").Rets(int64(17), nil),
		tt.Args("256 >> 4").Rets(int64(16), nil),
		tt.Args("6 & 3").Rets(int64(2), nil),
		tt.Args("6 ^ 3").Rets(int64(5), nil),
		tt.Args("-3").Rets(int64(-3), nil),
		tt.Args("- -3").Rets(int64(3), nil),
		tt.Args("!0").Rets(int64(1), nil),
		tt.Args("!5").Rets(int64(0), nil),
		tt.Args("~0").Rets(int64(-1), nil),
		tt.Args("3 < 4").Rets(int64(1), nil),
		tt.Args("3 >= 4").Rets(int64(0), nil),
		tt.Args("2 == 2 && 3 != 3").Rets(int64(0), nil),
		tt.Args("0 || 7").Rets(int64(1), nil),
		tt.Args("1 ? 10 : 20").Rets(int64(10), nil),
		tt.Args("0 ? 10 : 0 ? 20 : 30").Rets(int64(30), nil),
		tt.Args("1, 2, 3").Rets(int64(3), nil),
		tt.Args("unset + 1").Rets(int64(1), nil),

		tt.Args("1 / 0").Rets(int64(0), tt.ErrorIs(ErrDivisionByZero)),
		tt.Args("1 % 0").Rets(int64(0), tt.ErrorIs(ErrDivisionByZero)),
		tt.Args("1 +").Rets(int64(0), tt.ErrorIs(ErrSyntax)),
		tt.Args("(1").Rets(int64(0), tt.ErrorIs(ErrSyntax)),
		tt.Args("1 2").Rets(int64(0), tt.ErrorIs(ErrSyntax)),
		tt.Args("1 @ 2").Rets(int64(0), tt.ErrorIs(ErrSyntax)),
		tt.Args("09").Rets(int64(0), tt.ErrorIs(ErrSyntax)),
		tt.Args("2 ** -1").Rets(int64(0), tt.Any),
		tt.Args("++3").Rets(int64(0), tt.ErrorIs(ErrSyntax)),
	})
}

func TestEval_Assignments(t *testing.T) {
	vars := mapVars{"i": "5", "s": "  3 ", "e": "i * 2", "neg": "-4"}
	for _, tc := range []struct {
		expr string
		want int64
	}{
		{"x = 3", 3},
		{"x += 4", 7},
		{"x *= 2", 14},
		{"x -= 4", 10},
		{"x /= 3", 3},
		{"x %= 2", 1},
		{"x <<= 3", 8},
		{"x >>= 1", 4},
		{"x |= 1", 5},
		{"x &= 4", 4},
		{"x ^= 6", 2},
		{"a = b = 9", 9},
		{"i++", 5},
		{"i", 6},
		{"++i", 7},
		{"i--", 7},
		{"--i", 5},
		{"s + 1", 4},
		{"e + 1", 11},
		{"neg * 2", -8},
	} {
		got, err := Eval(tc.expr, vars)
		if err != nil || got != tc.want {
			t.Errorf("Eval(%q) -> (%v, %v), want (%v, nil)", tc.expr, got, err, tc.want)
		}
	}
	want := mapVars{"i": "5", "s": "  3 ", "e": "i * 2", "neg": "-4",
		"x": "2", "a": "9", "b": "9"}
	if diff := cmp.Diff(want, vars); diff != "" {
		t.Errorf("vars (-want +got):\n%s", diff)
	}
}

func TestEval_ShortCircuitSkipsSideEffects(t *testing.T) {
	vars := mapVars{}
	for _, expr := range []string{
		"0 && (x = 1)",
		"1 || (x = 1)",
		"1 ? 0 : (x = 1)",
		"0 ? (x = 1) : 0",
		"0 && 1 / 0",
	} {
		if _, err := Eval(expr, vars); err != nil {
			t.Errorf("Eval(%q) -> error %v", expr, err)
		}
	}
	if len(vars) != 0 {
		t.Errorf("unevaluated branches assigned %v", vars)
	}
}

func TestEval_RecursionLimit(t *testing.T) {
	_, err := Eval("a", mapVars{"a": "b", "b": "a"})
	if err == nil {
		t.Errorf("want error for self-referencing variables")
	}
}

func TestError(t *testing.T) {
	_, err := Eval("10 / 0", mapVars{})
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("got %T, want *Error", err)
	}
	if e.Offset != 3 {
		t.Errorf("Offset = %d, want 3", e.Offset)
	}
	if got, want := err.Error(), `10 / 0: division by 0: error token is "/ 0"`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestParseNumber(t *testing.T) {
	tt.Test(t, tt.Fn("ParseNumber", ParseNumber), tt.Table{
		tt.Args("0").Rets(int64(0), nil),
		tt.Args("123").Rets(int64(123), nil),
		tt.Args("0xff").Rets(int64(255), nil),
		tt.Args("010").Rets(int64(8), nil),
		tt.Args("0x").Rets(int64(0), tt.Any),
		tt.Args("12a").Rets(int64(0), tt.Any),
	})
}
