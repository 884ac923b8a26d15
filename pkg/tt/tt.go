// Package tt supports table-driven tests with little boilerplate.
//
// A test is a function to call plus a Table of cases. Each case supplies the
// arguments with Args and the expected return values with Rets; results are
// compared with go-cmp and reported as a diff.
package tt

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// Table is a list of test cases.
type Table []*Case

// Case is one test case, built by chaining Args(...).Rets(...).
type Case struct {
	args []any
	rets []any
}

// Args returns a new Case with the given arguments.
func Args(args ...any) *Case { return &Case{args: args} }

// Rets sets the wanted return values of the case and returns the case. A
// wanted value may be a Matcher, in which case its Match method decides.
func (c *Case) Rets(rets ...any) *Case {
	c.rets = rets
	return c
}

// FnToTest describes a function to test.
type FnToTest struct {
	name string
	body any
}

// Fn makes a FnToTest with the given name and body.
func Fn(name string, body any) *FnToTest { return &FnToTest{name, body} }

// T is the subset of testing.TB used by Test.
type T interface {
	Helper()
	Errorf(format string, args ...any)
}

// Matcher decides whether an actual return value is acceptable.
type Matcher interface {
	Match(any) bool
}

// Any matches any value.
var Any Matcher = anyMatcher{}

type anyMatcher struct{}

func (anyMatcher) Match(any) bool { return true }

// ErrorIs returns a Matcher that accepts errors satisfying errors.Is-style
// identity with the target, or nil when target is nil.
func ErrorIs(target error) Matcher { return errorIsMatcher{target} }

type errorIsMatcher struct{ target error }

func (m errorIsMatcher) Match(v any) bool {
	err, _ := v.(error)
	if m.target == nil {
		return err == nil
	}
	for err != nil {
		if err == m.target {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Test runs every case of the table against fn.
func Test(t T, fn *FnToTest, table Table) {
	t.Helper()
	for _, c := range table {
		rets := call(fn.body, c.args)
		if !matchAll(c.rets, rets) {
			t.Errorf("%s(%s) returns (-Wanted +Actual):\n%s",
				fn.name, join(c.args), cmp.Diff(show(c.rets), show(rets)))
		}
	}
}

// Values are diffed in their printed form, since matchers and error values
// may carry unexported fields that cmp refuses to inspect.
func show(values []any) []string {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = fmt.Sprintf("%v", v)
	}
	return s
}

func call(fn any, args []any) []any {
	argValues := make([]reflect.Value, len(args))
	fnType := reflect.TypeOf(fn)
	for i, arg := range args {
		if arg == nil {
			argValues[i] = reflect.Zero(fnType.In(i))
		} else {
			argValues[i] = reflect.ValueOf(arg)
		}
	}
	retValues := reflect.ValueOf(fn).Call(argValues)
	rets := make([]any, len(retValues))
	for i, v := range retValues {
		rets[i] = v.Interface()
	}
	return rets
}

func matchAll(wants, rets []any) bool {
	if len(wants) != len(rets) {
		return false
	}
	for i, want := range wants {
		if m, ok := want.(Matcher); ok {
			if !m.Match(rets[i]) {
				return false
			}
		} else if !reflect.DeepEqual(want, rets[i]) {
			return false
		}
	}
	return true
}

func join(args []any) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = fmt.Sprintf("%#v", arg)
	}
	return strings.Join(parts, ", ")
}
