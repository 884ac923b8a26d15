// Package arith evaluates the integer expressions of "$((...))", "((...))"
// and the arithmetic "for" loop.
//
// The operators and their precedence are those of C, plus "**" for
// exponentiation. All arithmetic is done on int64 and wraps on overflow.
package arith

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Vars is the variable store expressions read from and assign to.
type Vars interface {
	// Get returns the value of a variable and whether it is set.
	Get(name string) (string, bool)
	// Set sets a variable.
	Set(name, value string) error
}

var (
	// ErrDivisionByZero is wrapped in errors from "/" and "%" with a zero
	// divisor.
	ErrDivisionByZero = errors.New("division by 0")
	// ErrSyntax is wrapped in errors from malformed expressions.
	ErrSyntax = errors.New("syntax error")
)

// Error is an error evaluating an expression.
type Error struct {
	Expr   string
	Offset int
	Err    error
	// Additional detail, such as the offending token.
	Detail string
}

func (e *Error) Error() string {
	msg := e.Err.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return fmt.Sprintf("%s: %s", strings.TrimSpace(e.Expr), msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Maximum nesting of variables whose values are themselves expressions.
const maxDepth = 64

// Eval evaluates expr. An empty expression evaluates to 0.
func Eval(expr string, vars Vars) (int64, error) {
	return eval(expr, vars, 0, 0)
}

func eval(expr string, vars Vars, depth, skip int) (int64, error) {
	if depth > maxDepth {
		return 0, &Error{Expr: expr, Err: errors.New("expression recursion level exceeded")}
	}
	toks, err := lex(expr)
	if err != nil {
		return 0, err
	}
	p := &parser{expr: expr, toks: toks, vars: vars, depth: depth, skip: skip}
	if p.tok().kind == tEOF {
		return 0, nil
	}
	v, err := p.comma()
	if err != nil {
		return 0, err
	}
	if t := p.tok(); t.kind != tEOF {
		return 0, p.errorf(t, ErrSyntax, "unexpected %q", t.text)
	}
	return v, nil
}

// ParseNumber parses an integer literal: decimal, hexadecimal with a "0x"
// prefix or octal with a "0" prefix.
func ParseNumber(s string) (int64, error) {
	base := 10
	digits := s
	switch {
	case len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X"):
		base, digits = 16, s[2:]
	case len(s) > 1 && s[0] == '0':
		base, digits = 8, s[1:]
	}
	n, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return int64(n), nil
}
