package parse

import (
	"fmt"

	"src.lsh.sh/pkg/diag"
)

// ErrorKind classifies parse errors.
type ErrorKind int

// Error kinds.
const (
	// ErrLex is a malformed token, such as an unterminated quote.
	ErrLex ErrorKind = iota
	// ErrUnexpectedToken is a token that cannot start or continue the
	// current production.
	ErrUnexpectedToken
	// ErrExpectedToken is a missing required token, such as "do".
	ErrExpectedToken
	// ErrMissingForName is a "for" not followed by a valid name.
	ErrMissingForName
	// ErrMissingSelectName is a "select" not followed by a valid name.
	ErrMissingSelectName
	// ErrUnexpectedEOF is input that ends in the middle of a construct.
	ErrUnexpectedEOF
	// ErrUnsupported is a construct this shell does not implement.
	ErrUnsupported
)

var errorKindNames = [...]string{
	ErrLex:               "lexical error",
	ErrUnexpectedToken:   "unexpected token",
	ErrExpectedToken:     "expected token",
	ErrMissingForName:    "missing for name",
	ErrMissingSelectName: "missing select name",
	ErrUnexpectedEOF:     "unexpected end of input",
	ErrUnsupported:       "unsupported syntax",
}

func (k ErrorKind) String() string {
	if 0 <= k && int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a lexical or parse error. It carries the offending token and the
// source context.
type Error struct {
	Kind    ErrorKind
	Token   Token
	Message string
	Context diag.Context

	atEOF bool
}

// Error returns a plain text representation of the error.
func (e *Error) Error() string {
	line, col := e.Context.Position()
	return fmt.Sprintf("parse error: %s:%d:%d: %s", e.Context.Name, line, col, e.Message)
}

// Range returns the range of the error.
func (e *Error) Range() diag.Ranging { return e.Context.Range() }

// Show shows the error.
func (e *Error) Show(indent string) string {
	header := fmt.Sprintf("Parse error: \033[31;1m%s\033[m\n", e.Message)
	return header + indent + "  " + e.Context.ShowCompact(indent+"  ")
}

// Partial reports whether the error is caused by the input ending early, in
// which case more input may complete it.
func (e *Error) Partial() bool {
	return e.atEOF
}

func newError(kind ErrorKind, tok Token, format string, args ...any) *Error {
	r := diag.Ranging{From: tok.Pos.Offset, To: tok.End()}
	var name, code string
	if tok.Src != nil {
		name, code = tok.Src.Name, tok.Src.Code
		if r.To > len(code) {
			r.To = len(code)
		}
	}
	return &Error{
		Kind:    kind,
		Token:   tok,
		Message: fmt.Sprintf(format, args...),
		Context: *diag.NewContext(name, code, r),
		atEOF:   tok.Kind == TokEOF,
	}
}
