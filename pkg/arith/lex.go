package arith

import (
	"fmt"
	"strings"
)

type tokKind int

const (
	tEOF tokKind = iota
	tNum
	tName
	tOp
)

type token struct {
	kind tokKind
	text string
	pos  int
	num  int64
}

// Operators, longest first.
var operators = []string{
	"<<=", ">>=",
	"**", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "&=", "^=", "|=",
	"+", "-", "*", "/", "%", "<", ">", "=", "!", "~", "&", "^", "|",
	"?", ":", ",", "(", ")",
}

func lex(expr string) ([]token, error) {
	var toks []token
	for i := 0; i < len(expr); {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c):
			j := i
			for j < len(expr) && isNameChar(expr[j]) {
				j++
			}
			n, err := ParseNumber(expr[i:j])
			if err != nil {
				return nil, &Error{Expr: expr, Offset: i, Err: ErrSyntax, Detail: err.Error()}
			}
			toks = append(toks, token{tNum, expr[i:j], i, n})
			i = j
		case isNameStart(c):
			j := i
			for j < len(expr) && isNameChar(expr[j]) {
				j++
			}
			toks = append(toks, token{kind: tName, text: expr[i:j], pos: i})
			i = j
		default:
			op := matchOperator(expr[i:])
			if op == "" {
				return nil, &Error{Expr: expr, Offset: i, Err: ErrSyntax,
					Detail: fmt.Sprintf("invalid character %q", c)}
			}
			toks = append(toks, token{kind: tOp, text: op, pos: i})
			i += len(op)
		}
	}
	return append(toks, token{kind: tEOF, pos: len(expr)}), nil
}

func matchOperator(s string) string {
	for _, op := range operators {
		if strings.HasPrefix(s, op) {
			return op
		}
	}
	return ""
}

func isDigit(c byte) bool     { return '0' <= c && c <= '9' }
func isNameStart(c byte) bool { return c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' }
func isNameChar(c byte) bool  { return isNameStart(c) || isDigit(c) }
