package arith

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// The parser evaluates while it parses. When skip is positive, operands are
// parsed but have no side effects and cannot fail at runtime; this is used
// for the branches that "&&", "||" and "?:" do not take.
type parser struct {
	expr  string
	toks  []token
	i     int
	vars  Vars
	depth int
	skip  int
}

// Binary operators from the lowest precedence to the highest. All of them
// are left-associative.
var binaryLevels = [][]string{
	{"||"},
	{"&&"},
	{"|"},
	{"^"},
	{"&"},
	{"==", "!="},
	{"<", "<=", ">", ">="},
	{"<<", ">>"},
	{"+", "-"},
	{"*", "/", "%"},
}

func (p *parser) tok() token { return p.toks[p.i] }

func (p *parser) peekOp(i int) string {
	if p.i+i < len(p.toks) && p.toks[p.i+i].kind == tOp {
		return p.toks[p.i+i].text
	}
	return ""
}

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tEOF {
		p.i++
	}
	return t
}

func (p *parser) errorf(t token, err error, format string, args ...interface{}) error {
	return &Error{Expr: p.expr, Offset: t.pos, Err: err, Detail: fmt.Sprintf(format, args...)}
}

func (p *parser) expectOp(op string) error {
	if t := p.tok(); t.kind != tOp || t.text != op {
		return p.errorf(t, ErrSyntax, "expected %q", op)
	}
	p.next()
	return nil
}

// Expr = Assign { "," Assign }
func (p *parser) comma() (int64, error) {
	v, err := p.assign()
	for err == nil && p.peekOp(0) == "," {
		p.next()
		v, err = p.assign()
	}
	return v, err
}

// Assign = NAME assign-op Assign | Ternary
func (p *parser) assign() (int64, error) {
	if p.tok().kind == tName && isAssignOp(p.peekOp(1)) {
		name := p.next()
		op := p.next().text
		rhs, err := p.assign()
		if err != nil {
			return 0, err
		}
		v := rhs
		if op != "=" {
			cur, err := p.get(name)
			if err != nil {
				return 0, err
			}
			v, err = p.apply(name, strings.TrimSuffix(op, "="), cur, rhs)
			if err != nil {
				return 0, err
			}
		}
		return v, p.set(name.text, v)
	}
	return p.ternary()
}

func isAssignOp(op string) bool {
	switch op {
	case "=", "+=", "-=", "*=", "/=", "%=", "<<=", ">>=", "&=", "^=", "|=":
		return true
	}
	return false
}

// Ternary = Binary [ "?" Expr ":" Ternary ]
func (p *parser) ternary() (int64, error) {
	cond, err := p.binary(0)
	if err != nil || p.peekOp(0) != "?" {
		return cond, err
	}
	p.next()
	a, err := p.branch(cond == 0, p.comma)
	if err != nil {
		return 0, err
	}
	if err := p.expectOp(":"); err != nil {
		return 0, err
	}
	b, err := p.branch(cond != 0, p.ternary)
	if err != nil {
		return 0, err
	}
	if cond != 0 {
		return a, nil
	}
	return b, nil
}

// Parses with f, skipping side effects if skip is true.
func (p *parser) branch(skip bool, f func() (int64, error)) (int64, error) {
	if skip {
		p.skip++
		defer func() { p.skip-- }()
	}
	return f()
}

func (p *parser) binary(level int) (int64, error) {
	if level == len(binaryLevels) {
		return p.power()
	}
	lhs, err := p.binary(level + 1)
	if err != nil {
		return 0, err
	}
	for {
		op := p.tok()
		if op.kind != tOp || !contains(binaryLevels[level], op.text) {
			return lhs, nil
		}
		p.next()
		short := (op.text == "||" && lhs != 0) || (op.text == "&&" && lhs == 0)
		rhs, err := p.branch(short, func() (int64, error) { return p.binary(level + 1) })
		if err != nil {
			return 0, err
		}
		lhs, err = p.apply(op, op.text, lhs, rhs)
		if err != nil {
			return 0, err
		}
	}
}

// Power = Unary [ "**" Power ]
func (p *parser) power() (int64, error) {
	base, err := p.unary()
	if err != nil || p.peekOp(0) != "**" {
		return base, err
	}
	op := p.next()
	exp, err := p.power()
	if err != nil {
		return 0, err
	}
	return p.apply(op, "**", base, exp)
}

// Unary = ( "+" | "-" | "!" | "~" ) Unary | ( "++" | "--" ) NAME | Postfix
func (p *parser) unary() (int64, error) {
	switch op := p.peekOp(0); op {
	case "+", "-", "!", "~":
		p.next()
		v, err := p.unary()
		if err != nil {
			return 0, err
		}
		switch op {
		case "-":
			return -v, nil
		case "!":
			return boolToInt(v == 0), nil
		case "~":
			return ^v, nil
		}
		return v, nil
	case "++", "--":
		p.next()
		name := p.tok()
		if name.kind != tName {
			return 0, p.errorf(name, ErrSyntax, "%s requires a variable", op)
		}
		p.next()
		v, err := p.get(name)
		if err != nil {
			return 0, err
		}
		v += delta(op)
		return v, p.set(name.text, v)
	}
	return p.postfix()
}

// Postfix = NAME ( "++" | "--" ) | Primary
func (p *parser) postfix() (int64, error) {
	if p.tok().kind == tName {
		if op := p.peekOp(1); op == "++" || op == "--" {
			name := p.next()
			p.next()
			v, err := p.get(name)
			if err != nil {
				return 0, err
			}
			return v, p.set(name.text, v+delta(op))
		}
	}
	return p.primary()
}

// Primary = NUMBER | NAME | "(" Expr ")"
func (p *parser) primary() (int64, error) {
	switch t := p.tok(); t.kind {
	case tNum:
		p.next()
		return t.num, nil
	case tName:
		p.next()
		return p.get(t)
	case tOp:
		if t.text == "(" {
			p.next()
			v, err := p.comma()
			if err != nil {
				return 0, err
			}
			return v, p.expectOp(")")
		}
	}
	t := p.tok()
	if t.kind == tEOF {
		return 0, p.errorf(t, ErrSyntax, "operand expected")
	}
	return 0, p.errorf(t, ErrSyntax, "operand expected, got %q", t.text)
}

func (p *parser) apply(at token, op string, a, b int64) (int64, error) {
	switch op {
	case "||":
		return boolToInt(a != 0 || b != 0), nil
	case "&&":
		return boolToInt(a != 0 && b != 0), nil
	case "|":
		return a | b, nil
	case "^":
		return a ^ b, nil
	case "&":
		return a & b, nil
	case "==":
		return boolToInt(a == b), nil
	case "!=":
		return boolToInt(a != b), nil
	case "<":
		return boolToInt(a < b), nil
	case "<=":
		return boolToInt(a <= b), nil
	case ">":
		return boolToInt(a > b), nil
	case ">=":
		return boolToInt(a >= b), nil
	case "<<":
		return a << (uint64(b) & 63), nil
	case ">>":
		return a >> (uint64(b) & 63), nil
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/", "%":
		if b == 0 {
			if p.skip > 0 {
				return 0, nil
			}
			return 0, p.errorf(at, ErrDivisionByZero, "error token is %q", p.expr[at.pos:])
		}
		if op == "/" {
			return a / b, nil
		}
		return a % b, nil
	case "**":
		if b < 0 {
			if p.skip > 0 {
				return 0, nil
			}
			return 0, p.errorf(at, errors.New("exponent less than 0"), "")
		}
		r := int64(1)
		for ; b > 0; b >>= 1 {
			if b&1 == 1 {
				r *= a
			}
			a *= a
		}
		return r, nil
	}
	return 0, p.errorf(at, ErrSyntax, "unknown operator %q", op)
}

// Returns the value of a variable. Unset and empty variables are 0; values
// that are not numbers are evaluated as expressions.
func (p *parser) get(name token) (int64, error) {
	s, _ := p.vars.Get(name.text)
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := ParseNumber(s); err == nil {
		return n, nil
	}
	if s[0] == '-' || s[0] == '+' {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
	}
	return eval(s, p.vars, p.depth+1, p.skip)
}

func (p *parser) set(name string, v int64) error {
	if p.skip > 0 {
		return nil
	}
	return p.vars.Set(name, strconv.FormatInt(v, 10))
}

func delta(op string) int64 {
	if op == "++" {
		return 1
	}
	return -1
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
