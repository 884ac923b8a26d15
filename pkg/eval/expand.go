package eval

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"src.lsh.sh/pkg/arith"
	"src.lsh.sh/pkg/fsutil"
	"src.lsh.sh/pkg/glob"
	"src.lsh.sh/pkg/parse"
)

// ErrBadSubst is wrapped in errors about malformed "${...}" expansions.
var ErrBadSubst = errors.New("bad substitution")

type expandMode int

const (
	// Expand to fields, with field splitting and pathname expansion.
	modeFields expandMode = iota
	// Expand to a single string.
	modeString
	// Expand to a single pattern for glob.Match, with quoted characters
	// escaped.
	modePattern
)

// A field being built.
type fieldBuf struct {
	text strings.Builder
	// The field as a pattern, with quoted characters escaped.
	pat strings.Builder
	// Whether the field contains unquoted wildcard characters.
	wild bool
	// Whether the field exists even if empty, because of quotes.
	started bool
	// Whether the field came from a "$@" with no positional parameters, and
	// should disappear if nothing else was added.
	noArgs bool
}

func (f *fieldBuf) empty() bool { return f.text.Len() == 0 }

type expander struct {
	fm   *Frame
	mode expandMode
	// Whether a leading "~" is expanded. This is only the case for words,
	// not for text nested in other expansions.
	tilde bool
	// Command substitutions parsed with the word, keyed by offset in the
	// word.
	substs map[int]*parse.Node

	fields []*fieldBuf
	cur    *fieldBuf
	// Whether the last field was ended by IFS white space.
	afterSpace bool
}

func (fm *Frame) newExpander(mode expandMode, word *parse.Node) *expander {
	e := &expander{fm: fm, mode: mode, tilde: word != nil, cur: &fieldBuf{}}
	if word != nil && len(word.Children) > 0 {
		e.substs = make(map[int]*parse.Node)
		for _, sub := range word.Children {
			if sub.Kind == parse.NodeCommandSubst {
				e.substs[int(sub.Val.Num)] = sub
			}
		}
	}
	return e
}

// Expands words to fields.
func (fm *Frame) expandWords(words []*parse.Node) ([]string, error) {
	var fields []string
	for _, w := range words {
		more, err := fm.expandWord(w)
		if err != nil {
			return nil, err
		}
		fields = append(fields, more...)
	}
	return fields, nil
}

// Expands a word to fields.
func (fm *Frame) expandWord(w *parse.Node) ([]string, error) {
	e := fm.newExpander(modeFields, w)
	if err := e.scan(w.Str(), 0); err != nil {
		return nil, err
	}
	return e.finishFields(), nil
}

// Expands a word to a single string, without field splitting or pathname
// expansion.
func (fm *Frame) expandString(w *parse.Node) (string, error) {
	return fm.expandText(w, w.Str(), 0, modeString)
}

// Expands a word to a pattern for glob.Match.
func (fm *Frame) expandPattern(w *parse.Node) (string, error) {
	return fm.expandText(w, w.Str(), 0, modePattern)
}

// Expands the part of the text of w that starts at offset base.
func (fm *Frame) expandText(w *parse.Node, text string, base int, mode expandMode) (string, error) {
	e := fm.newExpander(mode, w)
	if err := e.scan(text, base); err != nil {
		return "", err
	}
	if mode == modePattern {
		return e.cur.pat.String(), nil
	}
	return e.cur.text.String(), nil
}

// Expands the value part of an assignment word.
func (fm *Frame) expandAssignment(a *parse.Node) (string, string, error) {
	text := a.Str()
	eq := strings.IndexByte(text, '=')
	value, err := fm.expandText(a, text[eq+1:], eq+1, modeString)
	return text[:eq], value, err
}

// Scans text, which starts at offset base of the word.
func (e *expander) scan(s string, base int) error {
	inDouble := false
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '\\':
			switch {
			case i+1 == len(s):
				e.addQuoted(`\`)
				i++
			case s[i+1] == '\n':
				i += 2
			case inDouble && !strings.ContainsRune("$`\"\\", rune(s[i+1])):
				e.addQuoted(`\`)
				i++
			default:
				e.addQuoted(s[i+1 : i+2])
				i += 2
			}
		case c == '\'' && !inDouble:
			j := strings.IndexByte(s[i+1:], '\'')
			if j < 0 {
				j = len(s) - i - 1
			}
			e.cur.started = true
			e.addQuoted(s[i+1 : i+1+j])
			i += j + 2
		case c == '"':
			inDouble = !inDouble
			e.cur.started = true
			i++
		case c == '$':
			j, err := e.dollar(s, base, i, inDouble)
			if err != nil {
				return err
			}
			i = j
		case c == '`':
			j := i + 1
			for j < len(s) && s[j] != '`' {
				if s[j] == '\\' {
					j++
				}
				j++
			}
			var code string
			if sub := e.substs[base+i]; sub != nil {
				code = parse.Format(sub.Child(0))
			} else {
				code = unescapeBackquote(s[i+1 : min(j, len(s))])
			}
			out, err := e.fm.captureOutput(code)
			if err != nil {
				return err
			}
			e.addValue(out, inDouble)
			i = j + 1
		case c == '~' && i == 0 && e.tilde && !inDouble:
			j := strings.IndexByte(s, '/')
			if j < 0 {
				j = len(s)
			}
			uname := s[1:j]
			home, err := fsutil.GetHome(uname)
			if err != nil || strings.ContainsAny(uname, "'\"\\$`") {
				e.addUnquoted(s[:j])
			} else {
				e.addQuoted(home)
			}
			i = j
		default:
			if inDouble {
				e.addQuoted(s[i : i+1])
			} else {
				e.addUnquoted(s[i : i+1])
			}
			i++
		}
	}
	return nil
}

// Expands the "$" construct at s[i] and returns the index after it.
func (e *expander) dollar(s string, base, i int, inDouble bool) (int, error) {
	rest := s[i+1:]
	switch {
	case strings.HasPrefix(rest, "(("):
		if end := matchArith(s, i+3); end > 0 {
			v, err := e.fm.arith(s[i+3 : end-2])
			if err != nil {
				return 0, err
			}
			e.addValue(v, inDouble)
			return end, nil
		}
		fallthrough
	case strings.HasPrefix(rest, "("):
		var code string
		var end int
		if sub := e.substs[base+i]; sub != nil {
			code = parse.Format(sub.Child(0))
			end = i + len(sub.Val.Str)
		} else {
			end = matchClosing(s, i+2, '(', ')')
			if end < 0 {
				return 0, fmt.Errorf("%s: unterminated command substitution", s[i:])
			}
			code = s[i+2 : end-1]
		}
		out, err := e.fm.captureOutput(code)
		if err != nil {
			return 0, err
		}
		e.addValue(out, inDouble)
		return end, nil
	case strings.HasPrefix(rest, "{"):
		end := matchClosing(s, i+2, '{', '}')
		if end < 0 {
			return 0, fmt.Errorf("%s: %w", s[i:], ErrBadSubst)
		}
		if err := e.braceParam(s[i+2:end-1], inDouble); err != nil {
			return 0, err
		}
		return end, nil
	case rest != "" && isNameStart(rest[0]):
		j := 1
		for j < len(rest) && isNameChar(rest[j]) {
			j++
		}
		e.addParam(rest[:j], inDouble)
		return i + 1 + j, nil
	case rest != "" && strings.IndexByte("0123456789?$!#@*-", rest[0]) >= 0:
		e.addParam(rest[:1], inDouble)
		return i + 2, nil
	}
	e.addQuoted("$")
	return i + 1, nil
}

func (e *expander) addParam(name string, inDouble bool) {
	ev := e.fm.ev
	switch {
	case name == "@" && inDouble && e.mode == modeFields:
		if len(ev.args) == 0 {
			e.cur.noArgs = true
			return
		}
		for i, arg := range ev.args {
			if i > 0 {
				e.endField()
			}
			e.addQuoted(arg)
		}
		return
	case name == "*" && inDouble:
		sep := ""
		if ifs := ev.ifs(); ifs != "" {
			sep = ifs[:1]
		}
		e.addQuoted(strings.Join(ev.args, sep))
		return
	}
	v, _ := e.fm.param(name)
	e.addValue(v, inDouble)
}

// Expands the inside of "${...}".
func (e *expander) braceParam(inner string, inDouble bool) error {
	if len(inner) > 1 && inner[0] == '#' {
		v, _ := e.fm.param(inner[1:])
		if !isParamName(inner[1:]) {
			return fmt.Errorf("${%s}: %w", inner, ErrBadSubst)
		}
		e.addValue(strconv.Itoa(len([]rune(v))), inDouble)
		return nil
	}
	n := paramNameLen(inner)
	if n == 0 {
		return fmt.Errorf("${%s}: %w", inner, ErrBadSubst)
	}
	name, op := inner[:n], inner[n:]
	v, set := e.fm.param(name)
	if op == "" {
		e.addValue(v, inDouble)
		return nil
	}
	colon := strings.HasPrefix(op, ":")
	if colon {
		op = op[1:]
		set = set && v != ""
	}
	if op == "" {
		return fmt.Errorf("${%s}: %w", inner, ErrBadSubst)
	}
	word := op[1:]
	switch op[0] {
	case '-', '=', '+', '?':
	case '#', '%':
		if colon {
			return fmt.Errorf("${%s}: %w", inner, ErrBadSubst)
		}
	default:
		return fmt.Errorf("${%s}: %w", inner, ErrBadSubst)
	}
	switch op[0] {
	case '-':
		if !set {
			w, err := e.nested(word, modeString)
			if err != nil {
				return err
			}
			v = w
		}
	case '=':
		if !set {
			w, err := e.nested(word, modeString)
			if err != nil {
				return err
			}
			if err := e.fm.ev.Set(name, w); err != nil {
				return err
			}
			v = w
		}
	case '+':
		v = ""
		if set {
			w, err := e.nested(word, modeString)
			if err != nil {
				return err
			}
			v = w
		}
	case '?':
		if !set {
			msg, err := e.nested(word, modeString)
			if err != nil {
				return err
			}
			if msg == "" {
				msg = "parameter null or not set"
			}
			return fmt.Errorf("%s: %s", name, msg)
		}
	case '#', '%':
		longest := strings.HasPrefix(word, op[:1])
		if longest {
			word = word[1:]
		}
		pat, err := e.nested(word, modePattern)
		if err != nil {
			return err
		}
		v = removeAffix(v, pat, op[0] == '#', longest)
	}
	e.addValue(v, inDouble)
	return nil
}

// Expands a word nested in "${...}".
func (e *expander) nested(word string, mode expandMode) (string, error) {
	return e.fm.expandText(nil, word, 0, mode)
}

// Removes the shortest or longest prefix or suffix of v matching pat.
func removeAffix(v, pat string, prefix, longest bool) string {
	for k := 0; k <= len(v); k++ {
		i := k
		if longest {
			i = len(v) - k
		}
		if prefix && glob.Match(pat, v[:i]) {
			return v[i:]
		}
		if !prefix && glob.Match(pat, v[len(v)-i:]) {
			return v[:len(v)-i]
		}
	}
	return v
}

// Returns the length of the parameter name at the start of s.
func paramNameLen(s string) int {
	switch {
	case s == "":
		return 0
	case isNameStart(s[0]):
		j := 1
		for j < len(s) && isNameChar(s[j]) {
			j++
		}
		return j
	case s[0] >= '0' && s[0] <= '9':
		j := 1
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		return j
	case strings.IndexByte("?$!#@*-", s[0]) >= 0:
		return 1
	}
	return 0
}

func isParamName(s string) bool { return s != "" && paramNameLen(s) == len(s) }

// Adds the value of an expansion. Unquoted values are subject to field
// splitting.
func (e *expander) addValue(v string, quoted bool) {
	if quoted || e.mode != modeFields {
		if quoted {
			e.addQuoted(v)
		} else {
			e.addUnquoted(v)
		}
		return
	}
	ifs := e.fm.ev.ifs()
	if ifs == "" {
		e.addUnquoted(v)
		return
	}
	start := 0
	for i, r := range v {
		if !strings.ContainsRune(ifs, r) {
			continue
		}
		e.addUnquoted(v[start:i])
		start = i + len(string(r))
		if r == ' ' || r == '\t' || r == '\n' {
			if !e.cur.empty() || e.cur.started {
				e.endField()
				e.afterSpace = true
			}
		} else if e.cur.empty() && !e.cur.started && e.afterSpace {
			e.afterSpace = false
		} else {
			e.endField()
			e.afterSpace = false
		}
	}
	e.addUnquoted(v[start:])
}

func (e *expander) addQuoted(s string) {
	e.cur.text.WriteString(s)
	e.cur.pat.WriteString(glob.Quote(s))
	if s != "" {
		e.cur.started = true
		e.afterSpace = false
	}
}

func (e *expander) addUnquoted(s string) {
	if s == "" {
		return
	}
	e.cur.text.WriteString(s)
	e.cur.pat.WriteString(s)
	if strings.ContainsAny(s, "*?[") {
		e.cur.wild = true
	}
	e.cur.started = true
	e.afterSpace = false
}

func (e *expander) endField() {
	e.fields = append(e.fields, e.cur)
	e.cur = &fieldBuf{}
}

// Finishes the word and performs pathname expansion.
func (e *expander) finishFields() []string {
	if e.cur.started && !(e.cur.noArgs && e.cur.empty()) {
		e.fields = append(e.fields, e.cur)
	}
	var result []string
	for _, f := range e.fields {
		if f.wild && !e.fm.ev.Options.NoGlob {
			n := len(result)
			glob.Glob(f.pat.String(), func(path string) bool {
				result = append(result, path)
				return true
			})
			if len(result) > n {
				continue
			}
		}
		result = append(result, f.text.String())
	}
	return result
}

// Evaluates an arithmetic expansion. Parameters and command substitutions
// in the expression are expanded first.
func (fm *Frame) arith(expr string) (string, error) {
	expanded, err := fm.expandText(nil, expr, 0, modeString)
	if err != nil {
		return "", err
	}
	v, err := arith.Eval(expanded, fm.ev)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(v, 10), nil
}

// Returns the index after the "))" closing an arithmetic expansion whose
// expression starts at i, or -1 if the parentheses do not close with "))".
func matchArith(s string, i int) int {
	depth := 2
	for j := i; j < len(s); j++ {
		switch s[j] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 1 && (j+1 == len(s) || s[j+1] != ')') {
				return -1
			}
			if depth == 0 {
				return j + 1
			}
		}
	}
	return -1
}

// Returns the index after the delimiter closing a construct whose body
// starts at i, skipping quoted parts and nested pairs, or -1.
func matchClosing(s string, i int, open, close byte) int {
	depth := 1
	for j := i; j < len(s); j++ {
		switch c := s[j]; c {
		case '\\':
			j++
		case '\'':
			k := strings.IndexByte(s[j+1:], '\'')
			if k < 0 {
				return -1
			}
			j += k + 1
		case '"':
			for j++; j < len(s) && s[j] != '"'; j++ {
				if s[j] == '\\' {
					j++
				}
			}
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return j + 1
			}
		}
	}
	return -1
}

func unescapeBackquote(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && strings.IndexByte("\\`$", s[i+1]) >= 0 {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func isNameStart(c byte) bool { return c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' }
func isNameChar(c byte) bool  { return isNameStart(c) || '0' <= c && c <= '9' }
