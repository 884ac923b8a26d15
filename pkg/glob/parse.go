package glob

import (
	"strings"
	"unicode/utf8"
)

// Parse parses a pattern. A backslash quotes the next character. A "[" that
// does not start a well-formed bracket expression is a literal.
func Parse(s string) Pattern {
	var segments []Segment
	var literal strings.Builder
	flush := func() {
		if literal.Len() > 0 {
			segments = append(segments, Literal{literal.String()})
			literal.Reset()
		}
	}
	add := func(seg Segment) {
		flush()
		segments = append(segments, seg)
	}
	p := &parser{s, 0}

	for {
		r := p.next()
		switch r {
		case eof:
			flush()
			return Pattern{segments}
		case '?':
			add(Wild{Type: Question})
		case '*':
			for p.next() == '*' {
			}
			p.backup()
			add(Wild{Type: Star})
		case '/':
			for p.next() == '/' {
			}
			p.backup()
			add(Slash{})
		case '[':
			if set, ok := p.bracket(); ok {
				add(Wild{Type: Bracket, Set: set})
			} else {
				literal.WriteRune('[')
			}
		case '\\':
			if r = p.next(); r == eof {
				literal.WriteRune('\\')
			} else {
				literal.WriteRune(r)
			}
		default:
			literal.WriteRune(r)
		}
	}
}

// Parses a bracket expression after the "[". On failure, the position is
// restored to just after the "[".
func (p *parser) bracket() (*Set, bool) {
	start := p.pos
	set := &Set{}
	if r := p.next(); r == '!' || r == '^' {
		set.Negate = true
	} else {
		p.backup()
	}
	first := true
	for {
		r := p.next()
		switch {
		case r == eof || r == '/':
			p.pos = start
			return nil, false
		case r == ']' && !first:
			return set, true
		case r == '[' && strings.HasPrefix(p.src[p.pos:], ":"):
			end := strings.Index(p.src[p.pos+1:], ":]")
			name := ""
			if end >= 0 {
				name = p.src[p.pos+1 : p.pos+1+end]
			}
			if _, ok := classes[name]; ok {
				set.Classes = append(set.Classes, name)
				p.pos += len(name) + 3
				first = false
				continue
			}
		case r == '\\':
			if r = p.next(); r == eof {
				p.pos = start
				return nil, false
			}
		}
		first = false
		lo := r
		hi := r
		if strings.HasPrefix(p.src[p.pos:], "-") && !strings.HasPrefix(p.src[p.pos:], "-]") {
			p.next()
			if hi = p.next(); hi == eof {
				p.pos = start
				return nil, false
			}
		}
		set.Ranges = append(set.Ranges, RuneRange{lo, hi})
	}
}

type parser struct {
	src string
	pos int
}

const eof rune = -1

func (ps *parser) next() rune {
	if ps.pos >= len(ps.src) {
		ps.pos = len(ps.src) + 1
		return eof
	}
	r, s := utf8.DecodeRuneInString(ps.src[ps.pos:])
	ps.pos += s
	return r
}

func (ps *parser) backup() {
	if ps.pos > len(ps.src) {
		ps.pos = len(ps.src)
		return
	}
	_, s := utf8.DecodeLastRuneInString(ps.src[:ps.pos])
	ps.pos -= s
}
