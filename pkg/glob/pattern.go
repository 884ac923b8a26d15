package glob

import "unicode"

// Pattern is a parsed glob pattern.
type Pattern struct {
	Segments []Segment
}

// Segment is the building block of Pattern.
type Segment interface {
	isSegment()
}

// Slash is a path separator in a pattern.
type Slash struct{}

// Literal is a run of characters matched literally.
type Literal struct {
	Data string
}

// Wild is a wildcard that matches a single character, or, for Star, any
// number of characters.
type Wild struct {
	Type WildType
	// The bracket expression of a Bracket wildcard.
	Set *Set
}

// WildType is the type of a Wild.
type WildType int

// Values for WildType.
const (
	Question WildType = iota
	Star
	Bracket
)

func (Slash) isSegment()   {}
func (Literal) isSegment() {}
func (Wild) isSegment()    {}

// Match returns whether the wildcard can match r.
func (w Wild) Match(r rune) bool {
	if w.Type == Bracket {
		return w.Set.Match(r)
	}
	return true
}

// Set is a bracket expression such as "[a-z_]" or "[!0-9]".
type Set struct {
	Negate  bool
	Ranges  []RuneRange
	Classes []string
}

// RuneRange is an inclusive range of runes. A single rune has Lo == Hi.
type RuneRange struct{ Lo, Hi rune }

var classes = map[string]func(rune) bool{
	"alnum":  func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) },
	"alpha":  unicode.IsLetter,
	"blank":  func(r rune) bool { return r == ' ' || r == '\t' },
	"cntrl":  unicode.IsControl,
	"digit":  unicode.IsDigit,
	"lower":  unicode.IsLower,
	"print":  unicode.IsPrint,
	"punct":  unicode.IsPunct,
	"space":  unicode.IsSpace,
	"upper":  unicode.IsUpper,
	"xdigit": func(r rune) bool { return unicode.Is(unicode.ASCII_Hex_Digit, r) },
}

// Match returns whether the set matches r.
func (s *Set) Match(r rune) bool {
	return s.contains(r) != s.Negate
}

func (s *Set) contains(r rune) bool {
	for _, rr := range s.Ranges {
		if rr.Lo <= r && r <= rr.Hi {
			return true
		}
	}
	for _, c := range s.Classes {
		if classes[c](r) {
			return true
		}
	}
	return false
}

// HasWild returns whether the pattern contains any wildcard.
func (p Pattern) HasWild() bool {
	for _, seg := range p.Segments {
		if _, ok := seg.(Wild); ok {
			return true
		}
	}
	return false
}

// IsSlash returns whether a Segment is a Slash.
func IsSlash(seg Segment) bool {
	_, ok := seg.(Slash)
	return ok
}

// IsLiteral returns whether a Segment is a Literal.
func IsLiteral(seg Segment) bool {
	_, ok := seg.(Literal)
	return ok
}

// IsWild1 returns whether a Segment is a Wild of the given type.
func IsWild1(seg Segment, t WildType) bool {
	w, ok := seg.(Wild)
	return ok && w.Type == t
}
