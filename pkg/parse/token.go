package parse

import "fmt"

// TokenKind classifies a Token.
type TokenKind int

// Token kinds.
const (
	TokEOF TokenKind = iota
	TokNewline
	TokWord
	TokAssignmentWord
	TokIONumber
	// The raw text of a "((...))" construct, delimiters included.
	TokArith

	// Operators.
	TokSemi      // ;
	TokDSemi     // ;;
	TokSemiAnd   // ;&
	TokAmp       // &
	TokPipe      // |
	TokAndIf     // &&
	TokOrIf      // ||
	TokLParen    // (
	TokRParen    // )
	TokLess      // <
	TokGreat     // >
	TokDLess     // <<
	TokDGreat    // >>
	TokLessAnd   // <&
	TokGreatAnd  // >&
	TokLessGreat // <>
	TokDLessDash // <<-
	TokClobber   // >|

	// Reserved words.
	TokIf
	TokThen
	TokElse
	TokElif
	TokFi
	TokDo
	TokDone
	TokCase
	TokEsac
	TokWhile
	TokUntil
	TokFor
	TokSelect
	TokIn
	TokFunction
	TokLBrace // {
	TokRBrace // }
	TokBang   // !
)

var tokenNames = [...]string{
	TokEOF:            "end of input",
	TokNewline:        "newline",
	TokWord:           "word",
	TokAssignmentWord: "assignment",
	TokIONumber:       "io number",
	TokArith:          "'(('",
	TokSemi:           "';'",
	TokDSemi:          "';;'",
	TokSemiAnd:        "';&'",
	TokAmp:            "'&'",
	TokPipe:           "'|'",
	TokAndIf:          "'&&'",
	TokOrIf:           "'||'",
	TokLParen:         "'('",
	TokRParen:         "')'",
	TokLess:           "'<'",
	TokGreat:          "'>'",
	TokDLess:          "'<<'",
	TokDGreat:         "'>>'",
	TokLessAnd:        "'<&'",
	TokGreatAnd:       "'>&'",
	TokLessGreat:      "'<>'",
	TokDLessDash:      "'<<-'",
	TokClobber:        "'>|'",
	TokIf:             "'if'",
	TokThen:           "'then'",
	TokElse:           "'else'",
	TokElif:           "'elif'",
	TokFi:             "'fi'",
	TokDo:             "'do'",
	TokDone:           "'done'",
	TokCase:           "'case'",
	TokEsac:           "'esac'",
	TokWhile:          "'while'",
	TokUntil:          "'until'",
	TokFor:            "'for'",
	TokSelect:         "'select'",
	TokIn:             "'in'",
	TokFunction:       "'function'",
	TokLBrace:         "'{'",
	TokRBrace:         "'}'",
	TokBang:           "'!'",
}

func (k TokenKind) String() string {
	if 0 <= k && int(k) < len(tokenNames) {
		return tokenNames[k]
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Reserved words, recognized only in command position.
var reservedWords = map[string]TokenKind{
	"if":       TokIf,
	"then":     TokThen,
	"else":     TokElse,
	"elif":     TokElif,
	"fi":       TokFi,
	"do":       TokDo,
	"done":     TokDone,
	"case":     TokCase,
	"esac":     TokEsac,
	"while":    TokWhile,
	"until":    TokUntil,
	"for":      TokFor,
	"select":   TokSelect,
	"in":       TokIn,
	"function": TokFunction,
	"{":        TokLBrace,
	"}":        TokRBrace,
	"!":        TokBang,
}

// Operators, longest first within each leading byte.
var operators = []struct {
	text string
	kind TokenKind
}{
	{"<<-", TokDLessDash},
	{";;", TokDSemi},
	{";&", TokSemiAnd},
	{"&&", TokAndIf},
	{"||", TokOrIf},
	{"<<", TokDLess},
	{">>", TokDGreat},
	{"<&", TokLessAnd},
	{">&", TokGreatAnd},
	{"<>", TokLessGreat},
	{">|", TokClobber},
	{";", TokSemi},
	{"&", TokAmp},
	{"|", TokPipe},
	{"(", TokLParen},
	{")", TokRParen},
	{"<", TokLess},
	{">", TokGreat},
}

// IsReserved reports whether the kind is a reserved word.
func (k TokenKind) IsReserved() bool { return TokIf <= k && k <= TokBang }

// IsRedirect reports whether the kind is a redirection operator.
func (k TokenKind) IsRedirect() bool { return TokLess <= k && k <= TokClobber }

// Position is a location in a source buffer. Line and Col are 1-based; Col
// counts bytes.
type Position struct {
	Line   int
	Col    int
	Offset int
}

func (p Position) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Col) }

// Token is one lexical unit.
type Token struct {
	Kind TokenKind
	Text string
	Pos  Position
	// The source the token was read from.
	Src *Source
}

// End returns the byte offset just past the token.
func (t Token) End() int { return t.Pos.Offset + len(t.Text) }

func (t Token) String() string {
	switch t.Kind {
	case TokEOF, TokNewline:
		return t.Kind.String()
	}
	return fmt.Sprintf("%q", t.Text)
}

// IsName reports whether s is a valid shell name: a letter or underscore
// followed by letters, digits and underscores.
func IsName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
