package parse

import "strings"

// Lexer turns source text into tokens. It is a cursor over a Source: each
// call to Next continues where the previous one stopped.
type Lexer struct {
	src *Source
	pos int
	// Line number and offset of the start of that line, for pos.
	line      int
	lineStart int

	// Whether the next word is in command position, where reserved words
	// and assignments are recognized.
	cmdPos bool
	// Set after "for", where "((" opens an arithmetic for loop even though
	// it is not command position.
	arithOK bool
	// Set after a redirection operator; the following word is its target.
	afterRedir bool
}

// NewLexer creates a Lexer positioned at the start of src.
func NewLexer(src *Source) *Lexer {
	return &Lexer{src: src, line: 1, cmdPos: true}
}

// Pos returns the current position of the cursor.
func (lx *Lexer) Pos() Position {
	return Position{Line: lx.line, Col: lx.pos - lx.lineStart + 1, Offset: lx.pos}
}

// SetCommandPosition forces the next word to be (or not to be) read in
// command position.
func (lx *Lexer) SetCommandPosition(b bool) { lx.cmdPos = b }

const metaChars = " \t\n;&|()<>"

// Next reads one token. At the end of input it returns a TokEOF token; it
// keeps doing so on further calls.
func (lx *Lexer) Next() (Token, error) {
	lx.skipBlanks()
	code := lx.src.Code
	start := lx.Pos()
	if lx.pos >= len(code) {
		return lx.token(TokEOF, start, ""), nil
	}

	if code[lx.pos] == '\n' {
		lx.advance(1)
		lx.cmdPos = true
		return lx.token(TokNewline, start, "\n"), nil
	}

	if (lx.cmdPos || lx.arithOK) && strings.HasPrefix(code[lx.pos:], "((") {
		end, ok := matchDoubleParen(code, lx.pos+2)
		switch {
		case ok:
			text := code[lx.pos:end]
			lx.advance(end - lx.pos)
			lx.cmdPos, lx.arithOK = false, false
			return lx.token(TokArith, start, text), nil
		case lx.arithOK:
			return Token{}, lx.arithForError(start, end)
		case end == len(code):
			return Token{}, lx.lexError(start, "unterminated '(('", true)
		}
		// A ")" closes the inner "(" alone, so this is a subshell nested
		// in a subshell; the operator loop below reads the first "(".
	}
	lx.arithOK = false

	for _, op := range operators {
		if strings.HasPrefix(code[lx.pos:], op.text) {
			lx.advance(len(op.text))
			if op.kind.IsRedirect() {
				lx.afterRedir = true
			} else {
				lx.cmdPos = true
			}
			return lx.token(op.kind, start, op.text), nil
		}
	}

	end, err := lx.scanWord(lx.pos)
	if err != nil {
		return Token{}, err
	}
	text := code[lx.pos:end]
	lx.advance(end - lx.pos)

	if lx.afterRedir {
		lx.afterRedir = false
		return lx.token(TokWord, start, text), nil
	}
	if isAllDigits(text) && lx.pos < len(code) && (code[lx.pos] == '<' || code[lx.pos] == '>') {
		return lx.token(TokIONumber, start, text), nil
	}
	if lx.cmdPos {
		if kind, ok := reservedWords[text]; ok {
			switch kind {
			case TokFor:
				lx.cmdPos, lx.arithOK = false, true
			case TokSelect, TokCase, TokIn, TokFunction:
				lx.cmdPos = false
			}
			return lx.token(kind, start, text), nil
		}
		if isAssignment(text) {
			return lx.token(TokAssignmentWord, start, text), nil
		}
	}
	lx.cmdPos = false
	return lx.token(TokWord, start, text), nil
}

func (lx *Lexer) token(kind TokenKind, pos Position, text string) Token {
	return Token{Kind: kind, Text: text, Pos: pos, Src: lx.src}
}

func (lx *Lexer) lexError(pos Position, msg string, atEOF bool) *Error {
	tok := lx.token(TokWord, pos, lx.src.Code[pos.Offset:])
	err := newError(ErrLex, tok, "%s", msg)
	err.atEOF = atEOF
	return err
}

// Reports the "((" of an arithmetic for loop at start that is not closed by
// "))". The matching failed at offset end: at the end of input, or at a
// lone ")".
func (lx *Lexer) arithForError(start Position, end int) *Error {
	code := lx.src.Code
	if end >= len(code)-1 {
		eof := Token{Kind: TokEOF, Pos: lx.posAt(start, len(code)), Src: lx.src}
		err := newError(ErrUnexpectedEOF, eof,
			"unexpected end of input, expected '))' to close the arithmetic for loop")
		err.atEOF = true
		return err
	}
	tok := lx.token(TokRParen, lx.posAt(start, end), ")")
	return newError(ErrExpectedToken, tok,
		"unexpected ')', expected '))' to close the arithmetic for loop")
}

// Returns the position of offset off, which is not before from.
func (lx *Lexer) posAt(from Position, off int) Position {
	return tokenEndPos(Token{Pos: from, Text: lx.src.Code[from.Offset:off]})
}

// Skips spaces, tabs, line continuations and comments.
func (lx *Lexer) skipBlanks() {
	code := lx.src.Code
	for lx.pos < len(code) {
		switch {
		case code[lx.pos] == ' ' || code[lx.pos] == '\t':
			lx.advance(1)
		case strings.HasPrefix(code[lx.pos:], "\\\n"):
			lx.advance(2)
		case code[lx.pos] == '#':
			i := strings.IndexByte(code[lx.pos:], '\n')
			if i == -1 {
				i = len(code) - lx.pos
			}
			lx.advance(i)
		default:
			return
		}
	}
}

// Moves the cursor forward by n bytes, keeping the line count.
func (lx *Lexer) advance(n int) {
	code := lx.src.Code
	for i := lx.pos; i < lx.pos+n; i++ {
		if code[i] == '\n' {
			lx.line++
			lx.lineStart = i + 1
		}
	}
	lx.pos += n
}

// Returns the end of the word starting at i. Quotes and substitutions are
// part of the word and must be terminated.
func (lx *Lexer) scanWord(i int) (int, error) {
	code := lx.src.Code
	for i < len(code) && !strings.ContainsRune(metaChars, rune(code[i])) {
		end, err := lx.scanUnit(i, false)
		if err != nil {
			return 0, err
		}
		i = end
	}
	return i, nil
}

// Scans one quoting unit starting at i and returns its end. A unit is an
// escaped character, a quoted string, a substitution or a plain byte. When
// inDouble is true, single quotes are plain bytes.
func (lx *Lexer) scanUnit(i int, inDouble bool) (int, error) {
	code := lx.src.Code
	switch c := code[i]; {
	case c == '\\':
		if i+1 < len(code) {
			return i + 2, nil
		}
		return i + 1, nil
	case c == '\'' && !inDouble:
		j := strings.IndexByte(code[i+1:], '\'')
		if j == -1 {
			return 0, lx.lexErrorAt(i, "unterminated single quote", true)
		}
		return i + 1 + j + 1, nil
	case c == '"' && !inDouble:
		j := i + 1
		for j < len(code) && code[j] != '"' {
			end, err := lx.scanUnit(j, true)
			if err != nil {
				return 0, err
			}
			j = end
		}
		if j >= len(code) {
			return 0, lx.lexErrorAt(i, "unterminated double quote", true)
		}
		return j + 1, nil
	case c == '`':
		j := i + 1
		for j < len(code) && code[j] != '`' {
			if code[j] == '\\' {
				j++
			}
			j++
		}
		if j >= len(code) {
			return 0, lx.lexErrorAt(i, "unterminated backquote", true)
		}
		return j + 1, nil
	case c == '$' && strings.HasPrefix(code[i:], "$(("):
		end, ok := matchDoubleParen(code, i+3)
		if !ok {
			return 0, lx.lexErrorAt(i, "unterminated '$(('", end == len(code))
		}
		return end, nil
	case c == '$' && strings.HasPrefix(code[i:], "$("):
		return lx.scanNested(i, i+2, ')', "unterminated '$('")
	case c == '$' && strings.HasPrefix(code[i:], "${"):
		return lx.scanNested(i, i+2, '}', "unterminated '${'")
	default:
		return i + 1, nil
	}
}

// Scans up to the closing byte matching an opening delimiter, honoring
// quotes and nesting of the same kind of delimiter.
func (lx *Lexer) scanNested(begin, i int, closing byte, msg string) (int, error) {
	code := lx.src.Code
	opening := byte('(')
	if closing == '}' {
		opening = '{'
	}
	depth := 0
	for i < len(code) {
		switch code[i] {
		case opening:
			depth++
			i++
		case closing:
			if depth == 0 {
				return i + 1, nil
			}
			depth--
			i++
		case '#':
			// Comments inside a command substitution run to the end of line.
			if closing == ')' && (i == 0 || strings.ContainsRune(" \t\n;", rune(code[i-1]))) {
				j := strings.IndexByte(code[i:], '\n')
				if j == -1 {
					return 0, lx.lexErrorAt(begin, msg, true)
				}
				i += j
				continue
			}
			i++
		default:
			end, err := lx.scanUnit(i, false)
			if err != nil {
				return 0, err
			}
			i = end
		}
	}
	return 0, lx.lexErrorAt(begin, msg, true)
}

func (lx *Lexer) lexErrorAt(offset int, msg string, atEOF bool) *Error {
	return lx.lexError(lx.positionOf(offset), msg, atEOF)
}

// Computes the position of an offset at or after the cursor.
func (lx *Lexer) positionOf(offset int) Position {
	line, lineStart := lx.line, lx.lineStart
	code := lx.src.Code
	for i := lx.pos; i < offset; i++ {
		if code[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	return Position{Line: line, Col: offset - lineStart + 1, Offset: offset}
}

// Finds the "))" closing a "((" whose body starts at i, and returns the
// offset just past it. When there is no match, the returned offset is where
// the search stopped; it equals len(code) if the input ran out.
func matchDoubleParen(code string, i int) (int, bool) {
	depth := 0
	for ; i < len(code); i++ {
		switch code[i] {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				if i+1 < len(code) && code[i+1] == ')' {
					return i + 2, true
				}
				return i, false
			}
			depth--
		}
	}
	return len(code), false
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isAssignment(s string) bool {
	i := strings.IndexByte(s, '=')
	return i > 0 && IsName(s[:i])
}
