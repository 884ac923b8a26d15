// Package parse implements the lsh parser.
//
// Source code is read by a Lexer into tokens, and a recursive-descent parser
// with one token of lookahead builds a tree of *Node values from them. Each
// grammar production has its own parse method; on error, a method frees the
// part of the tree it has built and returns the error, so callers never see
// a partial tree.
package parse

import (
	"strconv"

	"src.lsh.sh/pkg/diag"
)

// Config keeps configuration options when parsing.
type Config struct {
	// POSIX disables extensions that are not in the POSIX shell grammar,
	// such as the arithmetic for loop.
	POSIX bool
}

// Parse parses the given source as a list of commands. The returned error
// always has type *Error if it is not nil.
func Parse(src Source, cfg Config) (*Node, error) {
	ps := newParser(&src, 0, cfg)
	if err := ps.advance(); err != nil {
		return nil, err
	}
	n, err := ps.parseList(TokEOF)
	if err != nil {
		return nil, err
	}
	if ps.tok.Kind != TokEOF {
		n.Free()
		return nil, ps.unexpected()
	}
	return n, nil
}

// parser maintains the mutable state of parsing.
type parser struct {
	lx  *Lexer
	src *Source
	cfg Config

	// The current token.
	tok Token
	// The lookahead token, valid when hasPeek is true.
	peeked  Token
	hasPeek bool
	// End offset of the last consumed token.
	lastEnd int
}

func newParser(src *Source, start int, cfg Config) *parser {
	lx := NewLexer(src)
	if start > 0 {
		lx.advance(start)
	}
	return &parser{lx: lx, src: src, cfg: cfg, lastEnd: start}
}

// Moves to the next token.
func (ps *parser) advance() error {
	if ps.tok.Src != nil {
		ps.lastEnd = ps.tok.End()
	}
	if ps.hasPeek {
		ps.tok, ps.hasPeek = ps.peeked, false
		return nil
	}
	tok, err := ps.lx.Next()
	if err != nil {
		return err
	}
	ps.tok = tok
	return nil
}

// Returns the token after the current one without consuming it.
func (ps *parser) peek() (Token, error) {
	if !ps.hasPeek {
		tok, err := ps.lx.Next()
		if err != nil {
			return Token{}, err
		}
		ps.peeked, ps.hasPeek = tok, true
	}
	return ps.peeked, nil
}

func (ps *parser) skipNewlines() error {
	for ps.tok.Kind == TokNewline {
		if err := ps.advance(); err != nil {
			return err
		}
	}
	return nil
}

// Reports whether the current token is the given reserved word, either
// recognized by the lexer or as a plain word where the grammar allows the
// reserved word outside command position (such as "in" after "for NAME").
func (ps *parser) isReserved(kind TokenKind) bool {
	if ps.tok.Kind == kind {
		return true
	}
	return ps.tok.Kind == TokWord && reservedWords[ps.tok.Text] == kind
}

// Consumes the current token, which must satisfy isReserved(kind). cmdPos
// tells whether the token after it is in command position.
func (ps *parser) acceptReserved(kind TokenKind, cmdPos bool) error {
	if !ps.isReserved(kind) {
		return ps.expected(kind)
	}
	if !ps.hasPeek {
		ps.lx.SetCommandPosition(cmdPos)
	}
	return ps.advance()
}

// Consumes the current token, which must be of the given kind.
func (ps *parser) expect(kind TokenKind) error {
	if ps.tok.Kind != kind {
		return ps.expected(kind)
	}
	return ps.advance()
}

func (ps *parser) expected(kind TokenKind) *Error {
	if ps.tok.Kind == TokEOF {
		return newError(ErrUnexpectedEOF, ps.tok, "unexpected end of input, expected %s", kind)
	}
	return newError(ErrExpectedToken, ps.tok, "unexpected %s, expected %s", ps.tok, kind)
}

func (ps *parser) unexpected() *Error {
	if ps.tok.Kind == TokEOF {
		return newError(ErrUnexpectedEOF, ps.tok, "unexpected end of input")
	}
	return newError(ErrUnexpectedToken, ps.tok, "unexpected %s", ps.tok)
}

// Creates a node starting at the current token.
func (ps *parser) node(kind NodeKind) *Node {
	n := NewNode(kind)
	n.Line = ps.tok.Pos.Line
	n.From = ps.tok.Pos.Offset
	return n
}

// Records the end of n as the end of the last consumed token.
func (ps *parser) finish(n *Node) *Node {
	n.To = ps.lastEnd
	if n.To < n.From {
		n.To = n.From
	}
	return n
}

// Builds a Word node from the current token, parsing any command
// substitutions in it, and consumes the token.
func (ps *parser) word() (*Node, error) {
	n, err := ps.wordNode(NodeWord, ps.tok)
	if err != nil {
		return nil, err
	}
	if err := ps.advance(); err != nil {
		n.Free()
		return nil, err
	}
	return n, nil
}

func (ps *parser) wordNode(kind NodeKind, tok Token) (*Node, error) {
	n := NewNode(kind)
	n.SetStr(tok.Text)
	n.Line = tok.Pos.Line
	n.Ranging = diag.Ranging{From: tok.Pos.Offset, To: tok.End()}
	if err := ps.addSubstitutions(n, tok); err != nil {
		n.Free()
		return nil, err
	}
	return n, nil
}

func atoiOr(s string, def int64) int64 {
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return i
}
