package parse

import "strings"

// For = "for" NAME linebreak [ "in" { WORD } sequential_sep ] DoGroup
//
// When "for" is followed by "((" instead of a name, the arithmetic form is
// parsed instead, unless the parser is in POSIX mode.
func (ps *parser) parseFor() (*Node, error) {
	loop := ps.node(NodeFor)
	if err := ps.advance(); err != nil {
		return nil, err
	}
	if ps.tok.Kind == TokArith && !ps.cfg.POSIX {
		return ps.parseArithFor(loop)
	}
	return ps.parseForLike(loop, ErrMissingForName, "for")
}

// Select = "select" NAME linebreak [ "in" { WORD } sequential_sep ] DoGroup
func (ps *parser) parseSelect() (*Node, error) {
	loop := ps.node(NodeSelect)
	if err := ps.advance(); err != nil {
		return nil, err
	}
	return ps.parseForLike(loop, ErrMissingSelectName, "select")
}

// Parses the part of a for or select loop after the keyword into loop. The
// current token must be the loop variable.
func (ps *parser) parseForLike(loop *Node, missingName ErrorKind, keyword string) (*Node, error) {
	if ps.tok.Kind != TokWord || !IsName(ps.tok.Text) {
		return nil, newError(missingName, ps.tok, "expected a name after '%s', got %s", keyword, ps.tok)
	}
	name := ps.node(NodeVar)
	name.SetStr(ps.tok.Text)
	if err := ps.advance(); err != nil {
		loop.Free()
		return nil, err
	}
	loop.AddChild(ps.finish(name))

	fail := func(err error) (*Node, error) {
		loop.Free()
		return nil, err
	}
	if err := ps.skipNewlines(); err != nil {
		return fail(err)
	}
	if ps.isReserved(TokIn) {
		if err := ps.acceptReserved(TokIn, false); err != nil {
			return fail(err)
		}
		words := ps.node(NodeWordList)
		for ps.tok.Kind == TokWord || ps.tok.Kind == TokAssignmentWord {
			w, err := ps.word()
			if err != nil {
				words.Free()
				return fail(err)
			}
			words.AddChild(w)
		}
		loop.AddChild(ps.finish(words))
	}
	if err := ps.skipSequentialSep(); err != nil {
		return fail(err)
	}
	body, err := ps.parseDoGroup()
	if err != nil {
		return fail(err)
	}
	loop.AddChild(body)
	return ps.finish(loop), nil
}

// Skips an optional ";" or newline, and any newlines after it.
func (ps *parser) skipSequentialSep() error {
	if ps.tok.Kind == TokSemi || ps.tok.Kind == TokNewline {
		if err := ps.advance(); err != nil {
			return err
		}
	}
	return ps.skipNewlines()
}

// ArithFor = "for" "((" EXPR ";" EXPR ";" EXPR "))" sequential_sep DoGroup
//
// The three expressions are kept as the raw text between the delimiters.
func (ps *parser) parseArithFor(loop *Node) (*Node, error) {
	tok := ps.tok
	exprs, ok := splitArithFor(tok.Text)
	if !ok {
		eof := Token{Kind: TokEOF, Pos: tokenEndPos(tok), Src: tok.Src}
		err := newError(ErrUnexpectedEOF, eof,
			"unexpected end of arithmetic for loop, expected three expressions separated by ';'")
		// The "))" has been seen, so more input cannot fix this.
		err.atEOF = false
		return nil, err
	}
	// Offsets of the expressions within the token text.
	offset := tok.Pos.Offset + 2
	for _, expr := range exprs {
		e := NewNode(NodeArithExpr)
		e.SetStr(expr)
		e.Line = tok.Pos.Line
		e.From, e.To = offset, offset+len(expr)
		offset += len(expr) + 1
		loop.AddChild(e)
	}
	fail := func(err error) (*Node, error) {
		loop.Free()
		return nil, err
	}
	if err := ps.advance(); err != nil {
		return fail(err)
	}
	if err := ps.skipSequentialSep(); err != nil {
		return fail(err)
	}
	body, err := ps.parseDoGroup()
	if err != nil {
		return fail(err)
	}
	loop.AddChild(body)
	return ps.finish(loop), nil
}

// Splits the text of a "((...))" token into the three expressions of an
// arithmetic for loop. Only semicolons outside parentheses separate; the
// third expression takes the rest.
func splitArithFor(text string) ([]string, bool) {
	if !strings.HasPrefix(text, "((") || !strings.HasSuffix(text, "))") || len(text) < 4 {
		return nil, false
	}
	inner := text[2 : len(text)-2]
	var exprs []string
	depth, start := 0, 0
	for i := 0; i < len(inner) && len(exprs) < 2; i++ {
		switch inner[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ';':
			if depth == 0 {
				exprs = append(exprs, inner[start:i])
				start = i + 1
			}
		}
	}
	if len(exprs) < 2 {
		return nil, false
	}
	return append(exprs, inner[start:]), true
}

func tokenEndPos(tok Token) Position {
	pos := tok.Pos
	for i := 0; i < len(tok.Text); i++ {
		if tok.Text[i] == '\n' {
			pos.Line++
			pos.Col = 0
		}
		pos.Col++
	}
	pos.Offset += len(tok.Text)
	return pos
}

// While = "while" CompoundList DoGroup
func (ps *parser) parseWhile() (*Node, error) { return ps.parseLoop(NodeWhile) }

// Until = "until" CompoundList DoGroup
func (ps *parser) parseUntil() (*Node, error) { return ps.parseLoop(NodeUntil) }

// Parses a while or until loop. Both have the same shape and differ only in
// how the test is interpreted at execution time.
func (ps *parser) parseLoop(kind NodeKind) (*Node, error) {
	loop := ps.node(kind)
	if err := ps.advance(); err != nil {
		return nil, err
	}
	test, err := ps.parseCompoundList(TokDo)
	if err != nil {
		loop.Free()
		return nil, err
	}
	loop.AddChild(test)
	body, err := ps.parseDoGroup()
	if err != nil {
		loop.Free()
		return nil, err
	}
	loop.AddChild(body)
	return ps.finish(loop), nil
}

// DoGroup = "do" CompoundList "done"
//
// This is the body of every loop. The returned node is the List between the
// keywords.
func (ps *parser) parseDoGroup() (*Node, error) {
	if err := ps.acceptReserved(TokDo, true); err != nil {
		return nil, err
	}
	body, err := ps.parseCompoundList(TokDone)
	if err != nil {
		return nil, err
	}
	if err := ps.expect(TokDone); err != nil {
		body.Free()
		return nil, err
	}
	return body, nil
}
