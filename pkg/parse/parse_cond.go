package parse

// If = "if" CompoundList "then" CompoundList
//      { "elif" CompoundList "then" CompoundList }
//      [ "else" CompoundList ] "fi"
func (ps *parser) parseIf() (*Node, error) {
	n := ps.node(NodeIf)
	fail := func(err error) (*Node, error) {
		n.Free()
		return nil, err
	}
	if err := ps.advance(); err != nil {
		return fail(err)
	}
	for {
		cond, err := ps.parseCompoundList(TokThen)
		if err != nil {
			return fail(err)
		}
		n.AddChild(cond)
		if err := ps.acceptReserved(TokThen, true); err != nil {
			return fail(err)
		}
		body, err := ps.parseCompoundList(TokElif, TokElse, TokFi)
		if err != nil {
			return fail(err)
		}
		n.AddChild(body)
		if ps.tok.Kind != TokElif {
			break
		}
		if err := ps.advance(); err != nil {
			return fail(err)
		}
	}
	if ps.tok.Kind == TokElse {
		if err := ps.advance(); err != nil {
			return fail(err)
		}
		body, err := ps.parseCompoundList(TokFi)
		if err != nil {
			return fail(err)
		}
		n.AddChild(body)
	}
	if err := ps.expect(TokFi); err != nil {
		return fail(err)
	}
	return ps.finish(n), nil
}

// Case = "case" WORD linebreak "in" linebreak { CaseItem } "esac"
// CaseItem = [ "(" ] WORD { "|" WORD } ")" List [ ";;" | ";&" ] linebreak
func (ps *parser) parseCase() (*Node, error) {
	n := ps.node(NodeCase)
	fail := func(err error) (*Node, error) {
		n.Free()
		return nil, err
	}
	if err := ps.advance(); err != nil {
		return fail(err)
	}
	if ps.tok.Kind != TokWord {
		return fail(ps.expected(TokWord))
	}
	subject, err := ps.word()
	if err != nil {
		return fail(err)
	}
	n.AddChild(subject)
	if err := ps.skipNewlines(); err != nil {
		return fail(err)
	}
	// Patterns are read in command position so that "esac" is recognized.
	if err := ps.acceptReserved(TokIn, true); err != nil {
		return fail(err)
	}
	for {
		if err := ps.skipNewlines(); err != nil {
			return fail(err)
		}
		if ps.tok.Kind == TokEsac {
			break
		}
		item, err := ps.parseCaseItem()
		if err != nil {
			return fail(err)
		}
		n.AddChild(item)
	}
	if err := ps.expect(TokEsac); err != nil {
		return fail(err)
	}
	return ps.finish(n), nil
}

func (ps *parser) parseCaseItem() (*Node, error) {
	item := ps.node(NodeCaseItem)
	fail := func(err error) (*Node, error) {
		item.Free()
		return nil, err
	}
	if ps.tok.Kind == TokLParen {
		if err := ps.advance(); err != nil {
			return fail(err)
		}
	}
	patterns := ps.node(NodeWordList)
	item.AddChild(patterns)
	for {
		// Reserved words are plain patterns here.
		if ps.tok.Kind != TokWord && ps.tok.Kind != TokAssignmentWord && !ps.tok.Kind.IsReserved() {
			return fail(ps.expected(TokWord))
		}
		w, err := ps.word()
		if err != nil {
			return fail(err)
		}
		patterns.AddChild(w)
		if ps.tok.Kind != TokPipe {
			break
		}
		if err := ps.advance(); err != nil {
			return fail(err)
		}
	}
	ps.finish(patterns)
	if err := ps.expect(TokRParen); err != nil {
		return fail(err)
	}
	body, err := ps.parseList(TokDSemi, TokSemiAnd, TokEsac)
	if err != nil {
		return fail(err)
	}
	item.AddChild(body)
	switch ps.tok.Kind {
	case TokDSemi, TokSemiAnd:
		item.SetStr(ps.tok.Text)
		if err := ps.advance(); err != nil {
			return fail(err)
		}
	case TokEsac:
		item.SetStr(";;")
	default:
		return fail(ps.expected(TokEsac))
	}
	return ps.finish(item), nil
}
