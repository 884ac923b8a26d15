package parse

// SimpleCommand = { ASSIGNMENT | Redirect } { WORD | Redirect }
//
// A simple command that consists of a lone name followed by "()" is a
// function definition instead.
func (ps *parser) parseSimpleCommand() (*Node, error) {
	cmd := ps.node(NodeCommand)
	fail := func(err error) (*Node, error) {
		cmd.Free()
		return nil, err
	}
	sawWord := false
	for {
		switch kind := ps.tok.Kind; {
		case kind == TokAssignmentWord && !sawWord:
			a, err := ps.wordNode(NodeAssignment, ps.tok)
			if err != nil {
				return fail(err)
			}
			cmd.AddChild(a)
			if err := ps.advance(); err != nil {
				return fail(err)
			}
		case kind == TokWord || kind == TokAssignmentWord || (kind.IsReserved() && len(cmd.Children) > 0):
			if len(cmd.Children) == 0 && kind == TokWord && IsName(ps.tok.Text) {
				next, err := ps.peek()
				if err != nil {
					return fail(err)
				}
				if next.Kind == TokLParen {
					cmd.Free()
					return ps.parseFunctionDef(ps.node(NodeFunction))
				}
			}
			w, err := ps.word()
			if err != nil {
				return fail(err)
			}
			cmd.AddChild(w)
			sawWord = true
		case kind == TokIONumber || kind.IsRedirect():
			r, err := ps.parseRedirect()
			if err != nil {
				return fail(err)
			}
			cmd.AddChild(r)
		default:
			if len(cmd.Children) == 0 {
				return fail(ps.unexpected())
			}
			return ps.finish(cmd), nil
		}
	}
}

// Redirect = [ IO_NUMBER ] redirect-op WORD
func (ps *parser) parseRedirect() (*Node, error) {
	r := ps.node(NodeRedirect)
	num := int64(-1)
	if ps.tok.Kind == TokIONumber {
		num = atoiOr(ps.tok.Text, -1)
		if err := ps.advance(); err != nil {
			return nil, err
		}
	}
	switch op := ps.tok; {
	case op.Kind == TokDLess || op.Kind == TokDLessDash:
		return nil, newError(ErrUnsupported, op, "here-documents are not supported")
	case !op.Kind.IsRedirect():
		return nil, ps.unexpected()
	}
	r.Val = Value{Type: ValStr, Str: ps.tok.Text, Num: num}
	if err := ps.advance(); err != nil {
		return nil, err
	}
	if ps.tok.Kind != TokWord {
		return nil, ps.expected(TokWord)
	}
	target, err := ps.word()
	if err != nil {
		return nil, err
	}
	r.AddChild(target)
	return ps.finish(r), nil
}

// Subshell = "(" CompoundList ")"
func (ps *parser) parseSubshell() (*Node, error) {
	return ps.parseEnclosed(NodeSubshell, TokRParen)
}

// Group = "{" CompoundList "}"
func (ps *parser) parseGroup() (*Node, error) {
	return ps.parseEnclosed(NodeGroup, TokRBrace)
}

func (ps *parser) parseEnclosed(kind NodeKind, closing TokenKind) (*Node, error) {
	n := ps.node(kind)
	if err := ps.advance(); err != nil {
		return nil, err
	}
	list, err := ps.parseCompoundList(closing)
	if err != nil {
		return nil, err
	}
	n.AddChild(list)
	if err := ps.expect(closing); err != nil {
		n.Free()
		return nil, err
	}
	return ps.finish(n), nil
}

// Function = "function" NAME [ "(" ")" ] linebreak CompoundCommand
func (ps *parser) parseFunction() (*Node, error) {
	fn := ps.node(NodeFunction)
	if err := ps.advance(); err != nil {
		return nil, err
	}
	if ps.tok.Kind != TokWord || !IsName(ps.tok.Text) {
		return nil, newError(ErrExpectedToken, ps.tok, "expected a function name, got %s", ps.tok)
	}
	return ps.parseFunctionDef(fn)
}

// Parses a function definition from its name into fn. The current token is
// the name.
func (ps *parser) parseFunctionDef(fn *Node) (*Node, error) {
	fn.SetStr(ps.tok.Text)
	// The body starts in command position.
	if !ps.hasPeek {
		ps.lx.SetCommandPosition(true)
	}
	if err := ps.advance(); err != nil {
		return nil, err
	}
	if ps.tok.Kind == TokLParen {
		if err := ps.advance(); err != nil {
			return nil, err
		}
		if err := ps.expect(TokRParen); err != nil {
			return nil, err
		}
	}
	if err := ps.skipNewlines(); err != nil {
		return nil, err
	}
	if !startsCompound(ps.tok.Kind) {
		return nil, newError(ErrExpectedToken, ps.tok,
			"unexpected %s, expected a compound command as the body of function %s", ps.tok, fn.Str())
	}
	body, err := ps.parseCommand()
	if err != nil {
		return nil, err
	}
	fn.AddChild(body)
	return ps.finish(fn), nil
}

// ArithCommand = "((" EXPR "))"
func (ps *parser) parseArithCommand() (*Node, error) {
	n := ps.node(NodeArithCommand)
	tok := ps.tok
	expr := NewNode(NodeArithExpr)
	expr.SetStr(tok.Text[2 : len(tok.Text)-2])
	expr.Line = tok.Pos.Line
	expr.From, expr.To = tok.Pos.Offset+2, tok.End()-2
	n.AddChild(expr)
	if err := ps.advance(); err != nil {
		n.Free()
		return nil, err
	}
	return ps.finish(n), nil
}
