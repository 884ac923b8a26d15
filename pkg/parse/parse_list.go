package parse

// parseList parses a list of and-or lists separated by ";", "&" or
// newlines. It stops before EOF or any of the terminators, which may be
// reserved words or operators; the caller consumes the terminator. The list
// may be empty.
func (ps *parser) parseList(terminators ...TokenKind) (*Node, error) {
	list := ps.node(NodeList)
	for {
		if err := ps.skipNewlines(); err != nil {
			list.Free()
			return nil, err
		}
		if ps.tok.Kind == TokEOF || isOneOf(ps.tok.Kind, terminators) {
			break
		}
		cmd, err := ps.parseAndOr()
		if err != nil {
			list.Free()
			return nil, err
		}
		switch ps.tok.Kind {
		case TokAmp:
			bg := NewNode(NodeBackground)
			bg.Line, bg.From = cmd.Line, cmd.From
			bg.AddChild(cmd)
			if err := ps.advance(); err != nil {
				bg.Free()
				list.Free()
				return nil, err
			}
			list.AddChild(ps.finish(bg))
			continue
		case TokSemi, TokNewline:
			list.AddChild(cmd)
			if err := ps.advance(); err != nil {
				list.Free()
				return nil, err
			}
			continue
		}
		list.AddChild(cmd)
		break
	}
	return ps.finish(list), nil
}

// parseCompoundList is like parseList, but the list must not be empty.
func (ps *parser) parseCompoundList(terminators ...TokenKind) (*Node, error) {
	list, err := ps.parseList(terminators...)
	if err != nil {
		return nil, err
	}
	if len(list.Children) == 0 {
		list.Free()
		return nil, ps.unexpected()
	}
	return list, nil
}

func isOneOf(kind TokenKind, kinds []TokenKind) bool {
	for _, k := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}

// AndOr = Pipeline { ("&&" | "||") linebreak Pipeline }
func (ps *parser) parseAndOr() (*Node, error) {
	left, err := ps.parsePipeline()
	if err != nil {
		return nil, err
	}
	for ps.tok.Kind == TokAndIf || ps.tok.Kind == TokOrIf {
		kind := NodeAnd
		if ps.tok.Kind == TokOrIf {
			kind = NodeOr
		}
		if err := ps.advance(); err == nil {
			err = ps.skipNewlines()
		}
		if err != nil {
			left.Free()
			return nil, err
		}
		right, err := ps.parsePipeline()
		if err != nil {
			left.Free()
			return nil, err
		}
		n := NewNode(kind)
		n.Line, n.From = left.Line, left.From
		n.AddChild(left)
		n.AddChild(right)
		left = ps.finish(n)
	}
	return left, nil
}

// Pipeline = [ "!" ] Command { "|" linebreak Command }
func (ps *parser) parsePipeline() (*Node, error) {
	var not *Node
	if ps.tok.Kind == TokBang {
		not = ps.node(NodeNot)
		if err := ps.advance(); err != nil {
			return nil, err
		}
	}
	cmd, err := ps.parseCommand()
	if err != nil {
		return nil, err
	}
	if ps.tok.Kind == TokPipe {
		pipe := NewNode(NodePipe)
		pipe.Line, pipe.From = cmd.Line, cmd.From
		pipe.AddChild(cmd)
		for ps.tok.Kind == TokPipe {
			if err := ps.advance(); err == nil {
				err = ps.skipNewlines()
			}
			if err != nil {
				pipe.Free()
				return nil, err
			}
			next, err := ps.parseCommand()
			if err != nil {
				pipe.Free()
				return nil, err
			}
			pipe.AddChild(next)
		}
		cmd = ps.finish(pipe)
	}
	if not != nil {
		not.AddChild(cmd)
		return ps.finish(not), nil
	}
	return cmd, nil
}

// parseCommand dispatches on the current token to the parser of a compound
// command or a simple command. Redirections after a compound command are
// appended to its children.
func (ps *parser) parseCommand() (*Node, error) {
	var parse func() (*Node, error)
	switch ps.tok.Kind {
	case TokFor:
		parse = ps.parseFor
	case TokSelect:
		parse = ps.parseSelect
	case TokWhile:
		parse = ps.parseWhile
	case TokUntil:
		parse = ps.parseUntil
	case TokIf:
		parse = ps.parseIf
	case TokCase:
		parse = ps.parseCase
	case TokLParen:
		parse = ps.parseSubshell
	case TokLBrace:
		parse = ps.parseGroup
	case TokFunction:
		parse = ps.parseFunction
	case TokArith:
		parse = ps.parseArithCommand
	case TokWord, TokAssignmentWord, TokIONumber:
		return ps.parseSimpleCommand()
	default:
		if ps.tok.Kind.IsRedirect() {
			return ps.parseSimpleCommand()
		}
		return nil, ps.unexpected()
	}
	n, err := parse()
	if err != nil {
		return nil, err
	}
	for ps.tok.Kind == TokIONumber || ps.tok.Kind.IsRedirect() {
		r, err := ps.parseRedirect()
		if err != nil {
			n.Free()
			return nil, err
		}
		n.AddChild(r)
		ps.finish(n)
	}
	return n, nil
}

// startsCompound reports whether a token kind starts a compound command.
func startsCompound(kind TokenKind) bool {
	switch kind {
	case TokFor, TokSelect, TokWhile, TokUntil, TokIf, TokCase,
		TokLParen, TokLBrace, TokArith:
		return true
	}
	return false
}
