package parse

import (
	"strings"

	"src.lsh.sh/pkg/diag"
)

// Finds the command substitutions in the word token tok and adds them to n
// as CommandSubst nodes. Substitutions inside single quotes and arithmetic
// expansions are left alone.
func (ps *parser) addSubstitutions(n *Node, tok Token) error {
	if !strings.ContainsAny(tok.Text, "$`") {
		return nil
	}
	src := tok.Src
	code := src.Code
	lx := &Lexer{src: src, pos: tok.Pos.Offset,
		line: tok.Pos.Line, lineStart: tok.Pos.Offset - tok.Pos.Col + 1}
	begin, end := tok.Pos.Offset, tok.End()
	inDouble := false
	for i := begin; i < end; {
		switch c := code[i]; {
		case c == '\\':
			i += 2
		case c == '\'' && !inDouble:
			i += strings.IndexByte(code[i+1:], '\'') + 2
		case c == '"':
			inDouble = !inDouble
			i++
		case strings.HasPrefix(code[i:], "$(("):
			j, _ := matchDoubleParen(code, i+3)
			i = j
		case strings.HasPrefix(code[i:], "${"):
			j, err := lx.scanNested(i, i+2, '}', "unterminated '${'")
			if err != nil {
				return err
			}
			i = j
		case strings.HasPrefix(code[i:], "$("):
			j, err := lx.scanNested(i, i+2, ')', "unterminated '$('")
			if err != nil {
				return err
			}
			// Parse the body in place, so that positions in it are positions
			// in the whole source.
			inner := &Source{Name: src.Name, Code: code[:j-1], IsFile: src.IsFile}
			list, err := ps.parseSub(inner, i+2)
			if err != nil {
				return fixSubError(err, src)
			}
			n.AddChild(substNode(code, i, j, begin, tok.Pos.Line, list))
			i = j
		case c == '`':
			j := i + 1
			var body strings.Builder
			for code[j] != '`' {
				if code[j] == '\\' && j+1 < end && strings.IndexByte("\\`$", code[j+1]) >= 0 {
					j++
				}
				body.WriteByte(code[j])
				j++
			}
			j++
			inner := &Source{Name: src.Name, Code: body.String()}
			list, err := ps.parseSub(inner, 0)
			if err != nil {
				return fixSubError(err, inner)
			}
			n.AddChild(substNode(code, i, j, begin, tok.Pos.Line, list))
			i = j
		default:
			i++
		}
	}
	return nil
}

func substNode(code string, from, to, wordBegin, line int, list *Node) *Node {
	s := NewNode(NodeCommandSubst)
	s.Val = Value{Type: ValStr, Str: code[from:to], Num: int64(from - wordBegin)}
	s.Line = line + strings.Count(code[wordBegin:from], "\n")
	s.Ranging = diag.Ranging{From: from, To: to}
	s.AddChild(list)
	return s
}

// Parses the body of a command substitution, which is the part of src after
// start.
func (ps *parser) parseSub(src *Source, start int) (*Node, error) {
	sub := newParser(src, start, ps.cfg)
	if err := sub.advance(); err != nil {
		return nil, err
	}
	list, err := sub.parseList()
	if err != nil {
		return nil, err
	}
	if sub.tok.Kind != TokEOF {
		list.Free()
		return nil, sub.unexpected()
	}
	return list, nil
}

// The body of a substitution ends before the closing delimiter, so running
// out of input there does not mean that more input could complete it.
func fixSubError(err error, src *Source) error {
	if e, ok := err.(*Error); ok {
		e.atEOF = false
		e.Token.Src = src
		e.Context = *diag.NewContext(src.Name, src.Code, e.Context.Ranging)
	}
	return err
}
