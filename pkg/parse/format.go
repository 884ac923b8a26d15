package parse

import (
	"strconv"
	"strings"
)

// Format renders the tree rooted at n as source code that parses back to an
// equivalent tree. Words are reproduced from their raw text; layout and
// comments are not preserved.
func Format(n *Node) string {
	var sb strings.Builder
	format(&sb, n)
	return sb.String()
}

func format(sb *strings.Builder, n *Node) {
	body, redirs := splitRedirs(n)
	switch n.Kind {
	case NodeList:
		for i, ch := range n.Children {
			if i > 0 {
				if n.Children[i-1].Kind == NodeBackground {
					sb.WriteString(" ")
				} else {
					sb.WriteString("; ")
				}
			}
			format(sb, ch)
		}
	case NodeBackground:
		format(sb, n.Children[0])
		sb.WriteString(" &")
	case NodeAnd, NodeOr:
		op := " && "
		if n.Kind == NodeOr {
			op = " || "
		}
		format(sb, n.Children[0])
		sb.WriteString(op)
		format(sb, n.Children[1])
	case NodeNot:
		sb.WriteString("! ")
		format(sb, n.Children[0])
	case NodePipe:
		for i, ch := range n.Children {
			if i > 0 {
				sb.WriteString(" | ")
			}
			format(sb, ch)
		}
	case NodeCommand:
		for i, ch := range n.Children {
			if i > 0 {
				sb.WriteString(" ")
			}
			format(sb, ch)
		}
	case NodeWord, NodeAssignment, NodeVar, NodeArithExpr:
		sb.WriteString(n.Val.Str)
	case NodeRedirect:
		if n.Val.Num >= 0 {
			sb.WriteString(strconv.FormatInt(n.Val.Num, 10))
		}
		sb.WriteString(n.Val.Str)
		format(sb, n.Children[0])
	case NodeWordList:
		for _, ch := range n.Children {
			sb.WriteString(" ")
			format(sb, ch)
		}
	case NodeFor, NodeSelect:
		if n.Kind == NodeFor {
			sb.WriteString("for ")
		} else {
			sb.WriteString("select ")
		}
		if body[0].Kind == NodeArithExpr {
			sb.WriteString("((")
			for i := 0; i < 3; i++ {
				if i > 0 {
					sb.WriteString(";")
				}
				format(sb, body[i])
			}
			sb.WriteString("))")
		} else {
			format(sb, body[0])
			if body[1].Kind == NodeWordList {
				sb.WriteString(" in")
				format(sb, body[1])
			}
		}
		sb.WriteString("; ")
		formatDoGroup(sb, body[len(body)-1])
	case NodeWhile, NodeUntil:
		if n.Kind == NodeWhile {
			sb.WriteString("while ")
		} else {
			sb.WriteString("until ")
		}
		formatTerminated(sb, body[0])
		formatDoGroup(sb, body[1])
	case NodeIf:
		for i := 0; i+1 < len(body); i += 2 {
			if i == 0 {
				sb.WriteString("if ")
			} else {
				sb.WriteString("elif ")
			}
			formatTerminated(sb, body[i])
			sb.WriteString("then ")
			formatTerminated(sb, body[i+1])
		}
		if len(body)%2 == 1 {
			sb.WriteString("else ")
			formatTerminated(sb, body[len(body)-1])
		}
		sb.WriteString("fi")
	case NodeCase:
		sb.WriteString("case ")
		format(sb, body[0])
		sb.WriteString(" in")
		for _, item := range body[1:] {
			sb.WriteString(" ")
			format(sb, item)
		}
		sb.WriteString(" esac")
	case NodeCaseItem:
		sb.WriteString("(")
		for i, p := range n.Children[0].Children {
			if i > 0 {
				sb.WriteString(" | ")
			}
			format(sb, p)
		}
		sb.WriteString(") ")
		format(sb, n.Children[1])
		sb.WriteString(" ")
		sb.WriteString(n.Val.Str)
	case NodeSubshell:
		sb.WriteString("( ")
		format(sb, body[0])
		sb.WriteString(" )")
	case NodeGroup:
		sb.WriteString("{ ")
		formatTerminated(sb, body[0])
		sb.WriteString("}")
	case NodeFunction:
		sb.WriteString(n.Val.Str)
		sb.WriteString("() ")
		format(sb, n.Children[0])
	case NodeArithCommand:
		sb.WriteString("((")
		format(sb, body[0])
		sb.WriteString("))")
	case NodeCommandSubst:
		sb.WriteString(n.Val.Str)
	}
	for _, r := range redirs {
		sb.WriteString(" ")
		format(sb, r)
	}
}

func formatDoGroup(sb *strings.Builder, body *Node) {
	sb.WriteString("do ")
	formatTerminated(sb, body)
	sb.WriteString("done")
}

// Writes a list followed by a separator, so that a reserved word can come
// next. A list that ends in "&" needs no ";".
func formatTerminated(sb *strings.Builder, list *Node) {
	format(sb, list)
	if n := len(list.Children); n > 0 && list.Children[n-1].Kind == NodeBackground {
		sb.WriteString(" ")
	} else {
		sb.WriteString("; ")
	}
}

// Separates the redirections trailing a compound command from its other
// children. Simple commands keep their redirections inline.
func splitRedirs(n *Node) (body, redirs []*Node) {
	switch n.Kind {
	case NodeCommand, NodeRedirect:
		return n.Children, nil
	}
	body = n.Children
	for len(body) > 0 && body[len(body)-1].Kind == NodeRedirect {
		redirs = append([]*Node{body[len(body)-1]}, redirs...)
		body = body[:len(body)-1]
	}
	return body, redirs
}
