package parse

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

const (
	maxL      = 10
	maxR      = 10
	indentInc = 2
)

// Pprint pretty-prints the tree rooted at n to w, one node per line. Each
// line shows the kind, the value if any, and the source range of the node.
func Pprint(w io.Writer, n *Node) {
	pprintRec(w, n, 0)
}

func pprintRec(w io.Writer, n *Node, indent int) {
	fmt.Fprintf(w, "%*s%s\n", indent, "", summary(n))
	for _, ch := range n.Children {
		pprintRec(w, ch, indent+indentInc)
	}
}

func summary(n *Node) string {
	s := n.Kind.String()
	switch n.Val.Type {
	case ValStr:
		s += " " + compactQuote(n.Val.Str)
		if n.Kind == NodeRedirect && n.Val.Num >= 0 {
			s += " fd=" + strconv.FormatInt(n.Val.Num, 10)
		}
	case ValNum:
		s += " " + strconv.FormatInt(n.Val.Num, 10)
	}
	return fmt.Sprintf("%s %d-%d", s, n.From, n.To)
}

func compactQuote(text string) string {
	if len(text) > maxL+maxR+3 {
		text = text[0:maxL] + "..." + text[len(text)-maxR:]
	}
	return strconv.Quote(text)
}

type jsonNode struct {
	Kind     string  `json:"kind"`
	Value    any     `json:"value,omitempty"`
	Line     int     `json:"line"`
	From     int     `json:"from"`
	To       int     `json:"to"`
	Children []*Node `json:"children,omitempty"`
}

// MarshalJSON encodes the tree rooted at n as JSON.
func (n *Node) MarshalJSON() ([]byte, error) {
	jn := jsonNode{Kind: n.Kind.String(), Line: n.Line, From: n.From, To: n.To, Children: n.Children}
	switch n.Val.Type {
	case ValStr:
		jn.Value = n.Val.Str
	case ValNum:
		jn.Value = n.Val.Num
	}
	return json.Marshal(jn)
}
