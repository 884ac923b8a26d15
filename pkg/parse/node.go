package parse

import (
	"fmt"
	"strconv"

	"src.lsh.sh/pkg/diag"
)

// NodeKind is the type of a syntax-tree node.
type NodeKind int

// Node kinds. The comment after each kind describes its value and children.
const (
	// Sequence of commands run in order. Children: commands.
	NodeList NodeKind = iota
	// A command followed by "&". Children: the command.
	NodeBackground
	// "a && b". Children: the two operands.
	NodeAnd
	// "a || b". Children: the two operands.
	NodeOr
	// "! pipeline". Children: the pipeline.
	NodeNot
	// "a | b | c". Children: at least two commands.
	NodePipe
	// A simple command. Children: Assignment, Word and Redirect nodes in
	// source order.
	NodeCommand
	// A word. Value: raw text. Children: CommandSubst nodes, in order.
	NodeWord
	// "NAME=value". Value: raw text. Children: CommandSubst nodes.
	NodeAssignment
	// A redirection. Value: the operator; Num: the io number or -1.
	// Children: the target Word.
	NodeRedirect
	// A variable name. Value: the name.
	NodeVar
	// Words after "in". Children: Word nodes.
	NodeWordList
	// for. Children: Var, optional WordList, body List. The arithmetic form
	// has three ArithExpr children and the body List instead.
	NodeFor
	// select. Children: Var, optional WordList, body List.
	NodeSelect
	// while. Children: test List, body List.
	NodeWhile
	// until. Children: test List, body List.
	NodeUntil
	// if. Children: condition List, then List, then alternately further
	// condition/then pairs for elif, and an optional else List.
	NodeIf
	// case. Children: the subject Word, then CaseItem nodes.
	NodeCase
	// A case item. Value: the terminator (";;" or ";&"). Children: WordList
	// of patterns, body List.
	NodeCaseItem
	// "( list )". Children: the List.
	NodeSubshell
	// "{ list; }". Children: the List.
	NodeGroup
	// Function definition. Value: the name. Children: the body command.
	NodeFunction
	// An arithmetic expression. Value: its raw text.
	NodeArithExpr
	// "((expr))". Children: one ArithExpr.
	NodeArithCommand
	// "$(...)" or "`...`" inside a word. Value: the raw text of the
	// substitution. Children: the parsed List.
	NodeCommandSubst
)

var nodeKindNames = [...]string{
	NodeList:         "List",
	NodeBackground:   "Background",
	NodeAnd:          "And",
	NodeOr:           "Or",
	NodeNot:          "Not",
	NodePipe:         "Pipe",
	NodeCommand:      "Command",
	NodeWord:         "Word",
	NodeAssignment:   "Assignment",
	NodeRedirect:     "Redirect",
	NodeVar:          "Var",
	NodeWordList:     "WordList",
	NodeFor:          "For",
	NodeSelect:       "Select",
	NodeWhile:        "While",
	NodeUntil:        "Until",
	NodeIf:           "If",
	NodeCase:         "Case",
	NodeCaseItem:     "CaseItem",
	NodeSubshell:     "Subshell",
	NodeGroup:        "Group",
	NodeFunction:     "Function",
	NodeArithExpr:    "ArithExpr",
	NodeArithCommand: "ArithCommand",
	NodeCommandSubst: "CommandSubst",
}

func (k NodeKind) String() string {
	if 0 <= k && int(k) < len(nodeKindNames) {
		return nodeKindNames[k]
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// ValType is the type of the literal value of a Node.
type ValType int

// Value types.
const (
	ValNone ValType = iota
	ValStr
	ValNum
)

// Value is the optional literal value of a Node.
type Value struct {
	Type ValType
	Str  string
	Num  int64
}

func (v Value) String() string {
	switch v.Type {
	case ValStr:
		return strconv.Quote(v.Str)
	case ValNum:
		return strconv.FormatInt(v.Num, 10)
	}
	return ""
}

// Node is a syntax-tree node. Each node exclusively owns its children; the
// tree has no parent pointers.
type Node struct {
	Kind     NodeKind
	Val      Value
	Children []*Node
	// Line is the 1-based line where the construct starts.
	Line int
	diag.Ranging

	owned bool
}

// NewNode allocates a zero-initialized node of the given kind.
func NewNode(kind NodeKind) *Node {
	return &Node{Kind: kind}
}

// AddChild appends child to n, transferring its ownership to n. Adding a
// node that already belongs to another parent is a programming error and
// panics.
func (n *Node) AddChild(child *Node) {
	if child.owned {
		panic(fmt.Sprintf("parse: %s node already has a parent", child.Kind))
	}
	child.owned = true
	n.Children = append(n.Children, child)
}

// SetStr sets the literal value of n to a string.
func (n *Node) SetStr(s string) { n.Val = Value{Type: ValStr, Str: s} }

// SetNum sets the literal value of n to a number.
func (n *Node) SetNum(i int64) { n.Val = Value{Type: ValNum, Num: i} }

// Str returns the string value of n, or "" if it has none.
func (n *Node) Str() string { return n.Val.Str }

// Child returns the i-th child, or nil if there is none.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// Free releases the tree rooted at n in post order, dropping every child
// reference. It is called on partially built trees on error paths so that
// nothing of them stays reachable. n must not be used afterwards.
func (n *Node) Free() {
	if n == nil {
		return
	}
	for _, ch := range n.Children {
		ch.Free()
	}
	n.Children = nil
	n.Val = Value{}
	n.owned = false
}

// Walk calls f for n and its descendants in pre-order. If f returns false,
// the children of that node are skipped.
func Walk(n *Node, f func(*Node) bool) {
	if n == nil || !f(n) {
		return
	}
	for _, ch := range n.Children {
		Walk(ch, f)
	}
}

// FindInnermost returns the deepest node whose range contains the offset,
// or nil.
func FindInnermost(n *Node, offset int) *Node {
	var found *Node
	Walk(n, func(m *Node) bool {
		if m.From <= offset && offset <= m.To {
			found = m
			return true
		}
		return false
	})
	return found
}
