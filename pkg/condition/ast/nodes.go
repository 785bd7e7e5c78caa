// ============================================================================
// condparse - MSBuild-style condition expression parser
// ============================================================================
//
// Package:     ast
// Description: Node and node type definitions for parsed condition expressions
// Created:     2026-10-18
// License:     MIT
// ============================================================================

package ast

import (
	"fmt"
	"strings"
)

// NodeType identifies what a node represents
type NodeType int

const (
	QuotedString NodeType = iota
	StringCharacters
	Identifier
	Eval
	TypeRef
	BinaryOperator
	UnaryOperator
	Whitespace
)

var nodeTypeNames = [...]string{
	QuotedString:     "QuotedString",
	StringCharacters: "StringCharacters",
	Identifier:       "Identifier",
	Eval:             "Eval",
	TypeRef:          "TypeRef",
	BinaryOperator:   "BinaryOperator",
	UnaryOperator:    "UnaryOperator",
	Whitespace:       "Whitespace",
}

// String returns the name of the node type
func (t NodeType) String() string {
	if t < 0 || int(t) >= len(nodeTypeNames) {
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
	return nodeTypeNames[t]
}

// ParseNodeType resolves a node type from its name
func ParseNodeType(name string) (NodeType, error) {
	for i, n := range nodeTypeNames {
		if strings.EqualFold(n, name) {
			return NodeType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown node type: %q", name)
}

// MarshalText implements encoding.TextMarshaler
func (t NodeType) MarshalText() ([]byte, error) {
	if t < 0 || int(t) >= len(nodeTypeNames) {
		return nil, fmt.Errorf("invalid node type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *NodeType) UnmarshalText(text []byte) error {
	parsed, err := ParseNodeType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// IsComposite reports whether nodes of this type carry children instead of a value.
// BinaryOperator is composite once folded by the binary chain; the bare
// operator token is a leaf.
func (t NodeType) IsComposite() bool {
	switch t {
	case QuotedString, Eval:
		return true
	default:
		return false
	}
}

// Node is a single element of the parsed tree.
//
// Leaf nodes carry Value, composite nodes carry Children. Start and End form
// the half-open byte range [Start, End) in the original source.
type Node struct {
	Type     NodeType `json:"type" yaml:"type"`
	Value    string   `json:"value,omitempty" yaml:"value,omitempty"`
	Operator string   `json:"operator,omitempty" yaml:"operator,omitempty"`
	Children []Node   `json:"children,omitempty" yaml:"children,omitempty"`
	Start    int      `json:"start" yaml:"start"`
	End      int      `json:"end" yaml:"end"`
}

// NewLeaf creates a leaf node
func NewLeaf(t NodeType, value string, start, end int) Node {
	return Node{Type: t, Value: value, Start: start, End: end}
}

// NewComposite creates a composite node. A nil children slice is stored as an
// empty slice so that an empty evaluation body still reads as composite.
func NewComposite(t NodeType, children []Node, start, end int) Node {
	if children == nil {
		children = []Node{}
	}
	return Node{Type: t, Children: children, Start: start, End: end}
}

// NewBinary folds two operands into a BinaryOperator composite
func NewBinary(op string, left, right Node) Node {
	n := NewComposite(BinaryOperator, []Node{left, right}, left.Start, right.End)
	n.Operator = op
	return n
}

// IsComposite reports whether the node carries children
func (n Node) IsComposite() bool {
	return n.Children != nil || n.Type.IsComposite()
}

// Len returns the number of source bytes the node spans
func (n Node) Len() int {
	return n.End - n.Start
}

// Text returns the slice of src covered by the node
func (n Node) Text(src string) string {
	if n.Start < 0 || n.End > len(src) || n.Start > n.End {
		return ""
	}
	return src[n.Start:n.End]
}

// Render reconstructs canonical source text for the node.
// Characters that were escaped in a string run are escaped again, so
// rendering is stable even where the original used redundant escapes.
func (n Node) Render() string {
	var sb strings.Builder
	n.render(&sb)
	return sb.String()
}

func (n Node) render(sb *strings.Builder) {
	switch n.Type {
	case QuotedString:
		sb.WriteByte('\'')
		for _, c := range n.Children {
			c.render(sb)
		}
		sb.WriteByte('\'')
	case Eval:
		sb.WriteString("$(")
		for _, c := range n.Children {
			c.render(sb)
		}
		sb.WriteByte(')')
	case TypeRef:
		sb.WriteByte('[')
		sb.WriteString(n.Value)
		sb.WriteString("]::")
	case StringCharacters:
		sb.WriteString(escapeCharacters(n.Value))
	case BinaryOperator:
		if !n.IsComposite() {
			sb.WriteString(n.Value)
			return
		}
		for i, c := range n.Children {
			if i > 0 {
				sb.WriteString(n.Operator)
			}
			c.render(sb)
		}
	default:
		sb.WriteString(n.Value)
	}
}

func escapeCharacters(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' || s[i] == '\'':
			sb.WriteByte('\\')
		case s[i] == '$' && i+1 < len(s) && s[i+1] == '(':
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// String returns a compact s-expression form of the node
func (n Node) String() string {
	var sb strings.Builder
	sb.WriteString(n.Type.String())
	fmt.Fprintf(&sb, "[%d,%d)", n.Start, n.End)
	if !n.IsComposite() {
		fmt.Fprintf(&sb, "(%q)", n.Value)
		return sb.String()
	}
	if n.Operator != "" {
		fmt.Fprintf(&sb, "<%s>", n.Operator)
	}
	sb.WriteByte('(')
	for i, c := range n.Children {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// Validate checks the structural invariants of the node and its descendants
func (n Node) Validate() error {
	if n.Start < 0 || n.End < n.Start {
		return fmt.Errorf("%s: invalid span [%d,%d)", n.Type, n.Start, n.End)
	}
	if !n.IsComposite() {
		return nil
	}
	if n.Value != "" {
		return fmt.Errorf("%s[%d,%d): composite node has a value", n.Type, n.Start, n.End)
	}
	if n.Type == BinaryOperator && len(n.Children) != 2 {
		return fmt.Errorf("BinaryOperator[%d,%d): expected 2 children, got %d", n.Start, n.End, len(n.Children))
	}
	prevEnd := n.Start
	for i, c := range n.Children {
		if c.Start < prevEnd {
			return fmt.Errorf("%s[%d,%d): child %d starts at %d before %d", n.Type, n.Start, n.End, i, c.Start, prevEnd)
		}
		if c.End > n.End {
			return fmt.Errorf("%s[%d,%d): child %d ends at %d past parent", n.Type, n.Start, n.End, i, c.End)
		}
		if err := c.Validate(); err != nil {
			return err
		}
		prevEnd = c.End
	}
	return nil
}

// Position is a human-oriented location in the source
type Position struct {
	Line   int `json:"line" yaml:"line"`     // Line number (1-based)
	Column int `json:"column" yaml:"column"` // Column number in runes (1-based)
	Offset int `json:"offset" yaml:"offset"` // Byte offset (0-based)
}

// String returns "line:column"
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// PositionOf converts a byte offset in src into a Position
func PositionOf(src string, offset int) Position {
	if offset > len(src) {
		offset = len(src)
	}
	if offset < 0 {
		offset = 0
	}
	head := src[:offset]
	line := strings.Count(head, "\n") + 1
	lineStart := strings.LastIndexByte(head, '\n') + 1
	return Position{
		Line:   line,
		Column: len([]rune(head[lineStart:])) + 1,
		Offset: offset,
	}
}
