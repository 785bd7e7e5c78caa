package ast

import (
	"encoding/json"
	"testing"
)

func sampleQuoted() Node {
	return NewComposite(QuotedString, []Node{
		NewLeaf(StringCharacters, "a ", 1, 3),
		NewComposite(Eval, []Node{NewLeaf(Identifier, "Foo", 5, 8)}, 3, 9),
		NewLeaf(StringCharacters, " b", 9, 11),
	}, 0, 12)
}

func TestNodeType_String(t *testing.T) {
	tests := []struct {
		t    NodeType
		want string
	}{
		{QuotedString, "QuotedString"},
		{StringCharacters, "StringCharacters"},
		{Identifier, "Identifier"},
		{Eval, "Eval"},
		{TypeRef, "TypeRef"},
		{BinaryOperator, "BinaryOperator"},
		{UnaryOperator, "UnaryOperator"},
		{Whitespace, "Whitespace"},
		{NodeType(42), "NodeType(42)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.t.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseNodeType(t *testing.T) {
	got, err := ParseNodeType("typeref")
	if err != nil {
		t.Fatalf("ParseNodeType() error = %v", err)
	}
	if got != TypeRef {
		t.Errorf("ParseNodeType() = %v, want TypeRef", got)
	}

	if _, err := ParseNodeType("Item"); err == nil {
		t.Error("expected error for unknown node type")
	}
}

func TestNode_IsComposite(t *testing.T) {
	if NewLeaf(Identifier, "A", 0, 1).IsComposite() {
		t.Error("identifier should be a leaf")
	}
	if !NewComposite(Eval, nil, 0, 3).IsComposite() {
		t.Error("empty eval should still be composite")
	}
	if NewLeaf(BinaryOperator, "==", 0, 2).IsComposite() {
		t.Error("operator token should be a leaf")
	}
	bin := NewBinary("==", NewComposite(QuotedString, nil, 0, 2), NewComposite(QuotedString, nil, 4, 6))
	if !bin.IsComposite() {
		t.Error("folded binary should be composite")
	}
	if bin.Start != 0 || bin.End != 6 {
		t.Errorf("binary span = [%d,%d), want [0,6)", bin.Start, bin.End)
	}
}

func TestNode_Validate(t *testing.T) {
	tests := []struct {
		name    string
		node    Node
		wantErr bool
	}{
		{"valid quoted string", sampleQuoted(), false},
		{"empty eval", NewComposite(Eval, nil, 0, 3), false},
		{"inverted span", NewLeaf(Identifier, "A", 3, 1), true},
		{
			name: "overlapping children",
			node: NewComposite(QuotedString, []Node{
				NewLeaf(StringCharacters, "ab", 1, 3),
				NewLeaf(StringCharacters, "b", 2, 3),
			}, 0, 4),
			wantErr: true,
		},
		{
			name: "child past parent",
			node: NewComposite(Eval, []Node{
				NewLeaf(Identifier, "Foo", 2, 9),
			}, 0, 6),
			wantErr: true,
		},
		{
			name:    "composite with value",
			node:    Node{Type: Eval, Value: "x", Children: []Node{}, Start: 0, End: 3},
			wantErr: true,
		},
		{
			name:    "binary with one child",
			node:    NewComposite(BinaryOperator, []Node{NewLeaf(Identifier, "A", 0, 1)}, 0, 1),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.node.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNode_Render(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want string
	}{
		{"quoted string", sampleQuoted(), "'a $(Foo) b'"},
		{"type ref", NewLeaf(TypeRef, "System.IO.Path", 0, 19), "[System.IO.Path]::"},
		{"escaped quote", NewLeaf(StringCharacters, "O'Dee", 0, 6), `O\'Dee`},
		{"escaped eval open", NewLeaf(StringCharacters, "$(x", 0, 4), `\$(x`},
		{"lone dollar", NewLeaf(StringCharacters, "5$", 0, 2), "5$"},
		{
			name: "binary chain",
			node: NewBinary("And",
				NewBinary("==", NewComposite(Eval, []Node{NewLeaf(Identifier, "A", 2, 3)}, 0, 4), NewComposite(QuotedString, []Node{NewLeaf(StringCharacters, "x", 7, 8)}, 6, 9)),
				NewComposite(QuotedString, nil, 12, 14)),
			want: "$(A)=='x'And''",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.Render(); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNode_Text(t *testing.T) {
	src := "'a $(Foo) b'"
	n := sampleQuoted()
	if got := n.Text(src); got != src {
		t.Errorf("Text() = %q, want %q", got, src)
	}
	if got := n.Children[1].Text(src); got != "$(Foo)" {
		t.Errorf("Text() = %q, want %q", got, "$(Foo)")
	}
	if got := NewLeaf(Identifier, "x", 5, 50).Text(src); got != "" {
		t.Errorf("Text() out of range = %q, want empty", got)
	}
}

func TestNode_JSON(t *testing.T) {
	data, err := json.Marshal(NewComposite(Eval, []Node{NewLeaf(Identifier, "A.B", 2, 5)}, 0, 6))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `{"type":"Eval","children":[{"type":"Identifier","value":"A.B","start":2,"end":5}],"start":0,"end":6}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}

	var back Node
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back.Type != Eval || len(back.Children) != 1 || back.Children[0].Value != "A.B" {
		t.Errorf("Unmarshal() = %v", back)
	}
}

func TestPositionOf(t *testing.T) {
	src := "ab\ncdé\nf"
	tests := []struct {
		offset int
		want   Position
	}{
		{0, Position{Line: 1, Column: 1, Offset: 0}},
		{2, Position{Line: 1, Column: 3, Offset: 2}},
		{3, Position{Line: 2, Column: 1, Offset: 3}},
		{7, Position{Line: 2, Column: 4, Offset: 7}},
		{8, Position{Line: 3, Column: 1, Offset: 8}},
		{100, Position{Line: 3, Column: 2, Offset: 9}},
	}

	for _, tt := range tests {
		if got := PositionOf(src, tt.offset); got != tt.want {
			t.Errorf("PositionOf(%d) = %+v, want %+v", tt.offset, got, tt.want)
		}
	}
}

func TestWalk(t *testing.T) {
	var seen []string
	Walk(sampleQuoted(), func(n Node, depth int) bool {
		seen = append(seen, n.Type.String())
		return true
	})

	want := []string{"QuotedString", "StringCharacters", "Eval", "Identifier", "StringCharacters"}
	if len(seen) != len(want) {
		t.Fatalf("Walk visited %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("visit %d = %s, want %s", i, seen[i], want[i])
		}
	}

	var skipped int
	Walk(sampleQuoted(), func(n Node, depth int) bool {
		skipped++
		return n.Type != Eval
	})
	if skipped != 4 {
		t.Errorf("Walk with skip visited %d nodes, want 4", skipped)
	}
}

func TestCollectAndCount(t *testing.T) {
	nodes := []Node{sampleQuoted(), NewLeaf(Whitespace, " ", 12, 13)}

	idents := Collect(nodes, Identifier)
	if len(idents) != 1 || idents[0].Value != "Foo" {
		t.Errorf("Collect() = %v", idents)
	}

	counts := Count(nodes)
	if counts[StringCharacters] != 2 || counts[Whitespace] != 1 || counts[Eval] != 1 {
		t.Errorf("Count() = %v", counts)
	}
}
