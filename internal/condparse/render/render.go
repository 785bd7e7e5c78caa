// ============================================================================
// condparse - MSBuild-style condition expression parser
// ============================================================================
//
// Package:     render
// Description: Text, JSON and YAML output for parse trees and parse errors
// Created:     2026-10-18
// License:     MIT
// ============================================================================

package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"gopkg.in/yaml.v3"

	"github.com/msto63/condparse/pkg/condition/ast"
	"github.com/msto63/condparse/pkg/condition/parser"
	cperrors "github.com/msto63/condparse/pkg/core/errors"
)

// Format selects the output encoding
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses an output format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", cperrors.Newf("unknown output format %q", s).
			WithCode(cperrors.CodeInvalidInput).
			WithDetail("format", s)
	}
}

// ColorMode controls styling of text output
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// Renderer formats trees and errors. Text output is styled with lipgloss
// according to the color mode.
type Renderer struct {
	lg     *lipgloss.Renderer
	styles styles
}

type styles struct {
	nodeType lipgloss.Style
	operator lipgloss.Style
	value    lipgloss.Style
	span     lipgloss.Style
	branch   lipgloss.Style
	errMsg   lipgloss.Style
	caret    lipgloss.Style
	expected lipgloss.Style
}

// New creates a renderer for output written to w
func New(w io.Writer, mode ColorMode) *Renderer {
	lg := lipgloss.NewRenderer(w)
	switch mode {
	case ColorNever:
		lg.SetColorProfile(termenv.Ascii)
	case ColorAlways:
		lg.SetColorProfile(termenv.ANSI256)
	}

	return &Renderer{
		lg: lg,
		styles: styles{
			nodeType: lg.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
			operator: lg.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
			value:    lg.NewStyle().Foreground(lipgloss.Color("#10B981")),
			span:     lg.NewStyle().Foreground(lipgloss.Color("#6B7280")),
			branch:   lg.NewStyle().Foreground(lipgloss.Color("#6B7280")),
			errMsg:   lg.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444")),
			caret:    lg.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444")),
			expected: lg.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		},
	}
}

// Write encodes nodes in the given format and writes them to w
func (r *Renderer) Write(w io.Writer, nodes []ast.Node, format Format) error {
	var data []byte
	var err error
	switch format {
	case FormatJSON:
		data, err = JSON(nodes)
	case FormatYAML:
		data, err = YAML(nodes)
	default:
		data = []byte(r.Tree(nodes))
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Tree renders nodes as an indented tree, one node per line
func (r *Renderer) Tree(nodes []ast.Node) string {
	if len(nodes) == 0 {
		return r.styles.span.Render("(empty)") + "\n"
	}
	var sb strings.Builder
	for _, n := range nodes {
		r.writeNode(&sb, n, "", "")
	}
	return sb.String()
}

func (r *Renderer) writeNode(sb *strings.Builder, n ast.Node, prefix, childPrefix string) {
	sb.WriteString(r.styles.branch.Render(prefix))
	sb.WriteString(r.label(n))
	sb.WriteByte('\n')

	for i, c := range n.Children {
		if i == len(n.Children)-1 {
			r.writeNode(sb, c, childPrefix+"└── ", childPrefix+"    ")
		} else {
			r.writeNode(sb, c, childPrefix+"├── ", childPrefix+"│   ")
		}
	}
}

// label formats a single node, e.g. Identifier [5,8) "Foo"
func (r *Renderer) label(n ast.Node) string {
	parts := []string{r.styles.nodeType.Render(n.Type.String())}
	if n.Operator != "" {
		parts = append(parts, r.styles.operator.Render(n.Operator))
	}
	parts = append(parts, r.styles.span.Render(fmt.Sprintf("[%d,%d)", n.Start, n.End)))
	if !n.IsComposite() {
		parts = append(parts, r.styles.value.Render(fmt.Sprintf("%q", n.Value)))
	}
	return strings.Join(parts, " ")
}

// ParseError renders a syntax error with the offending source line and a
// caret under the failure column
func (r *Renderer) ParseError(pe *parser.ParseError) string {
	var sb strings.Builder
	sb.WriteString(r.styles.errMsg.Render(pe.Message))
	sb.WriteByte('\n')

	// The source line is written unstyled so tabs line up with the padding
	sb.WriteString("  ")
	sb.WriteString(pe.SourceLine())
	sb.WriteByte('\n')
	sb.WriteString("  ")
	sb.WriteString(padding(pe.LinePrefix()))
	sb.WriteString(r.styles.caret.Render("^"))
	sb.WriteByte('\n')

	if len(pe.Expectations) > 0 {
		sb.WriteString("expected: ")
		sb.WriteString(r.styles.expected.Render(strings.Join(pe.Expectations, ", ")))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// padding returns whitespace as wide as prefix, keeping tabs
func padding(prefix string) string {
	var sb strings.Builder
	for _, ch := range prefix {
		if ch == '\t' {
			sb.WriteByte('\t')
			continue
		}
		sb.WriteString(strings.Repeat(" ", lipgloss.Width(string(ch))))
	}
	return sb.String()
}

// JSON encodes nodes as indented JSON
func JSON(nodes []ast.Node) ([]byte, error) {
	if nodes == nil {
		nodes = []ast.Node{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(nodes); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// YAML encodes nodes as a YAML sequence
func YAML(nodes []ast.Node) ([]byte, error) {
	if nodes == nil {
		nodes = []ast.Node{}
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(nodes); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
