// ============================================================================
// condparse - MSBuild-style condition expression parser
// ============================================================================
//
// Package:     repl
// Description: Interactive terminal REPL that re-parses on every keystroke
// Created:     2026-10-18
// License:     MIT
// ============================================================================

package repl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/msto63/condparse/internal/condparse/render"
	"github.com/msto63/condparse/internal/condparse/service"
	"github.com/msto63/condparse/pkg/condition/ast"
	"github.com/msto63/condparse/pkg/condition/parser"
)

// ParseFunc parses a request, locally or through a remote server
type ParseFunc func(ctx context.Context, req *service.Request) (*service.Response, error)

// Options configures the REPL model
type Options struct {
	Parse     ParseFunc
	Renderer  *render.Renderer
	Mode      service.Mode
	Rule      string
	Rules     []string
	Timeout   time.Duration
	CharLimit int
}

// parsedMsg carries the result of one parse. seq identifies the input it
// belongs to so that stale results are dropped.
type parsedMsg struct {
	seq  int
	resp *service.Response
	err  error
}

// Model is the REPL model
type Model struct {
	// State
	width  int
	height int
	ready  bool

	// Components
	input    textinput.Model
	viewport viewport.Model

	// Parse state
	opts    Options
	mode    service.Mode
	rule    int
	seq     int
	nodes   []ast.Node
	resp    *service.Response
	err     error
	content string

	// History
	history []string
	histPos int
}

// NewModel creates a new REPL model
func NewModel(opts Options) Model {
	if opts.Renderer == nil {
		opts.Renderer = render.New(os.Stdout, render.ColorAuto)
	}
	if len(opts.Rules) == 0 {
		opts.Rules = parser.RuleNames()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.CharLimit <= 0 {
		opts.CharLimit = parser.DefaultMaxInputLength
	}

	ti := textinput.New()
	ti.Placeholder = "Ausdruck eingeben, z.B. '$(Configuration)'=='Debug'"
	ti.Prompt = "› "
	ti.CharLimit = opts.CharLimit
	ti.Cursor.SetMode(cursor.CursorStatic)
	ti.Focus()

	vp := viewport.New(80, 10)
	vp.KeyMap = viewport.KeyMap{
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
	}

	mode := opts.Mode
	if mode == "" {
		mode = service.ModeExpression
	}
	rule := 0
	for i, name := range opts.Rules {
		if name == opts.Rule {
			rule = i
		}
	}

	m := Model{
		input:    ti,
		viewport: vp,
		opts:     opts,
		mode:     mode,
		rule:     rule,
	}
	m.updateContent()
	return m
}

// Init initializes the model by parsing the empty input
func (m Model) Init() tea.Cmd {
	return m.parseCmd()
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "tab":
			m.mode = nextMode(m.mode)
			return m, m.reparse()

		case "ctrl+n":
			if m.mode == service.ModeRule {
				m.rule = (m.rule + 1) % len(m.opts.Rules)
				return m, m.reparse()
			}
			return m, nil

		case "enter":
			m.remember(m.input.Value())
			return m, nil

		case "up":
			if m.histPos > 0 {
				m.histPos--
				m.input.SetValue(m.history[m.histPos])
				return m, m.reparse()
			}
			return m, nil

		case "down":
			if m.histPos < len(m.history) {
				m.histPos++
				value := ""
				if m.histPos < len(m.history) {
					value = m.history[m.histPos]
				}
				m.input.SetValue(value)
				return m, m.reparse()
			}
			return m, nil

		case "pgup", "pgdown":
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

		before := m.input.Value()
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
		if m.input.Value() != before {
			cmds = append(cmds, m.reparse())
		}
		return m, tea.Batch(cmds...)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-8, 3)
		m.input.Width = max(msg.Width-8, 10)
		m.ready = true
		m.updateContent()
		return m, nil

	case parsedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.resp, m.err = msg.resp, msg.err
		m.nodes = nil
		if msg.resp != nil {
			m.nodes = msg.resp.Nodes
		}
		m.updateContent()
		return m, nil
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// reparse invalidates the current result and schedules a parse
func (m *Model) reparse() tea.Cmd {
	m.seq++
	return m.parseCmd()
}

func (m Model) parseCmd() tea.Cmd {
	if m.opts.Parse == nil {
		return nil
	}
	seq := m.seq
	req := &service.Request{
		Expression: m.input.Value(),
		Mode:       m.mode,
	}
	if m.mode == service.ModeRule {
		req.Rule = m.opts.Rules[m.rule]
	}
	parse, timeout := m.opts.Parse, m.opts.Timeout

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		resp, err := parse(ctx, req)
		return parsedMsg{seq: seq, resp: resp, err: err}
	}
}

func (m *Model) remember(value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	if n := len(m.history); n == 0 || m.history[n-1] != value {
		m.history = append(m.history, value)
	}
	m.histPos = len(m.history)
}

func nextMode(mode service.Mode) service.Mode {
	modes := service.Modes()
	for i, md := range modes {
		if md == mode {
			return modes[(i+1)%len(modes)]
		}
	}
	return modes[0]
}

// updateContent re-renders the result into the viewport
func (m *Model) updateContent() {
	var pe *parser.ParseError
	switch {
	case m.err != nil && errors.As(m.err, &pe):
		m.content = m.opts.Renderer.ParseError(pe)
	case m.err != nil:
		m.content = StatusErrorStyle.Render("Fehler: " + m.err.Error())
	default:
		m.content = m.opts.Renderer.Tree(m.nodes)
	}
	m.viewport.SetContent(m.content)
}

// Mode returns the current parse mode
func (m Model) Mode() service.Mode {
	return m.mode
}

// Rule returns the rule used in rule mode
func (m Model) Rule() string {
	return m.opts.Rules[m.rule]
}

// Nodes returns the nodes of the last successful parse
func (m Model) Nodes() []ast.Node {
	return m.nodes
}

// Err returns the error of the last parse
func (m Model) Err() error {
	return m.err
}

// Content returns the rendered result shown in the viewport
func (m Model) Content() string {
	return m.content
}

// History returns the remembered inputs, oldest first
func (m Model) History() []string {
	return m.history
}

// View renders the UI
func (m Model) View() string {
	if !m.ready {
		return "Lade..."
	}

	var s strings.Builder
	s.WriteString(m.renderHeader())
	s.WriteString("\n")
	s.WriteString(InputStyle.Render(m.input.View()))
	s.WriteString("\n")
	s.WriteString(m.renderStatus())
	s.WriteString("\n")
	s.WriteString(m.viewport.View())
	s.WriteString("\n")
	s.WriteString(m.renderFooter())
	return s.String()
}

func (m Model) renderHeader() string {
	var tabs []string
	for _, md := range service.Modes() {
		label := string(md)
		if md == service.ModeRule {
			label += ": " + m.Rule()
		}
		if md == m.mode {
			tabs = append(tabs, ActiveTabStyle.Render(label))
		} else {
			tabs = append(tabs, TabStyle.Render(label))
		}
	}

	title := TitleStyle.Render("condparse")
	return lipgloss.JoinHorizontal(lipgloss.Top, append([]string{title, " "}, tabs...)...)
}

func (m Model) renderStatus() string {
	switch {
	case m.err != nil:
		return StatusErrorStyle.Render("✗ ungültig")
	case m.resp != nil:
		status := fmt.Sprintf("✓ %d Knoten · %s", len(m.nodes), m.resp.Duration.Round(time.Microsecond))
		if m.resp.CacheHit {
			status += " · Cache"
		}
		return StatusOKStyle.Render(status)
	default:
		return ""
	}
}

func (m Model) renderFooter() string {
	return HelpStyle.Render("Tab: Modus · Ctrl+N: Regel · ↑/↓: Verlauf · Enter: merken · PgUp/PgDn: blättern · Esc: Beenden")
}
