// ============================================================================
// condparse - MSBuild-style condition expression parser
// ============================================================================
//
// Package:     parser
// Description: Parser front end with input limits, rule lookup and logging
// Created:     2026-10-18
// License:     MIT
// ============================================================================

package parser

import (
	"sort"

	"github.com/msto63/condparse/pkg/condition/ast"
	cperrors "github.com/msto63/condparse/pkg/core/errors"
	cplog "github.com/msto63/condparse/pkg/core/log"
)

// DefaultMaxInputLength is used when Options.MaxInputLength is zero
const DefaultMaxInputLength = 4096

// Parser wraps the grammar with input validation and logging.
// It holds no per-parse state and is safe for concurrent use.
type Parser struct {
	logger  *cplog.Logger
	options Options
}

// Options configures parser behavior
type Options struct {
	Logger         *cplog.Logger
	MaxInputLength int
}

// New creates a new parser with the given options
func New(opts Options) (*Parser, error) {
	if opts.Logger == nil {
		opts.Logger = cplog.GetDefault()
	}
	if opts.MaxInputLength == 0 {
		opts.MaxInputLength = DefaultMaxInputLength
	}
	if opts.MaxInputLength < 0 {
		return nil, cperrors.Newf("invalid max input length %d", opts.MaxInputLength).
			WithCode(cperrors.CodeConfig).
			WithOperation("parser.New")
	}

	return &Parser{
		logger:  opts.Logger.WithField("component", "condition-parser"),
		options: opts,
	}, nil
}

// MaxInputLength returns the configured input limit in bytes
func (p *Parser) MaxInputLength() int {
	return p.options.MaxInputLength
}

// Parse parses a full expression into its top-level nodes
func (p *Parser) Parse(input string) ([]ast.Node, error) {
	return run(p, "expression", expression, input)
}

// ParseCondition parses input as a single binary chain
func (p *Parser) ParseCondition(input string) (ast.Node, error) {
	return run(p, "condition", Binary, input)
}

// ParseRule parses input with the node rule registered under name
func (p *Parser) ParseRule(name, input string) (ast.Node, error) {
	rule, ok := LookupRule(name)
	if !ok {
		return ast.Node{}, cperrors.Newf("unknown rule %q", name).
			WithCode(cperrors.CodeUnknownRule).
			WithOperation("parser.ParseRule").
			WithDetail("rule", name).
			WithDetail("available", RuleNames())
	}
	return run(p, name, rule, input)
}

func run[T any](p *Parser, rule string, r Rule[T], input string) (T, error) {
	var zero T
	if len(input) > p.options.MaxInputLength {
		return zero, cperrors.Newf("input exceeds maximum length: %d > %d", len(input), p.options.MaxInputLength).
			WithCode(cperrors.CodeInputTooLarge).
			WithOperation("parser.Parse").
			WithDetail("length", len(input)).
			WithDetail("max", p.options.MaxInputLength)
	}

	timer := p.logger.StartTimer("parse").
		WithField("rule", rule).
		WithField("length", len(input)).
		WithTraceField("input", input).
		WithFailureLevel(cplog.LevelDebug)

	value, err := ParseWith(r, input)
	if err != nil {
		pe := err.(*ParseError)
		timer.WithField("line", pe.Position.Line).
			WithField("column", pe.Position.Column).
			WithField("expectations", pe.Expectations).
			StopWithError(err)
		return zero, err
	}
	timer.Stop()
	return value, nil
}

var rules = map[string]Rule[ast.Node]{
	"identifier":           IdentifierNode,
	"qualified-identifier": QualifiedIdentifierNode,
	"type-ref":             TypeRef,
	"string-characters":    StringCharacters,
	"eval":                 Eval,
	"quoted-string":        QuotedString,
	"binary":               Binary,
	"binary-operator":      BinaryOperatorNode,
	"unary-operator":       UnaryOperatorNode,
	"whitespace":           Whitespace,
}

// LookupRule returns the node rule registered under name
func LookupRule(name string) (Rule[ast.Node], bool) {
	r, ok := rules[name]
	return r, ok
}

// RuleNames returns the names accepted by ParseRule, sorted
func RuleNames() []string {
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
