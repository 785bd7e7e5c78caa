// ============================================================================
// condparse - MSBuild-style condition expression parser
// ============================================================================
//
// Package:     parser
// Description: Positional parse failure reported by the top-level driver
// Created:     2026-10-18
// License:     MIT
// ============================================================================

package parser

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/msto63/condparse/pkg/condition/ast"
	cperrors "github.com/msto63/condparse/pkg/core/errors"
)

// contextRunes is how much already-consumed text a message quotes
const contextRunes = 12

// ParseError is the single failure kind of the grammar. It describes the
// deepest position any alternative reached and what was expected there.
type ParseError struct {
	Message      string       `json:"message"`
	Expectations []string     `json:"expectations"`
	Position     ast.Position `json:"position"`
	Source       string       `json:"-"`
}

func newParseError(src string, f Failure) *ParseError {
	pos := ast.PositionOf(src, f.Offset)

	var sb strings.Builder
	fmt.Fprintf(&sb, "parse error at line %d, column %d: unexpected %s", pos.Line, pos.Column, describeAt(src, pos.Offset))
	if len(f.Expectations) > 0 {
		sb.WriteString(", expected ")
		sb.WriteString(joinExpectations(f.Expectations))
	}
	if pos.Offset > 0 {
		fmt.Fprintf(&sb, " (after %q)", lastRunes(src[:pos.Offset], contextRunes))
	}

	expectations := f.Expectations
	if expectations == nil {
		expectations = []string{}
	}
	return &ParseError{
		Message:      sb.String(),
		Expectations: expectations,
		Position:     pos,
		Source:       src,
	}
}

// Error renders the message followed by the expectations as a JSON array
func (e *ParseError) Error() string {
	return e.Message + "\nExpectations: " + e.ExpectationsJSON()
}

// Code classifies every parse failure as a syntax error
func (e *ParseError) Code() cperrors.Code {
	return cperrors.CodeSyntax
}

// ExpectationsJSON returns the expectations as a JSON array of strings
func (e *ParseError) ExpectationsJSON() string {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e.Expectations); err != nil {
		return "[]"
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// Offset returns the byte offset of the failure
func (e *ParseError) Offset() int {
	return e.Position.Offset
}

// Expects reports whether name is among the expectations
func (e *ParseError) Expects(name string) bool {
	for _, exp := range e.Expectations {
		if exp == name {
			return true
		}
	}
	return false
}

// SourceLine returns the full line of the source the failure is on
func (e *ParseError) SourceLine() string {
	off := e.sourceOffset()
	start := strings.LastIndexByte(e.Source[:off], '\n') + 1
	end := strings.IndexByte(e.Source[off:], '\n')
	if end < 0 {
		return e.Source[start:]
	}
	return e.Source[start : off+end]
}

// LinePrefix returns the part of the failing line before the failure
func (e *ParseError) LinePrefix() string {
	off := e.sourceOffset()
	start := strings.LastIndexByte(e.Source[:off], '\n') + 1
	return e.Source[start:off]
}

// sourceOffset clamps the offset to Source. Errors decoded from a remote
// peer may carry a source shorter than the offset, or none at all.
func (e *ParseError) sourceOffset() int {
	switch off := e.Position.Offset; {
	case off < 0:
		return 0
	case off > len(e.Source):
		return len(e.Source)
	default:
		return off
	}
}

func describeAt(src string, offset int) string {
	if offset >= len(src) {
		return "end of input"
	}
	r, _ := utf8.DecodeRuneInString(src[offset:])
	return fmt.Sprintf("%q", r)
}

func joinExpectations(exps []string) string {
	if len(exps) == 1 {
		return exps[0]
	}
	return strings.Join(exps[:len(exps)-1], ", ") + " or " + exps[len(exps)-1]
}

func lastRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	rs := []rune(s)
	return string(rs[len(rs)-n:])
}
