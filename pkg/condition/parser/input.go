// ============================================================================
// condparse - MSBuild-style condition expression parser
// ============================================================================
//
// Package:     parser
// Description: Immutable input cursor threaded through every rule
// Created:     2026-10-18
// License:     MIT
// ============================================================================

package parser

import "unicode/utf8"

// Input is an immutable position in the source text. Advancing returns a new
// Input, so a failed alternative never has to restore anything.
type Input struct {
	src string
	pos int
}

// NewInput creates an Input positioned at the start of src
func NewInput(src string) Input {
	return Input{src: src}
}

// Source returns the complete source text
func (in Input) Source() string { return in.src }

// Offset returns the byte offset of the cursor
func (in Input) Offset() int { return in.pos }

// AtEnd reports whether the whole source has been consumed
func (in Input) AtEnd() bool { return in.pos >= len(in.src) }

// Rest returns the unconsumed part of the source
func (in Input) Rest() string { return in.src[in.pos:] }

// Advance moves the cursor forward by n bytes
func (in Input) Advance(n int) Input {
	if in.pos+n > len(in.src) {
		n = len(in.src) - in.pos
	}
	return Input{src: in.src, pos: in.pos + n}
}

// Peek decodes the rune under the cursor and its width in bytes.
// At end of input it returns (utf8.RuneError, 0).
func (in Input) Peek() (rune, int) {
	if in.AtEnd() {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(in.src[in.pos:])
}
