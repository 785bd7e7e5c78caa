// ============================================================================
// condparse - MSBuild-style condition expression parser
// ============================================================================
//
// Package:     parser
// Description: Token rules - the lexical atoms of condition expressions
// Created:     2026-10-18
// License:     MIT
// ============================================================================

package parser

import (
	"strings"
	"unicode"
)

var (
	letter        = Char(unicode.IsLetter, "letter")
	letterOrDigit = Char(func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}, "letter or digit")
	anyChar = Char(func(rune) bool { return true }, "any character")
)

// Identifier matches a letter followed by any number of letters or digits
var Identifier = Named[string](func(in Input) Reply[string] {
	s := seq(in)
	next(s, letter)
	next(s, Many(letterOrDigit))
	return finish(s, func(start, end int) string {
		return in.src[start:end]
	})
}, "identifier")

var dottedIdentifier Rule[string] = func(in Input) Reply[string] {
	s := seq(in)
	next(s, Literal("."))
	name := next(s, Identifier)
	return finish(s, func(int, int) string { return name })
}

// QualifiedIdentifier matches identifiers joined by dots and yields them
// re-joined, e.g. "System.IO.Path"
var QualifiedIdentifier Rule[string] = func(in Input) Reply[string] {
	s := seq(in)
	first := next(s, Identifier)
	rest := next(s, Many(dottedIdentifier))
	return finish(s, func(int, int) string {
		return strings.Join(append([]string{first}, rest...), ".")
	})
}

// Delimiters
var (
	SingleQuote  = Literal("'")
	EvalOpen     = Literal("$(")
	EvalClose    = Literal(")")
	TypeRefOpen  = Literal("[")
	TypeRefClose = Literal("]::")
)

// EscapedCharacter matches a backslash and the character after it, yielding
// only that character
var EscapedCharacter = Named[rune](func(in Input) Reply[rune] {
	s := seq(in)
	next(s, Literal(`\`))
	r := next(s, anyChar)
	return finish(s, func(int, int) rune { return r })
}, "escaped character")

// stringCharacter matches any character allowed unescaped inside a quoted
// string: everything except a single quote or the start of "$("
var stringCharacter Rule[rune] = func(in Input) Reply[rune] {
	r, width := in.Peek()
	if width == 0 || r == '\'' || strings.HasPrefix(in.Rest(), "$(") {
		return fail[rune](in, expected(in, "string character"))
	}
	return succeed(r, in, in.Advance(width), Failure{})
}

// Operators. All binary operators share one precedence level.
var (
	EqualsOperator    = Literal("==")
	NotEqualsOperator = Literal("!=")
	OrOperator        = Literal("Or")
	AndOperator       = Literal("And")
	NotOperator       = Literal("!")

	BinaryOperatorToken = Or(EqualsOperator, NotEqualsOperator, OrOperator, AndOperator)
	UnaryOperatorToken  = NotOperator
)
