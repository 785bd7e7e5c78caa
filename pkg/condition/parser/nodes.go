// ============================================================================
// condparse - MSBuild-style condition expression parser
// ============================================================================
//
// Package:     parser
// Description: Node rules turning matched tokens into leaf nodes
// Created:     2026-10-18
// License:     MIT
// ============================================================================

package parser

import (
	"unicode"

	"github.com/msto63/condparse/pkg/condition/ast"
)

// leaf wraps a string-producing rule into one producing a leaf node spanning
// exactly what the rule consumed
func leaf(t ast.NodeType, rule Rule[string]) Rule[ast.Node] {
	return func(in Input) Reply[ast.Node] {
		reply := rule(in)
		if !reply.OK {
			return fail[ast.Node](in, reply.Failure)
		}
		return succeed(ast.NewLeaf(t, reply.Value, reply.Start, reply.End), in, reply.Remainder, reply.Failure)
	}
}

func runesToString(rs []rune) string {
	return string(rs)
}

var (
	// Whitespace matches zero or more whitespace characters
	Whitespace = leaf(ast.Whitespace, Map(Many(Char(unicode.IsSpace, "whitespace")), runesToString))

	IdentifierNode          = leaf(ast.Identifier, Identifier)
	QualifiedIdentifierNode = leaf(ast.Identifier, QualifiedIdentifier)

	// StringCharacters matches the longest non-empty run of literal text
	// inside a quoted string, with escapes resolved
	StringCharacters = leaf(ast.StringCharacters,
		Map(AtLeastOnce(Or(EscapedCharacter, stringCharacter)), runesToString))

	BinaryOperatorNode = leaf(ast.BinaryOperator, BinaryOperatorToken)
	UnaryOperatorNode  = leaf(ast.UnaryOperator, UnaryOperatorToken)
)

// TypeRef matches "[Qualified.Name]::" and yields a TypeRef leaf holding the name
var TypeRef = Named[ast.Node](func(in Input) Reply[ast.Node] {
	s := seq(in)
	next(s, TypeRefOpen)
	name := next(s, QualifiedIdentifier)
	next(s, TypeRefClose)
	return finish(s, func(start, end int) ast.Node {
		return ast.NewLeaf(ast.TypeRef, name, start, end)
	})
}, "type reference")
