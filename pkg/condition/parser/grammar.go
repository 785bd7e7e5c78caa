// ============================================================================
// condparse - MSBuild-style condition expression parser
// ============================================================================
//
// Package:     parser
// Description: Composite rules and the top-level expression driver
// Created:     2026-10-18
// License:     MIT
// ============================================================================

package parser

import "github.com/msto63/condparse/pkg/condition/ast"

var evalBody = Many(Or(TypeRef, QualifiedIdentifierNode))

// Eval matches "$(" followed by type references and identifiers, then ")"
var Eval = Named[ast.Node](func(in Input) Reply[ast.Node] {
	s := seq(in)
	next(s, EvalOpen)
	body := next(s, evalBody)
	next(s, EvalClose)
	return finish(s, func(start, end int) ast.Node {
		return ast.NewComposite(ast.Eval, body, start, end)
	})
}, "evaluation expression")

var quotedBody = Many(Or(Eval, StringCharacters))

// QuotedString matches a single-quoted string with embedded evaluations
var QuotedString = Named[ast.Node](func(in Input) Reply[ast.Node] {
	s := seq(in)
	next(s, SingleQuote)
	body := next(s, quotedBody)
	next(s, SingleQuote)
	return finish(s, func(start, end int) ast.Node {
		return ast.NewComposite(ast.QuotedString, body, start, end)
	})
}, "quoted string")

var operand = Or(Eval, QuotedString)

// Binary matches operands joined by binary operators and folds them to the
// left: a==b And c yields BinaryOperator<And>(BinaryOperator<==>(a, b), c).
// A single operand is returned as is. An operator without a following
// operand is left unconsumed.
var Binary Rule[ast.Node] = func(in Input) Reply[ast.Node] {
	first := operand(in)
	if !first.OK {
		return fail[ast.Node](in, first.Failure)
	}

	acc := first.Value
	cur := first.Remainder
	failure := first.Failure
	for {
		op := BinaryOperatorToken(cur)
		failure = furthest(failure, op.Failure)
		if !op.OK {
			break
		}
		rhs := operand(op.Remainder)
		failure = furthest(failure, rhs.Failure)
		if !rhs.OK {
			break
		}
		acc = ast.NewBinary(op.Value, acc, rhs.Value)
		cur = rhs.Remainder
	}
	return succeed(acc, in, cur, failure)
}

var expression = Many(Or(QuotedString, Eval, Whitespace))

// ParseExpression parses text as a sequence of quoted strings, evaluations
// and whitespace covering the whole input. Empty input yields an empty
// sequence. Any failure is returned as *ParseError.
func ParseExpression(text string) ([]ast.Node, error) {
	return ParseWith(expression, text)
}

// ParseWith applies rule to text and requires it to consume all of it
func ParseWith[T any](rule Rule[T], text string) (T, error) {
	in := NewInput(text)
	reply := rule(in)
	failure := reply.Failure
	if reply.OK {
		end := EndOfInput(reply.Remainder)
		if end.OK {
			return reply.Value, nil
		}
		failure = furthest(failure, end.Failure)
	}

	var zero T
	return zero, newParseError(text, failure)
}
