// ============================================================================
// condparse - MSBuild-style condition expression parser
// ============================================================================
//
// Package:     parser
// Description: Generic rule type and the combinators the grammar is built from
// Created:     2026-10-18
// License:     MIT
// ============================================================================

package parser

import "strings"

// Failure describes the deepest point at which some alternative gave up and
// what it expected there. A Failure without expectations means none occurred.
type Failure struct {
	Offset       int
	Expectations []string
}

// None reports whether the failure is empty
func (f Failure) None() bool {
	return len(f.Expectations) == 0
}

func expected(in Input, names ...string) Failure {
	return Failure{Offset: in.pos, Expectations: names}
}

// furthest keeps the failure at the greater offset. Failures at the same
// offset are merged, preserving first-seen order.
func furthest(a, b Failure) Failure {
	switch {
	case a.None():
		return b
	case b.None():
		return a
	case a.Offset > b.Offset:
		return a
	case b.Offset > a.Offset:
		return b
	}

	merged := make([]string, 0, len(a.Expectations)+len(b.Expectations))
	seen := make(map[string]bool, cap(merged))
	for _, list := range [][]string{a.Expectations, b.Expectations} {
		for _, e := range list {
			if !seen[e] {
				seen[e] = true
				merged = append(merged, e)
			}
		}
	}
	return Failure{Offset: a.Offset, Expectations: merged}
}

// Reply is the outcome of applying a rule. On success Value covers the byte
// range [Start, End) and Remainder continues after it. Failure is populated
// in both cases: a successful reply still reports the deepest failure seen
// while producing it, so an enclosing rule can explain why it stopped there.
type Reply[T any] struct {
	Value     T
	Start     int
	End       int
	Remainder Input
	OK        bool
	Failure   Failure
}

// Rule is a parsing function over an immutable input
type Rule[T any] func(in Input) Reply[T]

func succeed[T any](value T, from, to Input, failure Failure) Reply[T] {
	return Reply[T]{
		Value:     value,
		Start:     from.pos,
		End:       to.pos,
		Remainder: to,
		OK:        true,
		Failure:   failure,
	}
}

func fail[T any](in Input, failure Failure) Reply[T] {
	return Reply[T]{Start: in.pos, End: in.pos, Remainder: in, Failure: failure}
}

// Literal matches the exact text s
func Literal(s string) Rule[string] {
	return func(in Input) Reply[string] {
		if strings.HasPrefix(in.Rest(), s) {
			return succeed(s, in, in.Advance(len(s)), Failure{})
		}
		return fail[string](in, expected(in, s))
	}
}

// Char matches one rune satisfying pred
func Char(pred func(rune) bool, name string) Rule[rune] {
	return func(in Input) Reply[rune] {
		r, width := in.Peek()
		if width == 0 || !pred(r) {
			return fail[rune](in, expected(in, name))
		}
		return succeed(r, in, in.Advance(width), Failure{})
	}
}

// Or tries each rule against the same input and returns the first success
func Or[T any](rules ...Rule[T]) Rule[T] {
	return func(in Input) Reply[T] {
		var failure Failure
		for _, rule := range rules {
			reply := rule(in)
			failure = furthest(failure, reply.Failure)
			if reply.OK {
				reply.Failure = failure
				return reply
			}
		}
		return fail[T](in, failure)
	}
}

// Many applies rule zero or more times. It stops at the first failure or at
// a match that consumes nothing, so it always terminates.
func Many[T any](rule Rule[T]) Rule[[]T] {
	return func(in Input) Reply[[]T] {
		values := []T{}
		cur := in
		var failure Failure
		for {
			reply := rule(cur)
			failure = furthest(failure, reply.Failure)
			if !reply.OK || reply.Remainder.pos == cur.pos {
				break
			}
			values = append(values, reply.Value)
			cur = reply.Remainder
		}
		return succeed(values, in, cur, failure)
	}
}

// AtLeastOnce applies rule one or more times
func AtLeastOnce[T any](rule Rule[T]) Rule[[]T] {
	many := Many(rule)
	return func(in Input) Reply[[]T] {
		first := rule(in)
		if !first.OK {
			return fail[[]T](in, first.Failure)
		}
		rest := many(first.Remainder)
		values := append([]T{first.Value}, rest.Value...)
		return succeed(values, in, rest.Remainder, furthest(first.Failure, rest.Failure))
	}
}

// Map transforms the value of a successful reply
func Map[T, U any](rule Rule[T], fn func(T) U) Rule[U] {
	return func(in Input) Reply[U] {
		reply := rule(in)
		if !reply.OK {
			return fail[U](in, reply.Failure)
		}
		return Reply[U]{
			Value:     fn(reply.Value),
			Start:     reply.Start,
			End:       reply.End,
			Remainder: reply.Remainder,
			OK:        true,
			Failure:   reply.Failure,
		}
	}
}

// Named reports a failure that happened at the rule's own start position as
// a single expectation called name. Deeper failures keep their detail.
func Named[T any](rule Rule[T], name string) Rule[T] {
	return func(in Input) Reply[T] {
		reply := rule(in)
		if !reply.OK && reply.Failure.Offset == in.pos {
			reply.Failure = expected(in, name)
		}
		return reply
	}
}

// EndOfInput succeeds only when nothing is left to consume
func EndOfInput(in Input) Reply[struct{}] {
	if in.AtEnd() {
		return succeed(struct{}{}, in, in, Failure{})
	}
	return fail[struct{}](in, expected(in, "end of input"))
}

// sequence runs rules one after another, accumulating the deepest failure.
// Once a step fails the remaining steps are skipped.
type sequence struct {
	start   Input
	cur     Input
	failure Failure
	ok      bool
}

func seq(in Input) *sequence {
	return &sequence{start: in, cur: in, ok: true}
}

func next[T any](s *sequence, rule Rule[T]) T {
	var zero T
	if !s.ok {
		return zero
	}
	reply := rule(s.cur)
	s.failure = furthest(s.failure, reply.Failure)
	if !reply.OK {
		s.ok = false
		return zero
	}
	s.cur = reply.Remainder
	return reply.Value
}

func finish[T any](s *sequence, build func(start, end int) T) Reply[T] {
	if !s.ok {
		return fail[T](s.start, s.failure)
	}
	return succeed(build(s.start.pos, s.cur.pos), s.start, s.cur, s.failure)
}
