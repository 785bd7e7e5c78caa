/*
Package ast defines the tree produced by the condition parser.

A parse yields an ordered sequence of Node values. Leaf nodes (identifiers,
type references, string character runs, operator tokens, whitespace) carry a
Value; composite nodes (quoted strings, evaluation expressions, folded binary
chains) carry Children. Every node records the half-open byte range it covers
in the original source, with absolute offsets.

	'a $(Foo) b'

parses to

	QuotedString[0,12)
	  StringCharacters[1,3)  "a "
	  Eval[3,9)
	    Identifier[5,8)      "Foo"
	  StringCharacters[9,11) " b"

Nodes are plain values and are never mutated after construction.
*/
package ast
