/*
Package parser implements the grammar for MSBuild-style condition expressions.

The grammar is built from small rules composed with ordered alternation
(Or), repetition (Many, AtLeastOnce) and sequencing. Every rule is a plain
function from an immutable Input to a Reply carrying the value, the consumed
byte span and the deepest failure encountered, so rules can be used and
tested on their own:

	reply := parser.TypeRef(parser.NewInput("[System.IO.Path]::Combine"))
	// reply.Value: TypeRef[0,18)("System.IO.Path"), reply.Remainder: "Combine"

ParseExpression is the top-level driver. It accepts a sequence of quoted
strings, evaluations and whitespace:

	nodes, err := parser.ParseExpression(" $(Configuration) 'Debug' ")

Binary chains such as $(A)=='x'And$(B)!='' are recognized by the Binary rule,
which folds all operators left to right at a single precedence level. The
driver does not use it; Parser.ParseCondition does.

On failure the error is a *ParseError listing what was expected at the
furthest position reached:

	parse error at line 1, column 4: unexpected end of input, expected ... (after "$(A")
	Expectations: ["letter or digit",".","type reference","identifier",")"]
*/
package parser
