package domain

// CompareOp enumerates the comparison operators of the condition grammar.
// The grammar is deliberately closed: no boolean connectives, no nesting,
// no function calls.
type CompareOp string

const (
	OpEq CompareOp = "=="
	OpNe CompareOp = "!="
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
)

// Comparison is the parsed form of a condition expression
// `<identifier> <op> <literal>`. Parsed once at compile time and evaluated
// repeatedly by the execution engine (see pkg/expr).
type Comparison struct {
	// Field names a key in the collected inputs.
	Field string
	Op    CompareOp
	// Literal is the right-hand side: a string or a number.
	Literal Value
}
