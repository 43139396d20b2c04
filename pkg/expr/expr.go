// Package expr parses and evaluates the condition mini-language used by
// transition rules.
//
// The grammar is a single comparison: `<identifier> <op> <literal>`, where
// op is one of ==, !=, >, >=, <, <= and the literal is a quoted string or a
// bare number. There are no boolean connectives, nested expressions, or
// function calls; the grammar is intentionally closed and must not grow.
//
// Expressions are parsed once at compile time (see internal/compiler) and
// the resulting Comparison is evaluated on every transition check.
package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/onrampd/onramp/pkg/domain"
)

// operators in longest-match-first order so ">=" is never read as ">".
var operators = []domain.CompareOp{
	domain.OpEq, domain.OpNe, domain.OpGe, domain.OpLe, domain.OpGt, domain.OpLt,
}

// Parse parses a condition expression into its AST form.
func Parse(input string) (*domain.Comparison, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil, fmt.Errorf("empty expression")
	}

	opIdx, op := findOperator(s)
	if opIdx < 0 {
		return nil, fmt.Errorf("expression %q: no comparison operator", input)
	}

	field := strings.TrimSpace(s[:opIdx])
	if !validIdentifier(field) {
		return nil, fmt.Errorf("expression %q: invalid identifier %q", input, field)
	}

	lit, err := parseLiteral(strings.TrimSpace(s[opIdx+len(op):]))
	if err != nil {
		return nil, fmt.Errorf("expression %q: %w", input, err)
	}

	return &domain.Comparison{Field: field, Op: op, Literal: lit}, nil
}

// Evaluate applies a parsed comparison to the collected inputs.
//
// A nil comparison (a malformed expression at compile time) and a missing
// input key both evaluate to false: conditions are guard rails, not fatal
// paths. Numeric literals coerce the input numerically for all six
// operators; string literals compare strictly for == and != and never
// satisfy an ordering operator.
func Evaluate(c *domain.Comparison, inputs map[string]domain.Value) bool {
	if c == nil {
		return false
	}
	v, ok := inputs[c.Field]
	if !ok {
		return false
	}

	switch c.Literal.Kind() {
	case domain.KindNumber:
		n, ok := v.AsNumber()
		if !ok {
			return false
		}
		return compareNumeric(n, c.Op, c.Literal.Num())
	case domain.KindString:
		switch c.Op {
		case domain.OpEq:
			return v.Equal(c.Literal)
		case domain.OpNe:
			return !v.Equal(c.Literal)
		default:
			return false
		}
	default:
		return false
	}
}

func compareNumeric(left float64, op domain.CompareOp, right float64) bool {
	switch op {
	case domain.OpEq:
		return left == right
	case domain.OpNe:
		return left != right
	case domain.OpGt:
		return left > right
	case domain.OpGe:
		return left >= right
	case domain.OpLt:
		return left < right
	case domain.OpLe:
		return left <= right
	default:
		return false
	}
}

// findOperator returns the position and spelling of the first operator
// occurrence. The identifier precedes the operator and cannot contain
// operator characters, so the first match is the real one.
func findOperator(s string) (int, domain.CompareOp) {
	for i := 0; i < len(s); i++ {
		for _, op := range operators {
			if strings.HasPrefix(s[i:], string(op)) {
				return i, op
			}
		}
	}
	return -1, ""
}

func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9', r == '.':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func parseLiteral(s string) (domain.Value, error) {
	if s == "" {
		return domain.Value{}, fmt.Errorf("missing literal")
	}
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return domain.String(s[1 : len(s)-1]), nil
		}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return domain.Value{}, fmt.Errorf("literal %q is neither a quoted string nor a number", s)
	}
	return domain.Number(n), nil
}
