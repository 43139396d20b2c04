package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onrampd/onramp/pkg/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		field string
		op    domain.CompareOp
		lit   domain.Value
	}{
		{"risk_score > 70", "risk_score", domain.OpGt, domain.Number(70)},
		{"risk_score >= 70", "risk_score", domain.OpGe, domain.Number(70)},
		{"age < 18", "age", domain.OpLt, domain.Number(18)},
		{"age <= 18", "age", domain.OpLe, domain.Number(18)},
		{"country == 'US'", "country", domain.OpEq, domain.String("US")},
		{`country != "US"`, "country", domain.OpNe, domain.String("US")},
		{"profile.tier == 'gold'", "profile.tier", domain.OpEq, domain.String("gold")},
		{"amount==5", "amount", domain.OpEq, domain.Number(5)},
		{"  padded   >    1.5  ", "padded", domain.OpGt, domain.Number(1.5)},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			c, err := Parse(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.field, c.Field)
			assert.Equal(t, tc.op, c.Op)
			assert.True(t, c.Literal.Equal(tc.lit))
		})
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"risk_score",
		"> 70",
		"risk_score > ",
		"risk_score > abc",
		"1field == 'x'",
		"a b == 'x'",
		"x && y",
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			assert.Error(t, err)
		})
	}
}

func TestParseLongestOperatorWins(t *testing.T) {
	c, err := Parse("score >= 10")
	require.NoError(t, err)
	assert.Equal(t, domain.OpGe, c.Op)

	c, err = Parse("score <= 10")
	require.NoError(t, err)
	assert.Equal(t, domain.OpLe, c.Op)
}

func TestEvaluateNumeric(t *testing.T) {
	inputs := map[string]domain.Value{
		"score":  domain.Number(72),
		"rating": domain.String("72"),
		"flag":   domain.Bool(true),
	}

	tests := []struct {
		expr string
		want bool
	}{
		{"score > 70", true},
		{"score > 72", false},
		{"score >= 72", true},
		{"score < 100", true},
		{"score <= 71", false},
		{"score == 72", true},
		{"score != 72", false},
		// numeric strings coerce against numeric literals
		{"rating > 70", true},
		{"rating == 72", true},
		// booleans never coerce numerically
		{"flag == 1", false},
	}
	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			c, err := Parse(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.want, Evaluate(c, inputs))
		})
	}
}

func TestEvaluateString(t *testing.T) {
	inputs := map[string]domain.Value{
		"country": domain.String("US"),
		"score":   domain.Number(5),
	}

	tests := []struct {
		expr string
		want bool
	}{
		{"country == 'US'", true},
		{"country == 'DE'", false},
		{"country != 'DE'", true},
		// ordering against a string literal never matches
		{"country > 'A'", false},
		{"country < 'Z'", false},
		// strict equality: number input never equals a string literal
		{"score == '5'", false},
	}
	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			c, err := Parse(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.want, Evaluate(c, inputs))
		})
	}
}

func TestEvaluateMissingKeyIsFalse(t *testing.T) {
	inputs := map[string]domain.Value{}

	for _, e := range []string{"x == 'a'", "x != 'a'", "x > 1", "x < 1"} {
		c, err := Parse(e)
		require.NoError(t, err)
		assert.False(t, Evaluate(c, inputs), e)
	}
}

func TestEvaluateNilComparison(t *testing.T) {
	assert.False(t, Evaluate(nil, map[string]domain.Value{"x": domain.Number(1)}))
}
