package literal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexer_Tokens(t *testing.T) {
	tokens, errs := NewLexer(`[('state', '=', "done"), -3, 1.5, True, null]`).Tokenize()
	require.Empty(t, errs)

	expected := []TokenType{
		TokenLBrack, TokenLParen, TokenString, TokenComma, TokenString, TokenComma,
		TokenString, TokenRParen, TokenComma, TokenInt, TokenComma, TokenFloat,
		TokenComma, TokenTrue, TokenComma, TokenNone, TokenRBrack, TokenEOF,
	}
	require.Len(t, tokens, len(expected))
	for i, exp := range expected {
		assert.Equal(t, exp, tokens[i].Type, "token %d", i)
	}
	assert.Equal(t, "-3", tokens[9].Literal)
}

func TestLexer_UnexpectedCharacter(t *testing.T) {
	_, errs := NewLexer(`{'a': 1 ; }`).Tokenize()
	require.Len(t, errs, 1)
	assert.Equal(t, 1, errs[0].Line)
	assert.Equal(t, 9, errs[0].Col)
}

func TestParse_Scalars(t *testing.T) {
	tests := []struct {
		input    string
		expected any
	}{
		{`'hello'`, "hello"},
		{`"with \"escape\""`, `with "escape"`},
		{`'a' 'b'`, "ab"},
		{`42`, int64(42)},
		{`-7`, int64(-7)},
		{`2.5`, 2.5},
		{`1e3`, 1000.0},
		{`True`, true},
		{`false`, false},
		{`None`, nil},
		{`(5)`, int64(5)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestParse_Domain(t *testing.T) {
	v, err := Parse(`['|', ('state', 'in', ['draft', 'sent']), ('amount', '>', 100),]`)
	require.NoError(t, err)

	want := []any{
		"|",
		[]any{"state", "in", []any{"draft", "sent"}},
		[]any{"amount", ">", int64(100)},
	}
	assert.Equal(t, want, v)
}

func TestParse_Context(t *testing.T) {
	m, err := ParseDict(`{'group_by': ['date:month'], 'graph_measure': 'amount', "pivot_measures": ('amount',), 'flag': true}`)
	require.NoError(t, err)

	assert.Equal(t, []any{"date:month"}, m["group_by"])
	assert.Equal(t, "amount", m["graph_measure"])
	assert.Equal(t, []any{"amount"}, m["pivot_measures"])
	assert.Equal(t, true, m["flag"])
}

func TestParse_EmptyInputs(t *testing.T) {
	m, err := ParseDict("  ")
	require.NoError(t, err)
	assert.Empty(t, m)

	l, err := ParseList("")
	require.NoError(t, err)
	assert.Empty(t, l)
}

func TestParse_Errors(t *testing.T) {
	tests := []string{
		`[1, 2`,
		`{'a' 1}`,
		`context_today()`,
		`'unterminated`,
		`[1] [2]`,
		`{[1]: 2}`,
	}
	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			require.Error(t, err)
		})
	}

	_, err := ParseDict(`[1]`)
	require.Error(t, err)
	_, err = ParseList(`{'a': 1}`)
	require.Error(t, err)
}

func TestParseError_Position(t *testing.T) {
	_, err := Parse("[1,\n  oops]")
	require.Error(t, err)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Line)
	assert.Equal(t, 3, perr.Col)
}
