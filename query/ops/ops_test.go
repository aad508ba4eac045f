package ops

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	t.Run("empty token defaults to equality", func(t *testing.T) {
		e, ok := Lookup("")
		require.True(t, ok)
		assert.Equal(t, "=", e.Operator)
		assert.NotNil(t, e.Mutator)
	})

	t.Run("tokens are case-insensitive", func(t *testing.T) {
		e, ok := Lookup("ILIKE")
		require.True(t, ok)
		assert.Equal(t, "ILIKE", e.Operator)

		e, ok = Lookup("IS NOT")
		require.True(t, ok)
		assert.Equal(t, "IS NOT", e.Operator)
	})

	t.Run("symbol aliases map to keyword operators", func(t *testing.T) {
		for token, operator := range map[string]string{
			"~~":   "LIKE",
			"!~~":  "NOT LIKE",
			"~~*":  "ILIKE",
			"!~~*": "NOT ILIKE",
			"!":    "<>",
		} {
			e, ok := Lookup(token)
			require.True(t, ok, token)
			assert.Equal(t, operator, e.Operator)
		}
	})

	t.Run("unknown tokens miss", func(t *testing.T) {
		_, ok := Lookup("resembles")
		assert.False(t, ok)
	})
}

func TestEquality(t *testing.T) {
	t.Run("null becomes IS NULL", func(t *testing.T) {
		l, err := equality(Leaf{Operator: "=", Value: nil})
		require.NoError(t, err)
		assert.Equal(t, "IS", l.Operator)
		assert.Equal(t, "NULL", l.RHS)
		assert.Empty(t, l.Params)
	})

	t.Run("null inequality becomes IS NOT NULL", func(t *testing.T) {
		l, err := equality(Leaf{Operator: "<>", Value: nil})
		require.NoError(t, err)
		assert.Equal(t, "IS NOT", l.Operator)
		assert.Equal(t, "NULL", l.RHS)
	})

	t.Run("booleans become IS TRUE and IS FALSE", func(t *testing.T) {
		l, err := equality(Leaf{Operator: "=", Value: true})
		require.NoError(t, err)
		assert.Equal(t, "IS", l.Operator)
		assert.Equal(t, "TRUE", l.RHS)

		l, err = equality(Leaf{Operator: "=", Value: false})
		require.NoError(t, err)
		assert.Equal(t, "FALSE", l.RHS)
	})

	t.Run("scalar falls through to a placeholder", func(t *testing.T) {
		l, err := equality(Leaf{Operator: "=", Value: 42})
		require.NoError(t, err)
		assert.Equal(t, "=", l.Operator)
		assert.Empty(t, l.RHS)
		assert.Empty(t, l.Params)
	})
}

func TestInList(t *testing.T) {
	t.Run("expands a list honoring the offset", func(t *testing.T) {
		l, err := equality(Leaf{Operator: "=", Value: []any{"a", "b", "c"}, Offset: 2})
		require.NoError(t, err)
		assert.Equal(t, "IN", l.Operator)
		assert.Equal(t, "($3,$4,$5)", l.RHS)
		assert.Equal(t, []any{"a", "b", "c"}, l.Params)
	})

	t.Run("negated list becomes NOT IN", func(t *testing.T) {
		l, err := equality(Leaf{Operator: "<>", Value: []string{"a", "b"}})
		require.NoError(t, err)
		assert.Equal(t, "NOT IN", l.Operator)
		assert.Equal(t, "($1,$2)", l.RHS)
	})

	t.Run("empty list matches nothing without a syntax error", func(t *testing.T) {
		l, err := equality(Leaf{Operator: "=", Value: []any{}})
		require.NoError(t, err)
		assert.Equal(t, "=", l.Operator)
		assert.Equal(t, "ANY('{}')", l.RHS)
		assert.Empty(t, l.Params)
	})

	t.Run("empty negated list matches everything", func(t *testing.T) {
		l, err := equality(Leaf{Operator: "<>", Value: []any{}})
		require.NoError(t, err)
		assert.Equal(t, "<>", l.Operator)
		assert.Equal(t, "ALL('{}')", l.RHS)
	})
}

func TestBetween(t *testing.T) {
	t.Run("emits a two-placeholder range", func(t *testing.T) {
		l, err := between(Leaf{Operator: "BETWEEN", Value: []any{1, 100}, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, "$2 AND $3", l.RHS)
		assert.Equal(t, []any{1, 100}, l.Params)
	})

	t.Run("casts timestamp bounds", func(t *testing.T) {
		from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 1, 0)
		l, err := between(Leaf{Operator: "BETWEEN", Value: []any{from, to}})
		require.NoError(t, err)
		assert.Equal(t, "$1::timestamptz AND $2::timestamptz", l.RHS)
	})

	t.Run("rejects anything but a two-element range", func(t *testing.T) {
		_, err := between(Leaf{Operator: "BETWEEN", Value: []any{1}})
		require.Error(t, err)

		_, err = between(Leaf{Operator: "BETWEEN", Value: 7})
		require.Error(t, err)
	})
}

func TestArrayLiteral(t *testing.T) {
	t.Run("serializes a list into one parameter", func(t *testing.T) {
		l, err := arrayLiteral(Leaf{Operator: "@>", Value: []any{"a", "b"}})
		require.NoError(t, err)
		assert.Equal(t, "$1", l.RHS)
		assert.Equal(t, []any{"{a,b}"}, l.Params)
	})

	t.Run("wraps a scalar into a one-element array", func(t *testing.T) {
		l, err := arrayLiteral(Leaf{Operator: "&&", Value: "solo"})
		require.NoError(t, err)
		assert.Equal(t, []any{"{solo}"}, l.Params)
	})
}

func TestFormatArray(t *testing.T) {
	cases := []struct {
		name  string
		elems []any
		want  string
	}{
		{"plain strings", []any{"a", "b"}, `{a,b}`},
		{"numbers", []any{1, 2.5}, `{1,2.5}`},
		{"booleans", []any{true, false}, `{true,false}`},
		{"null element", []any{nil}, `{NULL}`},
		{"empty string is quoted", []any{""}, `{""}`},
		{"null-like string is quoted", []any{"NULL"}, `{"NULL"}`},
		{"comma forces quoting", []any{"a,b"}, `{"a,b"}`},
		{"braces force quoting", []any{"{x}"}, `{"{x}"}`},
		{"backslash and quote are escaped", []any{`a"b\c`}, `{"a\"b\\c"}`},
		{"whitespace forces quoting", []any{"a b"}, `{"a b"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FormatArray(tc.elems)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
