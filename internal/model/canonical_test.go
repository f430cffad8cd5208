package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalSortsKeys(t *testing.T) {
	text, err := MarshalCanonical(map[string]any{
		"zeta":  json.Number("1"),
		"alpha": "x",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":"x","zeta":1}`, text)
}

func TestMarshalCanonicalNesting(t *testing.T) {
	text, err := MarshalCanonical([]any{
		map[string]any{"b": true, "a": nil},
		json.Number("2.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, `[{"a":null,"b":true},2.5]`, text)
}

func TestMarshalCanonicalNoHTMLEscaping(t *testing.T) {
	text, err := MarshalCanonical("a<b>&c")
	require.NoError(t, err)
	assert.Equal(t, `"a<b>&c"`, text)
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// "é" decomposed (e + combining acute) normalizes to the composed form
	decomposed := "cafe\u0301"
	composed := "caf\u00e9"

	a, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	b, err := MarshalCanonical(composed)
	require.NoError(t, err)
	assert.Equal(t, b, a)
}

func TestMarshalCanonicalNumberVerbatim(t *testing.T) {
	// a 19-digit integer would lose precision through float64
	text, err := MarshalCanonical(json.Number("9007199254740993"))
	require.NoError(t, err)
	assert.Equal(t, "9007199254740993", text)
}

func TestMarshalCanonicalDeterministic(t *testing.T) {
	value := map[string]any{
		"list": []any{json.Number("1"), "two", map[string]any{"k": "v"}},
		"name": "composite",
	}
	first, err := MarshalCanonical(value)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := MarshalCanonical(value)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
