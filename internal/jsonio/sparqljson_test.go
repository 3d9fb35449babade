package jsonio

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinygraph/tinygraph/internal/cursor"
)

const sparqlJSONFixture = `{
  "head": {"vars": ["s", "o"]},
  "results": {
    "bindings": [
      {"s": {"type": "uri", "value": "http://e/a"}, "o": {"type": "literal", "value": "hi", "xml:lang": "en"}},
      {"s": {"type": "bnode", "value": "b0"}, "o": {"type": "literal", "value": "42", "datatype": "http://www.w3.org/2001/XMLSchema#integer"}}
    ]
  }
}`

func TestSPARQLJSONDeserializerBindings(t *testing.T) {
	d, err := New(strings.NewReader(sparqlJSONFixture))
	require.NoError(t, err)
	require.Equal(t, 2, d.ColumnCount())

	has, err := d.Next(context.Background())
	require.NoError(t, err)
	require.True(t, has)
	lex, lang, _ := d.String(1)
	assert.Equal(t, "hi", lex)
	require.NotNil(t, lang)
	assert.Equal(t, "en", *lang)

	has, err = d.Next(context.Background())
	require.NoError(t, err)
	require.True(t, has)
	assert.Equal(t, cursor.TypeBlankNode, d.ValueType(0))
	n, err := d.Integer(1)
	require.NoError(t, err)
	assert.EqualValues(t, 42, n)

	has, err = d.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, has)
}

func TestSPARQLJSONDeserializerAskBoolean(t *testing.T) {
	d, err := New(strings.NewReader(`{"head":{},"boolean":true}`))
	require.NoError(t, err)
	b, ok := d.AskResult()
	require.True(t, ok)
	assert.True(t, b)

	has, err := d.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, has)
}

func TestSPARQLJSONDeserializerMissingBindingIsUnbound(t *testing.T) {
	src := `{"head":{"vars":["s","o"]},"results":{"bindings":[{"s":{"type":"uri","value":"http://e/a"}}]}}`
	d, err := New(strings.NewReader(src))
	require.NoError(t, err)
	has, err := d.Next(context.Background())
	require.NoError(t, err)
	require.True(t, has)
	assert.Equal(t, cursor.TypeUnbound, d.ValueType(1))
}
