package jsonio

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinygraph/tinygraph/internal/nsmap"
	"github.com/tinygraph/tinygraph/internal/term"
)

func drainLD(t *testing.T, d *LDDeserializer) []term.Quad {
	t.Helper()
	var quads []term.Quad
	for {
		has, err := d.Next(context.Background())
		require.NoError(t, err)
		if !has {
			break
		}
		quads = append(quads, term.Quad{
			Subject:   d.Term(0),
			Predicate: d.Term(1),
			Object:    d.Term(2),
			Graph:     d.Term(3),
		})
	}
	return quads
}

func TestJSONLDFlatNodeObject(t *testing.T) {
	src := `{
  "@context": {"ex": "http://example.org/"},
  "@graph": [
    {"@id": "ex:s", "@type": "ex:Thing", "ex:name": {"@value": "hello", "@language": "en"}}
  ]
}`
	ns := nsmap.New()
	d, err := NewJSONLD(strings.NewReader(src), ns)
	require.NoError(t, err)
	quads := drainLD(t, d)
	require.Len(t, quads, 2)

	byPred := map[string]term.Quad{}
	for _, q := range quads {
		byPred[q.Predicate.Value()] = q
	}

	typeQuad := byPred[term.RDFType]
	assert.Equal(t, "http://example.org/s", typeQuad.Subject.Value())
	assert.Equal(t, "http://example.org/Thing", typeQuad.Object.Value())

	nameQuad := byPred["http://example.org/name"]
	assert.Equal(t, "hello", nameQuad.Object.Value())
	assert.Equal(t, "en", nameQuad.Object.Lang())
}

func TestJSONLDEmbeddedNode(t *testing.T) {
	src := `[
    {"@id": "http://e/s", "http://e/p": {"http://e/q": {"@value": "inner"}}}
  ]`
	ns := nsmap.New()
	d, err := NewJSONLD(strings.NewReader(src), ns)
	require.NoError(t, err)
	quads := drainLD(t, d)
	require.Len(t, quads, 2)

	var outer, inner *term.Quad
	for i := range quads {
		if quads[i].Predicate.Value() == "http://e/p" {
			outer = &quads[i]
		}
		if quads[i].Predicate.Value() == "http://e/q" {
			inner = &quads[i]
		}
	}
	require.NotNil(t, outer)
	require.NotNil(t, inner)
	assert.Equal(t, "http://e/s", outer.Subject.Value())
	assert.Equal(t, term.KindBlankNode, outer.Object.Kind())
	assert.Equal(t, outer.Object.Value(), inner.Subject.Value())
	assert.Equal(t, "inner", inner.Object.Value())
}
