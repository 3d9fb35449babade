package serialize

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinygraph/tinygraph/internal/cursor"
	"github.com/tinygraph/tinygraph/internal/nsmap"
	"github.com/tinygraph/tinygraph/internal/term"
)

func TestJSONLDSerializerNodeShape(t *testing.T) {
	ns := nsmap.New()
	require.NoError(t, ns.AddPrefix("ex", "http://example.org/"))

	s := term.NewIRI("http://example.org/s")
	rows := []cursor.Row{
		{s, term.NewIRI(term.RDFType), term.NewIRI("http://example.org/Thing"), term.DefaultGraph},
		{s, term.NewIRI("http://example.org/name"), term.NewLangString("bonjour", "fr"), term.DefaultGraph},
		{s, term.NewIRI("http://example.org/ref"), term.NewIRI("http://example.org/other"), term.DefaultGraph},
	}

	rc, err := New(FormatJSONLD, quadRowCursor(rows), ns)
	require.NoError(t, err)
	out, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	var doc struct {
		Context map[string]string        `json:"@context"`
		Graph   []map[string]interface{} `json:"@graph"`
	}
	require.NoError(t, json.Unmarshal(out, &doc))
	require.Equal(t, "http://example.org/", doc.Context["ex"])
	require.Len(t, doc.Graph, 1)

	node := doc.Graph[0]
	require.Equal(t, "ex:s", node["@id"])
	require.Equal(t, []interface{}{"ex:Thing"}, node["@type"])

	names := node["ex:name"].([]interface{})
	require.Len(t, names, 1)
	nameObj := names[0].(map[string]interface{})
	require.Equal(t, "bonjour", nameObj["@value"])
	require.Equal(t, "fr", nameObj["@language"])

	refs := node["ex:ref"].([]interface{})
	require.Len(t, refs, 1)
	refObj := refs[0].(map[string]interface{})
	require.Equal(t, "ex:other", refObj["@id"])
}
