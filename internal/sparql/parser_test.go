package sparql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinygraph/tinygraph/internal/nsmap"
	"github.com/tinygraph/tinygraph/internal/term"
)

func TestParseSelectBasicPattern(t *testing.T) {
	ns := nsmap.New()
	q, err := Parse(`PREFIX ex: <http://example.org/>
SELECT ?s ?o WHERE { ?s ex:p ?o . }`, ns)
	require.NoError(t, err)

	assert.Equal(t, KindSelect, q.Kind)
	assert.Equal(t, []string{"s", "o"}, q.SelectVars)
	require.Len(t, q.Where, 1)
	tp := q.Where[0]
	assert.Equal(t, "s", tp.Subject.Var)
	assert.True(t, tp.Predicate.IsBound())
	assert.Equal(t, "http://example.org/p", tp.Predicate.Bound.Value())
	assert.Equal(t, "o", tp.Object.Var)
}

func TestParseSelectPredicateObjectSugar(t *testing.T) {
	ns := nsmap.New()
	q, err := Parse(`PREFIX ex: <http://example.org/>
SELECT * WHERE { ex:s ex:p1 ex:o1 , ex:o2 ; ex:p2 ?v . }`, ns)
	require.NoError(t, err)
	assert.True(t, q.SelectAll)
	require.Len(t, q.Where, 3)
	assert.Equal(t, "http://example.org/o1", q.Where[0].Object.Bound.Value())
	assert.Equal(t, "http://example.org/o2", q.Where[1].Object.Bound.Value())
	assert.Equal(t, "v", q.Where[2].Object.Var)
}

func TestParseAskRdfTypeShorthand(t *testing.T) {
	ns := nsmap.New()
	q, err := Parse(`PREFIX ex: <http://example.org/>
ASK WHERE { ex:s a ex:Thing . }`, ns)
	require.NoError(t, err)
	assert.Equal(t, KindAsk, q.Kind)
	require.Len(t, q.Where, 1)
	assert.Equal(t, term.RDFType, q.Where[0].Predicate.Bound.Value())
}

func TestParseGraphBlock(t *testing.T) {
	ns := nsmap.New()
	q, err := Parse(`PREFIX ex: <http://example.org/>
SELECT ?s WHERE { GRAPH ex:g1 { ?s ex:p ex:o . } }`, ns)
	require.NoError(t, err)
	require.Len(t, q.Where, 1)
	assert.True(t, q.Where[0].HasExplicitGraph)
	assert.Equal(t, "http://example.org/g1", q.Where[0].Graph.Bound.Value())
}

func TestParseInsertDataGroundOnly(t *testing.T) {
	ns := nsmap.New()
	q, err := Parse(`PREFIX ex: <http://example.org/>
INSERT DATA { ex:s ex:p "v" . }`, ns)
	require.NoError(t, err)
	assert.Equal(t, KindInsertData, q.Kind)
	require.Len(t, q.Template, 1)
	assert.Equal(t, "v", q.Template[0].Object.Bound.Value())
}

func TestParseInsertDataRejectsVariables(t *testing.T) {
	ns := nsmap.New()
	_, err := Parse(`PREFIX ex: <http://example.org/>
INSERT DATA { ex:s ex:p ?v . }`, ns)
	assert.Error(t, err)
}

func TestParseDeleteWhere(t *testing.T) {
	ns := nsmap.New()
	q, err := Parse(`PREFIX ex: <http://example.org/>
DELETE { ?s ex:p ?o . } WHERE { ?s ex:p ?o . }`, ns)
	require.NoError(t, err)
	assert.Equal(t, KindDeleteWhere, q.Kind)
	require.Len(t, q.Template, 1)
	require.Len(t, q.Where, 1)
}

func TestParsePlaceholderBinding(t *testing.T) {
	ns := nsmap.New()
	q, err := Parse(`PREFIX ex: <http://example.org/>
SELECT ?s WHERE { ?s ex:p ~val . }`, ns)
	require.NoError(t, err)
	assert.Equal(t, []string{"val"}, q.Placeholders())
}

func TestParseBlankNodeLabel(t *testing.T) {
	ns := nsmap.New()
	q, err := Parse(`PREFIX ex: <http://example.org/>
SELECT ?o WHERE { _:b ex:p ?o . }`, ns)
	require.NoError(t, err)
	require.Len(t, q.Where, 1)
	assert.Equal(t, "b", q.Where[0].Subject.Bound.Value())
}

func TestParseLiteralWithDatatype(t *testing.T) {
	ns := nsmap.New()
	q, err := Parse(`PREFIX ex: <http://example.org/>
PREFIX xsd: <http://www.w3.org/2001/XMLSchema#>
SELECT ?s WHERE { ?s ex:p "42"^^xsd:integer . }`, ns)
	require.NoError(t, err)
	obj := q.Where[0].Object.Bound
	assert.Equal(t, "42", obj.Value())
	assert.Equal(t, "http://www.w3.org/2001/XMLSchema#integer", obj.Datatype())
}

func TestParseUnknownPrefixFails(t *testing.T) {
	ns := nsmap.New()
	_, err := Parse(`SELECT ?s WHERE { ?s bad:p ?o . }`, ns)
	assert.Error(t, err)
}
