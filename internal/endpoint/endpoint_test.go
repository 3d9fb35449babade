package endpoint

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinygraph/tinygraph/internal/nsmap"
	"github.com/tinygraph/tinygraph/internal/store/memstore"
	"github.com/tinygraph/tinygraph/internal/term"
	"github.com/tinygraph/tinygraph/internal/update"
)

func newTestEndpoint(t *testing.T) *Endpoint {
	t.Helper()
	st := memstore.New()
	require.NoError(t, st.Insert(context.Background(), term.Quad{
		Subject:   term.NewIRI("http://example.org/s"),
		Predicate: term.NewIRI("http://example.org/p"),
		Object:    term.NewLiteral("v", term.XSDString),
	}))
	ns := nsmap.New()
	require.NoError(t, ns.AddPrefix("ex", "http://example.org/"))
	return New(st, update.New(st), ns)
}

func TestServiceDescriptionOnEmptyQuery(t *testing.T) {
	ep := newTestEndpoint(t)
	req := httptest.NewRequest(http.MethodGet, "/sparql", nil)
	w := httptest.NewRecorder()
	ep.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "EmptyGraphs")
	assert.Contains(t, w.Body.String(), "SPARQL_Results_JSON")
}

func TestSelectQueryDefaultsToJSON(t *testing.T) {
	ep := newTestEndpoint(t)
	req := httptest.NewRequest(http.MethodGet, "/sparql?query=SELECT+%3Fs+WHERE+%7B+%3Fs+%3Chttp%3A%2F%2Fexample.org%2Fp%3E+%3Fo+%7D", nil)
	w := httptest.NewRecorder()
	ep.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/sparql-results+json", w.Header().Get("Content-Type"))
}

func TestFormatParamOverridesAccept(t *testing.T) {
	ep := newTestEndpoint(t)
	req := httptest.NewRequest(http.MethodGet, "/sparql?query=ASK+%7B+%3Fs+%3Fp+%3Fo+%7D&format=text%2Fturtle", nil)
	req.Header.Set("Accept", "application/sparql-results+json")
	w := httptest.NewRecorder()
	ep.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/turtle", w.Header().Get("Content-Type"))
}

func TestPreferredFormatEnvOverridesDefault(t *testing.T) {
	t.Setenv(preferredFormatEnv, "3")
	ep := newTestEndpoint(t)
	req := httptest.NewRequest(http.MethodGet, "/sparql?query=ASK+%7B+%3Fs+%3Fp+%3Fo+%7D", nil)
	w := httptest.NewRecorder()
	ep.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/trig", w.Header().Get("Content-Type"))
}

func TestUnsupportedAcceptFails(t *testing.T) {
	ep := newTestEndpoint(t)
	req := httptest.NewRequest(http.MethodGet, "/sparql?query=ASK+%7B+%3Fs+%3Fp+%3Fo+%7D", nil)
	req.Header.Set("Accept", "application/pdf")
	w := httptest.NewRecorder()
	ep.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMalformedQueryReturnsBadRequest(t *testing.T) {
	ep := newTestEndpoint(t)
	req := httptest.NewRequest(http.MethodGet, "/sparql?query=SELECT+this+is+not+sparql", nil)
	w := httptest.NewRecorder()
	ep.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
