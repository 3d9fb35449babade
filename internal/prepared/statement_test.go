package prepared

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinygraph/tinygraph/internal/nsmap"
	"github.com/tinygraph/tinygraph/internal/serialize"
	"github.com/tinygraph/tinygraph/internal/store/memstore"
	"github.com/tinygraph/tinygraph/internal/term"
	"github.com/tinygraph/tinygraph/internal/update"
)

func seedStore(t *testing.T, st *memstore.Store, quads ...term.Quad) {
	t.Helper()
	ctx := context.Background()
	st.Lock()
	defer st.Unlock()
	for _, q := range quads {
		require.NoError(t, st.Insert(ctx, q))
	}
}

func TestStatementExecuteSelect(t *testing.T) {
	ctx := context.Background()
	ns := nsmap.New()
	st := memstore.New()
	seedStore(t, st, term.Quad{
		Subject:   term.NewIRI("http://example.org/s"),
		Predicate: term.NewIRI("http://example.org/p"),
		Object:    term.NewLiteral("v", term.XSDString),
	})

	stmt, err := New(st, update.New(st), ns, `PREFIX ex: <http://example.org/>
SELECT ?s ?o WHERE { ?s ex:p ?o . }`)
	require.NoError(t, err)

	cur, err := stmt.Execute(ctx)
	require.NoError(t, err)
	defer cur.Close()
	has, err := cur.Next(ctx)
	require.NoError(t, err)
	require.True(t, has)
	assert.Equal(t, "http://example.org/s", cur.Term(0).Value())
	assert.Equal(t, "v", cur.Term(1).Value())
	has, err = cur.Next(ctx)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestStatementExecuteAsk(t *testing.T) {
	ctx := context.Background()
	ns := nsmap.New()
	st := memstore.New()
	seedStore(t, st, term.Quad{
		Subject:   term.NewIRI("http://example.org/s"),
		Predicate: term.NewIRI("http://example.org/p"),
		Object:    term.NewLiteral("v", term.XSDString),
	})

	stmt, err := New(st, update.New(st), ns, `PREFIX ex: <http://example.org/>
ASK WHERE { ex:s ex:p ?o . }`)
	require.NoError(t, err)

	cur, err := stmt.Execute(ctx)
	require.NoError(t, err)
	defer cur.Close()
	has, err := cur.Next(ctx)
	require.NoError(t, err)
	require.True(t, has)
	b, err := cur.Boolean(0)
	require.NoError(t, err)
	assert.True(t, b)
}

func TestStatementExecuteConstruct(t *testing.T) {
	ctx := context.Background()
	ns := nsmap.New()
	st := memstore.New()
	seedStore(t, st, term.Quad{
		Subject:   term.NewIRI("http://example.org/s"),
		Predicate: term.NewIRI("http://example.org/knows"),
		Object:    term.NewIRI("http://example.org/o"),
	})

	stmt, err := New(st, update.New(st), ns, `PREFIX ex: <http://example.org/>
CONSTRUCT { ?s ex:related ?o . } WHERE { ?s ex:knows ?o . }`)
	require.NoError(t, err)

	cur, err := stmt.Execute(ctx)
	require.NoError(t, err)
	defer cur.Close()
	has, err := cur.Next(ctx)
	require.NoError(t, err)
	require.True(t, has)
	assert.Equal(t, "http://example.org/related", cur.Term(1).Value())
}

func TestStatementUpdateInsertData(t *testing.T) {
	ctx := context.Background()
	ns := nsmap.New()
	st := memstore.New()
	eng := update.New(st)

	stmt, err := New(st, eng, ns, `PREFIX ex: <http://example.org/>
INSERT DATA { ex:s ex:p "v" . }`)
	require.NoError(t, err)
	require.NoError(t, stmt.Update(ctx))

	st.Lock()
	cur, err := st.Snapshot(ctx)
	st.Unlock()
	require.NoError(t, err)
	defer cur.Close()
	has, err := cur.Next(ctx)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestStatementUpdateRejectsReadOnlyQuery(t *testing.T) {
	ctx := context.Background()
	ns := nsmap.New()
	st := memstore.New()
	stmt, err := New(st, update.New(st), ns, `PREFIX ex: <http://example.org/>
SELECT ?s WHERE { ?s ex:p ?o . }`)
	require.NoError(t, err)
	assert.Error(t, stmt.Update(ctx))
}

func TestStatementExecuteRejectsUpdateQuery(t *testing.T) {
	ctx := context.Background()
	ns := nsmap.New()
	st := memstore.New()
	stmt, err := New(st, update.New(st), ns, `PREFIX ex: <http://example.org/>
INSERT DATA { ex:s ex:p "v" . }`)
	require.NoError(t, err)
	_, err = stmt.Execute(ctx)
	assert.Error(t, err)
}

func TestStatementBindPlaceholder(t *testing.T) {
	ctx := context.Background()
	ns := nsmap.New()
	st := memstore.New()
	seedStore(t, st, term.Quad{
		Subject:   term.NewIRI("http://example.org/s"),
		Predicate: term.NewIRI("http://example.org/age"),
		Object:    term.NewLiteral("42", "http://www.w3.org/2001/XMLSchema#integer"),
	})

	stmt, err := New(st, update.New(st), ns, `PREFIX ex: <http://example.org/>
SELECT ?s WHERE { ?s ex:age ~age . }`)
	require.NoError(t, err)
	stmt.BindInt("age", 42)

	cur, err := stmt.Execute(ctx)
	require.NoError(t, err)
	defer cur.Close()
	has, err := cur.Next(ctx)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestStatementSerialize(t *testing.T) {
	ctx := context.Background()
	ns := nsmap.New()
	ns.AddPrefix("ex", "http://example.org/")
	st := memstore.New()
	seedStore(t, st, term.Quad{
		Subject:   term.NewIRI("http://example.org/s"),
		Predicate: term.NewIRI("http://example.org/p"),
		Object:    term.NewLiteral("v", term.XSDString),
	})

	stmt, err := New(st, update.New(st), ns, `PREFIX ex: <http://example.org/>
CONSTRUCT { ?s ex:p ?o . } WHERE { ?s ex:p ?o . }`)
	require.NoError(t, err)

	rc, err := stmt.Serialize(ctx, serialize.FormatTurtle)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Contains(t, string(body), "ex:s")
}
