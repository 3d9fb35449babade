package update

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinygraph/tinygraph/internal/nsmap"
	"github.com/tinygraph/tinygraph/internal/sparql"
	"github.com/tinygraph/tinygraph/internal/store"
	"github.com/tinygraph/tinygraph/internal/store/memstore"
	"github.com/tinygraph/tinygraph/internal/term"
)

func TestEngineInsertStatementFlushesToStore(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	eng := New(st)

	q := term.Quad{
		Subject:   term.NewIRI("http://example.org/s"),
		Predicate: term.NewIRI("http://example.org/p"),
		Object:    term.NewLiteral("hi", term.XSDString),
	}
	require.NoError(t, eng.InsertStatement(ctx, q))
	require.NoError(t, eng.Flush(ctx))

	st.Lock()
	cur, err := st.Snapshot(ctx)
	st.Unlock()
	require.NoError(t, err)
	defer cur.Close()
	has, err := cur.Next(ctx)
	require.NoError(t, err)
	assert.True(t, has)
	got := term.Quad{Subject: cur.Term(0), Predicate: cur.Term(1), Object: cur.Term(2), Graph: cur.Term(3)}
	assert.True(t, q.Equal(got))
}

func TestEngineEnsureResourceIsStable(t *testing.T) {
	eng := New(memstore.New())
	id1 := eng.EnsureResource("http://example.org/s")
	id2 := eng.EnsureResource("http://example.org/s")
	id3 := eng.EnsureResource("http://example.org/other")
	assert.Equal(t, id1, id2)
	assert.NotEqual(t, id1, id3)
}

func TestEngineGenerateBnodeIsUnique(t *testing.T) {
	eng := New(memstore.New())
	a := eng.GenerateBnode()
	b := eng.GenerateBnode()
	assert.False(t, a.Equal(b))
}

func TestEngineExecuteUpdateInsertData(t *testing.T) {
	ctx := context.Background()
	ns := nsmap.New()
	st := memstore.New()
	eng := New(st)

	q, err := sparql.Parse(`PREFIX ex: <http://example.org/>
INSERT DATA { ex:s ex:p "v" . }`, ns)
	require.NoError(t, err)
	require.NoError(t, eng.ExecuteUpdate(ctx, q, nil))

	st.Lock()
	cur, err := st.Snapshot(ctx)
	st.Unlock()
	require.NoError(t, err)
	defer cur.Close()
	has, err := cur.Next(ctx)
	require.NoError(t, err)
	require.True(t, has)
	assert.Equal(t, "http://example.org/s", cur.Term(0).Value())
}

func TestEngineExecuteUpdateDeleteWhere(t *testing.T) {
	ctx := context.Background()
	ns := nsmap.New()
	st := memstore.New()
	eng := New(st)

	seed := term.Quad{
		Subject:   term.NewIRI("http://example.org/s"),
		Predicate: term.NewIRI("http://example.org/p"),
		Object:    term.NewLiteral("v", term.XSDString),
	}
	st.Lock()
	require.NoError(t, st.Insert(ctx, seed))
	st.Unlock()

	q, err := sparql.Parse(`PREFIX ex: <http://example.org/>
DELETE { ?s ex:p ?o . } WHERE { ?s ex:p ?o . }`, ns)
	require.NoError(t, err)
	require.NoError(t, eng.ExecuteUpdate(ctx, q, nil))

	st.Lock()
	cur, err := st.Snapshot(ctx)
	st.Unlock()
	require.NoError(t, err)
	defer cur.Close()
	has, err := cur.Next(ctx)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestEngineExecuteUpdateInsertWhereWithPlaceholder(t *testing.T) {
	ctx := context.Background()
	ns := nsmap.New()
	st := memstore.New()
	eng := New(st)

	seed := term.Quad{
		Subject:   term.NewIRI("http://example.org/a"),
		Predicate: term.NewIRI("http://example.org/knows"),
		Object:    term.NewIRI("http://example.org/b"),
	}
	st.Lock()
	require.NoError(t, st.Insert(ctx, seed))
	st.Unlock()

	q, err := sparql.Parse(`PREFIX ex: <http://example.org/>
INSERT { ?s ex:met ~who . } WHERE { ?s ex:knows ?o . }`, ns)
	require.NoError(t, err)

	params := map[string]term.Term{"who": term.NewLiteral("conference", term.XSDString)}
	require.NoError(t, eng.ExecuteUpdate(ctx, q, params))

	st.Lock()
	cur, err := st.Match(ctx, store.Pattern{Predicate: term.NewIRI("http://example.org/met")})
	st.Unlock()
	require.NoError(t, err)
	defer cur.Close()
	has, err := cur.Next(ctx)
	require.NoError(t, err)
	require.True(t, has)
	assert.Equal(t, "conference", cur.Term(2).Value())
}
