package txn

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinygraph/tinygraph/internal/store/memstore"
	"github.com/tinygraph/tinygraph/internal/term"
)

func quad(s string) term.Quad {
	return term.Quad{
		Subject:   term.NewIRI(s),
		Predicate: term.NewIRI("http://example.org/p"),
		Object:    term.NewLiteral("v", term.XSDString),
	}
}

func TestManagerCommitAppliesToStore(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	m := New(st)

	require.NoError(t, m.Begin())
	require.NoError(t, m.Insert(quad("http://example.org/a")))
	require.NoError(t, m.Commit(ctx))

	st.Lock()
	cur, err := st.Snapshot(ctx)
	st.Unlock()
	require.NoError(t, err)
	defer cur.Close()
	has, err := cur.Next(ctx)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestManagerRollbackDiscardsNothingCommitted(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	m := New(st)

	require.NoError(t, m.Begin())
	require.NoError(t, m.Insert(quad("http://example.org/a")))
	require.NoError(t, m.Rollback())

	st.Lock()
	cur, err := st.Snapshot(ctx)
	st.Unlock()
	require.NoError(t, err)
	defer cur.Close()
	has, err := cur.Next(ctx)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestManagerSavepointRollback(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	m := New(st)

	require.NoError(t, m.Begin())
	require.NoError(t, m.Insert(quad("http://example.org/a")))
	require.NoError(t, m.Savepoint("sp1"))
	require.NoError(t, m.Insert(quad("http://example.org/b")))
	require.NoError(t, m.RollbackTo("sp1"))
	require.NoError(t, m.Commit(ctx))

	st.Lock()
	cur, err := st.Snapshot(ctx)
	st.Unlock()
	require.NoError(t, err)
	defer cur.Close()

	var subjects []string
	for {
		has, err := cur.Next(ctx)
		require.NoError(t, err)
		if !has {
			break
		}
		subjects = append(subjects, cur.Term(0).Value())
	}
	assert.Equal(t, []string{"http://example.org/a"}, subjects)
}

func TestManagerBeginTwiceFails(t *testing.T) {
	st := memstore.New()
	m := New(st)
	require.NoError(t, m.Begin())
	assert.ErrorIs(t, m.Begin(), ErrTransactionInProgress)
}

func TestManagerCallbackDispatchOrder(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	m := New(st)

	var statementOrder []string
	m.AddStatementCallback(func(ev ChangeEvent) error {
		statementOrder = append(statementOrder, ev.Quad.Subject.Value())
		return nil
	})
	var txnBatches [][]ChangeEvent
	m.AddTransactionCallback(func(events []ChangeEvent) error {
		txnBatches = append(txnBatches, events)
		return nil
	})

	require.NoError(t, m.Begin())
	require.NoError(t, m.Insert(quad("http://example.org/a")))
	require.NoError(t, m.Insert(quad("http://example.org/b")))
	require.NoError(t, m.Commit(ctx))

	assert.Equal(t, []string{"http://example.org/a", "http://example.org/b"}, statementOrder)
	require.Len(t, txnBatches, 1)
	assert.Len(t, txnBatches[0], 2)
}

func TestManagerResourceIDStableAcrossEvents(t *testing.T) {
	st := memstore.New()
	m := New(st)
	require.NoError(t, m.Begin())
	require.NoError(t, m.Insert(quad("http://example.org/a")))
	require.NoError(t, m.Insert(term.Quad{
		Subject:   term.NewIRI("http://example.org/a"),
		Predicate: term.NewIRI("http://example.org/other"),
		Object:    term.NewLiteral("w", term.XSDString),
	}))
	assert.Equal(t, m.pending[0].ResourceID, m.pending[1].ResourceID)
	require.NoError(t, m.Rollback())
}
