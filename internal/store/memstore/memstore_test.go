package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinygraph/tinygraph/internal/store"
	"github.com/tinygraph/tinygraph/internal/term"
)

func drainRows(t *testing.T, cur interface {
	Next(context.Context) (bool, error)
	ColumnCount() int
	Term(int) term.Term
}) [][]term.Term {
	t.Helper()
	var out [][]term.Term
	for {
		has, err := cur.Next(context.Background())
		require.NoError(t, err)
		if !has {
			return out
		}
		row := make([]term.Term, cur.ColumnCount())
		for i := range row {
			row[i] = cur.Term(i)
		}
		out = append(out, row)
	}
}

func TestMemstoreInsertAndMatch(t *testing.T) {
	s := New()
	ctx := context.Background()

	q := term.Quad{
		Graph:     term.DefaultGraph,
		Subject:   term.NewIRI("http://e/a"),
		Predicate: term.NewIRI("http://e/p"),
		Object:    term.NewLiteral("v", ""),
	}
	require.NoError(t, s.Insert(ctx, q))
	require.NoError(t, s.Insert(ctx, q)) // duplicate insert is a no-op

	cur, err := s.Match(ctx, store.Pattern{Subject: q.Subject})
	require.NoError(t, err)
	rows := drainRows(t, cur)
	assert.Len(t, rows, 1)
	assert.Equal(t, q.Predicate, rows[0][1])
}

func TestMemstoreDeleteRemovesQuad(t *testing.T) {
	s := New()
	ctx := context.Background()
	q := term.Quad{
		Graph: term.DefaultGraph, Subject: term.NewIRI("http://e/a"),
		Predicate: term.NewIRI("http://e/p"), Object: term.NewLiteral("v", ""),
	}
	require.NoError(t, s.Insert(ctx, q))
	require.NoError(t, s.Delete(ctx, q))

	cur, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, drainRows(t, cur))
}

func TestMemstoreDeleteGraphRemovesOnlyThatGraph(t *testing.T) {
	s := New()
	ctx := context.Background()
	g1 := term.NewIRI("http://e/g1")
	g2 := term.NewIRI("http://e/g2")
	mk := func(g term.Term) term.Quad {
		return term.Quad{Graph: g, Subject: term.NewIRI("http://e/a"), Predicate: term.NewIRI("http://e/p"), Object: term.NewLiteral("v", "")}
	}
	require.NoError(t, s.Insert(ctx, mk(g1)))
	require.NoError(t, s.Insert(ctx, mk(g2)))
	require.NoError(t, s.DeleteGraph(ctx, g1))

	cur, err := s.Snapshot(ctx)
	require.NoError(t, err)
	rows := drainRows(t, cur)
	require.Len(t, rows, 1)
	assert.Equal(t, g2, rows[0][3])
}

func TestMemstoreBulkApply(t *testing.T) {
	s := New()
	ctx := context.Background()
	quads := []term.Quad{
		{Graph: term.DefaultGraph, Subject: term.NewIRI("http://e/a"), Predicate: term.NewIRI("http://e/p"), Object: term.NewLiteral("1", "")},
		{Graph: term.DefaultGraph, Subject: term.NewIRI("http://e/b"), Predicate: term.NewIRI("http://e/p"), Object: term.NewLiteral("2", "")},
	}
	require.NoError(t, s.BulkApply(ctx, quads))

	cur, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, drainRows(t, cur), 2)
}
