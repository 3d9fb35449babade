// Package memstore is the in-memory store.Store test double, grounded on
// the teacher's testutil throwaway-backend pattern: a fast stand-in for
// the real (sqlitestore) backend so package tests don't need a live
// embedded database.
package memstore

import (
	"context"
	"sync"

	"github.com/tinygraph/tinygraph/internal/cursor"
	"github.com/tinygraph/tinygraph/internal/store"
	"github.com/tinygraph/tinygraph/internal/term"
)

// Store is a plain, unindexed slice of quads. mu is the single
// store-level write lock spec.md §5 describes, exposed through
// Lock/Unlock for txn/update to bracket a transaction with; the data
// methods below never acquire it themselves; acquiring it again inside
// a method a caller is already holding it for would deadlock on the
// non-reentrant sync.Mutex. A Store used outside that discipline (e.g.
// Match called standalone for a one-off read) is not safe for
// concurrent use with a writer — callers needing that should still
// bracket the call with Lock/Unlock.
type Store struct {
	mu    sync.Mutex
	quads []term.Quad
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

func (s *Store) Lock()   { s.mu.Lock() }
func (s *Store) Unlock() { s.mu.Unlock() }

func (s *Store) Match(ctx context.Context, p store.Pattern) (cursor.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []cursor.Row
	for _, q := range s.quads {
		if matches(p, q) {
			rows = append(rows, cursor.Row{q.Subject, q.Predicate, q.Object, q.Graph})
		}
	}
	return cursor.NewSliceCursor([]string{"subject", "predicate", "object", "graph"}, rows), nil
}

func matches(p store.Pattern, q term.Quad) bool {
	return termMatches(p.Graph, q.Graph) &&
		termMatches(p.Subject, q.Subject) &&
		termMatches(p.Predicate, q.Predicate) &&
		termMatches(p.Object, q.Object)
}

func termMatches(pattern, candidate term.Term) bool {
	return pattern.IsUnbound() || pattern.Equal(candidate)
}

func (s *Store) Snapshot(ctx context.Context) (cursor.Cursor, error) {
	return s.Match(ctx, store.Pattern{})
}

func (s *Store) Insert(ctx context.Context, q term.Quad) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, existing := range s.quads {
		if existing.Equal(q) {
			return nil
		}
	}
	s.quads = append(s.quads, q)
	return nil
}

func (s *Store) Delete(ctx context.Context, q term.Quad) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	out := s.quads[:0]
	for _, existing := range s.quads {
		if !existing.Equal(q) {
			out = append(out, existing)
		}
	}
	s.quads = out
	return nil
}

func (s *Store) BulkApply(ctx context.Context, quads []term.Quad) error {
	for _, q := range quads {
		if err := s.Insert(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) DeleteGraph(ctx context.Context, graph term.Term) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	out := s.quads[:0]
	for _, existing := range s.quads {
		if !existing.Graph.Equal(graph) {
			out = append(out, existing)
		}
	}
	s.quads = out
	return nil
}

func (s *Store) Close() error { return nil }

var _ store.Store = (*Store)(nil)
