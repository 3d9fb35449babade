// Package update implements the write path every mutating operation
// compiles down to: ensure_resource/generate_bnode interning, the
// insert_statement/delete_statement primitives, and the SPARQL
// INSERT/DELETE forms prepared.Statement dispatches to it, per spec.md
// §4.7's update-engine module.
package update

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/tinygraph/tinygraph/internal/errs"
	"github.com/tinygraph/tinygraph/internal/sparql"
	"github.com/tinygraph/tinygraph/internal/store"
	"github.com/tinygraph/tinygraph/internal/term"
)

// flushHighWaterMark is the pending-write count at which Engine flushes
// its buffer automatically, per spec.md §4.7's might_flush high-water
// mark of 4096 buffered statements.
const flushHighWaterMark = 4096

// pendingKind discriminates a buffered write.
type pendingKind int

const (
	pendingInsert pendingKind = iota
	pendingDelete
)

type pendingWrite struct {
	kind pendingKind
	quad term.Quad
}

// Engine is the write-path companion to a store.Store: it mints fresh
// blank-node identifiers, interns resources for change-event bookkeeping,
// and buffers writes so a bulk load doesn't take the store lock once per
// quad. Engine takes store.Store's write lock itself, inside Flush and
// DeleteGraph, for the span of each batch it applies; it does not hold
// the lock across calls, and the WHERE-clause reads ExecuteUpdate makes
// through sparql.EvaluateWhere run without it. Callers must not hold the
// store lock when calling Flush, DeleteGraph or ExecuteUpdate, since the
// lock is not reentrant.
type Engine struct {
	st store.Store

	mu        sync.Mutex
	resources map[string]store.ResourceID
	nextID    store.ResourceID
	pending   []pendingWrite
}

// New builds an Engine writing through to st.
func New(st store.Store) *Engine {
	return &Engine{
		st:        st,
		resources: make(map[string]store.ResourceID),
	}
}

// EnsureResource interns iri, returning its store.ResourceID, minting a
// new one on first sight. This id exists for change-event bookkeeping
// only (spec.md §4.7/§4.8) — it is not written to the backing store,
// which tracks quads by term value, not by interned id.
func (e *Engine) EnsureResource(iri string) store.ResourceID {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id, ok := e.resources[iri]; ok {
		return id
	}
	e.nextID++
	e.resources[iri] = e.nextID
	return e.nextID
}

// GenerateBnode mints a fresh, document-scoped blank node term, per
// spec.md §4.7's generate_bnode operation.
func (e *Engine) GenerateBnode() term.Term {
	return term.NewBlankNode(uuid.New().String())
}

// InsertStatement buffers q for insertion, flushing automatically once
// the buffer reaches flushHighWaterMark.
func (e *Engine) InsertStatement(ctx context.Context, q term.Quad) error {
	e.mu.Lock()
	e.pending = append(e.pending, pendingWrite{kind: pendingInsert, quad: q})
	shouldFlush := len(e.pending) >= flushHighWaterMark
	e.mu.Unlock()
	if shouldFlush {
		return e.Flush(ctx)
	}
	return nil
}

// DeleteStatement buffers q for deletion, flushing automatically once
// the buffer reaches flushHighWaterMark.
func (e *Engine) DeleteStatement(ctx context.Context, q term.Quad) error {
	e.mu.Lock()
	e.pending = append(e.pending, pendingWrite{kind: pendingDelete, quad: q})
	shouldFlush := len(e.pending) >= flushHighWaterMark
	e.mu.Unlock()
	if shouldFlush {
		return e.Flush(ctx)
	}
	return nil
}

// MightFlush reports whether the buffer is at or past the high-water
// mark, letting a bulk loader check without forcing a flush.
func (e *Engine) MightFlush() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending) >= flushHighWaterMark
}

// Flush applies every buffered write to the backing store and clears the
// buffer, under the store's write lock.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	batch := e.pending
	e.pending = nil
	e.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	e.st.Lock()
	defer e.st.Unlock()
	for _, w := range batch {
		var err error
		switch w.kind {
		case pendingInsert:
			err = e.st.Insert(ctx, w.quad)
		case pendingDelete:
			err = e.st.Delete(ctx, w.quad)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// DeleteGraph removes an entire named graph, flushing any buffered
// writes first so ordering between buffered inserts and the delete stays
// consistent with the calls' issue order.
func (e *Engine) DeleteGraph(ctx context.Context, graph term.Term) error {
	if err := e.Flush(ctx); err != nil {
		return err
	}
	e.st.Lock()
	defer e.st.Unlock()
	return e.st.DeleteGraph(ctx, graph)
}

// ExecuteUpdate runs a compiled INSERT DATA/DELETE DATA/INSERT ... WHERE/
// DELETE ... WHERE query against the backing store, applying the ground
// template (for the DATA forms) or the template instantiated against each
// WHERE-clause binding (for the WHERE forms). params supplies the values
// bound to any "~name" placeholders the query references.
func (e *Engine) ExecuteUpdate(ctx context.Context, q *sparql.Query, params map[string]term.Term) error {
	switch q.Kind {
	case sparql.KindInsertData:
		return e.applyTemplate(ctx, q.Template, params, pendingInsert)
	case sparql.KindDeleteData:
		return e.applyTemplate(ctx, q.Template, params, pendingDelete)
	case sparql.KindInsertWhere:
		return e.applyTemplateWithJoin(ctx, q, params, pendingInsert)
	case sparql.KindDeleteWhere:
		return e.applyTemplateWithJoin(ctx, q, params, pendingDelete)
	default:
		return errs.ErrWrongKind
	}
}

func (e *Engine) applyTemplate(ctx context.Context, template []sparql.TriplePattern, params map[string]term.Term, kind pendingKind) error {
	for _, tp := range template {
		q, err := sparql.Instantiate(tp, nil, params)
		if err != nil {
			return err
		}
		if err := e.bufferWrite(ctx, q, kind); err != nil {
			return err
		}
	}
	return e.Flush(ctx)
}

func (e *Engine) applyTemplateWithJoin(ctx context.Context, q *sparql.Query, params map[string]term.Term, kind pendingKind) error {
	bindings, err := sparql.EvaluateWhere(ctx, e.st, q.Where, params)
	if err != nil {
		return err
	}
	for _, b := range bindings {
		for _, tp := range q.Template {
			quad, err := sparql.Instantiate(tp, b, params)
			if err != nil {
				return err
			}
			if err := e.bufferWrite(ctx, quad, kind); err != nil {
				return err
			}
		}
	}
	return e.Flush(ctx)
}

func (e *Engine) bufferWrite(ctx context.Context, q term.Quad, kind pendingKind) error {
	if kind == pendingInsert {
		return e.InsertStatement(ctx, q)
	}
	return e.DeleteStatement(ctx, q)
}
