// Package store defines the opaque backing-store interface tinygraph's
// upper layers (prepared, update, txn) compile against, per spec.md §6:
// snapshot iteration, pattern match, and bulk apply. "query_sparql" and
// "update_sparql" as spec.md names them are not methods of Store itself —
// they live one layer up, in package prepared, which composes
// internal/sparql's compiler with Store's primitives and update.Engine.
// Putting the SPARQL compiler behind Store would require Store to import
// update (for mutation) and update to import Store (for storage),
// an import cycle Go's package graph forbids; prepared sits above both.
package store

import (
	"context"

	"github.com/tinygraph/tinygraph/internal/cursor"
	"github.com/tinygraph/tinygraph/internal/term"
)

// Pattern is a quad pattern to match against the store. A zero-value
// (Unbound) Term in any position matches any value in that position.
type Pattern struct {
	Graph, Subject, Predicate, Object term.Term
}

// ResourceID is the store-assigned identifier for an interned IRI or
// blank-node resource, carried on ChangeEvent per spec.md §4.7/§4.8.
type ResourceID int64

// Store is the backing store every tinygraph installation is opened
// against. A single *sync.Mutex-guarded value is created by Open and
// passed explicitly; there is no package-level singleton (Design Notes §9).
type Store interface {
	// Match returns a cursor over every quad matching pattern, with
	// columns "subject", "predicate", "object", "graph" in that order.
	Match(ctx context.Context, pattern Pattern) (cursor.Cursor, error)

	// Snapshot returns a cursor over every quad currently stored, in
	// insertion order, per spec.md §6's "snapshot iteration".
	Snapshot(ctx context.Context) (cursor.Cursor, error)

	// Insert and Delete apply one quad each. They are the primitives
	// update.Engine's ensure_resource/insert_statement/delete_statement
	// operations (spec.md §4.7) compile down to.
	Insert(ctx context.Context, q term.Quad) error
	Delete(ctx context.Context, q term.Quad) error

	// BulkApply applies quads outside the per-statement write-buffer
	// path, for the load_turtle/load_trig bulk-ingest entry points
	// spec.md §4.7 describes.
	BulkApply(ctx context.Context, quads []term.Quad) error

	// DeleteGraph removes a named graph and every quad in it atomically,
	// per spec.md §4.8's delete_graph(iri).
	DeleteGraph(ctx context.Context, graph term.Term) error

	// Lock and Unlock guard the store-level write lock spec.md §5
	// describes; callers outside package update/txn should not need
	// them directly.
	Lock()
	Unlock()

	Close() error
}
