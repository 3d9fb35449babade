// Package sqlitestore is the embedded store.Store implementation,
// grounded on the teacher's database.Database DB()/Close() shape and
// RunDDLs's transaction-wrapped-apply pattern (database/database.go),
// generalized from "apply a slice of DDL strings" to "apply a slice of
// quad changes" over a denormalized quads table.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/tinygraph/tinygraph/internal/cursor"
	"github.com/tinygraph/tinygraph/internal/errs"
	"github.com/tinygraph/tinygraph/internal/store"
	"github.com/tinygraph/tinygraph/internal/term"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS quads (
	graph_kind      INTEGER NOT NULL,
	graph_value     TEXT NOT NULL,
	subject_kind    INTEGER NOT NULL,
	subject_value   TEXT NOT NULL,
	predicate_value TEXT NOT NULL,
	object_kind     INTEGER NOT NULL,
	object_value    TEXT NOT NULL,
	object_datatype TEXT NOT NULL DEFAULT '',
	object_lang     TEXT NOT NULL DEFAULT '',
	UNIQUE(graph_kind, graph_value, subject_kind, subject_value, predicate_value,
	       object_kind, object_value, object_datatype, object_lang)
);
CREATE INDEX IF NOT EXISTS idx_quads_subject ON quads(subject_kind, subject_value);
CREATE INDEX IF NOT EXISTS idx_quads_graph ON quads(graph_kind, graph_value);
`

// Store wraps a *sql.DB holding one "quads" table. Resources are not
// normalized into a separate interned table at this layer — the
// ResourceID interning map spec.md §4.7 describes lives one layer up, in
// update.Engine, guarded by the Engine's own mutex rather than by the
// write lock Lock/Unlock exposes here.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite database at dsn — a
// filesystem path, or "file::memory:?cache=shared" for an ephemeral
// store — and ensures the quads schema exists.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open: %w", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Lock()   { s.mu.Lock() }
func (s *Store) Unlock() { s.mu.Unlock() }

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying *sql.DB, following the teacher's
// database.Database.DB() accessor, for callers (migrations, admin
// tooling) that need to run SQL outside the Store interface.
func (s *Store) DB() *sql.DB { return s.db }

func termToColumns(t term.Term) (kind int, value, datatype, lang string) {
	switch t.Kind() {
	case term.KindIRI:
		return 1, t.Value(), "", ""
	case term.KindBlankNode:
		return 2, t.Value(), "", ""
	case term.KindLiteral:
		return 3, t.Value(), t.Datatype(), t.Lang()
	default:
		return 0, "", "", ""
	}
}

func columnsToTerm(kind int, value, datatype, lang string) term.Term {
	switch kind {
	case 1:
		return term.NewIRI(value)
	case 2:
		return term.NewBlankNode(value)
	case 3:
		if lang != "" {
			return term.NewLangString(value, lang)
		}
		return term.NewLiteral(value, datatype)
	default:
		return term.Unbound
	}
}

const insertSQL = `INSERT OR IGNORE INTO quads
	(graph_kind, graph_value, subject_kind, subject_value, predicate_value,
	 object_kind, object_value, object_datatype, object_lang)
	VALUES (?,?,?,?,?,?,?,?,?)`

func quadArgs(q term.Quad) []interface{} {
	gk, gv, _, _ := termToColumns(q.Graph)
	sk, sv, _, _ := termToColumns(q.Subject)
	_, pv, _, _ := termToColumns(q.Predicate)
	ok, ov, odt, ol := termToColumns(q.Object)
	return []interface{}{gk, gv, sk, sv, pv, ok, ov, odt, ol}
}

func (s *Store) Insert(ctx context.Context, q term.Quad) error {
	if _, err := s.db.ExecContext(ctx, insertSQL, quadArgs(q)...); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStorage, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, q term.Quad) error {
	args := quadArgs(q)
	_, err := s.db.ExecContext(ctx, `DELETE FROM quads WHERE
		graph_kind=? AND graph_value=? AND subject_kind=? AND subject_value=? AND predicate_value=?
		AND object_kind=? AND object_value=? AND object_datatype=? AND object_lang=?`, args...)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStorage, err)
	}
	return nil
}

func (s *Store) BulkApply(ctx context.Context, quads []term.Quad) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStorage, err)
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("%w: %v", errs.ErrStorage, err)
	}
	defer stmt.Close()

	for _, q := range quads {
		if _, err := stmt.ExecContext(ctx, quadArgs(q)...); err != nil {
			tx.Rollback()
			return fmt.Errorf("%w: %v", errs.ErrStorage, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStorage, err)
	}
	return nil
}

func (s *Store) DeleteGraph(ctx context.Context, graph term.Term) error {
	gk, gv, _, _ := termToColumns(graph)
	_, err := s.db.ExecContext(ctx, `DELETE FROM quads WHERE graph_kind=? AND graph_value=?`, gk, gv)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStorage, err)
	}
	return nil
}

func (s *Store) Match(ctx context.Context, p store.Pattern) (cursor.Cursor, error) {
	where := "1=1"
	var args []interface{}

	addBound := func(t term.Term, kindCol, valCol string) {
		if t.IsUnbound() {
			return
		}
		kind, value, _, _ := termToColumns(t)
		where += fmt.Sprintf(" AND %s=? AND %s=?", kindCol, valCol)
		args = append(args, kind, value)
	}
	addBound(p.Graph, "graph_kind", "graph_value")
	addBound(p.Subject, "subject_kind", "subject_value")
	if !p.Predicate.IsUnbound() {
		where += " AND predicate_value=?"
		args = append(args, p.Predicate.Value())
	}
	addBound(p.Object, "object_kind", "object_value")

	rows, err := s.db.QueryContext(ctx, `SELECT subject_kind, subject_value, predicate_value,
		object_kind, object_value, object_datatype, object_lang, graph_kind, graph_value
		FROM quads WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrStorage, err)
	}
	defer rows.Close()

	var out []cursor.Row
	for rows.Next() {
		var sk, ok, gk int
		var sv, pv, ov, odt, ol, gv string
		if err := rows.Scan(&sk, &sv, &pv, &ok, &ov, &odt, &ol, &gk, &gv); err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrStorage, err)
		}
		out = append(out, cursor.Row{
			columnsToTerm(sk, sv, "", ""),
			term.NewIRI(pv),
			columnsToTerm(ok, ov, odt, ol),
			columnsToTerm(gk, gv, "", ""),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrStorage, err)
	}
	return cursor.NewSliceCursor([]string{"subject", "predicate", "object", "graph"}, out), nil
}

func (s *Store) Snapshot(ctx context.Context) (cursor.Cursor, error) {
	return s.Match(ctx, store.Pattern{})
}

var _ store.Store = (*Store)(nil)
