// Package prepared implements the compiled query/update handle every
// caller binds parameters against and executes, per spec.md §4.6.
// query_sparql and update_sparql, named that way in spec.md, are methods
// of Statement rather than of store.Store: compiling a SPARQL string
// needs both the read path (internal/sparql + internal/store) and the
// write path (internal/update), and putting that composition behind
// Store would force an import cycle between store and update. Statement
// sits one layer above both, as internal/store's package doc already
// records.
package prepared

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tinygraph/tinygraph/internal/cursor"
	"github.com/tinygraph/tinygraph/internal/errs"
	"github.com/tinygraph/tinygraph/internal/nsmap"
	"github.com/tinygraph/tinygraph/internal/serialize"
	"github.com/tinygraph/tinygraph/internal/sparql"
	"github.com/tinygraph/tinygraph/internal/store"
	"github.com/tinygraph/tinygraph/internal/term"
	"github.com/tinygraph/tinygraph/internal/update"
)

// Statement is a compiled query or update, bound with parameter values
// and executed any number of times. It is not safe to call Execute,
// Update or Serialize from two goroutines at once; the busy flag turns
// that into errs.ErrBusy instead of a data race, mirroring the teacher's
// single-writer-transaction discipline (adapter/database.go) generalized
// to a statement-scoped guard rather than a whole-database one.
type Statement struct {
	st  store.Store
	eng *update.Engine
	ns  *nsmap.Map

	query *sparql.Query

	mu     sync.Mutex
	busy   bool
	params map[string]term.Term
}

// New compiles text against ns and returns a Statement ready for binding.
func New(st store.Store, eng *update.Engine, ns *nsmap.Map, text string) (*Statement, error) {
	q, err := sparql.Parse(text, ns)
	if err != nil {
		return nil, err
	}
	return &Statement{
		st:     st,
		eng:    eng,
		ns:     ns,
		query:  q,
		params: make(map[string]term.Term),
	}, nil
}

// ClearBindings discards every bound "~name" placeholder value.
func (s *Statement) ClearBindings() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = make(map[string]term.Term)
}

func (s *Statement) bind(name string, t term.Term) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params[name] = t
}

// BindInt binds an xsd:integer value to a "~name" placeholder.
func (s *Statement) BindInt(name string, v int64) {
	s.bind(name, term.NewLiteral(fmt.Sprintf("%d", v), "http://www.w3.org/2001/XMLSchema#integer"))
}

// BindDouble binds an xsd:double value to a "~name" placeholder.
func (s *Statement) BindDouble(name string, v float64) {
	s.bind(name, term.NewLiteral(fmt.Sprintf("%g", v), "http://www.w3.org/2001/XMLSchema#double"))
}

// BindBool binds an xsd:boolean value to a "~name" placeholder.
func (s *Statement) BindBool(name string, v bool) {
	lex := "false"
	if v {
		lex = "true"
	}
	s.bind(name, term.NewLiteral(lex, "http://www.w3.org/2001/XMLSchema#boolean"))
}

// BindString binds a plain xsd:string value to a "~name" placeholder.
func (s *Statement) BindString(name string, v string) {
	s.bind(name, term.NewLiteral(v, term.XSDString))
}

// BindDatetime binds an xsd:dateTime value to a "~name" placeholder.
func (s *Statement) BindDatetime(name string, v time.Time) {
	s.bind(name, term.NewLiteral(v.UTC().Format(time.RFC3339Nano), "http://www.w3.org/2001/XMLSchema#dateTime"))
}

// BindLangString binds a language-tagged literal to a "~name" placeholder.
func (s *Statement) BindLangString(name, lexical, lang string) {
	s.bind(name, term.NewLangString(lexical, lang))
}

func (s *Statement) acquire() (map[string]term.Term, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return nil, errs.ErrBusy
	}
	s.busy = true
	params := make(map[string]term.Term, len(s.params))
	for k, v := range s.params {
		params[k] = v
	}
	return params, nil
}

func (s *Statement) release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// Execute runs a SELECT/ASK/CONSTRUCT/DESCRIBE statement, returning a
// cursor over the result. It returns errs.ErrWrongKind for an
// INSERT/DELETE statement; call Update for those instead.
func (s *Statement) Execute(ctx context.Context) (cursor.Cursor, error) {
	params, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer s.release()

	switch s.query.Kind {
	case sparql.KindSelect:
		return s.executeSelect(ctx, params)
	case sparql.KindAsk:
		return s.executeAsk(ctx, params)
	case sparql.KindConstruct:
		return s.executeConstruct(ctx, params)
	case sparql.KindDescribe:
		return s.executeDescribe(ctx, params)
	default:
		return nil, errs.ErrWrongKind
	}
}

// Update runs an INSERT DATA/DELETE DATA/INSERT-WHERE/DELETE-WHERE
// statement against the update engine. It returns errs.ErrWrongKind for
// a read-only statement; call Execute for those instead.
func (s *Statement) Update(ctx context.Context) error {
	params, err := s.acquire()
	if err != nil {
		return err
	}
	defer s.release()

	switch s.query.Kind {
	case sparql.KindInsertData, sparql.KindDeleteData, sparql.KindInsertWhere, sparql.KindDeleteWhere:
		return s.eng.ExecuteUpdate(ctx, s.query, params)
	default:
		return errs.ErrWrongKind
	}
}

// Serialize executes the statement as a read and renders the result in
// format, per spec.md §4.5/§4.6's serialize(format, cancel_token) entry
// point.
func (s *Statement) Serialize(ctx context.Context, format serialize.Format) (io.ReadCloser, error) {
	cur, err := s.Execute(ctx)
	if err != nil {
		return nil, err
	}
	return serialize.New(format, cur, s.ns)
}

func (s *Statement) executeSelect(ctx context.Context, params map[string]term.Term) (cursor.Cursor, error) {
	bindings, err := sparql.EvaluateWhere(ctx, s.st, s.query.Where, params)
	if err != nil {
		return nil, err
	}
	vars := s.query.SelectVars
	if s.query.SelectAll {
		vars = projectedVariables(s.query.Where)
	}
	rows := make([]cursor.Row, 0, len(bindings))
	for _, b := range bindings {
		row := make(cursor.Row, len(vars))
		for i, v := range vars {
			row[i] = b[v]
		}
		rows = append(rows, row)
	}
	return cursor.NewSliceCursor(vars, rows), nil
}

func (s *Statement) executeAsk(ctx context.Context, params map[string]term.Term) (cursor.Cursor, error) {
	bindings, err := sparql.EvaluateWhere(ctx, s.st, s.query.Where, params)
	if err != nil {
		return nil, err
	}
	lex := "false"
	if len(bindings) > 0 {
		lex = "true"
	}
	row := cursor.Row{term.NewLiteral(lex, "http://www.w3.org/2001/XMLSchema#boolean")}
	return cursor.NewSliceCursor([]string{"boolean"}, []cursor.Row{row}), nil
}

func (s *Statement) executeConstruct(ctx context.Context, params map[string]term.Term) (cursor.Cursor, error) {
	bindings, err := sparql.EvaluateWhere(ctx, s.st, s.query.Where, params)
	if err != nil {
		return nil, err
	}
	seen := make(map[term.Quad]bool)
	var rows []cursor.Row
	for _, b := range bindings {
		for _, tp := range s.query.Template {
			q, err := sparql.Instantiate(tp, b, params)
			if err != nil {
				return nil, err
			}
			if seen[q] {
				continue
			}
			seen[q] = true
			rows = append(rows, cursor.Row{q.Subject, q.Predicate, q.Object, q.Graph})
		}
	}
	return cursor.NewSliceCursor([]string{"subject", "predicate", "object", "graph"}, rows), nil
}

func (s *Statement) executeDescribe(ctx context.Context, params map[string]term.Term) (cursor.Cursor, error) {
	var resources []term.Term
	switch {
	case s.query.SelectAll:
		bindings, err := sparql.EvaluateWhere(ctx, s.st, s.query.Where, params)
		if err != nil {
			return nil, err
		}
		for _, v := range projectedVariables(s.query.Where) {
			for _, b := range bindings {
				resources = append(resources, b[v])
			}
		}
	case len(s.query.Where) > 0:
		bindings, err := sparql.EvaluateWhere(ctx, s.st, s.query.Where, params)
		if err != nil {
			return nil, err
		}
		for _, b := range bindings {
			for _, dt := range s.query.DescribeTerms {
				if dt.IsVariable() {
					resources = append(resources, b[dt.Var])
				} else {
					resources = append(resources, dt.Bound)
				}
			}
		}
	default:
		for _, dt := range s.query.DescribeTerms {
			resources = append(resources, dt.Bound)
		}
	}

	var rows []cursor.Row
	seen := make(map[term.Quad]bool)
	for _, res := range resources {
		cur, err := s.st.Match(ctx, store.Pattern{Subject: res})
		if err != nil {
			return nil, err
		}
		if err := collectRows(ctx, cur, seen, &rows); err != nil {
			cur.Close()
			return nil, err
		}
		cur.Close()
	}
	return cursor.NewSliceCursor([]string{"subject", "predicate", "object", "graph"}, rows), nil
}

func collectRows(ctx context.Context, cur cursor.Cursor, seen map[term.Quad]bool, out *[]cursor.Row) error {
	for {
		has, err := cur.Next(ctx)
		if err != nil {
			return err
		}
		if !has {
			return nil
		}
		q := term.Quad{Subject: cur.Term(0), Predicate: cur.Term(1), Object: cur.Term(2), Graph: cur.Term(3)}
		if seen[q] {
			continue
		}
		seen[q] = true
		*out = append(*out, cursor.Row{q.Subject, q.Predicate, q.Object, q.Graph})
	}
}

// projectedVariables collects every distinct variable name a WHERE
// clause's patterns mention, in first-use order, for "SELECT *".
func projectedVariables(patterns []sparql.TriplePattern) []string {
	seen := make(map[string]bool)
	var vars []string
	add := func(pt sparql.PatternTerm) {
		if !pt.IsVariable() || seen[pt.Var] {
			return
		}
		seen[pt.Var] = true
		vars = append(vars, pt.Var)
	}
	for _, tp := range patterns {
		add(tp.Graph)
		add(tp.Subject)
		add(tp.Predicate)
		add(tp.Object)
	}
	return vars
}
