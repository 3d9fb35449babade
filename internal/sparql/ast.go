// Package sparql implements the narrow SPARQL 1.1 subset tinygraph
// compiles against its backing store: SELECT/ASK/CONSTRUCT/DESCRIBE plus
// INSERT DATA/DELETE DATA/INSERT-WHERE/DELETE-WHERE, per spec.md §6 — not
// a general relational query planner, grounded on the teacher's
// split-parser-package convention (parser/sqldef.go's "parse, don't plan").
package sparql

import "github.com/tinygraph/tinygraph/internal/term"

// Kind discriminates the query/update forms this package compiles,
// switched over everywhere instead of an interface hierarchy (Design
// Notes §9).
type Kind int

const (
	KindSelect Kind = iota
	KindAsk
	KindConstruct
	KindDescribe
	KindInsertData
	KindDeleteData
	KindInsertWhere
	KindDeleteWhere
)

// PatternTerm is one slot of a TriplePattern: a bound term, a query
// variable (?name/$name), or a prepared-statement bind placeholder
// (~name, per spec.md §4.6). Exactly one of Var, Placeholder or Bound
// applies; the zero value counts as Bound to term.Unbound, which is how
// TriplePattern.Graph records "no GRAPH block".
type PatternTerm struct {
	Var         string
	Placeholder string
	Bound       term.Term
}

func (p PatternTerm) IsVariable() bool    { return p.Var != "" }
func (p PatternTerm) IsPlaceholder() bool { return p.Placeholder != "" }
func (p PatternTerm) IsBound() bool       { return p.Var == "" && p.Placeholder == "" }

// TriplePattern is one (subject, predicate, object) line of a WHERE
// clause or template; Graph is set from a surrounding GRAPH block, or
// the zero PatternTerm (default graph) otherwise.
type TriplePattern struct {
	Graph            PatternTerm
	Subject          PatternTerm
	Predicate        PatternTerm
	Object           PatternTerm
	HasExplicitGraph bool
}

// Query is the compiled form of one SPARQL string: a query (Select/Ask/
// Construct/Describe) or an update (InsertData/DeleteData/InsertWhere/
// DeleteWhere).
type Query struct {
	Kind Kind

	// SELECT
	SelectAll  bool
	SelectVars []string
	Distinct   bool

	// CONSTRUCT / INSERT DATA / DELETE DATA / INSERT WHERE / DELETE WHERE
	Template []TriplePattern

	// WHERE clause shared by SELECT/ASK/CONSTRUCT/DESCRIBE/INSERT WHERE/DELETE WHERE
	Where []TriplePattern

	// DESCRIBE
	DescribeTerms []PatternTerm
}

// Placeholders returns the distinct bind-placeholder names (without the
// leading "~") referenced anywhere in the query, in first-use order —
// what prepared.Statement validates bindings against.
func (q *Query) Placeholders() []string {
	seen := map[string]bool{}
	var out []string
	note := func(t PatternTerm) {
		if t.IsPlaceholder() && !seen[t.Placeholder] {
			seen[t.Placeholder] = true
			out = append(out, t.Placeholder)
		}
	}
	for _, tp := range q.Template {
		note(tp.Graph)
		note(tp.Subject)
		note(tp.Predicate)
		note(tp.Object)
	}
	for _, tp := range q.Where {
		note(tp.Graph)
		note(tp.Subject)
		note(tp.Predicate)
		note(tp.Object)
	}
	for _, t := range q.DescribeTerms {
		note(t)
	}
	return out
}
