package sparql

import (
	"context"

	"github.com/tinygraph/tinygraph/internal/errs"
	"github.com/tinygraph/tinygraph/internal/store"
	"github.com/tinygraph/tinygraph/internal/term"
)

// Binding is one variable assignment produced by evaluating a WHERE
// clause's basic graph pattern against a store.
type Binding map[string]term.Term

// EvaluateWhere joins patterns against st one at a time, nested-loop
// style: each pattern narrows the running set of bindings by matching
// its already-bound variables as store.Pattern constraints and merging
// newly-seen variables into each surviving binding. params supplies the
// concrete values prepared.Statement has bound to any "~name" bind
// placeholders the patterns reference.
//
// This module's backing store is not a general relational query
// planner (spec.md §6): a nested-loop join over per-pattern store scans
// is the correct scope for tinygraph's narrow BGP subset, in contrast to
// a cost-based join planner a full SPARQL engine would need.
func EvaluateWhere(ctx context.Context, st store.Store, patterns []TriplePattern, params map[string]term.Term) ([]Binding, error) {
	bindings := []Binding{{}}
	for _, tp := range patterns {
		var next []Binding
		for _, b := range bindings {
			pat, err := resolvePattern(tp, b, params)
			if err != nil {
				return nil, err
			}
			cur, err := st.Match(ctx, pat)
			if err != nil {
				return nil, err
			}
			if err := joinRows(ctx, cur, tp, b, &next); err != nil {
				cur.Close()
				return nil, err
			}
			cur.Close()
		}
		bindings = next
		if len(bindings) == 0 {
			return bindings, nil
		}
	}
	return bindings, nil
}

func joinRows(ctx context.Context, cur interface {
	Next(context.Context) (bool, error)
	Term(int) term.Term
}, tp TriplePattern, b Binding, out *[]Binding) error {
	for {
		has, err := cur.Next(ctx)
		if err != nil {
			return err
		}
		if !has {
			return nil
		}
		row := Binding{
			"subject":   cur.Term(0),
			"predicate": cur.Term(1),
			"object":    cur.Term(2),
			"graph":     cur.Term(3),
		}
		if merged, ok := extendBinding(b, tp, row); ok {
			*out = append(*out, merged)
		}
	}
}

// resolvePattern turns a TriplePattern into a store.Pattern: bound terms
// pass through, variables already present in b become equality
// constraints, placeholders resolve from params, and everything else is
// left term.Unbound so the store returns every candidate.
func resolvePattern(tp TriplePattern, b Binding, params map[string]term.Term) (store.Pattern, error) {
	graph, err := resolveSlot(tp.Graph, b, params)
	if err != nil {
		return store.Pattern{}, err
	}
	subject, err := resolveSlot(tp.Subject, b, params)
	if err != nil {
		return store.Pattern{}, err
	}
	predicate, err := resolveSlot(tp.Predicate, b, params)
	if err != nil {
		return store.Pattern{}, err
	}
	object, err := resolveSlot(tp.Object, b, params)
	if err != nil {
		return store.Pattern{}, err
	}
	return store.Pattern{Graph: graph, Subject: subject, Predicate: predicate, Object: object}, nil
}

func resolveSlot(t PatternTerm, b Binding, params map[string]term.Term) (term.Term, error) {
	switch {
	case t.IsVariable():
		if v, ok := b[t.Var]; ok {
			return v, nil
		}
		return term.Unbound, nil
	case t.IsPlaceholder():
		v, ok := params[t.Placeholder]
		if !ok {
			return term.Term{}, errs.NewParseError(0, 0, "Parse", "unbound placeholder: ~"+t.Placeholder)
		}
		return v, nil
	default:
		return t.Bound, nil
	}
}

// Instantiate resolves a template triple pattern into a ground quad,
// substituting variables from a WHERE-clause binding (nil for the
// INSERT DATA/DELETE DATA forms, whose templates are ground already) and
// placeholders from params. Shared by the read path (CONSTRUCT template
// instantiation) and the write path (internal/update's INSERT/DELETE).
func Instantiate(tp TriplePattern, b Binding, params map[string]term.Term) (term.Quad, error) {
	graph, err := instantiateSlot(tp.Graph, b, params)
	if err != nil {
		return term.Quad{}, err
	}
	if !tp.HasExplicitGraph {
		graph = term.DefaultGraph
	}
	subject, err := instantiateSlot(tp.Subject, b, params)
	if err != nil {
		return term.Quad{}, err
	}
	predicate, err := instantiateSlot(tp.Predicate, b, params)
	if err != nil {
		return term.Quad{}, err
	}
	object, err := instantiateSlot(tp.Object, b, params)
	if err != nil {
		return term.Quad{}, err
	}
	return term.Quad{Graph: graph, Subject: subject, Predicate: predicate, Object: object}, nil
}

func instantiateSlot(t PatternTerm, b Binding, params map[string]term.Term) (term.Term, error) {
	switch {
	case t.IsVariable():
		if b == nil {
			return term.Term{}, errs.NewParseError(0, 0, "Parse", "unbound variable in ground template: ?"+t.Var)
		}
		v, ok := b[t.Var]
		if !ok {
			return term.Term{}, errs.NewParseError(0, 0, "Parse", "unbound variable in template: ?"+t.Var)
		}
		return v, nil
	case t.IsPlaceholder():
		v, ok := params[t.Placeholder]
		if !ok {
			return term.Term{}, errs.NewParseError(0, 0, "Parse", "unbound placeholder: ~"+t.Placeholder)
		}
		return v, nil
	default:
		return t.Bound, nil
	}
}

// extendBinding checks row against tp's already-bound slots and merges
// any newly-seen variables into a copy of b. ok is false when row
// disagrees with a variable b already bound it to (the nested-loop
// join's equality test).
func extendBinding(b Binding, tp TriplePattern, row Binding) (Binding, bool) {
	merged := make(Binding, len(b)+4)
	for k, v := range b {
		merged[k] = v
	}
	slots := []struct {
		pt  PatternTerm
		key string
	}{
		{tp.Graph, "graph"},
		{tp.Subject, "subject"},
		{tp.Predicate, "predicate"},
		{tp.Object, "object"},
	}
	for _, s := range slots {
		if !s.pt.IsVariable() {
			continue
		}
		val := row[s.key]
		if existing, ok := merged[s.pt.Var]; ok {
			if !existing.Equal(val) {
				return nil, false
			}
			continue
		}
		merged[s.pt.Var] = val
	}
	return merged, true
}
