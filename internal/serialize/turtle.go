package serialize

import (
	"context"
	"io"
	"sort"

	"github.com/tinygraph/tinygraph/internal/cursor"
	"github.com/tinygraph/tinygraph/internal/errs"
	"github.com/tinygraph/tinygraph/internal/nsmap"
	"github.com/tinygraph/tinygraph/internal/term"
)

// tripleSerializer renders a quad cursor as Turtle or TriG. Rows are not
// reordered: grouping is detected with look-behind state (the previous
// row's subject/predicate/graph) rather than buffering a row ahead; the
// rendered output is the same either way, since both only ever compare
// one row to its immediate neighbor. Rows that do not arrive grouped by
// (graph, subject), such as the stores' insertion-order Snapshot, repeat
// a subject (or TriG graph) block where the key recurs.
type tripleSerializer struct {
	*streamer
	cur  cursor.Cursor
	ns   *nsmap.Map
	trig bool

	subjIdx, predIdx, objIdx, graphIdx int

	stage int

	haveGraph, haveSubject, havePredicate bool
	curGraphKey                           string
	curSubjectKey                         subjectKey
	curPredicateKey                       string
	inGraphBlock                          bool
}

type subjectKey struct {
	kind  term.Kind
	value string
}

func newTripleSerializer(cur cursor.Cursor, ns *nsmap.Map, trig bool) io.ReadCloser {
	s := &tripleSerializer{cur: cur, ns: ns, trig: trig}
	s.subjIdx, s.predIdx, s.objIdx, s.graphIdx = quadColumns(cur)
	s.streamer = &streamer{cur: cur, emit: s.emitNext}
	return s
}

func quadColumns(cur cursor.Cursor) (subj, pred, obj, graph int) {
	subj, pred, obj, graph = -1, -1, -1, -1
	for i := 0; i < cur.ColumnCount(); i++ {
		name, ok := cur.VariableName(i)
		if !ok {
			continue
		}
		switch name {
		case "subject":
			subj = i
		case "predicate":
			pred = i
		case "object":
			obj = i
		case "graph":
			graph = i
		}
	}
	return
}

func (s *tripleSerializer) emitNext() (bool, error) {
	switch s.stage {
	case 0:
		s.writePrefixes()
		s.stage = 1
		return true, nil
	case 1:
		has, err := s.cur.Next(context.Background())
		if err != nil {
			return false, err
		}
		if !has {
			s.closeOpenGroups()
			s.stage = 2
			return true, nil
		}
		return true, s.writeRow()
	default:
		return false, nil
	}
}

func (s *tripleSerializer) writePrefixes() {
	prefixes := s.ns.Prefixes()
	names := make([]string, 0, len(prefixes))
	for p := range prefixes {
		names = append(names, p)
	}
	sort.Strings(names)
	for _, p := range names {
		s.buf.WriteString("@prefix ")
		s.buf.WriteString(p)
		s.buf.WriteString(": <")
		s.buf.WriteString(prefixes[p])
		s.buf.WriteString("> .\n")
	}
	if len(names) > 0 {
		s.buf.WriteByte('\n')
	}
}

func (s *tripleSerializer) graphKeyOf() (string, term.Term) {
	if !s.trig || s.graphIdx < 0 {
		return "", term.DefaultGraph
	}
	g := s.cur.Term(s.graphIdx)
	if g.IsUnbound() {
		return "", term.DefaultGraph
	}
	return g.Value(), g
}

func (s *tripleSerializer) writeRow() error {
	if s.subjIdx < 0 || s.predIdx < 0 || s.objIdx < 0 {
		return errs.ErrUnsupportedValue
	}
	subject := s.cur.Term(s.subjIdx)
	predicate := s.cur.Term(s.predIdx)
	object := s.cur.Term(s.objIdx)
	if subject.Kind() != term.KindIRI && subject.Kind() != term.KindBlankNode {
		return errs.ErrUnsupportedValue
	}

	graphKey, graph := s.graphKeyOf()
	if s.trig && (!s.haveGraph || graphKey != s.curGraphKey) {
		s.closeSubjectGroup()
		if s.inGraphBlock {
			s.buf.WriteString("}\n")
			s.inGraphBlock = false
		}
		if !graph.IsUnbound() {
			s.buf.WriteString(renderIRI(s.ns, graph.Value()))
			s.buf.WriteString(" {\n")
			s.inGraphBlock = true
		}
		s.curGraphKey = graphKey
		s.haveGraph = true
	}

	subjKey := subjectKey{kind: subject.Kind(), value: subject.Value()}
	if !s.haveSubject || subjKey != s.curSubjectKey {
		s.closeSubjectGroup()
		if s.trig && s.inGraphBlock {
			s.buf.WriteString("    ")
		}
		s.buf.WriteString(renderTerm(s.ns, subject))
		s.buf.WriteByte(' ')
		s.curSubjectKey = subjKey
		s.haveSubject = true
		s.havePredicate = false
	}

	predicateKey := predicate.Value()
	switch {
	case !s.havePredicate:
		s.buf.WriteString(renderPredicate(s.ns, predicate))
		s.buf.WriteByte(' ')
	case predicateKey == s.curPredicateKey:
		s.buf.WriteString(", ")
	default:
		s.buf.WriteString(" ;\n    ")
		if s.trig && s.inGraphBlock {
			s.buf.WriteString("    ")
		}
		s.buf.WriteString(renderPredicate(s.ns, predicate))
		s.buf.WriteByte(' ')
	}
	s.curPredicateKey = predicateKey
	s.havePredicate = true

	s.buf.WriteString(renderTerm(s.ns, object))
	return nil
}

func (s *tripleSerializer) closeSubjectGroup() {
	if s.haveSubject {
		s.buf.WriteString(" .\n")
	}
	s.haveSubject = false
	s.havePredicate = false
}

func (s *tripleSerializer) closeOpenGroups() {
	s.closeSubjectGroup()
	if s.inGraphBlock {
		s.buf.WriteString("}\n")
		s.inGraphBlock = false
	}
}
