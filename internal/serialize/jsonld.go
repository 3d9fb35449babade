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

// jsonldSerializer renders a quad cursor as a JSON-LD document: a
// "@context" built from the namespace manager's prefix bindings, then a
// "@graph" array of node objects keyed by "@id". Grouping by subject uses
// the same look-behind state as tripleSerializer, for the same reason.
type jsonldSerializer struct {
	*streamer
	cur cursor.Cursor
	ns  *nsmap.Map

	subjIdx, predIdx, objIdx, graphIdx int

	stage int

	haveSubject     bool
	curSubjectKey   subjectKey
	havePredicate   bool
	curPredicateKey string
}

func newJSONLDSerializer(cur cursor.Cursor, ns *nsmap.Map) io.ReadCloser {
	s := &jsonldSerializer{cur: cur, ns: ns}
	s.subjIdx, s.predIdx, s.objIdx, s.graphIdx = quadColumns(cur)
	s.streamer = &streamer{cur: cur, emit: s.emitNext}
	return s
}

func (s *jsonldSerializer) emitNext() (bool, error) {
	switch s.stage {
	case 0:
		s.writeContext()
		s.buf.WriteString(`,"@graph":[`)
		s.stage = 1
		return true, nil
	case 1:
		has, err := s.cur.Next(context.Background())
		if err != nil {
			return false, err
		}
		if !has {
			s.closeNode()
			s.buf.WriteString("]}")
			s.stage = 2
			return true, nil
		}
		return true, s.writeRow()
	default:
		return false, nil
	}
}

func (s *jsonldSerializer) writeContext() {
	s.buf.WriteString(`{"@context":{`)
	prefixes := s.ns.Prefixes()
	names := make([]string, 0, len(prefixes))
	for p := range prefixes {
		names = append(names, p)
	}
	sort.Strings(names)
	for i, p := range names {
		if i > 0 {
			s.buf.WriteByte(',')
		}
		writeJSONString(&s.buf, p)
		s.buf.WriteByte(':')
		writeJSONString(&s.buf, prefixes[p])
	}
	s.buf.WriteByte('}')
}

func (s *jsonldSerializer) writeRow() error {
	if s.subjIdx < 0 || s.predIdx < 0 || s.objIdx < 0 {
		return errs.ErrUnsupportedValue
	}
	subject := s.cur.Term(s.subjIdx)
	predicate := s.cur.Term(s.predIdx)
	object := s.cur.Term(s.objIdx)
	if subject.Kind() != term.KindIRI && subject.Kind() != term.KindBlankNode {
		return errs.ErrUnsupportedValue
	}

	subjKey := subjectKey{kind: subject.Kind(), value: subject.Value()}
	if !s.haveSubject || subjKey != s.curSubjectKey {
		s.closeNode()
		if s.haveSubject {
			s.buf.WriteByte(',')
		}
		s.buf.WriteString(`{"@id":`)
		writeJSONString(&s.buf, jsonRef(s.ns, subject))
		s.curSubjectKey = subjKey
		s.haveSubject = true
		s.havePredicate = false
	}

	predKey := jsonPredicateKey(s.ns, predicate)
	if !s.havePredicate || predKey != s.curPredicateKey {
		s.closePredicate()
		s.buf.WriteByte(',')
		writeJSONString(&s.buf, predKey)
		s.buf.WriteString(`:[`)
		s.curPredicateKey = predKey
		s.havePredicate = true
	} else {
		s.buf.WriteByte(',')
	}

	return writeJSONLDValue(&s.buf, s.ns, predicate, object)
}

func (s *jsonldSerializer) closePredicate() {
	if s.havePredicate {
		s.buf.WriteByte(']')
	}
	s.havePredicate = false
}

func (s *jsonldSerializer) closeNode() {
	s.closePredicate()
	if s.haveSubject {
		s.buf.WriteByte('}')
	}
	s.haveSubject = false
}

// jsonRef renders a subject/object reference: a compressed CURIE when the
// namespace manager recognizes a prefix, else the IRI or blank-node label
// verbatim (JSON-LD has no angle-bracket quoting to fall back to).
func jsonRef(ns *nsmap.Map, t term.Term) string {
	switch t.Kind() {
	case term.KindBlankNode:
		return "_:" + t.Value()
	default:
		return ns.Compress(t.Value())
	}
}

func jsonPredicateKey(ns *nsmap.Map, t term.Term) string {
	if t.Value() == term.RDFType {
		return "@type"
	}
	return ns.Compress(t.Value())
}

// writeJSONLDValue writes one value-position element for predicate/object:
// a bare compacted type string for rdf:type, an {"@id":...} node reference
// for an IRI or blank node, or an {"@value":...} literal object.
func writeJSONLDValue(w io.StringWriter, ns *nsmap.Map, predicate, object term.Term) error {
	if predicate.Value() == term.RDFType {
		if object.Kind() != term.KindIRI {
			return errs.ErrUnsupportedValue
		}
		writeJSONString(w, ns.Compress(object.Value()))
		return nil
	}
	switch object.Kind() {
	case term.KindIRI, term.KindBlankNode:
		w.WriteString(`{"@id":`)
		writeJSONString(w, jsonRef(ns, object))
		w.WriteString(`}`)
	case term.KindLiteral:
		w.WriteString(`{"@value":`)
		writeJSONString(w, object.Value())
		if lang := object.Lang(); lang != "" {
			w.WriteString(`,"@language":`)
			writeJSONString(w, lang)
		} else if dt := object.Datatype(); dt != "" && dt != term.XSDString {
			w.WriteString(`,"@type":`)
			writeJSONString(w, ns.Compress(dt))
		}
		w.WriteString(`}`)
	default:
		return errs.ErrUnsupportedValue
	}
	return nil
}
