package serialize

import (
	"context"
	"encoding/json"
	"io"

	"github.com/tinygraph/tinygraph/internal/cursor"
	"github.com/tinygraph/tinygraph/internal/errs"
	"github.com/tinygraph/tinygraph/internal/term"
)

type sparqlJSONSerializer struct {
	*streamer
	cur      cursor.Cursor
	stage    int
	wroteRow bool
}

func newSPARQLJSONSerializer(cur cursor.Cursor) io.ReadCloser {
	s := &sparqlJSONSerializer{cur: cur}
	s.streamer = &streamer{cur: cur, emit: s.emitNext}
	return s
}

func (s *sparqlJSONSerializer) emitNext() (bool, error) {
	switch s.stage {
	case 0:
		s.buf.WriteString(`{"head":{"vars":[`)
		n := s.cur.ColumnCount()
		for i := 0; i < n; i++ {
			if i > 0 {
				s.buf.WriteByte(',')
			}
			writeJSONString(&s.buf, varName(s.cur, i))
		}
		s.buf.WriteString(`]},"results":{"bindings":[`)
		s.stage = 1
		return true, nil
	case 1:
		has, err := s.cur.Next(context.Background())
		if err != nil {
			return false, err
		}
		if !has {
			s.stage = 2
			return true, nil
		}
		if s.wroteRow {
			s.buf.WriteByte(',')
		}
		s.wroteRow = true
		return true, s.writeBindingObject()
	case 2:
		s.buf.WriteString(`]}}`)
		s.stage = 3
		return true, nil
	default:
		return false, nil
	}
}

func (s *sparqlJSONSerializer) writeBindingObject() error {
	s.buf.WriteByte('{')
	n := s.cur.ColumnCount()
	wrote := false
	for i := 0; i < n; i++ {
		if s.cur.ValueType(i) == cursor.TypeUnbound {
			continue
		}
		if wrote {
			s.buf.WriteByte(',')
		}
		wrote = true
		writeJSONString(&s.buf, varName(s.cur, i))
		s.buf.WriteByte(':')
		if err := writeJSONBinding(&s.buf, s.cur.Term(i)); err != nil {
			return err
		}
	}
	s.buf.WriteByte('}')
	return nil
}

func varName(cur cursor.Cursor, i int) string {
	if name, ok := cur.VariableName(i); ok {
		return name
	}
	return cursor.SyntheticVarName(i)
}

func writeJSONString(w io.StringWriter, s string) {
	b, _ := json.Marshal(s)
	w.WriteString(string(b))
}

// writeJSONBinding writes the SPARQL-JSON {"type":...,"value":...} object
// for one term, per spec.md §4.5's first bullet.
func writeJSONBinding(w io.StringWriter, t term.Term) error {
	switch t.Kind() {
	case term.KindIRI:
		w.WriteString(`{"type":"uri","value":`)
		writeJSONString(w, t.Value())
		w.WriteString(`}`)
	case term.KindBlankNode:
		w.WriteString(`{"type":"bnode","value":`)
		writeJSONString(w, t.Value())
		w.WriteString(`}`)
	case term.KindLiteral:
		w.WriteString(`{"type":"literal","value":`)
		writeJSONString(w, t.Value())
		if lang := t.Lang(); lang != "" {
			w.WriteString(`,"xml:lang":`)
			writeJSONString(w, lang)
		} else if dt := t.Datatype(); dt != "" && dt != term.XSDString {
			w.WriteString(`,"datatype":`)
			writeJSONString(w, dt)
		}
		w.WriteString(`}`)
	default:
		return errs.ErrUnsupportedValue
	}
	return nil
}
