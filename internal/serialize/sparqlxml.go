package serialize

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/tinygraph/tinygraph/internal/cursor"
	"github.com/tinygraph/tinygraph/internal/errs"
	"github.com/tinygraph/tinygraph/internal/term"
)

type sparqlXMLSerializer struct {
	*streamer
	cur   cursor.Cursor
	stage int
}

func newSPARQLXMLSerializer(cur cursor.Cursor) io.ReadCloser {
	s := &sparqlXMLSerializer{cur: cur}
	s.streamer = &streamer{cur: cur, emit: s.emitNext}
	return s
}

func (s *sparqlXMLSerializer) emitNext() (bool, error) {
	switch s.stage {
	case 0:
		s.buf.WriteString(`<?xml version="1.0"?>` + "\n")
		s.buf.WriteString(`<sparql xmlns="http://www.w3.org/2005/sparql-results#">` + "\n  <head>\n")
		n := s.cur.ColumnCount()
		for i := 0; i < n; i++ {
			fmt.Fprintf(&s.buf, "    <variable name=%q/>\n", varName(s.cur, i))
		}
		s.buf.WriteString("  </head>\n  <results>\n")
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
		s.buf.WriteString("    <result>\n")
		if err := s.writeBindings(); err != nil {
			return false, err
		}
		s.buf.WriteString("    </result>\n")
		return true, nil
	case 2:
		s.buf.WriteString("  </results>\n</sparql>\n")
		s.stage = 3
		return true, nil
	default:
		return false, nil
	}
}

func (s *sparqlXMLSerializer) writeBindings() error {
	n := s.cur.ColumnCount()
	for i := 0; i < n; i++ {
		if s.cur.ValueType(i) == cursor.TypeUnbound {
			continue
		}
		fmt.Fprintf(&s.buf, "      <binding name=%q>", varName(s.cur, i))
		if err := writeXMLBindingValue(&s.buf, s.cur.Term(i)); err != nil {
			return err
		}
		s.buf.WriteString("</binding>\n")
	}
	return nil
}

func writeXMLBindingValue(buf *bytes.Buffer, t term.Term) error {
	switch t.Kind() {
	case term.KindIRI:
		buf.WriteString("<uri>")
		_ = xml.EscapeText(buf, []byte(t.Value()))
		buf.WriteString("</uri>")
	case term.KindBlankNode:
		buf.WriteString("<bnode>")
		_ = xml.EscapeText(buf, []byte(t.Value()))
		buf.WriteString("</bnode>")
	case term.KindLiteral:
		buf.WriteString("<literal")
		if lang := t.Lang(); lang != "" {
			fmt.Fprintf(buf, " xml:lang=%q", lang)
		} else if dt := t.Datatype(); dt != "" && dt != term.XSDString {
			fmt.Fprintf(buf, " datatype=%q", dt)
		}
		buf.WriteByte('>')
		_ = xml.EscapeText(buf, []byte(t.Value()))
		buf.WriteString("</literal>")
	default:
		return errs.ErrUnsupportedValue
	}
	return nil
}
