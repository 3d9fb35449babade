// Package xmlio implements the SPARQL-XML results deserializer: a
// token-by-token encoding/xml.Decoder walk over
// <sparql><head>...</head><results><result>...</result>...</results></sparql>,
// grounded on schema/parser.go's thin wrapper-over-library pattern and
// the mirror-image structure of spec.md §4.5's SPARQL-XML serializer.
package xmlio

import (
	"context"
	"encoding/xml"
	"io"
	"time"

	"github.com/tinygraph/tinygraph/internal/cursor"
	"github.com/tinygraph/tinygraph/internal/errs"
	"github.com/tinygraph/tinygraph/internal/term"
)

type xmlVariable struct {
	XMLName xml.Name `xml:"variable"`
	Name    string   `xml:"name,attr"`
}

type xmlHead struct {
	XMLName xml.Name      `xml:"head"`
	Vars    []xmlVariable `xml:"variable"`
}

type xmlBinding struct {
	XMLName xml.Name `xml:"binding"`
	Name    string   `xml:"name,attr"`
	URI     *string  `xml:"uri"`
	BNode   *string  `xml:"bnode"`
	Literal *struct {
		Value    string `xml:",chardata"`
		Datatype string `xml:"datatype,attr"`
		Lang     string `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
	} `xml:"literal"`
}

func (b xmlBinding) toTerm() (term.Term, error) {
	switch {
	case b.URI != nil:
		return term.NewIRI(*b.URI), nil
	case b.BNode != nil:
		return term.NewBlankNode(*b.BNode), nil
	case b.Literal != nil:
		if b.Literal.Lang != "" {
			return term.NewLangString(b.Literal.Value, b.Literal.Lang), nil
		}
		return term.NewLiteral(b.Literal.Value, b.Literal.Datatype), nil
	default:
		return term.Term{}, errs.ErrUnsupportedValue
	}
}

// Deserializer walks a SPARQL-XML results document and yields one row per
// <result> element.
type Deserializer struct {
	dec  *xml.Decoder
	vars []string

	boolean *bool

	row    []term.Term
	closed bool
	rc     io.Closer
}

// New builds a Deserializer over r, reading <head> eagerly so
// ColumnCount/VariableName are available before the first Next.
func New(r io.Reader) (*Deserializer, error) {
	d := &Deserializer{dec: xml.NewDecoder(r)}
	if closer, ok := r.(io.Closer); ok {
		d.rc = closer
	}
	if err := d.readHead(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Deserializer) readHead() error {
	for {
		tok, err := d.dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "head":
			var h xmlHead
			if err := d.dec.DecodeElement(&h, &start); err != nil {
				return err
			}
			for _, v := range h.Vars {
				d.vars = append(d.vars, v.Name)
			}
		case "boolean":
			var text string
			if err := d.dec.DecodeElement(&text, &start); err != nil {
				return err
			}
			b := text == "true" || text == "1"
			d.boolean = &b
		case "results":
			return nil
		}
	}
}

// AskResult reports the <boolean> element of an ASK response, when present.
func (d *Deserializer) AskResult() (bool, bool) {
	if d.boolean == nil {
		return false, false
	}
	return *d.boolean, true
}

func (d *Deserializer) ColumnCount() int { return len(d.vars) }

func (d *Deserializer) VariableName(i int) (string, bool) {
	if i < 0 || i >= len(d.vars) {
		return "", false
	}
	return d.vars[i], true
}

func (d *Deserializer) Term(i int) term.Term {
	if d.row == nil || i < 0 || i >= len(d.row) {
		return term.Unbound
	}
	return d.row[i]
}

func (d *Deserializer) ValueType(i int) cursor.ValueType { return cursor.ValueTypeOf(d.Term(i)) }

func (d *Deserializer) String(i int) (string, *string, int) {
	t := d.Term(i)
	lexical := t.Value()
	var lang *string
	if l := t.Lang(); l != "" {
		lang = &l
	}
	return lexical, lang, len(lexical)
}

func (d *Deserializer) Integer(i int) (int64, error)     { return cursor.CoerceInteger(d.Term(i)) }
func (d *Deserializer) Double(i int) (float64, error)     { return cursor.CoerceDouble(d.Term(i)) }
func (d *Deserializer) Boolean(i int) (bool, error)       { return cursor.CoerceBoolean(d.Term(i)) }
func (d *Deserializer) Datetime(i int) (time.Time, error) { return cursor.CoerceDatetime(d.Term(i)) }

// Next scans forward for the next <result> element and decodes its
// bindings into a row aligned with the variables from <head>.
func (d *Deserializer) Next(ctx context.Context) (bool, error) {
	if d.closed {
		return false, nil
	}
	select {
	case <-ctx.Done():
		d.Close()
		return false, ctx.Err()
	default:
	}

	for {
		tok, err := d.dec.Token()
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			d.Close()
			return false, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "result" {
			continue
		}

		var result struct {
			XMLName  xml.Name     `xml:"result"`
			Bindings []xmlBinding `xml:"binding"`
		}
		if err := d.dec.DecodeElement(&result, &start); err != nil {
			d.Close()
			return false, err
		}

		byName := make(map[string]xmlBinding, len(result.Bindings))
		for _, b := range result.Bindings {
			byName[b.Name] = b
		}

		row := make([]term.Term, len(d.vars))
		for i, v := range d.vars {
			bv, ok := byName[v]
			if !ok {
				row[i] = term.Unbound
				continue
			}
			t, err := bv.toTerm()
			if err != nil {
				d.Close()
				return false, err
			}
			row[i] = t
		}
		d.row = row
		return true, nil
	}
}

func (d *Deserializer) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if d.rc != nil {
		return d.rc.Close()
	}
	return nil
}
