// Package jsonio implements the SPARQL-JSON results deserializer and the
// JSON-LD deserializer, both producing a cursor.Cursor. Grounded on
// schema/parser.go's thin wrapper-over-library pattern: the heavy lifting
// is encoding/json, this package only walks the decoder and builds terms.
package jsonio

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/tinygraph/tinygraph/internal/cursor"
	"github.com/tinygraph/tinygraph/internal/errs"
	"github.com/tinygraph/tinygraph/internal/term"
)

// binding is the wire shape of one SPARQL-JSON result value, as the
// format's "uri"/"literal"/"bnode" object per spec.md §4.5.
type binding struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype"`
	Lang     string `json:"xml:lang"`
}

func (b binding) toTerm() (term.Term, error) {
	switch b.Type {
	case "uri":
		return term.NewIRI(b.Value), nil
	case "bnode":
		return term.NewBlankNode(b.Value), nil
	case "literal", "typed-literal":
		if b.Lang != "" {
			return term.NewLangString(b.Value, b.Lang), nil
		}
		return term.NewLiteral(b.Value, b.Datatype), nil
	default:
		return term.Term{}, errs.ErrUnsupportedValue
	}
}

// Deserializer parses a SPARQL 1.1 JSON results document into a cursor,
// one binding object decoded at a time: the "head"/"results" envelope is
// walked token-by-token so the bindings array is never materialized in
// full, only the current row.
type Deserializer struct {
	dec  *json.Decoder
	vars []string

	inBindings bool
	boolean    *bool

	row    []term.Term
	closed bool
	rc     io.Closer
}

// New builds a Deserializer over r and reads the "head" object (and the
// opening of "results.bindings", if present) eagerly, so ColumnCount and
// VariableName are available before the first Next.
func New(r io.Reader) (*Deserializer, error) {
	d := &Deserializer{dec: json.NewDecoder(r)}
	if closer, ok := r.(io.Closer); ok {
		d.rc = closer
	}
	if err := d.readEnvelope(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Deserializer) readEnvelope() error {
	if _, err := d.dec.Token(); err != nil { // '{'
		return err
	}
	for d.dec.More() {
		keyTok, err := d.dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		switch key {
		case "head":
			var h struct {
				Vars []string `json:"vars"`
			}
			if err := d.dec.Decode(&h); err != nil {
				return err
			}
			d.vars = h.Vars
		case "boolean":
			var b bool
			if err := d.dec.Decode(&b); err != nil {
				return err
			}
			d.boolean = &b
		case "results":
			return d.enterResults()
		default:
			var skip json.RawMessage
			if err := d.dec.Decode(&skip); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Deserializer) enterResults() error {
	if _, err := d.dec.Token(); err != nil { // '{'
		return err
	}
	for d.dec.More() {
		keyTok, err := d.dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		if key != "bindings" {
			var skip json.RawMessage
			if err := d.dec.Decode(&skip); err != nil {
				return err
			}
			continue
		}
		if _, err := d.dec.Token(); err != nil { // '['
			return err
		}
		d.inBindings = true
		return nil
	}
	return nil
}

// AskResult reports the "boolean" field of an ASK response, when present.
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

func (d *Deserializer) Next(ctx context.Context) (bool, error) {
	if d.closed || !d.inBindings {
		return false, nil
	}
	select {
	case <-ctx.Done():
		d.Close()
		return false, ctx.Err()
	default:
	}
	if !d.dec.More() {
		d.inBindings = false
		return false, nil
	}

	raw := make(map[string]binding, len(d.vars))
	if err := d.dec.Decode(&raw); err != nil {
		d.Close()
		return false, err
	}

	row := make([]term.Term, len(d.vars))
	for i, v := range d.vars {
		b, ok := raw[v]
		if !ok {
			row[i] = term.Unbound
			continue
		}
		t, err := b.toTerm()
		if err != nil {
			d.Close()
			return false, err
		}
		row[i] = t
	}
	d.row = row
	return true, nil
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
