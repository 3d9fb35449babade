package jsonio

import (
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tinygraph/tinygraph/internal/cursor"
	"github.com/tinygraph/tinygraph/internal/errs"
	"github.com/tinygraph/tinygraph/internal/nsmap"
	"github.com/tinygraph/tinygraph/internal/term"
)

// LDDeserializer parses a JSON-LD document — the shape §4.5's serializer
// emits, an optional "@context" plus an array of node objects keyed by
// "@id" — into a cursor of (subject, predicate, object, graph) rows.
//
// Unlike the tabular SPARQL-JSON bindings above, a JSON-LD document is
// graph-shaped rather than row-shaped: a node's properties can reference
// or embed other nodes at arbitrary depth, so there is no single point to
// resume decoding from mid-document. The whole document is decoded once
// and walked in memory; only the flattened quads are held beyond that.
//
// Scope, per spec.md §4.5's bullet (node objects, "@id", "@value"/"@type"/
// "@language"): no named-graph datasets ("@graph" is accepted only as the
// top-level node array, not as a per-node dataset marker), no "@reverse",
// no language-map or index containers, no remote context dereferencing.
type LDDeserializer struct {
	quads  []term.Quad
	pos    int
	row    [4]term.Term
	closed bool
	rc     io.Closer
}

// NewJSONLD builds an LDDeserializer over r, registering any "@context"
// prefix mappings it finds into ns (the same namespace manager used
// elsewhere in the pipeline, so a query against the ingested data can
// use the short forms the document declared).
func NewJSONLD(r io.Reader, ns *nsmap.Map) (*LDDeserializer, error) {
	var doc interface{}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}

	nodes, err := extractNodes(doc, ns)
	if err != nil {
		return nil, err
	}

	w := &ldWalker{ns: ns}
	for _, n := range nodes {
		obj, ok := n.(map[string]interface{})
		if !ok {
			continue
		}
		if _, err := w.walkNode(obj); err != nil {
			return nil, err
		}
	}

	d := &LDDeserializer{quads: w.quads, pos: -1}
	if closer, ok := r.(io.Closer); ok {
		d.rc = closer
	}
	return d, nil
}

func extractNodes(doc interface{}, ns *nsmap.Map) ([]interface{}, error) {
	switch v := doc.(type) {
	case []interface{}:
		return v, nil
	case map[string]interface{}:
		if ctx, ok := v["@context"]; ok {
			registerContext(ctx, ns)
		}
		if graph, ok := v["@graph"]; ok {
			if arr, ok := graph.([]interface{}); ok {
				return arr, nil
			}
			return []interface{}{graph}, nil
		}
		// A single node object with no "@graph" wrapper.
		return []interface{}{v}, nil
	default:
		return nil, errs.NewParseError(0, 0, "Parse", "unsupported JSON-LD top-level shape")
	}
}

// registerContext binds every string-valued "@context" entry as a prefix;
// non-string entries ("@vocab", "@language", term objects) are outside
// this deserializer's scope and are ignored.
func registerContext(ctx interface{}, ns *nsmap.Map) {
	m, ok := ctx.(map[string]interface{})
	if !ok {
		return
	}
	for prefix, v := range m {
		if strings.HasPrefix(prefix, "@") {
			continue
		}
		if iri, ok := v.(string); ok {
			_ = ns.AddPrefix(prefix, iri)
		}
	}
}

type ldWalker struct {
	ns           *nsmap.Map
	quads        []term.Quad
	bnodeCounter int
}

func (w *ldWalker) freshBlankNode() term.Term {
	w.bnodeCounter++
	return term.NewBlankNode("ld" + strconv.Itoa(w.bnodeCounter))
}

// resolveRef expands a CURIE, passes through an absolute IRI, or maps a
// "_:label" reference to a blank node.
func (w *ldWalker) resolveRef(raw string) term.Term {
	if strings.HasPrefix(raw, "_:") {
		return term.NewBlankNode(strings.TrimPrefix(raw, "_:"))
	}
	if strings.Contains(raw, "://") {
		return term.NewIRI(raw)
	}
	if iri, err := w.ns.Expand(raw); err == nil {
		return term.NewIRI(iri)
	}
	return term.NewIRI(raw)
}

// walkNode flattens one node object into quads and returns the term that
// stands for the node itself (its "@id", or a fresh blank node).
func (w *ldWalker) walkNode(obj map[string]interface{}) (term.Term, error) {
	subject := w.freshBlankNode()
	if idVal, ok := obj["@id"]; ok {
		if idStr, ok := idVal.(string); ok {
			subject = w.resolveRef(idStr)
		}
	}

	for key, val := range obj {
		if key == "@id" || key == "@context" {
			continue
		}
		pred := term.NewIRI(term.RDFType)
		if key != "@type" {
			p, err := w.resolvePredicate(key)
			if err != nil {
				return term.Term{}, err
			}
			pred = p
		}

		arr, isArray := val.([]interface{})
		if !isArray {
			arr = []interface{}{val}
		}
		for _, elem := range arr {
			obj, err := w.objectTerm(elem)
			if err != nil {
				return term.Term{}, err
			}
			w.quads = append(w.quads, term.Quad{
				Graph:     term.DefaultGraph,
				Subject:   subject,
				Predicate: pred,
				Object:    obj,
			})
		}
	}
	return subject, nil
}

func (w *ldWalker) resolvePredicate(key string) (term.Term, error) {
	if strings.Contains(key, "://") {
		return term.NewIRI(key), nil
	}
	if iri, err := w.ns.Expand(key); err == nil {
		return term.NewIRI(iri), nil
	}
	return term.Term{}, errs.NewParseError(0, 0, "UnknownPrefix", "unresolvable JSON-LD predicate: "+key)
}

// objectTerm resolves one value-position element: a type IRI string (for
// "@type"), a value object ({"@value":...}), a node reference or embedded
// node ({"@id":...}, possibly with further predicates), or a bare string
// shorthand for a node reference.
func (w *ldWalker) objectTerm(elem interface{}) (term.Term, error) {
	switch v := elem.(type) {
	case string:
		return w.resolveRef(v), nil
	case map[string]interface{}:
		if lit, ok := v["@value"]; ok {
			return literalFromValueObject(lit, v), nil
		}
		nested, err := w.walkNode(v)
		if err != nil {
			return term.Term{}, err
		}
		return nested, nil
	default:
		return term.Term{}, errs.NewParseError(0, 0, "Parse", "unsupported JSON-LD value shape")
	}
}

func literalFromValueObject(v interface{}, obj map[string]interface{}) term.Term {
	lexical := jsonScalarToLexical(v)
	if lang, ok := obj["@language"].(string); ok && lang != "" {
		return term.NewLangString(lexical, lang)
	}
	if dt, ok := obj["@type"].(string); ok && dt != "" {
		return term.NewLiteral(lexical, dt)
	}
	return term.NewLiteral(lexical, "")
}

func jsonScalarToLexical(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return ""
	}
}

func (d *LDDeserializer) ColumnCount() int { return 4 }

func (d *LDDeserializer) VariableName(i int) (string, bool) {
	switch i {
	case 0:
		return "subject", true
	case 1:
		return "predicate", true
	case 2:
		return "object", true
	case 3:
		return "graph", true
	default:
		return "", false
	}
}

func (d *LDDeserializer) Term(i int) term.Term {
	if i < 0 || i >= len(d.row) {
		return term.Unbound
	}
	return d.row[i]
}

func (d *LDDeserializer) ValueType(i int) cursor.ValueType { return cursor.ValueTypeOf(d.Term(i)) }

func (d *LDDeserializer) String(i int) (string, *string, int) {
	t := d.Term(i)
	lexical := t.Value()
	var lang *string
	if l := t.Lang(); l != "" {
		lang = &l
	}
	return lexical, lang, len(lexical)
}

func (d *LDDeserializer) Integer(i int) (int64, error)     { return cursor.CoerceInteger(d.Term(i)) }
func (d *LDDeserializer) Double(i int) (float64, error)     { return cursor.CoerceDouble(d.Term(i)) }
func (d *LDDeserializer) Boolean(i int) (bool, error)       { return cursor.CoerceBoolean(d.Term(i)) }
func (d *LDDeserializer) Datetime(i int) (time.Time, error) { return cursor.CoerceDatetime(d.Term(i)) }

func (d *LDDeserializer) Next(ctx context.Context) (bool, error) {
	if d.closed {
		return false, nil
	}
	select {
	case <-ctx.Done():
		d.Close()
		return false, ctx.Err()
	default:
	}
	d.pos++
	if d.pos >= len(d.quads) {
		return false, nil
	}
	q := d.quads[d.pos]
	d.row = [4]term.Term{q.Subject, q.Predicate, q.Object, q.Graph}
	return true, nil
}

func (d *LDDeserializer) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if d.rc != nil {
		return d.rc.Close()
	}
	return nil
}
