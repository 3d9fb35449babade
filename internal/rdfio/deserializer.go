package rdfio

import (
	"context"
	"io"
	"regexp"
	"strconv"
	"time"

	"github.com/tinygraph/tinygraph/internal/cursor"
	"github.com/tinygraph/tinygraph/internal/errs"
	"github.com/tinygraph/tinygraph/internal/nsmap"
	"github.com/tinygraph/tinygraph/internal/term"
)

type parserState int

const (
	stateInitial parserState = iota
	stateGraph
	stateSubject
	statePredicate
	stateObject
	stateStep
)

// frame is a pushed (subject, predicate, state) triple, restored on a
// matching ']'. Per Design Notes, this is the one deliberate stack of
// back-references in the module: it exists only because the object
// graph here is genuinely cyclic (a nested blank node's continuation
// needs its enclosing triple back).
type frame struct {
	subject   term.Term
	predicate term.Term
	state     parserState
}

var schemeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*:`)

// Deserializer parses a Turtle or TriG byte stream into a cursor of
// (subject, predicate, object, graph) rows, per the state machine in
// spec.md's Turtle/TriG deserializer section.
type Deserializer struct {
	tok       *tokenizer
	ns        *nsmap.Map
	base      string
	parseTrig bool

	state parserState
	stack []frame

	subject   term.Term
	predicate term.Term
	object    term.Term
	graph     term.Term

	bnodeCounter int
	closeStream  io.Closer

	row    [4]term.Term
	err    error
	closed bool
}

// New builds a Deserializer over r. When parseTrig is true, the TriG
// graph-block grammar is recognized; otherwise the input is parsed as
// plain Turtle and every row's graph column is the default graph.
func New(r io.Reader, ns *nsmap.Map, parseTrig bool, base string) *Deserializer {
	d := &Deserializer{
		tok:       newTokenizer(r),
		ns:        ns,
		parseTrig: parseTrig,
		base:      base,
		state:     stateInitial,
	}
	if closer, ok := r.(io.Closer); ok {
		d.closeStream = closer
	}
	return d
}

func (d *Deserializer) ColumnCount() int { return 4 }

func (d *Deserializer) VariableName(i int) (string, bool) {
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

func (d *Deserializer) Term(i int) term.Term {
	if i < 0 || i >= len(d.row) {
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

func (d *Deserializer) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if d.closeStream != nil {
		return d.closeStream.Close()
	}
	return nil
}

// Next advances the state machine until a triple has been fully parsed
// (a row is ready), or returns false at clean EOF, or returns an error
// and closes the cursor on parse failure.
func (d *Deserializer) Next(ctx context.Context) (bool, error) {
	if d.closed {
		return false, nil
	}
	if d.err != nil {
		return false, d.err
	}

	for {
		select {
		case <-ctx.Done():
			d.fail(errs.ErrCancelled)
			return false, ctx.Err()
		default:
		}

		la := d.tok.next()
		if la.kind == tokError {
			d.fail(d.tok.err)
			return false, d.tok.err
		}

		switch d.state {
		case stateInitial:
			done, yielded, err := d.stepInitial(la)
			if err != nil {
				d.fail(err)
				return false, err
			}
			if done {
				d.Close()
				return false, nil
			}
			if yielded {
				return true, nil
			}

		case stateGraph:
			err := d.stepGraph(la)
			if err == io.EOF {
				d.Close()
				return false, nil
			}
			if err != nil {
				d.fail(err)
				return false, err
			}

		case stateSubject:
			err := d.stepSubject(la)
			if err == io.EOF {
				d.Close()
				return false, nil
			}
			if err != nil {
				d.fail(err)
				return false, err
			}

		case statePredicate:
			err := d.stepPredicate(la)
			if err != nil {
				d.fail(err)
				return false, err
			}

		case stateObject:
			yielded, err := d.stepObject(la)
			if err != nil {
				d.fail(err)
				return false, err
			}
			if yielded {
				return true, nil
			}

		case stateStep:
			done, yielded, err := d.stepStep(la)
			if err != nil {
				d.fail(err)
				return false, err
			}
			if yielded {
				return true, nil
			}
			if done {
				d.Close()
				return false, nil
			}
		}
	}
}

func (d *Deserializer) fail(err error) {
	d.err = err
	d.Close()
}

// stepInitial handles directives at the top level, then dispatches into
// Graph (TriG) or Subject (Turtle) on the first non-directive token.
func (d *Deserializer) stepInitial(la token) (done, yielded bool, err error) {
	switch la.kind {
	case tokEOF:
		return true, false, nil
	case tokPrefixDirective:
		return false, false, d.consumePrefixDirective(la)
	case tokBaseDirective:
		return false, false, d.consumeBaseDirective(la)
	default:
		if d.parseTrig {
			d.state = stateGraph
			return d.dispatchGraph(la)
		}
		d.graph = term.DefaultGraph
		d.state = stateSubject
		return d.dispatchSubject(la)
	}
}

func (d *Deserializer) dispatchGraph(la token) (done, yielded bool, err error) {
	e := d.stepGraph(la)
	return false, false, e
}

func (d *Deserializer) dispatchSubject(la token) (done, yielded bool, err error) {
	e := d.stepSubject(la)
	return false, false, e
}

// stepGraph is at the start of an (optional) TriG "graph <iri> {" block.
func (d *Deserializer) stepGraph(la token) error {
	switch la.kind {
	case tokEOF:
		return io.EOF
	case tokGraphKeyword:
		return nil // consume the optional "GRAPH" keyword, wait for the IRI
	case tokIRIRef:
		d.graph = term.NewIRI(d.resolveIRI(la.lexeme))
		return nil
	case tokPNameLN, tokPNameNS:
		iri, e := d.expandPrefixed(la)
		if e != nil {
			return d.parseError(la, "UnknownPrefix", e.Error())
		}
		d.graph = term.NewIRI(iri)
		return nil
	case tokLBrace:
		if d.graph.IsUnbound() {
			d.graph = term.DefaultGraph
		}
		d.state = stateSubject
		return nil
	case tokPrefixDirective:
		return d.consumePrefixDirective(la)
	case tokBaseDirective:
		return d.consumeBaseDirective(la)
	default:
		return d.parseError(la, "Parse", "expected graph IRI or '{'")
	}
}

// stepSubject is awaiting a subject term.
func (d *Deserializer) stepSubject(la token) error {
	switch la.kind {
	case tokRBrace:
		if d.parseTrig {
			d.graph = term.DefaultGraph
			d.state = stateInitial
			return nil
		}
		return d.parseError(la, "Parse", "unexpected '}'")
	case tokEOF:
		if len(d.stack) == 0 {
			return io.EOF
		}
		return d.parseError(la, "Parse", "unexpected end of input")
	case tokLBracket:
		d.stack = append(d.stack, frame{subject: d.subject, predicate: d.predicate, state: stateSubject})
		d.subject = d.freshBlankNode()
		d.state = statePredicate
		return nil
	case tokAnonBlank:
		d.subject = d.freshBlankNode()
		d.state = statePredicate
		return nil
	default:
		t, err := d.subjectTerm(la)
		if err != nil {
			return err
		}
		d.subject = t
		d.state = statePredicate
		return nil
	}
}

func (d *Deserializer) subjectTerm(la token) (term.Term, error) {
	switch la.kind {
	case tokIRIRef:
		return term.NewIRI(d.resolveIRI(la.lexeme)), nil
	case tokPNameLN, tokPNameNS:
		iri, err := d.expandPrefixed(la)
		if err != nil {
			return term.Term{}, d.parseError(la, "UnknownPrefix", err.Error())
		}
		return term.NewIRI(iri), nil
	case tokBlankNodeLabel:
		return term.NewBlankNode(la.lexeme), nil
	default:
		return term.Term{}, d.parseError(la, "Parse", "expected subject term")
	}
}

// stepPredicate is awaiting a predicate IRI, or "a".
func (d *Deserializer) stepPredicate(la token) error {
	switch la.kind {
	case tokA:
		d.predicate = term.NewIRI(term.RDFType)
		d.state = stateObject
		return nil
	case tokIRIRef:
		d.predicate = term.NewIRI(d.resolveIRI(la.lexeme))
		d.state = stateObject
		return nil
	case tokPNameLN, tokPNameNS:
		iri, err := d.expandPrefixed(la)
		if err != nil {
			return d.parseError(la, "UnknownPrefix", err.Error())
		}
		d.predicate = term.NewIRI(iri)
		d.state = stateObject
		return nil
	default:
		return d.parseError(la, "Parse", "expected predicate")
	}
}

// stepObject is awaiting an object term; on success it transitions to
// Step and the row becomes ready to yield.
func (d *Deserializer) stepObject(la token) (bool, error) {
	switch la.kind {
	case tokLBracket:
		d.stack = append(d.stack, frame{subject: d.subject, predicate: d.predicate, state: stateObject})
		d.subject = d.freshBlankNode()
		d.state = statePredicate
		return false, nil
	default:
		t, err := d.objectTerm(la)
		if err != nil {
			return false, err
		}
		d.object = t
		d.state = stateStep
		d.row = [4]term.Term{d.subject, d.predicate, d.object, d.graphOrDefault()}
		return true, nil
	}
}

func (d *Deserializer) graphOrDefault() term.Term {
	if d.parseTrig {
		return d.graph
	}
	return term.DefaultGraph
}

func (d *Deserializer) objectTerm(la token) (term.Term, error) {
	switch la.kind {
	case tokIRIRef:
		return term.NewIRI(d.resolveIRI(la.lexeme)), nil
	case tokPNameLN, tokPNameNS:
		iri, err := d.expandPrefixed(la)
		if err != nil {
			return term.Term{}, d.parseError(la, "UnknownPrefix", err.Error())
		}
		return term.NewIRI(iri), nil
	case tokBlankNodeLabel:
		return term.NewBlankNode(la.lexeme), nil
	case tokAnonBlank:
		return d.freshBlankNode(), nil
	case tokString:
		return d.literalAfterString(la)
	case tokInteger:
		return term.NewLiteral(la.lexeme, "http://www.w3.org/2001/XMLSchema#integer"), nil
	case tokDecimal:
		return term.NewLiteral(la.lexeme, "http://www.w3.org/2001/XMLSchema#decimal"), nil
	case tokDouble:
		return term.NewLiteral(la.lexeme, "http://www.w3.org/2001/XMLSchema#double"), nil
	case tokTrue:
		return term.NewLiteral("true", "http://www.w3.org/2001/XMLSchema#boolean"), nil
	case tokFalse:
		return term.NewLiteral("false", "http://www.w3.org/2001/XMLSchema#boolean"), nil
	default:
		return term.Term{}, d.parseError(la, "Parse", "expected object term")
	}
}

// literalAfterString looks ahead for an optional language tag or
// datatype cast following a plain string. Per spec.md §9, a
// "^^<datatype>" cast is parsed and then discarded: the literal is
// stored as a plain string, datatyping is left to the schema layer.
func (d *Deserializer) literalAfterString(la token) (term.Term, error) {
	save := *d.tok
	next := d.tok.next()
	switch next.kind {
	case tokLangTag:
		return term.NewLangString(la.lexeme, next.lexeme), nil
	case tokCaretCaret:
		dt := d.tok.next()
		switch dt.kind {
		case tokIRIRef:
			_ = d.resolveIRI(dt.lexeme) // parsed, then discarded per spec
		case tokPNameLN, tokPNameNS:
			_, _ = d.expandPrefixed(dt) // parsed, then discarded
		default:
			return term.Term{}, d.parseError(dt, "Parse", "expected datatype IRI after '^^'")
		}
		return term.NewLiteral(la.lexeme, ""), nil
	default:
		*d.tok = save
		return term.NewLiteral(la.lexeme, ""), nil
	}
}

// stepStep handles the punctuation after a completed triple. It returns
// yielded=true when closing a nested blank node produces a new row (the
// enclosing triple, with the blank node as its object).
func (d *Deserializer) stepStep(la token) (done, yielded bool, err error) {
	switch la.kind {
	case tokComma:
		d.state = stateObject
		return false, false, nil
	case tokSemicolon:
		d.state = statePredicate
		return false, false, nil
	case tokDot:
		if d.parseTrig && len(d.stack) == 0 {
			d.state = stateSubject
		} else if len(d.stack) == 0 {
			d.state = stateInitial
		} else {
			// A '.' while a '[' frame is open is malformed, but we stay
			// permissive and treat it as ending the innermost statement.
			d.state = stateSubject
		}
		return false, false, nil
	case tokRBrace:
		if !d.parseTrig {
			return false, false, d.parseError(la, "Parse", "unexpected '}'")
		}
		d.graph = term.DefaultGraph
		d.state = stateInitial
		return false, false, nil
	case tokRBracket:
		if len(d.stack) == 0 {
			return false, false, d.parseError(la, "Parse", "unmatched ']'")
		}
		popped := d.stack[len(d.stack)-1]
		d.stack = d.stack[:len(d.stack)-1]
		closedSubject := d.subject
		if popped.state == stateObject {
			// The freshly minted blank node becomes the object of the
			// enclosing triple, which is now complete and ready to yield.
			d.subject = popped.subject
			d.predicate = popped.predicate
			d.object = closedSubject
			d.state = stateStep
			d.row = [4]term.Term{d.subject, d.predicate, d.object, d.graphOrDefault()}
			return false, true, nil
		}
		// The freshly minted blank node becomes the subject for further
		// predicates (the bracket itself was the enclosing subject).
		d.subject = closedSubject
		d.state = statePredicate
		return false, false, nil
	case tokEOF:
		return true, false, nil
	default:
		return false, false, d.parseError(la, "Parse", "unexpected token after triple")
	}
}

func (d *Deserializer) consumePrefixDirective(la token) error {
	name := d.tok.next()
	if name.kind != tokPNameNS && name.kind != tokPNameLN {
		return d.parseError(name, "Parse", "expected prefix name")
	}
	prefix := name.lexeme
	iriTok := d.tok.next()
	if iriTok.kind != tokIRIRef {
		return d.parseError(iriTok, "Parse", "expected namespace IRI")
	}
	if !la.sparqlStyle {
		dot := d.tok.next()
		if dot.kind != tokDot {
			return d.parseError(dot, "Parse", "expected '.' after @prefix directive")
		}
	}
	return d.ns.AddPrefix(prefix, d.resolveIRI(iriTok.lexeme))
}

func (d *Deserializer) consumeBaseDirective(la token) error {
	iriTok := d.tok.next()
	if iriTok.kind != tokIRIRef {
		return d.parseError(iriTok, "Parse", "expected base IRI")
	}
	if !la.sparqlStyle {
		dot := d.tok.next()
		if dot.kind != tokDot {
			return d.parseError(dot, "Parse", "expected '.' after @base directive")
		}
	}
	d.base = d.resolveIRI(iriTok.lexeme)
	return nil
}

func (d *Deserializer) expandPrefixed(t token) (string, error) {
	return d.ns.Expand(t.lexeme)
}

// resolveIRI concatenates a scheme-less suffix with the current base;
// an IRI carrying its own scheme is kept verbatim, per spec.md §4.3.
func (d *Deserializer) resolveIRI(raw string) string {
	if schemeRe.MatchString(raw) {
		return raw
	}
	return d.base + raw
}

func (d *Deserializer) freshBlankNode() term.Term {
	d.bnodeCounter++
	return term.NewBlankNode("b" + strconv.Itoa(d.bnodeCounter))
}

func (d *Deserializer) parseError(t token, kind, msg string) *errs.ParseError {
	return errs.NewParseError(t.line, t.column, kind, msg)
}
