package sparql

import (
	"strings"

	"github.com/tinygraph/tinygraph/internal/errs"
	"github.com/tinygraph/tinygraph/internal/nsmap"
	"github.com/tinygraph/tinygraph/internal/term"
)

// parser is a recursive-descent parser over the token stream, grounded
// on the teacher's parser-package convention of a thin split between
// tokenizing and a hand-written grammar walk (parser/sqldef.go).
type parser struct {
	lex *lexer
	cur token
	ns  *nsmap.Map
}

// Parse compiles src into a Query. ns supplies (and accumulates) the
// prefix bindings PREFIX clauses declare, the same namespace manager
// used across ingest and serialization.
func Parse(src string, ns *nsmap.Map) (*Query, error) {
	p := &parser{lex: newLexer(src), ns: ns}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.parsePrologue(); err != nil {
		return nil, err
	}
	if p.cur.kind != tokKeyword {
		return nil, errs.NewParseError(p.cur.line, p.cur.column, "Parse", "expected a query or update form")
	}
	switch p.cur.text {
	case "SELECT":
		return p.parseSelect()
	case "ASK":
		return p.parseAsk()
	case "CONSTRUCT":
		return p.parseConstruct()
	case "DESCRIBE":
		return p.parseDescribe()
	case "INSERT":
		return p.parseInsert()
	case "DELETE":
		return p.parseDelete()
	default:
		return nil, errs.NewParseError(p.cur.line, p.cur.column, "Parse", "unsupported query form: "+p.cur.text)
	}
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

func (p *parser) atKeyword(kw string) bool {
	return p.cur.kind == tokKeyword && p.cur.text == kw
}

func (p *parser) expectKeyword(kw string) error {
	if !p.atKeyword(kw) {
		return errs.NewParseError(p.cur.line, p.cur.column, "Parse", "expected "+kw)
	}
	return p.advance()
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	if p.cur.kind != kind {
		return token{}, errs.NewParseError(p.cur.line, p.cur.column, "Parse", "expected "+what)
	}
	t := p.cur
	return t, p.advance()
}

func (p *parser) parsePrologue() error {
	for p.atKeyword("PREFIX") {
		if err := p.advance(); err != nil {
			return err
		}
		ns, err := p.expect(tokPNameNS, "namespace prefix")
		if err != nil {
			return err
		}
		iriTok, err := p.expect(tokIRIRef, "namespace IRI")
		if err != nil {
			return err
		}
		prefix := strings.TrimSuffix(ns.text, ":")
		if err := p.ns.AddPrefix(prefix, iriTok.text); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) parseSelect() (*Query, error) {
	if err := p.advance(); err != nil { // consume SELECT
		return nil, err
	}
	q := &Query{Kind: KindSelect}
	if p.atKeyword("DISTINCT") {
		q.Distinct = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.cur.kind == tokVar {
		for p.cur.kind == tokVar {
			q.SelectVars = append(q.SelectVars, p.cur.text)
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	} else if p.cur.kind == tokStar {
		q.SelectAll = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else {
		return nil, errs.NewParseError(p.cur.line, p.cur.column, "Parse", "expected select variable list or '*'")
	}

	if err := p.skipFromClauses(); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	q.Where = where
	return q, nil
}

func (p *parser) skipFromClauses() error {
	for p.atKeyword("FROM") {
		if err := p.advance(); err != nil {
			return err
		}
		if _, err := p.expect(tokIRIRef, "graph IRI"); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) parseAsk() (*Query, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.skipFromClauses(); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	return &Query{Kind: KindAsk, Where: where}, nil
}

func (p *parser) parseConstruct() (*Query, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	template, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	return &Query{Kind: KindConstruct, Template: template, Where: where}, nil
}

func (p *parser) parseDescribe() (*Query, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	q := &Query{Kind: KindDescribe}
	if p.cur.kind == tokStar {
		q.SelectAll = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else {
		for p.cur.kind == tokVar || p.cur.kind == tokIRIRef || p.cur.kind == tokPNameLN {
			t, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			q.DescribeTerms = append(q.DescribeTerms, t)
		}
		if len(q.DescribeTerms) == 0 {
			return nil, errs.NewParseError(p.cur.line, p.cur.column, "Parse", "expected DESCRIBE target")
		}
	}
	if err := p.skipFromClauses(); err != nil {
		return nil, err
	}
	if p.atKeyword("WHERE") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		where, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		q.Where = where
	}
	return q, nil
}

func (p *parser) parseInsert() (*Query, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.atKeyword("DATA") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		data, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		if err := requireGround(data); err != nil {
			return nil, err
		}
		return &Query{Kind: KindInsertData, Template: data}, nil
	}
	template, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	return &Query{Kind: KindInsertWhere, Template: template, Where: where}, nil
}

func (p *parser) parseDelete() (*Query, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.atKeyword("DATA") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		data, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		if err := requireGround(data); err != nil {
			return nil, err
		}
		return &Query{Kind: KindDeleteData, Template: data}, nil
	}
	template, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	return &Query{Kind: KindDeleteWhere, Template: template, Where: where}, nil
}

func requireGround(patterns []TriplePattern) error {
	for _, tp := range patterns {
		if tp.Subject.IsVariable() || tp.Predicate.IsVariable() || tp.Object.IsVariable() || tp.Graph.IsVariable() {
			return errs.NewParseError(0, 0, "Parse", "DATA block must not contain variables")
		}
	}
	return nil
}

func (p *parser) parseGroupGraphPattern() ([]TriplePattern, error) {
	if _, err := p.expect(tokLBrace, "'{'"); err != nil {
		return nil, err
	}
	var out []TriplePattern
	for {
		if p.cur.kind == tokRBrace {
			return out, p.advance()
		}
		if p.atKeyword("GRAPH") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			g, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokLBrace, "'{'"); err != nil {
				return nil, err
			}
			body, err := p.parseTriplesBlockBody()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRBrace, "'}'"); err != nil {
				return nil, err
			}
			for i := range body {
				body[i].Graph = g
				body[i].HasExplicitGraph = true
			}
			out = append(out, body...)
			continue
		}
		body, err := p.parseTriplesBlockBody()
		if err != nil {
			return nil, err
		}
		out = append(out, body...)
	}
}

func (p *parser) parseTriplesBlockBody() ([]TriplePattern, error) {
	var out []TriplePattern
	for {
		if p.cur.kind == tokRBrace || p.atKeyword("GRAPH") {
			return out, nil
		}
		subject, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		list, err := p.parsePredicateObjectList(subject)
		if err != nil {
			return nil, err
		}
		out = append(out, list...)
		if p.cur.kind == tokDot {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if p.cur.kind == tokRBrace || p.atKeyword("GRAPH") {
			return out, nil
		}
	}
}

func (p *parser) parsePredicateObjectList(subject PatternTerm) ([]TriplePattern, error) {
	var out []TriplePattern
	for {
		predicate, err := p.parseVerb()
		if err != nil {
			return nil, err
		}
		for {
			object, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			out = append(out, TriplePattern{Subject: subject, Predicate: predicate, Object: object})
			if p.cur.kind == tokComma {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
		if p.cur.kind == tokSemicolon {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return out, nil
}

func (p *parser) parseVerb() (PatternTerm, error) {
	if p.cur.kind == tokA {
		t := PatternTerm{Bound: term.NewIRI(term.RDFType)}
		return t, p.advance()
	}
	return p.parseTerm()
}

func (p *parser) parseTerm() (PatternTerm, error) {
	switch p.cur.kind {
	case tokVar:
		t := PatternTerm{Var: p.cur.text}
		return t, p.advance()
	case tokPlaceholder:
		t := PatternTerm{Placeholder: p.cur.text}
		return t, p.advance()
	case tokIRIRef:
		t := PatternTerm{Bound: term.NewIRI(p.cur.text)}
		return t, p.advance()
	case tokPNameLN:
		text := p.cur.text
		prefix, suffix, _ := strings.Cut(text, ":")
		if prefix == "_" {
			t := PatternTerm{Bound: term.NewBlankNode(suffix)}
			return t, p.advance()
		}
		iri, err := p.ns.Expand(text)
		if err != nil {
			return PatternTerm{}, errs.NewParseError(p.cur.line, p.cur.column, "UnknownPrefix", "unresolvable prefix: "+prefix)
		}
		t := PatternTerm{Bound: term.NewIRI(iri)}
		return t, p.advance()
	case tokString:
		return p.parseLiteral()
	default:
		return PatternTerm{}, errs.NewParseError(p.cur.line, p.cur.column, "Parse", "expected a term")
	}
}

func (p *parser) parseLiteral() (PatternTerm, error) {
	lexical := p.cur.text
	if err := p.advance(); err != nil {
		return PatternTerm{}, err
	}
	switch p.cur.kind {
	case tokLangTag:
		lang := p.cur.text
		if err := p.advance(); err != nil {
			return PatternTerm{}, err
		}
		return PatternTerm{Bound: term.NewLangString(lexical, lang)}, nil
	case tokDatatypeCaret:
		if err := p.advance(); err != nil {
			return PatternTerm{}, err
		}
		dtTerm, err := p.parseTerm()
		if err != nil {
			return PatternTerm{}, err
		}
		if !dtTerm.IsBound() || dtTerm.Bound.Kind() != term.KindIRI {
			return PatternTerm{}, errs.NewParseError(p.cur.line, p.cur.column, "Parse", "expected datatype IRI")
		}
		return PatternTerm{Bound: term.NewLiteral(lexical, dtTerm.Bound.Value())}, nil
	default:
		return PatternTerm{Bound: term.NewLiteral(lexical, "")}, nil
	}
}
