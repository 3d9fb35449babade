package serialize

import (
	"strings"

	"github.com/tinygraph/tinygraph/internal/nsmap"
	"github.com/tinygraph/tinygraph/internal/term"
)

// textWriter is the subset of bytes.Buffer and strings.Builder the
// Turtle string escaper needs, so it can append directly into either.
type textWriter interface {
	WriteByte(byte) error
	WriteString(string) (int, error)
	WriteRune(rune) (int, error)
}

// renderIRI compresses iri against ns; if no namespace matches, it falls
// back to the full "<iri>" form.
func renderIRI(ns *nsmap.Map, iri string) string {
	compressed := ns.Compress(iri)
	if compressed == iri {
		return "<" + iri + ">"
	}
	return compressed
}

// renderPredicate special-cases rdf:type as the Turtle "a" keyword.
func renderPredicate(ns *nsmap.Map, t term.Term) string {
	if t.Value() == term.RDFType {
		return "a"
	}
	return renderIRI(ns, t.Value())
}

// renderTerm renders an IRI, blank node, or literal in Turtle syntax.
// Unbound and other unsupported shapes are the caller's responsibility
// to reject before calling this.
func renderTerm(ns *nsmap.Map, t term.Term) string {
	switch t.Kind() {
	case term.KindIRI:
		return renderIRI(ns, t.Value())
	case term.KindBlankNode:
		return "_:" + t.Value()
	case term.KindLiteral:
		var b strings.Builder
		writeTurtleString(&b, t.Value())
		if lang := t.Lang(); lang != "" {
			b.WriteByte('@')
			b.WriteString(lang)
		} else if dt := t.Datatype(); dt != "" && dt != term.XSDString {
			b.WriteString("^^")
			b.WriteString(renderIRI(ns, dt))
		}
		return b.String()
	default:
		return ""
	}
}

// writeTurtleString appends a double-quoted, escaped STRING_LITERAL_QUOTE
// rendering of s.
func writeTurtleString(b textWriter, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
}
