// Package serialize implements the serializer family: a byte input stream
// wrapping a cursor plus a namespace manager, lazily pulling from the
// cursor as bytes are read. Grounded on spec.md §4.5's five formats;
// dispatch is a closed enum switch (Design Notes §9), never an interface
// hierarchy, so the hot serialize path stays monomorphic.
package serialize

import (
	"fmt"
	"io"

	"github.com/tinygraph/tinygraph/internal/cursor"
	"github.com/tinygraph/tinygraph/internal/nsmap"
)

// Format is the closed set of wire formats a cursor can be rendered to.
type Format int

const (
	FormatSPARQLJSON Format = iota
	FormatSPARQLXML
	FormatTurtle
	FormatTriG
	FormatJSONLD
)

func (f Format) String() string {
	switch f {
	case FormatSPARQLJSON:
		return "sparql-json"
	case FormatSPARQLXML:
		return "sparql-xml"
	case FormatTurtle:
		return "turtle"
	case FormatTriG:
		return "trig"
	case FormatJSONLD:
		return "json-ld"
	default:
		return "unknown"
	}
}

// New builds the io.ReadCloser for format over cur. ns supplies the
// prefix bindings Turtle, TriG and JSON-LD compress IRIs against; the
// tabular formats (SPARQL-JSON/XML) ignore it.
func New(format Format, cur cursor.Cursor, ns *nsmap.Map) (io.ReadCloser, error) {
	switch format {
	case FormatSPARQLJSON:
		return newSPARQLJSONSerializer(cur), nil
	case FormatSPARQLXML:
		return newSPARQLXMLSerializer(cur), nil
	case FormatTurtle:
		return newTripleSerializer(cur, ns, false), nil
	case FormatTriG:
		return newTripleSerializer(cur, ns, true), nil
	case FormatJSONLD:
		return newJSONLDSerializer(cur, ns), nil
	default:
		return nil, fmt.Errorf("serialize: unknown format %d", format)
	}
}
