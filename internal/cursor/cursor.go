// Package cursor implements the pull-based tabular iterator shared by
// query results, file deserializers and in-memory resource adapters.
package cursor

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/tinygraph/tinygraph/internal/errs"
	"github.com/tinygraph/tinygraph/internal/term"
)

// ValueType is the per-column type a caller sees through ValueType. It
// refines term.Kind with the XSD-coercible literal subtypes the typed
// extractors understand.
type ValueType int

const (
	TypeUnbound ValueType = iota
	TypeIRI
	TypeBlankNode
	TypeLiteral
	TypeString
	TypeInteger
	TypeDouble
	TypeBoolean
	TypeDatetime
)

const (
	xsdInteger  = "http://www.w3.org/2001/XMLSchema#integer"
	xsdDecimal  = "http://www.w3.org/2001/XMLSchema#decimal"
	xsdDouble   = "http://www.w3.org/2001/XMLSchema#double"
	xsdFloat    = "http://www.w3.org/2001/XMLSchema#float"
	xsdBoolean  = "http://www.w3.org/2001/XMLSchema#boolean"
	xsdDatetime = "http://www.w3.org/2001/XMLSchema#dateTime"
)

// ValueTypeOf derives the refined ValueType for a term, used by every
// Cursor implementation's ValueType method.
func ValueTypeOf(t term.Term) ValueType {
	switch t.Kind() {
	case term.KindIRI:
		return TypeIRI
	case term.KindBlankNode:
		return TypeBlankNode
	case term.KindUnbound:
		return TypeUnbound
	case term.KindLiteral:
		switch t.Datatype() {
		case xsdInteger:
			return TypeInteger
		case xsdDouble, xsdFloat, xsdDecimal:
			return TypeDouble
		case xsdBoolean:
			return TypeBoolean
		case xsdDatetime:
			return TypeDatetime
		default:
			return TypeString
		}
	default:
		return TypeLiteral
	}
}

// Cursor is a pull-based lazy sequence over rows of typed RDF terms. Next
// is never restartable; Close releases any underlying resources and is
// idempotent.
type Cursor interface {
	ColumnCount() int
	VariableName(i int) (string, bool)
	ValueType(i int) ValueType
	// String returns the lexical rendering of column i: the literal body
	// for literals, the IRI text for IRIs, the label for blank nodes.
	String(i int) (lexical string, lang *string, length int)
	Integer(i int) (int64, error)
	Double(i int) (float64, error)
	Boolean(i int) (bool, error)
	Datetime(i int) (time.Time, error)
	Term(i int) term.Term
	Next(ctx context.Context) (bool, error)
	Close() error
}

// CoerceInteger implements the XSD coercion rule typed extractors use:
// parse the lexical form as a base-10 integer.
func CoerceInteger(t term.Term) (int64, error) {
	if t.Kind() != term.KindLiteral {
		return 0, errs.ErrUnsupportedValue
	}
	return strconv.ParseInt(strings.TrimSpace(t.Value()), 10, 64)
}

func CoerceDouble(t term.Term) (float64, error) {
	if t.Kind() != term.KindLiteral {
		return 0, errs.ErrUnsupportedValue
	}
	return strconv.ParseFloat(strings.TrimSpace(t.Value()), 64)
}

func CoerceBoolean(t term.Term) (bool, error) {
	if t.Kind() != term.KindLiteral {
		return false, errs.ErrUnsupportedValue
	}
	switch strings.TrimSpace(t.Value()) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, errs.ErrUnsupportedValue
	}
}

func CoerceDatetime(t term.Term) (time.Time, error) {
	if t.Kind() != term.KindLiteral {
		return time.Time{}, errs.ErrUnsupportedValue
	}
	return time.Parse(time.RFC3339, strings.TrimSpace(t.Value()))
}
