package cursor

import (
	"context"
	"time"

	"github.com/tinygraph/tinygraph/internal/term"
)

// Row is one tabular result row: a fixed set of columns, each an RDF term.
type Row []term.Term

// SliceCursor adapts an in-memory, already-materialized result set ([]Row)
// to the Cursor protocol. It is the default cursor a query planner or a
// test builds when the whole result set fits comfortably in memory; the
// ordering of rows it was constructed with is preserved verbatim, which is
// what the query-kind ordering guarantee requires for SELECT results
// computed eagerly by the backing store.
type SliceCursor struct {
	vars   []string
	rows   []Row
	pos    int // index of the current row, -1 before the first Next
	closed bool
}

// NewSliceCursor builds a cursor over rows, with the given variable names
// (empty-string entries are allowed and mean "no variable name for this
// column").
func NewSliceCursor(vars []string, rows []Row) *SliceCursor {
	return &SliceCursor{vars: vars, rows: rows, pos: -1}
}

func (c *SliceCursor) ColumnCount() int {
	if len(c.vars) > 0 {
		return len(c.vars)
	}
	if len(c.rows) > 0 {
		return len(c.rows[0])
	}
	return 0
}

func (c *SliceCursor) VariableName(i int) (string, bool) {
	if i < 0 || i >= len(c.vars) || c.vars[i] == "" {
		return "", false
	}
	return c.vars[i], true
}

func (c *SliceCursor) current() Row {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil
	}
	return c.rows[c.pos]
}

func (c *SliceCursor) Term(i int) term.Term {
	row := c.current()
	if row == nil || i < 0 || i >= len(row) {
		return term.Unbound
	}
	return row[i]
}

func (c *SliceCursor) ValueType(i int) ValueType {
	return ValueTypeOf(c.Term(i))
}

func (c *SliceCursor) String(i int) (string, *string, int) {
	t := c.Term(i)
	lexical := t.Value()
	var lang *string
	if l := t.Lang(); l != "" {
		lang = &l
	}
	return lexical, lang, len(lexical)
}

func (c *SliceCursor) Integer(i int) (int64, error)        { return CoerceInteger(c.Term(i)) }
func (c *SliceCursor) Double(i int) (float64, error)        { return CoerceDouble(c.Term(i)) }
func (c *SliceCursor) Boolean(i int) (bool, error)          { return CoerceBoolean(c.Term(i)) }
func (c *SliceCursor) Datetime(i int) (time.Time, error)    { return CoerceDatetime(c.Term(i)) }

func (c *SliceCursor) Next(ctx context.Context) (bool, error) {
	if c.closed {
		return false, nil
	}
	select {
	case <-ctx.Done():
		c.Close()
		return false, ctx.Err()
	default:
	}
	c.pos++
	return c.pos < len(c.rows), nil
}

func (c *SliceCursor) Close() error {
	c.closed = true
	return nil
}
