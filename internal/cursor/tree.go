package cursor

import (
	"context"
	"time"

	"github.com/tinygraph/tinygraph/internal/term"
)

// Node is an in-memory RDF resource: a subject plus its outgoing edges.
// Edge.Object may itself be the Subject of a nested Node (anonymous or
// otherwise), which is how a resource tree models nested blank nodes.
type Node struct {
	Subject  term.Term
	Edges    []Edge
}

type Edge struct {
	Predicate term.Term
	Object    term.Term
	Nested    *Node // non-nil when Object is the subject of a nested Node
}

// TreeCursor walks a resource tree in stable preorder and yields one row
// per edge: (subject, predicate, object). It is the "synthetic
// deserializer" adapter spec.md's deserializer family describes for
// in-memory resource trees.
type TreeCursor struct {
	queue  []pending
	row    Row
	closed bool
}

type pending struct {
	subject term.Term
	edge    Edge
}

// NewTreeCursor flattens root (and any nested nodes reachable from it)
// into a queue of (subject, predicate, object) rows, preorder.
func NewTreeCursor(root *Node) *TreeCursor {
	c := &TreeCursor{}
	c.enqueue(root)
	return c
}

func (c *TreeCursor) enqueue(n *Node) {
	if n == nil {
		return
	}
	for _, e := range n.Edges {
		c.queue = append(c.queue, pending{subject: n.Subject, edge: e})
	}
	for _, e := range n.Edges {
		if e.Nested != nil {
			c.enqueue(e.Nested)
		}
	}
}

func (c *TreeCursor) ColumnCount() int { return 3 }

func (c *TreeCursor) VariableName(i int) (string, bool) {
	switch i {
	case 0:
		return "subject", true
	case 1:
		return "predicate", true
	case 2:
		return "object", true
	default:
		return "", false
	}
}

func (c *TreeCursor) Term(i int) term.Term {
	if c.row == nil || i < 0 || i >= len(c.row) {
		return term.Unbound
	}
	return c.row[i]
}

func (c *TreeCursor) ValueType(i int) ValueType { return ValueTypeOf(c.Term(i)) }

func (c *TreeCursor) String(i int) (string, *string, int) {
	t := c.Term(i)
	lexical := t.Value()
	var lang *string
	if l := t.Lang(); l != "" {
		lang = &l
	}
	return lexical, lang, len(lexical)
}

func (c *TreeCursor) Integer(i int) (int64, error)     { return CoerceInteger(c.Term(i)) }
func (c *TreeCursor) Double(i int) (float64, error)     { return CoerceDouble(c.Term(i)) }
func (c *TreeCursor) Boolean(i int) (bool, error)       { return CoerceBoolean(c.Term(i)) }
func (c *TreeCursor) Datetime(i int) (time.Time, error) { return CoerceDatetime(c.Term(i)) }

func (c *TreeCursor) Next(ctx context.Context) (bool, error) {
	if c.closed {
		return false, nil
	}
	select {
	case <-ctx.Done():
		c.Close()
		return false, ctx.Err()
	default:
	}
	if len(c.queue) == 0 {
		return false, nil
	}
	p := c.queue[0]
	c.queue = c.queue[1:]
	c.row = Row{p.subject, p.edge.Predicate, p.edge.Object}
	return true, nil
}

func (c *TreeCursor) Close() error {
	c.closed = true
	c.queue = nil
	return nil
}
