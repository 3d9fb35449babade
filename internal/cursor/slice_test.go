package cursor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tinygraph/tinygraph/internal/term"
)

func TestSliceCursorOrderPreserved(t *testing.T) {
	rows := []Row{
		{term.NewIRI("http://e/a")},
		{term.NewIRI("http://e/b")},
	}
	c := NewSliceCursor([]string{"s"}, rows)

	has, err := c.Next(context.Background())
	assert.NoError(t, err)
	assert.True(t, has)
	lex, _, _ := c.String(0)
	assert.Equal(t, "http://e/a", lex)

	has, err = c.Next(context.Background())
	assert.NoError(t, err)
	assert.True(t, has)
	lex, _, _ = c.String(0)
	assert.Equal(t, "http://e/b", lex)

	has, err = c.Next(context.Background())
	assert.NoError(t, err)
	assert.False(t, has)
	assert.NoError(t, c.Close())
}

func TestSliceCursorValueTypes(t *testing.T) {
	rows := []Row{{term.NewLiteral("42", "http://www.w3.org/2001/XMLSchema#integer")}}
	c := NewSliceCursor([]string{"n"}, rows)
	has, err := c.Next(context.Background())
	assert.NoError(t, err)
	assert.True(t, has)
	assert.Equal(t, TypeInteger, c.ValueType(0))
	n, err := c.Integer(0)
	assert.NoError(t, err)
	assert.EqualValues(t, 42, n)
}

func TestSliceCursorCancellation(t *testing.T) {
	c := NewSliceCursor([]string{"s"}, []Row{{term.NewIRI("http://e/a")}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	has, err := c.Next(ctx)
	assert.False(t, has)
	assert.Error(t, err)
}
