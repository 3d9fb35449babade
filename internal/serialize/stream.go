package serialize

import (
	"bytes"
	"io"

	"github.com/tinygraph/tinygraph/internal/cursor"
)

// streamer is the shared pull-to-push bridge every format builds on: a
// read of N bytes triggers as many emit calls (and, transitively, as
// many cursor.Next calls) as needed to fill buf to at least N bytes, per
// spec.md §4.5.
type streamer struct {
	buf  bytes.Buffer
	cur  cursor.Cursor
	emit func() (more bool, err error)
	err  error
}

func (s *streamer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for s.buf.Len() < len(p) && s.err == nil {
		more, err := s.emit()
		if err != nil {
			s.err = err
			break
		}
		if !more {
			s.err = io.EOF
		}
	}
	if s.buf.Len() > 0 {
		return s.buf.Read(p)
	}
	if s.err != nil {
		return 0, s.err
	}
	return 0, nil
}

func (s *streamer) Close() error {
	return s.cur.Close()
}
