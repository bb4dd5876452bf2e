package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/jflaig13/mise-core-sub000/internal/shift"
)

// JSONLSink writes each payout of a record as one JSON object per line.
// Rows of one record are written together; concurrent Saves never
// interleave.
type JSONLSink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

var _ Sink = (*JSONLSink)(nil)

// NewJSONLSink writes to w.
func NewJSONLSink(w io.Writer) *JSONLSink {
	return &JSONLSink{w: w}
}

// OpenJSONL appends to the file at path, creating it if needed. Close the
// returned sink when done.
func OpenJSONL(path string) (*JSONLSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	return &JSONLSink{w: f, closer: f}, nil
}

// Save implements [Sink]. A JSONL file is append-only, so saving a shift
// twice leaves both copies; consumers keep the last.
func (s *JSONLSink) Save(ctx context.Context, rec *shift.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var buf []byte
	for _, r := range rec.Rows() {
		line, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("store: encode row %s: %w", r.Employee, err)
		}
		buf = append(append(buf, line...), '\n')
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(buf); err != nil {
		return fmt.Errorf("store: write %s %s: %w", rec.Context.DateString(), rec.Context.Code, err)
	}
	return nil
}

// Close closes the underlying file, if the sink owns one.
func (s *JSONLSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
