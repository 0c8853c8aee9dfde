package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"liquidityCurve/internal/model"
)

// Sink receives flushed window metrics.
type Sink interface {
	UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error
}

// JSONSink writes window metrics as JSON lines.
type JSONSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{w: w}
}

func (s *JSONSink) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	enc := json.NewEncoder(s.w)
	for _, m := range metrics {
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("write metrics %s: %w", m.Pool, err)
		}
	}
	return nil
}
