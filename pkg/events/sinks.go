package events

import (
	"context"
	"log/slog"
	"sync"
)

// LogSink writes each event as a structured log record.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink that logs to logger, or slog.Default when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "events")}
}

// Append implements EventSink.
func (s *LogSink) Append(ctx context.Context, e Envelope) error {
	s.logger.InfoContext(ctx, "event",
		"type", e.Type,
		"source", e.Source,
		"workflow_id", e.WorkflowID,
		"run_id", e.RunID,
		"idempotency_key", e.IdempotencyKey,
		"payload", string(e.Payload),
	)
	return nil
}

// MemorySink keeps events in memory, dropping repeated idempotency keys.
type MemorySink struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	events []Envelope
}

// NewMemorySink returns an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{seen: make(map[string]struct{})}
}

// Append implements EventSink.
func (s *MemorySink) Append(_ context.Context, e Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.seen[e.IdempotencyKey]; dup {
		return nil
	}
	s.seen[e.IdempotencyKey] = struct{}{}
	s.events = append(s.events, e)
	return nil
}

// Events returns a copy of the stored events in arrival order.
func (s *MemorySink) Events() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Envelope(nil), s.events...)
}

// OfType returns the stored events with the given type.
func (s *MemorySink) OfType(eventType string) []Envelope {
	var out []Envelope
	for _, e := range s.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
