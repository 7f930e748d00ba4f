// Package events carries benchmark lifecycle events out of Temporal activities.
// Events are wrapped in an Envelope with routing and idempotency metadata and
// delivered to an EventSink on a best-effort basis.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the envelope version emitted by this build.
const SchemaVersion = "1.0.0"

// idempotencyNamespace scopes deterministic idempotency keys.
var idempotencyNamespace = uuid.MustParse("6f1c2a8e-3b1d-4c5e-9a7f-0d2b8e4c6a10")

// Envelope wraps an event payload with metadata for routing and deduplication.
type Envelope struct {
	// ID is unique per emission.
	ID string `json:"id"`

	// Type names the event, e.g. "benchmark.variant_evaluated".
	Type string `json:"type"`

	// Source names the emitting component.
	Source string `json:"source"`

	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`

	// IdempotencyKey is stable across activity retries for the same event.
	IdempotencyKey string `json:"idempotency_key"`

	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`

	// Payload is the JSON-encoded event body. Its schema depends on Type.
	Payload json.RawMessage `json:"payload"`
}

// Origin identifies the workflow execution an event belongs to.
type Origin struct {
	WorkflowID string
	RunID      string
}

// NewEnvelope encodes payload and builds an envelope. The idempotency key is
// derived from the origin, the event type and key, so a retried activity emits
// the same key for the same logical event.
func NewEnvelope(eventType, source string, origin Origin, key string, payload any) (Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}

	idem := uuid.NewSHA1(idempotencyNamespace,
		[]byte(origin.WorkflowID+"|"+origin.RunID+"|"+eventType+"|"+key))

	return Envelope{
		ID:             uuid.NewString(),
		Type:           eventType,
		Source:         source,
		Version:        SchemaVersion,
		Timestamp:      time.Now().UTC(),
		IdempotencyKey: idem.String(),
		WorkflowID:     origin.WorkflowID,
		RunID:          origin.RunID,
		Payload:        body,
	}, nil
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// EventSink receives events. Append should return quickly and treat a
// repeated idempotency key as a no-op. Callers never fail their own work
// because of a sink error.
type EventSink interface {
	Append(ctx context.Context, envelope Envelope) error
}

// NoOpEventSink discards every event.
type NoOpEventSink struct{}

// Append implements EventSink.
func (NoOpEventSink) Append(context.Context, Envelope) error { return nil }

// NewNoOpEventSink returns a sink that discards events.
func NewNoOpEventSink() EventSink { return NoOpEventSink{} }
