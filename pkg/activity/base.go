// Package activity provides infrastructure shared by Temporal activity
// implementations: workflow context extraction that also works outside
// Temporal, best-effort event emission and logging that never panics.
package activity

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/ahrav/promptlab/pkg/events"
)

// WorkflowContext is the execution metadata of the running activity.
type WorkflowContext struct {
	WorkflowID string
	RunID      string
	ActivityID string
	Attempt    int32
}

// Origin returns the event origin for this execution.
func (w WorkflowContext) Origin() events.Origin {
	return events.Origin{WorkflowID: w.WorkflowID, RunID: w.RunID}
}

// Fixed identifiers reported when no Temporal activity context is present.
const (
	localWorkflowID = "local-workflow"
	localRunID      = "local-run"
	localActivityID = "local-activity"
)

// BaseActivities is embedded by activity structs for shared behavior.
type BaseActivities struct {
	eventSink events.EventSink
}

// NewBaseActivities returns BaseActivities emitting to sink. A nil sink
// disables event emission.
func NewBaseActivities(sink events.EventSink) BaseActivities {
	return BaseActivities{eventSink: sink}
}

// GetWorkflowContext extracts execution metadata from ctx. Outside an
// activity, where activity.GetInfo panics, fixed local identifiers are
// returned so the same code runs in plain unit tests and CLI calls.
func (b *BaseActivities) GetWorkflowContext(ctx context.Context) WorkflowContext {
	wfCtx := WorkflowContext{
		WorkflowID: localWorkflowID,
		RunID:      localRunID,
		ActivityID: localActivityID,
		Attempt:    1,
	}

	func() {
		defer func() { _ = recover() }()

		info := activity.GetInfo(ctx)
		wfCtx = WorkflowContext{
			WorkflowID: info.WorkflowExecution.ID,
			RunID:      info.WorkflowExecution.RunID,
			ActivityID: info.ActivityID,
			Attempt:    info.Attempt,
		}
	}()

	return wfCtx
}

// Emit builds an envelope for payload from the current workflow context and
// emits it with EmitEventSafe. key distinguishes events of the same type
// within one workflow run.
func (b *BaseActivities) Emit(ctx context.Context, eventType, source, key string, payload any) {
	if b.eventSink == nil {
		return
	}

	env, err := events.NewEnvelope(eventType, source, b.GetWorkflowContext(ctx).Origin(), key, payload)
	if err != nil {
		SafeLogError(ctx, "Failed to build event", "event_type", eventType, "error", err)
		return
	}
	b.EmitEventSafe(ctx, env, eventType)
}

// EmitEventSafe appends envelope to the sink, retrying once after a short
// delay. Failures are logged and never returned.
func (b *BaseActivities) EmitEventSafe(ctx context.Context, envelope events.Envelope, description string) {
	if b.eventSink == nil {
		return
	}

	const maxAttempts = 2
	const retryDelay = 200 * time.Millisecond

	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				SafeLogError(ctx, fmt.Sprintf("Event emission cancelled: %s", description),
					"event_type", envelope.Type)
				return
			}
		}

		if err := b.eventSink.Append(ctx, envelope); err != nil {
			lastErr = err
			continue
		}

		SafeLog(ctx, fmt.Sprintf("Event emitted: %s", description),
			"event_type", envelope.Type,
			"idempotency_key", envelope.IdempotencyKey)
		return
	}

	SafeLogError(ctx, fmt.Sprintf("Failed to emit %s after %d attempts", description, maxAttempts),
		"event_type", envelope.Type,
		"error", lastErr)
}

// RecordHeartbeat records progress when running inside an activity.
func (b *BaseActivities) RecordHeartbeat(ctx context.Context, details ...any) {
	RecordHeartbeat(ctx, details...)
}

// SafeLog logs at info level through the activity logger. Outside an
// activity the call is ignored.
func SafeLog(ctx context.Context, msg string, keyvals ...any) {
	defer func() { _ = recover() }()
	activity.GetLogger(ctx).Info(msg, keyvals...)
}

// SafeLogError logs at error level through the activity logger. Outside an
// activity the call is ignored.
func SafeLogError(ctx context.Context, msg string, keyvals ...any) {
	defer func() { _ = recover() }()
	activity.GetLogger(ctx).Error(msg, keyvals...)
}

// RecordHeartbeat records an activity heartbeat. Outside an activity the
// call is ignored.
func RecordHeartbeat(ctx context.Context, details ...any) {
	defer func() { _ = recover() }()
	activity.RecordHeartbeat(ctx, details...)
}
