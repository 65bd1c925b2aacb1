// Package audit carries the structured trail of every gateway exchange:
// signature base strings, outbound payloads, raw responses and state changes.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"payment-service/internal/db"
	"payment-service/internal/logging"
	"payment-service/internal/message"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Recorder interface {
	Record(ctx context.Context, event message.AuditEvent) error
}

// NewEvent builds an event with data scrubbed of card numbers, security codes
// and key material. data is any JSON encodable value or raw JSON bytes.
func NewEvent(flowID uuid.UUID, flow, step string, typ message.AuditType, data any) message.AuditEvent {
	return message.AuditEvent{
		ID:        uuid.New(),
		FlowID:    flowID,
		Flow:      flow,
		Step:      step,
		Type:      typ,
		Data:      scrubData(data),
		CreatedAt: time.Now().UTC(),
	}
}

func scrubData(data any) json.RawMessage {
	switch d := data.(type) {
	case nil:
		return nil
	case []byte:
		return scrubRaw(d)
	case json.RawMessage:
		return scrubRaw(d)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return json.RawMessage(`{"error":"unserializable"}`)
	}
	return logging.ScrubJSON(raw)
}

func scrubRaw(raw []byte) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	return logging.ScrubJSON(raw)
}

// LogRecorder writes events to the structured log.
type LogRecorder struct {
	logger *slog.Logger
}

func NewLogRecorder(logger *slog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

func (r *LogRecorder) Record(ctx context.Context, event message.AuditEvent) error {
	r.logger.InfoContext(ctx, "Audit event",
		"auditId", event.ID,
		"flow", event.Flow,
		"step", event.Step,
		"type", event.Type,
		"state", event.State,
		"httpStatus", event.HTTPStatus,
		"data", string(event.Data),
	)
	return nil
}

// OutboxRecorder stores events for the Producer to publish.
type OutboxRecorder struct {
	repo *db.AuditRepository
}

func NewOutboxRecorder(repo *db.AuditRepository) *OutboxRecorder {
	return &OutboxRecorder{repo: repo}
}

func (r *OutboxRecorder) Record(ctx context.Context, event message.AuditEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "encode audit event")
	}

	scheduledAt := event.CreatedAt
	_, err = r.repo.Create(ctx, &db.AuditEventEntity{
		ID:          event.ID,
		FlowID:      event.FlowID,
		Flow:        event.Flow,
		Step:        event.Step,
		Type:        string(event.Type),
		Payload:     payload,
		CreatedAt:   event.CreatedAt,
		ScheduledAt: &scheduledAt,
	})
	return errors.Wrap(err, "store audit event")
}

// Multi fans an event out to every recorder and returns the first failure.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, event message.AuditEvent) error {
	var first error
	for _, r := range m {
		if err := r.Record(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Discard drops every event.
type Discard struct{}

func (Discard) Record(context.Context, message.AuditEvent) error { return nil }
