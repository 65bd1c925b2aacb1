package db

import (
	"time"

	"github.com/google/uuid"
)

// AuditEventEntity is an outbox row. Payload holds the already scrubbed
// message.AuditEvent; ScheduledAt is nil once the row is published or given up.
type AuditEventEntity struct {
	ID              uuid.UUID
	FlowID          uuid.UUID
	Flow            string
	Step            string
	Type            string
	Payload         []byte
	CreatedAt       time.Time
	ScheduledAt     *time.Time
	PublishedAt     *time.Time
	PublishAttempts int
	Error           *string
}
