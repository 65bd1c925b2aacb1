package message

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditType string

const (
	AuditSignature  AuditType = "signature"
	AuditRequest    AuditType = "request"
	AuditResponse   AuditType = "response"
	AuditTransition AuditType = "transition"
)

// AuditEvent is published to the audit topic. Data is scrubbed of card
// numbers, security codes and key material before an event is built.
type AuditEvent struct {
	ID         uuid.UUID       `json:"id"`
	FlowID     uuid.UUID       `json:"flowId"`
	Flow       string          `json:"flow"`
	Step       string          `json:"step"`
	Type       AuditType       `json:"type"`
	Gateway    string          `json:"gateway,omitempty"`
	Path       string          `json:"path,omitempty"`
	HTTPStatus int             `json:"httpStatus,omitempty"`
	State      string          `json:"state,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}
