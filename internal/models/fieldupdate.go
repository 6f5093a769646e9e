package models

import (
	"time"

	"github.com/google/uuid"
)

// FieldUpdate is a technician report from the field. EventReport is inferred
// at creation when absent: true when an asset's tag exactly matches Code.
type FieldUpdate struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	TenantID     uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	Message      string     `json:"message" db:"message"`
	Code         string     `json:"code,omitempty" db:"code"`
	Attachments  []string   `json:"attachments" db:"attachments"`
	AudioPath    string     `json:"audio_path,omitempty" db:"audio_path"`
	Status       string     `json:"status" db:"status"`
	EventReport  bool       `json:"event_report" db:"event_report"`
	CreatedBy    *uuid.UUID `json:"created_by,omitempty" db:"created_by"`
	ClosedBy     *uuid.UUID `json:"closed_by,omitempty" db:"closed_by"`
	CloseMessage string     `json:"close_message,omitempty" db:"close_message"`
	ClosedAt     *time.Time `json:"closed_at,omitempty" db:"closed_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

const (
	FieldUpdateStatusOpen   = "open"
	FieldUpdateStatusClosed = "closed"
)
