package models

import (
	"time"

	"github.com/google/uuid"
)

type DocumentCategory struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TenantID  uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Code      string    `json:"code" db:"code"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Document struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	TenantID    uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	Title       string     `json:"title" db:"title"`
	Category    string     `json:"category" db:"category"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty" db:"category_id"`
	EquipmentID *uuid.UUID `json:"equipment_id,omitempty" db:"equipment_id"`
	CreatedBy   *uuid.UUID `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// DocumentVersion references the stored object through FilePath, a
// "bucket/key" compound string. The path is the only handle to the object.
type DocumentVersion struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	TenantID   uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	DocumentID uuid.UUID  `json:"document_id" db:"document_id"`
	Version    string     `json:"version" db:"version"`
	FilePath   string     `json:"file_path" db:"file_path"`
	FileName   string     `json:"file_name" db:"file_name"`
	ValidFrom  *time.Time `json:"valid_from,omitempty" db:"valid_from"`
	ValidUntil *time.Time `json:"valid_until,omitempty" db:"valid_until"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

type DocumentEquipment struct {
	DocumentID  uuid.UUID `json:"document_id" db:"document_id"`
	EquipmentID uuid.UUID `json:"equipment_id" db:"equipment_id"`
	TenantID    uuid.UUID `json:"tenant_id" db:"tenant_id"`
}

type DocumentChunk struct {
	ID         uuid.UUID `json:"id" db:"id"`
	TenantID   uuid.UUID `json:"tenant_id" db:"tenant_id"`
	DocumentID uuid.UUID `json:"document_id" db:"document_id"`
	ChunkIndex int       `json:"chunk_index" db:"chunk_index"`
	Content    string    `json:"content" db:"content"`
	Embedding  []float32 `json:"-" db:"embedding"`
	Source     string    `json:"source,omitempty" db:"source"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
