package models

import (
	"time"

	"github.com/google/uuid"
)

type AuditRun struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	TenantID   uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	Status     string     `json:"status" db:"status"`
	ConfigHash string     `json:"config_hash,omitempty" db:"config_hash"`
	Engine     string     `json:"engine,omitempty" db:"engine"`
	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}

const (
	AuditRunStatusCreated  = "created"
	AuditRunStatusFinished = "finished"
	AuditRunStatusFailed   = "failed"
)

type AuditResult struct {
	ID               uuid.UUID `json:"id" db:"id"`
	RunID            uuid.UUID `json:"run_id" db:"run_id"`
	ItemID           string    `json:"item_id" db:"item_id"`
	ScorePercentual  float64   `json:"score_percentual" db:"score_percentual"`
	ItensAtendidos   []string  `json:"itens_atendidos" db:"itens_atendidos"`
	ItensFaltantes   []string  `json:"itens_faltantes" db:"itens_faltantes"`
	Riscos           []string  `json:"riscos" db:"riscos"`
	Inconsistencias  []string  `json:"inconsistencias" db:"inconsistencias"`
	Recomendacoes    []string  `json:"recomendacoes" db:"recomendacoes"`
	TrechosEvidencia []string  `json:"trechos_evidencia" db:"trechos_evidencia"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

type AuditItemEvidence struct {
	ID            uuid.UUID `json:"id" db:"id"`
	TenantID      uuid.UUID `json:"tenant_id" db:"tenant_id"`
	ItemID        string    `json:"item_id" db:"item_id"`
	DocumentID    uuid.UUID `json:"document_id" db:"document_id"`
	TipoEvidencia string    `json:"tipo_evidencia,omitempty" db:"tipo_evidencia"`
	Observacao    string    `json:"observacao,omitempty" db:"observacao"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// AuditItemEvidenceExclusion is a negative override: the document must never
// auto-match the checklist item. Upserted idempotently on
// (tenant_id, item_id, document_id).
type AuditItemEvidenceExclusion struct {
	TenantID   uuid.UUID `json:"tenant_id" db:"tenant_id"`
	ItemID     string    `json:"item_id" db:"item_id"`
	DocumentID uuid.UUID `json:"document_id" db:"document_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
