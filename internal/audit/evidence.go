package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ativushq/ativus-backend/internal/models"
	"github.com/ativushq/ativus-backend/internal/vectorstore"
)

const evidenceColumns = "id, tenant_id, item_id, document_id, tipo_evidencia, observacao, created_at"

func (s *Service) ListEvidence(ctx context.Context, tenantID uuid.UUID, itemID string) ([]models.AuditItemEvidence, error) {
	query := "SELECT " + evidenceColumns + " FROM audit_item_evidence WHERE tenant_id = $1"
	args := []interface{}{tenantID}
	if itemID != "" {
		query += " AND item_id = $2"
		args = append(args, itemID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	defer rows.Close()

	evidence := []models.AuditItemEvidence{}
	for rows.Next() {
		var e models.AuditItemEvidence
		if err := rows.Scan(&e.ID, &e.TenantID, &e.ItemID, &e.DocumentID, &e.TipoEvidencia, &e.Observacao, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		evidence = append(evidence, e)
	}
	return evidence, nil
}

type EvidenceInput struct {
	ItemID        string    `json:"item_id"`
	DocumentID    uuid.UUID `json:"document_id"`
	TipoEvidencia string    `json:"tipo_evidencia"`
	Observacao    string    `json:"observacao"`
}

func (s *Service) AddEvidence(ctx context.Context, tenantID uuid.UUID, in EvidenceInput) (*models.AuditItemEvidence, error) {
	if s.cfg.Item(in.ItemID) == nil {
		return nil, fmt.Errorf("%w: item %s não existe no checklist", models.ErrInvalid, in.ItemID)
	}

	var e models.AuditItemEvidence
	err := s.db.QueryRow(ctx,
		`INSERT INTO audit_item_evidence (id, tenant_id, item_id, document_id, tipo_evidencia, observacao)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+evidenceColumns,
		uuid.New(), tenantID, in.ItemID, in.DocumentID, in.TipoEvidencia, in.Observacao,
	).Scan(&e.ID, &e.TenantID, &e.ItemID, &e.DocumentID, &e.TipoEvidencia, &e.Observacao, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert evidence: %w", err)
	}
	return &e, nil
}

func (s *Service) RemoveEvidence(ctx context.Context, tenantID, evidenceID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		"DELETE FROM audit_item_evidence WHERE id = $1 AND tenant_id = $2",
		evidenceID, tenantID,
	)
	if err != nil {
		return fmt.Errorf("delete evidence: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ExcludeDocument records that the document must never auto-match the item.
// Re-excluding an already excluded pair is a no-op.
func (s *Service) ExcludeDocument(ctx context.Context, tenantID uuid.UUID, itemID string, documentID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO audit_item_evidence_exclusions (tenant_id, item_id, document_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (tenant_id, item_id, document_id) DO NOTHING`,
		tenantID, itemID, documentID,
	)
	if err != nil {
		return fmt.Errorf("exclude document: %w", err)
	}
	return nil
}

func (s *Service) RemoveExclusion(ctx context.Context, tenantID uuid.UUID, itemID string, documentID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		"DELETE FROM audit_item_evidence_exclusions WHERE tenant_id = $1 AND item_id = $2 AND document_id = $3",
		tenantID, itemID, documentID,
	)
	if err != nil {
		return fmt.Errorf("remove exclusion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *Service) ListExclusions(ctx context.Context, tenantID uuid.UUID, itemID string) ([]models.AuditItemEvidenceExclusion, error) {
	query := "SELECT tenant_id, item_id, document_id, created_at FROM audit_item_evidence_exclusions WHERE tenant_id = $1"
	args := []interface{}{tenantID}
	if itemID != "" {
		query += " AND item_id = $2"
		args = append(args, itemID)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list exclusions: %w", err)
	}
	defer rows.Close()

	exclusions := []models.AuditItemEvidenceExclusion{}
	for rows.Next() {
		var e models.AuditItemEvidenceExclusion
		if err := rows.Scan(&e.TenantID, &e.ItemID, &e.DocumentID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan exclusion: %w", err)
		}
		exclusions = append(exclusions, e)
	}
	return exclusions, nil
}

func (s *Service) excludedDocumentIDs(ctx context.Context, tenantID uuid.UUID, itemID string) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		"SELECT document_id FROM audit_item_evidence_exclusions WHERE tenant_id = $1 AND item_id = $2",
		tenantID, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("load exclusions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan exclusion id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Suggestions runs a chunk similarity search seeded by the item's keywords,
// with the item's excluded documents subtracted.
func (s *Service) Suggestions(ctx context.Context, tenantID uuid.UUID, itemID string, topK int) ([]vectorstore.SearchResult, error) {
	item := s.cfg.Item(itemID)
	if item == nil {
		return nil, fmt.Errorf("%w: item %s não existe no checklist", models.ErrNotFound, itemID)
	}

	query := item.Titulo
	if len(item.PalavrasChave) > 0 {
		query += " " + strings.Join(item.PalavrasChave, " ")
	}

	vec, err := s.embed.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed suggestion query: %w", err)
	}

	excluded, err := s.excludedDocumentIDs(ctx, tenantID, itemID)
	if err != nil {
		return nil, err
	}

	results, err := s.search.Search(ctx, vec, vectorstore.SearchOptions{
		TenantID:           tenantID,
		TopK:               topK,
		ExcludeDocumentIDs: excluded,
	})
	if err != nil {
		return nil, fmt.Errorf("suggestion search: %w", err)
	}
	if results == nil {
		results = []vectorstore.SearchResult{}
	}
	return results, nil
}
