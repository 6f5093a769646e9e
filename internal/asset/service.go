// Package asset manages the equipment registry.
package asset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ativushq/ativus-backend/internal/models"
)

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

const assetColumns = "id, tenant_id, name, tag, type, status, site_id, metadata, created_at, updated_at"

func scanAsset(row pgx.Row) (*models.Asset, error) {
	var a models.Asset
	err := row.Scan(&a.ID, &a.TenantID, &a.Name, &a.Tag, &a.Type, &a.Status, &a.SiteID, &a.Metadata, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]models.Asset, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+assetColumns+" FROM assets WHERE tenant_id = $1 ORDER BY created_at DESC",
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	assets := []models.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, *a)
	}
	return assets, nil
}

func (s *Service) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Asset, error) {
	a, err := scanAsset(s.db.QueryRow(ctx,
		"SELECT "+assetColumns+" FROM assets WHERE id = $1 AND tenant_id = $2",
		id, tenantID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return a, nil
}

// GetByTag looks up an asset by its exact tag. Used by field updates to infer
// whether a report references real equipment.
func (s *Service) GetByTag(ctx context.Context, tenantID uuid.UUID, tag string) (*models.Asset, error) {
	a, err := scanAsset(s.db.QueryRow(ctx,
		"SELECT "+assetColumns+" FROM assets WHERE tenant_id = $1 AND tag = $2",
		tenantID, tag,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get asset by tag: %w", err)
	}
	return a, nil
}

type CreateInput struct {
	Name     string          `json:"name"`
	Tag      string          `json:"tag"`
	Type     string          `json:"type"`
	Status   string          `json:"status"`
	SiteID   *uuid.UUID      `json:"site_id"`
	Metadata json.RawMessage `json:"metadata"`
}

func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, in CreateInput) (*models.Asset, error) {
	if in.Status == "" {
		in.Status = "active"
	}
	if len(in.Metadata) == 0 {
		in.Metadata = json.RawMessage("{}")
	}

	a, err := scanAsset(s.db.QueryRow(ctx,
		`INSERT INTO assets (id, tenant_id, name, tag, type, status, site_id, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+assetColumns,
		uuid.New(), tenantID, in.Name, in.Tag, in.Type, in.Status, in.SiteID, in.Metadata,
	))
	if err != nil {
		return nil, fmt.Errorf("insert asset: %w", err)
	}
	return a, nil
}

type UpdateInput struct {
	Name     *string          `json:"name"`
	Tag      *string          `json:"tag"`
	Type     *string          `json:"type"`
	Status   *string          `json:"status"`
	SiteID   *uuid.UUID       `json:"site_id"`
	Metadata *json.RawMessage `json:"metadata"`
}

func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, in UpdateInput) (*models.Asset, error) {
	set := "updated_at = now()"
	args := []interface{}{id, tenantID}
	argIdx := 3

	addField := func(col string, val interface{}) {
		set += fmt.Sprintf(", %s = $%d", col, argIdx)
		args = append(args, val)
		argIdx++
	}

	if in.Name != nil {
		addField("name", *in.Name)
	}
	if in.Tag != nil {
		addField("tag", *in.Tag)
	}
	if in.Type != nil {
		addField("type", *in.Type)
	}
	if in.Status != nil {
		addField("status", *in.Status)
	}
	if in.SiteID != nil {
		addField("site_id", *in.SiteID)
	}
	if in.Metadata != nil {
		addField("metadata", *in.Metadata)
	}

	a, err := scanAsset(s.db.QueryRow(ctx,
		"UPDATE assets SET "+set+" WHERE id = $1 AND tenant_id = $2 RETURNING "+assetColumns,
		args...,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update asset: %w", err)
	}
	return a, nil
}

func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM assets WHERE id = $1 AND tenant_id = $2", id, tenantID)
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
