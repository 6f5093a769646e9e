// Package site manages physical locations that assets belong to.
package site

import (
	"context"
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

const siteColumns = "id, tenant_id, name, address, city, state, created_at, updated_at"

func scanSite(row pgx.Row) (*models.Site, error) {
	var st models.Site
	err := row.Scan(&st.ID, &st.TenantID, &st.Name, &st.Address, &st.City, &st.State, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]models.Site, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+siteColumns+" FROM sites WHERE tenant_id = $1 ORDER BY name",
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	defer rows.Close()

	sites := []models.Site{}
	for rows.Next() {
		st, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		sites = append(sites, *st)
	}
	return sites, nil
}

func (s *Service) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Site, error) {
	st, err := scanSite(s.db.QueryRow(ctx,
		"SELECT "+siteColumns+" FROM sites WHERE id = $1 AND tenant_id = $2",
		id, tenantID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get site: %w", err)
	}
	return st, nil
}

type Input struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
}

func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, in Input) (*models.Site, error) {
	st, err := scanSite(s.db.QueryRow(ctx,
		`INSERT INTO sites (id, tenant_id, name, address, city, state)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+siteColumns,
		uuid.New(), tenantID, in.Name, in.Address, in.City, in.State,
	))
	if err != nil {
		return nil, fmt.Errorf("insert site: %w", err)
	}
	return st, nil
}

type UpdateInput struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
	City    *string `json:"city"`
	State   *string `json:"state"`
}

func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, in UpdateInput) (*models.Site, error) {
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
	if in.Address != nil {
		addField("address", *in.Address)
	}
	if in.City != nil {
		addField("city", *in.City)
	}
	if in.State != nil {
		addField("state", *in.State)
	}

	st, err := scanSite(s.db.QueryRow(ctx,
		"UPDATE sites SET "+set+" WHERE id = $1 AND tenant_id = $2 RETURNING "+siteColumns,
		args...,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update site: %w", err)
	}
	return st, nil
}

func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM sites WHERE id = $1 AND tenant_id = $2", id, tenantID)
	if err != nil {
		return fmt.Errorf("delete site: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
