// Package company manages tenant company profiles.
package company

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

const companyColumns = "id, tenant_id, name, trade_name, cnpj, phone, email, created_at, updated_at"

func scanCompany(row pgx.Row) (*models.CompanyProfile, error) {
	var c models.CompanyProfile
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.TradeName, &c.CNPJ, &c.Phone, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]models.CompanyProfile, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+companyColumns+" FROM company_profiles WHERE tenant_id = $1 ORDER BY created_at DESC",
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list company profiles: %w", err)
	}
	defer rows.Close()

	profiles := []models.CompanyProfile{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("scan company profile: %w", err)
		}
		profiles = append(profiles, *c)
	}
	return profiles, nil
}

func (s *Service) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.CompanyProfile, error) {
	c, err := scanCompany(s.db.QueryRow(ctx,
		"SELECT "+companyColumns+" FROM company_profiles WHERE id = $1 AND tenant_id = $2",
		id, tenantID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get company profile: %w", err)
	}
	return c, nil
}

type Input struct {
	Name      string `json:"name"`
	TradeName string `json:"trade_name"`
	CNPJ      string `json:"cnpj"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, in Input) (*models.CompanyProfile, error) {
	c, err := scanCompany(s.db.QueryRow(ctx,
		`INSERT INTO company_profiles (id, tenant_id, name, trade_name, cnpj, phone, email)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+companyColumns,
		uuid.New(), tenantID, in.Name, in.TradeName, in.CNPJ, in.Phone, in.Email,
	))
	if err != nil {
		return nil, fmt.Errorf("insert company profile: %w", err)
	}
	return c, nil
}

type UpdateInput struct {
	Name      *string `json:"name"`
	TradeName *string `json:"trade_name"`
	CNPJ      *string `json:"cnpj"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
}

func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, in UpdateInput) (*models.CompanyProfile, error) {
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
	if in.TradeName != nil {
		addField("trade_name", *in.TradeName)
	}
	if in.CNPJ != nil {
		addField("cnpj", *in.CNPJ)
	}
	if in.Phone != nil {
		addField("phone", *in.Phone)
	}
	if in.Email != nil {
		addField("email", *in.Email)
	}

	c, err := scanCompany(s.db.QueryRow(ctx,
		"UPDATE company_profiles SET "+set+" WHERE id = $1 AND tenant_id = $2 RETURNING "+companyColumns,
		args...,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update company profile: %w", err)
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM company_profiles WHERE id = $1 AND tenant_id = $2", id, tenantID)
	if err != nil {
		return fmt.Errorf("delete company profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
