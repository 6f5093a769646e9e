package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ativushq/ativus-backend/internal/models"
)

// ErrCategoryInUse signals that documents still reference the category by
// name or code, so renaming or deleting it would strand them.
var ErrCategoryInUse = fmt.Errorf("%w: categoria em uso por documentos", models.ErrConflict)

const categoryColumns = "id, tenant_id, code, name, created_at"

func scanCategory(row pgx.Row) (*models.DocumentCategory, error) {
	var c models.DocumentCategory
	if err := row.Scan(&c.ID, &c.TenantID, &c.Code, &c.Name, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) ListCategories(ctx context.Context, tenantID uuid.UUID) ([]models.DocumentCategory, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+categoryColumns+" FROM document_categories WHERE tenant_id = $1 ORDER BY name",
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []models.DocumentCategory{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, nil
}

func (s *Service) GetCategory(ctx context.Context, tenantID, id uuid.UUID) (*models.DocumentCategory, error) {
	c, err := scanCategory(s.db.QueryRow(ctx,
		"SELECT "+categoryColumns+" FROM document_categories WHERE id = $1 AND tenant_id = $2",
		id, tenantID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

type CategoryInput struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (s *Service) CreateCategory(ctx context.Context, tenantID uuid.UUID, in CategoryInput) (*models.DocumentCategory, error) {
	c, err := scanCategory(s.db.QueryRow(ctx,
		`INSERT INTO document_categories (id, tenant_id, code, name)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+categoryColumns,
		uuid.New(), tenantID, in.Code, in.Name,
	))
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

// countCategoryUsage counts documents in the tenant still pointing at the
// category through its denormalized name or its code.
func (s *Service) countCategoryUsage(ctx context.Context, tenantID uuid.UUID, cat *models.DocumentCategory) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM documents WHERE tenant_id = $1 AND (category = $2 OR category = $3)",
		tenantID, cat.Name, cat.Code,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count category usage: %w", err)
	}
	return count, nil
}

type CategoryUpdateInput struct {
	Code *string `json:"code"`
	Name *string `json:"name"`
}

// UpdateCategory renames a category. The usage check runs first and the
// update is never attempted while documents still reference the current name
// or code. Check-then-act: a document created between the check and the
// update is an accepted benign race.
func (s *Service) UpdateCategory(ctx context.Context, tenantID, id uuid.UUID, in CategoryUpdateInput) (*models.DocumentCategory, error) {
	cat, err := s.GetCategory(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	used, err := s.countCategoryUsage(ctx, tenantID, cat)
	if err != nil {
		return nil, err
	}
	if used > 0 {
		return nil, ErrCategoryInUse
	}

	if in.Code != nil {
		cat.Code = *in.Code
	}
	if in.Name != nil {
		cat.Name = *in.Name
	}

	c, err := scanCategory(s.db.QueryRow(ctx,
		"UPDATE document_categories SET code = $3, name = $4 WHERE id = $1 AND tenant_id = $2 RETURNING "+categoryColumns,
		id, tenantID, cat.Code, cat.Name,
	))
	if err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return c, nil
}

// DeleteCategory removes a category, refusing while documents reference it.
func (s *Service) DeleteCategory(ctx context.Context, tenantID, id uuid.UUID) error {
	cat, err := s.GetCategory(ctx, tenantID, id)
	if err != nil {
		return err
	}

	used, err := s.countCategoryUsage(ctx, tenantID, cat)
	if err != nil {
		return err
	}
	if used > 0 {
		return ErrCategoryInUse
	}

	if _, err := s.db.Exec(ctx, "DELETE FROM document_categories WHERE id = $1 AND tenant_id = $2", id, tenantID); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}
