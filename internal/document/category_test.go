package document

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ativushq/ativus-backend/internal/database/databasetest"
	"github.com/ativushq/ativus-backend/internal/models"
)

func categoryRow(c models.DocumentCategory) databasetest.Row {
	return databasetest.Row{ScanFunc: func(dest ...any) error {
		*dest[0].(*uuid.UUID) = c.ID
		*dest[1].(*uuid.UUID) = c.TenantID
		*dest[2].(*string) = c.Code
		*dest[3].(*string) = c.Name
		*dest[4].(*time.Time) = c.CreatedAt
		return nil
	}}
}

// categoryDB answers the category lookup and the usage count; everything else
// falls through to no-rows.
func categoryDB(cat models.DocumentCategory, usage int) *databasetest.DB {
	db := &databasetest.DB{}
	db.QueryRowFunc = func(sql string, args []any) pgx.Row {
		switch {
		case strings.Contains(sql, "COUNT(*)"):
			return databasetest.Row{ScanFunc: func(dest ...any) error {
				*dest[0].(*int) = usage
				return nil
			}}
		case strings.Contains(sql, "FROM document_categories"):
			return categoryRow(cat)
		}
		return databasetest.NoRow()
	}
	return db
}

func TestUpdateCategoryInUseConflicts(t *testing.T) {
	cat := models.DocumentCategory{ID: uuid.New(), TenantID: uuid.New(), Code: "ART", Name: "Laudos"}
	db := categoryDB(cat, 3)
	svc := NewService(db, nil, "documents", nil)

	newName := "Relatórios"
	_, err := svc.UpdateCategory(context.Background(), cat.TenantID, cat.ID, CategoryUpdateInput{Name: &newName})

	require.ErrorIs(t, err, ErrCategoryInUse)
	assert.True(t, errors.Is(err, models.ErrConflict))
	for _, stmt := range db.Statements {
		assert.NotContains(t, stmt, "UPDATE document_categories", "row must stay unchanged")
	}
}

func TestDeleteCategoryInUseConflicts(t *testing.T) {
	cat := models.DocumentCategory{ID: uuid.New(), TenantID: uuid.New(), Name: "Laudos"}
	db := categoryDB(cat, 1)
	svc := NewService(db, nil, "documents", nil)

	err := svc.DeleteCategory(context.Background(), cat.TenantID, cat.ID)

	require.ErrorIs(t, err, ErrCategoryInUse)
	for _, stmt := range db.Statements {
		assert.NotContains(t, stmt, "DELETE FROM document_categories")
	}
}

func TestDeleteCategoryUnused(t *testing.T) {
	cat := models.DocumentCategory{ID: uuid.New(), TenantID: uuid.New(), Name: "Obsoleta"}
	db := categoryDB(cat, 0)
	svc := NewService(db, nil, "documents", nil)

	require.NoError(t, svc.DeleteCategory(context.Background(), cat.TenantID, cat.ID))

	deleted := false
	for _, stmt := range db.Statements {
		if strings.Contains(stmt, "DELETE FROM document_categories") {
			deleted = true
		}
	}
	assert.True(t, deleted)
}
