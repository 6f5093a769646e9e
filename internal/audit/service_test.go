package audit

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ativushq/ativus-backend/internal/database/databasetest"
	"github.com/ativushq/ativus-backend/internal/models"
)

func runRow(r models.AuditRun) databasetest.Row {
	return databasetest.Row{ScanFunc: func(dest ...any) error {
		*dest[0].(*uuid.UUID) = r.ID
		*dest[1].(*uuid.UUID) = r.TenantID
		*dest[2].(*string) = r.Status
		*dest[3].(*string) = r.ConfigHash
		*dest[4].(*string) = r.Engine
		*dest[5].(*time.Time) = r.StartedAt
		*dest[6].(**time.Time) = r.FinishedAt
		return nil
	}}
}

func resultScan(res models.AuditResult) func(dest ...any) error {
	return func(dest ...any) error {
		*dest[0].(*uuid.UUID) = res.ID
		*dest[1].(*uuid.UUID) = res.RunID
		*dest[2].(*string) = res.ItemID
		*dest[3].(*float64) = res.ScorePercentual
		*dest[4].(*[]string) = res.ItensAtendidos
		*dest[5].(*[]string) = res.ItensFaltantes
		*dest[6].(*[]string) = res.Riscos
		*dest[7].(*[]string) = res.Inconsistencias
		*dest[8].(*[]string) = res.Recomendacoes
		*dest[9].(*[]string) = res.TrechosEvidencia
		*dest[10].(*time.Time) = res.CreatedAt
		return nil
	}
}

func TestLatestResultsPicksNewestRun(t *testing.T) {
	tenantID := uuid.New()
	newest := models.AuditRun{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Status:    models.AuditRunStatusFinished,
		StartedAt: time.Now(),
	}

	db := &databasetest.DB{}
	db.QueryRowFunc = func(sql string, args []any) pgx.Row {
		// selection is delegated to the ordering clause
		assert.Contains(t, sql, "ORDER BY started_at DESC LIMIT 1")
		return runRow(newest)
	}
	db.QueryFunc = func(sql string, args []any) (pgx.Rows, error) {
		require.Equal(t, newest.ID, args[0], "results must come from the newest run")
		return databasetest.NewRows(resultScan(models.AuditResult{
			ID:     uuid.New(),
			RunID:  newest.ID,
			ItemID: "1.1",
		})), nil
	}

	svc := NewService(db, &Config{}, nil, nil, nil, slog.Default())
	results, err := svc.LatestResults(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, newest.ID, results[0].RunID)
}

func TestLatestResultsNoRuns(t *testing.T) {
	db := &databasetest.DB{}
	db.QueryRowFunc = func(string, []any) pgx.Row { return databasetest.NoRow() }

	svc := NewService(db, &Config{}, nil, nil, nil, slog.Default())
	results, err := svc.LatestResults(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Len(t, db.Statements, 1, "no result query may run without a run")
}
