package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ativushq/ativus-backend/internal/database"
	"github.com/ativushq/ativus-backend/internal/models"
	"github.com/ativushq/ativus-backend/internal/vectorstore"
)

// Searcher is the chunk similarity search the scorer and the suggestion
// endpoint consume.
type Searcher interface {
	Search(ctx context.Context, query []float32, opts vectorstore.SearchOptions) ([]vectorstore.SearchResult, error)
}

// Embedder turns a query string into a vector.
type Embedder interface {
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
}

type Service struct {
	db      database.Querier
	cfg     *Config
	search  Searcher
	embed   Embedder
	analyst *Analyst
	logger  *slog.Logger
}

func NewService(db database.Querier, cfg *Config, search Searcher, embed Embedder, analyst *Analyst, logger *slog.Logger) *Service {
	return &Service{db: db, cfg: cfg, search: search, embed: embed, analyst: analyst, logger: logger}
}

func (s *Service) Config() *Config { return s.cfg }

const runColumns = "id, tenant_id, status, config_hash, engine, started_at, finished_at"

func scanRun(row pgx.Row) (*models.AuditRun, error) {
	var r models.AuditRun
	err := row.Scan(&r.ID, &r.TenantID, &r.Status, &r.ConfigHash, &r.Engine, &r.StartedAt, &r.FinishedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRun opens an audit run stamped with the current config hash and
// engine so a later reader can tell which checklist version produced it.
func (s *Service) CreateRun(ctx context.Context, tenantID uuid.UUID) (*models.AuditRun, error) {
	r, err := scanRun(s.db.QueryRow(ctx,
		`INSERT INTO audit_runs (id, tenant_id, status, config_hash, engine, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+runColumns,
		uuid.New(), tenantID, models.AuditRunStatusCreated, s.cfg.Hash, s.cfg.Engine, time.Now().UTC(),
	))
	if err != nil {
		return nil, fmt.Errorf("insert audit run: %w", err)
	}
	return r, nil
}

func (s *Service) FinishRun(ctx context.Context, runID uuid.UUID, status string) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE audit_runs SET status = $2, finished_at = $3 WHERE id = $1",
		runID, status, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("finish audit run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// LatestRun returns the run with the greatest started_at for the tenant, or
// (nil, nil) when the tenant never ran an audit.
func (s *Service) LatestRun(ctx context.Context, tenantID uuid.UUID) (*models.AuditRun, error) {
	r, err := scanRun(s.db.QueryRow(ctx,
		"SELECT "+runColumns+" FROM audit_runs WHERE tenant_id = $1 ORDER BY started_at DESC LIMIT 1",
		tenantID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest audit run: %w", err)
	}
	return r, nil
}

func (s *Service) ListRuns(ctx context.Context, tenantID uuid.UUID) ([]models.AuditRun, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+runColumns+" FROM audit_runs WHERE tenant_id = $1 ORDER BY started_at DESC",
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit runs: %w", err)
	}
	defer rows.Close()

	runs := []models.AuditRun{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, nil
}

const resultColumns = "id, run_id, item_id, score_percentual, itens_atendidos, itens_faltantes, riscos, inconsistencias, recomendacoes, trechos_evidencia, created_at"

func scanResult(row pgx.Row) (*models.AuditResult, error) {
	var r models.AuditResult
	err := row.Scan(&r.ID, &r.RunID, &r.ItemID, &r.ScorePercentual, &r.ItensAtendidos, &r.ItensFaltantes,
		&r.Riscos, &r.Inconsistencias, &r.Recomendacoes, &r.TrechosEvidencia, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Service) InsertResult(ctx context.Context, runID uuid.UUID, res ItemResult) (*models.AuditResult, error) {
	r, err := scanResult(s.db.QueryRow(ctx,
		`INSERT INTO audit_results
		 (id, run_id, item_id, score_percentual, itens_atendidos, itens_faltantes, riscos, inconsistencias, recomendacoes, trechos_evidencia)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+resultColumns,
		uuid.New(), runID, res.ItemID, res.ScorePercentual, res.ItensAtendidos, res.ItensFaltantes,
		res.Riscos, res.Inconsistencias, res.Recomendacoes, res.TrechosEvidencia,
	))
	if err != nil {
		return nil, fmt.Errorf("insert audit result %s: %w", res.ItemID, err)
	}
	return r, nil
}

func (s *Service) listRunResults(ctx context.Context, runID uuid.UUID) ([]models.AuditResult, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+resultColumns+" FROM audit_results WHERE run_id = $1 ORDER BY item_id",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit results: %w", err)
	}
	defer rows.Close()

	results := []models.AuditResult{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit result: %w", err)
		}
		results = append(results, *r)
	}
	return results, nil
}

// LatestResults returns the results of the tenant's most recent run. A
// tenant with no runs gets an empty slice, not an error.
func (s *Service) LatestResults(ctx context.Context, tenantID uuid.UUID) ([]models.AuditResult, error) {
	run, err := s.LatestRun(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return []models.AuditResult{}, nil
	}
	return s.listRunResults(ctx, run.ID)
}

/// Run executes a full audit for the tenant: one result per whitelisted
// checklist item, then the run is closed. A scoring failure on one item
// fails the whole run.
func (s *Service) Run(ctx context.Context, tenantID uuid.UUID) (*models.AuditRun, []models.AuditResult, error) {
	run, err := s.CreateRun(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}

	results := make([]models.AuditResult, 0, len(s.cfg.Items))
	for _, item := range s.cfg.Items {
		res, err := s.scoreItem(ctx, tenantID, item)
		if err != nil {
			if ferr := s.FinishRun(ctx, run.ID, models.AuditRunStatusFailed); ferr != nil {
				s.logger.Error("mark audit run failed", "run_id", run.ID, "error", ferr)
			}
			return nil, nil, fmt.Errorf("score item %s: %w", item.ItemID, err)
		}

		if s.analyst != nil {
			s.analyst.Enrich(ctx, item, &res)
		}

		stored, err := s.InsertResult(ctx, run.ID, res)
		if err != nil {
			if ferr := s.FinishRun(ctx, run.ID, models.AuditRunStatusFailed); ferr != nil {
				s.logger.Error("mark audit run failed", "run_id", run.ID, "error", ferr)
			}
			return nil, nil, err
		}
		results = append(results, *stored)
	}

	if err := s.FinishRun(ctx, run.ID, models.AuditRunStatusFinished); err != nil {
		return nil, nil, err
	}
	run.Status = models.AuditRunStatusFinished
	return run, results, nil
}
