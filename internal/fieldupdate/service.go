// Package fieldupdate manages technician reports sent from the field.
package fieldupdate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ativushq/ativus-backend/internal/asset"
	"github.com/ativushq/ativus-backend/internal/models"
)

type Service struct {
	db     *pgxpool.Pool
	assets *asset.Service
}

func NewService(db *pgxpool.Pool, assets *asset.Service) *Service {
	return &Service{db: db, assets: assets}
}

const fieldUpdateColumns = "id, tenant_id, message, code, attachments, audio_path, status, event_report, created_by, closed_by, close_message, closed_at, created_at"

func scanFieldUpdate(row pgx.Row) (*models.FieldUpdate, error) {
	var f models.FieldUpdate
	err := row.Scan(&f.ID, &f.TenantID, &f.Message, &f.Code, &f.Attachments, &f.AudioPath,
		&f.Status, &f.EventReport, &f.CreatedBy, &f.ClosedBy, &f.CloseMessage, &f.ClosedAt, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID, status string) ([]models.FieldUpdate, error) {
	query := "SELECT " + fieldUpdateColumns + " FROM field_updates WHERE tenant_id = $1"
	args := []interface{}{tenantID}
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list field updates: %w", err)
	}
	defer rows.Close()

	updates := []models.FieldUpdate{}
	for rows.Next() {
		f, err := scanFieldUpdate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan field update: %w", err)
		}
		updates = append(updates, *f)
	}
	return updates, nil
}

func (s *Service) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.FieldUpdate, error) {
	f, err := scanFieldUpdate(s.db.QueryRow(ctx,
		"SELECT "+fieldUpdateColumns+" FROM field_updates WHERE id = $1 AND tenant_id = $2",
		id, tenantID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get field update: %w", err)
	}
	return f, nil
}

type CreateInput struct {
	Message     string   `json:"message"`
	Code        string   `json:"code"`
	Attachments []string `json:"attachments"`
	AudioPath   string   `json:"audio_path"`
	EventReport *bool    `json:"event_report"`
}

// Create inserts a field update. When the caller does not state whether the
// report is an equipment event, it is inferred: true if an asset's tag
// exactly matches Code.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, createdBy *uuid.UUID, in CreateInput) (*models.FieldUpdate, error) {
	eventReport := false
	switch {
	case in.EventReport != nil:
		eventReport = *in.EventReport
	case in.Code != "":
		_, err := s.assets.GetByTag(ctx, tenantID, in.Code)
		if err == nil {
			eventReport = true
		} else if !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
	}

	if in.Attachments == nil {
		in.Attachments = []string{}
	}

	f, err := scanFieldUpdate(s.db.QueryRow(ctx,
		`INSERT INTO field_updates (id, tenant_id, message, code, attachments, audio_path, status, event_report, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+fieldUpdateColumns,
		uuid.New(), tenantID, in.Message, in.Code, in.Attachments, in.AudioPath,
		models.FieldUpdateStatusOpen, eventReport, createdBy,
	))
	if err != nil {
		return nil, fmt.Errorf("insert field update: %w", err)
	}
	return f, nil
}

type UpdateInput struct {
	Message      *string   `json:"message"`
	Status       *string   `json:"status"`
	Attachments  *[]string `json:"attachments"`
	AudioPath    *string   `json:"audio_path"`
	CloseMessage *string   `json:"close_message"`
}

func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, actor *uuid.UUID, in UpdateInput) (*models.FieldUpdate, error) {
	set := "id = id"
	args := []interface{}{id, tenantID}
	argIdx := 3

	addField := func(col string, val interface{}) {
		set += fmt.Sprintf(", %s = $%d", col, argIdx)
		args = append(args, val)
		argIdx++
	}

	if in.Message != nil {
		addField("message", *in.Message)
	}
	if in.Attachments != nil {
		addField("attachments", *in.Attachments)
	}
	if in.AudioPath != nil {
		addField("audio_path", *in.AudioPath)
	}
	if in.CloseMessage != nil {
		addField("close_message", *in.CloseMessage)
	}
	if in.Status != nil {
		addField("status", *in.Status)
		if *in.Status == models.FieldUpdateStatusClosed {
			addField("closed_by", actor)
			addField("closed_at", time.Now().UTC())
		}
	}

	f, err := scanFieldUpdate(s.db.QueryRow(ctx,
		"UPDATE field_updates SET "+set+" WHERE id = $1 AND tenant_id = $2 RETURNING "+fieldUpdateColumns,
		args...,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update field update: %w", err)
	}
	return f, nil
}

func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM field_updates WHERE id = $1 AND tenant_id = $2", id, tenantID)
	if err != nil {
		return fmt.Errorf("delete field update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
