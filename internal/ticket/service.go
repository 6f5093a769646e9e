// Package ticket manages maintenance tickets and their group assignments.
package ticket

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

const ticketColumns = "id, tenant_id, title, description, status, priority, equipment_id, opened_by, assigned_to, created_at, updated_at"

func scanTicket(row pgx.Row) (*models.Ticket, error) {
	var t models.Ticket
	err := row.Scan(&t.ID, &t.TenantID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.EquipmentID, &t.OpenedBy, &t.AssignedTo, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID, status string) ([]models.Ticket, error) {
	query := "SELECT " + ticketColumns + " FROM tickets WHERE tenant_id = $1"
	args := []interface{}{tenantID}
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	tickets := []models.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, *t)
	}
	return tickets, nil
}

func (s *Service) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Ticket, error) {
	t, err := scanTicket(s.db.QueryRow(ctx,
		"SELECT "+ticketColumns+" FROM tickets WHERE id = $1 AND tenant_id = $2",
		id, tenantID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	return t, nil
}

type CreateInput struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Priority    string      `json:"priority"`
	EquipmentID *uuid.UUID  `json:"equipment_id"`
	AssignedTo  *uuid.UUID  `json:"assigned_to"`
	GroupIDs    []uuid.UUID `json:"group_ids"`
}

func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, openedBy *uuid.UUID, in CreateInput) (*models.Ticket, error) {
	if in.Priority == "" {
		in.Priority = "medium"
	}

	t, err := scanTicket(s.db.QueryRow(ctx,
		`INSERT INTO tickets (id, tenant_id, title, description, status, priority, equipment_id, opened_by, assigned_to)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+ticketColumns,
		uuid.New(), tenantID, in.Title, in.Description, models.TicketStatusOpen, in.Priority,
		in.EquipmentID, openedBy, in.AssignedTo,
	))
	if err != nil {
		return nil, fmt.Errorf("insert ticket: %w", err)
	}

	if len(in.GroupIDs) > 0 {
		if err := s.AssignGroups(ctx, tenantID, t.ID, in.GroupIDs); err != nil {
			return nil, err
		}
	}
	return t, nil
}

type UpdateInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	EquipmentID *uuid.UUID `json:"equipment_id"`
	AssignedTo  *uuid.UUID `json:"assigned_to"`
}

func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, in UpdateInput) (*models.Ticket, error) {
	set := "updated_at = now()"
	args := []interface{}{id, tenantID}
	argIdx := 3

	addField := func(col string, val interface{}) {
		set += fmt.Sprintf(", %s = $%d", col, argIdx)
		args = append(args, val)
		argIdx++
	}

	if in.Title != nil {
		addField("title", *in.Title)
	}
	if in.Description != nil {
		addField("description", *in.Description)
	}
	if in.Status != nil {
		addField("status", *in.Status)
	}
	if in.Priority != nil {
		addField("priority", *in.Priority)
	}
	if in.EquipmentID != nil {
		addField("equipment_id", *in.EquipmentID)
	}
	if in.AssignedTo != nil {
		addField("assigned_to", *in.AssignedTo)
	}

	t, err := scanTicket(s.db.QueryRow(ctx,
		"UPDATE tickets SET "+set+" WHERE id = $1 AND tenant_id = $2 RETURNING "+ticketColumns,
		args...,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update ticket: %w", err)
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM tickets WHERE id = $1 AND tenant_id = $2", id, tenantID)
	if err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// AssignGroups links the ticket to user groups, ignoring duplicates.
func (s *Service) AssignGroups(ctx context.Context, tenantID, ticketID uuid.UUID, groupIDs []uuid.UUID) error {
	for _, gid := range groupIDs {
		_, err := s.db.Exec(ctx,
			`INSERT INTO ticket_group_assignments (ticket_id, group_id, tenant_id)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (ticket_id, group_id) DO NOTHING`,
			ticketID, gid, tenantID,
		)
		if err != nil {
			return fmt.Errorf("assign group %s: %w", gid, err)
		}
	}
	return nil
}

func (s *Service) ListAssignments(ctx context.Context, tenantID, ticketID uuid.UUID) ([]models.TicketGroupAssignment, error) {
	rows, err := s.db.Query(ctx,
		`SELECT ticket_id, group_id, tenant_id, created_at
		 FROM ticket_group_assignments WHERE ticket_id = $1 AND tenant_id = $2`,
		ticketID, tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list ticket assignments: %w", err)
	}
	defer rows.Close()

	assignments := []models.TicketGroupAssignment{}
	for rows.Next() {
		var a models.TicketGroupAssignment
		if err := rows.Scan(&a.TicketID, &a.GroupID, &a.TenantID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, nil
}
