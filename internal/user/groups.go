package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ativushq/ativus-backend/internal/models"
)

const groupColumns = "id, tenant_id, name, description, created_at"

func scanGroup(row pgx.Row) (*models.UserGroup, error) {
	var g models.UserGroup
	if err := row.Scan(&g.ID, &g.TenantID, &g.Name, &g.Description, &g.CreatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Service) ListGroups(ctx context.Context, tenantID uuid.UUID) ([]models.UserGroup, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+groupColumns+" FROM user_groups WHERE tenant_id = $1 ORDER BY name",
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	groups := []models.UserGroup{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, *g)
	}
	return groups, nil
}

func (s *Service) GetGroup(ctx context.Context, tenantID, id uuid.UUID) (*models.UserGroup, error) {
	g, err := scanGroup(s.db.QueryRow(ctx,
		"SELECT "+groupColumns+" FROM user_groups WHERE id = $1 AND tenant_id = $2",
		id, tenantID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

type GroupInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Service) CreateGroup(ctx context.Context, tenantID uuid.UUID, in GroupInput) (*models.UserGroup, error) {
	g, err := scanGroup(s.db.QueryRow(ctx,
		`INSERT INTO user_groups (id, tenant_id, name, description)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+groupColumns,
		uuid.New(), tenantID, in.Name, in.Description,
	))
	if err != nil {
		return nil, fmt.Errorf("insert group: %w", err)
	}
	return g, nil
}

type GroupUpdateInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (s *Service) UpdateGroup(ctx context.Context, tenantID, id uuid.UUID, in GroupUpdateInput) (*models.UserGroup, error) {
	g, err := s.GetGroup(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		g.Name = *in.Name
	}
	if in.Description != nil {
		g.Description = *in.Description
	}

	g, err = scanGroup(s.db.QueryRow(ctx,
		"UPDATE user_groups SET name = $3, description = $4 WHERE id = $1 AND tenant_id = $2 RETURNING "+groupColumns,
		id, tenantID, g.Name, g.Description,
	))
	if err != nil {
		return nil, fmt.Errorf("update group: %w", err)
	}
	return g, nil
}

// DeleteGroup removes the group along with its memberships and any ticket
// assignments pointing at it.
func (s *Service) DeleteGroup(ctx context.Context, tenantID, id uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete group: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		"DELETE FROM user_group_members WHERE group_id = $1 AND tenant_id = $2", id, tenantID,
	); err != nil {
		return fmt.Errorf("delete group members: %w", err)
	}
	if _, err := tx.Exec(ctx,
		"DELETE FROM ticket_group_assignments WHERE group_id = $1 AND tenant_id = $2", id, tenantID,
	); err != nil {
		return fmt.Errorf("delete group assignments: %w", err)
	}

	tag, err := tx.Exec(ctx,
		"DELETE FROM user_groups WHERE id = $1 AND tenant_id = $2", id, tenantID,
	)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return tx.Commit(ctx)
}

// AddMembers links users to a group, ignoring duplicates. Every id must
// resolve to a profile in the group's tenant; otherwise a membership row
// could point at a cross-tenant user.
func (s *Service) AddMembers(ctx context.Context, tenantID, groupID uuid.UUID, userIDs []uuid.UUID) error {
	if _, err := s.GetGroup(ctx, tenantID, groupID); err != nil {
		return err
	}

	seen := make(map[uuid.UUID]bool, len(userIDs))
	unique := make([]uuid.UUID, 0, len(userIDs))
	for _, uid := range userIDs {
		if !seen[uid] {
			seen[uid] = true
			unique = append(unique, uid)
		}
	}

	var known int
	err := s.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM profiles WHERE tenant_id = $1 AND id = ANY($2)",
		tenantID, unique,
	).Scan(&known)
	if err != nil {
		return fmt.Errorf("verify members: %w", err)
	}
	if known != len(unique) {
		return fmt.Errorf("%w: usuários não pertencem ao tenant do grupo", models.ErrInvalid)
	}

	for _, uid := range unique {
		_, err := s.db.Exec(ctx,
			`INSERT INTO user_group_members (group_id, user_id, tenant_id)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (group_id, user_id) DO NOTHING`,
			groupID, uid, tenantID,
		)
		if err != nil {
			return fmt.Errorf("add member %s: %w", uid, err)
		}
	}
	return nil
}

func (s *Service) RemoveMember(ctx context.Context, tenantID, groupID, userID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		"DELETE FROM user_group_members WHERE group_id = $1 AND user_id = $2 AND tenant_id = $3",
		groupID, userID, tenantID,
	)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *Service) ListMembers(ctx context.Context, tenantID, groupID uuid.UUID) ([]models.Profile, error) {
	rows, err := s.db.Query(ctx,
		`SELECT p.id, p.tenant_id, p.name, p.role, p.email, p.created_at, p.updated_at
		 FROM user_group_members m
		 JOIN profiles p ON p.id = m.user_id
		 WHERE m.group_id = $1 AND m.tenant_id = $2
		 ORDER BY p.name`,
		groupID, tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := []models.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *p)
	}
	return members, nil
}
