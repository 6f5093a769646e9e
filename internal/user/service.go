// Package user manages profiles, user groups and the auth-provider user
// lifecycle (block, soft delete via tombstoning, email recycling).
package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ativushq/ativus-backend/internal/database"
	"github.com/ativushq/ativus-backend/internal/gotrue"
	"github.com/ativushq/ativus-backend/internal/models"
	"github.com/ativushq/ativus-backend/internal/tenant"
)

type Service struct {
	db   database.Querier
	auth *gotrue.Client
}

func NewService(db database.Querier, auth *gotrue.Client) *Service {
	return &Service{db: db, auth: auth}
}

const profileColumns = "id, tenant_id, name, role, email, created_at, updated_at"

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Role, &p.Email, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	p, err := scanProfile(s.db.QueryRow(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE id = $1", id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *Service) ListProfiles(ctx context.Context, tenantID uuid.UUID) ([]models.Profile, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE tenant_id = $1 ORDER BY name",
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	profiles := []models.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, nil
}

// actingProfile re-reads the caller's profile row. Done per request, never
// cached: the token may outlive a tenant move or a role change. A
// service-role caller has no profile and may act on any tenant.
func (s *Service) actingProfile(ctx context.Context) (*models.Profile, bool, error) {
	id := tenant.IdentityFromContext(ctx)
	if id == nil {
		return nil, false, models.ErrForbidden
	}
	if id.ServiceRole() {
		return nil, true, nil
	}

	p, err := s.GetProfile(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, false, models.ErrForbidden
		}
		return nil, false, err
	}
	if p.TenantID == nil {
		return nil, false, models.ErrForbidden
	}
	return p, false, nil
}

// ActingTenant resolves the caller's tenant from their own profile row.
func (s *Service) ActingTenant(ctx context.Context) (uuid.UUID, bool, error) {
	p, service, err := s.actingProfile(ctx)
	if err != nil || service {
		return uuid.Nil, service, err
	}
	return *p.TenantID, false, nil
}

// authorizeTarget gates every account mutation: the caller must hold the
// service key or an admin profile, and a cross-tenant target maps to
// not-found so an unauthorized caller learns nothing about its existence.
func (s *Service) authorizeTarget(ctx context.Context, targetID uuid.UUID) (*models.Profile, uuid.UUID, error) {
	acting, service, err := s.actingProfile(ctx)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if !service && acting.Role != models.RoleAdmin {
		return nil, uuid.Nil, fmt.Errorf("%w: operação restrita a administradores", models.ErrForbidden)
	}

	target, err := s.GetProfile(ctx, targetID)
	if err != nil {
		return nil, uuid.Nil, err
	}

	if !service {
		if target.TenantID == nil || *target.TenantID != *acting.TenantID {
			return nil, uuid.Nil, models.ErrNotFound
		}
		return target, *acting.TenantID, nil
	}

	if target.TenantID != nil {
		return target, *target.TenantID, nil
	}
	return target, uuid.Nil, nil
}

type ProfileUpdateInput struct {
	Name *string `json:"name"`
	Role *string `json:"role"`
}

func (s *Service) UpdateUser(ctx context.Context, targetID uuid.UUID, in ProfileUpdateInput) (*models.Profile, error) {
	target, _, err := s.authorizeTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		target.Name = *in.Name
	}
	if in.Role != nil {
		target.Role = *in.Role
	}

	p, err := scanProfile(s.db.QueryRow(ctx,
		"UPDATE profiles SET name = $2, role = $3, updated_at = now() WHERE id = $1 RETURNING "+profileColumns,
		targetID, target.Name, target.Role,
	))
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	if in.Role != nil {
		if err := s.syncRoleMetadata(ctx, targetID, *in.Role); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (s *Service) syncRoleMetadata(ctx context.Context, userID uuid.UUID, role string) error {
	u, err := s.auth.AdminGetUser(ctx, userID)
	if err != nil {
		return err
	}
	meta := mergeMetadata(u.AppMetadata, map[string]any{"role": role})
	_, err = s.auth.AdminUpdateUser(ctx, userID, gotrue.UpdateUserParams{AppMetadata: meta})
	return err
}
