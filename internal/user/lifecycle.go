package user

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ativushq/ativus-backend/internal/gotrue"
	"github.com/ativushq/ativus-backend/internal/models"
)

// ErrEmailRegistered is returned when an account creation collides with a
// live (non-deleted) account for the same address. It surfaces as a 400 with
// this exact message.
var ErrEmailRegistered = fmt.Errorf("%w: E-mail já cadastrado.", models.ErrInvalid)

// banForever is the ban duration used for blocked and deleted accounts,
// roughly ten years. GoTrue has no permanent ban, only durations.
const banForever = "87600h"

// TombstoneEmail returns the address a deleted account is parked under.
// The format is stable so deleted accounts can be recognized later and
// their original address recycled.
func TombstoneEmail(id uuid.UUID) string {
	return fmt.Sprintf("deleted+%s@deleted.local", id)
}

// mergeMetadata overlays updates onto a copy of base. GoTrue replaces
// app_metadata wholesale on update, so every write must carry the full map.
func mergeMetadata(base, updates map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(updates))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range updates {
		out[k] = v
	}
	return out
}

func metadataBool(m map[string]any, key string) bool {
	v, ok := m[key].(bool)
	return ok && v
}

type CreateUserInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// CreateUser provisions an auth account plus its profile row. If the address
// belongs to a tombstoned account that account is pushed back to its
// tombstone address first, freeing the email for reuse. A collision with a
// live account is a conflict and nothing is created.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*models.Profile, error) {
	acting, service, err := s.actingProfile(ctx)
	if err != nil {
		return nil, err
	}
	if service {
		return nil, fmt.Errorf("%w: criação de usuário exige um perfil de administrador", models.ErrForbidden)
	}
	if acting.Role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: operação restrita a administradores", models.ErrForbidden)
	}
	actingTenant := *acting.TenantID

	if in.Role == "" {
		in.Role = models.RoleTechnician
	}

	existing, err := s.auth.FindUserByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("lookup existing account: %w", err)
	}
	if existing != nil {
		if !metadataBool(existing.AppMetadata, "deleted") {
			return nil, ErrEmailRegistered
		}
		// A deleted account still occupies the address. Park it under its
		// tombstone so the new signup can take the email over.
		meta := mergeMetadata(existing.AppMetadata, map[string]any{
			"deleted": true,
			"blocked": true,
		})
		_, err = s.auth.AdminUpdateUser(ctx, existing.ID, gotrue.UpdateUserParams{
			Email:       TombstoneEmail(existing.ID),
			BanDuration: banForever,
			AppMetadata: meta,
		})
		if err != nil {
			return nil, fmt.Errorf("recycle deleted account %s: %w", existing.ID, err)
		}
	}

	created, err := s.auth.AdminCreateUser(ctx, gotrue.CreateUserParams{
		Email:        in.Email,
		Password:     in.Password,
		EmailConfirm: true,
		AppMetadata: map[string]any{
			"tenant_id": actingTenant.String(),
			"role":      in.Role,
		},
		UserMetadata: map[string]any{"name": in.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("create auth account: %w", err)
	}

	p, err := scanProfile(s.db.QueryRow(ctx,
		`INSERT INTO profiles (id, tenant_id, name, role, email)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+profileColumns,
		created.ID, actingTenant, in.Name, in.Role, in.Email,
	))
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	return p, nil
}

// BlockUser bans the account for the standing "forever" duration and records
// the reason in app_metadata.
func (s *Service) BlockUser(ctx context.Context, targetID uuid.UUID, reason string) error {
	if _, _, err := s.authorizeTarget(ctx, targetID); err != nil {
		return err
	}

	u, err := s.auth.AdminGetUser(ctx, targetID)
	if err != nil {
		return fmt.Errorf("load auth account: %w", err)
	}

	meta := mergeMetadata(u.AppMetadata, map[string]any{
		"blocked":        true,
		"blocked_reason": reason,
		"blocked_at":     time.Now().UTC().Format(time.RFC3339),
	})
	_, err = s.auth.AdminUpdateUser(ctx, targetID, gotrue.UpdateUserParams{
		BanDuration: banForever,
		AppMetadata: meta,
	})
	if err != nil {
		return fmt.Errorf("block account: %w", err)
	}
	return nil
}

// UnblockUser lifts the ban and flips the blocked flag off. The block reason
// and timestamp stay in the metadata as history.
func (s *Service) UnblockUser(ctx context.Context, targetID uuid.UUID) error {
	if _, _, err := s.authorizeTarget(ctx, targetID); err != nil {
		return err
	}

	u, err := s.auth.AdminGetUser(ctx, targetID)
	if err != nil {
		return fmt.Errorf("load auth account: %w", err)
	}

	meta := mergeMetadata(u.AppMetadata, map[string]any{"blocked": false})
	_, err = s.auth.AdminUpdateUser(ctx, targetID, gotrue.UpdateUserParams{
		BanDuration: "none",
		AppMetadata: meta,
	})
	if err != nil {
		return fmt.Errorf("unblock account: %w", err)
	}
	return nil
}

// DeleteUser soft-deletes an account. The row and the auth user survive, but
// the email moves to a tombstone address, the account is banned and the
// original address is kept in app_metadata. Deleting an already deleted user
// is a no-op rewrite of the same tombstone.
func (s *Service) DeleteUser(ctx context.Context, targetID uuid.UUID, reason string) error {
	_, targetTenant, err := s.authorizeTarget(ctx, targetID)
	if err != nil {
		return err
	}

	u, err := s.auth.AdminGetUser(ctx, targetID)
	if err != nil {
		return fmt.Errorf("load auth account: %w", err)
	}

	updates := map[string]any{
		"deleted":        true,
		"deleted_reason": reason,
		"deleted_at":     time.Now().UTC().Format(time.RFC3339),
		"blocked":        true,
	}
	if !metadataBool(u.AppMetadata, "deleted") {
		updates["original_email"] = u.Email
	}

	tombstone := TombstoneEmail(targetID)
	_, err = s.auth.AdminUpdateUser(ctx, targetID, gotrue.UpdateUserParams{
		Email:       tombstone,
		BanDuration: banForever,
		AppMetadata: mergeMetadata(u.AppMetadata, updates),
	})
	if err != nil {
		return fmt.Errorf("tombstone account: %w", err)
	}

	if _, err := s.db.Exec(ctx,
		"UPDATE profiles SET email = $2, updated_at = now() WHERE id = $1",
		targetID, tombstone,
	); err != nil {
		return fmt.Errorf("tombstone profile: %w", err)
	}

	// Memberships are scoped to the target's tenant; with no tenant on the
	// profile they are swept globally instead of left behind.
	if targetTenant != uuid.Nil {
		if _, err := s.db.Exec(ctx,
			"DELETE FROM user_group_members WHERE user_id = $1 AND tenant_id = $2",
			targetID, targetTenant,
		); err != nil {
			return fmt.Errorf("remove group memberships: %w", err)
		}
	} else if _, err := s.db.Exec(ctx,
		"DELETE FROM user_group_members WHERE user_id = $1",
		targetID,
	); err != nil {
		return fmt.Errorf("remove group memberships: %w", err)
	}

	return nil
}
