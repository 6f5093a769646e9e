package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the 1:1 shadow of an auth-provider user. Its email is
// tombstoned in lockstep with the auth record on soft delete.
type Profile struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	TenantID  *uuid.UUID `json:"tenant_id,omitempty" db:"tenant_id"`
	Name      string     `json:"name" db:"name"`
	Role      string     `json:"role" db:"role"`
	Email     string     `json:"email" db:"email"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

type UserGroup struct {
	ID          uuid.UUID `json:"id" db:"id"`
	TenantID    uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type UserGroupMember struct {
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	GroupID  uuid.UUID `json:"group_id" db:"group_id"`
	TenantID uuid.UUID `json:"tenant_id" db:"tenant_id"`
}

const (
	RoleAdmin      = "admin"
	RoleTechnician = "technician"
	RoleViewer     = "viewer"
)
