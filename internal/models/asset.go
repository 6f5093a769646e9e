package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Asset struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	TenantID  uuid.UUID       `json:"tenant_id" db:"tenant_id"`
	Name      string          `json:"name" db:"name"`
	Tag       string          `json:"tag,omitempty" db:"tag"`
	Type      string          `json:"type,omitempty" db:"type"`
	Status    string          `json:"status" db:"status"`
	SiteID    *uuid.UUID      `json:"site_id,omitempty" db:"site_id"`
	Metadata  json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

type Site struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TenantID  uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Name      string    `json:"name" db:"name"`
	Address   string    `json:"address,omitempty" db:"address"`
	City      string    `json:"city,omitempty" db:"city"`
	State     string    `json:"state,omitempty" db:"state"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type CompanyProfile struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TenantID  uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Name      string    `json:"name" db:"name"`
	TradeName string    `json:"trade_name,omitempty" db:"trade_name"`
	CNPJ      string    `json:"cnpj,omitempty" db:"cnpj"`
	Phone     string    `json:"phone,omitempty" db:"phone"`
	Email     string    `json:"email,omitempty" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
