package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATABASE_URL", "SUPABASE_URL", "SUPABASE_ANON_KEY",
		"SUPABASE_SERVICE_ROLE_KEY", "SUPABASE_JWT_SECRET",
		"VITE_SUPABASE_URL", "VITE_SUPABASE_ANON_KEY",
		"VITE_SUPABASE_SERVICE_ROLE_KEY", "VITE_SUPABASE_JWT_SECRET",
		"STORAGE_BUCKET", "OBJECT_STORE_BUCKET", "PORT",
	} {
		t.Setenv(k, "")
	}
}

func setPrimary(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/ativus")
	t.Setenv("SUPABASE_URL", "https://proj.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service")
	t.Setenv("SUPABASE_JWT_SECRET", "secret")
}

func TestLoadPrimarySchema(t *testing.T) {
	clearEnv(t)
	setPrimary(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://proj.supabase.co", cfg.Supabase.URL)
	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, "documents", cfg.Supabase.StorageBucket)
}

func TestLoadFallsBackToLegacyPrefix(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/ativus")
	t.Setenv("VITE_SUPABASE_URL", "https://legacy.supabase.co")
	t.Setenv("VITE_SUPABASE_ANON_KEY", "anon")
	t.Setenv("VITE_SUPABASE_SERVICE_ROLE_KEY", "service")
	t.Setenv("VITE_SUPABASE_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://legacy.supabase.co", cfg.Supabase.URL)
}

func TestLoadReportsMissingVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/ativus")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "SUPABASE_URL"))
	assert.True(t, strings.Contains(err.Error(), "SUPABASE_JWT_SECRET"))
	assert.False(t, strings.Contains(err.Error(), "DATABASE_URL"))
}

func TestLegacyBuckets(t *testing.T) {
	clearEnv(t)
	setPrimary(t)
	t.Setenv("STORAGE_BUCKET", "documents")
	t.Setenv("OBJECT_STORE_BUCKET", "uploads")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"uploads"}, cfg.LegacyBuckets())

	t.Setenv("OBJECT_STORE_BUCKET", "documents")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.LegacyBuckets())
}

func TestInvalidPort(t *testing.T) {
	clearEnv(t)
	setPrimary(t)
	t.Setenv("PORT", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}
