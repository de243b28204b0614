package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("AUTH_MODE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "us-east-1", cfg.AWSRegion)
	assert.Equal(t, "orders", cfg.OrdersTable)
	assert.Equal(t, 48*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, AuthModeFirebase, cfg.AuthMode)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("ORDERS_TABLE", "orders-dev")
	t.Setenv("AUTH_MODE", AuthModeJWT)
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "orders-dev", cfg.OrdersTable)
	assert.Equal(t, AuthModeJWT, cfg.AuthMode)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "courier.yaml")
	require.NoError(t, os.WriteFile(path, []byte("site_domain: https://courier.example\nusers_table: users-file\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://courier.example", cfg.SiteDomain)
	assert.Equal(t, "users-file", cfg.UsersTable)
}

func TestLoad_JWTModeWithoutSecret(t *testing.T) {
	t.Setenv("AUTH_MODE", AuthModeJWT)
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}
