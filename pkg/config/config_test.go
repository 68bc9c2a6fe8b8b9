package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutEnvFile(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, "fra_atlas", cfg.Database.Name)
	assert.Equal(t, "FRA", cfg.Claims.NumberPrefix)
	assert.False(t, cfg.Reports.Enabled)
}

func TestLoadRejectsReportsWithoutSecret(t *testing.T) {
	t.Setenv("ENABLE_REPORTS", "true")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REPORTS_SIGNED_URL_SECRET")
}

func TestLoadReportsWithSecret(t *testing.T) {
	t.Setenv("ENABLE_REPORTS", "true")
	t.Setenv("REPORTS_SIGNED_URL_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Reports.Enabled)
	assert.Equal(t, "test-secret", cfg.Reports.SignedURLSecret)
}
