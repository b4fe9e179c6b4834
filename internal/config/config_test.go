package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9090
webhooks:
  discount_secret: "s3cret"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Webhooks.DiscountSecret)
	// Both migration header names accepted by default.
	assert.Len(t, cfg.Webhooks.DiscountSecretHeaders, 2)
	assert.NotZero(t, cfg.RateLimit.RedeemPerMinute)
}

func TestLoadFromEnvMissingFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/referlabs_test")
	t.Setenv("DISCOUNT_WEBHOOK_SECRET", "env-secret")

	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/referlabs_test", cfg.Database.URL)
	assert.Equal(t, "env-secret", cfg.Webhooks.DiscountSecret)
}

func TestSecretsProvider(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Webhooks.DiscountSecret = "x"
	cfg.Webhooks.TwilioToken = "tw"

	s := cfg.Secrets()
	assert.Equal(t, "x", s.DiscountSecret())
	assert.Equal(t, "tw", s.TwilioToken())
	assert.Empty(t, s.ResendToken())
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"x-a", "x-b"}, splitCSV("X-A, x-b ,,"))
}
