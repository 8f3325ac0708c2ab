package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
  dsn: "file::memory:"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Database.Timeout)
	assert.Equal(t, "0.18", cfg.Billing.TaxRateValue.String())
	assert.Equal(t, time.UTC, cfg.Billing.Location)
	assert.Equal(t, "SES", cfg.Billing.SessionCodePrefix)
	assert.Equal(t, "INV", cfg.Billing.InvoicePrefix)
	assert.Equal(t, 30*time.Second, cfg.Billing.PricingCacheTTL)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.Equal(t, 16, cfg.WorkerPool.QueueSize)
	assert.Equal(t, 3600, cfg.Push.TTL)
}

func TestLoad_ExplicitValues(t *testing.T) {
	path := writeConfig(t, `
env: production
database:
  dsn: "host=db"
  timeout_ms: 750
billing:
  tax_rate: "0.05"
  timezone: Asia/Kolkata
  invoice_prefix: BIL
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 750*time.Millisecond, cfg.Database.Timeout)
	assert.Equal(t, "0.05", cfg.Billing.TaxRateValue.String())
	assert.Equal(t, "Asia/Kolkata", cfg.Billing.Location.String())
	assert.Equal(t, "BIL", cfg.Billing.InvoicePrefix)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
  dsn: "host=file"
`)
	t.Setenv("DATABASE_DSN", "host=env")
	t.Setenv("APP_ENV", "staging")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "host=env", cfg.Database.DSN)
	assert.Equal(t, "staging", cfg.Env)
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"missing dsn", "database:\n  driver: sqlite\n"},
		{"unknown driver", "database:\n  driver: mysql\n  dsn: x\n"},
		{"bad tax rate", "database:\n  dsn: x\nbilling:\n  tax_rate: abc\n"},
		{"tax rate out of range", "database:\n  dsn: x\nbilling:\n  tax_rate: \"1.5\"\n"},
		{"bad timezone", "database:\n  dsn: x\nbilling:\n  timezone: Mars/Olympus\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
