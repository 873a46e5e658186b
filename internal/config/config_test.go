package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OMNIGO_CONFIG", "")
	t.Setenv("OMNIGO_WORKERS", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, defaultWorkerCount, cfg.ProcessingPool)
	assert.Equal(t, []string{"pdf", "docx", "xlsx", "csv", "xml"}, cfg.Workflow.EntryPoints["multi"])
	assert.Equal(t, []string{"pdf"}, cfg.Workflow.EntryPoints["pdf"])
	assert.Equal(t, 3*time.Second, cfg.Workflow.WarningTTL)
	assert.NotEmpty(t, cfg.SigningSecret)
	assert.NotZero(t, cfg.Workflow.RandomSeed)
	assert.False(t, cfg.QueueEnabled())
	assert.False(t, cfg.ObjectStoreEnabled())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("OMNIGO_ADDRESS", ":9090")
	t.Setenv("OMNIGO_SIGNED_TTL", "30s")
	t.Setenv("OMNIGO_REDIS_ADDR", "localhost:6379")
	t.Setenv("OMNIGO_DATABASE_URL", "postgres://omnigo@localhost/omnigo")
	t.Setenv("OMNIGO_S3_USE_SSL", "true")
	t.Setenv("OMNIGO_RANDOM_SEED", "42")
	t.Setenv("OMNIGO_MAX_FILE_BYTES", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Address)
	assert.Equal(t, 30*time.Second, cfg.SignedURLTTL)
	assert.True(t, cfg.QueueEnabled())
	assert.True(t, cfg.S3UseSSL)
	assert.Equal(t, int64(42), cfg.Workflow.RandomSeed)
	assert.Equal(t, int64(defaultMaxFileSize), cfg.MaxFileSize)
}

func TestLoadRejectsQueueWithoutDatabase(t *testing.T) {
	t.Setenv("OMNIGO_REDIS_ADDR", "localhost:6379")
	t.Setenv("OMNIGO_DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OMNIGO_DATABASE_URL")
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "omnigo.yaml")
	content := `
workflow:
  default_entry: pdf
  warning_ttl: 5s
  upload_failure_rate: 0
  entry_points:
    legacy: [".PDF", " xml "]
pricing:
  currency: EUR
  channels:
    email: 0.1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("OMNIGO_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "pdf", cfg.Workflow.DefaultEntry)
	assert.Equal(t, 5*time.Second, cfg.Workflow.WarningTTL)
	assert.Zero(t, cfg.Workflow.UploadFailure)
	assert.Equal(t, []string{"pdf", "xml"}, cfg.Workflow.EntryPoints["legacy"])
	assert.Contains(t, cfg.Workflow.EntryPoints, "multi")
	assert.Equal(t, "EUR", cfg.Pricing.Currency)
	assert.Equal(t, 0.1, cfg.Pricing.Channels["email"])
	assert.Equal(t, 12.00, cfg.Pricing.Channels["post"])
	// Untouched defaults survive the merge.
	assert.Equal(t, time.Second, cfg.Workflow.UploadStep)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("OMNIGO_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
}

func TestUnknownDefaultEntryFallsBack(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.mergeYAML([]byte("workflow:\n  default_entry: nope\n")))
	cfg.normalize()

	assert.Equal(t, "multi", cfg.Workflow.DefaultEntry)
}
