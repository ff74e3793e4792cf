package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "architecture.yaml", cfg.Registry.Path)
	assert.Equal(t, 16, cfg.Validation.Workers)
	assert.Equal(t, 10000, cfg.Coverage.MaxFiles)
	assert.Equal(t, []string{"reason"}, cfg.Overrides.RequiredFields)
	assert.Equal(t, 90, cfg.Overrides.MaxExpiryDays)
	assert.True(t, cfg.Overrides.FailOnExpired)
	assert.NoError(t, cfg.Validate())
}

func TestValidate_Errors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Registry.Path = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Validation.Workers = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Overrides.MaxExpiryDays = -5
	assert.Error(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "archlint.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
registry:
  path: arch/registry.yaml
overrides:
  max_expiry_days: 30
validation:
  strict: true
`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "arch/registry.yaml", cfg.Registry.Path)
	assert.Equal(t, 30, cfg.Overrides.MaxExpiryDays)
	assert.True(t, cfg.Validation.Strict)
	// Unset fields keep their defaults.
	assert.Equal(t, 16, cfg.Validation.Workers)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Registry.Path = "custom.yaml"
	cfg.Diagnostics.NATSURL = "nats://localhost:4222"
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "custom.yaml", loaded.Registry.Path)
	assert.Equal(t, "nats://localhost:4222", loaded.Diagnostics.NATSURL)
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	other := DefaultConfig()
	other.Registry.Path = "project.yaml"
	other.Validation.Strict = true
	other.Coverage.MaxFiles = 500
	other.Overrides.MaxExpiryDays = 30

	base.Merge(other)
	assert.Equal(t, "project.yaml", base.Registry.Path)
	assert.True(t, base.Validation.Strict)
	assert.Equal(t, 500, base.Coverage.MaxFiles)
	assert.Equal(t, 30, base.Overrides.MaxExpiryDays)
	// Untouched fields survive the merge.
	assert.Equal(t, 16, base.Validation.Workers)

	base.Merge(nil)
	assert.Equal(t, "project.yaml", base.Registry.Path)
}
