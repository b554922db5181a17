package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.applyDefaults()
	return &cfg
}

func TestValidate_Defaults(t *testing.T) {
	assert.NoError(t, validConfig(t).Validate())
}

func TestValidate_FieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"empty data dir", func(c *Config) { c.DataDir = "" }, "data_dir"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "redis" }, "storage.backend"},
		{"key with separator", func(c *Config) { c.Storage.Key = "a/b" }, "storage.key"},
		{"negative ttl", func(c *Config) { c.Cache.RecordTTL = -1 }, "cache.record_ttl"},
		{"zero capacity", func(c *Config) { c.Images.ValidationCapacity = 0 }, "images.validation_capacity"},
		{"host with scheme", func(c *Config) { c.Images.PlaceholderHost = "https://picsum.photos" }, "images.placeholder_host"},
		{"negative memory entries", func(c *Config) { c.Images.MemoryEntries = -1 }, "images.memory_entries"},
		{"zero concurrency", func(c *Config) { c.Maintenance.Concurrency = 0 }, "maintenance.concurrency"},
		{"zero open conns", func(c *Config) { c.Database.MaxOpenConns = 0 }, "database.max_open_conns"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			var fieldErrs criterio.FieldErrors
			require.ErrorAs(t, cfg.Validate(), &fieldErrs)
			require.Len(t, fieldErrs, 1)
			assert.Equal(t, tt.field, fieldErrs[0].Field)
		})
	}
}

func TestValidate_TrustedDomainPatterns(t *testing.T) {
	cfg := validConfig(t)
	cfg.Images.TrustedDomains = []string{"picsum.photos", "[invalid", "", "example.com/images"}

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, cfg.Validate(), &fieldErrs)
	require.Len(t, fieldErrs, 3)
	assert.Equal(t, "images.trusted_domains[1]", fieldErrs[0].Field)
	assert.Contains(t, fieldErrs[0].Err.Error(), "invalid glob pattern")
	assert.Equal(t, "images.trusted_domains[2]", fieldErrs[1].Field)
	assert.Equal(t, "images.trusted_domains[3]", fieldErrs[2].Field)
}

func TestValidateDeep_DataDirIsFile(t *testing.T) {
	cfg := validConfig(t)
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	cfg.DataDir = file

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, cfg.ValidateDeep(""), &fieldErrs)
	assert.Equal(t, "data_dir", fieldErrs[0].Field)
}

func TestValidateDeep_ConfigPathIsDir(t *testing.T) {
	cfg := validConfig(t)

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, cfg.ValidateDeep(t.TempDir()), &fieldErrs)
	assert.Equal(t, "config_file", fieldErrs[0].Field)
}

func TestValidateDeep_MissingPathsAreFine(t *testing.T) {
	cfg := validConfig(t)
	cfg.Images.CacheDir = filepath.Join(t.TempDir(), "later")
	assert.NoError(t, cfg.ValidateDeep(filepath.Join(t.TempDir(), "config.yaml")))
}

func TestWarnings(t *testing.T) {
	cfg := validConfig(t)
	assert.Empty(t, cfg.Warnings())

	cfg.Storage.Backend = BackendMemory
	cfg.Storage.Watch = true
	cfg.Images.TrustedDomains = []string{}

	warnings := cfg.Warnings()
	require.Len(t, warnings, 3)
	assert.Equal(t, "trusted_domains", warnings[0].Item)
}
