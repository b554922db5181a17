package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// Validate checks that the configuration is structurally valid.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("data_dir", c.DataDir, required),
		criterio.Run("storage.backend", c.Storage.Backend, oneOf(BackendFile, BackendSQLite, BackendMemory)),
		criterio.Run("storage.key", c.Storage.Key, storageKey),
		criterio.Run("cache.record_ttl", c.Cache.RecordTTL.Seconds(), positive[float64]),
		criterio.Run("images.validation_ttl", c.Images.ValidationTTL.Seconds(), positive[float64]),
		criterio.Run("images.validation_capacity", c.Images.ValidationCapacity, positive[int]),
		criterio.Run("images.check_timeout", c.Images.CheckTimeout.Seconds(), positive[float64]),
		criterio.Run("images.placeholder_host", c.Images.PlaceholderHost, host),
		criterio.Run("images.memory_entries", c.Images.MemoryEntries, nonNegative[int]),
		criterio.Run("images.preload_concurrency", c.Images.PreloadConcurrency, positive[int]),
		criterio.Run("images.max_bytes", c.Images.MaxBytes, positive[int64]),
		c.validateTrustedDomains(),
		criterio.Run("maintenance.interval", c.Maintenance.Interval.Seconds(), positive[float64]),
		criterio.Run("maintenance.concurrency", c.Maintenance.Concurrency, positive[int]),
		criterio.Run("database.busy_timeout", c.Database.BusyTimeout, nonNegative[int]),
		criterio.Run("database.max_open_conns", c.Database.MaxOpenConns, positive[int]),
		criterio.Run("database.max_idle_conns", c.Database.MaxIdleConns, nonNegative[int]),
	)
}

// ValidateDeep runs Validate and then checks the filesystem: the config file
// and the data and image cache directories. An empty configPath skips the
// config file check.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
		criterio.Run("images.cache_dir", c.Images.CacheDir, isDirectoryOrNotExist),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if len(c.Images.TrustedDomains) == 0 {
		warnings = append(warnings, ValidationWarning{
			Category: "Images",
			Item:     "trusted_domains",
			Message:  "no trusted domains; every remote image will be checked over the network",
		})
	}

	if c.Storage.Backend == BackendMemory {
		warnings = append(warnings, ValidationWarning{
			Category: "Storage",
			Item:     "backend",
			Message:  "memory backend does not persist recipes between runs",
		})
	}

	if c.Storage.Watch && c.Storage.Backend != BackendFile {
		warnings = append(warnings, ValidationWarning{
			Category: "Storage",
			Item:     "watch",
			Message:  fmt.Sprintf("watch only applies to the file backend, ignored for %q", c.Storage.Backend),
		})
	}

	return warnings
}

func (c *Config) validateTrustedDomains() error {
	var errs criterio.FieldErrorsBuilder
	for i, pattern := range c.Images.TrustedDomains {
		field := fmt.Sprintf("images.trusted_domains[%d]", i)
		if strings.TrimSpace(pattern) == "" {
			errs = errs.Append(field, fmt.Errorf("pattern is empty"))
			continue
		}
		if strings.Contains(pattern, "/") {
			errs = errs.Append(field, fmt.Errorf("pattern %q must match a host, not a path", pattern))
			continue
		}
		if !doublestar.ValidatePattern(pattern) {
			errs = errs.Append(field, fmt.Errorf("invalid glob pattern %q", pattern))
		}
	}
	return errs.ToError()
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("is required")
	}
	return nil
}

func oneOf(allowed ...string) func(string) error {
	return func(s string) error {
		for _, a := range allowed {
			if s == a {
				return nil
			}
		}
		return fmt.Errorf("must be one of %s, got %q", strings.Join(allowed, ", "), s)
	}
}

// storageKey rejects keys that cannot be used as a file name.
func storageKey(key string) error {
	if err := required(key); err != nil {
		return err
	}
	if key != filepath.Base(key) || key == "." || key == ".." {
		return fmt.Errorf("must not contain path separators")
	}
	return nil
}

func host(s string) error {
	if err := required(s); err != nil {
		return err
	}
	if strings.ContainsAny(s, "/: ") {
		return fmt.Errorf("must be a bare host name, got %q", s)
	}
	return nil
}

type number interface {
	~int | ~int64 | ~float64
}

func positive[T number](v T) error {
	if v <= 0 {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

func nonNegative[T number](v T) error {
	if v < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}
