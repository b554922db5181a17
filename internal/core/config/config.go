// Package config handles configuration loading and validation for pantry.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/colonyops/pantry/internal/core/imagecache"
)

// EnvPrefix prefixes every environment override, e.g. PANTRY_STORAGE_BACKEND.
const EnvPrefix = "PANTRY_"

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config holds the application configuration.
type Config struct {
	Storage     StorageConfig     `yaml:"storage"     envPrefix:"STORAGE_"`
	Cache       CacheConfig       `yaml:"cache"       envPrefix:"CACHE_"`
	Images      ImagesConfig      `yaml:"images"      envPrefix:"IMAGES_"`
	Maintenance MaintenanceConfig `yaml:"maintenance" envPrefix:"MAINTENANCE_"`
	Database    DatabaseConfig    `yaml:"database"    envPrefix:"DATABASE_"`
	DataDir     string            `yaml:"-"` // set by caller, not from config file
}

// StorageConfig selects where the recipe document lives.
type StorageConfig struct {
	Backend string `yaml:"backend" env:"BACKEND"` // file, sqlite or memory
	Key     string `yaml:"key"     env:"KEY"`     // document key
	Watch   bool   `yaml:"watch"   env:"WATCH"`   // invalidate on external file changes
}

// CacheConfig controls the in-memory record snapshot.
type CacheConfig struct {
	RecordTTL time.Duration `yaml:"record_ttl" env:"RECORD_TTL"`
}

// ImagesConfig controls validation and the image pipeline.
type ImagesConfig struct {
	ValidationTTL      time.Duration `yaml:"validation_ttl"      env:"VALIDATION_TTL"`
	ValidationCapacity int           `yaml:"validation_capacity" env:"VALIDATION_CAPACITY"`
	CheckTimeout       time.Duration `yaml:"check_timeout"       env:"CHECK_TIMEOUT"`
	TrustedDomains     []string      `yaml:"trusted_domains"     env:"TRUSTED_DOMAINS" envSeparator:","`
	PlaceholderHost    string        `yaml:"placeholder_host"    env:"PLACEHOLDER_HOST"`
	CacheDir           string        `yaml:"cache_dir"           env:"CACHE_DIR"` // defaults to <data-dir>/images
	MemoryEntries      int           `yaml:"memory_entries"      env:"MEMORY_ENTRIES"`
	PreloadConcurrency int           `yaml:"preload_concurrency" env:"PRELOAD_CONCURRENCY"`
	MaxBytes           int64         `yaml:"max_bytes"           env:"MAX_BYTES"`
	UserAgent          string        `yaml:"user_agent"          env:"USER_AGENT"`
}

// MaintenanceConfig controls batch jobs and the background loop.
type MaintenanceConfig struct {
	Interval    time.Duration `yaml:"interval"    env:"INTERVAL"`
	Concurrency int           `yaml:"concurrency" env:"CONCURRENCY"`
	Cleanup     bool          `yaml:"cleanup"     env:"CLEANUP"` // remove invalid images on each tick
	Migrate     bool          `yaml:"migrate"     env:"MIGRATE"` // seed random placeholders on each tick
}

// DatabaseConfig tunes the SQLite backend.
type DatabaseConfig struct {
	BusyTimeout  int `yaml:"busy_timeout"   env:"BUSY_TIMEOUT"` // milliseconds
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			Backend: BackendFile,
			Key:     "recipes",
		},
		Cache: CacheConfig{
			RecordTTL: 5 * time.Minute,
		},
		Images: ImagesConfig{
			ValidationTTL:      5 * time.Minute,
			ValidationCapacity: 100,
			CheckTimeout:       3 * time.Second,
			TrustedDomains:     imagecache.DefaultTrustedDomains,
			PlaceholderHost:    "picsum.photos",
			MemoryEntries:      64,
			PreloadConcurrency: 4,
			MaxBytes:           10 << 20,
			UserAgent:          "pantry",
		},
		Maintenance: MaintenanceConfig{
			Interval:    10 * time.Minute,
			Concurrency: 4,
		},
		Database: DatabaseConfig{
			BusyTimeout:  5000,
			MaxOpenConns: 4,
			MaxIdleConns: 2,
		},
	}
}

// Load is Read followed by Validate.
func Load(configPath, dataDir string) (*Config, error) {
	cfg, err := Read(configPath, dataDir)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Read reads the config file (if any), applies PANTRY_* environment
// overrides and fills defaults without validating. A missing file is not an
// error.
func Read(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.DataDir = dataDir
	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	d := DefaultConfig()

	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.Storage.Key == "" {
		c.Storage.Key = d.Storage.Key
	}
	if c.Cache.RecordTTL == 0 {
		c.Cache.RecordTTL = d.Cache.RecordTTL
	}
	if c.Images.ValidationTTL == 0 {
		c.Images.ValidationTTL = d.Images.ValidationTTL
	}
	if c.Images.ValidationCapacity == 0 {
		c.Images.ValidationCapacity = d.Images.ValidationCapacity
	}
	if c.Images.CheckTimeout == 0 {
		c.Images.CheckTimeout = d.Images.CheckTimeout
	}
	if c.Images.TrustedDomains == nil {
		c.Images.TrustedDomains = d.Images.TrustedDomains
	}
	if c.Images.PlaceholderHost == "" {
		c.Images.PlaceholderHost = d.Images.PlaceholderHost
	}
	if c.Images.CacheDir == "" && c.DataDir != "" {
		c.Images.CacheDir = filepath.Join(c.DataDir, "images")
	}
	if c.Images.PreloadConcurrency == 0 {
		c.Images.PreloadConcurrency = d.Images.PreloadConcurrency
	}
	if c.Images.MaxBytes == 0 {
		c.Images.MaxBytes = d.Images.MaxBytes
	}
	if c.Images.UserAgent == "" {
		c.Images.UserAgent = d.Images.UserAgent
	}
	if c.Maintenance.Interval == 0 {
		c.Maintenance.Interval = d.Maintenance.Interval
	}
	if c.Maintenance.Concurrency == 0 {
		c.Maintenance.Concurrency = d.Maintenance.Concurrency
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = d.Database.BusyTimeout
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = d.Database.MaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = d.Database.MaxIdleConns
	}
}

// StorageDir returns the directory the file backend writes to.
func (c *Config) StorageDir() string {
	return filepath.Join(c.DataDir, "store")
}
