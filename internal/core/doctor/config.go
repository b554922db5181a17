package doctor

import (
	"context"
	"fmt"
	"os"

	"github.com/colonyops/pantry/internal/core/config"
)

// ConfigCheck validates the loaded configuration and that its directories
// are writable.
type ConfigCheck struct {
	cfg        *config.Config
	configPath string
}

// NewConfigCheck creates a new config check.
func NewConfigCheck(cfg *config.Config, configPath string) *ConfigCheck {
	return &ConfigCheck{cfg: cfg, configPath: configPath}
}

func (c *ConfigCheck) Name() string {
	return "Configuration"
}

func (c *ConfigCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	if err := c.cfg.ValidateDeep(c.configPath); err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:  "config",
			Status: StatusFail,
			Detail: err.Error(),
		})
	} else {
		result.Items = append(result.Items, CheckItem{
			Label:  "config",
			Status: StatusPass,
			Detail: c.configPath,
		})
	}

	for _, w := range c.cfg.Warnings() {
		result.Items = append(result.Items, CheckItem{
			Label:  w.Item,
			Status: StatusWarn,
			Detail: w.Message,
		})
	}

	dirs := []struct{ label, path string }{
		{"data_dir", c.cfg.DataDir},
		{"images.cache_dir", c.cfg.Images.CacheDir},
	}
	for _, d := range dirs {
		if err := writable(d.path); err != nil {
			result.Items = append(result.Items, CheckItem{
				Label:  d.label,
				Status: StatusFail,
				Detail: err.Error(),
			})
			continue
		}
		result.Items = append(result.Items, CheckItem{
			Label:  d.label,
			Status: StatusPass,
			Detail: d.path,
		})
	}

	return result
}

// writable creates dir if needed and checks it by creating a temp file.
func writable(dir string) error {
	if dir == "" {
		return fmt.Errorf("not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create: %w", err)
	}
	f, err := os.CreateTemp(dir, ".pantry-write-*")
	if err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
