package commands

import (
	"os"
	"path/filepath"

	"github.com/colonyops/pantry/internal/core/config"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string
	Storage    string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "pantry", "config.yaml")
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "pantry")
}

// configOnly lists top-level commands that run on the config alone and never
// touch storage or the image cache.
var configOnly = map[string]bool{
	"config": true,
	"help":   true,
	"h":      true,
}

// NeedsApp reports whether the top-level command must open the pantry.
// Running without a command only prints help.
func NeedsApp(command string) bool {
	return command != "" && !configOnly[command]
}
