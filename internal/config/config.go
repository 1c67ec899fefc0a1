// Package config loads and stores the persistent configuration for
// the rv32i simulator: default memory size, instruction budget, and
// the trace toggles a run starts with unless overridden by flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config holds the simulator's tunable defaults.
type Config struct {
	Memory struct {
		Size uint32 `toml:"size"` // bytes, rounded up to a multiple of 16
	} `toml:"memory"`

	Execution struct {
		ExecLimit uint64 `toml:"exec_limit"` // 0 means unlimited
		MHartID   uint32 `toml:"mhartid"`
	} `toml:"execution"`

	Trace struct {
		ShowInstructions bool `toml:"show_instructions"`
		ShowRegisters    bool `toml:"show_registers"`
	} `toml:"trace"`
}

// DefaultConfig returns a Config with the simulator's built-in defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Memory.Size = 1 << 20 // 1 MiB

	cfg.Execution.ExecLimit = 500
	cfg.Execution.MHartID = 0

	cfg.Trace.ShowInstructions = false
	cfg.Trace.ShowRegisters = false

	return cfg
}

// GetConfigPath returns the platform-specific config file path.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "rv32i")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "rv32i")

	default:
		return "config.toml"
	}

	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "config.toml"
	}

	return filepath.Join(configDir, "config.toml")
}

// Load loads configuration from the default config file.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from path, falling back to defaults
// for any field the file leaves unset. If path does not exist, the
// defaults are returned unchanged.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: cannot parse %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes c to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo writes c to path, creating parent directories as needed.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("config: cannot create %s: %w", dir, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: cannot create %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("config: cannot encode %s: %w", path, err)
	}

	return nil
}
