package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".warden"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("WARDEN_CONFIG")); explicit != "" {
		if strings.HasPrefix(explicit, "~") {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(home, explicit[1:]), nil
		}
		return explicit, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

// Load reads the config file (if present), then overlays environment
// variables per group. A missing file means defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	envconfig.Process("WARDEN_PATHS", &cfg.Paths)
	envconfig.Process("WARDEN_CACHE", &cfg.Cache)
	envconfig.Process("WARDEN_GRADUATION", &cfg.Graduation)
	envconfig.Process("WARDEN_APPROVAL", &cfg.Approval)
	envconfig.Process("WARDEN_AUDIT", &cfg.Audit)
	envconfig.Process("WARDEN_METRICS", &cfg.Metrics)

	applyPathDefaults(cfg)
	return cfg, nil
}

// Save writes the config file, creating the directory if needed.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func applyPathDefaults(cfg *Config) {
	if cfg.Paths.DataDir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.Paths.DataDir = filepath.Join(home, ConfigDir)
		} else {
			cfg.Paths.DataDir = "."
		}
	}
	if cfg.Paths.DBPath == "" {
		cfg.Paths.DBPath = filepath.Join(cfg.Paths.DataDir, "warden.db")
	}
}
