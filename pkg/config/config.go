// Package config loads runtime configuration from an optional YAML file
// under the XDG config directory, with environment variables taking
// precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	xdgAppName = "taskbridge"
	configFile = "config.yaml"

	// DefaultInterval is how often a sync cycle runs when nothing else
	// is configured.
	DefaultInterval = 10 * time.Second
)

// Config is the fixed set of inputs the sync core consumes at startup.
type Config struct {
	AsanaToken       string        `mapstructure:"asana_token"`
	AsanaProjectGID  string        `mapstructure:"asana_project_gid"`
	GoogleTasklist   string        `mapstructure:"google_tasklist"`
	Interval         time.Duration `mapstructure:"interval"`
	StatePath        string        `mapstructure:"state_path"`
	ClientSecretPath string        `mapstructure:"client_secret_path"`
	TokenCachePath   string        `mapstructure:"token_cache_path"`
	LogFile          string        `mapstructure:"log_file"`
}

// Dir returns the taskbridge config directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

// Load reads the config file if present and applies env overrides.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return load(dir)
}

func load(dir string) (*Config, error) {
	v := viper.New()
	v.SetDefault("google_tasklist", "Asana")
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("state_path", filepath.Join(dir, "correlations.json"))
	v.SetDefault("client_secret_path", filepath.Join(dir, "client_secret.json"))
	v.SetDefault("token_cache_path", filepath.Join(dir, "token_cache.json"))

	// ASANA_PAT matches what the Asana developer console calls the
	// token; the rest are namespaced.
	v.BindEnv("asana_token", "ASANA_PAT")
	v.BindEnv("asana_project_gid", "ASANA_PROJECT_GID")
	v.BindEnv("google_tasklist", "TASKBRIDGE_GOOGLE_TASKLIST")
	v.BindEnv("interval", "TASKBRIDGE_INTERVAL")
	v.BindEnv("state_path", "TASKBRIDGE_STATE_PATH")
	v.BindEnv("client_secret_path", "TASKBRIDGE_CLIENT_SECRET_PATH")
	v.BindEnv("token_cache_path", "TASKBRIDGE_TOKEN_CACHE_PATH")
	v.BindEnv("log_file", "TASKBRIDGE_LOG_FILE")

	path := filepath.Join(dir, configFile)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the inputs the core cannot run without.
func (c *Config) Validate() error {
	if c.AsanaToken == "" {
		return fmt.Errorf("asana token not set (ASANA_PAT)")
	}
	if c.AsanaProjectGID == "" {
		return fmt.Errorf("asana project gid not set (ASANA_PROJECT_GID)")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("sync interval must be positive, got %s", c.Interval)
	}
	return nil
}
