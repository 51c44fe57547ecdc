package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full client configuration.
type Config struct {
	Backend BackendConfig `mapstructure:"backend"`
	Gateway GatewayConfig `mapstructure:"gateway"`
	Session SessionConfig `mapstructure:"session"`
}

// BackendConfig locates the shipping-comparison backend.
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// GatewayConfig configures the local serve mode.
type GatewayConfig struct {
	Addr       string        `mapstructure:"addr"`
	RateLimit  int           `mapstructure:"rate_limit"`
	RateWindow time.Duration `mapstructure:"rate_window"`
}

// SessionConfig locates the local session database.
type SessionConfig struct {
	Path string `mapstructure:"path"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Backend: BackendConfig{
			BaseURL: "http://localhost:3001/api",
			Timeout: 15 * time.Second,
		},
		Gateway: GatewayConfig{
			Addr:       ":8080",
			RateLimit:  60,
			RateWindow: time.Minute,
		},
		Session: SessionConfig{
			Path: filepath.Join(homeDir, ".shipcompare", "session.db"),
		},
	}
}

// Load reads configuration from the given file, or from the default search
// paths when path is empty, with environment overrides (SHIPCOMPARE_*).
// A missing config file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	defaults := defaultConfig()
	v.SetDefault("backend.base_url", defaults.Backend.BaseURL)
	v.SetDefault("backend.timeout", defaults.Backend.Timeout)
	v.SetDefault("gateway.addr", defaults.Gateway.Addr)
	v.SetDefault("gateway.rate_limit", defaults.Gateway.RateLimit)
	v.SetDefault("gateway.rate_window", defaults.Gateway.RateWindow)
	v.SetDefault("session.path", defaults.Session.Path)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", "shipcompare"))
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SHIPCOMPARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// No config file anywhere on the search path; defaults apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures the configuration is coherent.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base URL cannot be empty")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend timeout must be positive")
	}
	if c.Gateway.RateLimit <= 0 {
		return fmt.Errorf("gateway rate limit must be positive")
	}
	if c.Gateway.RateWindow <= 0 {
		return fmt.Errorf("gateway rate window must be positive")
	}
	if c.Session.Path == "" {
		return fmt.Errorf("session database path cannot be empty")
	}
	return nil
}
