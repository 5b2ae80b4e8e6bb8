// Package config provides configuration utilities for the application.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/Veraticus/showroom/internal/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Default values used when nothing is configured.
const (
	DefaultBaseURL       = "http://127.0.0.1:8000"
	DefaultStoragePath   = "$HOME/.local/share/showroom/showroom.db"
	DefaultSheet         = "Nov"
	DefaultDevServerAddr = "127.0.0.1:8000"
)

// Config is the typed view of the application configuration.
type Config struct {
	BaseURL      string
	StoragePath  string
	DefaultSheet string
	UserAgent    string
	CAFile       string
	LogLevel     string
	LogFormat    string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", DefaultBaseURL)
	v.SetDefault("storage.path", DefaultStoragePath)
	v.SetDefault("mastersheet.default_sheet", DefaultSheet)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("devserver.addr", DefaultDevServerAddr)
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; existing variables win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the typed configuration from v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		BaseURL:      strings.TrimRight(strings.TrimSpace(v.GetString("api.base_url")), "/"),
		StoragePath:  ExpandPath(v.GetString("storage.path")),
		DefaultSheet: v.GetString("mastersheet.default_sheet"),
		UserAgent:    v.GetString("api.user_agent"),
		CAFile:       ExpandPath(v.GetString("api.ca_file")),
		LogLevel:     v.GetString("logging.level"),
		LogFormat:    v.GetString("logging.format"),
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.StoragePath == "" {
		cfg.StoragePath = ExpandPath(DefaultStoragePath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CertDir is where the devserver keeps its self-signed certificate.
func (c *Config) CertDir() string {
	if c.StoragePath == ":memory:" {
		return ExpandPath("$HOME/.local/share/showroom/certs")
	}
	return filepath.Join(filepath.Dir(c.StoragePath), "certs")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: api.base_url: %v", common.ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: api.base_url must be an http(s) URL, got %q", common.ErrInvalidConfig, c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: api.base_url has no host", common.ErrInvalidConfig)
	}
	if strings.TrimSpace(c.StoragePath) == "" {
		return fmt.Errorf("%w: storage.path", common.ErrMissingConfig)
	}
	return nil
}
