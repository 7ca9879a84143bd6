// Package config loads runtime settings from the environment and optional
// .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/inovacc/slack-mcp/internal/application"
	"github.com/inovacc/slack-mcp/internal/store"
	"github.com/joho/godotenv"
)

// Environment variables recognized by Load.
const (
	EnvDir          = application.DirEnvVar
	EnvStore        = "SLACK_MCP_STORE"
	EnvOAuthPort    = "SLACK_MCP_OAUTH_PORT"
	EnvOAuthTimeout = "SLACK_MCP_OAUTH_TIMEOUT"
	EnvLogLevel     = "SLACK_MCP_LOG_LEVEL"
	EnvLogFormat    = "SLACK_MCP_LOG_FORMAT"
	EnvAPIURL       = "SLACK_MCP_API_URL"
)

const (
	DefaultOAuthPort    = 3001
	DefaultOAuthTimeout = 5 * time.Minute
	DefaultAPIURL       = "https://slack.com/api/"
)

// Config represents application configuration
type Config struct {
	// Dir holds config.json, the OAuth documents and the certificate
	Dir string

	// Store selects the persistence backend
	Store store.Backend

	// OAuthPort is the local HTTPS port for the OAuth callback
	OAuthPort int

	// OAuthTimeout bounds how long a pending authorization waits
	OAuthTimeout time.Duration

	// LogLevel is the minimum level written to stderr
	LogLevel slog.Level

	// LogJSON switches the log handler to JSON
	LogJSON bool

	// APIURL is the Slack Web API base URL
	APIURL string
}

// Load reads .env from the working directory and then from the config
// directory (neither overrides variables already set), then builds Config
// from the environment.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	dir := os.Getenv(EnvDir)
	if dir == "" {
		var err error
		if dir, err = application.GetApplicationDirectory(); err != nil {
			return nil, err
		}
	}

	if err := loadDotEnv(filepath.Join(dir, ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{
		Dir:          dir,
		Store:        store.Backend(strings.ToLower(os.Getenv(EnvStore))),
		OAuthPort:    DefaultOAuthPort,
		OAuthTimeout: DefaultOAuthTimeout,
		LogLevel:     slog.LevelInfo,
		LogJSON:      strings.EqualFold(os.Getenv(EnvLogFormat), "json"),
		APIURL:       DefaultAPIURL,
	}

	if cfg.Store == "" {
		cfg.Store = store.BackendFile
	}

	if val := os.Getenv(EnvOAuthPort); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", EnvOAuthPort, val, err)
		}

		cfg.OAuthPort = port
	}

	if val := os.Getenv(EnvOAuthTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", EnvOAuthTimeout, val, err)
		}

		cfg.OAuthTimeout = timeout
	}

	if val := os.Getenv(EnvLogLevel); val != "" {
		if err := cfg.SetLogLevel(val); err != nil {
			return nil, err
		}
	}

	if val := os.Getenv(EnvAPIURL); val != "" {
		cfg.APIURL = val
	}

	return cfg, cfg.Validate()
}

// SetLogLevel parses debug, info, warn or error.
func (c *Config) SetLogLevel(level string) error {
	if err := c.LogLevel.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	return nil
}

// Validate checks ranges that the environment parsing cannot.
func (c *Config) Validate() error {
	if c.Dir == "" {
		return errors.New("config directory is required")
	}

	if c.OAuthPort < 0 || c.OAuthPort > 65535 {
		return fmt.Errorf("oauth port %d out of range", c.OAuthPort)
	}

	if c.OAuthTimeout <= 0 {
		return fmt.Errorf("oauth timeout must be positive, got %s", c.OAuthTimeout)
	}

	switch c.Store {
	case store.BackendFile, store.BackendBolt:
	default:
		return fmt.Errorf("invalid %s %q: want file or bolt", EnvStore, c.Store)
	}

	return nil
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	return nil
}
