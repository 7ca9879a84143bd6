package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/inovacc/slack-mcp/internal/certs"
	"github.com/inovacc/slack-mcp/internal/config"
	"github.com/inovacc/slack-mcp/internal/gateway"
	"github.com/inovacc/slack-mcp/internal/model"
	"github.com/inovacc/slack-mcp/internal/oauth"
	"github.com/inovacc/slack-mcp/internal/ratelimit"
	"github.com/inovacc/slack-mcp/internal/registry"
	"github.com/inovacc/slack-mcp/internal/slack"
	"github.com/inovacc/slack-mcp/internal/store"
)

// app is the wired object graph shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    store.Store
	registry *registry.Registry
	gateway  *gateway.Gateway
	oauth    *oauth.Manager
}

// newApp loads configuration, opens the store and registers every
// persisted workspace.
func newApp() (*app, error) {
	if flagConfigDir != "" {
		if err := os.Setenv(config.EnvDir, flagConfigDir); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if flagLogLevel != "" {
		if err := cfg.SetLogLevel(flagLogLevel); err != nil {
			return nil, err
		}
	}

	if flagLogJSON {
		cfg.LogJSON = true
	}

	logger := newLogger(cfg)

	st, err := store.Open(cfg.Store, cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}

	reg := registry.New(func(ws model.Workspace) *slack.Client {
		return slack.NewClient(ws.Token, slack.ClientOptions{
			BaseURL: cfg.APIURL,
			Logger:  logger.With("workspace_id", ws.ID),
		})
	}, logger)

	workspaces, err := st.LoadWorkspaces()
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to load workspaces: %w", err)
	}

	for _, ws := range workspaces {
		reg.Register(ws)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		registry: reg,
		gateway:  gateway.New(reg, ratelimit.New(), gateway.WithLogger(logger)),
		oauth: oauth.NewManager(oauth.Config{
			Port:       cfg.OAuthPort,
			Timeout:    cfg.OAuthTimeout,
			APIBaseURL: cfg.APIURL,
		}, certs.NewFileProvider(cfg.Dir, logger), st, oauth.WithLogger(logger)),
	}

	logger.Debug("application initialized",
		"dir", cfg.Dir,
		"store", cfg.Store,
		"workspaces", len(workspaces),
	)

	return a, nil
}

func (a *app) Close() error {
	a.oauth.Close()

	return a.store.Close()
}

// withApp runs fn with a fresh app and closes it afterwards.
func withApp(fn func(a *app) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	return errors.Join(fn(a), a.Close())
}

// newLogger writes to stderr; stdout carries the MCP transport.
func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	if cfg.LogJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
