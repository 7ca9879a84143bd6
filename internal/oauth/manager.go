// Package oauth runs the Slack authorization-code flow through a short-lived
// local HTTPS listener that receives the redirect.
//
// A flow binds the callback port, hands back the authorization URL and
// resolves once the browser is redirected back: the code is exchanged, the
// token verified with auth.test and persisted. The listener is closed exactly
// once on every outcome, including timeout and cancellation. Only one flow
// may hold the port at a time.
package oauth

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/inovacc/slack-mcp/internal/model"
	"github.com/inovacc/slack-mcp/internal/slack"
)

const (
	DefaultPort         = 3001
	DefaultCallbackPath = "/oauth/callback"
	DefaultTimeout      = 5 * time.Minute

	shutdownTimeout = 5 * time.Second
)

// Config configures the callback listener and the Slack endpoints.
type Config struct {
	// Port is the local HTTPS port; 0 picks a free one (tests)
	Port         int
	CallbackPath string
	Timeout      time.Duration

	AuthorizeURL string
	TokenURL     string
	APIBaseURL   string
}

func (c *Config) setDefaults() {
	if c.CallbackPath == "" {
		c.CallbackPath = DefaultCallbackPath
	}

	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}

	if c.AuthorizeURL == "" {
		c.AuthorizeURL = slack.OAuthAuthorizeURL
	}

	if c.TokenURL == "" {
		c.TokenURL = slack.OAuthTokenURL
	}
}

// CertificateProvider supplies the listener's TLS certificate.
type CertificateProvider interface {
	Certificate() (tls.Certificate, error)
}

// TokenStore persists acquired tokens.
type TokenStore interface {
	SaveUserToken(workspaceID string, token model.UserToken) error
}

// Request starts a flow. With Scopes set the flow is bot-inclusive and
// yields the bot token; with only UserScopes it yields a user token.
type Request struct {
	WorkspaceID  string
	ClientID     string
	ClientSecret string
	Scopes       []string
	UserScopes   []string
}

// Result is the outcome of a successful flow.
type Result struct {
	WorkspaceID  string
	AccessToken  string
	UserID       string
	TeamID       string
	TeamName     string
	TokenKind    model.TokenKind
	RefreshToken string
	ExpiresAt    *time.Time
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option { return func(m *Manager) { m.logger = logger } }

// WithHTTPClient sets the client used for code exchange and verification.
func WithHTTPClient(c *http.Client) Option { return func(m *Manager) { m.httpClient = c } }

// Manager owns the pending flows and their state side table.
type Manager struct {
	cfg        Config
	certs      CertificateProvider
	tokens     TokenStore
	logger     *slog.Logger
	httpClient *http.Client

	mu     sync.Mutex
	flows  map[int]*flow     // configured port -> pending flow
	states map[string]string // state -> workspace ID
}

// NewManager creates a manager.
func NewManager(cfg Config, certs CertificateProvider, tokens TokenStore, opts ...Option) *Manager {
	cfg.setDefaults()

	m := &Manager{
		cfg:    cfg,
		certs:  certs,
		tokens: tokens,
		logger: slog.New(slog.DiscardHandler),
		flows:  make(map[int]*flow),
		states: make(map[string]string),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Start binds the callback listener and returns the pending flow. The flow
// ends on callback, after Config.Timeout, or when ctx is done.
func (m *Manager) Start(ctx context.Context, req Request) (*Pending, error) {
	if req.WorkspaceID == "" {
		return nil, errors.New("workspace id is required")
	}

	if req.ClientID == "" || req.ClientSecret == "" {
		return nil, errors.New("client id and client secret are required")
	}

	if len(req.Scopes) == 0 && len(req.UserScopes) == 0 {
		req.UserScopes = slack.DefaultScopes
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, busy := m.flows[m.cfg.Port]; busy {
		return nil, ErrFlowInProgress
	}

	cert, err := m.certs.Certificate()
	if err != nil {
		return nil, fmt.Errorf("failed to load callback certificate: %w", err)
	}

	state, err := slack.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", m.cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFlowInProgress, err)
	}

	port := ln.Addr().(*net.TCPAddr).Port

	f := &flow{
		id:          uuid.NewString(),
		req:         req,
		state:       state,
		port:        port,
		redirectURI: fmt.Sprintf("https://localhost:%d%s", port, m.cfg.CallbackPath),
		closed:      make(chan struct{}),
	}

	f.authURL = slack.AuthorizeURL(slack.AuthorizeRequest{
		AuthURL:     m.cfg.AuthorizeURL,
		ClientID:    req.ClientID,
		RedirectURI: f.redirectURI,
		State:       state,
		Scopes:      req.Scopes,
		UserScopes:  req.UserScopes,
	})

	f.server = &http.Server{
		Handler:           m.callbackHandler(f),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(m.logger.Handler(), slog.LevelDebug),
	}

	m.flows[m.cfg.Port] = f
	m.states[state] = req.WorkspaceID

	tlsLn := tls.NewListener(ln, &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	})
	f.listener = tlsLn

	watchCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	f.stopWatch = cancel

	go func() {
		if err := f.server.Serve(tlsLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.finish(f, nil, fmt.Errorf("callback server failed: %w", err))
		}
	}()

	go m.watch(watchCtx, f)

	m.logger.Info("oauth flow started",
		"flow_id", f.id,
		"workspace_id", req.WorkspaceID,
		"port", port,
		"timeout", m.cfg.Timeout,
	)

	return &Pending{manager: m, flow: f}, nil
}

// Close cancels every pending flow.
func (m *Manager) Close() {
	m.mu.Lock()
	flows := make([]*flow, 0, len(m.flows))

	for _, f := range m.flows {
		flows = append(flows, f)
	}
	m.mu.Unlock()

	for _, f := range flows {
		m.finish(f, nil, ErrFlowCancelled)
		<-f.closed
	}
}

func (m *Manager) watch(ctx context.Context, f *flow) {
	<-ctx.Done()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		m.finish(f, nil, ErrFlowTimeout)
		return
	}

	m.finish(f, nil, fmt.Errorf("%w: %w", ErrFlowCancelled, ctx.Err()))
}

// finish records the first outcome and tears the listener down. Later
// calls are no-ops. Teardown runs on its own goroutine because finish is
// called from inside the server's handler.
func (m *Manager) finish(f *flow, res *Result, err error) {
	f.once.Do(func() {
		f.result, f.err = res, err

		if err != nil {
			m.logger.Warn("oauth flow failed", "flow_id", f.id, "workspace_id", f.req.WorkspaceID, "error", err)
		} else {
			m.logger.Info("oauth flow completed", "flow_id", f.id, "workspace_id", f.req.WorkspaceID, "user_id", res.UserID)
		}

		go func() {
			defer close(f.closed)

			f.stopWatch()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := f.server.Shutdown(shutdownCtx); err != nil {
				_ = f.server.Close()
			}

			// Serve may not have tracked the listener yet.
			_ = f.listener.Close()

			m.mu.Lock()
			if m.flows[m.cfg.Port] == f {
				delete(m.flows, m.cfg.Port)
			}
			delete(m.states, f.state)
			m.mu.Unlock()

			m.logger.Debug("oauth callback listener closed", "flow_id", f.id, "port", f.port)
		}()
	})
}

func (m *Manager) workspaceForState(state string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.states[state]

	return id, ok
}
