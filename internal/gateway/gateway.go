// Package gateway performs rate-limited Slack operations on behalf of
// registered workspaces.
//
// Every remote call waits for admission from the per-workspace limiter. A
// throttling signal from Slack makes the whole operation sleep for the
// advertised Retry-After (60s when absent) and run once more; a second
// throttle surfaces as ErrRateLimited. Other errors are never retried.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/inovacc/slack-mcp/internal/registry"
	"github.com/inovacc/slack-mcp/internal/slack"
)

const (
	maxAttempts = 2

	DefaultRetryAfter = 60 * time.Second

	historyPageSize = 100
	listPageSize    = 200
)

// Sessions resolves workspace IDs to sessions.
type Sessions interface {
	Lookup(id string) (*registry.Session, error)
}

// Limiter gates remote calls per workspace.
type Limiter interface {
	Wait(ctx context.Context, tenant string) error
}

// Gateway runs Slack operations through the registry and limiter.
type Gateway struct {
	sessions   Sessions
	limiter    Limiter
	logger     *slog.Logger
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
	retryAfter time.Duration
}

// Option configures a Gateway.
type Option func(*Gateway)

func WithLogger(logger *slog.Logger) Option { return func(g *Gateway) { g.logger = logger } }

// WithClock replaces time.Now for the unread heuristic.
func WithClock(now func() time.Time) Option { return func(g *Gateway) { g.now = now } }

// WithSleep replaces the retry-after sleep.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(g *Gateway) { g.sleep = sleep }
}

// WithDefaultRetryAfter sets the wait used when Slack sends no Retry-After.
func WithDefaultRetryAfter(d time.Duration) Option { return func(g *Gateway) { g.retryAfter = d } }

// New creates a gateway.
func New(sessions Sessions, limiter Limiter, opts ...Option) *Gateway {
	g := &Gateway{
		sessions:   sessions,
		limiter:    limiter,
		logger:     slog.New(slog.DiscardHandler),
		now:        time.Now,
		sleep:      sleepContext,
		retryAfter: DefaultRetryAfter,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// call is one attempt of an operation against a session.
type call struct {
	workspaceID string
	client      *slack.Client
	limiter     Limiter
}

func (c *call) admit(ctx context.Context) error {
	return c.limiter.Wait(ctx, c.workspaceID)
}

// run executes fn with at most one retry on throttling. The session is
// looked up per attempt so a retry sees a re-registered workspace.
func run[T any](ctx context.Context, g *Gateway, op, workspaceID string, fn func(context.Context, *call) (T, error)) (T, error) {
	var zero T

	logger := g.logger.With("op", op, "workspace_id", workspaceID, "call_id", uuid.NewString())

	for attempt := 1; ; attempt++ {
		session, err := g.sessions.Lookup(workspaceID)
		if err != nil {
			return zero, err
		}

		result, err := fn(ctx, &call{workspaceID: workspaceID, client: session.Client(), limiter: g.limiter})
		if err == nil {
			return result, nil
		}

		var rl *slack.RateLimitedError
		if !errors.As(err, &rl) {
			return zero, err
		}

		if attempt >= maxAttempts {
			logger.Warn("slack API still throttled, giving up", "attempt", attempt)
			return zero, fmt.Errorf("%s: %w: %w", op, ErrRateLimited, err)
		}

		wait := rl.RetryAfter
		if wait <= 0 {
			wait = g.retryAfter
		}

		logger.Warn("slack API throttled, retrying", "attempt", attempt, "retry_after", wait)

		if err := g.sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// TestConnection reports whether the workspace token is accepted. It
// returns false on every failure; the error says why.
func (g *Gateway) TestConnection(ctx context.Context, workspaceID string) (bool, error) {
	_, err := run(ctx, g, "test connection", workspaceID, func(ctx context.Context, c *call) (*slack.AuthTestResult, error) {
		if err := c.admit(ctx); err != nil {
			return nil, err
		}

		return c.client.AuthTest(ctx)
	})
	if err != nil {
		g.logger.Debug("connection test failed", "workspace_id", workspaceID, "error", err)
		return false, err
	}

	return true, nil
}

// conversations pages through conversations.list. limit > 0 issues a single
// page of that size instead.
func (c *call) conversations(ctx context.Context, types []string, limit int) ([]slack.Channel, error) {
	opts := slack.ListConversationsOptions{
		Types:           types,
		ExcludeArchived: true,
		Limit:           listPageSize,
	}

	if limit > 0 {
		opts.Limit = limit
	}

	var channels []slack.Channel

	for {
		if err := c.admit(ctx); err != nil {
			return nil, err
		}

		page, err := c.client.ListConversations(ctx, opts)
		if err != nil {
			return nil, err
		}

		channels = append(channels, page.Channels...)

		if page.NextCursor == "" || limit > 0 {
			break
		}

		opts.Cursor = page.NextCursor
	}

	if limit > 0 && len(channels) > limit {
		channels = channels[:limit]
	}

	return channels, nil
}

// history fetches one page of newest-first messages.
func (c *call) history(ctx context.Context, channelID string, limit int) ([]slack.Message, error) {
	if err := c.admit(ctx); err != nil {
		return nil, err
	}

	res, err := c.client.ConversationHistory(ctx, slack.HistoryOptions{Channel: channelID, Limit: limit})
	if err != nil {
		return nil, err
	}

	return res.Messages, nil
}

// users pages through users.list.
func (c *call) users(ctx context.Context) ([]slack.User, error) {
	opts := slack.ListUsersOptions{Limit: listPageSize}

	var users []slack.User

	for {
		if err := c.admit(ctx); err != nil {
			return nil, err
		}

		page, err := c.client.ListUsers(ctx, opts)
		if err != nil {
			return nil, err
		}

		users = append(users, page.Users...)

		if page.NextCursor == "" {
			return users, nil
		}

		opts.Cursor = page.NextCursor
	}
}
