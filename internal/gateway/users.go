package gateway

import (
	"context"
	"regexp"
	"strings"

	"github.com/inovacc/slack-mcp/internal/slack"
)

// rawUserID matches Slack user IDs (U… for regular, W… for enterprise users).
var rawUserID = regexp.MustCompile(`^[UW][A-Z0-9]{2,}$`)

// UserMatch is a user together with their direct message channel.
type UserMatch struct {
	User        slack.User `json:"user"`
	DMChannelID string     `json:"dmChannelId,omitempty"`
}

// ListUsers returns the full user directory.
func (g *Gateway) ListUsers(ctx context.Context, workspaceID string) ([]slack.User, error) {
	return run(ctx, g, "list users", workspaceID, func(ctx context.Context, c *call) ([]slack.User, error) {
		return c.users(ctx)
	})
}

// GetUser returns nil without an error when the user is unknown or the
// lookup fails. Only an unknown workspace is an error.
func (g *Gateway) GetUser(ctx context.Context, workspaceID, userID string) (*slack.User, error) {
	if _, err := g.sessions.Lookup(workspaceID); err != nil {
		return nil, err
	}

	user, err := run(ctx, g, "get user", workspaceID, func(ctx context.Context, c *call) (*slack.User, error) {
		if err := c.admit(ctx); err != nil {
			return nil, err
		}

		return c.client.UserInfo(ctx, userID)
	})
	if err != nil {
		g.logger.Debug("user lookup failed", "workspace_id", workspaceID, "user_id", userID, "error", err)
		return nil, nil
	}

	return user, nil
}

// FindUserByIdentifier matches query case-insensitively (one leading "@"
// stripped) against handle, display name and real name. All users are
// checked for an exact match on each field in that order before any
// substring match is tried. It returns nil when nothing matches.
func (g *Gateway) FindUserByIdentifier(ctx context.Context, workspaceID, query string) (*slack.User, error) {
	users, err := g.ListUsers(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	return matchUser(users, query), nil
}

func matchUser(users []slack.User, query string) *slack.User {
	q := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(query), "@"))
	if q == "" {
		return nil
	}

	fields := []func(slack.User) string{
		func(u slack.User) string { return u.Handle },
		func(u slack.User) string { return u.DisplayName },
		func(u slack.User) string { return u.RealName },
	}

	matchers := []func(value string) bool{
		func(value string) bool { return value == q },
		func(value string) bool { return strings.Contains(value, q) },
	}

	for _, matches := range matchers {
		for _, field := range fields {
			for i := range users {
				value := strings.ToLower(field(users[i]))
				if value != "" && matches(value) {
					return &users[i]
				}
			}
		}
	}

	return nil
}

// ResolveDMChannel returns the direct message channel for a user ID or a
// name-like identifier. It returns "" when the user cannot be resolved or
// Slack refuses to open the conversation.
func (g *Gateway) ResolveDMChannel(ctx context.Context, workspaceID, identifier string) (string, error) {
	userID := strings.TrimSpace(identifier)

	if !rawUserID.MatchString(userID) {
		user, err := g.FindUserByIdentifier(ctx, workspaceID, identifier)
		if err != nil {
			return "", err
		}

		if user == nil {
			return "", nil
		}

		userID = user.ID
	}

	channelID, err := run(ctx, g, "open conversation", workspaceID, func(ctx context.Context, c *call) (string, error) {
		if err := c.admit(ctx); err != nil {
			return "", err
		}

		return c.client.OpenConversation(ctx, userID)
	})
	if err != nil {
		if code := slack.ErrorCode(err); code != "" && code != slack.ErrorRateLimited {
			g.logger.Debug("cannot open direct message", "workspace_id", workspaceID, "user_id", userID, "code", code)
			return "", nil
		}

		return "", err
	}

	return channelID, nil
}

// FindUser finds a user and their direct message channel. A failure to
// open the channel leaves DMChannelID empty.
func (g *Gateway) FindUser(ctx context.Context, workspaceID, query string) (*UserMatch, error) {
	user, err := g.FindUserByIdentifier(ctx, workspaceID, query)
	if err != nil || user == nil {
		return nil, err
	}

	dm, err := g.ResolveDMChannel(ctx, workspaceID, user.ID)
	if err != nil {
		g.logger.Debug("direct message lookup failed", "workspace_id", workspaceID, "user_id", user.ID, "error", err)
	}

	return &UserMatch{User: *user, DMChannelID: dm}, nil
}

// ResolveUserIds maps the requested IDs to users with a single directory
// fetch. IDs missing from the directory are absent from the result.
func (g *Gateway) ResolveUserIds(ctx context.Context, workspaceID string, ids []string) (map[string]slack.User, error) {
	resolved := make(map[string]slack.User, len(ids))
	if len(ids) == 0 {
		return resolved, nil
	}

	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	users, err := g.ListUsers(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	for _, u := range users {
		if _, ok := wanted[u.ID]; ok {
			resolved[u.ID] = u
		}
	}

	return resolved, nil
}
