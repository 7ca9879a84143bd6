package model

import (
	"fmt"
	"log/slog"
)

// TokenKind tells whether a workspace token belongs to a bot or to a user.
type TokenKind string

const (
	TokenBot  TokenKind = "bot"
	TokenUser TokenKind = "user"
)

// ParseTokenKind converts a string to TokenKind. Empty input means bot.
func ParseTokenKind(s string) (TokenKind, error) {
	switch TokenKind(s) {
	case "", TokenBot:
		return TokenBot, nil
	case TokenUser:
		return TokenUser, nil
	default:
		return "", fmt.Errorf("invalid token type %q: want bot or user", s)
	}
}

// Workspace represents a Slack workspace registered with the server.
// It is immutable once registered; re-registering under the same ID replaces it.
type Workspace struct {
	// ID is the unique, user-chosen identifier (e.g., "acme")
	ID string `json:"id"`

	// Name is the human-readable display name
	Name string `json:"name"`

	// Token is the bot or user access token
	Token string `json:"token"`

	// TeamID is the Slack team ID
	TeamID string `json:"teamId"`

	// TokenKind is the token type (bot or user)
	TokenKind TokenKind `json:"tokenType,omitempty"`

	// UserID is the user the token acts as (user tokens only)
	UserID string `json:"userId,omitempty"`
}

// Kind returns the token kind, defaulting to bot for legacy entries.
func (w Workspace) Kind() TokenKind {
	if w.TokenKind == "" {
		return TokenBot
	}

	return w.TokenKind
}

// String implements fmt.Stringer without exposing the token.
func (w Workspace) String() string {
	return fmt.Sprintf("%s (%s)", w.Name, w.ID)
}

// LogValue implements slog.LogValuer so the token never reaches a log stream.
func (w Workspace) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("id", w.ID),
		slog.String("team_id", w.TeamID),
		slog.String("token_type", string(w.Kind())),
	}

	if w.UserID != "" {
		attrs = append(attrs, slog.String("user_id", w.UserID))
	}

	return slog.GroupValue(attrs...)
}

// ConfigDocument is the persisted shape of config.json.
type ConfigDocument struct {
	Workspaces []Workspace `json:"workspaces"`
}
