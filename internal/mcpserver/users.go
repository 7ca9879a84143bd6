package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/inovacc/slack-mcp/internal/slack"
)

func (s *Server) getUsers(ctx context.Context, in WorkspaceInput) (string, error) {
	users, err := s.gateway.ListUsers(ctx, in.WorkspaceID)
	if err != nil {
		return "", err
	}

	var humans []slack.User

	for _, u := range users {
		if !u.IsBot {
			humans = append(humans, u)
		}
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Users (%d):", len(humans))

	for _, u := range humans {
		fmt.Fprintf(&b, "\n%s (@%s) - %s", displayName(u), u.Handle, u.ID)
	}

	return b.String(), nil
}

func (s *Server) getUserInfo(ctx context.Context, in UserInfoInput) (string, error) {
	user, err := s.gateway.GetUser(ctx, in.WorkspaceID, in.UserID)
	if err != nil {
		return "", err
	}

	if user == nil {
		return "", fmt.Errorf("user %s not found", in.UserID)
	}

	email := user.Email
	if email == "" {
		email = "Not available"
	}

	isBot := "No"
	if user.IsBot {
		isBot = "Yes"
	}

	return strings.Join([]string{
		"Name: " + displayName(*user),
		"Username: @" + user.Handle,
		"ID: " + user.ID,
		"Email: " + email,
		"Is Bot: " + isBot,
	}, "\n"), nil
}

func (s *Server) getDMChannelByUser(ctx context.Context, in DMChannelInput) (string, error) {
	channelID, err := s.gateway.ResolveDMChannel(ctx, in.WorkspaceID, in.UserIdentifier)
	if err != nil {
		return "", err
	}

	if channelID == "" {
		return "", fmt.Errorf("could not find DM channel for user: %s", in.UserIdentifier)
	}

	return renderJSON(map[string]string{
		"channelId":      channelID,
		"userIdentifier": in.UserIdentifier,
	})
}

func (s *Server) findUser(ctx context.Context, in FindUserInput) (string, error) {
	match, err := s.gateway.FindUser(ctx, in.WorkspaceID, in.Query)
	if err != nil {
		return "", err
	}

	if match == nil {
		return "", fmt.Errorf("no user found matching: %s", in.Query)
	}

	return renderJSON(struct {
		User        slack.User `json:"user"`
		DMChannelID string     `json:"dmChannelId"`
		Query       string     `json:"query"`
	}{match.User, match.DMChannelID, in.Query})
}

func (s *Server) resolveUserIDs(ctx context.Context, in ResolveUserIDsInput) (string, error) {
	users, err := s.gateway.ResolveUserIds(ctx, in.WorkspaceID, in.UserIDs)
	if err != nil {
		return "", err
	}

	if users == nil {
		users = map[string]slack.User{}
	}

	requested := in.UserIDs
	if requested == nil {
		requested = []string{}
	}

	return renderJSON(struct {
		WorkspaceID   string                `json:"workspaceId"`
		RequestedIDs  []string              `json:"requestedIds"`
		ResolvedCount int                   `json:"resolvedCount"`
		Users         map[string]slack.User `json:"users"`
	}{in.WorkspaceID, requested, len(users), users})
}

func displayName(u slack.User) string {
	if u.RealName != "" {
		return u.RealName
	}

	return u.Handle
}

func renderJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render result: %w", err)
	}

	return string(b), nil
}
