package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/inovacc/slack-mcp/internal/model"
	"github.com/inovacc/slack-mcp/internal/oauth"
	"github.com/inovacc/slack-mcp/internal/slack"
)

func (s *Server) addWorkspace(ctx context.Context, in AddWorkspaceInput) (string, error) {
	if err := required("id", in.ID, "name", in.Name, "token", in.Token, "teamId", in.TeamID); err != nil {
		return "", err
	}

	kind, err := model.ParseTokenKind(in.TokenType)
	if err != nil {
		return "", err
	}

	ws := model.Workspace{
		ID:        in.ID,
		Name:      in.Name,
		Token:     in.Token,
		TeamID:    in.TeamID,
		TokenKind: kind,
		UserID:    in.UserID,
	}

	var previous *model.Workspace
	if sess, err := s.registry.Lookup(ws.ID); err == nil {
		prev := sess.Workspace()
		previous = &prev
	}

	s.registry.Register(ws)

	ok, err := s.gateway.TestConnection(ctx, ws.ID)
	if !ok {
		s.rollback(ws.ID, previous)

		if err != nil {
			s.logger.Debug("connection test failed", "workspace", ws, "error", err)
		}

		return "", errors.New("failed to connect to Slack workspace, please check your token")
	}

	if err := s.store.SaveWorkspace(ws); err != nil {
		s.rollback(ws.ID, previous)
		return "", fmt.Errorf("failed to save workspace: %w", err)
	}

	return fmt.Sprintf("Successfully added workspace: %s (%s)", ws.Name, ws.ID), nil
}

// rollback restores the registry to what it held before a failed add.
func (s *Server) rollback(id string, previous *model.Workspace) {
	if previous != nil {
		s.registry.Register(*previous)
		return
	}

	s.registry.Remove(id)
}

func (s *Server) removeWorkspace(_ context.Context, in WorkspaceInput) (string, error) {
	ws, err := s.store.FindWorkspace(in.WorkspaceID)
	if err != nil {
		return "", err
	}

	if ws == nil {
		return "", fmt.Errorf("workspace %s not found", in.WorkspaceID)
	}

	if _, err := s.store.RemoveWorkspace(ws.ID); err != nil {
		return "", fmt.Errorf("failed to remove workspace: %w", err)
	}

	s.registry.Remove(ws.ID)

	return "Successfully removed workspace: " + ws.Name, nil
}

func (s *Server) listWorkspaces(_ context.Context, _ ListWorkspacesInput) (string, error) {
	workspaces, err := s.store.LoadWorkspaces()
	if err != nil {
		return "", err
	}

	if len(workspaces) == 0 {
		return "No workspaces configured. Use add_workspace to add your first workspace.", nil
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Configured workspaces (%d):", len(workspaces))

	for _, w := range workspaces {
		fmt.Fprintf(&b, "\n- %s (%s) - Team: %s - Type: %s", w.Name, w.ID, w.TeamID, w.Kind())

		if w.UserID != "" {
			fmt.Fprintf(&b, " - User: %s", w.UserID)
		}
	}

	return b.String(), nil
}

func (s *Server) authenticateUserOnly(_ context.Context, in AuthenticateInput) (string, error) {
	pending, err := s.startFlow(in, oauth.Request{UserScopes: slack.DefaultScopes})
	if err != nil {
		return "", fmt.Errorf("user-only authentication failed: %w", err)
	}

	return "User-Only OAuth Authentication Started\n\n" +
		"Please visit this URL to authenticate with Slack (USER PERMISSIONS ONLY):\n\n" +
		pending.URL() + "\n\n" +
		certificateWarning +
		"This will grant USER permissions only (no bot required).\n" +
		"After authorization, use 'list_workspaces' to verify authentication completed.", nil
}

func (s *Server) authenticateUser(_ context.Context, in AuthenticateInput) (string, error) {
	pending, err := s.startFlow(in, oauth.Request{Scopes: slack.DefaultScopes})
	if err != nil {
		return "", fmt.Errorf("authentication failed: %w", err)
	}

	return "OAuth Authentication Started\n\n" +
		"Please visit this URL to authorize the Slack app:\n\n" +
		pending.URL() + "\n\n" +
		certificateWarning +
		"After authorization, use 'list_workspaces' to verify authentication completed.", nil
}

const certificateWarning = "Your browser may show a security warning for the self-signed certificate.\n" +
	"Click \"Advanced\" and proceed to localhost to continue.\n\n"

// startFlow looks up the app credentials, starts the flow on the server
// lifetime context and completes it in the background.
func (s *Server) startFlow(in AuthenticateInput, req oauth.Request) (*oauth.Pending, error) {
	if err := required("workspaceId", in.WorkspaceID, "workspaceName", in.WorkspaceName); err != nil {
		return nil, err
	}

	if s.oauth == nil {
		return nil, errors.New("oauth is not configured")
	}

	app, err := s.store.GetApp(in.WorkspaceID)
	if err != nil {
		return nil, err
	}

	req.WorkspaceID = in.WorkspaceID
	req.ClientID = app.ClientID
	req.ClientSecret = app.ClientSecret

	ctx := s.background()

	pending, err := s.oauth.Start(ctx, req)
	if err != nil {
		return nil, err
	}

	s.pending.Add(1)

	go func() {
		defer s.pending.Done()
		s.completeFlow(ctx, pending, in.WorkspaceName)
	}()

	return pending, nil
}

// completeFlow registers and persists the workspace once the flow resolves.
// The tool call has already returned, so failures are only logged.
func (s *Server) completeFlow(ctx context.Context, pending *oauth.Pending, name string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("oauth completion panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	res, err := pending.Wait(ctx)
	if err != nil {
		if ctx.Err() != nil {
			pending.Cancel()
		}

		s.logger.Warn("oauth authentication did not complete", "error", err)

		return
	}

	ws := model.Workspace{
		ID:        res.WorkspaceID,
		Name:      name,
		Token:     res.AccessToken,
		TeamID:    res.TeamID,
		TokenKind: res.TokenKind,
		UserID:    res.UserID,
	}

	s.registry.Register(ws)

	if err := s.store.SaveWorkspace(ws); err != nil {
		s.logger.Error("failed to persist authenticated workspace", "workspace", ws, "error", err)
		return
	}

	s.logger.Info("workspace authenticated", "workspace", ws)
}

// required takes name/value pairs and reports the first empty value.
func required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return fmt.Errorf("%s is required", pairs[i])
		}
	}

	return nil
}
