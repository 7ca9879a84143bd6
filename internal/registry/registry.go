// Package registry holds one authenticated Slack session per workspace.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/inovacc/slack-mcp/internal/model"
	"github.com/inovacc/slack-mcp/internal/slack"
)

// ErrSessionNotFound is returned by Lookup for unregistered workspace IDs.
var ErrSessionNotFound = errors.New("workspace session not found")

// ClientFactory builds the API client for a workspace.
type ClientFactory func(ws model.Workspace) *slack.Client

// Session is an immutable workspace/client pair.
type Session struct {
	workspace model.Workspace
	client    *slack.Client
}

func (s *Session) Workspace() model.Workspace { return s.workspace }

func (s *Session) Client() *slack.Client { return s.client }

// Registry maps workspace IDs to sessions.
type Registry struct {
	factory ClientFactory
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// New creates an empty registry. A nil logger discards output.
func New(factory ClientFactory, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Registry{
		factory:  factory,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Register creates the session for ws.ID, replacing any previous one.
// Callers holding the old session keep using it; new lookups get the new one.
func (r *Registry) Register(ws model.Workspace) *Session {
	session := &Session{workspace: ws, client: r.factory(ws)}

	r.mu.Lock()
	_, replaced := r.sessions[ws.ID]
	r.sessions[ws.ID] = session
	r.mu.Unlock()

	r.logger.Info("workspace registered", "workspace", ws, "replaced", replaced)

	return session
}

// Lookup returns the session for id or an error wrapping ErrSessionNotFound.
func (r *Registry) Lookup(id string) (*Session, error) {
	r.mu.RLock()
	session, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	return session, nil
}

// Remove drops the session and reports whether one existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		r.logger.Info("workspace removed", "workspace_id", id)
	}

	return ok
}

// List returns the registered workspaces ordered by ID.
func (r *Registry) List() []model.Workspace {
	r.mu.RLock()
	workspaces := make([]model.Workspace, 0, len(r.sessions))

	for _, s := range r.sessions {
		workspaces = append(workspaces, s.workspace)
	}
	r.mu.RUnlock()

	sort.Slice(workspaces, func(i, j int) bool { return workspaces[i].ID < workspaces[j].ID })

	return workspaces
}
