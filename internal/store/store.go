package store

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/inovacc/slack-mcp/internal/model"
)

// ErrAppNotConfigured is returned when no OAuth app credentials are stored
// for a workspace.
var ErrAppNotConfigured = errors.New("oauth app not configured")

// Backend names a persistence implementation.
type Backend string

const (
	BackendFile Backend = "file"
	BackendBolt Backend = "bolt"
)

// WorkspaceStore persists registered workspaces.
type WorkspaceStore interface {
	LoadWorkspaces() ([]model.Workspace, error)
	// SaveWorkspace inserts the workspace or replaces the one with the same ID.
	SaveWorkspace(ws model.Workspace) error
	RemoveWorkspace(id string) (bool, error)
	FindWorkspace(id string) (*model.Workspace, error)
}

// AppStore persists OAuth app credentials keyed by workspace ID.
type AppStore interface {
	GetApp(workspaceID string) (model.OAuthApp, error)
	SaveApp(workspaceID string, app model.OAuthApp) error
	RemoveApp(workspaceID string) (bool, error)
}

// TokenStore persists tokens acquired through the OAuth flow.
type TokenStore interface {
	SaveUserToken(workspaceID string, token model.UserToken) error
	GetUserToken(workspaceID string) (*model.UserToken, error)
}

// Store combines every persistence concern.
type Store interface {
	WorkspaceStore
	AppStore
	TokenStore
	Close() error
}

// Open returns the backend rooted at dir.
func Open(backend Backend, dir string) (Store, error) {
	switch backend {
	case "", BackendFile:
		return NewFileStore(dir)
	case BackendBolt:
		return NewBolt(filepath.Join(dir, boltFileName))
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

func appNotConfigured(workspaceID string) error {
	return fmt.Errorf("%w for workspace %q: run 'slack-mcp auth app set %s' first",
		ErrAppNotConfigured, workspaceID, workspaceID)
}
