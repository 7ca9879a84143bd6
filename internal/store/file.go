package store

import (
	"path/filepath"
	"sync"

	"github.com/inovacc/slack-mcp/internal/encoding"
	"github.com/inovacc/slack-mcp/internal/model"
)

const (
	configFileName = "config.json"
	appsFileName   = "oauth-config.json"
	tokensFileName = "user-tokens.json"
)

// FileStore keeps each record type in its own JSON document.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore creates the directory if needed and initializes an empty
// config.json when none exists.
func NewFileStore(dir string) (*FileStore, error) {
	if err := encoding.EnsureDir(dir); err != nil {
		return nil, err
	}

	s := &FileStore{dir: dir}

	if _, err := s.loadConfig(); err != nil {
		return nil, err
	}

	return s, nil
}

// Dir returns the directory holding the documents.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *FileStore) loadConfig() (*model.ConfigDocument, error) {
	doc, err := encoding.LoadJSONOrInit(s.path(configFileName), model.ConfigDocument{Workspaces: []model.Workspace{}})
	if err != nil {
		return nil, err
	}

	if doc.Workspaces == nil {
		doc.Workspaces = []model.Workspace{}
	}

	return doc, nil
}

// LoadWorkspaces returns every stored workspace in file order.
func (s *FileStore) LoadWorkspaces() ([]model.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadConfig()
	if err != nil {
		return nil, err
	}

	return doc.Workspaces, nil
}

// SaveWorkspace replaces an existing entry in place or appends a new one.
func (s *FileStore) SaveWorkspace(ws model.Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadConfig()
	if err != nil {
		return err
	}

	replaced := false

	for i := range doc.Workspaces {
		if doc.Workspaces[i].ID == ws.ID {
			doc.Workspaces[i] = ws
			replaced = true

			break
		}
	}

	if !replaced {
		doc.Workspaces = append(doc.Workspaces, ws)
	}

	return encoding.SaveJSON(s.path(configFileName), doc)
}

// RemoveWorkspace deletes the workspace and reports whether it existed.
func (s *FileStore) RemoveWorkspace(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadConfig()
	if err != nil {
		return false, err
	}

	kept := doc.Workspaces[:0]
	for _, ws := range doc.Workspaces {
		if ws.ID != id {
			kept = append(kept, ws)
		}
	}

	if len(kept) == len(doc.Workspaces) {
		return false, nil
	}

	doc.Workspaces = kept

	return true, encoding.SaveJSON(s.path(configFileName), doc)
}

// FindWorkspace returns nil, nil when no workspace has the ID.
func (s *FileStore) FindWorkspace(id string) (*model.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadConfig()
	if err != nil {
		return nil, err
	}

	for _, ws := range doc.Workspaces {
		if ws.ID == id {
			return &ws, nil
		}
	}

	return nil, nil
}

func (s *FileStore) loadApps() (*model.AppsDocument, error) {
	doc, err := encoding.LoadJSON[model.AppsDocument](s.path(appsFileName))
	if err != nil {
		return nil, err
	}

	if doc == nil {
		return nil, nil
	}

	if doc.Apps == nil {
		doc.Apps = map[string]model.OAuthApp{}
	}

	return doc, nil
}

// GetApp returns ErrAppNotConfigured when oauth-config.json is missing or
// has no entry for the workspace.
func (s *FileStore) GetApp(workspaceID string) (model.OAuthApp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadApps()
	if err != nil {
		return model.OAuthApp{}, err
	}

	if doc == nil {
		return model.OAuthApp{}, appNotConfigured(workspaceID)
	}

	app, ok := doc.Apps[workspaceID]
	if !ok || app.ClientID == "" {
		return model.OAuthApp{}, appNotConfigured(workspaceID)
	}

	return app, nil
}

// SaveApp stores or replaces the credentials for a workspace.
func (s *FileStore) SaveApp(workspaceID string, app model.OAuthApp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadApps()
	if err != nil {
		return err
	}

	if doc == nil {
		doc = &model.AppsDocument{Apps: map[string]model.OAuthApp{}}
	}

	doc.Apps[workspaceID] = app

	return encoding.SaveJSON(s.path(appsFileName), doc)
}

// RemoveApp deletes the credentials and reports whether they existed.
func (s *FileStore) RemoveApp(workspaceID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadApps()
	if err != nil || doc == nil {
		return false, err
	}

	if _, ok := doc.Apps[workspaceID]; !ok {
		return false, nil
	}

	delete(doc.Apps, workspaceID)

	return true, encoding.SaveJSON(s.path(appsFileName), doc)
}

func (s *FileStore) loadTokens() (model.TokensDocument, error) {
	doc, err := encoding.LoadJSONOrInit(s.path(tokensFileName), model.TokensDocument{})
	if err != nil {
		return nil, err
	}

	if *doc == nil {
		return model.TokensDocument{}, nil
	}

	return *doc, nil
}

// SaveUserToken stores or replaces the token for a workspace.
func (s *FileStore) SaveUserToken(workspaceID string, token model.UserToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadTokens()
	if err != nil {
		return err
	}

	doc[workspaceID] = token

	return encoding.SaveJSON(s.path(tokensFileName), doc)
}

// GetUserToken returns nil, nil when no token is stored.
func (s *FileStore) GetUserToken(workspaceID string) (*model.UserToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadTokens()
	if err != nil {
		return nil, err
	}

	token, ok := doc[workspaceID]
	if !ok {
		return nil, nil
	}

	return &token, nil
}

// Close is a no-op; every mutation is flushed immediately.
func (s *FileStore) Close() error {
	return nil
}
