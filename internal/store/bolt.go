package store

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/inovacc/slack-mcp/internal/model"
	"go.etcd.io/bbolt"
)

const boltFileName = "slack-mcp.bolt"

const (
	boltBucketWorkspaces = "workspaces" // key: workspace ID -> Workspace JSON
	boltBucketApps       = "apps"       // key: workspace ID -> OAuthApp JSON
	boltBucketTokens     = "tokens"     // key: workspace ID -> UserToken JSON
)

type Bolt struct {
	storage *bbolt.DB
}

// NewBolt opens or creates the database at path.
func NewBolt(path string) (*Bolt, error) {
	instance, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	if err := instance.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{boltBucketWorkspaces, boltBucketApps, boltBucketTokens} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}

		return nil
	}); err != nil {
		_ = instance.Close()

		return nil, err
	}

	return &Bolt{storage: instance}, nil
}

// Close closes the database.
func (b *Bolt) Close() error {
	return b.storage.Close()
}

// LoadWorkspaces returns every workspace ordered by ID.
func (b *Bolt) LoadWorkspaces() ([]model.Workspace, error) {
	workspaces := []model.Workspace{}

	err := b.storage.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucketWorkspaces))

		return bucket.ForEach(func(k, v []byte) error {
			var w model.Workspace
			if err := json.Unmarshal(v, &w); err != nil {
				return err
			}

			workspaces = append(workspaces, w)

			return nil
		})
	})

	return workspaces, err
}

func (b *Bolt) SaveWorkspace(ws model.Workspace) error {
	if ws.ID == "" {
		return errors.New("workspace id is required")
	}

	return b.put(boltBucketWorkspaces, ws.ID, ws)
}

func (b *Bolt) RemoveWorkspace(id string) (bool, error) {
	return b.delete(boltBucketWorkspaces, id)
}

// FindWorkspace returns nil, nil when no workspace has the ID.
func (b *Bolt) FindWorkspace(id string) (*model.Workspace, error) {
	var ws model.Workspace

	found, err := b.get(boltBucketWorkspaces, id, &ws)
	if err != nil || !found {
		return nil, err
	}

	return &ws, nil
}

func (b *Bolt) GetApp(workspaceID string) (model.OAuthApp, error) {
	var app model.OAuthApp

	found, err := b.get(boltBucketApps, workspaceID, &app)
	if err != nil {
		return model.OAuthApp{}, err
	}

	if !found || app.ClientID == "" {
		return model.OAuthApp{}, appNotConfigured(workspaceID)
	}

	return app, nil
}

func (b *Bolt) SaveApp(workspaceID string, app model.OAuthApp) error {
	return b.put(boltBucketApps, workspaceID, app)
}

func (b *Bolt) RemoveApp(workspaceID string) (bool, error) {
	return b.delete(boltBucketApps, workspaceID)
}

func (b *Bolt) SaveUserToken(workspaceID string, token model.UserToken) error {
	return b.put(boltBucketTokens, workspaceID, token)
}

// GetUserToken returns nil, nil when no token is stored.
func (b *Bolt) GetUserToken(workspaceID string) (*model.UserToken, error) {
	var token model.UserToken

	found, err := b.get(boltBucketTokens, workspaceID, &token)
	if err != nil || !found {
		return nil, err
	}

	return &token, nil
}

func (b *Bolt) put(bucketName, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return b.storage.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), data)
	})
}

func (b *Bolt) get(bucketName, key string, dst any) (bool, error) {
	var found bool

	err := b.storage.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if v == nil {
			return nil
		}

		found = true

		return json.Unmarshal(v, dst)
	})

	return found, err
}

func (b *Bolt) delete(bucketName, key string) (bool, error) {
	var existed bool

	err := b.storage.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		existed = bucket.Get([]byte(key)) != nil

		if !existed {
			return nil
		}

		return bucket.Delete([]byte(key))
	})

	return existed, err
}
