package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/inovacc/slack-mcp/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()

	file, err := NewFileStore(filepath.Join(t.TempDir(), "file"))
	require.NoError(t, err)

	bolt, err := NewBolt(filepath.Join(t.TempDir(), boltFileName))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = file.Close()
		_ = bolt.Close()
	})

	return map[string]Store{"file": file, "bolt": bolt}
}

func TestStore_WorkspaceLifecycle(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			list, err := st.LoadWorkspaces()
			require.NoError(t, err)
			assert.Empty(t, list)

			acme := model.Workspace{ID: "acme", Name: "Acme", Token: "xoxb-1", TeamID: "T1", TokenKind: model.TokenBot}
			require.NoError(t, st.SaveWorkspace(acme))

			acme.Token = "xoxb-2"
			require.NoError(t, st.SaveWorkspace(acme))

			list, err = st.LoadWorkspaces()
			require.NoError(t, err)
			require.Len(t, list, 1, "save must replace, not append")
			assert.Equal(t, "xoxb-2", list[0].Token)

			found, err := st.FindWorkspace("acme")
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, "T1", found.TeamID)

			missing, err := st.FindWorkspace("other")
			require.NoError(t, err)
			assert.Nil(t, missing)

			removed, err := st.RemoveWorkspace("acme")
			require.NoError(t, err)
			assert.True(t, removed)

			removed, err = st.RemoveWorkspace("acme")
			require.NoError(t, err)
			assert.False(t, removed)
		})
	}
}

func TestStore_Apps(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := st.GetApp("acme")
			require.ErrorIs(t, err, ErrAppNotConfigured)

			require.NoError(t, st.SaveApp("acme", model.OAuthApp{ClientID: "cid", ClientSecret: "secret"}))

			app, err := st.GetApp("acme")
			require.NoError(t, err)
			assert.Equal(t, "cid", app.ClientID)

			_, err = st.GetApp("other")
			require.ErrorIs(t, err, ErrAppNotConfigured)

			removed, err := st.RemoveApp("acme")
			require.NoError(t, err)
			assert.True(t, removed)

			_, err = st.GetApp("acme")
			require.ErrorIs(t, err, ErrAppNotConfigured)
		})
	}
}

func TestStore_UserTokens(t *testing.T) {
	expires := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			tok, err := st.GetUserToken("acme")
			require.NoError(t, err)
			assert.Nil(t, tok)

			require.NoError(t, st.SaveUserToken("acme", model.UserToken{
				AccessToken: "xoxp-1",
				UserID:      "U1",
				TeamID:      "T1",
				ExpiresAt:   &expires,
			}))

			tok, err = st.GetUserToken("acme")
			require.NoError(t, err)
			require.NotNil(t, tok)
			assert.Equal(t, "xoxp-1", tok.AccessToken)
			require.NotNil(t, tok.ExpiresAt)
			assert.True(t, expires.Equal(*tok.ExpiresAt))
		})
	}
}

func TestFileStore_DocumentsOnDisk(t *testing.T) {
	dir := t.TempDir()

	st, err := NewFileStore(dir)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, configFileName))
	assert.NoFileExists(t, filepath.Join(dir, appsFileName))

	require.NoError(t, st.SaveWorkspace(model.Workspace{ID: "acme", Token: "xoxb-1"}))

	data, err := os.ReadFile(filepath.Join(dir, configFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"workspaces"`)
	assert.Contains(t, string(data), `"teamId"`)

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)

	list, err := reopened.LoadWorkspaces()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "acme", list[0].ID)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open("sqlite", t.TempDir())
	require.Error(t, err)
}
