package oauth_test

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/inovacc/slack-mcp/internal/certs"
	"github.com/inovacc/slack-mcp/internal/model"
	"github.com/inovacc/slack-mcp/internal/oauth"
	"github.com/inovacc/slack-mcp/internal/slack/slacktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memTokens struct {
	mu     sync.Mutex
	tokens map[string]model.UserToken
}

func (m *memTokens) SaveUserToken(id string, tok model.UserToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tokens == nil {
		m.tokens = make(map[string]model.UserToken)
	}

	m.tokens[id] = tok

	return nil
}

func (m *memTokens) get(id string) (model.UserToken, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, ok := m.tokens[id]

	return tok, ok
}

type harness struct {
	manager *oauth.Manager
	slack   *slacktest.Server
	tokens  *memTokens
}

func newHarness(t *testing.T, timeout time.Duration) *harness {
	t.Helper()

	srv := slacktest.NewServer(t)
	tokens := &memTokens{}

	m := oauth.NewManager(oauth.Config{
		Port:       0,
		Timeout:    timeout,
		TokenURL:   srv.URL() + "oauth.v2.access",
		APIBaseURL: srv.URL(),
	}, certs.NewFileProvider(t.TempDir(), nil), tokens)
	t.Cleanup(m.Close)

	return &harness{manager: m, slack: srv, tokens: tokens}
}

func request(scopes ...string) oauth.Request {
	return oauth.Request{
		WorkspaceID:  "acme-user",
		ClientID:     "cid",
		ClientSecret: "secret",
		Scopes:       scopes,
	}
}

// callback hits the pending flow's listener the way a browser redirect would.
func callback(t *testing.T, p *oauth.Pending, path string, query url.Values) int {
	t.Helper()

	redirect, err := url.Parse(p.RedirectURI())
	require.NoError(t, err)

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // self-signed test listener
		},
	}

	target := fmt.Sprintf("https://127.0.0.1:%s%s?%s", redirect.Port(), path, query.Encode())

	resp, err := client.Get(target)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode
}

func stateOf(t *testing.T, p *oauth.Pending) string {
	t.Helper()

	u, err := url.Parse(p.URL())
	require.NoError(t, err)

	return u.Query().Get("state")
}

func wait(t *testing.T, p *oauth.Pending) (*oauth.Result, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := p.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded)

	return res, err
}

func requireListenerClosed(t *testing.T, p *oauth.Pending) {
	t.Helper()

	redirect, err := url.Parse(p.RedirectURI())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", "127.0.0.1:"+redirect.Port(), 200*time.Millisecond)
		if err != nil {
			return true
		}

		_ = conn.Close()

		return false
	}, 5*time.Second, 20*time.Millisecond)
}

func TestStartBuildsAuthorizeURL(t *testing.T) {
	h := newHarness(t, time.Minute)

	p, err := h.manager.Start(context.Background(), request())
	require.NoError(t, err)

	defer p.Cancel()

	u, err := url.Parse(p.URL())
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "cid", q.Get("client_id"))
	assert.Equal(t, p.RedirectURI(), q.Get("redirect_uri"))
	assert.Contains(t, q.Get("user_scope"), "chat:write")
	assert.Empty(t, q.Get("scope"))
	assert.Len(t, q.Get("state"), 44)
	assert.Contains(t, p.RedirectURI(), "https://localhost:")
}

func TestStartValidatesRequest(t *testing.T) {
	h := newHarness(t, time.Minute)

	_, err := h.manager.Start(context.Background(), oauth.Request{ClientID: "cid", ClientSecret: "s"})
	require.Error(t, err)

	_, err = h.manager.Start(context.Background(), oauth.Request{WorkspaceID: "w", ClientID: "cid"})
	require.Error(t, err)
}

func TestCallbackSuccessUserToken(t *testing.T) {
	h := newHarness(t, time.Minute)

	h.slack.Handle("oauth.v2.access", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "code-1", r.PostForm.Get("code"))
		slacktest.OK(w, map[string]any{
			"team":        map[string]any{"id": "T1", "name": "Acme"},
			"authed_user": map[string]any{"id": "U1", "access_token": "xoxp-new", "expires_in": 3600, "refresh_token": "r1"},
		})
	})
	h.slack.Handle("auth.test", slacktest.Static(map[string]any{
		"user": "alice", "user_id": "UA1", "team": "Acme", "team_id": "T1",
	}))

	p, err := h.manager.Start(context.Background(), request())
	require.NoError(t, err)

	status := callback(t, p, "/oauth/callback", url.Values{"code": {"code-1"}, "state": {stateOf(t, p)}})
	assert.Equal(t, http.StatusOK, status)

	res, err := wait(t, p)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, "acme-user", res.WorkspaceID)
	assert.Equal(t, "xoxp-new", res.AccessToken)
	assert.Equal(t, model.TokenUser, res.TokenKind)
	assert.Equal(t, "UA1", res.UserID)
	assert.Equal(t, "T1", res.TeamID)
	require.NotNil(t, res.ExpiresAt)

	saved, ok := h.tokens.get("acme-user")
	require.True(t, ok)
	assert.Equal(t, "xoxp-new", saved.AccessToken)
	assert.Equal(t, "r1", saved.RefreshToken)

	assert.Equal(t, []string{"xoxp-new"}, h.slack.Tokens()[1:])
	requireListenerClosed(t, p)
}

func TestCallbackSuccessBotToken(t *testing.T) {
	h := newHarness(t, time.Minute)

	h.slack.Handle("oauth.v2.access", slacktest.Static(map[string]any{
		"access_token": "xoxb-bot",
		"team":         map[string]any{"id": "T1", "name": "Acme"},
		"authed_user":  map[string]any{"id": "U1", "access_token": "xoxp-user"},
	}))
	h.slack.Handle("auth.test", slacktest.Static(map[string]any{"user_id": "UB0T", "team_id": "T1"}))

	p, err := h.manager.Start(context.Background(), request("channels:read"))
	require.NoError(t, err)

	callback(t, p, "/oauth/callback", url.Values{"code": {"c"}, "state": {stateOf(t, p)}})

	res, err := wait(t, p)
	require.NoError(t, err)
	assert.Equal(t, "xoxb-bot", res.AccessToken)
	assert.Equal(t, model.TokenBot, res.TokenKind)
	assert.Nil(t, res.ExpiresAt)
}

func TestCallbackAccessDenied(t *testing.T) {
	h := newHarness(t, time.Minute)

	p, err := h.manager.Start(context.Background(), request())
	require.NoError(t, err)

	status := callback(t, p, "/oauth/callback", url.Values{"error": {"access_denied"}, "state": {stateOf(t, p)}})
	assert.Equal(t, http.StatusBadRequest, status)

	_, err = wait(t, p)

	var authErr *oauth.AuthorizationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "access_denied", authErr.Reason)
	assert.Zero(t, h.slack.Calls("oauth.v2.access"))

	requireListenerClosed(t, p)
}

func TestCallbackRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name   string
		query  func(state string) url.Values
		reason string
	}{
		{
			name:   "missing code",
			query:  func(state string) url.Values { return url.Values{"state": {state}} },
			reason: "no_code",
		},
		{
			name:   "state mismatch",
			query:  func(string) url.Values { return url.Values{"code": {"c"}, "state": {"forged"}} },
			reason: "invalid_state",
		},
		{
			name:   "missing state",
			query:  func(string) url.Values { return url.Values{"code": {"c"}} },
			reason: "invalid_state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, time.Minute)

			p, err := h.manager.Start(context.Background(), request())
			require.NoError(t, err)

			status := callback(t, p, "/oauth/callback", tt.query(stateOf(t, p)))
			assert.Equal(t, http.StatusBadRequest, status)

			_, err = wait(t, p)

			var authErr *oauth.AuthorizationError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, tt.reason, authErr.Reason)
			assert.Zero(t, h.slack.Calls("oauth.v2.access"))
		})
	}
}

func TestCallbackExchangeFailure(t *testing.T) {
	h := newHarness(t, time.Minute)

	h.slack.Handle("oauth.v2.access", func(w http.ResponseWriter, _ *http.Request) {
		slacktest.Fail(w, "invalid_code")
	})

	p, err := h.manager.Start(context.Background(), request())
	require.NoError(t, err)

	status := callback(t, p, "/oauth/callback", url.Values{"code": {"c"}, "state": {stateOf(t, p)}})
	assert.Equal(t, http.StatusInternalServerError, status)

	_, err = wait(t, p)

	var exErr *oauth.TokenExchangeError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, "invalid_code", exErr.Code)

	_, saved := h.tokens.get("acme-user")
	assert.False(t, saved)
	requireListenerClosed(t, p)
}

func TestCallbackVerificationFailure(t *testing.T) {
	h := newHarness(t, time.Minute)

	h.slack.Handle("oauth.v2.access", slacktest.Static(map[string]any{
		"authed_user": map[string]any{"id": "U1", "access_token": "xoxp-bad"},
	}))
	h.slack.Handle("auth.test", func(w http.ResponseWriter, _ *http.Request) {
		slacktest.Fail(w, "invalid_auth")
	})

	p, err := h.manager.Start(context.Background(), request())
	require.NoError(t, err)

	callback(t, p, "/oauth/callback", url.Values{"code": {"c"}, "state": {stateOf(t, p)}})

	_, err = wait(t, p)
	require.ErrorIs(t, err, oauth.ErrTokenVerification)

	_, saved := h.tokens.get("acme-user")
	assert.False(t, saved)
}

func TestCallbackWrongPath(t *testing.T) {
	h := newHarness(t, time.Minute)

	p, err := h.manager.Start(context.Background(), request())
	require.NoError(t, err)

	defer p.Cancel()

	status := callback(t, p, "/favicon.ico", url.Values{})
	assert.Equal(t, http.StatusNotFound, status)

	select {
	case <-p.Done():
		t.Fatal("flow ended on an unrelated request")
	default:
	}
}

func TestSecondStartIsRejected(t *testing.T) {
	h := newHarness(t, time.Minute)

	p, err := h.manager.Start(context.Background(), request())
	require.NoError(t, err)

	_, err = h.manager.Start(context.Background(), request())
	require.ErrorIs(t, err, oauth.ErrFlowInProgress)

	p.Cancel()

	_, err = wait(t, p)
	require.ErrorIs(t, err, oauth.ErrFlowCancelled)

	again, err := h.manager.Start(context.Background(), request())
	require.NoError(t, err)
	again.Cancel()
}

func TestStartPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	defer func() { _ = ln.Close() }()

	m := oauth.NewManager(oauth.Config{
		Port: ln.Addr().(*net.TCPAddr).Port,
	}, certs.NewFileProvider(t.TempDir(), nil), &memTokens{})

	_, err = m.Start(context.Background(), request())
	require.ErrorIs(t, err, oauth.ErrFlowInProgress)
}

func TestFlowTimeout(t *testing.T) {
	h := newHarness(t, 100*time.Millisecond)

	p, err := h.manager.Start(context.Background(), request())
	require.NoError(t, err)

	_, err = wait(t, p)
	require.ErrorIs(t, err, oauth.ErrFlowTimeout)

	requireListenerClosed(t, p)
}

func TestFlowContextCancelled(t *testing.T) {
	h := newHarness(t, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())

	p, err := h.manager.Start(ctx, request())
	require.NoError(t, err)

	cancel()

	_, err = wait(t, p)
	require.ErrorIs(t, err, oauth.ErrFlowCancelled)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFlowCancelledReleasesPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	m := oauth.NewManager(oauth.Config{
		Port:    port,
		Timeout: time.Minute,
	}, certs.NewFileProvider(t.TempDir(), nil), &memTokens{})
	t.Cleanup(m.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for range 5 {
		p, err := m.Start(ctx, request())
		require.NoError(t, err)

		select {
		case <-p.Done():
		case <-time.After(10 * time.Second):
			t.Fatal("flow did not finish")
		}

		free, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		require.NoError(t, err, "port still bound after Done")
		require.NoError(t, free.Close())
	}

	p, err := m.Start(context.Background(), request())
	require.NoError(t, err)
	p.Cancel()

	_, err = wait(t, p)
	require.ErrorIs(t, err, oauth.ErrFlowCancelled)

	free, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(t, err)
	require.NoError(t, free.Close())
}
