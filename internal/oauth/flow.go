package oauth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/inovacc/slack-mcp/internal/model"
	"github.com/inovacc/slack-mcp/internal/slack"
)

// flow is one authorization attempt.
type flow struct {
	id          string
	req         Request
	state       string
	port        int
	redirectURI string
	authURL     string
	server      *http.Server
	listener    net.Listener
	stopWatch   context.CancelFunc

	once   sync.Once
	closed chan struct{}
	result *Result
	err    error
}

// Pending is a started flow.
type Pending struct {
	manager *Manager
	flow    *flow
}

// URL is the authorization URL to open in a browser.
func (p *Pending) URL() string { return p.flow.authURL }

// RedirectURI is the callback URL registered with the authorization request.
func (p *Pending) RedirectURI() string { return p.flow.redirectURI }

// Done is closed once the flow has an outcome and its listener is closed.
func (p *Pending) Done() <-chan struct{} { return p.flow.closed }

// Wait blocks until the flow ends or ctx is done. Returning because ctx is
// done leaves the flow running.
func (p *Pending) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.flow.closed:
		return p.flow.result, p.flow.err
	}
}

// Cancel ends the flow with ErrFlowCancelled unless it already finished.
func (p *Pending) Cancel() {
	p.manager.finish(p.flow, nil, ErrFlowCancelled)
}

func (m *Manager) callbackHandler(f *flow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != m.cfg.CallbackPath {
			http.NotFound(w, r)
			return
		}

		select {
		case <-f.closed:
			renderError(w, http.StatusGone, "This authorization request is no longer active.")
			return
		default:
		}

		query := r.URL.Query()

		if reason := query.Get("error"); reason != "" {
			renderError(w, http.StatusBadRequest, "Slack reported: "+reason)
			m.finish(f, nil, &AuthorizationError{Reason: reason})

			return
		}

		if id, ok := m.workspaceForState(query.Get("state")); !ok || id != f.req.WorkspaceID {
			renderError(w, http.StatusBadRequest, "The state parameter does not match this authorization request.")
			m.finish(f, nil, &AuthorizationError{Reason: "invalid_state"})

			return
		}

		code := query.Get("code")
		if code == "" {
			renderError(w, http.StatusBadRequest, "No authorization code received.")
			m.finish(f, nil, &AuthorizationError{Reason: "no_code"})

			return
		}

		res, user, err := m.complete(r.Context(), f, code)
		if err != nil {
			renderError(w, http.StatusInternalServerError, err.Error())
			m.finish(f, nil, err)

			return
		}

		renderSuccess(w, f.req.WorkspaceID, user)
		m.finish(f, res, nil)
	}
}

// complete exchanges the code, verifies the token and persists it. It also
// returns the authorizing user's name for the success page.
func (m *Manager) complete(ctx context.Context, f *flow, code string) (*Result, string, error) {
	access, err := slack.ExchangeCode(ctx, slack.ExchangeRequest{
		TokenURL:     m.cfg.TokenURL,
		ClientID:     f.req.ClientID,
		ClientSecret: f.req.ClientSecret,
		Code:         code,
		RedirectURI:  f.redirectURI,
		HTTPClient:   m.httpClient,
	})
	if err != nil {
		var apiErr *slack.APIError
		if errors.As(err, &apiErr) {
			return nil, "", &TokenExchangeError{Code: apiErr.Code, Err: err}
		}

		return nil, "", &TokenExchangeError{Err: err}
	}

	res := selectToken(f.req, access)
	if res.AccessToken == "" {
		return nil, "", &TokenExchangeError{Code: "missing_access_token"}
	}

	client := slack.NewClient(res.AccessToken, slack.ClientOptions{
		BaseURL:    m.cfg.APIBaseURL,
		HTTPClient: m.httpClient,
		Logger:     m.logger,
	})

	auth, err := client.AuthTest(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrTokenVerification, err)
	}

	if auth.UserID != "" {
		res.UserID = auth.UserID
	}

	if auth.TeamID != "" {
		res.TeamID = auth.TeamID
	}

	if auth.Team != "" {
		res.TeamName = auth.Team
	}

	if err := m.tokens.SaveUserToken(f.req.WorkspaceID, model.UserToken{
		AccessToken:  res.AccessToken,
		UserID:       res.UserID,
		TeamID:       res.TeamID,
		TokenKind:    res.TokenKind,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt,
	}); err != nil {
		return nil, "", fmt.Errorf("failed to persist token: %w", err)
	}

	return res, auth.User, nil
}

// selectToken picks the bot token for bot-inclusive flows and the user
// token otherwise, falling back to whichever one Slack returned.
func selectToken(req Request, access *slack.OAuthAccess) *Result {
	res := &Result{
		WorkspaceID: req.WorkspaceID,
		UserID:      access.AuthedUser.ID,
		TeamID:      access.Team.ID,
		TeamName:    access.Team.Name,
	}

	bot := &Result{AccessToken: access.AccessToken, TokenKind: model.TokenBot, RefreshToken: access.RefreshToken}
	user := &Result{AccessToken: access.AuthedUser.AccessToken, TokenKind: model.TokenUser, RefreshToken: access.AuthedUser.RefreshToken}

	botExpires, userExpires := access.ExpiresIn, access.AuthedUser.ExpiresIn

	first, second := user, bot
	firstExpires, secondExpires := userExpires, botExpires

	if len(req.Scopes) > 0 {
		first, second = bot, user
		firstExpires, secondExpires = botExpires, userExpires
	}

	chosen, expiresIn := first, firstExpires
	if chosen.AccessToken == "" {
		chosen, expiresIn = second, secondExpires
	}

	res.AccessToken = chosen.AccessToken
	res.TokenKind = chosen.TokenKind
	res.RefreshToken = chosen.RefreshToken

	if expiresIn > 0 {
		at := access.ObtainedAt.Add(time.Duration(expiresIn) * time.Second)
		res.ExpiresAt = &at
	}

	return res
}
