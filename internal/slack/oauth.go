package slack

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	// OAuthAuthorizeURL is the Slack OAuth authorization endpoint.
	OAuthAuthorizeURL = "https://slack.com/oauth/v2/authorize"
	// OAuthTokenURL is the Slack OAuth token endpoint.
	OAuthTokenURL = "https://slack.com/api/oauth.v2.access"
)

// DefaultScopes are requested by both flows, as bot scopes or user scopes.
var DefaultScopes = []string{
	"channels:history", "channels:read",
	"groups:history", "groups:read",
	"im:history", "im:read", "im:write",
	"mpim:history", "mpim:read",
	"chat:write", "users:read", "team:read",
}

// AuthorizeRequest describes one authorization URL.
type AuthorizeRequest struct {
	AuthURL     string
	ClientID    string
	RedirectURI string
	State       string

	// Scopes are bot scopes; empty requests a user-only token
	Scopes []string

	// UserScopes are requested on behalf of the authorizing user
	UserScopes []string
}

// AuthorizeURL builds the Slack v2 authorization URL. Slack expects
// comma-separated scope lists in scope and user_scope.
func AuthorizeURL(req AuthorizeRequest) string {
	authURL := req.AuthURL
	if authURL == "" {
		authURL = OAuthAuthorizeURL
	}

	cfg := oauth2.Config{
		ClientID:    req.ClientID,
		RedirectURL: req.RedirectURI,
		Endpoint:    oauth2.Endpoint{AuthURL: authURL},
	}

	return cfg.AuthCodeURL(req.State,
		oauth2.SetAuthURLParam("scope", strings.Join(req.Scopes, ",")),
		oauth2.SetAuthURLParam("user_scope", strings.Join(req.UserScopes, ",")),
	)
}

// OAuthAccess is the oauth.v2.access response.
type OAuthAccess struct {
	AccessToken  string     `json:"access_token"`
	TokenType    string     `json:"token_type"`
	Scope        string     `json:"scope"`
	BotUserID    string     `json:"bot_user_id"`
	AppID        string     `json:"app_id"`
	Team         TeamInfo   `json:"team"`
	AuthedUser   AuthedUser `json:"authed_user"`
	ExpiresIn    int        `json:"expires_in,omitempty"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ObtainedAt   time.Time  `json:"-"`
}

// TeamInfo contains team information from OAuth.
type TeamInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AuthedUser is the user-token half of an OAuth response.
type AuthedUser struct {
	ID           string `json:"id"`
	Scope        string `json:"scope"`
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// ExchangeRequest carries the code exchange parameters.
type ExchangeRequest struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Code         string
	RedirectURI  string
	HTTPClient   *http.Client
}

// ExchangeCode exchanges the authorization code for tokens. An ok=false
// response is returned as *APIError carrying Slack's error code.
// Slack's response is not a standard OAuth2 token response, so the exchange
// is a plain form POST instead of oauth2.Config.Exchange.
func ExchangeCode(ctx context.Context, req ExchangeRequest) (*OAuthAccess, error) {
	tokenURL := req.TokenURL
	if tokenURL == "" {
		tokenURL = OAuthTokenURL
	}

	data := url.Values{}
	data.Set("client_id", req.ClientID)
	data.Set("client_secret", req.ClientSecret)
	data.Set("code", req.Code)
	data.Set("redirect_uri", req.RedirectURI)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := req.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var tokenResp struct {
		OAuthAccess

		OK    bool   `json:"ok"`
		Error string `json:"error,omitempty"`
	}

	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if !tokenResp.OK {
		return nil, &APIError{Method: "oauth.v2.access", Code: tokenResp.Error}
	}

	tokenResp.ObtainedAt = time.Now()

	return &tokenResp.OAuthAccess, nil
}

// GenerateState generates a random state string for CSRF protection.
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.URLEncoding.EncodeToString(b), nil
}
