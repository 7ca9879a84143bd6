package model

import "time"

// OAuthApp holds the Slack app credentials used to authorize a workspace.
type OAuthApp struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

// String implements fmt.Stringer with the secret redacted.
func (a OAuthApp) String() string {
	return "client " + a.ClientID + " (secret redacted)"
}

// AppsDocument is the persisted shape of oauth-config.json.
type AppsDocument struct {
	Apps map[string]OAuthApp `json:"apps"`
}

// UserToken is a token acquired through the OAuth flow.
type UserToken struct {
	AccessToken  string     `json:"accessToken"`
	UserID       string     `json:"userId"`
	TeamID       string     `json:"teamId"`
	TokenKind    TokenKind  `json:"tokenType,omitempty"`
	RefreshToken string     `json:"refreshToken,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
}

// TokensDocument is the persisted shape of user-tokens.json, keyed by workspace ID.
type TokensDocument map[string]UserToken
