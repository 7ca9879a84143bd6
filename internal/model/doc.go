// Package model defines the data structures shared by the storage layer, the
// Slack session registry and the OAuth flow.
//
// # Workspace
//
// The [Workspace] struct represents one authenticated Slack workspace:
//
//	type Workspace struct {
//	    ID        string    // User-chosen unique identifier
//	    Name      string    // Display name
//	    Token     string    // Bot (xoxb-) or user (xoxp-) token, never logged
//	    TeamID    string    // Slack team ID
//	    TokenKind TokenKind // bot or user
//	    UserID    string    // Authorizing user for user tokens
//	}
//
// # Documents
//
// [ConfigDocument], [AppsDocument] and [TokensDocument] are the on-disk JSON
// shapes of config.json, oauth-config.json and user-tokens.json.
package model
