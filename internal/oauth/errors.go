package oauth

import (
	"errors"
	"fmt"
)

var (
	// ErrFlowInProgress means the callback port is already taken, by a
	// pending flow of this manager or by another process.
	ErrFlowInProgress = errors.New("an authorization flow is already in progress on this port")

	// ErrFlowTimeout means no callback arrived before the flow's deadline.
	ErrFlowTimeout = errors.New("authorization timed out waiting for the OAuth callback")

	// ErrFlowCancelled means the flow was cancelled before a callback arrived.
	ErrFlowCancelled = errors.New("authorization cancelled")

	// ErrTokenVerification means the exchanged token failed auth.test.
	ErrTokenVerification = errors.New("token verification failed")
)

// AuthorizationError is a failed redirect: Slack reported an error, the
// code was missing or the state did not match.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization failed: %s", e.Reason)
}

// TokenExchangeError indicates oauth.v2.access rejected the code.
type TokenExchangeError struct {
	Code string
	Err  error
}

func (e *TokenExchangeError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("token exchange failed: %s", e.Code)
	}

	return fmt.Sprintf("token exchange failed: %v", e.Err)
}

func (e *TokenExchangeError) Unwrap() error {
	return e.Err
}
