package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrChannelNotFound is returned when a channel does not exist or is not visible.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrRateLimited is returned once a throttled operation has used its one retry.
	ErrRateLimited = errors.New("rate limited after retry")
)

// SendFailedError indicates Slack rejected a post.
type SendFailedError struct {
	Channel string
	Code    string
	Err     error
}

func (e *SendFailedError) Error() string {
	return fmt.Sprintf("failed to send message to %s: %s", e.Channel, e.Code)
}

func (e *SendFailedError) Unwrap() error {
	return e.Err
}
