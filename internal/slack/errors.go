package slack

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Error codes returned by the Web API that callers branch on.
const (
	ErrorRateLimited     = "ratelimited"
	ErrorChannelNotFound = "channel_not_found"
	ErrorNotInChannel    = "not_in_channel"
	ErrorUserNotFound    = "user_not_found"
)

// APIError is an ok=false response from the Web API.
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack API error: %s: %s", e.Method, e.Code)
}

// RateLimitedError is a throttling signal, from HTTP 429 or an
// error=ratelimited response. RetryAfter is zero when Slack did not say.
type RateLimitedError struct {
	Method     string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("slack API rate limited: %s (retry after %s)", e.Method, e.RetryAfter)
	}

	return fmt.Sprintf("slack API rate limited: %s", e.Method)
}

// ErrorCode returns the Slack error code carried by err, or "" if there is none.
func ErrorCode(err error) string {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return ErrorRateLimited
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}

	return ""
}

// IsRateLimited reports whether err carries a throttling signal.
func IsRateLimited(err error) bool {
	var rl *RateLimitedError
	return errors.As(err, &rl)
}

func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	secs, err := strconv.Atoi(value)
	if err != nil || secs < 0 {
		return 0
	}

	return time.Duration(secs) * time.Second
}
