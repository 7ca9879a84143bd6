package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	// DefaultBaseURL is the Slack Web API root.
	DefaultBaseURL = "https://slack.com/api/"

	defaultTimeout = 30 * time.Second
)

// Client is a Slack Web API client bound to one token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOptions configures a Slack client.
type ClientOptions struct {
	Logger *slog.Logger

	// BaseURL overrides DefaultBaseURL (tests point it at httptest servers)
	BaseURL string

	// HTTPClient supplies the underlying transport and timeout
	HTTPClient *http.Client
}

// NewClient creates a new Slack API client.
// The token is attached by an oauth2 transport and never stored on Client.
func NewClient(token string, opts ClientOptions) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	var (
		base    http.RoundTripper
		timeout = defaultTimeout
	)

	if opts.HTTPClient != nil {
		base = opts.HTTPClient.Transport
		if opts.HTTPClient.Timeout > 0 {
			timeout = opts.HTTPClient.Timeout
		}
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
				Base:   base,
			},
		},
		logger: logger,
	}
}

// ResponseMetadata contains cursor information.
type ResponseMetadata struct {
	NextCursor string `json:"next_cursor"`
}

// slackResponse is the common Slack API response structure.
type slackResponse struct {
	OK               bool              `json:"ok"`
	Error            string            `json:"error,omitempty"`
	ResponseMetadata *ResponseMetadata `json:"response_metadata,omitempty"`
}

func (r slackResponse) nextCursor() string {
	if r.ResponseMetadata == nil {
		return ""
	}

	return r.ResponseMetadata.NextCursor
}

// envelope lets call check ok/error on any response struct embedding slackResponse.
type envelope interface {
	status() slackResponse
}

func (r slackResponse) status() slackResponse { return r }

// AuthTestResult contains auth test information.
type AuthTestResult struct {
	URL    string `json:"url"`
	Team   string `json:"team"`
	User   string `json:"user"`
	TeamID string `json:"team_id"`
	UserID string `json:"user_id"`
	BotID  string `json:"bot_id"`
}

// AuthTest tests the authentication token.
func (c *Client) AuthTest(ctx context.Context) (*AuthTestResult, error) {
	var resp struct {
		slackResponse
		AuthTestResult
	}

	if err := c.call(ctx, http.MethodGet, "auth.test", nil, &resp); err != nil {
		return nil, err
	}

	return &resp.AuthTestResult, nil
}

// call issues one Web API request and decodes the response into result.
// GET sends params in the query string, POST as a form body.
func (c *Client) call(ctx context.Context, httpMethod, method string, params url.Values, result envelope) error {
	u := c.baseURL + method

	var body io.Reader

	switch {
	case httpMethod == http.MethodPost:
		body = strings.NewReader(params.Encode())
	case len(params) > 0:
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, u, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if httpMethod == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	c.logger.Debug("slack API request", "method", method)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: failed to make request: %w", method, err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		c.logger.Debug("slack API throttled", "method", method, "retry_after", retryAfter)

		return &RateLimitedError{Method: method, RetryAfter: retryAfter}
	}

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s: API returned %d: %s", method, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", method, err)
	}

	status := result.status()
	if !status.OK {
		if status.Error == ErrorRateLimited {
			return &RateLimitedError{
				Method:     method,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			}
		}

		return &APIError{Method: method, Code: status.Error}
	}

	return nil
}
