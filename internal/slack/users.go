package slack

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ListUsersOptions configures ListUsers.
type ListUsersOptions struct {
	Cursor string
	Limit  int
}

// ListUsersResult contains one page of users.
type ListUsersResult struct {
	Users      []User
	NextCursor string
}

// ListUsers lists one page of workspace users.
func (c *Client) ListUsers(ctx context.Context, opts ListUsersOptions) (*ListUsersResult, error) {
	params := url.Values{}

	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	} else {
		params.Set("limit", "200")
	}

	if opts.Cursor != "" {
		params.Set("cursor", opts.Cursor)
	}

	var resp struct {
		slackResponse

		Members []member `json:"members"`
	}

	if err := c.call(ctx, http.MethodGet, "users.list", params, &resp); err != nil {
		return nil, err
	}

	result := &ListUsersResult{
		Users:      make([]User, 0, len(resp.Members)),
		NextCursor: resp.nextCursor(),
	}

	for _, m := range resp.Members {
		result.Users = append(result.Users, m.user())
	}

	return result, nil
}

// UserInfo gets information about a user.
func (c *Client) UserInfo(ctx context.Context, userID string) (*User, error) {
	params := url.Values{}
	params.Set("user", userID)

	var resp struct {
		slackResponse

		User *member `json:"user"`
	}

	if err := c.call(ctx, http.MethodGet, "users.info", params, &resp); err != nil {
		return nil, err
	}

	if resp.User == nil {
		return nil, &APIError{Method: "users.info", Code: ErrorUserNotFound}
	}

	u := resp.User.user()

	return &u, nil
}
