package slack

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Conversation types accepted by conversations.list.
const (
	TypePublic  = "public_channel"
	TypePrivate = "private_channel"
	TypeIM      = "im"
	TypeMpIM    = "mpim"
)

// AllConversationTypes lists every conversation type.
var AllConversationTypes = []string{TypePublic, TypePrivate, TypeIM, TypeMpIM}

// ListConversationsOptions configures ListConversations.
type ListConversationsOptions struct {
	Types           []string
	ExcludeArchived bool
	Limit           int
	Cursor          string
}

// ListConversationsResult contains one page of conversations.
type ListConversationsResult struct {
	Channels   []Channel
	NextCursor string
}

// ListConversations lists one page of conversations.
func (c *Client) ListConversations(ctx context.Context, opts ListConversationsOptions) (*ListConversationsResult, error) {
	params := url.Values{}
	params.Set("exclude_archived", strconv.FormatBool(opts.ExcludeArchived))

	if len(opts.Types) > 0 {
		params.Set("types", strings.Join(opts.Types, ","))
	} else {
		params.Set("types", TypePublic)
	}

	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	} else {
		params.Set("limit", "100")
	}

	if opts.Cursor != "" {
		params.Set("cursor", opts.Cursor)
	}

	var resp struct {
		slackResponse

		Channels []conversation `json:"channels"`
	}

	if err := c.call(ctx, http.MethodGet, "conversations.list", params, &resp); err != nil {
		return nil, err
	}

	result := &ListConversationsResult{
		Channels:   make([]Channel, 0, len(resp.Channels)),
		NextCursor: resp.nextCursor(),
	}

	for _, conv := range resp.Channels {
		result.Channels = append(result.Channels, conv.channel())
	}

	return result, nil
}

// ConversationInfo returns one conversation. A missing channel is an
// *APIError with code channel_not_found.
func (c *Client) ConversationInfo(ctx context.Context, channelID string) (*Channel, error) {
	params := url.Values{}
	params.Set("channel", channelID)
	params.Set("include_num_members", "true")

	var resp struct {
		slackResponse

		Channel *conversation `json:"channel"`
	}

	if err := c.call(ctx, http.MethodGet, "conversations.info", params, &resp); err != nil {
		return nil, err
	}

	if resp.Channel == nil {
		return nil, &APIError{Method: "conversations.info", Code: ErrorChannelNotFound}
	}

	ch := resp.Channel.channel()

	return &ch, nil
}

// HistoryOptions configures ConversationHistory.
type HistoryOptions struct {
	Channel string
	Limit   int
	Oldest  string // Unix timestamp
	Latest  string // Unix timestamp
	Cursor  string
}

// HistoryResult contains one page of messages, newest first as Slack returns them.
type HistoryResult struct {
	Messages   []Message
	HasMore    bool
	NextCursor string
}

// ConversationHistory gets messages from a channel.
func (c *Client) ConversationHistory(ctx context.Context, opts HistoryOptions) (*HistoryResult, error) {
	params := url.Values{}
	params.Set("channel", opts.Channel)

	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	} else {
		params.Set("limit", "100")
	}

	if opts.Oldest != "" {
		params.Set("oldest", opts.Oldest)
	}

	if opts.Latest != "" {
		params.Set("latest", opts.Latest)
	}

	if opts.Cursor != "" {
		params.Set("cursor", opts.Cursor)
	}

	var resp struct {
		slackResponse

		Messages []message `json:"messages"`
		HasMore  bool      `json:"has_more"`
	}

	if err := c.call(ctx, http.MethodGet, "conversations.history", params, &resp); err != nil {
		return nil, err
	}

	result := &HistoryResult{
		Messages:   make([]Message, 0, len(resp.Messages)),
		HasMore:    resp.HasMore,
		NextCursor: resp.nextCursor(),
	}

	for _, msg := range resp.Messages {
		result.Messages = append(result.Messages, msg.message(opts.Channel))
	}

	return result, nil
}

// OpenConversation opens (or returns the existing) direct message with the
// given users and returns its channel ID.
func (c *Client) OpenConversation(ctx context.Context, userIDs ...string) (string, error) {
	params := url.Values{}
	params.Set("users", strings.Join(userIDs, ","))

	var resp struct {
		slackResponse

		Channel struct {
			ID string `json:"id"`
		} `json:"channel"`
	}

	if err := c.call(ctx, http.MethodPost, "conversations.open", params, &resp); err != nil {
		return "", err
	}

	return resp.Channel.ID, nil
}

// PostMessageOptions configures PostMessage.
type PostMessageOptions struct {
	Channel  string
	Text     string
	ThreadTS string
}

// PostMessageResult identifies the posted message.
type PostMessageResult struct {
	Channel   string `json:"channel"`
	Timestamp string `json:"ts"`
}

// PostMessage posts a message, optionally as a thread reply.
func (c *Client) PostMessage(ctx context.Context, opts PostMessageOptions) (*PostMessageResult, error) {
	params := url.Values{}
	params.Set("channel", opts.Channel)
	params.Set("text", opts.Text)

	if opts.ThreadTS != "" {
		params.Set("thread_ts", opts.ThreadTS)
	}

	var resp struct {
		slackResponse
		PostMessageResult
	}

	if err := c.call(ctx, http.MethodPost, "chat.postMessage", params, &resp); err != nil {
		return nil, err
	}

	return &resp.PostMessageResult, nil
}
