package gateway

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/inovacc/slack-mcp/internal/slack"
)

// ListChannels lists public channels, then private channels, then direct
// messages. Archived conversations are excluded.
func (g *Gateway) ListChannels(ctx context.Context, workspaceID string) ([]slack.Channel, error) {
	return run(ctx, g, "list channels", workspaceID, func(ctx context.Context, c *call) ([]slack.Channel, error) {
		var all []slack.Channel

		for _, kind := range []string{slack.TypePublic, slack.TypePrivate, slack.TypeIM} {
			channels, err := c.conversations(ctx, []string{kind}, 0)
			if err != nil {
				return nil, fmt.Errorf("list %s: %w", kind, err)
			}

			all = append(all, channels...)
		}

		return all, nil
	})
}

// GetMessages returns up to 100 of the channel's latest messages in
// ascending timestamp order. limit > 0 keeps only the most recent limit.
func (g *Gateway) GetMessages(ctx context.Context, workspaceID, channelID string, limit int) ([]slack.Message, error) {
	messages, err := run(ctx, g, "get messages", workspaceID, func(ctx context.Context, c *call) ([]slack.Message, error) {
		if err := c.admit(ctx); err != nil {
			return nil, err
		}

		if _, err := c.client.ConversationInfo(ctx, channelID); err != nil {
			if slack.ErrorCode(err) == slack.ErrorChannelNotFound {
				return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
			}

			return nil, err
		}

		return c.history(ctx, channelID, historyPageSize)
	})
	if err != nil {
		return nil, err
	}

	messages = chronological(messages)

	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}

	return messages, nil
}

// chronological returns a copy of newest-first messages in ascending
// timestamp order.
func chronological(newestFirst []slack.Message) []slack.Message {
	out := slices.Clone(newestFirst)
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b slack.Message) int {
		return slack.CompareTimestamps(a.Timestamp, b.Timestamp)
	})

	return out
}

// SendMessage posts text to a channel, threaded when threadTS is set.
// Slack rejections, including throttling that outlasted the retry, are
// returned as *SendFailedError.
func (g *Gateway) SendMessage(ctx context.Context, workspaceID, channelID, text, threadTS string) (*slack.PostMessageResult, error) {
	res, err := run(ctx, g, "send message", workspaceID, func(ctx context.Context, c *call) (*slack.PostMessageResult, error) {
		if err := c.admit(ctx); err != nil {
			return nil, err
		}

		return c.client.PostMessage(ctx, slack.PostMessageOptions{
			Channel:  channelID,
			Text:     text,
			ThreadTS: threadTS,
		})
	})
	if err == nil {
		return res, nil
	}

	if code := slack.ErrorCode(err); code != "" {
		return nil, &SendFailedError{Channel: channelID, Code: code, Err: err}
	}

	return nil, err
}

// IsChannelNotFound reports whether err means the channel does not exist.
func IsChannelNotFound(err error) bool {
	return errors.Is(err, ErrChannelNotFound)
}
