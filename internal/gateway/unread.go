package gateway

import (
	"context"
	"slices"
	"time"

	"github.com/inovacc/slack-mcp/internal/slack"
)

const (
	unreadHistorySize = 10
	unreadRecentSize  = 5
	unreadWindow      = time.Hour

	DefaultRecentLimit = 20
)

// UnreadConversation is a conversation with recent activity.
type UnreadConversation struct {
	Channel     slack.Channel   `json:"channel"`
	Messages    []slack.Message `json:"messages"`
	UnreadCount int             `json:"unreadCount"`
	WorkspaceID string          `json:"workspaceId"`
}

// Conversation summary types.
const (
	SummaryChannel        = "channel"
	SummaryPrivateChannel = "private_channel"
	SummaryGroupDM        = "group_dm"
	SummaryDM             = "dm"
)

// ConversationSummary describes a conversation and its latest activity.
type ConversationSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	IsMember     bool   `json:"isMember"`
	LastActivity string `json:"lastActivity"`
	UserCount    int    `json:"userCount"`
}

// GetAllUnreadConversations approximates unread state: Slack's read
// cursors are not consulted. A conversation counts as unread when any of its
// five newest messages is less than an hour old, so recently read activity
// is reported and older unread messages are missed. Only joined channels
// and every direct message are checked. A channel that fails is skipped;
// throttling restarts the whole aggregation once.
func (g *Gateway) GetAllUnreadConversations(ctx context.Context, workspaceID string) ([]UnreadConversation, error) {
	return run(ctx, g, "unread conversations", workspaceID, func(ctx context.Context, c *call) ([]UnreadConversation, error) {
		channels, err := c.conversations(ctx, slack.AllConversationTypes, 0)
		if err != nil {
			return nil, err
		}

		cutoff := g.now().Add(-unreadWindow)
		unread := []UnreadConversation{}

		for _, ch := range channels {
			if !ch.IsMember && ch.Kind != slack.KindDirect {
				continue
			}

			history, err := c.history(ctx, ch.ID, unreadHistorySize)
			if err != nil {
				if slack.IsRateLimited(err) || ctx.Err() != nil {
					return nil, err
				}

				g.logger.Debug("skipping channel", "workspace_id", workspaceID, "channel_id", ch.ID, "error", err)

				continue
			}

			recent := history[:min(unreadRecentSize, len(history))]
			if !hasActivitySince(recent, cutoff) {
				continue
			}

			messages := chronological(recent)
			unread = append(unread, UnreadConversation{
				Channel:     ch,
				Messages:    messages,
				UnreadCount: len(messages),
				WorkspaceID: workspaceID,
			})
		}

		return unread, nil
	})
}

func hasActivitySince(messages []slack.Message, cutoff time.Time) bool {
	for _, m := range messages {
		ts, err := slack.ParseTimestamp(m.Timestamp)
		if err == nil && ts.After(cutoff) {
			return true
		}
	}

	return false
}

// ListRecentConversations lists up to limit conversations sorted by latest
// message, newest first. Conversations without history sort last. The user
// directory is loaded once to name direct messages.
func (g *Gateway) ListRecentConversations(ctx context.Context, workspaceID string, limit int) ([]ConversationSummary, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	return run(ctx, g, "recent conversations", workspaceID, func(ctx context.Context, c *call) ([]ConversationSummary, error) {
		channels, err := c.conversations(ctx, slack.AllConversationTypes, limit)
		if err != nil {
			return nil, err
		}

		users, err := c.users(ctx)
		if err != nil {
			return nil, err
		}

		directory := make(map[string]slack.User, len(users))
		for _, u := range users {
			directory[u.ID] = u
		}

		summaries := make([]ConversationSummary, 0, len(channels))

		for _, ch := range channels {
			history, err := c.history(ctx, ch.ID, 1)
			if err != nil {
				if slack.IsRateLimited(err) || ctx.Err() != nil {
					return nil, err
				}

				g.logger.Debug("skipping channel", "workspace_id", workspaceID, "channel_id", ch.ID, "error", err)

				continue
			}

			summary := summarize(ch, directory)
			if len(history) > 0 {
				summary.LastActivity = history[0].Timestamp
			}

			summaries = append(summaries, summary)
		}

		slices.SortStableFunc(summaries, func(a, b ConversationSummary) int {
			return slack.CompareTimestamps(b.LastActivity, a.LastActivity)
		})

		return summaries, nil
	})
}

func summarize(ch slack.Channel, directory map[string]slack.User) ConversationSummary {
	summary := ConversationSummary{
		ID:           ch.ID,
		Name:         ch.Name,
		Type:         SummaryChannel,
		IsMember:     ch.IsMember,
		LastActivity: "0",
	}

	if ch.MemberCount != nil {
		summary.UserCount = *ch.MemberCount
	}

	switch {
	case ch.Kind == slack.KindDirect:
		summary.Type = SummaryDM
		summary.Name = "@" + firstNonEmpty(ch.PeerUserID, ch.ID)

		if u, ok := directory[ch.PeerUserID]; ok {
			summary.Name = "@" + firstNonEmpty(u.DisplayName, u.RealName, u.Handle, u.ID)
		}
	case ch.MultiParty:
		summary.Type = SummaryGroupDM
	case ch.Kind == slack.KindPrivate:
		summary.Type = SummaryPrivateChannel
	}

	return summary
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
