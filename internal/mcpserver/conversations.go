package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/inovacc/slack-mcp/internal/gateway"
	"github.com/inovacc/slack-mcp/internal/model"
	"github.com/inovacc/slack-mcp/internal/slack"
)

const (
	defaultMessageLimit = 50
	unreadPreview       = 3
	previewLength       = 100
	messageTimeLayout   = "2006-01-02 15:04:05"
)

func (s *Server) getUnreadConversations(ctx context.Context, in UnreadInput) (string, error) {
	var workspaces []model.Workspace

	if in.WorkspaceID != "" {
		if sess, err := s.registry.Lookup(in.WorkspaceID); err == nil {
			workspaces = append(workspaces, sess.Workspace())
		}
	} else {
		workspaces = s.registry.List()
	}

	if len(workspaces) == 0 {
		return "", errors.New("no workspaces found")
	}

	type named struct {
		gateway.UnreadConversation
		workspaceName string
	}

	var all []named

	for _, ws := range workspaces {
		convs, err := s.gateway.GetAllUnreadConversations(ctx, ws.ID)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}

			s.logger.Warn("skipping workspace in unread aggregation", "workspace", ws, "error", err)

			continue
		}

		for _, c := range convs {
			all = append(all, named{UnreadConversation: c, workspaceName: ws.Name})
		}
	}

	if len(all) == 0 {
		return "No unread conversations found.", nil
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Found %d unread conversations:\n", len(all))

	for _, c := range all {
		fmt.Fprintf(&b, "\n%s: #%s (%s)\n", kindLabel(c.Channel.Kind), c.Channel.Name, c.workspaceName)
		fmt.Fprintf(&b, "Unread: %d messages\n", c.UnreadCount)
		b.WriteString("Recent messages:\n")

		recent := c.Messages[max(0, len(c.Messages)-unreadPreview):]
		for _, m := range recent {
			fmt.Fprintf(&b, "  %s: %s\n", m.AuthorID, truncate(m.Text, previewLength))
		}
	}

	return b.String(), nil
}

func (s *Server) getChannels(ctx context.Context, in WorkspaceInput) (string, error) {
	channels, err := s.gateway.ListChannels(ctx, in.WorkspaceID)
	if err != nil {
		return "", err
	}

	var public, private, direct []slack.Channel

	for _, ch := range channels {
		switch ch.Kind {
		case slack.KindPublic:
			public = append(public, ch)
		case slack.KindPrivate:
			private = append(private, ch)
		case slack.KindDirect:
			direct = append(direct, ch)
		}
	}

	var b strings.Builder

	section := func(title, prefix string, list []slack.Channel) {
		fmt.Fprintf(&b, "%s (%d):\n", title, len(list))

		for _, ch := range list {
			fmt.Fprintf(&b, "  %s%s (%s)\n", prefix, ch.Name, ch.ID)
		}
	}

	section("Channels", "#", public)
	b.WriteString("\n")
	section("Private Groups", "#", private)
	b.WriteString("\n")
	section("Direct Messages", "@", direct)

	return strings.TrimRight(b.String(), "\n"), nil
}

func (s *Server) getMessages(ctx context.Context, in GetMessagesInput) (string, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = defaultMessageLimit
	}

	messages, err := s.gateway.GetMessages(ctx, in.WorkspaceID, in.ChannelID, limit)
	if err != nil {
		return "", err
	}

	if len(messages) == 0 {
		return "No messages found in this channel.", nil
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Messages (showing last %d):\n", len(messages))

	for _, m := range messages {
		fmt.Fprintf(&b, "\n[%s] %s: %s", messageTime(m.Timestamp), m.AuthorID, m.Text)
	}

	return b.String(), nil
}

func (s *Server) sendMessage(ctx context.Context, in SendMessageInput) (string, error) {
	if err := required("channelId", in.ChannelID, "text", in.Text); err != nil {
		return "", err
	}

	if _, err := s.gateway.SendMessage(ctx, in.WorkspaceID, in.ChannelID, in.Text, in.ThreadTS); err != nil {
		return "", err
	}

	return "Message sent successfully to channel " + in.ChannelID, nil
}

func (s *Server) getRecentConversations(ctx context.Context, in RecentConversationsInput) (string, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = gateway.DefaultRecentLimit
	}

	convs, err := s.gateway.ListRecentConversations(ctx, in.WorkspaceID, limit)
	if err != nil {
		return "", err
	}

	if convs == nil {
		convs = []gateway.ConversationSummary{}
	}

	return renderJSON(struct {
		WorkspaceID   string                        `json:"workspaceId"`
		Count         int                           `json:"count"`
		Conversations []gateway.ConversationSummary `json:"conversations"`
	}{in.WorkspaceID, len(convs), convs})
}

func kindLabel(k slack.ChannelKind) string {
	switch k {
	case slack.KindDirect:
		return "DM"
	case slack.KindPrivate:
		return "Group"
	default:
		return "Channel"
	}
}

func messageTime(ts string) string {
	t, err := slack.ParseTimestamp(ts)
	if err != nil {
		return ts
	}

	return t.Local().Format(messageTimeLayout)
}

func truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}

	return string(runes[:n]) + "..."
}
