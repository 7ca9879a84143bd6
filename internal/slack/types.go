package slack

// ChannelKind classifies a conversation.
type ChannelKind string

const (
	KindPublic  ChannelKind = "public_channel"
	KindPrivate ChannelKind = "private_channel"
	KindDirect  ChannelKind = "direct_message"
)

// Channel is a read-only projection of a Slack conversation.
type Channel struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Kind     ChannelKind `json:"kind"`
	IsMember bool        `json:"isMember"`

	// MemberCount is nil when Slack did not report it (DMs, listings without counts)
	MemberCount *int `json:"memberCount,omitempty"`

	// PeerUserID is the other participant of a direct message
	PeerUserID string `json:"peerUserId,omitempty"`

	// MultiParty marks group DMs, which are reported as private channels
	MultiParty bool `json:"multiParty,omitempty"`
}

// Message is a read-only projection of a Slack message.
type Message struct {
	Timestamp       string `json:"ts"`
	Text            string `json:"text"`
	AuthorID        string `json:"authorId"`
	ChannelID       string `json:"channelId"`
	ThreadTimestamp string `json:"threadTs,omitempty"`
	Subtype         string `json:"subtype,omitempty"`
	DisplayName     string `json:"displayName,omitempty"`
	BotID           string `json:"botId,omitempty"`
}

// User is a read-only projection of a Slack user.
type User struct {
	ID          string `json:"id"`
	Handle      string `json:"name"`
	RealName    string `json:"realName,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
	IsBot       bool   `json:"isBot"`
	Deleted     bool   `json:"deleted,omitempty"`
}

// conversation is the wire shape of conversations.list / conversations.info entries.
type conversation struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsChannel  bool   `json:"is_channel"`
	IsGroup    bool   `json:"is_group"`
	IsIM       bool   `json:"is_im"`
	IsMpIM     bool   `json:"is_mpim"`
	IsPrivate  bool   `json:"is_private"`
	IsArchived bool   `json:"is_archived"`
	IsMember   bool   `json:"is_member"`
	NumMembers *int   `json:"num_members,omitempty"`
	User       string `json:"user,omitempty"`
}

func (c conversation) channel() Channel {
	ch := Channel{
		ID:          c.ID,
		Name:        c.Name,
		IsMember:    c.IsMember,
		MemberCount: c.NumMembers,
		MultiParty:  c.IsMpIM,
	}

	switch {
	case c.IsIM:
		ch.Kind = KindDirect
		ch.PeerUserID = c.User
		// DMs are always joined.
		ch.IsMember = true

		if ch.Name == "" {
			ch.Name = c.User
		}
	case c.IsMpIM, c.IsPrivate, c.IsGroup:
		ch.Kind = KindPrivate
	default:
		ch.Kind = KindPublic
	}

	if ch.Name == "" {
		ch.Name = c.ID
	}

	return ch
}

// message is the wire shape of a conversations.history entry.
type message struct {
	Type     string `json:"type"`
	User     string `json:"user"`
	Text     string `json:"text"`
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts,omitempty"`
	Subtype  string `json:"subtype,omitempty"`
	Username string `json:"username,omitempty"`
	BotID    string `json:"bot_id,omitempty"`
}

func (m message) message(channelID string) Message {
	author := m.User
	if author == "" {
		author = m.BotID
	}

	if author == "" {
		author = "unknown"
	}

	return Message{
		Timestamp:       m.TS,
		Text:            m.Text,
		AuthorID:        author,
		ChannelID:       channelID,
		ThreadTimestamp: m.ThreadTS,
		Subtype:         m.Subtype,
		DisplayName:     m.Username,
		BotID:           m.BotID,
	}
}

// member is the wire shape of users.list / users.info entries.
type member struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RealName string `json:"real_name"`
	Deleted  bool   `json:"deleted"`
	IsBot    bool   `json:"is_bot"`
	Profile  struct {
		RealName    string `json:"real_name"`
		DisplayName string `json:"display_name"`
		Email       string `json:"email"`
	} `json:"profile"`
}

func (m member) user() User {
	realName := m.RealName
	if realName == "" {
		realName = m.Profile.RealName
	}

	return User{
		ID:          m.ID,
		Handle:      m.Name,
		RealName:    realName,
		DisplayName: m.Profile.DisplayName,
		Email:       m.Profile.Email,
		IsBot:       m.IsBot,
		Deleted:     m.Deleted,
	}
}
