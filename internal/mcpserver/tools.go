package mcpserver

func (s *Server) registerTools() {
	addTool(s, "add_workspace",
		"Add a new Slack workspace configuration (bot or user token)", s.addWorkspace)
	addTool(s, "authenticate_user_only",
		"Authenticate as user-only (no bot required) - for apps configured without bot users", s.authenticateUserOnly)
	addTool(s, "authenticate_user",
		"Authenticate through OAuth with bot scopes and store the resulting token as a workspace", s.authenticateUser)
	addTool(s, "remove_workspace",
		"Remove a Slack workspace configuration", s.removeWorkspace)
	addTool(s, "list_workspaces",
		"List all configured Slack workspaces", s.listWorkspaces)
	addTool(s, "get_unread_conversations",
		"Get unread conversations from DMs, channels, and groups", s.getUnreadConversations)
	addTool(s, "get_channels",
		"Get all channels, DMs, and groups from a workspace", s.getChannels)
	addTool(s, "get_messages",
		"Get messages from a specific channel", s.getMessages)
	addTool(s, "send_message",
		"Send a message to a channel or DM", s.sendMessage)
	addTool(s, "get_users",
		"Get all users from a workspace", s.getUsers)
	addTool(s, "get_user_info",
		"Get information about a specific user", s.getUserInfo)
	addTool(s, "get_dm_channel_by_user",
		"Get DM channel ID for a specific user (by ID, username, or display name)", s.getDMChannelByUser)
	addTool(s, "find_user",
		"Smart user search with DM channel - find by name, username, or partial match", s.findUser)
	addTool(s, "get_recent_conversations",
		"Get recent conversations with user names and metadata", s.getRecentConversations)
	addTool(s, "resolve_user_ids",
		"Bulk resolve user IDs to user information", s.resolveUserIDs)
}

type AddWorkspaceInput struct {
	ID        string `json:"id" jsonschema:"Unique identifier for the workspace"`
	Name      string `json:"name" jsonschema:"Display name for the workspace"`
	Token     string `json:"token" jsonschema:"Slack Bot Token (xoxb-...) or User Token (xoxp-...)"`
	TeamID    string `json:"teamId" jsonschema:"Slack Team ID"`
	TokenType string `json:"tokenType,omitempty" jsonschema:"Type of token - bot or user (default bot)"`
	UserID    string `json:"userId,omitempty" jsonschema:"User ID (required for user tokens)"`
}

type AuthenticateInput struct {
	WorkspaceID   string `json:"workspaceId" jsonschema:"Unique identifier for the workspace (must match OAuth config file)"`
	WorkspaceName string `json:"workspaceName" jsonschema:"Display name for the workspace"`
}

type WorkspaceInput struct {
	WorkspaceID string `json:"workspaceId" jsonschema:"Workspace ID"`
}

type ListWorkspacesInput struct{}

type UnreadInput struct {
	WorkspaceID string `json:"workspaceId,omitempty" jsonschema:"Specific workspace ID (if not provided, gets from all workspaces)"`
}

type GetMessagesInput struct {
	WorkspaceID string `json:"workspaceId" jsonschema:"Workspace ID"`
	ChannelID   string `json:"channelId" jsonschema:"Channel ID to get messages from"`
	Limit       int    `json:"limit,omitempty" jsonschema:"Maximum number of messages to retrieve (default 50)"`
}

type SendMessageInput struct {
	WorkspaceID string `json:"workspaceId" jsonschema:"Workspace ID to send message to"`
	ChannelID   string `json:"channelId" jsonschema:"Channel ID to send message to"`
	Text        string `json:"text" jsonschema:"Message text to send"`
	ThreadTS    string `json:"threadTs,omitempty" jsonschema:"Thread timestamp to reply to (optional)"`
}

type UserInfoInput struct {
	WorkspaceID string `json:"workspaceId" jsonschema:"Workspace ID"`
	UserID      string `json:"userId" jsonschema:"User ID to get information for"`
}

type DMChannelInput struct {
	WorkspaceID    string `json:"workspaceId" jsonschema:"Workspace ID"`
	UserIdentifier string `json:"userIdentifier" jsonschema:"User ID, username, or display name (@username or username)"`
}

type FindUserInput struct {
	WorkspaceID string `json:"workspaceId" jsonschema:"Workspace ID"`
	Query       string `json:"query" jsonschema:"Search query (name, username, or partial match)"`
}

type RecentConversationsInput struct {
	WorkspaceID     string `json:"workspaceId" jsonschema:"Workspace ID"`
	Limit           int    `json:"limit,omitempty" jsonschema:"Number of conversations to return (default 20)"`
	IncludeUserInfo *bool  `json:"includeUserInfo,omitempty" jsonschema:"Include resolved user names (always on)"`
}

type ResolveUserIDsInput struct {
	WorkspaceID string   `json:"workspaceId" jsonschema:"Workspace ID"`
	UserIDs     []string `json:"userIds" jsonschema:"Array of user IDs to resolve"`
}
