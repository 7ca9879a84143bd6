package cmd

import (
	"fmt"
	"os"

	"github.com/cli/browser"
	"github.com/inovacc/slack-mcp/internal/auth"
	"github.com/inovacc/slack-mcp/internal/model"
	"github.com/inovacc/slack-mcp/internal/oauth"
	"github.com/inovacc/slack-mcp/internal/slack"
	"github.com/spf13/cobra"
)

var (
	authAppClientID     string
	authAppClientSecret string

	authLoginName string
	authLoginBot  bool
	authLoginOpen bool
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "OAuth app credentials and authorization",
	Long: `Configure Slack app credentials and authorize workspaces through OAuth.

The app's redirect URL must be https://localhost:<port>/oauth/callback
(port 3001 unless SLACK_MCP_OAUTH_PORT is set). The callback listener uses a
self-signed certificate generated on first use.`,
}

var authAppCmd = &cobra.Command{
	Use:   "app",
	Short: "Manage OAuth app credentials",
}

var authAppSetCmd = &cobra.Command{
	Use:   "set <workspace-id>",
	Short: "Store the Slack app client ID and secret for a workspace",
	Long: `Store the client ID and secret of the Slack app used to authorize a
workspace. The secret is read from --client-secret, then
$SLACK_CLIENT_SECRET, then prompted for when attached to a terminal.

Example:
  slack-mcp auth app set acme --client-id 1234.5678`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthAppSet,
}

var authAppRemoveCmd = &cobra.Command{
	Use:   "remove <workspace-id>",
	Short: "Remove stored app credentials",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthAppRemove,
}

var authLoginCmd = &cobra.Command{
	Use:   "login <workspace-id>",
	Short: "Authorize a workspace through the browser",
	Long: `Start the OAuth flow and wait for the browser redirect. On success the
token is verified, stored, and the workspace is added.

By default only user scopes are requested and the workspace acts as you.
With --bot the bot scopes are requested and the bot token is stored.

Examples:
  slack-mcp auth login acme --open
  slack-mcp auth login acme-bot --bot --name "Acme (bot)"`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthLogin,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authAppCmd, authLoginCmd)
	authAppCmd.AddCommand(authAppSetCmd, authAppRemoveCmd)

	authAppSetCmd.Flags().StringVar(&authAppClientID, "client-id", "", "Slack app client ID")
	authAppSetCmd.Flags().StringVar(&authAppClientSecret, "client-secret", "", "Slack app client secret")
	_ = authAppSetCmd.MarkFlagRequired("client-id")

	authLoginCmd.Flags().StringVar(&authLoginName, "name", "", "Display name (default: the workspace ID)")
	authLoginCmd.Flags().BoolVar(&authLoginBot, "bot", false, "Request bot scopes and store the bot token")
	authLoginCmd.Flags().BoolVar(&authLoginOpen, "open", false, "Open the authorization URL in the default browser")
}

func runAuthAppSet(cmd *cobra.Command, args []string) error {
	secret, err := auth.NewResolver("Client secret").
		WithFlag("--client-secret", authAppClientSecret).
		WithEnv("SLACK_CLIENT_SECRET").
		WithPrompt(os.Stdin, cmd.ErrOrStderr()).
		Resolve()
	if err != nil {
		return err
	}

	return withApp(func(a *app) error {
		creds := model.OAuthApp{ClientID: authAppClientID, ClientSecret: secret.Value}
		if err := a.store.SaveApp(args[0], creds); err != nil {
			return fmt.Errorf("failed to save app credentials: %w", err)
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s Saved %s for %s\n", okStyle.Render("✓"), creds, args[0])

		return nil
	})
}

func runAuthAppRemove(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		removed, err := a.store.RemoveApp(args[0])
		if err != nil {
			return err
		}

		if !removed {
			return fmt.Errorf("no app credentials stored for %s", args[0])
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s Removed app credentials for %s\n", okStyle.Render("✓"), args[0])

		return nil
	})
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	id := args[0]

	name := authLoginName
	if name == "" {
		name = id
	}

	return withApp(func(a *app) error {
		creds, err := a.store.GetApp(id)
		if err != nil {
			return err
		}

		req := oauth.Request{WorkspaceID: id, ClientID: creds.ClientID, ClientSecret: creds.ClientSecret}
		if authLoginBot {
			req.Scopes = slack.DefaultScopes
		} else {
			req.UserScopes = slack.DefaultScopes
		}

		pending, err := a.oauth.Start(cmd.Context(), req)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintln(out, headerStyle.Render("Authorize slack-mcp"))
		_, _ = fmt.Fprintf(out, "\n%s\n\n", pending.URL())
		_, _ = fmt.Fprintln(out, warnStyle.Render("The callback uses a self-signed certificate; your browser will ask you to proceed to localhost."))
		_, _ = fmt.Fprintf(out, "%s\n", dimStyle.Render(fmt.Sprintf("Waiting for the redirect (timeout %s)...", a.cfg.OAuthTimeout)))

		if authLoginOpen {
			if err := browser.OpenURL(pending.URL()); err != nil {
				a.logger.Warn("failed to open browser", "error", err)
			}
		}

		res, err := pending.Wait(cmd.Context())
		if err != nil {
			pending.Cancel()
			return err
		}

		ws := model.Workspace{
			ID:        id,
			Name:      name,
			Token:     res.AccessToken,
			TeamID:    res.TeamID,
			TokenKind: res.TokenKind,
			UserID:    res.UserID,
		}

		if err := a.store.SaveWorkspace(ws); err != nil {
			return fmt.Errorf("failed to save workspace: %w", err)
		}

		_, _ = fmt.Fprintf(out, "%s Authorized %s as %s (%s token, team %s)\n",
			okStyle.Render("✓"), ws.ID, ws.UserID, ws.Kind(), ws.TeamID)

		return nil
	})
}
