package cmd

import (
	"fmt"
	"os"

	"github.com/inovacc/slack-mcp/internal/auth"
	"github.com/inovacc/slack-mcp/internal/model"
	"github.com/spf13/cobra"
)

var (
	workspaceAddName   string
	workspaceAddToken  string
	workspaceAddTeamID string
	workspaceAddType   string
	workspaceAddUserID string
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Manage Slack workspaces",
	Long: `Manage the Slack workspaces the server holds sessions for.

Each workspace is identified by a short, user-chosen ID (e.g. "acme") that
every tool and command takes as its workspace argument.`,
}

var workspaceAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Add a workspace with a bot or user token",
	Long: `Add a workspace with an existing token. The connection is tested before
the workspace is saved.

The token is read from --token, then $SLACK_TOKEN, then prompted for when
attached to a terminal.

Examples:
  slack-mcp workspace add acme --name "Acme Corp" --team-id T0123
  slack-mcp workspace add acme-me --team-id T0123 --type user --user-id U0456`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkspaceAdd,
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured workspaces",
	Args:  cobra.NoArgs,
	RunE:  runWorkspaceList,
}

var workspaceRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkspaceRemove,
}

var workspaceTestCmd = &cobra.Command{
	Use:   "test <id>",
	Short: "Test a workspace's token with auth.test",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkspaceTest,
}

func init() {
	rootCmd.AddCommand(workspaceCmd)
	workspaceCmd.AddCommand(workspaceAddCmd, workspaceListCmd, workspaceRemoveCmd, workspaceTestCmd)

	workspaceAddCmd.Flags().StringVar(&workspaceAddName, "name", "", "Display name (default: the ID)")
	workspaceAddCmd.Flags().StringVar(&workspaceAddToken, "token", "", "Bot (xoxb-) or user (xoxp-) token")
	workspaceAddCmd.Flags().StringVar(&workspaceAddTeamID, "team-id", "", "Slack team ID")
	workspaceAddCmd.Flags().StringVar(&workspaceAddType, "type", "bot", "Token type: bot or user")
	workspaceAddCmd.Flags().StringVar(&workspaceAddUserID, "user-id", "", "User the token acts as (user tokens)")
	_ = workspaceAddCmd.MarkFlagRequired("team-id")
}

func runWorkspaceAdd(cmd *cobra.Command, args []string) error {
	kind, err := model.ParseTokenKind(workspaceAddType)
	if err != nil {
		return err
	}

	token, err := auth.NewResolver("Slack token").
		WithFlag("--token", workspaceAddToken).
		WithEnv("SLACK_TOKEN").
		WithPrompt(os.Stdin, cmd.ErrOrStderr()).
		WithValidator(auth.SlackToken).
		WithHint("Pass --token, set SLACK_TOKEN, or run in a terminal to be prompted.").
		Resolve()
	if err != nil {
		return err
	}

	name := workspaceAddName
	if name == "" {
		name = args[0]
	}

	ws := model.Workspace{
		ID:        args[0],
		Name:      name,
		Token:     token.Value,
		TeamID:    workspaceAddTeamID,
		TokenKind: kind,
		UserID:    workspaceAddUserID,
	}

	return withApp(func(a *app) error {
		a.registry.Register(ws)

		ok, err := a.gateway.TestConnection(cmd.Context(), ws.ID)
		if !ok {
			a.registry.Remove(ws.ID)
			return fmt.Errorf("failed to connect to Slack workspace, please check your token: %w", err)
		}

		if err := a.store.SaveWorkspace(ws); err != nil {
			return fmt.Errorf("failed to save workspace: %w", err)
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "%s Added workspace %s (%s)\n", okStyle.Render("✓"), ws.Name, ws.ID)
		_, _ = fmt.Fprintf(out, "%s\n", dimStyle.Render("Token from "+token.Name))

		return nil
	})
}

func runWorkspaceList(cmd *cobra.Command, _ []string) error {
	return withApp(func(a *app) error {
		workspaces, err := a.store.LoadWorkspaces()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()

		if len(workspaces) == 0 {
			printEmptyResult(out, "workspaces", "slack-mcp workspace add <id> --team-id <team>")
			return nil
		}

		printHeader(out, "Workspaces", len(workspaces))

		for _, w := range workspaces {
			line := fmt.Sprintf("  %s  %s  team %s  %s", channelStyle.Render(w.ID), w.Name, w.TeamID, w.Kind())
			if w.UserID != "" {
				line += "  user " + w.UserID
			}

			_, _ = fmt.Fprintln(out, line)
		}

		return nil
	})
}

func runWorkspaceRemove(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		removed, err := a.store.RemoveWorkspace(args[0])
		if err != nil {
			return err
		}

		if !removed {
			return fmt.Errorf("workspace %s not found", args[0])
		}

		a.registry.Remove(args[0])

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s Removed workspace %s\n", okStyle.Render("✓"), args[0])

		return nil
	})
}

func runWorkspaceTest(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		ok, err := a.gateway.TestConnection(cmd.Context(), args[0])
		if !ok {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %v\n", errStyle.Render("✗"), args[0], err)
			return fmt.Errorf("connection test failed for %s", args[0])
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s connected\n", okStyle.Render("✓"), args[0])

		return nil
	})
}
