package cmd

import (
	"fmt"

	"github.com/inovacc/slack-mcp/internal/model"
	"github.com/spf13/cobra"
)

var unreadCmd = &cobra.Command{
	Use:   "unread [workspace-id]",
	Short: "Show conversations with activity in the last hour",
	Long: `Show joined channels and DMs whose recent messages are less than an hour
old. Slack's read cursors are not consulted. Without a workspace ID every
workspace is checked and failing ones are reported and skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUnread,
}

func init() {
	rootCmd.AddCommand(unreadCmd)
}

func runUnread(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		workspaces := a.registry.List()

		if len(args) == 1 {
			sess, err := a.registry.Lookup(args[0])
			if err != nil {
				return err
			}

			workspaces = []model.Workspace{sess.Workspace()}
		}

		if len(workspaces) == 0 {
			printEmptyResult(cmd.OutOrStdout(), "workspaces", "slack-mcp workspace add <id> --team-id <team>")
			return nil
		}

		out := cmd.OutOrStdout()
		total := 0

		for _, ws := range workspaces {
			convs, err := a.gateway.GetAllUnreadConversations(cmd.Context(), ws.ID)
			if err != nil {
				if cmd.Context().Err() != nil {
					return err
				}

				_, _ = fmt.Fprintf(out, "%s %s: %v\n", errStyle.Render("✗"), ws.ID, err)

				continue
			}

			for _, c := range convs {
				total++

				_, _ = fmt.Fprintf(out, "%s %s %s\n",
					channelStyle.Render(c.Channel.Name),
					dimStyle.Render(ws.Name),
					countStyle.Render(fmt.Sprintf("%d new", c.UnreadCount)))

				for _, m := range c.Messages {
					_, _ = fmt.Fprintf(out, "  %s: %s\n", m.AuthorID, truncateString(m.Text, 100))
				}
			}
		}

		if total == 0 {
			_, _ = fmt.Fprintln(out, "No unread conversations found.")
		}

		return nil
	})
}
