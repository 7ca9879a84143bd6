package cmd

import (
	"fmt"

	"github.com/inovacc/slack-mcp/internal/slack"
	"github.com/spf13/cobra"
)

var usersAll bool

var usersCmd = &cobra.Command{
	Use:   "users <workspace-id>",
	Short: "List workspace members",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsers,
}

var findUserCmd = &cobra.Command{
	Use:   "find-user <workspace-id> <query>",
	Short: "Find a user by ID, handle, display name or real name",
	Long: `Find a user and their DM channel. Exact matches on handle, display name
and real name win over partial matches; a leading "@" is ignored.

Example:
  slack-mcp find-user acme @alice`,
	Args: cobra.ExactArgs(2),
	RunE: runFindUser,
}

func init() {
	rootCmd.AddCommand(usersCmd, findUserCmd)

	usersCmd.Flags().BoolVar(&usersAll, "all", false, "Include bots and deactivated users")
}

func runUsers(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		users, err := a.gateway.ListUsers(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		var shown []slack.User

		for _, u := range users {
			if usersAll || !(u.IsBot || u.Deleted) {
				shown = append(shown, u)
			}
		}

		out := cmd.OutOrStdout()
		printHeader(out, "Users", len(shown))

		for _, u := range shown {
			name := u.RealName
			if name == "" {
				name = u.Handle
			}

			_, _ = fmt.Fprintf(out, "  %-24s @%-20s %s\n", truncateString(name, 24), u.Handle, dimStyle.Render(u.ID))
		}

		return nil
	})
}

func runFindUser(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		match, err := a.gateway.FindUser(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		if match == nil {
			return fmt.Errorf("no user found matching: %s", args[1])
		}

		out := cmd.OutOrStdout()
		u := match.User

		_, _ = fmt.Fprintf(out, "%s @%s %s\n", channelStyle.Render(u.RealName), u.Handle, dimStyle.Render(u.ID))

		if u.DisplayName != "" {
			_, _ = fmt.Fprintf(out, "  display name: %s\n", u.DisplayName)
		}

		if u.Email != "" {
			_, _ = fmt.Fprintf(out, "  email: %s\n", u.Email)
		}

		dm := match.DMChannelID
		if dm == "" {
			dm = dimStyle.Render("unavailable")
		}

		_, _ = fmt.Fprintf(out, "  dm channel: %s\n", dm)

		return nil
	})
}
