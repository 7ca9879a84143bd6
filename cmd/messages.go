package cmd

import (
	"fmt"

	"github.com/inovacc/slack-mcp/internal/slack"
	"github.com/spf13/cobra"
)

var messagesLimit int

var messagesCmd = &cobra.Command{
	Use:   "messages <workspace-id> <channel-id>",
	Short: "Show a channel's latest messages, oldest first",
	Args:  cobra.ExactArgs(2),
	RunE:  runMessages,
}

func init() {
	rootCmd.AddCommand(messagesCmd)

	messagesCmd.Flags().IntVarP(&messagesLimit, "limit", "n", 50, "Number of messages to show (at most 100)")
}

func runMessages(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		messages, err := a.gateway.GetMessages(cmd.Context(), args[0], args[1], messagesLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()

		if len(messages) == 0 {
			_, _ = fmt.Fprintln(out, "No messages found in this channel.")
			return nil
		}

		for _, m := range messages {
			when := m.Timestamp
			if t, err := slack.ParseTimestamp(m.Timestamp); err == nil {
				when = t.Local().Format("2006-01-02 15:04")
			}

			thread := ""
			if m.ThreadTimestamp != "" && m.ThreadTimestamp != m.Timestamp {
				thread = dimStyle.Render(" (reply)")
			}

			_, _ = fmt.Fprintf(out, "%s %s%s: %s\n", dimStyle.Render(when), channelStyle.Render(m.AuthorID), thread, m.Text)
		}

		return nil
	})
}
