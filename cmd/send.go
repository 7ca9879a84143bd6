package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var sendThread string

var sendCmd = &cobra.Command{
	Use:   "send <workspace-id> <channel-id> <text...>",
	Short: "Send a message to a channel or DM",
	Long: `Send a message. Remaining arguments are joined with spaces.

Examples:
  slack-mcp send acme C0123 "deploy finished"
  slack-mcp send acme C0123 --thread 1700000000.000100 on it`,
	Args: cobra.MinimumNArgs(3),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVar(&sendThread, "thread", "", "Thread timestamp to reply to")
}

func runSend(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		res, err := a.gateway.SendMessage(cmd.Context(), args[0], args[1], strings.Join(args[2:], " "), sendThread)
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s Sent to %s at %s\n", okStyle.Render("✓"), res.Channel, res.Timestamp)

		return nil
	})
}
