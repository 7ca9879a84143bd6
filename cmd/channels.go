package cmd

import (
	"fmt"

	"github.com/inovacc/slack-mcp/internal/slack"
	"github.com/spf13/cobra"
)

var channelsCmd = &cobra.Command{
	Use:   "channels <workspace-id>",
	Short: "List channels, private groups and direct messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runChannels,
}

func init() {
	rootCmd.AddCommand(channelsCmd)
}

func runChannels(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		channels, err := a.gateway.ListChannels(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()

		for i, kind := range []slack.ChannelKind{slack.KindPublic, slack.KindPrivate, slack.KindDirect} {
			var group []slack.Channel

			for _, ch := range channels {
				if ch.Kind == kind {
					group = append(group, ch)
				}
			}

			if i > 0 {
				_, _ = fmt.Fprintln(out)
			}

			printHeader(out, kindTitle(kind), len(group))

			for _, ch := range group {
				prefix := "#"
				if kind == slack.KindDirect {
					prefix = "@"
				}

				member := ""
				if !ch.IsMember {
					member = dimStyle.Render(" (not a member)")
				}

				_, _ = fmt.Fprintf(out, "  %s%s %s%s\n", prefix, ch.Name, dimStyle.Render(ch.ID), member)
			}
		}

		return nil
	})
}

func kindTitle(k slack.ChannelKind) string {
	switch k {
	case slack.KindPrivate:
		return "Private Groups"
	case slack.KindDirect:
		return "Direct Messages"
	default:
		return "Channels"
	}
}
