package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/inovacc/slack-mcp/internal/application"
	"github.com/spf13/cobra"
)

var (
	flagConfigDir string
	flagLogLevel  string
	flagLogJSON   bool
)

var rootCmd = &cobra.Command{
	Use:   application.AppName,
	Short: "Multi-workspace Slack tool server",
	Long: `slack-mcp holds authenticated sessions to several Slack workspaces and
exposes them as MCP tools over stdio.

Workspaces are added with a bot or user token, or authorized through the
OAuth flow with 'slack-mcp auth login'. The same operations are available
as CLI commands for scripting and troubleshooting.`,
	Version:       application.AppVersion,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "Configuration directory (default: user config dir, or $SLACK_MCP_DIR)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (default: $SLACK_MCP_LOG_LEVEL or info)")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "Write logs as JSON")
}
