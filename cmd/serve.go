package cmd

import (
	"context"
	"errors"

	"github.com/inovacc/slack-mcp/internal/mcpserver"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the Slack tools over MCP stdio",
	Long: `Start the MCP server on stdin/stdout.

Every persisted workspace is registered at startup. Logs are written to
stderr. The server runs until the client disconnects or the process is
interrupted; pending OAuth flows are cancelled on exit.

Example client configuration:
  {"command": "slack-mcp", "args": ["serve"]}`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	return withApp(func(a *app) error {
		srv := mcpserver.New(mcpserver.Deps{
			Registry: a.registry,
			Gateway:  a.gateway,
			Store:    a.store,
			OAuth:    a.oauth,
			Logger:   a.logger,
		})

		err := srv.Run(cmd.Context())

		a.oauth.Close()
		srv.Wait()

		a.logger.Info("mcp server stopped")

		if errors.Is(err, context.Canceled) {
			return nil
		}

		return err
	})
}
