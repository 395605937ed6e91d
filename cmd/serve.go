package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rtzll/viralscripter/internal"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the workflow as a local HTTP API",
	Long: `Serve the analyze -> generate workflow as a JSON API for a browser or
other front end. One workflow is shared by all clients.

Endpoints:
  GET    /healthz           liveness
  GET    /api/state         current workflow state
  POST   /api/analyze       {"transcript": "..."}
  POST   /api/generate      {"topic": "...", "notes": "..."}
  POST   /api/reset         start over
  GET    /api/credential    {"configured": bool}
  PUT    /api/credential    {"apiKey": "...", "persist": bool}
  DELETE /api/credential    forget the key
  GET    /api/events        websocket feed of state snapshots
  *      /mcp               MCP tools over streamable HTTP`,
	Example: `  # Serve on the configured address (default 127.0.0.1:8080)
  viralscripter serve

  # Another port
  viralscripter serve --addr 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.ValidateModelRequirements(cmd, config); err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			config.ServeAddr, _ = cmd.Flags().GetString("addr")
		}

		app, err := newApp()
		if err != nil {
			return err
		}
		httpServer := internal.NewHTTPServer(app, internal.NewMCPServer(app, version))

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			return httpServer.Serve(ctx, config.ServeAddr)
		})
		g.Go(func() error {
			// Leave the workflow idle on shutdown so no call outlives the process
			<-ctx.Done()
			app.Controller().Reset()
			return nil
		})

		if !config.Quiet {
			fmt.Fprintf(os.Stderr, "Serving on http://%s (ctrl+c to stop)\n", config.ServeAddr)
		}
		if err := g.Wait(); err != nil && err != context.Canceled {
			return err
		}
		return nil
	},
}

func init() {
	internal.AddModelFlags(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}
