// ABOUTME: Serve command runs the HTTP API
// ABOUTME: Shuts down gracefully on SIGINT or SIGTERM
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/harper/docqa/internal/api"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the question answering HTTP API.

Routes are mounted under /api/v1:
  GET  /health              index and cache status
  POST /query               {"question": "...", "conversation_id": "..."}
  POST /index-documents     index DOCUMENTS_DIR
  GET  /debug/store-info    index summary
  POST /clear-index         empty the index`,
		Example: `  # Serve on the default address (:8000)
  docqa serve

  # Serve on a custom address with debug logging
  docqa serve --addr 127.0.0.1:9000 --verbose`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.HTTPAddr
			}
			server := api.NewServer(a.pipeline, api.Options{
				Addr:           addr,
				DocumentsDir:   a.cfg.DocumentsDir,
				QueryRateLimit: a.cfg.QueryRateLimit,
				QueryRateBurst: a.cfg.QueryRateBurst,
			}, a.logger)
			return server.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from HTTP_ADDR)")

	return cmd
}
