package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evcraddock/threadline/internal/web"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the JSON API",
		Long:  "Start an HTTP server exposing the comment lifecycle, voting, analysis and statistics as JSON. Stops gracefully on SIGINT or SIGTERM.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, port, cmd.Flags().Changed("port"))
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "port to listen on (default from config)")

	return cmd
}

func runServe(ctx context.Context, port int, portSet bool) error {
	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if !portSet {
		port = a.cfg.Server.Port
	}

	srv := web.NewServer(a.comments, a.votes, a.analyzer, web.Options{MaxDepth: a.maxDepth()})
	return srv.Run(ctx, port)
}
