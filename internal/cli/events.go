package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evcraddock/threadline/internal/comment"
	"github.com/evcraddock/threadline/internal/pubsub"
)

func newEventsCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail comment events from Redis",
		Long:  "Subscribe to the configured Redis channel and print each comment event as it is published. Requires redis.addr or TL_REDIS_ADDR.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runEvents(ctx, cmd.OutOrStdout(), count)
		},
	}

	cmd.Flags().IntVar(&count, "count", 0, "exit after this many events (0 to run until interrupted)")

	return cmd
}

func runEvents(ctx context.Context, w io.Writer, count int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Redis.IsConfigured() {
		return fmt.Errorf("redis is not configured (set redis.addr or TL_REDIS_ADDR)")
	}

	client, err := pubsub.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			fmt.Fprintf(w, "warning: closing redis: %v\n", cerr)
		}
	}()

	sub, err := pubsub.Subscribe(ctx, client, cfg.Redis.Channel)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sub.Close(); cerr != nil {
			fmt.Fprintf(w, "warning: closing subscription: %v\n", cerr)
		}
	}()

	for seen := 0; count <= 0 || seen < count; seen++ {
		e, err := sub.Next(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := printEvent(w, e); err != nil {
			return err
		}
	}
	return nil
}

func printEvent(w io.Writer, e comment.Event) error {
	if isJSON() {
		return printJSON(w, e)
	}

	line := fmt.Sprintf("%s  %-16s", e.OccurredAt.Local().Format("15:04:05"), e.Kind)
	if c := e.Comment; c != nil {
		line += fmt.Sprintf("  #%d %s/%s %s", c.ID, c.TargetType, c.TargetID, c.Status)
	}
	if v := e.Vote; v != nil {
		line += fmt.Sprintf("  %s %s", v.Action, v.Type)
	}
	_, err := fmt.Fprintln(w, line)
	return err
}
