package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/threadline/internal/comment"
	"github.com/evcraddock/threadline/internal/mention"
)

func newMentionsCmd() *cobra.Command {
	var (
		pending bool
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "mentions @user",
		Short: "List the mentions of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := mention.ParseToken("@" + strings.TrimPrefix(args[0], "@"))
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			var notified *bool
			if pending {
				notified = new(bool)
			}
			mentions, err := a.comments.MentionsOf(cmd.Context(), user, notified, limit)
			if err != nil {
				return err
			}
			if isJSON() {
				if mentions == nil {
					mentions = []*comment.Mention{}
				}
				return printJSON(cmd.OutOrStdout(), mentions)
			}

			unnotified, err := a.comments.UnnotifiedCount(cmd.Context(), user)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "@%s: %d awaiting notification\n", user, unnotified)
			return printMentionTable(cmd.OutOrStdout(), mentions)
		},
	}

	cmd.Flags().BoolVar(&pending, "pending", false, "only mentions not yet notified")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of mentions")

	return cmd
}

func newNotifyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Retry queued mention notifications",
		Long:  "Deliver mention notifications that are still queued, such as those whose delivery failed. Mentions on comments that are not approved stay queued.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			sent, err := a.listener.Sweep(cmd.Context(), limit)
			if isJSON() {
				if jerr := printJSON(cmd.OutOrStdout(), map[string]int{"sent": sent}); jerr != nil {
					return jerr
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Sent %d notification(s).\n", sent)
			}
			return err
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of queued mentions to examine")

	return cmd
}
