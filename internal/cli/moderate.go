package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/threadline/internal/comment"
)

func newPendingCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List comments awaiting moderation",
		Long:  "List pending comments, oldest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			pending, err := a.comments.Pending(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), pending)
			}
			return printCommentTable(cmd.OutOrStdout(), pending)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of comments to list")

	return cmd
}

// moderationCmd builds a command that applies action to one comment.
func moderationCmd(use, short string, action func(*app) func(context.Context, int64) (*comment.Comment, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var c *comment.Comment
			if rc := remote(); rc != nil {
				c, err = rc.Moderate(cmd.Context(), id, use)
			} else {
				c, err = moderateLocal(cmd.Context(), id, action)
			}
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), c)
			}
			printComment(cmd.OutOrStdout(), c)
			return nil
		},
	}
}

func moderateLocal(ctx context.Context, id int64, action func(*app) func(context.Context, int64) (*comment.Comment, error)) (*comment.Comment, error) {
	a, err := newApp(ctx, false)
	if err != nil {
		return nil, err
	}
	defer a.Close()
	return action(a)(ctx, id)
}

func newApproveCmd() *cobra.Command {
	return moderationCmd("approve", "Approve a comment", func(a *app) func(context.Context, int64) (*comment.Comment, error) {
		return a.comments.Approve
	})
}

func newRejectCmd() *cobra.Command {
	return moderationCmd("reject", "Reject a comment", func(a *app) func(context.Context, int64) (*comment.Comment, error) {
		return a.comments.Reject
	})
}

func newPinCmd() *cobra.Command {
	return moderationCmd("pin", "Pin a comment to the top of its target", func(a *app) func(context.Context, int64) (*comment.Comment, error) {
		return a.comments.Pin
	})
}

func newUnpinCmd() *cobra.Command {
	return moderationCmd("unpin", "Unpin a comment", func(a *app) func(context.Context, int64) (*comment.Comment, error) {
		return a.comments.Unpin
	})
}

func newAutoApproveCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "auto-approve",
		Short: "Approve pending comments that now pass the safety checks",
		Long:  "Re-run the content safety analyzer over pending comments, oldest first, and approve the ones that pass. Useful after relaxing the filter config.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			approved, err := a.comments.AutoApprove(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), approved)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Approved %d comment(s).\n", len(approved))
			if len(approved) == 0 {
				return nil
			}
			return printCommentTable(cmd.OutOrStdout(), approved)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of pending comments to examine")

	return cmd
}
