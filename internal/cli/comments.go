package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/threadline/internal/comment"
)

func newAddCmd() *cobra.Command {
	var (
		parent int64
		in     comment.CreateInput
	)

	cmd := &cobra.Command{
		Use:   `add <target-type> <target-id> "text"`,
		Short: "Post a comment",
		Long:  "Post a comment on a target. Content that fails the safety checks is held for moderation.",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.TargetType = args[0]
			in.TargetID = args[1]
			in.Content = strings.Join(args[2:], " ")
			if strings.TrimSpace(in.Content) == "" {
				return fmt.Errorf("comment text is required")
			}
			if parent > 0 {
				in.ParentID = &parent
			}

			var (
				c   *comment.Comment
				err error
			)
			if rc := remote(); rc != nil {
				c, err = rc.CreateComment(cmd.Context(), in)
			} else {
				c, err = createLocal(cmd.Context(), in)
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

	cmd.Flags().Int64Var(&parent, "parent", 0, "ID of the comment being replied to")
	cmd.Flags().StringVar(&in.AuthorID, "author-id", "", "registered author ID")
	cmd.Flags().StringVar(&in.AuthorName, "author-name", "", "display name for anonymous authors")
	cmd.Flags().StringVar(&in.AuthorEmail, "author-email", "", "email for anonymous authors")
	cmd.Flags().StringVar(&in.AuthorIP, "author-ip", "", "client address to record")

	return cmd
}

func createLocal(ctx context.Context, in comment.CreateInput) (*comment.Comment, error) {
	a, err := newApp(ctx, false)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	if in.ParentID != nil {
		p, err := a.comments.Get(ctx, *in.ParentID)
		if err == nil {
			ok, err := a.comments.CanReply(ctx, p, a.maxDepth())
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("comment %d is at the maximum reply depth", *in.ParentID)
			}
		}
	}

	return a.comments.Create(ctx, in)
}

func newEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   `edit <id> "text"`,
		Short: "Replace a comment's content",
		Long:  "Replace a comment's content. The new text is re-moderated and its mentions recomputed.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			text := strings.Join(args[1:], " ")
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("comment text is required")
			}

			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.comments.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !c.Status.CanBeModified() {
				return fmt.Errorf("comment %d is %s and can no longer be edited", id, c.Status)
			}

			c, err = a.comments.Update(cmd.Context(), id, text)
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

func newDeleteCmd() *cobra.Command {
	var hard bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a comment",
		Long:  "Soft delete a comment, hiding it but keeping its replies and votes. With --hard the comment, its replies, votes and mentions are removed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.comments.Delete(cmd.Context(), id, !hard)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), c)
			}
			if hard {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed comment #%d.\n", id)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted comment #%d.\n", id)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&hard, "hard", false, "remove the comment and everything attached to it")

	return cmd
}

// commentDetail is the JSON shape of show.
type commentDetail struct {
	Comment  *comment.Comment   `json:"comment"`
	Depth    int                `json:"depth"`
	Votes    comment.VoteStats  `json:"votes"`
	Mentions []*comment.Mention `json:"mentions"`
	Replies  []*comment.Comment `json:"replies"`
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a comment with its votes, mentions and replies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			c, err := a.comments.Get(ctx, id)
			if err != nil {
				return err
			}
			d := commentDetail{Comment: c}
			if d.Depth, err = a.comments.Depth(ctx, c); err != nil {
				return err
			}
			if d.Votes, err = a.votes.Statistics(ctx, id); err != nil {
				return err
			}
			if d.Mentions, err = a.comments.Mentions(ctx, id); err != nil {
				return err
			}
			if d.Replies, err = a.comments.Replies(ctx, id); err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), d)
			}

			w := cmd.OutOrStdout()
			printComment(w, c)
			fmt.Fprintf(w, "\n  Depth:    %d\n", d.Depth)
			if d.Votes.Total != c.LikesCount+c.DislikesCount {
				fmt.Fprintf(w, "  Counters out of step with %d vote rows; run refresh-votes %d\n", d.Votes.Total, id)
			}
			if len(d.Mentions) > 0 {
				fmt.Fprintln(w, "\nMentions:")
				if err := printMentionTable(w, d.Mentions); err != nil {
					return err
				}
			}
			if len(d.Replies) > 0 {
				fmt.Fprintln(w, "\nReplies:")
				return printCommentTable(w, d.Replies)
			}
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	var (
		status    string
		search    string
		topLevel  bool
		orderBy   string
		ascending bool
		limit     int
		offset    int
	)

	cmd := &cobra.Command{
		Use:   "list <target-type> <target-id>",
		Short: "List a target's comments",
		Long:  "List a target's comments, pinned first and newest first by default. --status all includes every status. --search matches content across all targets of the given type.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := comment.ListOptions{
				ParentOnly: topLevel,
				OrderBy:    comment.OrderBy(orderBy),
				Ascending:  ascending,
				Limit:      limit,
				Offset:     offset,
			}
			switch {
			case status == "all":
				opts.AnyStatus = true
			case comment.Status(status).IsValid():
				opts.Status = comment.Status(status)
			default:
				return fmt.Errorf("invalid status %q (must be pending, approved, rejected, deleted or all)", status)
			}
			if !opts.OrderBy.IsValid() {
				return fmt.Errorf("invalid order %q (must be created_at, score or likes)", orderBy)
			}
			if search == "" && len(args) != 2 {
				return fmt.Errorf("target type and target id are required")
			}

			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			var comments []*comment.Comment
			if search != "" {
				comments, err = a.comments.Search(cmd.Context(), search, args[0], opts)
			} else {
				comments, err = a.comments.List(cmd.Context(), args[0], args[1], opts)
			}
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), comments)
			}
			if err := printCommentTable(cmd.OutOrStdout(), comments); err != nil {
				return err
			}
			if search == "" && !opts.AnyStatus {
				total, err := a.comments.Count(cmd.Context(), args[0], args[1], opts.Status)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d %s comment(s)\n", len(comments), total, opts.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", string(comment.Approved), "status filter, or all")
	cmd.Flags().StringVar(&search, "search", "", "only comments containing this text")
	cmd.Flags().BoolVar(&topLevel, "top-level", false, "exclude replies")
	cmd.Flags().StringVar(&orderBy, "order", string(comment.OrderCreated), "sort by created_at, score or likes")
	cmd.Flags().BoolVar(&ascending, "asc", false, "sort ascending")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of comments (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of comments to skip")

	return cmd
}
