package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/threadline/internal/comment"
)

func newVoteCmd() *cobra.Command {
	var voter comment.Voter

	cmd := &cobra.Command{
		Use:   "vote <id> like|dislike",
		Short: "Toggle a vote on a comment",
		Long:  "Vote on a comment. Repeating the same vote removes it and voting the other way switches it.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			t := comment.VoteType(args[1])
			if !t.IsValid() {
				return fmt.Errorf("invalid vote %q (must be like or dislike)", args[1])
			}
			var (
				c      *comment.Comment
				action comment.VoteAction
			)
			if rc := remote(); rc != nil {
				if voter.IP != "" {
					return fmt.Errorf("--voter-ip cannot be used with --server; the server records the caller's address")
				}
				res, err := rc.Vote(cmd.Context(), id, t, voter.ID)
				if err != nil {
					return err
				}
				c, action = res.Comment, res.Action
			} else {
				if voter.Key() == "" {
					return fmt.Errorf("--voter-id or --voter-ip is required")
				}
				c, action, err = voteLocal(cmd.Context(), id, t, voter)
				if err != nil {
					return err
				}
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"comment": c, "action": action})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Vote %s: #%d now +%d / -%d (score %d)\n",
				action, c.ID, c.LikesCount, c.DislikesCount, c.Score())
			return nil
		},
	}

	cmd.Flags().StringVar(&voter.ID, "voter-id", "", "registered voter ID")
	cmd.Flags().StringVar(&voter.IP, "voter-ip", "", "voter address, used when there is no voter ID")

	return cmd
}

func voteLocal(ctx context.Context, id int64, t comment.VoteType, voter comment.Voter) (*comment.Comment, comment.VoteAction, error) {
	a, err := newApp(ctx, false)
	if err != nil {
		return nil, "", err
	}
	defer a.Close()

	c, err := a.comments.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !comment.CanVote(c, voter) {
		return nil, "", fmt.Errorf("comment %d is %s and not open for voting", id, c.Status)
	}
	return a.votes.Vote(ctx, id, t, voter)
}

func newVotesCmd() *cobra.Command {
	var (
		voter comment.Voter
		typ   string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "votes",
		Short: "List a voter's votes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if voter.Key() == "" {
				return fmt.Errorf("--voter-id or --voter-ip is required")
			}
			opts := comment.VoteListOptions{Type: comment.VoteType(typ), Limit: limit}
			if typ != "" && !opts.Type.IsValid() {
				return fmt.Errorf("invalid vote type %q (must be like or dislike)", typ)
			}

			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			votes, err := a.votes.VotesByVoter(cmd.Context(), voter, opts)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), votes)
			}
			return printVoteTable(cmd.OutOrStdout(), votes)
		},
	}

	cmd.Flags().StringVar(&voter.ID, "voter-id", "", "registered voter ID")
	cmd.Flags().StringVar(&voter.IP, "voter-ip", "", "voter address, used when there is no voter ID")
	cmd.Flags().StringVar(&typ, "type", "", "only like or dislike votes")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of votes (0 for all)")

	return cmd
}

func newRefreshVotesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-votes <id>",
		Short: "Recount a comment's votes",
		Long:  "Overwrite a comment's like and dislike counters with a tally of its vote rows.",
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

			c, err := a.votes.RefreshCounts(cmd.Context(), id)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), c)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Comment #%d: +%d / -%d (score %d)\n",
				c.ID, c.LikesCount, c.DislikesCount, c.Score())
			return nil
		},
	}
}
