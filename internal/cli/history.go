package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/threadline/internal/comment"
)

func newHistoryCmd() *cobra.Command {
	var (
		authorID string
		ip       string
		since    time.Duration
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List comments by one author or address",
		Long:  "List the comments written by a registered author, or posted from an address within the --since window. Every status is included.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (authorID == "") == (ip == "") {
				return fmt.Errorf("exactly one of --author-id or --ip is required")
			}

			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			var comments []*comment.Comment
			if authorID != "" {
				comments, err = a.comments.ByAuthor(cmd.Context(), authorID, comment.ListOptions{AnyStatus: true, Limit: limit})
			} else {
				var from time.Time
				if since > 0 {
					from = time.Now().UTC().Add(-since)
				}
				comments, err = a.comments.ByIP(cmd.Context(), ip, from)
			}
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), comments)
			}
			return printCommentTable(cmd.OutOrStdout(), comments)
		},
	}

	cmd.Flags().StringVar(&authorID, "author-id", "", "registered author ID")
	cmd.Flags().StringVar(&ip, "ip", "", "client address")
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "how far back to look for --ip (0 for all time)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of comments for --author-id")

	return cmd
}
