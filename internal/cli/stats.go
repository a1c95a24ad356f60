package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/threadline/internal/comment"
)

type statsReport struct {
	comment.Statistics
	ApprovalRate  float64              `json:"approval_rate"`
	PendingRate   float64              `json:"pending_rate"`
	RejectionRate float64              `json:"rejection_rate"`
	Mentions      comment.MentionStats `json:"mentions"`
	Popular       []*comment.Comment   `json:"popular,omitempty"`
	Recent        []*comment.Comment   `json:"recent,omitempty"`
}

func newStatsCmd() *cobra.Command {
	var (
		targetType string
		targetID   string
		recent     int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show moderation statistics",
		Long:  "Show comment counts by status, vote totals and mention delivery progress, for every target or for one.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (targetType == "") != (targetID == "") {
				return fmt.Errorf("--target-type and --target-id must be given together")
			}

			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			stats, err := a.comments.Statistics(ctx, targetType, targetID)
			if err != nil {
				return err
			}
			report := statsReport{
				Statistics:    stats,
				ApprovalRate:  stats.Rate(stats.Approved),
				PendingRate:   stats.Rate(stats.Pending),
				RejectionRate: stats.Rate(stats.Rejected),
			}
			if report.Mentions, err = a.comments.MentionStatistics(ctx); err != nil {
				return err
			}
			if targetType != "" {
				if report.Popular, err = a.comments.Popular(ctx, targetType, targetID, 5); err != nil {
					return err
				}
			}
			if recent > 0 {
				if report.Recent, err = a.comments.Recent(ctx, recent, ""); err != nil {
					return err
				}
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), report)
			}

			w := cmd.OutOrStdout()
			if targetType != "" {
				fmt.Fprintf(w, "Statistics for %s/%s\n", targetType, targetID)
			} else {
				fmt.Fprintln(w, "Statistics for all targets")
			}
			fmt.Fprintf(w, "  Comments:  %d\n", stats.Total)
			fmt.Fprintf(w, "  Approved:  %d (%.1f%%)\n", stats.Approved, report.ApprovalRate)
			fmt.Fprintf(w, "  Pending:   %d (%.1f%%)\n", stats.Pending, report.PendingRate)
			fmt.Fprintf(w, "  Rejected:  %d (%.1f%%)\n", stats.Rejected, report.RejectionRate)
			fmt.Fprintf(w, "  Votes:     +%d / -%d\n", stats.TotalLikes, stats.TotalDislikes)
			fmt.Fprintf(w, "  Mentions:  %d (%d notified, %d queued)\n",
				report.Mentions.Total, report.Mentions.Notified, report.Mentions.Pending)

			if len(report.Popular) > 0 {
				fmt.Fprintln(w, "\nMost liked:")
				if err := printCommentTable(w, report.Popular); err != nil {
					return err
				}
			}
			if len(report.Recent) > 0 {
				fmt.Fprintln(w, "\nRecent:")
				return printCommentTable(w, report.Recent)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&targetType, "target-type", "", "limit to one target type")
	cmd.Flags().StringVar(&targetID, "target-id", "", "limit to one target ID")
	cmd.Flags().IntVar(&recent, "recent", 10, "number of recent comments to list (0 to skip)")

	return cmd
}
