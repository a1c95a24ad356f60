package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/threadline/internal/client"
	"github.com/evcraddock/threadline/internal/mention"
	"github.com/evcraddock/threadline/internal/safety"
)

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   `analyze "text"`,
		Short: "Run the content safety checks over text",
		Long:  "Report how the configured content filter would treat text, without storing anything. With --server the server's filter is used.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			res, err := analyze(cmd, text)
			if err != nil {
				return err
			}

			if isJSON() {
				if res.Mentions == nil {
					res.Mentions = []mention.Token{}
				}
				return printJSON(cmd.OutOrStdout(), res)
			}
			printAnalysis(cmd, res)
			return nil
		},
	}
}

func analyze(cmd *cobra.Command, text string) (*client.Analysis, error) {
	if rc := remote(); rc != nil {
		return rc.Analyze(cmd.Context(), text)
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	analyzer := safety.New(cfg.Filter)
	res := &client.Analysis{
		Report:   analyzer.Analyze(text),
		Filtered: analyzer.FilterContent(text),
		Mentions: mention.Parse(text, cfg.Mentions.MaxPerComment),
	}
	if res.Report.FilteredReason != "" {
		res.Reason = res.Report.FilteredReason.Message()
	}
	return res, nil
}

func printAnalysis(cmd *cobra.Command, res *client.Analysis) {
	w := cmd.OutOrStdout()
	r := res.Report

	verdict := "safe"
	if !r.IsSafe {
		verdict = "held for moderation: " + res.Reason
	}
	fmt.Fprintf(w, "Verdict:     %s\n", verdict)
	fmt.Fprintf(w, "  Length:     %d (valid: %t)\n", r.Length, r.LengthValid)
	fmt.Fprintf(w, "  Spam:       %t\n", r.ContainsSpam)
	fmt.Fprintf(w, "  Profanity:  %t\n", r.ContainsProfanity)
	fmt.Fprintf(w, "  Repetition: %t\n", r.ExcessiveRepetition)
	fmt.Fprintf(w, "  Links:      %d (suspicious: %t)\n", r.LinkCount, r.SuspiciousLinks)
	fmt.Fprintf(w, "  Mentions:   %d\n", r.MentionCount)
	for _, m := range res.Mentions {
		fmt.Fprintf(w, "    @%s at %d\n", m.UserID, m.Offset)
	}
	fmt.Fprintf(w, "Filtered:    %s\n", res.Filtered)
}
