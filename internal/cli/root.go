// Package cli defines the cobra command tree for tl.
package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/threadline/internal/client"
)

var (
	flagFormat string
	flagDB     string
	flagConfig string
	flagServer string
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tl",
		Short:         "Moderate and inspect threaded comments",
		Long:          "Administer a threadline comment store: review the moderation queue, post and edit comments, vote, inspect mentions, and serve the JSON API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (default: ~/.config/threadline/threadline.db)")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ~/.config/threadline/config.yaml)")

	root.PersistentFlags().StringVar(&flagServer, "server", os.Getenv("TL_SERVER"), "send add, vote, analyze and moderation commands to a running server instead of the local database")

	root.AddCommand(
		newPendingCmd(),
		newApproveCmd(),
		newRejectCmd(),
		newAutoApproveCmd(),
		newPinCmd(),
		newUnpinCmd(),
		newStatsCmd(),
		newAddCmd(),
		newEditCmd(),
		newDeleteCmd(),
		newShowCmd(),
		newListCmd(),
		newHistoryCmd(),
		newVoteCmd(),
		newVotesCmd(),
		newRefreshVotesCmd(),
		newMentionsCmd(),
		newNotifyCmd(),
		newAnalyzeCmd(),
		newServeCmd(),
		newEventsCmd(),
		newVersionCmd(),
	)

	return root
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// parseID parses a positive comment ID argument.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid comment ID: %s", s)
	}
	return id, nil
}

// remote returns an API client when --server is set, nil otherwise.
func remote() *client.Client {
	if flagServer == "" {
		return nil
	}
	return client.New(strings.TrimRight(flagServer, "/"))
}
