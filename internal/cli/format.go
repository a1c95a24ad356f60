package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/evcraddock/threadline/internal/comment"
)

const timeFormat = "2006-01-02 15:04"

// statusColors maps each status to an ANSI color for badges.
var statusColors = map[comment.Status]lipgloss.Color{
	comment.Pending:  lipgloss.Color("3"),
	comment.Approved: lipgloss.Color("2"),
	comment.Rejected: lipgloss.Color("1"),
	comment.Deleted:  lipgloss.Color("8"),
}

// printJSON marshals v as indented JSON and writes it to w.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// statusBadge renders a status label for w. Colors are dropped when w is
// not a terminal.
func statusBadge(w io.Writer, s comment.Status) string {
	style := lipgloss.NewRenderer(w).NewStyle().Bold(true)
	if color, ok := statusColors[s]; ok {
		style = style.Foreground(color)
	}
	return style.Render(s.Label())
}

// printComment prints a single comment in text format.
func printComment(w io.Writer, c *comment.Comment) {
	fmt.Fprintf(w, "Comment #%d  %s\n", c.ID, statusBadge(w, c.Status))
	fmt.Fprintf(w, "  Target:   %s/%s\n", c.TargetType, c.TargetID)
	if c.ParentID != nil {
		fmt.Fprintf(w, "  Reply to: #%d\n", *c.ParentID)
	}
	fmt.Fprintf(w, "  Author:   %s\n", authorLabel(c))
	fmt.Fprintf(w, "  Votes:    +%d / -%d (score %d)\n", c.LikesCount, c.DislikesCount, c.Score())
	if c.Pinned {
		fmt.Fprintln(w, "  Pinned:   yes")
	}
	fmt.Fprintf(w, "  Created:  %s\n", c.CreatedAt.Local().Format(timeFormat))
	if c.UpdatedAt != nil {
		fmt.Fprintf(w, "  Edited:   %s\n", c.UpdatedAt.Local().Format(timeFormat))
	}
	fmt.Fprintf(w, "\n  %s\n", c.Content)
}

// authorLabel names the author, adding the address for anonymous comments.
func authorLabel(c *comment.Comment) string {
	if c.IsAnonymous() && c.AuthorIP != "" {
		return fmt.Sprintf("%s (%s)", c.DisplayName(), c.AuthorIP)
	}
	return c.DisplayName()
}

// printCommentTable prints a list of comments as a formatted table.
func printCommentTable(w io.Writer, comments []*comment.Comment) error {
	if len(comments) == 0 {
		fmt.Fprintln(w, "No comments found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tTARGET\tPARENT\tSTATUS\tAUTHOR\tSCORE\tCONTENT"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(tw, "--\t------\t------\t------\t------\t-----\t-------"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, c := range comments {
		parent := "-"
		if c.ParentID != nil {
			parent = strconv.FormatInt(*c.ParentID, 10)
		}
		status := string(c.Status)
		if c.Pinned {
			status += "*"
		}
		if _, err := fmt.Fprintf(tw, "%d\t%s/%s\t%s\t%s\t%s\t%d\t%s\n",
			c.ID, c.TargetType, c.TargetID, parent, status,
			truncate(c.DisplayName(), 16), c.Score(), truncate(oneLine(c.Content), 50),
		); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	return tw.Flush()
}

// printMentionTable prints mention rows as a formatted table.
func printMentionTable(w io.Writer, mentions []*comment.Mention) error {
	if len(mentions) == 0 {
		fmt.Fprintln(w, "No mentions found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tCOMMENT\tUSER\tNOTIFIED\tCREATED"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(tw, "--\t-------\t----\t--------\t-------"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, m := range mentions {
		notified := "no"
		if m.Notified && m.NotifiedAt != nil {
			notified = m.NotifiedAt.Local().Format(timeFormat)
		} else if m.Notified {
			notified = "yes"
		}
		if _, err := fmt.Fprintf(tw, "%d\t%d\t@%s\t%s\t%s\n",
			m.ID, m.CommentID, m.MentionedUserID, notified, m.CreatedAt.Local().Format(timeFormat),
		); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	return tw.Flush()
}

// printVoteTable prints a voter's votes as a formatted table.
func printVoteTable(w io.Writer, votes []*comment.Vote) error {
	if len(votes) == 0 {
		fmt.Fprintln(w, "No votes found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tCOMMENT\tVOTE\tCREATED"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(tw, "--\t-------\t----\t-------"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, v := range votes {
		if _, err := fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n",
			v.ID, v.CommentID, v.Type, v.CreatedAt.Local().Format(timeFormat),
		); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	return tw.Flush()
}

// oneLine collapses newlines so content fits a table row.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate shortens s to maxLen characters, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
