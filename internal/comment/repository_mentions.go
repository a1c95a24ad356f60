package comment

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const mentionColumns = "id, comment_id, mentioned_user_id, mentioned_user_name, is_notified, created_at, notified_at"

func scanMention(row interface{ Scan(...interface{}) error }) (*Mention, error) {
	var m Mention
	var notifiedAt sql.NullTime
	err := row.Scan(&m.ID, &m.CommentID, &m.MentionedUserID, &m.MentionedUserName, &m.Notified, &m.CreatedAt, &notifiedAt)
	if err != nil {
		return nil, err
	}
	if notifiedAt.Valid {
		m.NotifiedAt = &notifiedAt.Time
	}
	return &m, nil
}

func (r *Repository) queryMentions(ctx context.Context, query string, args ...interface{}) (mentions []*Mention, err error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing mentions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		m, err := scanMention(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning mention: %w", err)
		}
		mentions = append(mentions, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mentions: %w", err)
	}

	return mentions, nil
}

// ReplaceMentions swaps a comment's whole mention set for mentions.
func (r *Repository) ReplaceMentions(ctx context.Context, commentID int64, mentions []Mention) error {
	return r.InTx(ctx, func(s Store) error {
		tx := s.(*Repository)
		if _, err := tx.q.ExecContext(ctx, "DELETE FROM comment_mentions WHERE comment_id = ?", commentID); err != nil {
			return fmt.Errorf("clearing mentions: %w", err)
		}

		for _, m := range mentions {
			createdAt := m.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.Now().UTC()
			}
			_, err := tx.q.ExecContext(ctx,
				`INSERT INTO comment_mentions (comment_id, mentioned_user_id, mentioned_user_name, created_at)
				VALUES (?, ?, ?, ?)`,
				commentID, m.MentionedUserID, m.MentionedUserName, createdAt,
			)
			if err != nil {
				return fmt.Errorf("inserting mention of %s: %w", m.MentionedUserID, err)
			}
		}
		return nil
	})
}

// ListMentions returns a comment's mentions in insertion order.
func (r *Repository) ListMentions(ctx context.Context, commentID int64) ([]*Mention, error) {
	return r.queryMentions(ctx,
		"SELECT "+mentionColumns+" FROM comment_mentions WHERE comment_id = ? ORDER BY id ASC", commentID,
	)
}

// ListMentionsByUser returns the mentions of a user, newest first. A nil
// notified matches both states.
func (r *Repository) ListMentionsByUser(ctx context.Context, userID string, notified *bool, limit int) ([]*Mention, error) {
	query := "SELECT " + mentionColumns + " FROM comment_mentions WHERE mentioned_user_id = ?"
	args := []interface{}{userID}
	if notified != nil {
		query += " AND is_notified = ?"
		args = append(args, *notified)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, sqlLimit(limit))
	return r.queryMentions(ctx, query, args...)
}

// ListUnnotifiedMentions returns mentions still awaiting notification,
// oldest first.
func (r *Repository) ListUnnotifiedMentions(ctx context.Context, limit int) ([]*Mention, error) {
	return r.queryMentions(ctx,
		"SELECT "+mentionColumns+" FROM comment_mentions WHERE is_notified = 0 ORDER BY created_at ASC, id ASC LIMIT ?",
		sqlLimit(limit),
	)
}

// ListDeliverableMentions returns unnotified mentions on approved comments,
// oldest first.
func (r *Repository) ListDeliverableMentions(ctx context.Context, limit int) ([]*Mention, error) {
	return r.queryMentions(ctx,
		"SELECT "+mentionColumns+" FROM comment_mentions WHERE is_notified = 0"+
			" AND comment_id IN (SELECT id FROM comments WHERE status = ?)"+
			" ORDER BY created_at ASC, id ASC LIMIT ?",
		Approved, sqlLimit(limit),
	)
}

// CountUnnotifiedByUser counts a user's pending mention notifications.
func (r *Repository) CountUnnotifiedByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM comment_mentions WHERE mentioned_user_id = ? AND is_notified = 0", userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting unnotified mentions: %w", err)
	}
	return n, nil
}

// MarkMentionsNotified flags the given mentions in a single statement.
// Already-notified rows keep their original timestamp.
func (r *Repository) MarkMentionsNotified(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, at)
	for _, id := range ids {
		args = append(args, id)
	}

	_, err := r.q.ExecContext(ctx,
		"UPDATE comment_mentions SET is_notified = 1, notified_at = ? WHERE is_notified = 0 AND id IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return fmt.Errorf("marking mentions notified: %w", err)
	}
	return nil
}

// MentionStatistics reports how many mentions have been notified.
func (r *Repository) MentionStatistics(ctx context.Context) (MentionStats, error) {
	var s MentionStats
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_notified = 1 THEN 1 ELSE 0 END), 0)
		FROM comment_mentions`,
	).Scan(&s.Total, &s.Notified)
	if err != nil {
		return MentionStats{}, fmt.Errorf("computing mention statistics: %w", err)
	}
	s.Pending = s.Total - s.Notified
	return s, nil
}
