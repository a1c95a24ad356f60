package comment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const voteColumns = "id, comment_id, voter_id, voter_ip, vote_type, created_at, updated_at"

func scanVote(row interface{ Scan(...interface{}) error }) (*Vote, error) {
	var v Vote
	var updatedAt sql.NullTime
	if err := row.Scan(&v.ID, &v.CommentID, &v.VoterID, &v.VoterIP, &v.Type, &v.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}
	if updatedAt.Valid {
		v.UpdatedAt = &updatedAt.Time
	}
	return &v, nil
}

// FindVote returns the voter's vote on a comment, keyed by effective identity.
func (r *Repository) FindVote(ctx context.Context, commentID int64, voter Voter) (*Vote, error) {
	row := r.q.QueryRowContext(ctx,
		"SELECT "+voteColumns+" FROM comment_votes WHERE comment_id = ? AND voter_key = ?",
		commentID, voter.Key(),
	)
	v, err := scanVote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("vote on comment %d: %w", commentID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("finding vote: %w", err)
	}
	return v, nil
}

// InsertVote records a new vote and sets its ID. A second vote by the same
// effective identity violates the unique index.
func (r *Repository) InsertVote(ctx context.Context, v *Vote) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}

	voter := Voter{ID: v.VoterID, IP: v.VoterIP}
	result, err := r.q.ExecContext(ctx,
		`INSERT INTO comment_votes (comment_id, voter_id, voter_ip, voter_key, vote_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		v.CommentID, v.VoterID, v.VoterIP, voter.Key(), v.Type, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting vote: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting insert id: %w", err)
	}
	v.ID = id
	return nil
}

// UpdateVoteType flips an existing vote in place.
func (r *Repository) UpdateVoteType(ctx context.Context, id int64, t VoteType, at time.Time) error {
	result, err := r.q.ExecContext(ctx,
		"UPDATE comment_votes SET vote_type = ?, updated_at = ? WHERE id = ?", t, at, id,
	)
	if err != nil {
		return fmt.Errorf("updating vote: %w", err)
	}
	return expectRows(result, "vote", id)
}

// DeleteVote removes a vote by ID.
func (r *Repository) DeleteVote(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, "DELETE FROM comment_votes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting vote: %w", err)
	}
	return expectRows(result, "vote", id)
}

// AdjustCounters applies deltas to a comment's counters in one statement,
// clamping each at zero.
func (r *Repository) AdjustCounters(ctx context.Context, commentID, likes, dislikes int64) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE comments SET
			likes_count = MAX(likes_count + ?, 0),
			dislikes_count = MAX(dislikes_count + ?, 0)
		WHERE id = ?`,
		likes, dislikes, commentID,
	)
	if err != nil {
		return fmt.Errorf("adjusting vote counters: %w", err)
	}
	return expectRows(result, "comment", commentID)
}

// SetCounters overwrites a comment's counters.
func (r *Repository) SetCounters(ctx context.Context, commentID, likes, dislikes int64) error {
	result, err := r.q.ExecContext(ctx,
		"UPDATE comments SET likes_count = MAX(?, 0), dislikes_count = MAX(?, 0) WHERE id = ?",
		likes, dislikes, commentID,
	)
	if err != nil {
		return fmt.Errorf("setting vote counters: %w", err)
	}
	return expectRows(result, "comment", commentID)
}

// CountVotes tallies the vote rows for a comment.
func (r *Repository) CountVotes(ctx context.Context, commentID int64) (VoteStats, error) {
	var s VoteStats
	err := r.q.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(CASE WHEN vote_type = 'like' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN vote_type = 'dislike' THEN 1 ELSE 0 END), 0)
		FROM comment_votes WHERE comment_id = ?`, commentID,
	).Scan(&s.Likes, &s.Dislikes)
	if err != nil {
		return VoteStats{}, fmt.Errorf("counting votes: %w", err)
	}
	s.Total = s.Likes + s.Dislikes
	s.Score = s.Likes - s.Dislikes
	return s, nil
}

// ListVotesByVoter returns a voter's votes, newest first by default. A voter
// with an ID is matched on ID; otherwise anonymous votes from the IP match.
func (r *Repository) ListVotesByVoter(ctx context.Context, voter Voter, opts VoteListOptions) (votes []*Vote, err error) {
	query := "SELECT " + voteColumns + " FROM comment_votes WHERE "
	var args []interface{}
	switch {
	case voter.ID != "":
		query += "voter_id = ?"
		args = append(args, voter.ID)
	case voter.IP != "":
		query += "voter_ip = ? AND voter_id = ''"
		args = append(args, voter.IP)
	default:
		return nil, nil
	}
	if opts.Type != "" {
		query += " AND vote_type = ?"
		args = append(args, opts.Type)
	}
	if opts.Ascending {
		query += " ORDER BY created_at ASC, id ASC"
	} else {
		query += " ORDER BY created_at DESC, id DESC"
	}
	query += " LIMIT ?"
	args = append(args, sqlLimit(opts.Limit))

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing votes: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning vote: %w", err)
		}
		votes = append(votes, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating votes: %w", err)
	}

	return votes, nil
}
