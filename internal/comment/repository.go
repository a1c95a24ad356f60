package comment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Repository is the SQLite implementation of Store.
type Repository struct {
	db   *sql.DB
	q    querier
	inTx bool
}

// NewRepository creates a comment repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, q: db}
}

// InTx runs fn inside a transaction, committing if fn returns nil.
func (r *Repository) InTx(ctx context.Context, fn func(Store) error) error {
	if r.inTx {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(&Repository{db: r.db, q: tx, inTx: true}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (also failed to roll back: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

const commentColumns = `id, target_type, target_id, parent_id, content, author_id, author_name,
	author_email, author_ip, user_agent, status, likes_count, dislikes_count, is_pinned,
	created_at, updated_at, deleted_at`

// scanComment scans a comment row, handling nullable fields.
func scanComment(row interface{ Scan(...interface{}) error }) (*Comment, error) {
	var c Comment
	var parentID sql.NullInt64
	var updatedAt, deletedAt sql.NullTime

	err := row.Scan(
		&c.ID, &c.TargetType, &c.TargetID, &parentID, &c.Content, &c.AuthorID, &c.AuthorName,
		&c.AuthorEmail, &c.AuthorIP, &c.UserAgent, &c.Status, &c.LikesCount, &c.DislikesCount, &c.Pinned,
		&c.CreatedAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if parentID.Valid {
		c.ParentID = &parentID.Int64
	}
	if updatedAt.Valid {
		c.UpdatedAt = &updatedAt.Time
	}
	if deletedAt.Valid {
		c.DeletedAt = &deletedAt.Time
	}
	return &c, nil
}

// queryComments runs a SELECT over comments and scans every row.
func (r *Repository) queryComments(ctx context.Context, query string, args ...interface{}) (comments []*Comment, err error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating comments: %w", err)
	}

	return comments, nil
}

// CreateComment inserts c and sets its ID.
func (r *Repository) CreateComment(ctx context.Context, c *Comment) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	result, err := r.q.ExecContext(ctx,
		`INSERT INTO comments (target_type, target_id, parent_id, content, author_id, author_name,
			author_email, author_ip, user_agent, status, likes_count, dislikes_count, is_pinned, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.TargetType, c.TargetID, c.ParentID, c.Content, c.AuthorID, c.AuthorName,
		c.AuthorEmail, c.AuthorIP, c.UserAgent, c.Status, c.LikesCount, c.DislikesCount, c.Pinned, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting insert id: %w", err)
	}
	c.ID = id
	return nil
}

// GetComment returns a comment by ID.
func (r *Repository) GetComment(ctx context.Context, id int64) (*Comment, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+commentColumns+" FROM comments WHERE id = ?", id)
	c, err := scanComment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("comment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting comment %d: %w", id, err)
	}
	return c, nil
}

// UpdateComment writes the mutable fields of c. Vote counters are left
// alone; they only change through AdjustCounters and SetCounters.
func (r *Repository) UpdateComment(ctx context.Context, c *Comment) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE comments SET content = ?, status = ?, is_pinned = ?, updated_at = ?, deleted_at = ?
		WHERE id = ?`,
		c.Content, c.Status, c.Pinned, c.UpdatedAt, c.DeletedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("updating comment %d: %w", c.ID, err)
	}
	return expectRows(result, "comment", c.ID)
}

// DeleteComment removes a comment. Replies, votes and mentions go with it.
func (r *Repository) DeleteComment(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, "DELETE FROM comments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting comment: %w", err)
	}
	return expectRows(result, "comment", id)
}

// Depth counts parent hops from the comment to its root.
func (r *Repository) Depth(ctx context.Context, id int64) (int, error) {
	var depth int
	err := r.q.QueryRowContext(ctx,
		`WITH RECURSIVE chain(id, parent_id, depth) AS (
			SELECT id, parent_id, 0 FROM comments WHERE id = ?
			UNION ALL
			SELECT c.id, c.parent_id, chain.depth + 1
			FROM comments c JOIN chain ON c.id = chain.parent_id
		)
		SELECT depth FROM chain ORDER BY depth DESC LIMIT 1`, id,
	).Scan(&depth)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("comment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("computing depth of comment %d: %w", id, err)
	}
	return depth, nil
}

// ListByTarget returns the comments attached to a target.
func (r *Repository) ListByTarget(ctx context.Context, targetType, targetID string, opts ListOptions) ([]*Comment, error) {
	where := []string{"target_type = ?", "target_id = ?"}
	args := []interface{}{targetType, targetID}
	if opts.ParentOnly {
		where = append(where, "parent_id IS NULL")
	}
	query, args := listQuery(where, args, opts)
	return r.queryComments(ctx, query, args...)
}

// ListReplies returns the direct replies to a comment.
func (r *Repository) ListReplies(ctx context.Context, parentID int64, opts ListOptions) ([]*Comment, error) {
	query, args := listQuery([]string{"parent_id = ?"}, []interface{}{parentID}, opts)
	return r.queryComments(ctx, query, args...)
}

// CountByTarget counts a target's comments in the given status. An empty
// status counts every comment.
func (r *Repository) CountByTarget(ctx context.Context, targetType, targetID string, status Status) (int64, error) {
	query := "SELECT COUNT(*) FROM comments WHERE target_type = ? AND target_id = ?"
	args := []interface{}{targetType, targetID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	var n int64
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting comments: %w", err)
	}
	return n, nil
}

// Search finds comments whose content contains keyword.
func (r *Repository) Search(ctx context.Context, keyword, targetType string, opts ListOptions) ([]*Comment, error) {
	where := []string{`content LIKE ? ESCAPE '\'`}
	args := []interface{}{"%" + escapeLike(keyword) + "%"}
	if targetType != "" {
		where = append(where, "target_type = ?")
		args = append(args, targetType)
	}
	query, args := listQuery(where, args, opts)
	return r.queryComments(ctx, query, args...)
}

// ListByStatus returns comments in a status, oldest first.
func (r *Repository) ListByStatus(ctx context.Context, status Status, limit int) ([]*Comment, error) {
	return r.queryComments(ctx,
		"SELECT "+commentColumns+" FROM comments WHERE status = ? ORDER BY created_at ASC, id ASC LIMIT ?",
		status, sqlLimit(limit),
	)
}

// ListByAuthor returns the comments written by a registered author.
func (r *Repository) ListByAuthor(ctx context.Context, authorID string, opts ListOptions) ([]*Comment, error) {
	query, args := listQuery([]string{"author_id = ?"}, []interface{}{authorID}, opts)
	return r.queryComments(ctx, query, args...)
}

// ListByIP returns every comment posted from ip, newest first. A zero since
// applies no time bound.
func (r *Repository) ListByIP(ctx context.Context, ip string, since time.Time) ([]*Comment, error) {
	query := "SELECT " + commentColumns + " FROM comments WHERE author_ip = ?"
	args := []interface{}{ip}
	if !since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, since.UTC())
	}
	query += " ORDER BY created_at DESC, id DESC"
	return r.queryComments(ctx, query, args...)
}

// Recent returns the newest comments, optionally in one status.
func (r *Repository) Recent(ctx context.Context, limit int, status Status) ([]*Comment, error) {
	query := "SELECT " + commentColumns + " FROM comments"
	var args []interface{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, sqlLimit(limit))
	return r.queryComments(ctx, query, args...)
}

// Popular returns a target's approved comments with the most likes.
func (r *Repository) Popular(ctx context.Context, targetType, targetID string, limit int) ([]*Comment, error) {
	return r.queryComments(ctx,
		"SELECT "+commentColumns+` FROM comments
		WHERE target_type = ? AND target_id = ? AND status = ?
		ORDER BY likes_count DESC, created_at DESC, id DESC LIMIT ?`,
		targetType, targetID, Approved, sqlLimit(limit),
	)
}

// Statistics aggregates counts across all comments, or one target's when
// targetType and targetID are set.
func (r *Repository) Statistics(ctx context.Context, targetType, targetID string) (Statistics, error) {
	query := `SELECT COUNT(*),
		COALESCE(SUM(CASE WHEN status = 'approved' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = 'rejected' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(likes_count), 0),
		COALESCE(SUM(dislikes_count), 0)
	FROM comments`
	var args []interface{}
	if targetType != "" && targetID != "" {
		query += " WHERE target_type = ? AND target_id = ?"
		args = append(args, targetType, targetID)
	}

	var s Statistics
	err := r.q.QueryRowContext(ctx, query, args...).Scan(
		&s.Total, &s.Approved, &s.Pending, &s.Rejected, &s.TotalLikes, &s.TotalDislikes,
	)
	if err != nil {
		return Statistics{}, fmt.Errorf("computing statistics: %w", err)
	}
	return s, nil
}

// listQuery assembles a comment SELECT from where clauses and list options.
func listQuery(where []string, args []interface{}, opts ListOptions) (string, []interface{}) {
	if status, ok := opts.status(); ok {
		where = append(where, "status = ?")
		args = append(args, status)
	}

	dir := "DESC"
	if opts.Ascending {
		dir = "ASC"
	}

	var order string
	switch opts.OrderBy {
	case OrderScore:
		order = fmt.Sprintf("(likes_count - dislikes_count) %s, created_at DESC, id DESC", dir)
	case OrderLikes:
		order = fmt.Sprintf("likes_count %s, created_at DESC, id DESC", dir)
	default:
		order = fmt.Sprintf("is_pinned DESC, created_at %s, id %s", dir, dir)
	}

	query := "SELECT " + commentColumns + " FROM comments WHERE " + strings.Join(where, " AND ") +
		" ORDER BY " + order + " LIMIT ? OFFSET ?"
	args = append(args, sqlLimit(opts.Limit), opts.Offset)
	return query, args
}

// sqlLimit maps "no limit" (zero or negative) to SQLite's -1.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// expectRows turns a zero-row write into ErrNotFound.
func expectRows(result sql.Result, what string, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}
