package db

import (
	"database/sql"
	"fmt"
)

// migrations is an ordered list of SQL statements to run.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS comments (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		target_type    TEXT    NOT NULL,
		target_id      TEXT    NOT NULL,
		parent_id      INTEGER REFERENCES comments(id) ON DELETE CASCADE,
		content        TEXT    NOT NULL,
		author_id      TEXT    NOT NULL DEFAULT '',
		author_name    TEXT    NOT NULL DEFAULT '',
		author_email   TEXT    NOT NULL DEFAULT '',
		author_ip      TEXT    NOT NULL DEFAULT '',
		user_agent     TEXT    NOT NULL DEFAULT '',
		status         TEXT    NOT NULL DEFAULT 'pending'
		               CHECK (status IN ('pending', 'approved', 'rejected', 'deleted')),
		likes_count    INTEGER NOT NULL DEFAULT 0 CHECK (likes_count >= 0),
		dislikes_count INTEGER NOT NULL DEFAULT 0 CHECK (dislikes_count >= 0),
		is_pinned      INTEGER NOT NULL DEFAULT 0,
		created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at     DATETIME,
		deleted_at     DATETIME
	)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_target ON comments (target_type, target_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_parent ON comments (parent_id)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_status ON comments (status, created_at)`,
	`CREATE TABLE IF NOT EXISTS comment_votes (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		comment_id INTEGER NOT NULL REFERENCES comments(id) ON DELETE CASCADE,
		voter_id   TEXT    NOT NULL DEFAULT '',
		voter_ip   TEXT    NOT NULL DEFAULT '',
		voter_key  TEXT    NOT NULL,
		vote_type  TEXT    NOT NULL CHECK (vote_type IN ('like', 'dislike')),
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME,
		UNIQUE (comment_id, voter_key)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_comment_votes_voter ON comment_votes (voter_id, voter_ip)`,
	`CREATE TABLE IF NOT EXISTS comment_mentions (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		comment_id          INTEGER NOT NULL REFERENCES comments(id) ON DELETE CASCADE,
		mentioned_user_id   TEXT    NOT NULL,
		mentioned_user_name TEXT    NOT NULL DEFAULT '',
		is_notified         INTEGER NOT NULL DEFAULT 0,
		created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		notified_at         DATETIME,
		UNIQUE (comment_id, mentioned_user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_comment_mentions_user ON comment_mentions (mentioned_user_id, is_notified)`,
}

// migrate runs all migrations in order.
func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}

	return nil
}
