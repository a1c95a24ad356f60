// Package comment provides the threaded comment domain: the model, its
// storage, the moderation lifecycle, and vote aggregation.
package comment

import "time"

// Status is the moderation state of a comment.
type Status string

const (
	Pending  Status = "pending"
	Approved Status = "approved"
	Rejected Status = "rejected"
	Deleted  Status = "deleted"
)

// ValidStatuses is the set of allowed comment statuses.
var ValidStatuses = []Status{Pending, Approved, Rejected, Deleted}

// IsValid checks if a status is recognized.
func (s Status) IsValid() bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Label returns a human-readable label for the status.
func (s Status) Label() string {
	switch s {
	case Pending:
		return "Pending review"
	case Approved:
		return "Approved"
	case Rejected:
		return "Rejected"
	case Deleted:
		return "Deleted"
	default:
		return string(s)
	}
}

// IsPublicVisible reports whether comments in this status are shown publicly.
func (s Status) IsPublicVisible() bool {
	return s == Approved
}

// CanBeModified reports whether comments in this status accept edits.
func (s Status) CanBeModified() bool {
	return s == Pending || s == Approved
}

// Comment is a single comment attached to a target. Replies point at their
// parent by ID; the tree is resolved through the store.
type Comment struct {
	ID            int64      `json:"id"`
	TargetType    string     `json:"target_type"`
	TargetID      string     `json:"target_id"`
	ParentID      *int64     `json:"parent_id,omitempty"`
	Content       string     `json:"content"`
	AuthorID      string     `json:"author_id,omitempty"`
	AuthorName    string     `json:"author_name,omitempty"`
	AuthorEmail   string     `json:"author_email,omitempty"`
	AuthorIP      string     `json:"author_ip,omitempty"`
	UserAgent     string     `json:"user_agent,omitempty"`
	Status        Status     `json:"status"`
	LikesCount    int64      `json:"likes_count"`
	DislikesCount int64      `json:"dislikes_count"`
	Pinned        bool       `json:"is_pinned"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

// Score is likes minus dislikes.
func (c *Comment) Score() int64 {
	return c.LikesCount - c.DislikesCount
}

// IsDeleted reports whether the comment was soft deleted or marked deleted.
func (c *Comment) IsDeleted() bool {
	return c.DeletedAt != nil || c.Status == Deleted
}

// IsAnonymous reports whether the comment has no registered author.
func (c *Comment) IsAnonymous() bool {
	return c.AuthorID == ""
}

// IsReply reports whether the comment has a parent.
func (c *Comment) IsReply() bool {
	return c.ParentID != nil
}

// DisplayName returns the best available name for the author.
func (c *Comment) DisplayName() string {
	switch {
	case c.AuthorName != "":
		return c.AuthorName
	case c.AuthorID != "":
		return c.AuthorID
	default:
		return "anonymous"
	}
}

// Mention records that a comment mentions a user.
type Mention struct {
	ID                int64      `json:"id"`
	CommentID         int64      `json:"comment_id"`
	MentionedUserID   string     `json:"mentioned_user_id"`
	MentionedUserName string     `json:"mentioned_user_name,omitempty"`
	Notified          bool       `json:"is_notified"`
	CreatedAt         time.Time  `json:"created_at"`
	NotifiedAt        *time.Time `json:"notified_at,omitempty"`
}

// MentionStats summarizes mention notification progress.
type MentionStats struct {
	Total    int64 `json:"total_mentions"`
	Notified int64 `json:"notified_mentions"`
	Pending  int64 `json:"pending_mentions"`
}

// Statistics aggregates moderation and vote counts.
type Statistics struct {
	Total         int64 `json:"total_comments"`
	Approved      int64 `json:"approved_comments"`
	Pending       int64 `json:"pending_comments"`
	Rejected      int64 `json:"rejected_comments"`
	TotalLikes    int64 `json:"total_likes"`
	TotalDislikes int64 `json:"total_dislikes"`
}

// Rate returns n as a percentage of the total, or 0 when there are none.
func (s Statistics) Rate(n int64) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(n) / float64(s.Total) * 100
}
