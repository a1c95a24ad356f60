package comment

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a referenced comment, vote or mention does
// not exist.
var ErrNotFound = errors.New("not found")

// OrderBy selects the primary sort key for comment listings.
type OrderBy string

const (
	OrderCreated OrderBy = "created_at"
	OrderScore   OrderBy = "score"
	OrderLikes   OrderBy = "likes"
)

// IsValid checks if an ordering is recognized.
func (o OrderBy) IsValid() bool {
	return o == OrderCreated || o == OrderScore || o == OrderLikes
}

// ListOptions filters and pages comment listings. The zero value lists
// approved comments, pinned first, newest first, without a limit.
type ListOptions struct {
	Status     Status // empty means Approved unless AnyStatus is set
	AnyStatus  bool
	ParentOnly bool
	OrderBy    OrderBy
	Ascending  bool
	Limit      int
	Offset     int
}

func (o ListOptions) status() (Status, bool) {
	if o.AnyStatus {
		return "", false
	}
	if o.Status == "" {
		return Approved, true
	}
	return o.Status, true
}

// VoteListOptions filters a voter's vote history.
type VoteListOptions struct {
	Type      VoteType // empty means both
	Ascending bool
	Limit     int
}

// CommentStore persists comments.
type CommentStore interface {
	CreateComment(ctx context.Context, c *Comment) error
	GetComment(ctx context.Context, id int64) (*Comment, error)
	UpdateComment(ctx context.Context, c *Comment) error
	DeleteComment(ctx context.Context, id int64) error
	Depth(ctx context.Context, id int64) (int, error)
	ListByTarget(ctx context.Context, targetType, targetID string, opts ListOptions) ([]*Comment, error)
	ListReplies(ctx context.Context, parentID int64, opts ListOptions) ([]*Comment, error)
	CountByTarget(ctx context.Context, targetType, targetID string, status Status) (int64, error)
	Search(ctx context.Context, keyword, targetType string, opts ListOptions) ([]*Comment, error)
	ListByStatus(ctx context.Context, status Status, limit int) ([]*Comment, error)
	ListByAuthor(ctx context.Context, authorID string, opts ListOptions) ([]*Comment, error)
	ListByIP(ctx context.Context, ip string, since time.Time) ([]*Comment, error)
	Recent(ctx context.Context, limit int, status Status) ([]*Comment, error)
	Popular(ctx context.Context, targetType, targetID string, limit int) ([]*Comment, error)
	Statistics(ctx context.Context, targetType, targetID string) (Statistics, error)
}

// VoteStore persists votes and the denormalized counters on comments.
type VoteStore interface {
	FindVote(ctx context.Context, commentID int64, voter Voter) (*Vote, error)
	InsertVote(ctx context.Context, v *Vote) error
	UpdateVoteType(ctx context.Context, id int64, t VoteType, at time.Time) error
	DeleteVote(ctx context.Context, id int64) error
	// AdjustCounters adds the deltas atomically, never going below zero.
	AdjustCounters(ctx context.Context, commentID, likes, dislikes int64) error
	SetCounters(ctx context.Context, commentID, likes, dislikes int64) error
	CountVotes(ctx context.Context, commentID int64) (VoteStats, error)
	ListVotesByVoter(ctx context.Context, voter Voter, opts VoteListOptions) ([]*Vote, error)
}

// MentionStore persists mention rows and their notification flags.
type MentionStore interface {
	ReplaceMentions(ctx context.Context, commentID int64, mentions []Mention) error
	ListMentions(ctx context.Context, commentID int64) ([]*Mention, error)
	ListMentionsByUser(ctx context.Context, userID string, notified *bool, limit int) ([]*Mention, error)
	ListUnnotifiedMentions(ctx context.Context, limit int) ([]*Mention, error)
	ListDeliverableMentions(ctx context.Context, limit int) ([]*Mention, error)
	CountUnnotifiedByUser(ctx context.Context, userID string) (int64, error)
	MarkMentionsNotified(ctx context.Context, ids []int64, at time.Time) error
	MentionStatistics(ctx context.Context) (MentionStats, error)
}

// Store is everything the lifecycle and vote services need from storage.
type Store interface {
	CommentStore
	VoteStore
	MentionStore

	// InTx runs fn against a Store bound to a single transaction. Nested
	// calls join the outer transaction.
	InTx(ctx context.Context, fn func(Store) error) error
}
