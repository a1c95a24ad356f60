package comment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/evcraddock/threadline/internal/mention"
	"github.com/evcraddock/threadline/internal/safety"
)

// DefaultMaxDepth is the reply depth limit used when callers pass none.
const DefaultMaxDepth = 3

// ErrInvalidTarget is returned when a comment has no target reference.
var ErrInvalidTarget = errors.New("target type and target id are required")

// CreateInput carries everything needed to post a comment. Author fields
// are optional; a comment without AuthorID is anonymous.
type CreateInput struct {
	TargetType  string `json:"target_type"`
	TargetID    string `json:"target_id"`
	Content     string `json:"content"`
	ParentID    *int64 `json:"parent_id,omitempty"`
	AuthorID    string `json:"author_id,omitempty"`
	AuthorName  string `json:"author_name,omitempty"`
	AuthorEmail string `json:"author_email,omitempty"`
	AuthorIP    string `json:"author_ip,omitempty"`
	UserAgent   string `json:"user_agent,omitempty"`
}

// Service runs the comment lifecycle: creation, moderation, edits and
// deletion, keeping mentions in step with content and emitting events.
type Service struct {
	store       Store
	analyzer    *safety.Analyzer
	events      Sink
	maxMentions int
	logger      *slog.Logger
	now         func() time.Time
}

// NewService creates a lifecycle service. A nil sink discards events and a
// non-positive maxMentions uses mention.DefaultMax.
func NewService(store Store, analyzer *safety.Analyzer, events Sink, maxMentions int) *Service {
	if events == nil {
		events = discard{}
	}
	if maxMentions <= 0 {
		maxMentions = mention.DefaultMax
	}
	return &Service{
		store:       store,
		analyzer:    analyzer,
		events:      events,
		maxMentions: maxMentions,
		logger:      slog.Default(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create posts a new comment. A parent that cannot be found is dropped and
// the comment becomes top-level. The initial status is Approved when the
// content passes the safety checks and Pending otherwise.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Comment, error) {
	if strings.TrimSpace(in.TargetType) == "" || strings.TrimSpace(in.TargetID) == "" {
		return nil, ErrInvalidTarget
	}

	c := &Comment{
		TargetType:  in.TargetType,
		TargetID:    in.TargetID,
		Content:     strings.TrimSpace(in.Content),
		AuthorID:    in.AuthorID,
		AuthorName:  in.AuthorName,
		AuthorEmail: in.AuthorEmail,
		AuthorIP:    in.AuthorIP,
		UserAgent:   in.UserAgent,
		CreatedAt:   s.now(),
	}

	if in.ParentID != nil {
		parent, err := s.store.GetComment(ctx, *in.ParentID)
		switch {
		case errors.Is(err, ErrNotFound):
			s.logger.Debug("parent comment not found, posting as top-level", "parent_id", *in.ParentID)
		case err != nil:
			return nil, fmt.Errorf("resolving parent: %w", err)
		default:
			c.ParentID = &parent.ID
		}
	}

	c.Status = s.moderate(c.Content)

	err := s.store.InTx(ctx, func(tx Store) error {
		if err := tx.CreateComment(ctx, c); err != nil {
			return err
		}
		return tx.ReplaceMentions(ctx, c.ID, s.mentionsFor(c))
	})
	if err != nil {
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	s.logger.Info("comment created", "comment_id", c.ID, "status", c.Status,
		"target_type", c.TargetType, "target_id", c.TargetID)
	publish(ctx, s.events, s.logger, NewEvent(EventCreated, c))
	return c, nil
}

// Update replaces a comment's content. Unchanged content (after trimming)
// is a no-op; otherwise the comment is re-moderated and its mentions are
// recomputed.
func (s *Service) Update(ctx context.Context, id int64, content string) (*Comment, error) {
	c, err := s.store.GetComment(ctx, id)
	if err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == c.Content {
		return c, nil
	}

	now := s.now()
	c.Content = content
	c.Status = s.moderate(content)
	c.UpdatedAt = &now

	err = s.store.InTx(ctx, func(tx Store) error {
		if err := tx.UpdateComment(ctx, c); err != nil {
			return err
		}
		return tx.ReplaceMentions(ctx, c.ID, s.mentionsFor(c))
	})
	if err != nil {
		return nil, fmt.Errorf("updating comment: %w", err)
	}

	s.logger.Info("comment updated", "comment_id", c.ID, "status", c.Status)
	publish(ctx, s.events, s.logger, NewEvent(EventUpdated, c))
	return c, nil
}

// Approve marks a comment approved regardless of its current state.
func (s *Service) Approve(ctx context.Context, id int64) (*Comment, error) {
	c, err := s.setStatus(ctx, id, Approved)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.events, s.logger, NewEvent(EventApproved, c))
	return c, nil
}

// Reject marks a comment rejected regardless of its current state.
func (s *Service) Reject(ctx context.Context, id int64) (*Comment, error) {
	return s.setStatus(ctx, id, Rejected)
}

func (s *Service) setStatus(ctx context.Context, id int64, status Status) (*Comment, error) {
	c, err := s.store.GetComment(ctx, id)
	if err != nil {
		return nil, err
	}

	c.Status = status
	if err := s.store.UpdateComment(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("comment moderated", "comment_id", id, "status", status)
	return c, nil
}

// SoftDelete hides a comment, keeping its replies, votes and mentions.
func (s *Service) SoftDelete(ctx context.Context, id int64) (*Comment, error) {
	c, err := s.store.GetComment(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	c.Status = Deleted
	c.DeletedAt = &now
	if err := s.store.UpdateComment(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("comment deleted", "comment_id", id, "soft", true)
	publish(ctx, s.events, s.logger, NewEvent(EventDeleted, c))
	return c, nil
}

// HardDelete removes a comment together with its replies, votes and
// mentions. The returned comment is the state it had before removal.
func (s *Service) HardDelete(ctx context.Context, id int64) (*Comment, error) {
	c, err := s.store.GetComment(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteComment(ctx, id); err != nil {
		return nil, err
	}

	s.logger.Info("comment deleted", "comment_id", id, "soft", false)
	publish(ctx, s.events, s.logger, NewEvent(EventDeleted, c))
	return c, nil
}

// Delete soft or hard deletes a comment.
func (s *Service) Delete(ctx context.Context, id int64, soft bool) (*Comment, error) {
	if soft {
		return s.SoftDelete(ctx, id)
	}
	return s.HardDelete(ctx, id)
}

// Pin marks a comment as pinned so it sorts first in target listings.
func (s *Service) Pin(ctx context.Context, id int64) (*Comment, error) {
	return s.setPinned(ctx, id, true)
}

// Unpin clears the pinned flag.
func (s *Service) Unpin(ctx context.Context, id int64) (*Comment, error) {
	return s.setPinned(ctx, id, false)
}

func (s *Service) setPinned(ctx context.Context, id int64, pinned bool) (*Comment, error) {
	c, err := s.store.GetComment(ctx, id)
	if err != nil {
		return nil, err
	}

	c.Pinned = pinned
	if err := s.store.UpdateComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// AutoApprove re-runs the safety checks over up to limit pending comments,
// oldest first, and approves those that now pass.
func (s *Service) AutoApprove(ctx context.Context, limit int) ([]*Comment, error) {
	pending, err := s.store.ListByStatus(ctx, Pending, limit)
	if err != nil {
		return nil, err
	}

	var approved []*Comment
	for _, c := range pending {
		if !s.analyzer.IsContentSafe(c.Content) {
			continue
		}
		a, err := s.Approve(ctx, c.ID)
		if err != nil {
			return approved, fmt.Errorf("approving comment %d: %w", c.ID, err)
		}
		approved = append(approved, a)
	}
	return approved, nil
}

// Get returns a comment by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Comment, error) {
	return s.store.GetComment(ctx, id)
}

// Depth returns the number of parent hops from c to its root.
func (s *Service) Depth(ctx context.Context, c *Comment) (int, error) {
	if c.ParentID == nil {
		return 0, nil
	}
	return s.store.Depth(ctx, c.ID)
}

// CanReply reports whether c is shallow enough to accept replies. A
// non-positive maxDepth uses DefaultMaxDepth.
func (s *Service) CanReply(ctx context.Context, c *Comment, maxDepth int) (bool, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	depth, err := s.Depth(ctx, c)
	if err != nil {
		return false, err
	}
	return depth < maxDepth, nil
}

// IsAuthor reports whether the caller wrote c: a matching registered ID,
// or, for an anonymous comment and a caller without an ID, a matching IP.
func IsAuthor(c *Comment, authorID, authorIP string) bool {
	if authorID != "" {
		return c.AuthorID == authorID
	}
	return c.IsAnonymous() && authorIP != "" && c.AuthorIP == authorIP
}

// List returns a target's comments.
func (s *Service) List(ctx context.Context, targetType, targetID string, opts ListOptions) ([]*Comment, error) {
	return s.store.ListByTarget(ctx, targetType, targetID, opts)
}

// Replies returns the approved direct replies to a comment, oldest first.
func (s *Service) Replies(ctx context.Context, parentID int64) ([]*Comment, error) {
	return s.store.ListReplies(ctx, parentID, ListOptions{Ascending: true})
}

// Count returns how many of a target's comments are in status.
func (s *Service) Count(ctx context.Context, targetType, targetID string, status Status) (int64, error) {
	return s.store.CountByTarget(ctx, targetType, targetID, status)
}

// Search finds comments whose content contains keyword.
func (s *Service) Search(ctx context.Context, keyword, targetType string, opts ListOptions) ([]*Comment, error) {
	return s.store.Search(ctx, keyword, targetType, opts)
}

// Pending returns the moderation queue, oldest first.
func (s *Service) Pending(ctx context.Context, limit int) ([]*Comment, error) {
	return s.store.ListByStatus(ctx, Pending, limit)
}

// ByAuthor returns the comments written by a registered author.
func (s *Service) ByAuthor(ctx context.Context, authorID string, opts ListOptions) ([]*Comment, error) {
	return s.store.ListByAuthor(ctx, authorID, opts)
}

// ByIP returns the comments posted from ip since the given time.
func (s *Service) ByIP(ctx context.Context, ip string, since time.Time) ([]*Comment, error) {
	return s.store.ListByIP(ctx, ip, since)
}

// Recent returns the newest comments, optionally in one status.
func (s *Service) Recent(ctx context.Context, limit int, status Status) ([]*Comment, error) {
	return s.store.Recent(ctx, limit, status)
}

// Popular returns a target's most liked approved comments.
func (s *Service) Popular(ctx context.Context, targetType, targetID string, limit int) ([]*Comment, error) {
	return s.store.Popular(ctx, targetType, targetID, limit)
}

// Statistics aggregates moderation counts, optionally for one target.
func (s *Service) Statistics(ctx context.Context, targetType, targetID string) (Statistics, error) {
	return s.store.Statistics(ctx, targetType, targetID)
}

// Mentions returns the mention rows recorded for a comment.
func (s *Service) Mentions(ctx context.Context, commentID int64) ([]*Mention, error) {
	return s.store.ListMentions(ctx, commentID)
}

// MentionsOf returns the mentions of a user, newest first. A leading @ is
// ignored. A nil notified returns both notified and pending rows.
func (s *Service) MentionsOf(ctx context.Context, userID string, notified *bool, limit int) ([]*Mention, error) {
	return s.store.ListMentionsByUser(ctx, strings.TrimPrefix(userID, "@"), notified, limit)
}

// UnnotifiedCount returns how many mentions of a user await notification.
func (s *Service) UnnotifiedCount(ctx context.Context, userID string) (int64, error) {
	return s.store.CountUnnotifiedByUser(ctx, strings.TrimPrefix(userID, "@"))
}

// MentionStatistics summarizes notification progress across all mentions.
func (s *Service) MentionStatistics(ctx context.Context) (MentionStats, error) {
	return s.store.MentionStatistics(ctx)
}

// moderate picks the status implied by the safety verdict on content.
func (s *Service) moderate(content string) Status {
	if reason, failed := s.analyzer.FilteredReason(content); failed {
		s.logger.Debug("comment held for moderation", "reason", reason)
		return Pending
	}
	return Approved
}

func (s *Service) mentionsFor(c *Comment) []Mention {
	tokens := mention.Parse(c.Content, s.maxMentions)
	mentions := make([]Mention, 0, len(tokens))
	for _, tok := range tokens {
		mentions = append(mentions, Mention{
			CommentID:         c.ID,
			MentionedUserID:   tok.UserID,
			MentionedUserName: tok.DisplayName,
			CreatedAt:         s.now(),
		})
	}
	return mentions
}
