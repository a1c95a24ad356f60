package comment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrInvalidVoteType is returned for a vote type other than like or dislike.
	ErrInvalidVoteType = errors.New("invalid vote type")
	// ErrNoVoterIdentity is returned when a voter has neither an ID nor an IP.
	ErrNoVoterIdentity = errors.New("voter id or ip is required")
)

// VoteService toggles votes and keeps the denormalized counters on each
// comment in step with the vote rows.
type VoteService struct {
	store  Store
	events Sink
	logger *slog.Logger
	now    func() time.Time
}

// NewVoteService creates a vote aggregator. A nil sink discards events.
func NewVoteService(store Store, events Sink) *VoteService {
	if events == nil {
		events = discard{}
	}
	return &VoteService{
		store:  store,
		events: events,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CanVote reports whether voter may vote on c: the comment must be approved
// and not deleted, and the voter must carry an ID or an IP. Vote does not
// check this itself.
func CanVote(c *Comment, voter Voter) bool {
	return c.Status == Approved && !c.IsDeleted() && voter.Key() != ""
}

// Vote toggles voter's vote on a comment. With no existing vote, one is
// created. Repeating the same vote removes it. Voting the other way flips
// it in place. Counter updates happen in the same transaction as the vote
// row, and the whole toggle is retried on write conflicts.
func (s *VoteService) Vote(ctx context.Context, commentID int64, t VoteType, voter Voter) (*Comment, VoteAction, error) {
	if !t.IsValid() {
		return nil, "", fmt.Errorf("%w: %q", ErrInvalidVoteType, t)
	}
	if voter.Key() == "" {
		return nil, "", ErrNoVoterIdentity
	}

	var action VoteAction
	err := withRetry(ctx, func() error {
		return s.store.InTx(ctx, func(tx Store) error {
			var err error
			action, err = s.toggle(ctx, tx, commentID, t, voter)
			return err
		})
	})
	if err != nil {
		return nil, "", fmt.Errorf("voting on comment %d: %w", commentID, err)
	}

	c, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("comment voted", "comment_id", commentID, "vote_type", t, "action", action)
	s.emit(ctx, c, t, action, voter)
	return c, action, nil
}

func (s *VoteService) toggle(ctx context.Context, tx Store, commentID int64, t VoteType, voter Voter) (VoteAction, error) {
	if _, err := tx.GetComment(ctx, commentID); err != nil {
		return "", err
	}

	existing, err := tx.FindVote(ctx, commentID, voter)
	switch {
	case errors.Is(err, ErrNotFound):
		v := &Vote{CommentID: commentID, VoterID: voter.ID, VoterIP: voter.IP, Type: t, CreatedAt: s.now()}
		if err := tx.InsertVote(ctx, v); err != nil {
			return "", err
		}
		likes, dislikes := t.deltas(1)
		return VoteCreated, tx.AdjustCounters(ctx, commentID, likes, dislikes)

	case err != nil:
		return "", err

	case existing.Type == t:
		if err := tx.DeleteVote(ctx, existing.ID); err != nil {
			return "", err
		}
		likes, dislikes := t.deltas(-1)
		return VoteRemoved, tx.AdjustCounters(ctx, commentID, likes, dislikes)

	default:
		if err := tx.UpdateVoteType(ctx, existing.ID, t, s.now()); err != nil {
			return "", err
		}
		oldLikes, oldDislikes := existing.Type.deltas(-1)
		newLikes, newDislikes := t.deltas(1)
		return VoteUpdated, tx.AdjustCounters(ctx, commentID, oldLikes+newLikes, oldDislikes+newDislikes)
	}
}

// RemoveVote deletes voter's vote on a comment. It reports false when the
// voter had not voted.
func (s *VoteService) RemoveVote(ctx context.Context, commentID int64, voter Voter) (bool, error) {
	if voter.Key() == "" {
		return false, ErrNoVoterIdentity
	}

	var removed *Vote
	err := withRetry(ctx, func() error {
		removed = nil
		return s.store.InTx(ctx, func(tx Store) error {
			v, err := tx.FindVote(ctx, commentID, voter)
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := tx.DeleteVote(ctx, v.ID); err != nil {
				return err
			}
			likes, dislikes := v.Type.deltas(-1)
			if err := tx.AdjustCounters(ctx, commentID, likes, dislikes); err != nil {
				return err
			}
			removed = v
			return nil
		})
	})
	if err != nil {
		return false, fmt.Errorf("removing vote on comment %d: %w", commentID, err)
	}
	if removed == nil {
		return false, nil
	}

	c, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return true, err
	}
	s.emit(ctx, c, removed.Type, VoteRemoved, voter)
	return true, nil
}

// VoteType returns voter's current vote on a comment. The bool is false
// when there is none.
func (s *VoteService) VoteType(ctx context.Context, commentID int64, voter Voter) (VoteType, bool, error) {
	if voter.Key() == "" {
		return "", false, nil
	}
	v, err := s.store.FindVote(ctx, commentID, voter)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v.Type, true, nil
}

// HasVoted reports whether voter has a vote on a comment.
func (s *VoteService) HasVoted(ctx context.Context, commentID int64, voter Voter) (bool, error) {
	_, ok, err := s.VoteType(ctx, commentID, voter)
	return ok, err
}

// Statistics counts the vote rows for a comment, ignoring the cached
// counters.
func (s *VoteService) Statistics(ctx context.Context, commentID int64) (VoteStats, error) {
	return s.store.CountVotes(ctx, commentID)
}

// RefreshCounts overwrites a comment's counters with the tally of its vote
// rows, repairing any drift.
func (s *VoteService) RefreshCounts(ctx context.Context, commentID int64) (*Comment, error) {
	err := s.store.InTx(ctx, func(tx Store) error {
		stats, err := tx.CountVotes(ctx, commentID)
		if err != nil {
			return err
		}
		return tx.SetCounters(ctx, commentID, stats.Likes, stats.Dislikes)
	})
	if err != nil {
		return nil, fmt.Errorf("refreshing vote counts: %w", err)
	}
	return s.store.GetComment(ctx, commentID)
}

// VotesByVoter returns a voter's vote history.
func (s *VoteService) VotesByVoter(ctx context.Context, voter Voter, opts VoteListOptions) ([]*Vote, error) {
	return s.store.ListVotesByVoter(ctx, voter, opts)
}

func (s *VoteService) emit(ctx context.Context, c *Comment, t VoteType, action VoteAction, voter Voter) {
	e := NewEvent(EventVoted, c)
	e.Vote = &VoteEvent{Type: t, Action: action, VoterID: voter.ID}
	publish(ctx, s.events, s.logger, e)
}
