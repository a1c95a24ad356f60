package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/evcraddock/threadline/internal/comment"
)

// DefaultSweepLimit caps how many unnotified mentions one Sweep examines.
const DefaultSweepLimit = 100

// Listener turns comment events into notifications. It owns the mention
// pipeline: mentions are delivered once a comment is approved and then
// flagged as notified.
type Listener struct {
	store    comment.Store
	notifier Notifier
	admin    string
	logger   *slog.Logger
	now      func() time.Time
}

// NewListener creates a listener. An empty admin disables new-comment alerts.
func NewListener(store comment.Store, notifier Notifier, admin string) *Listener {
	return &Listener{
		store:    store,
		notifier: notifier,
		admin:    admin,
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register subscribes the listener to bus.
func (l *Listener) Register(bus *comment.Bus) {
	bus.Subscribe(comment.EventCreated, l.OnCreated)
	bus.Subscribe(comment.EventApproved, l.OnApproved)
}

// OnCreated alerts the admin about comments held for moderation. Comments
// that are visible straight away get the same treatment as an approval,
// minus the approval notice to the author.
func (l *Listener) OnCreated(ctx context.Context, e comment.Event) error {
	c := e.Comment
	switch c.Status {
	case comment.Pending:
		if l.admin == "" {
			return nil
		}
		return l.notify(ctx, KindAdminNewComment, l.admin, message(c,
			fmt.Sprintf("New comment awaiting moderation on %s %s", c.TargetType, c.TargetID)))

	case comment.Approved:
		var errs []error
		errs = append(errs, l.notifyReply(ctx, c))
		_, err := l.ProcessMentions(ctx, c)
		errs = append(errs, err)
		return errors.Join(errs...)
	}
	return nil
}

// OnApproved tells the author and the parent's author that the comment is
// live, then runs the mention pipeline.
func (l *Listener) OnApproved(ctx context.Context, e comment.Event) error {
	c := e.Comment
	var errs []error
	if !c.IsAnonymous() {
		errs = append(errs, l.notify(ctx, KindApproval, c.AuthorID, message(c, "Your comment was approved")))
	}
	errs = append(errs, l.notifyReply(ctx, c))
	_, err := l.ProcessMentions(ctx, c)
	errs = append(errs, err)
	return errors.Join(errs...)
}

// ProcessMentions notifies every not-yet-notified user mentioned in c and
// flags those mentions in one update. Self-mentions are flagged without a
// notification. A mention whose delivery fails stays unflagged so a later
// run retries it. It returns the number of notifier invocations.
func (l *Listener) ProcessMentions(ctx context.Context, c *comment.Comment) (int, error) {
	mentions, err := l.store.ListMentions(ctx, c.ID)
	if err != nil {
		return 0, fmt.Errorf("loading mentions: %w", err)
	}

	var (
		calls int
		done  []int64
		errs  []error
	)
	for _, m := range mentions {
		if m.Notified {
			continue
		}
		if !c.IsAnonymous() && m.MentionedUserID == c.AuthorID {
			done = append(done, m.ID)
			continue
		}

		calls++
		msg := message(c, fmt.Sprintf("%s mentioned you", c.DisplayName()))
		if err := l.notify(ctx, KindMention, m.MentionedUserID, msg); err != nil {
			errs = append(errs, err)
			continue
		}
		done = append(done, m.ID)
	}

	if err := l.store.MarkMentionsNotified(ctx, done, l.now()); err != nil {
		errs = append(errs, err)
	}

	if len(done) > 0 {
		l.logger.Info("mentions notified", "comment_id", c.ID, "count", len(done))
	}
	return calls, errors.Join(errs...)
}

func (l *Listener) notifyReply(ctx context.Context, c *comment.Comment) error {
	if !c.IsReply() {
		return nil
	}

	parent, err := l.store.GetComment(ctx, *c.ParentID)
	if errors.Is(err, comment.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading parent comment: %w", err)
	}
	if parent.IsAnonymous() || parent.AuthorID == c.AuthorID {
		return nil
	}

	return l.notify(ctx, KindReply, parent.AuthorID,
		message(c, fmt.Sprintf("%s replied to your comment", c.DisplayName())))
}

func (l *Listener) notify(ctx context.Context, kind Kind, recipient string, msg Message) error {
	if err := l.notifier.Notify(ctx, kind, recipient, msg); err != nil {
		l.logger.Warn("notification failed", "kind", kind, "recipient", recipient,
			"comment_id", msg.CommentID, "error", err)
		return fmt.Errorf("notifying %s: %w", recipient, err)
	}
	return nil
}

func message(c *comment.Comment, subject string) Message {
	return Message{
		Subject:    subject,
		Body:       c.Content,
		CommentID:  c.ID,
		TargetType: c.TargetType,
		TargetID:   c.TargetID,
		Author:     c.DisplayName(),
	}
}

// Sweep retries delivery for up to limit unnotified mentions on approved
// comments, oldest first, and returns the number of notifications sent.
// Mentions on other comments stay queued. A non-positive limit uses
// DefaultSweepLimit.
func (l *Listener) Sweep(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = DefaultSweepLimit
	}
	queued, err := l.store.ListDeliverableMentions(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("listing unnotified mentions: %w", err)
	}

	seen := make(map[int64]bool)
	var sent int
	var errs []error
	for _, m := range queued {
		if seen[m.CommentID] {
			continue
		}
		seen[m.CommentID] = true

		c, err := l.store.GetComment(ctx, m.CommentID)
		if err != nil {
			errs = append(errs, fmt.Errorf("loading comment %d: %w", m.CommentID, err))
			continue
		}
		if c.Status != comment.Approved {
			continue
		}
		n, err := l.ProcessMentions(ctx, c)
		sent += n
		errs = append(errs, err)
	}
	return sent, errors.Join(errs...)
}
