// Package notify delivers comment notifications and runs the mention
// notification pipeline.
package notify

import (
	"context"
	"log/slog"

	"github.com/sourcegraph/conc/pool"
)

// Kind names what a notification is about.
type Kind string

const (
	KindReply           Kind = "reply"
	KindAdminNewComment Kind = "admin_new_comment"
	KindApproval        Kind = "approval"
	KindMention         Kind = "mention"
)

// Message is the payload handed to a Notifier.
type Message struct {
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	CommentID  int64  `json:"comment_id"`
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	Author     string `json:"author,omitempty"`
}

// Notifier delivers a notification to a recipient, identified by user ID or
// email address.
type Notifier interface {
	Notify(ctx context.Context, kind Kind, recipient string, msg Message) error
}

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify logs the notification at info level.
func (n LogNotifier) Notify(_ context.Context, kind Kind, recipient string, msg Message) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification",
		"kind", kind,
		"recipient", recipient,
		"subject", msg.Subject,
		"comment_id", msg.CommentID,
	)
	return nil
}

// Fanout delivers every notification to all of its notifiers concurrently
// and joins their errors.
type Fanout []Notifier

// Notify calls each notifier and waits for all of them.
func (f Fanout) Notify(ctx context.Context, kind Kind, recipient string, msg Message) error {
	p := pool.New().WithContext(ctx)
	for _, n := range f {
		p.Go(func(ctx context.Context) error {
			return n.Notify(ctx, kind, recipient, msg)
		})
	}
	return p.Wait()
}
