package comment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"
)

// EventKind names a domain event.
type EventKind string

const (
	EventCreated  EventKind = "comment.created"
	EventUpdated  EventKind = "comment.updated"
	EventApproved EventKind = "comment.approved"
	EventDeleted  EventKind = "comment.deleted"
	EventVoted    EventKind = "comment.voted"
)

// Event is a lifecycle or vote notification carrying the affected comment.
type Event struct {
	ID         uuid.UUID  `json:"id"`
	Kind       EventKind  `json:"kind"`
	Comment    *Comment   `json:"comment"`
	Vote       *VoteEvent `json:"vote,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// VoteEvent is the vote-specific part of an EventVoted event.
type VoteEvent struct {
	Type    VoteType   `json:"vote_type"`
	Action  VoteAction `json:"action"`
	VoterID string     `json:"voter_id,omitempty"`
}

// NewEvent stamps a new event for c.
func NewEvent(kind EventKind, c *Comment) Event {
	return Event{
		ID:         uuid.New(),
		Kind:       kind,
		Comment:    c,
		OccurredAt: time.Now().UTC(),
	}
}

// Sink receives domain events.
type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// Handler reacts to a published event.
type Handler func(ctx context.Context, e Event) error

// Bus is an in-process callback registry. Handlers run synchronously in
// subscription order; a failing or panicking handler does not stop the
// others.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventKind][]Handler
	all      []Handler
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[EventKind][]Handler)}
}

// Subscribe registers h for one event kind.
func (b *Bus) Subscribe(kind EventKind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
}

// SubscribeAll registers h for every event kind.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

// Publish delivers e to every matching handler and joins their errors.
// Handler panics are recovered and reported as errors.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	hs := make([]Handler, 0, len(b.handlers[e.Kind])+len(b.all))
	hs = append(hs, b.handlers[e.Kind]...)
	hs = append(hs, b.all...)
	b.mu.RUnlock()

	var errs []error
	for _, h := range hs {
		var err error
		var catcher panics.Catcher
		catcher.Try(func() { err = h(ctx, e) })
		if r := catcher.Recovered(); r != nil {
			err = r.AsError()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s handler: %w", e.Kind, err))
		}
	}
	return errors.Join(errs...)
}

// discard drops every event.
type discard struct{}

func (discard) Publish(context.Context, Event) error { return nil }

// publish sends e to sink and logs, rather than returns, delivery failures:
// the state change that produced the event is already committed.
func publish(ctx context.Context, sink Sink, logger *slog.Logger, e Event) {
	if err := sink.Publish(ctx, e); err != nil {
		logger.Warn("event delivery failed", "kind", e.Kind, "comment_id", e.Comment.ID, "error", err)
	}
}
