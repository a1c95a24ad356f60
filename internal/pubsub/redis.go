// Package pubsub republishes comment events on a Redis channel.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evcraddock/threadline/internal/comment"
)

// DefaultChannel is the channel events are published on when none is set.
const DefaultChannel = "threadline:events"

// ErrClosed is returned by Next once the subscription has been closed.
var ErrClosed = errors.New("subscription closed")

// Config holds Redis connection settings.
type Config struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// IsConfigured returns true if a Redis address is set.
func (c Config) IsConfigured() bool {
	return c.Addr != ""
}

// Connect opens a Redis client and verifies it with a ping.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
		DisableIdentity: true,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// RedisSink is a comment.Sink that publishes each event as JSON.
type RedisSink struct {
	client  *redis.Client
	channel string
}

// NewRedisSink creates a sink publishing on channel, or DefaultChannel.
func NewRedisSink(client *redis.Client, channel string) *RedisSink {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisSink{client: client, channel: channel}
}

// Channel returns the channel events are published on.
func (s *RedisSink) Channel() string {
	return s.channel
}

// Publish sends e to the channel.
func (s *RedisSink) Publish(ctx context.Context, e comment.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, data).Err(); err != nil {
		return fmt.Errorf("publishing %s: %w", e.Kind, err)
	}
	return nil
}

// Subscriber decodes events from a channel.
type Subscriber struct {
	sub *redis.PubSub
	ch  <-chan *redis.Message
}

// Subscribe listens on channel, or DefaultChannel. It returns once Redis has
// confirmed the subscription, so no event published afterwards is missed.
func Subscribe(ctx context.Context, client *redis.Client, channel string) (*Subscriber, error) {
	if channel == "" {
		channel = DefaultChannel
	}

	sub := client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", channel, err)
	}
	return &Subscriber{sub: sub, ch: sub.Channel()}, nil
}

// Next blocks until the next event arrives or ctx is done.
func (s *Subscriber) Next(ctx context.Context) (comment.Event, error) {
	select {
	case <-ctx.Done():
		return comment.Event{}, ctx.Err()
	case msg, ok := <-s.ch:
		if !ok {
			return comment.Event{}, ErrClosed
		}
		var e comment.Event
		if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
			return comment.Event{}, fmt.Errorf("decoding event: %w", err)
		}
		return e, nil
	}
}

// Close ends the subscription.
func (s *Subscriber) Close() error {
	return s.sub.Close()
}
