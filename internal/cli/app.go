package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/evcraddock/threadline/internal/comment"
	"github.com/evcraddock/threadline/internal/config"
	"github.com/evcraddock/threadline/internal/db"
	"github.com/evcraddock/threadline/internal/logging"
	"github.com/evcraddock/threadline/internal/notify"
	"github.com/evcraddock/threadline/internal/pubsub"
	"github.com/evcraddock/threadline/internal/safety"
)

// app holds everything a command needs, wired from config.
type app struct {
	cfg      config.Config
	db       *sql.DB
	redis    *redis.Client
	analyzer *safety.Analyzer
	comments *comment.Service
	votes    *comment.VoteService
	listener *notify.Listener
}

// loadConfig reads the --config file, or the default one.
func loadConfig() (config.Config, error) {
	return config.Load(flagConfig)
}

// newApp loads config, sets up logging, opens the database and wires the
// services to the event bus. Server mode logs at info level; the CLI only
// logs warnings unless dev mode is on.
func newApp(ctx context.Context, server bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if server {
		logging.Setup(cfg.DevMode)
	} else {
		logging.SetupCLI(cfg.DevMode)
	}

	path := flagDB
	if path == "" {
		path = cfg.Database.Path
	}
	if path == "" {
		path, err = db.DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}

	repo := comment.NewRepository(database)
	bus := comment.NewBus()
	a := &app{
		cfg:      cfg,
		db:       database,
		analyzer: safety.New(cfg.Filter),
		listener: notify.NewListener(repo, newNotifier(cfg.Notify), cfg.Notify.Admin),
	}
	a.listener.Register(bus)

	if cfg.Redis.IsConfigured() {
		client, err := pubsub.Connect(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, events stay in-process", "error", err)
		} else {
			a.redis = client
			bus.SubscribeAll(pubsub.NewRedisSink(client, cfg.Redis.Channel).Publish)
		}
	}

	a.comments = comment.NewService(repo, a.analyzer, bus, cfg.Mentions.MaxPerComment)
	a.votes = comment.NewVoteService(repo, bus)
	return a, nil
}

// newNotifier fans out to the log plus every configured channel.
func newNotifier(cfg config.NotifyConfig) notify.Notifier {
	fanout := notify.Fanout{notify.LogNotifier{Logger: slog.Default()}}
	if cfg.SMTP.IsConfigured() {
		fanout = append(fanout, notify.NewSMTPNotifier(cfg.SMTP, cfg.Recipients))
	}
	if cfg.WebhookURL != "" {
		fanout = append(fanout, notify.NewWebhookNotifier(cfg.WebhookURL, cfg.WebhookSecret))
	}
	return fanout
}

// maxDepth returns the configured reply depth limit.
func (a *app) maxDepth() int {
	return a.cfg.Threads.MaxDepth
}

// Close releases the database and Redis connections, logging any error to
// stderr.
func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing redis: %v\n", err)
		}
	}
	if err := a.db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}
