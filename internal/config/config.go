// Package config loads threadline settings from a YAML file, an optional
// .env file and TL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/evcraddock/threadline/internal/comment"
	"github.com/evcraddock/threadline/internal/mention"
	"github.com/evcraddock/threadline/internal/notify"
	"github.com/evcraddock/threadline/internal/pubsub"
	"github.com/evcraddock/threadline/internal/safety"
)

// Config is the full application configuration.
type Config struct {
	DevMode  bool           `yaml:"dev_mode"`
	Database DatabaseConfig `yaml:"database"`
	Filter   safety.Config  `yaml:"filter"`
	Mentions MentionsConfig `yaml:"mentions"`
	Threads  ThreadsConfig  `yaml:"threads"`
	Notify   NotifyConfig   `yaml:"notify"`
	Redis    pubsub.Config  `yaml:"redis"`
	Server   ServerConfig   `yaml:"server"`
}

// DatabaseConfig locates the SQLite file. An empty path means the default.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// MentionsConfig limits mention extraction.
type MentionsConfig struct {
	MaxPerComment int `yaml:"max_per_comment"`
}

// ThreadsConfig limits reply nesting.
type ThreadsConfig struct {
	MaxDepth int `yaml:"max_depth"`
}

// NotifyConfig selects notification channels. Log delivery is always on.
type NotifyConfig struct {
	Admin         string            `yaml:"admin"`
	WebhookURL    string            `yaml:"webhook_url"`
	WebhookSecret string            `yaml:"webhook_secret"`
	SMTP          notify.SMTPConfig `yaml:"smtp"`
	Recipients    map[string]string `yaml:"recipients"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Filter:   safety.DefaultConfig(),
		Mentions: MentionsConfig{MaxPerComment: mention.DefaultMax},
		Threads:  ThreadsConfig{MaxDepth: comment.DefaultMaxDepth},
		Notify: NotifyConfig{
			SMTP: notify.SMTPConfig{Port: "587"},
		},
		Redis:  pubsub.Config{Channel: pubsub.DefaultChannel},
		Server: ServerConfig{Port: 8080},
	}
}

// DefaultPath returns the default config path: ~/.config/threadline/config.yaml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "threadline", "config.yaml"), nil
}

// Load reads configuration from path, or DefaultPath when path is empty.
// A missing file yields the defaults. Variables from ./.env are loaded
// without overriding the real environment, then TL_* variables override
// file values.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Database.Path, "TL_DB")
	setString(&cfg.Notify.Admin, "TL_ADMIN")
	setString(&cfg.Notify.WebhookURL, "TL_WEBHOOK_URL")
	setString(&cfg.Notify.WebhookSecret, "TL_WEBHOOK_SECRET")
	setString(&cfg.Notify.SMTP.Host, "TL_SMTP_HOST")
	setString(&cfg.Notify.SMTP.Port, "TL_SMTP_PORT")
	setString(&cfg.Notify.SMTP.User, "TL_SMTP_USER")
	setString(&cfg.Notify.SMTP.Pass, "TL_SMTP_PASS")
	setString(&cfg.Notify.SMTP.From, "TL_SMTP_FROM")
	setString(&cfg.Redis.Addr, "TL_REDIS_ADDR")
	setString(&cfg.Redis.Password, "TL_REDIS_PASSWORD")
	setString(&cfg.Redis.Channel, "TL_REDIS_CHANNEL")

	if v := os.Getenv("TL_DEV_MODE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing TL_DEV_MODE: %w", err)
		}
		cfg.DevMode = b
	}
	if v := os.Getenv("TL_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing TL_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
