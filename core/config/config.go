package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	KeysOrder string `yaml:"keys_order"`
	Dir       string `yaml:"dir"`
	BotFile   string `yaml:"bot_file"`
	// DebugSample throttles high-volume debug events, e.g. "1/50" or "50".
	DebugSample string `yaml:"debug_sample"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// StoreConfig locates a single SQLite file.
type StoreConfig struct {
	Path           string `yaml:"path"`
	MaxConnections int    `yaml:"max_connections"`
}

// StorageConfig names the SQLite files used by the bot.
type StorageConfig struct {
	Stats      StoreConfig `yaml:"stats"`
	MediaCache StoreConfig `yaml:"media_cache"`
	Dictionary StoreConfig `yaml:"dictionary"`
}

// FetchConfig bounds the media fetcher retry loop.
type FetchConfig struct {
	MaxAttempts    int `yaml:"max_attempts" envconfig:"FETCH_MAX_ATTEMPTS"`
	BackoffSeconds int `yaml:"backoff_seconds" envconfig:"FETCH_BACKOFF_SECONDS"`
	// TempDir receives downloaded media before upload; empty -> os.TempDir.
	TempDir string `yaml:"temp_dir" envconfig:"FETCH_TEMP_DIR"`
}

// SessionConfig tunes the conversational session core.
type SessionConfig struct {
	// ReplyTimeoutSeconds bounds the pagination continue/stop wait.
	ReplyTimeoutSeconds int `yaml:"reply_timeout_seconds" envconfig:"SESSION_REPLY_TIMEOUT_SECONDS"`
	// PageSize is how many search results go out before a pagination prompt.
	PageSize int `yaml:"page_size" envconfig:"SESSION_PAGE_SIZE"`
	// Workers and QueueSize shape the handler task pool.
	Workers   int `yaml:"workers" envconfig:"SESSION_WORKERS"`
	QueueSize int `yaml:"queue_size" envconfig:"SESSION_QUEUE_SIZE"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

// RateLimitConfig holds settings for per-user rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
// - "poll_answer": quiz poll answers
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the full bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Storage   StorageConfig   `yaml:"storage"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Session   SessionConfig   `yaml:"session"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ReplyTimeout returns the pagination wait timeout as a duration.
func (c *Config) ReplyTimeout() time.Duration {
	return time.Duration(c.Session.ReplyTimeoutSeconds) * time.Second
}

// FetchBackoff returns the fetcher retry delay as a duration.
func (c *Config) FetchBackoff() time.Duration {
	return time.Duration(c.Fetch.BackoffSeconds) * time.Second
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	if cfg.Storage.Stats.Path == "" {
		cfg.Storage.Stats.Path = "bot_stats.db3"
	}
	if cfg.Storage.MediaCache.Path == "" {
		cfg.Storage.MediaCache.Path = "audio_cache.db3"
	}
	if cfg.Storage.Dictionary.Path == "" {
		cfg.Storage.Dictionary.Path = "dictionary.db3"
	}

	if cfg.Fetch.MaxAttempts <= 0 {
		cfg.Fetch.MaxAttempts = 5
	}
	if cfg.Fetch.BackoffSeconds <= 0 {
		cfg.Fetch.BackoffSeconds = 10
	}

	if cfg.Session.ReplyTimeoutSeconds <= 0 {
		cfg.Session.ReplyTimeoutSeconds = 10
	}
	if cfg.Session.PageSize <= 0 {
		cfg.Session.PageSize = 4
	}
	if cfg.Session.Workers <= 0 {
		cfg.Session.Workers = 8
	}
	if cfg.Session.QueueSize <= 0 {
		cfg.Session.QueueSize = 256
	}

	allowed := map[string]struct{}{
		"callback":    {},
		"message":     {},
		"poll_answer": {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message, poll_answer", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	return nil
}
