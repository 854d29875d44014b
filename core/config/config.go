package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingToken is returned when no bot token was configured.
	ErrMissingToken = errors.New("config: BOT_TOKEN is required")
	// ErrMissingWebAppURL is returned when no mini-app URL was configured.
	ErrMissingWebAppURL = errors.New("config: WEB_APP_URL is required")
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token string `yaml:"token" envconfig:"BOT_TOKEN"`
	// AdminIDRaw is the unparsed ADMIN_ID value; see AdminID.
	AdminIDRaw string `yaml:"admin_id" envconfig:"ADMIN_ID"`
	// AdminID is resolved from AdminIDRaw by Normalize. Zero disables admin commands.
	AdminID int64  `yaml:"-" ignored:"true"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
	// KeepPendingUpdates disables dropping the update backlog on startup.
	KeepPendingUpdates bool `yaml:"keep_pending_updates" envconfig:"TELEGRAM_KEEP_PENDING_UPDATES"`
}

// HasAdmin reports whether a privileged user is configured.
func (t TelegramConfig) HasAdmin() bool {
	return t.AdminID != 0
}

// WebAppConfig describes the mini-app opened from the welcome keyboard.
type WebAppConfig struct {
	URL        string `yaml:"url" envconfig:"WEB_APP_URL"`
	ButtonText string `yaml:"button_text" envconfig:"WEB_APP_BUTTON_TEXT"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// SenderConfig tunes the outbound reply queue.
type SenderConfig struct {
	QueueSize int `yaml:"queue_size" envconfig:"SENDER_QUEUE_SIZE"`
	// Workers > 1 lets replies to different chats overlap; 1 serializes all sends.
	Workers int `yaml:"workers" envconfig:"SENDER_WORKERS"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample" envconfig:"LOG_DEBUG_SAMPLE"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile     string `yaml:"bot_file" envconfig:"LOG_FILE"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const defaultButtonText = "🏠 Design my house"

// Config aggregates the process-wide, read-only settings.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	WebApp   WebAppConfig   `yaml:"web_app"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Sender   SenderConfig   `yaml:"sender"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Options controls where Load looks for settings.
type Options struct {
	// Path points to an optional YAML file. Empty skips the file.
	Path string
	// EnvFiles are dotenv files loaded before the environment is read.
	// Missing files are ignored; existing variables are never overridden.
	EnvFiles []string
}

// Load reads configuration from an optional YAML file, dotenv files and the environment.
func Load(opts Options) (*Config, error) {
	var cfg Config

	if opts.Path != "" {
		data, err := os.ReadFile(opts.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	for _, f := range opts.EnvFiles {
		if strings.TrimSpace(f) == "" {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	cfg.Telegram.Token = strings.TrimSpace(cfg.Telegram.Token)
	if cfg.Telegram.Token == "" {
		return ErrMissingToken
	}
	cfg.WebApp.URL = strings.TrimSpace(cfg.WebApp.URL)
	if cfg.WebApp.URL == "" {
		return ErrMissingWebAppURL
	}
	if strings.TrimSpace(cfg.WebApp.ButtonText) == "" {
		cfg.WebApp.ButtonText = defaultButtonText
	}

	cfg.Telegram.AdminID = parseAdminID(cfg.Telegram.AdminIDRaw)

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

	if cfg.Sender.QueueSize < 0 {
		return fmt.Errorf("sender.queue_size must be >= 0")
	}
	if cfg.Sender.Workers <= 0 {
		cfg.Sender.Workers = 1
	}
	return nil
}

// parseAdminID returns 0 for anything that is not a positive decimal user id.
// Surrounding whitespace is ignored, so ADMIN_ID=" 123 " still enables /stop.
func parseAdminID(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0
		}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
