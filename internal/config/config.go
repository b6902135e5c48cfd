// Package config manages application configuration from config.yaml,
// BOT_* environment variables, and default values.
package config

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// ErrConfiguration indicates missing or invalid startup configuration.
// It is the only fatal error class in the application.
var ErrConfiguration = errors.New("configuration error")

var botIDPattern = regexp.MustCompile(`^[A-Z0-9_]+$`)

// Config defines the application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Messages  MessagesConfig  `mapstructure:"messages"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the bot credentials and the operator identity.
type TelegramConfig struct {
	// Bots maps a bot id to its token. Ids must match [A-Z0-9_]+ because they
	// are embedded verbatim in operator notifications.
	Bots map[string]string `mapstructure:"bots" validate:"required,min=1"`

	// OperatorID is the Telegram user id whose replies are relayed back to
	// end-users and who receives all notifications.
	OperatorID int64 `mapstructure:"operator_id" validate:"required,gt=0"`

	// PreferredBots are tried in order when a webhook request names no bot.
	PreferredBots []string `mapstructure:"preferred_bots"`
}

// WebhookConfig controls the inbound HTTP surface.
type WebhookConfig struct {
	ListenAddr string `mapstructure:"listen_addr" validate:"required"`
	BasePath   string `mapstructure:"base_path"`
	// PublicURL, when set, enables webhook self-registration at startup:
	// each bot is pointed at <public_url><base_path>/<BOT_ID>.
	PublicURL string `mapstructure:"public_url" validate:"omitempty,url"`
}

// DatabaseConfig holds storage settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// MessagesConfig holds the fixed user- and operator-facing texts.
type MessagesConfig struct {
	Greeting        string `mapstructure:"greeting"          validate:"required"`
	Ack             string `mapstructure:"ack"               validate:"required"`
	StartLogBody    string `mapstructure:"start_log_body"    validate:"required"`
	ReplyPrefix     string `mapstructure:"reply_prefix"`
	RelayConfirmed  string `mapstructure:"relay_confirmed"   validate:"required"`
	BotMissing      string `mapstructure:"bot_missing"       validate:"required"`
	Unparseable     string `mapstructure:"unparseable"       validate:"required"`
	StoreFailure    string `mapstructure:"store_failure"     validate:"required"`
	RelaySendFailed string `mapstructure:"relay_send_failed" validate:"required"`
}

// SchedulerConfig configures background tasks.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig enables a named task with a cron schedule.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// Validate checks the configuration beyond struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	for id, token := range c.Telegram.Bots {
		if !botIDPattern.MatchString(id) {
			return fmt.Errorf("%w: bot id %q must match %s", ErrConfiguration, id, botIDPattern)
		}
		if token == "" {
			return fmt.Errorf("%w: bot %q has an empty token", ErrConfiguration, id)
		}
	}

	return nil
}
