package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load loads and validates configuration from:
// 1. Default values
// 2. config.yaml file
// 3. BOT_* environment variables
func Load() (*Config, error) {
	setDefaults()

	if err := readConfig(); err != nil {
		return nil, fmt.Errorf("%w: failed to load config file: %v", ErrConfiguration, err)
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// readConfig initializes and loads the configuration using viper.
func readConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("BOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Allow missing config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %v", err)
		}
	}

	return nil
}

// setDefaults sets default values for optional configuration parameters.
func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.json", true)

	viper.SetDefault("database.path", "storage.db")

	viper.SetDefault("webhook.listen_addr", ":8080")
	viper.SetDefault("webhook.base_path", "/webhook")

	viper.SetDefault("messages.greeting", "Здравствуйте! Напишите ваше сообщение, и мы скоро на него ответим.")
	viper.SetDefault("messages.ack", "Получили ваше сообщение, скоро ответим")
	viper.SetDefault("messages.start_log_body", "Пользователь запустил бота")
	viper.SetDefault("messages.reply_prefix", "Ответ: ")
	viper.SetDefault("messages.relay_confirmed", "Ответ отправлен пользователю %s через бота %s")
	viper.SetDefault("messages.bot_missing", "Не найден бот с ID: %s")
	viper.SetDefault("messages.unparseable", "Не удалось определить ID пользователя или бота для ответа")
	viper.SetDefault("messages.store_failure", "⚠️ Ошибка при сохранении в БД: %v")
	viper.SetDefault("messages.relay_send_failed", "Не удалось отправить ответ пользователю %s: %v")
}
