package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Market   MarketConfig   `mapstructure:"market"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// MarketConfig holds upstream data source configuration
type MarketConfig struct {
	BoardAPIURL      string        `mapstructure:"board_api_url"`
	BarsAPIURL       string        `mapstructure:"bars_api_url"`
	TimelineAPIURL   string        `mapstructure:"timeline_api_url"`
	CalendarAPIURL   string        `mapstructure:"calendar_api_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	EventHorizonDays int           `mapstructure:"event_horizon_days"`
}

// EngineConfig holds reconciliation loop configuration
type EngineConfig struct {
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	InitialDelay      time.Duration `mapstructure:"initial_delay"`
	WarningWindowDays int           `mapstructure:"warning_window_days"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds the notification journal configuration
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables. A missing
// config file is not an error: defaults plus environment overrides apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	setDefaults(v)

	v.SetEnvPrefix("STOCKALERT")
	v.AutomaticEnv()

	// The bot ships with TELEGRAM_BOT_TOKEN as its only required credential;
	// keep honoring the unprefixed name alongside STOCKALERT_TELEGRAM_BOT_TOKEN.
	_ = v.BindEnv("telegram.bot_token", "STOCKALERT_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Market defaults
	v.SetDefault("market.board_api_url", "https://iboard.ssi.com.vn")
	v.SetDefault("market.bars_api_url", "https://apipubaws.tcbs.com.vn")
	v.SetDefault("market.timeline_api_url", "https://apipubaws.tcbs.com.vn")
	v.SetDefault("market.calendar_api_url", "https://finfo-api.vndirect.com.vn")
	v.SetDefault("market.timeout", "10s")
	v.SetDefault("market.event_horizon_days", 90)

	// Engine defaults
	v.SetDefault("engine.poll_interval", "5m")
	v.SetDefault("engine.initial_delay", "10s")
	v.SetDefault("engine.warning_window_days", 30)

	// Telegram defaults; the empty token default registers the key so the
	// environment binding is picked up by Unmarshal.
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/stockalert.db")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Market.BoardAPIURL == "" {
		return fmt.Errorf("market.board_api_url is required")
	}
	if c.Market.BarsAPIURL == "" {
		return fmt.Errorf("market.bars_api_url is required")
	}
	if c.Market.TimelineAPIURL == "" {
		return fmt.Errorf("market.timeline_api_url is required")
	}
	if c.Market.CalendarAPIURL == "" {
		return fmt.Errorf("market.calendar_api_url is required")
	}
	if c.Market.Timeout < time.Second {
		return fmt.Errorf("market.timeout must be at least 1 second")
	}
	if c.Market.EventHorizonDays < 1 {
		return fmt.Errorf("market.event_horizon_days must be at least 1")
	}

	if c.Engine.PollInterval < 10*time.Second {
		return fmt.Errorf("engine.poll_interval must be at least 10 seconds")
	}
	if c.Engine.InitialDelay < 0 {
		return fmt.Errorf("engine.initial_delay must not be negative")
	}
	if c.Engine.WarningWindowDays < 1 {
		return fmt.Errorf("engine.warning_window_days must be at least 1")
	}

	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required (set TELEGRAM_BOT_TOKEN)")
	}
	if c.Telegram.MaxRetries < 1 {
		return fmt.Errorf("telegram.max_retries must be at least 1")
	}

	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
