package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the dosewise service.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Enrichment    EnrichmentConfig    `mapstructure:"enrichment"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// StorageConfig holds database paths.
type StorageConfig struct {
	DataDir     string `mapstructure:"data_dir"`
	DoseLogPath string `mapstructure:"dose_log_path"`
}

// SchedulerConfig holds the polling recomputation settings.
type SchedulerConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
}

// NotificationsConfig holds the notification channel settings.
type NotificationsConfig struct {
	AlertsPerMinute int            `mapstructure:"alerts_per_minute"`
	Telegram        TelegramConfig `mapstructure:"telegram"`
	Discord         DiscordConfig  `mapstructure:"discord"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// DiscordConfig holds Discord bot settings.
type DiscordConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Token     string `mapstructure:"token"`
	ChannelID string `mapstructure:"channel_id"`
}

// EnrichmentConfig holds the label-extraction provider settings.
type EnrichmentConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout"`
}

// Load loads configuration from file, env, and defaults.
func Load(configPath, dataDir string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	v.Set("storage.data_dir", dataDir)
	v.Set("storage.dose_log_path", filepath.Join(dataDir, "doselog.db"))

	if configPath == "" {
		configPath = filepath.Join(dataDir, "dosewise.yaml")
	}
	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Environment variables (DOSEWISE_SERVER_PORT, DOSEWISE_ENRICHMENT_API_KEY, ...)
	v.SetEnvPrefix("DOSEWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "127.0.0.1")
	v.SetDefault("server.port", 8420)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)

	v.SetDefault("scheduler.interval_seconds", 30)

	v.SetDefault("notifications.alerts_per_minute", 6)

	v.SetDefault("enrichment.base_url", "https://api.openai.com/v1")
	v.SetDefault("enrichment.model", "gpt-4o-mini")
	v.SetDefault("enrichment.timeout", 30)
}

func getDefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "dosewise")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".local", "share", "dosewise")
}

// loadEnvOverrides loads env vars Viper does not map cleanly onto nested
// struct fields.
func loadEnvOverrides(cfg *Config) {
	getEnv := func(key, fallback string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return fallback
	}

	cfg.Server.Address = getEnv("DOSEWISE_SERVER_ADDRESS", cfg.Server.Address)
	if port := os.Getenv("DOSEWISE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	cfg.Notifications.Telegram.BotToken = getEnv("DOSEWISE_NOTIFICATIONS_TELEGRAM_BOT_TOKEN", cfg.Notifications.Telegram.BotToken)
	if chatID := os.Getenv("DOSEWISE_NOTIFICATIONS_TELEGRAM_CHAT_ID"); chatID != "" {
		if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
			cfg.Notifications.Telegram.ChatID = id
		}
	}
	cfg.Notifications.Discord.Token = getEnv("DOSEWISE_NOTIFICATIONS_DISCORD_TOKEN", cfg.Notifications.Discord.Token)
	cfg.Notifications.Discord.ChannelID = getEnv("DOSEWISE_NOTIFICATIONS_DISCORD_CHANNEL_ID", cfg.Notifications.Discord.ChannelID)

	cfg.Enrichment.APIKey = getEnv("DOSEWISE_ENRICHMENT_API_KEY", cfg.Enrichment.APIKey)
	cfg.Enrichment.BaseURL = getEnv("DOSEWISE_ENRICHMENT_BASE_URL", cfg.Enrichment.BaseURL)
	cfg.Enrichment.Model = getEnv("DOSEWISE_ENRICHMENT_MODEL", cfg.Enrichment.Model)
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", cfg.Server.Port)
	}
	if cfg.Scheduler.IntervalSeconds <= 0 {
		return fmt.Errorf("scheduler.interval_seconds must be positive")
	}
	if cfg.Notifications.Telegram.Enabled && cfg.Notifications.Telegram.BotToken == "" {
		return fmt.Errorf("notifications.telegram.bot_token is required when telegram is enabled")
	}
	if cfg.Notifications.Discord.Enabled && (cfg.Notifications.Discord.Token == "" || cfg.Notifications.Discord.ChannelID == "") {
		return fmt.Errorf("notifications.discord.token and channel_id are required when discord is enabled")
	}
	if cfg.Enrichment.Enabled && cfg.Enrichment.APIKey == "" {
		return fmt.Errorf("enrichment.api_key is required when enrichment is enabled")
	}
	return nil
}
