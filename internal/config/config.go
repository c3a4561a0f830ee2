package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"city-daily-digest/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig selects and tunes the observation store.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// FetchConfig describes the tracked subject and how pages are requested.
type FetchConfig struct {
	BaseURL              string        `mapstructure:"base_url"`
	City                 string        `mapstructure:"city"`
	Language             string        `mapstructure:"language"`
	UserAgent            string        `mapstructure:"user_agent"`
	Timeout              time.Duration `mapstructure:"timeout"`
	HumidityTerm         string        `mapstructure:"humidity_term"`
	BaseCurrency         string        `mapstructure:"base_currency"`
	QuoteCurrency        string        `mapstructure:"quote_currency"`
	TemperatureSelector  string        `mapstructure:"temperature_selector"`
	HumiditySelector     string        `mapstructure:"humidity_selector"`
	ExchangeRateSelector string        `mapstructure:"exchange_rate_selector"`
}

// TelegramConfig holds bot credentials and the recipient chat.
type TelegramConfig struct {
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIBase  string        `mapstructure:"api_base"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// NotifyConfig controls message pacing and rate-limit recovery.
type NotifyConfig struct {
	Pacing     time.Duration `mapstructure:"pacing"`
	MaxRetries int           `mapstructure:"max_retries"`
	MaxBackoff time.Duration `mapstructure:"max_backoff"`
	ResendAll  bool          `mapstructure:"resend_all"`
}

// PipelineConfig tunes a single run.
type PipelineConfig struct {
	ParallelFetch bool   `mapstructure:"parallel_fetch"`
	Timezone      string `mapstructure:"timezone"`
}

// SchedulerConfig governs the in-process daily trigger.
type SchedulerConfig struct {
	Cron       string `mapstructure:"cron"`
	RunOnStart bool   `mapstructure:"run_on_start"`
}

// MetricsConfig controls run metric export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from .env, file, environment, and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("CITYDIGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "citydigest")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "citydigest.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("fetch.base_url", "https://www.google.com/search")
	v.SetDefault("fetch.city", "Vancouver")
	v.SetDefault("fetch.language", "en")
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (X11; Linux x86_64) citydigest/1.0")
	v.SetDefault("fetch.timeout", "15s")
	v.SetDefault("fetch.humidity_term", "humidity")
	v.SetDefault("fetch.base_currency", "CAD")
	v.SetDefault("fetch.quote_currency", "BRL")
	v.SetDefault("fetch.temperature_selector", "div.BNeawe")
	v.SetDefault("fetch.humidity_selector", "span#wob_hm")
	v.SetDefault("fetch.exchange_rate_selector", "div.BNeawe.iBp4i.AP7Wnd")

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.api_base", "https://api.telegram.org")
	v.SetDefault("telegram.timeout", "10s")

	v.SetDefault("notify.pacing", "2s")
	v.SetDefault("notify.max_retries", 5)
	v.SetDefault("notify.max_backoff", "5m")
	v.SetDefault("notify.resend_all", false)

	v.SetDefault("pipeline.parallel_fetch", false)
	v.SetDefault("pipeline.timezone", "Local")

	v.SetDefault("scheduler.cron", "0 8 * * *")
	v.SetDefault("scheduler.run_on_start", false)

	v.SetDefault("metrics.textfile", "")

	v.SetDefault("export.max_data_points", 3650)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Fetch.City) == "" {
		return fmt.Errorf("fetch.city must be configured")
	}
	if c.Fetch.BaseCurrency == "" || c.Fetch.QuoteCurrency == "" {
		return fmt.Errorf("fetch.base_currency and fetch.quote_currency must be configured")
	}
	if c.Notify.Pacing < 0 {
		return fmt.Errorf("notify.pacing cannot be negative")
	}
	if c.Notify.MaxRetries < 0 {
		return fmt.Errorf("notify.max_retries cannot be negative")
	}
	if c.Notify.MaxBackoff <= 0 {
		return fmt.Errorf("notify.max_backoff must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("pipeline.timezone: %w", err)
	}
	return nil
}

// ValidateTelegram checks the credentials needed to deliver notifications.
// Commands that never send skip it.
func (c *Config) ValidateTelegram() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token must be configured")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id must be configured")
	}
	return nil
}

// Location resolves the timezone observation dates are taken in.
func (c *Config) Location() (*time.Location, error) {
	if c.Pipeline.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Pipeline.Timezone)
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
