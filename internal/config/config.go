package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Marketplace struct {
		BaseURL   string `yaml:"base_url"`
		Branch    string `yaml:"branch"`
		Referer   string `yaml:"referer"`
		Origin    string `yaml:"origin"`
		UserAgent string `yaml:"user_agent"`
	} `yaml:"marketplace"`
	Policy struct {
		Grades         []string `yaml:"grades"`
		NoteValue      float64  `yaml:"note_value"`
		MinimumBalance float64  `yaml:"minimum_balance"`
	} `yaml:"policy"`
	Schedule struct {
		Timezone          string `yaml:"timezone"`
		MarketOpenHour    int    `yaml:"market_open_hour"`
		MarketCloseHour   int    `yaml:"market_close_hour"`
		PollMinutes       int    `yaml:"poll_minutes"`
		AuthRetryMinutes  int    `yaml:"auth_retry_minutes"`
		ExitAfterPurchase bool   `yaml:"exit_after_purchase"`
		DailyReportCron   string `yaml:"daily_report_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides. A missing file is not an error; defaults cover the full
// marketplace setup, so the agent runs with no config file at all.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("HARMONEY_BASE_URL"); v != "" {
		cfg.Marketplace.BaseURL = v
	}
	if v := os.Getenv("HARMONEY_BRANCH"); v != "" {
		cfg.Marketplace.Branch = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("EXIT_AFTER_PURCHASE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Schedule.ExitAfterPurchase = b
		}
	}

	// Defaults
	if cfg.Marketplace.BaseURL == "" {
		cfg.Marketplace.BaseURL = "https://app.harmoney.com"
	}
	if cfg.Marketplace.Branch == "" {
		cfg.Marketplace.Branch = "NZ"
	}
	if cfg.Marketplace.Referer == "" {
		cfg.Marketplace.Referer = "https://www.harmoney.co.nz/lender/"
	}
	if cfg.Marketplace.Origin == "" {
		cfg.Marketplace.Origin = "https://www.harmoney.co.nz"
	}
	if cfg.Marketplace.UserAgent == "" {
		cfg.Marketplace.UserAgent = "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:67.0) Gecko/20100101 Firefox/67.0"
	}
	if len(cfg.Policy.Grades) == 0 {
		cfg.Policy.Grades = []string{"A1", "A2", "A3", "A4", "A5", "B1", "B2", "B3"}
	}
	if cfg.Policy.NoteValue == 0 {
		cfg.Policy.NoteValue = 25
	}
	if cfg.Policy.MinimumBalance == 0 {
		cfg.Policy.MinimumBalance = cfg.Policy.NoteValue
	}
	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = "Pacific/Auckland"
	}
	if cfg.Schedule.MarketOpenHour == 0 {
		cfg.Schedule.MarketOpenHour = 8
	}
	if cfg.Schedule.MarketCloseHour == 0 {
		cfg.Schedule.MarketCloseHour = 21
	}
	if cfg.Schedule.PollMinutes == 0 {
		cfg.Schedule.PollMinutes = 5
	}
	if cfg.Schedule.AuthRetryMinutes == 0 {
		cfg.Schedule.AuthRetryMinutes = 60
	}
	if cfg.Schedule.DailyReportCron == "" {
		cfg.Schedule.DailyReportCron = "0 0 21 * * *"
	}

	return cfg, nil
}

// Location resolves the configured market timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Schedule.Timezone)
}

// Validate checks that the loaded configuration is consistent.
func (c *Config) Validate() error {
	if c.Marketplace.BaseURL == "" {
		return fmt.Errorf("marketplace.base_url is required")
	}
	if c.Policy.NoteValue <= 0 {
		return fmt.Errorf("policy.note_value must be positive")
	}
	if len(c.Policy.Grades) == 0 {
		return fmt.Errorf("policy.grades must not be empty")
	}
	if c.Schedule.MarketOpenHour < 0 || c.Schedule.MarketOpenHour > 23 {
		return fmt.Errorf("schedule.market_open_hour out of range")
	}
	if c.Schedule.MarketCloseHour <= c.Schedule.MarketOpenHour || c.Schedule.MarketCloseHour > 24 {
		return fmt.Errorf("schedule.market_close_hour must be after market_open_hour")
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	return nil
}
