package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

const testConfig = `
apifootball:
  api_key: "test_key"
  poll_interval: 15s
  season: 2025

engine:
  threshold: 0.60
  cooldown: 4m
  window_horizon: 15m
  lookahead_minutes: 12
  grace: 30s

acca:
  enabled: true
  schedule: "0 10 * * *"
  stake: 1.0

telegram:
  bot_token: "test_token"
  chat_id: "-100123456"
  enabled: true

storage:
  db_path: "./data/test.db"

logging:
  level: "info"
  format: "json"
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Remove(tmpfile.Name()) })
	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestLoadAndValidate(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, testConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.APIFootball.APIKey != "test_key" {
		t.Errorf("api_key = %q, want test_key", cfg.APIFootball.APIKey)
	}
	if cfg.APIFootball.PollInterval != 15*time.Second {
		t.Errorf("poll_interval = %v, want 15s", cfg.APIFootball.PollInterval)
	}
	if cfg.Engine.Threshold != 0.60 {
		t.Errorf("threshold = %f, want 0.60", cfg.Engine.Threshold)
	}
	if cfg.Engine.Cooldown != 4*time.Minute {
		t.Errorf("cooldown = %v, want 4m", cfg.Engine.Cooldown)
	}
	if cfg.Telegram.ChatID != "-100123456" {
		t.Errorf("chat_id = %q, want -100123456", cfg.Telegram.ChatID)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, testConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.APIFootball.BaseURL != "https://v3.football.api-sports.io" {
		t.Errorf("default base_url = %q", cfg.APIFootball.BaseURL)
	}
	if cfg.Engine.ShotOnGoalWeight != 2.2 {
		t.Errorf("default shot_on_goal_weight = %f, want 2.2", cfg.Engine.ShotOnGoalWeight)
	}
	if cfg.Engine.RedCardBonus != 10.0 {
		t.Errorf("default red_card_bonus = %f, want 10.0", cfg.Engine.RedCardBonus)
	}
	if cfg.Engine.PressureCeiling != 25.0 {
		t.Errorf("default pressure_ceiling = %f, want 25.0", cfg.Engine.PressureCeiling)
	}
	if len(cfg.Engine.BoostWindows) != 2 {
		t.Fatalf("default boost_windows count = %d, want 2", len(cfg.Engine.BoostWindows))
	}
	if cfg.Engine.BoostWindows[0].From != 20 || cfg.Engine.BoostWindows[0].To != 25 {
		t.Errorf("first boost window = %+v, want 20-25", cfg.Engine.BoostWindows[0])
	}
	if len(cfg.Acca.Folds) != 3 {
		t.Fatalf("default folds count = %d, want 3", len(cfg.Acca.Folds))
	}
	if cfg.Acca.Folds[2].Size != 10 || cfg.Acca.Folds[2].Min != 25.0 {
		t.Errorf("longshot fold = %+v", cfg.Acca.Folds[2])
	}
	if cfg.Acca.RetryBudget != 1000 {
		t.Errorf("default retry_budget = %d, want 1000", cfg.Acca.RetryBudget)
	}
}

func TestValidate_Failures(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(writeTempConfig(t, testConfig))
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing api key", func(c *Config) { c.APIFootball.APIKey = "" }, "api_key"},
		{"poll interval too small", func(c *Config) { c.APIFootball.PollInterval = time.Second }, "poll_interval"},
		{"threshold out of range", func(c *Config) { c.Engine.Threshold = 1.5 }, "threshold"},
		{"zero lookahead", func(c *Config) { c.Engine.LookaheadMinutes = 0 }, "lookahead"},
		{"negative grace", func(c *Config) { c.Engine.Grace = -time.Second }, "grace"},
		{"inverted boost window", func(c *Config) { c.Engine.BoostWindows[0].To = 5 }, "boost_windows"},
		{"missing bot token", func(c *Config) { c.Telegram.BotToken = "" }, "bot_token"},
		{"missing chat id", func(c *Config) { c.Telegram.ChatID = "" }, "chat_id"},
		{"bad odds band", func(c *Config) { c.Acca.OddsMin = 0.9 }, "odds"},
		{"bad fold size", func(c *Config) { c.Acca.Folds[0].Size = 0 }, "folds"},
		{"missing db path", func(c *Config) { c.Storage.DBPath = "" }, "db_path"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestValidate_TelegramDisabledSkipsCredentials(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, testConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg.Telegram.Enabled = false
	cfg.Telegram.BotToken = ""
	cfg.Telegram.ChatID = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate with telegram disabled failed: %v", err)
	}
}
