package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	APIFootball APIFootballConfig `mapstructure:"apifootball"`
	Engine      EngineConfig      `mapstructure:"engine"`
	Acca        AccaConfig        `mapstructure:"acca"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Health      HealthConfig      `mapstructure:"health"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// APIFootballConfig holds API-Football client configuration
type APIFootballConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Season            int           `mapstructure:"season"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelayBase    time.Duration `mapstructure:"retry_delay_base"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// BoostWindow is an elapsed-minute bracket in which goal probability gets a
// flat boost (finishing-bracket convention).
type BoostWindow struct {
	From int `mapstructure:"from"`
	To   int `mapstructure:"to"`
}

// EngineConfig holds the pressure estimator and alert lifecycle configuration.
// The heuristic weights are empirically tuned; change them and the alert
// behavior changes with them.
type EngineConfig struct {
	Threshold        float64       `mapstructure:"threshold"`
	Cooldown         time.Duration `mapstructure:"cooldown"`
	WindowHorizon    time.Duration `mapstructure:"window_horizon"`
	LookaheadMinutes int           `mapstructure:"lookahead_minutes"`
	Grace            time.Duration `mapstructure:"grace"`
	ShotWeight       float64       `mapstructure:"shot_weight"`
	ShotOnGoalWeight float64       `mapstructure:"shot_on_goal_weight"`
	CornerWeight     float64       `mapstructure:"corner_weight"`
	RedCardBonus     float64       `mapstructure:"red_card_bonus"`
	PressureCeiling  float64       `mapstructure:"pressure_ceiling"`
	DecayRate        float64       `mapstructure:"decay_rate"`
	ProbabilityCap   float64       `mapstructure:"probability_cap"`
	BoostAmount      float64       `mapstructure:"boost_amount"`
	BoostWindows     []BoostWindow `mapstructure:"boost_windows"`

	CheckpointInterval int `mapstructure:"checkpoint_interval"`
}

// FoldTarget describes one accumulator size and its target odds-product range.
type FoldTarget struct {
	Title string  `mapstructure:"title"`
	Size  int     `mapstructure:"size"`
	Min   float64 `mapstructure:"min"`
	Max   float64 `mapstructure:"max"`
	Badge string  `mapstructure:"badge"`
}

// AccaConfig holds daily accumulator configuration
type AccaConfig struct {
	Enabled         bool         `mapstructure:"enabled"`
	Schedule        string       `mapstructure:"schedule"`
	Stake           float64      `mapstructure:"stake"`
	Bookmaker       string       `mapstructure:"bookmaker"`
	MajorLeagues    []int        `mapstructure:"major_leagues"`
	FallbackLeagues []int        `mapstructure:"fallback_leagues"`
	MinFixtures     int          `mapstructure:"min_fixtures"`
	RetryBudget     int          `mapstructure:"retry_budget"`
	OddsMin         float64      `mapstructure:"odds_min"`
	OddsMax         float64      `mapstructure:"odds_max"`
	Folds           []FoldTarget `mapstructure:"folds"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	DMChatID       string        `mapstructure:"dm_chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// HealthConfig holds the optional health-check HTTP server configuration
type HealthConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// StorageConfig holds estimator checkpoint persistence configuration
type StorageConfig struct {
	DBPath      string `mapstructure:"db_path"`
	MaxFixtures int    `mapstructure:"max_fixtures"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	setDefaults(v)

	v.SetEnvPrefix("GOALSENTRY")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// API-Football defaults
	v.SetDefault("apifootball.base_url", "https://v3.football.api-sports.io")
	v.SetDefault("apifootball.season", time.Now().UTC().Year())
	v.SetDefault("apifootball.poll_interval", "15s")
	v.SetDefault("apifootball.timeout", "20s")
	v.SetDefault("apifootball.max_retries", 3)
	v.SetDefault("apifootball.retry_delay_base", "1s")
	v.SetDefault("apifootball.requests_per_minute", 300)

	// Engine defaults (tuned heuristic; see estimator docs)
	v.SetDefault("engine.threshold", 0.60)
	v.SetDefault("engine.cooldown", "4m")
	v.SetDefault("engine.window_horizon", "15m")
	v.SetDefault("engine.lookahead_minutes", 12)
	v.SetDefault("engine.grace", "30s")
	v.SetDefault("engine.shot_weight", 1.0)
	v.SetDefault("engine.shot_on_goal_weight", 2.2)
	v.SetDefault("engine.corner_weight", 1.2)
	v.SetDefault("engine.red_card_bonus", 10.0)
	v.SetDefault("engine.pressure_ceiling", 25.0)
	v.SetDefault("engine.decay_rate", 0.11)
	v.SetDefault("engine.probability_cap", 0.98)
	v.SetDefault("engine.boost_amount", 0.10)
	v.SetDefault("engine.checkpoint_interval", 20)
	v.SetDefault("engine.boost_windows", []map[string]any{
		{"from": 20, "to": 25},
		{"from": 65, "to": 70},
	})

	// ACCA defaults
	v.SetDefault("acca.enabled", true)
	v.SetDefault("acca.schedule", "0 10 * * *")
	v.SetDefault("acca.stake", 1.0)
	v.SetDefault("acca.bookmaker", "Bet365")
	v.SetDefault("acca.major_leagues", []int{39, 140, 135, 78, 61, 2, 3, 128, 71})
	v.SetDefault("acca.fallback_leagues", []int{94, 95, 88, 144, 99, 180, 203, 233})
	v.SetDefault("acca.min_fixtures", 12)
	v.SetDefault("acca.retry_budget", 1000)
	v.SetDefault("acca.odds_min", 1.2)
	v.SetDefault("acca.odds_max", 2.0)
	v.SetDefault("acca.folds", []map[string]any{
		{"title": "4-Fold (safer)", "size": 4, "min": 2.6, "max": 3.8, "badge": "🔵"},
		{"title": "7-Fold (balanced)", "size": 7, "min": 5.0, "max": 7.5, "badge": "🟡"},
		{"title": "10-Fold (longshot)", "size": 10, "min": 25.0, "max": 40.0, "badge": "🔴"},
	})

	// Telegram defaults
	v.SetDefault("telegram.enabled", true)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Health defaults
	v.SetDefault("health.enabled", false)
	v.SetDefault("health.listen_addr", ":8090")

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/goalsentry.db")
	v.SetDefault("storage.max_fixtures", 200)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIFootball.BaseURL == "" {
		return fmt.Errorf("apifootball.base_url is required")
	}
	if c.APIFootball.APIKey == "" {
		return fmt.Errorf("apifootball.api_key is required")
	}
	if c.APIFootball.PollInterval < 5*time.Second {
		return fmt.Errorf("apifootball.poll_interval must be at least 5 seconds")
	}
	if c.APIFootball.Timeout <= 0 {
		return fmt.Errorf("apifootball.timeout must be positive")
	}
	if c.APIFootball.RequestsPerMinute < 1 {
		return fmt.Errorf("apifootball.requests_per_minute must be at least 1")
	}

	if c.Engine.Threshold < 0.0 || c.Engine.Threshold > 1.0 {
		return fmt.Errorf("engine.threshold must be between 0.0 and 1.0")
	}
	if c.Engine.WindowHorizon < 1*time.Minute {
		return fmt.Errorf("engine.window_horizon must be at least 1 minute")
	}
	if c.Engine.LookaheadMinutes < 1 {
		return fmt.Errorf("engine.lookahead_minutes must be at least 1")
	}
	if c.Engine.Grace < 0 {
		return fmt.Errorf("engine.grace must not be negative")
	}
	if c.Engine.PressureCeiling <= 0 {
		return fmt.Errorf("engine.pressure_ceiling must be positive")
	}
	if c.Engine.ProbabilityCap <= 0 || c.Engine.ProbabilityCap > 1.0 {
		return fmt.Errorf("engine.probability_cap must be in (0.0, 1.0]")
	}
	for _, w := range c.Engine.BoostWindows {
		if w.From < 0 || w.To < w.From {
			return fmt.Errorf("engine.boost_windows entries must satisfy 0 <= from <= to")
		}
	}

	if c.Acca.Enabled {
		if c.Acca.Schedule == "" {
			return fmt.Errorf("acca.schedule is required when acca is enabled")
		}
		if c.Acca.Stake <= 0 {
			return fmt.Errorf("acca.stake must be positive")
		}
		if len(c.Acca.MajorLeagues) == 0 && len(c.Acca.FallbackLeagues) == 0 {
			return fmt.Errorf("acca requires at least one league")
		}
		if c.Acca.RetryBudget < 1 {
			return fmt.Errorf("acca.retry_budget must be at least 1")
		}
		if c.Acca.OddsMin <= 1.0 || c.Acca.OddsMax < c.Acca.OddsMin {
			return fmt.Errorf("acca odds band must satisfy 1.0 < odds_min <= odds_max")
		}
		for _, f := range c.Acca.Folds {
			if f.Size < 1 {
				return fmt.Errorf("acca.folds sizes must be at least 1")
			}
			if f.Min <= 0 || f.Max < f.Min {
				return fmt.Errorf("acca.folds targets must satisfy 0 < min <= max")
			}
		}
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	if c.Health.Enabled && c.Health.ListenAddr == "" {
		return fmt.Errorf("health.listen_addr is required when health is enabled")
	}

	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	if c.Storage.MaxFixtures < 1 {
		return fmt.Errorf("storage.max_fixtures must be at least 1")
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
