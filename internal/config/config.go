package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"StockScout/internal/calculator"
	"StockScout/internal/retrieval"
	"StockScout/internal/screener"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		// Provider selects the market data backend: "yahoo" or "mock".
		Provider     string `yaml:"provider"`
		BaseURL      string `yaml:"base_url"`
		LookbackDays int    `yaml:"lookback_days"`
	} `yaml:"data_source"`
	Screen struct {
		Concurrency int                          `yaml:"concurrency"`
		Strategies  map[string]screener.Strategy `yaml:"strategies"`
	} `yaml:"screen"`
	Scoring    []screener.Category `yaml:"scoring"`
	Indicators calculator.Config   `yaml:"indicators"`
	Retrieval  struct {
		MaxRetries        int     `yaml:"max_retries"`
		BaseDelaySeconds  float64 `yaml:"base_delay_seconds"`
		MaxDelaySeconds   float64 `yaml:"max_delay_seconds"`
		TimeoutSeconds    float64 `yaml:"timeout_seconds"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
		CacheTTLMinutes   int     `yaml:"cache_ttl_minutes"`
	} `yaml:"retrieval"`
	Schedule struct {
		// Crons maps a strategy name to its robfig cron expression
		// (six fields, seconds first). Strategies without an entry only
		// run on demand.
		Crons map[string]string `yaml:"crons"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Analyst struct {
		Enabled bool   `yaml:"enabled"`
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
	} `yaml:"analyst"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Report struct {
		Dir string `yaml:"dir"`
	} `yaml:"report"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
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
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Analyst.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.Analyst.BaseURL = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.Analyst.Model = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("REPORT_DIR"); v != "" {
		cfg.Report.Dir = v
	}
	if v := os.Getenv("SCREEN_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Screen.Concurrency = n
		}
	}

	// Defaults
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = "yahoo"
	}
	if cfg.DataSource.LookbackDays == 0 {
		cfg.DataSource.LookbackDays = 365
	}
	if cfg.Screen.Concurrency == 0 {
		cfg.Screen.Concurrency = 4
	}
	if cfg.Retrieval.MaxRetries == 0 {
		cfg.Retrieval.MaxRetries = 3
	}
	if cfg.Retrieval.BaseDelaySeconds == 0 {
		cfg.Retrieval.BaseDelaySeconds = 1
	}
	if cfg.Retrieval.MaxDelaySeconds == 0 {
		cfg.Retrieval.MaxDelaySeconds = 8
	}
	if cfg.Retrieval.TimeoutSeconds == 0 {
		cfg.Retrieval.TimeoutSeconds = 10
	}
	if cfg.Retrieval.RequestsPerSecond == 0 {
		cfg.Retrieval.RequestsPerSecond = 4
	}
	if cfg.Retrieval.Burst == 0 {
		cfg.Retrieval.Burst = 2
	}
	if cfg.Retrieval.CacheTTLMinutes == 0 {
		cfg.Retrieval.CacheTTLMinutes = 15
	}
	if cfg.Analyst.Model == "" {
		cfg.Analyst.Model = "gpt-4o-mini"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/stockscout.db"
	}
	if cfg.Report.Dir == "" {
		cfg.Report.Dir = "reports"
	}
	cfg.Indicators = cfg.Indicators.Normalize()

	return cfg, nil
}

// RetrievalOptions converts the YAML retrieval section into client options.
func (c *Config) RetrievalOptions() retrieval.Options {
	return retrieval.Options{
		MaxRetries: c.Retrieval.MaxRetries,
		BaseDelay:  time.Duration(c.Retrieval.BaseDelaySeconds * float64(time.Second)),
		MaxDelay:   time.Duration(c.Retrieval.MaxDelaySeconds * float64(time.Second)),
		Timeout:    time.Duration(c.Retrieval.TimeoutSeconds * float64(time.Second)),
		PerSecond:  c.Retrieval.RequestsPerSecond,
		Burst:      c.Retrieval.Burst,
	}
}

// CacheTTL returns the memoization window for upstream responses.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Retrieval.CacheTTLMinutes) * time.Minute
}

// Validate checks that the configuration can drive a screening run.
// Failures here are fatal at startup, never mid-run.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	default:
		return fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider)
	}
	if len(c.Screen.Strategies) == 0 {
		return fmt.Errorf("screen.strategies must define at least one strategy")
	}
	for name, strat := range c.Screen.Strategies {
		if len(strat.Universe) == 0 {
			return fmt.Errorf("strategy %s: universe is empty", name)
		}
		if _, err := screener.NewFilterChain(strat.Filters); err != nil {
			return fmt.Errorf("strategy %s: %w", name, err)
		}
		if strat.MinScore < 0 || strat.MinScore > 10 {
			return fmt.Errorf("strategy %s: min_score must be within [0,10]", name)
		}
	}
	if _, err := screener.NewScorer(c.Scoring); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	for name, expr := range c.Schedule.Crons {
		if _, ok := c.Screen.Strategies[name]; !ok {
			return fmt.Errorf("schedule.crons: unknown strategy %s", name)
		}
		if expr == "" {
			return fmt.Errorf("schedule.crons: empty expression for %s", name)
		}
	}
	if c.Retrieval.MaxRetries < 0 {
		return fmt.Errorf("retrieval.max_retries must not be negative")
	}
	if c.Analyst.Enabled && c.Analyst.APIKey == "" {
		return fmt.Errorf("analyst.api_key is required when analyst is enabled")
	}
	return nil
}
