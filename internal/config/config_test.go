package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockScout/internal/screener"
)

const sampleYAML = `
data_source:
  provider: mock
screen:
  concurrency: 8
  strategies:
    penny:
      universe: [SNDL, ZOM]
      filters:
        price: { min: 0.1, max: 5.0 }
      min_score: 3.0
      top_n: 5
scoring:
  - name: price_tier
    metric: price
    max_points: 15
    buckets:
      - { below: 1.0, points: 15 }
retrieval:
  max_retries: 2
  cache_ttl_minutes: 30
schedule:
  crons:
    penny: "0 45 13 * * 1-5"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "mock", cfg.DataSource.Provider)
	assert.Equal(t, 365, cfg.DataSource.LookbackDays)
	assert.Equal(t, 8, cfg.Screen.Concurrency)
	assert.Equal(t, 2, cfg.Retrieval.MaxRetries)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL())
	assert.Equal(t, "data/stockscout.db", cfg.Database.SQLitePath)
	assert.Equal(t, "reports", cfg.Report.Dir)

	opts := cfg.RetrievalOptions()
	assert.Equal(t, 2, opts.MaxRetries)
	assert.Equal(t, time.Second, opts.BaseDelay)
	assert.Equal(t, 8*time.Second, opts.MaxDelay)

	assert.Equal(t, 200, cfg.Indicators.MinBars)

	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "yahoo", cfg.DataSource.Provider)
	// Defaults alone cannot screen anything.
	assert.Error(t, cfg.Validate())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok-123")
	t.Setenv("DATA_PROVIDER", "yahoo")
	t.Setenv("SCREEN_CONCURRENCY", "16")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "tok-123", cfg.Telegram.BotToken)
	assert.Equal(t, "yahoo", cfg.DataSource.Provider)
	assert.Equal(t, 16, cfg.Screen.Concurrency)
}

func TestShippedConfigPennyRiskGate(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	penny, ok := cfg.Screen.Strategies["penny"]
	require.True(t, ok)
	vol, ok := penny.Filters["hist_volatility_60d_annualized"]
	require.True(t, ok, "penny profile must cap annualized volatility")
	require.NotNil(t, vol.Max)
	assert.Equal(t, 150.0, *vol.Max)
	assert.Nil(t, vol.Min)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name  string
		patch func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.DataSource.Provider = "bloomberg" }},
		{"empty universe", func(c *Config) {
			s := c.Screen.Strategies["penny"]
			s.Universe = nil
			c.Screen.Strategies["penny"] = s
		}},
		{"filter without bounds", func(c *Config) {
			s := c.Screen.Strategies["penny"]
			s.Filters["rsi_14"] = screener.Bound{}
			c.Screen.Strategies["penny"] = s
		}},
		{"min_score out of range", func(c *Config) {
			s := c.Screen.Strategies["penny"]
			s.MinScore = 11
			c.Screen.Strategies["penny"] = s
		}},
		{"no scoring categories", func(c *Config) { c.Scoring = nil }},
		{"cron for unknown strategy", func(c *Config) { c.Schedule.Crons["swing"] = "0 0 9 * * 1" }},
		{"analyst without key", func(c *Config) { c.Analyst.Enabled = true; c.Analyst.APIKey = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, sampleYAML))
			require.NoError(t, err)
			require.NoError(t, cfg.Validate())
			tc.patch(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
