package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebot/market"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
general:
  mode: backtest
  log_level: debug
trading:
  symbol: ETH/USDT
  timeframe: 15m
  window_size: 200
strategy:
  name: ema_crossover
  params:
    fast_period: 12
    slow_period: 26
risk_management:
  risk_per_trade: 0.02
  max_position_size: 0.3
  fee_rate: 0.00075
backtest:
  initial_balance: 25000
journal:
  type: sqlite
  db_path: runs.sqlite
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, ModeBacktest, cfg.General.Mode)
	assert.Equal(t, "debug", cfg.General.LogLevel)
	assert.Equal(t, "ETH/USDT", cfg.Trading.Symbol)
	assert.Equal(t, market.M15, cfg.Trading.Timeframe)
	assert.Equal(t, 200, cfg.Trading.WindowSize)
	assert.Equal(t, 12.0, cfg.Strategy.Params["fast_period"])
	assert.InDelta(t, 0.02, cfg.Risk.RiskPerTrade, 1e-9)
	assert.InDelta(t, 0.00075, cfg.Risk.FeeRate, 1e-9)
	assert.InDelta(t, 25000, cfg.Backtest.InitialBalance, 1e-9)
	assert.Equal(t, "sqlite", cfg.Journal.Type)

	// Unset fields keep their defaults.
	assert.Equal(t, "binance", cfg.Exchange.Name)
	assert.InDelta(t, 0.0005, cfg.Risk.Slippage, 1e-9)
}

func TestLoadFromFileMissing(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"default is valid", func(*Config) {}, ""},
		{"bad mode", func(c *Config) { c.General.Mode = "replay" }, "mode"},
		{"missing symbol", func(c *Config) { c.Trading.Symbol = "" }, "symbol"},
		{"bad timeframe", func(c *Config) { c.Trading.Timeframe = "7m" }, "timeframe"},
		{"zero window", func(c *Config) { c.Trading.WindowSize = 0 }, "window_size"},
		{"missing strategy", func(c *Config) { c.Strategy.Name = "" }, "strategy.name"},
		{"zero balance", func(c *Config) { c.Backtest.InitialBalance = 0 }, "initial_balance"},
		{"risk too high", func(c *Config) { c.Risk.RiskPerTrade = 1.5 }, "risk_per_trade"},
		{"bad journal", func(c *Config) { c.Journal.Type = "postgres" }, "journal.type"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadSecrets(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envPath, []byte(
		"EXCHANGE_API_KEY=k123\nTELEGRAM_BOT_TOKEN=tg456\n",
	), 0o600))

	t.Setenv("EXCHANGE_API_KEY", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("EXCHANGE_API_SECRET", "from-env")

	// godotenv does not override variables already set, so clear first.
	os.Unsetenv("EXCHANGE_API_KEY")
	os.Unsetenv("TELEGRAM_BOT_TOKEN")

	s, err := LoadSecrets(envPath)
	require.NoError(t, err)
	assert.Equal(t, "k123", s.APIKey)
	assert.Equal(t, "tg456", s.TelegramBotToken)
	assert.Equal(t, "from-env", s.APISecret)
}

func TestLoadSecretsMissingEnvFile(t *testing.T) {
	s, err := LoadSecrets(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Empty(t, s.APIKey)
}
