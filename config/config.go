// Package config loads and validates the YAML run configuration. Secrets
// never live in the YAML file; they come from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tradebot/market"
	"tradebot/risk"
)

// Mode selects how the bot runs.
type Mode string

const (
	ModeBacktest Mode = "backtest"
	ModePaper    Mode = "paper"
	ModeLive     Mode = "live"
)

// Config is the complete run configuration.
type Config struct {
	General  GeneralConfig   `yaml:"general"`
	Trading  TradingConfig   `yaml:"trading"`
	Strategy StrategyConfig  `yaml:"strategy"`
	Risk     risk.Parameters `yaml:"risk_management"`
	Exchange ExchangeConfig  `yaml:"exchange"`
	Backtest BacktestConfig  `yaml:"backtest"`
	Journal  JournalConfig   `yaml:"journal"`
	Notify   NotifyConfig    `yaml:"notifications"`
}

type GeneralConfig struct {
	Mode     Mode   `yaml:"mode"`
	LogLevel string `yaml:"log_level"`
	DataDir  string `yaml:"data_dir"`
}

type TradingConfig struct {
	Symbol    string           `yaml:"symbol"`
	Timeframe market.Timeframe `yaml:"timeframe"`
	// WindowSize is how many recent bars each live iteration analyzes.
	WindowSize int `yaml:"window_size"`
}

type StrategyConfig struct {
	Name   string             `yaml:"name"`
	Params map[string]float64 `yaml:"params"`
}

type ExchangeConfig struct {
	Name    string `yaml:"name"`
	Testnet bool   `yaml:"testnet"`
	// QuoteAsset is the asset balances are denominated in, e.g. USDT.
	QuoteAsset string `yaml:"quote_asset"`
}

type BacktestConfig struct {
	InitialBalance float64   `yaml:"initial_balance"`
	StartDate      time.Time `yaml:"start_date"`
	EndDate        time.Time `yaml:"end_date"`
	// Source is where bars come from: "csv", "exchange" or "sample".
	Source string `yaml:"source"`
}

type JournalConfig struct {
	Type       string `yaml:"type"` // "csv", "sqlite" or "none"
	TradesFile string `yaml:"trades_file,omitempty"`
	EquityFile string `yaml:"equity_file,omitempty"`
	DBPath     string `yaml:"db_path,omitempty"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Email    EmailConfig    `yaml:"email"`
}

type TelegramConfig struct {
	Enabled bool `yaml:"enabled"`
}

type EmailConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	From       string `yaml:"from_email"`
	To         string `yaml:"to_email"`
}

// Default returns a runnable backtest configuration.
func Default() *Config {
	return &Config{
		General: GeneralConfig{
			Mode:     ModeBacktest,
			LogLevel: "info",
			DataDir:  "data",
		},
		Trading: TradingConfig{
			Symbol:     "BTC/USDT",
			Timeframe:  market.H1,
			WindowSize: 100,
		},
		Strategy: StrategyConfig{
			Name: "ema_crossover",
		},
		Risk: risk.Defaults(),
		Exchange: ExchangeConfig{
			Name:       "binance",
			Testnet:    true,
			QuoteAsset: "USDT",
		},
		Backtest: BacktestConfig{
			InitialBalance: 10000,
			Source:         "csv",
		},
		Journal: JournalConfig{
			Type: "none",
		},
	}
}

// LoadFromFile reads and validates a YAML configuration. Missing risk
// fields fall back to defaults.
func LoadFromFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	switch c.General.Mode {
	case ModeBacktest, ModePaper, ModeLive:
	default:
		return fmt.Errorf("general.mode must be backtest, paper or live, got %q", c.General.Mode)
	}

	if c.Trading.Symbol == "" {
		return fmt.Errorf("trading.symbol is required")
	}
	if _, err := market.ParseTimeframe(string(c.Trading.Timeframe)); err != nil {
		return fmt.Errorf("trading.timeframe: %w", err)
	}
	if c.Trading.WindowSize <= 0 {
		return fmt.Errorf("trading.window_size must be positive")
	}

	if c.Strategy.Name == "" {
		return fmt.Errorf("strategy.name is required")
	}

	if c.General.Mode == ModeBacktest && c.Backtest.InitialBalance <= 0 {
		return fmt.Errorf("backtest.initial_balance must be positive")
	}

	if c.Risk.RiskPerTrade <= 0 || c.Risk.RiskPerTrade > 1 {
		return fmt.Errorf("risk_management.risk_per_trade must be in (0, 1]")
	}
	if c.Risk.MaxPositionSize <= 0 || c.Risk.MaxPositionSize > 1 {
		return fmt.Errorf("risk_management.max_position_size must be in (0, 1]")
	}

	switch c.Journal.Type {
	case "", "none", "csv", "sqlite":
	default:
		return fmt.Errorf("journal.type must be csv, sqlite or none, got %q", c.Journal.Type)
	}
	return nil
}

// Secrets are credentials loaded from the environment.
type Secrets struct {
	APIKey           string
	APISecret        string
	TelegramBotToken string
	TelegramChatID   string
	EmailUsername    string
	EmailPassword    string
}

// LoadSecrets reads credentials from the environment. When a .env file
// exists at envPath it is loaded first; a missing file is not an error.
func LoadSecrets(envPath string) (Secrets, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return Secrets{}, fmt.Errorf("load %s: %w", envPath, err)
		}
	}

	return Secrets{
		APIKey:           os.Getenv("EXCHANGE_API_KEY"),
		APISecret:        os.Getenv("EXCHANGE_API_SECRET"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		EmailUsername:    os.Getenv("EMAIL_USERNAME"),
		EmailPassword:    os.Getenv("EMAIL_PASSWORD"),
	}, nil
}
