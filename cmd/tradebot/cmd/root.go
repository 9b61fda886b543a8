package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tradebot/config"
)

var rootCmd = &cobra.Command{
	Use:   "tradebot",
	Short: "A strategy backtesting and automated trading bot",
	Long: `Tradebot evaluates trading strategies against historical data and runs
them live against an exchange.

It provides tools for:
  - Backtesting strategies over cached or downloaded bar data
  - Paper and live trading with risk-based position sizing
  - Trade journaling to CSV or SQLite
  - Performance reporting (returns, drawdown, Sharpe, streaks)
  - Telegram and email notifications`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(flagLogLevel)
	},
}

var (
	flagConfig   string
	flagEnvFile  string
	flagLogLevel string
)

// Execute runs the root command tree.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env", ".env", "path to .env file with credentials")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// loadConfig reads the config file or falls back to defaults, then applies
// the log level from config when no flag was given.
func loadConfig() (*config.Config, error) {
	if flagConfig == "" {
		return config.Default(), nil
	}

	cfg, err := config.LoadFromFile(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagLogLevel == "" && cfg.General.LogLevel != "" {
		if err := setupLogging(cfg.General.LogLevel); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func setupLogging(level string) error {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "", "info":
		lvl = slog.LevelInfo
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", level)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return nil
}
