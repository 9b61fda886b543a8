package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tradebot/config"
	"tradebot/data"
	"tradebot/exchange"
	"tradebot/internal/id"
	"tradebot/journal"
	"tradebot/market"
	"tradebot/metrics"
	"tradebot/sim"
	"tradebot/strategy"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a strategy over historical data",
	Long: `Backtest replays historical bars through a strategy and reports the
resulting trades and performance metrics.

Bars come from the configured source: the local CSV cache, a fresh
exchange download, or a generated sample series.

Example:
  tradebot backtest -c config.yaml --symbol BTC/USDT --strategy ema_crossover`,
	RunE: runBacktest,
}

var (
	btSymbol   string
	btStrategy string
	btSource   string
	btBalance  float64
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&btSymbol, "symbol", "", "override trading symbol")
	backtestCmd.Flags().StringVarP(&btStrategy, "strategy", "s", "", "override strategy name")
	backtestCmd.Flags().StringVar(&btSource, "source", "", "bar source (csv, exchange, sample)")
	backtestCmd.Flags().Float64VarP(&btBalance, "balance", "b", 0, "override initial balance")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if btSymbol != "" {
		cfg.Trading.Symbol = btSymbol
	}
	if btStrategy != "" {
		cfg.Strategy.Name = btStrategy
	}
	if btSource != "" {
		cfg.Backtest.Source = btSource
	}
	if btBalance > 0 {
		cfg.Backtest.InitialBalance = btBalance
	}

	strat, err := strategy.New(cfg.Strategy.Name, cfg.Strategy.Params, cfg.Trading.Timeframe)
	if err != nil {
		return err
	}

	bars, err := loadBars(cmd, cfg)
	if err != nil {
		return err
	}

	rows, err := strat.Analyze(bars)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	jnl, err := openJournal(cfg.Journal)
	if err != nil {
		return err
	}
	defer jnl.Close()

	s := &sim.Simulator{
		Symbol:         cfg.Trading.Symbol,
		InitialBalance: cfg.Backtest.InitialBalance,
		Params:         cfg.Risk,
		Strategy:       strat,
		Journal:        jnl,
		NewID:          id.New,
	}

	res, err := s.Run(rows)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	summary := metrics.Compute(res.Trades, res.Equity, res.InitialBalance, res.FinalBalance)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Backtest: %s %s (%s)\n",
		cfg.Trading.Symbol, cfg.Trading.Timeframe, strat.Name())
	fmt.Fprintf(out, "Period: %s to %s (%d bars)\n",
		res.Start.Format("2006-01-02"), res.End.Format("2006-01-02"), len(rows))
	fmt.Fprintf(out, "Initial Balance: %.2f\n", res.InitialBalance)
	fmt.Fprintf(out, "Final Balance: %.2f\n\n", res.FinalBalance)
	printSummary(out, summary)
	return nil
}

// loadBars resolves the configured bar source.
func loadBars(cmd *cobra.Command, cfg *config.Config) ([]market.Bar, error) {
	start := cfg.Backtest.StartDate
	end := cfg.Backtest.EndDate
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if start.IsZero() {
		start = end.AddDate(0, -3, 0)
	}

	switch cfg.Backtest.Source {
	case "", "csv":
		store, err := data.NewStore(cfg.General.DataDir, nil)
		if err != nil {
			return nil, err
		}
		return store.Load(cfg.Trading.Symbol, cfg.Trading.Timeframe, start, end)

	case "exchange":
		secrets, err := config.LoadSecrets(flagEnvFile)
		if err != nil {
			return nil, err
		}
		client := exchange.NewClient(secrets.APIKey, secrets.APISecret, cfg.Exchange.Testnet)
		store, err := data.NewStore(cfg.General.DataDir, client)
		if err != nil {
			return nil, err
		}
		return store.Fetch(cmd.Context(), cfg.Trading.Symbol, cfg.Trading.Timeframe, 1000)

	case "sample":
		store, err := data.NewStore(cfg.General.DataDir, nil)
		if err != nil {
			return nil, err
		}
		return store.GenerateAndSave(cfg.Trading.Symbol, cfg.Trading.Timeframe, start, end)

	default:
		return nil, fmt.Errorf("unknown bar source %q", cfg.Backtest.Source)
	}
}

// openJournal builds the configured journal backend.
func openJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "", "none":
		return journal.Discard{}, nil
	case "csv":
		trades := cfg.TradesFile
		if trades == "" {
			trades = "trades.csv"
		}
		equity := cfg.EquityFile
		if equity == "" {
			equity = "equity.csv"
		}
		return journal.NewCSV(trades, equity)
	case "sqlite":
		path := cfg.DBPath
		if path == "" {
			path = "tradebot.sqlite"
		}
		return journal.NewSQLite(path)
	default:
		return nil, fmt.Errorf("unknown journal type %q", cfg.Type)
	}
}
