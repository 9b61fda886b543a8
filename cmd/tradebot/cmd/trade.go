package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tradebot/config"
	"tradebot/exchange"
	"tradebot/internal/id"
	"tradebot/live"
	"tradebot/notify"
	"tradebot/strategy"
)

var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Run the trading loop against an exchange",
	Long: `Trade runs the strategy online: the loop wakes after every bar close,
fetches the latest window and routes entries and exits to the exchange.

Paper mode (the default) fills orders against an in-process exchange
funded with fake money; --live places real orders with the configured
API credentials. Stop with Ctrl-C; an open position is left in place
for the next session.`,
	RunE: runTrade,
}

var (
	tradeLive      bool
	tradeDashboard bool
)

func init() {
	rootCmd.AddCommand(tradeCmd)

	tradeCmd.Flags().BoolVar(&tradeLive, "live", false, "trade with real funds instead of paper")
	tradeCmd.Flags().BoolVar(&tradeDashboard, "dashboard", true, "render the console dashboard")
}

func runTrade(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	secrets, err := config.LoadSecrets(flagEnvFile)
	if err != nil {
		return err
	}

	strat, err := strategy.New(cfg.Strategy.Name, cfg.Strategy.Params, cfg.Trading.Timeframe)
	if err != nil {
		return err
	}

	client := exchange.NewClient(secrets.APIKey, secrets.APISecret, cfg.Exchange.Testnet)

	var venue exchange.Exchange = client
	if !tradeLive {
		venue = exchange.NewPaper(client, cfg.Exchange.QuoteAsset,
			cfg.Backtest.InitialBalance, cfg.Risk.FeeRate)
	} else if secrets.APIKey == "" || secrets.APISecret == "" {
		return fmt.Errorf("live trading needs EXCHANGE_API_KEY and EXCHANGE_API_SECRET")
	}

	jnl, err := openJournal(cfg.Journal)
	if err != nil {
		return err
	}
	defer jnl.Close()

	loop := &live.Loop{
		Symbol:     cfg.Trading.Symbol,
		Timeframe:  cfg.Trading.Timeframe,
		WindowSize: cfg.Trading.WindowSize,
		QuoteAsset: cfg.Exchange.QuoteAsset,
		Params:     cfg.Risk,
		Strategy:   strat,
		Exchange:   venue,
		Notify:     buildNotifier(cfg, secrets),
		Journal:    jnl,
		Live:       tradeLive,
		NewID:      id.New,
	}
	if tradeDashboard {
		loop.Dashboard = cmd.OutOrStdout()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return loop.Run(ctx)
}

// buildNotifier assembles the enabled channels; with none enabled
// notifications are silently dropped.
func buildNotifier(cfg *config.Config, secrets config.Secrets) *notify.Manager {
	var channels []notify.Notifier

	if cfg.Notify.Telegram.Enabled {
		channels = append(channels,
			notify.NewTelegram(secrets.TelegramBotToken, secrets.TelegramChatID))
	}
	if cfg.Notify.Email.Enabled {
		e := cfg.Notify.Email
		channels = append(channels,
			notify.NewEmail(e.SMTPServer, e.SMTPPort,
				secrets.EmailUsername, secrets.EmailPassword, e.From, e.To))
	}
	return notify.NewManager(channels...)
}
