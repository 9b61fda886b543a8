package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tradebot/config"
	"tradebot/data"
	"tradebot/exchange"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Manage the local bar cache",
}

var dataDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download recent bars from the exchange into the cache",
	RunE:  runDataDownload,
}

var dataSampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Generate a reproducible sample series into the cache",
	Long: `Sample writes a deterministic random-walk series for the configured
symbol and timeframe, useful for trying out strategies without exchange
access.`,
	RunE: runDataSample,
}

var (
	dataBars int
	dataDays int
)

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataDownloadCmd)
	dataCmd.AddCommand(dataSampleCmd)

	dataDownloadCmd.Flags().IntVar(&dataBars, "bars", 500, "how many bars to download")
	dataSampleCmd.Flags().IntVar(&dataDays, "days", 90, "how many days to generate")
}

func runDataDownload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	secrets, err := config.LoadSecrets(flagEnvFile)
	if err != nil {
		return err
	}

	client := exchange.NewClient(secrets.APIKey, secrets.APISecret, cfg.Exchange.Testnet)
	store, err := data.NewStore(cfg.General.DataDir, client)
	if err != nil {
		return err
	}

	bars, err := store.Fetch(cmd.Context(), cfg.Trading.Symbol, cfg.Trading.Timeframe, dataBars)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %d bars of %s %s to %s\n",
		len(bars), cfg.Trading.Symbol, cfg.Trading.Timeframe,
		store.Path(cfg.Trading.Symbol, cfg.Trading.Timeframe))
	return nil
}

func runDataSample(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := data.NewStore(cfg.General.DataDir, nil)
	if err != nil {
		return err
	}

	end := time.Now().UTC().Truncate(cfg.Trading.Timeframe.Duration())
	start := end.AddDate(0, 0, -dataDays)

	bars, err := store.GenerateAndSave(cfg.Trading.Symbol, cfg.Trading.Timeframe, start, end)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Generated %d bars of %s %s to %s\n",
		len(bars), cfg.Trading.Symbol, cfg.Trading.Timeframe,
		store.Path(cfg.Trading.Symbol, cfg.Trading.Timeframe))
	return nil
}
