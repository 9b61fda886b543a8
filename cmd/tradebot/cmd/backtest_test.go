package cmd

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebot/config"
	"tradebot/journal"
	"tradebot/metrics"
)

func TestOpenJournal(t *testing.T) {
	dir := t.TempDir()

	t.Run("none", func(t *testing.T) {
		j, err := openJournal(config.JournalConfig{Type: "none"})
		require.NoError(t, err)
		assert.IsType(t, journal.Discard{}, j)
	})

	t.Run("csv", func(t *testing.T) {
		j, err := openJournal(config.JournalConfig{
			Type:       "csv",
			TradesFile: filepath.Join(dir, "t.csv"),
			EquityFile: filepath.Join(dir, "e.csv"),
		})
		require.NoError(t, err)
		require.NoError(t, j.Close())
	})

	t.Run("sqlite", func(t *testing.T) {
		j, err := openJournal(config.JournalConfig{
			Type:   "sqlite",
			DBPath: filepath.Join(dir, "j.sqlite"),
		})
		require.NoError(t, err)
		require.NoError(t, j.Close())
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := openJournal(config.JournalConfig{Type: "postgres"})
		assert.Error(t, err)
	})
}

func TestPrintSummary(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	printSummary(&b, metrics.Summary{
		TotalReturnPct: 12.5,
		TotalTrades:    7,
		WinningTrades:  5,
		LosingTrades:   2,
		WinRatePct:     71.43,
	})

	out := b.String()
	assert.Contains(t, out, "Total Return:")
	assert.Contains(t, out, "12.50%")
	assert.Contains(t, out, "5 / 2")
}

func TestSetupLogging(t *testing.T) {
	assert.NoError(t, setupLogging("debug"))
	assert.NoError(t, setupLogging(""))
	assert.Error(t, setupLogging("verbose"))
	// Restore a sane default for other tests.
	require.NoError(t, setupLogging("info"))
}
