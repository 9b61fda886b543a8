// Package data manages the on-disk bar cache: CSV files named
// <symbol>_<timeframe>.csv under a data directory, with an exchange feed
// behind them for cache misses.
package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"tradebot/exchange"
	"tradebot/market"
)

var csvHeader = []string{"timestamp", "open", "high", "low", "close", "volume"}

// Store is the bar cache. Feed is optional; without it only cached and
// generated data is available.
type Store struct {
	dir  string
	feed exchange.MarketData
}

func NewStore(dir string, feed exchange.MarketData) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &Store{dir: dir, feed: feed}, nil
}

// Path returns the cache file for a symbol/timeframe pair.
func (s *Store) Path(symbol string, tf market.Timeframe) string {
	name := strings.ToLower(strings.NewReplacer("/", "_", "-", "_").Replace(symbol))
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.csv", name, tf))
}

// Load reads cached bars and keeps those with start <= time <= end.
func (s *Store) Load(symbol string, tf market.Timeframe, start, end time.Time) ([]market.Bar, error) {
	path := s.Path(symbol, tf)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}
	defer f.Close()

	bars, err := readCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read cache %s: %w", path, err)
	}

	out := bars[:0]
	for _, b := range bars {
		if b.Time.Before(start) || b.Time.After(end) {
			continue
		}
		out = append(out, b)
	}

	if err := market.ValidateSeries(out); err != nil {
		return nil, fmt.Errorf("cache %s: %w", path, err)
	}
	return out, nil
}

// Save writes bars to the cache file, replacing any previous content.
func (s *Store) Save(symbol string, tf market.Timeframe, bars []market.Bar) error {
	path := s.Path(symbol, tf)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create cache %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, b := range bars {
		rec := []string{
			b.Time.UTC().Format(time.RFC3339),
			fmtFloat(b.Open),
			fmtFloat(b.High),
			fmtFloat(b.Low),
			fmtFloat(b.Close),
			fmtFloat(b.Volume),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write cache %s: %w", path, err)
	}

	slog.Info("saved bars", "path", path, "bars", len(bars))
	return nil
}

// Fetch pulls the latest bars from the feed and refreshes the cache.
func (s *Store) Fetch(ctx context.Context, symbol string, tf market.Timeframe, limit int) ([]market.Bar, error) {
	if s.feed == nil {
		return nil, fmt.Errorf("store has no market data feed")
	}

	bars, err := s.feed.FetchBars(ctx, symbol, tf, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", symbol, tf, err)
	}
	if err := s.Save(symbol, tf, bars); err != nil {
		return nil, err
	}
	return bars, nil
}

func readCSV(r io.Reader) ([]market.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, want := range csvHeader {
		if !strings.EqualFold(header[i], want) {
			return nil, fmt.Errorf("column %d is %q, want %q", i, header[i], want)
		}
	}

	var bars []market.Bar
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", rec[0], err)
		}

		var vals [5]float64
		for i := 1; i < len(rec); i++ {
			v, err := strconv.ParseFloat(rec[i], 64)
			if err != nil {
				return nil, fmt.Errorf("parse %s %q: %w", csvHeader[i], rec[i], err)
			}
			vals[i-1] = v
		}

		bars = append(bars, market.Bar{
			Time:   ts.UTC(),
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
	}
	return bars, nil
}

// GenerateSample produces a reproducible random-walk series for testing and
// demos. The same arguments always yield the same bars.
func GenerateSample(tf market.Timeframe, start, end time.Time) ([]market.Bar, error) {
	step := tf.Duration()
	if !start.Before(end) {
		return nil, fmt.Errorf("start %s is not before end %s", start, end)
	}

	rng := rand.New(rand.NewSource(42))
	price := 100.0

	var bars []market.Bar
	for ts := start.UTC(); !ts.After(end.UTC()); ts = ts.Add(step) {
		c := price
		high := c * (1 + math.Abs(rng.NormFloat64())*0.005)
		low := c * (1 - math.Abs(rng.NormFloat64())*0.005)
		open := c * (1 + rng.NormFloat64()*0.003)

		high = math.Max(high, math.Max(open, c))
		low = math.Min(low, math.Min(open, c))

		bars = append(bars, market.Bar{
			Time:   ts,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  c,
			Volume: math.Abs(rng.NormFloat64())*1000 + 500,
		})

		price *= 1 + rng.NormFloat64()*0.01
	}
	return bars, nil
}

// GenerateAndSave writes a sample series into the cache.
func (s *Store) GenerateAndSave(symbol string, tf market.Timeframe, start, end time.Time) ([]market.Bar, error) {
	bars, err := GenerateSample(tf, start, end)
	if err != nil {
		return nil, err
	}
	if err := s.Save(symbol, tf, bars); err != nil {
		return nil, err
	}
	return bars, nil
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
