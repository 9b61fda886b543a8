// Package metrics turns a trade list and equity curve into a performance
// summary.
package metrics

import (
	"math"
	"time"

	"tradebot/journal"
)

// PeriodsPerYear is the default annualization factor for ratio
// calculations, assuming daily samples over trading days. Override per
// call when the equity curve is sampled at another cadence.
const PeriodsPerYear = 252.0

// Summary is the full performance report for one run.
type Summary struct {
	TotalReturnPct      float64 `yaml:"total_return_pct"`
	AnnualizedReturnPct float64 `yaml:"annualized_return_pct"`
	SharpeRatio         float64 `yaml:"sharpe_ratio"`
	SortinoRatio        float64 `yaml:"sortino_ratio"`
	MaxDrawdown         float64 `yaml:"max_drawdown"` // fraction in [0, 1]
	RoMaD               float64 `yaml:"romad"`
	CalmarRatio         float64 `yaml:"calmar_ratio"`

	TotalTrades   int     `yaml:"total_trades"`
	WinningTrades int     `yaml:"winning_trades"`
	LosingTrades  int     `yaml:"losing_trades"`
	WinRatePct    float64 `yaml:"win_rate_pct"`
	ProfitFactor  float64 `yaml:"profit_factor"`

	AvgWin     float64 `yaml:"avg_win"`
	AvgLoss    float64 `yaml:"avg_loss"`
	Expectancy float64 `yaml:"expectancy"`

	MaxConsecutiveWins   int `yaml:"max_consecutive_wins"`
	MaxConsecutiveLosses int `yaml:"max_consecutive_losses"`

	AvgHoldingHours float64 `yaml:"avg_holding_hours"`
	TotalFees       float64 `yaml:"total_fees"`

	Start time.Time `yaml:"start"`
	End   time.Time `yaml:"end"`
}

// Compute builds the summary from a completed run. A trade counts as a win
// only when its P&L is strictly positive; break-even trades count as
// losses. Ratios whose denominator is zero report +Inf when the numerator
// is positive, otherwise 0.
func Compute(trades []journal.Trade, equity []journal.EquityPoint, initialBalance, finalBalance float64) Summary {
	var s Summary

	if initialBalance > 0 {
		s.TotalReturnPct = (finalBalance/initialBalance - 1) * 100
	}

	if len(equity) > 0 {
		s.Start = equity[0].Time
		s.End = equity[len(equity)-1].Time

		days := s.End.Sub(s.Start).Hours() / 24
		if days > 0 {
			s.AnnualizedReturnPct = (math.Pow(1+s.TotalReturnPct/100, 365/days) - 1) * 100
		}

		for _, p := range equity {
			if p.Drawdown > s.MaxDrawdown {
				s.MaxDrawdown = p.Drawdown
			}
		}

		returns := equityReturns(equity)
		s.SharpeRatio = SharpeRatio(returns, 0, PeriodsPerYear)
		s.SortinoRatio = SortinoRatio(returns, 0, PeriodsPerYear)
	}

	s.RoMaD = ratioOrInf(s.TotalReturnPct/100, s.MaxDrawdown)
	s.CalmarRatio = ratioOrInf(s.AnnualizedReturnPct/100, s.MaxDrawdown)

	var grossWin, grossLoss, holding float64
	var winStreak, lossStreak int
	for _, t := range trades {
		s.TotalTrades++
		s.TotalFees += t.Fee
		holding += t.ExitTime.Sub(t.EntryTime).Hours()

		if t.PnL > 0 {
			s.WinningTrades++
			grossWin += t.PnL
			winStreak++
			lossStreak = 0
		} else {
			s.LosingTrades++
			grossLoss += -t.PnL
			lossStreak++
			winStreak = 0
		}
		if winStreak > s.MaxConsecutiveWins {
			s.MaxConsecutiveWins = winStreak
		}
		if lossStreak > s.MaxConsecutiveLosses {
			s.MaxConsecutiveLosses = lossStreak
		}
	}

	if s.TotalTrades > 0 {
		s.WinRatePct = float64(s.WinningTrades) / float64(s.TotalTrades) * 100
		s.AvgHoldingHours = holding / float64(s.TotalTrades)
		s.Expectancy = (grossWin - grossLoss) / float64(s.TotalTrades)
	}
	if s.WinningTrades > 0 {
		s.AvgWin = grossWin / float64(s.WinningTrades)
	}
	if s.LosingTrades > 0 {
		s.AvgLoss = -grossLoss / float64(s.LosingTrades)
	}
	s.ProfitFactor = ratioOrInf(grossWin, grossLoss)

	return s
}

// SharpeRatio computes the annualized Sharpe ratio of per-period returns
// against an annual risk-free rate. Returns 0 when the return series has no
// variance or fewer than two samples.
func SharpeRatio(returns []float64, riskFree, periodsPerYear float64) float64 {
	mean, std := excessStats(returns, riskFree, periodsPerYear)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(periodsPerYear)
}

// SortinoRatio is the Sharpe variant that penalizes only downside
// deviation. With positive mean excess return and no downside samples it
// reports +Inf.
func SortinoRatio(returns []float64, riskFree, periodsPerYear float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	rf := perPeriodRate(riskFree, periodsPerYear)

	var mean float64
	for _, r := range returns {
		mean += r - rf
	}
	mean /= float64(len(returns))

	var downside float64
	for _, r := range returns {
		if ex := r - rf; ex < 0 {
			downside += ex * ex
		}
	}
	downside = math.Sqrt(downside / float64(len(returns)))

	if downside == 0 {
		if mean > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return mean / downside * math.Sqrt(periodsPerYear)
}

func excessStats(returns []float64, riskFree, periodsPerYear float64) (mean, std float64) {
	if len(returns) < 2 {
		return 0, 0
	}
	rf := perPeriodRate(riskFree, periodsPerYear)

	for _, r := range returns {
		mean += r - rf
	}
	mean /= float64(len(returns))

	var ss float64
	for _, r := range returns {
		d := (r - rf) - mean
		ss += d * d
	}
	std = math.Sqrt(ss / float64(len(returns)-1))
	return mean, std
}

func perPeriodRate(annual, periodsPerYear float64) float64 {
	if annual == 0 || periodsPerYear <= 0 {
		return 0
	}
	return math.Pow(1+annual, 1/periodsPerYear) - 1
}

func equityReturns(equity []journal.EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, equity[i].Equity/prev-1)
	}
	return out
}

func ratioOrInf(num, den float64) float64 {
	if den == 0 {
		if num > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return num / den
}
