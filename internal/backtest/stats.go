package backtest

import (
	"math"

	"github.com/newthinker/moverscan/internal/core"
)

// RoundTrips pairs sells with the oldest open buy (FIFO, one unit each).
func RoundTrips(trades []core.TradeEntry) []RoundTrip {
	var open []core.TradeEntry
	var trips []RoundTrip

	for _, t := range trades {
		switch {
		case t.Action == core.ActionBuy:
			open = append(open, t)
		case t.Action.IsExit() && len(open) > 0:
			entry := open[0]
			open = open[1:]
			trips = append(trips, RoundTrip{
				EntryTime:  entry.Time,
				ExitTime:   t.Time,
				EntryPrice: entry.Price,
				ExitPrice:  t.Price,
				Return:     (t.Price - entry.Price) / entry.Price,
			})
		}
	}

	return trips
}

// CalculateStats computes performance statistics from a finished run
func CalculateStats(initialBalance, finalValue float64, trades []core.TradeEntry, equity []float64) Stats {
	stats := Stats{TotalTrades: len(trades)}

	trips := RoundTrips(trades)
	stats.RoundTrips = len(trips)
	for _, t := range trips {
		if t.IsWin() {
			stats.WinningTrades++
		} else {
			stats.LosingTrades++
		}
	}
	if len(trips) > 0 {
		stats.WinRate = float64(stats.WinningTrades) / float64(len(trips)) * 100
	}

	if initialBalance > 0 {
		stats.TotalReturn = (finalValue - initialBalance) / initialBalance * 100
	}

	stats.MaxDrawdown = calculateMaxDrawdown(equity) * 100
	stats.SharpeRatio = calculateSharpeRatio(equityReturns(equity))

	return stats
}

// calculateMaxDrawdown finds the largest peak-to-trough decline
func calculateMaxDrawdown(equity []float64) float64 {
	var maxDD float64
	var peak float64

	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (peak - v) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}

	return maxDD
}

func equityReturns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			continue
		}
		returns = append(returns, (equity[i]-equity[i-1])/equity[i-1])
	}
	return returns
}

// calculateSharpeRatio computes risk-adjusted return
// Assumes risk-free rate of 0 for simplicity
func calculateSharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	// Calculate mean return
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	// Calculate standard deviation
	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)-1))

	if stdDev == 0 {
		return 0
	}

	// Annualize (assuming ~252 trading days)
	annualizedReturn := mean * 252
	annualizedStdDev := stdDev * math.Sqrt(252)

	return annualizedReturn / annualizedStdDev
}
