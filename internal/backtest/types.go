package backtest

import (
	"time"

	"github.com/newthinker/moverscan/internal/core"
)

// DefaultInitialBalance is the starting cash of a backtest.
const DefaultInitialBalance = 10000.0

// Result holds the complete backtest output
type Result struct {
	Strategy       string
	Symbol         string
	StartDate      time.Time
	EndDate        time.Time
	InitialBalance float64
	FinalValue     float64 // Cash + Position * last close
	Cash           float64
	Position       int
	Trades         []core.TradeEntry
	EquityCurve    []float64 // Portfolio value after each simulated bar
	Stats          Stats
}

// RoundTrip pairs a buy fill with the sell fill that closed it.
type RoundTrip struct {
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice float64
	ExitPrice  float64
	Return     float64 // Fractional return
}

// Stats holds performance statistics
type Stats struct {
	TotalTrades   int // Log entries
	RoundTrips    int // Closed buy/sell pairs
	WinningTrades int
	LosingTrades  int
	WinRate       float64 // Percentage of profitable round trips
	TotalReturn   float64 // Net return percentage on the initial balance
	MaxDrawdown   float64 // Largest peak-to-trough decline of the equity curve, percent
	SharpeRatio   float64 // Risk-adjusted return of per-bar equity changes (annualized)
}

// IsWin returns true if the round trip was profitable
func (r RoundTrip) IsWin() bool {
	return r.Return > 0
}
