package core

import "time"

// AssetClass groups instruments that are scanned together
type AssetClass string

const (
	AssetETF   AssetClass = "etf"
	AssetCFD   AssetClass = "cfd"
	AssetForex AssetClass = "forex"
)

// OHLCV represents a candlestick/bar
type OHLCV struct {
	Symbol   string
	Interval string // "1m", "5m", "1d"
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
	Time     time.Time
}

// Action represents a trading decision
type Action string

const (
	ActionBuy   Action = "buy"
	ActionShort Action = "short"
	ActionHold  Action = "hold"

	// ActionSell is recorded in trade logs when a unit is closed.
	ActionSell Action = "sell"
)

// IsExit reports whether the action closes an open unit.
func (a Action) IsExit() bool {
	return a == ActionShort || a == ActionSell
}

// Mover is an instrument ranked by percent change over the lookback period
type Mover struct {
	Symbol        string
	PercentChange float64
}

// Signal is the per-instrument action and take-profit estimate at the latest bar
type Signal struct {
	Symbol        string
	Action        Action
	PercentChange float64
	LastClose     float64
	TargetPrice   float64
	Duration      float64 // bars to target, +Inf when unreachable
	GeneratedAt   time.Time
}

// TradeEntry is one fill in a backtest trade log
type TradeEntry struct {
	Time         time.Time
	Action       Action
	Price        float64
	BalanceAfter float64
}

// Diagnostic is a per-symbol problem collected during a run
type Diagnostic struct {
	Symbol  string
	Stage   string
	Message string
}

// Pipeline stages used in diagnostics
const (
	StageFetch    = "fetch"
	StageRank     = "rank"
	StageSignal   = "signal"
	StageBacktest = "backtest"
	StageReport   = "report"
)
