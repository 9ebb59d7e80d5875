// Package record keeps a history of scan runs, their signals and backtest summaries.
package record

import (
	"context"
	"time"

	"github.com/newthinker/moverscan/internal/core"
)

// Run summarises one scan pass.
type Run struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Instruments int // Symbols with usable history
	Signals     int
	Backtests   int
	Diagnostics int
}

// SignalRecord is a signal tagged with the run that produced it.
type SignalRecord struct {
	RunID string
	core.Signal
}

// BacktestRecord is the summary of one backtest.
type BacktestRecord struct {
	RunID          string
	Symbol         string
	Strategy       string
	InitialBalance float64
	FinalValue     float64
	TotalReturn    float64 // Percent
	Trades         int
	MaxDrawdown    float64 // Percent
}

// ListFilter defines criteria for listing signals.
type ListFilter struct {
	RunID  string
	Symbol string
	Action core.Action
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// Recorder persists run history.
type Recorder interface {
	RecordRun(ctx context.Context, run Run) error
	RecordSignals(ctx context.Context, runID string, signals []core.Signal) error
	RecordBacktests(ctx context.Context, results []BacktestRecord) error
	ListSignals(ctx context.Context, filter ListFilter) ([]SignalRecord, error)
	Close() error
}

func (f ListFilter) matches(rec SignalRecord) bool {
	if f.RunID != "" && rec.RunID != f.RunID {
		return false
	}
	if f.Symbol != "" && rec.Symbol != f.Symbol {
		return false
	}
	if f.Action != "" && rec.Action != f.Action {
		return false
	}
	if !f.From.IsZero() && rec.GeneratedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && rec.GeneratedAt.After(f.To) {
		return false
	}
	return true
}

// page applies offset and limit.
func page[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return []T{}
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
