package ma_crossover

import (
	"fmt"

	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/indicator"
	"github.com/newthinker/moverscan/internal/series"
	"github.com/newthinker/moverscan/internal/strategy"
)

// MACrossover implements a moving average crossover strategy
type MACrossover struct {
	fastPeriod int
	slowPeriod int
}

// New creates a new MA Crossover strategy
func New(fastPeriod, slowPeriod int) *MACrossover {
	return &MACrossover{
		fastPeriod: fastPeriod,
		slowPeriod: slowPeriod,
	}
}

func (m *MACrossover) Name() string {
	return "ma_crossover"
}

func (m *MACrossover) Description() string {
	return fmt.Sprintf("MA Crossover (%d/%d)", m.fastPeriod, m.slowPeriod)
}

func (m *MACrossover) RequiredData() strategy.DataRequirements {
	return strategy.DataRequirements{
		PriceHistory: m.slowPeriod + 1, // previous bar must have a slow MA too
		Indicators:   indicator.Params{SMAWindows: []int{m.fastPeriod, m.slowPeriod}},
	}
}

func (m *MACrossover) Init(cfg strategy.Config) error {
	if fast, ok := strategy.IntParam(cfg.Params, "fast_period"); ok {
		m.fastPeriod = fast
	}
	if slow, ok := strategy.IntParam(cfg.Params, "slow_period"); ok {
		m.slowPeriod = slow
	}
	if m.fastPeriod <= 0 || m.slowPeriod <= m.fastPeriod {
		return fmt.Errorf("ma_crossover: need 0 < fast_period < slow_period, got %d/%d", m.fastPeriod, m.slowPeriod)
	}
	return nil
}

func (m *MACrossover) Decide(ctx strategy.AnalysisContext) (core.Action, error) {
	if len(ctx.OHLCV) < m.slowPeriod+1 {
		return core.ActionHold, nil // Not enough data
	}

	fastMA, slowMA := m.averages(ctx)
	n := len(ctx.OHLCV)
	if len(fastMA) != n || len(slowMA) != n {
		return "", fmt.Errorf("ma_crossover: indicator length mismatch (%d/%d, want %d)", len(fastMA), len(slowMA), n)
	}

	// Get current and previous values
	currFast, prevFast := fastMA[n-1], fastMA[n-2]
	currSlow, prevSlow := slowMA[n-1], slowMA[n-2]
	if !indicator.Defined(prevSlow) || !indicator.Defined(currSlow) {
		return core.ActionHold, nil
	}

	// Golden Cross: fast crosses above slow
	if prevFast <= prevSlow && currFast > currSlow {
		return core.ActionBuy, nil
	}

	// Death Cross: fast crosses below slow
	if prevFast >= prevSlow && currFast < currSlow {
		return core.ActionShort, nil
	}

	return core.ActionHold, nil
}

// averages prefers precomputed indicators and falls back to computing them from the prefix.
func (m *MACrossover) averages(ctx strategy.AnalysisContext) ([]float64, []float64) {
	fast, okFast := ctx.Indicators[indicator.SMAName(m.fastPeriod)]
	slow, okSlow := ctx.Indicators[indicator.SMAName(m.slowPeriod)]
	if okFast && okSlow {
		return fast, slow
	}

	prices := series.Closes(ctx.OHLCV)
	return indicator.SMA(prices, m.fastPeriod), indicator.SMA(prices, m.slowPeriod)
}
