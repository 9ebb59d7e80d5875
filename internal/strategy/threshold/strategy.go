// Package threshold buys or shorts when the move since the first bar crosses a percent threshold.
package threshold

import (
	"fmt"

	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/signal"
	"github.com/newthinker/moverscan/internal/strategy"
)

// Threshold classifies (Close[t] - Open[0]) / Open[0] * 100 against buy/short thresholds.
type Threshold struct {
	buyThreshold   float64
	shortThreshold float64
}

// New creates a threshold strategy
func New(buyThreshold, shortThreshold float64) *Threshold {
	return &Threshold{buyThreshold: buyThreshold, shortThreshold: shortThreshold}
}

func (s *Threshold) Name() string {
	return "threshold"
}

func (s *Threshold) Description() string {
	return fmt.Sprintf("Percent change threshold (+%.2f%%/-%.2f%%)", s.buyThreshold, s.shortThreshold)
}

func (s *Threshold) RequiredData() strategy.DataRequirements {
	return strategy.DataRequirements{PriceHistory: 1}
}

func (s *Threshold) Init(cfg strategy.Config) error {
	if v, ok := strategy.FloatParam(cfg.Params, "buy_threshold"); ok {
		s.buyThreshold = v
	}
	if v, ok := strategy.FloatParam(cfg.Params, "short_threshold"); ok {
		s.shortThreshold = v
	}
	if s.buyThreshold < 0 || s.shortThreshold < 0 {
		return fmt.Errorf("threshold: thresholds must be non-negative")
	}
	return nil
}

func (s *Threshold) Decide(ctx strategy.AnalysisContext) (core.Action, error) {
	if len(ctx.OHLCV) == 0 {
		return core.ActionHold, nil
	}
	open := ctx.OHLCV[0].Open
	if open <= 0 {
		return "", core.WrapError(core.ErrDataQuality, fmt.Errorf("first open is %v", open))
	}

	pct := (ctx.Current().Close - open) / open * 100
	return signal.Classify(pct, s.buyThreshold, s.shortThreshold), nil
}
