package rsi_threshold

import (
	"fmt"

	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/indicator"
	"github.com/newthinker/moverscan/internal/series"
	"github.com/newthinker/moverscan/internal/strategy"
)

// RSIThreshold buys when RSI is oversold and shorts when it is overbought.
type RSIThreshold struct {
	period     int
	oversold   float64
	overbought float64
}

// New creates an RSI threshold strategy
func New(period int, oversold, overbought float64) *RSIThreshold {
	return &RSIThreshold{period: period, oversold: oversold, overbought: overbought}
}

func (r *RSIThreshold) Name() string {
	return "rsi_threshold"
}

func (r *RSIThreshold) Description() string {
	return fmt.Sprintf("RSI(%d) %.0f/%.0f", r.period, r.oversold, r.overbought)
}

func (r *RSIThreshold) RequiredData() strategy.DataRequirements {
	return strategy.DataRequirements{
		PriceHistory: r.period + 1,
		Indicators:   indicator.Params{RSIPeriods: []int{r.period}},
	}
}

func (r *RSIThreshold) Init(cfg strategy.Config) error {
	if v, ok := strategy.IntParam(cfg.Params, "period"); ok {
		r.period = v
	}
	if v, ok := strategy.FloatParam(cfg.Params, "oversold"); ok {
		r.oversold = v
	}
	if v, ok := strategy.FloatParam(cfg.Params, "overbought"); ok {
		r.overbought = v
	}
	if r.period <= 0 {
		return fmt.Errorf("rsi_threshold: period must be positive, got %d", r.period)
	}
	if r.oversold < 0 || r.overbought > 100 || r.oversold >= r.overbought {
		return fmt.Errorf("rsi_threshold: need 0 <= oversold < overbought <= 100, got %.1f/%.1f", r.oversold, r.overbought)
	}
	return nil
}

func (r *RSIThreshold) Decide(ctx strategy.AnalysisContext) (core.Action, error) {
	rsi, ok := ctx.Indicators[indicator.RSIName(r.period)]
	if !ok {
		rsi = indicator.RSI(series.Closes(ctx.OHLCV), r.period)
	}

	v, ok := indicator.Set{"rsi": rsi}.At("rsi", ctx.Index())
	if !ok {
		return core.ActionHold, nil
	}

	switch {
	case v < r.oversold:
		return core.ActionBuy, nil
	case v > r.overbought:
		return core.ActionShort, nil
	default:
		return core.ActionHold, nil
	}
}
