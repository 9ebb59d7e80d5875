package strategy

import (
	"time"

	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/indicator"
)

// Config holds strategy configuration
type Config struct {
	Enabled bool
	Params  map[string]any
}

// DataRequirements specifies what data a strategy needs
type DataRequirements struct {
	PriceHistory int              // Bars needed before the first decision
	Indicators   indicator.Params // Indicators precomputed by the caller
}

// AnalysisContext provides a causal view of one instrument to strategies.
// OHLCV and Indicators both end at the bar being decided.
type AnalysisContext struct {
	Symbol     string
	OHLCV      []core.OHLCV
	Indicators indicator.Set
	Now        time.Time
}

// Index returns the position of the current bar.
func (c AnalysisContext) Index() int {
	return len(c.OHLCV) - 1
}

// Current returns the bar being decided.
func (c AnalysisContext) Current() core.OHLCV {
	return c.OHLCV[len(c.OHLCV)-1]
}

// Strategy defines the interface for trading strategies.
// Implementations keep no state between Decide calls.
type Strategy interface {
	Name() string
	Description() string
	RequiredData() DataRequirements
	Init(cfg Config) error
	Decide(ctx AnalysisContext) (core.Action, error)
}

// Func adapts a plain function into a Strategy.
type Func struct {
	name   string
	warmUp int
	fn     func(ctx AnalysisContext) (core.Action, error)
}

// NewFunc creates a Strategy named name that needs warmUp bars before deciding.
func NewFunc(name string, warmUp int, fn func(ctx AnalysisContext) (core.Action, error)) *Func {
	return &Func{name: name, warmUp: warmUp, fn: fn}
}

func (f *Func) Name() string { return f.name }

func (f *Func) Description() string { return f.name }

func (f *Func) RequiredData() DataRequirements {
	return DataRequirements{PriceHistory: f.warmUp}
}

func (f *Func) Init(cfg Config) error { return nil }

func (f *Func) Decide(ctx AnalysisContext) (core.Action, error) {
	return f.fn(ctx)
}

// IntParam reads an integer parameter that may have been decoded as int, int64 or float64.
func IntParam(params map[string]any, key string) (int, bool) {
	switch v := params[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// FloatParam reads a numeric parameter as float64.
func FloatParam(params map[string]any, key string) (float64, bool) {
	switch v := params[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
