// Package signal turns a percent move into a trading action, a take-profit target and
// an estimated number of bars to reach it.
package signal

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/series"
)

// Config holds the classification thresholds and take-profit margins.
// Thresholds are percentages, margins are fractions.
type Config struct {
	BuyThreshold   float64
	ShortThreshold float64
	BuyMargin      float64
	ShortMargin    float64
}

// DefaultConfig returns symmetric 2% thresholds and 2% take-profit margins.
func DefaultConfig() Config {
	return Config{
		BuyThreshold:   2.0,
		ShortThreshold: 2.0,
		BuyMargin:      0.02,
		ShortMargin:    0.02,
	}
}

// Classify maps a percent change to an action.
// Both comparisons are strict, so a move exactly at a threshold is a hold.
func Classify(percentChange, buyThreshold, shortThreshold float64) core.Action {
	switch {
	case percentChange > buyThreshold:
		return core.ActionBuy
	case percentChange < -shortThreshold:
		return core.ActionShort
	default:
		return core.ActionHold
	}
}

// TargetPrice returns the take-profit level for action.
func TargetPrice(lastClose float64, action core.Action, buyMargin, shortMargin float64) float64 {
	switch action {
	case core.ActionBuy:
		return lastClose * (1 + buyMargin)
	case core.ActionShort:
		return lastClose * (1 - shortMargin)
	default:
		return lastClose
	}
}

// Unreachable is the duration reported when the current drift never reaches the target.
var Unreachable = math.Inf(1)

// Duration is a holding period measured in bars.
type Duration float64

// IsUnreachable reports whether d is the infinite sentinel.
func (d Duration) IsUnreachable() bool {
	return math.IsInf(float64(d), 1)
}

// Wall converts d to wall-clock time using the bar interval.
// It returns false when the target is unreachable.
func (d Duration) Wall(interval time.Duration) (time.Duration, bool) {
	if d.IsUnreachable() {
		return 0, false
	}
	return time.Duration(float64(d) * float64(interval)), true
}

func (d Duration) String() string {
	if d.IsUnreachable() {
		return "unreachable"
	}
	return fmt.Sprintf("%.2f bars", float64(d))
}

// MarshalJSON encodes an unreachable duration as null.
func (d Duration) MarshalJSON() ([]byte, error) {
	if d.IsUnreachable() || math.IsNaN(float64(d)) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(d))
}

// UnmarshalJSON decodes null back to the unreachable sentinel.
func (d *Duration) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Duration(Unreachable)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MeanReturn is the mean of per-bar fractional returns.
// Steps from a zero close are skipped.
func MeanReturn(closes []float64) float64 {
	var sum float64
	var n int
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		sum += (closes[i] - closes[i-1]) / closes[i-1]
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// EstimateDuration estimates how many bars the mean drift needs to move the last close to target.
// Hold is always 0. A zero drift, or a drift away from the target, is Unreachable.
// The plain |target-last|/(last*|drift|) would give a finite count for an adverse drift
// as well; that case is reported as Unreachable instead.
func EstimateDuration(closes []float64, action core.Action, target float64) Duration {
	if action != core.ActionBuy && action != core.ActionShort {
		return 0
	}
	if len(closes) == 0 {
		return Duration(Unreachable)
	}

	lastClose := closes[len(closes)-1]
	drift := MeanReturn(closes)
	if action == core.ActionShort {
		drift = -drift
	}
	if drift <= 0 || lastClose == 0 {
		return Duration(Unreachable)
	}

	return Duration(math.Abs(target-lastClose) / (lastClose * drift))
}

// MaxProfit is the percent range (max-min)/min of closes.
func MaxProfit(closes []float64) (float64, error) {
	if len(closes) == 0 {
		return 0, core.WrapError(core.ErrDataQuality, fmt.Errorf("no closes"))
	}
	lo, hi := closes[0], closes[0]
	for _, c := range closes[1:] {
		lo = math.Min(lo, c)
		hi = math.Max(hi, c)
	}
	if lo <= 0 {
		return 0, core.WrapError(core.ErrDataQuality, fmt.Errorf("non-positive minimum close %v", lo))
	}
	return (hi - lo) / lo * 100, nil
}

// Engine derives signals using a fixed configuration.
type Engine struct {
	cfg Config
}

// NewEngine creates a signal engine
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Evaluate produces the signal for s given its ranked percent change.
// It returns core.ErrDataQuality when the series cannot support a signal.
func (e *Engine) Evaluate(s *series.Series, percentChange float64) (core.Signal, error) {
	last, ok := s.Last()
	if !ok {
		return core.Signal{}, core.WrapError(core.ErrDataQuality, fmt.Errorf("%s: series is empty", s.Symbol()))
	}
	if math.IsNaN(last.Close) || math.IsInf(last.Close, 0) || last.Close <= 0 {
		return core.Signal{}, core.WrapError(core.ErrDataQuality, fmt.Errorf("%s: last close missing", s.Symbol()))
	}
	if math.IsNaN(percentChange) {
		return core.Signal{}, core.WrapError(core.ErrDataQuality, fmt.Errorf("%s: percent change missing", s.Symbol()))
	}

	action := Classify(percentChange, e.cfg.BuyThreshold, e.cfg.ShortThreshold)
	target := TargetPrice(last.Close, action, e.cfg.BuyMargin, e.cfg.ShortMargin)

	return core.Signal{
		Symbol:        s.Symbol(),
		Action:        action,
		PercentChange: percentChange,
		LastClose:     last.Close,
		TargetPrice:   target,
		Duration:      float64(EstimateDuration(s.Closes(), action, target)),
		GeneratedAt:   last.Time,
	}, nil
}
