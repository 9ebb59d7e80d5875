package strategy

import (
	"context"
	"sort"
	"sync"

	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/indicator"
	"go.uber.org/zap"
)

// Decision is one strategy's action for the current bar.
type Decision struct {
	Strategy string
	Action   core.Action
}

// Engine manages and runs strategies
type Engine struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	logger     *zap.Logger
}

// NewEngine creates a new strategy engine
func NewEngine(logger ...*zap.Logger) *Engine {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Engine{
		strategies: make(map[string]Strategy),
		logger:     l,
	}
}

// Register adds a strategy to the engine
func (e *Engine) Register(s Strategy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strategies[s.Name()] = s
}

// Get retrieves a strategy by name
func (e *Engine) Get(name string) (Strategy, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.strategies[name]
	return s, ok
}

// GetAll returns all registered strategies ordered by name
func (e *Engine) GetAll() []Strategy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make([]Strategy, 0, len(e.strategies))
	for _, s := range e.strategies {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Requirements returns the union of indicator parameters and the longest warm-up
// across all registered strategies.
func (e *Engine) Requirements() DataRequirements {
	var req DataRequirements
	for _, s := range e.GetAll() {
		r := s.RequiredData()
		req.PriceHistory = max(req.PriceHistory, r.PriceHistory)
		req.Indicators = req.Indicators.Merge(r.Indicators)
	}
	return req
}

// Decide runs every strategy against the latest bar of bars.
// Strategies that fail or lack warm-up are logged and skipped.
func (e *Engine) Decide(ctx context.Context, symbol string, bars []core.OHLCV, set indicator.Set) ([]Decision, error) {
	if len(bars) == 0 {
		return nil, nil
	}

	analysisCtx := AnalysisContext{
		Symbol:     symbol,
		OHLCV:      bars,
		Indicators: set,
		Now:        bars[len(bars)-1].Time,
	}

	var decisions []Decision
	for _, s := range e.GetAll() {
		select {
		case <-ctx.Done():
			return decisions, ctx.Err()
		default:
		}

		if len(bars) < s.RequiredData().PriceHistory {
			continue
		}

		action, err := s.Decide(analysisCtx)
		if err != nil {
			e.logger.Warn("strategy evaluation failed",
				zap.String("strategy", s.Name()),
				zap.String("symbol", symbol),
				zap.Error(err),
			)
			continue
		}

		decisions = append(decisions, Decision{Strategy: s.Name(), Action: action})
	}

	return decisions, nil
}
