package backtest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/indicator"
	"github.com/newthinker/moverscan/internal/metrics"
	"github.com/newthinker/moverscan/internal/series"
	"github.com/newthinker/moverscan/internal/strategy"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BarsProvider supplies the full bar history of a symbol.
type BarsProvider interface {
	FetchBars(symbol string) ([]core.OHLCV, error)
}

// Simulate runs strat over bars one bar at a time and returns the final state.
//
// The decision at bar t sees bars [0..t] and fills at Close[t]. A buy fills one unit
// when cash covers the price; a short or sell closes one unit when a position is open.
// Anything else leaves the state untouched. bars is never modified.
// A bar with a non-finite close fails the run with core.ErrDataQuality.
func Simulate(ctx context.Context, strat strategy.Strategy, symbol string, bars []core.OHLCV, initialBalance float64) (*Result, error) {
	data := make([]core.OHLCV, len(bars))
	copy(data, bars)

	res := &Result{
		Strategy:       strat.Name(),
		Symbol:         symbol,
		InitialBalance: initialBalance,
		FinalValue:     initialBalance,
		Cash:           initialBalance,
	}
	if len(data) > 0 {
		res.StartDate = data[0].Time
		res.EndDate = data[len(data)-1].Time
	}

	for i, b := range data {
		if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) {
			return nil, core.WrapError(core.ErrDataQuality,
				fmt.Errorf("%s: bar %d has non-finite close", symbol, i))
		}
	}

	req := strat.RequiredData()
	start := max(0, req.PriceHistory-1)
	if len(data) == 0 || start >= len(data) {
		res.Stats = CalculateStats(initialBalance, res.FinalValue, nil, nil)
		return res, nil
	}

	closes := series.Closes(data)
	volumes := make([]float64, len(data))
	for i, b := range data {
		volumes[i] = float64(b.Volume)
	}
	set := indicator.Compute(closes, volumes, req.Indicators)

	cash := initialBalance
	position := 0
	equity := make([]float64, 0, len(data)-start)

	for t := start; t < len(data); t++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bar := data[t]
		action, err := strat.Decide(strategy.AnalysisContext{
			Symbol:     symbol,
			OHLCV:      data[: t+1 : t+1],
			Indicators: set.Truncate(t + 1),
			Now:        bar.Time,
		})
		if err != nil {
			return nil, core.WrapError(core.ErrStrategyFailed,
				fmt.Errorf("%s on %s at bar %d: %w", strat.Name(), symbol, t, err))
		}

		price := bar.Close
		switch {
		case action == core.ActionBuy && cash >= price:
			cash -= price
			position++
			res.Trades = append(res.Trades, core.TradeEntry{
				Time: bar.Time, Action: core.ActionBuy, Price: price, BalanceAfter: cash,
			})
		case action.IsExit() && position > 0:
			cash += price
			position--
			res.Trades = append(res.Trades, core.TradeEntry{
				Time: bar.Time, Action: core.ActionSell, Price: price, BalanceAfter: cash,
			})
		}

		equity = append(equity, cash+float64(position)*price)
	}

	res.Cash = cash
	res.Position = position
	res.FinalValue = cash + float64(position)*data[len(data)-1].Close
	res.EquityCurve = equity
	res.Stats = CalculateStats(initialBalance, res.FinalValue, res.Trades, equity)

	return res, nil
}

// Option configures a Backtester.
type Option func(*Backtester)

// WithInitialBalance sets the starting cash of every run.
func WithInitialBalance(balance float64) Option {
	return func(b *Backtester) { b.initialBalance = balance }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Backtester) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics records every run in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(b *Backtester) { b.metrics = reg }
}

// Backtester runs strategy backtests against historical data
type Backtester struct {
	provider       BarsProvider
	initialBalance float64
	logger         *zap.Logger
	metrics        *metrics.Registry
}

// New creates a new Backtester with the given bars provider
func New(provider BarsProvider, opts ...Option) *Backtester {
	b := &Backtester{
		provider:       provider,
		initialBalance: DefaultInitialBalance,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run executes a backtest of strat over the full history of symbol.
func (b *Backtester) Run(ctx context.Context, strat strategy.Strategy, symbol string) (*Result, error) {
	bars, err := b.provider.FetchBars(symbol)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := Simulate(ctx, strat, symbol, bars, b.initialBalance)
	status := "success"
	if err != nil {
		status = "failed"
	}
	if b.metrics != nil {
		b.metrics.RecordBacktest(strat.Name(), status, time.Since(start).Seconds())
	}
	if err != nil {
		b.logger.Warn("backtest failed",
			zap.String("strategy", strat.Name()),
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		return nil, err
	}

	b.logger.Debug("backtest completed",
		zap.String("strategy", strat.Name()),
		zap.String("symbol", symbol),
		zap.Int("trades", len(res.Trades)),
		zap.Float64("final_value", res.FinalValue),
	)
	return res, nil
}

// RunAll backtests every strategy against every symbol with at most workers runs
// in flight. A failing run becomes a diagnostic and does not stop the others.
// Results are ordered by symbol, then strategy.
func (b *Backtester) RunAll(ctx context.Context, strats []strategy.Strategy, symbols []string, workers int) ([]*Result, []core.Diagnostic) {
	type job struct {
		strat  strategy.Strategy
		symbol string
	}
	jobs := make([]job, 0, len(strats)*len(symbols))
	for _, sym := range symbols {
		for _, s := range strats {
			jobs = append(jobs, job{strat: s, symbol: sym})
		}
	}

	results := make([]*Result, len(jobs))
	errs := make([]error, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, j := range jobs {
		g.Go(func() error {
			results[i], errs[i] = b.Run(gctx, j.strat, j.symbol)
			return nil
		})
	}
	_ = g.Wait()

	var out []*Result
	var diags []core.Diagnostic
	for i, j := range jobs {
		if errs[i] != nil {
			diags = append(diags, core.NewDiagnostic(j.symbol, core.StageBacktest, errs[i]))
			continue
		}
		out = append(out, results[i])
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].Strategy < out[j].Strategy
	})
	return out, diags
}
