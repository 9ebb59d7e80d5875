// Package scan runs one pass of the pipeline over a set of baskets: load, rank,
// signal, backtest. Every per-instrument failure is kept as a diagnostic.
package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/moverscan/internal/backtest"
	"github.com/newthinker/moverscan/internal/collector"
	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/indicator"
	"github.com/newthinker/moverscan/internal/logger"
	"github.com/newthinker/moverscan/internal/metrics"
	"github.com/newthinker/moverscan/internal/mover"
	"github.com/newthinker/moverscan/internal/series"
	"github.com/newthinker/moverscan/internal/signal"
	"github.com/newthinker/moverscan/internal/strategy"
	"github.com/newthinker/moverscan/internal/strategy/factory"
	"go.uber.org/zap"
)

// Basket is a group of instruments loaded with the same range and interval.
type Basket struct {
	Name     string
	Class    core.AssetClass
	Symbols  []string
	Range    string // lookback, e.g. "5d"
	Interval string // bar size, e.g. "1d"
}

// Config holds the tunables of a scan.
type Config struct {
	TopN           int
	Signal         signal.Config
	Indicators     indicator.Params
	InitialBalance float64
	Strategies     map[string]strategy.Config
	Workers        int
}

// Predictor supplies an optional predicted price for the report.
// It never influences actions or backtests.
type Predictor interface {
	Predict(ctx context.Context, s *series.Series) (float64, error)
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records scan metrics in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *Scanner) { s.metrics = reg }
}

// WithPredictor attaches a price predictor.
func WithPredictor(p Predictor) Option {
	return func(s *Scanner) { s.predictor = p }
}

// WithClock overrides the wall clock used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

// Scanner runs scans over baskets fetched through a collector.
type Scanner struct {
	collector  collector.Collector
	cfg        Config
	signals    *signal.Engine
	strategies *strategy.Engine
	predictor  Predictor
	logger     *zap.Logger
	metrics    *metrics.Registry
	now        func() time.Time
}

// NewScanner builds a scanner. It fails when an enabled strategy cannot be built.
func NewScanner(c collector.Collector, cfg Config, opts ...Option) (*Scanner, error) {
	if c == nil {
		return nil, core.WrapError(core.ErrConfigMissing, errors.New("collector"))
	}
	if cfg.TopN <= 0 {
		cfg.TopN = mover.DefaultTopN
	}
	if cfg.InitialBalance <= 0 {
		cfg.InitialBalance = backtest.DefaultInitialBalance
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	s := &Scanner{
		collector: c,
		cfg:       cfg,
		signals:   signal.NewEngine(cfg.Signal),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.strategies = strategy.NewEngine(s.logger)
	if err := factory.NewEngine(cfg.Strategies, s.strategies); err != nil {
		return nil, err
	}
	return s, nil
}

// Strategies returns the enabled strategies ordered by name.
func (s *Scanner) Strategies() []strategy.Strategy {
	return s.strategies.GetAll()
}

// Run scans every basket in order and returns the combined report.
// A cancelled context stops the run and returns the partial report with ctx.Err().
func (s *Scanner) Run(ctx context.Context, baskets []Basket) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: s.now().UTC(),
	}
	log := logger.ForRun(s.logger, report.RunID)
	log.Info("scan started", zap.Int("baskets", len(baskets)))

	for _, b := range baskets {
		if err := ctx.Err(); err != nil {
			return s.finish(log, report, err)
		}
		br, diags := s.ScanBasket(ctx, b)
		report.Baskets = append(report.Baskets, br)
		report.Diagnostics = append(report.Diagnostics, diags...)
	}

	return s.finish(log, report, ctx.Err())
}

func (s *Scanner) finish(log *zap.Logger, report *Report, err error) (*Report, error) {
	report.FinishedAt = s.now().UTC()
	elapsed := report.FinishedAt.Sub(report.StartedAt)

	status := "success"
	if err != nil {
		status = "cancelled"
	}
	if s.metrics != nil {
		for _, d := range report.Diagnostics {
			s.metrics.RecordDiagnostic(d.Stage)
		}
		s.metrics.RecordScan(status, elapsed.Seconds(), float64(report.FinishedAt.Unix()))
	}

	for _, d := range report.Diagnostics {
		log.Debug("diagnostic",
			zap.String("symbol", d.Symbol),
			zap.String("stage", d.Stage),
			zap.String("message", d.Message),
		)
	}
	log.Info("scan finished",
		zap.String("status", status),
		zap.Int("instruments", report.InstrumentCount()),
		zap.Int("backtests", report.BacktestCount()),
		zap.Int("diagnostics", len(report.Diagnostics)),
		zap.Duration("elapsed", elapsed),
	)
	return report, err
}

// ScanBasket loads one basket, ranks it and analyses the selected movers.
func (s *Scanner) ScanBasket(ctx context.Context, b Basket) (BasketReport, []core.Diagnostic) {
	store, diags := s.Load(ctx, b)
	if s.metrics != nil {
		s.metrics.SetSymbolsLoaded(b.Name, store.Len())
	}

	br := BasketReport{
		Name:     b.Name,
		Class:    b.Class,
		Range:    b.Range,
		Interval: b.Interval,
		Loaded:   store.Len(),
	}

	ranking, rankDiags := mover.Rank(store, s.cfg.TopN)
	diags = append(diags, rankDiags...)
	br.Gainers = ranking.Gainers
	br.Losers = ranking.Losers
	if s.metrics != nil {
		s.metrics.RecordMovers(len(ranking.Gainers), len(ranking.Losers))
	}

	selected := ranking.Selected()
	params := s.cfg.Indicators.Merge(s.strategies.Requirements().Indicators)

	symbols := make([]string, 0, len(selected))
	for _, m := range selected {
		ser, _ := store.Get(m.Symbol)
		inst, err := s.analyze(ctx, ser, m.PercentChange, params)
		if err != nil {
			diags = append(diags, core.NewDiagnostic(m.Symbol, core.StageSignal, err))
			continue
		}
		if inst.Action != core.ActionHold && inst.EstimatedDuration.IsUnreachable() {
			diags = append(diags, core.NewDiagnostic(m.Symbol, core.StageSignal, core.WrapError(core.ErrDegenerate,
				fmt.Errorf("%s: drift never reaches target %.4f", m.Symbol, inst.TargetPrice))))
		}
		br.Instruments = append(br.Instruments, inst)
		symbols = append(symbols, m.Symbol)
	}

	bt := backtest.New(store,
		backtest.WithInitialBalance(s.cfg.InitialBalance),
		backtest.WithLogger(s.logger),
		backtest.WithMetrics(s.metrics),
	)
	results, btDiags := bt.RunAll(ctx, s.strategies.GetAll(), symbols, s.cfg.Workers)
	diags = append(diags, btDiags...)
	for _, res := range results {
		br.Backtests = append(br.Backtests, NewBacktestReport(res))
	}

	return br, diags
}

// analyze builds the per-instrument report of one selected mover.
func (s *Scanner) analyze(ctx context.Context, ser *series.Series, pct float64, params indicator.Params) (InstrumentReport, error) {
	sig, err := s.signals.Evaluate(ser, pct)
	if err != nil {
		return InstrumentReport{}, err
	}
	closes := ser.Closes()
	maxProfit, err := signal.MaxProfit(closes)
	if err != nil {
		return InstrumentReport{}, fmt.Errorf("%s: %w", ser.Symbol(), err)
	}
	if s.metrics != nil {
		s.metrics.RecordSignal(string(sig.Action))
	}

	set := indicator.Compute(closes, ser.Volumes(), params)
	inst := InstrumentReport{
		Symbol:            sig.Symbol,
		PercentChange:     sig.PercentChange,
		Action:            sig.Action,
		LastClose:         sig.LastClose,
		TargetPrice:       sig.TargetPrice,
		MaxProfitPercent:  maxProfit,
		EstimatedDuration: signal.Duration(sig.Duration),
		Indicators:        set.Snapshot(ser.Len() - 1),
		GeneratedAt:       sig.GeneratedAt,
	}

	decisions, err := s.strategies.Decide(ctx, ser.Symbol(), ser.Bars(), set)
	if err != nil {
		return InstrumentReport{}, err
	}
	inst.Decisions = decisions

	if s.predictor != nil {
		p, err := s.predictor.Predict(ctx, ser)
		if err != nil {
			s.logger.Warn("prediction failed", zap.String("symbol", ser.Symbol()), zap.Error(err))
		} else {
			inst.PredictedPrice = &p
		}
	}
	return inst, nil
}

// Backtest runs one strategy over a freshly fetched symbol. Strategies missing from
// the scan configuration are built with their defaults.
func (s *Scanner) Backtest(ctx context.Context, name, symbol, rng, interval string) (*backtest.Result, error) {
	cfg, ok := s.cfg.Strategies[name]
	if !ok {
		cfg = strategy.Config{Enabled: true}
	}
	strat, err := factory.New(name, cfg)
	if err != nil {
		return nil, err
	}

	store, _, err := s.loadOne(ctx, "backtest", symbol, rng, interval)
	if err != nil {
		return nil, err
	}

	bt := backtest.New(store,
		backtest.WithInitialBalance(s.cfg.InitialBalance),
		backtest.WithLogger(s.logger),
		backtest.WithMetrics(s.metrics),
	)
	return bt.Run(ctx, strat, symbol)
}

// Inspect fetches one symbol and analyses it as if it had been selected as a mover,
// whatever its rank. Its percent change is taken over the fetched range.
func (s *Scanner) Inspect(ctx context.Context, symbol, rng, interval string) (InstrumentReport, error) {
	_, ser, err := s.loadOne(ctx, "inspect", symbol, rng, interval)
	if err != nil {
		return InstrumentReport{}, err
	}
	pct, err := mover.PercentChange(ser)
	if err != nil {
		return InstrumentReport{}, err
	}
	params := s.cfg.Indicators.Merge(s.strategies.Requirements().Indicators)
	return s.analyze(ctx, ser, pct, params)
}

func (s *Scanner) loadOne(ctx context.Context, name, symbol, rng, interval string) (*series.Store, *series.Series, error) {
	store, diags := s.Load(ctx, Basket{Name: name, Symbols: []string{symbol}, Range: rng, Interval: interval})
	ser, ok := store.Get(symbol)
	if !ok {
		if len(diags) > 0 {
			return nil, nil, core.WrapError(core.ErrNoData, errors.New(diags[0].Message))
		}
		return nil, nil, core.WrapError(core.ErrNoData, fmt.Errorf("%s", symbol))
	}
	return store, ser, nil
}
