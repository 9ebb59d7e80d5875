package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/newthinker/moverscan/internal/collector"
	"github.com/newthinker/moverscan/internal/collector/yahoo"
	"github.com/newthinker/moverscan/internal/config"
	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/logger"
	"github.com/newthinker/moverscan/internal/metrics"
	"github.com/newthinker/moverscan/internal/notifier"
	"github.com/newthinker/moverscan/internal/notifier/telegram"
	"github.com/newthinker/moverscan/internal/notifier/webhook"
	"github.com/newthinker/moverscan/internal/router"
	"github.com/newthinker/moverscan/internal/scan"
	"github.com/newthinker/moverscan/internal/scheduler"
	"github.com/newthinker/moverscan/internal/storage/archive"
	"github.com/newthinker/moverscan/internal/storage/record"
	"go.uber.org/zap"
)

// scanJob is the scheduler name of the periodic scan.
const scanJob = "scan"

// Option configures an App.
type Option func(*App)

// WithCollector replaces the default Yahoo collector.
func WithCollector(c collector.Collector) Option {
	return func(a *App) { a.collector = c }
}

// WithRecorder replaces the recorder selected by the configuration.
func WithRecorder(r record.Recorder) Option {
	return func(a *App) { a.recorder = r }
}

// WithStorage replaces the archive backend selected by the configuration.
func WithStorage(s archive.Storage, backend string) Option {
	return func(a *App) {
		a.storage = s
		a.backend = backend
	}
}

// WithMetrics records pipeline metrics in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(a *App) { a.metrics = reg }
}

// WithNotifier registers n in addition to the configured notifiers.
func WithNotifier(n notifier.Notifier) Option {
	return func(a *App) { a.extra = append(a.extra, n) }
}

// WithPredictor passes a price predictor to the scanner.
func WithPredictor(p scan.Predictor) Option {
	return func(a *App) { a.predictor = p }
}

// App is the main application orchestrator
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	collector collector.Collector
	predictor scan.Predictor
	scanner   *scan.Scanner
	storage   archive.Storage
	backend   string
	archiver  *archive.Archiver
	recorder  record.Recorder
	metrics   *metrics.Registry
	notifiers *notifier.Registry
	router    *router.Router
	extra     []notifier.Notifier
	scheduler *scheduler.Scheduler

	mu        sync.RWMutex
	running   bool
	scheduled bool
	cancel    context.CancelFunc
	latest    *scan.Report
	lastErr   error
	runs      int
	archived  string
}

// New wires the scanner, archive, recorder and notifiers described by cfg.
func New(cfg *config.Config, log *zap.Logger, opts ...Option) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: log}
	for _, opt := range opts {
		opt(a)
	}

	if a.collector == nil {
		collectors := collector.NewRegistry()
		collectors.Register(yahoo.New())
		c, err := collectors.MustGet(cfg.Collector.Name)
		if err != nil {
			return nil, err
		}
		if err := c.Init(collector.Config{BaseURL: cfg.Collector.BaseURL, Timeout: cfg.Collector.Timeout}); err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, err)
		}
		a.collector = c
	}

	scanOpts := []scan.Option{scan.WithLogger(log), scan.WithMetrics(a.metrics)}
	if a.predictor != nil {
		scanOpts = append(scanOpts, scan.WithPredictor(a.predictor))
	}
	scanner, err := scan.NewScanner(a.collector, ScanConfig(cfg), scanOpts...)
	if err != nil {
		return nil, err
	}
	a.scanner = scanner

	if a.storage == nil && cfg.Archive.Type != "" {
		s, err := archive.Open(ArchiveConfig(cfg))
		if err != nil {
			return nil, err
		}
		a.storage, a.backend = s, cfg.Archive.Type
	}
	if a.storage != nil {
		a.archiver = archive.NewArchiver(a.storage, a.backend, log, a.metrics)
	}

	notifiers, err := buildNotifiers(cfg.Notifiers, a.extra)
	if err != nil {
		return nil, err
	}
	a.notifiers = notifiers
	a.router = router.New(router.Config{
		MinMove:          cfg.Router.MinMove,
		CooldownDuration: cfg.Router.Cooldown,
		EnabledActions:   cfg.Router.Actions,
	}, notifiers, log)

	if a.recorder == nil {
		if cfg.Record.SQLitePath != "" {
			r, err := record.NewSQLite(cfg.Record.SQLitePath, log)
			if err != nil {
				return nil, fmt.Errorf("opening recorder: %w", err)
			}
			a.recorder = r
		} else {
			a.recorder = record.NewNoop()
		}
	}

	a.scheduler = scheduler.New(log)
	return a, nil
}

func buildNotifiers(cfgs map[string]config.NotifierConfig, extra []notifier.Notifier) (*notifier.Registry, error) {
	reg := notifier.NewRegistry()
	for name, nc := range cfgs {
		if !nc.Enabled {
			continue
		}
		var n notifier.Notifier
		switch name {
		case "telegram":
			n = telegram.New(nc.BotToken, nc.ChatID)
		case "webhook":
			n = webhook.New(nc.URL, nc.Headers)
		default:
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown notifier %q", name))
		}
		if err := n.Init(notifier.Config{Type: name}); err != nil {
			return nil, err
		}
		if err := reg.Register(n); err != nil {
			return nil, err
		}
	}
	for _, n := range extra {
		if err := reg.Register(n); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// ScanConfig converts the configuration sections used by a scan.
func ScanConfig(cfg *config.Config) scan.Config {
	return scan.Config{
		TopN:           cfg.Ranking.TopN,
		Signal:         cfg.SignalEngineConfig(),
		Indicators:     cfg.IndicatorParams(),
		InitialBalance: cfg.Backtest.InitialBalance,
		Strategies:     cfg.StrategyConfigs(),
		Workers:        cfg.Workers,
	}
}

// Baskets converts the configured baskets.
func Baskets(cfg *config.Config) []scan.Basket {
	out := make([]scan.Basket, len(cfg.Baskets))
	for i, b := range cfg.Baskets {
		out[i] = scan.Basket{
			Name:     b.Name,
			Class:    b.Class,
			Symbols:  b.Symbols,
			Range:    b.Range,
			Interval: b.Interval,
		}
	}
	return out
}

// ArchiveConfig converts the archive section.
func ArchiveConfig(cfg *config.Config) archive.Config {
	s3 := cfg.Archive.S3
	return archive.Config{
		Type: cfg.Archive.Type,
		Path: cfg.Archive.Path,
		S3: archive.S3Config{
			Bucket:    s3.Bucket,
			Endpoint:  s3.Endpoint,
			Region:    s3.Region,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			Prefix:    s3.Prefix,
		},
	}
}

// Scanner returns the configured scanner.
func (a *App) Scanner() *scan.Scanner {
	return a.scanner
}

// Recorder returns the run recorder.
func (a *App) Recorder() record.Recorder {
	return a.recorder
}

// RunOnce scans every configured basket, archives the artifacts and records the run.
// Archive and recorder failures are added to the report diagnostics; only a cancelled
// scan returns an error.
func (a *App) RunOnce(ctx context.Context) (*scan.Report, error) {
	report, err := a.scanner.Run(ctx, Baskets(a.cfg))
	if err != nil {
		a.setResult(nil, err, "")
		return report, err
	}
	log := logger.ForRun(a.logger, report.RunID)

	var prefix string
	if a.archiver != nil {
		prefix, err = a.archive(ctx, report)
		if err != nil {
			a.addDiagnostic(report, core.NewDiagnostic("", core.StageReport, err))
		}
	}

	if err := a.record(ctx, report); err != nil {
		log.Error("recording run failed", zap.Error(err))
		a.addDiagnostic(report, core.NewDiagnostic("", core.StageReport, err))
	}

	a.notify(ctx, report)

	a.setResult(report, nil, prefix)
	return report, nil
}

func (a *App) archive(ctx context.Context, report *scan.Report) (string, error) {
	arts, err := report.Artifacts()
	if err != nil {
		return "", err
	}
	return a.archiver.Archive(ctx, report.RunID, report.StartedAt, arts)
}

func (a *App) record(ctx context.Context, report *scan.Report) error {
	run := record.Run{
		RunID:       report.RunID,
		StartedAt:   report.StartedAt,
		FinishedAt:  report.FinishedAt,
		Signals:     report.InstrumentCount(),
		Backtests:   report.BacktestCount(),
		Diagnostics: len(report.Diagnostics),
	}
	backtests := make([]record.BacktestRecord, 0, report.BacktestCount())
	for _, b := range report.Baskets {
		run.Instruments += b.Loaded
		for _, bt := range b.Backtests {
			backtests = append(backtests, record.BacktestRecord{
				RunID:          report.RunID,
				Symbol:         bt.Symbol,
				Strategy:       bt.Strategy,
				InitialBalance: bt.InitialBalance,
				FinalValue:     bt.FinalValue,
				TotalReturn:    bt.Stats.TotalReturn,
				Trades:         bt.Stats.TotalTrades,
				MaxDrawdown:    bt.Stats.MaxDrawdown,
			})
		}
	}

	if err := a.recorder.RecordRun(ctx, run); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	if err := a.recorder.RecordSignals(ctx, report.RunID, report.Signals()); err != nil {
		return fmt.Errorf("record signals: %w", err)
	}
	if err := a.recorder.RecordBacktests(ctx, backtests); err != nil {
		return fmt.Errorf("record backtests: %w", err)
	}
	return nil
}

func (a *App) notify(ctx context.Context, report *scan.Report) {
	errs := a.router.RouteRun(ctx, report.RunID, report.Signals())
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		err := fmt.Errorf("notify %s: %w", name, errs[name])
		logger.ForRun(a.logger, report.RunID).Warn("notification failed", zap.Error(err))
		a.addDiagnostic(report, core.NewDiagnostic("", core.StageReport, err))
	}
}

func (a *App) addDiagnostic(report *scan.Report, d core.Diagnostic) {
	report.Diagnostics = append(report.Diagnostics, d)
	if a.metrics != nil {
		a.metrics.RecordDiagnostic(d.Stage)
	}
}

func (a *App) setResult(report *scan.Report, err error, prefix string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runs++
	a.lastErr = err
	if report != nil {
		a.latest = report
		a.archived = prefix
	}
}

// Start schedules scans on the configured cron and blocks until ctx is done or Stop
// is called. When runNow is set a scan runs before the first tick.
func (a *App) Start(ctx context.Context, runNow bool) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	schedule := !a.scheduled
	a.scheduled = true
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	job := func(ctx context.Context) error {
		_, err := a.RunOnce(ctx)
		return err
	}
	if schedule {
		if err := a.scheduler.Add(scanJob, a.cfg.Schedule.Cron, job); err != nil {
			cancel()
			a.mu.Lock()
			a.scheduled = false
			a.mu.Unlock()
			return err
		}
	}

	a.logger.Info("moverscan watching",
		zap.Int("baskets", len(a.cfg.Baskets)),
		zap.String("cron", a.cfg.Schedule.Cron),
	)

	a.scheduler.Start(ctx)
	if a.cfg.Router.Cooldown > 0 {
		a.router.StartCleanupRoutine(ctx, a.cfg.Router.Cooldown)
	}
	if runNow {
		if _, err := a.scheduler.RunNow(ctx, scanJob); err != nil {
			a.logger.Error("initial scan failed", zap.Error(err))
		}
	}

	<-ctx.Done()
	a.logger.Info("moverscan shutting down")
	a.scheduler.Stop()
	return ctx.Err()
}

// Stop stops the watch loop
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

// Close releases the recorder.
func (a *App) Close() error {
	return a.recorder.Close()
}

// LatestReport returns the most recent completed report, or nil before the first run.
func (a *App) LatestReport() *scan.Report {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latest
}

// GetStats returns application statistics
func (a *App) GetStats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := map[string]any{
		"running":    a.running,
		"runs":       a.runs,
		"baskets":    len(a.cfg.Baskets),
		"collector":  a.collector.Name(),
		"strategies": len(a.scanner.Strategies()),
		"archive":    a.backend,
		"notifiers":  a.notifiers.Len(),
	}
	if next := a.scheduler.Next(scanJob); !next.IsZero() {
		stats["next_run"] = next.Format(time.RFC3339)
	}
	stats["router"] = a.router.GetStats()
	if a.lastErr != nil {
		stats["last_error"] = a.lastErr.Error()
	}
	if a.latest != nil {
		stats["last_run_id"] = a.latest.RunID
		stats["last_run_at"] = a.latest.FinishedAt.Format(time.RFC3339)
		stats["last_diagnostics"] = len(a.latest.Diagnostics)
		if a.archived != "" {
			stats["last_archive"] = a.archived
		}
	}
	return stats
}
