package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/newthinker/moverscan/internal/collector"
	"github.com/newthinker/moverscan/internal/config"
	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/metrics"
	"github.com/newthinker/moverscan/internal/notifier"
	"github.com/newthinker/moverscan/internal/storage/archive"
	"github.com/newthinker/moverscan/internal/storage/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubCollector struct {
	closes map[string][]float64
}

func (s *stubCollector) Name() string                    { return "stub" }
func (s *stubCollector) Init(cfg collector.Config) error { return nil }

func (s *stubCollector) FetchRange(ctx context.Context, symbol, rng, interval string) ([]core.OHLCV, error) {
	closes, ok := s.closes[symbol]
	if !ok {
		return nil, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("%s", symbol))
	}
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]core.OHLCV, len(closes))
	prev := closes[0]
	for i, c := range closes {
		bars[i] = core.OHLCV{Open: prev, High: max(prev, c), Low: min(prev, c), Close: c, Volume: 10, Time: start.AddDate(0, 0, i)}
		prev = c
	}
	return bars, nil
}

type captureNotifier struct {
	name    string
	fail    bool
	batches [][]core.Signal
}

func (c *captureNotifier) Name() string                   { return c.name }
func (c *captureNotifier) Init(cfg notifier.Config) error { return nil }

func (c *captureNotifier) Send(ctx context.Context, sig core.Signal) error {
	return c.SendBatch(ctx, "", []core.Signal{sig})
}

func (c *captureNotifier) SendBatch(ctx context.Context, runID string, sigs []core.Signal) error {
	c.batches = append(c.batches, sigs)
	if c.fail {
		return errors.New("chat not found")
	}
	return nil
}

type failingRecorder struct{ record.Noop }

func (failingRecorder) RecordRun(context.Context, record.Run) error {
	return errors.New("database is locked")
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Baskets = []config.BasketConfig{{
		Name:     "etf",
		Class:    core.AssetETF,
		Symbols:  []string{"SPY", "QQQ", "GLD", "XXX"},
		Range:    "5d",
		Interval: "1d",
	}}
	cfg.Ranking.TopN = 1
	cfg.Archive.Type = ""
	cfg.Schedule.Cron = "@every 1s"
	return cfg
}

func newTestApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	stub := &stubCollector{closes: map[string][]float64{
		"SPY": {100, 101, 102, 104},
		"QQQ": {100, 98, 96, 95},
		"GLD": {100, 100, 100, 100},
	}}
	a, err := New(testConfig(), zap.NewNop(), append([]Option{WithCollector(stub)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNew_DefaultsToNoopRecorder(t *testing.T) {
	a := newTestApp(t)
	assert.IsType(t, &record.Noop{}, a.Recorder())
	assert.Nil(t, a.LatestReport())
}

func TestNew_InvalidArchive(t *testing.T) {
	cfg := testConfig()
	cfg.Archive.Type = "s3"

	_, err := New(cfg, nil, WithCollector(&stubCollector{}))
	assert.Error(t, err)
}

func TestNew_SQLiteRecorder(t *testing.T) {
	cfg := testConfig()
	cfg.Record.SQLitePath = t.TempDir() + "/runs.db"

	a, err := New(cfg, nil, WithCollector(&stubCollector{}))
	require.NoError(t, err)
	defer a.Close()
	assert.IsType(t, &record.SQLite{}, a.Recorder())
}

func TestApp_RunOnce(t *testing.T) {
	fs, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	rec := record.NewMemory(100)
	a := newTestApp(t, WithStorage(fs, "localfs"), WithRecorder(rec), WithMetrics(metrics.NewRegistry()))
	ctx := context.Background()

	report, err := a.RunOnce(ctx)
	require.NoError(t, err)
	assert.Same(t, report, a.LatestReport())

	require.Len(t, report.Baskets, 1)
	assert.Equal(t, 3, report.Baskets[0].Loaded)
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, "XXX", report.Diagnostics[0].Symbol)

	runs := rec.Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, report.RunID, runs[0].RunID)
	assert.Equal(t, 3, runs[0].Instruments)
	assert.Equal(t, 2, runs[0].Signals)

	sigs, err := rec.ListSignals(ctx, record.ListFilter{RunID: report.RunID})
	require.NoError(t, err)
	assert.Len(t, sigs, 2)
	assert.Len(t, rec.Backtests(), report.BacktestCount())

	prefix := archive.RunPrefix(report.RunID, report.StartedAt)
	exists, err := fs.Exists(ctx, prefix+"/report.json")
	require.NoError(t, err)
	assert.True(t, exists)

	stats := a.GetStats()
	assert.Equal(t, 1, stats["runs"])
	assert.Equal(t, report.RunID, stats["last_run_id"])
	assert.Equal(t, prefix, stats["last_archive"])
	assert.Equal(t, "stub", stats["collector"])
}

func TestApp_RunOnce_RecorderFailureIsDiagnostic(t *testing.T) {
	a := newTestApp(t, WithRecorder(failingRecorder{}))

	report, err := a.RunOnce(context.Background())
	require.NoError(t, err)

	last := report.Diagnostics[len(report.Diagnostics)-1]
	assert.Equal(t, core.StageReport, last.Stage)
	assert.Contains(t, last.Message, "database is locked")
}

func TestNew_UnknownCollector(t *testing.T) {
	cfg := testConfig()
	cfg.Collector.Name = "bloomberg"

	_, err := New(cfg, nil)
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestNew_ConfiguredNotifiers(t *testing.T) {
	cfg := testConfig()
	cfg.Notifiers = map[string]config.NotifierConfig{
		"webhook":  {Enabled: true, URL: "http://127.0.0.1:1/hook"},
		"telegram": {Enabled: false},
	}

	a, err := New(cfg, nil, WithCollector(&stubCollector{}))
	require.NoError(t, err)
	assert.Equal(t, 1, a.GetStats()["notifiers"])
}

func TestApp_RunOnce_Notifies(t *testing.T) {
	ok := &captureNotifier{name: "ok"}
	bad := &captureNotifier{name: "bad", fail: true}
	a := newTestApp(t, WithNotifier(ok), WithNotifier(bad))

	report, err := a.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, ok.batches, 1)
	assert.Len(t, ok.batches[0], 2, "SPY buy and QQQ short")

	last := report.Diagnostics[len(report.Diagnostics)-1]
	assert.Equal(t, core.StageReport, last.Stage)
	assert.Contains(t, last.Message, "notify bad")
}

func TestApp_RunOnce_Cancelled(t *testing.T) {
	a := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, a.LatestReport())
	assert.Contains(t, a.GetStats(), "last_error")
}

func TestApp_StartStop(t *testing.T) {
	a := newTestApp(t)

	done := make(chan error, 1)
	go func() { done <- a.Start(context.Background(), true) }()

	require.Eventually(t, func() bool { return a.LatestReport() != nil }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, true, a.GetStats()["running"])

	assert.Error(t, a.Start(context.Background(), false), "second start must fail")

	a.Stop()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
	assert.Equal(t, false, a.GetStats()["running"])
}

func TestApp_Start_InvalidCron(t *testing.T) {
	cfg := testConfig()
	cfg.Schedule.Cron = "every tuesday"
	a, err := New(cfg, nil, WithCollector(&stubCollector{}))
	require.NoError(t, err)

	err = a.Start(context.Background(), false)
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}
