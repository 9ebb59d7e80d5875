package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockNotifier struct {
	name     string
	fail     bool
	batches  int
	received []core.Signal
}

func (m *mockNotifier) Name() string                   { return m.name }
func (m *mockNotifier) Init(cfg notifier.Config) error { return nil }

func (m *mockNotifier) Send(ctx context.Context, signal core.Signal) error {
	m.received = append(m.received, signal)
	return nil
}

func (m *mockNotifier) SendBatch(ctx context.Context, runID string, signals []core.Signal) error {
	m.batches++
	m.received = append(m.received, signals...)
	if m.fail {
		return errors.New("unreachable")
	}
	return nil
}

func newRouter(t *testing.T, cfg Config) (*Router, *mockNotifier, *time.Time) {
	t.Helper()
	registry := notifier.NewRegistry()
	mock := &mockNotifier{name: "mock"}
	require.NoError(t, registry.Register(mock))

	clock := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	r := New(cfg, registry, nil)
	r.now = func() time.Time { return clock }
	return r, mock, &clock
}

var (
	spyBuy   = core.Signal{Symbol: "SPY", Action: core.ActionBuy, PercentChange: 2.4}
	qqqShort = core.Signal{Symbol: "QQQ", Action: core.ActionShort, PercentChange: -3.1}
	gldHold  = core.Signal{Symbol: "GLD", Action: core.ActionHold, PercentChange: 0.2}
)

func TestRouter_RouteRun_DefaultFilters(t *testing.T) {
	r, mock, _ := newRouter(t, DefaultConfig())

	errs := r.RouteRun(context.Background(), "run-1", []core.Signal{spyBuy, gldHold, qqqShort})
	assert.Empty(t, errs)

	assert.Equal(t, 1, mock.batches)
	require.Len(t, mock.received, 2)
	assert.Equal(t, "SPY", mock.received[0].Symbol)
	assert.Equal(t, "QQQ", mock.received[1].Symbol)
}

func TestRouter_RouteRun_MinMove(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinMove = 3
	r, mock, _ := newRouter(t, cfg)

	r.RouteRun(context.Background(), "run-1", []core.Signal{spyBuy, qqqShort})
	require.Len(t, mock.received, 1)
	assert.Equal(t, "QQQ", mock.received[0].Symbol)
}

func TestRouter_RouteRun_Cooldown(t *testing.T) {
	r, mock, clock := newRouter(t, DefaultConfig())
	ctx := context.Background()

	r.RouteRun(ctx, "run-1", []core.Signal{spyBuy})
	r.RouteRun(ctx, "run-2", []core.Signal{spyBuy})
	assert.Equal(t, 1, mock.batches, "second signal within cooldown is dropped")

	// The same symbol with another action is a new event.
	r.RouteRun(ctx, "run-3", []core.Signal{{Symbol: "SPY", Action: core.ActionShort, PercentChange: -2.5}})
	assert.Equal(t, 2, mock.batches)

	*clock = clock.Add(time.Hour)
	r.RouteRun(ctx, "run-4", []core.Signal{spyBuy})
	assert.Equal(t, 3, mock.batches)
}

func TestRouter_RouteRun_NothingToSend(t *testing.T) {
	r, mock, _ := newRouter(t, DefaultConfig())

	assert.Nil(t, r.RouteRun(context.Background(), "run-1", []core.Signal{gldHold}))
	assert.Zero(t, mock.batches)
}

func TestRouter_RouteRun_NotifierFailure(t *testing.T) {
	registry := notifier.NewRegistry()
	registry.Register(&mockNotifier{name: "bad", fail: true})
	r := New(DefaultConfig(), registry, nil)

	errs := r.RouteRun(context.Background(), "run-1", []core.Signal{spyBuy})
	require.Len(t, errs, 1)
	assert.EqualError(t, errs["bad"], "unreachable")
}

func TestRouter_NilRegistry(t *testing.T) {
	r := New(DefaultConfig(), nil, nil)
	assert.Nil(t, r.RouteRun(context.Background(), "run-1", []core.Signal{spyBuy}))
}

func TestRouter_ClearAllCooldowns(t *testing.T) {
	r, mock, _ := newRouter(t, DefaultConfig())
	ctx := context.Background()

	r.RouteRun(ctx, "run-1", []core.Signal{spyBuy})
	r.ClearAllCooldowns()
	r.RouteRun(ctx, "run-2", []core.Signal{spyBuy})
	assert.Equal(t, 2, mock.batches)
}

func TestRouter_CleanupExpiredCooldowns(t *testing.T) {
	r, _, clock := newRouter(t, Config{CooldownDuration: time.Minute})

	r.mu.Lock()
	r.cooldowns["SPY/buy"] = clock.Add(-3 * time.Minute)
	r.cooldowns["QQQ/short"] = clock.Add(-3 * time.Minute)
	r.cooldowns["GLD/buy"] = *clock
	r.mu.Unlock()

	assert.Equal(t, 2, r.CleanupExpiredCooldowns())
	assert.Equal(t, 1, r.GetStats()["cooldowns_active"])
}

func TestRouter_DefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, time.Hour, cfg.CooldownDuration)
	assert.Equal(t, []core.Action{core.ActionBuy, core.ActionShort}, cfg.EnabledActions)
	assert.Zero(t, cfg.MinMove)
}
