// Package router filters scan signals and forwards the survivors to the notifiers.
package router

import (
	"context"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/notifier"
	"go.uber.org/zap"
)

// Config holds router configuration
type Config struct {
	MinMove          float64       `mapstructure:"min_move"` // absolute percent change
	CooldownDuration time.Duration `mapstructure:"cooldown_duration"`
	EnabledActions   []core.Action `mapstructure:"enabled_actions"`
}

// DefaultConfig returns default router configuration
func DefaultConfig() Config {
	return Config{
		CooldownDuration: 1 * time.Hour,
		EnabledActions:   []core.Action{core.ActionBuy, core.ActionShort},
	}
}

// Router routes signals to notifiers with filtering
type Router struct {
	cfg       Config
	registry  *notifier.Registry
	logger    *zap.Logger
	now       func() time.Time
	cooldowns map[string]time.Time // symbol/action -> last routed
	mu        sync.RWMutex
}

// New creates a new signal router
func New(cfg Config, registry *notifier.Registry, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		cfg:       cfg,
		registry:  registry,
		logger:    logger,
		now:       time.Now,
		cooldowns: make(map[string]time.Time),
	}
}

func cooldownKey(s core.Signal) string {
	return s.Symbol + "/" + string(s.Action)
}

// RouteRun forwards the signals of one run that pass the filters as a single batch.
// A symbol is not re-sent with the same action until its cooldown has elapsed.
// Notifier failures are returned keyed by notifier name.
func (r *Router) RouteRun(ctx context.Context, runID string, signals []core.Signal) map[string]error {
	var filtered []core.Signal
	for _, s := range signals {
		if r.passesFilters(s) {
			filtered = append(filtered, s)
		}
	}

	if len(filtered) == 0 || r.registry == nil || r.registry.Len() == 0 {
		return nil
	}

	now := r.now()
	r.mu.Lock()
	for _, s := range filtered {
		r.cooldowns[cooldownKey(s)] = now
	}
	r.mu.Unlock()

	errs := r.registry.NotifyAllBatch(ctx, runID, filtered)
	for name, err := range errs {
		r.logger.Error("notifier failed on batch",
			zap.String("notifier", name),
			zap.Error(err),
		)
	}

	r.logger.Info("batch routed",
		zap.String("run_id", runID),
		zap.Int("total", len(signals)),
		zap.Int("filtered", len(filtered)),
		zap.Int("errors", len(errs)),
	)
	return errs
}

// passesFilters checks if a signal passes all configured filters
func (r *Router) passesFilters(s core.Signal) bool {
	if math.Abs(s.PercentChange) < r.cfg.MinMove {
		return false
	}

	if len(r.cfg.EnabledActions) > 0 && !slices.Contains(r.cfg.EnabledActions, s.Action) {
		return false
	}

	r.mu.RLock()
	last, exists := r.cooldowns[cooldownKey(s)]
	r.mu.RUnlock()

	return !exists || r.now().Sub(last) >= r.cfg.CooldownDuration
}

// ClearAllCooldowns removes all cooldowns
func (r *Router) ClearAllCooldowns() {
	r.mu.Lock()
	r.cooldowns = make(map[string]time.Time)
	r.mu.Unlock()
}

// CleanupExpiredCooldowns removes cooldown entries older than 2x the cooldown duration.
func (r *Router) CleanupExpiredCooldowns() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	expiry := r.cfg.CooldownDuration * 2
	removed := 0

	for key, last := range r.cooldowns {
		if now.Sub(last) > expiry {
			delete(r.cooldowns, key)
			removed++
		}
	}

	return removed
}

// StartCleanupRoutine starts a background goroutine that periodically cleans up expired cooldowns.
func (r *Router) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := r.CleanupExpiredCooldowns(); removed > 0 {
					r.logger.Debug("cleaned up expired cooldowns", zap.Int("removed", removed))
				}
			}
		}
	}()
}

// GetStats returns router statistics
func (r *Router) GetStats() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]any{
		"cooldowns_active": len(r.cooldowns),
		"min_move":         r.cfg.MinMove,
		"cooldown_seconds": r.cfg.CooldownDuration.Seconds(),
		"enabled_actions":  r.cfg.EnabledActions,
	}
}
