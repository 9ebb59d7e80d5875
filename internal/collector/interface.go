package collector

import (
	"context"
	"time"

	"github.com/newthinker/moverscan/internal/core"
)

// Config holds collector configuration
type Config struct {
	BaseURL string        // Overrides the provider endpoint, mainly for tests
	Timeout time.Duration // Per-request timeout
}

// Collector defines the interface for market-data collectors
type Collector interface {
	Name() string
	Init(cfg Config) error

	// FetchRange returns the bars of symbol covering the lookback rng (e.g. "5d", "1mo")
	// at the given bar interval, oldest first.
	FetchRange(ctx context.Context, symbol, rng, interval string) ([]core.OHLCV, error)
}
