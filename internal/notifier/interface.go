// Package notifier delivers actionable scan signals to external channels.
package notifier

import (
	"context"

	"github.com/newthinker/moverscan/internal/core"
)

// Config holds notifier configuration
type Config struct {
	Type   string         `mapstructure:"type"`
	Params map[string]any `mapstructure:"params"`
}

// Notifier defines the interface for signal notification
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// Send delivers a single signal
	Send(ctx context.Context, signal core.Signal) error

	// SendBatch delivers every actionable signal of one run in a single message
	SendBatch(ctx context.Context, runID string, signals []core.Signal) error
}
