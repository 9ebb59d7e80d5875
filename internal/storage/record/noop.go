package record

import (
	"context"

	"github.com/newthinker/moverscan/internal/core"
)

// Noop is used when no SQLite path is configured.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (Noop) RecordRun(context.Context, Run) error                            { return nil }
func (Noop) RecordSignals(context.Context, string, []core.Signal) error      { return nil }
func (Noop) RecordBacktests(context.Context, []BacktestRecord) error         { return nil }
func (Noop) ListSignals(context.Context, ListFilter) ([]SignalRecord, error) { return nil, nil }
func (Noop) Close() error                                                    { return nil }
