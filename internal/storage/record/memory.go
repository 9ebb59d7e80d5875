package record

import (
	"context"
	"sync"

	"github.com/newthinker/moverscan/internal/core"
)

// Memory is an in-memory recorder that keeps the most recent maxSize entries of each kind.
type Memory struct {
	mu        sync.RWMutex
	maxSize   int
	runs      []Run
	signals   []SignalRecord
	backtests []BacktestRecord
}

// NewMemory creates a new in-memory recorder with max capacity.
func NewMemory(maxSize int) *Memory {
	return &Memory{maxSize: maxSize}
}

func (m *Memory) RecordRun(ctx context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = trim(append(m.runs, run), m.maxSize)
	return nil
}

func (m *Memory) RecordSignals(ctx context.Context, runID string, signals []core.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sig := range signals {
		m.signals = append(m.signals, SignalRecord{RunID: runID, Signal: sig})
	}
	m.signals = trim(m.signals, m.maxSize)
	return nil
}

func (m *Memory) RecordBacktests(ctx context.Context, results []BacktestRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backtests = trim(append(m.backtests, results...), m.maxSize)
	return nil
}

// ListSignals returns signals matching the filter, oldest first.
func (m *Memory) ListSignals(ctx context.Context, filter ListFilter) ([]SignalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []SignalRecord
	for _, rec := range m.signals {
		if filter.matches(rec) {
			result = append(result, rec)
		}
	}
	return page(result, filter.Offset, filter.Limit), nil
}

// Runs returns the recorded runs, oldest first.
func (m *Memory) Runs() []Run {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Run, len(m.runs))
	copy(out, m.runs)
	return out
}

// Backtests returns the recorded backtest summaries, oldest first.
func (m *Memory) Backtests() []BacktestRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]BacktestRecord, len(m.backtests))
	copy(out, m.backtests)
	return out
}

func (m *Memory) Close() error { return nil }

// trim drops the oldest entries beyond capacity. maxSize <= 0 means unbounded.
func trim[T any](items []T, maxSize int) []T {
	if maxSize > 0 && len(items) > maxSize {
		return items[len(items)-maxSize:]
	}
	return items
}
