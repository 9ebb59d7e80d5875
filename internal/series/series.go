// Package series holds the in-memory OHLCV tables that every analysis stage reads.
package series

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/newthinker/moverscan/internal/core"
)

// Series is an ordered, validated sequence of bars for one symbol.
// It is never modified after construction.
type Series struct {
	symbol string
	bars   []core.OHLCV
}

// New validates bars and builds a Series.
// Timestamps must be strictly increasing, prices finite and non-negative, volume non-negative.
func New(symbol string, bars []core.OHLCV) (*Series, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol cannot be empty")
	}

	owned := make([]core.OHLCV, len(bars))
	copy(owned, bars)

	for i, b := range owned {
		if i > 0 && !b.Time.After(owned[i-1].Time) {
			return nil, core.WrapError(core.ErrDataQuality,
				fmt.Errorf("%s: bar %d at %s is not after %s", symbol, i, b.Time, owned[i-1].Time))
		}
		if !validPrice(b.Open) || !validPrice(b.High) || !validPrice(b.Low) || !validPrice(b.Close) || b.Volume < 0 {
			return nil, core.WrapError(core.ErrDataQuality,
				fmt.Errorf("%s: bar %d has a non-finite or negative field", symbol, i))
		}
		owned[i].Symbol = symbol
	}

	return &Series{symbol: symbol, bars: owned}, nil
}

func validPrice(v float64) bool { return finite(v) && v >= 0 }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// FromUnsorted sorts bars by time, drops duplicate timestamps (keeping the last one) and
// bars without a usable open or close, then builds a Series.
func FromUnsorted(symbol string, bars []core.OHLCV) (*Series, error) {
	sorted := make([]core.OHLCV, 0, len(bars))
	for _, b := range bars {
		if !finite(b.Close) || !finite(b.Open) {
			continue
		}
		sorted = append(sorted, b)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	deduped := sorted[:0]
	for _, b := range sorted {
		if n := len(deduped); n > 0 && deduped[n-1].Time.Equal(b.Time) {
			deduped[n-1] = b
			continue
		}
		deduped = append(deduped, b)
	}
	return New(symbol, deduped)
}

func (s *Series) Symbol() string { return s.symbol }

func (s *Series) Len() int { return len(s.bars) }

// Bars returns a copy of the bars.
func (s *Series) Bars() []core.OHLCV {
	out := make([]core.OHLCV, len(s.bars))
	copy(out, s.bars)
	return out
}

// At returns the bar at index i.
func (s *Series) At(i int) core.OHLCV {
	return s.bars[i]
}

// First returns the earliest bar.
func (s *Series) First() (core.OHLCV, bool) {
	if len(s.bars) == 0 {
		return core.OHLCV{}, false
	}
	return s.bars[0], true
}

// Last returns the latest bar.
func (s *Series) Last() (core.OHLCV, bool) {
	if len(s.bars) == 0 {
		return core.OHLCV{}, false
	}
	return s.bars[len(s.bars)-1], true
}

// Closes extracts closing prices
func (s *Series) Closes() []float64 {
	return Closes(s.bars)
}

// Opens extracts opening prices
func (s *Series) Opens() []float64 {
	out := make([]float64, len(s.bars))
	for i, b := range s.bars {
		out[i] = b.Open
	}
	return out
}

// Volumes extracts volumes as floats for indicator math
func (s *Series) Volumes() []float64 {
	out := make([]float64, len(s.bars))
	for i, b := range s.bars {
		out[i] = float64(b.Volume)
	}
	return out
}

// Closes extracts closing prices from raw bars.
func Closes(bars []core.OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Store is the per-run table of series keyed by symbol.
// Writers only run while the store is being loaded; afterwards it is read-only.
type Store struct {
	mu     sync.RWMutex
	series map[string]*Series
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{series: make(map[string]*Series)}
}

// Add inserts or replaces the series for its symbol.
func (s *Store) Add(ser *Series) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series[ser.Symbol()] = ser
}

// Get returns the series for symbol.
func (s *Store) Get(symbol string) (*Series, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ser, ok := s.series[symbol]
	return ser, ok
}

// FetchBars implements backtest.BarsProvider.
func (s *Store) FetchBars(symbol string) ([]core.OHLCV, error) {
	ser, ok := s.Get(symbol)
	if !ok {
		return nil, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("%s", symbol))
	}
	return ser.Bars(), nil
}

// Symbols returns all symbols in lexical order.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.series))
	for sym := range s.series {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.series)
}
