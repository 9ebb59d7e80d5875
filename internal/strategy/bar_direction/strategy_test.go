package bar_direction

import (
	"testing"

	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/strategy"
)

func TestBarDirection_ImplementsStrategy(t *testing.T) {
	var _ strategy.Strategy = (*BarDirection)(nil)
}

func TestBarDirection_Decide(t *testing.T) {
	s := New(1)

	tests := []struct {
		name string
		bars []core.OHLCV
		want core.Action
	}{
		{"warm-up", []core.OHLCV{{Open: 1, Close: 2}}, core.ActionHold},
		{"up bar", []core.OHLCV{{Open: 1, Close: 1}, {Open: 1, Close: 2}}, core.ActionBuy},
		{"down bar", []core.OHLCV{{Open: 1, Close: 1}, {Open: 2, Close: 1}}, core.ActionShort},
		{"doji", []core.OHLCV{{Open: 1, Close: 1}, {Open: 2, Close: 2}}, core.ActionHold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Decide(strategy.AnalysisContext{OHLCV: tt.bars})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Decide() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBarDirection_DecidePrevClose(t *testing.T) {
	s := New(0)
	if err := s.Init(strategy.Config{Params: map[string]any{"compare": ComparePrevClose}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		bars []core.OHLCV
		want core.Action
	}{
		{"single bar", []core.OHLCV{{Open: 1, Close: 2}}, core.ActionHold},
		{"gap up, red bar", []core.OHLCV{{Open: 1, Close: 1}, {Open: 3, Close: 2}}, core.ActionBuy},
		{"gap down, green bar", []core.OHLCV{{Open: 5, Close: 5}, {Open: 3, Close: 4}}, core.ActionShort},
		{"unchanged close", []core.OHLCV{{Open: 1, Close: 2}, {Open: 1, Close: 2}}, core.ActionHold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Decide(strategy.AnalysisContext{OHLCV: tt.bars})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Decide() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBarDirection_InitCompare(t *testing.T) {
	s := New(1)
	if err := s.Init(strategy.Config{Params: map[string]any{"compare": "median"}}); err == nil {
		t.Error("expected error for unknown compare mode")
	}
	if err := s.Init(strategy.Config{Params: map[string]any{"compare": CompareOpen}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Description(); got != "Open vs close (warm-up 1)" {
		t.Errorf("unexpected description %q", got)
	}
}

func TestBarDirection_Init(t *testing.T) {
	s := New(10)
	if err := s.Init(strategy.Config{Params: map[string]any{"warm_up": 3}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.RequiredData().PriceHistory != 4 {
		t.Errorf("expected PriceHistory 4, got %d", s.RequiredData().PriceHistory)
	}
	if err := s.Init(strategy.Config{Params: map[string]any{"warm_up": -1}}); err == nil {
		t.Error("expected error for negative warm-up")
	}
}
