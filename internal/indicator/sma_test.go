package indicator

import (
	"math"
	"testing"
)

func TestSMA_Calculate(t *testing.T) {
	prices := []float64{10, 11, 12, 13, 14, 15}

	sma := SMA(prices, 3)

	// SMA(3) for [10,11,12,13,14,15]:
	// [0],[1] undefined
	// [2] = (10+11+12)/3 = 11
	// [3] = (11+12+13)/3 = 12
	// [4] = (12+13+14)/3 = 13
	// [5] = (13+14+15)/3 = 14

	if len(sma) != len(prices) {
		t.Fatalf("expected %d values, got %d", len(prices), len(sma))
	}

	for i := 0; i < 2; i++ {
		if Defined(sma[i]) {
			t.Errorf("sma[%d] = %f, want undefined", i, sma[i])
		}
	}

	expected := []float64{11, 12, 13, 14}
	for i, v := range expected {
		if sma[i+2] != v {
			t.Errorf("sma[%d] = %f, want %f", i+2, sma[i+2], v)
		}
	}
}

func TestSMA_EndToEndScenario(t *testing.T) {
	sma := SMA([]float64{100, 102, 101, 105, 103}, 3)
	if sma[4] != 103.0 {
		t.Errorf("sma[4] = %f, want 103", sma[4])
	}
}

func TestSMA_MatchesTrailingMean(t *testing.T) {
	prices := []float64{1.5, 2.25, 9.75, 3.1, 7.7, 4.4, 8.8, 2.2, 6.6, 5.5}
	for _, w := range []int{1, 2, 4, 7} {
		sma := SMA(prices, w)
		for i := range prices {
			if i < w-1 {
				if Defined(sma[i]) {
					t.Errorf("w=%d sma[%d] should be undefined", w, i)
				}
				continue
			}
			var sum float64
			for j := i - w + 1; j <= i; j++ {
				sum += prices[j]
			}
			if !almostEqual(sma[i], sum/float64(w), 1e-9) {
				t.Errorf("w=%d sma[%d] = %f, want %f", w, i, sma[i], sum/float64(w))
			}
		}
	}
}

func TestSMA_NotEnoughData(t *testing.T) {
	prices := []float64{10, 11}
	sma := SMA(prices, 5)

	if len(sma) != 2 {
		t.Fatalf("expected aligned output, got %d values", len(sma))
	}
	for i, v := range sma {
		if Defined(v) {
			t.Errorf("sma[%d] = %f, want undefined", i, v)
		}
	}
}

func TestEMA_Calculate(t *testing.T) {
	prices := []float64{10, 11, 12, 13, 14, 15}
	ema := EMA(prices, 3)

	if len(ema) != 6 {
		t.Fatalf("expected 6 values, got %d", len(ema))
	}

	// Seeded by the first value
	if ema[0] != 10 {
		t.Errorf("first EMA should equal first price, got %f", ema[0])
	}

	// alpha = 0.5: 10, 10.5, 11.25, ...
	if ema[1] != 10.5 || ema[2] != 11.25 {
		t.Errorf("unexpected recurrence: %v", ema[:3])
	}

	for i := 1; i < len(ema); i++ {
		if ema[i] <= ema[i-1] {
			t.Errorf("EMA should be increasing, ema[%d]=%f <= ema[%d]=%f", i, ema[i], i-1, ema[i-1])
		}
	}
}

func TestEMA_SkipsLeadingNaN(t *testing.T) {
	nan := math.NaN()
	ema := EMA([]float64{nan, nan, 4, 6}, 3)

	if Defined(ema[0]) || Defined(ema[1]) {
		t.Errorf("leading entries should stay undefined: %v", ema)
	}
	if ema[2] != 4 || ema[3] != 5 {
		t.Errorf("unexpected EMA %v", ema)
	}
}

func TestEMA_InvalidPeriod(t *testing.T) {
	ema := EMA([]float64{1, 2}, 0)
	for _, v := range ema {
		if Defined(v) {
			t.Errorf("expected undefined values, got %v", ema)
		}
	}
}

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}
