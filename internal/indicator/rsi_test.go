package indicator

import (
	"math/rand"
	"testing"
)

func TestRSI_WarmUp(t *testing.T) {
	prices := []float64{1, 2, 3, 2, 1, 2}
	rsi := RSI(prices, 3)

	for i := 0; i < 3; i++ {
		if Defined(rsi[i]) {
			t.Errorf("rsi[%d] = %f, want undefined", i, rsi[i])
		}
	}
	for i := 3; i < len(prices); i++ {
		if !Defined(rsi[i]) {
			t.Errorf("rsi[%d] should be defined", i)
		}
	}
}

func TestRSI_Known(t *testing.T) {
	// deltas over window ending at 3: +1, +1, -1 -> avgGain 2/3, avgLoss 1/3, RS 2
	rsi := RSI([]float64{1, 2, 3, 2}, 3)
	want := 100 - 100/3.0
	if !almostEqual(rsi[3], want, 1e-9) {
		t.Errorf("rsi[3] = %f, want %f", rsi[3], want)
	}
}

func TestRSI_AllGains(t *testing.T) {
	rsi := RSI([]float64{1, 2, 3, 4, 5}, 3)
	if rsi[3] != RSIMax || rsi[4] != RSIMax {
		t.Errorf("expected exactly 100 when avgLoss is zero, got %v", rsi)
	}
}

func TestRSI_AllLosses(t *testing.T) {
	rsi := RSI([]float64{5, 4, 3, 2}, 3)
	if rsi[3] != 0 {
		t.Errorf("expected 0 when avgGain is zero, got %f", rsi[3])
	}
}

func TestRSI_Flat(t *testing.T) {
	rsi := RSI([]float64{7, 7, 7, 7, 7}, 3)
	if rsi[4] != RSINeutral {
		t.Errorf("expected neutral RSI for flat window, got %f", rsi[4])
	}
}

func TestRSI_Bounds(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	prices := make([]float64, 500)
	p := 100.0
	for i := range prices {
		p += r.Float64()*4 - 2
		if p < 1 {
			p = 1
		}
		prices[i] = p
	}

	for _, period := range []int{2, 14, 30} {
		for i, v := range RSI(prices, period) {
			if !Defined(v) {
				continue
			}
			if v < 0 || v > 100 {
				t.Fatalf("period %d rsi[%d] = %f out of range", period, i, v)
			}
		}
	}
}

func TestRSI_NotEnoughData(t *testing.T) {
	rsi := RSI([]float64{1, 2}, 14)
	if len(rsi) != 2 || Defined(rsi[0]) || Defined(rsi[1]) {
		t.Errorf("expected undefined aligned output, got %v", rsi)
	}
}
