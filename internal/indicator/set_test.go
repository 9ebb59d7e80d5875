package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBollinger(t *testing.T) {
	prices := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	b := Bollinger(prices, 8, 2)

	// mean 5, population stdev 2
	assert.False(t, Defined(b.Upper[6]))
	assert.Equal(t, 5.0, b.Middle[7])
	assert.InDelta(t, 9.0, b.Upper[7], 1e-9)
	assert.InDelta(t, 1.0, b.Lower[7], 1e-9)
}

func TestBollinger_FlatWindow(t *testing.T) {
	b := Bollinger([]float64{3, 3, 3}, 3, 2)
	assert.Equal(t, 3.0, b.Upper[2])
	assert.Equal(t, 3.0, b.Lower[2])
}

func TestMACD(t *testing.T) {
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	m := MACD(prices, 12, 26, 9)

	require.Len(t, m.MACD, len(prices))
	assert.Equal(t, 0.0, m.MACD[0], "both EMAs are seeded by the first price")

	fast := EMA(prices, 12)
	slow := EMA(prices, 26)
	assert.InDelta(t, fast[40]-slow[40], m.MACD[40], 1e-12)
	assert.Greater(t, m.MACD[59], 0.0, "rising prices give a positive MACD")
	assert.InDelta(t, m.MACD[59]-m.Signal[59], m.Histogram[59], 1e-12)
}

func TestCompute_Names(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	volumes := []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 10}

	p := Params{
		SMAWindows:      []int{3, 5},
		EMAWindows:      []int{3},
		RSIPeriods:      []int{4},
		BollingerWindow: 5,
		BollingerK:      2,
		MACDFast:        3,
		MACDSlow:        6,
		MACDSignal:      2,
		VolumeWindow:    4,
	}
	set := Compute(closes, volumes, p)

	assert.Equal(t, []string{
		"bb_lower", "bb_middle", "bb_upper", "ema_3", "macd", "macd_hist", "macd_signal",
		"rsi_4", "sma_3", "sma_5", "volume_sma_4",
	}, set.Names())

	for name, values := range set {
		assert.Len(t, values, len(closes), name)
	}

	v, ok := set.Latest(SMAName(3))
	require.True(t, ok)
	assert.Equal(t, 9.0, v)

	_, ok = set.At(SMAName(5), 3)
	assert.False(t, ok, "inside warm-up window")
}

func TestCompute_NoVolumes(t *testing.T) {
	set := Compute([]float64{1, 2, 3}, nil, Params{VolumeWindow: 2})
	_, ok := set[VolumeSMAName(2)]
	assert.False(t, ok)
}

func TestCompute_Idempotent(t *testing.T) {
	closes := []float64{100.1, 99.7, 101.3, 102.9, 98.2, 97.5, 103.3, 104.8, 101.1, 100.0,
		99.9, 102.2, 105.5, 106.1, 104.4, 103.0, 107.7, 108.2, 106.6, 109.9, 111.0, 108.8}
	volumes := make([]float64, len(closes))
	for i := range volumes {
		volumes[i] = float64(1000 + i*7)
	}

	a := Compute(closes, volumes, DefaultParams())
	b := Compute(closes, volumes, DefaultParams())

	require.Equal(t, a.Names(), b.Names())
	for name := range a {
		for i := range a[name] {
			if math.Float64bits(a[name][i]) != math.Float64bits(b[name][i]) {
				t.Fatalf("%s[%d] differs between runs", name, i)
			}
		}
	}
}

func TestSet_TruncateIsCausal(t *testing.T) {
	closes := []float64{5, 3, 8, 6, 9, 4, 7, 10, 2, 11}
	full := Compute(closes, nil, Params{SMAWindows: []int{3}, RSIPeriods: []int{3}, EMAWindows: []int{4}})

	for n := 1; n <= len(closes); n++ {
		prefix := Compute(closes[:n], nil, Params{SMAWindows: []int{3}, RSIPeriods: []int{3}, EMAWindows: []int{4}})
		view := full.Truncate(n)
		for name := range prefix {
			require.Len(t, view[name], n)
			for i := 0; i < n; i++ {
				if math.Float64bits(view[name][i]) != math.Float64bits(prefix[name][i]) {
					t.Fatalf("%s[%d] differs for prefix %d", name, i, n)
				}
			}
		}
	}
}

func TestSet_Snapshot(t *testing.T) {
	set := Set{
		"a": {math.NaN(), 1},
		"b": {2, math.NaN()},
	}
	assert.Equal(t, map[string]float64{"b": 2}, set.Snapshot(0))
	assert.Equal(t, map[string]float64{"a": 1}, set.Snapshot(1))
	assert.Empty(t, set.Snapshot(5))
}

func TestParams_Merge(t *testing.T) {
	merged := Params{SMAWindows: []int{14}, RSIPeriods: []int{14}}.Merge(Params{SMAWindows: []int{40, 14, 100}, BollingerWindow: 20, BollingerK: 2})
	assert.Equal(t, []int{14, 40, 100}, merged.SMAWindows)
	assert.Equal(t, []int{14}, merged.RSIPeriods)
	assert.Equal(t, 20, merged.BollingerWindow)
}
