package indicator

import (
	"fmt"
	"sort"
)

// Indicator names used as Set keys.
const (
	NameBollingerMiddle = "bb_middle"
	NameBollingerUpper  = "bb_upper"
	NameBollingerLower  = "bb_lower"
	NameMACD            = "macd"
	NameMACDSignal      = "macd_signal"
	NameMACDHistogram   = "macd_hist"
)

func SMAName(window int) string       { return fmt.Sprintf("sma_%d", window) }
func EMAName(window int) string       { return fmt.Sprintf("ema_%d", window) }
func RSIName(period int) string       { return fmt.Sprintf("rsi_%d", period) }
func VolumeSMAName(window int) string { return fmt.Sprintf("volume_sma_%d", window) }

// Params selects which indicators Compute produces.
// Zero-valued fields disable the corresponding indicator.
type Params struct {
	SMAWindows      []int
	EMAWindows      []int
	RSIPeriods      []int
	BollingerWindow int
	BollingerK      float64
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	VolumeWindow    int
}

// DefaultParams mirrors the windows used by the end-of-day report.
func DefaultParams() Params {
	return Params{
		SMAWindows:      []int{14},
		EMAWindows:      []int{14},
		RSIPeriods:      []int{14},
		BollingerWindow: 20,
		BollingerK:      2,
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
		VolumeWindow:    20,
	}
}

// Merge returns the union of two parameter sets. Scalar fields from other win when set.
func (p Params) Merge(other Params) Params {
	out := p
	out.SMAWindows = unionInts(p.SMAWindows, other.SMAWindows)
	out.EMAWindows = unionInts(p.EMAWindows, other.EMAWindows)
	out.RSIPeriods = unionInts(p.RSIPeriods, other.RSIPeriods)
	if other.BollingerWindow > 0 {
		out.BollingerWindow = other.BollingerWindow
		out.BollingerK = other.BollingerK
	}
	if other.MACDFast > 0 && other.MACDSlow > 0 {
		out.MACDFast = other.MACDFast
		out.MACDSlow = other.MACDSlow
		out.MACDSignal = other.MACDSignal
	}
	if other.VolumeWindow > 0 {
		out.VolumeWindow = other.VolumeWindow
	}
	return out
}

func unionInts(a, b []int) []int {
	seen := make(map[int]struct{}, len(a)+len(b))
	var out []int
	for _, v := range append(append([]int{}, a...), b...) {
		if v <= 0 {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// Set maps indicator names to sequences aligned with one series.
type Set map[string][]float64

// Compute derives every indicator selected by p from closes and volumes.
// volumes may be nil, in which case volume indicators are skipped.
func Compute(closes, volumes []float64, p Params) Set {
	set := make(Set)

	for _, w := range p.SMAWindows {
		set[SMAName(w)] = SMA(closes, w)
	}
	for _, w := range p.EMAWindows {
		set[EMAName(w)] = EMA(closes, w)
	}
	for _, period := range p.RSIPeriods {
		set[RSIName(period)] = RSI(closes, period)
	}

	if p.BollingerWindow > 0 {
		bands := Bollinger(closes, p.BollingerWindow, p.BollingerK)
		set[NameBollingerMiddle] = bands.Middle
		set[NameBollingerUpper] = bands.Upper
		set[NameBollingerLower] = bands.Lower
	}

	if p.MACDFast > 0 && p.MACDSlow > 0 && p.MACDSignal > 0 {
		m := MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
		set[NameMACD] = m.MACD
		set[NameMACDSignal] = m.Signal
		set[NameMACDHistogram] = m.Histogram
	}

	if p.VolumeWindow > 0 && volumes != nil {
		set[VolumeSMAName(p.VolumeWindow)] = SMA(volumes, p.VolumeWindow)
	}

	return set
}

// Truncate returns a view of the first n entries of every indicator.
// The underlying arrays are shared, so callers must not write to the result.
func (s Set) Truncate(n int) Set {
	out := make(Set, len(s))
	for name, values := range s {
		if n > len(values) {
			out[name] = values
			continue
		}
		out[name] = values[:n:n]
	}
	return out
}

// At returns the value of name at index i.
func (s Set) At(name string, i int) (float64, bool) {
	values, ok := s[name]
	if !ok || i < 0 || i >= len(values) || !Defined(values[i]) {
		return 0, false
	}
	return values[i], true
}

// Latest returns the last value of name.
func (s Set) Latest(name string) (float64, bool) {
	return s.At(name, len(s[name])-1)
}

// Snapshot returns all defined values at index i.
func (s Set) Snapshot(i int) map[string]float64 {
	out := make(map[string]float64, len(s))
	for name := range s {
		if v, ok := s.At(name, i); ok {
			out[name] = v
		}
	}
	return out
}

// Names returns indicator names in lexical order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
