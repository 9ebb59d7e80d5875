package indicator

import "math"

// Bands holds Bollinger Band lines aligned with the input.
type Bands struct {
	Middle []float64
	Upper  []float64
	Lower  []float64
}

// Bollinger calculates Bollinger Bands: SMA(period) +/- k population standard deviations
// over the same trailing window.
func Bollinger(prices []float64, period int, k float64) Bands {
	b := Bands{
		Middle: SMA(prices, period),
		Upper:  undefined(len(prices)),
		Lower:  undefined(len(prices)),
	}

	for i := range prices {
		mean := b.Middle[i]
		if !Defined(mean) {
			continue
		}
		var variance float64
		for j := i - period + 1; j <= i; j++ {
			d := prices[j] - mean
			variance += d * d
		}
		std := math.Sqrt(variance / float64(period))
		b.Upper[i] = mean + k*std
		b.Lower[i] = mean - k*std
	}

	return b
}
