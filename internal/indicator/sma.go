// Package indicator computes technical indicators over price sequences.
//
// Every function returns a slice aligned 1:1 with its input. Entries that fall inside
// the warm-up window are NaN; use Defined to test them.
package indicator

import "math"

// Defined reports whether v is a computed indicator value.
func Defined(v float64) bool {
	return !math.IsNaN(v)
}

func undefined(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA calculates Simple Moving Average.
// result[i] is NaN for i < period-1.
func SMA(prices []float64, period int) []float64 {
	result := undefined(len(prices))
	if period <= 0 || len(prices) < period {
		return result
	}

	// Calculate first SMA
	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	result[period-1] = sum / float64(period)

	// Rolling calculation
	for i := period; i < len(prices); i++ {
		sum = sum - prices[i-period] + prices[i]
		result[i] = sum / float64(period)
	}

	return result
}

// EMA calculates Exponential Moving Average with multiplier 2/(period+1),
// seeded by the first defined input. Leading NaN inputs stay NaN.
func EMA(prices []float64, period int) []float64 {
	result := undefined(len(prices))
	if period <= 0 {
		return result
	}

	multiplier := 2.0 / float64(period+1)
	seeded := false
	var ema float64

	for i, p := range prices {
		if math.IsNaN(p) {
			if seeded {
				result[i] = ema
			}
			continue
		}
		if !seeded {
			ema = p
			seeded = true
		} else {
			ema = multiplier*p + (1-multiplier)*ema
		}
		result[i] = ema
	}

	return result
}
