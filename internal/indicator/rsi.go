package indicator

// Values returned by RSI when the average loss over the window is zero.
const (
	RSIMax     = 100.0
	RSINeutral = 50.0
)

// RSI calculates the Relative Strength Index using a trailing simple mean of gains and losses.
// result[i] is NaN for i < period.
//
// When avgLoss is zero the ratio is undefined: a window with gains yields RSIMax,
// a completely flat window yields RSINeutral.
func RSI(prices []float64, period int) []float64 {
	result := undefined(len(prices))
	if period <= 0 || len(prices) <= period {
		return result
	}

	gains := make([]float64, len(prices))
	losses := make([]float64, len(prices))
	for i := 1; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	// Sums are recomputed per window so a window without losses is exactly zero.
	for i := period; i < len(prices); i++ {
		var gainSum, lossSum float64
		for j := i - period + 1; j <= i; j++ {
			gainSum += gains[j]
			lossSum += losses[j]
		}
		result[i] = rsiValue(gainSum/float64(period), lossSum/float64(period))
	}

	return result
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain > 0 {
			return RSIMax
		}
		return RSINeutral
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
