package indicator

// MACDResult holds the MACD line, its signal line and the histogram.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD calculates EMA(fast) - EMA(slow) and its EMA(signal) line.
func MACD(prices []float64, fast, slow, signal int) MACDResult {
	fastEMA := EMA(prices, fast)
	slowEMA := EMA(prices, slow)

	line := undefined(len(prices))
	for i := range prices {
		if Defined(fastEMA[i]) && Defined(slowEMA[i]) {
			line[i] = fastEMA[i] - slowEMA[i]
		}
	}

	signalLine := EMA(line, signal)
	hist := undefined(len(prices))
	for i := range prices {
		if Defined(line[i]) && Defined(signalLine[i]) {
			hist[i] = line[i] - signalLine[i]
		}
	}

	return MACDResult{MACD: line, Signal: signalLine, Histogram: hist}
}
