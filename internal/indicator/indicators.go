package indicator

// RSI over the trailing period deltas using plain averages (no Wilder smoothing).
// Returns 50 until period+1 samples are available.
func RSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 50
	}

	var gains, losses float64
	for i := len(prices) - period; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// EMA seeded with the mean of the first period samples, then walked forward
// through the rest of the window. With fewer samples it returns the last price.
func EMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if period <= 0 || len(prices) < period {
		return prices[len(prices)-1]
	}

	multiplier := 2.0 / float64(period+1)
	var seed float64
	for _, p := range prices[:period] {
		seed += p
	}
	ema := seed / float64(period)
	for _, p := range prices[period:] {
		ema = (p-ema)*multiplier + ema
	}
	return ema
}

// ChangePct is the percent move of the last price against the one before it.
func ChangePct(prices []float64) float64 {
	n := len(prices)
	if n < 2 || prices[n-2] == 0 {
		return 0
	}
	return (prices[n-1] - prices[n-2]) / prices[n-2] * 100
}

// SignalStrength scales RSI distance outside [oversold, overbought] by 3, capped at 100.
func SignalStrength(rsi, oversold, overbought float64) float64 {
	switch {
	case rsi < oversold:
		return min(100, (oversold-rsi)*3)
	case rsi > overbought:
		return min(100, (rsi-overbought)*3)
	}
	return 0
}
