package calculator

// macd parameters follow the standard 12/26/9 convention.
const (
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
)

// MACD computes the moving average convergence/divergence of prices: the
// fast-minus-slow EMA line, its 9-period EMA signal line, and the histogram
// (line minus signal). Requires at least macdSlow+macdSignal-1 prices.
func MACD(prices []float64) (line, signal, hist float64, err error) {
	fastEMA, err := EMASeries(prices, macdFast)
	if err != nil {
		return 0, 0, 0, err
	}
	slowEMA, err := EMASeries(prices, macdSlow)
	if err != nil {
		return 0, 0, 0, err
	}

	// Both series end at the last bar; align on the shorter one.
	n := len(slowEMA)
	macdLine := make([]float64, n)
	offset := len(fastEMA) - n
	for i := 0; i < n; i++ {
		macdLine[i] = fastEMA[i+offset] - slowEMA[i]
	}

	signalSeries, err := EMASeries(macdLine, macdSignal)
	if err != nil {
		return 0, 0, 0, err
	}

	line = macdLine[n-1]
	signal = signalSeries[len(signalSeries)-1]
	return line, signal, line - signal, nil
}
