package calculator

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

// tradingDaysPerYear is the annualization convention for daily bars.
const tradingDaysPerYear = 252

// AnnualizedVolatility computes the historical volatility over the trailing
// window closes: the standard deviation of daily log returns scaled by √252,
// expressed as a percentage. Requires window+1 prices. A non-positive price
// inside the window makes the log return undefined and yields an error, so
// the caller records the metric as absent.
func AnnualizedVolatility(prices []float64, window int) (float64, error) {
	if window <= 1 {
		return 0, errors.New("window must exceed 1")
	}
	if len(prices) < window+1 {
		return 0, errNotEnoughData
	}

	tail := prices[len(prices)-window-1:]
	returns := make([]float64, window)
	for i := 1; i <= window; i++ {
		if tail[i-1] <= 0 || tail[i] <= 0 {
			return 0, errors.New("non-positive price in window")
		}
		returns[i-1] = math.Log(tail[i] / tail[i-1])
	}

	sd := stat.StdDev(returns, nil)
	return sd * math.Sqrt(tradingDaysPerYear) * 100, nil
}
