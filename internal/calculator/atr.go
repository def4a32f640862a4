package calculator

import (
	"errors"
	"math"

	"StockScout/internal/model"
)

// ATR computes the average true range over the last period bars. True range
// is the largest of high-low, |high-prevClose| and |low-prevClose|.
// Requires at least period+1 bars so every range has a previous close.
func ATR(bars []model.OHLCV, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(bars) < period+1 {
		return 0, errNotEnoughData
	}

	sum := 0.0
	for i := len(bars) - period; i < len(bars); i++ {
		prevClose := bars[i-1].Close
		tr := bars[i].High - bars[i].Low
		if hc := math.Abs(bars[i].High - prevClose); hc > tr {
			tr = hc
		}
		if lc := math.Abs(bars[i].Low - prevClose); lc > tr {
			tr = lc
		}
		sum += tr
	}
	return sum / float64(period), nil
}
