package calculator

import (
	"errors"
	"math"

	"StockScout/internal/model"
)

// YearRange scans the most recent 252 trading days and returns the high and low.
func YearRange(bars []model.OHLCV) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no bars provided")
	}
	start := len(bars) - tradingDaysPerYear
	if start < 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < len(bars); i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return high, low, nil
}

// Breakout reports whether the last close exceeds the highest high of the
// preceding window bars, excluding the last bar itself.
func Breakout(bars []model.OHLCV, window int) (bool, error) {
	if window <= 0 {
		return false, errors.New("window must be positive")
	}
	if len(bars) < window+1 {
		return false, errNotEnoughData
	}
	last := bars[len(bars)-1]
	prior := bars[len(bars)-1-window : len(bars)-1]
	high := math.Inf(-1)
	for _, b := range prior {
		if b.High > high {
			high = b.High
		}
	}
	return last.Close > high, nil
}

// VolumeSpike reports whether the last bar's volume exceeds ratio times the
// average volume of the preceding window bars.
func VolumeSpike(bars []model.OHLCV, window int, ratio float64) (bool, error) {
	if len(bars) < window+1 {
		return false, errNotEnoughData
	}
	prior := bars[len(bars)-1-window : len(bars)-1]
	sum := 0.0
	for _, b := range prior {
		sum += b.Volume
	}
	avg := sum / float64(window)
	if avg == 0 {
		return false, errors.New("zero average volume")
	}
	return bars[len(bars)-1].Volume > ratio*avg, nil
}

// AvgDollarVolume computes the average of close×volume over the trailing
// window bars.
func AvgDollarVolume(bars []model.OHLCV, window int) (float64, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}
	if len(bars) < window {
		return 0, errNotEnoughData
	}
	sum := 0.0
	for _, b := range bars[len(bars)-window:] {
		sum += b.Close * b.Volume
	}
	return sum / float64(window), nil
}
