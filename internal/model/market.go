package model

import (
	"fmt"
	"time"
)

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries holds the daily price history for one symbol, ordered by time.
// It is built once by the provider and never mutated afterwards.
type PriceSeries struct {
	Symbol    string
	Bars      []OHLCV
	FetchedAt time.Time
}

// Len returns the number of bars in the series.
func (p *PriceSeries) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Bars)
}

// LastClose returns the most recent closing price, or false if the series is empty.
func (p *PriceSeries) LastClose() (float64, bool) {
	if p.Len() == 0 {
		return 0, false
	}
	return p.Bars[len(p.Bars)-1].Close, true
}

// Validate checks the series invariant: strictly increasing timestamps,
// which also rules out duplicates.
func (p *PriceSeries) Validate() error {
	for i := 1; i < len(p.Bars); i++ {
		if !p.Bars[i].Time.After(p.Bars[i-1].Time) {
			return fmt.Errorf("price series %s: bar %d timestamp %s not after %s",
				p.Symbol, i, p.Bars[i].Time.Format("2006-01-02"), p.Bars[i-1].Time.Format("2006-01-02"))
		}
	}
	return nil
}
