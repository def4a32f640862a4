package calculator

import (
	"StockScout/internal/model"
)

// Config tunes the indicator engine. Zero values fall back to the defaults
// below via Normalize.
type Config struct {
	MinBars          int     `yaml:"min_bars"`
	RSIPeriod        int     `yaml:"rsi_period"`
	ATRPeriod        int     `yaml:"atr_period"`
	ATRMultiplier    float64 `yaml:"atr_multiplier"`
	VolatilityWindow int     `yaml:"volatility_window"`
	BreakoutWindow   int     `yaml:"breakout_window"`
	VolumeAvgWindow  int     `yaml:"volume_avg_window"`
	VolumeSpikeRatio float64 `yaml:"volume_spike_ratio"`
	NearRangePct     float64 `yaml:"near_range_pct"`
	CrossLookback    int     `yaml:"cross_lookback"`
}

// DefaultConfig returns the standard indicator parameters.
func DefaultConfig() Config {
	return Config{
		MinBars:          200,
		RSIPeriod:        14,
		ATRPeriod:        14,
		ATRMultiplier:    2.0,
		VolatilityWindow: 60,
		BreakoutWindow:   60,
		VolumeAvgWindow:  20,
		VolumeSpikeRatio: 2.5,
		NearRangePct:     10,
		CrossLookback:    5,
	}
}

// Normalize fills zero fields with defaults.
func (c Config) Normalize() Config {
	d := DefaultConfig()
	if c.MinBars <= 0 {
		c.MinBars = d.MinBars
	}
	if c.RSIPeriod <= 0 {
		c.RSIPeriod = d.RSIPeriod
	}
	if c.ATRPeriod <= 0 {
		c.ATRPeriod = d.ATRPeriod
	}
	if c.ATRMultiplier <= 0 {
		c.ATRMultiplier = d.ATRMultiplier
	}
	if c.VolatilityWindow <= 0 {
		c.VolatilityWindow = d.VolatilityWindow
	}
	if c.BreakoutWindow <= 0 {
		c.BreakoutWindow = d.BreakoutWindow
	}
	if c.VolumeAvgWindow <= 0 {
		c.VolumeAvgWindow = d.VolumeAvgWindow
	}
	if c.VolumeSpikeRatio <= 0 {
		c.VolumeSpikeRatio = d.VolumeSpikeRatio
	}
	if c.NearRangePct <= 0 {
		c.NearRangePct = d.NearRangePct
	}
	if c.CrossLookback <= 0 {
		c.CrossLookback = d.CrossLookback
	}
	return c
}

// thinVolumeFloor is the average volume below which a relative-volume ratio
// is too noisy to mean anything.
const thinVolumeFloor = 10_000

// Compute derives every technical metric from a daily price series. A series
// shorter than cfg.MinBars yields an empty set: every indicator absent, no
// error. Individually unavailable indicators (zero denominators, thin data)
// are simply left out.
func Compute(series *model.PriceSeries, cfg Config) *model.MetricSet {
	cfg = cfg.Normalize()
	ms := model.NewMetricSet()
	if series.Len() < cfg.MinBars {
		return ms
	}

	bars := series.Bars
	closes := extractCloses(bars)
	price := closes[len(closes)-1]
	lastVolume := bars[len(bars)-1].Volume

	ms.SetNum(model.MetricPrice, price)
	ms.SetNum(model.MetricVolume, lastVolume)

	// Volume profile.
	if avg, err := SMA(extractVolumes(bars), cfg.VolumeAvgWindow); err == nil {
		ms.SetNum(model.MetricAvgVolume, avg)
		if avg > thinVolumeFloor {
			ms.SetNum(model.MetricRelativeVolume, lastVolume/avg)
		}
	}
	if adv, err := AvgDollarVolume(bars, cfg.VolumeAvgWindow); err == nil {
		ms.SetNum(model.MetricAvgDollarVolume, adv)
	}
	if spike, err := VolumeSpike(bars, cfg.VolumeAvgWindow, cfg.VolumeSpikeRatio); err == nil {
		ms.SetFlag(model.FlagVolumeSpike, spike)
	}

	// Moving averages and crossovers.
	computeMovingAverages(ms, closes, price, cfg)

	// Oscillators.
	if rsi, err := RSI(closes, cfg.RSIPeriod); err == nil {
		ms.SetNum(model.MetricRSI14, rsi)
	}
	if line, signal, hist, err := MACD(closes); err == nil {
		ms.SetNum(model.MetricMACDLine, line)
		ms.SetNum(model.MetricMACDSignal, signal)
		ms.SetNum(model.MetricMACDHist, hist)
	}

	// Volatility and the ATR stop.
	if vol, err := AnnualizedVolatility(closes, cfg.VolatilityWindow); err == nil {
		ms.SetNum(model.MetricHistVolatility, vol)
	}
	if atr, err := ATR(bars, cfg.ATRPeriod); err == nil {
		ms.SetNum(model.MetricATR14, atr)
		distance := atr * cfg.ATRMultiplier
		ms.SetNum(model.MetricStopDistance, distance)
		ms.SetNum(model.MetricStopPrice, price-distance)
	}

	// 52-week range position.
	if high, low, err := YearRange(bars); err == nil {
		ms.SetNum(model.MetricHigh52w, high)
		ms.SetNum(model.MetricLow52w, low)
		if high > 0 {
			offHigh := (price - high) / high * 100
			ms.SetNum(model.MetricPctOff52wHigh, offHigh)
			ms.SetFlag(model.FlagNear52wHigh, -offHigh <= cfg.NearRangePct)
		}
		if low > 0 {
			offLow := (price - low) / low * 100
			ms.SetNum(model.MetricPctOff52wLow, offLow)
			ms.SetFlag(model.FlagNear52wLow, offLow <= cfg.NearRangePct)
		}
	}

	if breakout, err := Breakout(bars, cfg.BreakoutWindow); err == nil {
		ms.SetFlag(model.FlagBreakout60d, breakout)
	}

	return ms
}

func computeMovingAverages(ms *model.MetricSet, closes []float64, price float64, cfg Config) {
	if sma20, err := SMA(closes, 20); err == nil {
		ms.SetNum(model.MetricSMA20, sma20)
		ms.SetFlag(model.FlagPriceAboveSMA20, price > sma20)
	}
	if sma50, err := SMA(closes, 50); err == nil {
		ms.SetNum(model.MetricSMA50, sma50)
		ms.SetFlag(model.FlagPriceAboveSMA50, price > sma50)
	}
	sma200, err := SMA(closes, 200)
	if err != nil {
		return
	}
	ms.SetNum(model.MetricSMA200, sma200)
	ms.SetFlag(model.FlagPriceAboveSMA200, price > sma200)

	if sma50, ok := ms.Num(model.MetricSMA50); ok {
		ms.SetFlag(model.FlagSMA50AboveSMA200, sma50 > sma200)
	}

	golden, death, err := recentCross(closes, cfg.CrossLookback)
	if err == nil {
		ms.SetFlag(model.FlagRecentGoldenCross, golden)
		ms.SetFlag(model.FlagRecentDeathCross, death)
	}
}

// recentCross reports whether SMA50 crossed above (golden) or below (death)
// SMA200 within the last lookback bars.
func recentCross(closes []float64, lookback int) (golden, death bool, err error) {
	sma50, err := SMASeries(closes, 50)
	if err != nil {
		return false, false, err
	}
	sma200, err := SMASeries(closes, 200)
	if err != nil {
		return false, false, err
	}

	// Both series end at the last bar; align tails.
	n := len(sma200)
	if len(sma50) < n {
		n = len(sma50)
	}
	if n < lookback+1 {
		return false, false, errNotEnoughData
	}
	fast := sma50[len(sma50)-n:]
	slow := sma200[len(sma200)-n:]

	for i := n - lookback; i < n; i++ {
		prevAbove := fast[i-1] > slow[i-1]
		nowAbove := fast[i] > slow[i]
		if !prevAbove && nowAbove {
			golden = true
		}
		if prevAbove && !nowAbove {
			death = true
		}
	}
	return golden, death, nil
}
