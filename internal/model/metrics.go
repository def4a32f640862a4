package model

import (
	"encoding/json"
	"math"
	"sort"
)

// Metric names shared between the provider, calculator, filters and scorer.
// Filter and scoring configuration refers to metrics by these names.
const (
	MetricPrice            = "price"
	MetricVolume           = "volume"
	MetricAvgVolume        = "avg_volume"
	MetricRelativeVolume   = "relative_volume"
	MetricAvgDollarVolume  = "avg_dollar_volume"
	MetricMarketCap        = "market_cap"
	MetricPERatio          = "pe_ratio"
	MetricEPS              = "eps"
	MetricBeta             = "beta"
	MetricDividendYield    = "dividend_yield"
	MetricDebtToEquity     = "debt_to_equity"
	MetricProfitMargin     = "profit_margin_pct"
	MetricGrossMargin      = "gross_margin_pct"
	MetricCashRunwayYears  = "cash_runway_years"
	MetricInstOwnership    = "institutional_ownership_pct"
	MetricInsiderBuyCount  = "recent_insider_buys_count"
	MetricInsiderNetShares = "recent_insider_net_shares"

	MetricSMA20          = "sma_20"
	MetricSMA50          = "sma_50"
	MetricSMA200         = "sma_200"
	MetricRSI14          = "rsi_14"
	MetricMACDLine       = "macd_line"
	MetricMACDSignal     = "macd_signal"
	MetricMACDHist       = "macd_hist"
	MetricATR14          = "atr_14"
	MetricHistVolatility = "hist_volatility_60d_annualized"
	MetricHigh52w        = "high_52w"
	MetricLow52w         = "low_52w"
	MetricPctOff52wHigh  = "pct_off_52w_high"
	MetricPctOff52wLow   = "pct_off_52w_low"
	MetricStopPrice      = "suggested_stop_price"
	MetricStopDistance   = "atr_stop_distance"

	FlagPriceAboveSMA20   = "price_above_sma20"
	FlagPriceAboveSMA50   = "price_above_sma50"
	FlagPriceAboveSMA200  = "price_above_sma200"
	FlagSMA50AboveSMA200  = "sma50_above_sma200"
	FlagRecentGoldenCross = "recent_golden_cross"
	FlagRecentDeathCross  = "recent_death_cross"
	FlagNear52wHigh       = "near_52w_high"
	FlagNear52wLow        = "near_52w_low"
	FlagBreakout60d       = "breakout_60d"
	FlagVolumeSpike       = "volume_spike"

	MetricPCVolumeRatio = "pc_volume_ratio"
	MetricPCOIRatio     = "pc_oi_ratio"
	MetricAverageIV     = "average_iv"
	MetricTotalOptVol   = "total_option_volume"
	MetricTotalOptOI    = "total_open_interest"

	LabelCompanyName    = "company_name"
	LabelSector         = "sector"
	LabelIndustry       = "industry"
	LabelSelectedExpiry = "selected_expiry"

	ErrKindOptions = "options"
)

// MetricSet is everything known about one symbol at one point in time.
// Every entry is optional: upstream data is frequently incomplete, and an
// absent entry must read as missing, never as zero. Consumers decide what
// absence means (filters fail closed, scoring awards no points).
type MetricSet struct {
	nums   map[string]float64
	flags  map[string]bool
	labels map[string]string
	errs   map[string]string
}

// NewMetricSet returns an empty MetricSet.
func NewMetricSet() *MetricSet {
	return &MetricSet{
		nums:   make(map[string]float64),
		flags:  make(map[string]bool),
		labels: make(map[string]string),
		errs:   make(map[string]string),
	}
}

// SetNum records a numeric metric.
func (m *MetricSet) SetNum(name string, v float64) { m.nums[name] = v }

// Num returns a numeric metric and whether it is present.
func (m *MetricSet) Num(name string) (float64, bool) {
	v, ok := m.nums[name]
	return v, ok
}

// SetFlag records a boolean metric.
func (m *MetricSet) SetFlag(name string, v bool) { m.flags[name] = v }

// Flag returns a boolean metric and whether it is present.
func (m *MetricSet) Flag(name string) (bool, bool) {
	v, ok := m.flags[name]
	return v, ok
}

// SetLabel records a descriptive string field (company name, sector, ...).
// Labels are presentation data and never participate in filtering or scoring.
func (m *MetricSet) SetLabel(name, v string) { m.labels[name] = v }

// Label returns a string field and whether it is present.
func (m *MetricSet) Label(name string) (string, bool) {
	v, ok := m.labels[name]
	return v, ok
}

// SetError attaches an error marker of the given kind, e.g. a failed
// options-chain fetch during enrichment.
func (m *MetricSet) SetError(kind, msg string) { m.errs[kind] = msg }

// Error returns the error marker of the given kind, if any.
func (m *MetricSet) Error(kind string) (string, bool) {
	v, ok := m.errs[kind]
	return v, ok
}

// Merge copies every entry of other into m, overwriting on collision.
func (m *MetricSet) Merge(other *MetricSet) {
	if other == nil {
		return
	}
	for k, v := range other.nums {
		m.nums[k] = v
	}
	for k, v := range other.flags {
		m.flags[k] = v
	}
	for k, v := range other.labels {
		m.labels[k] = v
	}
	for k, v := range other.errs {
		m.errs[k] = v
	}
}

// NumNames returns the names of all present numeric metrics, sorted.
func (m *MetricSet) NumNames() []string {
	names := make([]string, 0, len(m.nums))
	for k := range m.nums {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// MarshalJSON flattens the set into a single object. Infinities (the cash
// runway sentinel) are encoded as strings because JSON has no representation
// for them.
func (m *MetricSet) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.nums)+len(m.flags)+len(m.labels)+len(m.errs))
	for k, v := range m.nums {
		switch {
		case math.IsInf(v, 1):
			out[k] = "+inf"
		case math.IsInf(v, -1):
			out[k] = "-inf"
		default:
			out[k] = v
		}
	}
	for k, v := range m.flags {
		out[k] = v
	}
	for k, v := range m.labels {
		out[k] = v
	}
	for k, v := range m.errs {
		out[k+"_error"] = v
	}
	return json.Marshal(out)
}
