package calculator

import (
	"errors"
	"time"

	"StockScout/internal/model"
)

// Target window for sentiment: contracts expiring this far out.
const (
	optionWindowMin = 30 * 24 * time.Hour
	optionWindowMax = 60 * 24 * time.Hour
)

// ErrNoExpiry means the chain held no usable future expiry.
var ErrNoExpiry = errors.New("no suitable options expiration")

// OptionsMetrics derives derivative-market sentiment from a raw chain:
// put/call volume ratio, put/call open-interest ratio, and the
// open-interest-weighted average implied volatility. Contracts are taken
// from the expiry 30-60 days out; when none falls in that window, the
// nearest future expiry is used instead. Ratios with a zero denominator are
// left absent.
func OptionsMetrics(chain *model.OptionsChain, now time.Time) (*model.MetricSet, error) {
	expiry, err := selectExpiry(chain.Expiries(), now)
	if err != nil {
		return nil, err
	}

	var callVol, putVol, callOI, putOI float64
	var ivWeighted, ivOI float64
	for _, ct := range chain.Contracts {
		if !ct.Expiry.Equal(expiry) {
			continue
		}
		switch ct.Right {
		case model.Call:
			callVol += ct.Volume
			callOI += ct.OpenInterest
		case model.Put:
			putVol += ct.Volume
			putOI += ct.OpenInterest
		}
		if ct.OpenInterest > 0 && ct.ImpliedVol > 0 {
			ivWeighted += ct.ImpliedVol * ct.OpenInterest
			ivOI += ct.OpenInterest
		}
	}

	ms := model.NewMetricSet()
	ms.SetLabel(model.LabelSelectedExpiry, expiry.Format("2006-01-02"))
	ms.SetNum(model.MetricTotalOptVol, callVol+putVol)
	ms.SetNum(model.MetricTotalOptOI, callOI+putOI)
	if callVol > 0 {
		ms.SetNum(model.MetricPCVolumeRatio, putVol/callVol)
	}
	if callOI > 0 {
		ms.SetNum(model.MetricPCOIRatio, putOI/callOI)
	}
	if ivOI > 0 {
		ms.SetNum(model.MetricAverageIV, ivWeighted/ivOI)
	}
	return ms, nil
}

// selectExpiry picks the first expiry inside the 30-60 day window, falling
// back to the nearest future expiry.
func selectExpiry(expiries []time.Time, now time.Time) (time.Time, error) {
	var nearest time.Time
	for _, exp := range expiries {
		d := exp.Sub(now)
		if d <= 0 {
			continue
		}
		if d >= optionWindowMin && d <= optionWindowMax {
			return exp, nil
		}
		if nearest.IsZero() || exp.Before(nearest) {
			nearest = exp
		}
	}
	if nearest.IsZero() {
		return time.Time{}, ErrNoExpiry
	}
	return nearest, nil
}
