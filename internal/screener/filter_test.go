package screener

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockScout/internal/model"
)

func f(v float64) *float64 { return &v }

func TestFilterChainBounds(t *testing.T) {
	chain, err := NewFilterChain(map[string]Bound{
		model.MetricPrice:           {Min: f(0.1), Max: f(5)},
		model.MetricAvgDollarVolume: {Min: f(500_000)},
	})
	require.NoError(t, err)

	ms := model.NewMetricSet()
	ms.SetNum(model.MetricPrice, 2.5)
	ms.SetNum(model.MetricAvgDollarVolume, 1_000_000)
	ok, reason := chain.Evaluate(ms)
	assert.True(t, ok)
	assert.Empty(t, reason)

	ms.SetNum(model.MetricPrice, 7)
	ok, reason = chain.Evaluate(ms)
	assert.False(t, ok)
	assert.Contains(t, reason, "price")

	ms.SetNum(model.MetricPrice, 0.05)
	ok, _ = chain.Evaluate(ms)
	assert.False(t, ok)
}

func TestFilterChainFailsClosedOnAbsent(t *testing.T) {
	chain, err := NewFilterChain(map[string]Bound{
		model.MetricRelativeVolume: {Min: f(1)},
	})
	require.NoError(t, err)

	ok, reason := chain.Evaluate(model.NewMetricSet())
	assert.False(t, ok, "a rule over an absent metric must reject, not pass")
	assert.Contains(t, reason, "metric absent")
}

func TestFilterChainFlagAsNumber(t *testing.T) {
	chain, err := NewFilterChain(map[string]Bound{
		model.FlagPriceAboveSMA200: {Min: f(1)},
	})
	require.NoError(t, err)

	ms := model.NewMetricSet()
	ms.SetFlag(model.FlagPriceAboveSMA200, true)
	ok, _ := chain.Evaluate(ms)
	assert.True(t, ok)

	ms.SetFlag(model.FlagPriceAboveSMA200, false)
	ok, _ = chain.Evaluate(ms)
	assert.False(t, ok)
}

func TestFilterChainDerivedSMARatio(t *testing.T) {
	chain, err := NewFilterChain(map[string]Bound{
		DerivedSMARatio: {Min: f(0.98)},
	})
	require.NoError(t, err)

	ms := model.NewMetricSet()
	ms.SetNum(model.MetricSMA50, 101)
	ms.SetNum(model.MetricSMA200, 100)
	ok, _ := chain.Evaluate(ms)
	assert.True(t, ok)

	ms.SetNum(model.MetricSMA50, 90)
	ok, _ = chain.Evaluate(ms)
	assert.False(t, ok)

	// Without both averages the ratio is absent and the rule rejects.
	ok, _ = chain.Evaluate(model.NewMetricSet())
	assert.False(t, ok)
}

func TestNewFilterChainRejectsBadRules(t *testing.T) {
	_, err := NewFilterChain(map[string]Bound{"price": {}})
	assert.Error(t, err)

	_, err = NewFilterChain(map[string]Bound{"price": {Min: f(5), Max: f(1)}})
	assert.Error(t, err)
}
