package screener

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockScout/internal/calculator"
	"StockScout/internal/model"
	"StockScout/internal/provider"
)

func newTestScreener(t *testing.T, data MarketData, concurrency int) *Screener {
	t.Helper()
	scorer, err := NewScorer(testCategories())
	require.NoError(t, err)
	return New(data, scorer, calculator.DefaultConfig(), 365, concurrency, zerolog.Nop())
}

// bullishChain has twice as much call open interest as put.
func bullishChain(symbol string) *model.OptionsChain {
	expiry := time.Now().AddDate(0, 0, 45)
	return &model.OptionsChain{
		Symbol: symbol,
		Contracts: []model.OptionContract{
			{Right: model.Call, Expiry: expiry, Volume: 100, OpenInterest: 200, ImpliedVol: 0.5},
			{Right: model.Put, Expiry: expiry, Volume: 40, OpenInterest: 100, ImpliedVol: 0.6},
		},
	}
}

func bearishChain(symbol string) *model.OptionsChain {
	expiry := time.Now().AddDate(0, 0, 45)
	return &model.OptionsChain{
		Symbol: symbol,
		Contracts: []model.OptionContract{
			{Right: model.Call, Expiry: expiry, Volume: 40, OpenInterest: 100, ImpliedVol: 0.5},
			{Right: model.Put, Expiry: expiry, Volume: 100, OpenInterest: 200, ImpliedVol: 0.6},
		},
	}
}

func TestScreenerTwoPhase(t *testing.T) {
	mock := provider.NewMock()
	mock.History["AAA"] = provider.GenerateSeries("AAA", 0.5, 365)
	mock.History["BBB"] = provider.GenerateSeries("BBB", 2.0, 365)
	mock.History["CCC"] = provider.GenerateSeries("CCC", 3.0, 365)
	mock.History["DDD"] = provider.GenerateSeries("DDD", 3.0, 365)
	mock.Chains["AAA"] = bullishChain("AAA")
	mock.Chains["BBB"] = bearishChain("BBB")

	s := newTestScreener(t, mock, 2)
	res, err := s.Run(context.Background(), "penny", Strategy{
		Universe: []string{"AAA", "BBB", "CCC", "DDD"},
		Filters:  map[string]Bound{model.MetricPrice: {Min: f(0.1), Max: f(10)}},
		TopN:     2,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, res.Processed)
	assert.Zero(t, res.Skipped)
	require.Len(t, res.Candidates, 2)

	// Enrichment touched exactly the finalists.
	assert.Equal(t, 1, mock.Calls("options", "AAA"))
	assert.Equal(t, 1, mock.Calls("options", "BBB"))
	assert.Zero(t, mock.Calls("options", "CCC"))
	assert.Zero(t, mock.Calls("options", "DDD"))

	// Cheapest price tier plus bullish sentiment: (15+10)/40*10.
	assert.Equal(t, "AAA", res.Candidates[0].Symbol)
	assert.Equal(t, 6.25, res.Candidates[0].Score)
	// Mid tier dragged by the bearish chain: (10-5)/40*10.
	assert.Equal(t, "BBB", res.Candidates[1].Symbol)
	assert.Equal(t, 1.25, res.Candidates[1].Score)

	for _, c := range res.Candidates {
		assert.GreaterOrEqual(t, c.Score, 0.0)
		assert.LessOrEqual(t, c.Score, 10.0)
	}
}

func TestScreenerSkipsAndReasons(t *testing.T) {
	mock := provider.NewMock()
	mock.History["GOOD"] = provider.GenerateSeries("GOOD", 2.0, 365)
	mock.History["THIN"] = provider.GenerateSeries("THIN", 2.0, 50)
	mock.History["RICH"] = provider.GenerateSeries("RICH", 6.0, 365)
	mock.HistoryErr["DOWN"] = provider.Transient(errors.New("upstream unavailable"))

	s := newTestScreener(t, mock, 2)
	res, err := s.Run(context.Background(), "penny", Strategy{
		Universe: []string{"GOOD", "THIN", "RICH", "DOWN"},
		Filters:  map[string]Bound{model.MetricPrice: {Min: f(0.1), Max: f(5)}},
		TopN:     5,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 3, res.Skipped)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "GOOD", res.Candidates[0].Symbol)

	assert.Contains(t, res.SkipReasons["THIN"], "insufficient data")
	assert.Contains(t, res.SkipReasons["RICH"], "filter price")
	assert.Contains(t, res.SkipReasons["DOWN"], "price history")
}

func TestScreenerEnrichmentFailureKeepsCandidate(t *testing.T) {
	mock := provider.NewMock()
	mock.History["AAA"] = provider.GenerateSeries("AAA", 0.5, 365)
	// No chain fixture: the mock reports a permanent options failure.

	s := newTestScreener(t, mock, 1)
	res, err := s.Run(context.Background(), "penny", Strategy{
		Universe: []string{"AAA"},
		Filters:  map[string]Bound{model.MetricPrice: {Min: f(0.1), Max: f(10)}},
		TopN:     1,
	})
	require.NoError(t, err)

	require.Len(t, res.Candidates, 1)
	c := res.Candidates[0]
	msg, ok := c.Metrics.Error(model.ErrKindOptions)
	require.True(t, ok, "a failed enrichment must be marked, not dropped")
	assert.Contains(t, msg, "no options chain")
	// Score stays at the bulk-phase value: 15/40*10.
	assert.Equal(t, 3.75, c.Score)
}

func TestScreenerEarlyStop(t *testing.T) {
	mock := provider.NewMock() // every symbol passes on generated data
	universe := []string{"S01", "S02", "S03", "S04", "S05", "S06", "S07", "S08", "S09", "S10"}

	s := newTestScreener(t, mock, 1)
	res, err := s.Run(context.Background(), "penny", Strategy{
		Universe:      universe,
		Filters:       map[string]Bound{model.MetricPrice: {Min: f(0.1), Max: f(10)}},
		MaxCandidates: 2,
		TopN:          2,
	})
	require.NoError(t, err)

	// With serial evaluation the cap is noticed after the second pass; one
	// issued symbol may still finish and is discarded at selection.
	assert.Equal(t, 7, res.NotReached)
	assert.Equal(t, 3, res.Processed)
	assert.Len(t, res.Candidates, 2)
}

func TestScreenerTopOneEnrichesOnlyTheBest(t *testing.T) {
	mock := provider.NewMock()
	mock.History["AAA"] = provider.GenerateSeries("AAA", 0.5, 365) // scores 3.75
	mock.History["CCC"] = provider.GenerateSeries("CCC", 3.0, 365) // scores 1.25
	mock.Chains["AAA"] = bullishChain("AAA")
	mock.Chains["CCC"] = bullishChain("CCC")

	s := newTestScreener(t, mock, 2)
	res, err := s.Run(context.Background(), "penny", Strategy{
		Universe: []string{"AAA", "CCC"},
		Filters:  map[string]Bound{model.MetricPrice: {Min: f(0.1), Max: f(10)}},
		TopN:     1,
	})
	require.NoError(t, err)

	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "AAA", res.Candidates[0].Symbol)
	assert.Equal(t, 1, mock.Calls("options", "AAA"))
	assert.Zero(t, mock.Calls("options", "CCC"))
}

func TestScreenerDollarVolumeFilter(t *testing.T) {
	scaleVolume := func(s *model.PriceSeries, v float64) *model.PriceSeries {
		for i := range s.Bars {
			s.Bars[i].Volume = v
		}
		return s
	}

	mock := provider.NewMock()
	mock.History["LIQ"] = provider.GenerateSeries("LIQ", 2.0, 365)
	mock.History["ILLIQ"] = scaleVolume(provider.GenerateSeries("ILLIQ", 2.0, 365), 100_000)

	s := newTestScreener(t, mock, 2)
	res, err := s.Run(context.Background(), "penny", Strategy{
		Universe: []string{"LIQ", "ILLIQ"},
		Filters: map[string]Bound{
			model.MetricPrice:           {Min: f(0.1), Max: f(10)},
			model.MetricAvgDollarVolume: {Min: f(500_000)},
		},
		TopN: 5,
	})
	require.NoError(t, err)

	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "LIQ", res.Candidates[0].Symbol)
	assert.Contains(t, res.SkipReasons["ILLIQ"], "avg_dollar_volume")
}

func TestScreenerMinScore(t *testing.T) {
	mock := provider.NewMock()
	mock.History["CCC"] = provider.GenerateSeries("CCC", 3.0, 365) // scores 1.25

	s := newTestScreener(t, mock, 1)
	res, err := s.Run(context.Background(), "penny", Strategy{
		Universe: []string{"CCC"},
		Filters:  map[string]Bound{model.MetricPrice: {Min: f(0.1), Max: f(10)}},
		MinScore: 3,
		TopN:     5,
	})
	require.NoError(t, err)

	assert.Empty(t, res.Candidates)
	assert.Contains(t, res.SkipReasons["CCC"], "below minimum")
}
