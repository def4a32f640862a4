package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"StockScout/internal/model"
)

// Mock returns controllable fixed data for development and testing. Zero
// value serves generated data; individual calls can be overridden per symbol.
type Mock struct {
	mu    sync.Mutex
	calls map[string]int

	// BasePrice seeds generated history when no fixture is set (default 3.00).
	BasePrice float64

	History      map[string]*model.PriceSeries
	Fundamental  map[string]*model.MetricSet
	Chains       map[string]*model.OptionsChain
	HistoryErr   map[string]error
	FundamentErr map[string]error
	ChainErr     map[string]error
}

// NewMock creates an empty mock provider.
func NewMock() *Mock {
	return &Mock{
		History:      make(map[string]*model.PriceSeries),
		Fundamental:  make(map[string]*model.MetricSet),
		Chains:       make(map[string]*model.OptionsChain),
		HistoryErr:   make(map[string]error),
		FundamentErr: make(map[string]error),
		ChainErr:     make(map[string]error),
	}
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) record(kind, symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[kind+":"+symbol]++
}

// Calls returns how many times the given call kind was made for symbol.
func (m *Mock) Calls(kind, symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[kind+":"+symbol]
}

func (m *Mock) PriceHistory(_ context.Context, symbol string, lookbackDays int) (*model.PriceSeries, error) {
	m.record("history", symbol)
	if err := m.HistoryErr[symbol]; err != nil {
		return nil, err
	}
	if s, ok := m.History[symbol]; ok {
		return s, nil
	}
	base := m.BasePrice
	if base == 0 {
		base = 3.0
	}
	return GenerateSeries(symbol, base, lookbackDays), nil
}

func (m *Mock) Fundamentals(_ context.Context, symbol string) (*model.MetricSet, error) {
	m.record("fundamentals", symbol)
	if err := m.FundamentErr[symbol]; err != nil {
		return nil, err
	}
	if ms, ok := m.Fundamental[symbol]; ok {
		return ms, nil
	}
	ms := model.NewMetricSet()
	ms.SetLabel(model.LabelCompanyName, symbol+" Inc.")
	ms.SetNum(model.MetricMarketCap, 150e6)
	ms.SetNum(model.MetricPERatio, 8)
	return ms, nil
}

func (m *Mock) OptionsChain(_ context.Context, symbol string) (*model.OptionsChain, error) {
	m.record("options", symbol)
	if err := m.ChainErr[symbol]; err != nil {
		return nil, err
	}
	if c, ok := m.Chains[symbol]; ok {
		return c, nil
	}
	return nil, Permanent(fmt.Errorf("mock: no options chain for %s", symbol))
}

// GenerateSeries builds a gently trending synthetic daily series ending today.
func GenerateSeries(symbol string, basePrice float64, count int) *model.PriceSeries {
	bars := make([]model.OHLCV, count)
	start := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   start.AddDate(0, 0, i),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1_000_000,
		}
	}
	return &model.PriceSeries{Symbol: symbol, Bars: bars, FetchedAt: time.Now()}
}
