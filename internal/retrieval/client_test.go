package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockScout/internal/model"
	"StockScout/internal/provider"
)

// flakyProvider fails a fixed number of times before succeeding.
type flakyProvider struct {
	failures int
	err      error
	calls    int
}

func (f *flakyProvider) Name() string { return "flaky" }

func (f *flakyProvider) PriceHistory(_ context.Context, symbol string, lookbackDays int) (*model.PriceSeries, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return provider.GenerateSeries(symbol, 3, lookbackDays), nil
}

func (f *flakyProvider) Fundamentals(_ context.Context, _ string) (*model.MetricSet, error) {
	return model.NewMetricSet(), nil
}

func (f *flakyProvider) OptionsChain(_ context.Context, _ string) (*model.OptionsChain, error) {
	return nil, provider.Permanent(errors.New("no chain"))
}

func testClient(p provider.Provider, opts Options) (*Client, *[]time.Duration) {
	opts.PerSecond = 10000
	opts.Burst = 100
	c := NewClient(p, NewMemoryCache(time.Minute), opts, zerolog.Nop())
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, &slept
}

func TestClientRetriesTransientThenSucceeds(t *testing.T) {
	p := &flakyProvider{failures: 2, err: provider.Transient(errors.New("upstream 503"))}
	c, slept := testClient(p, Options{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 8 * time.Second})

	series, err := c.PriceHistory(context.Background(), "SNDL", 365)
	require.NoError(t, err)
	assert.Equal(t, 365, series.Len())
	assert.Equal(t, 3, p.calls)
	// Backoff doubles from the base delay.
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
}

func TestClientBoundsRetries(t *testing.T) {
	p := &flakyProvider{failures: 100, err: provider.Transient(errors.New("timeout"))}
	c, _ := testClient(p, Options{MaxRetries: 3, BaseDelay: time.Millisecond})

	_, err := c.PriceHistory(context.Background(), "SNDL", 365)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries exhausted")
	assert.Equal(t, 4, p.calls, "initial attempt plus max_retries")
}

func TestClientDoesNotRetryPermanent(t *testing.T) {
	p := &flakyProvider{failures: 100, err: provider.Permanent(errors.New("unknown symbol"))}
	c, slept := testClient(p, Options{MaxRetries: 3, BaseDelay: time.Second})

	_, err := c.PriceHistory(context.Background(), "NOPE", 365)
	require.Error(t, err)
	assert.Equal(t, 1, p.calls)
	assert.Empty(t, *slept)
}

func TestClientBackoffCap(t *testing.T) {
	p := &flakyProvider{failures: 100, err: provider.Transient(errors.New("429"))}
	c, slept := testClient(p, Options{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: 4 * time.Second})

	_, err := c.PriceHistory(context.Background(), "SNDL", 365)
	require.Error(t, err)
	assert.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second, 4 * time.Second,
	}, *slept)
}

func TestClientMemoizesWithinTTL(t *testing.T) {
	mock := provider.NewMock()
	c, _ := testClient(mock, DefaultOptions())
	ctx := context.Background()

	first, err := c.PriceHistory(ctx, "SNDL", 365)
	require.NoError(t, err)
	second, err := c.PriceHistory(ctx, "SNDL", 365)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, mock.Calls("history", "SNDL"))

	// A different parameter set is a different cache key.
	_, err = c.PriceHistory(ctx, "SNDL", 90)
	require.NoError(t, err)
	assert.Equal(t, 2, mock.Calls("history", "SNDL"))
}

func TestMemoryCacheExpiry(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	cache := NewMemoryCacheWithClock(15*time.Minute, clock)

	cache.Set("k", 42)
	v, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	now = now.Add(14 * time.Minute)
	_, ok = cache.Get("k")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = cache.Get("k")
	assert.False(t, ok, "entries past the TTL must not be served")

	cache.Set("a", 1)
	cache.Set("b", 2)
	now = now.Add(time.Hour)
	cache.Expire()
	assert.Zero(t, cache.Len())
}

func TestIsTransientClassification(t *testing.T) {
	assert.True(t, provider.IsTransient(provider.Transient(errors.New("503"))))
	assert.False(t, provider.IsTransient(provider.Permanent(errors.New("404"))))
	assert.True(t, provider.IsTransient(context.DeadlineExceeded))
	// A permanent wrapper wins even around a transient cause.
	assert.False(t, provider.IsTransient(provider.Permanent(provider.Transient(errors.New("x")))))
}
