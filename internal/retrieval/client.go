package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"StockScout/internal/model"
	"StockScout/internal/provider"
)

// Options bounds the client's retry, timeout and pacing behaviour.
type Options struct {
	MaxRetries int           // retries after the first attempt
	BaseDelay  time.Duration // first backoff delay, doubled per attempt
	MaxDelay   time.Duration // backoff cap
	Timeout    time.Duration // per-attempt deadline
	PerSecond  float64       // upstream request pacing
	Burst      int
}

// DefaultOptions mirrors the upstream tolerances the screener runs with.
func DefaultOptions() Options {
	return Options{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   8 * time.Second,
		Timeout:    10 * time.Second,
		PerSecond:  4,
		Burst:      2,
	}
}

// Client makes every provider call bounded and idempotent-safe: transient
// failures are retried with doubling backoff, successes are memoized for the
// cache's TTL, and all upstream traffic is paced by a rate limiter.
type Client struct {
	provider provider.Provider
	cache    Cache
	limiter  *rate.Limiter
	opts     Options
	log      zerolog.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient wraps p with retry, caching and pacing.
func NewClient(p provider.Provider, cache Cache, opts Options, log zerolog.Logger) *Client {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	if opts.PerSecond <= 0 {
		opts.PerSecond = 4
	}
	return &Client{
		provider: p,
		cache:    cache,
		limiter:  rate.NewLimiter(rate.Limit(opts.PerSecond), opts.Burst),
		opts:     opts,
		log:      log.With().Str("component", "retrieval").Str("provider", p.Name()).Logger(),
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// PriceHistory returns the daily price series for symbol.
func (c *Client) PriceHistory(ctx context.Context, symbol string, lookbackDays int) (*model.PriceSeries, error) {
	key := fmt.Sprintf("history:%s:%d", symbol, lookbackDays)
	v, err := c.do(ctx, key, func(ctx context.Context) (any, error) {
		return c.provider.PriceHistory(ctx, symbol, lookbackDays)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.PriceSeries), nil
}

// Fundamentals returns company fundamentals for symbol.
func (c *Client) Fundamentals(ctx context.Context, symbol string) (*model.MetricSet, error) {
	key := "fundamentals:" + symbol
	v, err := c.do(ctx, key, func(ctx context.Context) (any, error) {
		return c.provider.Fundamentals(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.MetricSet), nil
}

// OptionsChain returns the raw options chain for symbol.
func (c *Client) OptionsChain(ctx context.Context, symbol string) (*model.OptionsChain, error) {
	key := "options:" + symbol
	v, err := c.do(ctx, key, func(ctx context.Context) (any, error) {
		return c.provider.OptionsChain(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.OptionsChain), nil
}

// do resolves key from cache or executes fetch with pacing, per-attempt
// timeouts and bounded retry. Only transient failures are retried; permanent
// ones propagate immediately. Successful results populate the cache.
func (c *Client) do(ctx context.Context, key string, fetch func(ctx context.Context) (any, error)) (any, error) {
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}

	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt)
			c.log.Debug().Str("key", key).Int("attempt", attempt).Dur("delay", delay).Msg("retrying after transient failure")
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		v, err := c.attempt(ctx, fetch)
		if err == nil {
			c.cache.Set(key, v)
			return v, nil
		}
		lastErr = err
		if !provider.IsTransient(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%s: retries exhausted: %w", key, lastErr)
}

func (c *Client) attempt(ctx context.Context, fetch func(ctx context.Context) (any, error)) (any, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}
	return fetch(ctx)
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.BaseDelay << (attempt - 1)
	if c.opts.MaxDelay > 0 && d > c.opts.MaxDelay {
		d = c.opts.MaxDelay
	}
	return d
}
