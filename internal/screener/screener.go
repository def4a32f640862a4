package screener

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"StockScout/internal/calculator"
	"StockScout/internal/model"
	"StockScout/internal/provider"
)

// MarketData is the slice of the retrieval client the screener consumes.
type MarketData interface {
	PriceHistory(ctx context.Context, symbol string, lookbackDays int) (*model.PriceSeries, error)
	Fundamentals(ctx context.Context, symbol string) (*model.MetricSet, error)
	OptionsChain(ctx context.Context, symbol string) (*model.OptionsChain, error)
}

// Strategy is one screening profile: a universe, its filter bounds and
// selection parameters. Profiles share the evaluation mechanism; only the
// configuration differs.
type Strategy struct {
	Universe []string         `yaml:"universe"`
	Filters  map[string]Bound `yaml:"filters"`
	// MinScore drops candidates scoring below it before selection.
	MinScore float64 `yaml:"min_score"`
	// MaxCandidates stops the bulk phase early once this many candidates
	// passed; zero means scan the whole universe.
	MaxCandidates int `yaml:"max_candidates"`
	// TopN bounds the expensive enrichment phase.
	TopN int `yaml:"top_n"`
}

// Result is the outcome of one screening run.
type Result struct {
	Strategy    string
	Candidates  []model.Candidate
	Processed   int               // symbols that passed every filter
	Skipped     int               // symbols dropped, with reasons below
	NotReached  int               // symbols never evaluated due to early stop
	SkipReasons map[string]string // symbol -> reason
	StartedAt   time.Time
	Elapsed     time.Duration
}

// Screener drives the two-phase pipeline: a cheap full-universe pass (fetch,
// indicators, filters, initial score), then options enrichment for the
// surviving top N only.
type Screener struct {
	data         MarketData
	scorer       *Scorer
	indicators   calculator.Config
	lookbackDays int
	concurrency  int
	log          zerolog.Logger
	now          func() time.Time
}

// New creates a Screener. lookbackDays must cover the indicator engine's
// 200-bar precondition; concurrency bounds the bulk-phase fan-out.
func New(data MarketData, scorer *Scorer, indicators calculator.Config, lookbackDays, concurrency int, log zerolog.Logger) *Screener {
	if lookbackDays <= 0 {
		lookbackDays = 365
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Screener{
		data:         data,
		scorer:       scorer,
		indicators:   indicators,
		lookbackDays: lookbackDays,
		concurrency:  concurrency,
		log:          log.With().Str("component", "screener").Logger(),
		now:          time.Now,
	}
}

// Run executes one screening pass for the strategy. Per-symbol failures are
// recorded and skipped; they never abort the run.
func (s *Screener) Run(ctx context.Context, name string, strat Strategy) (*Result, error) {
	chain, err := NewFilterChain(strat.Filters)
	if err != nil {
		return nil, fmt.Errorf("strategy %s: %w", name, err)
	}
	topN := strat.TopN
	if topN <= 0 {
		topN = 10
	}

	res := &Result{
		Strategy:    name,
		SkipReasons: make(map[string]string),
		StartedAt:   s.now(),
	}
	s.log.Info().Str("strategy", name).Int("universe", len(strat.Universe)).Msg("screening started")

	candidates := s.bulkPhase(ctx, strat, chain, res)

	// Selection: best first, symbol order breaking ties for determinism.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Symbol < candidates[j].Symbol
	})
	if len(candidates) > topN {
		candidates = candidates[:topN]
	}

	s.enrich(ctx, candidates)

	// Sentiment can reorder the finalists.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Symbol < candidates[j].Symbol
	})

	res.Candidates = candidates
	res.Elapsed = time.Since(res.StartedAt)
	s.log.Info().
		Str("strategy", name).
		Int("passed", res.Processed).
		Int("skipped", res.Skipped).
		Int("selected", len(candidates)).
		Dur("elapsed", res.Elapsed).
		Msg("screening complete")
	return res, nil
}

// bulkPhase evaluates the universe with bounded concurrency. When the
// strategy caps candidates, no new symbols are issued once the cap is
// reached; work already in flight finishes and surplus results are discarded
// at selection.
func (s *Screener) bulkPhase(ctx context.Context, strat Strategy, chain *FilterChain, res *Result) []model.Candidate {
	var (
		mu         sync.Mutex
		candidates []model.Candidate
		passed     atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	issued := 0
	for _, symbol := range strat.Universe {
		if gctx.Err() != nil {
			break
		}
		if strat.MaxCandidates > 0 && passed.Load() >= int64(strat.MaxCandidates) {
			s.log.Info().Int("issued", issued).Msg("candidate cap reached, stopping early")
			break
		}
		symbol := symbol
		issued++
		g.Go(func() error {
			cand, err := s.evaluate(gctx, symbol, chain, strat.MinScore)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Skipped++
				res.SkipReasons[symbol] = err.Error()
				if errors.Is(err, model.ErrInsufficientData) {
					s.log.Warn().Str("symbol", symbol).Msg("skipping: insufficient data")
				} else {
					s.log.Debug().Str("symbol", symbol).Str("reason", err.Error()).Msg("skipping")
				}
				return nil
			}
			res.Processed++
			passed.Add(1)
			candidates = append(candidates, *cand)
			return nil
		})
	}
	_ = g.Wait() // workers only report via the result
	res.NotReached = len(strat.Universe) - issued
	return candidates
}

// evaluate runs the cheap pass for one symbol: history + fundamentals,
// indicators, filters, initial score (sentiment absent, contributing zero).
func (s *Screener) evaluate(ctx context.Context, symbol string, chain *FilterChain, minScore float64) (*model.Candidate, error) {
	series, err := s.data.PriceHistory(ctx, symbol, s.lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("price history: %w", err)
	}

	ms := calculator.Compute(series, s.indicators)

	fnd, err := s.data.Fundamentals(ctx, symbol)
	if err != nil {
		// Fundamentals are optional breadth; a permanent miss only costs
		// the metrics. History too thin to price is handled below.
		if provider.IsTransient(err) {
			return nil, fmt.Errorf("fundamentals: %w", err)
		}
		s.log.Debug().Str("symbol", symbol).Err(err).Msg("no fundamentals")
	} else {
		ms.Merge(fnd)
	}

	if _, ok := ms.Num(model.MetricPrice); !ok {
		return nil, fmt.Errorf("no usable price for %s: %w", symbol, model.ErrInsufficientData)
	}

	if ok, reason := chain.Evaluate(ms); !ok {
		return nil, errors.New(reason)
	}

	score := s.scorer.Score(ms)
	if score < minScore {
		return nil, fmt.Errorf("score %.2f below minimum %.2f", score, minScore)
	}
	return &model.Candidate{Symbol: symbol, Metrics: ms, Score: score}, nil
}

// enrich fetches options sentiment for exactly the selected finalists and
// re-scores them. A failed fetch attaches an error marker instead of
// dropping the candidate.
func (s *Screener) enrich(ctx context.Context, finalists []model.Candidate) {
	for i := range finalists {
		c := &finalists[i]
		chain, err := s.data.OptionsChain(ctx, c.Symbol)
		if err != nil {
			s.log.Warn().Str("symbol", c.Symbol).Err(err).Msg("options enrichment failed")
			c.Metrics.SetError(model.ErrKindOptions, err.Error())
			continue
		}
		sentiment, err := calculator.OptionsMetrics(chain, s.now())
		if err != nil {
			c.Metrics.SetError(model.ErrKindOptions, err.Error())
			continue
		}
		c.Metrics.Merge(sentiment)
		c.Score = s.scorer.Score(c.Metrics)
	}
}
