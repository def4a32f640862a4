package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"StockScout/internal/analyst"
	"StockScout/internal/notifier"
	"StockScout/internal/recorder"
	"StockScout/internal/screener"
)

// Scheduler runs screening strategies on their cron schedules and fans the
// results out to the report writer, recorder and notifier.
type Scheduler struct {
	Cron       *cron.Cron
	Screener   *screener.Screener
	Strategies map[string]screener.Strategy
	Analyst    analyst.Analyst
	Reports    ReportWriter
	Notifier   Notifier
	Recorder   recorder.Recorder
	Ctx        context.Context

	log   zerolog.Logger
	runMu sync.Mutex // one screening run at a time
}

// ReportWriter is the slice of the report package the scheduler uses.
type ReportWriter interface {
	WriteJSON(res *screener.Result, universe int) (string, error)
	WriteMarkdown(res *screener.Result, commentary map[string]string) (string, error)
}

// Notifier delivers digests and command replies. Nil-able: a scheduler
// without a notifier still screens, records and writes reports.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// NewScheduler creates a Scheduler. Notifier may be nil.
func NewScheduler(ctx context.Context, scr *screener.Screener, strategies map[string]screener.Strategy,
	an analyst.Analyst, rep ReportWriter, tn Notifier, rec recorder.Recorder, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds()),
		Screener:   scr,
		Strategies: strategies,
		Analyst:    an,
		Reports:    rep,
		Notifier:   tn,
		Recorder:   rec,
		Ctx:        ctx,
		log:        log.With().Str("component", "scheduler").Logger(),
	}
}

// RegisterAll registers one cron job per scheduled strategy.
func (s *Scheduler) RegisterAll(crons map[string]string) error {
	for name, expr := range crons {
		name := name
		if _, err := s.Cron.AddFunc(expr, func() { s.runStrategy(name) }); err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
		s.log.Info().Str("strategy", name).Str("cron", expr).Msg("scheduled")
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	s.log.Info().Msg("scheduler stopped")
}

// RunNow executes one strategy immediately (manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow(name string) {
	s.runStrategy(name)
}

func (s *Scheduler) runStrategy(name string) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	strat, ok := s.Strategies[name]
	if !ok {
		s.log.Error().Str("strategy", name).Msg("unknown strategy")
		return
	}

	res, err := s.Screener.Run(s.Ctx, name, strat)
	if err != nil {
		s.log.Error().Err(err).Str("strategy", name).Msg("screening run failed")
		s.trySend(fmt.Sprintf("❌ Screening run %s failed: %v", name, err))
		return
	}

	commentary := s.collectCommentary(res)

	if path, err := s.Reports.WriteJSON(res, len(strat.Universe)); err != nil {
		s.log.Error().Err(err).Msg("write json report")
	} else {
		s.log.Info().Str("path", path).Msg("picks written")
	}
	if path, err := s.Reports.WriteMarkdown(res, commentary); err != nil {
		s.log.Error().Err(err).Msg("write markdown report")
	} else {
		s.log.Info().Str("path", path).Msg("summary written")
	}

	if err := s.Recorder.RecordRun(&recorder.RunRecord{
		Strategy:   res.Strategy,
		StartedAt:  res.StartedAt,
		Elapsed:    res.Elapsed,
		Universe:   len(strat.Universe),
		Processed:  res.Processed,
		Skipped:    res.Skipped,
		Candidates: res.Candidates,
	}); err != nil {
		s.log.Error().Err(err).Msg("record run")
	}

	s.trySend(notifier.FormatDigest(res))
}

// collectCommentary asks the analyst about each finalist. Failures degrade
// to an empty note for that symbol.
func (s *Scheduler) collectCommentary(res *screener.Result) map[string]string {
	out := make(map[string]string, len(res.Candidates))
	for _, c := range res.Candidates {
		note, err := s.Analyst.Commentary(s.Ctx, c)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", c.Symbol).Msg("analyst commentary failed")
			continue
		}
		if note != "" {
			out[c.Symbol] = note
		}
	}
	return out
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return s.helpText()
	}
	switch fields[0] {
	case "/screen":
		if len(fields) < 2 {
			return "Usage: /screen <strategy>\nKnown: " + strings.Join(s.strategyNames(), ", ")
		}
		name := fields[1]
		if _, ok := s.Strategies[name]; !ok {
			return fmt.Sprintf("Unknown strategy %q. Known: %s", name, strings.Join(s.strategyNames(), ", "))
		}
		go s.runStrategy(name)
		return fmt.Sprintf("Screening %s started, results will follow.", name)
	case "/status":
		strategy := ""
		if len(fields) > 1 {
			strategy = fields[1]
		}
		runs, err := s.Recorder.RecentRuns(strategy, 5)
		if err != nil {
			return fmt.Sprintf("Failed to load run history: %v", err)
		}
		return notifier.FormatStatus(runs)
	default:
		return s.helpText()
	}
}

func (s *Scheduler) strategyNames() []string {
	names := make([]string, 0, len(s.Strategies))
	for name := range s.Strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) helpText() string {
	return "Commands:\n• /screen <strategy> — run a screen now\n• /status [strategy] — recent runs\nStrategies: " +
		strings.Join(s.strategyNames(), ", ")
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}
