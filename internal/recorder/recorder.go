package recorder

import (
	"time"

	"StockScout/internal/model"
)

// RunRecord holds everything worth keeping from one screening run.
type RunRecord struct {
	Strategy   string
	StartedAt  time.Time
	Elapsed    time.Duration
	Universe   int
	Processed  int
	Skipped    int
	Candidates []model.Candidate
}

// Recorder persists screening history for later analysis.
type Recorder interface {
	RecordRun(rec *RunRecord) error
	RecentRuns(strategy string, limit int) ([]RunSummary, error)
	Close() error
}

// RunSummary is a compact view of a stored run.
type RunSummary struct {
	ID        int64
	Strategy  string
	Timestamp time.Time
	Processed int
	Skipped   int
	TopSymbol string
	TopScore  float64
}
