package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists screening runs to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for concurrent reads while a run is being written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS screening_runs (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			strategy   TEXT NOT NULL,
			universe   INTEGER,
			processed  INTEGER,
			skipped    INTEGER,
			elapsed_ms INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON screening_runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS screening_candidates (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id  INTEGER NOT NULL REFERENCES screening_runs(id),
			rank    INTEGER NOT NULL,
			symbol  TEXT NOT NULL,
			score   REAL NOT NULL,
			metrics TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_run ON screening_candidates(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_symbol ON screening_candidates(symbol)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun writes the run header and every ranked candidate in one
// transaction. Metrics are stored as the candidate's JSON rendering.
func (r *SQLiteRecorder) RecordRun(rec *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO screening_runs
		(timestamp, strategy, universe, processed, skipped, elapsed_ms)
		VALUES (?,?,?,?,?,?)`,
		rec.StartedAt.Unix(), rec.Strategy, rec.Universe,
		rec.Processed, rec.Skipped, rec.Elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("run id: %w", err)
	}

	for i, c := range rec.Candidates {
		metrics, err := json.Marshal(c.Metrics)
		if err != nil {
			return fmt.Errorf("marshal metrics for %s: %w", c.Symbol, err)
		}
		if _, err := tx.Exec(`INSERT INTO screening_candidates
			(run_id, rank, symbol, score, metrics)
			VALUES (?,?,?,?,?)`,
			runID, i+1, c.Symbol, c.Score, string(metrics),
		); err != nil {
			return fmt.Errorf("insert candidate %s: %w", c.Symbol, err)
		}
	}

	return tx.Commit()
}

// RecentRuns returns the latest stored runs for a strategy, newest first.
// An empty strategy matches all strategies.
func (r *SQLiteRecorder) RecentRuns(strategy string, limit int) ([]RunSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 {
		limit = 5
	}
	query := `SELECT r.id, r.strategy, r.timestamp, r.processed, r.skipped,
			COALESCE(c.symbol, ''), COALESCE(c.score, 0)
		FROM screening_runs r
		LEFT JOIN screening_candidates c ON c.run_id = r.id AND c.rank = 1`
	args := []any{}
	if strategy != "" {
		query += ` WHERE r.strategy = ?`
		args = append(args, strategy)
	}
	query += ` ORDER BY r.timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var ts int64
		if err := rows.Scan(&s.ID, &s.Strategy, &ts, &s.Processed, &s.Skipped, &s.TopSymbol, &s.TopScore); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.Timestamp = time.Unix(ts, 0)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
