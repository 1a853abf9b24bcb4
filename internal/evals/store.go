package evals

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"agentkit/internal/logging"
)

// Run kinds.
const (
	KindSignals  = "signals"
	KindPersona  = "persona"
	KindBaseline = "baseline"
)

// Run is one evaluation pass.
type Run struct {
	ID         string
	Kind       string
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time
	Traces     int
}

// StoredScore is a score row as persisted.
type StoredScore struct {
	RunID   string
	TraceID string
	Score
}

// Store persists evaluation runs and their scores in SQLite.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// OpenStore opens or creates the results database at path.
func OpenStore(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryEvals, "OpenStore")
	defer timer.Stop()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.Evals("failed to set sqlite busy_timeout: %v", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		source TEXT,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		trace_count INTEGER DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);

	CREATE TABLE IF NOT EXISTS scores (
		run_id TEXT NOT NULL,
		trace_id TEXT NOT NULL,
		name TEXT NOT NULL,
		value REAL NOT NULL,
		comment TEXT,
		PRIMARY KEY(run_id, trace_id, name)
	);
	CREATE INDEX IF NOT EXISTS idx_scores_trace ON scores(trace_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create eval schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.dbPath }

// BeginRun records a new run and returns its id.
func (s *Store) BeginRun(kind, source string, started time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	_, err := s.db.Exec(`INSERT INTO runs (id, kind, source, started_at) VALUES (?, ?, ?, ?)`,
		id, kind, source, started.UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("failed to begin run: %w", err)
	}
	return id, nil
}

// FinishRun stamps the run's completion and trace count.
func (s *Store) FinishRun(id string, finished time.Time, traces int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE runs SET finished_at = ?, trace_count = ? WHERE id = ?`,
		finished.UTC().Format(time.RFC3339), traces, id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// SaveScores writes a trace's scores for a run in one transaction. Saving
// the same score twice keeps the latest value.
func (s *Store) SaveScores(runID, traceID string, scores []Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO scores (run_id, trace_id, name, value, comment) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare score insert: %w", err)
	}
	defer stmt.Close()

	for _, sc := range scores {
		if _, err := stmt.Exec(runID, traceID, sc.Name, sc.Value, sc.Comment); err != nil {
			return fmt.Errorf("failed to save score %s: %w", sc.Name, err)
		}
	}
	return tx.Commit()
}

// RunScores returns a run's scores ordered by trace and name.
func (s *Store) RunScores(runID string) ([]StoredScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT run_id, trace_id, name, value, COALESCE(comment, '')
		FROM scores WHERE run_id = ? ORDER BY trace_id, name`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer rows.Close()

	var out []StoredScore
	for rows.Next() {
		var sc StoredScore
		if err := rows.Scan(&sc.RunID, &sc.TraceID, &sc.Name, &sc.Value, &sc.Comment); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// Averages returns the mean value of each score name within a run.
func (s *Store) Averages(runID string) (map[string]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT name, AVG(value) FROM scores WHERE run_id = ? GROUP BY name`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query averages: %w", err)
	}
	defer rows.Close()

	out := map[string]float64{}
	for rows.Next() {
		var name string
		var avg float64
		if err := rows.Scan(&name, &avg); err != nil {
			return nil, fmt.Errorf("failed to scan average: %w", err)
		}
		out[name] = avg
	}
	return out, rows.Err()
}

// RecentRuns lists the most recent runs, newest first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`SELECT id, kind, COALESCE(source, ''), started_at, COALESCE(finished_at, ''), trace_count
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Kind, &r.Source, &started, &finished, &r.Traces); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		if finished != "" {
			r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
