package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"strata/internal/shared/util"

	_ "modernc.org/sqlite"
)

const (
	driverName         = "sqlite"
	maxAttempts        = 5
	defaultBusyTimeout = 2 * time.Second

	// fixed width so started_utc sorts lexically
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// Open opens (creating if needed) the journal at path. A zero busyTimeout
// uses the default.
func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}
	if err := util.EnsureParentDir(cleanPath); err != nil {
		return nil, fmt.Errorf("create history directory for %q: %w", cleanPath, err)
	}
	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}

	// busy_timeout + WAL reduce lock conflicts when watch mode and a
	// one-shot run share the journal.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts run, replacing an earlier row with the same id.
func (s *Store) Record(run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("run id must not be empty")
	}
	if run.Started.IsZero() {
		run.Started = time.Now().UTC()
	}
	if run.Outcome == "" {
		run.Outcome = OutcomeOK
	}

	query := `
INSERT INTO runs (
  run_id, command, base_dir, entry_point, started_utc, duration_ns,
  file_count, package_count, object_count, outcome, error_code, error
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id) DO UPDATE SET
  command=excluded.command,
  base_dir=excluded.base_dir,
  entry_point=excluded.entry_point,
  started_utc=excluded.started_utc,
  duration_ns=excluded.duration_ns,
  file_count=excluded.file_count,
  package_count=excluded.package_count,
  object_count=excluded.object_count,
  outcome=excluded.outcome,
  error_code=excluded.error_code,
  error=excluded.error
`
	return s.withRetry("record run", func() error {
		_, err := s.db.Exec(
			query,
			run.ID,
			run.Command,
			run.BaseDir,
			run.EntryPoint,
			run.Started.UTC().Format(timeLayout),
			int64(run.Duration),
			run.Files,
			run.Packages,
			run.Objects,
			string(run.Outcome),
			run.ErrorCode,
			run.Error,
		)
		return err
	})
}

// Recent returns up to limit runs, newest first. limit <= 0 returns all.
func (s *Store) Recent(limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT
  run_id, command, base_dir, entry_point, started_utc, duration_ns,
  file_count, package_count, object_count, outcome, error_code, error
FROM runs
ORDER BY started_utc DESC, run_id ASC
`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows *sql.Rows
	err := s.withRetry("load runs", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var (
			startedRaw string
			durationNS int64
			outcome    string
			run        Run
		)
		if err := rows.Scan(
			&run.ID,
			&run.Command,
			&run.BaseDir,
			&run.EntryPoint,
			&startedRaw,
			&durationNS,
			&run.Files,
			&run.Packages,
			&run.Objects,
			&outcome,
			&run.ErrorCode,
			&run.Error,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		started, err := time.Parse(timeLayout, startedRaw)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", startedRaw, err)
		}
		run.Started = started.UTC()
		run.Duration = time.Duration(durationNS)
		run.Outcome = Outcome(outcome)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// Summarize aggregates every journaled run.
func (s *Store) Summarize() (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		sum     Summary
		lastRaw sql.NullString
		avgNS   sql.NullFloat64
	)
	err := s.withRetry("summarize runs", func() error {
		return s.db.QueryRow(`
SELECT
  COUNT(*),
  COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
  MAX(started_utc),
  AVG(duration_ns)
FROM runs`, string(OutcomeFailed)).Scan(&sum.Runs, &sum.Failed, &lastRaw, &avgNS)
	})
	if err != nil {
		return Summary{}, err
	}
	if lastRaw.Valid {
		last, err := time.Parse(timeLayout, lastRaw.String)
		if err != nil {
			return Summary{}, fmt.Errorf("parse run timestamp %q: %w", lastRaw.String, err)
		}
		sum.LastRun = last.UTC()
	}
	if avgNS.Valid {
		sum.AvgDuration = time.Duration(avgNS.Float64)
	}
	return sum, nil
}

// Prune keeps the newest keep runs and deletes the rest. keep <= 0 is a
// no-op.
func (s *Store) Prune(keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	err := s.withRetry("prune runs", func() error {
		res, err := s.db.Exec(`
DELETE FROM runs WHERE run_id NOT IN (
  SELECT run_id FROM runs ORDER BY started_utc DESC, run_id ASC LIMIT ?
)`, keep)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
