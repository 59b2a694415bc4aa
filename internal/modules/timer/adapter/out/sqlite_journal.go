package out

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"uair/internal/modules/timer/domain"
	timerout "uair/internal/modules/timer/port/out"

	_ "modernc.org/sqlite"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLiteJournal(dbPath string) (timerout.Journal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	journal := &SQLiteJournal{db: db}
	if err := journal.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return journal, nil
}

func (j *SQLiteJournal) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS completions (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL,
  session_id TEXT NOT NULL,
  name TEXT NOT NULL,
  duration_ms INTEGER NOT NULL,
  forced INTEGER NOT NULL,
  finished_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS completions_run ON completions(run_id);
`
	if _, err := j.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create completions table: %w", err)
	}
	return nil
}

func (j *SQLiteJournal) Record(ctx context.Context, c domain.Completion) error {
	const stmt = `
INSERT INTO completions (run_id, session_id, name, duration_ms, forced, finished_at)
VALUES (?, ?, ?, ?, ?, ?);
`
	forced := 0
	if c.Forced {
		forced = 1
	}
	_, err := j.db.ExecContext(ctx, stmt,
		c.RunID,
		c.SessionID,
		c.Name,
		c.Duration.Milliseconds(),
		forced,
		c.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record completion: %w", err)
	}
	return nil
}

// List returns the most recent completions, oldest first. limit <= 0 means all.
func (j *SQLiteJournal) List(ctx context.Context, limit int) ([]domain.Completion, error) {
	const query = `
SELECT run_id, session_id, name, duration_ms, forced, finished_at FROM (
  SELECT seq, run_id, session_id, name, duration_ms, forced, finished_at
  FROM completions ORDER BY seq DESC LIMIT ?
) ORDER BY seq ASC;
`
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var out []domain.Completion
	for rows.Next() {
		var (
			c          domain.Completion
			durationMS int64
			forced     int
			finishedAt string
		)
		if err := rows.Scan(&c.RunID, &c.SessionID, &c.Name, &durationMS, &forced, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		c.Duration = time.Duration(durationMS) * time.Millisecond
		c.Forced = forced != 0
		c.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt)
		if err != nil {
			return nil, fmt.Errorf("parse completion time: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate completions: %w", err)
	}
	return out, nil
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
