// Package sqlite persists the restart history in a local sqlite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 20

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned by Get for an unknown run id.
var ErrRunNotFound = errors.New("restart run not found")

// Run is one recorded restart.
type Run struct {
	ID         uuid.UUID
	Org        string
	Space      string
	App        string
	AppGUID    string
	Outcome    string
	Phase      string
	Notices    int
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

func (r Run) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

type HistoryStore struct {
	db *sql.DB
}

// Open opens or creates the history database at path.
func Open(path string) (*HistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set history db journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set history db busy timeout: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS restart_runs (
	id TEXT PRIMARY KEY,
	org TEXT NOT NULL,
	space TEXT NOT NULL,
	app TEXT NOT NULL,
	app_guid TEXT NOT NULL DEFAULT '',
	outcome TEXT NOT NULL,
	phase TEXT NOT NULL DEFAULT '',
	notices INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL
)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize restart runs schema: %w", err)
	}

	return &HistoryStore{db: db}, nil
}

func (s *HistoryStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts run, assigning a new id when run.ID is zero, and returns
// the stored run.
func (s *HistoryStore) Record(ctx context.Context, run Run) (Run, error) {
	if strings.TrimSpace(run.App) == "" {
		return Run{}, fmt.Errorf("record restart run: app is required")
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	run.StartedAt = run.StartedAt.UTC()
	run.FinishedAt = run.FinishedAt.UTC()

	_, err := s.db.ExecContext(ctx, `
INSERT INTO restart_runs (id, org, space, app, app_guid, outcome, phase, notices, error, started_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.Org, run.Space, run.App, run.AppGUID, run.Outcome, run.Phase, run.Notices, run.Error,
		run.StartedAt.Format(timeLayout), run.FinishedAt.Format(timeLayout),
	)
	if err != nil {
		return Run{}, fmt.Errorf("record restart run %s: %w", run.ID, err)
	}
	return run, nil
}

// List returns the most recent runs first, optionally only those for app.
func (s *HistoryStore) List(ctx context.Context, app string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT id, org, space, app, app_guid, outcome, phase, notices, error, started_at, finished_at FROM restart_runs`
	args := []any{}
	if app = strings.TrimSpace(app); app != "" {
		query += ` WHERE app = ?`
		args = append(args, app)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list restart runs: %w", err)
	}
	defer rows.Close()

	out := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate restart run rows: %w", err)
	}
	return out, nil
}

func (s *HistoryStore) Get(ctx context.Context, id uuid.UUID) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, org, space, app, app_guid, outcome, phase, notices, error, started_at, finished_at FROM restart_runs WHERE id = ?`,
		id.String(),
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run               Run
		id                string
		started, finished string
	)
	if err := row.Scan(&id, &run.Org, &run.Space, &run.App, &run.AppGUID, &run.Outcome, &run.Phase,
		&run.Notices, &run.Error, &started, &finished); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan restart run row: %w", err)
	}

	var err error
	if run.ID, err = uuid.Parse(id); err != nil {
		return Run{}, fmt.Errorf("parse restart run id %q: %w", id, err)
	}
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, fmt.Errorf("parse started_at for run %s: %w", id, err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return Run{}, fmt.Errorf("parse finished_at for run %s: %w", id, err)
	}
	return run, nil
}
