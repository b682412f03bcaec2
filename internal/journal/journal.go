package journal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"stakebot/internal/sequence"
	logx "stakebot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// Config configures the run journal. An empty path disables it.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means driver default
}

// RunRecord is one finished sequence as stored.
type RunRecord struct {
	ID              int64
	StartedAt       time.Time
	FinishedAt      time.Time
	Asset           string
	Direction       string
	LevelsAttempted int
	TerminalReason  string
	FinalOutcome    string
	Error           string
}

// AttemptRow is one attempt of a stored run.
type AttemptRow struct {
	RunID       int64
	Level       int
	Stake       float64
	ActionID    string
	SubmittedAt time.Time
	Outcome     string
}

// Journal is an append-only record of finished sequence runs. It never
// holds in-flight sequence state; a run is written once, after it ends.
type Journal struct {
	db  *sql.DB
	log logx.Logger
}

// Open initializes the journal database.
// It returns (nil, nil) if the path is empty.
func Open(cfg Config, log logx.Logger) (*Journal, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, nil
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	j := &Journal{db: db, log: log}
	if err := j.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Debug("journal opened", logx.String("path", path))
	return j, nil
}

func (j *Journal) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = j.db.ExecContext(ctx, string(b))
	return err
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// RecordRun stores a finished run and its attempts in one transaction.
func (j *Journal) RecordRun(ctx context.Context, startedAt, finishedAt time.Time, asset, direction string, res sequence.Result) (int64, error) {
	if j == nil || j.db == nil {
		return 0, errors.New("journal disabled")
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	errStr := ""
	if res.Err != nil {
		errStr = res.Err.Error()
	}
	out, err := tx.ExecContext(ctx,
		`INSERT INTO runs(started_at, finished_at, asset, direction, levels_attempted, terminal_reason, final_outcome, err)
		 VALUES(?,?,?,?,?,?,?,?)`,
		startedAt.Format(time.RFC3339Nano), finishedAt.Format(time.RFC3339Nano),
		asset, direction, res.LevelsAttempted, res.Reason.String(), res.Final.String(), nullStr(errStr),
	)
	if err != nil {
		return 0, err
	}
	runID, err := out.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, a := range res.Attempts {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO attempts(run_id, level, stake, action_id, submitted_at, outcome)
			 VALUES(?,?,?,?,?,?)`,
			runID, a.Level, a.Stake, nullStr(string(a.ActionID)),
			a.SubmittedAt.Format(time.RFC3339Nano), a.Outcome.String(),
		)
		if err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// RecentRuns returns the latest runs, newest first.
func (j *Journal) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if j == nil || j.db == nil {
		return nil, errors.New("journal disabled")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, asset, direction, levels_attempted, terminal_reason, final_outcome, COALESCE(err, '')
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var started, finished string
		if err := rows.Scan(&r.ID, &started, &finished, &r.Asset, &r.Direction,
			&r.LevelsAttempted, &r.TerminalReason, &r.FinalOutcome, &r.Error); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Attempts returns the attempt rows of one run, in level order.
func (j *Journal) Attempts(ctx context.Context, runID int64) ([]AttemptRow, error) {
	if j == nil || j.db == nil {
		return nil, errors.New("journal disabled")
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, level, stake, COALESCE(action_id, ''), submitted_at, outcome
		 FROM attempts WHERE run_id = ? ORDER BY level`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AttemptRow
	for rows.Next() {
		var a AttemptRow
		var submitted string
		if err := rows.Scan(&a.RunID, &a.Level, &a.Stake, &a.ActionID, &submitted, &a.Outcome); err != nil {
			return nil, err
		}
		a.SubmittedAt, _ = time.Parse(time.RFC3339Nano, submitted)
		out = append(out, a)
	}
	return out, rows.Err()
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
