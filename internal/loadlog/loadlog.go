// Package loadlog records the outcome of every load run in a Postgres table.
package loadlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rotisserie/eris"

	"github.com/sells-group/acs-loader/internal/db"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusComplete  = "complete"
	StatusNoNewData = "no_new_data"
	StatusFailed    = "failed"
)

// Entry represents a row in the load log table.
type Entry struct {
	ID          uuid.UUID      `json:"id" yaml:"id"`
	TargetTable string         `json:"target_table" yaml:"target_table"`
	Year        *int           `json:"year,omitempty" yaml:"year,omitempty"`
	Status      string         `json:"status" yaml:"status"`
	StartedAt   time.Time      `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	RowsLoaded  int64          `json:"rows_loaded" yaml:"rows_loaded"`
	Error       string         `json:"error,omitempty" yaml:"error,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Log provides read/write access to the load log table.
type Log struct {
	pool  db.Pool
	table string
}

// New creates a Log writing to table (may be schema-qualified).
func New(pool db.Pool, table string) *Log {
	return &Log{pool: pool, table: table}
}

func (l *Log) t() string { return db.SanitizeTable(l.table) }

// Start records the beginning of a run against target and returns its ID.
func (l *Log) Start(ctx context.Context, target string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := l.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, target_table, status, started_at)
		 VALUES ($1, $2, 'running', now())`, l.t()),
		id, target,
	)
	if err != nil {
		return uuid.Nil, eris.Wrapf(err, "loadlog: start run for %s", target)
	}
	return id, nil
}

// Complete marks a run as loaded with the given row count.
func (l *Log) Complete(ctx context.Context, id uuid.UUID, year int, rows int64, metadata map[string]any) error {
	var metaJSON []byte
	if metadata != nil {
		var err error
		metaJSON, err = json.Marshal(metadata)
		if err != nil {
			return eris.Wrap(err, "loadlog: marshal metadata")
		}
	}

	_, err := l.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE %s
		 SET status = 'complete', completed_at = now(), year = $1, rows_loaded = $2, metadata = $3
		 WHERE id = $4`, l.t()),
		year, rows, metaJSON, id,
	)
	if err != nil {
		return eris.Wrapf(err, "loadlog: complete run %s", id)
	}
	return nil
}

// NoNewData marks a run that found no published year after the watermark.
func (l *Log) NoNewData(ctx context.Context, id uuid.UUID, year int) error {
	_, err := l.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE %s
		 SET status = 'no_new_data', completed_at = now(), year = $1, rows_loaded = 0
		 WHERE id = $2`, l.t()),
		year, id,
	)
	if err != nil {
		return eris.Wrapf(err, "loadlog: no new data for run %s", id)
	}
	return nil
}

// Fail marks a run as failed with an error message.
func (l *Log) Fail(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := l.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE %s
		 SET status = 'failed', completed_at = now(), error = $1
		 WHERE id = $2`, l.t()),
		errMsg, id,
	)
	if err != nil {
		return eris.Wrapf(err, "loadlog: fail run %s", id)
	}
	return nil
}

// ListRecent returns up to limit entries ordered by most recent first.
func (l *Log) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.pool.Query(ctx,
		fmt.Sprintf(`SELECT id, target_table, year, status, started_at, completed_at, rows_loaded, error, metadata
		 FROM %s ORDER BY started_at DESC LIMIT $1`, l.t()),
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "loadlog: list recent")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var year pgtype.Int8
		var completedAt pgtype.Timestamptz
		var errStr pgtype.Text
		var metaJSON []byte
		if err := rows.Scan(&e.ID, &e.TargetTable, &year, &e.Status, &e.StartedAt, &completedAt, &e.RowsLoaded, &errStr, &metaJSON); err != nil {
			return nil, eris.Wrap(err, "loadlog: scan entry")
		}
		if year.Valid {
			y := int(year.Int64)
			e.Year = &y
		}
		if completedAt.Valid {
			ts := completedAt.Time
			e.CompletedAt = &ts
		}
		if errStr.Valid {
			e.Error = errStr.String
		}
		if metaJSON != nil {
			_ = json.Unmarshal(metaJSON, &e.Metadata)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Migrate creates the load log table if it does not exist.
func (l *Log) Migrate(ctx context.Context) error {
	ident := db.Identifier(l.table)
	if len(ident) == 2 {
		if _, err := l.pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+ident[:1].Sanitize()); err != nil {
			return eris.Wrapf(err, "loadlog: create schema %s", ident[0])
		}
	}
	_, err := l.pool.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id           uuid PRIMARY KEY,
	target_table text NOT NULL,
	year         integer,
	status       text NOT NULL,
	started_at   timestamptz NOT NULL DEFAULT now(),
	completed_at timestamptz,
	rows_loaded  bigint NOT NULL DEFAULT 0,
	error        text,
	metadata     jsonb
)`, l.t()))
	if err != nil {
		return eris.Wrapf(err, "loadlog: create table %s", l.table)
	}
	return nil
}
