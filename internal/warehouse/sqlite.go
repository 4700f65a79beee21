package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/acs-loader/internal/model"
)

// SQLite implements Warehouse on a local modernc.org/sqlite database.
// Schema-qualified table names are flattened ("scratch.t" becomes "scratch_t").
type SQLite struct {
	db    *sql.DB
	table string
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn, table string) (*SQLite, error) {
	if dsn == "" {
		return nil, eris.New("sqlite: no database_url configured (set warehouse.database_url)")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLite{db: db, table: strings.ReplaceAll(table, ".", "_")}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Table implements Warehouse.
func (s *SQLite) Table() string { return s.table }

func (s *SQLite) quoted() string {
	return quoteIdent(s.table)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// MaxYear implements Warehouse.
func (s *SQLite) MaxYear(ctx context.Context) (int, error) {
	var y sql.NullInt64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT max(year) FROM %s", s.quoted())).Scan(&y)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: read max(year) from %s", s.table)
	}
	if !y.Valid {
		return 0, eris.Wrapf(ErrNoWatermark, "sqlite: %s", s.table)
	}
	return checkYear(y.Int64)
}

// Append implements Warehouse.
func (s *SQLite) Append(ctx context.Context, batch *model.Batch) (int64, error) {
	rows := batch.Rows()
	if len(rows) == 0 {
		return 0, nil
	}
	cols := batch.Columns()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.quoted(), strings.Join(cols, ", "), placeholders))
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: prepare insert into %s", s.table)
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert row %d into %s", n+1, s.table)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return n, nil
}

// Migrate implements Warehouse.
func (s *SQLite) Migrate(ctx context.Context, layout model.Layout) error {
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n);\nCREATE INDEX IF NOT EXISTS %s ON %s(year);",
		s.quoted(),
		strings.Join(columnTypes(layout, "TEXT", "REAL", "INTEGER"), ",\n\t"),
		quoteIdent("idx_"+s.table+"_year"), s.quoted(),
	)
	_, err := s.db.ExecContext(ctx, ddl)
	return eris.Wrap(err, "sqlite: migrate")
}
