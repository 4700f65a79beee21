package warehouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/acs-loader/internal/db"
	"github.com/sells-group/acs-loader/internal/model"
)

// Postgres implements Warehouse on a pgx pool. Appends use the COPY protocol.
type Postgres struct {
	pool  db.Pool
	table string
}

// NewPostgres creates a Postgres warehouse writing to table, which may be
// schema-qualified.
func NewPostgres(pool db.Pool, table string) *Postgres {
	return &Postgres{pool: pool, table: table}
}

// Table implements Warehouse.
func (p *Postgres) Table() string { return p.table }

// MaxYear implements Warehouse.
func (p *Postgres) MaxYear(ctx context.Context) (int, error) {
	var y pgtype.Int8
	err := p.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT max(year) FROM %s", db.SanitizeTable(p.table)),
	).Scan(&y)
	if err != nil {
		return 0, eris.Wrapf(err, "warehouse: read max(year) from %s", p.table)
	}
	if !y.Valid {
		return 0, eris.Wrapf(ErrNoWatermark, "warehouse: %s", p.table)
	}
	return checkYear(y.Int64)
}

// Append implements Warehouse.
func (p *Postgres) Append(ctx context.Context, batch *model.Batch) (int64, error) {
	n, err := db.CopyInTx(ctx, p.pool, p.table, batch.Columns(), batch.Rows())
	if err != nil {
		return 0, eris.Wrapf(err, "warehouse: append year %d", batch.Year)
	}
	return n, nil
}

// Migrate implements Warehouse.
func (p *Postgres) Migrate(ctx context.Context, layout model.Layout) error {
	log := zap.L().With(zap.String("component", "warehouse.migrate"), zap.String("table", p.table))

	ident := db.Identifier(p.table)
	if len(ident) == 2 {
		if _, err := p.pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+ident[:1].Sanitize()); err != nil {
			return eris.Wrapf(err, "warehouse: create schema %s", ident[0])
		}
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)",
		ident.Sanitize(),
		strings.Join(columnTypes(layout, "text", "double precision", "integer"), ",\n\t"),
	)
	if _, err := p.pool.Exec(ctx, ddl); err != nil {
		return eris.Wrapf(err, "warehouse: create table %s", p.table)
	}

	idx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (year)",
		db.QuoteAndJoin([]string{ident[len(ident)-1] + "_year_idx"}), ident.Sanitize())
	if _, err := p.pool.Exec(ctx, idx); err != nil {
		return eris.Wrapf(err, "warehouse: create year index on %s", p.table)
	}

	log.Info("warehouse table ready")
	return nil
}
