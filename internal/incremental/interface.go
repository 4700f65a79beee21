// Package incremental implements the watermark → probe → fetch → load run
// that appends the next published ACS year to the warehouse.
package incremental

import (
	"context"

	"github.com/google/uuid"

	"github.com/sells-group/acs-loader/internal/model"
)

// WatermarkReader returns the latest year already loaded.
type WatermarkReader interface {
	MaxYear(ctx context.Context) (int, error)
}

// Prober checks whether a year is published upstream. A nil error means it
// is; census.ErrUnsupportedYear means it is not.
type Prober interface {
	Probe(ctx context.Context, year int, region string) error
}

// RecordFetcher fetches every record of one region for a year.
type RecordFetcher interface {
	Fetch(ctx context.Context, year int, layout model.Layout, region string) ([]model.Record, error)
}

// Loader appends a batch and blocks until the write has committed.
type Loader interface {
	Append(ctx context.Context, batch *model.Batch) (int64, error)
}

// RunLog records run outcomes. *loadlog.Log satisfies it.
type RunLog interface {
	Start(ctx context.Context, target string) (uuid.UUID, error)
	Complete(ctx context.Context, id uuid.UUID, year int, rows int64, metadata map[string]any) error
	NoNewData(ctx context.Context, id uuid.UUID, year int) error
	Fail(ctx context.Context, id uuid.UUID, errMsg string) error
}
