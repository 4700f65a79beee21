// Package warehouse reads the load watermark from, and appends yearly
// batches to, the destination table.
package warehouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/acs-loader/internal/model"
)

// ErrNoWatermark is returned when the target table has no year to continue from.
var ErrNoWatermark = eris.New("warehouse: no watermark (max(year) is NULL)")

// Warehouse is the destination table of the incremental load.
type Warehouse interface {
	// MaxYear returns the most recent year present in the table.
	MaxYear(ctx context.Context) (int, error)
	// Append writes every row of the batch in one transaction and returns
	// the number of rows written once the commit has completed.
	Append(ctx context.Context, batch *model.Batch) (int64, error)
	// Migrate creates the table for the given layout if it does not exist.
	Migrate(ctx context.Context, layout model.Layout) error
	// Table returns the target table name.
	Table() string
}

// columnTypes maps the layout columns onto SQL types. The dialect supplies
// the text, float and integer type names.
func columnTypes(layout model.Layout, text, float, integer string) []string {
	defs := make([]string, 0, len(layout.Measures)+5)
	defs = append(defs, fmt.Sprintf("%s %s", model.ColName, text))
	for _, m := range layout.Measures {
		defs = append(defs, fmt.Sprintf("%s %s", strings.ToLower(m), float))
	}
	return append(defs,
		fmt.Sprintf("%s %s", model.ColState, text),
		fmt.Sprintf("%s %s", model.ColCounty, text),
		fmt.Sprintf("%s %s", model.ColTract, text),
		fmt.Sprintf("%s %s NOT NULL", model.ColYear, integer),
	)
}

// checkYear validates a watermark value read from the table.
func checkYear(y int64) (int, error) {
	if y < 1 || y > 9999 {
		return 0, eris.Errorf("warehouse: watermark %d is not a calendar year", y)
	}
	return int(y), nil
}
