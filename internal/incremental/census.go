package incremental

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/acs-loader/internal/model"
	"github.com/sells-group/acs-loader/pkg/census"
)

// CensusFetcher adapts a census.Client to RecordFetcher using the
// state/county/tract shape.
type CensusFetcher struct {
	Client census.Client
}

// Fetch implements RecordFetcher.
func (f *CensusFetcher) Fetch(ctx context.Context, year int, layout model.Layout, region string) ([]model.Record, error) {
	tbl, err := f.Client.StateCountyTract(ctx, year, layout.Fields(), region)
	if err != nil {
		return nil, err
	}

	if len(tbl.Rows) == 0 {
		return nil, nil
	}
	required := append(layout.Fields(), model.ColState, model.ColCounty, model.ColTract)
	for _, col := range required {
		if tbl.Index(col) < 0 {
			return nil, eris.Errorf("incremental: region %s response missing column %q", region, col)
		}
	}

	records := make([]model.Record, 0, len(tbl.Rows))
	seen := make(map[string]int, len(tbl.Rows))
	for i, row := range tbl.Rows {
		rec, err := layout.Decode(tbl.Header, row)
		if err != nil {
			return nil, eris.Wrapf(err, "incremental: decode region %s row %d", region, i+1)
		}
		if prev, dup := seen[rec.GeoID()]; dup {
			return nil, eris.Errorf("incremental: region %s rows %d and %d share tract %s", region, prev, i+1, rec.GeoID())
		}
		seen[rec.GeoID()] = i + 1
		records = append(records, rec)
	}
	return records, nil
}
