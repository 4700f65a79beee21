package census

import (
	"context"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/acs-loader/internal/fetcher"
)

// Table is a decoded API response: the header row followed by data rows.
// Cells are nil where the API returned null.
type Table struct {
	Header []string
	Rows   [][]*string
}

// Index returns the position of a column in the header, or -1.
func (t *Table) Index(col string) int {
	for i, h := range t.Header {
		if h == col {
			return i
		}
	}
	return -1
}

// parseTable decodes the API's array-of-arrays body. An empty body (204 No
// Content) is an empty table.
func parseTable(ctx context.Context, r io.Reader) (*Table, error) {
	ch, errCh := fetcher.DecodeJSONArray[[]any](ctx, r)

	tbl := &Table{}
	first := true
	var convErr error
	for raw := range ch {
		if convErr != nil {
			continue
		}
		if first {
			first = false
			for _, v := range raw {
				s, ok := v.(string)
				if !ok {
					convErr = eris.Errorf("census: header cell %v is not a string", v)
					break
				}
				tbl.Header = append(tbl.Header, s)
			}
			continue
		}
		row, err := convertRow(raw)
		if err != nil {
			convErr = err
			continue
		}
		if len(row) != len(tbl.Header) {
			convErr = eris.Errorf("census: row %d has %d cells, header has %d", len(tbl.Rows)+1, len(row), len(tbl.Header))
			continue
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}
	if convErr != nil {
		return nil, convErr
	}
	return tbl, nil
}

func convertRow(raw []any) ([]*string, error) {
	row := make([]*string, len(raw))
	for i, v := range raw {
		switch x := v.(type) {
		case nil:
		case string:
			row[i] = &x
		case float64:
			s := strconv.FormatFloat(x, 'f', -1, 64)
			row[i] = &s
		default:
			return nil, eris.Errorf("census: unexpected cell type %T", v)
		}
	}
	return row, nil
}
