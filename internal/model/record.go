package model

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/acs-loader/internal/region"
)

// Geography columns returned by a state/county/tract query.
const (
	ColState  = "state"
	ColCounty = "county"
	ColTract  = "tract"
	ColYear   = "year"
	ColName   = "name"
)

// Record is one tract row fetched from the Census API.
type Record struct {
	Name     string     `json:"name"`
	Measures []*float64 `json:"measures"`
	State    string     `json:"state"`
	County   string     `json:"county"`
	Tract    string     `json:"tract"`
}

// GeoID returns the 11-digit tract GEOID (state + county + tract).
func (r Record) GeoID() string {
	return r.State + r.County + r.Tract
}

// Layout is the set of API fields fetched on every run. It fixes the column
// order of the warehouse table.
type Layout struct {
	NameField string   `json:"name_field"`
	Measures  []string `json:"measures"`
}

// Fields returns the API variables to request, name field first.
func (l Layout) Fields() []string {
	out := make([]string, 0, len(l.Measures)+1)
	out = append(out, l.NameField)
	out = append(out, l.Measures...)
	return out
}

// Columns returns the warehouse column names in row order.
func (l Layout) Columns() []string {
	cols := make([]string, 0, len(l.Measures)+5)
	cols = append(cols, ColName)
	for _, m := range l.Measures {
		cols = append(cols, strings.ToLower(m))
	}
	return append(cols, ColState, ColCounty, ColTract, ColYear)
}

// Decode builds a Record from one API data row using the response header to
// locate each field. Null cells become empty names or nil measures.
// Geography codes are zero-padded to their FIPS widths.
func (l Layout) Decode(header []string, row []*string) (Record, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	cell := func(name string) (*string, error) {
		i, ok := idx[name]
		if !ok {
			return nil, eris.Errorf("model: response missing column %q", name)
		}
		if i >= len(row) {
			return nil, eris.Errorf("model: row has %d cells, want column %q at %d", len(row), name, i)
		}
		return row[i], nil
	}

	var rec Record
	name, err := cell(l.NameField)
	if err != nil {
		return rec, err
	}
	if name != nil {
		rec.Name = *name
	}

	rec.Measures = make([]*float64, len(l.Measures))
	for i, m := range l.Measures {
		v, err := cell(m)
		if err != nil {
			return rec, err
		}
		if v == nil || *v == "" {
			continue
		}
		f, err := strconv.ParseFloat(*v, 64)
		if err != nil {
			return rec, eris.Wrapf(err, "model: parse %s value %q", m, *v)
		}
		rec.Measures[i] = &f
	}

	for _, g := range []struct {
		col  string
		dst  *string
		norm func(string) string
	}{
		{ColState, &rec.State, region.NormalizeState},
		{ColCounty, &rec.County, region.NormalizeCounty},
		{ColTract, &rec.Tract, region.NormalizeTract},
	} {
		v, err := cell(g.col)
		if err != nil {
			return rec, err
		}
		if v != nil {
			*g.dst = g.norm(*v)
		}
	}
	return rec, nil
}

// Batch is the set of records loaded by one run, all tagged with Year.
type Batch struct {
	Year    int
	Layout  Layout
	Records []Record
}

// Columns returns the warehouse column list for the batch.
func (b *Batch) Columns() []string {
	return b.Layout.Columns()
}

// Rows converts the batch into positional rows matching Columns. Every row
// carries the batch year.
func (b *Batch) Rows() [][]any {
	rows := make([][]any, 0, len(b.Records))
	for _, r := range b.Records {
		row := make([]any, 0, len(r.Measures)+5)
		row = append(row, r.Name)
		for i := range b.Layout.Measures {
			if i < len(r.Measures) && r.Measures[i] != nil {
				row = append(row, *r.Measures[i])
			} else {
				row = append(row, nil)
			}
		}
		row = append(row, r.State, r.County, r.Tract, b.Year)
		rows = append(rows, row)
	}
	return rows
}

// Len returns the number of records in the batch.
func (b *Batch) Len() int {
	return len(b.Records)
}
