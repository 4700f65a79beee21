package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func f64(v float64) *float64 { return &v }

var testLayout = Layout{NameField: "NAME", Measures: []string{"B08303_001E", "B08303_013E"}}

func TestLayoutFields(t *testing.T) {
	assert.Equal(t, []string{"NAME", "B08303_001E", "B08303_013E"}, testLayout.Fields())
}

func TestLayoutColumns(t *testing.T) {
	assert.Equal(t,
		[]string{"name", "b08303_001e", "b08303_013e", "state", "county", "tract", "year"},
		testLayout.Columns(),
	)
}

func TestLayoutDecode(t *testing.T) {
	header := []string{"NAME", "B08303_001E", "B08303_013E", "state", "county", "tract"}

	t.Run("full row", func(t *testing.T) {
		row := []*string{strp("Census Tract 1, Autauga County, Alabama"), strp("1024"), strp("37"), strp("01"), strp("001"), strp("020100")}
		rec, err := testLayout.Decode(header, row)
		require.NoError(t, err)
		assert.Equal(t, "Census Tract 1, Autauga County, Alabama", rec.Name)
		require.Len(t, rec.Measures, 2)
		assert.InDelta(t, 1024.0, *rec.Measures[0], 0.001)
		assert.InDelta(t, 37.0, *rec.Measures[1], 0.001)
		assert.Equal(t, "01001020100", rec.GeoID())
	})

	t.Run("null measure", func(t *testing.T) {
		row := []*string{strp("Tract 2"), nil, strp("5"), strp("01"), strp("001"), strp("020200")}
		rec, err := testLayout.Decode(header, row)
		require.NoError(t, err)
		assert.Nil(t, rec.Measures[0])
		assert.NotNil(t, rec.Measures[1])
	})

	t.Run("columns in any order", func(t *testing.T) {
		h := []string{"state", "county", "tract", "B08303_013E", "NAME", "B08303_001E"}
		row := []*string{strp("06"), strp("075"), strp("010100"), strp("9"), strp("SF tract"), strp("100")}
		rec, err := testLayout.Decode(h, row)
		require.NoError(t, err)
		assert.Equal(t, "SF tract", rec.Name)
		assert.InDelta(t, 100.0, *rec.Measures[0], 0.001)
		assert.InDelta(t, 9.0, *rec.Measures[1], 0.001)
		assert.Equal(t, "06", rec.State)
	})

	t.Run("geography padded", func(t *testing.T) {
		row := []*string{strp("Tract 4201"), strp("1"), strp("2"), strp("1"), strp("1"), strp("4201")}
		rec, err := testLayout.Decode(header, row)
		require.NoError(t, err)
		assert.Equal(t, "01", rec.State)
		assert.Equal(t, "001", rec.County)
		assert.Equal(t, "004201", rec.Tract)
		assert.Equal(t, "01001004201", rec.GeoID())
	})

	t.Run("missing column", func(t *testing.T) {
		_, err := testLayout.Decode([]string{"NAME", "state"}, []*string{strp("x"), strp("01")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing column")
	})

	t.Run("short row", func(t *testing.T) {
		_, err := testLayout.Decode(header, []*string{strp("x")})
		require.Error(t, err)
	})

	t.Run("non numeric measure", func(t *testing.T) {
		row := []*string{strp("x"), strp("abc"), strp("1"), strp("01"), strp("001"), strp("020100")}
		_, err := testLayout.Decode(header, row)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "B08303_001E")
	})
}

func TestBatchRows(t *testing.T) {
	b := &Batch{
		Year:   2020,
		Layout: testLayout,
		Records: []Record{
			{Name: "a", Measures: []*float64{f64(1), f64(2)}, State: "01", County: "001", Tract: "000100"},
			{Name: "b", Measures: []*float64{nil, f64(3)}, State: "01", County: "003", Tract: "000200"},
			{Name: "c", Measures: []*float64{f64(4)}, State: "02", County: "013", Tract: "000100"},
		},
	}

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, testLayout.Columns(), b.Columns())

	rows := b.Rows()
	require.Len(t, rows, 3)
	for _, row := range rows {
		require.Len(t, row, len(b.Columns()))
		assert.Equal(t, 2020, row[len(row)-1])
	}
	assert.Equal(t, []any{"a", 1.0, 2.0, "01", "001", "000100", 2020}, rows[0])
	assert.Nil(t, rows[1][1])
	assert.Nil(t, rows[2][2], "missing trailing measure becomes NULL")
}

func TestBatchRows_Empty(t *testing.T) {
	b := &Batch{Year: 2021, Layout: testLayout}
	assert.Empty(t, b.Rows())
	assert.Equal(t, 0, b.Len())
}
