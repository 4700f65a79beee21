package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/acs-loader/internal/incremental"
	"github.com/sells-group/acs-loader/internal/loadlog"
)

func sampleOutcome() *incremental.Outcome {
	return &incremental.Outcome{
		Status:    incremental.StatusLoaded,
		Table:     "scratch.census_commute",
		Watermark: 2019,
		Year:      2020,
		Rows:      3,
		PerRegion: []incremental.RegionCount{{Region: "01", Records: 2}, {Region: "02", Records: 1}},
	}
}

func TestCheckOutputFormat(t *testing.T) {
	for _, f := range []string{"text", "json", "yaml"} {
		assert.NoError(t, checkOutputFormat(f))
	}
	err := checkOutputFormat("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestWriteOutcome_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutcome(&buf, formatText, sampleOutcome()))

	out := buf.String()
	assert.Contains(t, out, "Loaded 3 rows for 2020 into scratch.census_commute")
	assert.Contains(t, out, "REGION")
	assert.Contains(t, out, "01")
}

func TestWriteOutcome_TextNoNewData(t *testing.T) {
	var buf bytes.Buffer
	o := &incremental.Outcome{Status: incremental.StatusNoNewData, Watermark: 2023, Year: 2024}
	require.NoError(t, writeOutcome(&buf, formatText, o))
	assert.Equal(t, "No newer data available: 2024 is not published (watermark 2023)\n", buf.String())
}

func TestWriteOutcome_TextDryRun(t *testing.T) {
	var buf bytes.Buffer
	o := sampleOutcome()
	o.Status = incremental.StatusDryRun
	require.NoError(t, writeOutcome(&buf, formatText, o))
	assert.Contains(t, buf.String(), "Dry run: fetched 3 records for 2020")
}

func TestWriteOutcome_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutcome(&buf, formatJSON, sampleOutcome()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "loaded", got["status"])
	assert.Equal(t, float64(2020), got["year"])
	assert.Len(t, got["per_region"], 2)
	assert.NotContains(t, got, "run_id")
}

func TestWriteOutcome_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutcome(&buf, formatYAML, sampleOutcome()))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "loaded", got["status"])
	assert.Equal(t, 2020, got["year"])
	assert.Equal(t, 2019, got["watermark"])
}

func TestWriteEntries(t *testing.T) {
	started := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	done := started.Add(90 * time.Second)
	year := 2024
	entries := []loadlog.Entry{
		{
			ID:          uuid.MustParse("0c5b7f4e-8a1d-4d55-9a57-3f2c4a1b9e10"),
			TargetTable: "scratch.census_commute",
			Year:        &year,
			Status:      loadlog.StatusComplete,
			StartedAt:   started,
			CompletedAt: &done,
			RowsLoaded:  85000,
		},
		{
			ID:          uuid.MustParse("9f0e1d2c-3b4a-4c5d-8e7f-6a5b4c3d2e1f"),
			TargetTable: "scratch.census_commute",
			Status:      loadlog.StatusFailed,
			StartedAt:   started.Add(-24 * time.Hour),
			Error:       strings.Repeat("x", 100),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, writeEntries(&buf, formatText, entries))
	out := buf.String()
	assert.Contains(t, out, "0c5b7f4e")
	assert.Contains(t, out, "2024")
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, "85000")
	assert.Contains(t, out, "...")

	buf.Reset()
	require.NoError(t, writeEntries(&buf, formatYAML, entries))
	assert.Contains(t, buf.String(), "id: 0c5b7f4e-8a1d-4d55-9a57-3f2c4a1b9e10")

	buf.Reset()
	require.NoError(t, writeEntries(&buf, formatJSON, entries))
	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "complete", got[0]["status"])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
