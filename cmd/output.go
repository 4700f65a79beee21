package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/acs-loader/internal/incremental"
	"github.com/sells-group/acs-loader/internal/loadlog"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func checkOutputFormat(f string) error {
	switch f {
	case formatText, formatJSON, formatYAML:
		return nil
	}
	return eris.Errorf("unknown output format %q (valid: text, json, yaml)", f)
}

// encode writes v as JSON or YAML. It reports false for the text format.
func encode(out io.Writer, format string, v any) (bool, error) {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return true, eris.Wrap(enc.Encode(v), "encode json")
	case formatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, eris.Wrap(err, "encode yaml")
		}
		return true, eris.Wrap(enc.Close(), "encode yaml")
	}
	return false, nil
}

// writeOutcome reports a finished load.
func writeOutcome(out io.Writer, format string, o *incremental.Outcome) error {
	if done, err := encode(out, format, o); done {
		return err
	}

	switch o.Status {
	case incremental.StatusNoNewData:
		_, err := fmt.Fprintf(out, "No newer data available: %d is not published (watermark %d)\n", o.Year, o.Watermark)
		return err
	case incremental.StatusDryRun:
		_, _ = fmt.Fprintf(out, "Dry run: fetched %d records for %d (nothing written)\n", o.Rows, o.Year)
	default:
		_, _ = fmt.Fprintf(out, "Loaded %d rows for %d into %s\n", o.Rows, o.Year, o.Table)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "REGION\tRECORDS")
	_, _ = fmt.Fprintln(w, "------\t-------")
	for _, rc := range o.PerRegion {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", rc.Region, rc.Records)
	}
	return w.Flush()
}

// writeEntries reports load log entries.
func writeEntries(out io.Writer, format string, entries []loadlog.Entry) error {
	if done, err := encode(out, format, entries); done {
		return err
	}
	formatStatusEntries(out, entries)
	return nil
}

// formatStatusEntries writes a tabular representation of load log entries to w.
func formatStatusEntries(out io.Writer, entries []loadlog.Entry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTABLE\tYEAR\tSTATUS\tSTARTED\tDURATION\tROWS\tERROR")
	_, _ = fmt.Fprintln(w, "--\t-----\t----\t------\t-------\t--------\t----\t-----")

	for _, e := range entries {
		year := "-"
		if e.Year != nil {
			year = fmt.Sprintf("%d", *e.Year)
		}

		dur := "-"
		if e.CompletedAt != nil {
			d := e.CompletedAt.Sub(e.StartedAt).Round(time.Second)
			dur = d.String()
		}

		errMsg := ""
		if e.Error != "" {
			errMsg = truncate(e.Error, 60)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			e.ID.String()[:8],
			e.TargetTable,
			year,
			e.Status,
			e.StartedAt.Format("2006-01-02 15:04"),
			dur,
			e.RowsLoaded,
			errMsg,
		)
	}
	_ = w.Flush()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
