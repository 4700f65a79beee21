package main

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/acs-loader/internal/config"
	"github.com/sells-group/acs-loader/internal/db"
	"github.com/sells-group/acs-loader/internal/loadlog"
)

var (
	statusLimit  int
	statusOutput string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent load runs",
	Long:  "Displays the load log: one row per run with its year, outcome and row count.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(cmd.Context(), cfg, statusLimit, statusOutput, os.Stdout)
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "number of runs to show")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "text", "output format: text, json, yaml")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(ctx context.Context, c *config.Config, limit int, format string, out io.Writer) error {
	if err := checkOutputFormat(format); err != nil {
		return err
	}
	if c.Warehouse.Driver != "postgres" {
		return eris.Errorf("status: the load log requires the postgres driver (got %q)", c.Warehouse.Driver)
	}

	pool, err := db.Connect(ctx, c.Warehouse.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	entries, err := loadlog.New(pool, c.Warehouse.LogTable).ListRecent(ctx, limit)
	if err != nil {
		return eris.Wrap(err, "status")
	}

	if len(entries) == 0 && format == formatText {
		zap.L().Info("no load runs found, run 'acs-loader load' to start loading")
		return nil
	}
	return writeEntries(out, format, entries)
}
