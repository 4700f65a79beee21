package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/acs-loader/internal/config"
	"github.com/sells-group/acs-loader/internal/loadlog"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the warehouse and load log tables",
	Long:  "Creates the target table for the configured layout and, on postgres, the load log table. Existing tables are left untouched.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(ctx context.Context, c *config.Config) error {
	wh, pool, closeFn, err := openWarehouse(ctx, c)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := wh.Migrate(ctx, layoutFromConfig(c)); err != nil {
		return eris.Wrap(err, "migrate")
	}
	if pool != nil {
		if err := loadlog.New(pool, c.Warehouse.LogTable).Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate")
		}
	}

	zap.L().Info("migrations applied", zap.String("table", wh.Table()))
	return nil
}
