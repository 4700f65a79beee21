package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/acs-loader/internal/config"
)

var watermarkCmd = &cobra.Command{
	Use:   "watermark",
	Short: "Print the latest loaded year",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatermark(cmd.Context(), cfg, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(watermarkCmd)
}

func runWatermark(ctx context.Context, c *config.Config, out io.Writer) error {
	wh, _, closeFn, err := openWarehouse(ctx, c)
	if err != nil {
		return err
	}
	defer closeFn()

	y, err := wh.MaxYear(ctx)
	if err != nil {
		return eris.Wrap(err, "watermark")
	}
	_, err = fmt.Fprintf(out, "%s\t%d\n", wh.Table(), y)
	return err
}
