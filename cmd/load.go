package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/acs-loader/internal/config"
	"github.com/sells-group/acs-loader/internal/incremental"
	"github.com/sells-group/acs-loader/internal/loadlog"
	"github.com/sells-group/acs-loader/internal/region"
)

type loadOpts struct {
	dryRun  bool
	regions []string
	output  string
}

var loadFlags loadOpts

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the next ACS year if it is published",
	Long: "Reads max(year) from the warehouse table, probes the Census API for the following year, " +
		"and when it exists fetches every state/county/tract record and appends them with the new year.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return runLoad(ctx, cfg, loadFlags, os.Stdout)
	},
}

func init() {
	loadCmd.Flags().BoolVar(&loadFlags.dryRun, "dry-run", false, "fetch but do not write to the warehouse")
	loadCmd.Flags().StringSliceVar(&loadFlags.regions, "regions", nil, "state FIPS codes or postal abbreviations to load (default: all 50 states)")
	loadCmd.Flags().StringVarP(&loadFlags.output, "output", "o", "text", "output format: text, json, yaml")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(ctx context.Context, c *config.Config, opts loadOpts, out io.Writer) error {
	if err := checkOutputFormat(opts.output); err != nil {
		return err
	}

	codes := opts.regions
	if len(codes) == 0 {
		codes = c.Census.Regions
	}
	regions, err := region.Resolve(codes)
	if err != nil {
		return err
	}
	probe, err := region.ResolveCode(c.Census.ProbeRegion)
	if err != nil {
		return eris.Wrap(err, "load: probe region")
	}

	wh, pool, closeFn, err := openWarehouse(ctx, c)
	if err != nil {
		return err
	}
	defer closeFn()

	key, err := resolveAPIKey(ctx, c)
	if err != nil {
		return err
	}
	client := newCensusClient(c, key)

	p := incremental.New(wh, client, &incremental.CensusFetcher{Client: client}, wh, incremental.Options{
		Table:       wh.Table(),
		Regions:     regions,
		ProbeRegion: probe,
		Layout:      layoutFromConfig(c),
		Concurrency: c.Census.Concurrency,
		DryRun:      opts.dryRun,
	})
	if pool != nil {
		p.WithRunLog(loadlog.New(pool, c.Warehouse.LogTable))
	}

	outcome, err := p.Run(ctx)
	if err != nil {
		return eris.Wrap(err, "load")
	}
	return writeOutcome(out, opts.output, outcome)
}
