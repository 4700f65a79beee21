package incremental

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/acs-loader/internal/model"
	"github.com/sells-group/acs-loader/pkg/census"
)

// Outcome statuses.
const (
	StatusLoaded    = "loaded"
	StatusNoNewData = "no_new_data"
	StatusDryRun    = "dry_run"
)

// RegionCount is the number of records fetched for one region.
type RegionCount struct {
	Region  string `json:"region" yaml:"region"`
	Records int    `json:"records" yaml:"records"`
}

// Outcome describes a finished run.
type Outcome struct {
	RunID     string        `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Status    string        `json:"status" yaml:"status"`
	Table     string        `json:"table" yaml:"table"`
	Watermark int           `json:"watermark" yaml:"watermark"`
	Year      int           `json:"year" yaml:"year"`
	Rows      int64         `json:"rows" yaml:"rows"`
	PerRegion []RegionCount `json:"per_region,omitempty" yaml:"per_region,omitempty"`
	Elapsed   time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Options configures a Pipeline.
type Options struct {
	Table       string
	Regions     []string
	ProbeRegion string
	Layout      model.Layout
	Concurrency int
	DryRun      bool
}

// Pipeline runs one incremental load.
type Pipeline struct {
	watermark WatermarkReader
	prober    Prober
	fetcher   RecordFetcher
	loader    Loader
	runLog    RunLog
	opts      Options
}

// New creates a Pipeline from its collaborators.
func New(wm WatermarkReader, p Prober, f RecordFetcher, l Loader, opts Options) *Pipeline {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Pipeline{
		watermark: wm,
		prober:    p,
		fetcher:   f,
		loader:    l,
		opts:      opts,
	}
}

// WithRunLog attaches a run log. Runs are recorded only when one is set.
func (p *Pipeline) WithRunLog(rl RunLog) *Pipeline {
	p.runLog = rl
	return p
}

// Run executes the load: read the watermark, probe watermark+1, fetch every
// region, then append the batch. An unpublished year ends the run with
// StatusNoNewData and nothing written.
func (p *Pipeline) Run(ctx context.Context) (*Outcome, error) {
	log := zap.L().With(zap.String("component", "incremental"), zap.String("table", p.opts.Table))
	start := time.Now()

	runID := uuid.Nil
	if p.runLog != nil {
		id, err := p.runLog.Start(ctx, p.opts.Table)
		if err != nil {
			return nil, eris.Wrap(err, "incremental: start load log")
		}
		runID = id
		log = log.With(zap.String("run_id", runID.String()))
	}

	out, err := p.run(ctx, log)
	if out != nil {
		out.Elapsed = time.Since(start)
		if runID != uuid.Nil {
			out.RunID = runID.String()
		}
	}

	if p.runLog != nil {
		p.record(context.WithoutCancel(ctx), log, runID, out, err)
	}
	if err != nil {
		log.Error("load failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return out, err
	}

	log.Info("load finished",
		zap.String("status", out.Status),
		zap.Int("year", out.Year),
		zap.Int64("rows", out.Rows),
		zap.Duration("elapsed", out.Elapsed),
	)
	return out, nil
}

func (p *Pipeline) run(ctx context.Context, log *zap.Logger) (*Outcome, error) {
	out := &Outcome{Table: p.opts.Table}

	wm, err := p.watermark.MaxYear(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "incremental: read watermark")
	}
	out.Watermark = wm
	out.Year = wm + 1
	log = log.With(zap.Int("year", out.Year))
	log.Info("watermark read", zap.Int("watermark", wm))

	if err := p.prober.Probe(ctx, out.Year, p.opts.ProbeRegion); err != nil {
		if errors.Is(err, census.ErrUnsupportedYear) {
			log.Info("no newer data available")
			out.Status = StatusNoNewData
			return out, nil
		}
		return out, eris.Wrapf(err, "incremental: probe year %d", out.Year)
	}

	log.Info("new year available, fetching", zap.Int("regions", len(p.opts.Regions)))
	records, counts, err := p.fetchAll(ctx, out.Year)
	if err != nil {
		return out, err
	}
	out.PerRegion = counts

	batch := &model.Batch{Year: out.Year, Layout: p.opts.Layout, Records: records}
	if p.opts.DryRun {
		log.Info("dry run, skipping load", zap.Int("records", batch.Len()))
		out.Status = StatusDryRun
		out.Rows = int64(batch.Len())
		return out, nil
	}

	log.Info("loading new data", zap.Int("records", batch.Len()))
	n, err := p.loader.Append(ctx, batch)
	if err != nil {
		return out, eris.Wrapf(err, "incremental: load year %d", out.Year)
	}
	out.Status = StatusLoaded
	out.Rows = n
	return out, nil
}

// fetchAll issues one fetch per region. Results keep region order whatever
// the concurrency, and the first failure cancels the remaining calls.
func (p *Pipeline) fetchAll(ctx context.Context, year int) ([]model.Record, []RegionCount, error) {
	results := make([][]model.Record, len(p.opts.Regions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for i, region := range p.opts.Regions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			recs, err := p.fetcher.Fetch(gctx, year, p.opts.Layout, region)
			if err != nil {
				return eris.Wrapf(err, "incremental: fetch region %s", region)
			}
			results[i] = recs
			zap.L().Debug("region fetched",
				zap.String("component", "incremental"),
				zap.String("region", region),
				zap.Int("records", len(recs)),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var total int
	for _, r := range results {
		total += len(r)
	}
	records := make([]model.Record, 0, total)
	counts := make([]RegionCount, len(results))
	for i, r := range results {
		records = append(records, r...)
		counts[i] = RegionCount{Region: p.opts.Regions[i], Records: len(r)}
	}
	return records, counts, nil
}

// record finalises the run log entry. Failures are logged, never returned.
func (p *Pipeline) record(ctx context.Context, log *zap.Logger, id uuid.UUID, out *Outcome, runErr error) {
	var err error
	switch {
	case runErr != nil:
		err = p.runLog.Fail(ctx, id, runErr.Error())
	case out.Status == StatusNoNewData:
		err = p.runLog.NoNewData(ctx, id, out.Year)
	default:
		meta := map[string]any{"regions": len(out.PerRegion)}
		rows := out.Rows
		if out.Status == StatusDryRun {
			meta["dry_run"] = true
			rows = 0
		}
		err = p.runLog.Complete(ctx, id, out.Year, rows, meta)
	}
	if err != nil {
		log.Error("failed to record run outcome", zap.Error(err))
	}
}
