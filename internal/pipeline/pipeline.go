package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/prlens/prlens/internal/analyzer"
	"github.com/prlens/prlens/internal/collector"
	"github.com/prlens/prlens/internal/extractor"
	"github.com/prlens/prlens/internal/progress"
	"github.com/prlens/prlens/internal/report"
	"github.com/prlens/prlens/internal/source"
)

// DefaultConcurrency bounds parallel per-merge-request analysis.
const DefaultConcurrency = 4

// Options describe one analysis run.
type Options struct {
	Repo   source.Repo
	Author string
	Start  time.Time
	End    time.Time

	// Concurrency bounds parallel per-request analysis; <= 0 selects
	// the default.
	Concurrency int

	// OnEvent receives progress events; may be nil.
	OnEvent progress.Func
}

// Pipeline wires collector, extractor, analyzer and aggregator into one
// sequential workflow. It holds no state across runs.
type Pipeline struct {
	collector *collector.Collector
	extractor *extractor.Extractor
	analyzer  *analyzer.Analyzer
}

// New assembles a pipeline from its stages.
func New(c *collector.Collector, e *extractor.Extractor, a *analyzer.Analyzer) *Pipeline {
	return &Pipeline{collector: c, extractor: e, analyzer: a}
}

// Run executes collect, extract, analyze and aggregate for one date
// window. Provider failures abort the run; per-request analysis
// failures degrade only their own entry. Aggregation starts only after
// every request reached a terminal state. When the run is aborted
// externally, a partial report over the completed assessments is
// returned alongside the error.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*report.Report, error) {
	progress.Emit(opts.OnEvent, progress.StageCollect, 0,
		"collecting merge requests by %s in %s", opts.Author, opts.Repo)

	mrs, err := p.collector.Collect(ctx, opts.Repo, opts.Author, opts.Start, opts.End)
	if err != nil {
		return nil, fmt.Errorf("collection failed: %w", err)
	}
	progress.Emit(opts.OnEvent, progress.StageCollect, 0, "fetched %d merge requests", len(mrs))

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	// Per-index result slots keep the breakdown in collection order
	// regardless of worker scheduling.
	assessments := make([]analyzer.Assessment, len(mrs))
	completed := make([]bool, len(mrs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range mrs {
		i := i
		g.Go(func() error {
			mr := mrs[i]
			progress.Emit(opts.OnEvent, progress.StageExtract, mr.Number, "extracting #%d", mr.Number)

			cs, err := p.extractor.Extract(gctx, opts.Repo, mr)
			if err != nil {
				// Extraction talks to the provider; its failures are
				// run-fatal like any other source error.
				return err
			}
			mrs[i].ChangedFiles = cs.Paths()

			progress.Emit(opts.OnEvent, progress.StageAnalyze, mr.Number, "analyzing #%d", mr.Number)
			a, err := p.analyzer.Analyze(gctx, mrs[i], cs)
			if err != nil {
				return err
			}
			if a.Degraded {
				progress.Emit(opts.OnEvent, progress.StageAnalyze, mr.Number,
					"analysis failed for #%d after exhausting retries", mr.Number)
			}
			assessments[i] = a
			completed[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			// An external abort keeps completed assessments usable:
			// requests that never reached a terminal state are dropped
			// and a partial report accompanies the error.
			return partial(mrs, assessments, completed, meta(opts)), fmt.Errorf("run aborted: %w", err)
		}
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	progress.Emit(opts.OnEvent, progress.StageAggregate, 0, "aggregating %d assessments", len(mrs))
	return report.Aggregate(mrs, assessments, meta(opts)), nil
}

func meta(opts Options) report.Meta {
	return report.Meta{
		Repository:  opts.Repo.String(),
		Author:      opts.Author,
		WindowStart: opts.Start,
		WindowEnd:   opts.End,
	}
}

// partial aggregates only the requests whose analysis reached a terminal
// state before the abort, preserving their order.
func partial(mrs []source.MergeRequest, assessments []analyzer.Assessment, completed []bool, m report.Meta) *report.Report {
	doneMRs := make([]source.MergeRequest, 0, len(mrs))
	doneAssessments := make([]analyzer.Assessment, 0, len(mrs))
	for i := range mrs {
		if !completed[i] {
			continue
		}
		doneMRs = append(doneMRs, mrs[i])
		doneAssessments = append(doneAssessments, assessments[i])
	}
	return report.Aggregate(doneMRs, doneAssessments, m)
}
