// Package pipeline runs the resolve → load → analyze → filter sequence shared
// by every command.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/olehluchkiv/diverify/internal/analyzer"
	"github.com/olehluchkiv/diverify/internal/container"
	"github.com/olehluchkiv/diverify/internal/manifest"
	"github.com/olehluchkiv/diverify/internal/report"
	"github.com/olehluchkiv/diverify/internal/resolver"
	"github.com/olehluchkiv/diverify/internal/source"
)

// Options holds parameters for one analysis run.
type Options struct {
	Input  string
	Filter analyzer.FilterOptions
}

// Run is the outcome of one analysis.
type Run struct {
	ID     string
	Input  string
	Source resolver.Input
	Full   *analyzer.Result // unfiltered
	Result *analyzer.Result // restricted by Options.Filter
}

// Report flattens the filtered result.
func (r *Run) Report() report.Report {
	return report.New(r.Result, report.Meta{
		RunID: r.ID,
		Input: r.Input,
		Kind:  r.Source.Kind.String(),
	})
}

// Execute resolves opts.Input, registers everything it declares into a fresh
// container and analyzes a snapshot of it. The returned cleanup must be called
// once the run is no longer needed.
func Execute(ctx context.Context, opts Options, logger *slog.Logger) (*Run, func(), error) {
	run := &Run{ID: uuid.NewString(), Input: opts.Input}
	logger = logger.With("component", "pipeline", "run_id", run.ID)

	// Step 1: Resolve input to a local manifest or module.
	logger.Info("resolving input", "input", opts.Input)
	in, cleanup, err := resolver.Resolve(ctx, opts.Input, logger)
	if err != nil {
		return nil, func() {}, fmt.Errorf("resolve: %w", err)
	}
	run.Source = in

	// Step 2: Register components.
	c := container.New(logger)
	if err := load(ctx, in, c, logger); err != nil {
		cleanup()
		return nil, func() {}, err
	}

	// Step 3: Analyze a frozen snapshot.
	run.Full = analyzer.Analyze(c.Snapshot(), logger.With("component", "analyzer"))

	// Step 4: Filter results.
	run.Result = analyzer.Filter(run.Full, opts.Filter)

	logger.Info("run complete",
		"kind", in.Kind.String(),
		"services", len(run.Result.Services),
		"invalid", len(run.Result.Invalid()))
	return run, cleanup, nil
}

func load(ctx context.Context, in resolver.Input, c *container.Container, logger *slog.Logger) error {
	switch in.Kind {
	case resolver.KindManifest:
		m, err := manifest.Load(in.Path)
		if err != nil {
			return fmt.Errorf("load manifest: %w", err)
		}
		if err := m.Apply(c); err != nil {
			return fmt.Errorf("apply manifest %s: %w", in.Path, err)
		}
		logger.Info("manifest applied", "path", in.Path, "components", c.Len())
	default:
		stats, err := source.Load(ctx, in.Path, c, logger.With("component", "source"))
		if err != nil {
			return fmt.Errorf("load source: %w", err)
		}
		logger.Info("source loaded",
			"packages", stats.Packages,
			"components", stats.Components,
			"factories", stats.Factories,
			"delegates", stats.Delegates)
	}
	return nil
}
