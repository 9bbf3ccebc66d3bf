package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/productscan/internal/config"
	"github.com/nao1215/productscan/internal/model"
	"github.com/nao1215/productscan/internal/render"
)

// Orchestrator runs sites through a pipeline one at a time.
// A site's worker pool fully drains before the next site starts.
type Orchestrator struct {
	pipeline *Pipeline
	logger   *slog.Logger

	// onSiteDone is called after each site, in site order.
	onSiteDone func(result *model.SiteResult, index, total int)
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithOrchestratorLogger sets a custom logger.
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithSiteCallback registers fn to be called after each site finished,
// successfully or not. index is zero-based.
func WithSiteCallback(fn func(result *model.SiteResult, index, total int)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.onSiteDone = fn
	}
}

// NewOrchestrator creates an orchestrator executing p for every site.
func NewOrchestrator(p *Pipeline, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{pipeline: p}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Run processes sites in order and returns one result per attempted site.
//
// A site failure is recorded in its result and the run continues with the
// next site; the failed site contributes an empty product list. Run stops
// early and returns the error only when the render engine is unavailable
// or ctx is cancelled. The returned report is never nil.
func (o *Orchestrator) Run(ctx context.Context, sites []config.Site) (*model.RunReport, error) {
	report := model.NewRunReport()
	defer func() {
		report.FinishedAt = time.Now()
	}()

	o.logger.Info("starting run", "sites", len(sites))

	for i, site := range sites {
		if err := ctx.Err(); err != nil {
			o.logger.Warn("run cancelled", "remaining_sites", len(sites)-i, "reason", err)
			return report, err
		}

		o.logger.Info("processing site",
			"site", site.URL,
			"index", i+1,
			"total", len(sites),
		)

		result := model.NewSiteResult(site.URL, site.Key)
		err := o.pipeline.Execute(ctx, site, result)
		report.Add(result)
		if o.onSiteDone != nil {
			o.onSiteDone(result, i, len(sites))
		}

		if err != nil {
			if errors.Is(err, render.ErrEngineUnavailable) {
				o.logger.Error("render engine unavailable, aborting run", "site", site.URL, "error", err)
				return report, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			o.logger.Warn("site failed", "site", site.URL, "error", err)
			continue
		}

		o.logger.Info("site completed",
			"site", site.URL,
			"products", len(result.Products),
			"visited", result.Visited,
		)
	}

	o.logger.Info("run complete",
		"sites", len(sites),
		"failed", len(report.FailedSites()),
		"products", report.TotalProducts(),
	)
	return report, nil
}
