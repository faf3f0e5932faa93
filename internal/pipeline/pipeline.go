package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/covid-dashboard-etl/internal/domain"
	"github.com/couchcryptid/covid-dashboard-etl/internal/observability"
	"github.com/couchcryptid/covid-dashboard-etl/internal/reference"
)

// FeedSource retrieves the four upstream feeds and the Last-Modified time of
// the locations feed.
type FeedSource interface {
	FetchFeeds(ctx context.Context) (domain.Feeds, error)
	LocationsLastModified(ctx context.Context) (time.Time, error)
}

// OverrideSource reads the curated local corrections.
type OverrideSource interface {
	LoadOverrides(ctx context.Context) (domain.Overrides, error)
}

// ArtifactWriter persists the encoded documents of a run.
type ArtifactWriter interface {
	WriteArtifacts(ctx context.Context, a domain.Artifacts) error
}

// Publisher forwards the encoded report to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, a domain.Artifacts) error
}

// Stages are the I/O adapters of a run. Publisher is optional.
type Stages struct {
	Feeds     FeedSource
	Overrides OverrideSource
	Writer    ArtifactWriter
	Publisher Publisher
}

// Pipeline orchestrates fetch, freshness gate, build, write and publish.
// A run either writes a complete report or nothing.
type Pipeline struct {
	stages  Stages
	builder *Builder
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
	latest  atomic.Pointer[domain.Artifacts]
}

// New creates a Pipeline with the given stages and observability.
func New(stages Stages, ref reference.Data, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		stages:  stages,
		builder: NewBuilder(ref, logger, metrics),
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once a report has been written, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no report has been built yet")
	}
	return nil
}

// LatestReport returns the most recently written report.
func (p *Pipeline) LatestReport() (domain.Artifacts, bool) {
	a := p.latest.Load()
	if a == nil {
		return domain.Artifacts{}, false
	}
	return *a, true
}

// RunOnce executes one complete run. A stale source aborts the run with a
// *domain.StaleSourceError and leaves the previous output untouched.
func (p *Pipeline) RunOnce(ctx context.Context) (domain.Artifacts, error) {
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)
	start := p.clock.Now()

	p.metrics.RunInProgress.Set(1)
	defer p.metrics.RunInProgress.Set(0)

	logger.Info("run started")
	a, err := p.run(ctx, runID, start, logger)
	p.metrics.RunDuration.Observe(p.clock.Since(start).Seconds())

	var stale *domain.StaleSourceError
	switch {
	case err == nil:
		p.metrics.RunsTotal.WithLabelValues(observability.OutcomeSuccess).Inc()
		logger.Info("run finished", "duration", p.clock.Since(start), "bytes", len(a.Report))
	case errors.As(err, &stale):
		p.metrics.RunsTotal.WithLabelValues(observability.OutcomeStale).Inc()
		p.metrics.StaleSources.WithLabelValues(stale.Feed, stale.Check).Inc()
		logger.Warn("source not updated yet, keeping previous report",
			"feed", stale.Feed, "check", stale.Check,
			"reported", stale.Reported, "threshold", stale.Threshold)
	default:
		p.metrics.RunsTotal.WithLabelValues(observability.OutcomeFailed).Inc()
		logger.Error("run failed", "error", err)
	}
	return a, err
}

func (p *Pipeline) run(ctx context.Context, runID string, now time.Time, logger *slog.Logger) (domain.Artifacts, error) {
	settings, err := p.builder.Settings(now)
	if err != nil {
		return domain.Artifacts{}, err
	}

	feeds, err := p.stages.Feeds.FetchFeeds(ctx)
	if err != nil {
		return domain.Artifacts{}, fmt.Errorf("fetch feeds: %w", err)
	}
	modified, err := p.stages.Feeds.LocationsLastModified(ctx)
	if err != nil {
		return domain.Artifacts{}, fmt.Errorf("locations last modified: %w", err)
	}
	if err := domain.CheckFreshness(domain.FreshnessInput{
		Now:                   now,
		Location:              settings.Location,
		LocationsLastModified: modified,
	}, feeds); err != nil {
		return domain.Artifacts{}, err
	}

	overrides, err := p.stages.Overrides.LoadOverrides(ctx)
	if err != nil {
		return domain.Artifacts{}, fmt.Errorf("load overrides: %w", err)
	}

	report, err := p.builder.Build(settings, feeds, overrides, logger)
	if err != nil {
		return domain.Artifacts{}, fmt.Errorf("build report: %w", err)
	}

	a, err := domain.Encode(runID, report)
	if err != nil {
		return domain.Artifacts{}, err
	}
	if err := p.stages.Writer.WriteArtifacts(ctx, a); err != nil {
		return domain.Artifacts{}, fmt.Errorf("write artifacts: %w", err)
	}

	p.latest.Store(&a)
	p.ready.Store(true)
	p.metrics.LastSuccessTS.Set(float64(p.clock.Now().Unix()))
	p.metrics.ReportBytes.Set(float64(len(a.Report)))

	if p.stages.Publisher != nil {
		if err := p.stages.Publisher.Publish(ctx, a); err != nil {
			p.metrics.PublishErrors.Inc()
			logger.Warn("publish failed, report file is still written", "error", err)
		}
	}
	return a, nil
}
