package pipeline

import (
	"log/slog"
	"time"

	"github.com/couchcryptid/covid-dashboard-etl/internal/domain"
	"github.com/couchcryptid/covid-dashboard-etl/internal/observability"
	"github.com/couchcryptid/covid-dashboard-etl/internal/reference"
)

// Builder runs the domain engine against injected reference data and
// reports the recoverable problems it found.
type Builder struct {
	ref     reference.Data
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewBuilder creates a Builder.
func NewBuilder(ref reference.Data, logger *slog.Logger, metrics *observability.Metrics) *Builder {
	return &Builder{ref: ref, logger: logger, metrics: metrics}
}

// Settings resolves the reference data for a run at now.
func (b *Builder) Settings(now time.Time) (domain.Settings, error) {
	return b.ref.Settings(now)
}

// Build computes the report. Dropped county codes and clamped active days
// are logged as warnings and counted; they never fail the build. A nil
// logger falls back to the builder's own.
func (b *Builder) Build(s domain.Settings, feeds domain.Feeds, overrides domain.Overrides, logger *slog.Logger) (domain.Report, error) {
	if logger == nil {
		logger = b.logger
	}
	report, diag, err := domain.Build(s, feeds, overrides)
	if err != nil {
		return domain.Report{}, err
	}

	for code, n := range diag.DroppedCounties {
		logger.Warn("unknown county code dropped", "county", code, "records", n)
		b.metrics.DroppedCodes.Add(float64(n))
	}
	for _, c := range diag.ActiveClamps {
		logger.Warn("negative active cases clamped to zero", "date", domain.FormatDate(c.Date), "raw", c.Raw)
	}
	b.metrics.ActiveClamped.Add(float64(len(diag.ActiveClamps)))

	logger.Info("report built",
		"updated_on", report.UpdatedOn,
		"days", len(report.Dates2),
		"test_results", diag.Records[domain.FeedTestResults],
		"locations", diag.Records[domain.FeedLocations],
		"hospitalizations", diag.Records[domain.FeedHospitalization],
		"vaccinations", diag.Records[domain.FeedVaccination],
	)
	return report, nil
}
