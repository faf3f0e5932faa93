package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/covid-dashboard-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/covid-dashboard-etl/internal/adapter/kafka"
	"github.com/couchcryptid/covid-dashboard-etl/internal/adapter/localfile"
	"github.com/couchcryptid/covid-dashboard-etl/internal/adapter/opendata"
	"github.com/couchcryptid/covid-dashboard-etl/internal/config"
	"github.com/couchcryptid/covid-dashboard-etl/internal/domain"
	"github.com/couchcryptid/covid-dashboard-etl/internal/observability"
	"github.com/couchcryptid/covid-dashboard-etl/internal/pipeline"
	"github.com/couchcryptid/covid-dashboard-etl/internal/reference"
)

// Exit codes of a one-shot run.
const (
	exitOK    = 0
	exitError = 1
	exitStale = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return exitError
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ref, err := reference.Load(cfg.ReferencePath)
	if err != nil {
		logger.Error("failed to load reference data", "error", err)
		return exitError
	}

	var feeds pipeline.FeedSource
	if cfg.FeedDir != "" {
		feeds = localfile.NewFeedDir(cfg.FeedDir)
		logger.Info("offline mode, reading feeds from directory", "dir", cfg.FeedDir)
	} else {
		feeds = opendata.NewClient(opendata.URLs{
			TestResults:     cfg.TestResultsURL,
			Locations:       cfg.LocationsURL,
			Hospitalization: cfg.HospitalizationURL,
			Vaccination:     cfg.VaccinationURL,
		}, cfg.HTTPTimeout, metrics, logger)
	}

	stages := pipeline.Stages{
		Feeds:     feeds,
		Overrides: localfile.NewOverrideFiles(cfg.DeathsPath, cfg.ManualDataPath, logger),
		Writer:    localfile.NewArtifactWriter(cfg.OutputPath, cfg.TestsPerDayPath),
	}

	if cfg.KafkaEnabled() {
		publisher := kafkaadapter.NewPublisher(cfg, logger)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		stages.Publisher = publisher
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaReportTopic, "brokers", cfg.KafkaBrokers)
	}

	clock := clockwork.NewRealClock()
	if !cfg.ReplayAt.IsZero() {
		clock = clockwork.NewFakeClockAt(cfg.ReplayAt)
		logger.Info("replaying with a pinned clock", "at", cfg.ReplayAt)
	}

	p := pipeline.New(stages, ref, clock, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Daemon() {
		return runDaemon(ctx, cfg, p, logger)
	}
	return runOnce(ctx, cfg, p, metrics, logger)
}

func runOnce(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, metrics *observability.Metrics, logger *slog.Logger) int {
	_, err := p.RunOnce(ctx)

	if cfg.MetricsPushURL != "" {
		if perr := metrics.Push(context.WithoutCancel(ctx), cfg.MetricsPushURL); perr != nil {
			logger.Warn("metrics push failed", "error", perr)
		}
	}

	var stale *domain.StaleSourceError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &stale):
		return exitStale
	default:
		return exitError
	}
}

func runDaemon(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, logger *slog.Logger) int {
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	code := exitOK
	if err := p.RunScheduled(ctx, cfg.Schedule); err != nil {
		logger.Error("scheduler error", "error", err)
		code = exitError
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return code
}
