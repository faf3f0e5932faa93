package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "covid_etl"

// Run outcomes used as the "outcome" label of RunsTotal.
const (
	OutcomeSuccess = "success"
	OutcomeStale   = "stale"
	OutcomeFailed  = "failed"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the report builder.
type Metrics struct {
	RunsTotal      *prometheus.CounterVec // labels: outcome={success,stale,failed}
	RunDuration    prometheus.Histogram
	RunInProgress  prometheus.Gauge
	LastSuccessTS  prometheus.Gauge
	StaleSources   *prometheus.CounterVec // labels: feed, check
	PublishErrors  prometheus.Counter
	ReportBytes    prometheus.Gauge
	DroppedCodes   prometheus.Counter
	ActiveClamped  prometheus.Counter
	FeedRecords    *prometheus.GaugeVec     // labels: feed
	FeedFetchTotal *prometheus.CounterVec   // labels: feed, outcome={success,error}
	FeedDuration   *prometheus.HistogramVec // labels: feed
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Report builds by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete fetch-build-write run.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		RunInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_in_progress",
			Help:      "1 while a run is executing, 0 otherwise.",
		}),
		LastSuccessTS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successfully written report.",
		}),
		StaleSources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_sources_total",
			Help:      "Runs aborted by the freshness gate, by feed and check.",
		}, []string{"feed", "check"}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed report publications to Kafka.",
		}),
		ReportBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "report_bytes",
			Help:      "Size of the last written report.",
		}),
		DroppedCodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "county_codes_dropped_total",
			Help:      "Records whose county code is not in the reference table.",
		}),
		ActiveClamped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "active_clamped_days_total",
			Help:      "Days on which active cases came out negative and were clamped to zero.",
		}),
		FeedRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_records",
			Help:      "Records in the last fetched copy of each feed.",
		}, []string{"feed"}),
		FeedFetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetch_total",
			Help:      "Feed downloads by feed and outcome.",
		}, []string{"feed", "outcome"}),
		FeedDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_fetch_duration_seconds",
			Help:      "Feed download and decode duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"feed"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RunsTotal,
		m.RunDuration,
		m.RunInProgress,
		m.LastSuccessTS,
		m.StaleSources,
		m.PublishErrors,
		m.ReportBytes,
		m.DroppedCodes,
		m.ActiveClamped,
		m.FeedRecords,
		m.FeedFetchTotal,
		m.FeedDuration,
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
