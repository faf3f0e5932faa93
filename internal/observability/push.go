package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushJob is the Pushgateway job name of one-shot runs.
const PushJob = "covid_dashboard_etl"

// Push sends the current metric values to a Pushgateway. One-shot runs exit
// before any scrape, so this is their only way to report.
func (m *Metrics) Push(ctx context.Context, url string) error {
	p := push.New(url, PushJob)
	for _, c := range m.collectors() {
		p = p.Collector(c)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

// Registry returns a registry holding only m, for serving test metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(m.collectors()...)
	return reg
}
