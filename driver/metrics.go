package driver

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/CaliLuke/go-modelservice/gomodel"
)

// Metrics records query counts and latencies. It implements
// gomodel.QueryObserver.
type Metrics struct {
	queries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the query collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modelservice",
			Name:      "queries_total",
			Help:      "Store round trips by statement kind and outcome.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "modelservice",
			Name:      "query_duration_seconds",
			Help:      "Store round trip latency by statement kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	for _, c := range []prometheus.Collector{m.queries, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

// ObserveQuery implements gomodel.QueryObserver.
func (m *Metrics) ObserveQuery(_ context.Context, ev gomodel.QueryEvent) {
	status := "ok"
	if ev.Err != nil {
		status = "error"
	}
	m.queries.WithLabelValues(ev.Operation, status).Inc()
	m.duration.WithLabelValues(ev.Operation).Observe(ev.Duration.Seconds())
}
