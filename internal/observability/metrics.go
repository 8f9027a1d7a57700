// Package observability holds the Prometheus metrics for a conversion run.
// A batch run has no scrape endpoint, so metrics are exported through the
// node_exporter textfile collector format.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ctd"

// Metrics holds the counters and gauges for one conversion run.
type Metrics struct {
	Registry *prometheus.Registry

	FilesProcessed *prometheus.CounterVec // labels: outcome={parsed,warning,error}
	Records        prometheus.Counter
	RowsDropped    *prometheus.CounterVec // labels: reason={pressure,malformed}
	ArtifactBytes  prometheus.Gauge
	RowGroups      prometheus.Gauge
	RunDuration    prometheus.Gauge
	LastSuccess    prometheus.Gauge
	RunSucceeded   prometheus.Gauge
}

// NewMetrics creates metrics registered on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		FilesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Station files attempted, by outcome.",
		}, []string{"outcome"}),
		Records: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Observation records admitted into the corpus.",
		}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Data rows not admitted, by reason.",
		}, []string{"reason"}),
		ArtifactBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "artifact_bytes",
			Help:      "Size of the published Parquet artifact.",
		}),
		RowGroups: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "artifact_row_groups",
			Help:      "Row groups in the published Parquet artifact.",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last conversion run.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful conversion run.",
		}),
		RunSucceeded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_succeeded",
			Help:      "1 if the last run published an artifact, 0 otherwise.",
		}),
	}

	m.Registry.MustRegister(
		m.FilesProcessed,
		m.Records,
		m.RowsDropped,
		m.ArtifactBytes,
		m.RowGroups,
		m.RunDuration,
		m.LastSuccess,
		m.RunSucceeded,
	)
	return m
}

// WriteTextfile writes all metrics to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
