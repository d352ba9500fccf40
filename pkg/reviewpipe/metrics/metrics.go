// Package metrics exposes pipeline counters on a private Prometheus registry.
//
// Runs are short-lived batch jobs, so nothing is served over HTTP; the CLI
// dumps the registry to a node-exporter textfile after each run. Every method
// is safe to call on a nil *Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "reviewpipe"

// Metrics holds all pipeline collectors.
type Metrics struct {
	registry *prometheus.Registry

	rowsIngested   prometheus.Counter
	rowsDuplicate  prometheus.Counter
	rowsInvalid    prometheus.Counter
	registered     prometheus.Counter
	completed      prometheus.Counter
	classified     *prometheus.CounterVec
	runFailures    *prometheus.CounterVec
	lastRunSuccess *prometheus.GaugeVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rowsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ingest", Name: "rows_inserted_total",
			Help: "Raw rows written to the store.",
		}),
		rowsDuplicate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ingest", Name: "rows_duplicate_total",
			Help: "Valid raw rows dropped because their id already existed.",
		}),
		rowsInvalid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ingest", Name: "rows_invalid_total",
			Help: "Input rows rejected by validation.",
		}),
		registered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ledger", Name: "registered_total",
			Help: "Ledger entries opened.",
		}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ledger", Name: "completed_total",
			Help: "Ledger entries marked completed.",
		}),
		classified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "process", Name: "classified_total",
			Help: "Classified records written, by category.",
		}, []string{"category"}),
		runFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "run_failures_total",
			Help: "Aborted runs, by stage.",
		}, []string{"stage"}),
		lastRunSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_success_timestamp_seconds",
			Help: "Unix time of the last successful run, by stage.",
		}, []string{"stage"}),
	}

	m.registry.MustRegister(
		m.rowsIngested, m.rowsDuplicate, m.rowsInvalid,
		m.registered, m.completed, m.classified,
		m.runFailures, m.lastRunSuccess,
	)
	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// IngestBatch records the outcome of one raw insert batch.
func (m *Metrics) IngestBatch(inserted, duplicates int) {
	if m == nil {
		return
	}
	m.rowsIngested.Add(float64(inserted))
	m.rowsDuplicate.Add(float64(duplicates))
}

// Invalid records rejected input rows.
func (m *Metrics) Invalid(n int) {
	if m == nil {
		return
	}
	m.rowsInvalid.Add(float64(n))
}

// Registered records newly opened ledger entries.
func (m *Metrics) Registered(n int) {
	if m == nil {
		return
	}
	m.registered.Add(float64(n))
}

// Completed records ledger completions.
func (m *Metrics) Completed(n int) {
	if m == nil {
		return
	}
	m.completed.Add(float64(n))
}

// Classified records one written classified record.
func (m *Metrics) Classified(category string) {
	if m == nil {
		return
	}
	m.classified.WithLabelValues(category).Inc()
}

// RunFailed records an aborted run.
func (m *Metrics) RunFailed(stage string) {
	if m == nil {
		return
	}
	m.runFailures.WithLabelValues(stage).Inc()
}

// RunSucceeded records the completion time of a run.
func (m *Metrics) RunSucceeded(stage string, at time.Time) {
	if m == nil {
		return
	}
	m.lastRunSuccess.WithLabelValues(stage).Set(float64(at.Unix()))
}

// WriteTextfile writes every metric in text exposition format to path.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
