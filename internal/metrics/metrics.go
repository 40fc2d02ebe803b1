// Package metrics exposes Prometheus metrics about snapshot runs. A nil
// *Collector is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hcloud_snap_rotate"

// Collector records snapshot and run metrics.
type Collector struct {
	registry *prometheus.Registry

	created   *prometheus.CounterVec
	renamed   *prometheus.CounterVec
	deleted   *prometheus.CounterVec
	protected *prometheus.CounterVec
	failures  *prometheus.CounterVec
	kept      *prometheus.GaugeVec

	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	lastRun     prometheus.Gauge
}

// NewCollector registers all metrics with registry. A nil registry gets a
// fresh one.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_created_total",
			Help:      "Snapshots created.",
		}, []string{"server"}),
		renamed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_renamed_total",
			Help:      "Snapshots renamed after moving to another period.",
		}, []string{"server"}),
		deleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_deleted_total",
			Help:      "Snapshots deleted by rotation.",
		}, []string{"server"}),
		protected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_protected_skipped_total",
			Help:      "Delete-protected snapshots left alone although no period claimed them.",
		}, []string{"server"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_failures_total",
			Help:      "Failed phases per server.",
		}, []string{"server", "phase"}),
		kept: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshots_kept",
			Help:      "Snapshots kept by the last rotation, per period type.",
		}, []string{"server", "period"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed runs by result.",
		}, []string{"result"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of complete runs.",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}

	registry.MustRegister(c.created, c.renamed, c.deleted, c.protected, c.failures, c.kept,
		c.runs, c.runDuration, c.lastRun)

	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) SnapshotCreated(server string) {
	if c == nil {
		return
	}
	c.created.WithLabelValues(server).Inc()
}

func (c *Collector) SnapshotRenamed(server string) {
	if c == nil {
		return
	}
	c.renamed.WithLabelValues(server).Inc()
}

func (c *Collector) SnapshotDeleted(server string) {
	if c == nil {
		return
	}
	c.deleted.WithLabelValues(server).Inc()
}

func (c *Collector) ProtectedSkipped(server string) {
	if c == nil {
		return
	}
	c.protected.WithLabelValues(server).Inc()
}

func (c *Collector) PhaseFailed(server, phase string) {
	if c == nil {
		return
	}
	c.failures.WithLabelValues(server, phase).Inc()
}

// Kept replaces the per-period gauges of server with counts.
func (c *Collector) Kept(server string, counts map[string]int) {
	if c == nil {
		return
	}
	c.kept.DeletePartialMatch(prometheus.Labels{"server": server})
	for p, n := range counts {
		c.kept.WithLabelValues(server, p).Set(float64(n))
	}
}

// RunFinished records a complete run over all servers.
func (c *Collector) RunFinished(d time.Duration, failed bool) {
	if c == nil {
		return
	}
	result := "success"
	if failed {
		result = "failure"
	}
	c.runs.WithLabelValues(result).Inc()
	c.runDuration.Observe(d.Seconds())
	c.lastRun.SetToCurrentTime()
}
