// Package metrics holds Tally's Prometheus collectors. Each Registry owns a
// private prometheus.Registry so tests and multiple runtimes do not collide
// on the global default registerer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes used as the "outcome" label.
const (
	OutcomeAccepted      = "accepted"
	OutcomeValueTooLarge = "value_too_large"
	OutcomeOverflow      = "overflow"
	OutcomeError         = "error"
)

// Registry bundles the collectors exported by a Tally process.
type Registry struct {
	reg *prometheus.Registry

	submissions *prometheus.CounterVec
	total       prometheus.Gauge
	initialized prometheus.Gauge

	storageRead   prometheus.Histogram
	storageWrite  prometheus.Histogram
	storageCommit prometheus.Histogram
	commitBytes   prometheus.Counter
}

// New creates and registers all collectors.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tally",
			Name:      "submissions_total",
			Help:      "Submissions handled by the accumulator, by outcome.",
		}, []string{"outcome"}),
		total: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tally",
			Name:      "current_total",
			Help:      "Last committed running total.",
		}),
		initialized: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tally",
			Name:      "total_initialized",
			Help:      "1 once the total has been set.",
		}),
		storageRead:   newLatency("storage_read_seconds", "Pebble point read latency."),
		storageWrite:  newLatency("storage_write_seconds", "Pebble point write latency."),
		storageCommit: newLatency("storage_commit_seconds", "Pebble batch commit latency."),
		commitBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tally",
			Name:      "storage_commit_bytes_total",
			Help:      "Bytes committed through Pebble batches.",
		}),
	}
	r.reg.MustRegister(
		r.submissions, r.total, r.initialized,
		r.storageRead, r.storageWrite, r.storageCommit, r.commitBytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func newLatency(name, help string) prometheus.Histogram {
	return prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tally",
		Name:      name,
		Help:      help,
		Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 10),
	})
}

// ObserveSubmission counts one submission outcome.
func (r *Registry) ObserveSubmission(outcome string) {
	r.submissions.WithLabelValues(outcome).Inc()
}

// SetTotal records the committed total.
func (r *Registry) SetTotal(total uint32) {
	r.total.Set(float64(total))
	r.initialized.Set(1)
}

// ObserveRead implements pebblestore.MetricsHook.
func (r *Registry) ObserveRead(elapsed time.Duration, _ int) {
	r.storageRead.Observe(elapsed.Seconds())
}

// ObserveWrite implements pebblestore.MetricsHook.
func (r *Registry) ObserveWrite(elapsed time.Duration, _ int) {
	r.storageWrite.Observe(elapsed.Seconds())
}

// ObserveBatchCommit implements pebblestore.MetricsHook.
func (r *Registry) ObserveBatchCommit(elapsed time.Duration, _ int, bytes int) {
	r.storageCommit.Observe(elapsed.Seconds())
	r.commitBytes.Add(float64(bytes))
}

// Gatherer exposes the underlying registry for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
