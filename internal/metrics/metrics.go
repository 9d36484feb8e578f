// Package metrics exports run results as Prometheus metrics.
//
// Runs are short-lived, so nothing is served over HTTP. A Recorder
// collects one or more results into its own registry and writes them in
// the text exposition format, ready for node_exporter's textfile
// collector.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/postbench/internal/harness"
)

const namespace = "postbench"

// Recorder turns harness results into metrics.
type Recorder struct {
	reg *prometheus.Registry

	hashes       *prometheus.CounterVec
	rate         *prometheus.GaugeVec
	callDuration *prometheus.HistogramVec
	comparisons  *prometheus.CounterVec
	errors       *prometheus.CounterVec
	checks       *prometheus.CounterVec
	outcome      *prometheus.GaugeVec
	runDuration  *prometheus.GaugeVec
}

// New creates a Recorder with an empty registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		hashes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hashes_total",
			Help:      "Labels computed, by provider and role.",
		}, []string{"provider", "class", "role"}),
		rate: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hashes_per_second",
			Help:      "Throughput of the last call, by provider and label size.",
		}, []string{"provider", "class", "label_size"}),
		callDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Duration of labeling calls.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"provider", "class"}),
		comparisons: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comparisons_total",
			Help:      "Byte-exact comparisons, by provider and result.",
		}, []string{"provider", "result"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Failed labeling calls, by mode.",
		}, []string{"mode"}),
		checks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Suite checks, by mode and result.",
		}, []string{"mode", "result"}),
		outcome: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_outcome",
			Help:      "Set to 1 for the outcome of the last run of each mode.",
		}, []string{"mode", "outcome"}),
		runDuration: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run of each mode.",
		}, []string{"mode"}),
	}
}

// Registry returns the registry holding the recorded metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// Observe adds res to the metrics.
func (r *Recorder) Observe(res *harness.Result) {
	for _, m := range res.Measurements {
		class := m.Provider.Class.String()
		r.hashes.WithLabelValues(m.Provider.Model, class, string(m.Role)).Add(float64(m.Hashes))
		r.rate.WithLabelValues(m.Provider.Model, class, strconv.FormatUint(uint64(m.LabelSize), 10)).Set(float64(m.HashesPerSec))
		r.callDuration.WithLabelValues(m.Provider.Model, class).Observe(m.Elapsed.Seconds())
	}
	for _, c := range res.Comparisons {
		result := "match"
		if !c.Match() {
			result = "mismatch"
		}
		r.comparisons.WithLabelValues(c.Provider.Model, result).Inc()
	}
	for _, c := range res.Checks {
		result := "pass"
		switch {
		case c.Skipped:
			result = "skipped"
		case !c.Pass:
			result = "fail"
		}
		r.checks.WithLabelValues(res.Mode, result).Inc()
	}
	if n := len(res.Errors); n > 0 {
		r.errors.WithLabelValues(res.Mode).Add(float64(n))
	}

	r.outcome.DeletePartialMatch(prometheus.Labels{"mode": res.Mode})
	r.outcome.WithLabelValues(res.Mode, string(res.Outcome)).Set(1)
	r.runDuration.WithLabelValues(res.Mode).Set(res.Elapsed.Seconds())
}

// WriteFile writes the metrics to path in the text exposition format. The
// file is replaced atomically.
func (r *Recorder) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
