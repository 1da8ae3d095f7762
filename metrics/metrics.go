// Package metrics records one generation run in Prometheus form.
//
// A CLI run has no scrape endpoint, so the registry is exported once at the
// end of the run in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder owns a private registry so repeated runs in one process never collide.
type Recorder struct {
	registry        *prometheus.Registry
	generateLatency prometheus.Histogram
	writeLatency    prometheus.Histogram
	rowsGenerated   prometheus.Counter
	highValueRows   prometheus.Gauge
	outputBytes     prometheus.Gauge
}

// NewRecorder registers the featgen metrics with constant labels applied to all of them.
func NewRecorder(labels prometheus.Labels) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		generateLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "featgen_generate_latency_seconds",
			Help:        "Feature table generation latency distribution",
			ConstLabels: labels,
		}),
		writeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "featgen_write_latency_seconds",
			Help:        "Feature table write latency distribution",
			ConstLabels: labels,
		}),
		rowsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "featgen_rows_generated_total",
			Help:        "Number of feature rows generated",
			ConstLabels: labels,
		}),
		highValueRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "featgen_high_value_rows",
			Help:        "Number of rows flagged is_high_value in the last table",
			ConstLabels: labels,
		}),
		outputBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "featgen_output_bytes",
			Help:        "Size in bytes of the last written file",
			ConstLabels: labels,
		}),
	}
	r.registry.MustRegister(r.generateLatency, r.writeLatency, r.rowsGenerated, r.highValueRows, r.outputBytes)
	return r
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) ObserveGenerate(d time.Duration, rows int) {
	r.generateLatency.Observe(d.Seconds())
	r.rowsGenerated.Add(float64(rows))
}

func (r *Recorder) ObserveWrite(d time.Duration, bytes int64) {
	r.writeLatency.Observe(d.Seconds())
	r.outputBytes.Set(float64(bytes))
}

func (r *Recorder) SetHighValueRows(n int) {
	r.highValueRows.Set(float64(n))
}

// WriteTextfile writes all metrics to path, creating its directory if needed.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics file %q: %w", path, err)
	}
	return nil
}
