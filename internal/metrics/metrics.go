// Package metrics records pipeline timings and outcomes in a private
// prometheus registry that can be exported as a node_exporter textfile.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder collects pipeline metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	stageFailures *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	validPixels   *prometheus.GaugeVec
	meanNDMI      *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ndmi_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ndmi_stage_failures_total",
			Help: "Total number of failed pipeline stages",
		}, []string{"stage"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ndmi_catalog_fallback_total",
			Help: "Total number of searches answered by the fallback window",
		}, []string{"collection"}),
		validPixels: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ndmi_valid_pixels",
			Help: "Valid index pixels of the last run per area",
		}, []string{"area"}),
		meanNDMI: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ndmi_mean",
			Help: "Mean NDMI of the last run per area",
		}, []string{"area"}),
	}
	r.registry.MustRegister(r.stageDuration, r.stageFailures, r.fallbacks, r.validPixels, r.meanNDMI)
	return r
}

func (r *Recorder) ObserveStage(stage string, d time.Duration, err error) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		r.stageFailures.WithLabelValues(stage).Inc()
	}
}

func (r *Recorder) Fallback(collection string) {
	if r == nil {
		return
	}
	r.fallbacks.WithLabelValues(collection).Inc()
}

func (r *Recorder) Summary(area string, validPixels int, mean float64) {
	if r == nil {
		return
	}
	r.validPixels.WithLabelValues(area).Set(float64(validPixels))
	r.meanNDMI.WithLabelValues(area).Set(mean)
}

// WriteTextfile writes every recorded metric to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
