// Package instrument records the duration and outcome of component calls.
//
// Every public step of a pipeline run goes through Recorder.Observe (or the
// generic Measure), which logs the step and updates Prometheus collectors on a
// private registry. Batch runs have no scrape endpoint, so the registry can be
// written to a node_exporter textfile after the run.
package instrument

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Recorder observes operations. A nil *Recorder runs operations unobserved.
type Recorder struct {
	registry    *prometheus.Registry
	duration    *prometheus.HistogramVec
	outcomes    *prometheus.CounterVec
	lastSuccess prometheus.Gauge
	logger      zerolog.Logger
	now         func() time.Time
}

// New builds a Recorder with its own registry.
func New(logger zerolog.Logger) *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "citydigest_operation_duration_seconds",
				Help:    "Duration of pipeline operations, labeled by operation.",
				Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 300},
			},
			[]string{"operation"},
		),
		outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "citydigest_operations_total",
				Help: "Pipeline operations, labeled by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		lastSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "citydigest_last_success_timestamp_seconds",
				Help: "Unix time of the last fully successful run.",
			},
		),
		logger: logger.With().Str("component", "instrument").Logger(),
		now:    time.Now,
	}
}

// Observe runs fn as operation op, recording how long it took and whether it
// failed. fn's error is returned unchanged.
func (r *Recorder) Observe(op string, fn func() error) error {
	if r == nil {
		return fn()
	}

	r.logger.Debug().Str("operation", op).Msg("operation started")
	start := r.now()
	err := fn()
	elapsed := r.now().Sub(start)

	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeFailure
	}
	r.duration.WithLabelValues(op).Observe(elapsed.Seconds())
	r.outcomes.WithLabelValues(op, outcome).Inc()

	if err != nil {
		r.logger.Error().Err(err).Str("operation", op).Dur("duration", elapsed).Msg("operation failed")
	} else {
		r.logger.Info().Str("operation", op).Dur("duration", elapsed).Msg("operation finished")
	}
	return err
}

// Measure is Observe for operations that return a value.
func Measure[T any](r *Recorder, op string, fn func() (T, error)) (T, error) {
	var out T
	err := r.Observe(op, func() error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}

// MarkSuccess stamps the last successful run time.
func (r *Recorder) MarkSuccess() {
	if r == nil {
		return
	}
	r.lastSuccess.Set(float64(r.now().Unix()))
}

// Registry exposes the collectors, e.g. for tests or an HTTP handler.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile atomically writes the current metrics in text exposition
// format to path.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
