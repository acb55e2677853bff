// Package metrics exports retryable invocation statistics to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hupe1980/retryit/action"
)

// Options configures a Collector.
type Options struct {
	// Namespace prefixes every metric name.
	Namespace string
	// Registerer receives the metrics. Nil leaves them unregistered.
	Registerer prometheus.Registerer
	// Buckets for the latency histograms.
	Buckets []float64
}

// Collector implements action.Observer on top of Prometheus metrics.
type Collector struct {
	attempts       *prometheus.CounterVec
	attemptLatency *prometheus.HistogramVec
	resolutions    *prometheus.CounterVec
	outcomes       *prometheus.CounterVec
	invocationTime *prometheus.HistogramVec
}

var _ action.Observer = (*Collector)(nil)

// NewCollector creates and registers the retryit metrics.
func NewCollector(optFns ...func(o *Options)) *Collector {
	opts := Options{
		Namespace: "retryit",
		Buckets:   prometheus.DefBuckets,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	factory := promauto.With(opts.Registerer)

	return &Collector{
		attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: opts.Namespace,
				Name:      "attempts_total",
				Help:      "Total number of operation attempts",
			},
			[]string{"action", "result"},
		),
		attemptLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: opts.Namespace,
				Name:      "attempt_duration_seconds",
				Help:      "Operation attempt latency in seconds",
				Buckets:   opts.Buckets,
			},
			[]string{"action"},
		),
		resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: opts.Namespace,
				Name:      "decisions_total",
				Help:      "Total number of resolved decisions",
			},
			[]string{"action", "resolution"},
		),
		outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: opts.Namespace,
				Name:      "invocations_total",
				Help:      "Total number of finished invocations",
			},
			[]string{"action", "outcome"},
		),
		invocationTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: opts.Namespace,
				Name:      "invocation_duration_seconds",
				Help:      "Invocation latency in seconds, decision time included",
				Buckets:   opts.Buckets,
			},
			[]string{"action"},
		),
	}
}

// ObserveAttempt implements action.Observer.
func (c *Collector) ObserveAttempt(name string, _ int, d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.attempts.WithLabelValues(name, result).Inc()
	c.attemptLatency.WithLabelValues(name).Observe(d.Seconds())
}

// ObserveResolution implements action.Observer.
func (c *Collector) ObserveResolution(name string, _ int, res action.Resolution) {
	c.resolutions.WithLabelValues(name, res.String()).Inc()
}

// ObserveOutcome implements action.Observer.
func (c *Collector) ObserveOutcome(name string, outcome action.Outcome, _ int, d time.Duration) {
	c.outcomes.WithLabelValues(name, outcome.String()).Inc()
	c.invocationTime.WithLabelValues(name).Observe(d.Seconds())
}
