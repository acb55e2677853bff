// Package retryit provides a high-level façade over the invocation engine,
// metrics and automated deciders. Most applications interact with this
// package by:
//  1. Creating a Retryit via New() (optionally with a Prometheus registerer)
//  2. Building retryable actions around their operations (NewRetryable)
//  3. Loading values as state streams (Load) or running them to completion
//     (Run), resolving decisions by hand or with AutoRetry
//
// The façade delegates tracking to engine.Engine while keeping setup concise.
// All defaults are safe for local development and testing.
package retryit

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/retryit/action"
	"github.com/hupe1980/retryit/decider"
	"github.com/hupe1980/retryit/engine"
	"github.com/hupe1980/retryit/loading"
	"github.com/hupe1980/retryit/logging"
	"github.com/hupe1980/retryit/metrics"
)

// Options configures the Retryit instance.
type Options struct {
	// Engine configuration (concurrency limit, buffers, strictness)
	EngineConfig engine.Config

	// Registerer receives the retryit metrics. Nil disables metrics.
	Registerer prometheus.Registerer

	// MetricsNamespace prefixes metric names (defaults to "retryit").
	MetricsNamespace string

	// Callbacks run around every invocation.
	Callbacks *engine.CallbackManager

	// Policy is used by AutoRetry.
	Policy decider.Policy

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Retryit is the high-level façade aggregating the engine and metrics.
type Retryit struct {
	opts    Options
	engine  *engine.Engine
	metrics *metrics.Collector
}

// New creates a new Retryit instance with optional overrides.
func New(optFns ...func(o *Options)) *Retryit {
	opts := Options{
		EngineConfig:     engine.DefaultConfig,
		MetricsNamespace: "retryit",
		Policy:           decider.DefaultPolicy(),
		Logger:           logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	var collector *metrics.Collector
	if opts.Registerer != nil {
		collector = metrics.NewCollector(func(o *metrics.Options) {
			o.Namespace = opts.MetricsNamespace
			o.Registerer = opts.Registerer
		})
	}

	e := engine.New(func(o *engine.Options) {
		o.Config = opts.EngineConfig
		o.Callbacks = opts.Callbacks
		o.Logger = opts.Logger
		if collector != nil {
			o.Observer = collector
		}
	})

	return &Retryit{opts: opts, engine: e, metrics: collector}
}

// Engine returns the underlying invocation engine.
func (m *Retryit) Engine() *engine.Engine { return m.engine }

// Metrics returns the metrics collector, or nil when metrics are disabled.
func (m *Retryit) Metrics() *metrics.Collector { return m.metrics }

// StopInvocation cancels a tracked invocation by id.
func (m *Retryit) StopInvocation(invocationID string) error {
	return m.engine.StopInvocation(invocationID)
}

// Shutdown cancels every tracked invocation.
func (m *Retryit) Shutdown() int { return m.engine.Shutdown() }

// NewRetryable builds a named retryable action around op.
func NewRetryable[In, Out any](m *Retryit, name string, op action.Operation[In, Out], optFns ...func(o *action.Options)) *action.Retryable[In, Out] {
	return engine.NewRetryable(m.engine, op, append([]func(o *action.Options){action.WithName(name)}, optFns...)...)
}

// Load starts a tracked invocation and folds it into loading states.
func Load[In, Out any](ctx context.Context, m *Retryit, r *action.Retryable[In, Out], in In) (*loading.OneShot[Out], error) {
	return engine.Load[In, Out](ctx, m.engine, r, in)
}

// Run starts a tracked invocation and waits for its result. Decisions must
// be resolved through r.Decisions(), for example with AutoRetry.
func Run[In, Out any](ctx context.Context, m *Retryit, r *action.Retryable[In, Out], in In) (Out, error) {
	return engine.Run[In, Out](ctx, m.engine, r, in)
}

// AutoRetry resolves every decision r publishes with a backoff decider
// built from Options.Policy until detach is called.
func AutoRetry[In, Out any](m *Retryit, r *action.Retryable[In, Out], optFns ...func(o *decider.BackoffOptions)) (detach func()) {
	d := decider.NewBackoff(append([]func(o *decider.BackoffOptions){func(o *decider.BackoffOptions) {
		o.Policy = m.opts.Policy
		o.Logger = m.engine.Logger()
	}}, optFns...)...)

	return d.Attach(r.Decisions())
}
