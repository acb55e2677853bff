package action

import (
	"github.com/hupe1980/retryit/logging"
	"github.com/hupe1980/retryit/property"
)

// DefaultEventBufferSize is the capacity of Invocation.Next channels.
const DefaultEventBufferSize = 16

// Options configures Action, Retryable and composite constructors.
type Options struct {
	// Name identifies the action in logs, errors and metrics.
	Name string
	// EnabledIf gates the action in addition to its executing state.
	// Nil means always enabled.
	EnabledIf property.Source[bool]
	// Logger receives diagnostics. Nil disables logging.
	Logger logging.Logger
	// Observer receives attempt, resolution and outcome reports from
	// Retryable. Nil disables reporting.
	Observer Observer
	// StrictEnabled turns ExpectEnabled violations into panics.
	StrictEnabled bool
	// EventBufferSize is the capacity of Invocation.Next.
	EventBufferSize int
}

func buildOptions(fallbackName string, optFns []func(o *Options)) Options {
	opts := Options{
		Name:            fallbackName,
		EventBufferSize: DefaultEventBufferSize,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	if opts.Observer == nil {
		opts.Observer = NoOpObserver{}
	}
	if opts.EventBufferSize < 0 {
		opts.EventBufferSize = 0
	}
	return opts
}

// WithName sets Options.Name.
func WithName(name string) func(o *Options) {
	return func(o *Options) { o.Name = name }
}

// WithEnabledIf sets Options.EnabledIf.
func WithEnabledIf(src property.Source[bool]) func(o *Options) {
	return func(o *Options) { o.EnabledIf = src }
}

// WithLogger sets Options.Logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// WithObserver sets Options.Observer.
func WithObserver(obs Observer) func(o *Options) {
	return func(o *Options) { o.Observer = obs }
}
