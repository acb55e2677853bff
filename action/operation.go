package action

import (
	"context"

	"github.com/hupe1980/retryit/property"
)

// Operation is a unit of asynchronous work. Execute blocks until it produces
// exactly one value or one error. Implementations should return promptly
// once ctx is done.
type Operation[In, Out any] interface {
	Execute(ctx context.Context, in In) (Out, error)
}

// OperationFunc adapts an ordinary function to Operation.
type OperationFunc[In, Out any] func(ctx context.Context, in In) (Out, error)

// Execute calls f(ctx, in).
func (f OperationFunc[In, Out]) Execute(ctx context.Context, in In) (Out, error) {
	return f(ctx, in)
}

// Applier is the contract shared by Action, Retryable and composites.
type Applier[In, Out any] interface {
	// Apply runs the action and blocks until it terminates.
	Apply(ctx context.Context, in In) (Out, error)
	// IsEnabled reports whether Apply would currently be accepted.
	IsEnabled() property.Source[bool]
	// IsExecuting reports whether an application is in flight.
	IsExecuting() property.Source[bool]
}

type named interface {
	Name() string
}

func nameOf(v any, fallback string) string {
	if n, ok := v.(named); ok && n.Name() != "" {
		return n.Name()
	}
	return fallback
}
