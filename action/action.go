package action

import (
	"context"

	"github.com/hupe1980/retryit/logging"
	"github.com/hupe1980/retryit/property"
)

// Action is an Operation guarded by an enablement gate. At most one
// application runs at a time; calls made while the action is disabled or
// busy are rejected with ErrDisabled.
type Action[In, Out any] struct {
	name   string
	op     Operation[In, Out]
	gate   *gate
	logger logging.Logger
	strict bool
}

// New creates an Action around op.
func New[In, Out any](op Operation[In, Out], optFns ...func(o *Options)) *Action[In, Out] {
	opts := buildOptions("action", optFns)
	return &Action[In, Out]{
		name:   opts.Name,
		op:     op,
		gate:   newGate(opts.EnabledIf),
		logger: opts.Logger,
		strict: opts.StrictEnabled,
	}
}

// Name returns the configured action name.
func (a *Action[In, Out]) Name() string { return a.name }

// IsEnabled implements Applier.
func (a *Action[In, Out]) IsEnabled() property.Source[bool] { return a.gate.enabled }

// IsExecuting implements Applier.
func (a *Action[In, Out]) IsExecuting() property.Source[bool] { return a.gate.executing }

// Apply runs the operation once. A failure is returned as an *ActionError of
// kind OperationFailed wrapping the operation error.
func (a *Action[In, Out]) Apply(ctx context.Context, in In) (Out, error) {
	var zero Out
	if !a.gate.acquire() {
		a.logger.Error("Action applied while disabled", "action", a.name)
		return zero, disabledError(a.name)
	}
	defer a.gate.release()

	a.logger.Debug("Action started", "action", a.name)
	out, err := a.op.Execute(ctx, in)
	if err != nil {
		a.logger.Debug("Action failed", "action", a.name, "error", err.Error())
		return zero, failedError(a.name, err)
	}
	a.logger.Debug("Action completed", "action", a.name)
	return out, nil
}
