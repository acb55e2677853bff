package action

import (
	"context"
	"fmt"

	"github.com/hupe1980/retryit/logging"
	"github.com/hupe1980/retryit/property"
)

// ExpectEnabled checks err from an action the caller required to be
// enabled. A disabled rejection there is a programming error: it panics when
// strict is set and is otherwise logged and returned. Any other error is
// returned unchanged.
func ExpectEnabled(err error, name string, logger logging.Logger, strict bool) error {
	if err == nil || !IsDisabled(err) {
		return err
	}
	logging.OrNoOp(logger).Error("Action expected to be enabled", "action", name)
	if strict {
		panic(fmt.Sprintf("action %q applied while disabled", name))
	}
	return err
}

// AsOperation exposes an Applier as an Operation. Operation failures are
// returned as the original error; a disabled rejection goes through
// ExpectEnabled.
func AsOperation[In, Out any](a Applier[In, Out], optFns ...func(o *Options)) Operation[In, Out] {
	opts := buildOptions(nameOf(a, "action"), optFns)
	return OperationFunc[In, Out](func(ctx context.Context, in In) (Out, error) {
		out, err := a.Apply(ctx, in)
		if err != nil {
			return out, Cause(ExpectEnabled(err, opts.Name, opts.Logger, opts.StrictEnabled))
		}
		return out, nil
	})
}

// Then chains two actions: the output of first is the input of second. The
// composite is enabled only while both sides are enabled, so it is disabled
// whenever either of them is executing.
func Then[In, Mid, Out any](first Applier[In, Mid], second Applier[Mid, Out], optFns ...func(o *Options)) *Action[In, Out] {
	fallback := nameOf(first, "first") + "+" + nameOf(second, "second")
	opts := buildOptions(fallback, optFns)

	enabledIf := property.And(first.IsEnabled(), second.IsEnabled())
	if opts.EnabledIf != nil {
		enabledIf = property.And(enabledIf, opts.EnabledIf)
	}

	op := OperationFunc[In, Out](func(ctx context.Context, in In) (Out, error) {
		var zero Out
		mid, err := AsOperation(first, withInherited(opts)).Execute(ctx, in)
		if err != nil {
			return zero, err
		}
		return AsOperation(second, withInherited(opts)).Execute(ctx, mid)
	})

	return New[In, Out](op, func(o *Options) {
		*o = opts
		o.EnabledIf = enabledIf
	})
}

func withInherited(parent Options) func(o *Options) {
	return func(o *Options) {
		o.Logger = parent.Logger
		o.StrictEnabled = parent.StrictEnabled
	}
}
