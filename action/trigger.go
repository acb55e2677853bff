package action

import (
	"context"
	"sync/atomic"

	"github.com/hupe1980/retryit/logging"
)

// Trigger turns fire-and-forget intents, such as button presses, into
// applications of an action. Intents that arrive while the action is
// disabled or a previous intent is still running are dropped.
type Trigger[In, Out any] struct {
	target   Applier[In, Out]
	onResult func(Out, error)
	logger   logging.Logger
	running  atomic.Bool
}

// NewTrigger creates a Trigger for target. onResult, if non-nil, receives
// the result of every accepted intent.
func NewTrigger[In, Out any](target Applier[In, Out], onResult func(Out, error), optFns ...func(o *Options)) *Trigger[In, Out] {
	opts := buildOptions(nameOf(target, "trigger"), optFns)
	return &Trigger[In, Out]{
		target:   target,
		onResult: onResult,
		logger:   opts.Logger,
	}
}

// Fire applies the target asynchronously and reports whether the intent was
// accepted.
func (t *Trigger[In, Out]) Fire(ctx context.Context, in In) bool {
	if !t.target.IsEnabled().Value() || !t.running.CompareAndSwap(false, true) {
		t.logger.Debug("Intent ignored, action not available")
		return false
	}
	go func() {
		defer t.running.Store(false)
		out, err := t.target.Apply(ctx, in)
		if t.onResult != nil {
			t.onResult(out, err)
		}
	}()
	return true
}
