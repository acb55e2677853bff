package action

import (
	"context"
	"time"

	"github.com/hupe1980/retryit/logging"
	"github.com/hupe1980/retryit/property"
)

// Retryable wraps an Applier so that failures are never returned directly.
// Each failed attempt parks a Decision; the invocation resumes only when the
// decision is resolved or the invocation is cancelled.
//
// A Retryable is executing, and therefore disabled, for the whole lifetime
// of an invocation, including while a decision is pending. Only one
// invocation can be active at a time.
type Retryable[In, Out any] struct {
	name       string
	inner      Applier[In, Out]
	gate       *gate
	decisions  *property.Property[*Decision]
	logger     logging.Logger
	observer   Observer
	strict     bool
	bufferSize int
}

// Wrap creates a Retryable around inner. The retryable is enabled while
// inner is enabled, Options.EnabledIf (if any) holds and no invocation is
// active.
func Wrap[In, Out any](inner Applier[In, Out], optFns ...func(o *Options)) *Retryable[In, Out] {
	opts := buildOptions(nameOf(inner, "retryable"), optFns)

	enabledIf := inner.IsEnabled()
	if opts.EnabledIf != nil {
		enabledIf = property.And(enabledIf, opts.EnabledIf)
	}

	return &Retryable[In, Out]{
		name:       opts.Name,
		inner:      inner,
		gate:       newGate(enabledIf),
		decisions:  property.New[*Decision](nil, property.SkipNilRepeats[Decision]),
		logger:     opts.Logger,
		observer:   opts.Observer,
		strict:     opts.StrictEnabled,
		bufferSize: opts.EventBufferSize,
	}
}

// Name returns the configured name.
func (r *Retryable[In, Out]) Name() string { return r.name }

// IsEnabled implements Applier.
func (r *Retryable[In, Out]) IsEnabled() property.Source[bool] { return r.gate.enabled }

// IsExecuting implements Applier.
func (r *Retryable[In, Out]) IsExecuting() property.Source[bool] { return r.gate.executing }

// Decisions publishes the currently parked decision, or nil.
func (r *Retryable[In, Out]) Decisions() property.Source[*Decision] { return r.decisions }

// Start begins an invocation and returns immediately. The caller must drain
// Invocation.Next or cancel the invocation.
func (r *Retryable[In, Out]) Start(ctx context.Context, in In) (*Invocation[Out], error) {
	return r.start(ctx, in, true)
}

// Apply runs an invocation to completion. Failures reach the caller only
// after a decision was resolved with Ignore, as an *ActionError of kind
// OperationFailed; cancellation returns an OperationFailed error wrapping
// the context error.
func (r *Retryable[In, Out]) Apply(ctx context.Context, in In) (Out, error) {
	inv, err := r.start(ctx, in, false)
	if err != nil {
		var zero Out
		return zero, err
	}
	return inv.Wait()
}

func (r *Retryable[In, Out]) start(ctx context.Context, in In, emit bool) (*Invocation[Out], error) {
	if !r.gate.acquire() {
		r.logger.Error("Retryable started while disabled", "action", r.name)
		return nil, disabledError(r.name)
	}
	inv := newInvocation[Out](ctx, r.bufferSize, emit)
	go r.run(inv, in)
	return inv, nil
}

func (r *Retryable[In, Out]) invocationLogger(id string) logging.Logger {
	if rl, ok := r.logger.(*logging.RetryLogger); ok {
		return rl.WithInvocation(r.name, id)
	}
	return r.logger
}

// run drives one invocation through Running and AwaitingDecision until it
// reaches Terminal.
func (r *Retryable[In, Out]) run(inv *Invocation[Out], in In) {
	logger := r.invocationLogger(inv.id)
	started := time.Now()

	var (
		value   Out
		err     error
		outcome Outcome
	)
	defer func() {
		attempts := inv.Attempts()
		elapsed := time.Since(started)
		r.observer.ObserveOutcome(r.name, outcome, attempts, elapsed)
		if rl, ok := logger.(*logging.RetryLogger); ok {
			rl.LogOutcome(outcome.String(), attempts, elapsed, err)
		} else {
			logger.Info("Invocation finished", "action", r.name, "invocation_id", inv.id, "outcome", outcome.String(), "attempts", attempts)
		}

		r.decisions.Set(nil)
		r.gate.release()
		inv.finish(value, err, outcome)
	}()

	cancelled := func() {
		err = failedError(r.name, context.Cause(inv.ctx))
		outcome = OutcomeCancelled
	}

	for {
		attempt := inv.beginAttempt()
		attemptStart := time.Now()
		v, opErr := r.inner.Apply(inv.ctx, in)
		elapsed := time.Since(attemptStart)
		r.observer.ObserveAttempt(r.name, attempt, elapsed, Cause(opErr))
		if rl, ok := logger.(*logging.RetryLogger); ok {
			rl.LogAttempt(attempt, elapsed, opErr)
		}

		if opErr == nil {
			if inv.ctx.Err() != nil {
				cancelled()
				return
			}
			value, outcome = v, OutcomeSucceeded
			inv.emit(Next[Out]{Kind: NextValue, Value: v})
			return
		}
		if inv.ctx.Err() != nil {
			cancelled()
			return
		}
		if IsDisabled(opErr) {
			err = ExpectEnabled(opErr, r.name, logger, r.strict)
			outcome = OutcomeRejected
			return
		}

		cause := Cause(opErr)
		d := newDecision(cause, attempt, inv.id)
		if !inv.park(d) {
			cancelled()
			return
		}
		r.decisions.Set(d)
		inv.emit(Next[Out]{Kind: NextError, Decision: d})

		var res Resolution
		select {
		case res = <-d.done:
		case <-inv.ctx.Done():
			d.cancel()
			res = ResolutionCancelled
		}
		inv.unpark()
		r.decisions.Set(nil)
		r.observer.ObserveResolution(r.name, attempt, res)
		if rl, ok := logger.(*logging.RetryLogger); ok {
			rl.LogDecision(attempt, res.String(), cause)
		}

		switch res {
		case ResolutionRetry:
			if inv.ctx.Err() != nil {
				cancelled()
				return
			}
			inv.emit(Next[Out]{Kind: NextRetrying})
		case ResolutionIgnore:
			err = failedError(r.name, cause)
			outcome = OutcomeIgnored
			return
		default:
			cancelled()
			return
		}
	}
}
