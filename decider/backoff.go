package decider

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/hupe1980/retryit/action"
	"github.com/hupe1980/retryit/alert"
	"github.com/hupe1980/retryit/logging"
	"github.com/hupe1980/retryit/property"
)

// BackoffOptions configures a Backoff decider.
type BackoffOptions struct {
	Policy Policy
	// Describer, when set, makes failures described as not retryable be
	// ignored immediately.
	Describer alert.Describer
	Logger    logging.Logger
}

// Backoff resolves decisions automatically: it retries after the next
// backoff interval and ignores the failure once the policy gives up.
type Backoff struct {
	policy    Policy
	describer alert.Describer
	logger    logging.Logger

	mu         sync.Mutex
	bo         backoff.BackOff
	invocation string
	timer      *time.Timer
	stopped    bool
}

// NewBackoff creates a Backoff decider.
func NewBackoff(optFns ...func(o *BackoffOptions)) *Backoff {
	opts := BackoffOptions{Policy: DefaultPolicy()}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Backoff{
		policy:    opts.Policy,
		describer: opts.Describer,
		logger:    logging.OrNoOp(opts.Logger),
	}
}

// Attach resolves every decision published by src until the returned
// function is called. Detaching stops any scheduled retry.
func (b *Backoff) Attach(src property.Source[*action.Decision]) (detach func()) {
	b.mu.Lock()
	b.stopped = false
	b.mu.Unlock()

	cancel := src.Subscribe(b.Decide)
	return func() {
		cancel()
		b.Stop()
	}
}

// Decide schedules the resolution of d. A nil decision means the previous
// one was resolved or cancelled, so any retry still scheduled is stopped.
func (b *Backoff) Decide(d *action.Decision) {
	if d == nil {
		b.stopTimer()
		return
	}
	if b.describer != nil {
		if desc, ok := b.describer.Describe(d.Err); ok && !desc.Retryable {
			b.logger.Info("Failure not retryable, ignoring", "attempt", d.Attempt, "error", d.Err.Error())
			d.Ignore()
			return
		}
	}

	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	if b.bo == nil || d.InvocationID != b.invocation || d.Attempt == 1 {
		b.bo = b.policy.NewBackOff()
		b.invocation = d.InvocationID
	}
	wait := b.bo.NextBackOff()
	if wait == backoff.Stop {
		b.mu.Unlock()
		b.logger.Info("Backoff exhausted, ignoring failure", "attempt", d.Attempt, "error", d.Err.Error())
		d.Ignore()
		return
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(wait, func() {
		if d.Retry() {
			b.logger.Debug("Retrying after backoff", "attempt", d.Attempt, "wait", wait)
		}
	})
	b.mu.Unlock()
}

// Stop cancels any scheduled retry and makes the decider inert until the
// next Attach.
func (b *Backoff) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
	b.stopTimerLocked()
}

func (b *Backoff) stopTimer() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopTimerLocked()
}

func (b *Backoff) stopTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

// Scheduled reports whether a retry is waiting on its backoff interval.
func (b *Backoff) Scheduled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.timer != nil
}
