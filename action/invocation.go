package action

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// State is the position of an invocation in its lifecycle.
type State int

const (
	// StateIdle is the state before the first attempt starts.
	StateIdle State = iota
	// StateRunning means the operation is executing.
	StateRunning
	// StateAwaitingDecision means a Decision is parked.
	StateAwaitingDecision
	// StateTerminal means the invocation has finished.
	StateTerminal
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateAwaitingDecision:
		return "awaiting_decision"
	case StateTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Outcome describes how an invocation terminated.
type Outcome int

const (
	// OutcomePending means the invocation has not terminated.
	OutcomePending Outcome = iota
	// OutcomeSucceeded means an attempt produced a value.
	OutcomeSucceeded
	// OutcomeIgnored means a failure was resolved with Ignore.
	OutcomeIgnored
	// OutcomeCancelled means the invocation was cancelled.
	OutcomeCancelled
	// OutcomeRejected means the wrapped action refused to run because it
	// was disabled.
	OutcomeRejected
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Invocation is one run of a Retryable, from the first attempt until a
// value is produced, a failure is ignored or the invocation is cancelled.
//
// When obtained from Retryable.Start, events are delivered on Next(), which
// must be drained (or the invocation cancelled) for it to make progress.
type Invocation[Out any] struct {
	id        string
	ctx       context.Context
	cancel    context.CancelFunc
	stopWatch func() bool
	next      chan Next[Out]
	done      chan struct{}

	mu        sync.Mutex
	state     State
	attempts  int
	pending   *Decision
	value     Out
	err       error
	outcome   Outcome
	finishers []func()
}

func newInvocation[Out any](parent context.Context, bufferSize int, emit bool) *Invocation[Out] {
	ctx, cancel := context.WithCancel(parent)
	inv := &Invocation[Out]{
		id:     uuid.NewString(),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		state:  StateIdle,
	}
	if emit {
		inv.next = make(chan Next[Out], bufferSize)
	}
	inv.stopWatch = context.AfterFunc(ctx, inv.invalidatePending)
	return inv
}

// ID returns the unique invocation identifier.
func (i *Invocation[Out]) ID() string { return i.id }

// Next returns the ordered event stream. It is closed when the invocation
// terminates.
func (i *Invocation[Out]) Next() <-chan Next[Out] { return i.next }

// Done is closed when the invocation has terminated.
func (i *Invocation[Out]) Done() <-chan struct{} { return i.done }

// Wait blocks until the invocation terminates and returns its result.
func (i *Invocation[Out]) Wait() (Out, error) {
	<-i.done
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.value, i.err
}

// Cancel stops the invocation. A pending decision is invalidated before
// Cancel returns, so later Retry and Ignore calls on it report false.
func (i *Invocation[Out]) Cancel() {
	i.mu.Lock()
	d := i.pending
	i.mu.Unlock()

	if d != nil {
		d.cancel()
	}
	i.cancel()
}

// OnFinish registers fn to run once the invocation has terminated, before
// Done is closed and Wait returns. If the invocation already terminated, fn
// runs immediately.
func (i *Invocation[Out]) OnFinish(fn func()) {
	i.mu.Lock()
	if i.state == StateTerminal {
		i.mu.Unlock()
		fn()
		return
	}
	i.finishers = append(i.finishers, fn)
	i.mu.Unlock()
}

// State returns the current lifecycle state.
func (i *Invocation[Out]) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Outcome returns how the invocation terminated, or OutcomePending.
func (i *Invocation[Out]) Outcome() Outcome {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.outcome
}

// Attempts returns the number of attempts started so far.
func (i *Invocation[Out]) Attempts() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.attempts
}

// Pending returns the parked decision, if any.
func (i *Invocation[Out]) Pending() *Decision {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.pending
}

func (i *Invocation[Out]) beginAttempt() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.attempts++
	i.state = StateRunning
	return i.attempts
}

// park records d as pending unless the invocation is already cancelled.
func (i *Invocation[Out]) park(d *Decision) bool {
	i.mu.Lock()
	if i.ctx.Err() != nil {
		i.mu.Unlock()
		d.cancel()
		return false
	}
	i.pending = d
	i.state = StateAwaitingDecision
	i.mu.Unlock()
	return true
}

func (i *Invocation[Out]) unpark() {
	i.mu.Lock()
	i.pending = nil
	i.mu.Unlock()
}

func (i *Invocation[Out]) invalidatePending() {
	i.mu.Lock()
	d := i.pending
	i.mu.Unlock()
	if d != nil {
		d.cancel()
	}
}

// emit delivers n unless the invocation has been cancelled.
func (i *Invocation[Out]) emit(n Next[Out]) {
	if i.next == nil {
		return
	}
	select {
	case i.next <- n:
	case <-i.ctx.Done():
	}
}

func (i *Invocation[Out]) finish(value Out, err error, outcome Outcome) {
	i.mu.Lock()
	i.value = value
	i.err = err
	i.outcome = outcome
	i.state = StateTerminal
	i.pending = nil
	finishers := i.finishers
	i.finishers = nil
	i.mu.Unlock()

	for _, fn := range finishers {
		fn()
	}

	i.stopWatch()
	if i.next != nil {
		close(i.next)
	}
	i.cancel()
	close(i.done)
}
