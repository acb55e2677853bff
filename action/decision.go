package action

import "sync"

// Resolution records how a Decision ended.
type Resolution int

const (
	// ResolutionPending means the decision has not been resolved yet.
	ResolutionPending Resolution = iota
	// ResolutionRetry means the operation was re-run.
	ResolutionRetry
	// ResolutionIgnore means the failure was accepted as final.
	ResolutionIgnore
	// ResolutionCancelled means the invocation was cancelled first.
	ResolutionCancelled
)

// String returns the resolution name.
func (r Resolution) String() string {
	switch r {
	case ResolutionPending:
		return "pending"
	case ResolutionRetry:
		return "retry"
	case ResolutionIgnore:
		return "ignore"
	case ResolutionCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Decision is a failed attempt waiting for someone to choose between Retry
// and Ignore. Only the first resolution has any effect.
type Decision struct {
	// Err is the error returned by the failed attempt.
	Err error
	// Attempt is the 1-based attempt number that failed.
	Attempt int
	// InvocationID identifies the invocation that parked the decision.
	InvocationID string

	mu         sync.Mutex
	resolution Resolution
	done       chan Resolution
}

func newDecision(err error, attempt int, invocationID string) *Decision {
	return &Decision{
		Err:          err,
		Attempt:      attempt,
		InvocationID: invocationID,
		done:         make(chan Resolution, 1),
	}
}

// Retry asks the invocation to run the operation again. It returns false if
// the decision was already resolved or its invocation was cancelled.
func (d *Decision) Retry() bool { return d.resolve(ResolutionRetry) }

// Ignore ends the invocation with Err. It returns false if the decision was
// already resolved or its invocation was cancelled.
func (d *Decision) Ignore() bool { return d.resolve(ResolutionIgnore) }

// Resolution returns the current resolution.
func (d *Decision) Resolution() Resolution {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resolution
}

// Pending reports whether the decision is still awaiting resolution.
func (d *Decision) Pending() bool {
	return d.Resolution() == ResolutionPending
}

func (d *Decision) cancel() bool { return d.resolve(ResolutionCancelled) }

func (d *Decision) resolve(r Resolution) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.resolution != ResolutionPending {
		return false
	}
	d.resolution = r
	d.done <- r
	return true
}
