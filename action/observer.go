package action

import "time"

// Observer receives lifecycle reports from Retryable invocations. Calls are
// made from the invocation goroutine and must not block.
type Observer interface {
	// ObserveAttempt is called after every run of the wrapped operation.
	ObserveAttempt(action string, attempt int, duration time.Duration, err error)
	// ObserveResolution is called when a parked decision is resolved.
	ObserveResolution(action string, attempt int, resolution Resolution)
	// ObserveOutcome is called once per invocation when it terminates.
	ObserveOutcome(action string, outcome Outcome, attempts int, duration time.Duration)
}

// NoOpObserver ignores all reports.
type NoOpObserver struct{}

// ObserveAttempt implements Observer.
func (NoOpObserver) ObserveAttempt(string, int, time.Duration, error) {}

// ObserveResolution implements Observer.
func (NoOpObserver) ObserveResolution(string, int, Resolution) {}

// ObserveOutcome implements Observer.
func (NoOpObserver) ObserveOutcome(string, Outcome, int, time.Duration) {}
