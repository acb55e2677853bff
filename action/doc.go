// Package action provides gated asynchronous operations and the retryable
// wrapper that turns every failure into an explicit decision.
//
// An Action pairs an Operation with an enablement gate: it is enabled while
// its EnabledIf source is true and it is not already executing, and a call
// made while disabled is rejected with ErrDisabled rather than queued.
//
// A Retryable wraps any Applier. Each invocation runs a small state machine
// (Idle, Running, AwaitingDecision, Terminal) on its own goroutine. When an
// attempt fails the invocation parks a Decision, publishes it through
// Decisions() and on Invocation.Next(), and waits. Decision.Retry re-runs
// the operation with the same input; Decision.Ignore ends the invocation
// with the operation's error. Only the first resolution of a Decision takes
// effect.
//
//	fetch := action.New[string, Profile](action.OperationFunc[string, Profile](loadProfile))
//	r := action.Wrap[string, Profile](fetch)
//	inv, err := r.Start(ctx, "user-42")
//	if err != nil {
//		return err
//	}
//	for n := range inv.Next() {
//		if n.Kind == action.NextError {
//			n.Decision.Retry()
//		}
//	}
//	profile, err := inv.Wait()
package action
