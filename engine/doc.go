// Package engine implements the invocation registry for retryit.
//
// The Engine is the coordination point for applications running several
// retryable actions. It does not schedule anything: every action keeps its
// own single-flight gate. The engine adds the cross-cutting parts around
// it.
//
// # Core Responsibilities
//
// Invocation Tracking:
//   - Every invocation started through Invoke, Run or Load is registered
//     under its uuid until it terminates
//   - StopInvocation cancels one invocation by id, invalidating its pending
//     decision
//   - Shutdown cancels every tracked invocation
//
// Shared Settings:
//   - NewAction and NewRetryable build actions that share the engine's
//     logger, observer (metrics), buffer size and strictness
//
// Lifecycle Callbacks:
//   - Before-invocation callbacks can veto a start
//   - After-invocation callbacks receive outcome, attempts and duration
//
// # Usage Patterns
//
// Basic Engine Setup:
//
//	e := engine.New(func(o *engine.Options) {
//	    o.Logger = logger
//	    o.Observer = collector
//	})
//
// Loading a value:
//
//	profile := engine.NewRetryable(e, fetchProfile, action.WithName("profile"))
//	shot, err := engine.Load(ctx, e, profile, userID)
//	if err != nil {
//	    return err
//	}
//	for state := range shot.States() {
//	    render(state)
//	}
//
// Stopping:
//
//	_ = e.StopInvocation(shot.ID())
//
// # Concurrency Model
//
//   - The registry is guarded by a RWMutex and safe for concurrent use
//   - Config.MaxConcurrentInvocations bounds the number of tracked
//     invocations; the limit rejects, it never queues
//   - Invocations leave the registry when they terminate, before Wait
//     returns, so back-to-back invocations never count against each other
//   - After-invocation callbacks run on a separate goroutine once Done is
//     closed
package engine
