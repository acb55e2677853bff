package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/retryit/action"
)

// CallbackType defines the lifecycle points where callbacks are executed.
//
// Available callback types:
//   - BeforeInvocation: before an invocation starts; an error aborts the start
//   - AfterInvocation: after an invocation reached its terminal state
type CallbackType string

const (
	// CallbackBeforeInvocation is triggered before an invocation starts.
	// Use for validation, rate limiting or instrumentation.
	CallbackBeforeInvocation CallbackType = "before_invocation"

	// CallbackAfterInvocation is triggered once an invocation terminated.
	// Errors returned at this point are logged and otherwise ignored.
	CallbackAfterInvocation CallbackType = "after_invocation"
)

// CallbackContext provides information about the invocation a callback runs
// for. Fields describing the result are only set for
// CallbackAfterInvocation.
type CallbackContext struct {
	// InvocationID is empty before the invocation started.
	InvocationID string

	// Action is the name of the invoked action.
	Action string

	// CallbackType indicates which callback type triggered this execution.
	CallbackType CallbackType

	Outcome  action.Outcome
	Attempts int
	Err      error
	Duration time.Duration

	// Metadata provides extensible storage for custom callback data.
	Metadata map[string]any
}

// Callback defines the interface for invocation lifecycle hooks.
//
// Callbacks run synchronously on the goroutine that starts or finishes the
// invocation and should return quickly.
type Callback interface {
	// Type returns the callback type this implementation handles.
	Type() CallbackType

	// Execute performs the callback logic with the provided context.
	Execute(ctx context.Context, callbackCtx *CallbackContext) error
}

// FunctionCallback wraps a function as a callback implementation.
//
// Example:
//
//	audit := NewFunctionCallback(
//	    CallbackAfterInvocation,
//	    func(ctx context.Context, callbackCtx *CallbackContext) error {
//	        log.Printf("%s finished: %s", callbackCtx.Action, callbackCtx.Outcome)
//	        return nil
//	    },
//	)
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, callbackCtx *CallbackContext) error
}

// NewFunctionCallback creates a new function-based callback.
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, callbackCtx *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{
		callbackType: callbackType,
		fn:           fn,
	}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType {
	return c.callbackType
}

// Execute calls the wrapped function with the provided context.
func (c *FunctionCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	return c.fn(ctx, callbackCtx)
}

// CallbackManager holds callbacks per type and runs them in registration
// order. The first callback returning an error stops the chain.
//
// Registration and execution are safe for concurrent use.
type CallbackManager struct {
	mu        sync.RWMutex
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates an empty callback manager.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{
		callbacks: make(map[CallbackType][]Callback),
	}
}

// RegisterCallback adds a callback to the manager for its type.
//
// Example:
//
//	manager := NewCallbackManager()
//	manager.RegisterCallback(loggingCallback)
//	manager.RegisterCallback(limitCallback)
func (cm *CallbackManager) RegisterCallback(callback Callback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	callbackType := callback.Type()
	cm.callbacks[callbackType] = append(cm.callbacks[callbackType], callback)
}

// ExecuteCallbacks executes all registered callbacks for the specified type
// and returns the first error.
func (cm *CallbackManager) ExecuteCallbacks(
	ctx context.Context,
	callbackType CallbackType,
	callbackCtx *CallbackContext,
) error {
	cm.mu.RLock()
	callbacks := cm.callbacks[callbackType]
	cm.mu.RUnlock()

	for _, callback := range callbacks {
		if err := callback.Execute(ctx, callbackCtx); err != nil {
			return err
		}
	}

	return nil
}

// LoggingCallback forwards lifecycle events to a logging function.
//
// Example:
//
//	logger := func(message string) {
//	    log.Printf("[ENGINE] %s", message)
//	}
//	callback := NewLoggingCallback(CallbackAfterInvocation, logger)
type LoggingCallback struct {
	callbackType CallbackType
	logger       func(message string)
}

// NewLoggingCallback creates a new logging callback.
func NewLoggingCallback(callbackType CallbackType, logger func(message string)) *LoggingCallback {
	return &LoggingCallback{
		callbackType: callbackType,
		logger:       logger,
	}
}

// Type returns the callback type this logger handles.
func (c *LoggingCallback) Type() CallbackType {
	return c.callbackType
}

// Execute logs the lifecycle event. If no logger function is configured,
// the callback silently succeeds.
func (c *LoggingCallback) Execute(_ context.Context, callbackCtx *CallbackContext) error {
	if c.logger == nil {
		return nil
	}

	if callbackCtx.CallbackType == CallbackAfterInvocation {
		c.logger(fmt.Sprintf("[%s] Action: %s, Invocation: %s, Outcome: %s, Attempts: %d",
			c.callbackType, callbackCtx.Action, callbackCtx.InvocationID, callbackCtx.Outcome, callbackCtx.Attempts))
		return nil
	}

	c.logger(fmt.Sprintf("[%s] Action: %s", c.callbackType, callbackCtx.Action))

	return nil
}

// ActionFilterCallback rejects invocations of actions the filter refuses.
// It replaces ad hoc enablement checks when an application wants to switch
// off whole groups of actions, for example while offline.
type ActionFilterCallback struct {
	allow func(action string) error
}

// NewActionFilterCallback creates a before-invocation callback that calls
// allow with the action name and aborts the start on error.
func NewActionFilterCallback(allow func(action string) error) *ActionFilterCallback {
	return &ActionFilterCallback{allow: allow}
}

// Type returns the callback type (always CallbackBeforeInvocation).
func (c *ActionFilterCallback) Type() CallbackType {
	return CallbackBeforeInvocation
}

// Execute applies the filter.
func (c *ActionFilterCallback) Execute(_ context.Context, callbackCtx *CallbackContext) error {
	if c.allow == nil {
		return nil
	}
	return c.allow(callbackCtx.Action)
}
