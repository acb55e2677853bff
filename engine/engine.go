package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/retryit/action"
	"github.com/hupe1980/retryit/loading"
	"github.com/hupe1980/retryit/logging"
)

// ErrTooManyInvocations is returned when Config.MaxConcurrentInvocations
// invocations are already active.
var ErrTooManyInvocations = errors.New("too many concurrent invocations")

// Config defines the tunable parameters of an Engine.
type Config struct {
	// MaxConcurrentInvocations limits the number of invocations tracked at
	// the same time. Starting one more fails with ErrTooManyInvocations
	// instead of waiting. Set to 0 for unlimited.
	MaxConcurrentInvocations int

	// EventBufferSize sets the capacity of Invocation.Next and
	// OneShot.States channels created through the engine.
	EventBufferSize int

	// StrictEnabled makes actions built by the engine panic when one action
	// drives another that is disabled.
	StrictEnabled bool
}

// DefaultConfig provides defaults suitable for interactive applications.
var DefaultConfig = Config{
	MaxConcurrentInvocations: 0,
	EventBufferSize:          action.DefaultEventBufferSize,
}

// Options configures an Engine.
type Options struct {
	Config Config

	// Observer receives attempt, resolution and outcome reports from every
	// retryable built by the engine.
	Observer action.Observer

	// Callbacks run around every invocation started through the engine.
	Callbacks *CallbackManager

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Engine tracks retryable invocations so they can be listed and stopped
// by id, and hands shared logging and observation settings to the actions
// it builds.
//
// The engine never queues work: an invocation either starts immediately or
// is rejected.
type Engine struct {
	config    Config
	observer  action.Observer
	callbacks *CallbackManager
	logger    logging.Logger

	activeInvocations map[string]*activeInvocation
	reserved          int
	invocationsMu     sync.RWMutex
}

type activeInvocation struct {
	action  string
	started time.Time
	cancel  func()
}

// InvocationInfo describes a tracked invocation.
type InvocationInfo struct {
	ID      string
	Action  string
	Started time.Time
}

// New creates a new Engine instance.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config: DefaultConfig,
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	logger := logging.OrNoOp(opts.Logger)
	if rl, ok := logger.(*logging.RetryLogger); ok {
		logger = rl.WithComponent("engine")
	}

	observer := opts.Observer
	if observer == nil {
		observer = action.NoOpObserver{}
	}

	callbacks := opts.Callbacks
	if callbacks == nil {
		callbacks = NewCallbackManager()
	}

	return &Engine{
		config:            opts.Config,
		observer:          observer,
		callbacks:         callbacks,
		logger:            logger,
		activeInvocations: make(map[string]*activeInvocation),
	}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.config }

// Logger returns the logger shared with actions built by the engine.
func (e *Engine) Logger() logging.Logger { return e.logger }

// ActionOptions applies the engine's logger, observer, buffer size and
// strictness to action options. Later option functions may override them.
func (e *Engine) ActionOptions() func(o *action.Options) {
	return func(o *action.Options) {
		o.Logger = e.logger
		o.Observer = e.observer
		o.StrictEnabled = e.config.StrictEnabled
		if e.config.EventBufferSize > 0 {
			o.EventBufferSize = e.config.EventBufferSize
		}
	}
}

// NewAction builds an action that shares the engine settings.
func NewAction[In, Out any](e *Engine, op action.Operation[In, Out], optFns ...func(o *action.Options)) *action.Action[In, Out] {
	return action.New(op, append([]func(o *action.Options){e.ActionOptions()}, optFns...)...)
}

// NewRetryable builds an action around op and wraps it in a Retryable,
// both sharing the engine settings.
func NewRetryable[In, Out any](e *Engine, op action.Operation[In, Out], optFns ...func(o *action.Options)) *action.Retryable[In, Out] {
	return action.Wrap[In, Out](NewAction(e, op, optFns...), e.ActionOptions())
}

// Invoke starts an invocation of s and tracks it until it terminates.
//
// Before-invocation callbacks run first; an error from any of them aborts
// the start. The caller must drain Invocation.Next or cancel the
// invocation, exactly as with a direct Start.
func Invoke[In, Out any](ctx context.Context, e *Engine, s loading.Starter[In, Out], in In) (*action.Invocation[Out], error) {
	name := nameOf(s)

	if err := e.reserve(); err != nil {
		e.logger.Warn("Invocation rejected", "action", name, "error", err.Error())
		return nil, err
	}

	cbCtx := &CallbackContext{Action: name, CallbackType: CallbackBeforeInvocation}
	if err := e.callbacks.ExecuteCallbacks(ctx, CallbackBeforeInvocation, cbCtx); err != nil {
		e.unreserve()
		return nil, fmt.Errorf("before invocation callback: %w", err)
	}

	inv, err := s.Start(ctx, in)
	if err != nil {
		e.unreserve()
		return nil, err
	}

	started := e.track(inv.ID(), name, inv.Cancel)
	id := inv.ID()
	inv.OnFinish(func() { e.untrack(id) })
	e.logger.Debug("Invocation started", "action", name, "invocation_id", id)

	go e.await(name, started, id, inv.Done(), func() (action.Outcome, int, error) {
		_, err := inv.Wait()
		return inv.Outcome(), inv.Attempts(), err
	})

	return inv, nil
}

// Run invokes s and blocks until the invocation terminates. Next events are
// drained internally, so decisions must be resolved through the
// retryable's Decisions source or a decider.
func Run[In, Out any](ctx context.Context, e *Engine, s loading.Starter[In, Out], in In) (Out, error) {
	inv, err := Invoke(ctx, e, s, in)
	if err != nil {
		var zero Out
		return zero, err
	}

	for range inv.Next() {
	}

	return inv.Wait()
}

// Load starts a tracked invocation of s and folds it into loading states.
func Load[In, Out any](ctx context.Context, e *Engine, s loading.Starter[In, Out], in In, optFns ...func(o *loading.Options)) (*loading.OneShot[Out], error) {
	defaults := func(o *loading.Options) {
		o.Logger = e.logger
		if e.config.EventBufferSize > 0 {
			o.BufferSize = e.config.EventBufferSize
		}
	}

	return loading.Start[In, Out](ctx, &trackedStarter[In, Out]{engine: e, starter: s}, in, append([]func(o *loading.Options){defaults}, optFns...)...)
}

type trackedStarter[In, Out any] struct {
	engine  *Engine
	starter loading.Starter[In, Out]
}

func (t *trackedStarter[In, Out]) Start(ctx context.Context, in In) (*action.Invocation[Out], error) {
	return Invoke(ctx, t.engine, t.starter, in)
}

func (t *trackedStarter[In, Out]) Name() string { return nameOf(t.starter) }

// StopInvocation cancels the invocation with the given id. The pending
// decision, if any, is invalidated before StopInvocation returns.
func (e *Engine) StopInvocation(invocationID string) error {
	e.invocationsMu.RLock()
	ai, exists := e.activeInvocations[invocationID]
	e.invocationsMu.RUnlock()

	if !exists {
		return fmt.Errorf("invocation %s not found", invocationID)
	}

	ai.cancel()
	e.logger.Info("Invocation stopped", "action", ai.action, "invocation_id", invocationID)

	return nil
}

// ActiveInvocations lists the tracked invocations, oldest first. An
// invocation leaves the list before its Done channel is closed.
func (e *Engine) ActiveInvocations() []InvocationInfo {
	e.invocationsMu.RLock()
	infos := make([]InvocationInfo, 0, len(e.activeInvocations))
	for id, ai := range e.activeInvocations {
		infos = append(infos, InvocationInfo{ID: id, Action: ai.action, Started: ai.started})
	}
	e.invocationsMu.RUnlock()

	slices.SortFunc(infos, func(a, b InvocationInfo) int {
		if c := a.Started.Compare(b.Started); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})

	return infos
}

// Shutdown cancels every tracked invocation and returns how many were
// cancelled. Invocations leave the registry as they terminate.
func (e *Engine) Shutdown() int {
	e.invocationsMu.RLock()
	cancels := make([]func(), 0, len(e.activeInvocations))
	for _, ai := range e.activeInvocations {
		cancels = append(cancels, ai.cancel)
	}
	e.invocationsMu.RUnlock()

	for _, cancel := range cancels {
		cancel()
	}

	if len(cancels) > 0 {
		e.logger.Info("Engine shutdown", "cancelled", len(cancels))
	}

	return len(cancels)
}

func (e *Engine) reserve() error {
	e.invocationsMu.Lock()
	defer e.invocationsMu.Unlock()

	if limit := e.config.MaxConcurrentInvocations; limit > 0 && len(e.activeInvocations)+e.reserved >= limit {
		return fmt.Errorf("%w: limit is %d", ErrTooManyInvocations, limit)
	}

	e.reserved++

	return nil
}

func (e *Engine) unreserve() {
	e.invocationsMu.Lock()
	e.reserved--
	e.invocationsMu.Unlock()
}

func (e *Engine) track(id, name string, cancel func()) time.Time {
	started := time.Now()

	e.invocationsMu.Lock()
	e.reserved--
	e.activeInvocations[id] = &activeInvocation{action: name, started: started, cancel: cancel}
	e.invocationsMu.Unlock()

	return started
}

func (e *Engine) untrack(id string) {
	e.invocationsMu.Lock()
	delete(e.activeInvocations, id)
	e.invocationsMu.Unlock()
}

func (e *Engine) await(name string, started time.Time, id string, done <-chan struct{}, result func() (action.Outcome, int, error)) {
	<-done

	outcome, attempts, err := result()

	cbCtx := &CallbackContext{
		InvocationID: id,
		Action:       name,
		CallbackType: CallbackAfterInvocation,
		Outcome:      outcome,
		Attempts:     attempts,
		Err:          err,
		Duration:     time.Since(started),
	}

	// The invocation is over; a failing callback can only be reported.
	if cbErr := e.callbacks.ExecuteCallbacks(context.Background(), CallbackAfterInvocation, cbCtx); cbErr != nil {
		e.logger.Warn("After invocation callback failed", "action", name, "invocation_id", id, "error", cbErr.Error())
	}
}

func nameOf(v any) string {
	if n, ok := v.(interface{ Name() string }); ok && n.Name() != "" {
		return n.Name()
	}
	return "anonymous"
}
