package testutil

import (
	"context"
	"sync"
)

type step[Out any] struct {
	value Out
	err   error
}

// OperationBuilder provides a fluent helper for scripting operation results
// in tests. Example:
//
//	op := NewOperationBuilder[string, int]().Fail(errBoom).Succeed(42).Build()
//
// Each call consumes the next scripted step; the last step repeats once the
// script is exhausted.
type OperationBuilder[In, Out any] struct {
	steps []step[Out]
	gated bool
}

// NewOperationBuilder creates an empty script. An empty script returns the
// zero value.
func NewOperationBuilder[In, Out any]() *OperationBuilder[In, Out] {
	return &OperationBuilder[In, Out]{}
}

// Succeed appends a successful step (chainable).
func (b *OperationBuilder[In, Out]) Succeed(v Out) *OperationBuilder[In, Out] {
	b.steps = append(b.steps, step[Out]{value: v})
	return b
}

// Fail appends a failing step (chainable).
func (b *OperationBuilder[In, Out]) Fail(err error) *OperationBuilder[In, Out] {
	b.steps = append(b.steps, step[Out]{err: err})
	return b
}

// Gated makes every call block until Release is called or its context is
// done (chainable).
func (b *OperationBuilder[In, Out]) Gated() *OperationBuilder[In, Out] {
	b.gated = true
	return b
}

// Build returns the scripted operation.
func (b *OperationBuilder[In, Out]) Build() *ScriptedOperation[In, Out] {
	op := &ScriptedOperation[In, Out]{
		steps:   append([]step[Out](nil), b.steps...),
		started: make(chan In, 64),
	}
	if b.gated {
		op.release = make(chan struct{}, 64)
	}
	return op
}

// ScriptedOperation replays a script of results and records how it was
// called. It satisfies action.Operation.
type ScriptedOperation[In, Out any] struct {
	mu         sync.Mutex
	steps      []step[Out]
	calls      int
	inputs     []In
	running    int
	maxRunning int
	started    chan In
	release    chan struct{}
}

// Execute runs the next scripted step.
func (s *ScriptedOperation[In, Out]) Execute(ctx context.Context, in In) (Out, error) {
	var zero Out

	s.mu.Lock()
	idx := s.calls
	s.calls++
	s.inputs = append(s.inputs, in)
	s.running++
	if s.running > s.maxRunning {
		s.maxRunning = s.running
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running--
		s.mu.Unlock()
	}()

	select {
	case s.started <- in:
	default:
	}

	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	if len(s.steps) == 0 {
		return zero, nil
	}
	if idx >= len(s.steps) {
		idx = len(s.steps) - 1
	}
	st := s.steps[idx]
	if st.err != nil {
		return zero, st.err
	}
	return st.value, nil
}

// Started receives the input of every call as it begins.
func (s *ScriptedOperation[In, Out]) Started() <-chan In { return s.started }

// Release lets one gated call proceed.
func (s *ScriptedOperation[In, Out]) Release() {
	if s.release != nil {
		s.release <- struct{}{}
	}
}

// Calls returns the number of calls so far.
func (s *ScriptedOperation[In, Out]) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Inputs returns the inputs of all calls so far.
func (s *ScriptedOperation[In, Out]) Inputs() []In {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]In(nil), s.inputs...)
}

// MaxConcurrent returns the highest number of calls observed in flight at
// the same time.
func (s *ScriptedOperation[In, Out]) MaxConcurrent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxRunning
}
