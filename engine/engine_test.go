package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/retryit/action"
	"github.com/hupe1980/retryit/engine"
	"github.com/hupe1980/retryit/internal/testutil"
	"github.com/hupe1980/retryit/loading"
	"github.com/hupe1980/retryit/property"
)

var errBoom = errors.New("boom")

type countingObserver struct {
	mu       sync.Mutex
	attempts int
	outcomes []action.Outcome
}

func (c *countingObserver) ObserveAttempt(string, int, time.Duration, error) {
	c.mu.Lock()
	c.attempts++
	c.mu.Unlock()
}

func (c *countingObserver) ObserveResolution(string, int, action.Resolution) {}

func (c *countingObserver) ObserveOutcome(_ string, o action.Outcome, _ int, _ time.Duration) {
	c.mu.Lock()
	c.outcomes = append(c.outcomes, o)
	c.mu.Unlock()
}

func waitUntilIdle(t *testing.T, e *engine.Engine) {
	t.Helper()
	assert.Eventually(t, func() bool { return len(e.ActiveInvocations()) == 0 }, testutil.DefaultTimeout, time.Millisecond)
}

func TestEngine_TracksInvocationUntilDone(t *testing.T) {
	e := engine.New()
	op := testutil.NewOperationBuilder[string, int]().Succeed(5).Gated().Build()
	r := engine.NewRetryable[string, int](e, op, action.WithName("fetch"))

	inv, err := engine.Invoke[string, int](context.Background(), e, r, "in")
	require.NoError(t, err)
	testutil.Receive(t, op.Started())

	active := e.ActiveInvocations()
	require.Len(t, active, 1)
	assert.Equal(t, inv.ID(), active[0].ID)
	assert.Equal(t, "fetch", active[0].Action)
	assert.False(t, active[0].Started.IsZero())

	op.Release()
	testutil.Drain(t, inv.Next())
	out, err := inv.Wait()
	require.NoError(t, err)
	assert.Equal(t, 5, out)

	waitUntilIdle(t, e)
}

func TestEngine_StopInvocation(t *testing.T) {
	e := engine.New()
	op := testutil.NewOperationBuilder[string, int]().Fail(errBoom).Build()
	r := engine.NewRetryable[string, int](e, op)

	inv, err := engine.Invoke[string, int](context.Background(), e, r, "in")
	require.NoError(t, err)
	n := testutil.Receive(t, inv.Next())
	require.Equal(t, action.NextError, n.Kind)

	require.NoError(t, e.StopInvocation(inv.ID()))
	assert.False(t, n.Decision.Retry())

	testutil.Drain(t, inv.Next())
	_, err = inv.Wait()
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, action.OutcomeCancelled, inv.Outcome())
	waitUntilIdle(t, e)

	err = e.StopInvocation("missing")
	assert.EqualError(t, err, "invocation missing not found")
}

func TestEngine_MaxConcurrentInvocationsRejects(t *testing.T) {
	e := engine.New(func(o *engine.Options) {
		o.Config.MaxConcurrentInvocations = 1
	})
	first := testutil.NewOperationBuilder[string, int]().Succeed(1).Gated().Build()
	second := testutil.NewOperationBuilder[string, int]().Succeed(2).Build()
	r1 := engine.NewRetryable[string, int](e, first, action.WithName("first"))
	r2 := engine.NewRetryable[string, int](e, second, action.WithName("second"))

	inv, err := engine.Invoke[string, int](context.Background(), e, r1, "a")
	require.NoError(t, err)
	testutil.Receive(t, first.Started())

	_, err = engine.Invoke[string, int](context.Background(), e, r2, "b")
	assert.ErrorIs(t, err, engine.ErrTooManyInvocations)
	assert.Equal(t, 0, second.Calls())

	first.Release()
	testutil.Drain(t, inv.Next())
	_, err = inv.Wait()
	require.NoError(t, err)
	assert.Empty(t, e.ActiveInvocations())

	out, err := engine.Run[string, int](context.Background(), e, r2, "b")
	require.NoError(t, err)
	assert.Equal(t, 2, out)
}

func TestEngine_SequentialRunsFitInLimit(t *testing.T) {
	e := engine.New(func(o *engine.Options) {
		o.Config.MaxConcurrentInvocations = 1
	})
	op := testutil.NewOperationBuilder[string, int]().Succeed(1).Build()
	r := engine.NewRetryable[string, int](e, op)

	for i := 0; i < 200; i++ {
		out, err := engine.Run[string, int](context.Background(), e, r, "in")
		require.NoError(t, err, "run %d", i)
		require.Equal(t, 1, out)
	}
	assert.Equal(t, 200, op.Calls())
	assert.Empty(t, e.ActiveInvocations())

	shot, err := engine.Load[string, int](context.Background(), e, r, "in")
	require.NoError(t, err)
	testutil.Drain(t, shot.States())
	_, err = shot.Invocation().Wait()
	require.NoError(t, err)

	_, err = engine.Run[string, int](context.Background(), e, r, "in")
	require.NoError(t, err)
}

func TestEngine_StartErrorReleasesReservation(t *testing.T) {
	e := engine.New(func(o *engine.Options) {
		o.Config.MaxConcurrentInvocations = 1
	})
	op := testutil.NewOperationBuilder[string, int]().Succeed(1).Build()
	r := engine.NewRetryable[string, int](e, op)

	blocked := engine.NewRetryable[string, int](e, op, action.WithEnabledIf(property.Const(false)))
	_, err := engine.Invoke[string, int](context.Background(), e, blocked, "in")
	assert.True(t, action.IsDisabled(err))

	out, err := engine.Run[string, int](context.Background(), e, r, "in")
	require.NoError(t, err)
	assert.Equal(t, 1, out)
}

func TestEngine_RunWithDecisionSubscriber(t *testing.T) {
	obs := &countingObserver{}
	e := engine.New(func(o *engine.Options) { o.Observer = obs })
	op := testutil.NewOperationBuilder[string, int]().Fail(errBoom).Succeed(9).Build()
	r := engine.NewRetryable[string, int](e, op)

	stop := r.Decisions().Subscribe(func(d *action.Decision) {
		if d != nil {
			d.Retry()
		}
	})
	defer stop()

	out, err := engine.Run[string, int](context.Background(), e, r, "in")
	require.NoError(t, err)
	assert.Equal(t, 9, out)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, 2, obs.attempts)
	assert.Equal(t, []action.Outcome{action.OutcomeSucceeded}, obs.outcomes)
}

func TestEngine_LoadFoldsTrackedInvocation(t *testing.T) {
	e := engine.New()
	op := testutil.NewOperationBuilder[string, int]().Fail(errBoom).Succeed(3).Build()
	r := engine.NewRetryable[string, int](e, op, action.WithName("profile"))

	shot, err := engine.Load[string, int](context.Background(), e, r, "in")
	require.NoError(t, err)

	var kinds []loading.Kind
	for s := range shot.States() {
		kinds = append(kinds, s.Kind)
		if s.Kind == loading.KindAwaitingDecision {
			active := e.ActiveInvocations()
			require.Len(t, active, 1)
			assert.Equal(t, shot.ID(), active[0].ID)
			assert.Equal(t, "profile", active[0].Action)
			s.Decision.Retry()
		}
	}

	assert.Equal(t, []loading.Kind{
		loading.KindLoading,
		loading.KindAwaitingDecision,
		loading.KindLoading,
		loading.KindLoaded,
	}, kinds)
	waitUntilIdle(t, e)
}

func TestEngine_Shutdown(t *testing.T) {
	e := engine.New()
	op1 := testutil.NewOperationBuilder[string, int]().Fail(errBoom).Build()
	op2 := testutil.NewOperationBuilder[string, int]().Succeed(1).Gated().Build()
	r1 := engine.NewRetryable[string, int](e, op1)
	r2 := engine.NewRetryable[string, int](e, op2)

	inv1, err := engine.Invoke[string, int](context.Background(), e, r1, "a")
	require.NoError(t, err)
	inv2, err := engine.Invoke[string, int](context.Background(), e, r2, "b")
	require.NoError(t, err)
	testutil.Receive(t, inv1.Next())
	testutil.Receive(t, op2.Started())

	assert.Equal(t, 2, e.Shutdown())

	testutil.Closed(t, inv1.Done())
	testutil.Closed(t, inv2.Done())
	assert.Equal(t, action.OutcomeCancelled, inv1.Outcome())
	assert.Equal(t, action.OutcomeCancelled, inv2.Outcome())
	waitUntilIdle(t, e)
	assert.Equal(t, 0, e.Shutdown())
}

func TestEngine_Callbacks(t *testing.T) {
	errOffline := errors.New("offline")
	finished := make(chan *engine.CallbackContext, 1)

	callbacks := engine.NewCallbackManager()
	callbacks.RegisterCallback(engine.NewActionFilterCallback(func(name string) error {
		if name == "upload" {
			return errOffline
		}
		return nil
	}))
	callbacks.RegisterCallback(engine.NewFunctionCallback(engine.CallbackAfterInvocation,
		func(_ context.Context, cbCtx *engine.CallbackContext) error {
			finished <- cbCtx
			return nil
		}))

	e := engine.New(func(o *engine.Options) { o.Callbacks = callbacks })

	upload := testutil.NewOperationBuilder[string, int]().Succeed(1).Build()
	_, err := engine.Invoke[string, int](context.Background(), e,
		engine.NewRetryable[string, int](e, upload, action.WithName("upload")), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, errOffline)
	assert.Equal(t, 0, upload.Calls())
	assert.Empty(t, e.ActiveInvocations())

	fetch := testutil.NewOperationBuilder[string, int]().Succeed(4).Build()
	out, err := engine.Run[string, int](context.Background(), e,
		engine.NewRetryable[string, int](e, fetch, action.WithName("fetch")), "x")
	require.NoError(t, err)
	assert.Equal(t, 4, out)

	cbCtx := testutil.Receive(t, (<-chan *engine.CallbackContext)(finished))
	assert.Equal(t, "fetch", cbCtx.Action)
	assert.Equal(t, action.OutcomeSucceeded, cbCtx.Outcome)
	assert.Equal(t, 1, cbCtx.Attempts)
	assert.NoError(t, cbCtx.Err)
	assert.NotEmpty(t, cbCtx.InvocationID)
}

func TestLoggingCallback(t *testing.T) {
	var lines []string
	cb := engine.NewLoggingCallback(engine.CallbackAfterInvocation, func(msg string) { lines = append(lines, msg) })

	require.NoError(t, cb.Execute(context.Background(), &engine.CallbackContext{
		InvocationID: "inv-1",
		Action:       "fetch",
		CallbackType: engine.CallbackAfterInvocation,
		Outcome:      action.OutcomeIgnored,
		Attempts:     2,
	}))

	require.Len(t, lines, 1)
	assert.Equal(t, "[after_invocation] Action: fetch, Invocation: inv-1, Outcome: ignored, Attempts: 2", lines[0])
}
