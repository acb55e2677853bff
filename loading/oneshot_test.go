package loading_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/retryit/action"
	"github.com/hupe1980/retryit/internal/testutil"
	"github.com/hupe1980/retryit/loading"
)

var (
	errFirst  = errors.New("first")
	errSecond = errors.New("second")
)

func newRetryable(op *testutil.ScriptedOperation[string, int]) *action.Retryable[string, int] {
	return action.Wrap[string, int](action.New[string, int](op))
}

// consume reads states until the channel closes, resolving every decision
// with resolve.
func consume(t *testing.T, shot *loading.OneShot[int], resolve func(d *action.Decision)) []loading.State[int] {
	t.Helper()
	var got []loading.State[int]
	for {
		s, ok := <-shot.States()
		if !ok {
			return got
		}
		got = append(got, s)
		if s.Kind == loading.KindAwaitingDecision {
			resolve(s.Decision)
		}
	}
}

func kinds(states []loading.State[int]) []loading.Kind {
	out := make([]loading.Kind, len(states))
	for i, s := range states {
		out[i] = s.Kind
	}
	return out
}

func TestOneShot_RetryOnceThenLoaded(t *testing.T) {
	op := testutil.NewOperationBuilder[string, int]().Fail(errFirst).Succeed(42).Build()

	shot, err := loading.Start[string, int](context.Background(), newRetryable(op), "in")
	require.NoError(t, err)
	got := consume(t, shot, func(d *action.Decision) { assert.True(t, d.Retry()) })

	assert.Equal(t, []loading.Kind{
		loading.KindLoading,
		loading.KindAwaitingDecision,
		loading.KindLoading,
		loading.KindLoaded,
	}, kinds(got))
	assert.Equal(t, 42, got[3].Value)
	assert.True(t, got[3].IsTerminal())
	testutil.Closed(t, shot.Done())
	assert.Equal(t, loading.KindLoaded, shot.State().Value().Kind)
}

func TestOneShot_IgnoreEndsStream(t *testing.T) {
	op := testutil.NewOperationBuilder[string, int]().Fail(errFirst).Build()

	shot, err := loading.Start[string, int](context.Background(), newRetryable(op), "in")
	require.NoError(t, err)
	var stale *action.Decision
	got := consume(t, shot, func(d *action.Decision) {
		stale = d
		assert.True(t, d.Ignore())
	})

	assert.Equal(t, []loading.Kind{
		loading.KindLoading,
		loading.KindAwaitingDecision,
		loading.KindIgnored,
	}, kinds(got))
	assert.Equal(t, errFirst, got[2].Err)

	require.NotNil(t, stale)
	assert.False(t, stale.Retry())
	assert.Equal(t, 1, op.Calls())
}

func TestOneShot_TwoFailuresThenValue(t *testing.T) {
	op := testutil.NewOperationBuilder[string, int]().Fail(errFirst).Fail(errSecond).Succeed(7).Build()

	shot, err := loading.Start[string, int](context.Background(), newRetryable(op), "in")
	require.NoError(t, err)
	got := consume(t, shot, func(d *action.Decision) { d.Retry() })

	require.Equal(t, []loading.Kind{
		loading.KindLoading,
		loading.KindAwaitingDecision,
		loading.KindLoading,
		loading.KindAwaitingDecision,
		loading.KindLoading,
		loading.KindLoaded,
	}, kinds(got))
	assert.Equal(t, errFirst, got[1].Decision.Err)
	assert.Equal(t, errSecond, got[3].Decision.Err)
	assert.Equal(t, 7, got[5].Value)
	assert.Equal(t, 3, op.Calls())
}

func TestOneShot_CancelWhileAwaitingDecision(t *testing.T) {
	op := testutil.NewOperationBuilder[string, int]().Fail(errFirst).Build()

	shot, err := loading.Start[string, int](context.Background(), newRetryable(op), "in")
	require.NoError(t, err)

	assert.Equal(t, loading.KindLoading, testutil.Receive(t, shot.States()).Kind)
	awaiting := testutil.Receive(t, shot.States())
	require.Equal(t, loading.KindAwaitingDecision, awaiting.Kind)

	shot.Cancel()
	assert.False(t, awaiting.Decision.Retry())
	assert.False(t, awaiting.Decision.Ignore())

	assert.Empty(t, testutil.Drain(t, shot.States()))
	testutil.Closed(t, shot.Done())
	assert.Equal(t, action.OutcomeCancelled, shot.Invocation().Outcome())
	assert.Equal(t, 1, op.Calls())
}

func TestOneShot_CancelFromSubscriberFreezesState(t *testing.T) {
	op := testutil.NewOperationBuilder[string, int]().Fail(errFirst).Succeed(1).Build()

	shot, err := loading.Start[string, int](context.Background(), newRetryable(op), "in")
	require.NoError(t, err)

	var (
		mu       sync.Mutex
		observed []loading.Kind
	)
	stop := shot.State().Subscribe(func(s loading.State[int]) {
		mu.Lock()
		observed = append(observed, s.Kind)
		mu.Unlock()
		if s.Kind == loading.KindAwaitingDecision {
			shot.Cancel()
			s.Decision.Retry()
		}
	})
	defer stop()

	testutil.Drain(t, shot.States())
	testutil.Closed(t, shot.Done())

	assert.Equal(t, loading.KindAwaitingDecision, shot.State().Value().Kind)
	assert.Equal(t, action.OutcomeCancelled, shot.Invocation().Outcome())
	assert.Equal(t, 1, op.Calls())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, observed)
	assert.Equal(t, loading.KindAwaitingDecision, observed[len(observed)-1])
}

func TestOneShot_StatePropertyMatchesChannel(t *testing.T) {
	op := testutil.NewOperationBuilder[string, int]().Fail(errFirst).Succeed(1).Gated().Build()
	r := newRetryable(op)

	shot, err := loading.Start[string, int](context.Background(), r, "in")
	require.NoError(t, err)

	var (
		mu       sync.Mutex
		observed []loading.Kind
	)
	cancel := shot.State().Subscribe(func(s loading.State[int]) {
		mu.Lock()
		observed = append(observed, s.Kind)
		mu.Unlock()
	})
	defer cancel()

	op.Release()
	op.Release()
	got := consume(t, shot, func(d *action.Decision) { d.Retry() })

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, kinds(got), observed)
}

func TestOneShot_StartWhileDisabled(t *testing.T) {
	op := testutil.NewOperationBuilder[string, int]().Fail(errFirst).Build()
	r := newRetryable(op)

	first, err := loading.Start[string, int](context.Background(), r, "in")
	require.NoError(t, err)
	defer first.Cancel()

	_, err = loading.Start[string, int](context.Background(), r, "in")
	assert.True(t, action.IsDisabled(err))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "loading", loading.Loading[int]().String())
	assert.Equal(t, "loaded(3)", loading.Loaded(3).String())
	assert.Equal(t, "ignored(first)", loading.Ignored[int](errFirst).String())
	assert.False(t, loading.Loading[int]().IsTerminal())
	assert.True(t, loading.Ignored[int](errFirst).IsTerminal())
}
