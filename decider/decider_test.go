package decider_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/retryit/action"
	"github.com/hupe1980/retryit/alert"
	"github.com/hupe1980/retryit/decider"
	"github.com/hupe1980/retryit/internal/testutil"
)

var (
	errTransient = errors.New("transient")
	errForbidden = errors.New("forbidden")
)

var describer = alert.Chain(
	alert.Is(errTransient, alert.Description{Title: "Error", Reason: "Try again", Retryable: true}),
	alert.Is(errForbidden, alert.Description{Title: "Error", Reason: "Forbidden"}),
)

func fastPolicy(maxRetries int) decider.Policy {
	return decider.Policy{
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2,
		MaxRetries:      maxRetries,
	}
}

func TestBackoff_RetriesUntilExhaustedThenIgnores(t *testing.T) {
	op := testutil.NewOperationBuilder[string, int]().Fail(errTransient).Build()
	r := action.Wrap[string, int](action.New[string, int](op))
	b := decider.NewBackoff(func(o *decider.BackoffOptions) { o.Policy = fastPolicy(2) })
	detach := b.Attach(r.Decisions())
	defer detach()

	_, err := r.Apply(context.Background(), "in")

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, op.Calls())
}

func TestBackoff_RecoversBeforeExhaustion(t *testing.T) {
	op := testutil.NewOperationBuilder[string, int]().Fail(errTransient).Fail(errTransient).Succeed(9).Build()
	r := action.Wrap[string, int](action.New[string, int](op))
	b := decider.NewBackoff(func(o *decider.BackoffOptions) { o.Policy = fastPolicy(5) })
	detach := b.Attach(r.Decisions())
	defer detach()

	out, err := r.Apply(context.Background(), "in")

	require.NoError(t, err)
	assert.Equal(t, 9, out)

	// A new invocation starts a fresh backoff sequence.
	_, err = r.Apply(context.Background(), "in")
	require.NoError(t, err)
}

func TestBackoff_CancelStopsScheduledRetry(t *testing.T) {
	op := testutil.NewOperationBuilder[string, int]().Fail(errTransient).Build()
	r := action.Wrap[string, int](action.New[string, int](op))
	b := decider.NewBackoff(func(o *decider.BackoffOptions) {
		o.Policy = decider.Policy{InitialInterval: time.Hour, MaxInterval: time.Hour, Multiplier: 1}
	})
	detach := b.Attach(r.Decisions())
	defer detach()

	inv, err := r.Start(context.Background(), "in")
	require.NoError(t, err)
	n := testutil.Receive(t, inv.Next())
	require.Equal(t, action.NextError, n.Kind)
	assert.True(t, b.Scheduled())

	inv.Cancel()
	testutil.Closed(t, inv.Done())

	assert.Nil(t, r.Decisions().Value())
	assert.False(t, b.Scheduled())
	assert.Equal(t, action.ResolutionCancelled, n.Decision.Resolution())
	assert.Equal(t, 1, op.Calls())
}

func TestBackoff_IgnoresNonRetryable(t *testing.T) {
	op := testutil.NewOperationBuilder[string, int]().Fail(errForbidden).Build()
	r := action.Wrap[string, int](action.New[string, int](op))
	b := decider.NewBackoff(func(o *decider.BackoffOptions) {
		o.Policy = fastPolicy(5)
		o.Describer = describer
	})
	detach := b.Attach(r.Decisions())
	defer detach()

	_, err := r.Apply(context.Background(), "in")

	assert.ErrorIs(t, err, errForbidden)
	assert.Equal(t, 1, op.Calls())
}

func TestBackoff_DetachStopsScheduledRetry(t *testing.T) {
	op := testutil.NewOperationBuilder[string, int]().Fail(errTransient).Build()
	r := action.Wrap[string, int](action.New[string, int](op))
	slow := decider.Policy{InitialInterval: time.Hour, MaxInterval: time.Hour, Multiplier: 1}
	b := decider.NewBackoff(func(o *decider.BackoffOptions) { o.Policy = slow })
	detach := b.Attach(r.Decisions())

	inv, err := r.Start(context.Background(), "in")
	require.NoError(t, err)
	n := testutil.Receive(t, inv.Next())
	detach()

	assert.False(t, b.Scheduled())
	assert.True(t, n.Decision.Pending())
	inv.Cancel()
	testutil.Closed(t, inv.Done())
	assert.Equal(t, 1, op.Calls())
}

func startPending(t *testing.T, err error) *action.Invocation[int] {
	t.Helper()
	op := testutil.NewOperationBuilder[string, int]().Fail(err).Succeed(1).Build()
	r := action.Wrap[string, int](action.New[string, int](op))
	inv, startErr := r.Start(context.Background(), "in")
	require.NoError(t, startErr)
	return inv
}

func TestPrompt_Retry(t *testing.T) {
	inv := startPending(t, errTransient)
	d := testutil.Receive(t, inv.Next()).Decision

	var out bytes.Buffer
	p := decider.NewPrompt(strings.NewReader("what\nr\n"), &out, describer)
	res, err := p.Resolve(d)

	require.NoError(t, err)
	assert.Equal(t, action.ResolutionRetry, res)
	assert.Contains(t, out.String(), "Error: Try again")
	assert.Contains(t, out.String(), "[r]etry / [i]gnore")
	assert.Contains(t, out.String(), `Unrecognised answer "what"`)

	_, err = inv.Wait()
	require.NoError(t, err)
}

func TestPrompt_NotRetryableRefusesRetry(t *testing.T) {
	inv := startPending(t, errForbidden)
	d := testutil.Receive(t, inv.Next()).Decision

	var out bytes.Buffer
	p := decider.NewPrompt(strings.NewReader("r\n"), &out, describer)
	res, err := p.Resolve(d)

	require.NoError(t, err)
	assert.Equal(t, action.ResolutionIgnore, res)
	assert.NotContains(t, out.String(), "[r]etry")

	_, err = inv.Wait()
	assert.ErrorIs(t, err, errForbidden)
}
