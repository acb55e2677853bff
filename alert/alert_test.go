package alert_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/retryit/action"
	"github.com/hupe1980/retryit/alert"
	"github.com/hupe1980/retryit/internal/testutil"
	"github.com/hupe1980/retryit/loading"
)

var (
	errOffline  = errors.New("offline")
	errNotAllow = errors.New("not allowed")
)

var describer = alert.Chain(
	alert.Is(errOffline, alert.Description{Title: "Error", Reason: "Connectivity issue", Retryable: true}),
	alert.Is(errNotAllow, alert.Description{Title: "Error", Reason: "Request is not allowed"}),
)

func pendingDecision(t *testing.T, err error) (*action.Decision, *loading.OneShot[int]) {
	t.Helper()
	op := testutil.NewOperationBuilder[string, int]().Fail(err).Succeed(1).Build()
	r := action.Wrap[string, int](action.New[string, int](op))
	shot, startErr := loading.Start[string, int](context.Background(), r, "in")
	require.NoError(t, startErr)
	testutil.Receive(t, shot.States())
	s := testutil.Receive(t, shot.States())
	require.Equal(t, loading.KindAwaitingDecision, s.Kind)
	return s.Decision, shot
}

func TestDescribe(t *testing.T) {
	d := alert.Describe(errOffline, describer)
	assert.Equal(t, "Connectivity issue", d.Reason)
	assert.True(t, d.Retryable)

	d = alert.Describe(errNotAllow, describer)
	assert.False(t, d.Retryable)

	d = alert.Describe(errors.New("other"), describer)
	assert.Equal(t, "other", d.Reason)
	assert.True(t, d.Retryable)
}

func TestFromState_RetryableOffersRetry(t *testing.T) {
	dec, shot := pendingDecision(t, errOffline)
	defer shot.Cancel()

	a, ok := alert.FromState(loading.AwaitingDecision[int](dec), describer)
	require.True(t, ok)
	assert.Equal(t, "Connectivity issue", a.Message)
	require.NotNil(t, a.Retry)
	assert.Len(t, a.Buttons(), 2)

	assert.True(t, a.Retry.Press())
	assert.False(t, a.Ignore.Press())
	assert.Equal(t, action.ResolutionRetry, dec.Resolution())
}

func TestFromState_NotRetryableOnlyIgnores(t *testing.T) {
	dec, shot := pendingDecision(t, errNotAllow)
	defer shot.Cancel()

	a := alert.ForDecision(dec, describer)
	assert.Nil(t, a.Retry)
	require.Len(t, a.Buttons(), 1)
	assert.Equal(t, alert.StyleCancel, a.Ignore.Style)
	assert.True(t, a.Ignore.Press())
}

func TestFromState_OtherStates(t *testing.T) {
	_, ok := alert.FromState(loading.Loading[int](), describer)
	assert.False(t, ok)
	_, ok = alert.FromState(loading.Loaded(1), describer)
	assert.False(t, ok)
}
