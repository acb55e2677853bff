package testutil

import (
	"testing"
	"time"
)

// DefaultTimeout bounds every helper that waits on a channel.
const DefaultTimeout = 2 * time.Second

// Receive returns the next value from ch, failing the test on timeout or if
// ch is closed.
func Receive[T any](t testing.TB, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed while waiting for a value")
		}
		return v
	case <-time.After(DefaultTimeout):
		t.Fatalf("timed out waiting for a value")
	}
	var zero T
	return zero
}

// Drain collects values from ch until it is closed, failing the test on
// timeout.
func Drain[T any](t testing.TB, ch <-chan T) []T {
	t.Helper()
	var out []T
	deadline := time.After(DefaultTimeout)
	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, v)
		case <-deadline:
			t.Fatalf("timed out draining channel, got %d values", len(out))
			return out
		}
	}
}

// Closed waits for ch to be closed or for the timeout.
func Closed(t testing.TB, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(DefaultTimeout):
		t.Fatalf("timed out waiting for close")
	}
}
