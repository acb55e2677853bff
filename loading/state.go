package loading

import (
	"fmt"

	"github.com/hupe1980/retryit/action"
)

// Kind enumerates the loading states.
type Kind int

const (
	// KindLoading means an attempt is running.
	KindLoading Kind = iota
	// KindLoaded means a value was produced. Terminal.
	KindLoaded
	// KindAwaitingDecision means a failure is waiting for Retry or Ignore.
	KindAwaitingDecision
	// KindIgnored means a failure was accepted as final. Terminal.
	KindIgnored
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindLoaded:
		return "loaded"
	case KindAwaitingDecision:
		return "awaiting_decision"
	case KindIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// State is the folded view of a one-shot invocation.
type State[Out any] struct {
	Kind Kind
	// Value is set for KindLoaded.
	Value Out
	// Decision is set for KindAwaitingDecision.
	Decision *action.Decision
	// Err is set for KindIgnored.
	Err error
}

// Loading returns the loading state.
func Loading[Out any]() State[Out] { return State[Out]{Kind: KindLoading} }

// Loaded returns a terminal state carrying v.
func Loaded[Out any](v Out) State[Out] { return State[Out]{Kind: KindLoaded, Value: v} }

// AwaitingDecision returns a state carrying the pending decision d.
func AwaitingDecision[Out any](d *action.Decision) State[Out] {
	return State[Out]{Kind: KindAwaitingDecision, Decision: d}
}

// Ignored returns a terminal state carrying the ignored error.
func Ignored[Out any](err error) State[Out] { return State[Out]{Kind: KindIgnored, Err: err} }

// IsTerminal reports whether no further state can follow s.
func (s State[Out]) IsTerminal() bool {
	return s.Kind == KindLoaded || s.Kind == KindIgnored
}

// String implements fmt.Stringer.
func (s State[Out]) String() string {
	switch s.Kind {
	case KindLoaded:
		return fmt.Sprintf("loaded(%v)", s.Value)
	case KindAwaitingDecision:
		if s.Decision != nil {
			return fmt.Sprintf("awaiting_decision(%v)", s.Decision.Err)
		}
	case KindIgnored:
		return fmt.Sprintf("ignored(%v)", s.Err)
	}
	return s.Kind.String()
}

// sameState reports whether b repeats a. Terminal states never repeat.
func sameState[Out any](a, b State[Out]) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindLoading:
		return true
	case KindAwaitingDecision:
		return a.Decision == b.Decision
	default:
		return false
	}
}
