package alert

import (
	"github.com/hupe1980/retryit/action"
	"github.com/hupe1980/retryit/loading"
)

// Style hints how a button should be rendered.
type Style int

const (
	// StyleDefault is a regular button.
	StyleDefault Style = iota
	// StyleCancel dismisses the alert.
	StyleCancel
)

// Button is a labelled choice. Press reports whether the choice took
// effect.
type Button struct {
	Title string
	Style Style
	Press func() bool
}

// Alert is a ready-to-render prompt for a pending decision.
type Alert struct {
	Title   string
	Message string
	// Retry is nil when the error is not retryable.
	Retry *Button
	// Ignore is always present.
	Ignore *Button
	// Decision is the decision the buttons resolve.
	Decision *action.Decision
}

// Buttons returns the available buttons, Retry first.
func (a *Alert) Buttons() []*Button {
	if a.Retry == nil {
		return []*Button{a.Ignore}
	}
	return []*Button{a.Retry, a.Ignore}
}

// ForDecision builds an Alert for d. Retry is offered only when the error
// is described as retryable.
func ForDecision(d *action.Decision, describer Describer) *Alert {
	desc := Describe(d.Err, describer)
	a := &Alert{
		Title:    desc.Title,
		Message:  desc.Reason,
		Decision: d,
		Ignore:   &Button{Title: "OK", Style: StyleCancel, Press: d.Ignore},
	}
	if desc.Retryable {
		a.Retry = &Button{Title: "Retry", Style: StyleDefault, Press: d.Retry}
	}
	return a
}

// FromState returns the Alert for s when it is awaiting a decision.
func FromState[Out any](s loading.State[Out], describer Describer) (*Alert, bool) {
	if s.Kind != loading.KindAwaitingDecision || s.Decision == nil {
		return nil, false
	}
	return ForDecision(s.Decision, describer), true
}
