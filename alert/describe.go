// Package alert turns failures into presentable descriptions and builds
// retry/ignore prompts from pending decisions.
package alert

import "errors"

// Description is the presentation of an error.
type Description struct {
	// Title is a short headline.
	Title string
	// Reason explains the failure to the user.
	Reason string
	// Retryable reports whether retrying can help.
	Retryable bool
}

// Describer maps errors to descriptions. It returns false for errors it
// does not recognise.
type Describer interface {
	Describe(err error) (Description, bool)
}

// DescriberFunc adapts a function to Describer.
type DescriberFunc func(err error) (Description, bool)

// Describe calls f(err).
func (f DescriberFunc) Describe(err error) (Description, bool) { return f(err) }

// Chain returns a Describer that consults ds in order and uses the first
// description found.
func Chain(ds ...Describer) Describer {
	return DescriberFunc(func(err error) (Description, bool) {
		for _, d := range ds {
			if d == nil {
				continue
			}
			if desc, ok := d.Describe(err); ok {
				return desc, true
			}
		}
		return Description{}, false
	})
}

// Fallback describes any error as a retryable failure using its message.
var Fallback Describer = DescriberFunc(func(err error) (Description, bool) {
	if err == nil {
		return Description{}, false
	}
	return Description{Title: "Error", Reason: err.Error(), Retryable: true}, true
})

// Is returns a Describer that matches errors wrapping target.
func Is(target error, desc Description) Describer {
	return DescriberFunc(func(err error) (Description, bool) {
		if errors.Is(err, target) {
			return desc, true
		}
		return Description{}, false
	})
}

// Describe resolves err with d and falls back to Fallback.
func Describe(err error, d Describer) Description {
	desc, _ := Chain(d, Fallback).Describe(err)
	return desc
}
