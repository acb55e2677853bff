package action

import (
	"errors"
	"fmt"
)

// ErrDisabled is reported when an action is applied while it is disabled.
var ErrDisabled = errors.New("action is disabled")

// ErrorKind distinguishes why an action did not produce a value.
type ErrorKind int

const (
	// Disabled means the call was rejected before the operation ran.
	Disabled ErrorKind = iota + 1
	// OperationFailed means the operation ran and returned an error.
	OperationFailed
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case Disabled:
		return "disabled"
	case OperationFailed:
		return "operation_failed"
	default:
		return "unknown"
	}
}

// ActionError is returned by Apply when no value was produced.
type ActionError struct {
	Kind   ErrorKind
	Action string
	Err    error
}

// Error implements error.
func (e *ActionError) Error() string {
	if e.Kind == Disabled {
		return fmt.Sprintf("action %q: %v", e.Action, ErrDisabled)
	}
	return fmt.Sprintf("action %q failed: %v", e.Action, e.Err)
}

// Unwrap returns the operation error, or ErrDisabled.
func (e *ActionError) Unwrap() error {
	if e.Kind == Disabled {
		return ErrDisabled
	}
	return e.Err
}

// IsDisabled reports whether err is a rejection of a disabled action.
func IsDisabled(err error) bool {
	return errors.Is(err, ErrDisabled)
}

// Cause strips outer OperationFailed wrappers and returns the error reported by
// the innermost operation. Other errors are returned unchanged.
func Cause(err error) error {
	for {
		ae, ok := err.(*ActionError)
		if !ok || ae.Kind != OperationFailed || ae.Err == nil {
			return err
		}
		err = ae.Err
	}
}

func disabledError(name string) error {
	return &ActionError{Kind: Disabled, Action: name, Err: ErrDisabled}
}

func failedError(name string, err error) error {
	return &ActionError{Kind: OperationFailed, Action: name, Err: err}
}
