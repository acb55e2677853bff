package action

// NextKind tags an invocation event.
type NextKind int

const (
	// NextValue carries the successful result.
	NextValue NextKind = iota + 1
	// NextError carries a parked Decision.
	NextError
	// NextRetrying marks that the last decision was resolved with Retry
	// and the operation is running again.
	NextRetrying
)

// String returns the kind name.
func (k NextKind) String() string {
	switch k {
	case NextValue:
		return "value"
	case NextError:
		return "error"
	case NextRetrying:
		return "retrying"
	default:
		return "unknown"
	}
}

// Next is a single event of an invocation.
type Next[Out any] struct {
	Kind     NextKind
	Value    Out
	Decision *Decision
}
