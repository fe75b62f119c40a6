package gauge

import "fmt"

// Kind identifies the category of a Gauge operation failure, mirroring
// the policy/event-kind style of small exported enums used across the
// organization's telemetry services.
type Kind int

const (
	// OutOfRange signals that a mutation under PolicyError (or PolicyOnce
	// while already out of range) would push - or found - the gauge value
	// outside its limit band.
	OutOfRange Kind = iota
	// InvalidMomentum signals a Momentum whose since/until violate the
	// since < until invariant (neither endpoint infinite).
	InvalidMomentum
	// NotFound signals RemoveMomentum called with a momentum that is not
	// a member of the gauge's momenta set.
	NotFound
	// Unreachable signals When(target, nth) could not find the requested
	// crossing, either because the gauge never reaches target or because
	// it reaches it fewer than nth+1 times.
	Unreachable
	// BadArguments signals a malformed call: installing a limit that
	// would create a dependency cycle.
	BadArguments
)

func (k Kind) String() string {
	switch k {
	case OutOfRange:
		return "OutOfRange"
	case InvalidMomentum:
		return "InvalidMomentum"
	case NotFound:
		return "NotFound"
	case Unreachable:
		return "Unreachable"
	case BadArguments:
		return "BadArguments"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the failure type returned by Gauge operations. It carries a
// Kind so callers can branch on the failure category with errors.As, and
// optionally wraps an underlying error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gauge: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("gauge: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *Error with the same Kind, so callers can
// write errors.Is(err, &gauge.Error{Kind: gauge.OutOfRange}) without
// needing to match the message text.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
