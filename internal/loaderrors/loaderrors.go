// Package loaderrors classifies the terminal outcomes of a scene load
// attempt: which kind of failure occurred, and whether it should be
// reported to the user as ERROR or silently resolve to UNLOADED.
package loaderrors

import "errors"

// Kind classifies why a load attempt failed.
type Kind int

const (
	// KindNone marks a nil error.
	KindNone Kind = iota
	// KindNotFound means the manifest or a requested model does not exist.
	KindNotFound
	// KindTransport means the RPC failed or the stream terminated unexpectedly.
	KindTransport
	// KindParseFailed means the staged file could not be interpreted as a mesh.
	KindParseFailed
	// KindCancelled means the load was cancelled by the user (unload/shutdown).
	// Unlike the other kinds, this resolves to UNLOADED, not ERROR.
	KindCancelled
	// KindInternal means the server reported an unexpected failure of its
	// own (wire.CodeInternal) rather than a transport-level disconnect.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindTransport:
		return "transport"
	case KindParseFailed:
		return "parse failed"
	case KindCancelled:
		return "cancelled"
	case KindInternal:
		return "internal"
	default:
		return "none"
	}
}

// LoadError wraps an underlying error with its classification. Two
// LoadErrors are Is-equal whenever their Kind matches, regardless of the
// wrapped Err, so callers classify with errors.Is against the sentinels
// below instead of type-asserting or comparing Kind fields by hand.
type LoadError struct {
	Kind Kind
	Err  error
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is reports whether target is a *LoadError of the same Kind, letting
// errors.Is(err, loaderrors.ErrNotFound) classify a wrapped error without
// unwrapping to its underlying cause.
func (e *LoadError) Is(target error) bool {
	t, ok := target.(*LoadError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel errors, one per Kind, for use with errors.Is. NotFound,
// Transport, ParseFailed, and Internal wrap a bare sentinel with the
// underlying cause; Cancelled carries no cause and is returned directly.
var (
	ErrNotFound    = &LoadError{Kind: KindNotFound}
	ErrTransport   = &LoadError{Kind: KindTransport}
	ErrParseFailed = &LoadError{Kind: KindParseFailed}
	ErrCancelled   = &LoadError{Kind: KindCancelled}
	ErrInternal    = &LoadError{Kind: KindInternal}
)

// NotFound wraps err as a KindNotFound LoadError.
func NotFound(err error) error { return &LoadError{Kind: KindNotFound, Err: err} }

// Transport wraps err as a KindTransport LoadError.
func Transport(err error) error { return &LoadError{Kind: KindTransport, Err: err} }

// ParseFailed wraps err as a KindParseFailed LoadError.
func ParseFailed(err error) error { return &LoadError{Kind: KindParseFailed, Err: err} }

// Internal wraps err as a KindInternal LoadError, for a server-reported
// wire.CodeInternal status rather than a transport-level failure.
func Internal(err error) error { return &LoadError{Kind: KindInternal, Err: err} }

// Cancelled is the sentinel returned when a load attempt observes its
// cancel token tripped.
var Cancelled = ErrCancelled

// ClassifyOf returns the Kind of err, tested via errors.Is against each
// sentinel in turn, or KindNone if err is nil. An err that is not a
// *LoadError classifies as KindTransport.
func ClassifyOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrParseFailed):
		return KindParseFailed
	case errors.Is(err, ErrCancelled):
		return KindCancelled
	case errors.Is(err, ErrInternal):
		return KindInternal
	case errors.Is(err, ErrTransport):
		return KindTransport
	default:
		return KindTransport
	}
}

// IsCancelled reports whether err classifies as a cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
