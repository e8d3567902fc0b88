package model

import (
	"errors"
	"fmt"
)

// Kind is the error taxonomy from the error handling design: a small,
// closed set analyzers and data services branch on, rather than the
// exceptions-as-control-flow style the original system used.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransientUpstream
	KindPermanentUpstream
	KindDeadlineExceeded
	KindValidationError
	KindAuthError
	KindInternalInvariant

	// Chain adapter capability-level kinds (spec §4.1).
	KindTimeout
	KindRateLimited
	KindNotFound
	KindUnavailable
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindTransientUpstream:
		return "TransientUpstream"
	case KindPermanentUpstream:
		return "PermanentUpstream"
	case KindDeadlineExceeded:
		return "DeadlineExceeded"
	case KindValidationError:
		return "ValidationError"
	case KindAuthError:
		return "AuthError"
	case KindInternalInvariant:
		return "InternalInvariant"
	case KindTimeout:
		return "Timeout"
	case KindRateLimited:
		return "RateLimited"
	case KindNotFound:
		return "NotFound"
	case KindUnavailable:
		return "Unavailable"
	case KindMalformed:
		return "Malformed"
	default:
		return "Unknown"
	}
}

// ShieldError wraps an underlying error with a taxonomy Kind and the
// operation that produced it, generalizing the teacher's plain
// fmt.Errorf("...: %w", err) wrapping so callers can branch on Kind instead
// of string-matching error text.
type ShieldError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *ShieldError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ShieldError) Unwrap() error {
	return e.Err
}

// NewShieldError constructs a ShieldError, wrapping err (which may be nil).
func NewShieldError(kind Kind, op string, err error) *ShieldError {
	return &ShieldError{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the Kind from err if it is (or wraps) a *ShieldError,
// otherwise returns KindUnknown.
func KindOf(err error) Kind {
	var se *ShieldError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}
