package domain

import (
	"errors"
	"fmt"
)

// Error kinds returned by the lifecycle services. Callers match them with errors.Is;
// the wrapped message carries the human readable reason.
var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrInvalidState  = errors.New("invalid state")
	ErrConflict      = errors.New("conflict")
	ErrForbidden     = errors.New("forbidden")
	ErrGateway       = errors.New("gateway error")
	ErrRender        = errors.New("render error")
	ErrTokenMismatch = errors.New("token mismatch")
	ErrInternal      = errors.New("internal error")
)

// ErrCapacityReached is an InvalidState raised when a project has no volunteer slots left.
var ErrCapacityReached = fmt.Errorf("%w: volunteer capacity reached", ErrInvalidState)

// Kind returns the stable code of the first error kind found in err's chain.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrTokenMismatch):
		return "token_mismatch"
	case errors.Is(err, ErrGateway):
		return "gateway_error"
	case errors.Is(err, ErrRender):
		return "render_error"
	default:
		return "internal"
	}
}

// Validationf wraps ErrValidation with a formatted reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// InvalidStatef wraps ErrInvalidState with a formatted reason.
func InvalidStatef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// Internal wraps a lower level failure so storage errors never escape unclassified.
func Internal(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrInternal, op, err)
}
