package shared

import "errors"

var (
	// ErrValidation indicates malformed or missing required fields.
	ErrValidation = errors.New("validation failed")
	// ErrPrecondition indicates a transition attempted from an invalid state.
	ErrPrecondition = errors.New("precondition failed")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
)

// ErrorKind labels the recoverable error families exposed to callers.
type ErrorKind string

const (
	// KindValidation maps to ErrValidation.
	KindValidation ErrorKind = "VALIDATION"
	// KindPrecondition maps to ErrPrecondition.
	KindPrecondition ErrorKind = "PRECONDITION"
	// KindNotFound maps to ErrNotFound.
	KindNotFound ErrorKind = "NOT_FOUND"
	// KindInternal covers everything else.
	KindInternal ErrorKind = "INTERNAL"
)

// Kind classifies an error into its kind for per-id batch reporting.
func Kind(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrPrecondition):
		return KindPrecondition
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}
