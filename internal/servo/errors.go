package servo

import "errors"

// Domain errors for controller operations.
var (
	// ErrInvalidConfig indicates bad construction arguments. A controller
	// that failed construction cannot be used; build a new one.
	ErrInvalidConfig = errors.New("servo: invalid controller configuration")

	// ErrInvalidArgument indicates malformed per-call input (wrong-length
	// slice, coordinate outside (-1, 1), missing or non-positive depth).
	// Previously stored state is left untouched; fix the input and retry.
	ErrInvalidArgument = errors.New("servo: invalid argument")

	// ErrNotReady indicates a computation was requested before its required
	// inputs were set. Supply the missing call and retry.
	ErrNotReady = errors.New("servo: required inputs not set")

	// ErrNumerical indicates the SVD factorization failed to converge.
	ErrNumerical = errors.New("servo: svd factorization failed")
)
