package errs

import "errors"

// Error classes shared by every usecase. Sentinels are marked with exactly one of
// these so the HTTP edge can pick a status without knowing each sentinel.
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrTransient  = errors.New("transient failure")
	ErrFatal      = errors.New("data integrity violation")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
)

// Idempotency errors
var (
	ErrIdempotencyKeyRequired = errors.New("idempotency key required")
	ErrIdempotencyInProgress  = errors.New("idempotency in progress")
	ErrIdempotencyMismatch    = errors.New("idempotency key reused with different request")
	ErrIdempotencyCheckFailed = errors.New("idempotency check failed")
)

// Operation errors
var (
	ErrDatabaseOperationFailed = errors.New("database operation failed")
)

func IsValidation(err error) bool { return Is(err, ErrValidation) }
func IsConflict(err error) bool   { return Is(err, ErrConflict) }
func IsTransient(err error) bool  { return Is(err, ErrTransient) }
func IsFatal(err error) bool      { return Is(err, ErrFatal) }
func IsNotFound(err error) bool   { return Is(err, ErrNotFound) }
