package types

import (
	"errors"
	"strconv"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrMissingCredentials   = errors.New("model credentials are not configured")
	ErrRateLimited          = errors.New("model provider rate limited the request")
	ErrMalformedModelOutput = errors.New("model output is not a valid itinerary")
	ErrGenerationFailed     = errors.New("failed to generate a valid itinerary")
	ErrPersistenceFailed    = errors.New("failed to save trip")
)

// ValidationError carries a client-safe message and matches ErrInvalidRequest.
type ValidationError struct {
	Message string
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidRequest }

func itoa(n int) string { return strconv.Itoa(n) }
