package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrProviderRejection = errors.New("provider rejected request")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
)

// ProviderError carries the status and message returned by the generation provider
// when it declines to create a job.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider: status %d", e.StatusCode)
	}
	return fmt.Sprintf("provider: %s (status %d)", e.Message, e.StatusCode)
}

// Is makes errors.Is(err, ErrProviderRejection) match any ProviderError.
func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderRejection
}

// InvalidRequestf builds an ErrInvalidRequest with a caller-facing detail.
func InvalidRequestf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
