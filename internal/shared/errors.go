package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates a referenced account, fiscal year or voucher does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConfiguration indicates tenant setup required by a report is missing.
	ErrConfiguration = errors.New("configuration error")
	// ErrConcurrency indicates a write conflict the caller may retry.
	ErrConcurrency = errors.New("concurrent modification")
	// ErrPersistence indicates the underlying store failed.
	ErrPersistence = errors.New("persistence failure")
)

// Validationf wraps ErrValidation with a formatted detail.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with a formatted detail.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Configurationf wraps ErrConfiguration with a formatted detail.
func Configurationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// UserSafeMessage returns an error message that can be shown to end users.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound), errors.Is(err, ErrConfiguration):
		return err.Error()
	case errors.Is(err, ErrConcurrency):
		return "the record was changed by another request, please retry"
	default:
		return "an internal error occurred, please retry"
	}
}
