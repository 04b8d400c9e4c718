package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch wraps failures of the content fetcher.
	ErrFetch = errors.New("fetch failed")
	// ErrGeneration wraps failures of the post generator.
	ErrGeneration = errors.New("generation failed")
	// ErrPublish wraps failures of the publisher.
	ErrPublish = errors.New("publish failed")
	// ErrBusy is returned while another operation is in flight.
	ErrBusy = errors.New("another operation is in progress")
)

// ValidationError reports missing or unusable local input. It is raised
// before any network call and is always user-correctable.
type ValidationError struct {
	Field   string
	Message string
	cause   error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func busy() *ValidationError {
	return &ValidationError{Field: "session", Message: "Please wait for the current operation to finish", cause: ErrBusy}
}

// wrap tags err with kind so errors.Is matches both.
func wrap(kind, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
