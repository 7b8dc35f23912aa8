package assistant

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when a submission arrives while a reply is pending
	ErrBusy = errors.New("assistant is awaiting a reply")

	// ErrEmptyInput is returned for blank submissions. Nothing changes.
	ErrEmptyInput = errors.New("empty input")

	ErrInvalidMessage = errors.New("message cannot be rated")
	ErrInvalidRating  = errors.New("invalid rating")
	ErrInvalidVerdict = errors.New("invalid verdict")
	ErrInvalidSession = errors.New("session id is required")
	ErrInvalidLocale  = errors.New("unsupported locale")
)

// GeneratorError wraps a failed generator call. It is recovered
// inside the session and exposed only through the snapshot's last error.
type GeneratorError struct {
	Cause error
}

func (e *GeneratorError) Error() string {
	return fmt.Sprintf("suggestion generator failed: %v", e.Cause)
}

func (e *GeneratorError) Unwrap() error {
	return e.Cause
}
