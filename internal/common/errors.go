// Package common defines the sentinel errors shared by the pipeline layers
// of oliejournal. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Input errors. Never retried.
	ErrValidation = errors.New("validation error")
	ErrFormat     = errors.New("wav format error")

	// Pipeline errors.
	ErrBudgetExceeded = errors.New("budget exceeded")
	ErrInvalidState   = errors.New("invalid state")
	ErrProviderCall   = errors.New("provider call failed")
)

// ValidationError describes an audio payload that parsed but is outside the
// accepted bounds. Reason is one of the short codes ("empty", "too large",
// "channel count", "sample rate", "bit depth", "duration").
type ValidationError struct {
	Reason string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("validation error: %s", e.Reason)
	}
	return fmt.Sprintf("validation error: %s: %s", e.Reason, e.Detail)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// FormatError reports a WAV container that cannot be parsed. It matches both
// ErrFormat and ErrValidation.
type FormatError struct {
	Detail string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("wav format error: %s", e.Detail)
}

func (e *FormatError) Unwrap() []error { return []error{ErrFormat, ErrValidation} }

// IsPermanent reports whether retrying the operation that produced err can
// never succeed without outside intervention.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidState)
}
