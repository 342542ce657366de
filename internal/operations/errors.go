package operations

import (
	"context"
	"errors"
	"fmt"
)

// FetchError reports a source that failed every attempt of its retry policy.
// It unwraps to the last attempt's error so callers still match
// sources.ErrNotFound and the error taxonomy.
type FetchError struct {
	Source   string
	Attempts int
	Cause    error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e == nil {
		return "unknown fetch error"
	}
	return fmt.Sprintf("Download failed after %d attempts: %v", e.Attempts, e.Cause)
}

// Unwrap returns the last attempt's error
func (e *FetchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsRetryable reports whether another attempt may succeed. Every failure is
// retried except cancellation of the caller's context.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled)
}
