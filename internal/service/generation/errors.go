package generation

import (
	"errors"
	"fmt"
)

// ErrBackendUnavailable signals a capability with no configured backend.
// It is returned immediately and never retried.
var ErrBackendUnavailable = errors.New("generation backend not configured")

// transientError marks a backend failure as likely to succeed on immediate
// retry, e.g. a rate limit or timeout. Backends decide what qualifies.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }

func (e *transientError) Unwrap() error { return e.err }

// MarkTransient wraps err so the retry policy will attempt it again.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked retryable by a backend.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// TerminalError reports a capability that kept failing transiently until the
// attempt bound was exhausted. It wraps the last underlying error.
type TerminalError struct {
	Capability string
	Attempts   int
	Err        error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("%s generation failed after %d attempts: %v", e.Capability, e.Attempts, e.Err)
}

func (e *TerminalError) Unwrap() error { return e.Err }
