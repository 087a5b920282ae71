package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ebook-translator/internal/domain"
)

// ConfigError reports missing or invalid backend configuration. It is fatal
// and never retried.
type ConfigError struct {
	Kind domain.BackendKind
	Err  error
}

// Error formats the configuration failure.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("backend %s configuration: %v", e.Kind, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// FatalError wraps a backend-reported rejection (quota, authorization,
// invalid credential) that aborts the whole job without retries.
type FatalError struct {
	Kind    domain.BackendKind
	Status  int
	Message string
}

// Error formats the backend rejection.
func (e *FatalError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("backend %s rejected request (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("backend %s rejected request: %s", e.Kind, e.Message)
}

// TransientError wraps a transport-level failure that is retried with
// backoff before being surfaced.
type TransientError struct {
	Kind domain.BackendKind
	Err  error
}

// Error formats the transport failure.
func (e *TransientError) Error() string {
	return fmt.Sprintf("backend %s request failed: %v", e.Kind, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether an error must abort the whole job rather than fall
// back to the original chunk text.
func IsFatal(err error) bool {
	var cfgErr *ConfigError
	var fatalErr *FatalError
	return errors.As(err, &cfgErr) || errors.As(err, &fatalErr)
}

// IsCancellation reports whether an error stems from the job's cancellation
// signal rather than an ordinary failure.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}

// fatalStatus reports whether an HTTP status indicates a non-retryable
// backend rejection.
func fatalStatus(status int) bool {
	switch status {
	case 401, 402, 403:
		return true
	default:
		return false
	}
}

// fatalMessage falls back to substring heuristics for backends that report
// rejections with a 200-level or generic status. Structured status codes are
// checked first; this is a known precision gap.
func fatalMessage(message string) bool {
	lower := strings.ToLower(message)
	for _, marker := range []string{"quota", "unauthorized", "invalid api key", "api key not valid", "billing"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
