package cache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// --------------------------------------------------------------------------
// Error Taxonomy
// --------------------------------------------------------------------------

var (
	// ErrTransient marks a failure that is worth retrying: network-level
	// errors, timeouts and server-side (5xx-equivalent) failures.
	ErrTransient = errors.New("transient failure")

	// ErrPermanent marks a failure that retrying cannot fix, such as a
	// client-side (4xx-equivalent) rejection.
	ErrPermanent = errors.New("permanent failure")

	// ErrQuotaExceeded is returned by the durable tier when the underlying
	// storage is out of capacity. The write to that tier is skipped; the
	// operation as a whole still succeeds.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrSerialization marks stored data that could not be decoded. Reads
	// treat it as a miss; it is never surfaced to callers.
	ErrSerialization = errors.New("malformed stored data")

	// ErrCircuitOpen is the fail-fast signal from an open circuit breaker.
	// Read paths treat it like a remote miss.
	ErrCircuitOpen = errors.New("circuit open")

	// ErrNotReady is returned when the remote store reports it is not
	// available for use.
	ErrNotReady = errors.New("remote store not ready")
)

// Transient wraps err so that it classifies as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// Permanent wraps err so that it classifies as non-retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// IsRetryable is the default retry predicate: transient failures and
// unclassified errors are retried, permanent failures and breaker
// rejections are not. Context cancellation is never retried.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrPermanent):
		return false
	case errors.Is(err, ErrCircuitOpen):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	default:
		return true
	}
}

// ClassifyStatus maps an HTTP status code onto the taxonomy: 5xx is
// transient, everything else non-OK is permanent.
func ClassifyStatus(code int) error {
	switch {
	case code >= http.StatusOK && code < http.StatusMultipleChoices:
		return nil
	case code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: http status %d", ErrTransient, code)
	default:
		return fmt.Errorf("%w: http status %d", ErrPermanent, code)
	}
}
