// Package errs defines the error taxonomy shared by every workflow stage.
//
// The categories matter more than the individual messages: the controller
// routes an error by category (validation failures are never retried,
// authentication failures feed the rate limiter, scrub failures never
// abort a job), and the host-facing summary distinguishes them for the
// user. Wrap with fmt.Errorf("...: %w", Kind) and classify with errors.Is.
package errs

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrValidation covers escaping paths, missing targets, clobbered
	// outputs and bad archive members. Fatal to the affected target.
	ErrValidation = errors.New("validation failed")

	// ErrRateLimited is returned while a resource is locked out.
	ErrRateLimited = errors.New("rate limited")

	// ErrAuthenticationFailed means the cipher rejected the passphrase or
	// detected tampering. Distinct from ErrProcess so the controller can
	// record the failed attempt.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrProcess covers missing tools, unexplained non-zero exits and
	// timeouts of external processes.
	ErrProcess = errors.New("external process failed")

	// ErrIntegrity means post-operation verification failed. Originals are
	// never deleted when this occurs.
	ErrIntegrity = errors.New("output verification failed")

	// ErrScrub is non-fatal: metadata cleaning is best-effort.
	ErrScrub = errors.New("metadata scrub failed")

	// ErrCancelled marks cooperative job cancellation.
	ErrCancelled = errors.New("cancelled")
)

// RateLimitError carries the advised retry-after duration.
type RateLimitError struct {
	Remaining time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.Remaining.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// Kind names the taxonomy bucket an error belongs to, for journal rows
// and host-facing summaries.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrAuthenticationFailed):
		return "auth_failed"
	case errors.Is(err, ErrIntegrity):
		return "integrity"
	case errors.Is(err, ErrScrub):
		return "scrub"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	default:
		return "process"
	}
}

// Fatal reports whether err aborts the affected target. Scrub errors are
// the only non-fatal category.
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrScrub)
}
