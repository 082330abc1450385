// Package chronoerr defines the typed error kinds used across chrongraph's
// pipeline and storage layers, and the classification helpers that replace
// ad hoc error-string sniffing with errors.As-based dispatch.
package chronoerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for retry and propagation decisions.
type Kind string

const (
	// KindTransient covers HTTP timeouts, 5xx responses, connection resets,
	// and transient graph-driver failures. Retried with exponential backoff.
	KindTransient Kind = "transient"
	// KindRateLimited covers HTTP 429 and provider-specific rate limiting.
	// Triggers client-level backoff and, if configured, provider failover.
	KindRateLimited Kind = "rate_limited"
	// KindSchemaParse covers LLM output that doesn't match an expected
	// schema. One repair attempt is made; on failure the step yields an
	// empty result rather than aborting.
	KindSchemaParse Kind = "schema_parse"
	// KindValidation covers bad input to an operation (empty scores,
	// unknown metric, negative value). Propagates to the caller; no retry.
	KindValidation Kind = "validation"
	// KindNotFound covers entity/edge/episode lookup misses.
	KindNotFound Kind = "not_found"
	// KindFatal covers schema-version-incompatible migrations, missing
	// required configuration, and graph drivers that cannot connect at
	// startup. Surfaced to the process supervisor; never retried.
	KindFatal Kind = "fatal"
)

// Error wraps an underlying error with a Kind, so callers can classify it
// via errors.As without parsing error message text.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, &Error{Kind: KindNotFound}) match any chronoerr.Error
// of the same Kind, regardless of message or wrapped cause.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

// New wraps err under kind with a descriptive message.
func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Transient builds a KindTransient error.
func Transient(message string, err error) *Error { return New(KindTransient, message, err) }

// RateLimited builds a KindRateLimited error.
func RateLimited(message string, err error) *Error { return New(KindRateLimited, message, err) }

// SchemaParse builds a KindSchemaParse error.
func SchemaParse(message string, err error) *Error { return New(KindSchemaParse, message, err) }

// Validation builds a KindValidation error.
func Validation(message string, err error) *Error { return New(KindValidation, message, err) }

// NotFound builds a KindNotFound error.
func NotFound(message string, err error) *Error { return New(KindNotFound, message, err) }

// Fatal builds a KindFatal error.
func Fatal(message string, err error) *Error { return New(KindFatal, message, err) }

// KindOf extracts the Kind from err if it (or something it wraps) is a
// *Error, and reports whether one was found.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsRetryable reports whether err should be retried locally with bounded
// backoff: transient I/O and rate-limited errors are, everything else isn't.
func IsRetryable(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	return kind == KindTransient || kind == KindRateLimited
}

// PropagatesToCaller reports whether err should surface directly to the
// request boundary rather than being handled with degraded output: validation
// and fatal errors always do.
func PropagatesToCaller(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	return kind == KindValidation || kind == KindFatal
}
