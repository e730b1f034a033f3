// Package apperr defines the error taxonomy shared by every engine, per
// spec.md §7. Controllers in internal/httpapi translate these into the
// response envelopes; background event handlers never let these escape
// (they log and continue instead, per the propagation policy).
package apperr

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Kind is the semantic error category. It is intentionally small and closed.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindRateLimited
	KindTransient
	KindConflict
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "Validation"
	case KindNotFound:
		return "NotFound"
	case KindRateLimited:
		return "RateLimited"
	case KindTransient:
		return "Transient"
	case KindConflict:
		return "Conflict"
	case KindInvariant:
		return "Invariant"
	default:
		return "Unknown"
	}
}

// HTTPStatus maps a Kind to the status code the HTTP controllers should use.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusServiceUnavailable
	case KindTransient, KindInvariant:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error carrying a Kind alongside the wrapped cause.
type Error struct {
	Kind  Kind
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error { return e.cause }

func new_(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, msg: msg, cause: cause}
}

func Validation(msg string) error              { return new_(KindValidation, msg, nil) }
func Validationf(format string, a ...any) error { return new_(KindValidation, fmt.Sprintf(format, a...), nil) }
func NotFound(msg string) error                { return new_(KindNotFound, msg, nil) }
func RateLimited(msg string) error             { return new_(KindRateLimited, msg, nil) }
func Transient(msg string, cause error) error  { return new_(KindTransient, msg, errors.WithStack(cause)) }
func Conflict(msg string) error                { return new_(KindConflict, msg, nil) }
func Invariant(msg string) error               { return new_(KindInvariant, msg, nil) }

// As extracts an *Error from err, following wrapped causes.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRateLimited reports whether err (or anything it wraps) is a RateLimited
// error, or looks like an upstream 429 / "rate limit" message — the
// predicate the Retry Executor (C1) uses to decide whether to retry.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := As(err); ok && e.Kind == KindRateLimited {
		return true
	}
	msg := err.Error()
	return containsFold(msg, "429") || containsFold(msg, "rate limit") || containsFold(msg, "too many requests")
}

func containsFold(s, substr string) bool {
	sl, subl := len(s), len(substr)
	if subl == 0 {
		return true
	}
	for i := 0; i+subl <= sl; i++ {
		if equalFold(s[i:i+subl], substr) {
			return true
		}
	}
	return false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
