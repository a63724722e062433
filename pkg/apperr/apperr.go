// Package apperr defines the closed error taxonomy shared across tally's
// HTTP surfaces, with an explicit kind to status-code mapping.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind enumerates the error taxonomy. The set is closed: boundary code maps
// every failure into exactly one of these.
type Kind int

const (
	// KindAuthenticationRequired means no caller could be resolved
	KindAuthenticationRequired Kind = iota
	// KindPermissionDenied means the caller is authenticated but lacks the role
	KindPermissionDenied
	// KindNotFound means the group, user, or membership does not exist
	KindNotFound
	// KindValidation means a malformed filter, date, or pagination input
	KindValidation
	// KindAuditWrite marks audit-store failures. Internal only: it is logged
	// and counted but never surfaced to a caller.
	KindAuditWrite
)

// String returns the stable tag for the kind
func (k Kind) String() string {
	switch k {
	case KindAuthenticationRequired:
		return "authentication_required"
	case KindPermissionDenied:
		return "permission_denied"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation_error"
	case KindAuditWrite:
		return "audit_write_failure"
	default:
		return "unknown"
	}
}

// HTTPStatus maps the kind to its response status code
func (k Kind) HTTPStatus() int {
	switch k {
	case KindAuthenticationRequired:
		return http.StatusUnauthorized
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	default:
		// KindAuditWrite never reaches a response; anything else is a bug.
		return http.StatusInternalServerError
	}
}

// Error is a kinded error value
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

// Unwrap returns the wrapped cause, if any
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a kinded error
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a kinded error with a formatted message
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a kinded error around a cause
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from an error chain. The second return is false
// when no kinded error is present.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsKind reports whether the error chain carries the given kind
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
